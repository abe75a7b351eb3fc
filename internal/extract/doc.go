// ABOUTME: Package documentation for the detail extractor.
// ABOUTME: Explains the degrade-over-fail contract for model-backed extraction.

// Package extract turns free-form user messages into structured
// agent-building details.
//
// The production implementation calls the Gemini API with a strict JSON
// prompt. Any upstream failure, a timeout, an API error, or an unparseable
// reply, degrades to a NEEDS_MORE result with a generic clarifying
// question; extraction never returns an error for upstream trouble, so the
// conversation loop does not need failure handling of its own.
package extract
