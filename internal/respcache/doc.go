// Package respcache deduplicates repeated natural-language requests by caching
// the computed response payload under a normalized hash of the request text.
package respcache
