// ABOUTME: Wire envelope types for the duplex socket protocol.
// ABOUTME: Inbound/outbound frames and the conversation flow response payload.

package socket

import "encoding/json"

// Inbound envelope type discriminators.
const (
	TypeUserMessage = "user_message"
)

// Outbound envelope type discriminators.
const (
	TypeAgentResponse = "agent_response"
	TypeAgentMessage  = "agent_message"
	TypeAgentStatus   = "agent_status"
)

// Flow response statuses.
const (
	FlowComplete        = "complete"
	FlowFurtherQuestion = "further_question"
	FlowError           = "error"
)

// Inbound is the envelope every client frame must carry. Data stays raw
// until the type discriminator selects a handler.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// UserMessage is the payload of a user_message frame.
type UserMessage struct {
	Content    string `json:"content"`
	SessionID  string `json:"session_id"`
	WorkflowID string `json:"workflow_id"`
	UserID     string `json:"user_id"`
}

// Outbound is the envelope for every frame sent to a client.
type Outbound struct {
	Type         string `json:"type"`
	Data         any    `json:"data"`
	ConnectionID string `json:"connection_id"`
}

// FlowResponse is the conversation-flow payload carried in agent_response
// frames: either the finished output or the next clarifying question.
type FlowResponse struct {
	Status  string `json:"status"`
	Content any    `json:"content"`
}
