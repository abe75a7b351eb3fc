// ABOUTME: Store interface and data types for forge-gateway persistence
// ABOUTME: Defines agents, models, workflows, knowledge hubs, sessions, messages and link operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// AgentType identifies the kind of conversational participant an agent config describes
type AgentType string

const (
	AgentTypeAssistant      AgentType = "assistant"
	AgentTypeUserProxy      AgentType = "userproxy"
	AgentTypeGroupChat      AgentType = "groupchat"
	AgentTypeRetrieverProxy AgentType = "retrieverproxy"
)

// WorkflowRole identifies which side of an orchestrated exchange an agent plays
type WorkflowRole string

const (
	RoleSender   WorkflowRole = "sender"
	RoleReceiver WorkflowRole = "receiver"
)

// SummaryMethod selects how a workflow's user-facing output is computed
type SummaryMethod string

const (
	SummaryLast SummaryMethod = "last"
	SummaryLLM  SummaryMethod = "llm"
	SummaryNone SummaryMethod = "none"
)

// HubType classifies a knowledge source
type HubType string

const (
	HubWebsite   HubType = "website"
	HubDirectory HubType = "directory"
	HubFile      HubType = "file"
	HubUnknown   HubType = "unknown"
)

// RetrieverConfig describes the retrieval settings embedded in an agent config
type RetrieverConfig struct {
	Task           string `json:"task"`
	DocsPath       string `json:"docs_path"`
	CollectionName string `json:"collection_name"`
	EmbeddingModel string `json:"embedding_model"`
	Model          string `json:"model"`
	GetOrCreate    bool   `json:"get_or_create"`
}

// AgentConfig is the structured configuration persisted with an agent
type AgentConfig struct {
	Name                    string           `json:"name"`
	HumanInputMode          string           `json:"human_input_mode"`
	MaxConsecutiveAutoReply int              `json:"max_consecutive_auto_reply"`
	SystemMessage           string           `json:"system_message,omitempty"`
	DefaultAutoReply        string           `json:"default_auto_reply,omitempty"`
	CodeExecution           string           `json:"code_execution_config"`
	Retrieve                *RetrieverConfig `json:"retrieve_config,omitempty"`
}

// Agent represents a persisted agent configuration
type Agent struct {
	ID        string
	UserID    string
	Name      string
	Type      AgentType
	Config    AgentConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Model represents a persisted LLM endpoint configuration
type Model struct {
	ID        string
	UserID    string
	Model     string
	APIKey    string
	BaseURL   string
	APIType   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Skill represents a reusable code snippet an agent can be granted
type Skill struct {
	ID          string
	UserID      string
	Name        string
	Content     string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Workflow represents a sender/receiver exchange definition
type Workflow struct {
	ID            string
	UserID        string
	Name          string
	Description   string
	Type          string // "twoagents" or "groupchat"
	SummaryMethod SummaryMethod
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// KnowledgeHub represents a document/URL source an agent indexes for retrieval
type KnowledgeHub struct {
	ID          string
	UserID      string
	Type        HubType
	Name        string
	Description string
	Details     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session represents one user's conversation context
type Session struct {
	ID         string
	UserID     string
	WorkflowID string
	Name       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Message represents a single conversation turn. Immutable once persisted.
type Message struct {
	ID           string
	UserID       string
	Role         string // "user" or "assistant"
	Content      string
	SessionID    string
	ConnectionID string
	Meta         map[string]any
	CreatedAt    time.Time
}

// WorkflowBundle is a workflow with its resolved sender and receiver agents
type WorkflowBundle struct {
	Workflow *Workflow
	Sender   *Agent
	Receiver *Agent
}

// Materialization is the full linked record set committed atomically when an
// agent is materialized from a finalized conversation.
type Materialization struct {
	Hub             *KnowledgeHub
	Agent           *Agent
	Workflow        *Workflow
	LinkedModelID   string
	ReceiverAgentID string
}

// Store defines the interface for forge-gateway persistence
type Store interface {
	// Agents
	CreateAgent(ctx context.Context, agent *Agent) error
	GetAgent(ctx context.Context, id string) (*Agent, error)
	GetAgentByName(ctx context.Context, name string) (*Agent, error)
	ListAgents(ctx context.Context, userID string) ([]*Agent, error)
	DeleteAgent(ctx context.Context, id string) error

	// Models
	CreateModel(ctx context.Context, model *Model) error
	GetModel(ctx context.Context, id string) (*Model, error)
	GetModelByName(ctx context.Context, name string) (*Model, error)
	ListModels(ctx context.Context, userID string) ([]*Model, error)
	DeleteModel(ctx context.Context, id string) error

	// Skills
	CreateSkill(ctx context.Context, skill *Skill) error
	ListSkills(ctx context.Context, userID string) ([]*Skill, error)
	DeleteSkill(ctx context.Context, id string) error

	// Workflows
	CreateWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, id string) (*Workflow, error)
	ListWorkflows(ctx context.Context) ([]*Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
	GetWorkflowBundle(ctx context.Context, id string) (*WorkflowBundle, error)

	// Knowledge hubs
	CreateKnowledgeHub(ctx context.Context, hub *KnowledgeHub) error
	ListKnowledgeHubs(ctx context.Context, userID string) ([]*KnowledgeHub, error)
	DeleteKnowledgeHub(ctx context.Context, id string) error

	// Sessions
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, userID string) ([]*Session, error)
	DeleteSession(ctx context.Context, id string) error

	// Messages
	SaveMessage(ctx context.Context, msg *Message) error
	ListSessionMessages(ctx context.Context, sessionID string) ([]*Message, error)

	// Links
	LinkAgentModel(ctx context.Context, agentID, modelID string) error
	UnlinkAgentModel(ctx context.Context, agentID, modelID string) error
	LinkedModels(ctx context.Context, agentID string) ([]*Model, error)
	LinkAgentSkill(ctx context.Context, agentID, skillID string) error
	UnlinkAgentSkill(ctx context.Context, agentID, skillID string) error
	LinkedSkills(ctx context.Context, agentID string) ([]*Skill, error)
	LinkWorkflowAgent(ctx context.Context, workflowID, agentID string, role WorkflowRole) error
	UnlinkWorkflowAgent(ctx context.Context, workflowID, agentID string, role WorkflowRole) error
	WorkflowAgent(ctx context.Context, workflowID string, role WorkflowRole) (*Agent, error)

	// CommitMaterialization writes the hub, agent, workflow, and their links
	// in a single transaction. Either every record lands or none do.
	CommitMaterialization(ctx context.Context, m *Materialization) error

	// Close releases any resources held by the store
	Close() error
}
