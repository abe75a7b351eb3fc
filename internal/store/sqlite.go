// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides agent/model/workflow/session persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			config_json TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,

			CHECK (type IN ('assistant', 'userproxy', 'groupchat', 'retrieverproxy'))
		);

		CREATE INDEX IF NOT EXISTS idx_agents_user ON agents(user_id);
		CREATE INDEX IF NOT EXISTS idx_agents_name ON agents(name);

		CREATE TABLE IF NOT EXISTS models (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			model TEXT NOT NULL,
			api_key TEXT,
			base_url TEXT,
			api_type TEXT NOT NULL DEFAULT 'open_ai',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_models_user ON models(user_id);
		CREATE INDEX IF NOT EXISTS idx_models_model ON models(model);

		CREATE TABLE IF NOT EXISTS skills (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			content TEXT NOT NULL,
			description TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_skills_user ON skills(user_id);

		CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			type TEXT NOT NULL DEFAULT 'twoagents',
			summary_method TEXT NOT NULL DEFAULT 'last',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,

			CHECK (type IN ('twoagents', 'groupchat')),
			CHECK (summary_method IN ('last', 'llm', 'none'))
		);

		CREATE TABLE IF NOT EXISTS knowledge_hubs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			details TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,

			CHECK (type IN ('website', 'directory', 'file', 'unknown'))
		);

		CREATE INDEX IF NOT EXISTS idx_hubs_user ON knowledge_hubs(user_id);

		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			workflow_id TEXT,
			name TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			session_id TEXT NOT NULL,
			connection_id TEXT,
			meta_json TEXT,
			created_at DATETIME NOT NULL,

			CHECK (role IN ('user', 'assistant'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);

		CREATE TABLE IF NOT EXISTS agent_models (
			agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
			model_id TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
			PRIMARY KEY (agent_id, model_id)
		);

		CREATE TABLE IF NOT EXISTS agent_skills (
			agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
			skill_id TEXT NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
			PRIMARY KEY (agent_id, skill_id)
		);

		CREATE TABLE IF NOT EXISTS workflow_agents (
			workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
			agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			PRIMARY KEY (workflow_id, agent_id, role),

			CHECK (role IN ('sender', 'receiver'))
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Agents ---

// CreateAgent inserts a new agent record
func (s *SQLiteStore) CreateAgent(ctx context.Context, agent *Agent) error {
	now := time.Now()
	agent.CreatedAt = now
	agent.UpdatedAt = now

	cfg, err := json.Marshal(agent.Config)
	if err != nil {
		return fmt.Errorf("marshaling agent config: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agents (id, user_id, name, type, config_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.UserID, agent.Name, agent.Type, string(cfg), now, now)
	if err != nil {
		return fmt.Errorf("inserting agent: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanAgent(row *sql.Row) (*Agent, error) {
	var a Agent
	var cfg string
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &cfg, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning agent: %w", err)
	}
	if err := json.Unmarshal([]byte(cfg), &a.Config); err != nil {
		return nil, fmt.Errorf("unmarshaling agent config: %w", err)
	}
	return &a, nil
}

// GetAgent retrieves an agent by ID. Returns ErrNotFound if it does not exist.
func (s *SQLiteStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, config_json, created_at, updated_at
		 FROM agents WHERE id = ?`, id)
	return s.scanAgent(row)
}

// GetAgentByName retrieves an agent by its configured name.
// If multiple agents share the name, the oldest is returned.
func (s *SQLiteStore) GetAgentByName(ctx context.Context, name string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, config_json, created_at, updated_at
		 FROM agents WHERE name = ? ORDER BY created_at ASC LIMIT 1`, name)
	return s.scanAgent(row)
}

// ListAgents returns all agents for a user, newest first
func (s *SQLiteStore) ListAgents(ctx context.Context, userID string) ([]*Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, config_json, created_at, updated_at
		 FROM agents WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	var agents []*Agent
	for rows.Next() {
		var a Agent
		var cfg string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &cfg, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning agent: %w", err)
		}
		if err := json.Unmarshal([]byte(cfg), &a.Config); err != nil {
			return nil, fmt.Errorf("unmarshaling agent config: %w", err)
		}
		agents = append(agents, &a)
	}
	return agents, rows.Err()
}

// DeleteAgent removes an agent by ID
func (s *SQLiteStore) DeleteAgent(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "agents", id)
}

// --- Models ---

// CreateModel inserts a new model record
func (s *SQLiteStore) CreateModel(ctx context.Context, model *Model) error {
	now := time.Now()
	model.CreatedAt = now
	model.UpdatedAt = now

	if model.APIType == "" {
		model.APIType = "open_ai"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO models (id, user_id, model, api_key, base_url, api_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		model.ID, model.UserID, model.Model, model.APIKey, model.BaseURL, model.APIType, now, now)
	if err != nil {
		return fmt.Errorf("inserting model: %w", err)
	}
	return nil
}

func scanModel(row interface{ Scan(...any) error }) (*Model, error) {
	var m Model
	err := row.Scan(&m.ID, &m.UserID, &m.Model, &m.APIKey, &m.BaseURL, &m.APIType, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning model: %w", err)
	}
	return &m, nil
}

// GetModel retrieves a model by ID
func (s *SQLiteStore) GetModel(ctx context.Context, id string) (*Model, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, model, COALESCE(api_key, ''), COALESCE(base_url, ''), api_type, created_at, updated_at
		 FROM models WHERE id = ?`, id)
	return scanModel(row)
}

// GetModelByName retrieves a model by its model name (e.g. "gpt-4o")
func (s *SQLiteStore) GetModelByName(ctx context.Context, name string) (*Model, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, model, COALESCE(api_key, ''), COALESCE(base_url, ''), api_type, created_at, updated_at
		 FROM models WHERE model = ? ORDER BY created_at ASC LIMIT 1`, name)
	return scanModel(row)
}

// ListModels returns all models for a user, newest first
func (s *SQLiteStore) ListModels(ctx context.Context, userID string) ([]*Model, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, model, COALESCE(api_key, ''), COALESCE(base_url, ''), api_type, created_at, updated_at
		 FROM models WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer rows.Close()

	var models []*Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// DeleteModel removes a model by ID
func (s *SQLiteStore) DeleteModel(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "models", id)
}

// --- Skills ---

// CreateSkill inserts a new skill record
func (s *SQLiteStore) CreateSkill(ctx context.Context, skill *Skill) error {
	now := time.Now()
	skill.CreatedAt = now
	skill.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO skills (id, user_id, name, content, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		skill.ID, skill.UserID, skill.Name, skill.Content, skill.Description, now, now)
	if err != nil {
		return fmt.Errorf("inserting skill: %w", err)
	}
	return nil
}

// ListSkills returns all skills for a user, newest first
func (s *SQLiteStore) ListSkills(ctx context.Context, userID string) ([]*Skill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, content, COALESCE(description, ''), created_at, updated_at
		 FROM skills WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing skills: %w", err)
	}
	defer rows.Close()

	var skills []*Skill
	for rows.Next() {
		var sk Skill
		if err := rows.Scan(&sk.ID, &sk.UserID, &sk.Name, &sk.Content, &sk.Description, &sk.CreatedAt, &sk.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning skill: %w", err)
		}
		skills = append(skills, &sk)
	}
	return skills, rows.Err()
}

// DeleteSkill removes a skill by ID
func (s *SQLiteStore) DeleteSkill(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "skills", id)
}

// --- Workflows ---

// CreateWorkflow inserts a new workflow record
func (s *SQLiteStore) CreateWorkflow(ctx context.Context, wf *Workflow) error {
	now := time.Now()
	wf.CreatedAt = now
	wf.UpdatedAt = now

	if wf.Type == "" {
		wf.Type = "twoagents"
	}
	if wf.SummaryMethod == "" {
		wf.SummaryMethod = SummaryLast
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workflows (id, user_id, name, description, type, summary_method, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		wf.ID, wf.UserID, wf.Name, wf.Description, wf.Type, wf.SummaryMethod, now, now)
	if err != nil {
		return fmt.Errorf("inserting workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID
func (s *SQLiteStore) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, COALESCE(description, ''), type, summary_method, created_at, updated_at
		 FROM workflows WHERE id = ?`, id)

	var w Workflow
	err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.Description, &w.Type, &w.SummaryMethod, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning workflow: %w", err)
	}
	return &w, nil
}

// ListWorkflows returns all workflows, newest first
func (s *SQLiteStore) ListWorkflows(ctx context.Context) ([]*Workflow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, COALESCE(description, ''), type, summary_method, created_at, updated_at
		 FROM workflows ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*Workflow
	for rows.Next() {
		var w Workflow
		if err := rows.Scan(&w.ID, &w.UserID, &w.Name, &w.Description, &w.Type, &w.SummaryMethod, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning workflow: %w", err)
		}
		workflows = append(workflows, &w)
	}
	return workflows, rows.Err()
}

// DeleteWorkflow removes a workflow by ID
func (s *SQLiteStore) DeleteWorkflow(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "workflows", id)
}

// GetWorkflowBundle resolves a workflow together with its sender and receiver agents.
// Returns ErrNotFound if the workflow or either linked agent is missing.
func (s *SQLiteStore) GetWorkflowBundle(ctx context.Context, id string) (*WorkflowBundle, error) {
	wf, err := s.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	sender, err := s.WorkflowAgent(ctx, id, RoleSender)
	if err != nil {
		return nil, fmt.Errorf("resolving sender: %w", err)
	}

	receiver, err := s.WorkflowAgent(ctx, id, RoleReceiver)
	if err != nil {
		return nil, fmt.Errorf("resolving receiver: %w", err)
	}

	return &WorkflowBundle{Workflow: wf, Sender: sender, Receiver: receiver}, nil
}

// --- Knowledge hubs ---

// CreateKnowledgeHub inserts a new knowledge hub record
func (s *SQLiteStore) CreateKnowledgeHub(ctx context.Context, hub *KnowledgeHub) error {
	now := time.Now()
	hub.CreatedAt = now
	hub.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO knowledge_hubs (id, user_id, type, name, description, details, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		hub.ID, hub.UserID, hub.Type, hub.Name, hub.Description, hub.Details, now, now)
	if err != nil {
		return fmt.Errorf("inserting knowledge hub: %w", err)
	}
	return nil
}

// ListKnowledgeHubs returns all knowledge hubs for a user, newest first
func (s *SQLiteStore) ListKnowledgeHubs(ctx context.Context, userID string) ([]*KnowledgeHub, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, type, name, COALESCE(description, ''), COALESCE(details, ''), created_at, updated_at
		 FROM knowledge_hubs WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing knowledge hubs: %w", err)
	}
	defer rows.Close()

	var hubs []*KnowledgeHub
	for rows.Next() {
		var h KnowledgeHub
		if err := rows.Scan(&h.ID, &h.UserID, &h.Type, &h.Name, &h.Description, &h.Details, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning knowledge hub: %w", err)
		}
		hubs = append(hubs, &h)
	}
	return hubs, rows.Err()
}

// DeleteKnowledgeHub removes a knowledge hub by ID
func (s *SQLiteStore) DeleteKnowledgeHub(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "knowledge_hubs", id)
}

// --- Sessions ---

// CreateSession inserts a new session record
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, workflow_id, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.WorkflowID, session.Name, now, now)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, COALESCE(workflow_id, ''), COALESCE(name, ''), created_at, updated_at
		 FROM sessions WHERE id = ?`, id)

	var sess Session
	err := row.Scan(&sess.ID, &sess.UserID, &sess.WorkflowID, &sess.Name, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &sess, nil
}

// ListSessions returns all sessions for a user, newest first
func (s *SQLiteStore) ListSessions(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, COALESCE(workflow_id, ''), COALESCE(name, ''), created_at, updated_at
		 FROM sessions WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.WorkflowID, &sess.Name, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session by ID
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "sessions", id)
}

// --- Messages ---

// SaveMessage persists a conversation turn. Messages are immutable once saved.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	var meta string
	if msg.Meta != nil {
		data, err := json.Marshal(msg.Meta)
		if err != nil {
			return fmt.Errorf("marshaling message meta: %w", err)
		}
		meta = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, user_id, role, content, session_id, connection_id, meta_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.UserID, msg.Role, msg.Content, msg.SessionID, msg.ConnectionID, meta, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListSessionMessages returns all messages for a session in chronological order
func (s *SQLiteStore) ListSessionMessages(ctx context.Context, sessionID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role, content, session_id, COALESCE(connection_id, ''), COALESCE(meta_json, ''), created_at
		 FROM messages WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var m Message
		var meta string
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.SessionID, &m.ConnectionID, &meta, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &m.Meta); err != nil {
				return nil, fmt.Errorf("unmarshaling message meta: %w", err)
			}
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// --- Links ---

// LinkAgentModel links a model to an agent. Linking twice is a no-op.
func (s *SQLiteStore) LinkAgentModel(ctx context.Context, agentID, modelID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO agent_models (agent_id, model_id) VALUES (?, ?)`,
		agentID, modelID)
	if err != nil {
		return fmt.Errorf("linking agent model: %w", err)
	}
	return nil
}

// UnlinkAgentModel removes a model link from an agent
func (s *SQLiteStore) UnlinkAgentModel(ctx context.Context, agentID, modelID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM agent_models WHERE agent_id = ? AND model_id = ?`, agentID, modelID)
	if err != nil {
		return fmt.Errorf("unlinking agent model: %w", err)
	}
	return nil
}

// LinkedModels returns all models linked to an agent
func (s *SQLiteStore) LinkedModels(ctx context.Context, agentID string) ([]*Model, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.user_id, m.model, COALESCE(m.api_key, ''), COALESCE(m.base_url, ''), m.api_type, m.created_at, m.updated_at
		 FROM models m JOIN agent_models am ON am.model_id = m.id
		 WHERE am.agent_id = ?`, agentID)
	if err != nil {
		return nil, fmt.Errorf("listing linked models: %w", err)
	}
	defer rows.Close()

	var models []*Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// LinkAgentSkill links a skill to an agent. Linking twice is a no-op.
func (s *SQLiteStore) LinkAgentSkill(ctx context.Context, agentID, skillID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO agent_skills (agent_id, skill_id) VALUES (?, ?)`,
		agentID, skillID)
	if err != nil {
		return fmt.Errorf("linking agent skill: %w", err)
	}
	return nil
}

// UnlinkAgentSkill removes a skill link from an agent
func (s *SQLiteStore) UnlinkAgentSkill(ctx context.Context, agentID, skillID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM agent_skills WHERE agent_id = ? AND skill_id = ?`, agentID, skillID)
	if err != nil {
		return fmt.Errorf("unlinking agent skill: %w", err)
	}
	return nil
}

// LinkedSkills returns all skills linked to an agent
func (s *SQLiteStore) LinkedSkills(ctx context.Context, agentID string) ([]*Skill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sk.id, sk.user_id, sk.name, sk.content, COALESCE(sk.description, ''), sk.created_at, sk.updated_at
		 FROM skills sk JOIN agent_skills ask ON ask.skill_id = sk.id
		 WHERE ask.agent_id = ?`, agentID)
	if err != nil {
		return nil, fmt.Errorf("listing linked skills: %w", err)
	}
	defer rows.Close()

	var skills []*Skill
	for rows.Next() {
		var sk Skill
		if err := rows.Scan(&sk.ID, &sk.UserID, &sk.Name, &sk.Content, &sk.Description, &sk.CreatedAt, &sk.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning skill: %w", err)
		}
		skills = append(skills, &sk)
	}
	return skills, rows.Err()
}

// LinkWorkflowAgent links an agent to a workflow under a role. Linking twice is a no-op.
func (s *SQLiteStore) LinkWorkflowAgent(ctx context.Context, workflowID, agentID string, role WorkflowRole) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO workflow_agents (workflow_id, agent_id, role) VALUES (?, ?, ?)`,
		workflowID, agentID, role)
	if err != nil {
		return fmt.Errorf("linking workflow agent: %w", err)
	}
	return nil
}

// UnlinkWorkflowAgent removes an agent link from a workflow
func (s *SQLiteStore) UnlinkWorkflowAgent(ctx context.Context, workflowID, agentID string, role WorkflowRole) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM workflow_agents WHERE workflow_id = ? AND agent_id = ? AND role = ?`,
		workflowID, agentID, role)
	if err != nil {
		return fmt.Errorf("unlinking workflow agent: %w", err)
	}
	return nil
}

// WorkflowAgent resolves the agent playing a role in a workflow.
// Returns ErrNotFound if no agent is linked under that role.
func (s *SQLiteStore) WorkflowAgent(ctx context.Context, workflowID string, role WorkflowRole) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT a.id, a.user_id, a.name, a.type, a.config_json, a.created_at, a.updated_at
		 FROM agents a JOIN workflow_agents wa ON wa.agent_id = a.id
		 WHERE wa.workflow_id = ? AND wa.role = ?`, workflowID, role)
	return s.scanAgent(row)
}

// --- Materialization ---

// CommitMaterialization writes the knowledge hub, agent, workflow, and link rows
// in one transaction. On any failure the transaction is rolled back and no
// partial records remain.
func (s *SQLiteStore) CommitMaterialization(ctx context.Context, m *Materialization) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO knowledge_hubs (id, user_id, type, name, description, details, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Hub.ID, m.Hub.UserID, m.Hub.Type, m.Hub.Name, m.Hub.Description, m.Hub.Details, now, now)
	if err != nil {
		return fmt.Errorf("inserting knowledge hub: %w", err)
	}

	cfg, err := json.Marshal(m.Agent.Config)
	if err != nil {
		return fmt.Errorf("marshaling agent config: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO agents (id, user_id, name, type, config_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Agent.ID, m.Agent.UserID, m.Agent.Name, m.Agent.Type, string(cfg), now, now)
	if err != nil {
		return fmt.Errorf("inserting agent: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO workflows (id, user_id, name, description, type, summary_method, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Workflow.ID, m.Workflow.UserID, m.Workflow.Name, m.Workflow.Description,
		m.Workflow.Type, m.Workflow.SummaryMethod, now, now)
	if err != nil {
		return fmt.Errorf("inserting workflow: %w", err)
	}

	if m.LinkedModelID != "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO agent_models (agent_id, model_id) VALUES (?, ?)`,
			m.Agent.ID, m.LinkedModelID)
		if err != nil {
			return fmt.Errorf("linking agent model: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO workflow_agents (workflow_id, agent_id, role) VALUES (?, ?, ?)`,
		m.Workflow.ID, m.Agent.ID, RoleSender)
	if err != nil {
		return fmt.Errorf("linking sender: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO workflow_agents (workflow_id, agent_id, role) VALUES (?, ?, ?)`,
		m.Workflow.ID, m.ReceiverAgentID, RoleReceiver)
	if err != nil {
		return fmt.Errorf("linking receiver: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing materialization: %w", err)
	}

	s.logger.Info("materialization committed",
		"agent_id", m.Agent.ID,
		"agent_name", m.Agent.Name,
		"workflow_id", m.Workflow.ID,
		"hub_type", m.Hub.Type,
	)
	return nil
}

// deleteByID removes a row from the named table by primary key
func (s *SQLiteStore) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
