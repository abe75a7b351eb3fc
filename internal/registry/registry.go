// ABOUTME: Tracks live duplex client connections and routes outbound messages to them.
// ABOUTME: Central coordinator for connection lifecycle and best-effort delivery.

package registry

import (
	"log/slog"
	"sync"
)

// Conn is the minimal duplex connection handle the registry needs.
// Implementations must be comparable (pointer types), since records are
// removed by handle identity.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// record pairs a connection handle with its opaque client identifier.
// Client ids are not unique: reconnects may register a second record
// under the same id, so removal always goes by handle identity.
type record struct {
	conn     Conn
	clientID string
}

// Registry tracks all live client connections and delivers messages to them.
type Registry struct {
	mu      sync.Mutex
	records []record
	logger  *slog.Logger
}

// New creates a new Registry instance. Pass nil logger for the default.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger.With("component", "registry"),
	}
}

// Connect registers a new live connection under the given client id.
func (r *Registry) Connect(conn Conn, clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, record{conn: conn, clientID: clientID})
	r.logger.Info("connection registered",
		"client_id", clientID,
		"total_connections", len(r.records),
	)
}

// Disconnect removes the record matching the handle and closes it.
// Idempotent: removing an already-absent handle is a no-op.
func (r *Registry) Disconnect(conn Conn) {
	r.mu.Lock()

	found := false
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.conn == conn {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	total := len(r.records)
	r.mu.Unlock()

	if found {
		_ = conn.Close()
		r.logger.Info("connection closed", "total_connections", total)
	}
}

// DisconnectAll sequentially disconnects every live record. Used at shutdown.
func (r *Registry) DisconnectAll() {
	for _, rec := range r.snapshot() {
		r.Disconnect(rec.conn)
	}
}

// SendTo serializes message and writes it to the connection. Delivery is
// best-effort: a write failure disconnects that handle exactly once and is
// never propagated to the caller. Sends to handles no longer registered are
// silently dropped.
func (r *Registry) SendTo(conn Conn, message any) {
	if !r.contains(conn) {
		return
	}

	if err := conn.WriteJSON(message); err != nil {
		r.logger.Warn("write failed, disconnecting", "error", err)
		r.Disconnect(conn)
	}
}

// SendToClient delivers message to every live connection registered under
// clientID. Returns the number of connections the message was attempted on.
func (r *Registry) SendToClient(clientID string, message any) int {
	attempted := 0
	for _, rec := range r.snapshot() {
		if rec.clientID != clientID {
			continue
		}
		attempted++
		r.SendTo(rec.conn, message)
	}
	return attempted
}

// Broadcast delivers message to every live connection. Iterates a snapshot,
// so concurrent connect/disconnect never corrupts the traversal, and a
// failure on one connection never aborts delivery to the others.
func (r *Registry) Broadcast(message any) {
	for _, rec := range r.snapshot() {
		r.SendTo(rec.conn, message)
	}
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// ClientIDs returns the client ids of all live connections, for logging.
func (r *Registry) ClientIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		ids = append(ids, rec.clientID)
	}
	return ids
}

// snapshot returns a copy of the current records under lock.
func (r *Registry) snapshot() []record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]record, len(r.records))
	copy(out, r.records)
	return out
}

// contains reports whether the handle is currently registered.
func (r *Registry) contains(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.conn == conn {
			return true
		}
	}
	return false
}
