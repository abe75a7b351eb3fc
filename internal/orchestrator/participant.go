// ABOUTME: Participant variants for orchestrated exchanges.
// ABOUTME: Closed set of kinds with one constructor per kind.

package orchestrator

// ParticipantKind identifies what sort of conversational party a
// participant is. The set is closed: the orchestrator switches on the kind
// rather than dispatching through an open hierarchy.
type ParticipantKind string

const (
	KindAssistant      ParticipantKind = "assistant"
	KindUserProxy      ParticipantKind = "userproxy"
	KindRetrieverProxy ParticipantKind = "retrieverproxy"
	KindGroupChat      ParticipantKind = "groupchat"
)

// Participant is one party in an orchestrated exchange. A groupchat
// participant is a composite holding the sub-participants that speak
// through it.
type Participant struct {
	Kind    ParticipantKind
	Name    string
	Members []*Participant
}

// NewAssistant creates an assistant participant.
func NewAssistant(name string) *Participant {
	return &Participant{Kind: KindAssistant, Name: name}
}

// NewUserProxy creates a user-proxy participant.
func NewUserProxy(name string) *Participant {
	return &Participant{Kind: KindUserProxy, Name: name}
}

// NewRetrieverProxy creates a retriever-proxy participant.
func NewRetrieverProxy(name string) *Participant {
	return &Participant{Kind: KindRetrieverProxy, Name: name}
}

// NewGroupChat creates a composite participant speaking for its members.
func NewGroupChat(name string, members ...*Participant) *Participant {
	return &Participant{Kind: KindGroupChat, Name: name, Members: members}
}

// SenderType is the routing label clients use to distinguish multi-party
// hops from plain agent hops.
func (p *Participant) SenderType() string {
	if p.Kind == KindGroupChat {
		return "groupchat"
	}
	return "agent"
}
