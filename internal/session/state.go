// Package session drives one monitored RakNet server: the handshake state
// machine (pure, socket-free) and the Session that owns the UDP socket and
// its single receive loop.
package session

// State identifies where a session is in the discovery → connect → login →
// query lifecycle. Exactly one state is active at a time; transitions are
// driven by received message IDs or by the send-interval timer.
type State int

const (
	StateIdle State = iota
	StatePingProbe
	StateOpenRequest1Sent
	StateOpenRequest2Sent
	StateConnectedTransport
	StateConnectionRequestSent
	StateLoggedIn
	StateQuerySent
	StateSteadyState
)

var stateNames = map[State]string{
	StateIdle:                  "Idle",
	StatePingProbe:             "PingProbe",
	StateOpenRequest1Sent:      "OpenRequest1Sent",
	StateOpenRequest2Sent:      "OpenRequest2Sent",
	StateConnectedTransport:    "ConnectedTransport",
	StateConnectionRequestSent: "ConnectionRequestSent",
	StateLoggedIn:              "LoggedIn",
	StateQuerySent:             "QuerySent",
	StateSteadyState:           "SteadyState",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// ActionKind discriminates the instructions a transition hands back to the
// session loop.
type ActionKind int

const (
	// ActionSend transmits Action.Datagram on the session socket.
	ActionSend ActionKind = iota
	// ActionStateChange reports a transition (Old -> New).
	ActionStateChange
	// ActionEmitPong surfaces a decoded pong record.
	ActionEmitPong
	// ActionEmitMessage surfaces a message decoded from a reliable frame.
	ActionEmitMessage
	// ActionLog surfaces a human-readable note.
	ActionLog
)

// Action is one instruction produced by the state machine. The machine never
// touches a socket or a callback itself — the session loop executes actions
// in order, which keeps every transition testable in isolation.
type Action struct {
	Kind ActionKind

	Datagram []byte // ActionSend

	Old State // ActionStateChange
	New State

	Status string // ActionEmitPong

	MessageID byte   // ActionEmitMessage
	Payload   []byte

	Text string // ActionLog
}
