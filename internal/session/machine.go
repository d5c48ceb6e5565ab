package session

import (
	"fmt"
	"net"
	"time"

	"github.com/1ureka/bzmon/internal/raknet"
)

// Timing policy. The probe scheduler re-sends the current state's message at
// most once per second; discovery pings go out every 5 seconds; in steady
// state the lobby query is refreshed after 15 seconds of inactivity.
const (
	probeInterval = 1 * time.Second
	pingInterval  = 5 * time.Second
	queryInterval = 15 * time.Second
)

// protocolVersion is the RakNet protocol version byte sent in Open
// Connection Request 1.
const protocolVersion = 6

// emptyPongThreshold is how many consecutive content-free pongs signal a
// handshake-capable peer. Inherited behavior: this is an observed heuristic,
// not a protocol guarantee — some RakNet servers may answer empty pongs
// without accepting connections.
const emptyPongThreshold = 2

// Machine is the handshake state machine for one session. It owns no socket:
// events go in (Start, Stop, Tick, HandleDatagram), actions come out, and
// the caller decides what to do with them.
//
// At most one handshake step is in flight at a time — the machine emits the
// next state's probe only when a reply advances the state or the
// send-interval timer elapses.
type Machine struct {
	state      State
	serverAddr *net.UDPAddr
	clientGUID [raknet.GUIDSize]byte

	// Negotiated transport parameters, learned from Open Connection Reply 1
	// and immutable until the next handshake.
	mtu      uint16
	peerGUID [raknet.GUIDSize]byte

	counters   raknet.Counters
	emptyPongs int

	lastSend     time.Time
	lastQuery    time.Time
	lastActivity time.Time
}

// NewMachine creates an idle machine for the given server using the given
// per-session client identity.
func NewMachine(serverAddr *net.UDPAddr, clientGUID [raknet.GUIDSize]byte) *Machine {
	return &Machine{state: StateIdle, serverAddr: serverAddr, clientGUID: clientGUID}
}

// State returns the current lifecycle state.
func (m *Machine) State() State { return m.state }

// MTU returns the peer's negotiated MTU, zero before Reply 1 is seen.
func (m *Machine) MTU() uint16 { return m.mtu }

// PeerGUID returns the peer's GUID learned during the handshake.
func (m *Machine) PeerGUID() [raknet.GUIDSize]byte { return m.peerGUID }

// Start moves an idle machine into the ping probe and emits the first ping.
func (m *Machine) Start(now time.Time) []Action {
	if m.state != StateIdle {
		return nil
	}
	acts := m.transition(StatePingProbe, nil)
	return m.sendPing(now, acts)
}

// Stop resets the machine to idle from any state. Negotiated parameters and
// counters are discarded; a new Start re-learns everything.
func (m *Machine) Stop() []Action {
	if m.state == StateIdle {
		return nil
	}
	acts := m.transition(StateIdle, nil)
	m.mtu = 0
	m.peerGUID = [raknet.GUIDSize]byte{}
	m.counters = raknet.Counters{}
	m.emptyPongs = 0
	return acts
}

// Tick re-sends the current state's probe when its interval has elapsed.
// The enclosing loop calls this once per iteration; lost packets are
// recovered purely by this re-send, there are no per-packet retries.
func (m *Machine) Tick(now time.Time) []Action {
	switch m.state {
	case StatePingProbe:
		if now.Sub(m.lastSend) >= pingInterval {
			return m.sendPing(now, nil)
		}
	case StateOpenRequest1Sent:
		if now.Sub(m.lastSend) >= probeInterval {
			return m.sendOpenRequest1(now, nil)
		}
	case StateOpenRequest2Sent:
		if now.Sub(m.lastSend) >= probeInterval {
			return m.sendOpenRequest2(now, nil)
		}
	case StateConnectionRequestSent:
		if now.Sub(m.lastSend) >= probeInterval {
			return m.sendConnectionRequest(now, nil)
		}
	case StateQuerySent:
		if now.Sub(m.lastSend) >= probeInterval {
			return m.sendQuery(now, nil)
		}
	case StateSteadyState:
		if now.Sub(m.lastActivity) >= queryInterval && now.Sub(m.lastQuery) >= queryInterval {
			acts := m.sendQuery(now, nil)
			return m.transition(StateQuerySent, acts)
		}
		if now.Sub(m.lastSend) >= pingInterval {
			return m.sendPing(now, nil)
		}
	}
	return nil
}

// HandleDatagram consumes one inbound datagram. Frame-set datagrams are
// acknowledged first (one ACK per accepted datagram, before any frame is
// processed); everything that does not decode is dropped silently.
func (m *Machine) HandleDatagram(now time.Time, data []byte) []Action {
	if len(data) == 0 || m.state == StateIdle {
		return nil
	}
	m.lastActivity = now

	if seq, frames, ok := raknet.DecodeFrameSet(data); ok {
		acts := []Action{{Kind: ActionSend, Datagram: raknet.EncodeACK(seq)}}
		for _, f := range frames {
			if f.Split {
				// Fragments are recognized but never reassembled.
				continue
			}
			acts = m.handleFrameMessage(now, f.Payload, acts)
		}
		return acts
	}

	switch data[0] {
	case raknet.IDUnconnectedPong:
		return m.handlePong(now, data)
	case raknet.IDOpenConnectionReply1:
		return m.handleReply1(now, data)
	case raknet.IDOpenConnectionReply2:
		return m.handleReply2(now, data)
	}
	return nil
}

// handlePong surfaces the pong record and applies the empty-pong heuristic
// while probing: two consecutive content-free pongs promote the probe to the
// open-connection handshake. A pong with content resets the count.
func (m *Machine) handlePong(now time.Time, data []byte) []Action {
	rec, ok := raknet.DecodePong(data)
	if !ok {
		return nil
	}
	acts := []Action{{Kind: ActionEmitPong, Status: rec.Status}}

	if m.state != StatePingProbe {
		return acts
	}
	if rec.Status != "" {
		m.emptyPongs = 0
		return acts
	}
	m.emptyPongs++
	if m.emptyPongs < emptyPongThreshold {
		return acts
	}
	acts = append(acts, Action{Kind: ActionLog, Text: "peer looks handshake-capable, opening connection"})
	acts = m.transition(StateOpenRequest1Sent, acts)
	return m.sendOpenRequest1(now, acts)
}

func (m *Machine) handleReply1(now time.Time, data []byte) []Action {
	if m.state != StateOpenRequest1Sent {
		return nil
	}
	reply, ok := raknet.DecodeOpenConnectionReply1(data)
	if !ok {
		return nil
	}
	m.mtu = reply.MTU
	m.peerGUID = reply.PeerGUID

	acts := []Action{{Kind: ActionLog, Text: fmt.Sprintf("negotiated MTU %d", reply.MTU)}}
	acts = m.transition(StateOpenRequest2Sent, acts)
	return m.sendOpenRequest2(now, acts)
}

func (m *Machine) handleReply2(now time.Time, data []byte) []Action {
	if m.state != StateOpenRequest2Sent || data[0] != raknet.IDOpenConnectionReply2 {
		return nil
	}
	// The unreliable handshake is done; the reliable framing layer is live.
	acts := m.transition(StateConnectedTransport, nil)
	acts = m.sendConnectionRequest(now, acts)
	return m.transition(StateConnectionRequestSent, acts)
}

// handleFrameMessage dispatches one message decoded from a reliable frame.
// Every message is surfaced through ActionEmitMessage; the two the handshake
// cares about also advance the state.
func (m *Machine) handleFrameMessage(now time.Time, payload []byte, acts []Action) []Action {
	if len(payload) == 0 {
		return acts
	}
	id := payload[0]
	body := payload[1:]
	acts = append(acts, Action{Kind: ActionEmitMessage, MessageID: id, Payload: body})

	switch id {
	case raknet.IDConnectionRequestAccepted:
		if m.state != StateConnectionRequestSent {
			return acts
		}
		acts = m.transition(StateLoggedIn, acts)
		acts = m.sendNewIncomingConnection(now, acts)
		acts = m.sendQuery(now, acts)
		return m.transition(StateQuerySent, acts)

	case raknet.IDLobbyQueryResponse:
		if m.state != StateQuerySent {
			return acts
		}
		count, ok := raknet.DecodeLobbyCount(body)
		if !ok {
			return acts
		}
		acts = append(acts, Action{Kind: ActionLog, Text: fmt.Sprintf("query response: %d lobbies", count)})
		return m.transition(StateSteadyState, acts)
	}
	return acts
}

// ---------------------------------------------------------------------------
// Senders
// ---------------------------------------------------------------------------

func (m *Machine) sendPing(now time.Time, acts []Action) []Action {
	ping := raknet.UnconnectedPing{Time: millis(now), ClientGUID: m.clientGUID}
	return m.send(now, ping.Encode(), acts)
}

func (m *Machine) sendOpenRequest1(now time.Time, acts []Action) []Action {
	req := raknet.OpenConnectionRequest1{ProtocolVersion: protocolVersion}
	return m.send(now, req.Encode(), acts)
}

func (m *Machine) sendOpenRequest2(now time.Time, acts []Action) []Action {
	req := raknet.OpenConnectionRequest2{
		ServerAddr: m.serverAddr,
		MTU:        m.mtu,
		ClientGUID: m.clientGUID,
	}
	return m.send(now, req.Encode(), acts)
}

func (m *Machine) sendConnectionRequest(now time.Time, acts []Action) []Action {
	req := raknet.ConnectionRequest{ClientGUID: m.clientGUID, Time: millis(now)}
	return m.sendReliable(now, req.Encode(), acts)
}

func (m *Machine) sendNewIncomingConnection(now time.Time, acts []Action) []Action {
	login := raknet.NewIncomingConnection{ServerAddr: m.serverAddr, Time: millis(now)}
	return m.sendReliable(now, login.Encode(), acts)
}

func (m *Machine) sendQuery(now time.Time, acts []Action) []Action {
	m.lastQuery = now
	return m.sendReliable(now, raknet.LobbyQuery{}.Encode(), acts)
}

// send emits an unconnected datagram and stamps the send timer.
func (m *Machine) send(now time.Time, datagram []byte, acts []Action) []Action {
	m.lastSend = now
	return append(acts, Action{Kind: ActionSend, Datagram: datagram})
}

// sendReliable wraps payload in a reliable frame inside a fresh frame-set
// datagram, consuming both sequence counters.
func (m *Machine) sendReliable(now time.Time, payload []byte, acts []Action) []Action {
	frame := raknet.Frame{
		Reliability:   raknet.Reliable,
		ReliableIndex: m.counters.NextReliableSeq(),
		Payload:       payload,
	}
	datagram := raknet.EncodeFrameSet(m.counters.NextDatagramSeq(), frame)
	return m.send(now, datagram, acts)
}

func (m *Machine) transition(to State, acts []Action) []Action {
	from := m.state
	m.state = to
	return append(acts, Action{Kind: ActionStateChange, Old: from, New: to})
}

func millis(t time.Time) uint64 {
	return uint64(t.UnixMilli())
}
