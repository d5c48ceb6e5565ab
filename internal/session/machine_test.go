package session

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1ureka/bzmon/internal/raknet"
)

var testGUID = [8]byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80}

func testMachine() *Machine {
	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 61111}
	return NewMachine(addr, testGUID)
}

// sends extracts the datagrams from a batch of actions.
func sends(acts []Action) [][]byte {
	var out [][]byte
	for _, a := range acts {
		if a.Kind == ActionSend {
			out = append(out, a.Datagram)
		}
	}
	return out
}

// states extracts the transition targets from a batch of actions.
func states(acts []Action) []State {
	var out []State
	for _, a := range acts {
		if a.Kind == ActionStateChange {
			out = append(out, a.New)
		}
	}
	return out
}

// emptyPong builds a 33-byte pong with no status payload.
func emptyPong() []byte {
	pong := make([]byte, 33)
	pong[0] = raknet.IDUnconnectedPong
	return pong
}

// reply1 builds an Open Connection Reply 1 with the given big-endian MTU
// bytes at offset 26.
func reply1(mtuHi, mtuLo byte) []byte {
	r := make([]byte, 28)
	r[0] = raknet.IDOpenConnectionReply1
	copy(r[1:17], raknet.Magic[:])
	copy(r[17:25], []byte{0xA, 0xB, 0xC, 0xD, 0xE, 0xF, 0x1, 0x2})
	r[26], r[27] = mtuHi, mtuLo
	return r
}

// frameMessage wraps a message in a reliable frame-set datagram, the way a
// server delivers connected messages.
func frameMessage(seq uint32, payload []byte) []byte {
	return raknet.EncodeFrameSet(seq, raknet.Frame{
		Reliability:   raknet.Reliable,
		ReliableIndex: 1,
		Payload:       payload,
	})
}

func TestMachineStartSendsPing(t *testing.T) {
	m := testMachine()
	now := time.Now()

	acts := m.Start(now)
	require.Equal(t, StatePingProbe, m.State())
	assert.Equal(t, []State{StatePingProbe}, states(acts))

	sent := sends(acts)
	require.Len(t, sent, 1)
	assert.Equal(t, raknet.IDUnconnectedPing, sent[0][0])
	assert.Len(t, sent[0], 33)

	assert.Nil(t, m.Start(now), "Start on a non-idle machine must be a no-op")
}

func TestMachineEmptyPongHeuristic(t *testing.T) {
	t.Run("two consecutive empty pongs open the handshake", func(t *testing.T) {
		m := testMachine()
		now := time.Now()
		m.Start(now)

		acts := m.HandleDatagram(now, emptyPong())
		assert.Equal(t, StatePingProbe, m.State(), "one empty pong is not enough")
		assert.Empty(t, sends(acts))

		acts = m.HandleDatagram(now, emptyPong())
		require.Equal(t, StateOpenRequest1Sent, m.State())
		sent := sends(acts)
		require.Len(t, sent, 1)
		assert.Equal(t, raknet.IDOpenConnectionRequest1, sent[0][0])
		assert.Len(t, sent[0], 1464, "request 1 is padded to the MTU probe size")
	})

	t.Run("a pong with content resets the count", func(t *testing.T) {
		m := testMachine()
		now := time.Now()
		m.Start(now)

		m.HandleDatagram(now, emptyPong())
		busy := append(emptyPong(), "Lobby|3/8"...)
		acts := m.HandleDatagram(now, busy)
		require.Len(t, acts, 1)
		assert.Equal(t, ActionEmitPong, acts[0].Kind)
		assert.Equal(t, "Lobby|3/8", acts[0].Status)

		m.HandleDatagram(now, emptyPong())
		assert.Equal(t, StatePingProbe, m.State(), "count must restart after a non-empty pong")
	})
}

// TestMachineMTUNegotiation walks Reply 1 carrying MTU bytes 05 D4 and
// checks both the stored MTU and the echoed bytes in Request 2.
func TestMachineMTUNegotiation(t *testing.T) {
	m := testMachine()
	now := time.Now()
	m.Start(now)
	m.HandleDatagram(now, emptyPong())
	m.HandleDatagram(now, emptyPong())
	require.Equal(t, StateOpenRequest1Sent, m.State())

	acts := m.HandleDatagram(now, reply1(0x05, 0xD4))
	require.Equal(t, StateOpenRequest2Sent, m.State())
	assert.Equal(t, uint16(1492), m.MTU())
	assert.Equal(t, [8]byte{0xA, 0xB, 0xC, 0xD, 0xE, 0xF, 0x1, 0x2}, m.PeerGUID())

	sent := sends(acts)
	require.Len(t, sent, 1)
	req2 := sent[0]
	require.Equal(t, raknet.IDOpenConnectionRequest2, req2[0])
	assert.Equal(t, []byte{0x05, 0xD4}, req2[24:26], "request 2 must echo the negotiated MTU")

	assert.Nil(t, m.HandleDatagram(now, reply1(0x05, 0xD4)), "reply 1 outside OpenRequest1Sent is ignored")
}

func TestMachineReply2OpensReliableTransport(t *testing.T) {
	m := testMachine()
	now := time.Now()
	m.Start(now)
	m.HandleDatagram(now, emptyPong())
	m.HandleDatagram(now, emptyPong())
	m.HandleDatagram(now, reply1(0x05, 0xD4))

	acts := m.HandleDatagram(now, []byte{raknet.IDOpenConnectionReply2, 0, 0, 0})
	assert.Equal(t, []State{StateConnectedTransport, StateConnectionRequestSent}, states(acts))

	sent := sends(acts)
	require.Len(t, sent, 1)
	seq, frames, ok := raknet.DecodeFrameSet(sent[0])
	require.True(t, ok, "connection request must travel in a frame-set")
	assert.Equal(t, uint32(1), seq, "first datagram sequence (increment-then-use)")
	require.Len(t, frames, 1)
	assert.Equal(t, uint32(1), frames[0].ReliableIndex)
	require.NotEmpty(t, frames[0].Payload)
	assert.Equal(t, raknet.IDConnectionRequest, frames[0].Payload[0])
	assert.Equal(t, testGUID[:], frames[0].Payload[1:9], "client identity patched into the request")
}

// TestMachineAckPerFrameSet verifies one ACK per accepted frame-set
// datagram, emitted before any frame is processed.
func TestMachineAckPerFrameSet(t *testing.T) {
	m := testMachine()
	now := time.Now()
	m.Start(now)

	inbound := frameMessage(0x000001, []byte{0x99, 1, 2, 3, 4, 5, 6, 7, 8})
	acts := m.HandleDatagram(now, inbound)
	require.NotEmpty(t, acts)
	require.Equal(t, ActionSend, acts[0].Kind, "ACK must come first")
	assert.Equal(t, []byte{0xC0, 0x00, 0x01, 0x01, 0x01, 0x00, 0x00}, acts[0].Datagram)

	// The frame's message still surfaces.
	var emitted []byte
	for _, a := range acts {
		if a.Kind == ActionEmitMessage {
			emitted = append([]byte{a.MessageID}, a.Payload...)
		}
	}
	assert.Equal(t, []byte{0x99, 1, 2, 3, 4, 5, 6, 7, 8}, emitted)
}

func TestMachineLoginAndQueryFlow(t *testing.T) {
	m := testMachine()
	now := time.Now()
	m.Start(now)
	m.HandleDatagram(now, emptyPong())
	m.HandleDatagram(now, emptyPong())
	m.HandleDatagram(now, reply1(0x05, 0xD4))
	m.HandleDatagram(now, []byte{raknet.IDOpenConnectionReply2})
	require.Equal(t, StateConnectionRequestSent, m.State())

	// Connection Request Accepted inside a frame.
	acts := m.HandleDatagram(now, frameMessage(1, []byte{raknet.IDConnectionRequestAccepted}))
	assert.Equal(t, []State{StateLoggedIn, StateQuerySent}, states(acts))

	sent := sends(acts)
	require.Len(t, sent, 3, "ACK + login + query")
	assert.Equal(t, raknet.IDACK, sent[0][0])

	_, frames, ok := raknet.DecodeFrameSet(sent[1])
	require.True(t, ok)
	assert.Equal(t, raknet.IDNewIncomingConnection, frames[0].Payload[0])

	_, frames, ok = raknet.DecodeFrameSet(sent[2])
	require.True(t, ok)
	assert.Equal(t, []byte{raknet.IDLobbyQuery}, frames[0].Payload)

	// Query response with a 4-byte little-endian count.
	body := make([]byte, 5)
	body[0] = raknet.IDLobbyQueryResponse
	binary.LittleEndian.PutUint32(body[1:5], 7)
	acts = m.HandleDatagram(now, frameMessage(2, body))
	assert.Equal(t, []State{StateSteadyState}, states(acts))
}

func TestMachineSteadyStateScheduling(t *testing.T) {
	m := testMachine()
	now := time.Now()
	m.Start(now)
	m.HandleDatagram(now, emptyPong())
	m.HandleDatagram(now, emptyPong())
	m.HandleDatagram(now, reply1(0x05, 0xD4))
	m.HandleDatagram(now, []byte{raknet.IDOpenConnectionReply2})
	m.HandleDatagram(now, frameMessage(1, []byte{raknet.IDConnectionRequestAccepted}))
	body := []byte{raknet.IDLobbyQueryResponse, 0, 0, 0, 0}
	m.HandleDatagram(now, frameMessage(2, body))
	require.Equal(t, StateSteadyState, m.State())

	assert.Nil(t, m.Tick(now), "nothing due immediately after the query")

	// After 5 quiet seconds a keep-alive ping goes out.
	acts := m.Tick(now.Add(6 * time.Second))
	sent := sends(acts)
	require.Len(t, sent, 1)
	assert.Equal(t, raknet.IDUnconnectedPing, sent[0][0])

	// After 15 quiet seconds the query is re-issued.
	acts = m.Tick(now.Add(16 * time.Second))
	sent = sends(acts)
	require.Len(t, sent, 1)
	_, frames, ok := raknet.DecodeFrameSet(sent[0])
	require.True(t, ok)
	assert.Equal(t, []byte{raknet.IDLobbyQuery}, frames[0].Payload)
	assert.Equal(t, StateQuerySent, m.State())
}

func TestMachineStopResets(t *testing.T) {
	m := testMachine()
	now := time.Now()
	m.Start(now)
	m.HandleDatagram(now, emptyPong())
	m.HandleDatagram(now, emptyPong())
	m.HandleDatagram(now, reply1(0x05, 0xD4))
	require.NotZero(t, m.MTU())

	acts := m.Stop()
	assert.Equal(t, []State{StateIdle}, states(acts))
	assert.Zero(t, m.MTU(), "negotiated parameters are discarded on stop")
	assert.Nil(t, m.HandleDatagram(now, emptyPong()), "idle machine ignores datagrams")
	assert.Nil(t, m.Stop(), "Stop is idempotent")
}

func TestMachineProbeResend(t *testing.T) {
	m := testMachine()
	now := time.Now()
	m.Start(now)
	m.HandleDatagram(now, emptyPong())
	m.HandleDatagram(now, emptyPong())
	require.Equal(t, StateOpenRequest1Sent, m.State())

	assert.Nil(t, m.Tick(now.Add(500*time.Millisecond)), "within the send interval nothing is re-sent")

	acts := m.Tick(now.Add(1500 * time.Millisecond))
	sent := sends(acts)
	require.Len(t, sent, 1)
	assert.Equal(t, raknet.IDOpenConnectionRequest1, sent[0][0])
	assert.Equal(t, StateOpenRequest1Sent, m.State(), "a resend is not a transition")
}
