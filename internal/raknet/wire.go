// Package raknet implements the minimal RakNet-compatible wire subset the
// monitor needs to talk to a Battlezone Combat Commander server: unconnected
// ping/pong, the open-connection handshake, and the reliable frame-set layer
// (decode, ACK, and just enough encoding to carry our own messages).
//
// It is deliberately not a full RakNet stack — no congestion control, no
// split-packet reassembly, no encryption. Split frames are recognized and
// skipped over, never reassembled.
package raknet

// Message IDs consumed or produced by the monitor.
const (
	IDUnconnectedPing           byte = 0x01
	IDUnconnectedPingOpenConn   byte = 0x02
	IDOpenConnectionRequest1    byte = 0x05
	IDOpenConnectionReply1      byte = 0x06
	IDOpenConnectionRequest2    byte = 0x07
	IDOpenConnectionReply2      byte = 0x08
	IDConnectionRequest         byte = 0x09
	IDConnectionRequestAccepted byte = 0x10
	IDNewIncomingConnection     byte = 0x13
	IDUnconnectedPong           byte = 0x1C
	IDLobbyQuery                byte = 0x60
	IDLobbyQueryResponse        byte = 0x61
	IDACK                       byte = 0xC0
)

// Magic is the 16-byte offline-message marker every unconnected RakNet
// message carries between the timestamp and the sender GUID.
var Magic = [16]byte{
	0x00, 0xFF, 0xFF, 0x00, 0xFE, 0xFE, 0xFE, 0xFE,
	0xFD, 0xFD, 0xFD, 0xFD, 0x12, 0x34, 0x56, 0x78,
}

// Frame-set datagrams carry 0x80 in their first byte; the low nibble varies
// between implementations, so the whole 0x80..0x8F range is accepted on
// receive. 0x84 (valid + needs-B-and-AS) is what we emit.
const (
	FrameSetMin byte = 0x80
	FrameSetMax byte = 0x8F

	frameSetHeaderByte byte = 0x84
)

// Fixed header geometry of the unconnected messages.
const (
	// GUIDSize is the size of a client or peer GUID.
	GUIDSize = 8

	// pongStatusOffset is where the status string begins in an unconnected
	// pong: 1 id + 8 timestamp + 16 magic + 8 peer GUID.
	pongStatusOffset = 33

	// Open Connection Reply 1 layout: 1 id + 16 magic + 8 peer GUID +
	// 1 security byte + 2 MTU (big-endian).
	reply1MinSize    = 28
	reply1GUIDOffset = 17
	reply1MTUOffset  = 26

	// openRequest1Size is the full padded size of Open Connection Request 1.
	// The large fixed probe doubles as an MTU check: a server that cannot
	// take datagrams this big replies with a smaller MTU or not at all.
	openRequest1Size = 1464
)

// Flags byte of a frame header: reliability in the top 3 bits, split flag
// at 0x10.
const (
	reliabilityShift      = 5
	splitFlag        byte = 0x10
)

// seqMask truncates a sequence value to its 24-bit wire width.
const seqMask = 0xFFFFFF

// uint24 helpers. Sequence numbers and reliable message numbers are 3-byte
// little-endian on the wire.

func uint24LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func putUint24LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func appendUint24LE(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16))
}
