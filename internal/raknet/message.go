package raknet

import (
	"encoding/binary"
	"net"
	"strings"
	"unicode/utf8"
)

// Typed message builders. Each message kind is a small struct holding only
// its mutable fields and serialized fresh on every send — the fixed parts of
// the wire layout live here instead of in pre-patched byte blobs.

// UnconnectedPing is the offline discovery probe (0x01, or 0x02 when no
// reply is required).
type UnconnectedPing struct {
	Time            uint64 // milliseconds
	ClientGUID      [GUIDSize]byte
	NoReplyRequired bool
}

// Encode serializes the ping: id + 8-byte big-endian timestamp + magic +
// client GUID.
func (m UnconnectedPing) Encode() []byte {
	buf := make([]byte, 0, pongStatusOffset)
	id := IDUnconnectedPing
	if m.NoReplyRequired {
		id = IDUnconnectedPingOpenConn
	}
	buf = append(buf, id)
	buf = binary.BigEndian.AppendUint64(buf, m.Time)
	buf = append(buf, Magic[:]...)
	return append(buf, m.ClientGUID[:]...)
}

// PongRecord is the decoded form of an unconnected pong. The status string
// is whatever the server put after its GUID — for a BZCC lobby host, the
// advertised session info. An empty status is itself a signal: the peer
// speaks RakNet but advertises nothing.
type PongRecord struct {
	Status string
}

// DecodePong returns the pong's status payload, or ok=false when the
// datagram is not an unconnected pong. The status bytes are decoded as
// UTF-8 lossily: invalid sequences are replaced, never rejected.
func DecodePong(datagram []byte) (PongRecord, bool) {
	if len(datagram) == 0 || datagram[0] != IDUnconnectedPong {
		return PongRecord{}, false
	}
	if len(datagram) <= pongStatusOffset {
		return PongRecord{}, true
	}
	status := strings.ToValidUTF8(string(datagram[pongStatusOffset:]), string(utf8.RuneError))
	return PongRecord{Status: status}, true
}

// OpenConnectionRequest1 opens the handshake. It is padded to a fixed 1464
// bytes to probe the path MTU in one shot; there is no step-down — a server
// that cannot take it either answers with a smaller MTU or stays silent and
// the probe is simply re-sent on the next interval.
type OpenConnectionRequest1 struct {
	ProtocolVersion byte
}

// Encode serializes the request: id + magic + protocol version, zero-padded
// to the probe size.
func (m OpenConnectionRequest1) Encode() []byte {
	buf := make([]byte, openRequest1Size)
	buf[0] = IDOpenConnectionRequest1
	copy(buf[1:17], Magic[:])
	buf[17] = m.ProtocolVersion
	return buf
}

// OpenConnectionReply1 carries the server's negotiated parameters.
type OpenConnectionReply1 struct {
	PeerGUID [GUIDSize]byte
	MTU      uint16
}

// DecodeOpenConnectionReply1 extracts the peer GUID and the negotiated MTU
// (big-endian at offset 26). ok is false for anything that is not a reply 1
// of at least the minimum size.
func DecodeOpenConnectionReply1(datagram []byte) (OpenConnectionReply1, bool) {
	if len(datagram) < reply1MinSize || datagram[0] != IDOpenConnectionReply1 {
		return OpenConnectionReply1{}, false
	}
	var r OpenConnectionReply1
	copy(r.PeerGUID[:], datagram[reply1GUIDOffset:reply1GUIDOffset+GUIDSize])
	r.MTU = binary.BigEndian.Uint16(datagram[reply1MTUOffset : reply1MTUOffset+2])
	return r, true
}

// OpenConnectionRequest2 completes the unreliable half of the handshake,
// echoing the negotiated MTU back along with the destination address.
type OpenConnectionRequest2 struct {
	ServerAddr *net.UDPAddr
	MTU        uint16
	ClientGUID [GUIDSize]byte
}

// Encode serializes the request: id + magic + address block + big-endian
// MTU + client GUID.
func (m OpenConnectionRequest2) Encode() []byte {
	buf := make([]byte, 0, 34)
	buf = append(buf, IDOpenConnectionRequest2)
	buf = append(buf, Magic[:]...)
	buf = appendAddress(buf, m.ServerAddr)
	buf = binary.BigEndian.AppendUint16(buf, m.MTU)
	return append(buf, m.ClientGUID[:]...)
}

// ConnectionRequest is the first reliable message after the transport comes
// up. The GUID sits immediately after the message id, which is what the
// template patcher relies on.
type ConnectionRequest struct {
	ClientGUID [GUIDSize]byte
	Time       uint64
}

// Encode serializes the request: id + client GUID + 8-byte big-endian
// timestamp + security-disabled byte.
func (m ConnectionRequest) Encode() []byte {
	buf := make([]byte, 0, 18)
	buf = append(buf, IDConnectionRequest)
	buf = append(buf, m.ClientGUID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, m.Time)
	return append(buf, 0x00)
}

// NewIncomingConnection is the login message sent after the server accepts
// the connection request. The internal-address slots are zeroed; the server
// only needs them for NAT traversal, which the monitor never does.
type NewIncomingConnection struct {
	ServerAddr *net.UDPAddr
	Time       uint64
}

// Encode serializes the login: id + server address + 10 empty internal
// address blocks + ping/pong timestamps.
func (m NewIncomingConnection) Encode() []byte {
	buf := make([]byte, 0, 94)
	buf = append(buf, IDNewIncomingConnection)
	buf = appendAddress(buf, m.ServerAddr)
	for i := 0; i < 10; i++ {
		buf = appendAddress(buf, nil)
	}
	buf = binary.BigEndian.AppendUint64(buf, m.Time)
	return binary.BigEndian.AppendUint64(buf, m.Time)
}

// LobbyQuery asks the server for its lobby roster. The body is the bare
// message id; everything interesting comes back in the response.
type LobbyQuery struct{}

// Encode serializes the query.
func (LobbyQuery) Encode() []byte {
	return []byte{IDLobbyQuery}
}

// DecodeLobbyCount reads the leading 4-byte little-endian entry count of a
// lobby query response payload (the bytes after the 0x61 id).
func DecodeLobbyCount(payload []byte) (uint32, bool) {
	if len(payload) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(payload[:4]), true
}

// appendAddress encodes a UDP address as the 7-byte wire block:
// address-type byte 0x04, the 4 IPv4 bytes, then the port big-endian.
// A nil or non-IPv4 address encodes as 0.0.0.0:0.
func appendAddress(b []byte, addr *net.UDPAddr) []byte {
	b = append(b, 0x04)
	var ip4 net.IP
	var port uint16
	if addr != nil {
		ip4 = addr.IP.To4()
		port = uint16(addr.Port)
	}
	if ip4 == nil {
		ip4 = net.IPv4zero.To4()
		port = 0
	}
	b = append(b, ip4...)
	return binary.BigEndian.AppendUint16(b, port)
}
