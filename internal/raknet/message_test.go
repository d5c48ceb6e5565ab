package raknet

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
)

func TestUnconnectedPingLayout(t *testing.T) {
	ping := UnconnectedPing{
		Time:       0x0102030405060708,
		ClientGUID: [8]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x11, 0x22},
	}
	data := ping.Encode()

	if len(data) != 33 {
		t.Fatalf("ping length = %d, want 33", len(data))
	}
	if data[0] != IDUnconnectedPing {
		t.Errorf("id = 0x%02X, want 0x01", data[0])
	}
	if got := binary.BigEndian.Uint64(data[1:9]); got != ping.Time {
		t.Errorf("timestamp = 0x%016X, want 0x%016X", got, ping.Time)
	}
	if !bytes.Equal(data[9:25], Magic[:]) {
		t.Errorf("magic mismatch: % X", data[9:25])
	}
	if !bytes.Equal(data[25:33], ping.ClientGUID[:]) {
		t.Errorf("GUID mismatch: % X", data[25:33])
	}

	ping.NoReplyRequired = true
	if data := ping.Encode(); data[0] != IDUnconnectedPingOpenConn {
		t.Errorf("no-reply ping id = 0x%02X, want 0x02", data[0])
	}
}

func TestDecodePong(t *testing.T) {
	status := "Battlezone Lobby|2/8"
	pong := make([]byte, 33, 33+len(status))
	pong[0] = IDUnconnectedPong
	pong = append(pong, status...)

	testCases := []struct {
		name       string
		data       []byte
		wantOK     bool
		wantStatus string
	}{
		{"pong with status", pong, true, status},
		{"exactly 33 bytes yields empty status", pong[:33], true, ""},
		{"short pong yields empty status", pong[:10], true, ""},
		{"wrong first byte", append([]byte{0x1D}, pong[1:]...), false, ""},
		{"empty input", nil, false, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, ok := DecodePong(tc.data)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if rec.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", rec.Status, tc.wantStatus)
			}
		})
	}
}

// TestDecodePongLossyUTF8 verifies invalid byte sequences are replaced,
// never rejected.
func TestDecodePongLossyUTF8(t *testing.T) {
	pong := make([]byte, 33)
	pong[0] = IDUnconnectedPong
	pong = append(pong, 'o', 'k', 0xFF, 0xFE, '!')

	rec, ok := DecodePong(pong)
	if !ok {
		t.Fatal("pong with invalid UTF-8 must still decode")
	}
	if rec.Status != "ok��!" && rec.Status != "ok�!" {
		t.Errorf("status = %q, want replacement characters for the bad bytes", rec.Status)
	}
}

func TestOpenConnectionRequest1Padding(t *testing.T) {
	data := OpenConnectionRequest1{ProtocolVersion: 6}.Encode()
	if len(data) != 1464 {
		t.Fatalf("request 1 length = %d, want 1464", len(data))
	}
	if data[0] != IDOpenConnectionRequest1 {
		t.Errorf("id = 0x%02X, want 0x05", data[0])
	}
	if !bytes.Equal(data[1:17], Magic[:]) {
		t.Errorf("magic mismatch")
	}
	if data[17] != 6 {
		t.Errorf("protocol version = %d, want 6", data[17])
	}
	for i, b := range data[18:] {
		if b != 0 {
			t.Fatalf("padding byte %d is 0x%02X, want 0x00", 18+i, b)
		}
	}
}

func TestDecodeOpenConnectionReply1(t *testing.T) {
	reply := make([]byte, 28)
	reply[0] = IDOpenConnectionReply1
	copy(reply[1:17], Magic[:])
	copy(reply[17:25], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	reply[26], reply[27] = 0x05, 0xD4 // MTU 1492 big-endian

	r, ok := DecodeOpenConnectionReply1(reply)
	if !ok {
		t.Fatal("reply 1 rejected")
	}
	if r.MTU != 1492 {
		t.Errorf("MTU = %d, want 1492", r.MTU)
	}
	if r.PeerGUID != [8]byte{1, 2, 3, 4, 5, 6, 7, 8} {
		t.Errorf("peer GUID = % X", r.PeerGUID)
	}

	if _, ok := DecodeOpenConnectionReply1(reply[:27]); ok {
		t.Error("reply shorter than 28 bytes must be rejected")
	}
	bad := append([]byte(nil), reply...)
	bad[0] = IDOpenConnectionReply2
	if _, ok := DecodeOpenConnectionReply1(bad); ok {
		t.Error("wrong id must be rejected")
	}
}

func TestOpenConnectionRequest2Layout(t *testing.T) {
	addr := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 50), Port: 61111}
	data := OpenConnectionRequest2{
		ServerAddr: addr,
		MTU:        1492,
		ClientGUID: [8]byte{9, 9, 9, 9, 9, 9, 9, 9},
	}.Encode()

	if data[0] != IDOpenConnectionRequest2 {
		t.Errorf("id = 0x%02X, want 0x07", data[0])
	}
	// id(1) + magic(16) + address block(7) + MTU(2) + GUID(8)
	if len(data) != 34 {
		t.Fatalf("length = %d, want 34", len(data))
	}
	if data[17] != 0x04 {
		t.Errorf("address type byte = 0x%02X, want 0x04", data[17])
	}
	if !bytes.Equal(data[18:22], []byte{192, 168, 1, 50}) {
		t.Errorf("IPv4 bytes = % X", data[18:22])
	}
	if got := binary.BigEndian.Uint16(data[22:24]); got != 61111 {
		t.Errorf("port = %d, want 61111", got)
	}
	if !bytes.Equal(data[24:26], []byte{0x05, 0xD4}) {
		t.Errorf("MTU bytes = % X, want 05 D4", data[24:26])
	}
	if !bytes.Equal(data[26:34], bytes.Repeat([]byte{9}, 8)) {
		t.Errorf("GUID bytes = % X", data[26:34])
	}
}

func TestConnectionRequestGUIDOffset(t *testing.T) {
	guid := [8]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x11, 0x22, 0x33}
	data := ConnectionRequest{ClientGUID: guid, Time: 12345}.Encode()

	if data[0] != IDConnectionRequest {
		t.Errorf("id = 0x%02X, want 0x09", data[0])
	}
	if !bytes.Equal(data[1:9], guid[:]) {
		t.Errorf("GUID not immediately after the id: % X", data[1:9])
	}
	if got := binary.BigEndian.Uint64(data[9:17]); got != 12345 {
		t.Errorf("timestamp = %d, want 12345", got)
	}
}

func TestDecodeLobbyCount(t *testing.T) {
	if n, ok := DecodeLobbyCount([]byte{0x03, 0x00, 0x00, 0x00, 0xAA}); !ok || n != 3 {
		t.Errorf("got (%d, %v), want (3, true)", n, ok)
	}
	if _, ok := DecodeLobbyCount([]byte{0x03, 0x00, 0x00}); ok {
		t.Error("payload shorter than 4 bytes must not decode")
	}
}
