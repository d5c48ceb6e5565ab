package raknet

import "encoding/binary"

// DecodeFrameSet parses a frame-set datagram into its sequence number and
// frames. ok is false when the datagram is not a frame-set at all (first
// byte outside 0x80..0x8F or no room for the sequence number).
//
// Truncated input is tolerated, not rejected: decoding stops at the first
// frame whose declared fields or payload would run past the end of the
// datagram, and the frames collected up to that point are returned. The
// partial frame is discarded silently. The sequence number is consumed but
// never validated against an expected value — this client observes, it does
// not enforce ordering.
func DecodeFrameSet(datagram []byte) (seq uint32, frames []Frame, ok bool) {
	if len(datagram) < 4 || datagram[0] < FrameSetMin || datagram[0] > FrameSetMax {
		return 0, nil, false
	}
	seq = uint24LE(datagram[1:4])

	b := datagram[4:]
	for len(b) >= 3 {
		flags := b[0]
		f := Frame{
			Reliability: Reliability(flags >> reliabilityShift),
			Split:       flags&splitFlag != 0,
		}
		// Length is transmitted in bits; round up to whole bytes.
		payloadLen := (int(binary.BigEndian.Uint16(b[1:3])) + 7) / 8
		b = b[3:]

		if f.Reliability.HasReliableIndex() {
			if len(b) < 3 {
				return seq, frames, true
			}
			f.ReliableIndex = uint24LE(b)
			b = b[3:]
		}
		if f.Reliability.HasOrderBlock() {
			if len(b) < 4 {
				return seq, frames, true
			}
			f.OrderIndex = uint24LE(b)
			f.OrderChannel = b[3]
			b = b[4:]
		}
		if f.Split {
			if len(b) < 10 {
				return seq, frames, true
			}
			f.SplitCount = binary.BigEndian.Uint32(b[0:4])
			f.SplitID = binary.BigEndian.Uint16(b[4:6])
			f.SplitIndex = binary.BigEndian.Uint32(b[6:10])
			b = b[10:]
		}
		if len(b) < payloadLen {
			return seq, frames, true
		}
		f.Payload = make([]byte, payloadLen)
		copy(f.Payload, b[:payloadLen])
		b = b[payloadLen:]

		frames = append(frames, f)
	}
	return seq, frames, true
}

// EncodeFrameSet serializes frames into a single frame-set datagram with the
// given 24-bit sequence number.
func EncodeFrameSet(seq uint32, frames ...Frame) []byte {
	buf := make([]byte, 4, 64)
	buf[0] = frameSetHeaderByte
	putUint24LE(buf[1:4], seq&seqMask)
	for _, f := range frames {
		buf = appendFrame(buf, f)
	}
	return buf
}

// appendFrame writes one frame header + payload. The inverse of the per-frame
// step in DecodeFrameSet.
func appendFrame(b []byte, f Frame) []byte {
	flags := byte(f.Reliability) << reliabilityShift
	if f.Split {
		flags |= splitFlag
	}
	b = append(b, flags)
	b = binary.BigEndian.AppendUint16(b, uint16(len(f.Payload)*8))
	if f.Reliability.HasReliableIndex() {
		b = appendUint24LE(b, f.ReliableIndex&seqMask)
	}
	if f.Reliability.HasOrderBlock() {
		b = appendUint24LE(b, f.OrderIndex&seqMask)
		b = append(b, f.OrderChannel)
	}
	if f.Split {
		b = binary.BigEndian.AppendUint32(b, f.SplitCount)
		b = binary.BigEndian.AppendUint16(b, f.SplitID)
		b = binary.BigEndian.AppendUint32(b, f.SplitIndex)
	}
	return append(b, f.Payload...)
}

// EncodeACK builds a single-record acknowledgement for one received datagram
// sequence number: 0xC0, a record count of 1, the single-sequence marker,
// and the 24-bit sequence little-endian. One ACK is owed per accepted
// frame-set datagram, before any of its frames are processed.
func EncodeACK(seq uint32) []byte {
	ack := []byte{IDACK, 0x00, 0x01, 0x01, 0, 0, 0}
	putUint24LE(ack[4:7], seq&seqMask)
	return ack
}
