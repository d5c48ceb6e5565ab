package raknet

// Patch rewrites the mutable fields of a captured frame-set template in
// place, so a datagram recorded from one session can be replayed by another
// with fresh sequence positions and identity. It never changes the
// template's length and never touches bytes outside the fields it is asked
// to patch.
//
// A nil pointer skips that field. The reliable number and GUID fields are
// located by walking the first frame's header exactly the way DecodeFrameSet
// does; the GUID is only patched when the first message byte after the frame
// header is a Connection Request.
func Patch(template []byte, datagramSeq, reliableSeq *uint32, guid *[GUIDSize]byte) {
	if len(template) < 4 || template[0] < FrameSetMin || template[0] > FrameSetMax {
		return
	}
	if datagramSeq != nil {
		putUint24LE(template[1:4], *datagramSeq&seqMask)
	}

	b := template[4:]
	if len(b) < 3 {
		return
	}
	flags := b[0]
	rel := Reliability(flags >> reliabilityShift)

	off := 3
	if rel.HasReliableIndex() {
		if len(b) < off+3 {
			return
		}
		if reliableSeq != nil {
			putUint24LE(b[off:off+3], *reliableSeq&seqMask)
		}
		off += 3
	}
	if rel.HasOrderBlock() {
		off += 4
	}
	if flags&splitFlag != 0 {
		off += 10
	}

	if guid != nil && len(b) > off+GUIDSize && b[off] == IDConnectionRequest {
		copy(b[off+1:off+1+GUIDSize], guid[:])
	}
}
