package raknet

// Reliability is the 3-bit tag in a frame's flags byte. It selects which
// optional header fields the frame carries.
type Reliability uint8

const (
	Unreliable          Reliability = 0
	UnreliableSequenced Reliability = 1
	Reliable            Reliability = 2
	ReliableOrdered     Reliability = 3
	ReliableSequenced   Reliability = 4
)

// HasReliableIndex reports whether frames of this reliability carry a 3-byte
// reliable message number.
func (r Reliability) HasReliableIndex() bool {
	return r == Reliable || r == ReliableOrdered || r == ReliableSequenced
}

// HasOrderBlock reports whether frames of this reliability carry a 4-byte
// order block (3-byte order index + 1-byte channel).
func (r Reliability) HasOrderBlock() bool {
	return r == UnreliableSequenced || r == ReliableOrdered || r == ReliableSequenced
}

// Frame is one reliability-tagged message inside a frame-set datagram.
//
// ReliableIndex is valid only when Reliability.HasReliableIndex();
// OrderIndex/OrderChannel only when Reliability.HasOrderBlock(); the Split*
// fields only when Split is set. Split frames are fragments of a larger
// message — the monitor recognizes the header but never reassembles them.
type Frame struct {
	Reliability Reliability
	Split       bool

	ReliableIndex uint32 // 24-bit
	OrderIndex    uint32 // 24-bit
	OrderChannel  byte

	SplitCount uint32
	SplitID    uint16
	SplitIndex uint32

	Payload []byte
}
