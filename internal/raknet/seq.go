package raknet

// Counter is a 24-bit wrapping sequence counter following the
// increment-then-use convention: the first Next returns 1, and the
// 0x1000000th returns 0 again after wrapping past 0xFFFFFF.
//
// A session touches its counters only from its own receive loop, so no
// atomics are needed.
type Counter struct {
	val uint32
}

// Next increments the counter (wrapping at 24 bits) and returns the new value.
func (c *Counter) Next() uint32 {
	c.val = (c.val + 1) & seqMask
	return c.val
}

// Counters bundles the two independent counters used when emitting packets:
// one per transmitted frame-set datagram, one per reliable-numbered frame.
type Counters struct {
	datagram Counter
	reliable Counter
}

// NextDatagramSeq returns the sequence number for the next outbound
// frame-set datagram.
func (c *Counters) NextDatagramSeq() uint32 {
	return c.datagram.Next()
}

// NextReliableSeq returns the reliable message number for the next outbound
// frame that carries one.
func (c *Counters) NextReliableSeq() uint32 {
	return c.reliable.Next()
}
