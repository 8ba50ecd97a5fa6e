package mqtt

// Fragments models a possibly-chunked receive buffer, mirroring the
// transport's own pbuf chain (SPEC_FULL.md §6 / §4.3). LinearAt returns the
// contiguous run of bytes starting at the given byte offset into the
// logical concatenation of all fragments, or nil once offset reaches the
// end. The parser calls LinearAt with a monotonically increasing offset
// (advancing by the length of the previously returned run each time) until
// it sees nil.
type Fragments interface {
	LinearAt(offset int) []byte
}

// linearFragment adapts a single contiguous []byte to Fragments.
type linearFragment []byte

func (f linearFragment) LinearAt(offset int) []byte {
	if offset >= len(f) {
		return nil
	}
	return f[offset:]
}

// Linear wraps a single contiguous byte slice as Fragments. Most real
// transports (a TCP read, a single WebSocket message) hand the core exactly
// this shape.
func Linear(b []byte) Fragments { return linearFragment(b) }

// Chain adapts an ordered list of discontiguous byte slices to Fragments,
// for transports (or tests) that deliver a packet split across several
// independent memory regions -- the pbuf-chain case SPEC_FULL.md §4.3
// requires the parser to handle identically to the unsplit case.
type Chain [][]byte

func (c Chain) LinearAt(offset int) []byte {
	for _, seg := range c {
		if offset < len(seg) {
			return seg[offset:]
		}
		offset -= len(seg)
	}
	return nil
}
