package mqtt

// parserState is the incremental parser's state (C3), expressed as an
// explicit enumeration plus the small struct of working fields embedded in
// Client -- never as a coroutine, per SPEC_FULL.md §9.
type parserState uint8

const (
	parserInit parserState = iota
	parserCalcRemLen
	parserReadRem
)

// feed drains frag through the byte-at-a-time parser state machine,
// dispatching every complete packet it assembles along the way. It mirrors
// the original's outer loop over pbuf segments: offsets increase
// monotonically until LinearAt returns nil.
//
// The zero-copy fast path (CALC_REM_LEN transitioning directly to dispatch
// when the current segment already contains the whole body) slices directly
// into frag's own backing array rather than copying through the RX scratch
// buffer -- dispatch must run to completion before feed advances past that
// slice, since the slice's backing memory is only guaranteed valid for the
// duration of this call.
func (c *Client) feed(frag Fragments) {
	offset := 0
	for {
		seg := frag.LinearAt(offset)
		if len(seg) == 0 {
			return
		}
		idx := 0
		for idx < len(seg) {
			ch := seg[idx]
			switch c.pstate {
			case parserInit:
				c.hdrByte = ch
				c.remLen = 0
				c.vliMult = 0
				c.rxPos = 0
				c.pstate = parserCalcRemLen
				idx++

			case parserCalcRemLen:
				if c.vliMult >= uint32(maxRemainingLengthSize) {
					c.log.Warnf("mqtt: malformed VLI (more than %d continuation bytes), resetting parser", maxRemainingLengthSize)
					c.pstate = parserInit
					idx++
					continue
				}
				c.remLen |= uint32(ch&0x7f) << (7 * c.vliMult)
				c.vliMult++
				idx++
				if ch&0x80 != 0 {
					continue // still accumulating the VLI.
				}
				switch {
				case c.remLen == 0:
					c.dispatchPacket(nil)
					c.pstate = parserInit
				case len(seg)-idx >= int(c.remLen):
					body := seg[idx : idx+int(c.remLen)]
					c.dispatchPacket(body)
					idx += int(c.remLen)
					c.pstate = parserInit
				default:
					c.pstate = parserReadRem
				}

			case parserReadRem:
				if int(c.rxPos) < len(c.rx) {
					c.rx[c.rxPos] = ch
				}
				c.rxPos++
				idx++
				if c.rxPos == c.remLen {
					if int(c.rxPos) <= len(c.rx) {
						c.dispatchPacket(c.rx[:c.rxPos])
					} else {
						c.log.Warnf("%v: rem_len=%d rx_buf=%d", errDiscardedOverlargePacket, c.remLen, len(c.rx))
					}
					c.pstate = parserInit
				}
			}
		}
		offset += len(seg)
	}
}
