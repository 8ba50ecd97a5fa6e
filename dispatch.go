package mqtt

import (
	"errors"
	"time"
)

// OnActive implements EventSink: the transport has established a
// connection. It builds and sends the CONNECT packet (SPEC_FULL.md §4.6).
// If the TX buffer cannot hold it, the attempt is abandoned: the transport
// is closed and state reverts from CONNECTING (set by Connect once Open
// succeeded) to DISCONNECTED, as SPEC_FULL.md §4.6 records.
func (c *Client) OnActive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnecting {
		c.log.Warnf("mqtt: transport active while in state %v, ignoring", c.state)
		return
	}
	keepAlive := uint16(0)
	if c.desc != nil {
		keepAlive = c.desc.KeepAlive
	}
	remLen := connectRemainingLength(c.desc, keepAlive)
	if _, ok := c.tx.checkEnoughMemory(PacketConnect, 0, remLen); !ok {
		c.log.Warnf("mqtt: TX buffer too small for CONNECT packet, abandoning connection attempt")
		c.state = StateDisconnected
		_ = c.conn.Close()
		return
	}
	h := NewHeader(PacketConnect, 0, remLen)
	if _, err := h.Encode(c.tx); err != nil {
		panic(err)
	}
	if _, err := encodeConnect(c.tx, c.desc, keepAlive); err != nil {
		panic(err)
	}
	c.pollTicks = 0
	c.resetParser()
	c.flush()
}

// resetParser returns the incremental parser to its initial state. Called
// on every fresh connection so stale state from a prior session cannot leak
// across a reconnect.
func (c *Client) resetParser() {
	c.pstate = parserInit
	c.hdrByte = 0
	c.remLen = 0
	c.vliMult = 0
	c.rxPos = 0
}

// OnRecv implements EventSink: feed the incremental parser.
func (c *Client) OnRecv(frag Fragments) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feed(frag)
}

// OnSent implements EventSink: the most recent Send either completed or failed.
func (c *Client) OnSent(n int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.log.Warnf("mqtt: transport reported send failure")
		c.initiateClose()
		return
	}
	c.tx.advance(n)
	c.tx.isSending = false
	// pendingQoS0 returns satisfied slots FIFO by expectedSentLen, so
	// callbacks fire in enqueue order even when a single OnSent call
	// satisfies several slots at once, some of them reused since they were
	// originally allocated.
	for _, req := range c.reqs.pendingQoS0(c.tx.sentTotal) {
		c.reqs.delete(req)
		c.emit(Event{Kind: EventPublish, Publish: PublishEvent{Arg: req.arg}})
	}
	c.flush()
}

// OnPoll implements EventSink: drive the keep-alive scheduler.
func (c *Client) OnPoll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisconnecting || c.state != StateConnected {
		return
	}
	if c.desc == nil || c.desc.KeepAlive == 0 {
		return
	}
	c.pollTicks++
	interval := c.cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollIntervalMS * time.Millisecond
	}
	elapsedMS := uint64(c.pollTicks) * uint64(interval/time.Millisecond)
	if elapsedMS < uint64(c.desc.KeepAlive)*1000 {
		return
	}
	if _, ok := c.tx.checkEnoughMemory(PacketPingreq, 0, 0); ok {
		h := NewHeader(PacketPingreq, 0, 0)
		if _, err := h.Encode(c.tx); err != nil {
			panic(err)
		}
		c.flush()
	}
	c.pollTicks = 0
}

// OnClosed implements EventSink: the transport has fully closed.
func (c *Client) OnClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	prior := c.state
	c.state = StateDisconnected
	accepted := prior == StateConnected || prior == StateDisconnecting
	c.emit(Event{Kind: EventDisconnect, Disconnect: DisconnectEvent{Accepted: accepted}})
	for _, req := range c.reqs.all() {
		c.emitRequestError(req, ErrNotConnected)
	}
	c.reqs.reset()
	c.tx.reset()
	c.resetParser()
}

// OnError implements EventSink: the transport failed outside an orderly close.
func (c *Client) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Warnf("mqtt: transport error: %v", err)
	c.emit(Event{Kind: EventConnect, Connect: ConnectEvent{Status: ConnStatusTCPFailed}})
	c.state = StateDisconnected
	c.reqs.reset()
	c.tx.reset()
	c.resetParser()
}

// emitRequestError surfaces err through the appropriate event kind for
// req.kind, mirroring the close-time "one error event per pending request" fan-out.
func (c *Client) emitRequestError(req *request, err error) {
	switch req.kind {
	case reqSubscribe:
		c.emit(Event{Kind: EventSubscribe, SubUnsub: SubUnsubEvent{Arg: req.arg, Err: err}})
	case reqUnsubscribe:
		c.emit(Event{Kind: EventUnsubscribe, SubUnsub: SubUnsubEvent{Arg: req.arg, Err: err}})
	default:
		c.emit(Event{Kind: EventPublish, Publish: PublishEvent{Arg: req.arg, Err: err}})
	}
}

// writeAck encodes and enqueues a PUBACK/PUBREC/PUBREL/PUBCOMP. Per
// SPEC_FULL.md §4.4, all four share one writer that checks for 4 free bytes
// and silently drops the ack if unavailable -- an ack is not itself
// retried, and the core has no retransmission machinery (explicit Non-goal).
func (c *Client) writeAck(pt PacketType, packetID uint16) {
	if c.tx.Free() < ackSize {
		c.log.Warnf("mqtt: dropping %v ack for packet %d: TX buffer full", pt, packetID)
		return
	}
	if _, err := encodeAck(c.tx, pt, packetID); err != nil {
		panic(err)
	}
	c.flush()
}

// dispatchPacket interprets a fully assembled packet body (everything past
// the fixed header) according to the type recorded in c.hdrByte (C4). Called
// from the parser with mu already held.
func (c *Client) dispatchPacket(body []byte) {
	pt := PacketType(c.hdrByte >> 4)
	c.log.Tracef("mqtt: dispatch %v len=%d", pt, len(body))
	switch pt {
	case PacketConnack:
		c.dispatchConnack(body)
	case PacketPublish:
		c.dispatchPublish(body)
	case PacketPubrec:
		c.dispatchPubrec(body)
	case PacketPubrel:
		c.dispatchPubrel(body)
	case PacketPuback, PacketPubcomp:
		c.dispatchPubackOrComp(pt, body)
	case PacketSuback:
		c.dispatchSubUnsuback(EventSubscribe, body)
	case PacketUnsuback:
		c.dispatchSubUnsuback(EventUnsubscribe, body)
	case PacketPingresp:
		c.emit(Event{Kind: EventKeepAlive})
	default:
		// All other types: ignored (this is a client role only).
	}
}

func (c *Client) dispatchConnack(body []byte) {
	if c.state != StateConnecting {
		c.log.Warnf("mqtt: protocol violation: CONNACK received in state %v", c.state)
		return
	}
	if len(body) < 2 {
		c.log.Warnf("mqtt: protocol violation: short CONNACK body")
		return
	}
	rc := ConnectReturnCode(body[1])
	if rc == ReturnCodeConnAccepted {
		c.state = StateConnected
	}
	c.emit(Event{Kind: EventConnect, Connect: ConnectEvent{Status: connectStatusFromReturnCode(rc)}})
}

func (c *Client) dispatchPublish(body []byte) {
	if len(body) < 2 {
		c.log.Warnf("mqtt: protocol violation: short PUBLISH body")
		return
	}
	topicLen := int(body[0])<<8 | int(body[1])
	if 2+topicLen > len(body) {
		c.log.Warnf("mqtt: protocol violation: PUBLISH topic length overruns body")
		return
	}
	topic := body[2 : 2+topicLen]
	rest := body[2+topicLen:]
	flags := PacketFlags(c.hdrByte & 0b1111)
	qos := flags.QoS()

	var packetID uint16
	if qos != QoS0 {
		if len(rest) < 2 {
			c.log.Warnf("mqtt: protocol violation: PUBLISH missing packet identifier")
			return
		}
		packetID = uint16(rest[0])<<8 | uint16(rest[1])
		rest = rest[2:]
	}

	switch qos {
	case QoS1:
		c.writeAck(PacketPuback, packetID)
	case QoS2:
		c.writeAck(PacketPubrec, packetID)
	}

	c.emit(Event{Kind: EventPublishRecv, PublishRecv: PublishRecvEvent{
		Topic:   topic,
		Payload: rest,
		Dup:     flags.Dup(),
		QoS:     qos,
		Retain:  flags.Retain(),
	}})
}

// dispatchPubrec handles a PUBREC for an outbound QoS-2 publish: it always
// emits a PUBREL response, per SPEC_FULL.md §4.4. If a registered request
// exists it is advanced to qos2AwaitingPubcomp; a PUBREC with no matching
// request (or already past that substate) is a protocol violation.
func (c *Client) dispatchPubrec(body []byte) {
	packetID, ok := decodeAckBody(body)
	if !ok {
		c.log.Warnf("mqtt: protocol violation: short PUBREC body")
		return
	}
	req := c.reqs.pendingByID(packetID)
	if req == nil || req.qos2 != qos2AwaitingPubrec {
		c.log.Warnf("mqtt: protocol violation: unexpected PUBREC for packet %d", packetID)
	} else {
		req.qos2 = qos2AwaitingPubcomp
	}
	c.writeAck(PacketPubrel, packetID)
}

// dispatchPubrel handles a PUBREL for an inbound QoS-2 publish: always emit
// PUBCOMP, no request lookup (inbound publishes are not tracked as requests).
func (c *Client) dispatchPubrel(body []byte) {
	packetID, ok := decodeAckBody(body)
	if !ok {
		c.log.Warnf("mqtt: protocol violation: short PUBREL body")
		return
	}
	c.writeAck(PacketPubcomp, packetID)
}

func (c *Client) dispatchPubackOrComp(pt PacketType, body []byte) {
	packetID, ok := decodeAckBody(body)
	if !ok {
		c.log.Warnf("mqtt: protocol violation: short %v body", pt)
		return
	}
	req := c.reqs.pendingByID(packetID)
	if req == nil {
		c.log.Warnf("mqtt: protocol violation: %v for unknown packet %d", pt, packetID)
		return
	}
	if pt == PacketPubcomp && req.qos2 != qos2AwaitingPubcomp {
		c.log.Warnf("mqtt: protocol violation: PUBCOMP for packet %d before its PUBREC", packetID)
	}
	c.reqs.delete(req)
	c.emit(Event{Kind: EventPublish, Publish: PublishEvent{Arg: req.arg}})
}

func (c *Client) dispatchSubUnsuback(kind EventKind, body []byte) {
	packetID, ok := decodeAckBody(body)
	// A SUBACK carries a return code after the packet identifier; an
	// UNSUBACK body is the packet identifier alone.
	if !ok || (kind == EventSubscribe && len(body) < 3) {
		c.log.Warnf("mqtt: protocol violation: short SUBACK/UNSUBACK body")
		return
	}
	req := c.reqs.pendingByID(packetID)
	if req == nil {
		c.log.Warnf("mqtt: protocol violation: SUBACK/UNSUBACK for unknown packet %d", packetID)
		return
	}
	var err error
	if len(body) >= 3 && body[2] >= 3 {
		err = errors.New("mqtt: subscription rejected")
	}
	c.reqs.delete(req)
	c.emit(Event{Kind: kind, SubUnsub: SubUnsubEvent{Arg: req.arg, Err: err}})
}

// decodeAckBody extracts the packet identifier shared by
// PUBACK/PUBREC/PUBREL/PUBCOMP/SUBACK/UNSUBACK bodies.
func decodeAckBody(body []byte) (uint16, bool) {
	if len(body) < 2 {
		return 0, false
	}
	return uint16(body[0])<<8 | uint16(body[1]), true
}
