package mqtt

// Transport is the downward contract the session core consumes to drive a
// byte-oriented, non-blocking connection (SPEC_FULL.md §6). It mirrors
// conn_start/conn_send/conn_close plus callback registration; see the
// transport/tcp and transport/ws subpackages for reference implementations
// over net.Conn and gorilla/websocket respectively.
//
// Implementations must deliver every EventSink callback serialized with
// respect to each other and with respect to the goroutine(s) calling
// Client's exported methods -- Client's core lock assumes, but cannot
// itself enforce, that discipline across a process boundary it does not
// control.
type Transport interface {
	// Open begins a non-blocking connection attempt to host:port. The
	// outcome is reported asynchronously to the bound EventSink via
	// OnActive (success) or OnError (failure).
	Open(host string, port uint16) error
	// Send enqueues data for transmission. Completion -- not merely
	// acceptance -- is reported asynchronously via OnSent. At most one Send
	// is ever in flight at a time; Client never calls Send again before the
	// matching OnSent fires.
	Send(data []byte) error
	// Close initiates a non-blocking close of the connection. The
	// resulting OnClosed (or OnError) call is still delivered asynchronously.
	Close() error
	// Bind registers the event sink that receives connection lifecycle
	// callbacks. NewClient calls Bind exactly once, before Open.
	Bind(sink EventSink)
}

// EventSink receives Transport lifecycle callbacks, one method per event
// kind -- SPEC_FULL.md §6 explains why this boundary uses one method per
// tag (an interface a compiler can check for completeness) rather than the
// tagged-variant Event used at the user-facing boundary in events.go.
type EventSink interface {
	// OnActive fires once the connection is established and ready to send.
	OnActive()
	// OnRecv fires for each batch of received bytes, exposed as Fragments
	// so a transport that assembles packets across several discontiguous
	// buffers does not need to copy them into one contiguous slice first.
	OnRecv(frag Fragments)
	// OnSent reports completion of the most recent Send: n bytes were
	// confirmed transmitted, ok indicates success.
	OnSent(n int, ok bool)
	// OnPoll fires on a fixed interval regardless of traffic, driving the
	// keep-alive scheduler.
	OnPoll()
	// OnClosed fires once the connection has fully closed, whether
	// requested by Close or torn down by the peer/network.
	OnClosed()
	// OnError fires for a connection-level failure that is not an orderly
	// close, e.g. a failed Open or a mid-stream reset.
	OnError(err error)
}
