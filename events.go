package mqtt

// EventKind tags the variant populated in an Event. Per SPEC_FULL.md §9's
// design note, the user-facing event is modeled as a tagged variant rather
// than virtual dispatch: one struct, one tag, a plain switch in the handler.
type EventKind uint8

const (
	EventConnect EventKind = iota
	EventDisconnect
	EventPublish
	EventPublishRecv
	EventSubscribe
	EventUnsubscribe
	EventKeepAlive
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "CONNECT"
	case EventDisconnect:
		return "DISCONNECT"
	case EventPublish:
		return "PUBLISH"
	case EventPublishRecv:
		return "PUBLISH_RECV"
	case EventSubscribe:
		return "SUBSCRIBE"
	case EventUnsubscribe:
		return "UNSUBSCRIBE"
	case EventKeepAlive:
		return "KEEP_ALIVE"
	}
	return "EventKind(?)"
}

// ConnectEvent accompanies EventConnect: the outcome of a connection
// attempt, whether rejected by the transport or by the broker.
type ConnectEvent struct {
	Status ConnectStatus
}

// Accepted reports whether the broker accepted the connection.
func (e ConnectEvent) Accepted() bool { return e.Status == ConnStatusAccepted }

// DisconnectEvent accompanies EventDisconnect.
type DisconnectEvent struct {
	// Accepted is true iff the prior session state was CONNECTED or
	// DISCONNECTING -- i.e. the disconnection was expected, not a surprise
	// mid-CONNECTING transport failure.
	Accepted bool
}

// PublishEvent accompanies EventPublish: completion of an outbound publish,
// successful or not, carrying back the opaque argument the caller passed to
// Client.Publish.
type PublishEvent struct {
	Arg any
	Err error
}

// PublishRecvEvent accompanies EventPublishRecv: an inbound application
// message. Topic and Payload alias the RX scratch buffer or, on the
// zero-copy fast path, the transport's own fragment memory -- both are only
// valid for the duration of the EventHandler call; callers that need to
// retain the bytes must copy them.
type PublishRecvEvent struct {
	Topic   []byte
	Payload []byte
	Dup     bool
	QoS     QoSLevel
	Retain  bool
}

// SubUnsubEvent accompanies EventSubscribe and EventUnsubscribe.
type SubUnsubEvent struct {
	Arg any
	Err error
}

// Event is the single tagged-variant value delivered to an EventHandler.
// Exactly one of the payload fields matching Kind is meaningful; the others
// are zero values.
type Event struct {
	Kind        EventKind
	Connect     ConnectEvent
	Disconnect  DisconnectEvent
	Publish     PublishEvent
	PublishRecv PublishRecvEvent
	SubUnsub    SubUnsubEvent
}

// EventHandler receives every user-facing event a Client produces. c is the
// originating Client, handed back so a caller running many clients through
// one handler function can tell them apart. The handler runs with c's lock
// held, so calling c's exported methods from inside it blocks forever.
type EventHandler func(c *Client, evt *Event)

func (c *Client) emit(evt Event) {
	if c.handler != nil {
		c.handler(c, &evt)
	}
}
