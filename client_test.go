package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeTransport is a minimal mqtt.Transport double that records calls
// instead of touching a real network, letting these tests drive the
// EventSink callbacks directly and deterministically.
type fakeTransport struct {
	sink EventSink

	openErr error
	opened  bool

	sendErr error
	sent    [][]byte

	closed int
}

func (f *fakeTransport) Bind(sink EventSink) { f.sink = sink }
func (f *fakeTransport) Open(host string, port uint16) error {
	f.opened = true
	return f.openErr
}
func (f *fakeTransport) Send(data []byte) error {
	cp := append([]byte(nil), data...)
	f.sent = append(f.sent, cp)
	return f.sendErr
}
func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

func newTestClient(t *testing.T) (*Client, *fakeTransport, chan *Event) {
	t.Helper()
	ft := &fakeTransport{}
	events := make(chan *Event, 16)
	c, err := NewClient(256, 256, ft, WithEventHandler(func(_ *Client, e *Event) {
		cp := *e
		events <- &cp
	}))
	require.NoError(t, err)
	return c, ft, events
}

func recvEvent(t *testing.T, ch chan *Event) *Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	default:
		t.Fatal("expected an event, got none")
		return nil
	}
}

func TestCleanConnectAndDisconnect(t *testing.T) {
	c, ft, events := newTestClient(t)

	require.NoError(t, c.Connect("broker.local", 1883, &SessionDescriptor{ClientID: "abc"}))
	require.True(t, ft.opened)
	require.Equal(t, StateConnecting, c.State())

	ft.sink.OnActive()
	require.Len(t, ft.sent, 1, "CONNECT packet should have been sent")
	require.Equal(t, byte(PacketConnect)<<4, ft.sent[0][0])

	ft.sink.OnSent(len(ft.sent[0]), true)
	ft.sink.OnRecv(Linear(connackPacket()))

	evt := recvEvent(t, events)
	require.Equal(t, EventConnect, evt.Kind)
	require.True(t, evt.Connect.Accepted())
	require.Equal(t, StateConnected, c.State())

	require.NoError(t, c.Disconnect())
	require.Equal(t, StateDisconnecting, c.State())
	require.Equal(t, 1, ft.closed)

	ft.sink.OnClosed()
	evt = recvEvent(t, events)
	require.Equal(t, EventDisconnect, evt.Kind)
	require.True(t, evt.Disconnect.Accepted)
	require.Equal(t, StateDisconnected, c.State())
}

func connectedClient(t *testing.T) (*Client, *fakeTransport, chan *Event) {
	t.Helper()
	c, ft, events := newTestClient(t)
	require.NoError(t, c.Connect("broker.local", 1883, &SessionDescriptor{ClientID: "abc"}))
	ft.sink.OnActive()
	ft.sink.OnSent(len(ft.sent[0]), true)
	ft.sink.OnRecv(Linear(connackPacket()))
	recvEvent(t, events) // drain EventConnect
	return c, ft, events
}

func TestPublishQoS0CompletesOnBytesSent(t *testing.T) {
	c, ft, events := connectedClient(t)

	require.NoError(t, c.Publish("a/b", []byte("hi"), QoS0, false, "arg0"))
	require.Len(t, ft.sent, 2) // CONNECT, then this PUBLISH.
	pktLen := len(ft.sent[1])

	// OnSent with fewer bytes than the whole packet: not yet complete.
	ft.sink.OnSent(pktLen-1, true)
	select {
	case e := <-events:
		t.Fatalf("unexpected event before full packet sent: %+v", e)
	default:
	}

	// The unsent last byte is flushed again as its own send; confirming it
	// completes the packet.
	ft.sink.OnSent(1, true)
	evt := recvEvent(t, events)
	require.Equal(t, EventPublish, evt.Kind)
	require.Equal(t, "arg0", evt.Publish.Arg)
	require.NoError(t, evt.Publish.Err)
}

func TestPublishQoS1Ack(t *testing.T) {
	c, ft, events := connectedClient(t)

	require.NoError(t, c.Publish("a/b", []byte("hi"), QoS1, false, "arg1"))
	ft.sink.OnSent(len(ft.sent[1]), true)

	req := c.reqs.pendingByID(1)
	require.NotNil(t, req)

	puback := []byte{0x40, 0x02, 0x00, 0x01}
	ft.sink.OnRecv(Linear(puback))

	evt := recvEvent(t, events)
	require.Equal(t, EventPublish, evt.Kind)
	require.Equal(t, "arg1", evt.Publish.Arg)
	require.Nil(t, c.reqs.pendingByID(1))
}

func TestInboundQoS2FullHandshake(t *testing.T) {
	c, ft, events := connectedClient(t)

	// Broker PUBLISHes QoS2 packet id 9, topic "a", payload "z".
	publish := []byte{0x34, 0x06, 0x00, 0x01, 'a', 0x00, 0x09, 'z'}
	ft.sink.OnRecv(Linear(publish))

	evt := recvEvent(t, events)
	require.Equal(t, EventPublishRecv, evt.Kind)
	require.Equal(t, QoS2, evt.PublishRecv.QoS)
	require.Len(t, ft.sent, 2, "PUBREC should have been sent after CONNECT")
	require.Equal(t, NewHeader(PacketPubrec, 0, 2).firstByte, ft.sent[1][0])

	ft.sink.OnSent(len(ft.sent[1]), true)

	// Broker responds with PUBREL packet id 9; client answers with PUBCOMP.
	pubrel := []byte{0x62, 0x02, 0x00, 0x09}
	ft.sink.OnRecv(Linear(pubrel))
	require.Len(t, ft.sent, 3)
	require.Equal(t, NewHeader(PacketPubcomp, 0, 2).firstByte, ft.sent[2][0])

	_ = c
}

func TestOutboundQoS2FullHandshake(t *testing.T) {
	c, ft, events := connectedClient(t)

	require.NoError(t, c.Publish("a/b", []byte("hi"), QoS2, false, "arg2"))
	ft.sink.OnSent(len(ft.sent[1]), true)

	req := c.reqs.pendingByID(1)
	require.NotNil(t, req)
	require.Equal(t, qos2AwaitingPubrec, req.qos2)

	pubrec := []byte{0x50, 0x02, 0x00, 0x01}
	ft.sink.OnRecv(Linear(pubrec))
	require.Equal(t, qos2AwaitingPubcomp, req.qos2)
	require.Len(t, ft.sent, 3, "PUBREL should have been sent in response to PUBREC")
	require.Equal(t, NewHeader(PacketPubrel, 0, 2).firstByte, ft.sent[2][0])

	ft.sink.OnSent(len(ft.sent[2]), true)
	pubcomp := []byte{0x70, 0x02, 0x00, 0x01}
	ft.sink.OnRecv(Linear(pubcomp))

	evt := recvEvent(t, events)
	require.Equal(t, EventPublish, evt.Kind)
	require.Equal(t, "arg2", evt.Publish.Arg)
	require.Nil(t, c.reqs.pendingByID(1))
}

func TestKeepAlivePingreqOnElapsedInterval(t *testing.T) {
	c, ft, _ := newTestClient(t)
	c.cfg.PollInterval = 100 * time.Millisecond
	require.NoError(t, c.Connect("broker.local", 1883, &SessionDescriptor{ClientID: "abc", KeepAlive: 1}))
	ft.sink.OnActive()
	ft.sink.OnSent(len(ft.sent[0]), true)
	ft.sink.OnRecv(Linear(connackPacket()))

	sentBefore := len(ft.sent)
	for i := 0; i < 9; i++ { // 9*100ms < 1s: no PINGREQ yet.
		ft.sink.OnPoll()
	}
	require.Len(t, ft.sent, sentBefore)

	ft.sink.OnPoll() // 10th tick crosses the 1-second keep-alive threshold.
	require.Len(t, ft.sent, sentBefore+1)
	require.Equal(t, byte(PacketPingreq)<<4, ft.sent[len(ft.sent)-1][0])
}

func TestFailDuringSendFansOutErrorsToPendingRequests(t *testing.T) {
	c, ft, events := connectedClient(t)

	require.NoError(t, c.Publish("a/b", nil, QoS1, false, "p1"))
	require.NoError(t, c.Subscribe("a/b", QoS1, "s1"))

	// The transport reports the in-flight send failed.
	ft.sink.OnSent(0, false)
	require.Equal(t, StateDisconnecting, c.State())
	require.Equal(t, 1, ft.closed)

	ft.sink.OnClosed()

	// OnClosed emits EventDisconnect first, then one error event per request.
	seen := map[EventKind]int{}
	for i := 0; i < 3; i++ {
		evt := recvEvent(t, events)
		seen[evt.Kind]++
	}
	require.Equal(t, 1, seen[EventDisconnect])
	require.Equal(t, 1, seen[EventPublish])
	require.Equal(t, 1, seen[EventSubscribe])
	require.Equal(t, StateDisconnected, c.State())
	require.True(t, c.reqs.empty())
}
