package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newParserTestClient builds a bare Client sufficient to exercise feed
// without a real Transport; dispatchPacket's side effects are observed
// through the registry/emit hooks the individual tests set up.
func newParserTestClient(t *testing.T, rxSize int) *Client {
	t.Helper()
	c := &Client{
		log:   noopTracer{},
		tx:    newTXRing(64),
		rx:    make([]byte, rxSize),
		reqs:  newRegistry(4),
		state: StateConnected,
	}
	return c
}

// connackPacket builds a full CONNACK wire packet (accepted, no session present).
func connackPacket() []byte {
	return []byte{0x20, 0x02, 0x00, 0x00}
}

func TestParserFeedWholePacketOneChunk(t *testing.T) {
	c := newParserTestClient(t, 16)
	var gotEvents []EventKind
	c.handler = func(_ *Client, e *Event) { gotEvents = append(gotEvents, e.Kind) }
	c.state = StateConnecting

	c.feed(Linear(connackPacket()))

	require.Equal(t, []EventKind{EventConnect}, gotEvents)
	require.Equal(t, StateConnected, c.state)
	require.Equal(t, parserInit, c.pstate)
}

func TestParserFeedByteAtATime(t *testing.T) {
	c := newParserTestClient(t, 16)
	var gotEvents []EventKind
	c.handler = func(_ *Client, e *Event) { gotEvents = append(gotEvents, e.Kind) }
	c.state = StateConnecting

	pkt := connackPacket()
	for _, b := range pkt {
		c.feed(Linear([]byte{b}))
	}

	require.Equal(t, []EventKind{EventConnect}, gotEvents)
	require.Equal(t, StateConnected, c.state)
}

func TestParserFeedSplitAtEveryBoundary(t *testing.T) {
	pkt := connackPacket()
	for split := 1; split < len(pkt); split++ {
		c := newParserTestClient(t, 16)
		var gotEvents []EventKind
		c.handler = func(_ *Client, e *Event) { gotEvents = append(gotEvents, e.Kind) }
		c.state = StateConnecting

		c.feed(Chain{pkt[:split], pkt[split:]})

		require.Equal(t, []EventKind{EventConnect}, gotEvents, "split at %d", split)
		require.Equal(t, parserInit, c.pstate, "split at %d", split)
	}
}

func TestParserFeedCoalescedPackets(t *testing.T) {
	c := newParserTestClient(t, 16)
	var gotEvents []EventKind
	c.handler = func(_ *Client, e *Event) { gotEvents = append(gotEvents, e.Kind) }

	pingresp := []byte{0xd0, 0x00}
	both := append(append([]byte{}, pingresp...), pingresp...)
	c.feed(Linear(both))

	require.Equal(t, []EventKind{EventKeepAlive, EventKeepAlive}, gotEvents)
}

func TestParserDiscardsOverlargePacket(t *testing.T) {
	c := newParserTestClient(t, 2) // RX buffer smaller than the PUBLISH body.
	var gotEvents []EventKind
	c.handler = func(_ *Client, e *Event) { gotEvents = append(gotEvents, e.Kind) }

	// PUBLISH QoS0 topic "abc" payload "xyz": body is 8 bytes, split so the
	// fast path cannot apply (forces the copy-into-rx slow path).
	body := []byte{0x00, 0x03, 'a', 'b', 'c', 'x', 'y', 'z'}
	pkt := append([]byte{0x30, byte(len(body))}, body...)

	c.feed(Chain{pkt[:3], pkt[3:]})

	require.Empty(t, gotEvents, "overlarge packet must be discarded, no user event")
	require.Equal(t, parserInit, c.pstate)
}

func TestParserZeroCopyFastPathDoesNotAliasAcrossCalls(t *testing.T) {
	c := newParserTestClient(t, 16)
	var topics [][]byte
	c.handler = func(_ *Client, e *Event) {
		if e.Kind == EventPublishRecv {
			topics = append(topics, e.PublishRecv.Topic)
		}
	}

	pkt1 := []byte{0x30, 0x05, 0x00, 0x03, 'a', 'b', 'c'} // PUBLISH "abc", no payload.
	pkt2 := []byte{0x30, 0x05, 0x00, 0x03, 'x', 'y', 'z'}
	c.feed(Linear(pkt1))
	c.feed(Linear(pkt2))

	require.Len(t, topics, 2)
	require.Equal(t, "abc", string(topics[0]))
	require.Equal(t, "xyz", string(topics[1]))
}
