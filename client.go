package mqtt

import (
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// Client is the root aggregate of the session engine (C6 and the data model
// of SPEC_FULL.md §3). All exported methods and every EventSink callback
// take mu, giving this module the per-client core lock SPEC_FULL.md §5/§9
// permits narrowing the process-wide lock down to, provided the bound
// Transport serializes its own callbacks.
type Client struct {
	mu sync.Mutex

	conn    Transport
	desc    *SessionDescriptor
	state   SessionState
	handler EventHandler
	arg     any

	cfg       ClientConfig
	log       tracer
	connEpoch xid.ID

	tx *txRing
	rx []byte

	reqs         *registry
	nextPacketID uint16

	pollTicks      uint32
	keepAliveTicks uint32

	pstate  parserState
	hdrByte byte
	remLen  uint32
	vliMult uint32
	rxPos   uint32
}

// NewClient constructs a Client with the given TX/RX buffer capacities and
// the Transport it will drive, mirroring the upward contract's
// new(tx_buf_capacity, rx_buf_capacity) (SPEC_FULL.md §6). conn must not yet
// have had Open called on it.
func NewClient(txCapacity, rxCapacity int, conn Transport, opts ...ClientOption) (*Client, error) {
	if conn == nil {
		return nil, errors.New("mqtt: NewClient: nil Transport")
	}
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
		if cfg.err != nil {
			return nil, errors.Wrap(cfg.err, "mqtt: NewClient")
		}
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = defaultMaxRequests
	}

	var lg tracer = noopTracer{}
	if cfg.Debug {
		logger := cfg.Logger
		if logger == nil {
			logger = logrus.New()
		}
		lg = debugTracer{log: logger, epoch: func() string { return "" }}
	}

	c := &Client{
		conn:    conn,
		handler: cfg.Handler,
		cfg:     cfg,
		log:     lg,
		tx:      newTXRing(txCapacity),
		rx:      make([]byte, rxCapacity),
		reqs:    newRegistry(cfg.MaxRequests),
	}
	if dt, ok := lg.(debugTracer); ok {
		dt.epoch = func() string { return c.connEpoch.String() }
		c.log = dt
	}
	conn.Bind(c)
	return c, nil
}

// SetEventHandler replaces the handler that receives every user-facing Event.
func (c *Client) SetEventHandler(h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// SetArg sets the opaque user argument returned by Arg.
func (c *Client) SetArg(arg any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arg = arg
}

// Arg returns the opaque user argument last set via SetArg or WithArg.
func (c *Client) Arg() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.arg
}

// State returns the current session state.
func (c *Client) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the session is in the CONNECTED state.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// nextID returns the next packet identifier, wrapping 65535 -> 1 and never
// producing 0 (SPEC_FULL.md §3/§4.6). Must be called with mu held.
func (c *Client) nextID() uint16 {
	c.nextPacketID++
	if c.nextPacketID == 0 {
		c.nextPacketID = 1
	}
	return c.nextPacketID
}

// Connect opens the transport and, once it reports active, sends a CONNECT
// packet built from desc. Connect returns as soon as the open has been
// initiated; the outcome arrives as an EventConnect.
func (c *Client) Connect(host string, port uint16, desc *SessionDescriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDisconnected {
		return ErrAlreadyConnecting
	}
	if desc == nil || desc.ClientID == "" {
		return errors.New("mqtt: Connect: empty client identifier")
	}

	var owned SessionDescriptor
	if err := copier.CopyWithOption(&owned, desc, copier.Option{DeepCopy: true}); err != nil {
		return errors.Wrap(err, "mqtt: Connect: copying session descriptor")
	}
	if desc.Will != nil {
		will := *desc.Will
		owned.Will = &will
	}
	c.desc = &owned
	c.connEpoch = xid.New()

	if err := c.conn.Open(host, port); err != nil {
		c.log.Warnf("mqtt: transport open failed: %v", err)
		return errors.Wrap(err, "mqtt: Connect")
	}
	c.state = StateConnecting
	return nil
}

// Disconnect initiates an orderly close of the transport. The outcome
// arrives as an EventDisconnect once the transport reports closed.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateDisconnected:
		return ErrNotConnected
	case StateDisconnecting:
		return nil
	}
	c.state = StateDisconnecting
	return c.conn.Close()
}

// Subscribe requests a single topic filter subscription at the given QoS.
// arg is returned verbatim in the resulting EventSubscribe.
func (c *Client) Subscribe(topic string, qos QoSLevel, arg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return ErrNotConnected
	}
	if topic == "" {
		return ErrEmptyTopic
	}
	remLen := subUnsubRemainingLength(topic, true)
	if _, ok := c.tx.checkEnoughMemory(PacketSubscribe, flagsPubrelSubUnsub, remLen); !ok {
		return ErrOutOfMemory
	}
	packetID := c.nextID()
	req := c.reqs.create(reqSubscribe, packetID, arg)
	if req == nil {
		return ErrRegistryFull
	}
	h := NewHeader(PacketSubscribe, flagsPubrelSubUnsub, remLen)
	if _, err := h.Encode(c.tx); err != nil {
		panic(err) // pre-checked capacity; a write error here is a bug.
	}
	if _, err := encodeSubscribe(c.tx, packetID, topic, qos); err != nil {
		panic(err)
	}
	c.reqs.setPending(req, time.Now())
	c.flush()
	return nil
}

// Unsubscribe requests removal of a single topic filter subscription.
func (c *Client) Unsubscribe(topic string, arg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return ErrNotConnected
	}
	if topic == "" {
		return ErrEmptyTopic
	}
	remLen := subUnsubRemainingLength(topic, false)
	if _, ok := c.tx.checkEnoughMemory(PacketUnsubscribe, flagsPubrelSubUnsub, remLen); !ok {
		return ErrOutOfMemory
	}
	packetID := c.nextID()
	req := c.reqs.create(reqUnsubscribe, packetID, arg)
	if req == nil {
		return ErrRegistryFull
	}
	h := NewHeader(PacketUnsubscribe, flagsPubrelSubUnsub, remLen)
	if _, err := h.Encode(c.tx); err != nil {
		panic(err)
	}
	if _, err := encodeUnsubscribe(c.tx, packetID, topic); err != nil {
		panic(err)
	}
	c.reqs.setPending(req, time.Now())
	c.flush()
	return nil
}

// Publish sends an application message. arg is returned verbatim in the
// resulting EventPublish once the bytes are confirmed sent (QoS 0) or
// acknowledged (QoS 1/2).
func (c *Client) Publish(topic string, payload []byte, qos QoSLevel, retain bool, arg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return ErrNotConnected
	}
	if topic == "" {
		return ErrEmptyTopic
	}
	if !qos.Valid() {
		return errors.Errorf("mqtt: Publish: invalid QoS %d", qos)
	}
	remLen := publishRemainingLength(topic, len(payload), qos)
	if _, ok := c.tx.checkEnoughMemory(PacketPublish, NewPublishFlags(false, qos, retain), remLen); !ok {
		return ErrOutOfMemory
	}
	var packetID uint16
	if qos != QoS0 {
		packetID = c.nextID()
	}
	req := c.reqs.create(reqPublish, packetID, arg)
	if req == nil {
		return ErrRegistryFull
	}
	h := NewHeader(PacketPublish, NewPublishFlags(false, qos, retain), remLen)
	if _, err := h.Encode(c.tx); err != nil {
		panic(err)
	}
	if _, err := encodePublish(c.tx, topic, packetID, qos, payload); err != nil {
		panic(err)
	}
	if qos == QoS2 {
		req.qos2 = qos2AwaitingPubrec
	}
	req.expectedSentLen = c.tx.writtenTotal
	c.reqs.setPending(req, time.Now())
	c.flush()
	return nil
}

// flush hands the largest contiguous readable block to the transport if one
// is not already in flight. Must be called with mu held.
func (c *Client) flush() {
	if c.tx.isSending || c.tx.Empty() {
		return
	}
	block := c.tx.linearReadable()
	if len(block) == 0 {
		return
	}
	if err := c.conn.Send(block); err != nil {
		c.log.Warnf("mqtt: send failed: %v", err)
		c.initiateClose()
		return
	}
	c.tx.isSending = true
}

// initiateClose requests the transport close without changing session
// state synchronously; the actual transition happens in OnClosed. Must be
// called with mu held.
func (c *Client) initiateClose() {
	if c.state == StateDisconnecting {
		return
	}
	c.state = StateDisconnecting
	_ = c.conn.Close()
}
