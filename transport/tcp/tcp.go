// Package tcp implements the mqtt.Transport/mqtt.EventSink contract
// (SPEC_FULL.md §6/§11) over a plain net.Conn.
package tcp

import (
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	mqtt "github.com/jonny12375/lwcell"
)

// defaultReadBufferSize sizes the buffer a single Read call fills before
// being handed to the session core as mqtt.Linear fragments.
const defaultReadBufferSize = 4096

// Conn adapts a net.Conn (or anything satisfying it, such as a
// gorilla/websocket connection wrapped as net.Conn by the ws package) to
// mqtt.Transport. A read goroutine turns Read results into
// OnRecv/OnError/OnClosed; a time.Ticker goroutine drives OnPoll; Send
// writes synchronously off the calling goroutine and reports completion via
// OnSent before returning, so the core never observes two sends in flight.
type Conn struct {
	pollInterval time.Duration
	dial         func(host string, port uint16) (net.Conn, error)

	mu       sync.Mutex
	conn     net.Conn
	sink     mqtt.EventSink
	closing  bool
	stopPoll chan struct{}
}

// New constructs a Conn that dials host:port with net.Dial on Open.
// pollInterval drives OnPoll; zero means 500ms.
func New(pollInterval time.Duration) *Conn {
	c := &Conn{pollInterval: pollInterval}
	c.dial = func(host string, port uint16) (net.Conn, error) {
		return net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	}
	return c
}

// NewFromDialer constructs a Conn whose Open calls dial instead of
// net.Dial, letting other transports (e.g. transport/ws) reuse this
// adapter's read/poll/send engine over a differently established net.Conn.
func NewFromDialer(pollInterval time.Duration, dial func(host string, port uint16) (net.Conn, error)) *Conn {
	return &Conn{pollInterval: pollInterval, dial: dial}
}

func (c *Conn) Bind(sink mqtt.EventSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

// Open dials the peer synchronously and, on success, starts the read and
// poll goroutines before returning. mqtt.Transport documents Open's outcome
// as asynchronous via OnActive/OnError, but a plain net.Dial is itself
// synchronous and fast to fail, so this adapter reports success by starting
// its goroutines and calling OnActive from a new goroutine, and reports
// failure by returning the dial error directly rather than routing it
// through OnError -- Client.Connect already treats a non-nil Open error as
// an immediate, synchronous failure (see client.go), so either convention
// is observable correctly.
func (c *Conn) Open(host string, port uint16) error {
	conn, err := c.dial(host, port)
	if err != nil {
		return errors.Wrap(err, "tcp: Open")
	}
	c.mu.Lock()
	c.conn = conn
	c.closing = false
	c.stopPoll = make(chan struct{})
	sink := c.sink
	c.mu.Unlock()

	go c.readLoop(conn, sink)
	go c.pollLoop(c.stopPoll, sink)
	go sink.OnActive()
	return nil
}

func (c *Conn) readLoop(conn net.Conn, sink mqtt.EventSink) {
	buf := make([]byte, defaultReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			sink.OnRecv(mqtt.Linear(buf[:n]))
		}
		if err != nil {
			c.mu.Lock()
			closing := c.closing
			c.mu.Unlock()
			if closing || err == io.EOF {
				sink.OnClosed()
			} else {
				sink.OnError(errors.Wrap(err, "tcp: Read"))
			}
			return
		}
	}
}

func (c *Conn) pollLoop(stop chan struct{}, sink mqtt.EventSink) {
	interval := c.pollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			sink.OnPoll()
		case <-stop:
			return
		}
	}
}

// Send writes data synchronously and reports completion via OnSent before
// returning, matching the "at most one Send in flight" discipline the core
// relies on (the core never issues a second Send before this one's OnSent
// has fired).
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	conn, sink := c.conn, c.sink
	c.mu.Unlock()
	if conn == nil {
		return errors.New("tcp: Send: not connected")
	}
	n, err := conn.Write(data)
	sink.OnSent(n, err == nil)
	if err != nil {
		return errors.Wrap(err, "tcp: Send")
	}
	return nil
}

// Close initiates shutdown of the connection. The read goroutine observes
// the resulting error and reports OnClosed.
func (c *Conn) Close() error {
	c.mu.Lock()
	conn := c.conn
	alreadyClosing := c.closing
	c.closing = true
	stop := c.stopPoll
	c.stopPoll = nil
	c.mu.Unlock()
	if stop != nil && !alreadyClosing {
		close(stop)
	}
	if conn == nil {
		return nil
	}
	return conn.Close()
}
