// Package ws implements the mqtt.Transport contract over
// github.com/gorilla/websocket, framing the MQTT byte stream as one binary
// WebSocket message per transport write, the library used for the same
// purpose by the broker/proxy examples retrieved alongside this module's
// teacher (SPEC_FULL.md §11).
package ws

import (
	"io"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/jonny12375/lwcell/transport/tcp"
)

// Path is the URL path this dialer connects to; MQTT-over-WebSocket
// brokers conventionally serve on "/mqtt".
var Path = "/mqtt"

// New constructs a transport over a WebSocket connection dialed at
// ws://host:port+Path, built atop transport/tcp's read/poll/send engine via
// a net.Conn-wrapped websocket.Conn (the wrapping pattern this module
// learned from the proxy examples in the retrieval pack).
func New(pollInterval time.Duration) *tcp.Conn {
	return tcp.NewFromDialer(pollInterval, dial)
}

func dial(host string, port uint16) (net.Conn, error) {
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(host, strconv.Itoa(int(port))), Path: Path}
	wsConn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "ws: dial")
	}
	return newConn(wsConn), nil
}

// conn adapts a *websocket.Conn to net.Conn, one binary message per Write,
// one message read fully drained per logical Read stream.
type conn struct {
	*websocket.Conn
	r   io.Reader
	rio sync.Mutex
	wio sync.Mutex
}

func newConn(ws *websocket.Conn) net.Conn {
	return &conn{Conn: ws}
}

func (c *conn) Write(p []byte) (int, error) {
	c.wio.Lock()
	defer c.wio.Unlock()
	if err := c.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *conn) Read(p []byte) (int, error) {
	c.rio.Lock()
	defer c.rio.Unlock()
	for {
		if c.r == nil {
			var err error
			_, c.r, err = c.NextReader()
			if err != nil {
				return 0, err
			}
		}
		n, err := c.r.Read(p)
		if err == io.EOF {
			c.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *conn) Close() error {
	return c.Conn.Close()
}

// SetDeadline satisfies net.Conn; websocket.Conn only exposes the split
// read/write deadline setters.
func (c *conn) SetDeadline(t time.Time) error {
	if err := c.SetReadDeadline(t); err != nil {
		return err
	}
	return c.SetWriteDeadline(t)
}
