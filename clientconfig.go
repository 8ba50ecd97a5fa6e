package mqtt

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ClientConfig holds the tunables NewClient accepts via ClientOption,
// following the functional-options shape of this core's immediate ancestor.
type ClientConfig struct {
	// MaxRequests sizes the request registry (C5). Zero means defaultMaxRequests.
	MaxRequests int
	// PollInterval is the assumed interval between transport-poll callbacks,
	// used to convert KeepAlive seconds into a tick count. Zero means
	// defaultPollIntervalMS.
	PollInterval time.Duration
	// Debug gates trace-level logging through Logger (or a fresh
	// *logrus.Logger if Logger is nil). Mirrors DBG_MQTT.
	Debug  bool
	Logger *logrus.Logger
	// Handler receives every user-facing Event (events.go). May be set
	// after construction via Client.SetEventHandler instead.
	Handler EventHandler

	err error
}

// SetError sets an error during configuration such that NewClient fails and
// returns that error. Mirrors this core's ancestor's escape hatch for
// options that can themselves fail (e.g. an option that parses a file).
func (cfg *ClientConfig) SetError(err error) { cfg.err = err }

// ClientOption configures a Client at construction time.
type ClientOption func(*ClientConfig)

// WithMaxRequests overrides the request registry size.
func WithMaxRequests(n int) ClientOption {
	return func(c *ClientConfig) { c.MaxRequests = n }
}

// WithPollInterval overrides the assumed transport-poll tick interval.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.PollInterval = d }
}

// WithDebug enables trace-level logging, optionally through a caller-supplied logger.
func WithDebug(logger *logrus.Logger) ClientOption {
	return func(c *ClientConfig) {
		c.Debug = true
		c.Logger = logger
	}
}

// WithEventHandler sets the handler that receives every user-facing Event.
func WithEventHandler(h EventHandler) ClientOption {
	return func(c *ClientConfig) { c.Handler = h }
}

func defaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxRequests:  defaultMaxRequests,
		PollInterval: defaultPollIntervalMS * time.Millisecond,
	}
}
