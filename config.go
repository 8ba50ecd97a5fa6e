package mqtt

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape for a Client, following the
// dual yaml/json struct-tag pattern used throughout the broker examples
// retrieved alongside this core's teacher. LoadConfig reads it via
// gopkg.in/yaml.v3; SessionDescriptor and ClientOptions translate it into
// the types NewClient/Connect consume.
type Config struct {
	ClientID string `yaml:"client_id" json:"client_id"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	KeepAliveSeconds uint16      `yaml:"keep_alive_seconds" json:"keep_alive_seconds"`
	CleanSession     bool        `yaml:"clean_session" json:"clean_session"`
	Will             *WillConfig `yaml:"will,omitempty" json:"will,omitempty"`

	TXBufferSize int `yaml:"tx_buffer_size" json:"tx_buffer_size"`
	RXBufferSize int `yaml:"rx_buffer_size" json:"rx_buffer_size"`
	MaxRequests  int `yaml:"max_requests,omitempty" json:"max_requests,omitempty"`

	// PollIntervalMS is the assumed interval, in milliseconds, between
	// transport OnPoll callbacks. Zero means defaultPollIntervalMS.
	PollIntervalMS int  `yaml:"poll_interval_ms,omitempty" json:"poll_interval_ms,omitempty"`
	Debug          bool `yaml:"debug,omitempty" json:"debug,omitempty"`
}

// WillConfig is the on-disk shape of an optional last-will-and-testament.
type WillConfig struct {
	Topic   string `yaml:"topic" json:"topic"`
	Message string `yaml:"message" json:"message"`
	QoS     uint8  `yaml:"qos" json:"qos"`
	Retain  bool   `yaml:"retain,omitempty" json:"retain,omitempty"`
}

// LoadConfig parses a Config from r. Parse errors are wrapped with
// github.com/pkg/errors since this is a subsystem boundary, per
// SPEC_FULL.md §10's error-handling convention.
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "mqtt: LoadConfig")
	}
	return &cfg, nil
}

// SessionDescriptor translates cfg into the SessionDescriptor Client.Connect
// expects.
func (cfg *Config) SessionDescriptor() *SessionDescriptor {
	desc := &SessionDescriptor{
		ClientID:     cfg.ClientID,
		Username:     cfg.Username,
		KeepAlive:    cfg.KeepAliveSeconds,
		CleanSession: cfg.CleanSession,
	}
	if cfg.Password != "" {
		desc.Password = []byte(cfg.Password)
	}
	if cfg.Will != nil {
		desc.Will = &Will{
			Topic:   cfg.Will.Topic,
			Message: []byte(cfg.Will.Message),
			QoS:     QoSLevel(cfg.Will.QoS),
			Retain:  cfg.Will.Retain,
		}
	}
	return desc
}

// ClientOptions translates cfg's ambient tunables into ClientOptions for
// NewClient. TXBufferSize/RXBufferSize are not included since NewClient
// takes them positionally; callers read cfg.TXBufferSize/cfg.RXBufferSize
// directly when constructing the Client.
func (cfg *Config) ClientOptions() []ClientOption {
	var opts []ClientOption
	if cfg.MaxRequests > 0 {
		opts = append(opts, WithMaxRequests(cfg.MaxRequests))
	}
	if cfg.PollIntervalMS > 0 {
		opts = append(opts, WithPollInterval(time.Duration(cfg.PollIntervalMS)*time.Millisecond))
	}
	if cfg.Debug {
		opts = append(opts, WithDebug(nil))
	}
	return opts
}
