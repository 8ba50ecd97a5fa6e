package mqtt

// SessionDescriptor is the caller-supplied, read-only-for-the-session
// configuration passed to Client.Connect (SPEC_FULL.md §3). Client takes a
// defensive deep copy of whatever *SessionDescriptor it is given (via
// github.com/jinzhu/copier, see client.go) so that a caller mutating their
// own copy afterwards cannot perturb an in-progress or established session.
type SessionDescriptor struct {
	ClientID string
	Username string
	// Password is optional; nil means "no password attribute", distinct
	// from an empty-but-present password.
	Password []byte
	// Will is the optional last-will-and-testament. nil means no will.
	Will *Will
	// KeepAlive is the keep-alive interval in seconds. Zero disables the
	// keep-alive PINGREQ scheduler entirely.
	KeepAlive uint16
	// CleanSession is always treated as set by this client (SPEC_FULL.md
	// §3); the field exists so a descriptor can be round-tripped through
	// config.go without silently dropping a value the caller set.
	CleanSession bool
}

// SessionState is one of {DISCONNECTED, CONNECTING, CONNECTED, DISCONNECTING}.
type SessionState uint8

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	}
	return "invalid session state"
}
