package mqtt

import "errors"

// Sentinel errors returned by the protocol-level API. These are deliberately
// bare (unwrapped) so hot-path callers can errors.Is against them cheaply;
// github.com/pkg/errors.Wrap is reserved for boundaries that benefit from
// call-site context (config loading, transport adapters), see client.go,
// config.go and transport/tcp.
var (
	// ErrOutOfMemory is returned when the TX buffer lacks room for a packet.
	// No side effect on session state; see SPEC_FULL.md §7.
	ErrOutOfMemory = errors.New("mqtt: not enough room in TX buffer")
	// ErrRegistryFull is returned when the request registry has no free slot.
	// No wire traffic is produced.
	ErrRegistryFull = errors.New("mqtt: request registry full")
	// ErrNotConnected is returned by publish/subscribe/unsubscribe when the
	// session is not in the CONNECTED state, and by disconnect when it is
	// already DISCONNECTED. It is also the error carried by the per-request
	// events emitted when the transport closes.
	ErrNotConnected = errors.New("mqtt: client not connected")
	// ErrAlreadyConnecting is returned by Connect when called outside DISCONNECTED.
	ErrAlreadyConnecting = errors.New("mqtt: connect already in progress or connected")
	// ErrEmptyTopic is returned by publish/subscribe/unsubscribe given an empty topic.
	ErrEmptyTopic = errors.New("mqtt: empty topic")
	// ErrNotDisconnected reports that the session has not reached
	// DISCONNECTED. No function in this package returns it; Client has no
	// release operation.
	ErrNotDisconnected = errors.New("mqtt: client is not disconnected")

	// ErrInvalidPacketType is returned by Header.Validate for an out-of-range type nibble.
	ErrInvalidPacketType = errors.New("mqtt: invalid packet type")
	// ErrInvalidFlags is returned by Header.Validate for a flags nibble the wire format forbids.
	ErrInvalidFlags = errors.New("mqtt: invalid fixed header flags")
	// ErrRemainingLengthOverflow is returned when a VLI would need more than 4 bytes.
	ErrRemainingLengthOverflow = errors.New("mqtt: remaining length exceeds maximum encodable value")
	// ErrMalformedVLI is returned by the decoder when the 4th VLI byte still has its continuation bit set.
	ErrMalformedVLI = errors.New("mqtt: malformed variable-length integer")

	// errDiscardedOverlargePacket marks a packet whose remaining length
	// exceeded the RX scratch buffer's capacity; see parser.go. Unexported:
	// it never crosses the dispatcher boundary as a return value, only as a
	// log line, matching "Packet-exceeds-RX-buffer: discarded; no user event".
	errDiscardedOverlargePacket = errors.New("mqtt: incoming packet exceeds RX buffer capacity")
)
