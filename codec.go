package mqtt

import (
	"encoding/binary"
	"io"
)

// vliSize returns the number of bytes needed to VLI-encode v.
func vliSize(v uint32) int {
	switch {
	case v < 128:
		return 1
	case v < 16384:
		return 2
	case v < 2097152:
		return 3
	default:
		return 4
	}
}

// encodeVLI writes v as an MQTT variable-length integer: seven payload bits
// per byte, continuation bit 0x80, least-significant group first. At least
// one byte is always emitted. v must not exceed maxRemainingLengthValue.
func encodeVLI(w io.Writer, v uint32) (int, error) {
	var buf [maxRemainingLengthSize]byte
	n := 0
	for {
		b := byte(v % 128)
		v /= 128
		if v > 0 {
			b |= 0x80
		}
		buf[n] = b
		n++
		if v == 0 {
			break
		}
	}
	return writeFull(w, buf[:n])
}

// decodeVLI reads an MQTT variable-length integer from r. It is used by
// tests and by the full-packet (non-incremental) decode helpers below; the
// live receive path instead runs the byte-at-a-time state machine in
// parser.go so it can operate directly on fragmented transport buffers.
func decodeVLI(r io.Reader) (value uint32, n int, err error) {
	var mult uint32 = 1
	for i := 0; i < maxRemainingLengthSize; i++ {
		b, err := decodeByte(r)
		if err != nil {
			return value, n, err
		}
		n++
		value += uint32(b&0x7f) * mult
		if b&0x80 == 0 {
			return value, n, nil
		}
		mult *= 128
	}
	return 0, n, ErrMalformedVLI
}

func writeFull(w io.Writer, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return w.Write(p)
}

func encodeByte(w io.Writer, b byte) (int, error) {
	var buf [1]byte
	buf[0] = b
	return w.Write(buf[:])
}

func encodeUint16(w io.Writer, v uint16) (int, error) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return w.Write(buf[:])
}

// encodeString writes s as an MQTT UTF-8 string: a 16-bit big-endian length
// prefix followed by the raw bytes.
func encodeString(w io.Writer, s []byte) (int, error) {
	n, err := encodeUint16(w, uint16(len(s)))
	if err != nil {
		return n, err
	}
	ngot, err := writeFull(w, s)
	return n + ngot, err
}

func decodeByte(r io.Reader) (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], err
}

func decodeUint16(r io.Reader) (uint16, int, error) {
	var buf [2]byte
	_, err := io.ReadFull(r, buf[:])
	return binary.BigEndian.Uint16(buf[:]), 2, err
}

// Encode writes h's fixed header: the type/flags byte followed by the
// VLI-encoded remaining length.
func (h Header) Encode(w io.Writer) (int, error) {
	n, err := encodeByte(w, h.firstByte)
	if err != nil {
		return n, err
	}
	ngot, err := encodeVLI(w, h.RemainingLength)
	return n + ngot, err
}

// DecodeHeader reads a full fixed header from r. It is a convenience for
// tests and for decoding off of a plain io.Reader transport; Client itself
// never calls this, driving the incremental state machine in parser.go
// instead so it can tolerate arbitrarily fragmented arrivals.
func DecodeHeader(r io.Reader) (Header, int, error) {
	first, err := decodeByte(r)
	if err != nil {
		return Header{}, 0, err
	}
	rlen, n, err := decodeVLI(r)
	n++
	if err != nil {
		return Header{}, n, err
	}
	h := Header{firstByte: first, RemainingLength: rlen}
	return h, n, h.Validate()
}

// connectFlags computes the CONNECT packet's connect-flags byte for desc,
// per SPEC_FULL.md §4.6: bit1=clean session (always), bit2=will,
// bits4..3=will QoS (capped at 2), bit5=will retain, bit6=password, bit7=username.
func connectFlags(desc *SessionDescriptor) byte {
	var f byte
	f |= 1 << 1 // clean session always set.
	if desc.Will != nil {
		f |= 1 << 2
		qos := desc.Will.QoS
		if qos > QoS2 {
			qos = QoS2
		}
		f |= byte(qos) << 3
		if desc.Will.Retain {
			f |= 1 << 5
		}
	}
	if desc.Password != nil {
		f |= 1 << 6
	}
	if desc.Username != "" {
		f |= 1 << 7
	}
	return f
}

// connectRemainingLength computes the CONNECT packet's remaining length
// (variable header + payload) for desc at the given keep-alive, without
// writing anything -- used by Client.OnActive's TX-space pre-check.
func connectRemainingLength(desc *SessionDescriptor, keepAlive uint16) uint32 {
	n := uint32(2 + len(defaultProtocol)) // protocol name string
	n += 1                             // protocol level
	n += 1                             // connect flags
	n += 2                             // keep-alive
	n += mqttStringSize(desc.ClientID)
	if desc.Will != nil {
		n += mqttStringSize(desc.Will.Topic)
		n += uint32(2 + len(desc.Will.Message))
	}
	if desc.Username != "" {
		n += mqttStringSize(desc.Username)
	}
	if desc.Password != nil {
		n += uint32(2 + len(desc.Password))
	}
	return n
}

func mqttStringSize(s string) uint32 { return uint32(2 + len(s)) }

// encodeConnect writes the CONNECT packet's variable header and payload
// (not the fixed header) for desc. Caller must have already written the
// fixed header with NewHeader(PacketConnect, 0, connectRemainingLength(...)).
func encodeConnect(w io.Writer, desc *SessionDescriptor, keepAlive uint16) (int, error) {
	n, err := encodeString(w, bytesFromString(defaultProtocol))
	if err != nil {
		return n, err
	}
	ngot, err := encodeByte(w, defaultProtocolLevel)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = encodeByte(w, connectFlags(desc))
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = encodeUint16(w, keepAlive)
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = encodeString(w, bytesFromString(desc.ClientID))
	n += ngot
	if err != nil {
		return n, err
	}
	if desc.Will != nil {
		ngot, err = encodeString(w, bytesFromString(desc.Will.Topic))
		n += ngot
		if err != nil {
			return n, err
		}
		ngot, err = encodeString(w, desc.Will.Message)
		n += ngot
		if err != nil {
			return n, err
		}
	}
	if desc.Username != "" {
		ngot, err = encodeString(w, bytesFromString(desc.Username))
		n += ngot
		if err != nil {
			return n, err
		}
	}
	if desc.Password != nil {
		ngot, err = encodeString(w, desc.Password)
		n += ngot
		if err != nil {
			return n, err
		}
	}
	return n, err
}

// publishRemainingLength computes a PUBLISH packet's remaining length.
func publishRemainingLength(topic string, payloadLen int, qos QoSLevel) uint32 {
	n := mqttStringSize(topic)
	if qos != QoS0 {
		n += 2
	}
	return n + uint32(payloadLen)
}

// encodePublish writes a PUBLISH packet's variable header and payload.
func encodePublish(w io.Writer, topic string, packetID uint16, qos QoSLevel, payload []byte) (int, error) {
	n, err := encodeString(w, bytesFromString(topic))
	if err != nil {
		return n, err
	}
	if qos != QoS0 {
		ngot, err := encodeUint16(w, packetID)
		n += ngot
		if err != nil {
			return n, err
		}
	}
	ngot, err := writeFull(w, payload)
	return n + ngot, err
}

// subUnsubRemainingLength computes the remaining length of a single-topic
// SUBSCRIBE (withQoS=true, +1 byte for the requested QoS) or UNSUBSCRIBE
// (withQoS=false) packet. This client issues one topic filter per call,
// matching the host API's single-topic subscribe/unsubscribe signature.
func subUnsubRemainingLength(topic string, withQoS bool) uint32 {
	n := uint32(2) + mqttStringSize(topic)
	if withQoS {
		n++
	}
	return n
}

func encodeSubscribe(w io.Writer, packetID uint16, topic string, qos QoSLevel) (int, error) {
	n, err := encodeUint16(w, packetID)
	if err != nil {
		return n, err
	}
	ngot, err := encodeString(w, bytesFromString(topic))
	n += ngot
	if err != nil {
		return n, err
	}
	ngot, err = encodeByte(w, byte(qos))
	return n + ngot, err
}

func encodeUnsubscribe(w io.Writer, packetID uint16, topic string) (int, error) {
	n, err := encodeUint16(w, packetID)
	if err != nil {
		return n, err
	}
	ngot, err := encodeString(w, bytesFromString(topic))
	return n + ngot, err
}

// encodeAck writes the fixed header and packet identifier for a PUBACK,
// PUBREC, PUBREL or PUBCOMP -- all share this shape: header + VLI(2) + id.
func encodeAck(w io.Writer, pt PacketType, packetID uint16) (int, error) {
	h := NewHeader(pt, 0, 2)
	n, err := h.Encode(w)
	if err != nil {
		return n, err
	}
	ngot, err := encodeUint16(w, packetID)
	return n + ngot, err
}

// ackSize is the raw wire size of any PUBACK/PUBREC/PUBREL/PUBCOMP packet.
const ackSize = 4 // 1 header byte + 1 VLI byte + 2 packet-id bytes.
