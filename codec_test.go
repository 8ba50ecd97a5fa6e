package mqtt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVLISizeBoundaries(t *testing.T) {
	cases := []struct {
		v    uint32
		size int
	}{
		{0, 1}, {127, 1}, {128, 2},
		{16383, 2}, {16384, 3},
		{2097151, 3}, {2097152, 4},
		{maxRemainingLengthValue, 4},
	}
	for _, c := range cases {
		require.Equal(t, c.size, vliSize(c.v), "v=%d", c.v)
	}
}

func TestVLIRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, maxRemainingLengthValue} {
		var buf bytes.Buffer
		_, err := encodeVLI(&buf, v)
		require.NoError(t, err)
		got, n, err := decodeVLI(&buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, vliSize(v), n)
	}
}

func TestDecodeVLIMalformed(t *testing.T) {
	// Four continuation bytes: never terminates within maxRemainingLengthSize.
	buf := bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x01})
	_, _, err := decodeVLI(buf)
	require.ErrorIs(t, err, ErrMalformedVLI)
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Header{
		NewHeader(PacketPingreq, 0, 0),
		NewHeader(PacketPubrel, flagsPubrelSubUnsub, 2),
		NewHeader(PacketPublish, NewPublishFlags(true, QoS2, true), 42),
		NewHeader(PacketConnect, 0, 300),
	}
	for _, h := range cases {
		var buf bytes.Buffer
		_, err := h.Encode(&buf)
		require.NoError(t, err)
		got, _, err := DecodeHeader(&buf)
		require.NoError(t, err)
		require.Equal(t, h.Type(), got.Type())
		require.Equal(t, h.Flags(), got.Flags())
		require.Equal(t, h.RemainingLength, got.RemainingLength)
	}
}

// TestConnectByteExact pins the encoded CONNECT packet for a minimal
// clean-session client identifier "abc" with no will/credentials to the
// exact byte sequence MQTT 3.1.1 mandates.
func TestConnectByteExact(t *testing.T) {
	desc := &SessionDescriptor{ClientID: "abc", KeepAlive: 60}
	want := []byte{
		0x10, 0x0f, // CONNECT, remaining length 15
		0x00, 0x04, 'M', 'Q', 'T', 'T', // protocol name
		0x04,       // protocol level
		0x02,       // connect flags: clean session
		0x00, 0x3c, // keep alive = 60
		0x00, 0x03, 'a', 'b', 'c', // client id
	}
	remLen := connectRemainingLength(desc, 60)
	require.Equal(t, uint32(len(want)-2), remLen)

	var buf bytes.Buffer
	h := NewHeader(PacketConnect, 0, remLen)
	_, err := h.Encode(&buf)
	require.NoError(t, err)
	_, err = encodeConnect(&buf, desc, 60)
	require.NoError(t, err)
	require.Equal(t, want, buf.Bytes())
}

func TestEncodeAckSize(t *testing.T) {
	var buf bytes.Buffer
	n, err := encodeAck(&buf, PacketPuback, 7)
	require.NoError(t, err)
	require.Equal(t, ackSize, n)
	require.Equal(t, []byte{0x40, 0x02, 0x00, 0x07}, buf.Bytes())
}

func TestPublishRemainingLengthQoS(t *testing.T) {
	require.Equal(t, uint32(2+3+5), publishRemainingLength("abc", 5, QoS0))
	require.Equal(t, uint32(2+3+2+5), publishRemainingLength("abc", 5, QoS1))
}
