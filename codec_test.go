package nextmqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodePublishWireExample decodes the exact byte sequence from
// spec.md section 8: PublishPacket{topic:"/pong", qos:0, payload:"Try This"}.
func TestDecodePublishWireExample(t *testing.T) {
	wire := []byte{
		0x30, 0x10,
		0x00, 0x05, 0x2F, 0x70, 0x6F, 0x6E, 0x67, 0x00,
		0x54, 0x72, 0x79, 0x20, 0x54, 0x68, 0x69, 0x73,
	}

	d := NewDecoder()
	packets, err := d.Feed(wire)
	require.NoError(t, err)
	require.Len(t, packets, 1)

	p, ok := packets[0].(*PublishPacket)
	require.True(t, ok)
	assert.Equal(t, "/pong", p.Topic)
	assert.Equal(t, byte(0), p.QoS)
	assert.Equal(t, []byte("Try This"), p.Payload)
}

func TestEncodeDecodePublishWireExample(t *testing.T) {
	p := &PublishPacket{Topic: "/pong", QoS: 0, Payload: []byte("Try This")}
	encoded, err := EncodePacket(p)
	require.NoError(t, err)

	want := []byte{
		0x30, 0x10,
		0x00, 0x05, 0x2F, 0x70, 0x6F, 0x6E, 0x67, 0x00,
		0x54, 0x72, 0x79, 0x20, 0x54, 0x68, 0x69, 0x73,
	}
	assert.Equal(t, want, encoded)
}

// TestStreamingFramingArbitraryChunks feeds the concatenation of several
// encoded packets in arbitrary chunk sizes and expects them decoded in
// order with nothing left over.
func TestStreamingFramingArbitraryChunks(t *testing.T) {
	pkts := []Packet{
		&PingreqPacket{},
		&PublishPacket{Topic: "a", QoS: 0, Payload: []byte("1")},
		&PubackPacket{ackPacket: ackPacket{PacketID: 5}},
	}

	var all []byte
	for _, p := range pkts {
		b, err := EncodePacket(p)
		require.NoError(t, err)
		all = append(all, b...)
	}

	for chunkSize := 1; chunkSize <= len(all); chunkSize++ {
		d := NewDecoder()
		var got []Packet
		for i := 0; i < len(all); i += chunkSize {
			end := i + chunkSize
			if end > len(all) {
				end = len(all)
			}
			decoded, err := d.Feed(all[i:end])
			require.NoError(t, err)
			got = append(got, decoded...)
		}
		require.Len(t, got, len(pkts), "chunk size %d", chunkSize)
		assert.Equal(t, PacketPingreq, got[0].Type())
		assert.Equal(t, PacketPublish, got[1].Type())
		assert.Equal(t, PacketPuback, got[2].Type())
		assert.Empty(t, d.buf)
	}
}

// TestFeedRecoversFromBodyError checks that a malformed body (unknown
// reason code) is reported via OnDecodeError without losing the frame
// boundary for the packet after it.
func TestFeedRecoversFromBodyError(t *testing.T) {
	// PUBACK, remaining length 3, packet id 1, reason code 0x55 (unknown).
	bad := []byte{0x40, 0x03, 0x00, 0x01, 0x55}

	good, err := EncodePacket(&PingreqPacket{})
	require.NoError(t, err)

	var reported error
	d := NewDecoder()
	d.OnDecodeError = func(err error) { reported = err }

	packets, err := d.Feed(append(bad, good...))
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, PacketPingreq, packets[0].Type())
	require.Error(t, reported)
	assert.ErrorIs(t, reported, ErrUnknownReason)
}

func TestFeedFatalOnInvalidPacketType(t *testing.T) {
	d := NewDecoder()
	_, err := d.Feed([]byte{0x00, 0x00}) // upper nibble 0 names no packet type
	assert.ErrorIs(t, err, ErrMalformedPacket)
}

func TestFeedPartialPacketBuffered(t *testing.T) {
	full, err := EncodePacket(&PingreqPacket{})
	require.NoError(t, err)

	d := NewDecoder()
	packets, err := d.Feed(full[:1])
	require.NoError(t, err)
	assert.Empty(t, packets)

	packets, err = d.Feed(full[1:])
	require.NoError(t, err)
	require.Len(t, packets, 1)
}
