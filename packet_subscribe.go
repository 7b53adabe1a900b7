package nextmqtt

import (
	"bytes"
	"io"
)

// RetainHandling controls whether the broker sends retained messages when
// a subscription is established, spec.md section 3.
type RetainHandling byte

const (
	RetainHandlingSend             RetainHandling = 0
	RetainHandlingSendIfNotExists  RetainHandling = 1
	RetainHandlingDoNotSend        RetainHandling = 2
)

// SubscribeOptions is the single subscription-options byte carried per
// topic filter in a SUBSCRIBE packet.
type SubscribeOptions struct {
	QoS               byte
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    RetainHandling
}

func (o SubscribeOptions) encode() byte {
	b := o.QoS & 0x03
	if o.NoLocal {
		b |= 0x04
	}
	if o.RetainAsPublished {
		b |= 0x08
	}
	b |= (byte(o.RetainHandling) & 0x03) << 4
	return b
}

func decodeSubscribeOptions(b byte) SubscribeOptions {
	return SubscribeOptions{
		QoS:               b & 0x03,
		NoLocal:           b&0x04 != 0,
		RetainAsPublished: b&0x08 != 0,
		RetainHandling:    RetainHandling((b >> 4) & 0x03),
	}
}

// SubscribeFilter pairs a topic filter with its options. The wire format
// (and this codec) supports multiple filters per SUBSCRIBE; the session
// engine's public surface only ever emits one at a time, per spec.md
// section 4.5.
type SubscribeFilter struct {
	Filter  string
	Options SubscribeOptions
}

// SubscribePacket is an outbound-only SUBSCRIBE packet.
type SubscribePacket struct {
	PacketID uint16
	Props    Properties
	Filters  []SubscribeFilter
}

func (p *SubscribePacket) Type() PacketType      { return PacketSubscribe }
func (p *SubscribePacket) GetPacketID() uint16   { return p.PacketID }
func (p *SubscribePacket) SetPacketID(id uint16) { p.PacketID = id }

func (p *SubscribePacket) Encode(w io.Writer) (int, error) {
	if len(p.Filters) == 0 || p.PacketID == 0 {
		return 0, ErrMalformedPacket
	}

	var buf bytes.Buffer
	if err := writeUint16(&buf, p.PacketID); err != nil {
		return 0, err
	}
	if _, err := p.Props.Encode(&buf); err != nil {
		return 0, err
	}
	for _, f := range p.Filters {
		if _, err := encodeString(&buf, f.Filter); err != nil {
			return 0, err
		}
		if err := buf.WriteByte(f.Options.encode()); err != nil {
			return 0, err
		}
	}

	header := FixedHeader{Type: PacketSubscribe, Flags: 0x02, RemainingLength: uint32(buf.Len())}
	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}
	n, err := w.Write(buf.Bytes())
	return total + n, err
}
