package nextmqtt

import (
	"bytes"
	"io"
)

// UnsubscribePacket is an outbound-only UNSUBSCRIBE packet. Like SUBSCRIBE,
// the wire format supports multiple filters; the session engine's public
// surface only ever emits one at a time (spec.md section 4.5).
type UnsubscribePacket struct {
	PacketID uint16
	Props    Properties
	Filters  []string
}

func (p *UnsubscribePacket) Type() PacketType      { return PacketUnsubscribe }
func (p *UnsubscribePacket) GetPacketID() uint16   { return p.PacketID }
func (p *UnsubscribePacket) SetPacketID(id uint16) { p.PacketID = id }

func (p *UnsubscribePacket) Encode(w io.Writer) (int, error) {
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
		if _, err := encodeString(&buf, f); err != nil {
			return 0, err
		}
	}

	header := FixedHeader{Type: PacketUnsubscribe, Flags: 0x02, RemainingLength: uint32(buf.Len())}
	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}
	n, err := w.Write(buf.Bytes())
	return total + n, err
}
