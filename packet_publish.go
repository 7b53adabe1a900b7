package nextmqtt

import (
	"bytes"
	"io"
)

// PublishPacket is a PUBLISH control packet (spec.md section 3), carried
// both directions.
type PublishPacket struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retain   bool
	DUP      bool
	PacketID uint16
	Props    Properties
}

func (p *PublishPacket) Type() PacketType { return PacketPublish }

func (p *PublishPacket) GetPacketID() uint16     { return p.PacketID }
func (p *PublishPacket) SetPacketID(id uint16)   { p.PacketID = id }

// Encode writes the PUBLISH packet to w. A QoS 0 publish omits the packet
// identifier field entirely, per spec.md section 4.2.
func (p *PublishPacket) Encode(w io.Writer) (int, error) {
	var buf bytes.Buffer

	if _, err := encodeString(&buf, p.Topic); err != nil {
		return 0, err
	}
	if p.QoS > 0 {
		if p.PacketID == 0 {
			return 0, ErrMalformedPacket
		}
		if err := writeUint16(&buf, p.PacketID); err != nil {
			return 0, err
		}
	}
	if _, err := p.Props.Encode(&buf); err != nil {
		return 0, err
	}
	if _, err := buf.Write(p.Payload); err != nil {
		return 0, err
	}

	header := FixedHeader{
		Type:            PacketPublish,
		Flags:           publishFlags(p.DUP, p.QoS, p.Retain),
		RemainingLength: uint32(buf.Len()),
	}
	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}
	n, err := w.Write(buf.Bytes())
	return total + n, err
}

// decodePublish parses a PUBLISH body. header.RemainingLength bounds the payload: it is
// everything left in the packet after the variable header, per spec.md
// section 4.1 ("binary data ... is the remainder of the packet").
func decodePublish(r io.Reader, header FixedHeader) (*PublishPacket, error) {
	if err := header.validateFlags(); err != nil {
		return nil, err
	}

	p := &PublishPacket{
		DUP:    header.Flags&0x08 != 0,
		QoS:    (header.Flags >> 1) & 0x03,
		Retain: header.Flags&0x01 != 0,
	}

	consumed := 0
	topic, n, err := decodeString(r)
	consumed += n
	if err != nil {
		return nil, err
	}
	p.Topic = topic

	if p.QoS > 0 {
		var idBuf [2]byte
		if _, err := io.ReadFull(r, idBuf[:]); err != nil {
			return nil, wrapReadErr(err)
		}
		consumed += 2
		p.PacketID = uint16(idBuf[0])<<8 | uint16(idBuf[1])
		if p.PacketID == 0 {
			return nil, ErrMalformedPacket
		}
	}

	n, err = p.Props.Decode(r, PropertyContextPublish)
	consumed += n
	if err != nil {
		return nil, err
	}

	payloadLen := int(header.RemainingLength) - consumed
	if payloadLen < 0 {
		return nil, ErrMalformedPacket
	}
	if payloadLen > 0 {
		p.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, p.Payload); err != nil {
			return nil, wrapReadErr(err)
		}
	}
	return p, nil
}
