package nextmqtt

import (
	"bytes"
	"io"
)

// ackPacket is the shared shape of PUBACK, PUBREC, PUBREL, and PUBCOMP:
// a packet identifier plus an optional reason code and property list,
// spec.md section 3.
type ackPacket struct {
	PacketID   uint16
	ReasonCode ReasonCode
	Props      Properties
}

func encodeAck(w io.Writer, packetType PacketType, flags byte, ack ackPacket) (int, error) {
	var buf bytes.Buffer
	if err := writeUint16(&buf, ack.PacketID); err != nil {
		return 0, err
	}

	// Reason code and properties are only present when there's something
	// non-default to say (spec.md section 4.2 mirrors the MQTT v5 rule that
	// success-with-no-properties may omit both).
	if ack.ReasonCode != ReasonSuccess || ack.Props.Len() > 0 {
		if err := buf.WriteByte(byte(ack.ReasonCode)); err != nil {
			return 0, err
		}
		if ack.Props.Len() > 0 {
			if _, err := ack.Props.Encode(&buf); err != nil {
				return 0, err
			}
		}
	}

	header := FixedHeader{Type: packetType, Flags: flags, RemainingLength: uint32(buf.Len())}
	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}
	n, err := w.Write(buf.Bytes())
	return total + n, err
}

func decodeAck(r io.Reader, header FixedHeader, ctx PropertyContext, validReason func(ReasonCode) bool) (ackPacket, error) {
	var ack ackPacket

	var idBuf [2]byte
	if _, err := io.ReadFull(r, idBuf[:]); err != nil {
		return ack, wrapReadErr(err)
	}
	ack.PacketID = uint16(idBuf[0])<<8 | uint16(idBuf[1])
	if ack.PacketID == 0 {
		return ack, ErrMalformedPacket
	}

	if header.RemainingLength <= 2 {
		ack.ReasonCode = ReasonSuccess
		return ack, nil
	}

	var reasonBuf [1]byte
	if _, err := io.ReadFull(r, reasonBuf[:]); err != nil {
		return ack, wrapReadErr(err)
	}
	ack.ReasonCode = ReasonCode(reasonBuf[0])
	if !validReason(ack.ReasonCode) {
		return ack, ErrUnknownReason
	}

	if header.RemainingLength > 3 {
		if _, err := ack.Props.Decode(r, ctx); err != nil {
			return ack, err
		}
	}
	return ack, nil
}

// PubackPacket acknowledges a QoS 1 PUBLISH.
type PubackPacket struct{ ackPacket }

func (p *PubackPacket) Type() PacketType         { return PacketPuback }
func (p *PubackPacket) GetPacketID() uint16      { return p.PacketID }
func (p *PubackPacket) SetPacketID(id uint16)    { p.PacketID = id }
func (p *PubackPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketPuback, 0, p.ackPacket)
}

func decodePuback(r io.Reader, header FixedHeader) (*PubackPacket, error) {
	if header.Flags != 0 {
		return nil, ErrMalformedPacket
	}
	ack, err := decodeAck(r, header, PropertyContextPuback, ReasonCode.ValidForPUBACK)
	if err != nil {
		return nil, err
	}
	return &PubackPacket{ack}, nil
}

// PubrecPacket acknowledges receipt of a QoS 2 PUBLISH.
type PubrecPacket struct{ ackPacket }

func (p *PubrecPacket) Type() PacketType         { return PacketPubrec }
func (p *PubrecPacket) GetPacketID() uint16      { return p.PacketID }
func (p *PubrecPacket) SetPacketID(id uint16)    { p.PacketID = id }
func (p *PubrecPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketPubrec, 0, p.ackPacket)
}

func decodePubrec(r io.Reader, header FixedHeader) (*PubrecPacket, error) {
	if header.Flags != 0 {
		return nil, ErrMalformedPacket
	}
	ack, err := decodeAck(r, header, PropertyContextPubrec, ReasonCode.ValidForPUBREC)
	if err != nil {
		return nil, err
	}
	return &PubrecPacket{ack}, nil
}

// PubrelPacket continues the QoS 2 handshake after PUBREC.
type PubrelPacket struct{ ackPacket }

func (p *PubrelPacket) Type() PacketType         { return PacketPubrel }
func (p *PubrelPacket) GetPacketID() uint16      { return p.PacketID }
func (p *PubrelPacket) SetPacketID(id uint16)    { p.PacketID = id }
func (p *PubrelPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketPubrel, 0x02, p.ackPacket)
}

func decodePubrel(r io.Reader, header FixedHeader) (*PubrelPacket, error) {
	if header.Flags != 0x02 {
		return nil, ErrMalformedPacket
	}
	ack, err := decodeAck(r, header, PropertyContextPubrel, ReasonCode.ValidForPUBREL)
	if err != nil {
		return nil, err
	}
	return &PubrelPacket{ack}, nil
}

// PubcompPacket completes the QoS 2 handshake.
type PubcompPacket struct{ ackPacket }

func (p *PubcompPacket) Type() PacketType         { return PacketPubcomp }
func (p *PubcompPacket) GetPacketID() uint16      { return p.PacketID }
func (p *PubcompPacket) SetPacketID(id uint16)    { p.PacketID = id }
func (p *PubcompPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketPubcomp, 0, p.ackPacket)
}

func decodePubcomp(r io.Reader, header FixedHeader) (*PubcompPacket, error) {
	if header.Flags != 0 {
		return nil, ErrMalformedPacket
	}
	ack, err := decodeAck(r, header, PropertyContextPubcomp, ReasonCode.ValidForPUBCOMP)
	if err != nil {
		return nil, err
	}
	return &PubcompPacket{ack}, nil
}
