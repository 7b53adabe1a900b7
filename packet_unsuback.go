package nextmqtt

import "io"

// UnsubackPacket is an inbound-only UNSUBACK packet.
type UnsubackPacket struct {
	PacketID    uint16
	ReasonCodes []ReasonCode
}

func (p *UnsubackPacket) Type() PacketType { return PacketUnsuback }

func decodeUnsuback(r io.Reader, header FixedHeader) (*UnsubackPacket, error) {
	if header.Flags != 0 {
		return nil, ErrMalformedPacket
	}

	var idBuf [2]byte
	if _, err := io.ReadFull(r, idBuf[:]); err != nil {
		return nil, wrapReadErr(err)
	}
	p := &UnsubackPacket{PacketID: uint16(idBuf[0])<<8 | uint16(idBuf[1])}
	if p.PacketID == 0 {
		return nil, ErrMalformedPacket
	}

	consumed := 2
	propLen, n, err := decodeVarint(r)
	consumed += n
	if err != nil {
		return nil, err
	}
	if propLen > 0 {
		return nil, ErrUnsupportedProp
	}

	remaining := int(header.RemainingLength) - consumed
	if remaining < 1 {
		return nil, ErrMalformedPacket
	}
	codes := make([]byte, remaining)
	if _, err := io.ReadFull(r, codes); err != nil {
		return nil, wrapReadErr(err)
	}
	for _, c := range codes {
		rc := ReasonCode(c)
		if !rc.ValidForUNSUBACK() {
			return nil, ErrUnknownReason
		}
		p.ReasonCodes = append(p.ReasonCodes, rc)
	}
	return p, nil
}
