package nextmqtt

import "io"

// SubackPacket is an inbound-only SUBACK packet: one reason code per
// filter that was in the corresponding SUBSCRIBE (spec.md section 4.5).
type SubackPacket struct {
	PacketID    uint16
	Props       Properties
	ReasonCodes []ReasonCode
}

func (p *SubackPacket) Type() PacketType { return PacketSuback }

func decodeSuback(r io.Reader, header FixedHeader) (*SubackPacket, error) {
	if header.Flags != 0 {
		return nil, ErrMalformedPacket
	}

	var idBuf [2]byte
	if _, err := io.ReadFull(r, idBuf[:]); err != nil {
		return nil, wrapReadErr(err)
	}
	p := &SubackPacket{PacketID: uint16(idBuf[0])<<8 | uint16(idBuf[1])}
	if p.PacketID == 0 {
		return nil, ErrMalformedPacket
	}

	consumed := 2

	// spec.md section 4.2/4.5: SUBACK with any nonzero property length is
	// rejected outright as UnsupportedProperty, rather than tolerating
	// unknown properties the way other ack packets do — this client never
	// sends a SUBSCRIBE property that would warrant a SUBACK property in
	// return.
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
		if !rc.ValidForSUBACK() {
			return nil, ErrUnknownReason
		}
		p.ReasonCodes = append(p.ReasonCodes, rc)
	}
	return p, nil
}
