package nextmqtt

import "io"

// ConnackPacket is an inbound-only CONNACK packet (spec.md section 3).
type ConnackPacket struct {
	SessionPresent bool
	ReasonCode     ReasonCode
	Props          Properties
}

func (p *ConnackPacket) Type() PacketType { return PacketConnack }

// Encode writes the CONNACK packet to w. Only used by tests exercising the
// round trip; the client never emits CONNACK.
func (p *ConnackPacket) Encode(w io.Writer) (int, error) {
	var flags byte
	if p.SessionPresent {
		flags = 0x01
	}
	body := []byte{flags, byte(p.ReasonCode)}

	var propsBuf bytesBuf
	if _, err := p.Props.Encode(&propsBuf); err != nil {
		return 0, err
	}
	body = append(body, propsBuf.data...)

	header := FixedHeader{Type: PacketConnack, RemainingLength: uint32(len(body))}
	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}
	n, err := w.Write(body)
	return total + n, err
}

// decodeConnack parses a CONNACK body (fixed header already consumed).
func decodeConnack(r io.Reader, header FixedHeader) (*ConnackPacket, error) {
	if header.Flags != 0 {
		return nil, ErrMalformedPacket
	}

	var flagsBuf [1]byte
	if _, err := io.ReadFull(r, flagsBuf[:]); err != nil {
		return nil, wrapReadErr(err)
	}
	if flagsBuf[0]&0xFE != 0 {
		return nil, ErrMalformedPacket
	}

	var reasonBuf [1]byte
	if _, err := io.ReadFull(r, reasonBuf[:]); err != nil {
		return nil, wrapReadErr(err)
	}
	reason := ReasonCode(reasonBuf[0])
	if !reason.ValidForCONNACK() {
		return nil, ErrUnknownReason
	}

	p := &ConnackPacket{
		SessionPresent: flagsBuf[0]&0x01 != 0,
		ReasonCode:     reason,
	}
	if reason != ReasonSuccess && p.SessionPresent {
		return nil, ErrMalformedPacket
	}

	if header.RemainingLength > 2 {
		if _, err := p.Props.Decode(r, PropertyContextConnack); err != nil {
			return nil, err
		}
	}
	return p, nil
}
