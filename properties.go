package nextmqtt

import "io"

// PropertyID identifies an MQTT v5.0 property, spec section 2.2.2.
type PropertyID byte

// Property identifiers this client understands. All other identifiers are
// either tolerated-and-ignored or rejected on decode depending on the
// packet kind carrying them; see PropertyContext.
const (
	PropSessionExpiryInterval PropertyID = 0x11
	PropTopicAliasMaximum     PropertyID = 0x22
)

type propertyType byte

const (
	propTypeTwoByteInt propertyType = iota
	propTypeFourByteInt
)

var propertyTypeOf = map[PropertyID]propertyType{
	PropSessionExpiryInterval: propTypeFourByteInt,
	PropTopicAliasMaximum:     propTypeTwoByteInt,
}

// PropertyContext identifies which packet kind a property list is being
// decoded for, so the decoder can decide whether an unrecognized property
// identifier is fatal or merely ignorable. Ack-style packets (CONNACK,
// SUBACK, UNSUBACK, PUBACK, PUBREC, PUBCOMP) tolerate broker extensions we
// don't model; packets whose properties this client itself must be able to
// interpret in full (CONNECT, PUBLISH, SUBSCRIBE, UNSUBSCRIBE) do not.
// SUBACK and UNSUBACK bodies never reach this decoder: their parsers reject
// any nonzero property length with ErrUnsupportedProp first.
type PropertyContext byte

const (
	PropertyContextConnect PropertyContext = iota
	PropertyContextConnack
	PropertyContextPublish
	PropertyContextSubscribe
	PropertyContextSuback
	PropertyContextUnsubscribe
	PropertyContextUnsuback
	PropertyContextPuback
	PropertyContextPubrec
	PropertyContextPubrel
	PropertyContextPubcomp
)

func (c PropertyContext) tolerant() bool {
	switch c {
	case PropertyContextConnack, PropertyContextSuback, PropertyContextUnsuback,
		PropertyContextPuback, PropertyContextPubrec, PropertyContextPubcomp:
		return true
	default:
		return false
	}
}

type property struct {
	id    PropertyID
	value uint32 // both supported property types fit in a uint32
}

// Properties is an ordered MQTT v5.0 property list (spec section 2.2.2):
// a variable-byte-integer length prefix followed by identifier+value
// pairs. This client only models the two identifiers named in spec.md
// section 3 (Topic Alias Maximum, Session Expiry Interval); everything
// else is either skipped (tolerant contexts) or rejected (strict contexts).
type Properties struct {
	props []property
}

// SetUint16 sets (replacing any existing value) a two-byte-integer property.
func (p *Properties) SetUint16(id PropertyID, v uint16) {
	p.set(id, uint32(v))
}

// SetUint32 sets (replacing any existing value) a four-byte-integer property.
func (p *Properties) SetUint32(id PropertyID, v uint32) {
	p.set(id, v)
}

func (p *Properties) set(id PropertyID, v uint32) {
	for i := range p.props {
		if p.props[i].id == id {
			p.props[i].value = v
			return
		}
	}
	p.props = append(p.props, property{id: id, value: v})
}

// GetUint16 returns the value of a two-byte-integer property, or 0 if absent.
func (p *Properties) GetUint16(id PropertyID) (uint16, bool) {
	for i := range p.props {
		if p.props[i].id == id {
			return uint16(p.props[i].value), true
		}
	}
	return 0, false
}

// GetUint32 returns the value of a four-byte-integer property, or 0 if absent.
func (p *Properties) GetUint32(id PropertyID) (uint32, bool) {
	for i := range p.props {
		if p.props[i].id == id {
			return p.props[i].value, true
		}
	}
	return 0, false
}

// Len reports the number of properties present.
func (p *Properties) Len() int { return len(p.props) }

func (p *Properties) encodedLen() int {
	n := 0
	for _, prop := range p.props {
		n++ // identifier byte
		switch propertyTypeOf[prop.id] {
		case propTypeTwoByteInt:
			n += 2
		case propTypeFourByteInt:
			n += 4
		}
	}
	return n
}

// Encode writes the VBI-prefixed property list to w.
func (p *Properties) Encode(w io.Writer) (int, error) {
	size := p.encodedLen()
	n, err := encodeVarint(w, uint32(size))
	if err != nil {
		return n, err
	}
	for _, prop := range p.props {
		wn, err := w.Write([]byte{byte(prop.id)})
		n += wn
		if err != nil {
			return n, err
		}
		switch propertyTypeOf[prop.id] {
		case propTypeTwoByteInt:
			wn, err = w.Write([]byte{byte(prop.value >> 8), byte(prop.value)})
		case propTypeFourByteInt:
			wn, err = w.Write([]byte{byte(prop.value >> 24), byte(prop.value >> 16), byte(prop.value >> 8), byte(prop.value)})
		}
		n += wn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Decode reads a VBI-prefixed property list from r, honoring ctx's
// tolerance for unrecognized property identifiers.
func (p *Properties) Decode(r io.Reader, ctx PropertyContext) (int, error) {
	length, n, err := decodeVarint(r)
	if err != nil {
		return n, err
	}
	if length == 0 {
		return n, nil
	}

	remaining := int(length)
	for remaining > 0 {
		var idBuf [1]byte
		rn, err := io.ReadFull(r, idBuf[:])
		n += rn
		remaining -= rn
		if err != nil {
			return n, wrapReadErr(err)
		}
		id := PropertyID(idBuf[0])

		ptype, known := propertyTypeOf[id]
		if !known {
			if ctx.tolerant() {
				// Unknown property in a tolerant context: we cannot know its
				// wire width, so we cannot safely skip only part of it. The
				// property list length prefix bounds the whole list, so
				// discard the rest of the list rather than guess a width.
				buf := make([]byte, remaining)
				rn, err = io.ReadFull(r, buf)
				n += rn
				remaining -= rn
				if err != nil {
					return n, wrapReadErr(err)
				}
				return n, nil
			}
			return n, ErrUnsupportedProp
		}

		var value uint32
		switch ptype {
		case propTypeTwoByteInt:
			var buf [2]byte
			rn, err = io.ReadFull(r, buf[:])
			value = uint32(buf[0])<<8 | uint32(buf[1])
		case propTypeFourByteInt:
			var buf [4]byte
			rn, err = io.ReadFull(r, buf[:])
			value = uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
		}
		n += rn
		remaining -= rn
		if err != nil {
			return n, wrapReadErr(err)
		}

		p.props = append(p.props, property{id: id, value: value})
	}
	return n, nil
}
