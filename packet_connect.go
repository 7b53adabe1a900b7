package nextmqtt

import (
	"bytes"
	"io"
)

const (
	protocolName    = "MQTT"
	protocolVersion = 5
)

// Connect flag bit positions, spec section 3.1.2.
const (
	connectFlagCleanStart   = 0x02
	connectFlagPasswordFlag = 0x40
	connectFlagUsernameFlag = 0x80
)

// ConnectPacket is an outbound-only CONNECT packet (spec.md section 3).
// Will messages, extended authentication, and user properties are Non-goals
// and are not modeled here.
type ConnectPacket struct {
	ClientID   string
	CleanStart bool
	KeepAlive  uint16
	Username   string
	Password   []byte
	Props      Properties
}

func (p *ConnectPacket) Type() PacketType { return PacketConnect }

func (p *ConnectPacket) connectFlags() byte {
	var flags byte
	if p.CleanStart {
		flags |= connectFlagCleanStart
	}
	if p.Username != "" {
		flags |= connectFlagUsernameFlag
	}
	if len(p.Password) > 0 {
		flags |= connectFlagPasswordFlag
	}
	return flags
}

// Encode writes the CONNECT packet to w.
func (p *ConnectPacket) Encode(w io.Writer) (int, error) {
	var buf bytes.Buffer

	if _, err := encodeString(&buf, protocolName); err != nil {
		return 0, err
	}
	if err := buf.WriteByte(protocolVersion); err != nil {
		return 0, err
	}
	if err := buf.WriteByte(p.connectFlags()); err != nil {
		return 0, err
	}
	if err := writeUint16(&buf, p.KeepAlive); err != nil {
		return 0, err
	}
	if _, err := p.Props.Encode(&buf); err != nil {
		return 0, err
	}

	// Payload: Client Identifier, [Username], [Password].
	if _, err := encodeString(&buf, p.ClientID); err != nil {
		return 0, err
	}
	if p.Username != "" {
		if _, err := encodeString(&buf, p.Username); err != nil {
			return 0, err
		}
	}
	if len(p.Password) > 0 {
		if _, err := encodeBinary(&buf, p.Password); err != nil {
			return 0, err
		}
	}

	header := FixedHeader{Type: PacketConnect, RemainingLength: uint32(buf.Len())}
	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}
	n, err := w.Write(buf.Bytes())
	return total + n, err
}

func writeUint16(w io.Writer, v uint16) error {
	_, err := w.Write([]byte{byte(v >> 8), byte(v)})
	return err
}
