package nextmqtt

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ConnectionState is the state machine spec.md section 4.3 defines. The
// zero value is NotConnected.
type ConnectionState int

const (
	NotConnected ConnectionState = iota
	Connecting
	Connected
	Disconnecting
	Reconnecting
	Dropped
	Disconnected
)

func (s ConnectionState) String() string {
	switch s {
	case NotConnected:
		return "NotConnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Disconnecting:
		return "Disconnecting"
	case Reconnecting:
		return "Reconnecting"
	case Dropped:
		return "Dropped"
	case Disconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// reconnectDelay is the fixed cadence spec.md section 4.6 mandates.
const reconnectDelay = 5 * time.Second

// session is the single serial execution domain from spec.md section 5: a
// mutex-guarded actor (the teacher's own idiom throughout client.go)
// rather than a channel-selecting task. Every method that touches session
// state takes s.mu. Public API calls release it before handing their own
// packet to the transport and before waiting on a completion; packets the
// domain emits in reaction to inbound traffic or timers (acks, PINGREQ,
// DISCONNECT, resends after reconnect) are handed to Transport.Send while
// s.mu is held.
type session struct {
	mu sync.Mutex

	host string
	port int
	opts *clientOptions

	logger  Logger
	metrics sessionMetrics

	state     ConnectionState
	transport Transport
	sessionPresent bool

	packetIDs   *packetIDManager
	inflight    map[uint16]*inflightRecord
	completions map[uint16]*completion

	connectCompletion *completion

	keepAliveTimer *time.Timer
	stopped        bool

	decoder *Decoder

	// resetOnNextConnect is set at construction when cleanStart is on, so
	// the first connect() clears the stores before its CONNECT is sent.
	resetOnNextConnect bool
}

func newSession(host string, port int, opts *clientOptions) *session {
	s := &session{
		host:        host,
		port:        port,
		opts:        opts,
		logger:      opts.logger,
		metrics:     newSessionMetrics(opts.metrics),
		state:       NotConnected,
		packetIDs:   newPacketIDManager(),
		inflight:    make(map[uint16]*inflightRecord),
		completions: make(map[uint16]*completion),
	}
	if opts.cleanStart {
		s.resetOnNextConnect = true
	}
	return s
}

func (s *session) setState(state ConnectionState) {
	s.state = state
	s.logger.Debug("state transition", LogFields{LogFieldState: state.String()})
	if s.opts.onConnectionState != nil {
		go s.opts.onConnectionState(state)
	}
}

// connect drives NotConnected -> Connecting -> Connected|Disconnected,
// spec.md section 4.3. It returns once the CONNACK completion resolves
// (or fails to arrive because dialing itself failed).
func (s *session) connect(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.state != NotConnected && s.state != Dropped && s.state != Reconnecting {
		s.mu.Unlock()
		return false, fmt.Errorf("nextmqtt: connect called from state %s", s.state)
	}
	s.setState(Connecting)

	if s.resetOnNextConnect {
		s.packetIDs.reset()
		s.inflight = make(map[uint16]*inflightRecord)
		for _, c := range s.completions {
			c.resolve(nil, ErrClientClosed)
		}
		s.completions = make(map[uint16]*completion)
		s.resetOnNextConnect = false
	}

	dialer := s.opts.resolveDialer()
	s.mu.Unlock()

	transport, err := dialer.Dial(ctx, s.host, s.port)
	if err != nil {
		s.mu.Lock()
		s.setState(Disconnected)
		s.mu.Unlock()
		return false, NewTransportError(err)
	}

	s.mu.Lock()
	s.transport = transport
	s.decoder = NewDecoder()
	s.decoder.OnDecodeError = func(err error) {
		s.logger.Warn("dropping malformed packet", LogFields{LogFieldError: err.Error()})
	}
	connectCompletion := newCompletion(completionConnect)
	s.connectCompletion = connectCompletion
	s.mu.Unlock()

	if err := transport.Start(ctx, s.onData, s.onClosed); err != nil {
		s.mu.Lock()
		s.setState(Disconnected)
		s.mu.Unlock()
		return false, NewTransportError(err)
	}

	if err := s.sendConnect(); err != nil {
		s.mu.Lock()
		s.setState(Disconnected)
		s.mu.Unlock()
		return false, err
	}

	result, err := connectCompletion.wait()
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

func (s *session) sendConnect() error {
	s.mu.Lock()
	pkt := &ConnectPacket{
		ClientID:   s.opts.clientID,
		CleanStart: s.opts.cleanStart,
		KeepAlive:  s.opts.pingInterval,
	}
	if s.opts.hasAuth {
		pkt.Username = s.opts.username
		pkt.Password = s.opts.password
	}
	if s.opts.sessionExpiry != 0 {
		pkt.Props.SetUint32(PropSessionExpiryInterval, s.opts.sessionExpiry)
	}
	transport := s.transport
	s.mu.Unlock()

	return s.send(transport, pkt)
}

func (s *session) send(transport Transport, pkt Packet) error {
	bytes, err := EncodePacket(pkt)
	if err != nil {
		return err
	}
	s.metrics.packetSent(pkt.Type())
	return transport.Send(bytes)
}

// onData is the transport's inbound-bytes callback. It never blocks the
// transport goroutine on session work beyond decode + dispatch of already
// buffered bytes.
func (s *session) onData(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	packets, err := s.decoder.Feed(chunk)
	for _, pkt := range packets {
		s.metrics.packetReceived(pkt.Type())
		s.dispatch(pkt)
	}
	if err != nil {
		// Fatal framing error: the decoder can no longer find packet
		// boundaries in the stream. Kill the connection.
		s.logger.Error("fatal framing error, closing transport", LogFields{LogFieldError: err.Error()})
		s.failTransportLocked(err)
	}
}

// onClosed is the transport's close callback, invoked whether Stop was
// called (err == nil) or the connection dropped unexpectedly.
func (s *session) onClosed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Disconnecting || s.state == Disconnected {
		return // expected: our own disconnect() already tore this down
	}
	s.failTransportLocked(err)
}

// failTransportLocked handles both a transport-reported close and a fatal
// decode error the same way: stop the connection and enter Dropped,
// unless we are already tearing down for another reason.
func (s *session) failTransportLocked(cause error) {
	if s.keepAliveTimer != nil {
		s.keepAliveTimer.Stop()
	}
	if s.connectCompletion != nil {
		s.connectCompletion.resolve(false, NewTransportError(cause))
		s.connectCompletion = nil
	}
	if s.transport != nil {
		s.transport.Stop()
	}
	if s.stopped {
		s.setState(Disconnected)
		return
	}
	s.setState(Dropped)
	go s.reconnectLoop()
}

// reconnectLoop retries every 5s until success or disconnect(), spec.md
// section 4.6.
func (s *session) reconnectLoop() {
	for {
		time.Sleep(reconnectDelay)

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.setState(Reconnecting)
		s.metrics.reconnectAttempted()
		s.mu.Unlock()

		if _, err := s.connect(context.Background()); err != nil {
			s.logger.Warn("reconnect attempt failed", LogFields{LogFieldError: err.Error()})
			continue
		}
		return
	}
}

func (s *session) dispatch(pkt Packet) {
	switch p := pkt.(type) {
	case *ConnackPacket:
		s.handleConnack(p)
	case *PublishPacket:
		s.handlePublish(p)
	case *PubackPacket:
		s.handlePuback(p)
	case *PubrecPacket:
		s.handlePubrec(p)
	case *PubrelPacket:
		s.handlePubrel(p)
	case *PubcompPacket:
		s.handlePubcomp(p)
	case *SubackPacket:
		s.handleSuback(p)
	case *UnsubackPacket:
		s.handleUnsuback(p)
	case *PingrespPacket:
		// no action required; arrival alone confirms liveness
	case *DisconnectPacket:
		s.handleServerDisconnect()
	}
}

func (s *session) handleConnack(p *ConnackPacket) {
	completion := s.connectCompletion
	s.connectCompletion = nil

	if p.ReasonCode.IsError() {
		s.setState(Disconnected)
		if s.transport != nil {
			s.transport.Stop()
		}
		if completion != nil {
			completion.resolve(false, NewConnectError(p.ReasonCode))
		}
		return
	}

	expectingSession := !s.opts.cleanStart && s.opts.sessionExpiry != 0 && len(s.inflight) > 0
	if expectingSession && !p.SessionPresent {
		s.setState(Disconnected)
		if s.transport != nil {
			s.transport.Stop()
		}
		if completion != nil {
			completion.resolve(false, ErrProtocolError)
		}
		return
	}

	if s.opts.cleanStart && p.SessionPresent {
		s.setState(Disconnected)
		if s.transport != nil {
			s.transport.Stop()
		}
		if completion != nil {
			completion.resolve(false, ErrProtocolError)
		}
		return
	}

	s.sessionPresent = p.SessionPresent
	s.setState(Connected)
	s.armKeepAlive()

	if p.SessionPresent {
		s.resendInflight()
	} else {
		s.packetIDs.reset()
		s.inflight = make(map[uint16]*inflightRecord)
		for id, c := range s.completions {
			c.resolve(nil, ErrClientClosed)
			delete(s.completions, id)
		}
	}

	if completion != nil {
		completion.resolve(p.SessionPresent, nil)
	}
}

// resendInflight replays unacknowledged outbound state after a reconnect
// with sessionPresent=1, spec.md section 4.3.
func (s *session) resendInflight() {
	for id, rec := range s.inflight {
		switch rec.role {
		case roleOutboundQoS1, roleOutboundQoS2:
			dup := setDupFlag(rec.outboundBytes)
			s.transport.Send(dup)
		case rolePubrecSent:
			pkt := &PubrelPacket{ackPacket: ackPacket{PacketID: id}}
			s.send(s.transport, pkt)
		case roleInboundQoS2:
			// left pending; a retransmitted PUBLISH re-acks below, or the
			// peer's PUBREL arrives and completes delivery normally.
		}
	}
}

// setDupFlag returns a copy of an encoded PUBLISH with the DUP bit set in
// its fixed header, for resending after a reconnect.
func setDupFlag(encoded []byte) []byte {
	out := make([]byte, len(encoded))
	copy(out, encoded)
	if len(out) > 0 {
		out[0] |= 0x08
	}
	return out
}

func (s *session) handleServerDisconnect() {
	s.logger.Info("server sent DISCONNECT", nil)
	if s.transport != nil {
		s.transport.Stop()
	}
}

func (s *session) armKeepAlive() {
	if s.opts.pingInterval == 0 {
		return
	}
	interval := time.Duration(s.opts.pingInterval) * time.Second / 2
	s.keepAliveTimer = time.AfterFunc(interval, s.sendPing)
}

func (s *session) sendPing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connected {
		return
	}
	s.send(s.transport, &PingreqPacket{})
	s.keepAliveTimer = time.AfterFunc(time.Duration(s.opts.pingInterval)*time.Second/2, s.sendPing)
}

// disconnect drives Connected/Connecting -> Disconnecting -> Disconnected,
// spec.md section 4.3. It is fire-and-forget from the caller's
// perspective but still synchronous here: bytes are handed to the
// transport before it is stopped.
func (s *session) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Connected && s.state != Connecting && s.state != Dropped && s.state != Reconnecting {
		return
	}
	priorState := s.state
	s.stopped = true
	s.setState(Disconnecting)

	if s.keepAliveTimer != nil {
		s.keepAliveTimer.Stop()
	}
	if s.transport != nil && priorState != Dropped {
		s.send(s.transport, &DisconnectPacket{})
		s.transport.Stop()
	}

	if s.connectCompletion != nil {
		s.connectCompletion.resolve(false, ErrClientClosed)
		s.connectCompletion = nil
	}
	for id, c := range s.completions {
		c.resolve(nil, ErrClientClosed)
		delete(s.completions, id)
	}
	s.inflight = make(map[uint16]*inflightRecord)
	s.setState(Disconnected)
}

// publish drives spec.md section 4.4's three QoS flows.
func (s *session) publish(topic string, qos byte, payload []byte) (any, error) {
	s.mu.Lock()

	if s.state != Connected {
		s.mu.Unlock()
		return nil, ErrClientClosed
	}

	pkt := &PublishPacket{Topic: topic, QoS: qos, Payload: payload}

	if qos == 0 {
		transport := s.transport
		s.mu.Unlock()
		if err := s.send(transport, pkt); err != nil {
			return nil, NewTransportError(err)
		}
		return nil, nil
	}

	id, err := s.packetIDs.allocate()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	pkt.PacketID = id

	encoded, err := EncodePacket(pkt)
	if err != nil {
		s.packetIDs.release(id)
		s.mu.Unlock()
		return nil, err
	}

	role := roleOutboundQoS1
	if qos == 2 {
		role = roleOutboundQoS2
	}
	s.inflight[id] = &inflightRecord{role: role, outboundBytes: encoded, topic: topic}
	s.metrics.inflightDepth(len(s.inflight))

	c := newCompletion(completionPublish)
	c.topic = topic
	s.completions[id] = c

	transport := s.transport
	s.mu.Unlock()

	s.metrics.packetSent(PacketPublish)
	if err := transport.Send(encoded); err != nil {
		return nil, NewTransportError(err)
	}

	_, err = c.wait()
	return nil, err
}

func (s *session) handlePublish(p *PublishPacket) {
	switch p.QoS {
	case 0:
		s.deliver(p.Topic, p.Payload)
	case 1:
		s.deliver(p.Topic, p.Payload)
		ack := &PubackPacket{ackPacket: ackPacket{PacketID: p.PacketID}}
		s.send(s.transport, ack)
	case 2:
		if rec, exists := s.inflight[p.PacketID]; exists && rec.role == roleInboundQoS2 {
			// duplicate PUBLISH before our PUBREL: re-ack, don't re-deliver
			s.send(s.transport, &PubrecPacket{ackPacket: ackPacket{PacketID: p.PacketID}})
			return
		}
		s.inflight[p.PacketID] = &inflightRecord{role: roleInboundQoS2, inboundPayload: p.Payload, topic: p.Topic}
		s.metrics.inflightDepth(len(s.inflight))
		s.send(s.transport, &PubrecPacket{ackPacket: ackPacket{PacketID: p.PacketID}})
	}
}

func (s *session) deliver(topic string, payload []byte) {
	if s.opts.onReceive != nil {
		go s.opts.onReceive(topic, payload)
	}
}

func (s *session) handlePuback(p *PubackPacket) {
	rec, ok := s.inflight[p.PacketID]
	if !ok || rec.role != roleOutboundQoS1 {
		s.logger.Warn("PUBACK for unknown packet id", LogFields{LogFieldPacketID: p.PacketID})
		return
	}
	delete(s.inflight, p.PacketID)
	s.packetIDs.release(p.PacketID)
	s.metrics.inflightDepth(len(s.inflight))

	c := s.completions[p.PacketID]
	delete(s.completions, p.PacketID)
	if c == nil {
		return
	}
	if p.ReasonCode.IsError() {
		c.resolve(nil, NewPublishError(rec.topic, p.PacketID, p.ReasonCode))
	} else {
		c.resolve(nil, nil)
	}
}

func (s *session) handlePubrec(p *PubrecPacket) {
	rec, ok := s.inflight[p.PacketID]
	if !ok || rec.role != roleOutboundQoS2 {
		s.logger.Warn("PUBREC for unknown packet id", LogFields{LogFieldPacketID: p.PacketID})
		return
	}

	if p.ReasonCode.IsError() {
		delete(s.inflight, p.PacketID)
		s.packetIDs.release(p.PacketID)
		s.metrics.inflightDepth(len(s.inflight))
		c := s.completions[p.PacketID]
		delete(s.completions, p.PacketID)
		if c != nil {
			c.resolve(nil, NewPublishError(rec.topic, p.PacketID, p.ReasonCode))
		}
		return
	}

	rec.role = rolePubrecSent
	s.send(s.transport, &PubrelPacket{ackPacket: ackPacket{PacketID: p.PacketID}})
}

func (s *session) handlePubrel(p *PubrelPacket) {
	rec, ok := s.inflight[p.PacketID]
	if !ok || rec.role != roleInboundQoS2 {
		ack := &PubcompPacket{ackPacket: ackPacket{PacketID: p.PacketID, ReasonCode: ReasonPacketIDNotFound}}
		s.send(s.transport, ack)
		return
	}
	delete(s.inflight, p.PacketID)
	s.metrics.inflightDepth(len(s.inflight))
	s.deliver(rec.topic, rec.inboundPayload)
	s.send(s.transport, &PubcompPacket{ackPacket: ackPacket{PacketID: p.PacketID}})
}

func (s *session) handlePubcomp(p *PubcompPacket) {
	rec, ok := s.inflight[p.PacketID]
	if !ok || rec.role != rolePubrecSent {
		s.logger.Warn("PUBCOMP for unknown packet id", LogFields{LogFieldPacketID: p.PacketID})
		return
	}
	delete(s.inflight, p.PacketID)
	s.packetIDs.release(p.PacketID)
	s.metrics.inflightDepth(len(s.inflight))

	c := s.completions[p.PacketID]
	delete(s.completions, p.PacketID)
	if c == nil {
		return
	}
	if p.ReasonCode.IsError() {
		c.resolve(nil, NewPublishError(rec.topic, p.PacketID, p.ReasonCode))
	} else {
		c.resolve(nil, nil)
	}
}

// subscribe drives spec.md section 4.5's single-filter SUBSCRIBE flow.
func (s *session) subscribe(filter string, opts SubscribeOptions) (ReasonCode, error) {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return 0, ErrClientClosed
	}

	id, err := s.packetIDs.allocate()
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}

	pkt := &SubscribePacket{PacketID: id, Filters: []SubscribeFilter{{Filter: filter, Options: opts}}}
	c := newCompletion(completionSubscribe)
	c.filter = filter
	s.completions[id] = c
	transport := s.transport
	s.mu.Unlock()

	if err := s.send(transport, pkt); err != nil {
		return 0, NewTransportError(err)
	}

	result, err := c.wait()
	if err != nil {
		return 0, err
	}
	return result.(ReasonCode), nil
}

func (s *session) handleSuback(p *SubackPacket) {
	c := s.completions[p.PacketID]
	delete(s.completions, p.PacketID)
	s.packetIDs.release(p.PacketID)
	if c == nil {
		s.logger.Warn("SUBACK for unknown packet id", LogFields{LogFieldPacketID: p.PacketID})
		return
	}
	if len(p.ReasonCodes) == 0 {
		c.resolve(nil, ErrMalformedPacket)
		return
	}
	rc := p.ReasonCodes[0]
	if rc.IsError() {
		c.resolve(ReasonCode(0), NewSubscribeError(c.filter, rc))
		return
	}
	c.resolve(rc, nil)
}

// unsubscribe drives spec.md section 4.5's single-filter UNSUBSCRIBE flow.
func (s *session) unsubscribe(filter string) error {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return ErrClientClosed
	}

	id, err := s.packetIDs.allocate()
	if err != nil {
		s.mu.Unlock()
		return err
	}

	pkt := &UnsubscribePacket{PacketID: id, Filters: []string{filter}}
	c := newCompletion(completionUnsubscribe)
	c.filter = filter
	s.completions[id] = c
	transport := s.transport
	s.mu.Unlock()

	if err := s.send(transport, pkt); err != nil {
		return NewTransportError(err)
	}

	_, err = c.wait()
	return err
}

func (s *session) handleUnsuback(p *UnsubackPacket) {
	c := s.completions[p.PacketID]
	delete(s.completions, p.PacketID)
	s.packetIDs.release(p.PacketID)
	if c == nil {
		s.logger.Warn("UNSUBACK for unknown packet id", LogFields{LogFieldPacketID: p.PacketID})
		return
	}
	if len(p.ReasonCodes) == 0 {
		c.resolve(nil, ErrMalformedPacket)
		return
	}
	rc := p.ReasonCodes[0]
	if rc.IsError() {
		c.resolve(nil, NewUnsubscribeError(c.filter, rc))
		return
	}
	c.resolve(nil, nil)
}

// generateClientID builds a client identifier for callers that pass one
// containing '%' placeholders, spec.md section 6: each '%' becomes two
// uppercase hex digits of a random byte.
func generateClientID(template string) (string, error) {
	if !strings.Contains(template, "%") {
		return template, nil
	}
	var buf strings.Builder
	for _, r := range template {
		if r != '%' {
			buf.WriteRune(r)
			continue
		}
		var b [1]byte
		if _, err := rand.Read(b[:]); err != nil {
			return "", err
		}
		fmt.Fprintf(&buf, "%02X", b[0])
	}
	return buf.String(), nil
}
