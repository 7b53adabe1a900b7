package nextmqtt

import "errors"

// Sentinel base errors for the operation-level failures, checkable with
// errors.Is. Each concrete error type below wraps one of these.
var (
	// ErrConnectFailed is the base for a failed connect() completion.
	ErrConnectFailed = errors.New("nextmqtt: connect failed")

	// ErrSubscribeFailed is the base for a failed subscribe() completion.
	ErrSubscribeFailed = errors.New("nextmqtt: subscribe failed")

	// ErrUnsubscribeFailed is the base for a failed unsubscribe() completion.
	ErrUnsubscribeFailed = errors.New("nextmqtt: unsubscribe failed")

	// ErrPublishFailed is the base for a failed publish() completion.
	ErrPublishFailed = errors.New("nextmqtt: publish failed")

	// ErrClientClosed is returned to every pending completion when
	// disconnect() cancels the session.
	ErrClientClosed = errors.New("nextmqtt: client closed")

	// ErrTransport wraps an opaque cause reported by the transport adapter.
	ErrTransport = errors.New("nextmqtt: transport error")

	// ErrProtocolError is surfaced when the broker violates a session
	// invariant this client relies on (e.g. session-present mismatch).
	ErrProtocolError = errors.New("nextmqtt: protocol error")
)

// ConnectError reports why connect() did not complete successfully.
// Extract the reason code with errors.As.
type ConnectError struct {
	err        error
	ReasonCode ReasonCode
}

func (e *ConnectError) Error() string { return "connect failed: " + e.ReasonCode.String() }
func (e *ConnectError) Unwrap() error { return e.err }

// NewConnectError builds a ConnectError from a CONNACK reason code.
func NewConnectError(reason ReasonCode) *ConnectError {
	return &ConnectError{err: ErrConnectFailed, ReasonCode: reason}
}

// SubscribeError reports why subscribe() did not complete successfully.
type SubscribeError struct {
	err        error
	Filter     string
	ReasonCode ReasonCode
}

func (e *SubscribeError) Error() string { return "subscribe failed: " + e.ReasonCode.String() }
func (e *SubscribeError) Unwrap() error { return e.err }

// NewSubscribeError builds a SubscribeError from a SUBACK reason code.
func NewSubscribeError(filter string, reason ReasonCode) *SubscribeError {
	return &SubscribeError{err: ErrSubscribeFailed, Filter: filter, ReasonCode: reason}
}

// UnsubscribeError reports why unsubscribe() did not complete successfully.
type UnsubscribeError struct {
	err        error
	Filter     string
	ReasonCode ReasonCode
}

func (e *UnsubscribeError) Error() string { return "unsubscribe failed: " + e.ReasonCode.String() }
func (e *UnsubscribeError) Unwrap() error { return e.err }

// NewUnsubscribeError builds an UnsubscribeError from an UNSUBACK reason code.
func NewUnsubscribeError(filter string, reason ReasonCode) *UnsubscribeError {
	return &UnsubscribeError{err: ErrUnsubscribeFailed, Filter: filter, ReasonCode: reason}
}

// PublishError reports why publish() did not complete successfully. An ack
// carrying ReasonNoMatchingSubscribers is success-with-info per spec.md
// section 7, not a failure: publish() returns nil for it and builds no
// PublishError. Only reason codes >= 0x80 produce a PublishError.
type PublishError struct {
	err        error
	Topic      string
	PacketID   uint16
	ReasonCode ReasonCode
}

func (e *PublishError) Error() string { return "publish failed: " + e.ReasonCode.String() }
func (e *PublishError) Unwrap() error { return e.err }

// NewPublishError builds a PublishError from a PUBACK/PUBREC/PUBCOMP reason code.
func NewPublishError(topic string, packetID uint16, reason ReasonCode) *PublishError {
	return &PublishError{err: ErrPublishFailed, Topic: topic, PacketID: packetID, ReasonCode: reason}
}

// TransportError wraps an error reported by the transport adapter.
type TransportError struct {
	err   error
	Cause error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return "transport error: " + e.Cause.Error()
	}
	return "transport error"
}
func (e *TransportError) Unwrap() error { return e.err }

// NewTransportError wraps cause as a TransportError.
func NewTransportError(cause error) *TransportError {
	return &TransportError{err: ErrTransport, Cause: cause}
}
