package nextmqtt

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"
)

// Transport is the pluggable duplex byte channel the session domain drives
// (spec.md section 2 item 3, section 4 component 3). It is deliberately
// opaque to the session domain: the domain only ever calls Start/Send/Stop
// and reacts to the callbacks it registers, never reaching into how bytes
// actually cross the wire.
type Transport interface {
	// Start opens the connection and begins delivering inbound bytes to
	// onData. onClosed is invoked exactly once, with a nil error for a
	// clean Stop and a non-nil error for an unexpected close.
	Start(ctx context.Context, onData func([]byte), onClosed func(error)) error

	// Send writes chunk to the wire. The transport must preserve the
	// order in which Send is called (spec.md section 5, Ordering
	// guarantees).
	Send(chunk []byte) error

	// Stop closes the connection. It is idempotent.
	Stop() error
}

// Dialer produces a Transport for a given host:port pair. Concrete
// transports (plain TCP, proxied TCP, QUIC) each implement Dialer so the
// session engine can be constructed against any of them interchangeably.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (Transport, error)
}

// tcpConnTransport adapts a net.Conn (as produced by net.Dial, tls.Dial,
// a proxy dialer, or a QUIC stream wrapper) into a Transport. All of this
// module's concrete Dialers return one of these; only the dial step
// differs between them.
type tcpConnTransport struct {
	conn      net.Conn
	maxBuffer int
	stopped   bool
}

func newConnTransport(conn net.Conn, maxBuffer int) *tcpConnTransport {
	if maxBuffer <= 0 {
		maxBuffer = defaultMaxBuffer
	}
	return &tcpConnTransport{conn: conn, maxBuffer: maxBuffer}
}

func (t *tcpConnTransport) Start(ctx context.Context, onData func([]byte), onClosed func(error)) error {
	go t.readLoop(onData, onClosed)
	return nil
}

func (t *tcpConnTransport) readLoop(onData func([]byte), onClosed func(error)) {
	buf := make([]byte, t.maxBuffer)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			onData(chunk)
		}
		if err != nil {
			if t.stopped {
				onClosed(nil)
			} else {
				onClosed(err)
			}
			return
		}
	}
}

func (t *tcpConnTransport) Send(chunk []byte) error {
	_, err := t.conn.Write(chunk)
	return err
}

func (t *tcpConnTransport) Stop() error {
	t.stopped = true
	return t.conn.Close()
}

// TCPDialer dials a broker directly over TCP, or over TLS when secure is
// requested by the client options. Grounded on the teacher's TCPDialer /
// TLSDialer pair in transport.go; unified here into one Dialer since this
// client's secureConnection option is a bool rather than a swapped-in
// object.
type TCPDialer struct {
	TLSConfig      *tls.Config
	ConnectTimeout time.Duration
	MaxBuffer      int
}

func (d *TCPDialer) Dial(ctx context.Context, host string, port int) (Transport, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: d.ConnectTimeout}

	var conn net.Conn
	var err error
	if d.TLSConfig != nil {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: d.TLSConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}
	return newConnTransport(conn, d.MaxBuffer), nil
}

// UnixDialer connects to a broker over a Unix domain socket instead of
// TCP. Grounded on the teacher's transport_unix.go UnixDialer, adapted to
// this module's host/port Dialer shape: host carries the socket path and
// port is ignored, since a Unix socket address has no port component.
type UnixDialer struct {
	MaxBuffer int
}

func (d *UnixDialer) Dial(ctx context.Context, host string, _ int) (Transport, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", host)
	if err != nil {
		return nil, err
	}
	return newConnTransport(conn, d.MaxBuffer), nil
}

// defaultMaxBuffer is the fallback inbound chunk size (spec.md section 6,
// options.maxBuffer default).
const defaultMaxBuffer = 4096
