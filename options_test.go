package nextmqtt

import (
	"crypto/tls"
	"testing"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	o := applyOptions()
	assert.Equal(t, uint16(20), o.pingInterval)
	assert.Equal(t, defaultMaxBuffer, o.maxBuffer)
	assert.False(t, o.secure)
	assert.False(t, o.cleanStart)
	assert.IsType(t, NoOpLogger{}, o.logger)
	assert.IsType(t, NoOpMetrics{}, o.metrics)
}

func TestWithCredentialsSetsHasAuth(t *testing.T) {
	o := applyOptions(WithCredentials("alice", "secret"))
	assert.True(t, o.hasAuth)
	assert.Equal(t, "alice", o.username)
	assert.Equal(t, []byte("secret"), o.password)
}

func TestResolveDialerDefaultsToTCP(t *testing.T) {
	o := applyOptions()
	d, ok := o.resolveDialer().(*TCPDialer)
	require.True(t, ok)
	assert.Nil(t, d.TLSConfig)
}

func TestResolveDialerSecureUsesTLS(t *testing.T) {
	o := applyOptions(WithSecureConnection(true))
	d, ok := o.resolveDialer().(*TCPDialer)
	require.True(t, ok)
	assert.NotNil(t, d.TLSConfig)
}

// TestResolveDialerOrderIndependent checks that WithProxy doesn't capture
// maxBuffer/TLSConfig until resolveDialer is called, so option order
// doesn't matter.
func TestResolveDialerOrderIndependent(t *testing.T) {
	tlsCfg := &tls.Config{ServerName: "broker.example"}

	orderA := applyOptions(WithProxy("socks5://localhost:1080"), WithMaxBuffer(8192), WithTLSConfig(tlsCfg))
	orderB := applyOptions(WithMaxBuffer(8192), WithTLSConfig(tlsCfg), WithProxy("socks5://localhost:1080"))

	dA, ok := orderA.resolveDialer().(*ProxyDialer)
	require.True(t, ok)
	dB, ok := orderB.resolveDialer().(*ProxyDialer)
	require.True(t, ok)

	assert.Equal(t, dA.MaxBuffer, dB.MaxBuffer)
	assert.Equal(t, dA.TLSConfig, dB.TLSConfig)
	assert.Equal(t, 8192, dA.MaxBuffer)
}

func TestResolveDialerQUIC(t *testing.T) {
	o := applyOptions(WithQUICTransport(&quic.Config{}))
	_, ok := o.resolveDialer().(*QUICDialer)
	assert.True(t, ok)
}

func TestResolveDialerUnixSocket(t *testing.T) {
	o := applyOptions(WithUnixSocket(), WithMaxBuffer(2048))
	d, ok := o.resolveDialer().(*UnixDialer)
	require.True(t, ok)
	assert.Equal(t, 2048, d.MaxBuffer)
}

func TestResolveDialerExplicitOverridesEverything(t *testing.T) {
	custom := &fakeDialer{dialed: make(chan *fakeTransport, 1)}
	o := applyOptions(WithProxy("socks5://localhost:1080"), WithDialer(custom))
	assert.Same(t, Dialer(custom), o.resolveDialer())
}
