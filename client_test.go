package nextmqtt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExpandsClientIDTemplate(t *testing.T) {
	dialer := newFakeDialer()
	c, err := New("broker.example", 1883, WithClientID("device-%%%%"), WithDialer(dialer))
	require.NoError(t, err)

	id := c.session.opts.clientID
	assert.True(t, strings.HasPrefix(id, "device-"))
	assert.Len(t, id, len("device-")+8) // four '%' -> four hex-byte pairs
	assert.NotContains(t, id, "%")
}

func TestNewWithCredentials(t *testing.T) {
	c, err := NewWithCredentials("broker.example", 1883, "alice", "secret", WithDialer(newFakeDialer()))
	require.NoError(t, err)
	assert.True(t, c.session.opts.hasAuth)
	assert.Equal(t, "alice", c.session.opts.username)
}

func TestClientStateStartsNotConnected(t *testing.T) {
	c, err := New("broker.example", 1883, WithDialer(newFakeDialer()))
	require.NoError(t, err)
	assert.Equal(t, NotConnected, c.State())
}
