package resolver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLiteral(t *testing.T) {
	r := New(time.Second)

	ip, port, err := r.Resolve(context.Background(), "10.1.2.3:6969")
	require.NoError(t, err)
	assert.True(t, ip.Equal(net.IPv4(10, 1, 2, 3)))
	assert.Equal(t, 6969, port)

	ip, port, err = r.Resolve(context.Background(), "[::1]:80")
	require.NoError(t, err)
	assert.True(t, ip.Equal(net.IPv6loopback))
	assert.Equal(t, 80, port)
}

func TestResolveBadInput(t *testing.T) {
	r := New(time.Second)

	_, _, err := r.Resolve(context.Background(), "10.1.2.3")
	assert.Error(t, err)

	_, _, err = r.Resolve(context.Background(), "10.1.2.3:0")
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, _, err = r.Resolve(context.Background(), "10.1.2.3:70000")
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, _, err = r.Resolve(context.Background(), "10.1.2.3:http")
	assert.Error(t, err)
}

func TestDialContext(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	go func() {
		c, err := l.Accept()
		if err == nil {
			c.Close()
		}
	}()

	r := New(time.Second)
	c, err := r.DialContext(context.Background(), "tcp", l.Addr().String())
	require.NoError(t, err)
	c.Close()

	r.Refresh()
}
