package admin

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKillCommandTriggersCallback(t *testing.T) {
	killed := make(chan struct{}, 1)
	l, err := Listen("127.0.0.1:0", 5, func() { killed <- struct{}{} })
	require.NoError(t, err)
	defer l.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("KILL"))
	require.NoError(t, err)
	conn.Close()

	select {
	case <-killed:
	case <-time.After(time.Second):
		t.Fatal("KILL did not trigger callback")
	}
}

func TestOtherCommandIgnored(t *testing.T) {
	killed := make(chan struct{}, 1)
	l, err := Listen("127.0.0.1:0", 5, func() { killed <- struct{}{} })
	require.NoError(t, err)
	defer l.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("PING"))
	require.NoError(t, err)
	conn.Close()

	select {
	case <-killed:
		t.Fatal("unexpected kill")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Empty(t, killed)
}
