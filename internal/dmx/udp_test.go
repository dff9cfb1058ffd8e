package dmx

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenLoopback(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestUDPSenderDeliversDatagrams(t *testing.T) {
	receiver := listenLoopback(t)
	port := receiver.LocalAddr().(*net.UDPAddr).Port

	sender := NewUDPSender("127.0.0.1", port)
	defer sender.Close()

	packet, err := Encode([]uint8{10, 20, 30})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, sender.Send(packet))

		buf := make([]byte, 2*FrameSize)
		require.NoError(t, receiver.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, err := receiver.ReadFromUDP(buf)
		require.NoError(t, err)
		assert.Equal(t, packet, buf[:n])
	}
}

func TestUDPSenderReportsNetworkErrors(t *testing.T) {
	dialErr := errors.New("no route to host")
	sender := NewUDPSender("192.0.2.1", 6038)
	sender.dial = func(network, address string) (net.Conn, error) {
		return nil, dialErr
	}

	err := sender.Send([]byte{1})
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "192.0.2.1:6038", netErr.Addr)
	assert.ErrorIs(t, err, dialErr)
}

func TestUDPSenderRedialsAfterWriteFailure(t *testing.T) {
	dials := 0
	sender := NewUDPSender("127.0.0.1", 1)
	sender.dial = func(network, address string) (net.Conn, error) {
		dials++
		client, server := net.Pipe()
		server.Close()
		return client, nil
	}

	assert.Error(t, sender.Send([]byte{1}))
	assert.Error(t, sender.Send([]byte{1}))
	assert.Equal(t, 2, dials)
	assert.NoError(t, sender.Close())
}
