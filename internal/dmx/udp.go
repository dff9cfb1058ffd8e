package dmx

import (
	"fmt"
	"net"
	"strconv"
	"sync"
)

// NetworkError reports a failed datagram send. It is never fatal to the caller.
type NetworkError struct {
	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UDPSender delivers frames to the supply as single best-effort datagrams. The
// socket is opened lazily and reused; a failed write drops it so the next send
// dials again.
type UDPSender struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
	dial func(network, address string) (net.Conn, error)
}

func NewUDPSender(host string, port int) *UDPSender {
	return &UDPSender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		dial: net.Dial,
	}
}

func (s *UDPSender) Addr() string {
	return s.addr
}

func (s *UDPSender) Send(packet []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		conn, err := s.dial("udp", s.addr)
		if err != nil {
			return &NetworkError{Addr: s.addr, Err: err}
		}
		s.conn = conn
	}

	if _, err := s.conn.Write(packet); err != nil {
		s.conn.Close()
		s.conn = nil
		return &NetworkError{Addr: s.addr, Err: err}
	}
	return nil
}

func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
