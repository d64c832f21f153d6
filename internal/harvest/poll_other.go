//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package harvest

import (
	"errors"
	"net"
	"os"
	"time"

	"timeroast/internal/ntp"
)

// udpSocket emulates a readiness wait with a deadline-bounded read; the
// datagram is held until the following ReadFrom.
type udpSocket struct {
	*net.UDPConn
	buf     [ntp.MaxReadLen]byte
	n       int
	from    net.Addr
	pending bool
}

func newUDPSocket(c *net.UDPConn) (*udpSocket, error) {
	return &udpSocket{UDPConn: c}, nil
}

func (s *udpSocket) WaitReadable(timeout time.Duration) (bool, error) {
	if s.pending {
		return true, nil
	}
	if err := s.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return false, err
	}
	n, from, err := s.UDPConn.ReadFrom(s.buf[:])
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.n, s.from, s.pending = n, from, true
	return true, nil
}

func (s *udpSocket) ReadFrom(b []byte) (int, net.Addr, error) {
	if !s.pending {
		return s.UDPConn.ReadFrom(b)
	}
	s.pending = false
	return copy(b, s.buf[:s.n]), s.from, nil
}
