//go:build linux || darwin || freebsd || netbsd || openbsd

package harvest

import (
	"errors"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// udpSocket waits for readability with poll(2) on the socket descriptor,
// leaving the read itself to the runtime's non-blocking UDPConn.
type udpSocket struct {
	*net.UDPConn
	raw syscall.RawConn
}

func newUDPSocket(c *net.UDPConn) (*udpSocket, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return nil, err
	}
	return &udpSocket{UDPConn: c, raw: raw}, nil
}

// WaitReadable never returns later than timeout. pollIn may wake early
// (signals, millisecond rounding), in which case the remainder is polled.
func (s *udpSocket) WaitReadable(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		var n int
		var perr error
		if err := s.raw.Control(func(fd uintptr) {
			n, perr = pollIn(int32(fd), time.Until(deadline))
		}); err != nil {
			return false, err
		}

		switch {
		case errors.Is(perr, unix.EINTR):
		case perr != nil:
			return false, os.NewSyscallError("poll", perr)
		case n > 0:
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
	}
}
