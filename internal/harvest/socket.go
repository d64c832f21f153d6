package harvest

import (
	"fmt"
	"net"
	"time"
)

// Socket is the datagram endpoint a Run owns. WaitReadable is the only
// call allowed to block, and never for longer than its timeout.
type Socket interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
	WaitReadable(timeout time.Duration) (bool, error)
	ReadFrom(b []byte) (int, net.Addr, error)
	LocalAddr() net.Addr
	Close() error
}

// ListenFunc binds a Socket to a local port; 0 picks an ephemeral port.
type ListenFunc func(port int) (Socket, error)

// ListenUDP binds an IPv4 UDP socket on all interfaces.
func ListenUDP(port int) (Socket, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return nil, err
	}
	sock, err := newUDPSocket(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("udp socket: %w", err)
	}
	return sock, nil
}
