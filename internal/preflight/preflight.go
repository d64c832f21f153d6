// Package preflight checks that a host answers plain NTP before a long
// harvest is pointed at it.
package preflight

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/beevik/ntp"
)

const DefaultTimeout = 3 * time.Second

// Result summarises an unauthenticated time query.
type Result struct {
	Host    string
	Stratum uint8
	RefID   uint32
	RTT     time.Duration
	Offset  time.Duration
}

func (r Result) String() string {
	return fmt.Sprintf("%s: stratum %d, rtt %v, offset %v", r.Host, r.Stratum, r.RTT, r.Offset)
}

// Check sends one NTP client request to host:port and validates the reply.
// A host that fails here is unlikely to be a domain controller running the
// Windows time service.
func Check(host string, port int, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	resp, err := ntp.QueryWithOptions(addr, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return Result{}, fmt.Errorf("ntp query %s: %w", addr, err)
	}
	if err := resp.Validate(); err != nil {
		return Result{}, fmt.Errorf("ntp reply from %s: %w", addr, err)
	}
	return Result{
		Host:    host,
		Stratum: resp.Stratum,
		RefID:   resp.ReferenceID,
		RTT:     resp.RTT,
		Offset:  resp.ClockOffset,
	}, nil
}
