//go:build darwin || freebsd || netbsd || openbsd

package harvest

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollIn waits up to d for fd to become readable. poll(2) counts whole
// milliseconds; d is rounded down so the wait never overshoots.
func pollIn(fd int32, d time.Duration) (int, error) {
	ms := int(d / time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	fds := []unix.PollFd{{Fd: fd, Events: unix.POLLIN}}
	return unix.Poll(fds, ms)
}
