package harvest

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollIn waits up to d for fd to become readable, at nanosecond resolution.
func pollIn(fd int32, d time.Duration) (int, error) {
	if d < 0 {
		d = 0
	}
	ts := unix.NsecToTimespec(d.Nanoseconds())
	fds := []unix.PollFd{{Fd: fd, Events: unix.POLLIN}}
	return unix.Ppoll(fds, &ts, nil)
}
