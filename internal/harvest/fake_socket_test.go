package harvest

import (
	"net"
	"time"

	"timeroast/internal/ntp"
	"timeroast/internal/targets"
)

// datagram is a queued inbound packet, visible once at has passed.
type datagram struct {
	at   time.Time
	data []byte
}

// fakeSocket is an in-memory Socket. onWrite may queue replies through
// deliver; WaitReadable sleeps like a real poll would.
type fakeSocket struct {
	local   *net.UDPAddr
	peer    *net.UDPAddr
	inbox   []datagram
	sent    [][]byte
	closed  int
	onWrite func(s *fakeSocket, b []byte)
}

func newFakeSocket(onWrite func(s *fakeSocket, b []byte)) *fakeSocket {
	return &fakeSocket{
		local:   &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40123},
		peer:    &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: ntp.Port},
		onWrite: onWrite,
	}
}

func (s *fakeSocket) listen(int) (Socket, error) { return s, nil }

func (s *fakeSocket) deliver(delay time.Duration, b []byte) {
	s.inbox = append(s.inbox, datagram{at: time.Now().Add(delay), data: append([]byte(nil), b...)})
}

func (s *fakeSocket) WriteTo(b []byte, addr net.Addr) (int, error) {
	s.sent = append(s.sent, append([]byte(nil), b...))
	if s.onWrite != nil {
		s.onWrite(s, b)
	}
	return len(b), nil
}

// ready returns the index of the first deliverable datagram, or -1, and
// the time until the earliest pending one.
func (s *fakeSocket) ready() (int, time.Duration) {
	now := time.Now()
	next := time.Duration(-1)
	for i, d := range s.inbox {
		if !d.at.After(now) {
			return i, 0
		}
		if wait := d.at.Sub(now); next < 0 || wait < next {
			next = wait
		}
	}
	return -1, next
}

func (s *fakeSocket) WaitReadable(timeout time.Duration) (bool, error) {
	i, next := s.ready()
	if i >= 0 {
		return true, nil
	}
	if next >= 0 && next < timeout {
		time.Sleep(next)
		return true, nil
	}
	time.Sleep(timeout)
	i, _ = s.ready()
	return i >= 0, nil
}

func (s *fakeSocket) ReadFrom(b []byte) (int, net.Addr, error) {
	i, _ := s.ready()
	if i < 0 {
		return 0, nil, net.ErrClosed
	}
	d := s.inbox[i]
	s.inbox = append(s.inbox[:i], s.inbox[i+1:]...)
	return copy(b, d.data), s.peer, nil
}

func (s *fakeSocket) LocalAddr() net.Addr { return s.local }

func (s *fakeSocket) Close() error {
	s.closed++
	return nil
}

// signedReply builds the reply a DC would send for a query, with a digest
// and salt derived from the RID so results can be checked.
func signedReply(q []byte, flag uint32) []byte {
	rid, ok := ntp.QueryRID(q, ntp.DefaultTemplate.Len(), flag)
	if !ok {
		return nil
	}
	return ntp.EncodeReply(testReply(rid), flag)
}

func testReply(rid uint32) ntp.Reply {
	r := ntp.Reply{RID: rid}
	for i := range r.Hash {
		r.Hash[i] = byte(rid) + byte(i)
	}
	for i := range r.Salt {
		r.Salt[i] = byte(rid>>8) ^ byte(i)
	}
	r.Salt[0] = 0x1c
	return r
}

// echo replies to every query immediately, repeating each reply n times.
func echo(n int, flag uint32) func(s *fakeSocket, b []byte) {
	return func(s *fakeSocket, b []byte) {
		reply := signedReply(b, flag)
		for i := 0; i < n; i++ {
			s.deliver(0, reply)
		}
	}
}

// ridList yields a fixed RID sequence.
type ridList []uint32

func ridSeq(rids ...uint32) *ridList {
	l := ridList(rids)
	return &l
}

func (l *ridList) Next() (uint32, bool) {
	if len(*l) == 0 {
		return 0, false
	}
	rid := (*l)[0]
	*l = (*l)[1:]
	return rid, true
}

// allRIDs walks the whole 32-bit space; runs over it end by giving up.
func allRIDs() targets.Iterator {
	return targets.NewRangeIterator(targets.Range{First: 0, Last: ^uint32(0)})
}
