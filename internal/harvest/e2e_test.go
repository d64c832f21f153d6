package harvest

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"timeroast/internal/ntp"
	"timeroast/internal/targets"
)

// fakeDC answers MS-SNTP queries on loopback for RIDs in accounts. Each
// valid query is answered twice and followed by a stray short datagram.
type fakeDC struct {
	conn     *net.UDPConn
	accounts map[uint32]bool
	wg       sync.WaitGroup

	mu      sync.Mutex
	queries int
}

func startFakeDC(t *testing.T, accounts ...uint32) *fakeDC {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	dc := &fakeDC{conn: conn, accounts: make(map[uint32]bool)}
	for _, rid := range accounts {
		dc.accounts[rid] = true
	}
	dc.wg.Add(1)
	go dc.serve()
	t.Cleanup(func() {
		conn.Close()
		dc.wg.Wait()
	})
	return dc
}

func (dc *fakeDC) port() int { return dc.conn.LocalAddr().(*net.UDPAddr).Port }

func (dc *fakeDC) serve() {
	defer dc.wg.Done()
	buf := make([]byte, 512)
	for {
		n, from, err := dc.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		dc.mu.Lock()
		dc.queries++
		dc.mu.Unlock()

		q := buf[:n]
		rid, ok := ntp.QueryRID(q, ntp.DefaultTemplate.Len(), 0)
		if !ok || !dc.accounts[rid] {
			continue
		}
		reply := signedReply(q, 0)
		dc.conn.WriteToUDP(reply, from)
		dc.conn.WriteToUDP(reply, from)
		dc.conn.WriteToUDP(reply[:48], from)
	}
}

func TestHarvestLoopback(t *testing.T) {
	dc := startFakeDC(t, 1000, 1001, 1105)

	h := New(Options{Rate: 500, GiveUp: 300 * time.Millisecond, Port: dc.port()})
	run, err := h.Start(context.Background(), "127.0.0.1", targets.NewRangeIterator(targets.Range{First: 995, Last: 1110}))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer run.Close()

	got := make(map[uint32]Result)
	for run.Next() {
		res := run.Result()
		if _, dup := got[res.RID]; dup {
			t.Errorf("RID %d yielded twice", res.RID)
		}
		got[res.RID] = res
	}
	if err := run.Err(); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("Expected 3 harvested RIDs, got %d", len(got))
	}
	for _, rid := range []uint32{1000, 1001, 1105} {
		res, ok := got[rid]
		if !ok {
			t.Errorf("Missing RID %d", rid)
			continue
		}
		if res.Hash != testReply(rid).Hash {
			t.Errorf("RID %d: wrong digest", rid)
		}
	}

	snap := h.Stats().Snapshot()
	if snap.Sent != 116 {
		t.Errorf("Expected 116 probes, got %d", snap.Sent)
	}
	if snap.Duplicates != 3 {
		t.Errorf("Expected 3 duplicates, got %d", snap.Duplicates)
	}
	if snap.Malformed != 3 {
		t.Errorf("Expected 3 short datagrams, got %d", snap.Malformed)
	}
}

func TestHarvestLoopbackSilentHost(t *testing.T) {
	dc := startFakeDC(t)

	start := time.Now()
	h := New(Options{Rate: 200, GiveUp: 200 * time.Millisecond, Port: dc.port()})
	run, err := h.Start(context.Background(), "127.0.0.1", allRIDs())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	results, err := run.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond || elapsed > time.Second {
		t.Errorf("Expected give-up after about 200ms, took %v", elapsed)
	}
}

func TestHarvestLoopbackSendsAtRate(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	for _, rate := range []int{180, 400, 2000} {
		dc := startFakeDC(t)
		giveUp := time.Second

		h := New(Options{Rate: rate, GiveUp: giveUp, Port: dc.port()})
		run, err := h.Start(context.Background(), "127.0.0.1", allRIDs())
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := run.Collect(); err != nil {
			t.Fatalf("Collect: %v", err)
		}

		sent := float64(h.Stats().Sent.Load())
		want := float64(rate) * giveUp.Seconds()
		if sent < 0.95*want || sent > want+2 {
			t.Errorf("rate=%d: Expected about %.0f probes in %v, got %.0f", rate, want, giveUp, sent)
		}
	}
}
