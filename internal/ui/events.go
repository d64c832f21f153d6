package ui

import "time"

// EventType classifies campaign events for the UI.
type EventType int

const (
	EvtHostStart EventType = iota
	EvtHostDone
	EvtHostSkipped
	EvtBatchStart
	EvtBatchDone
	EvtHash
	EvtStats
	EvtInfo
	EvtDone
)

// Event is a single event emitted by the campaign driver to the UI.
type Event struct {
	Type       EventType
	Host       string
	HostIndex  int // 0-based
	HostCount  int
	First      uint32 // batch bounds, inclusive
	Last       uint32
	BatchIndex int // 0-based
	BatchCount int
	RID        uint32
	Hashcat    string
	Found      int    // hashes for the host or batch just finished
	Msg        string // for EvtInfo and EvtHostSkipped
}

// Stats contains periodic counters for the UI.
type Stats struct {
	Sent       uint64
	Received   uint64
	Harvested  uint64
	Duplicates uint64
	Malformed  uint64
	Elapsed    time.Duration
	Rate       float64 // probes/s since the previous sample
}

// Mode selects the UI output mode.
type Mode int

const (
	ModeTUI    Mode = iota // full bubbletea interactive
	ModeText               // progress lines on stdout
	ModeSilent             // no terminal output
)
