package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const maxRows = 10000

// Views
const (
	ViewHashes = 0
	ViewHosts  = 1
)

// Host states
const (
	hostPending = "pending"
	hostActive  = "active"
	hostDone    = "done"
	hostSkipped = "skipped"
)

// hashRow is a single harvested hash.
type hashRow struct {
	Seq     int
	Host    string
	RID     uint32
	Hashcat string
}

// hostRow tracks campaign progress for one host.
type hostRow struct {
	Host    string
	State   string
	Batch   int // batches finished
	First   uint32
	Last    uint32
	Found   int
	Message string
}

type Model struct {
	// Config
	Target  string
	RIDSpec string

	// Data
	hashes  []*hashRow
	nextSeq int
	hosts   []*hostRow

	// Stats
	stats Stats

	// Cumulative counters (survive eviction)
	totalHashes uint64
	batchesDone int
	skipped     int
	hostCount   int
	batchCount  int

	// Discovery sparkline
	sparkBuf    [60]uint64 // ring buffer: hashes per sample
	sparkIdx    int        // next write index
	sparkPrev   uint64     // previous totalHashes snapshot
	sparkFilled int        // how many slots are filled

	// View state
	view       int
	cursor     int  // index into filtered view
	offset     int  // scroll offset
	follow     bool // auto-follow new results
	searching  bool // typing in search box
	searchText string
	filtered   []*hashRow // cached filtered view

	// Terminal
	width, height int
	done          bool
	quitting      bool
}

func NewModel(target, ridSpec string, hostCount, batchCount int) Model {
	return Model{
		Target:     target,
		RIDSpec:    ridSpec,
		hostCount:  hostCount,
		batchCount: batchCount,
		hashes:     make([]*hashRow, 0, 1024),
		follow:     true,
	}
}

// Quitting reports whether the user asked to quit before the campaign ended.
func (m Model) Quitting() bool { return m.quitting }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateNormal(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.rebuildFiltered()

	case Event:
		m.handleEvent(msg)
		if m.done {
			return m, tea.Quit
		}
		m.rebuildFiltered()
		if m.follow {
			m.cursorToEnd()
		}

	case Stats:
		m.stats = msg
		m.tickSparkline()
	}

	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "1":
		m.view = ViewHashes
	case "2":
		m.view = ViewHosts
	case "tab":
		m.view = (m.view + 1) % 2
	case "up", "k":
		m.follow = false
		if m.cursor > 0 {
			m.cursor--
		}
		m.ensureVisible()
	case "down", "j":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		m.ensureVisible()
	case "pgup":
		m.follow = false
		m.cursor -= m.visibleRows()
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.ensureVisible()
	case "pgdown":
		m.cursor += m.visibleRows()
		m.clampCursor()
	case "g", "home":
		m.follow = false
		m.cursor = 0
		m.offset = 0
	case "G", "end":
		m.follow = true
		m.cursorToEnd()
	case "f":
		m.follow = !m.follow
		if m.follow {
			m.cursorToEnd()
		}
	case "/":
		m.searching = true
	case "esc":
		m.searchText = ""
		m.rebuildFiltered()
		m.clampCursor()
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
	case tea.KeyEsc:
		m.searching = false
		m.searchText = ""
	case tea.KeyBackspace:
		if len(m.searchText) > 0 {
			m.searchText = m.searchText[:len(m.searchText)-1]
		}
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyRunes:
		m.searchText += string(msg.Runes)
	}
	m.rebuildFiltered()
	m.clampCursor()
	return m, nil
}

func (m *Model) handleEvent(ev Event) {
	if ev.HostCount > m.hostCount {
		m.hostCount = ev.HostCount
	}
	if ev.BatchCount > m.batchCount {
		m.batchCount = ev.BatchCount
	}

	switch ev.Type {
	case EvtHostStart:
		h := m.host(ev)
		h.State = hostActive
	case EvtHostSkipped:
		h := m.host(ev)
		h.State = hostSkipped
		h.Message = ev.Msg
		m.skipped++
	case EvtHostDone:
		h := m.host(ev)
		h.State = hostDone
		h.Found = ev.Found
	case EvtBatchStart:
		h := m.host(ev)
		h.First, h.Last = ev.First, ev.Last
	case EvtBatchDone:
		h := m.host(ev)
		h.Batch = ev.BatchIndex + 1
		m.batchesDone++
	case EvtHash:
		h := m.host(ev)
		h.Found++
		m.hashes = append(m.hashes, &hashRow{
			Seq:     m.nextSeq,
			Host:    ev.Host,
			RID:     ev.RID,
			Hashcat: ev.Hashcat,
		})
		m.nextSeq++
		m.totalHashes++
		m.evictOld()
	case EvtDone:
		m.done = true
	}
}

// host returns the row for the event's host, growing the table as needed.
func (m *Model) host(ev Event) *hostRow {
	for len(m.hosts) <= ev.HostIndex {
		m.hosts = append(m.hosts, &hostRow{State: hostPending})
	}
	h := m.hosts[ev.HostIndex]
	if h.Host == "" {
		h.Host = ev.Host
	}
	return h
}

func (m *Model) evictOld() {
	if len(m.hashes) <= maxRows {
		return
	}
	drop := len(m.hashes) - maxRows
	m.hashes = append(m.hashes[:0], m.hashes[drop:]...)
}

// Progress is the fraction of host batches finished or skipped.
func (m Model) Progress() float64 {
	total := m.hostCount * m.batchCount
	if total == 0 {
		return 0
	}
	p := float64(m.batchesDone+m.skipped*m.batchCount) / float64(total)
	if p > 1 {
		p = 1
	}
	return p
}

// ── Sparkline ────────────────────────────────────────────────────────

func (m *Model) tickSparkline() {
	cur := m.totalHashes
	delta := cur - m.sparkPrev
	m.sparkPrev = cur
	m.sparkBuf[m.sparkIdx] = delta
	m.sparkIdx = (m.sparkIdx + 1) % 60
	if m.sparkFilled < 60 {
		m.sparkFilled++
	}
}

func (m Model) renderSparkline() string {
	if m.sparkFilled == 0 {
		return ""
	}
	sparks := []rune("▁▂▃▄▅▆▇█")
	var maxVal uint64
	for i := 0; i < m.sparkFilled; i++ {
		idx := (m.sparkIdx - m.sparkFilled + i + 60) % 60
		if m.sparkBuf[idx] > maxVal {
			maxVal = m.sparkBuf[idx]
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	var sb strings.Builder
	for i := 0; i < m.sparkFilled; i++ {
		idx := (m.sparkIdx - m.sparkFilled + i + 60) % 60
		level := int(m.sparkBuf[idx] * 7 / maxVal)
		if level > 7 {
			level = 7
		}
		sb.WriteRune(sparks[level])
	}
	return sb.String()
}

func (m *Model) rebuildFiltered() {
	m.filtered = m.filtered[:0]
	needle := strings.ToLower(m.searchText)
	for _, row := range m.hashes {
		if needle != "" {
			hay := strings.ToLower(fmt.Sprintf("%s %d", row.Host, row.RID))
			if !strings.Contains(hay, needle) {
				continue
			}
		}
		m.filtered = append(m.filtered, row)
	}
}

func (m *Model) clampCursor() {
	if len(m.filtered) == 0 {
		m.cursor = 0
		m.offset = 0
		return
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = len(m.filtered) - 1
	}
	m.ensureVisible()
}

func (m *Model) cursorToEnd() {
	if len(m.filtered) > 0 {
		m.cursor = len(m.filtered) - 1
	} else {
		m.cursor = 0
	}
	m.ensureVisible()
}

func (m *Model) ensureVisible() {
	vis := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+vis {
		m.offset = m.cursor - vis + 1
	}
}

// visibleRows returns how many table rows fit on screen.
// Layout: 3 header lines + 1 col header + 1 separator + table + 1 separator + 2 detail + 1 help
func (m Model) visibleRows() int {
	rows := m.height - (3 + 1 + 1 + 1 + 2 + 1)
	if rows < 1 {
		rows = 1
	}
	return rows
}

// ── View ──────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.quitting || m.done {
		return ""
	}

	w := m.width
	if w < 40 {
		w = 80
	}

	var b strings.Builder
	m.renderHeader(&b, w)
	m.renderProgress(&b, w)
	m.renderTabs(&b, w)
	if m.view == ViewHosts {
		m.renderHosts(&b, w)
	} else {
		m.renderHashes(&b, w)
		m.renderDetail(&b, w)
	}
	m.renderHelp(&b, w)
	return b.String()
}

func (m Model) renderHeader(b *strings.Builder, w int) {
	title := styleAccent.Render("timeroast")
	meta := styleDim.Render(fmt.Sprintf(" %s · RIDs %s", truncStr(m.Target, 40), truncStr(m.RIDSpec, 30)))
	b.WriteString(" " + title + meta + "\n")
}

func (m Model) renderProgress(b *strings.Builder, w int) {
	barW := 20
	if w > 120 {
		barW = 30
	}
	progress := m.Progress()
	filled := int(progress * float64(barW))
	if filled > barW {
		filled = barW
	}
	bar := styleBar.Render(strings.Repeat("█", filled)) + styleBarTrail.Render(strings.Repeat("░", barW-filled))
	pct := fmt.Sprintf("%3.0f%%", progress*100)

	eta := ""
	if progress > 0.001 && progress < 1 {
		rem := m.stats.Elapsed.Seconds() * (1 - progress) / progress
		if rem < 60 {
			eta = fmt.Sprintf(" ETA %0.0fs", rem)
		} else {
			eta = fmt.Sprintf(" ETA %dm%02ds", int(rem)/60, int(rem)%60)
		}
	}

	spark := m.renderSparkline()
	sparkStr := ""
	if spark != "" {
		sparkStr = " " + styleBar.Render(spark)
	}

	stats := fmt.Sprintf("  %s/s  Sent %s  Recv %s  Hashes%s %s  Dup %s  Noise %s",
		fmtCompact(uint64(m.stats.Rate)),
		fmtCompact(m.stats.Sent),
		fmtCompact(m.stats.Received),
		sparkStr,
		fmtCompact(m.totalHashes),
		fmtCompact(m.stats.Duplicates),
		fmtCompact(m.stats.Malformed))

	elapsed := m.stats.Elapsed.Truncate(time.Second).String()
	b.WriteString(fmt.Sprintf(" %s %s%s%s  %s\n", bar, pct, eta, styleDim.Render(stats), styleDim.Render(elapsed)))
}

func (m Model) renderTabs(b *strings.Builder, w int) {
	tabs := " " + m.renderTab("1:Hashes", int(m.totalHashes), ViewHashes) +
		" " + m.renderTab("2:Hosts", m.hostCount, ViewHosts)

	search := ""
	if m.searching {
		search = styleFilterBox.Render("  /" + m.searchText + "▌")
	} else if m.searchText != "" {
		search = styleDim.Render("  /") + styleFilterBox.Render(m.searchText)
	}
	followInd := ""
	if m.follow {
		followInd = styleDim.Render("  [follow]")
	}
	b.WriteString(tabs + search + followInd + "\n")
}

func (m Model) renderTab(label string, count int, view int) string {
	text := fmt.Sprintf(" %s:%d ", label, count)
	if m.view == view {
		return styleTabActive.Render(text)
	}
	return styleTabInactive.Render(text)
}

// Column widths
const (
	colHost  = 24
	colRID   = 10
	colState = 9
	colBatch = 12
)

func (m Model) renderHashes(b *strings.Builder, w int) {
	line := fmt.Sprintf(" %-*s %-*s %s", colHost, "HOST", colRID, "RID", "HASH")
	b.WriteString(styleColHeader.Render(line) + "\n")
	b.WriteString(styleSep.Render(" "+strings.Repeat("─", w-2)) + "\n")

	hashW := w - colHost - colRID - 4
	if hashW < 10 {
		hashW = 10
	}
	vis := m.visibleRows()
	end := m.offset + vis
	if end > len(m.filtered) {
		end = len(m.filtered)
	}
	for i := m.offset; i < end; i++ {
		row := m.filtered[i]
		host := padRight(row.Host, colHost)
		rid := padRight(fmt.Sprintf("%d", row.RID), colRID)
		hash := truncStr(row.Hashcat, hashW)
		if i == m.cursor {
			content := fmt.Sprintf("%s %s %s", host, rid, hash)
			b.WriteString(styleAccent.Render("▸") + styleCursor.Render(truncStr(content, w-2)) + "\n")
			continue
		}
		b.WriteString(fmt.Sprintf(" %s %s %s\n", host, styleRID.Render(rid), styleHash.Render(hash)))
	}
	for i := end - m.offset; i < vis; i++ {
		b.WriteString(styleDim.Render(" ~") + "\n")
	}
}

func (m Model) renderHosts(b *strings.Builder, w int) {
	line := fmt.Sprintf(" %-*s %-*s %-*s %-*s %s", colHost, "HOST", colState, "STATE", colBatch, "BATCHES", colBatch, "RIDS", "HASHES")
	b.WriteString(styleColHeader.Render(line) + "\n")
	b.WriteString(styleSep.Render(" "+strings.Repeat("─", w-2)) + "\n")

	vis := m.visibleRows() + 3
	shown := 0
	for _, h := range m.hosts {
		if shown >= vis {
			break
		}
		state := padRight(h.State, colState)
		switch h.State {
		case hostActive:
			state = styleActive.Render(state)
		case hostDone:
			state = styleDone.Render(state)
		case hostSkipped:
			state = styleSkipped.Render(state)
		}
		batches := padRight(fmt.Sprintf("%d/%d", h.Batch, m.batchCount), colBatch)
		rids := ""
		if h.State == hostActive {
			rids = fmt.Sprintf("%d-%d", h.First, h.Last)
		}
		tail := fmt.Sprintf("%d", h.Found)
		if h.State == hostSkipped {
			tail = styleDim.Render(truncStr(h.Message, w-colHost-colState-2*colBatch-6))
		}
		b.WriteString(fmt.Sprintf(" %s %s %s %s %s\n", padRight(h.Host, colHost), state, batches, padRight(rids, colBatch), tail))
		shown++
	}
	for i := shown; i < vis; i++ {
		b.WriteString(styleDim.Render(" ~") + "\n")
	}
}

func (m Model) renderDetail(b *strings.Builder, w int) {
	b.WriteString(styleSep.Render(" "+strings.Repeat("─", w-2)) + "\n")
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		b.WriteString("\n")
		return
	}
	// Full line, so it can be copied out of the terminal.
	b.WriteString(" " + styleDetailText.Render(m.filtered[m.cursor].Hashcat) + "\n")
}

func (m Model) renderHelp(b *strings.Builder, w int) {
	help := " q:quit  ↑↓/jk:scroll  g/G:top/end  1-2/tab:view  /:search  f:follow"
	b.WriteString(styleHelp.Render(truncStr(help, w)))
}

// ── Formatting helpers ────────────────────────────────────────────────

func fmtNum(n uint64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1_000_000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1_000_000, (n/1000)%1000, n%1000)
}

func fmtCompact(n uint64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 10_000 {
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	if n < 1_000_000 {
		return fmt.Sprintf("%.0fk", float64(n)/1000)
	}
	if n < 10_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	return fmt.Sprintf("%.0fM", float64(n)/1_000_000)
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s[:w]
	}
	return s + strings.Repeat(" ", w-len(s))
}

func truncStr(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if len(s) <= w {
		return s
	}
	if w < 2 {
		return s[:w]
	}
	return s[:w-1] + "…"
}

// ── TextPrinter (non-TUI mode) ───────────────────────────────────────

// TextPrinter writes campaign progress as plain lines. A stats line, when
// printed, is redrawn in place and cleared before the next event line.
type TextPrinter struct {
	Verbose bool
	Out     io.Writer

	statusShown bool
}

func (p *TextPrinter) PrintEvent(ev Event) {
	switch ev.Type {
	case EvtHostStart:
		p.println(fmt.Sprintf("[+] Processing host %d/%d: %s", ev.HostIndex+1, ev.HostCount, ev.Host))
	case EvtHostSkipped:
		p.println(fmt.Sprintf("[-] Skipping host %d/%d: %s (%s)", ev.HostIndex+1, ev.HostCount, ev.Host, ev.Msg))
	case EvtBatchStart:
		p.println(fmt.Sprintf("    Checking RIDs %d-%d...", ev.First, ev.Last))
	case EvtHash:
		if p.Verbose {
			p.println(fmt.Sprintf("        Found hash for RID %d: %s", ev.RID, ev.Hashcat))
		} else {
			p.println(fmt.Sprintf("        Found hash for RID %d", ev.RID))
		}
	case EvtHostDone:
		p.println(fmt.Sprintf("[*] %s: %d hashes", ev.Host, ev.Found))
	case EvtInfo:
		p.println(ev.Msg)
	}
}

func (p *TextPrinter) PrintStats(s Stats) {
	fmt.Fprintf(p.Out, "\r\x1b[K%.0f/s | Sent: %s | Recv: %s | Hashes: %s | Dups: %s | Noise: %s",
		s.Rate, fmtNum(s.Sent), fmtNum(s.Received), fmtNum(s.Harvested), fmtNum(s.Duplicates), fmtNum(s.Malformed))
	p.statusShown = true
}

func (p *TextPrinter) println(line string) {
	if p.statusShown {
		io.WriteString(p.Out, "\r\x1b[K")
		p.statusShown = false
	}
	fmt.Fprintln(p.Out, line)
}
