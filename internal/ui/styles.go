package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Header / chrome
	styleDim       = lipgloss.NewStyle().Faint(true)
	styleAccent    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true) // blue
	styleBar       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))            // green
	styleBarTrail  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))           // dark gray
	styleSep       = lipgloss.NewStyle().Faint(true)
	styleHelp      = lipgloss.NewStyle().Faint(true)
	styleFilterBox = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow

	// Table header
	styleColHeader = lipgloss.NewStyle().Bold(true).Faint(true)

	// Host states
	styleActive  = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
	styleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	styleSkipped = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // dark gray

	// Hash rows
	styleRID  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))  // magenta
	styleHash = lipgloss.NewStyle().Foreground(lipgloss.Color("250")) // light gray

	// Selection
	styleCursor = lipgloss.NewStyle().Background(lipgloss.Color("236")).Bold(true)

	// Detail pane
	styleDetailText = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	// View tabs
	styleTabActive   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10"))
	styleTabInactive = lipgloss.NewStyle().Faint(true)
)
