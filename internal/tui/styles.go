package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds all the styles used in the TUI.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Subtle  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style

	TTL     lipgloss.Style
	IP      lipgloss.Style
	Router  lipgloss.Style
	Reached lipgloss.Style
	Timeout lipgloss.Style

	// RTT styles (color-coded by latency)
	RTTLow  lipgloss.Style // < 50ms
	RTTMed  lipgloss.Style // 50-150ms
	RTTHigh lipgloss.Style // > 150ms
}

// DefaultStyles returns the default style set.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")),
		Subtle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),

		TTL:     lipgloss.NewStyle().Foreground(lipgloss.Color("87")),
		IP:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Router:  lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		Reached: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
		Timeout: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),

		RTTLow:  lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		RTTMed:  lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		RTTHigh: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// PlainStyles returns a style set without colors, used with --no-color.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	bold := lipgloss.NewStyle().Bold(true)
	return Styles{
		Title:   bold.MarginBottom(1),
		Header:  bold,
		Subtle:  plain,
		Success: bold,
		Error:   bold,
		TTL:     plain,
		IP:      plain,
		Router:  plain,
		Reached: bold,
		Timeout: plain,
		RTTLow:  plain,
		RTTMed:  plain,
		RTTHigh: plain,
	}
}
