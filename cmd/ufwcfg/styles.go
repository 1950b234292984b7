package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
)

// Palette for terminal output. lipgloss drops the colours on its own when
// the output is not a terminal or NO_COLOR is set.
var (
	colorAccent  = lipgloss.Color("#8BC34A")
	colorWarning = lipgloss.Color("#FFC107")
	colorError   = lipgloss.Color("#e53935")
	colorMuted   = lipgloss.Color("#7a8699")
)

type styles struct {
	Title   lipgloss.Style
	OK      lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Border  lipgloss.Style
}

// newStyles binds a renderer to w so colour detection follows the actual
// destination rather than stdout.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	if os.Getenv("NO_COLOR") != "" {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		Title:   r.NewStyle().Bold(true).Foreground(colorAccent),
		OK:      r.NewStyle().Foreground(colorAccent),
		Warning: r.NewStyle().Foreground(colorWarning),
		Error:   r.NewStyle().Bold(true).Foreground(colorError),
		Muted:   r.NewStyle().Foreground(colorMuted),
		Header:  r.NewStyle().Bold(true).Padding(0, 1),
		Cell:    r.NewStyle().Padding(0, 1),
		Border:  r.NewStyle().Foreground(colorMuted),
	}
}

// newTable returns a bordered table with the shared header and cell styles.
func (s styles) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.Border).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			return s.Cell
		})
}
