package wtui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vde-tools/worktree/internal/snapshot"
)

// Palette mirrors a typical table/graph styling scheme
// (ColorAccent/ColorWarn/ColorPass/ColorMuted).
var (
	ColorAccent = lipgloss.Color("39")  // blue
	ColorWarn   = lipgloss.Color("214") // amber
	ColorPass   = lipgloss.Color("42")  // green
	ColorFail   = lipgloss.Color("196") // red
	ColorMuted  = lipgloss.Color("245") // grey
)

var (
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorAccent).
				Align(lipgloss.Center)

	TableWarningStyle = lipgloss.NewStyle().Foreground(ColorWarn)
	TableSuccessStyle = lipgloss.NewStyle().Foreground(ColorPass)
	TableFailStyle    = lipgloss.NewStyle().Foreground(ColorFail)
	TableHintStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	TableBorderStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
)

// DefaultColumns is the column set rendered when config does not override it.
var DefaultColumns = []string{"branch", "dirty", "merged", "pr", "locked", "ahead", "behind", "path"}

// RenderOptions configures one fleet-status render.
type RenderOptions struct {
	Columns      []string
	Color        bool
	PathTruncate bool
	PathMinWidth int
	Width        int
}

// RenderFleetTable builds the `wt list`/`wt status` table for a snapshot.
func RenderFleetTable(snap *snapshot.Snapshot, opts RenderOptions) string {
	cols := opts.Columns
	if len(cols) == 0 {
		cols = DefaultColumns
	}

	t := table.New().
		Border(lipgloss.RoundedBorder())
	if opts.Color {
		t = t.BorderStyle(TableBorderStyle)
	}
	if opts.Width > 0 {
		t = t.Width(opts.Width)
	}

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = strings.ToUpper(c)
	}
	t = t.Headers(headers...)

	for _, w := range snap.Worktrees {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = renderCell(c, w, opts)
		}
		t = t.Row(row...)
	}

	if opts.Color {
		t = t.StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return lipgloss.NewStyle()
		})
	}

	return t.Render()
}

func renderCell(col string, w snapshot.Status, opts RenderOptions) string {
	switch col {
	case "branch":
		if w.Branch == "" {
			return TableHintStyle.Render("(detached)")
		}
		return w.Branch
	case "dirty":
		return boolCell(w.Dirty, opts.Color, TableWarningStyle, "")
	case "merged":
		return triCell(w.Merged.Overall, opts.Color)
	case "pr":
		if w.PR.Status == "" {
			return TableHintStyle.Render("-")
		}
		return w.PR.Status
	case "locked":
		if !w.Lock.Value {
			return ""
		}
		label := "locked"
		if w.Lock.Reason != "" {
			label = fmt.Sprintf("locked (%s)", w.Lock.Reason)
		}
		if opts.Color {
			return TableWarningStyle.Render(label)
		}
		return label
	case "ahead":
		return intCell(w.Upstream.Ahead)
	case "behind":
		return intCell(w.Upstream.Behind)
	case "path":
		p := w.Path
		if opts.PathTruncate && opts.PathMinWidth > 0 && len(p) > opts.PathMinWidth {
			p = "..." + p[len(p)-opts.PathMinWidth+3:]
		}
		return p
	default:
		return ""
	}
}

func boolCell(v, color bool, style lipgloss.Style, falseLabel string) string {
	if !v {
		return falseLabel
	}
	if color {
		return style.Render("yes")
	}
	return "yes"
}

func triCell(v *bool, color bool) string {
	switch {
	case v == nil:
		return TableHintStyle.Render("unknown")
	case *v:
		if color {
			return TableSuccessStyle.Render("yes")
		}
		return "yes"
	default:
		if color {
			return TableFailStyle.Render("no")
		}
		return "no"
	}
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
