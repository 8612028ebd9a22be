package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ManasDasri/PomStud/internal/protocol"
)

// MemberRow is one line of the room panel.
type MemberRow struct {
	Name  string
	Peer  string
	Tasks []protocol.Task
}

// MembersView renders the other members of the room with their progress.
func MembersView(rows []MemberRow) string {
	if len(rows) == 0 {
		return MutedStyle.Render("Nobody else is here yet. Share the room name!")
	}

	var data [][]string
	for _, r := range rows {
		done := 0
		for _, t := range r.Tasks {
			if t.Completed {
				done++
			}
		}
		data = append(data, []string{
			truncate(r.Name, 24),
			r.Peer,
			fmt.Sprintf("%d/%d", done, len(r.Tasks)),
			truncate(currentTask(r.Tasks), 40),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Secondary)).
		Headers("Member", "Peer", "Done", "Working on").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// currentTask returns the first task not yet completed.
func currentTask(tasks []protocol.Task) string {
	for _, t := range tasks {
		if !t.Completed {
			return t.Text
		}
	}
	return "-"
}

// Stats is the relay summary shown by the stats command.
type Stats struct {
	Server      string
	Rooms       int
	Connections int
}

// StatsView renders relay stats as a table
func StatsView(s Stats) string {
	t := prettytable.NewWriter()
	t.SetTitle("PomStud relay")
	t.AppendHeader(prettytable.Row{"Metric", "Value"})
	t.AppendRows([]prettytable.Row{
		{"Server", s.Server},
		{"Rooms", s.Rooms},
		{"Connections", s.Connections},
	})
	t.SetStyle(prettytable.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.SetColumnConfigs([]prettytable.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	return t.Render()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return strings.TrimSpace(string(r[:maxLen-3])) + "..."
}
