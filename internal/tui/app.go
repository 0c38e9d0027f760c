// Package tui is a terminal dashboard over recent run records.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/notforyou23/nextgen-system/internal/models"
	"github.com/notforyou23/nextgen-system/internal/storage"
)

type View int

const (
	ViewRunList View = iota
	ViewRunDetail
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)

	statusStyles = map[models.RunStatus]lipgloss.Style{
		models.RunStatusRunning: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		models.RunStatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.RunStatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

type App struct {
	store *storage.Store

	view     View
	tbl      table.Model
	runs     []*models.RunRecord
	selected *models.RunRecord
	err      error
}

func NewApp(store *storage.Store) *App {
	columns := []table.Column{
		{Title: "Run", Width: 12},
		{Title: "Task", Width: 28},
		{Title: "Status", Width: 9},
		{Title: "Triggered", Width: 19},
		{Title: "Completed", Width: 19},
	}
	tbl := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	return &App{store: store, view: ViewRunList, tbl: tbl}
}

type tickMsg time.Time

type runsLoadedMsg struct {
	runs []*models.RunRecord
	err  error
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadRuns, a.tickCmd())
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) loadRuns() tea.Msg {
	runs, err := a.store.ListRuns(50)
	return runsLoadedMsg{runs: runs, err: err}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if a.view == ViewRunDetail {
				a.view = ViewRunList
				return a, nil
			}
			return a, tea.Quit
		case "enter":
			if a.view == ViewRunList {
				if idx := a.tbl.Cursor(); idx >= 0 && idx < len(a.runs) {
					a.selected = a.runs[idx]
					a.view = ViewRunDetail
				}
			}
			return a, nil
		case "esc":
			a.view = ViewRunList
			return a, nil
		}

	case runsLoadedMsg:
		a.runs = msg.runs
		a.err = msg.err
		a.tbl.SetRows(a.rows())
		return a, nil

	case tickMsg:
		return a, tea.Batch(a.loadRuns, a.tickCmd())
	}

	var cmd tea.Cmd
	a.tbl, cmd = a.tbl.Update(msg)
	return a, cmd
}

func (a *App) rows() []table.Row {
	rows := make([]table.Row, 0, len(a.runs))
	for _, run := range a.runs {
		completed := "-"
		if run.CompletedAt != nil {
			completed = run.CompletedAt.Format("2006-01-02 15:04:05")
		}
		rows = append(rows, table.Row{
			shortID(run.RunID),
			run.TaskName,
			string(run.Status),
			run.TriggeredAt.Format("2006-01-02 15:04:05"),
			completed,
		})
	}
	return rows
}

func (a *App) View() string {
	if a.view == ViewRunDetail && a.selected != nil {
		return a.detailView()
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("nextgen — task runs"))
	b.WriteString("\n\n")
	if a.err != nil {
		b.WriteString(fmt.Sprintf("error: %v\n\n", a.err))
	}
	b.WriteString(a.tbl.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: detail • q: quit"))
	return b.String()
}

func (a *App) detailView() string {
	run := a.selected
	var b strings.Builder
	b.WriteString(titleStyle.Render("run " + run.RunID))
	b.WriteString("\n\n")

	style, ok := statusStyles[run.Status]
	if !ok {
		style = lipgloss.NewStyle()
	}
	b.WriteString(fmt.Sprintf("  Task:      %s\n", run.TaskName))
	b.WriteString(fmt.Sprintf("  Status:    %s\n", style.Render(string(run.Status))))
	b.WriteString(fmt.Sprintf("  Triggered: %s\n", run.TriggeredAt.Format(time.RFC3339)))
	if run.CompletedAt != nil {
		b.WriteString(fmt.Sprintf("  Completed: %s\n", run.CompletedAt.Format(time.RFC3339)))
	}
	if run.Artifacts != nil {
		b.WriteString(fmt.Sprintf("\n  Artifacts:\n  %s\n", *run.Artifacts))
	}
	if run.Error != nil {
		b.WriteString(fmt.Sprintf("\n  Error:\n  %s\n", *run.Error))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("esc: back • q: back"))
	return b.String()
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
