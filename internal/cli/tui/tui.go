// Package tui renders the `safepaw vm watch` dashboard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ccheshirecat/safepaw/internal/vm"
)

const fetchTimeout = 30 * time.Second

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	tableBorder = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

type vmListMsg struct {
	vms []vm.Summary
	at  time.Time
}

type errMsg struct {
	err error
}

type tickMsg struct{}

// Run launches the dashboard and blocks until the user quits or ctx ends.
func Run(ctx context.Context, api vm.API, interval time.Duration) error {
	p := tea.NewProgram(newModel(ctx, api, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil || errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}
	return nil
}

type model struct {
	ctx      context.Context
	api      vm.API
	interval time.Duration
	table    table.Model
	count    int
	updated  time.Time
	err      error
}

func newModel(ctx context.Context, api vm.API, interval time.Duration) model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "NAME", Width: 20},
			{Title: "STATE", Width: 12},
			{Title: "IPV4", Width: 32},
			{Title: "RELEASE", Width: 14},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	return model{ctx: ctx, api: api, interval: interval, table: t}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchVMsCmd(m.ctx, m.api), tickCmd(m.interval))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, fetchVMsCmd(m.ctx, m.api)
		}
	case tea.WindowSizeMsg:
		if h := msg.Height - 6; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil
	case vmListMsg:
		m.table.SetRows(rowsFor(msg.vms))
		m.count = len(msg.vms)
		m.updated = msg.at
		m.err = nil
		return m, nil
	case errMsg:
		m.err = msg.err
		return m, nil
	case tickMsg:
		return m, tea.Batch(fetchVMsCmd(m.ctx, m.api), tickCmd(m.interval))
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("SafePaw :: VM Dashboard"))
	b.WriteString("\n\n")
	if m.count == 0 && m.err == nil {
		b.WriteString("  No VMs found\n")
	} else {
		b.WriteString(tableBorder.Render(m.table.View()))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	status := fmt.Sprintf("%d VMs", m.count)
	if !m.updated.IsZero() {
		status += " · updated " + m.updated.Format(time.TimeOnly)
	}
	status += " · r refresh · q quit"
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")
	return b.String()
}

func rowsFor(vms []vm.Summary) []table.Row {
	rows := make([]table.Row, 0, len(vms))
	for _, s := range vms {
		ips := strings.Join(s.IPv4, ",")
		if ips == "" {
			ips = "-"
		}
		release := "-"
		if s.Release != nil {
			release = *s.Release
		}
		rows = append(rows, table.Row{s.Name, s.State, ips, release})
	}
	return rows
}

func fetchVMsCmd(parent context.Context, api vm.API) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, fetchTimeout)
		defer cancel()
		vms, err := api.List(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return vmListMsg{vms: vms, at: time.Now()}
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return tickMsg{} })
}
