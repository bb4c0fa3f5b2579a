package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/iboot/internal/iboot"
	"github.com/muurk/iboot/internal/ui"
)

// maxHistory is the number of past exchanges shown under the status
const maxHistory = 8

// Executor sends actions to a device. *iboot.Client satisfies it.
type Executor interface {
	ExecuteAsync(action string, callback iboot.Callback)
	Address() string
}

// resultMsg carries the outcome of one exchange back into the model
type resultMsg struct {
	action  iboot.Action
	status  iboot.Status
	err     error
	elapsed time.Duration
}

// entry is one line of the exchange history
type entry struct {
	at      time.Time
	action  iboot.Action
	status  iboot.Status
	err     error
	elapsed time.Duration
}

// Model is the Bubble Tea model for the power control panel
type Model struct {
	Name     string
	executor Executor

	// Device state
	Status      iboot.Status
	LastError   error
	LastUpdated time.Time
	History     []entry

	// Interaction state
	Pending    iboot.Action // action awaiting confirmation
	InFlight   iboot.Action // action currently on the wire
	Recorder   func(iboot.Status)
	Width      int
	Height     int
	spinner    spinner.Model
	help       help.Model
	keys       keyMap
	confirmKey confirmKeyMap
}

// New creates a panel for the device reached through executor.
// name labels the device in the title bar.
func New(name string, executor Executor) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ui.PrimaryColor)

	keys := newKeyMap()

	return Model{
		Name:     name,
		executor: executor,
		spinner:  s,
		help:     help.New(),
		keys:     keys,
		confirmKey: confirmKeyMap{
			Confirm: keys.Confirm,
			Cancel:  keys.Cancel,
		},
		InFlight: iboot.ActionQuery,
		Width:    ui.MinTerminalWidth,
	}
}

// Init queries the device so the panel opens with a known state
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, executeCmd(m.executor, iboot.ActionQuery))
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.InFlight == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		return m.applyResult(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.Pending != "" {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			action := m.Pending
			m.Pending = ""
			cmd := m.start(action)
			return m, cmd
		case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
			m.Pending = ""
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	// One exchange at a time
	if m.InFlight != "" {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Query):
		cmd := m.start(iboot.ActionQuery)
		return m, cmd
	case key.Matches(msg, m.keys.On):
		cmd := m.start(iboot.ActionOn)
		return m, cmd
	case key.Matches(msg, m.keys.Off):
		m.Pending = iboot.ActionOff
	case key.Matches(msg, m.keys.Cycle):
		m.Pending = iboot.ActionCycle
	}
	return m, nil
}

// start marks action in flight and returns the command that runs it
func (m *Model) start(action iboot.Action) tea.Cmd {
	m.InFlight = action
	return tea.Batch(m.spinner.Tick, executeCmd(m.executor, action))
}

// applyResult records a finished exchange
func (m Model) applyResult(msg resultMsg) Model {
	m.InFlight = ""
	m.LastUpdated = time.Now()
	m.LastError = msg.err
	if msg.err == nil {
		m.Status = msg.status
		if m.Recorder != nil {
			m.Recorder(msg.status)
		}
	}

	m.History = append([]entry{{
		at:      m.LastUpdated,
		action:  msg.action,
		status:  msg.status,
		err:     msg.err,
		elapsed: msg.elapsed,
	}}, m.History...)
	if len(m.History) > maxHistory {
		m.History = m.History[:maxHistory]
	}
	return m
}

// executeCmd sends action and waits for the single completion callback
func executeCmd(executor Executor, action iboot.Action) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		done := make(chan resultMsg, 1)
		executor.ExecuteAsync(string(action), func(status iboot.Status, err error) {
			done <- resultMsg{
				action:  action,
				status:  status,
				err:     err,
				elapsed: time.Since(start),
			}
		})
		return <-done
	}
}

// View renders the panel
func (m Model) View() string {
	width := m.Width
	if width < ui.MinTerminalWidth {
		width = ui.MinTerminalWidth
	}
	if width > ui.MaxContentWidth {
		width = ui.MaxContentWidth
	}

	var b strings.Builder

	title := lipgloss.NewStyle().
		Foreground(ui.PrimaryColor).
		Bold(true).
		Render("iBoot " + m.Name)
	b.WriteString(title + "  " + ui.HeaderCommandStyle.Render(m.executor.Address()))
	b.WriteString("\n\n")

	b.WriteString(m.renderStatus(width))
	b.WriteString("\n\n")

	if m.Pending != "" {
		b.WriteString(lipgloss.NewStyle().
			Foreground(ui.WarningColor).
			Bold(true).
			Render(fmt.Sprintf("  Confirm power %s? (y/n)", m.Pending)))
		b.WriteString("\n\n")
	}

	if len(m.History) > 0 {
		b.WriteString(ui.TroubleshootingTitleStyle.Render("Recent"))
		b.WriteString("\n")
		for _, e := range m.History {
			b.WriteString(renderEntry(e))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.Pending != "" {
		b.WriteString(m.help.View(m.confirmKey))
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderStatus(width int) string {
	var lines []string

	if m.InFlight != "" {
		lines = append(lines, fmt.Sprintf("%s Sending %s...", m.spinner.View(), m.InFlight))
	} else {
		lines = append(lines, "Outlet: "+ui.RenderStatus(m.Status))
	}

	if m.LastError != nil {
		lines = append(lines, ui.ErrorMessageStyle.Render("Error: "+m.LastError.Error()))
		if hint := iboot.TroubleshootingHint(m.LastError); hint != "" {
			lines = append(lines, ui.TroubleshootingItemStyle.Render(hint))
		}
	}
	if !m.LastUpdated.IsZero() {
		lines = append(lines, ui.StepNoteStyle.Render("Updated "+m.LastUpdated.Format("15:04:05")))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.StatusColor(m.Status)).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

func renderEntry(e entry) string {
	stamp := ui.StepNoteStyle.Render(e.at.Format("15:04:05"))
	action := fmt.Sprintf("%-6s", e.action)
	if e.err != nil {
		return fmt.Sprintf("  %s  %s %s %s", stamp, action,
			ui.ErrorTitleStyle.Render(ui.FailureMarker),
			ui.ErrorMessageStyle.Render(iboot.ShortErrorMessage(e.err)))
	}
	return fmt.Sprintf("  %s  %s %s %s  %s", stamp, action,
		ui.StepCompleteStyle.Render(ui.SuccessMarker),
		ui.RenderStatus(e.status),
		ui.StepNoteStyle.Render(e.elapsed.Round(time.Millisecond).String()))
}

// Run starts the panel in the alternate screen and blocks until the user quits
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
