package panel

import (
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/iboot/internal/iboot"
)

// fakeExecutor answers every action with a fixed status or error
type fakeExecutor struct {
	mu      sync.Mutex
	actions []string
	status  iboot.Status
	err     error
}

func (f *fakeExecutor) ExecuteAsync(action string, callback iboot.Callback) {
	f.mu.Lock()
	f.actions = append(f.actions, action)
	f.mu.Unlock()
	go callback(f.status, f.err)
}

func (f *fakeExecutor) Address() string { return "10.0.0.5:80" }

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update() returned %T, want Model", next)
	}
	return model, cmd
}

func TestExecuteCmd(t *testing.T) {
	exec := &fakeExecutor{status: iboot.StatusOn}

	msg := executeCmd(exec, iboot.ActionOn)()
	result, ok := msg.(resultMsg)
	if !ok {
		t.Fatalf("executeCmd() returned %T", msg)
	}
	if result.action != iboot.ActionOn || result.status != iboot.StatusOn || result.err != nil {
		t.Errorf("executeCmd() = %+v", result)
	}
	if len(exec.actions) != 1 || exec.actions[0] != "on" {
		t.Errorf("executor saw %v, want [on]", exec.actions)
	}
}

func TestNew_StartsWithQuery(t *testing.T) {
	m := New("rack-1", &fakeExecutor{})
	if m.InFlight != iboot.ActionQuery {
		t.Errorf("InFlight = %q, want query", m.InFlight)
	}
	if m.Init() == nil {
		t.Error("Init() should return a command")
	}
}

func TestModel_ResultUpdatesStatus(t *testing.T) {
	var recorded []iboot.Status
	m := New("rack-1", &fakeExecutor{})
	m.Recorder = func(s iboot.Status) { recorded = append(recorded, s) }

	m, _ = update(t, m, resultMsg{action: iboot.ActionQuery, status: iboot.StatusOff})
	if m.Status != iboot.StatusOff || m.InFlight != "" {
		t.Errorf("after result: Status = %q, InFlight = %q", m.Status, m.InFlight)
	}
	if len(recorded) != 1 || recorded[0] != iboot.StatusOff {
		t.Errorf("Recorder saw %v", recorded)
	}

	m, _ = update(t, m, resultMsg{action: iboot.ActionOn, err: iboot.NewTimeoutError()})
	if m.Status != iboot.StatusOff {
		t.Error("a failed exchange must not change the status")
	}
	if !iboot.IsTimeoutError(m.LastError) {
		t.Errorf("LastError = %v, want timeout", m.LastError)
	}
	if len(m.History) != 2 || m.History[0].action != iboot.ActionOn {
		t.Errorf("History = %+v, newest first expected", m.History)
	}
	if len(recorded) != 1 {
		t.Error("Recorder should only see successful results")
	}

	view := m.View()
	for _, want := range []string{"rack-1", "10.0.0.5:80", "OFF", "Timed out."} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestModel_HistoryIsBounded(t *testing.T) {
	m := New("rack-1", &fakeExecutor{})
	for i := 0; i < maxHistory+5; i++ {
		m, _ = update(t, m, resultMsg{action: iboot.ActionQuery, status: iboot.StatusOn})
	}
	if len(m.History) != maxHistory {
		t.Errorf("len(History) = %d, want %d", len(m.History), maxHistory)
	}
}

func TestModel_KeysStartActions(t *testing.T) {
	m := New("rack-1", &fakeExecutor{})
	m, _ = update(t, m, resultMsg{action: iboot.ActionQuery, status: iboot.StatusOff})

	m, cmd := update(t, m, keyMsg("n"))
	if m.InFlight != iboot.ActionOn || cmd == nil {
		t.Errorf("'n' should start on, InFlight = %q", m.InFlight)
	}

	// Keys are ignored while an exchange is in flight
	m, cmd = update(t, m, keyMsg("s"))
	if m.InFlight != iboot.ActionOn || cmd != nil {
		t.Error("second action should be ignored while in flight")
	}

	m, _ = update(t, m, resultMsg{action: iboot.ActionOn, status: iboot.StatusOn})
	m, cmd = update(t, m, keyMsg("s"))
	if m.InFlight != iboot.ActionQuery || cmd == nil {
		t.Errorf("'s' should start query, InFlight = %q", m.InFlight)
	}
}

func TestModel_PowerChangeNeedsConfirmation(t *testing.T) {
	tests := []struct {
		key    string
		action iboot.Action
	}{
		{"f", iboot.ActionOff},
		{"c", iboot.ActionCycle},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			m := New("rack-1", &fakeExecutor{})
			m, _ = update(t, m, resultMsg{action: iboot.ActionQuery, status: iboot.StatusOn})

			m, cmd := update(t, m, keyMsg(tt.key))
			if m.Pending != tt.action || cmd != nil {
				t.Fatalf("Pending = %q, want %q without a command", m.Pending, tt.action)
			}
			if !strings.Contains(m.View(), "Confirm power "+string(tt.action)) {
				t.Error("View() should show the confirmation prompt")
			}

			// Cancel
			m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
			if m.Pending != "" || m.InFlight != "" {
				t.Error("esc should cancel the pending change")
			}

			// Confirm
			m, _ = update(t, m, keyMsg(tt.key))
			m, cmd = update(t, m, keyMsg("y"))
			if m.Pending != "" || m.InFlight != tt.action || cmd == nil {
				t.Errorf("'y' should start %q, InFlight = %q", tt.action, m.InFlight)
			}
		})
	}
}

func TestModel_Quit(t *testing.T) {
	m := New("rack-1", &fakeExecutor{})

	_, cmd := update(t, m, keyMsg("q"))
	if cmd == nil {
		t.Fatal("'q' should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("'q' should quit")
	}

	// While confirming, q cancels instead of quitting
	m, _ = update(t, m, resultMsg{action: iboot.ActionQuery, status: iboot.StatusOn})
	m, _ = update(t, m, keyMsg("f"))
	m, cmd = update(t, m, keyMsg("q"))
	if cmd != nil || m.Pending != "" {
		t.Error("'q' should cancel a pending change")
	}
}

func TestModel_TransportErrorInView(t *testing.T) {
	m := New("rack-1", &fakeExecutor{})
	m, _ = update(t, m, resultMsg{action: iboot.ActionQuery, err: errors.New("dial tcp: connection refused")})

	if !strings.Contains(m.View(), "connection refused") {
		t.Error("View() should show transport errors")
	}
}

// runCmd executes cmd and any batched commands, returning the resultMsgs
func runCmd(cmd tea.Cmd) []resultMsg {
	if cmd == nil {
		return nil
	}
	var results []resultMsg
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			results = append(results, runCmd(c)...)
		}
	case resultMsg:
		results = append(results, msg)
	}
	return results
}

func TestModel_ReturnedModelAndCommandAgree(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		action  iboot.Action
		confirm bool
	}{
		{"query", []string{"s"}, iboot.ActionQuery, false},
		{"on", []string{"n"}, iboot.ActionOn, false},
		{"off confirmed", []string{"f", "y"}, iboot.ActionOff, true},
		{"cycle confirmed", []string{"c", "y"}, iboot.ActionCycle, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := &fakeExecutor{status: iboot.StatusOn}
			m := New("rack-1", executor)
			m, _ = update(t, m, resultMsg{action: iboot.ActionQuery, status: iboot.StatusOff})

			var cmd tea.Cmd
			for _, k := range tt.keys {
				m, cmd = update(t, m, keyMsg(k))
			}

			if m.InFlight != tt.action {
				t.Fatalf("returned model InFlight = %q, want %q", m.InFlight, tt.action)
			}
			if tt.confirm && m.Pending != "" {
				t.Errorf("returned model Pending = %q, want cleared", m.Pending)
			}

			results := runCmd(cmd)
			if len(results) != 1 || results[0].action != tt.action {
				t.Fatalf("command produced %+v, want one %q result", results, tt.action)
			}
			executor.mu.Lock()
			sent := append([]string(nil), executor.actions...)
			executor.mu.Unlock()
			if len(sent) != 1 || sent[0] != string(tt.action) {
				t.Errorf("executor received %v, want [%s]", sent, tt.action)
			}

			m, _ = update(t, m, results[0])
			if m.InFlight != "" || m.Status != iboot.StatusOn {
				t.Errorf("after result InFlight = %q, Status = %q", m.InFlight, m.Status)
			}
		})
	}
}
