package main

import (
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func bootedSession(t *testing.T) *session {
	t.Helper()
	s := newSession(options{})
	msg := s.Init()()
	booted, ok := msg.(bootedMsg)
	if !ok {
		t.Fatalf("Init produced %T, want bootedMsg", msg)
	}
	if booted.err != nil {
		t.Fatalf("boot failed: %v", booted.err)
	}
	s.Update(booted)
	t.Cleanup(func() { s.quit() })
	return s
}

func TestSession_CallAndRerun(t *testing.T) {
	s := bootedSession(t)
	idx := slices.Index(s.paths, "addon.add")
	if idx < 0 {
		t.Fatalf("addon.add not listed in %v", s.paths)
	}
	s.Update(key("k"))
	if s.cursor != 0 {
		t.Errorf("cursor moved above the first entry: %d", s.cursor)
	}
	s.cursor = idx

	s.Update(key("enter"))
	if s.mode != editing {
		t.Fatalf("mode = %v after enter, want editing", s.mode)
	}
	s.args.SetValue("2, 3")
	_, cmd := s.Update(key("enter"))
	if cmd == nil {
		t.Fatal("enter while editing returned no command")
	}
	s.Update(cmd())
	if s.mode != viewing || len(s.history) != 1 {
		t.Fatalf("mode = %v, history = %d", s.mode, len(s.history))
	}
	if rec := s.history[0]; rec.err != nil || rec.out != "5" {
		t.Errorf("add(2, 3) recorded %q, %v", rec.out, rec.err)
	}
	if !strings.Contains(s.View(), "5") {
		t.Errorf("result missing from view:\n%s", s.View())
	}

	_, cmd = s.Update(key("r"))
	s.Update(cmd())
	if len(s.history) != 2 || s.history[0].args != "2, 3" {
		t.Errorf("rerun history = %+v", s.history)
	}

	s.Update(key("enter"))
	if s.mode != browsing {
		t.Errorf("mode = %v after leaving result, want browsing", s.mode)
	}
}

func TestSession_FailedCallAndHistoryLimit(t *testing.T) {
	s := bootedSession(t)
	s.cursor = slices.Index(s.paths, "addon.add")

	for i := 0; i < historySize+2; i++ {
		s.Update(key("enter"))
		s.args.SetValue("1")
		_, cmd := s.Update(key("enter"))
		s.Update(cmd())
		s.Update(key("esc"))
	}
	if len(s.history) != historySize {
		t.Errorf("history holds %d records, want %d", len(s.history), historySize)
	}
	if s.history[0].err == nil {
		t.Error("add with one argument should record an error")
	}
}

func TestSession_EscLeavesEditing(t *testing.T) {
	s := bootedSession(t)
	s.Update(key("enter"))
	s.Update(key("esc"))
	if s.mode != browsing || len(s.history) != 0 {
		t.Errorf("mode = %v, history = %d", s.mode, len(s.history))
	}
}

func TestSession_BootFailure(t *testing.T) {
	s := newSession(options{wasmFile: "does-not-exist.wasm"})
	s.Update(s.Init()())
	if s.bootErr == nil {
		t.Fatal("expected boot to fail")
	}
	if !strings.Contains(s.View(), "boot failed") {
		t.Errorf("view = %q", s.View())
	}
}
