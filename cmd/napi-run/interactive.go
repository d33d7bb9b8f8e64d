package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/napi-go/host"
)

const historySize = 5

type theme struct {
	header lipgloss.Style
	module lipgloss.Style
	export lipgloss.Style
	cursor lipgloss.Style
	ok     lipgloss.Style
	failed lipgloss.Style
	muted  lipgloss.Style
}

func newTheme() theme {
	accent := lipgloss.Color("#7D56F4")
	return theme{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(accent).Padding(0, 1),
		module: lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		export: lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		cursor: lipgloss.NewStyle().Foreground(accent).Bold(true),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")),
		failed: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

func (th theme) path(p string) string {
	mod, name, ok := strings.Cut(p, ".")
	if !ok {
		return th.export.Render(p)
	}
	return th.module.Render(mod+".") + th.export.Render(name)
}

type mode int

const (
	browsing mode = iota
	editing
	viewing
)

// callRecord is one finished invocation.
type callRecord struct {
	path string
	args string
	out  string
	err  error
	took time.Duration
}

type session struct {
	th      theme
	opts    options
	rt      *host.Runtime
	bootErr error
	paths   []string
	cursor  int
	mode    mode
	args    textinput.Model
	history []callRecord
}

type bootedMsg struct {
	rt    *host.Runtime
	paths []string
	err   error
}

type calledMsg callRecord

func newSession(opts options) *session {
	in := textinput.New()
	in.Prompt = "args> "
	in.Placeholder = `1, "two", true`
	in.Width = 48
	return &session{th: newTheme(), opts: opts, args: in}
}

func (s *session) Init() tea.Cmd {
	opts := s.opts
	return func() tea.Msg {
		ctx := context.Background()
		rt, err := boot(ctx, opts)
		if err != nil {
			return bootedMsg{err: err}
		}
		paths, err := exportedFunctions(ctx, rt)
		if err != nil {
			_ = rt.Close(ctx)
			return bootedMsg{err: err}
		}
		return bootedMsg{rt: rt, paths: paths}
	}
}

func (s *session) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case bootedMsg:
		s.rt, s.paths, s.bootErr = msg.rt, msg.paths, msg.err
		return s, nil
	case calledMsg:
		s.history = append([]callRecord{callRecord(msg)}, s.history...)
		if len(s.history) > historySize {
			s.history = s.history[:historySize]
		}
		s.mode = viewing
		return s, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return s, s.quit()
		}
		switch s.mode {
		case browsing:
			return s.browse(msg)
		case editing:
			return s.edit(msg)
		case viewing:
			return s.view(msg)
		}
	}
	if s.mode == editing {
		var cmd tea.Cmd
		s.args, cmd = s.args.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *session) quit() tea.Cmd {
	if s.rt != nil {
		_ = s.rt.Close(context.Background())
		s.rt = nil
	}
	return tea.Quit
}

func (s *session) browse(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q":
		return s, s.quit()
	case "up", "k":
		s.cursor = max(s.cursor-1, 0)
	case "down", "j":
		s.cursor = min(s.cursor+1, max(len(s.paths)-1, 0))
	case "enter":
		if s.rt == nil || len(s.paths) == 0 {
			return s, nil
		}
		s.mode = editing
		s.args.SetValue("")
		return s, tea.Batch(s.args.Focus(), textinput.Blink)
	}
	return s, nil
}

func (s *session) edit(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		s.args.Blur()
		s.mode = browsing
		return s, nil
	case tea.KeyEnter:
		s.args.Blur()
		return s, s.invoke(s.paths[s.cursor], s.args.Value())
	}
	var cmd tea.Cmd
	s.args, cmd = s.args.Update(key)
	return s, cmd
}

func (s *session) view(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q":
		return s, s.quit()
	case "r":
		last := s.history[0]
		return s, s.invoke(last.path, last.args)
	case "enter", "esc":
		s.mode = browsing
	}
	return s, nil
}

func (s *session) invoke(path, raw string) tea.Cmd {
	rt := s.rt
	return func() tea.Msg {
		rec := callRecord{path: path, args: raw}
		if rt == nil {
			rec.err = errors.New("runtime closed")
			return calledMsg(rec)
		}
		start := time.Now()
		out, err := callAndSettle(context.Background(), rt, path, parseArgs(raw))
		rec.took = time.Since(start)
		if err != nil {
			rec.err = err
		} else {
			rec.out = formatResult(out)
		}
		return calledMsg(rec)
	}
}

func (s *session) View() string {
	if s.bootErr != nil {
		return s.th.failed.Render("boot failed: "+s.bootErr.Error()) + "\n\n" + s.th.muted.Render("ctrl+c to exit")
	}
	if s.rt == nil {
		return s.th.muted.Render("booting runtime...")
	}

	var b strings.Builder
	title := "napi runner"
	if s.opts.wasmFile != "" {
		title += " · " + s.opts.wasmFile
	}
	b.WriteString(s.th.header.Render(title) + "\n\n")

	switch s.mode {
	case browsing:
		if len(s.paths) == 0 {
			b.WriteString(s.th.muted.Render("no exported functions") + "\n")
		}
		for i, p := range s.paths {
			marker := "  "
			if i == s.cursor {
				marker = s.th.cursor.Render("▸ ")
			}
			b.WriteString(marker + s.th.path(p) + "\n")
		}
		b.WriteString("\n" + s.th.muted.Render("j/k move · enter call · q quit"))
	case editing:
		fmt.Fprintf(&b, "%s(…)\n\n%s\n\n", s.th.path(s.paths[s.cursor]), s.args.View())
		b.WriteString(s.th.muted.Render("enter run · esc back"))
	case viewing:
		for i, rec := range s.history {
			b.WriteString(s.record(rec, i == 0) + "\n")
		}
		b.WriteString("\n" + s.th.muted.Render("r rerun · enter back · q quit"))
	}
	return b.String()
}

func (s *session) record(rec callRecord, latest bool) string {
	call := fmt.Sprintf("%s(%s)", s.th.path(rec.path), rec.args)
	if !latest {
		call = s.th.muted.Render(fmt.Sprintf("%s(%s)", rec.path, rec.args))
	}
	took := s.th.muted.Render(rec.took.Round(time.Microsecond).String())
	if rec.err != nil {
		return fmt.Sprintf("%s %s\n  %s", call, took, s.th.failed.Render(rec.err.Error()))
	}
	return fmt.Sprintf("%s %s\n  %s", call, took, s.th.ok.Render(rec.out))
}

func runInteractive(opts options) error {
	_, err := tea.NewProgram(newSession(opts), tea.WithAltScreen()).Run()
	return err
}
