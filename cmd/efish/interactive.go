package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/efi-runtime/proto/shell"
	"github.com/wippyai/efi-runtime/status"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	dirStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// viewLimit caps how much of a file the viewer shows.
const viewLimit = 64 << 10

type interactiveModel struct {
	err     error
	s       *session
	out     *bytes.Buffer
	opts    options
	cwd     string
	title   string
	result  string
	entries []shell.File
	input   textinput.Model
	status  status.Status
	cursor  int
	state   modelState
}

type modelState int

const (
	stateBrowse modelState = iota
	stateCommand
	stateShowFile
	stateShowResult
)

type loadedMsg struct {
	s   *session
	err error
}

type dirMsg struct {
	err     error
	cwd     string
	entries []shell.File
}

type fileMsg struct {
	err  error
	path string
	data string
}

type execResultMsg struct {
	err     error
	cmdline string
	output  string
	status  status.Status
}

func newInteractiveModel(opts options) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "command line"
	ti.Prompt = "Shell> "
	ti.CharLimit = 256
	ti.Width = 60

	return &interactiveModel{
		opts:  opts,
		out:   &bytes.Buffer{},
		input: ti,
		state: stateBrowse,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.boot
}

func (m *interactiveModel) boot() tea.Msg {
	cfg, err := loadConfig(m.opts, m.out, m.out)
	if err != nil {
		return loadedMsg{err: err}
	}
	cfg.Stdin = strings.NewReader("")
	s, err := open(context.Background(), cfg)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{s: s}
}

// listDir reads the current directory through the shell.
func (m *interactiveModel) listDir() tea.Msg {
	cwd, _, err := m.s.sh.GetCurDir("")
	if err != nil {
		return dirMsg{err: err}
	}
	l, err := m.s.sh.FindFiles("*")
	if err != nil {
		return dirMsg{err: err}
	}
	if l == nil {
		return dirMsg{cwd: cwd}
	}
	defer l.Free()

	files, err := l.Files()
	return dirMsg{err: err, cwd: cwd, entries: files}
}

func (m *interactiveModel) enter() tea.Cmd {
	if len(m.entries) == 0 {
		return nil
	}
	f := m.entries[m.cursor]
	if f.Info != nil && f.Info.IsDir() {
		return m.chdir(f.Path)
	}
	return func() tea.Msg {
		data, err := readAll(m.s.sh, f.Path)
		if len(data) > viewLimit {
			data = data[:viewLimit]
		}
		return fileMsg{err: err, path: f.Path, data: string(data)}
	}
}

func (m *interactiveModel) chdir(dir string) tea.Cmd {
	return func() tea.Msg {
		if err := m.s.sh.SetCurDir("", dir); err != nil {
			return dirMsg{err: err}
		}
		return m.listDir()
	}
}

func (m *interactiveModel) execute(cmdline string) tea.Cmd {
	return func() tea.Msg {
		m.out.Reset()
		st, err := m.s.sh.Execute(m.s.fw.ImageHandle(), cmdline, nil)
		return execResultMsg{err: err, cmdline: cmdline, output: m.out.String(), status: st}
	}
}

func (m *interactiveModel) quit() (tea.Model, tea.Cmd) {
	if m.s != nil {
		m.s.Close()
		m.s = nil
	}
	return m, tea.Quit
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" || (key == "q" && m.state != stateCommand) {
			return m.quit()
		}
		if m.s == nil {
			return m, nil
		}

		switch m.state {
		case stateBrowse:
			switch key {
			case "up", "k":
				if m.cursor > 0 {
					m.cursor--
				}
			case "down", "j":
				if m.cursor < len(m.entries)-1 {
					m.cursor++
				}
			case "enter":
				return m, m.enter()
			case "backspace", "h":
				return m, m.chdir("..")
			case ":", "tab":
				m.state = stateCommand
				m.input.SetValue("")
				return m, m.input.Focus()
			}
			return m, nil

		case stateCommand:
			switch key {
			case "esc":
				m.input.Blur()
				m.state = stateBrowse
				return m, nil
			case "enter":
				line := strings.TrimSpace(m.input.Value())
				m.input.Blur()
				if line == "" {
					m.state = stateBrowse
					return m, nil
				}
				return m, m.execute(line)
			}

		case stateShowFile, stateShowResult:
			if key == "enter" || key == "esc" {
				m.state = stateBrowse
				m.result = ""
				m.err = nil
				return m, m.listDir
			}
			return m, nil
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.s = msg.s
		return m, m.listDir

	case dirMsg:
		m.err = msg.err
		if msg.err == nil {
			m.cwd = msg.cwd
			m.entries = msg.entries
			m.cursor = 0
		}
		return m, nil

	case fileMsg:
		m.title = msg.path
		m.result = msg.data
		m.err = msg.err
		m.state = stateShowFile
		return m, nil

	case execResultMsg:
		m.title = msg.cmdline
		m.result = msg.output
		m.status = msg.status
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	if m.state == stateCommand {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) View() string {
	if m.s == nil {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
		}
		return "Booting firmware..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("EFI Shell"))
	b.WriteString(" ")
	b.WriteString(m.cwd)
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse, stateCommand:
		if len(m.entries) == 0 {
			b.WriteString(helpStyle.Render("(empty)"))
			b.WriteString("\n")
		}
		for i, f := range m.entries {
			line := m.formatFile(f)
			if i == m.cursor {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateCommand {
			b.WriteString(m.input.View())
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render("enter run • esc back"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • enter open • backspace up • : command • q quit"))
		}

	case stateShowFile:
		b.WriteString(fmt.Sprintf("Contents of %s:\n\n", fileStyle.Render(m.title)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(m.result)
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))

	case stateShowResult:
		b.WriteString(fmt.Sprintf("Output of %s:\n\n", fileStyle.Render(m.title)))
		if m.result != "" {
			b.WriteString(m.result)
			b.WriteString("\n")
		}
		switch {
		case m.err != nil:
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		case m.status != status.Success:
			b.WriteString(errorStyle.Render(m.status.String()))
		default:
			b.WriteString(resultStyle.Render(m.status.String()))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatFile(f shell.File) string {
	if f.Info != nil && f.Info.IsDir() {
		return dirStyle.Render(f.Name + `\`)
	}
	size := ""
	if f.Info != nil {
		size = fmt.Sprintf("  %d bytes", f.Info.FileSize)
	}
	return fileStyle.Render(f.Name) + helpStyle.Render(size)
}

func runInteractive(opts options) error {
	model := newInteractiveModel(opts)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	if model.s != nil {
		model.s.Close()
	}
	return err
}
