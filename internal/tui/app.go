// Package tui is the interactive terminal surface over a task collection.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"todo/internal/collection"
	"todo/internal/editsession"
	"todo/internal/service"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Strikethrough(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

const (
	helpList  = "a add • e/enter edit • space toggle • d delete • r reload • q quit"
	helpInput = "enter save • esc cancel"
)

// Model is the bubbletea model for the task list.
type Model struct {
	ctx     context.Context
	coll    *collection.Collection
	session *editsession.Session

	items    []service.Task
	selected int
	mode     mode
	input    textinput.Model
	notice   string

	width  int
	height int
}

// New creates a model over coll. The collection should already be loaded;
// the model reads its cache and re-reads it after every operation.
func New(ctx context.Context, coll *collection.Collection) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = service.MaxTextLength
	ti.Width = 50
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	return Model{
		ctx:     ctx,
		coll:    coll,
		session: editsession.New(coll),
		items:   coll.Items(),
		input:   ti,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.width > 10 {
			m.input.Width = m.width - 10
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeAdd:
			return m.updateAdd(msg)
		case modeEdit:
			return m.updateEdit(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		if m.selected < len(m.items)-1 {
			m.selected++
		}

	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}

	case "a":
		m.mode = modeAdd
		m.input.Reset()
		m.input.Placeholder = "New task"
		m.input.Focus()
		return m, textinput.Blink

	case "e", "enter":
		task, ok := m.current()
		if !ok {
			return m, nil
		}
		m.session.Begin(task)
		m.mode = modeEdit
		m.input.Placeholder = ""
		m.input.SetValue(task.Text)
		m.input.CursorEnd()
		m.input.Focus()
		return m, textinput.Blink

	case " ":
		if task, ok := m.current(); ok {
			_, _ = m.coll.Toggle(m.ctx, task.ID)
			m.reload()
		}

	case "d":
		if task, ok := m.current(); ok {
			_ = m.coll.Delete(m.ctx, task.ID)
			m.reload()
		}

	case "r":
		_ = m.coll.Load(m.ctx)
		m.reload()

	case "esc":
		m.coll.ClearError()
	}
	return m, nil
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.leaveInput()
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if _, err := m.coll.Create(m.ctx, text, false); err == nil {
			m.selected = len(m.coll.Items()) - 1
		}
		m.leaveInput()
		m.reload()
		return m, nil

	case "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.session.Cancel()
		m.leaveInput()
		return m, nil

	case "enter":
		m.commit()
		return m, nil

	case "up", "down":
		// Leaving the row commits, as losing focus does.
		m.commit()
		if msg.String() == "up" && m.selected > 0 {
			m.selected--
		}
		if msg.String() == "down" && m.selected < len(m.items)-1 {
			m.selected++
		}
		return m, nil

	case "ctrl+c":
		m.session.Cancel()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.session.SetText(m.input.Value())
	return m, cmd
}

// commit ends the open edit session and shows the result.
func (m *Model) commit() {
	m.session.SetText(m.input.Value())
	outcome, _ := m.session.Commit(m.ctx)
	if outcome == editsession.Discarded {
		m.notice = "empty text, edit discarded"
	}
	m.leaveInput()
	m.reload()
}

func (m *Model) leaveInput() {
	m.mode = modeList
	m.input.Blur()
	m.input.Reset()
}

// reload re-reads the collection cache and keeps the selection in range.
func (m *Model) reload() {
	m.items = m.coll.Items()
	if m.selected >= len(m.items) {
		m.selected = len(m.items) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m Model) current() (service.Task, bool) {
	if m.selected < 0 || m.selected >= len(m.items) {
		return service.Task{}, false
	}
	return m.items[m.selected], true
}

// View renders the model
func (m Model) View() string {
	var b strings.Builder

	open := 0
	for _, t := range m.items {
		if !t.Completed {
			open++
		}
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Tasks (%d open, %d total)", open, len(m.items))))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(helpStyle.Render("  no tasks yet"))
		b.WriteString("\n")
	}
	for i, t := range m.items {
		b.WriteString(m.renderRow(i, t))
		b.WriteString("\n")
	}

	if m.mode == modeAdd {
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.coll.LastError() != "":
		b.WriteString(errorStyle.Render(m.coll.LastError()))
		b.WriteString("\n")
	case m.notice != "":
		b.WriteString(helpStyle.Render(m.notice))
		b.WriteString("\n")
	}

	if m.mode == modeList {
		b.WriteString(helpStyle.Render(helpList))
	} else {
		b.WriteString(helpStyle.Render(helpInput))
	}
	return b.String()
}

func (m Model) renderRow(i int, t service.Task) string {
	mark := "[ ]"
	if t.Completed {
		mark = "[x]"
	}
	cursor := "  "
	if i == m.selected {
		cursor = "> "
	}

	if m.mode == modeEdit && i == m.selected {
		return cursor + mark + " " + m.input.View()
	}

	text := t.Text
	if t.Completed {
		text = doneStyle.Render(text)
	}
	line := mark + " " + text
	if i == m.selected && m.mode == modeList {
		line = selectedStyle.Render(line)
	}
	return cursor + line
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, coll *collection.Collection) error {
	p := tea.NewProgram(New(ctx, coll), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
