package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/rawpack/structure"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	offsetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	hexStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	asciiStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type inspectModel struct {
	err      error
	filename string
	data     []byte
	input    textinput.Model
	output   viewport.Model
	decoded  string
	consumed int64
	ready    bool
}

func newInspectModel(format, filename string) *inspectModel {
	input := textinput.New()
	input.Placeholder = "format, e.g. <4s #0I"
	input.SetValue(format)
	input.Focus()
	return &inspectModel{filename: filename, input: input}
}

type dataLoadedMsg struct {
	err  error
	data []byte
}

func (m *inspectModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadData)
}

func (m *inspectModel) loadData() tea.Msg {
	if m.filename == "" {
		return dataLoadedMsg{err: fmt.Errorf("no input file: pass -unpack <file>")}
	}
	data, err := os.ReadFile(m.filename)
	if err != nil {
		return dataLoadedMsg{err: err}
	}
	return dataLoadedMsg{data: data}
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			m.decode()
			m.output.SetContent(m.content())
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.output, cmd = m.output.Update(msg)
			return m, cmd
		}

	case dataLoadedMsg:
		m.err = msg.err
		m.data = msg.data
		m.decode()
		if m.ready {
			m.output.SetContent(m.content())
		}
		return m, nil

	case tea.WindowSizeMsg:
		headerHeight := 4
		if !m.ready {
			m.output = viewport.New(msg.Width, msg.Height-headerHeight)
			m.ready = true
		} else {
			m.output.Width = msg.Width
			m.output.Height = msg.Height - headerHeight
		}
		m.output.SetContent(m.content())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *inspectModel) decode() {
	if m.data == nil {
		return
	}
	format := m.input.Value()
	if strings.TrimSpace(format) == "" {
		m.decoded = ""
		m.err = nil
		return
	}
	s, err := structure.New(format)
	if err != nil {
		m.err = err
		m.decoded = ""
		return
	}
	values, end, err := s.UnpackFrom(m.data, 0)
	if err != nil {
		m.err = err
		m.decoded = ""
		return
	}
	m.err = nil
	m.consumed = end
	m.decoded = renderValues(values, 0)
}

func (m *inspectModel) content() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n\n")
	} else if m.decoded != "" {
		b.WriteString(valueStyle.Render(m.decoded))
		fmt.Fprintf(&b, "\n%s\n\n", offsetStyle.Render(
			fmt.Sprintf("-- %d of %d bytes consumed", m.consumed, len(m.data))))
	}
	b.WriteString(hexDump(m.data))
	return b.String()
}

func (m *inspectModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("rawpack inspector: " + m.filename))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.ready {
		b.WriteString(m.output.View())
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: decode · up/down: scroll · esc: quit"))
	return b.String()
}

// hexDump renders data as a classic 16-byte-per-line hex view.
func hexDump(data []byte) string {
	var b strings.Builder
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		line := data[off:end]

		b.WriteString(offsetStyle.Render(fmt.Sprintf("%08x  ", off)))
		var hx strings.Builder
		for i, c := range line {
			fmt.Fprintf(&hx, "%02x ", c)
			if i == 7 {
				hx.WriteByte(' ')
			}
		}
		b.WriteString(hexStyle.Render(fmt.Sprintf("%-50s", hx.String())))

		var ascii strings.Builder
		for _, c := range line {
			if c >= 0x20 && c < 0x7F {
				ascii.WriteByte(c)
			} else {
				ascii.WriteByte('.')
			}
		}
		b.WriteString(asciiStyle.Render(ascii.String()))
		b.WriteByte('\n')
	}
	return b.String()
}

func runInteractive(format, filename string) error {
	p := tea.NewProgram(newInspectModel(format, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
