package cli

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"campfire/internal/agent"
)

type answerMsg struct {
	rendered string
	err      error
}

type chatModel struct {
	ctx       context.Context
	agent     *agent.Agent
	styles    styles
	viewport  viewport.Model
	textInput textinput.Model
	spinner   spinner.Model
	messages  []string
	isLoading bool
	ready     bool
	width     int
	height    int
}

func initialChatModel(ctx context.Context, ag *agent.Agent) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Describe the situation, or /quit..."
	ti.Focus()
	ti.CharLimit = 1000
	ti.Width = 80

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(clrBrand)

	st := newStylesForced()

	return chatModel{
		ctx:       ctx,
		agent:     ag,
		styles:    st,
		textInput: ti,
		spinner:   s,
		messages: []string{
			st.Header.Render("campfire") + st.dim(" · cited first-aid checklists from your local corpus"),
			st.dim("Answers are informational, not medical advice. In a life-threatening emergency, call your local emergency number first."),
		},
	}
}

// newStylesForced builds the style set with colors on; the alt-screen
// TUI is only ever started on a terminal.
func newStylesForced() styles {
	s := styles{enabled: true}
	s.Brand = lipgloss.NewStyle().Foreground(clrBrand)
	s.Green = lipgloss.NewStyle().Foreground(clrGreen)
	s.Red = lipgloss.NewStyle().Foreground(clrRed)
	s.Yellow = lipgloss.NewStyle().Foreground(clrYellow)
	s.Cyan = lipgloss.NewStyle().Foreground(clrCyan)
	s.Dim = lipgloss.NewStyle().Foreground(clrDim)
	s.Bold = lipgloss.NewStyle().Bold(true)
	s.Header = lipgloss.NewStyle().Bold(true).Foreground(clrBrand)
	s.Key = lipgloss.NewStyle().Foreground(clrDim)
	s.Value = lipgloss.NewStyle().Foreground(clrWhite)
	s.Citation = lipgloss.NewStyle().Foreground(clrCyan)
	s.Warning = lipgloss.NewStyle().Foreground(clrYellow).Bold(true)
	s.Error = lipgloss.NewStyle().Foreground(clrRed).Bold(true)
	s.Success = lipgloss.NewStyle().Foreground(clrGreen)
	return s
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textInput, tiCmd = m.textInput.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.isLoading {
				return m, nil
			}
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}
			m.textInput.SetValue("")

			switch input {
			case "/quit", "/exit":
				return m, tea.Quit
			case "/clear":
				m.messages = m.messages[:2]
				m.syncViewport()
				return m, nil
			}

			m.messages = append(m.messages, m.styles.Brand.Render("you> ")+input)
			m.isLoading = true
			m.syncViewport()
			return m, tea.Batch(m.askCmd(input), m.spinner.Tick)
		}

	case tea.WindowSizeMsg:
		m.applyWindowSize(msg.Width, msg.Height)

	case answerMsg:
		m.isLoading = false
		if msg.err != nil {
			m.messages = append(m.messages, m.styles.errPrefix()+" "+msg.err.Error())
		} else {
			m.messages = append(m.messages, msg.rendered)
		}
		m.syncViewport()
		return m, nil
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m chatModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.isLoading {
		b.WriteString(m.spinner.View() + " ")
	} else {
		b.WriteString(m.styles.Brand.Render("you> "))
	}
	b.WriteString(m.textInput.View())
	b.WriteString("\n")
	b.WriteString(m.styles.dim("/clear reset · /quit exit"))
	return b.String()
}

func (m *chatModel) askCmd(query string) tea.Cmd {
	return func() tea.Msg {
		decision, err := m.agent.Answer(m.ctx, query)
		if err != nil {
			return answerMsg{err: err}
		}
		return answerMsg{rendered: strings.TrimRight(renderDecision(m.styles, decision), "\n")}
	}
}

func (m *chatModel) syncViewport() {
	m.viewport.SetContent(strings.Join(m.messages, "\n\n"))
	m.viewport.GotoBottom()
}

func (m *chatModel) applyWindowSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width = width
	m.height = height

	vpWidth := maxInt(width-2, 1)
	m.textInput.Width = maxInt(width-16, 1)
	vpHeight := maxInt(height-3, 1)

	if !m.ready {
		m.viewport = viewport.New(vpWidth, vpHeight)
		m.viewport.SetContent(strings.Join(m.messages, "\n\n"))
		m.ready = true
		return
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
