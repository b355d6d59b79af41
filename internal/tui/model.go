// Package tui is the interactive chat session: a prompt box over a
// scrollable transcript of questions, answers and their citations.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Avishkar74/AskTube/internal/domain"
	"github.com/Avishkar74/AskTube/internal/service"
)

// AnswerPort is the TUI-facing subset of the answer service.
type AnswerPort interface {
	Answer(ctx context.Context, documentID, query string, opts service.AskOptions) domain.Answer
}

// HistoryPort exposes the stored conversation to the session commands.
type HistoryPort interface {
	Load(userID, documentID string) domain.Conversation
	Clear(userID, documentID string) bool
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	answers    AnswerPort
	history    HistoryPort
	documentID string
	opts       service.AskOptions

	input    textinput.Model
	viewport viewport.Model
	lines    []string
	status   string
	ready    bool
}

// New creates a chat session for one document.
func New(answers AnswerPort, history HistoryPort, documentID string, opts service.AskOptions) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the video, or type clear / history"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	m := Model{
		answers:    answers,
		history:    history,
		documentID: documentID,
		opts:       opts,
		input:      ti,
		viewport:   vp,
		status:     fmt.Sprintf("Chatting about %s. Ctrl+C to quit.", documentID),
	}
	m.lines = m.replayHistory()
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ph := promptBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ph + 1 // header, status, prompt frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			switch line {
			case "":
			case "quit", "exit":
				return m, tea.Quit
			case "clear":
				m.history.Clear(m.userID(), m.documentID)
				m.lines = nil
				m.status = "Conversation cleared."
				m.refresh()
			case "history":
				m.lines = m.replayHistory()
				m.status = fmt.Sprintf("Replayed %d stored messages.", len(m.lines))
				m.refresh()
			default:
				m.ask(line)
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("AskTube: " + m.documentID)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	prompt := promptBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + prompt + "\n" + status
}

func (m *Model) ask(query string) {
	m.lines = append(m.lines, userStyle.Render("You: ")+query)
	answer := m.answers.Answer(context.Background(), m.documentID, query, m.opts)
	m.lines = append(m.lines, renderAnswer(answer)...)
	if answer.Meta.Fallback {
		m.status = "Degraded answer (no generation backend)."
	} else {
		m.status = fmt.Sprintf("Answered via %s (%s).", answer.Meta.Backend, answer.Meta.Model)
	}
	m.refresh()
	m.viewport.GotoBottom()
}

// replayHistory renders the stored conversation into transcript lines.
func (m Model) replayHistory() []string {
	var lines []string
	for _, msg := range m.history.Load(m.userID(), m.documentID).Messages {
		switch msg.Role {
		case domain.RoleUser:
			lines = append(lines, userStyle.Render("You: ")+msg.Content)
		case domain.RoleAssistant:
			lines = append(lines, assistantStyle.Render("AskTube: ")+msg.Content)
			for i, c := range msg.Citations {
				lines = append(lines, citationStyle.Render(formatCitation(i+1, c)))
			}
		}
	}
	return lines
}

func (m Model) userID() string {
	if m.opts.UserID != "" {
		return m.opts.UserID
	}
	return "default"
}

func (m *Model) refresh() {
	if len(m.lines) == 0 {
		m.viewport.SetContent("No messages yet. Ask something about the video.")
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
}

func renderAnswer(answer domain.Answer) []string {
	lines := []string{assistantStyle.Render("AskTube: ") + answer.Text}
	for i, c := range answer.Citations {
		lines = append(lines, citationStyle.Render(formatCitation(i+1, c)))
	}
	return lines
}

// formatCitation renders one retrieved chunk reference, with its time span
// when the chunk carries timing.
func formatCitation(n int, c domain.RetrievalResult) string {
	text := c.Text
	if len(text) > 80 {
		text = text[:80] + "…"
	}
	if c.StartSec != nil && c.EndSec != nil {
		return fmt.Sprintf("  [c%d] %s-%s %s", n, formatClock(*c.StartSec), formatClock(*c.EndSec), text)
	}
	return fmt.Sprintf("  [c%d] %s", n, text)
}

// formatClock renders seconds as M:SS or H:MM:SS.
func formatClock(sec float64) string {
	total := int(sec)
	h, m, s := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	promptBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	citationStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
