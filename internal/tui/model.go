package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"itemforge/internal/domain"
	"itemforge/internal/render"
	"itemforge/internal/retrieval"
	"itemforge/internal/service"
	"itemforge/internal/textutil"
)

// Port is the TUI-facing subset of the item service.
type Port interface {
	Search(ctx context.Context, query string, k int, criteria ...retrieval.Criterion) (retrieval.Response, error)
	Generate(ctx context.Context, request string) (*service.Outcome, error)
}

const (
	searchLimit     = 10
	searchTimeout   = 30 * time.Second
	generateTimeout = 3 * time.Minute
)

type searchDoneMsg struct {
	query string
	resp  retrieval.Response
	err   error
}

type generateDoneMsg struct {
	request string
	out     *service.Outcome
	err     error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx       context.Context
	service   Port
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.SearchResult
	card      string
	summary   string
	status    string
	cursor    int
	ready     bool
	busy      bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(ctx context.Context, service Port, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Search with Enter, generate an item with Ctrl+G"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, service: service, input: ti, viewport: vp, summary: summary, status: "Loaded. Type to search."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + summary
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil
	case searchDoneMsg:
		m.busy = false
		m.card = ""
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.results = nil
		} else {
			m.results = msg.resp.Results
			m.cursor = 0
			m.lastQuery = msg.query
			m.status = searchStatus(msg.query, msg.resp)
		}
		m.refresh()
		return m, nil
	case generateDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Generation failed: " + msg.err.Error()
			return m, nil
		}
		card, err := render.String(msg.out.Item, render.FormatTournament)
		if err != nil {
			m.status = "Error: " + err.Error()
			return m, nil
		}
		m.card = render.Header(msg.out.Item) + "\n\n" + card
		if len(msg.out.Item.ValidationErrors) > 0 {
			m.card += "\nChecklist:\n- " + strings.Join(msg.out.Item.ValidationErrors, "\n- ")
		}
		m.results = msg.out.Context
		m.cursor = 0
		m.status = fmt.Sprintf("Generated from %q (context %s, %d passages)", msg.request, msg.out.ContextStatus, len(msg.out.Context))
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if q := strings.TrimSpace(m.input.Value()); q != "" && !m.busy {
				m.busy = true
				m.status = fmt.Sprintf("Searching %q...", q)
				return m, m.search(q)
			}
		case "ctrl+g":
			if q := strings.TrimSpace(m.input.Value()); q != "" && !m.busy {
				m.busy = true
				m.status = fmt.Sprintf("Generating %q...", q)
				return m, m.generate(q)
			}
		case "esc":
			if m.card != "" {
				m.card = ""
				m.refresh()
				return m, nil
			}
		case "down":
			if m.card == "" && len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.refresh()
				return m, nil
			}
		case "up":
			if m.card == "" && len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.refresh()
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) search(q string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, searchTimeout)
		defer cancel()
		resp, err := m.service.Search(ctx, q, searchLimit)
		return searchDoneMsg{query: q, resp: resp, err: err}
	}
}

func (m Model) generate(q string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, generateTimeout)
		defer cancel()
		out, err := m.service.Generate(ctx, q)
		return generateDoneMsg{request: q, out: out, err: err}
	}
}

func searchStatus(q string, resp retrieval.Response) string {
	switch {
	case resp.Status != retrieval.StatusReady:
		return fmt.Sprintf("Knowledge base %s", resp.Status)
	case resp.Lexical:
		return fmt.Sprintf("Results for %q (keyword match)", q)
	default:
		return fmt.Sprintf("Results for %q", q)
	}
}

// View renders the TUI layout and the current result or item card.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Itemforge")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderCurrent())
	m.viewport.GotoTop()
}

func (m Model) renderCurrent() string {
	if m.card != "" {
		return m.card
	}
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  %s  score=%.3f", m.cursor+1, len(m.results), resultName(r), r.Score)
	if src := r.Metadata.Source(); src != "" {
		title += "\n" + sourceStyle.Render(src)
	}
	body := highlightBestSentence(r.Text, m.lastQuery)
	return title + "\n\n" + body
}

func resultName(r domain.SearchResult) string {
	if name := r.Metadata.String("name"); name != "" {
		return name
	}
	if sec := r.Metadata.Section(); sec != "" {
		return sec
	}
	return r.Metadata.Kind()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := textutil.TokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		if score := textutil.Overlap(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}
