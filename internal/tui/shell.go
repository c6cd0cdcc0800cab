package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
)

// Backend is what the shell needs from the gateway and the purchaser
type Backend interface {
	CheckLogin(ctx context.Context, cred bilimanga.Credential) (bool, error)
	Search(ctx context.Context, keyword string) ([]*bilimanga.Comic, error)
	ComicDetail(ctx context.Context, comicID int, cred bilimanga.Credential) (*bilimanga.Comic, error)
	PurchaseAll(ctx context.Context, comic *bilimanga.Comic, cred bilimanga.Credential) (int, error)
}

type shellState int

const (
	stateCredential shellState = iota
	stateQuery
	stateDisambiguation
	stateConfirm
)

func (s shellState) String() string {
	switch s {
	case stateCredential:
		return "credential"
	case stateQuery:
		return "query"
	case stateDisambiguation:
		return "disambiguation"
	case stateConfirm:
		return "confirm"
	default:
		return "unknown"
	}
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
)

type loginCheckedMsg struct {
	cred bilimanga.Credential
	ok   bool
	err  error
}

type searchDoneMsg struct {
	query  string
	comics []*bilimanga.Comic
	err    error
}

type detailMsg struct {
	comic *bilimanga.Comic
	err   error
}

type purchasedMsg struct {
	comic    *bilimanga.Comic
	unlocked int
	err      error
}

// ShellModel is the interactive mode: sign in, pick a comic, unlock its chapters
type ShellModel struct {
	ctx     context.Context
	backend Backend

	state   shellState
	input   textinput.Model
	list    list.Model
	spinner spinner.Model

	busy      bool
	busyLabel string

	// cancelBatch stops a running batch after its current chapter
	cancelBatch context.CancelFunc
	stopping    bool

	cred  bilimanga.Credential
	comic *bilimanga.Comic

	status     string
	statusKind statusKind
	quitting   bool
}

// NewShell creates the shell. A non-empty credential is verified before the first prompt.
func NewShell(ctx context.Context, backend Backend, cred bilimanga.Credential) ShellModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := ShellModel{
		ctx:     ctx,
		backend: backend,
		spinner: s,
		cred:    cred,
	}
	m.enterCredential()
	if cred != "" {
		m.busy = true
		m.busyLabel = "Checking login"
	}
	return m
}

func (m ShellModel) Init() tea.Cmd {
	if m.busy {
		return tea.Batch(m.spinner.Tick, m.checkLogin(m.cred))
	}
	return textinput.Blink
}

func (m ShellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.cancelBatch != nil && !m.stopping {
				m.cancelBatch()
				m.stopping = true
				m.busyLabel = "Stopping after the current chapter"
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		if m.state == stateDisambiguation {
			m.list.SetWidth(msg.Width)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loginCheckedMsg:
		m.busy = false
		switch {
		case msg.err != nil:
			m.setStatus(statusError, "Login check failed: "+msg.err.Error())
		case !msg.ok:
			m.setStatus(statusError, "The cookie was rejected, enter another one")
		default:
			m.cred = msg.cred
			m.enterQuery()
			m.setStatus(statusSuccess, "Logged in")
		}
		return m, nil

	case searchDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus(statusError, "Search failed: "+msg.err.Error())
			return m, nil
		}
		if len(msg.comics) == 0 {
			m.setStatus(statusInfo, fmt.Sprintf("No comics found for %q", msg.query))
			return m, nil
		}
		for _, c := range msg.comics {
			if c.NameMatches(msg.query) {
				return m.startDetail(c.ID)
			}
		}
		m.state = stateDisambiguation
		m.list = newComicList(msg.comics, fmt.Sprintf("Results for %q", msg.query))
		m.status = ""
		return m, nil

	case detailMsg:
		m.busy = false
		if msg.err != nil {
			m.enterQuery()
			m.setStatus(statusError, "Could not load comic: "+msg.err.Error())
			return m, nil
		}
		m.comic = msg.comic
		m.state = stateConfirm
		m.status = ""
		return m, nil

	case purchasedMsg:
		m.busy = false
		if m.cancelBatch != nil {
			m.cancelBatch()
			m.cancelBatch = nil
		}
		m.enterQuery()
		if msg.err != nil {
			m.setStatus(statusError, fmt.Sprintf("Unlocked %d chapter(s) of %s, then stopped: %v", msg.unlocked, FormatComic(msg.comic), msg.err))
		} else {
			m.setStatus(statusSuccess, fmt.Sprintf("Unlocked %d chapter(s) of %s", msg.unlocked, FormatComic(msg.comic)))
		}
		if m.stopping {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	if m.state == stateCredential || m.state == stateQuery {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ShellModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateCredential:
		switch msg.Type {
		case tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			cred := bilimanga.Credential(strings.TrimSpace(m.input.Value()))
			if cred == "" {
				m.setStatus(statusError, "A cookie is required")
				return m, nil
			}
			return m.startBusy("Checking login", m.checkLogin(cred))
		}

	case stateQuery:
		switch msg.Type {
		case tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			query := strings.TrimSpace(m.input.Value())
			if query == "" {
				return m, nil
			}
			if id, err := strconv.Atoi(query); err == nil {
				return m.startDetail(id)
			}
			return m.startBusy("Searching", m.search(query))
		}

	case stateDisambiguation:
		switch msg.Type {
		case tea.KeyEsc:
			m.enterQuery()
			return m, nil
		case tea.KeyEnter:
			if item, ok := m.list.SelectedItem().(ComicItem); ok {
				return m.startDetail(item.Comic.ID)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd

	case stateConfirm:
		switch strings.ToLower(msg.String()) {
		case "y", "enter":
			ctx, cancel := context.WithCancel(m.ctx)
			m.cancelBatch = cancel
			return m.startBusy("Unlocking chapters", m.purchaseAll(ctx, m.comic))
		case "n", "esc":
			m.enterQuery()
			m.setStatus(statusInfo, "Cancelled")
			return m, nil
		default:
			m.setStatus(statusError, "Invalid input, press y or n")
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *ShellModel) enterCredential() {
	m.state = stateCredential
	m.input = textinput.New()
	m.input.Prompt = PromptStyle.Render("Cookie: ")
	m.input.Placeholder = "SESSDATA=..."
	m.input.EchoMode = textinput.EchoPassword
	m.input.EchoCharacter = '•'
	m.input.Focus()
}

func (m *ShellModel) enterQuery() {
	m.state = stateQuery
	m.comic = nil
	m.input = textinput.New()
	m.input.Prompt = PromptStyle.Render("Comic: ")
	m.input.Placeholder = "title or numeric id"
	m.input.Focus()
}

func (m *ShellModel) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}

func (m ShellModel) startBusy(label string, work tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy = true
	m.busyLabel = label
	m.status = ""
	return m, tea.Batch(m.spinner.Tick, work)
}

func (m ShellModel) startDetail(id int) (tea.Model, tea.Cmd) {
	return m.startBusy(fmt.Sprintf("Loading comic %d", id), m.detail(id))
}

func (m ShellModel) checkLogin(cred bilimanga.Credential) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		ok, err := backend.CheckLogin(ctx, cred)
		return loginCheckedMsg{cred: cred, ok: ok, err: err}
	}
}

func (m ShellModel) search(query string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		comics, err := backend.Search(ctx, query)
		return searchDoneMsg{query: query, comics: comics, err: err}
	}
}

func (m ShellModel) detail(id int) tea.Cmd {
	ctx, backend, cred := m.ctx, m.backend, m.cred
	return func() tea.Msg {
		comic, err := backend.ComicDetail(ctx, id, cred)
		return detailMsg{comic: comic, err: err}
	}
}

func (m ShellModel) purchaseAll(ctx context.Context, comic *bilimanga.Comic) tea.Cmd {
	backend, cred := m.backend, m.cred
	return func() tea.Msg {
		n, err := backend.PurchaseAll(ctx, comic, cred)
		return purchasedMsg{comic: comic, unlocked: n, err: err}
	}
}

func (m ShellModel) View() string {
	if m.quitting {
		if m.stopping && m.status != "" {
			return "\n  " + m.statusStyle().Render(m.status) + "\n"
		}
		return DimStyle.Render("\n  Bye.\n")
	}

	var b strings.Builder
	b.WriteString("\n" + TitleStyle.Render("mangaunlock") + "\n")

	switch m.state {
	case stateCredential, stateQuery:
		b.WriteString("  " + m.input.View() + "\n")
	case stateDisambiguation:
		b.WriteString(m.list.View() + "\n")
	case stateConfirm:
		box := fmt.Sprintf("%s\n%s\n%s",
			SelectedStyle.Render(FormatComic(m.comic)),
			DimStyle.Render(m.comic.AuthorsString()),
			WarningStyle.Render(FormatPending(m.comic)))
		b.WriteString(BoxStyle.Render(box) + "\n")
		b.WriteString("  Unlock all with coupons? (y/n)\n")
	}

	if m.busy {
		b.WriteString("\n  " + m.spinner.View() + " " + m.busyLabel + "...\n")
	} else if m.status != "" {
		b.WriteString("\n  " + m.statusStyle().Render(m.status) + "\n")
	}

	b.WriteString(HelpStyle.Render("  " + m.help()))
	return b.String()
}

func (m ShellModel) statusStyle() lipgloss.Style {
	switch m.statusKind {
	case statusSuccess:
		return SuccessStyle
	case statusError:
		return ErrorStyle
	default:
		return NormalStyle
	}
}

func (m ShellModel) help() string {
	if m.busy && m.cancelBatch != nil {
		return "ctrl+c: stop after the current chapter"
	}
	switch m.state {
	case stateDisambiguation:
		return "↑/↓: navigate • enter: select • esc: back"
	case stateConfirm:
		return "y: unlock • n/esc: back"
	default:
		return "enter: submit • esc: quit"
	}
}

// RunShell runs the interactive mode until the user quits
func RunShell(ctx context.Context, backend Backend, cred bilimanga.Credential) error {
	p := tea.NewProgram(NewShell(ctx, backend, cred), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
