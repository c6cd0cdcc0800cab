package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/billmal071/mangaunlock/internal/db"
)

// ErrNoHistory is returned when there are no past searches to pick from
var ErrNoHistory = errors.New("no search history available")

// FormatSearchResults summarizes what a past search returned
func FormatSearchResults(h *db.SearchHistory) string {
	if h.ResultCount == 0 {
		return "no comics found"
	}

	out := strings.Join(h.TopTitles, ", ")
	if more := h.ResultCount - len(h.TopTitles); more > 0 {
		out += fmt.Sprintf(", +%d more", more)
	}
	if h.FromCache {
		out += " (cached)"
	}
	return out
}

// FormatSearchOutcome describes what was done with a past search's results
func FormatSearchOutcome(h *db.SearchHistory) string {
	if !h.Picked() {
		return "nothing picked"
	}

	picked := fmt.Sprintf("picked %s [%d]", h.PickedTitle, h.PickedComicID)
	if h.Unlocked == 0 {
		return picked
	}
	return fmt.Sprintf("%s, %d chapter(s) unlocked", picked, h.Unlocked)
}

// searchItem is a past search in the list
type searchItem struct {
	search *db.SearchHistory
}

func (i searchItem) FilterValue() string {
	return i.search.Query + " " + strings.Join(i.search.TopTitles, " ") + " " + i.search.PickedTitle
}

// searchDelegate renders a past search on three lines: the keyword, its
// leading results and what was picked from them
type searchDelegate struct{}

func (searchDelegate) Height() int                             { return 3 }
func (searchDelegate) Spacing() int                            { return 1 }
func (searchDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (searchDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(searchItem)
	if !ok {
		return
	}
	h := it.search

	query := h.Query
	if r := []rune(query); len(r) > 60 {
		query = string(r[:57]) + "..."
	}

	head := fmt.Sprintf("    %d. %s", index+1, query)
	style := NormalStyle
	if index == m.Index() {
		head = fmt.Sprintf("  ➤ %d. %s", index+1, query)
		style = SelectedStyle
	}

	results := FormatSearchResults(h)
	if r := []rune(results); len(r) > 70 {
		results = string(r[:67]) + "..."
	}

	fmt.Fprint(w, style.Render(head)+"\n"+
		DimStyle.Render("      "+results)+"\n"+
		DimStyle.Render(fmt.Sprintf("      %s | %s", FormatSearchOutcome(h), h.CreatedAt.Local().Format("2006-01-02 15:04"))))
}

// HistorySelectorModel picks a past search to run again
type HistorySelectorModel struct {
	list     list.Model
	selected *db.SearchHistory
	quitting bool
}

// NewHistorySelector creates a new history selector TUI
func NewHistorySelector(history []*db.SearchHistory) HistorySelectorModel {
	items := make([]list.Item, len(history))
	for i, h := range history {
		items[i] = searchItem{search: h}
	}

	l := list.New(items, searchDelegate{}, 80, 24)
	l.Title = "Past Searches"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.Styles.Title = TitleStyle

	return HistorySelectorModel{list: l}
}

func (m HistorySelectorModel) Init() tea.Cmd {
	return nil
}

func (m HistorySelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Keys belong to the filter input while it is open
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if it, ok := m.list.SelectedItem().(searchItem); ok {
				m.selected = it.search
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m HistorySelectorModel) View() string {
	switch {
	case m.selected != nil:
		return SuccessStyle.Render(fmt.Sprintf("\n  ✓ Searching again: %s\n", m.selected.Query))
	case m.quitting:
		return DimStyle.Render("\n  Cancelled.\n")
	}

	return "\n" + m.list.View() + "\n" +
		HelpStyle.Render("  ↑/↓: navigate • enter: search again • /: filter by keyword or title • q: cancel")
}

// Selected returns the chosen search, or nil
func (m HistorySelectorModel) Selected() *db.SearchHistory {
	return m.selected
}

// RunHistorySelector displays the TUI and returns the selected search, or nil if cancelled
func RunHistorySelector(history []*db.SearchHistory) (*db.SearchHistory, error) {
	if len(history) == 0 {
		return nil, ErrNoHistory
	}

	p := tea.NewProgram(NewHistorySelector(history))

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	return finalModel.(HistorySelectorModel).Selected(), nil
}
