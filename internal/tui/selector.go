package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
)

// ErrNothingToSelect is returned when the selector is given no comics
var ErrNothingToSelect = errors.New("no comics to select from")

// ComicItem wraps a Comic for the list component
type ComicItem struct {
	Comic *bilimanga.Comic
}

func (c ComicItem) Title() string { return c.Comic.Name }

func (c ComicItem) Description() string {
	var parts []string

	if authors := c.Comic.AuthorsString(); authors != "" {
		parts = append(parts, authors)
	}
	if styles := c.Comic.StylesString(); styles != "" {
		parts = append(parts, styles)
	}

	if len(parts) == 0 {
		return DimStyle.Render("No metadata available")
	}
	return DimStyle.Render(strings.Join(parts, " | "))
}

func (c ComicItem) FilterValue() string { return c.Comic.Name }

// ComicDelegate handles rendering of comic items
type ComicDelegate struct{}

func (d ComicDelegate) Height() int                             { return 2 }
func (d ComicDelegate) Spacing() int                            { return 0 }
func (d ComicDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d ComicDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	comic, ok := item.(ComicItem)
	if !ok {
		return
	}

	title := FormatComic(comic.Comic)
	if r := []rune(title); len(r) > 60 {
		title = string(r[:57]) + "..."
	}

	var str string
	if index == m.Index() {
		str = SelectedStyle.Render(fmt.Sprintf("  ➤ %d. %s", index+1, title))
	} else {
		str = NormalStyle.Render(fmt.Sprintf("    %d. %s", index+1, title))
	}
	str += "\n" + DimStyle.Render(fmt.Sprintf("      %s", comic.Description()))

	fmt.Fprint(w, str)
}

// newComicList builds the list used by both the selector and the shell
func newComicList(comics []*bilimanga.Comic, title string) list.Model {
	items := make([]list.Item, len(comics))
	for i, comic := range comics {
		items[i] = ComicItem{Comic: comic}
	}

	l := list.New(items, ComicDelegate{}, 70, 4+len(comics)*2)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = TitleStyle
	return l
}

// SelectorModel is the Bubble Tea model for comic selection
type SelectorModel struct {
	list     list.Model
	selected *bilimanga.Comic
	quitting bool
}

// NewSelector creates a new comic selector TUI
func NewSelector(comics []*bilimanga.Comic, title string) SelectorModel {
	return SelectorModel{list: newComicList(comics, title)}
}

func (m SelectorModel) Init() tea.Cmd {
	return nil
}

func (m SelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(ComicItem); ok {
				m.selected = item.Comic
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

func (m SelectorModel) View() string {
	if m.selected != nil {
		return SuccessStyle.Render(fmt.Sprintf("\n  ✓ Selected: %s\n", FormatComic(m.selected)))
	}

	if m.quitting {
		return DimStyle.Render("\n  Cancelled.\n")
	}

	help := HelpStyle.Render("  " + strings.Join([]string{"↑/↓: navigate", "enter: select", "q/esc: cancel"}, " • "))
	return "\n" + m.list.View() + "\n" + help
}

// Selected returns the selected comic
func (m SelectorModel) Selected() *bilimanga.Comic {
	return m.selected
}

// RunSelector displays the TUI and returns the selected comic, or nil if cancelled
func RunSelector(comics []*bilimanga.Comic, title string) (*bilimanga.Comic, error) {
	if len(comics) == 0 {
		return nil, ErrNothingToSelect
	}

	p := tea.NewProgram(NewSelector(comics, title))

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	return finalModel.(SelectorModel).Selected(), nil
}
