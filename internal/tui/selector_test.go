package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
	"github.com/billmal071/mangaunlock/internal/db"
)

func TestSelector(t *testing.T) {
	comics := []*bilimanga.Comic{
		bilimanga.NewComic(1, "Pastel Sky", []string{"Hana"}, bilimanga.DefaultCategory, nil, nil),
		bilimanga.NewComic(2, "Pastel Sky 2", nil, bilimanga.DefaultCategory, []string{"Fantasy"}, nil),
	}

	var m tea.Model = NewSelector(comics, "Results")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.NotNil(t, cmd)
	selected := m.(SelectorModel).Selected()
	if assert.NotNil(t, selected) {
		assert.Equal(t, 2, selected.ID)
	}
	assert.Contains(t, m.View(), "Pastel Sky 2 [2]")
}

func TestSelector_Cancel(t *testing.T) {
	comics := []*bilimanga.Comic{bilimanga.NewComic(1, "Pastel Sky", nil, bilimanga.DefaultCategory, nil, nil)}

	var m tea.Model = NewSelector(comics, "Results")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, m.(SelectorModel).Selected())
	assert.Contains(t, m.View(), "Cancelled")
}

func TestRunSelector_Empty(t *testing.T) {
	_, err := RunSelector(nil, "Results")
	assert.ErrorIs(t, err, ErrNothingToSelect)
}

func TestComicItem_Description(t *testing.T) {
	bare := ComicItem{Comic: bilimanga.NewComic(1, "Pastel Sky", nil, 0, nil, nil)}
	assert.Contains(t, bare.Description(), "No metadata available")

	full := ComicItem{Comic: bilimanga.NewComic(1, "Pastel Sky", []string{"Hana", "Sora"}, 0, []string{"Fantasy"}, nil)}
	assert.Contains(t, full.Description(), "Hana,Sora | Fantasy")
}

func TestHistorySelector(t *testing.T) {
	history := []*db.SearchHistory{
		{ID: 2, Query: "pastel", ResultCount: 2, TopTitles: []string{"Pastel Sky", "Pastel Sky 2"}, CreatedAt: time.Now()},
		{ID: 1, Query: "sky", ResultCount: 5, TopTitles: []string{"Blue Sky"}, PickedComicID: 9, PickedTitle: "Blue Sky", Unlocked: 4, CreatedAt: time.Now()},
	}

	var m tea.Model = NewHistorySelector(history)
	view := m.View()
	assert.Contains(t, view, "Pastel Sky, Pastel Sky 2")
	assert.Contains(t, view, "picked Blue Sky [9], 4 chapter(s) unlocked")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	selected := m.(HistorySelectorModel).Selected()
	if assert.NotNil(t, selected) {
		assert.Equal(t, "sky", selected.Query)
	}
	assert.Contains(t, m.View(), "Searching again: sky")
}

func TestFormatSearchResults(t *testing.T) {
	assert.Equal(t, "no comics found", FormatSearchResults(&db.SearchHistory{}))
	assert.Equal(t, "Pastel Sky", FormatSearchResults(&db.SearchHistory{ResultCount: 1, TopTitles: []string{"Pastel Sky"}}))
	assert.Equal(t, "A, B, C, +4 more (cached)", FormatSearchResults(&db.SearchHistory{
		ResultCount: 7, TopTitles: []string{"A", "B", "C"}, FromCache: true,
	}))
}

func TestFormatSearchOutcome(t *testing.T) {
	assert.Equal(t, "nothing picked", FormatSearchOutcome(&db.SearchHistory{}))
	assert.Equal(t, "picked Pastel Sky [7]", FormatSearchOutcome(&db.SearchHistory{PickedComicID: 7, PickedTitle: "Pastel Sky"}))
	assert.Equal(t, "picked Pastel Sky [7], 2 chapter(s) unlocked",
		FormatSearchOutcome(&db.SearchHistory{PickedComicID: 7, PickedTitle: "Pastel Sky", Unlocked: 2}))
}

func TestRunHistorySelector_Empty(t *testing.T) {
	_, err := RunHistorySelector(nil)
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestFormatPending(t *testing.T) {
	locked := func(ids ...int) []bilimanga.Chapter {
		var chs []bilimanga.Chapter
		for _, id := range ids {
			chs = append(chs, bilimanga.Chapter{ID: id, Locked: true})
		}
		return chs
	}

	assert.Equal(t, "no chapters locked", FormatPending(bilimanga.NewComic(1, "a", nil, 0, nil, nil)))
	assert.Equal(t, "1 chapter locked", FormatPending(bilimanga.NewComic(1, "a", nil, 0, nil, locked(1))))
	assert.Equal(t, "3 chapters locked", FormatPending(bilimanga.NewComic(1, "a", nil, 0, nil, locked(1, 2, 3))))
}
