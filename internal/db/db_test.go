package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
)

func openTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, Open(filepath.Join(t.TempDir(), "nested", "mangaunlock.db")))
	t.Cleanup(func() { _ = Close() })
}

func TestOpen_CreatesSchema(t *testing.T) {
	openTestDB(t)

	for _, table := range []string{"purchases", "search_history", "search_cache"} {
		var name string
		err := DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestPurchases(t *testing.T) {
	openTestDB(t)

	attempts := []*Purchase{
		{BatchID: "b1", ComicID: 7, ComicTitle: "Pastel Sky", EpisodeID: 1, EpisodeTitle: "1", CouponID: 901, Status: StatusSuccess},
		{BatchID: "b1", ComicID: 7, ComicTitle: "Pastel Sky", EpisodeID: 2, EpisodeTitle: "2", CouponID: 902, Status: StatusFailed, ErrorMessage: "code -10000"},
		{BatchID: "b2", EpisodeID: 99, CouponID: 5, Status: StatusSuccess},
	}
	for _, p := range attempts {
		require.NoError(t, RecordPurchase(p))
		assert.NotZero(t, p.ID)
	}

	all, err := ListPurchases(0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 99, all[0].EpisodeID)
	assert.False(t, all[0].CreatedAt.IsZero())

	comic, err := ListPurchases(7, 10)
	require.NoError(t, err)
	require.Len(t, comic, 2)
	assert.Equal(t, StatusFailed, comic[0].Status)
	assert.Equal(t, "code -10000", comic[0].ErrorMessage)

	batch, err := ListBatch("b1")
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, []int{1, 2}, []int{batch[0].EpisodeID, batch[1].EpisodeID})
	assert.Empty(t, batch[0].ErrorMessage)

	stats, err := GetPurchaseStats()
	require.NoError(t, err)
	assert.Equal(t, &PurchaseSummary{Total: 3, Succeeded: 2, Failed: 1, Batches: 2, Comics: 1}, stats)

	require.NoError(t, ClearPurchases())
	all, err = ListPurchases(0, 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSearchHistory(t *testing.T) {
	openTestDB(t)

	comics := []*bilimanga.Comic{
		bilimanga.NewComic(1, "Pastel Sky", nil, 0, nil, nil),
		bilimanga.NewComic(2, "Pastel Sky 2", nil, 0, nil, nil),
		bilimanga.NewComic(3, "Pastel Sky 3", nil, 0, nil, nil),
		bilimanga.NewComic(4, "Pastel Sky 4", nil, 0, nil, nil),
	}

	first, err := RecordSearch("pastel", comics[:2], false)
	require.NoError(t, err)
	_, err = RecordSearch("sky", nil, false)
	require.NoError(t, err)
	latest, err := RecordSearch("ＰＡＳＴＥＬ", comics, true)
	require.NoError(t, err)
	assert.NotEqual(t, first, latest)

	history, err := RecentSearches(10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	h := history[0]
	assert.Equal(t, latest, h.ID)
	assert.Equal(t, "ＰＡＳＴＥＬ", h.Query)
	assert.Equal(t, 4, h.ResultCount)
	assert.Equal(t, []string{"Pastel Sky", "Pastel Sky 2", "Pastel Sky 3"}, h.TopTitles)
	assert.True(t, h.FromCache)
	assert.False(t, h.Picked())

	assert.Equal(t, "sky", history[1].Query)
	assert.Empty(t, history[1].TopTitles)
	assert.False(t, history[1].FromCache)

	require.NoError(t, ClearSearchHistory())
	history, err = RecentSearches(10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSearchHistory_PickAndUnlock(t *testing.T) {
	openTestDB(t)

	comic := bilimanga.NewComic(7, "Pastel Sky", nil, 0, nil, nil)
	id, err := RecordSearch("pastel", []*bilimanga.Comic{comic}, false)
	require.NoError(t, err)

	// nothing is counted before a pick
	require.NoError(t, MarkSearchUnlocked(id, 5))

	require.NoError(t, MarkSearchPicked(id, comic))
	require.NoError(t, MarkSearchUnlocked(id, 2))
	require.NoError(t, MarkSearchUnlocked(id, 1))

	history, err := RecentSearches(1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Picked())
	assert.Equal(t, 7, history[0].PickedComicID)
	assert.Equal(t, "Pastel Sky", history[0].PickedTitle)
	assert.Equal(t, 3, history[0].Unlocked)
}

func TestSearchCache(t *testing.T) {
	openTestDB(t)

	comics := []*bilimanga.Comic{
		bilimanga.NewComic(1, "Pastel Sky", []string{"Hana"}, bilimanga.DefaultCategory, []string{"Fantasy"}, nil),
		bilimanga.NewComic(2, "Pastel Sky 2", nil, bilimanga.DefaultCategory, []string{}, nil),
	}

	_, ok, err := LookupSearch("pastel")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, StoreSearch("pastel", comics, time.Hour))

	// width and case folding share the entry
	got, ok, err := LookupSearch("ＰＡＳＴＥＬ")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "Pastel Sky", got[0].Name)
	assert.Equal(t, []string{"Hana"}, got[0].Authors)
	assert.Equal(t, bilimanga.DefaultCategory, got[1].Category)

	entries, err := ListCachedSearches()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pastel", entries[0].Query)
	assert.Len(t, entries[0].Comics, 2)
	assert.False(t, entries[0].Expired(time.Now()))
	assert.True(t, entries[0].Expired(time.Now().Add(2*time.Hour)))
}

func TestSearchCache_Expired(t *testing.T) {
	openTestDB(t)

	require.NoError(t, StoreSearch("old", nil, -time.Minute))
	require.NoError(t, StoreSearch("fresh", nil, time.Hour))

	_, ok, err := LookupSearch("old")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := ListCachedSearches()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "fresh", entries[0].Query)
	assert.True(t, entries[1].Expired(time.Now()))

	removed, err := CleanExpiredCache()
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	require.NoError(t, ClearSearchCache())
	entries, err = ListCachedSearches()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
