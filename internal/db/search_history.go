package db

import (
	"encoding/json"
	"time"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
)

// topTitleCount is how many result titles a search keeps for display
const topTitleCount = 3

// SearchHistory is one search and what came of it
type SearchHistory struct {
	ID          int64
	Query       string
	ResultCount int
	TopTitles   []string
	FromCache   bool

	// PickedComicID is 0 until a result is chosen
	PickedComicID int
	PickedTitle   string
	Unlocked      int

	CreatedAt time.Time
}

// Picked reports whether a result of the search was chosen
func (h *SearchHistory) Picked() bool { return h.PickedComicID != 0 }

// RecordSearch saves a search together with its leading result titles and
// returns the new row id
func RecordSearch(query string, comics []*bilimanga.Comic, fromCache bool) (int64, error) {
	titles := make([]string, 0, topTitleCount)
	for _, c := range comics {
		if len(titles) == topTitleCount {
			break
		}
		titles = append(titles, c.Name)
	}
	titlesJSON, err := json.Marshal(titles)
	if err != nil {
		return 0, err
	}

	result, err := database.Exec(`
		INSERT INTO search_history (query, query_key, result_count, top_titles, from_cache, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		query, bilimanga.NormalizeTitle(query), len(comics), string(titlesJSON), fromCache, time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// MarkSearchPicked notes the comic chosen from a search's results
func MarkSearchPicked(searchID int64, comic *bilimanga.Comic) error {
	_, err := database.Exec(`
		UPDATE search_history SET picked_comic_id = ?, picked_title = ?, unlocked = 0
		WHERE id = ?`, comic.ID, comic.Name, searchID)
	return err
}

// MarkSearchUnlocked adds to the chapters unlocked from a search's picked comic
func MarkSearchUnlocked(searchID int64, unlocked int) error {
	_, err := database.Exec(`
		UPDATE search_history SET unlocked = unlocked + ?
		WHERE id = ? AND picked_comic_id != 0`, unlocked, searchID)
	return err
}

// RecentSearches returns the latest search per keyword, newest first.
// Keywords that differ only by width or case count as one.
func RecentSearches(limit int) ([]*SearchHistory, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := database.Query(`
		SELECT id, query, result_count, top_titles, from_cache,
		       picked_comic_id, picked_title, unlocked, created_at
		FROM search_history
		WHERE id IN (
			SELECT MAX(id) FROM search_history GROUP BY query_key
		)
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*SearchHistory
	for rows.Next() {
		h := &SearchHistory{}
		var titles string
		if err := rows.Scan(&h.ID, &h.Query, &h.ResultCount, &titles, &h.FromCache,
			&h.PickedComicID, &h.PickedTitle, &h.Unlocked, &h.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(titles), &h.TopTitles); err != nil {
			h.TopTitles = nil
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// ClearSearchHistory removes all search history
func ClearSearchHistory() error {
	_, err := database.Exec(`DELETE FROM search_history`)
	return err
}
