package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
)

// cachedComic is the stored form of a search result
type cachedComic struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Authors  []string `json:"authors"`
	Category int      `json:"category"`
	Styles   []string `json:"styles"`
}

// CachedSearch is one cached keyword and the comics it returned
type CachedSearch struct {
	Query     string
	Comics    []*bilimanga.Comic
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is no longer served
func (c *CachedSearch) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// GenerateCacheKey derives a cache key from a keyword. Keywords that differ
// only by width or case share a key.
func GenerateCacheKey(keyword string) string {
	hash := sha256.Sum256([]byte(bilimanga.NormalizeTitle(keyword)))
	return fmt.Sprintf("%x", hash[:16])
}

// LookupSearch returns cached comics for a keyword, or ok=false on a miss
func LookupSearch(keyword string) (comics []*bilimanga.Comic, ok bool, err error) {
	var results string
	err = database.QueryRow(`
		SELECT results_json FROM search_cache
		WHERE cache_key = ? AND expires_at > ?`,
		GenerateCacheKey(keyword), time.Now().Unix(),
	).Scan(&results)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	comics, err = decodeComics(results)
	if err != nil {
		return nil, false, fmt.Errorf("decoding cached search %q: %w", keyword, err)
	}
	return comics, true, nil
}

// StoreSearch caches the comics returned for a keyword
func StoreSearch(keyword string, comics []*bilimanga.Comic, ttl time.Duration) error {
	cached := make([]cachedComic, 0, len(comics))
	for _, c := range comics {
		cached = append(cached, cachedComic{
			ID:       c.ID,
			Name:     c.Name,
			Authors:  c.Authors,
			Category: int(c.Category),
			Styles:   c.Styles,
		})
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = database.Exec(`
		INSERT OR REPLACE INTO search_cache (cache_key, query, results_json, result_count, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		GenerateCacheKey(keyword), keyword, string(data), len(comics), now.Unix(), now.Add(ttl).Unix())
	return err
}

// ListCachedSearches returns every cache entry, expired ones included,
// soonest to expire last
func ListCachedSearches() ([]*CachedSearch, error) {
	rows, err := database.Query(`
		SELECT query, results_json, created_at, expires_at
		FROM search_cache
		ORDER BY expires_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*CachedSearch
	for rows.Next() {
		var results string
		var created, expires int64
		e := &CachedSearch{}
		if err := rows.Scan(&e.Query, &results, &created, &expires); err != nil {
			return nil, err
		}
		if e.Comics, err = decodeComics(results); err != nil {
			return nil, fmt.Errorf("decoding cached search %q: %w", e.Query, err)
		}
		e.CreatedAt = time.Unix(created, 0)
		e.ExpiresAt = time.Unix(expires, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CleanExpiredCache removes expired cache entries
func CleanExpiredCache() (int64, error) {
	result, err := database.Exec(`DELETE FROM search_cache WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ClearSearchCache clears all cached search results
func ClearSearchCache() error {
	_, err := database.Exec(`DELETE FROM search_cache`)
	return err
}

func decodeComics(results string) ([]*bilimanga.Comic, error) {
	var cached []cachedComic
	if err := json.Unmarshal([]byte(results), &cached); err != nil {
		return nil, err
	}

	comics := make([]*bilimanga.Comic, 0, len(cached))
	for _, c := range cached {
		comics = append(comics, bilimanga.NewComic(c.ID, c.Name, c.Authors, bilimanga.Category(c.Category), c.Styles, nil))
	}
	return comics, nil
}
