package db

import (
	"database/sql"
	"time"
)

// PurchaseStatus represents the outcome of a purchase attempt
type PurchaseStatus string

const (
	StatusSuccess PurchaseStatus = "success"
	StatusFailed  PurchaseStatus = "failed"
)

// Purchase is one recorded purchase attempt
type Purchase struct {
	ID           int64
	BatchID      string
	ComicID      int
	ComicTitle   string
	EpisodeID    int
	EpisodeTitle string
	CouponID     int
	Status       PurchaseStatus
	ErrorMessage string
	CreatedAt    time.Time
}

// PurchaseSummary aggregates the purchase ledger
type PurchaseSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Batches   int
	Comics    int
}

// RecordPurchase stores a purchase attempt
func RecordPurchase(p *Purchase) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	var errMsg sql.NullString
	if p.ErrorMessage != "" {
		errMsg = sql.NullString{String: p.ErrorMessage, Valid: true}
	}

	result, err := database.Exec(`
		INSERT INTO purchases (
			batch_id, comic_id, comic_title, episode_id, episode_title,
			coupon_id, status, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.BatchID, p.ComicID, p.ComicTitle, p.EpisodeID, p.EpisodeTitle,
		p.CouponID, string(p.Status), errMsg, p.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// ListPurchases retrieves the most recent purchase attempts, newest first.
// A comicID of 0 lists every comic.
func ListPurchases(comicID int, limit int) ([]*Purchase, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, batch_id, comic_id, comic_title, episode_id, episode_title,
			coupon_id, status, error_message, created_at
		FROM purchases`
	args := []interface{}{}
	if comicID != 0 {
		query += ` WHERE comic_id = ?`
		args = append(args, comicID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := database.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPurchases(rows)
}

// ListBatch retrieves the attempts of one batch in the order they were made
func ListBatch(batchID string) ([]*Purchase, error) {
	rows, err := database.Query(`
		SELECT id, batch_id, comic_id, comic_title, episode_id, episode_title,
			coupon_id, status, error_message, created_at
		FROM purchases
		WHERE batch_id = ?
		ORDER BY id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPurchases(rows)
}

// GetPurchaseStats returns ledger totals
func GetPurchaseStats() (*PurchaseSummary, error) {
	s := &PurchaseSummary{}
	err := database.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT batch_id),
			COUNT(DISTINCT CASE WHEN comic_id != 0 THEN comic_id END)
		FROM purchases`, string(StatusSuccess), string(StatusFailed)).Scan(
		&s.Total, &s.Succeeded, &s.Failed, &s.Batches, &s.Comics,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ClearPurchases removes the whole ledger
func ClearPurchases() error {
	_, err := database.Exec(`DELETE FROM purchases`)
	return err
}

func scanPurchases(rows *sql.Rows) ([]*Purchase, error) {
	var purchases []*Purchase
	for rows.Next() {
		p := &Purchase{}
		var errMsg sql.NullString
		var status string
		err := rows.Scan(
			&p.ID, &p.BatchID, &p.ComicID, &p.ComicTitle, &p.EpisodeID, &p.EpisodeTitle,
			&p.CouponID, &status, &errMsg, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		p.Status = PurchaseStatus(status)
		if errMsg.Valid {
			p.ErrorMessage = errMsg.String
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
