package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"fxjournal/internal/models"
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetOrCreateTag resolves a user-scoped tag name, creating it on first use
func (db *DB) GetOrCreateTag(userID, name string) (*models.Tag, error) {
	var t models.Tag
	err := db.conn.QueryRow(`SELECT id, user_id, name FROM tags WHERE user_id = $1 AND name = $2`,
		userID, name).Scan(&t.ID, &t.UserID, &t.Name)
	if err == nil {
		return &t, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	t = models.Tag{UserID: userID, Name: name}
	err = db.conn.QueryRow(`INSERT INTO tags (user_id, name) VALUES ($1, $2) RETURNING id`,
		userID, name).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return &t, nil
}

// GetTagsByUser lists a user's tags
func (db *DB) GetTagsByUser(userID string) ([]*models.Tag, error) {
	rows, err := db.conn.Query(`SELECT id, user_id, name FROM tags WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}

// LinkTradeTag attaches a tag to a trade
func (db *DB) LinkTradeTag(tradeID, tagID int) error {
	_, err := db.conn.Exec(
		`INSERT INTO trade_tags (trade_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		tradeID, tagID)
	if err != nil {
		return fmt.Errorf("failed to link trade tag: %w", err)
	}
	return nil
}

// UnlinkTradeTags removes all tag links for a trade
func (db *DB) UnlinkTradeTags(tradeID int) error {
	if _, err := db.conn.Exec(`DELETE FROM trade_tags WHERE trade_id = $1`, tradeID); err != nil {
		return fmt.Errorf("failed to unlink trade tags: %w", err)
	}
	return nil
}

// GetTagNamesByTradeIDs returns the tag names attached to each of the given
// trades in one query. Trades without tags are absent from the map.
func (db *DB) GetTagNamesByTradeIDs(tradeIDs []int) (map[int][]string, error) {
	if len(tradeIDs) == 0 {
		return map[int][]string{}, nil
	}

	rows, err := db.conn.Query(`
		SELECT tt.trade_id, t.name
		FROM trade_tags tt
		JOIN tags t ON t.id = tt.tag_id
		WHERE tt.trade_id = ANY($1)`,
		pq.Array(tradeIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query trade tags: %w", err)
	}
	defer rows.Close()

	names := make(map[int][]string)
	for rows.Next() {
		var tradeID int
		var name string
		if err := rows.Scan(&tradeID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan trade tag: %w", err)
		}
		names[tradeID] = append(names[tradeID], name)
	}
	return names, rows.Err()
}
