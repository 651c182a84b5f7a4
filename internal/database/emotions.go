package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"fxjournal/internal/models"
)

// GetOrCreateEmotion resolves a user-scoped emotion name, creating it on
// first use
func (db *DB) GetOrCreateEmotion(userID, name string) (*models.Emotion, error) {
	var e models.Emotion
	err := db.conn.QueryRow(`SELECT id, user_id, name FROM emotions WHERE user_id = $1 AND name = $2`,
		userID, name).Scan(&e.ID, &e.UserID, &e.Name)
	if err == nil {
		return &e, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get emotion: %w", err)
	}

	e = models.Emotion{UserID: userID, Name: name}
	err = db.conn.QueryRow(`INSERT INTO emotions (user_id, name) VALUES ($1, $2) RETURNING id`,
		userID, name).Scan(&e.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create emotion: %w", err)
	}
	return &e, nil
}

// GetEmotionsByUser lists a user's emotions
func (db *DB) GetEmotionsByUser(userID string) ([]*models.Emotion, error) {
	rows, err := db.conn.Query(`SELECT id, user_id, name FROM emotions WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query emotions: %w", err)
	}
	defer rows.Close()

	var emotions []*models.Emotion
	for rows.Next() {
		var e models.Emotion
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name); err != nil {
			return nil, fmt.Errorf("failed to scan emotion: %w", err)
		}
		emotions = append(emotions, &e)
	}
	return emotions, rows.Err()
}

// LinkTradeEmotion attaches an emotion to a trade
func (db *DB) LinkTradeEmotion(tradeID, emotionID int) error {
	_, err := db.conn.Exec(
		`INSERT INTO trade_emotions (trade_id, emotion_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		tradeID, emotionID)
	if err != nil {
		return fmt.Errorf("failed to link trade emotion: %w", err)
	}
	return nil
}

// UnlinkTradeEmotions removes all emotion links for a trade
func (db *DB) UnlinkTradeEmotions(tradeID int) error {
	if _, err := db.conn.Exec(`DELETE FROM trade_emotions WHERE trade_id = $1`, tradeID); err != nil {
		return fmt.Errorf("failed to unlink trade emotions: %w", err)
	}
	return nil
}

// GetEmotionNamesByTradeIDs returns the emotion names attached to each of
// the given trades in one query.
func (db *DB) GetEmotionNamesByTradeIDs(tradeIDs []int) (map[int][]string, error) {
	if len(tradeIDs) == 0 {
		return map[int][]string{}, nil
	}

	rows, err := db.conn.Query(`
		SELECT te.trade_id, e.name
		FROM trade_emotions te
		JOIN emotions e ON e.id = te.emotion_id
		WHERE te.trade_id = ANY($1)`,
		pq.Array(tradeIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query trade emotions: %w", err)
	}
	defer rows.Close()

	names := make(map[int][]string)
	for rows.Next() {
		var tradeID int
		var name string
		if err := rows.Scan(&tradeID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan trade emotion: %w", err)
		}
		names[tradeID] = append(names[tradeID], name)
	}
	return names, rows.Err()
}
