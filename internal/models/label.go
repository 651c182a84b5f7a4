package models

// Tag is a user-scoped free-text label attached to trades via trade_tags.
type Tag struct {
	ID     int    `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// Emotion is a user-scoped label for the trader's state of mind, attached to
// trades via trade_emotions.
type Emotion struct {
	ID     int    `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}
