package models

// Symbol is a normalized instrument name, created lazily on first reference
// and shared across users. Symbols are never updated or deleted.
type Symbol struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
