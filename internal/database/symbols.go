package database

import (
	"database/sql"
	"fmt"

	"fxjournal/internal/models"
)

// GetSymbolByName retrieves a symbol by exact name match
func (db *DB) GetSymbolByName(name string) (*models.Symbol, error) {
	var s models.Symbol
	err := db.conn.QueryRow(`SELECT id, name FROM symbols WHERE name = $1`, name).
		Scan(&s.ID, &s.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("symbol %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol: %w", err)
	}
	return &s, nil
}

// CreateSymbol inserts a new symbol
func (db *DB) CreateSymbol(s *models.Symbol) error {
	err := db.conn.QueryRow(`INSERT INTO symbols (name) VALUES ($1) RETURNING id`, s.Name).
		Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create symbol: %w", err)
	}
	return nil
}

// GetOrCreateSymbol resolves an instrument name to its stable identifier,
// creating the symbol on first reference. Idempotent: resolving the same
// name twice returns the same id. Concurrent-import duplicate races are out
// of scope for this single-user tool.
func (db *DB) GetOrCreateSymbol(name string) (*models.Symbol, error) {
	s, err := db.GetSymbolByName(name)
	if err == nil {
		return s, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	s = &models.Symbol{Name: name}
	if err := db.CreateSymbol(s); err != nil {
		return nil, err
	}
	return s, nil
}
