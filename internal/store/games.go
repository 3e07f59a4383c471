package store

import (
	"context"
	"fmt"
)

// Game is a game category shown in the client lobby.
type Game struct {
	ID           int64  `db:"id" json:"id"`
	CategoryID   int64  `db:"category_id" json:"category_id"`
	DisplayOrder int64  `db:"display_order" json:"display_order"`
	Name         string `db:"name" json:"name"`
	DisplayName  string `db:"display_name" json:"display_name"`
}

const gameColumns = `id, category_id, display_order, COALESCE(name, '') AS name, COALESCE(display_name, '') AS display_name`

// ListGames returns all categories in display order.
func (s *Store) ListGames(ctx context.Context) ([]Game, error) {
	games := []Game{}
	if err := s.db.SelectContext(ctx, &games, `SELECT `+gameColumns+` FROM games ORDER BY display_order ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

// GameByID returns one category.
func (s *Store) GameByID(ctx context.Context, id int64) (Game, error) {
	var g Game
	if err := s.db.GetContext(ctx, &g, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id); err != nil {
		return Game{}, fmt.Errorf("game %d: %w", id, notFound(err))
	}
	return g, nil
}

// CreateGame inserts a category and returns its id.
func (s *Store) CreateGame(ctx context.Context, g Game) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO games (category_id, display_order, name, display_name) VALUES (?, ?, ?, ?)`,
		g.CategoryID, g.DisplayOrder, g.Name, g.DisplayName,
	)
	if err != nil {
		return 0, fmt.Errorf("create game: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create game: %w", err)
	}
	return id, nil
}

// SaveGame overwrites a category.
func (s *Store) SaveGame(ctx context.Context, g Game) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE games SET category_id = ?, display_order = ?, name = ?, display_name = ? WHERE id = ?`,
		g.CategoryID, g.DisplayOrder, g.Name, g.DisplayName, g.ID,
	)
	if err != nil {
		return fmt.Errorf("save game %d: %w", g.ID, err)
	}
	return nil
}
