package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository persists final match results. Only the networked best-of mode
// is ever recorded; intermediate game state never reaches the database.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// RecordMatch inserts a final result and returns the new match id.
// The winner is derived here: higher score wins, equal scores are a draw
// and leave winner_id NULL.
func (r *Repository) RecordMatch(ctx context.Context, player1ID, player2ID string, score1, score2 int, kind string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialized")
	}

	winnerID, hasWinner := DeriveWinner(player1ID, player2ID, score1, score2)
	var winner sql.NullString
	if hasWinner {
		winner = sql.NullString{String: winnerID, Valid: true}
	}

	q := `INSERT INTO match_results (
	        player1_id, player2_id, score1, score2, kind, winner_id, played_at
	      ) VALUES ($1,$2,$3,$4,$5,$6,$7)
	      RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, q,
		player1ID, player2ID, score1, score2, strings.TrimSpace(kind), winner, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record match: %w", err)
	}
	return id, nil
}

// DeriveWinner picks the higher-scoring player. Equal scores are a draw
// and report no winner.
func DeriveWinner(player1ID, player2ID string, score1, score2 int) (string, bool) {
	switch {
	case score1 > score2:
		return player1ID, true
	case score2 > score1:
		return player2ID, true
	default:
		return "", false
	}
}
