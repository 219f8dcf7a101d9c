package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"spendlens/domain/core"
	"spendlens/domain/insight"
	"spendlens/ports"
)

// snapshotRepository implements the SnapshotRepository interface
type snapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new scorecard snapshot repository
func NewSnapshotRepository(db *sqlx.DB) ports.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Save stores one computed scorecard as a JSON payload
func (r *snapshotRepository) Save(ctx context.Context, id core.SnapshotID, card *insight.Scorecard) error {
	payload, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal scorecard: %w", err)
	}

	query := `INSERT INTO scorecard_snapshots (id, generated_at, payload)
		VALUES ($1, $2, $3)`

	_, err = r.db.ExecContext(ctx, query, id.String(), card.GeneratedAt, payload)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// Latest retrieves the most recently generated scorecard
func (r *snapshotRepository) Latest(ctx context.Context) (*insight.Scorecard, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT payload FROM scorecard_snapshots
		ORDER BY generated_at DESC LIMIT 1`).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	var card insight.Scorecard
	if err := json.Unmarshal(payload, &card); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scorecard: %w", err)
	}
	return &card, nil
}

// ListSince retrieves scorecards generated after the given time, oldest
// first, for trend queries.
func (r *snapshotRepository) ListSince(ctx context.Context, since time.Time) ([]*insight.Scorecard, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM scorecard_snapshots
		WHERE generated_at >= $1
		ORDER BY generated_at ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var cards []*insight.Scorecard
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		var card insight.Scorecard
		if err := json.Unmarshal(payload, &card); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scorecard: %w", err)
		}
		cards = append(cards, &card)
	}

	return cards, rows.Err()
}
