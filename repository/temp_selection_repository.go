package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pixelponies/database"
	"pixelponies/domain/entities"

	"github.com/jackc/pgx/v5"
)

// TempSelectionRepository implements the TempSelectionRepository interface
type TempSelectionRepository struct {
	q queryable
}

// NewTempSelectionRepository creates a new temp selection repository
func NewTempSelectionRepository(db *database.DB) *TempSelectionRepository {
	return &TempSelectionRepository{q: db.Pool}
}

func newTempSelectionRepository(q queryable) *TempSelectionRepository {
	return &TempSelectionRepository{q: q}
}

// Insert stores a selection. The first pick wins; false means one already exists.
func (r *TempSelectionRepository) Insert(ctx context.Context, selection *entities.TempSelection) (bool, error) {
	query := `
		INSERT INTO temp_selections (user_id, race_id, horse_id, horse_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, race_id) DO NOTHING
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		selection.UserID,
		selection.RaceID,
		selection.HorseID,
		selection.HorseName,
	).Scan(&selection.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert selection for user %d in race %s: %w", selection.UserID, selection.RaceID, err)
	}

	return true, nil
}

// Get retrieves a selection
func (r *TempSelectionRepository) Get(ctx context.Context, userID int64, raceID string) (*entities.TempSelection, error) {
	query := `
		SELECT user_id, race_id, horse_id, horse_name, created_at
		FROM temp_selections
		WHERE user_id = $1 AND race_id = $2
	`

	var s entities.TempSelection
	err := r.q.QueryRow(ctx, query, userID, raceID).Scan(
		&s.UserID,
		&s.RaceID,
		&s.HorseID,
		&s.HorseName,
		&s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get selection for user %d in race %s: %w", userID, raceID, err)
	}

	return &s, nil
}

// Delete removes a selection. Deleting a missing selection is not an error.
func (r *TempSelectionRepository) Delete(ctx context.Context, userID int64, raceID string) error {
	query := `DELETE FROM temp_selections WHERE user_id = $1 AND race_id = $2`

	if _, err := r.q.Exec(ctx, query, userID, raceID); err != nil {
		return fmt.Errorf("failed to delete selection for user %d in race %s: %w", userID, raceID, err)
	}

	return nil
}

// DeleteOlderThan purges selections created before the cutoff
func (r *TempSelectionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM temp_selections WHERE created_at < $1`

	result, err := r.q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge selections: %w", err)
	}

	return result.RowsAffected(), nil
}
