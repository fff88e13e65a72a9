package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pixelponies/database"
	"pixelponies/domain/entities"
	"pixelponies/domain/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	raceColumns = `
		race_id, start_time, betting_closes_at, end_time, status, horses,
		winner_horse_id, winner_horse_name, prize_pool, total_payout,
		unpaid_amount, settled_at, carried_over_at, created_at`

	uniqueViolation     = "23505"
	singleOpenRaceIndex = "idx_races_single_open"
)

// RaceRepository implements the RaceRepository interface
type RaceRepository struct {
	q queryable
}

// NewRaceRepository creates a new race repository
func NewRaceRepository(db *database.DB) *RaceRepository {
	return &RaceRepository{q: db.Pool}
}

func newRaceRepository(q queryable) *RaceRepository {
	return &RaceRepository{q: q}
}

// Create inserts a new race. A second open race trips the partial unique index.
func (r *RaceRepository) Create(ctx context.Context, race *entities.Race) error {
	horses, err := json.Marshal(race.Horses)
	if err != nil {
		return fmt.Errorf("failed to marshal horses for race %s: %w", race.RaceID, err)
	}

	query := `
		INSERT INTO races (race_id, start_time, betting_closes_at, status, horses, prize_pool)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err = r.q.QueryRow(ctx, query,
		race.RaceID,
		race.StartTime,
		race.BettingClosesAt,
		race.Status,
		horses,
		race.PrizePool,
	).Scan(&race.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == singleOpenRaceIndex {
			return interfaces.ErrActiveRaceExists
		}
		return fmt.Errorf("failed to create race %s: %w", race.RaceID, err)
	}

	return nil
}

// GetByID retrieves a race by ID
func (r *RaceRepository) GetByID(ctx context.Context, raceID string) (*entities.Race, error) {
	query := `SELECT ` + raceColumns + ` FROM races WHERE race_id = $1`
	return r.getOne(ctx, query, raceID)
}

// GetByIDForUpdate retrieves a race by ID, locking the row until the transaction ends
func (r *RaceRepository) GetByIDForUpdate(ctx context.Context, raceID string) (*entities.Race, error) {
	query := `SELECT ` + raceColumns + ` FROM races WHERE race_id = $1 FOR UPDATE`
	return r.getOne(ctx, query, raceID)
}

// GetOpenRace returns the race holding the open slot
func (r *RaceRepository) GetOpenRace(ctx context.Context) (*entities.Race, error) {
	query := `
		SELECT ` + raceColumns + `
		FROM races
		WHERE status IN ('betting_open', 'racing')
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query)
}

// UpdateStatus moves a race forward only if it is still in the expected status
func (r *RaceRepository) UpdateStatus(ctx context.Context, raceID string, from, to entities.RaceStatus) (bool, error) {
	query := `UPDATE races SET status = $3 WHERE race_id = $1 AND status = $2`

	result, err := r.q.Exec(ctx, query, raceID, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to move race %s from %s to %s: %w", raceID, from, to, err)
	}

	return result.RowsAffected() == 1, nil
}

// SaveResults persists the simulated roster and winner, moving racing to finished
func (r *RaceRepository) SaveResults(ctx context.Context, race *entities.Race) (bool, error) {
	horses, err := json.Marshal(race.Horses)
	if err != nil {
		return false, fmt.Errorf("failed to marshal horses for race %s: %w", race.RaceID, err)
	}

	query := `
		UPDATE races
		SET status = 'finished', horses = $2, winner_horse_id = $3, winner_horse_name = $4, end_time = $5
		WHERE race_id = $1 AND status = 'racing'
	`

	result, err := r.q.Exec(ctx, query,
		race.RaceID,
		horses,
		race.WinnerHorseID,
		race.WinnerHorseName,
		race.EndTime,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save results for race %s: %w", race.RaceID, err)
	}

	return result.RowsAffected() == 1, nil
}

// MarkSettled stamps settlement totals once per race
func (r *RaceRepository) MarkSettled(ctx context.Context, raceID string, totalPayout, unpaid int64, settledAt time.Time) (bool, error) {
	query := `
		UPDATE races
		SET total_payout = $2, unpaid_amount = $3, settled_at = $4
		WHERE race_id = $1 AND status = 'finished' AND settled_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, raceID, totalPayout, unpaid, settledAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark race %s settled: %w", raceID, err)
	}

	return result.RowsAffected() == 1, nil
}

// UpdateSettlementTotals overwrites payout totals of a settled race
func (r *RaceRepository) UpdateSettlementTotals(ctx context.Context, raceID string, totalPayout, unpaid int64) error {
	query := `
		UPDATE races
		SET total_payout = $2, unpaid_amount = $3
		WHERE race_id = $1 AND settled_at IS NOT NULL
	`

	result, err := r.q.Exec(ctx, query, raceID, totalPayout, unpaid)
	if err != nil {
		return fmt.Errorf("failed to update settlement totals for race %s: %w", raceID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("settled race %s not found", raceID)
	}

	return nil
}

// GetStaleRaces returns unfinished races whose betting closed before the cutoff
func (r *RaceRepository) GetStaleRaces(ctx context.Context, closedBefore time.Time) ([]*entities.Race, error) {
	query := `
		SELECT ` + raceColumns + `
		FROM races
		WHERE status <> 'finished' AND betting_closes_at < $1
		ORDER BY betting_closes_at ASC
	`
	return r.getMany(ctx, query, closedBefore)
}

// GetUnsettledFinished returns finished races without a settlement stamp
func (r *RaceRepository) GetUnsettledFinished(ctx context.Context) ([]*entities.Race, error) {
	query := `
		SELECT ` + raceColumns + `
		FROM races
		WHERE status = 'finished' AND settled_at IS NULL
		ORDER BY end_time ASC
	`
	return r.getMany(ctx, query)
}

// CarryOverInto stamps every settled race whose unpaid remainder has not been carried yet
// and adds those remainders to the prize pool of intoRaceID, in one statement.
// Returns the amount carried.
func (r *RaceRepository) CarryOverInto(ctx context.Context, intoRaceID string) (int64, error) {
	query := `
		WITH carried AS (
			UPDATE races
			SET carried_over_at = NOW(), carried_into = $1
			WHERE race_id <> $1
				AND settled_at IS NOT NULL
				AND carried_over_at IS NULL
				AND unpaid_amount > 0
				AND EXISTS (SELECT 1 FROM races target WHERE target.race_id = $1)
			RETURNING unpaid_amount
		), total AS (
			SELECT COALESCE(SUM(unpaid_amount), 0)::BIGINT AS amount FROM carried
		)
		UPDATE races
		SET prize_pool = prize_pool + total.amount
		FROM total
		WHERE races.race_id = $1
		RETURNING total.amount
	`

	var amount int64
	err := r.q.QueryRow(ctx, query, intoRaceID).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", interfaces.ErrRaceNotFound, intoRaceID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to carry unpaid pools into race %s: %w", intoRaceID, err)
	}

	return amount, nil
}

// GetRecent returns the most recent races, newest first
func (r *RaceRepository) GetRecent(ctx context.Context, limit int) ([]*entities.Race, error) {
	query := `
		SELECT ` + raceColumns + `
		FROM races
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.getMany(ctx, query, limit)
}

func (r *RaceRepository) getOne(ctx context.Context, query string, args ...any) (*entities.Race, error) {
	race, err := scanRace(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race: %w", err)
	}
	return race, nil
}

func (r *RaceRepository) getMany(ctx context.Context, query string, args ...any) ([]*entities.Race, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query races: %w", err)
	}
	defer rows.Close()

	var races []*entities.Race
	for rows.Next() {
		race, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan race: %w", err)
		}
		races = append(races, race)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating races: %w", err)
	}

	return races, nil
}

func scanRace(row pgx.Row) (*entities.Race, error) {
	var race entities.Race
	var horses []byte

	err := row.Scan(
		&race.RaceID,
		&race.StartTime,
		&race.BettingClosesAt,
		&race.EndTime,
		&race.Status,
		&horses,
		&race.WinnerHorseID,
		&race.WinnerHorseName,
		&race.PrizePool,
		&race.TotalPayout,
		&race.UnpaidAmount,
		&race.SettledAt,
		&race.CarriedOverAt,
		&race.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(horses, &race.Horses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal horses for race %s: %w", race.RaceID, err)
	}

	return &race, nil
}
