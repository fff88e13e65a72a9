package repository

import (
	"context"
	"errors"
	"fmt"

	"pixelponies/database"
	"pixelponies/domain/entities"

	"github.com/jackc/pgx/v5"
)

const participantColumns = `
	p.race_id, p.user_id, p.username, p.horse_id, p.horse_name, p.tweet_url, p.joined_at,
	p.payout, p.payout_attempted_at, p.payout_tx_ref, p.payout_error, p.payout_pending_tx,
	p.reward_attempted_at`

// ParticipantRepository implements the ParticipantRepository interface
type ParticipantRepository struct {
	q queryable
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(db *database.DB) *ParticipantRepository {
	return &ParticipantRepository{q: db.Pool}
}

func newParticipantRepository(q queryable) *ParticipantRepository {
	return &ParticipantRepository{q: q}
}

// Create inserts a confirmed bet. Returns false if the user already joined the race.
func (r *ParticipantRepository) Create(ctx context.Context, participant *entities.Participant) (bool, error) {
	query := `
		INSERT INTO race_participants (race_id, user_id, username, horse_id, horse_name, tweet_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (race_id, user_id) DO NOTHING
		RETURNING joined_at
	`

	err := r.q.QueryRow(ctx, query,
		participant.RaceID,
		participant.UserID,
		participant.Username,
		participant.HorseID,
		participant.HorseName,
		participant.TweetURL,
	).Scan(&participant.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create participant %d in race %s: %w", participant.UserID, participant.RaceID, err)
	}

	return true, nil
}

// Get retrieves a participant
func (r *ParticipantRepository) Get(ctx context.Context, raceID string, userID int64) (*entities.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM race_participants p WHERE p.race_id = $1 AND p.user_id = $2`

	participant, err := scanParticipant(r.q.QueryRow(ctx, query, raceID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant %d in race %s: %w", userID, raceID, err)
	}

	return participant, nil
}

// GetByRace returns all participants of a race ordered by join time
func (r *ParticipantRepository) GetByRace(ctx context.Context, raceID string) ([]*entities.Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM race_participants p
		WHERE p.race_id = $1
		ORDER BY p.joined_at ASC, p.user_id ASC
	`

	rows, err := r.q.Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants of race %s: %w", raceID, err)
	}
	defer rows.Close()

	var participants []*entities.Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, participant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}

	return participants, nil
}

// GetByRaceWithWallets returns participants with the wallet currently on file for each user
func (r *ParticipantRepository) GetByRaceWithWallets(ctx context.Context, raceID string) ([]*entities.ParticipantWithWallet, error) {
	query := `
		SELECT ` + participantColumns + `, u.wallet_address
		FROM race_participants p
		LEFT JOIN users u ON u.telegram_id = p.user_id
		WHERE p.race_id = $1
		ORDER BY p.joined_at ASC, p.user_id ASC
	`

	rows, err := r.q.Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants of race %s: %w", raceID, err)
	}
	defer rows.Close()

	var participants []*entities.ParticipantWithWallet
	for rows.Next() {
		var p entities.ParticipantWithWallet
		err := rows.Scan(
			&p.RaceID,
			&p.UserID,
			&p.Username,
			&p.HorseID,
			&p.HorseName,
			&p.TweetURL,
			&p.JoinedAt,
			&p.Payout,
			&p.PayoutAttemptedAt,
			&p.PayoutTxRef,
			&p.PayoutError,
			&p.PayoutPendingTx,
			&p.RewardAttemptedAt,
			&p.WalletAddress,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}

	return participants, nil
}

// CountByRace returns the number of participants in a race
func (r *ParticipantRepository) CountByRace(ctx context.Context, raceID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM race_participants WHERE race_id = $1`
	if err := r.q.QueryRow(ctx, query, raceID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participants of race %s: %w", raceID, err)
	}
	return count, nil
}

// ClaimPayout stamps the payout attempt, false if one was already made
func (r *ParticipantRepository) ClaimPayout(ctx context.Context, raceID string, userID int64) (bool, error) {
	query := `
		UPDATE race_participants
		SET payout_attempted_at = NOW()
		WHERE race_id = $1 AND user_id = $2 AND payout_attempted_at IS NULL AND payout_tx_ref IS NULL
	`

	result, err := r.q.Exec(ctx, query, raceID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to claim payout for user %d in race %s: %w", userID, raceID, err)
	}

	return result.RowsAffected() == 1, nil
}

// RecordPayoutSuccess stores the paid amount and transaction reference
func (r *ParticipantRepository) RecordPayoutSuccess(ctx context.Context, raceID string, userID int64, amount int64, txRef string) error {
	query := `
		UPDATE race_participants
		SET payout = $3, payout_tx_ref = $4, payout_error = NULL, payout_pending_tx = NULL
		WHERE race_id = $1 AND user_id = $2
	`

	result, err := r.q.Exec(ctx, query, raceID, userID, amount, txRef)
	if err != nil {
		return fmt.Errorf("failed to record payout for user %d in race %s: %w", userID, raceID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("participant %d not found in race %s", userID, raceID)
	}

	return nil
}

// RecordPayoutFailure stores the failure reason and leaves the payout at zero. The hash
// of a broadcast transfer is kept in payout_pending_tx until its outcome is known.
func (r *ParticipantRepository) RecordPayoutFailure(ctx context.Context, raceID string, userID int64, reason, pendingTx string) error {
	query := `
		UPDATE race_participants
		SET payout = 0, payout_error = $3, payout_pending_tx = NULLIF($4, '')
		WHERE race_id = $1 AND user_id = $2 AND payout_tx_ref IS NULL
	`

	result, err := r.q.Exec(ctx, query, raceID, userID, reason, pendingTx)
	if err != nil {
		return fmt.Errorf("failed to record payout failure for user %d in race %s: %w", userID, raceID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("unpaid participant %d not found in race %s", userID, raceID)
	}

	return nil
}

// ClearPendingPayout drops the pending hash of an unpaid payout whose transfer reverted
func (r *ParticipantRepository) ClearPendingPayout(ctx context.Context, raceID string, userID int64) error {
	query := `
		UPDATE race_participants
		SET payout_pending_tx = NULL
		WHERE race_id = $1 AND user_id = $2 AND payout_tx_ref IS NULL
	`

	result, err := r.q.Exec(ctx, query, raceID, userID)
	if err != nil {
		return fmt.Errorf("failed to clear pending payout for user %d in race %s: %w", userID, raceID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("unpaid participant %d not found in race %s", userID, raceID)
	}

	return nil
}

// ReleaseFailedPayoutClaims clears attempt marks on failed payouts so they can be retried.
// A payout whose transfer may still be mined keeps its claim.
func (r *ParticipantRepository) ReleaseFailedPayoutClaims(ctx context.Context, raceID string) (int64, error) {
	query := `
		UPDATE race_participants
		SET payout_attempted_at = NULL
		WHERE race_id = $1
			AND payout_tx_ref IS NULL
			AND payout_error IS NOT NULL
			AND payout_pending_tx IS NULL
	`

	result, err := r.q.Exec(ctx, query, raceID)
	if err != nil {
		return 0, fmt.Errorf("failed to release payout claims for race %s: %w", raceID, err)
	}

	return result.RowsAffected(), nil
}

// ClaimRaceReward stamps the participation reward attempt, false if already claimed
func (r *ParticipantRepository) ClaimRaceReward(ctx context.Context, raceID string, userID int64) (bool, error) {
	query := `
		UPDATE race_participants
		SET reward_attempted_at = NOW()
		WHERE race_id = $1 AND user_id = $2 AND reward_attempted_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, raceID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to claim race reward for user %d in race %s: %w", userID, raceID, err)
	}

	return result.RowsAffected() == 1, nil
}

func scanParticipant(row pgx.Row) (*entities.Participant, error) {
	var p entities.Participant
	err := row.Scan(
		&p.RaceID,
		&p.UserID,
		&p.Username,
		&p.HorseID,
		&p.HorseName,
		&p.TweetURL,
		&p.JoinedAt,
		&p.Payout,
		&p.PayoutAttemptedAt,
		&p.PayoutTxRef,
		&p.PayoutError,
		&p.PayoutPendingTx,
		&p.RewardAttemptedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
