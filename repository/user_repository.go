package repository

import (
	"context"
	"errors"
	"fmt"

	"pixelponies/database"
	"pixelponies/domain/entities"

	"github.com/jackc/pgx/v5"
)

const userColumns = `
	telegram_id, username, first_name, wallet_address, twitter_handle, verified,
	total_won, races_won, races_participated, race_rewards_earned,
	signup_bonus_claimed_at, signup_bonus_paid, signup_bonus_amount, signup_bonus_pending_tx,
	referral_code, referred_by, referral_count, referral_earnings,
	referral_reward_claimed_at, created_at`

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepository creates a new user repository bound to a transaction or pool
func newUserRepository(q queryable) *UserRepository {
	return &UserRepository{q: q}
}

// GetByTelegramID retrieves a user by their Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, telegramID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", telegramID, err)
	}

	return user, nil
}

// GetByReferralCode retrieves the owner of a referral code
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by referral code %s: %w", code, err)
	}

	return user, nil
}

// Create inserts a new user and fills in server defaults
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (telegram_id, username, first_name, wallet_address, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		user.TelegramID,
		user.Username,
		user.FirstName,
		user.WalletAddress,
		user.ReferralCode,
		user.ReferredBy,
	).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user %d: %w", user.TelegramID, err)
	}

	return nil
}

// UpdateProfile refreshes the cached Telegram username and first name
func (r *UserRepository) UpdateProfile(ctx context.Context, telegramID int64, username, firstName string) error {
	query := `UPDATE users SET username = $2, first_name = $3 WHERE telegram_id = $1`
	return r.execOne(ctx, "update profile", telegramID, query, telegramID, username, firstName)
}

// SetWallet stores a wallet address
func (r *UserRepository) SetWallet(ctx context.Context, telegramID int64, address string) error {
	query := `UPDATE users SET wallet_address = $2 WHERE telegram_id = $1`
	return r.execOne(ctx, "set wallet", telegramID, query, telegramID, address)
}

// SetTwitterHandle stores the Twitter/X handle
func (r *UserRepository) SetTwitterHandle(ctx context.Context, telegramID int64, handle string) error {
	query := `UPDATE users SET twitter_handle = $2 WHERE telegram_id = $1`
	return r.execOne(ctx, "set twitter handle", telegramID, query, telegramID, handle)
}

// SetReferredBy links the user to a referrer only if no referrer is set yet
func (r *UserRepository) SetReferredBy(ctx context.Context, telegramID, referrerID int64) (bool, error) {
	query := `
		UPDATE users
		SET referred_by = $2
		WHERE telegram_id = $1 AND referred_by IS NULL AND telegram_id <> $2
	`

	result, err := r.q.Exec(ctx, query, telegramID, referrerID)
	if err != nil {
		return false, fmt.Errorf("failed to set referrer for user %d: %w", telegramID, err)
	}

	return result.RowsAffected() == 1, nil
}

// IncrementRacesParticipated bumps the participation counter
func (r *UserRepository) IncrementRacesParticipated(ctx context.Context, telegramID int64) error {
	query := `UPDATE users SET races_participated = races_participated + 1 WHERE telegram_id = $1`
	return r.execOne(ctx, "increment races participated", telegramID, query, telegramID)
}

// RecordWin adds a payout to the user's winnings
func (r *UserRepository) RecordWin(ctx context.Context, telegramID int64, amount int64) error {
	query := `
		UPDATE users
		SET total_won = total_won + $2, races_won = races_won + 1
		WHERE telegram_id = $1
	`
	return r.execOne(ctx, "record win", telegramID, query, telegramID, amount)
}

// AddRaceRewardEarned adds a participation reward to the user's counter
func (r *UserRepository) AddRaceRewardEarned(ctx context.Context, telegramID int64, amount int64) error {
	query := `UPDATE users SET race_rewards_earned = race_rewards_earned + $2 WHERE telegram_id = $1`
	return r.execOne(ctx, "add race reward", telegramID, query, telegramID, amount)
}

// ClaimSignupBonus stamps the signup bonus attempt, false if it was already claimed
func (r *UserRepository) ClaimSignupBonus(ctx context.Context, telegramID int64) (bool, error) {
	query := `
		UPDATE users
		SET signup_bonus_claimed_at = NOW()
		WHERE telegram_id = $1 AND signup_bonus_claimed_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to claim signup bonus for user %d: %w", telegramID, err)
	}

	return result.RowsAffected() == 1, nil
}

// MarkSignupBonusPaid records a successful signup bonus transfer
func (r *UserRepository) MarkSignupBonusPaid(ctx context.Context, telegramID int64, amount int64) error {
	query := `
		UPDATE users
		SET signup_bonus_paid = TRUE, signup_bonus_amount = $2, signup_bonus_pending_tx = NULL
		WHERE telegram_id = $1
	`
	return r.execOne(ctx, "mark signup bonus paid", telegramID, query, telegramID, amount)
}

// RecordSignupBonusPending stores the hash of a broadcast bonus transfer whose receipt
// never confirmed. The claim cannot be released while it is set.
func (r *UserRepository) RecordSignupBonusPending(ctx context.Context, telegramID int64, txRef string) error {
	query := `
		UPDATE users
		SET signup_bonus_pending_tx = $2
		WHERE telegram_id = $1 AND signup_bonus_paid = FALSE
	`
	return r.execOne(ctx, "record pending signup bonus", telegramID, query, telegramID, txRef)
}

// ClearSignupBonusPending drops the pending hash once its transfer is known to have reverted
func (r *UserRepository) ClearSignupBonusPending(ctx context.Context, telegramID int64) error {
	query := `
		UPDATE users
		SET signup_bonus_pending_tx = NULL
		WHERE telegram_id = $1 AND signup_bonus_paid = FALSE
	`
	return r.execOne(ctx, "clear pending signup bonus", telegramID, query, telegramID)
}

// ReleaseSignupBonusClaim clears an unpaid claim so the bonus can be retried
func (r *UserRepository) ReleaseSignupBonusClaim(ctx context.Context, telegramID int64) (bool, error) {
	query := `
		UPDATE users
		SET signup_bonus_claimed_at = NULL
		WHERE telegram_id = $1 AND signup_bonus_paid = FALSE AND signup_bonus_claimed_at IS NOT NULL
			AND signup_bonus_pending_tx IS NULL
	`

	result, err := r.q.Exec(ctx, query, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to release signup bonus claim for user %d: %w", telegramID, err)
	}

	return result.RowsAffected() == 1, nil
}

// ClaimReferralReward stamps the referral reward attempt, false if it was already claimed
func (r *UserRepository) ClaimReferralReward(ctx context.Context, telegramID int64) (bool, error) {
	query := `
		UPDATE users
		SET referral_reward_claimed_at = NOW()
		WHERE telegram_id = $1 AND referred_by IS NOT NULL AND referral_reward_claimed_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to claim referral reward for user %d: %w", telegramID, err)
	}

	return result.RowsAffected() == 1, nil
}

// RecordReferralEarning bumps the referrer's referral count and earnings
func (r *UserRepository) RecordReferralEarning(ctx context.Context, referrerID int64, amount int64) error {
	query := `
		UPDATE users
		SET referral_count = referral_count + 1, referral_earnings = referral_earnings + $2
		WHERE telegram_id = $1
	`
	return r.execOne(ctx, "record referral earning", referrerID, query, referrerID, amount)
}

// GetTopWinners returns users ordered by total winnings
func (r *UserRepository) GetTopWinners(ctx context.Context, limit int) ([]*entities.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE total_won > 0
		ORDER BY total_won DESC, races_won DESC, telegram_id ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top winners: %w", err)
	}
	defer rows.Close()

	users := make([]*entities.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// GetRecent returns the most recently registered users
func (r *UserRepository) GetRecent(ctx context.Context, limit int) ([]*entities.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC, telegram_id DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent users: %w", err)
	}
	defer rows.Close()

	users := make([]*entities.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Count returns the number of registered users
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// Delete removes a user. Participants and temp selections cascade.
func (r *UserRepository) Delete(ctx context.Context, telegramID int64) error {
	query := `DELETE FROM users WHERE telegram_id = $1`
	return r.execOne(ctx, "delete user", telegramID, query, telegramID)
}

// execOne runs an update that must touch exactly one user row
func (r *UserRepository) execOne(ctx context.Context, op string, telegramID int64, query string, args ...any) error {
	result, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s for user %d: %w", op, telegramID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user with telegram ID %d not found", telegramID)
	}

	return nil
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.WalletAddress,
		&user.TwitterHandle,
		&user.Verified,
		&user.TotalWon,
		&user.RacesWon,
		&user.RacesParticipated,
		&user.RaceRewardsEarned,
		&user.SignupBonusClaimedAt,
		&user.SignupBonusPaid,
		&user.SignupBonusAmount,
		&user.SignupBonusPendingTx,
		&user.ReferralCode,
		&user.ReferredBy,
		&user.ReferralCount,
		&user.ReferralEarnings,
		&user.ReferralRewardClaimedAt,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
