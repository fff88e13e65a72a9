package interfaces

import (
	"context"
	"time"

	"pixelponies/domain/entities"
	"pixelponies/domain/events"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByTelegramID retrieves a user by Telegram ID, nil if not found
	GetByTelegramID(ctx context.Context, telegramID int64) (*entities.User, error)

	// GetByReferralCode retrieves the owner of a referral code, nil if not found
	GetByReferralCode(ctx context.Context, code string) (*entities.User, error)

	// Create inserts a new user
	Create(ctx context.Context, user *entities.User) error

	// UpdateProfile refreshes the cached Telegram username and first name
	UpdateProfile(ctx context.Context, telegramID int64, username, firstName string) error

	// SetWallet stores a validated wallet address
	SetWallet(ctx context.Context, telegramID int64, address string) error

	// SetTwitterHandle stores the user's Twitter/X handle
	SetTwitterHandle(ctx context.Context, telegramID int64, handle string) error

	// SetReferredBy links the user to a referrer, only if no referrer is set yet
	SetReferredBy(ctx context.Context, telegramID, referrerID int64) (bool, error)

	// IncrementRacesParticipated bumps the participation counter
	IncrementRacesParticipated(ctx context.Context, telegramID int64) error

	// RecordWin adds a payout to total winnings and bumps races won
	RecordWin(ctx context.Context, telegramID int64, amount int64) error

	// AddRaceRewardEarned adds a participation reward to the user's counter
	AddRaceRewardEarned(ctx context.Context, telegramID int64, amount int64) error

	// ClaimSignupBonus atomically marks the signup bonus as attempted, false if already claimed
	ClaimSignupBonus(ctx context.Context, telegramID int64) (bool, error)

	// MarkSignupBonusPaid records a successful signup bonus transfer
	MarkSignupBonusPaid(ctx context.Context, telegramID int64, amount int64) error

	// ReleaseSignupBonusClaim clears an unpaid signup bonus claim so it can be retried.
	// A claim with a pending transfer hash is never released.
	ReleaseSignupBonusClaim(ctx context.Context, telegramID int64) (bool, error)

	// RecordSignupBonusPending stores the hash of a bonus transfer with no confirmed outcome
	RecordSignupBonusPending(ctx context.Context, telegramID int64, txRef string) error

	// ClearSignupBonusPending drops the pending hash after its transfer reverted
	ClearSignupBonusPending(ctx context.Context, telegramID int64) error

	// ClaimReferralReward atomically marks the referral reward as attempted, false if already claimed
	ClaimReferralReward(ctx context.Context, telegramID int64) (bool, error)

	// RecordReferralEarning bumps the referrer's referral count and earnings
	RecordReferralEarning(ctx context.Context, referrerID int64, amount int64) error

	// GetTopWinners returns users ordered by total winnings
	GetTopWinners(ctx context.Context, limit int) ([]*entities.User, error)

	// GetRecent returns the most recently registered users, newest first
	GetRecent(ctx context.Context, limit int) ([]*entities.User, error)

	// Count returns the number of registered users
	Count(ctx context.Context) (int64, error)

	// Delete removes a user together with their temp selections and bets
	Delete(ctx context.Context, telegramID int64) error
}

// RaceRepository defines the interface for race data access
type RaceRepository interface {
	// Create inserts a new race. Returns ErrActiveRaceExists if another race holds the open slot
	Create(ctx context.Context, race *entities.Race) error

	// GetByID retrieves a race by ID, nil if not found
	GetByID(ctx context.Context, raceID string) (*entities.Race, error)

	// GetByIDForUpdate retrieves a race by ID with a row lock
	GetByIDForUpdate(ctx context.Context, raceID string) (*entities.Race, error)

	// GetOpenRace returns the race in betting_open or racing, nil if none
	GetOpenRace(ctx context.Context) (*entities.Race, error)

	// UpdateStatus moves a race from one status to another, false if the race was not in from
	UpdateStatus(ctx context.Context, raceID string, from, to entities.RaceStatus) (bool, error)

	// SaveResults persists simulated horses, winner and end time, moving racing to finished
	SaveResults(ctx context.Context, race *entities.Race) (bool, error)

	// MarkSettled stamps settlement totals, false if the race was already settled
	MarkSettled(ctx context.Context, raceID string, totalPayout, unpaid int64, settledAt time.Time) (bool, error)

	// UpdateSettlementTotals overwrites payout totals after an operator retry
	UpdateSettlementTotals(ctx context.Context, raceID string, totalPayout, unpaid int64) error

	// GetStaleRaces returns unfinished races whose betting closed before the cutoff
	GetStaleRaces(ctx context.Context, closedBefore time.Time) ([]*entities.Race, error)

	// GetUnsettledFinished returns finished races without a settlement stamp
	GetUnsettledFinished(ctx context.Context) ([]*entities.Race, error)

	// CarryOverInto moves every settled, not yet carried unpaid remainder into the
	// race's prize pool and returns the amount added
	CarryOverInto(ctx context.Context, intoRaceID string) (int64, error)

	// GetRecent returns the most recent races, newest first
	GetRecent(ctx context.Context, limit int) ([]*entities.Race, error)
}

// ParticipantRepository defines the interface for confirmed bets
type ParticipantRepository interface {
	// Create inserts a participant, false if the (race, user) pair already exists
	Create(ctx context.Context, participant *entities.Participant) (bool, error)

	// Get retrieves a participant, nil if not found
	Get(ctx context.Context, raceID string, userID int64) (*entities.Participant, error)

	// GetByRace returns all participants of a race ordered by join time
	GetByRace(ctx context.Context, raceID string) ([]*entities.Participant, error)

	// GetByRaceWithWallets returns participants joined with their current wallet address
	GetByRaceWithWallets(ctx context.Context, raceID string) ([]*entities.ParticipantWithWallet, error)

	// CountByRace returns the number of participants in a race
	CountByRace(ctx context.Context, raceID string) (int, error)

	// ClaimPayout atomically marks a payout as attempted, false if already attempted
	ClaimPayout(ctx context.Context, raceID string, userID int64) (bool, error)

	// RecordPayoutSuccess stores the paid amount and transaction reference
	RecordPayoutSuccess(ctx context.Context, raceID string, userID int64, amount int64, txRef string) error

	// RecordPayoutFailure stores the failure reason, leaving payout at zero. A non-empty
	// pendingTx is the hash of a broadcast transfer whose outcome is unknown.
	RecordPayoutFailure(ctx context.Context, raceID string, userID int64, reason, pendingTx string) error

	// ClearPendingPayout drops the pending hash after its transfer reverted
	ClearPendingPayout(ctx context.Context, raceID string, userID int64) error

	// ReleaseFailedPayoutClaims clears attempt marks on failed payouts so they can be
	// retried. Payouts with a pending hash stay claimed.
	ReleaseFailedPayoutClaims(ctx context.Context, raceID string) (int64, error)

	// ClaimRaceReward atomically marks the participation reward as attempted
	ClaimRaceReward(ctx context.Context, raceID string, userID int64) (bool, error)
}

// TempSelectionRepository defines the interface for provisional horse picks
type TempSelectionRepository interface {
	// Insert stores a selection, false if one already exists for the (user, race) pair
	Insert(ctx context.Context, selection *entities.TempSelection) (bool, error)

	// Get retrieves a selection, nil if not found
	Get(ctx context.Context, userID int64, raceID string) (*entities.TempSelection, error)

	// Delete removes a selection
	Delete(ctx context.Context, userID int64, raceID string) error

	// DeleteOlderThan purges selections created before the cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher holds events until the surrounding transaction commits
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes all pending events
	Flush(ctx context.Context) error

	// Discard drops all pending events
	Discard()
}
