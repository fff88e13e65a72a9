package interfaces

import (
	"context"
	"time"

	"pixelponies/domain/entities"
)

// RaceService owns the race lifecycle and payout settlement
type RaceService interface {
	// CreateRace opens a new race with a fresh roster and a pool from the configured policy
	CreateRace(ctx context.Context) (*entities.Race, error)

	// PlaceBet records a provisional horse pick for the user
	PlaceBet(ctx context.Context, raceID string, userID int64, horseID int) (*entities.TempSelection, error)

	// ConfirmBet promotes the user's pick to a participant using the supplied proof
	ConfirmBet(ctx context.Context, raceID string, userID int64, username, proofRef string) (*entities.Participant, error)

	// CloseBetting moves a race from betting_open to racing
	CloseBetting(ctx context.Context, raceID string) (*entities.Race, error)

	// SimulateRace draws finish times, assigns positions and finishes the race
	SimulateRace(ctx context.Context, raceID string) (*entities.Race, error)

	// SettlePayouts splits the prize pool among winners and attempts their transfers
	SettlePayouts(ctx context.Context, race *entities.Race) (*entities.SettlementReport, error)

	// FinishRace drives a stale race (or any race when force is set) to finished and settles it
	FinishRace(ctx context.Context, raceID string, force bool) (*entities.SettlementReport, error)

	// GetOpenRace returns the race in betting_open or racing, nil if none
	GetOpenRace(ctx context.Context) (*entities.Race, error)

	// RetryFailedPayouts re-attempts failed payouts of a settled race
	RetryFailedPayouts(ctx context.Context, raceID string) (*entities.SettlementReport, error)

	// ReconcileStale finishes stale races and settles finished races left unsettled
	ReconcileStale(ctx context.Context) ([]*entities.SettlementReport, error)

	// AnnounceClosingSoon publishes a warning for the open race, false if none is open
	AnnounceClosingSoon(ctx context.Context) (bool, error)

	// AnnounceReminder publishes a community reminder naming the open race, if any
	AnnounceReminder(ctx context.Context) error

	// PurgeTempSelections deletes selections older than ttl
	PurgeTempSelections(ctx context.Context, ttl time.Duration) (int64, error)

	// ListParticipants returns the confirmed bets of a race in join order
	ListParticipants(ctx context.Context, raceID string) ([]*entities.Participant, error)
}

// RewardService issues participation, signup and referral rewards
type RewardService interface {
	// IssueParticipationRewards pays every reward a confirmed bet unlocks
	IssueParticipationRewards(ctx context.Context, userID int64, raceID string) ([]entities.RewardResult, error)

	// IssueSignupBonus pays the one-time signup bonus if not yet claimed
	IssueSignupBonus(ctx context.Context, userID int64) (*entities.RewardResult, error)

	// IssueRaceReward pays the per-race participation reward once per participant
	IssueRaceReward(ctx context.Context, userID int64, raceID string) (*entities.RewardResult, error)

	// IssueReferralReward pays the referrer and the referred user once
	IssueReferralReward(ctx context.Context, userID int64) ([]entities.RewardResult, error)

	// ResendSignupBonus releases an unpaid signup bonus claim and retries it
	ResendSignupBonus(ctx context.Context, userID int64) (*entities.RewardResult, error)

	// Airdrop sends an operator-chosen amount to the user's wallet
	Airdrop(ctx context.Context, userID int64, amount int64) (*entities.RewardResult, error)
}

// UserService handles registration and profile operations
type UserService interface {
	// Register gets or creates a user, reporting whether the user is new
	Register(ctx context.Context, telegramID int64, username, firstName string) (*entities.User, bool, error)

	// ApplyReferral links a new user to the owner of the referral code
	ApplyReferral(ctx context.Context, telegramID int64, code string) (*entities.User, error)

	// SetWallet validates and stores a wallet address
	SetWallet(ctx context.Context, telegramID int64, address string) (*entities.User, error)

	// SetTwitterHandle stores the user's Twitter/X handle
	SetTwitterHandle(ctx context.Context, telegramID int64, handle string) error

	// GetStats returns the user's profile and current race involvement
	GetStats(ctx context.Context, telegramID int64, openRace *entities.Race) (*entities.UserStats, error)

	// Leaderboard returns the top winners
	Leaderboard(ctx context.Context, limit int) ([]*entities.User, error)

	// Directory returns the number of users and the most recently registered ones
	Directory(ctx context.Context, limit int) (int64, []*entities.User, error)

	// Purge deletes a user along with their picks and bets, returning the removed profile
	Purge(ctx context.Context, telegramID int64) (*entities.User, error)
}
