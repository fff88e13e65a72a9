package entities

import (
	"strings"
	"time"
)

// User represents a registered Telegram user
type User struct {
	TelegramID              int64      `db:"telegram_id"`
	Username                string     `db:"username"`
	FirstName               string     `db:"first_name"`
	WalletAddress           *string    `db:"wallet_address"`
	TwitterHandle           *string    `db:"twitter_handle"`
	Verified                bool       `db:"verified"`
	TotalWon                int64      `db:"total_won"`
	RacesWon                int64      `db:"races_won"`
	RacesParticipated       int64      `db:"races_participated"`
	RaceRewardsEarned       int64      `db:"race_rewards_earned"`
	SignupBonusClaimedAt    *time.Time `db:"signup_bonus_claimed_at"`
	SignupBonusPaid         bool       `db:"signup_bonus_paid"`
	SignupBonusAmount       int64      `db:"signup_bonus_amount"`
	SignupBonusPendingTx    *string    `db:"signup_bonus_pending_tx"`
	ReferralCode            string     `db:"referral_code"`
	ReferredBy              *int64     `db:"referred_by"`
	ReferralCount           int64      `db:"referral_count"`
	ReferralEarnings        int64      `db:"referral_earnings"`
	ReferralRewardClaimedAt *time.Time `db:"referral_reward_claimed_at"`
	CreatedAt               time.Time  `db:"created_at"`
}

// HasWallet returns true once a validated wallet address is on file
func (u *User) HasWallet() bool {
	return u.WalletAddress != nil && *u.WalletAddress != ""
}

// IsReferred returns true if the user joined through someone's referral code
func (u *User) IsReferred() bool {
	return u.ReferredBy != nil
}

// HasClaimedSignupBonus returns true once a signup bonus transfer has been attempted
func (u *User) HasClaimedSignupBonus() bool {
	return u.SignupBonusClaimedAt != nil
}

// DisplayName prefers @username, falling back to the first name
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + strings.TrimPrefix(u.Username, "@")
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "anon"
}

// UserStats is a read model for the /balance and leaderboard views
type UserStats struct {
	User            *User
	WinRate         float64
	ActiveSelection *TempSelection
	CurrentBet      *Participant
}
