package entities

// RewardKind identifies which token reward was issued
type RewardKind string

const (
	RewardKindSignupBonus RewardKind = "signup_bonus"
	RewardKindRace        RewardKind = "race_reward"
	RewardKindReferral    RewardKind = "referral_reward"
	RewardKindReferred    RewardKind = "referred_bonus"
	RewardKindRacePayout  RewardKind = "race_payout"
	RewardKindAirdrop     RewardKind = "airdrop"
)

// RewardResult is the outcome of a single reward transfer
type RewardResult struct {
	Kind    RewardKind
	UserID  int64
	Amount  int64
	TxRef   string
	Success bool
	Skipped bool // already claimed earlier
	Error   string
}
