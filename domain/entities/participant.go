package entities

import "time"

// Participant is a confirmed bet: one user backing one horse in one race
type Participant struct {
	RaceID            string     `db:"race_id"`
	UserID            int64      `db:"user_id"`
	Username          string     `db:"username"`
	HorseID           int        `db:"horse_id"`
	HorseName         string     `db:"horse_name"`
	TweetURL          *string    `db:"tweet_url"`
	JoinedAt          time.Time  `db:"joined_at"`
	Payout            int64      `db:"payout"`
	PayoutAttemptedAt *time.Time `db:"payout_attempted_at"`
	PayoutTxRef       *string    `db:"payout_tx_ref"`
	PayoutError       *string    `db:"payout_error"`
	PayoutPendingTx   *string    `db:"payout_pending_tx"`
	RewardAttemptedAt *time.Time `db:"reward_attempted_at"`
}

// IsPaid returns true if a payout transfer succeeded
func (p *Participant) IsPaid() bool {
	return p.PayoutTxRef != nil
}

// HasFailedPayout returns true if a payout was attempted and failed
func (p *Participant) HasFailedPayout() bool {
	return p.PayoutError != nil && p.PayoutTxRef == nil
}

// HasPendingPayout returns true if a failed payout left a broadcast transfer whose
// outcome has not been confirmed on-chain
func (p *Participant) HasPendingPayout() bool {
	return p.PayoutPendingTx != nil && p.PayoutTxRef == nil
}

// HasUnrecordedClaim returns true if a payout was claimed by a pass that stopped before
// recording any outcome, so the transfer may or may not have been sent
func (p *Participant) HasUnrecordedClaim() bool {
	return p.PayoutAttemptedAt != nil && p.PayoutTxRef == nil && p.PayoutError == nil && p.PayoutPendingTx == nil
}

// ParticipantWithWallet pairs a participant with the wallet on file at settlement time
type ParticipantWithWallet struct {
	Participant
	WalletAddress *string `db:"wallet_address"`
}
