package entities

import "fmt"

// BasisPoints is a fraction expressed in hundredths of a percent
type BasisPoints int64

const fullBasisPoints BasisPoints = 10_000

// PayoutSplit assigns the prize pool to the first, second and third place buckets
type PayoutSplit [3]BasisPoints

// DefaultPayoutSplit is 85% / 12.5% / 2.5%
var DefaultPayoutSplit = PayoutSplit{8500, 1250, 250}

// Validate ensures every share is non-negative and the total does not exceed 100%
func (s PayoutSplit) Validate() error {
	var total BasisPoints
	for i, bps := range s {
		if bps < 0 {
			return fmt.Errorf("payout share for position %d is negative", i+1)
		}
		total += bps
	}
	if total > fullBasisPoints {
		return fmt.Errorf("payout split totals %d basis points, exceeds %d", total, fullBasisPoints)
	}
	return nil
}

// Share returns floor(pool * bps / 10000) for the given 1-based position
func (s PayoutSplit) Share(pool int64, position int) int64 {
	if position < 1 || position > len(s) {
		return 0
	}
	return pool * int64(s[position-1]) / int64(fullBasisPoints)
}

// PayoutBucket is the allocation for everyone who backed the horse at one position
type PayoutBucket struct {
	Position  int
	HorseID   int
	HorseName string
	Share     int64 // floored bucket total
	Members   int
	PerMember int64 // floor(Share / Members), zero for empty buckets
}

// Allocated returns what the bucket pays out if every transfer succeeds
func (b PayoutBucket) Allocated() int64 {
	return b.PerMember * int64(b.Members)
}

// PayoutResult records the outcome of a single winner's transfer
type PayoutResult struct {
	UserID   int64
	Username string
	HorseID  int
	Position int
	Amount   int64 // amount actually transferred, zero on failure
	Intended int64
	TxRef    string
	Success  bool
	Skipped  bool // payout was already attempted by an earlier pass
	Error    string
}

// SettlementReport summarises a race settlement
type SettlementReport struct {
	RaceID        string
	PrizePool     int64
	Participants  int
	Buckets       []PayoutBucket
	Payouts       []PayoutResult
	TotalPaid     int64
	PendingAmount int64 // broadcast transfers whose outcome is not yet known
	Unpaid        int64 // pool minus everything paid or pending
	NoWinners     bool
}

// FailedPayouts returns every payout that did not transfer
func (r *SettlementReport) FailedPayouts() []PayoutResult {
	failed := make([]PayoutResult, 0)
	for _, p := range r.Payouts {
		if !p.Success && !p.Skipped {
			failed = append(failed, p)
		}
	}
	return failed
}

// SuccessfulPayouts returns every payout that transferred
func (r *SettlementReport) SuccessfulPayouts() []PayoutResult {
	paid := make([]PayoutResult, 0)
	for _, p := range r.Payouts {
		if p.Success {
			paid = append(paid, p)
		}
	}
	return paid
}
