package entities

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"time"
)

// RaceStatus is the lifecycle state of a race
type RaceStatus string

const (
	RaceStatusUpcoming    RaceStatus = "upcoming"
	RaceStatusBettingOpen RaceStatus = "betting_open"
	RaceStatusRacing      RaceStatus = "racing"
	RaceStatusFinished    RaceStatus = "finished"
)

// order returns the position of the status in the lifecycle, -1 for unknown values
func (s RaceStatus) order() int {
	switch s {
	case RaceStatusUpcoming:
		return 0
	case RaceStatusBettingOpen:
		return 1
	case RaceStatusRacing:
		return 2
	case RaceStatusFinished:
		return 3
	default:
		return -1
	}
}

// IsValid returns true for the four known statuses
func (s RaceStatus) IsValid() bool {
	return s.order() >= 0
}

// Race represents one cycle of the game: open for bets, close, simulate, pay out
type Race struct {
	RaceID          string     `db:"race_id"`
	StartTime       time.Time  `db:"start_time"`
	BettingClosesAt time.Time  `db:"betting_closes_at"`
	EndTime         *time.Time `db:"end_time"` // NULL until finished
	Status          RaceStatus `db:"status"`
	Horses          []Horse    `db:"horses"` // JSONB roster snapshot
	WinnerHorseID   *int       `db:"winner_horse_id"`
	WinnerHorseName *string    `db:"winner_horse_name"`
	PrizePool       int64      `db:"prize_pool"`
	TotalPayout     int64      `db:"total_payout"`
	UnpaidAmount    int64      `db:"unpaid_amount"`
	SettledAt       *time.Time `db:"settled_at"` // NULL until settlement completes
	CarriedOverAt   *time.Time `db:"carried_over_at"`
	CreatedAt       time.Time  `db:"created_at"`
}

// NewRaceID generates a race id of the form race_<unix millis>_<0-999>
func NewRaceID(now time.Time) (string, error) {
	suffix, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return "", fmt.Errorf("failed to generate race id suffix: %w", err)
	}
	return fmt.Sprintf("race_%d_%d", now.UnixMilli(), suffix.Int64()), nil
}

// IsOpen returns true while the race holds the single open slot (betting_open or racing)
func (r *Race) IsOpen() bool {
	return r.Status == RaceStatusBettingOpen || r.Status == RaceStatusRacing
}

// IsBettingOpen returns true if participants may still join
func (r *Race) IsBettingOpen() bool {
	return r.Status == RaceStatusBettingOpen
}

// IsFinished returns true once results are final
func (r *Race) IsFinished() bool {
	return r.Status == RaceStatusFinished
}

// IsSettled returns true once payouts have been computed and attempted
func (r *Race) IsSettled() bool {
	return r.SettledAt != nil
}

// IsCarriedOver returns true once the unpaid remainder was added to a later race's pool
func (r *Race) IsCarriedOver() bool {
	return r.CarriedOverAt != nil
}

// CanTransitionTo reports whether moving to next keeps the status moving strictly forward
func (r *Race) CanTransitionTo(next RaceStatus) bool {
	if !next.IsValid() {
		return false
	}
	return next.order() > r.Status.order()
}

// IsStale returns true when an unfinished race is past its betting close by more than threshold
func (r *Race) IsStale(now time.Time, threshold time.Duration) bool {
	if r.IsFinished() {
		return false
	}
	return now.After(r.BettingClosesAt.Add(threshold))
}

// TimeUntilClose returns how long betting remains open, zero if already past
func (r *Race) TimeUntilClose(now time.Time) time.Duration {
	remaining := r.BettingClosesAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HorseByID looks up a horse in the race roster
func (r *Race) HorseByID(id int) (*Horse, bool) {
	for i := range r.Horses {
		if r.Horses[i].ID == id {
			return &r.Horses[i], true
		}
	}
	return nil, false
}

// HorseAtPosition returns the horse that finished at the given position
func (r *Race) HorseAtPosition(position int) (*Horse, bool) {
	for i := range r.Horses {
		if r.Horses[i].Position != nil && *r.Horses[i].Position == position {
			return &r.Horses[i], true
		}
	}
	return nil, false
}

// FinishingOrder returns placed horses sorted by position
func (r *Race) FinishingOrder() []Horse {
	placed := make([]Horse, 0, len(r.Horses))
	for _, h := range r.Horses {
		if h.HasPosition() {
			placed = append(placed, h)
		}
	}
	sort.Slice(placed, func(i, j int) bool {
		return *placed[i].Position < *placed[j].Position
	})
	return placed
}

// AssignPositions orders horses by ascending finish time, breaking ties by horse id,
// and assigns positions 1..N. Every horse must already have a finish time.
func (r *Race) AssignPositions() error {
	order := make([]int, len(r.Horses))
	for i := range r.Horses {
		if r.Horses[i].FinishTime == nil {
			return fmt.Errorf("horse %d has no finish time", r.Horses[i].ID)
		}
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		ha, hb := r.Horses[order[a]], r.Horses[order[b]]
		if *ha.FinishTime != *hb.FinishTime {
			return *ha.FinishTime < *hb.FinishTime
		}
		return ha.ID < hb.ID
	})

	for pos, idx := range order {
		position := pos + 1
		r.Horses[idx].Position = &position
	}
	return nil
}

// Finish records the winner and moves the race to finished
func (r *Race) Finish(now time.Time) error {
	if !r.CanTransitionTo(RaceStatusFinished) {
		return fmt.Errorf("cannot finish race %s from status %s", r.RaceID, r.Status)
	}

	if winner, ok := r.HorseAtPosition(1); ok {
		id := winner.ID
		name := winner.Name
		r.WinnerHorseID = &id
		r.WinnerHorseName = &name
	}

	r.Status = RaceStatusFinished
	r.EndTime = &now
	return nil
}

// MarkSettled stamps the settlement outcome on the race
func (r *Race) MarkSettled(totalPayout, unpaid int64, now time.Time) {
	r.TotalPayout = totalPayout
	r.UnpaidAmount = unpaid
	r.SettledAt = &now
}
