package interfaces

import "errors"

// Validation errors
var (
	ErrUnknownHorse         = errors.New("unknown horse")
	ErrInvalidWallet        = errors.New("invalid wallet address")
	ErrInvalidProof         = errors.New("invalid tweet proof")
	ErrAlreadyParticipating = errors.New("user already joined this race")
	ErrSelectionExists      = errors.New("user already picked a different horse for this race")
	ErrNoSelection          = errors.New("no horse selection for this race")
	ErrInvalidReferral      = errors.New("invalid referral code")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidAmount        = errors.New("amount must be positive")
)

// State conflict errors
var (
	ErrRaceNotFound      = errors.New("race not found")
	ErrActiveRaceExists  = errors.New("another race is already open")
	ErrBettingClosed     = errors.New("betting is closed for this race")
	ErrInvalidTransition = errors.New("invalid race status transition")
	ErrRaceNotFinished   = errors.New("race is not finished")
	ErrAlreadySettled    = errors.New("race payouts already settled")
	ErrRaceNotStale      = errors.New("race is not stale")
	ErrUnpaidCarriedOver = errors.New("unpaid remainder already carried into a later race")
)
