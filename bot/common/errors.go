package common

import (
	"errors"
	"fmt"

	"pixelponies/domain/interfaces"
)

// BotError represents a structured error with user-facing and internal messages
type BotError struct {
	UserMessage string // Message shown to the Telegram user
	LogMessage  string // Internal message for logging
	Err         error  // Underlying error
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.LogMessage, e.Err)
	}
	return e.LogMessage
}

// Unwrap returns the underlying error
func (e *BotError) Unwrap() error {
	return e.Err
}

// IsUserError reports whether the error was caused by user input rather than the system
func (e *BotError) IsUserError() bool {
	return e.Err == nil || isDomainError(e.Err)
}

// NewUserError creates an error for user-caused issues (bad input, wrong state)
func NewUserError(userMessage string, logMessage string) *BotError {
	return &BotError{
		UserMessage: userMessage,
		LogMessage:  logMessage,
	}
}

// NewSystemError creates an error for system issues (database, chain, unexpected state)
func NewSystemError(err error, logMessage string) *BotError {
	return &BotError{
		UserMessage: "❌ Something went wrong. Please try again later.",
		LogMessage:  logMessage,
		Err:         err,
	}
}

var domainMessages = []struct {
	err     error
	message string
}{
	{interfaces.ErrUnknownHorse, "❌ That horse is not in this race. Use /race to see the field."},
	{interfaces.ErrInvalidWallet, "❌ That doesn't look like a valid wallet address. It should start with 0x and have 40 hex characters."},
	{interfaces.ErrInvalidProof, "❌ Please send a link to your tweet, like https://x.com/you/status/123."},
	{interfaces.ErrAlreadyParticipating, "✅ You're already in this race. Good luck!"},
	{interfaces.ErrSelectionExists, "❌ You already picked a horse for this race. Your first pick stands."},
	{interfaces.ErrNoSelection, "❌ Pick a horse first with /horse <number>."},
	{interfaces.ErrInvalidReferral, "❌ That referral code is not valid."},
	{interfaces.ErrUserNotFound, "❌ You're not registered yet. Send /start to begin."},
	{interfaces.ErrInvalidAmount, "❌ The amount must be a positive whole number of tokens."},
	{interfaces.ErrRaceNotFound, "❌ There is no open race right now. The next one starts soon!"},
	{interfaces.ErrActiveRaceExists, "❌ A race is already running."},
	{interfaces.ErrBettingClosed, "⏰ Betting is closed for this race. Wait for the next one!"},
	{interfaces.ErrInvalidTransition, "❌ The race is not in a state that allows this."},
	{interfaces.ErrRaceNotFinished, "❌ That race has not finished yet."},
	{interfaces.ErrAlreadySettled, "❌ That race has already been settled."},
	{interfaces.ErrRaceNotStale, "❌ That race is not stale yet."},
	{interfaces.ErrUnpaidCarriedOver, "❌ That race's unpaid prizes were already added to a later pool, so its payouts can no longer be retried."},
}

func isDomainError(err error) bool {
	for _, m := range domainMessages {
		if errors.Is(err, m.err) {
			return true
		}
	}
	return false
}

// FromError converts any error into a BotError, mapping domain errors to readable messages
func FromError(err error, logMessage string) *BotError {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr
	}

	for _, m := range domainMessages {
		if errors.Is(err, m.err) {
			return &BotError{
				UserMessage: m.message,
				LogMessage:  logMessage,
				Err:         err,
			}
		}
	}

	return NewSystemError(err, logMessage)
}
