package events

import (
	"time"

	"pixelponies/domain/entities"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRaceOpened         EventType = "race_opened"
	EventTypeBettingClosingSoon EventType = "betting_closing_soon"
	EventTypeBettingClosed      EventType = "betting_closed"
	EventTypeRaceCommentary     EventType = "race_commentary"
	EventTypeRaceFinished       EventType = "race_finished"
	EventTypePayoutsSettled     EventType = "payouts_settled"
	EventTypeBetConfirmed       EventType = "bet_confirmed"
	EventTypeRewardIssued       EventType = "reward_issued"
	EventTypeCommunityReminder  EventType = "community_reminder"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// RaceOpenedEvent is published when a new race starts accepting bets
type RaceOpenedEvent struct {
	RaceID          string
	PrizePool       int64
	Horses          []entities.Horse
	BettingClosesAt time.Time
}

func (e RaceOpenedEvent) Type() EventType {
	return EventTypeRaceOpened
}

// BettingClosingSoonEvent warns that the open race is about to close
type BettingClosingSoonEvent struct {
	RaceID          string
	BettingClosesAt time.Time
	Participants    int
}

func (e BettingClosingSoonEvent) Type() EventType {
	return EventTypeBettingClosingSoon
}

// BettingClosedEvent is published when a race moves from betting_open to racing
type BettingClosedEvent struct {
	RaceID       string
	Participants int
}

func (e BettingClosedEvent) Type() EventType {
	return EventTypeBettingClosed
}

// RaceCommentaryEvent calls the running order at one checkpoint of a simulated race.
// Stages are published in order, before the race's RaceFinishedEvent.
type RaceCommentaryEvent struct {
	RaceID  string
	Stage   int
	Call    string
	Leaders []entities.Horse
}

func (e RaceCommentaryEvent) Type() EventType {
	return EventTypeRaceCommentary
}

// RaceFinishedEvent carries the finishing order of a simulated race
type RaceFinishedEvent struct {
	RaceID          string
	Results         []entities.Horse // sorted by position
	WinnerHorseID   int
	WinnerHorseName string
	PrizePool       int64
}

func (e RaceFinishedEvent) Type() EventType {
	return EventTypeRaceFinished
}

// PayoutsSettledEvent carries the settlement report of a finished race
type PayoutsSettledEvent struct {
	Report entities.SettlementReport
}

func (e PayoutsSettledEvent) Type() EventType {
	return EventTypePayoutsSettled
}

// BetConfirmedEvent is published when a temp selection is promoted to a participant
type BetConfirmedEvent struct {
	RaceID    string
	UserID    int64
	Username  string
	HorseID   int
	HorseName string
}

func (e BetConfirmedEvent) Type() EventType {
	return EventTypeBetConfirmed
}

// RewardIssuedEvent is published after a reward transfer succeeds
type RewardIssuedEvent struct {
	UserID int64
	Kind   entities.RewardKind
	Amount int64
	TxRef  string
}

func (e RewardIssuedEvent) Type() EventType {
	return EventTypeRewardIssued
}

// CommunityReminderEvent invites the group to join the open race
type CommunityReminderEvent struct {
	Message   string
	RaceID    string // empty when no race is open
	PrizePool int64
}

func (e CommunityReminderEvent) Type() EventType {
	return EventTypeCommunityReminder
}
