package application

import (
	"context"
	"fmt"

	"pixelponies/domain/entities"
	"pixelponies/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// BetConfirmation is the outcome of a confirmed bet and the rewards it unlocked
type BetConfirmation struct {
	Race        *entities.Race
	Participant *entities.Participant
	Rewards     []entities.RewardResult
	RewardError error // set when rewards could not be processed; the bet still stands
}

// BetFlow runs the user-facing betting operations against the open race
type BetFlow struct {
	uowFactory UnitOfWorkFactory
	services   ServiceProvider
}

// NewBetFlow creates a new bet flow
func NewBetFlow(uowFactory UnitOfWorkFactory, services ServiceProvider) *BetFlow {
	return &BetFlow{
		uowFactory: uowFactory,
		services:   services,
	}
}

// PlaceBet records a provisional pick on the open race
func (f *BetFlow) PlaceBet(ctx context.Context, userID int64, horseID int) (*entities.Race, *entities.TempSelection, error) {
	uow := f.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	raceService := f.services.RaceService(uow)

	race, err := openRace(ctx, raceService)
	if err != nil {
		return nil, nil, err
	}

	selection, err := raceService.PlaceBet(ctx, race.RaceID, userID, horseID)
	if err != nil {
		return race, nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return race, selection, nil
}

// ConfirmBet promotes the user's pick using the proof, then pays the rewards it unlocks.
// Rewards run after the bet is committed, each claimed before its transfer.
func (f *BetFlow) ConfirmBet(ctx context.Context, userID int64, username, proofRef string) (*BetConfirmation, error) {
	confirmation, err := f.confirm(ctx, userID, username, proofRef)
	if err != nil {
		return nil, err
	}

	rewards, err := f.issueRewards(ctx, userID, confirmation.Race.RaceID)
	confirmation.Rewards = rewards
	if err != nil {
		log.WithFields(log.Fields{
			"user_id": userID,
			"race_id": confirmation.Race.RaceID,
			"error":   err,
		}).Error("Failed to issue participation rewards")
		confirmation.RewardError = err
	}

	return confirmation, nil
}

func (f *BetFlow) confirm(ctx context.Context, userID int64, username, proofRef string) (*BetConfirmation, error) {
	uow := f.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	raceService := f.services.RaceService(uow)

	race, err := openRace(ctx, raceService)
	if err != nil {
		return nil, err
	}

	participant, err := raceService.ConfirmBet(ctx, race.RaceID, userID, username, proofRef)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &BetConfirmation{Race: race, Participant: participant}, nil
}

func (f *BetFlow) issueRewards(ctx context.Context, userID int64, raceID string) ([]entities.RewardResult, error) {
	uow := f.uowFactory.CreateAutoCommit()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer uow.Rollback()

	rewards, err := f.services.RewardService(uow).IssueParticipationRewards(ctx, userID, raceID)
	if err != nil {
		return rewards, err
	}

	if err := uow.Commit(); err != nil {
		return rewards, fmt.Errorf("failed to commit unit of work: %w", err)
	}
	return rewards, nil
}

// ResendSignupBonus releases an unpaid signup bonus claim and pays it again
func (f *BetFlow) ResendSignupBonus(ctx context.Context, userID int64) (*entities.RewardResult, error) {
	uow := f.uowFactory.CreateAutoCommit()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer uow.Rollback()

	result, err := f.services.RewardService(uow).ResendSignupBonus(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit unit of work: %w", err)
	}
	return result, nil
}

// openRace returns the race currently accepting bets
func openRace(ctx context.Context, raceService interfaces.RaceService) (*entities.Race, error) {
	race, err := raceService.GetOpenRace(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get open race: %w", err)
	}
	if race == nil {
		return nil, interfaces.ErrRaceNotFound
	}
	if race.Status != entities.RaceStatusBettingOpen {
		return race, interfaces.ErrBettingClosed
	}
	return race, nil
}
