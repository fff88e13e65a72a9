package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"pixelponies/domain/entities"
	"pixelponies/domain/events"
	"pixelponies/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const (
	// Finish times are drawn uniformly from [60s, 90s) in hundredths of a second
	minFinishTimeCentis    = 6000
	finishTimeSpreadCentis = 3000
)

// RaceConfig holds the tunables of the race lifecycle
type RaceConfig struct {
	BettingWindow   time.Duration
	StaleThreshold  time.Duration
	PayoutSplit     entities.PayoutSplit
	CarryOverUnpaid bool
}

// DefaultRaceConfig returns a ten minute betting window with a one hour staleness threshold
func DefaultRaceConfig() RaceConfig {
	return RaceConfig{
		BettingWindow:  10 * time.Minute,
		StaleThreshold: time.Hour,
		PayoutSplit:    entities.DefaultPayoutSplit,
	}
}

// raceService implements the race lifecycle state machine and payout settlement
type raceService struct {
	raceRepo          interfaces.RaceRepository
	participantRepo   interfaces.ParticipantRepository
	tempSelectionRepo interfaces.TempSelectionRepository
	userRepo          interfaces.UserRepository
	tokenClient       interfaces.TokenTransferClient
	prizePolicy       interfaces.PrizePoolPolicy
	communitySizer    interfaces.CommunitySizer
	eventPublisher    interfaces.EventPublisher
	config            RaceConfig

	now            func() time.Time
	drawFinishTime func() (float64, error)
}

// NewRaceService creates a new race service. communitySizer may be nil, in which case
// prize pools are computed for a community of zero members.
func NewRaceService(
	raceRepo interfaces.RaceRepository,
	participantRepo interfaces.ParticipantRepository,
	tempSelectionRepo interfaces.TempSelectionRepository,
	userRepo interfaces.UserRepository,
	tokenClient interfaces.TokenTransferClient,
	prizePolicy interfaces.PrizePoolPolicy,
	communitySizer interfaces.CommunitySizer,
	eventPublisher interfaces.EventPublisher,
	config RaceConfig,
) interfaces.RaceService {
	return &raceService{
		raceRepo:          raceRepo,
		participantRepo:   participantRepo,
		tempSelectionRepo: tempSelectionRepo,
		userRepo:          userRepo,
		tokenClient:       tokenClient,
		prizePolicy:       prizePolicy,
		communitySizer:    communitySizer,
		eventPublisher:    eventPublisher,
		config:            config,
		now:               func() time.Time { return time.Now().UTC() },
		drawFinishTime:    randomFinishTime,
	}
}

// randomFinishTime draws a finish time in [60, 90) seconds with centisecond resolution
func randomFinishTime() (float64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(finishTimeSpreadCentis))
	if err != nil {
		return 0, fmt.Errorf("failed to draw finish time: %w", err)
	}
	return float64(minFinishTimeCentis+n.Int64()) / 100, nil
}

// CreateRace opens a new race with a fresh roster and a pool from the configured policy
func (s *raceService) CreateRace(ctx context.Context) (*entities.Race, error) {
	now := s.now()

	raceID, err := entities.NewRaceID(now)
	if err != nil {
		return nil, err
	}

	race := &entities.Race{
		RaceID:          raceID,
		StartTime:       now,
		BettingClosesAt: now.Add(s.config.BettingWindow),
		Status:          entities.RaceStatusUpcoming,
		Horses:          entities.DefaultRoster(),
		PrizePool:       s.computePrizePool(ctx),
		CreatedAt:       now,
	}

	// upcoming is transient: the race is persisted already accepting bets
	race.Status = entities.RaceStatusBettingOpen

	if err := s.raceRepo.Create(ctx, race); err != nil {
		if errors.Is(err, interfaces.ErrActiveRaceExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create race: %w", err)
	}

	if s.config.CarryOverUnpaid {
		s.carryOverUnpaid(ctx, race)
	}

	s.publish(events.RaceOpenedEvent{
		RaceID:          race.RaceID,
		PrizePool:       race.PrizePool,
		Horses:          race.Horses,
		BettingClosesAt: race.BettingClosesAt,
	})

	log.WithFields(log.Fields{
		"race_id":       race.RaceID,
		"prize_pool":    race.PrizePool,
		"prize_policy":  s.prizePolicy.Name(),
		"betting_close": race.BettingClosesAt,
	}).Info("Race created")

	return race, nil
}

// computePrizePool applies the prize policy to the current community size
func (s *raceService) computePrizePool(ctx context.Context) int64 {
	var memberCount int64
	if s.communitySizer != nil {
		count, err := s.communitySizer.MemberCount(ctx)
		if err != nil {
			log.WithError(err).Warn("Failed to get community size, using zero members")
		} else {
			memberCount = count
		}
	}

	return s.prizePolicy.PrizePool(memberCount)
}

// carryOverUnpaid adds every settled remainder not yet carried to the new race's pool.
// Races settled late are picked up by whichever race opens next.
func (s *raceService) carryOverUnpaid(ctx context.Context, race *entities.Race) {
	carried, err := s.raceRepo.CarryOverInto(ctx, race.RaceID)
	if err != nil {
		log.WithError(err).WithField("race_id", race.RaceID).Error("Failed to carry over unpaid prize pools")
		return
	}
	if carried == 0 {
		return
	}

	race.PrizePool += carried
	log.WithFields(log.Fields{
		"race_id":      race.RaceID,
		"carried_over": carried,
		"prize_pool":   race.PrizePool,
	}).Info("Carried unpaid prize pools into new race")
}

// GetOpenRace returns the race in betting_open or racing, nil if none
func (s *raceService) GetOpenRace(ctx context.Context) (*entities.Race, error) {
	race, err := s.raceRepo.GetOpenRace(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get open race: %w", err)
	}
	return race, nil
}

// PlaceBet records a provisional horse pick. The first pick is binding until it is
// confirmed or purged; picking the same horse again is a no-op.
func (s *raceService) PlaceBet(ctx context.Context, raceID string, userID int64, horseID int) (*entities.TempSelection, error) {
	race, err := s.getRace(ctx, raceID)
	if err != nil {
		return nil, err
	}

	if !race.IsBettingOpen() {
		return nil, interfaces.ErrBettingClosed
	}

	horse, ok := race.HorseByID(horseID)
	if !ok {
		return nil, interfaces.ErrUnknownHorse
	}

	participant, err := s.participantRepo.Get(ctx, raceID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	if participant != nil {
		return nil, interfaces.ErrAlreadyParticipating
	}

	selection := &entities.TempSelection{
		UserID:    userID,
		RaceID:    raceID,
		HorseID:   horse.ID,
		HorseName: horse.Name,
		CreatedAt: s.now(),
	}

	inserted, err := s.tempSelectionRepo.Insert(ctx, selection)
	if err != nil {
		return nil, fmt.Errorf("failed to save horse selection: %w", err)
	}

	if !inserted {
		existing, err := s.tempSelectionRepo.Get(ctx, userID, raceID)
		if err != nil {
			return nil, fmt.Errorf("failed to get horse selection: %w", err)
		}
		if existing != nil && existing.HorseID == horseID {
			return existing, nil
		}
		return nil, interfaces.ErrSelectionExists
	}

	log.WithFields(log.Fields{
		"race_id":  raceID,
		"user_id":  userID,
		"horse_id": horseID,
	}).Debug("Horse selected")

	return selection, nil
}

// ConfirmBet promotes the user's selection to a participant. Rewards are issued by the
// caller once the surrounding transaction has committed.
func (s *raceService) ConfirmBet(ctx context.Context, raceID string, userID int64, username, proofRef string) (*entities.Participant, error) {
	selection, err := s.tempSelectionRepo.Get(ctx, userID, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get horse selection: %w", err)
	}
	if selection == nil {
		existing, err := s.participantRepo.Get(ctx, raceID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get participant: %w", err)
		}
		if existing != nil {
			return nil, interfaces.ErrAlreadyParticipating
		}
		return nil, interfaces.ErrNoSelection
	}

	// Lock the race row so betting cannot close underneath the insert
	race, err := s.raceRepo.GetByIDForUpdate(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get race: %w", err)
	}
	if race == nil {
		return nil, interfaces.ErrRaceNotFound
	}
	if !race.IsBettingOpen() {
		return nil, interfaces.ErrBettingClosed
	}
	if _, ok := race.HorseByID(selection.HorseID); !ok {
		return nil, interfaces.ErrUnknownHorse
	}

	participant := &entities.Participant{
		RaceID:    raceID,
		UserID:    userID,
		Username:  username,
		HorseID:   selection.HorseID,
		HorseName: selection.HorseName,
		JoinedAt:  s.now(),
	}
	if proofRef != "" {
		participant.TweetURL = &proofRef
	}

	created, err := s.participantRepo.Create(ctx, participant)
	if err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}
	if !created {
		return nil, interfaces.ErrAlreadyParticipating
	}

	if err := s.tempSelectionRepo.Delete(ctx, userID, raceID); err != nil {
		return nil, fmt.Errorf("failed to delete horse selection: %w", err)
	}

	if err := s.userRepo.IncrementRacesParticipated(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to update participation count: %w", err)
	}

	s.publish(events.BetConfirmedEvent{
		RaceID:    raceID,
		UserID:    userID,
		Username:  username,
		HorseID:   participant.HorseID,
		HorseName: participant.HorseName,
	})

	log.WithFields(log.Fields{
		"race_id":  raceID,
		"user_id":  userID,
		"horse_id": participant.HorseID,
	}).Info("Bet confirmed")

	return participant, nil
}

// CloseBetting moves a race from betting_open to racing
func (s *raceService) CloseBetting(ctx context.Context, raceID string) (*entities.Race, error) {
	race, err := s.getRace(ctx, raceID)
	if err != nil {
		return nil, err
	}

	if race.Status != entities.RaceStatusBettingOpen || !race.CanTransitionTo(entities.RaceStatusRacing) {
		return nil, fmt.Errorf("%w: cannot close betting on race %s in status %s", interfaces.ErrInvalidTransition, raceID, race.Status)
	}

	updated, err := s.raceRepo.UpdateStatus(ctx, raceID, entities.RaceStatusBettingOpen, entities.RaceStatusRacing)
	if err != nil {
		return nil, fmt.Errorf("failed to close betting: %w", err)
	}
	if !updated {
		return nil, fmt.Errorf("%w: race %s left betting_open concurrently", interfaces.ErrInvalidTransition, raceID)
	}
	race.Status = entities.RaceStatusRacing

	participants, err := s.participantRepo.CountByRace(ctx, raceID)
	if err != nil {
		log.WithError(err).Warnf("Failed to count participants for race %s", raceID)
	}

	s.publish(events.BettingClosedEvent{
		RaceID:       raceID,
		Participants: participants,
	})

	log.WithFields(log.Fields{
		"race_id":      raceID,
		"participants": participants,
	}).Info("Betting closed")

	return race, nil
}

// SimulateRace draws a finish time for every horse, assigns positions and finishes the race
func (s *raceService) SimulateRace(ctx context.Context, raceID string) (*entities.Race, error) {
	race, err := s.getRace(ctx, raceID)
	if err != nil {
		return nil, err
	}

	if race.Status != entities.RaceStatusRacing {
		return nil, fmt.Errorf("%w: cannot simulate race %s in status %s", interfaces.ErrInvalidTransition, raceID, race.Status)
	}

	for i := range race.Horses {
		finishTime, err := s.drawFinishTime()
		if err != nil {
			return nil, err
		}
		race.Horses[i].FinishTime = &finishTime
		race.Horses[i].Position = nil
	}

	if err := race.AssignPositions(); err != nil {
		return nil, fmt.Errorf("failed to assign positions: %w", err)
	}

	if err := race.Finish(s.now()); err != nil {
		return nil, err
	}

	saved, err := s.raceRepo.SaveResults(ctx, race)
	if err != nil {
		return nil, fmt.Errorf("failed to save race results: %w", err)
	}
	if !saved {
		return nil, fmt.Errorf("%w: race %s left racing concurrently", interfaces.ErrInvalidTransition, raceID)
	}

	s.publishCommentary(race)

	finishEvent := events.RaceFinishedEvent{
		RaceID:    race.RaceID,
		Results:   race.FinishingOrder(),
		PrizePool: race.PrizePool,
	}
	if race.WinnerHorseID != nil {
		finishEvent.WinnerHorseID = *race.WinnerHorseID
		finishEvent.WinnerHorseName = *race.WinnerHorseName
	}
	s.publish(finishEvent)

	log.WithFields(log.Fields{
		"race_id":      race.RaceID,
		"winner_horse": finishEvent.WinnerHorseName,
	}).Info("Race simulated")

	return race, nil
}

// FinishRace drives a race to finished and settles it. Unless force is set, unfinished
// races are only touched once they are past the staleness threshold.
func (s *raceService) FinishRace(ctx context.Context, raceID string, force bool) (*entities.SettlementReport, error) {
	race, err := s.getRace(ctx, raceID)
	if err != nil {
		return nil, err
	}

	if race.IsFinished() {
		if race.IsSettled() {
			return nil, interfaces.ErrAlreadySettled
		}
		return s.SettlePayouts(ctx, race)
	}

	if !force && !race.IsStale(s.now(), s.config.StaleThreshold) {
		return nil, interfaces.ErrRaceNotStale
	}

	log.WithFields(log.Fields{
		"race_id": race.RaceID,
		"status":  race.Status,
		"forced":  force,
	}).Warn("Finishing race outside the normal schedule")

	if race.Status == entities.RaceStatusBettingOpen {
		if _, err := s.CloseBetting(ctx, raceID); err != nil {
			return nil, err
		}
	}

	finished, err := s.SimulateRace(ctx, raceID)
	if err != nil {
		return nil, err
	}

	return s.SettlePayouts(ctx, finished)
}

// ReconcileStale finishes stale races and settles finished races left unsettled.
// Failures on one race are logged and do not stop the others.
func (s *raceService) ReconcileStale(ctx context.Context) ([]*entities.SettlementReport, error) {
	cutoff := s.now().Add(-s.config.StaleThreshold)

	stale, err := s.raceRepo.GetStaleRaces(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get stale races: %w", err)
	}

	unsettled, err := s.raceRepo.GetUnsettledFinished(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get unsettled races: %w", err)
	}

	seen := make(map[string]bool)
	candidates := make([]*entities.Race, 0, len(stale)+len(unsettled))
	for _, race := range append(stale, unsettled...) {
		if seen[race.RaceID] {
			continue
		}
		seen[race.RaceID] = true
		candidates = append(candidates, race)
	}

	reports := make([]*entities.SettlementReport, 0, len(candidates))
	var successCount, failureCount int
	for _, race := range candidates {
		report, err := s.FinishRace(ctx, race.RaceID, false)
		if errors.Is(err, interfaces.ErrAlreadySettled) || errors.Is(err, interfaces.ErrRaceNotStale) {
			continue
		}
		if err != nil {
			log.WithError(err).Errorf("Failed to reconcile race %s", race.RaceID)
			failureCount++
			continue
		}
		reports = append(reports, report)
		successCount++
	}

	if len(candidates) > 0 {
		log.WithFields(log.Fields{
			"candidates": len(candidates),
			"successful": successCount,
			"failed":     failureCount,
		}).Info("Completed stale race reconciliation")
	}

	return reports, nil
}

// AnnounceClosingSoon publishes a closing warning for the open race
func (s *raceService) AnnounceClosingSoon(ctx context.Context) (bool, error) {
	race, err := s.GetOpenRace(ctx)
	if err != nil {
		return false, err
	}
	if race == nil || !race.IsBettingOpen() {
		return false, nil
	}

	participants, err := s.participantRepo.CountByRace(ctx, race.RaceID)
	if err != nil {
		return false, fmt.Errorf("failed to count participants: %w", err)
	}

	s.publish(events.BettingClosingSoonEvent{
		RaceID:          race.RaceID,
		BettingClosesAt: race.BettingClosesAt,
		Participants:    participants,
	})
	return true, nil
}

// PurgeTempSelections deletes selections older than ttl
func (s *raceService) PurgeTempSelections(ctx context.Context, ttl time.Duration) (int64, error) {
	deleted, err := s.tempSelectionRepo.DeleteOlderThan(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to purge temp selections: %w", err)
	}
	if deleted > 0 {
		log.WithField("deleted", deleted).Info("Purged expired temp selections")
	}
	return deleted, nil
}

// ListParticipants returns the confirmed bets of an existing race
func (s *raceService) ListParticipants(ctx context.Context, raceID string) ([]*entities.Participant, error) {
	if _, err := s.getRace(ctx, raceID); err != nil {
		return nil, err
	}

	participants, err := s.participantRepo.GetByRace(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	return participants, nil
}

// getRace loads a race, mapping a missing row to ErrRaceNotFound
func (s *raceService) getRace(ctx context.Context, raceID string) (*entities.Race, error) {
	race, err := s.raceRepo.GetByID(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get race: %w", err)
	}
	if race == nil {
		return nil, interfaces.ErrRaceNotFound
	}
	return race, nil
}

// publish sends an event, logging rather than failing on publisher errors
func (s *raceService) publish(event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to publish race event")
	}
}
