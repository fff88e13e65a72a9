package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pixelponies/domain/entities"
	"pixelponies/domain/interfaces"
	"pixelponies/infrastructure/observability"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// SchedulerConfig holds the cron cadence of the race cycle
type SchedulerConfig struct {
	RaceCron         string
	WarningCron      string
	MaintenanceCron  string
	ReminderCron     string // empty disables community reminders
	TempSelectionTTL time.Duration
}

// TickResult describes what a race tick did
type TickResult struct {
	Finished   *entities.Race
	Settlement *entities.SettlementReport
	Opened     *entities.Race
}

// RaceScheduler drives the race lifecycle on a cron cadence
type RaceScheduler struct {
	uowFactory UnitOfWorkFactory
	services   ServiceProvider
	config     SchedulerConfig
	cron       *cron.Cron

	// Serializes every job, whether fired by cron or by an admin
	mu sync.Mutex
}

// NewRaceScheduler creates a scheduler and registers its jobs
func NewRaceScheduler(uowFactory UnitOfWorkFactory, services ServiceProvider, config SchedulerConfig) (*RaceScheduler, error) {
	logger := cron.PrintfLogger(log.StandardLogger())

	s := &RaceScheduler{
		uowFactory: uowFactory,
		services:   services,
		config:     config,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}

	jobs := []struct {
		name     string
		spec     string
		optional bool
		run      func(context.Context) error
	}{
		{"race_tick", config.RaceCron, false, func(ctx context.Context) error {
			_, err := s.RunTick(ctx)
			return err
		}},
		{"closing_warning", config.WarningCron, false, s.RunWarning},
		{"maintenance", config.MaintenanceCron, false, s.RunMaintenance},
		{"community_reminder", config.ReminderCron, true, s.RunReminder},
	}

	for _, job := range jobs {
		job := job
		if job.optional && job.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, func() {
			if err := job.run(context.Background()); err != nil {
				log.WithFields(log.Fields{
					"job":   job.name,
					"error": err,
				}).Error("Scheduler job failed")
			}
		}); err != nil {
			return nil, fmt.Errorf("invalid %s schedule %q: %w", job.name, job.spec, err)
		}
	}

	return s, nil
}

// Start recovers stale races, makes sure a race is open and starts the cron jobs.
// The returned function stops the scheduler and waits for running jobs.
func (s *RaceScheduler) Start(ctx context.Context) func() {
	if err := s.RunMaintenance(ctx); err != nil {
		log.WithError(err).Error("Startup maintenance failed")
	}
	if _, err := s.EnsureOpenRace(ctx); err != nil {
		log.WithError(err).Error("Failed to open a race at startup")
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"race_cron":        s.config.RaceCron,
		"warning_cron":     s.config.WarningCron,
		"maintenance_cron": s.config.MaintenanceCron,
		"reminder_cron":    s.config.ReminderCron,
	}).Info("Race scheduler started")

	stopChan := make(chan struct{})
	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			close(stopChan)
			<-s.cron.Stop().Done()
			log.Info("Race scheduler stopped")
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-stopChan:
		}
	}()

	return stop
}

// RunTick finishes the open race, if any, and opens the next one
func (s *RaceScheduler) RunTick(ctx context.Context) (*TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observability.GetMetrics().MeasureSchedulerJob("race_tick")()

	return withRaceService(s, ctx, func(raceService interfaces.RaceService) (*TickResult, error) {
		result := &TickResult{}

		race, err := raceService.GetOpenRace(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get open race: %w", err)
		}

		if race != nil {
			if race.Status == entities.RaceStatusBettingOpen {
				if race, err = raceService.CloseBetting(ctx, race.RaceID); err != nil {
					return nil, fmt.Errorf("failed to close betting: %w", err)
				}
			}

			if race, err = raceService.SimulateRace(ctx, race.RaceID); err != nil {
				return nil, fmt.Errorf("failed to simulate race: %w", err)
			}
			result.Finished = race

			report, err := raceService.SettlePayouts(ctx, race)
			if err != nil {
				// The race is finished; maintenance settles it later
				log.WithFields(log.Fields{
					"race_id": race.RaceID,
					"error":   err,
				}).Error("Failed to settle race payouts")
			}
			result.Settlement = report
		}

		opened, err := raceService.CreateRace(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to open next race: %w", err)
		}
		result.Opened = opened

		return result, nil
	})
}

// EnsureOpenRace opens a race unless one is already open
func (s *RaceScheduler) EnsureOpenRace(ctx context.Context) (*entities.Race, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return withRaceService(s, ctx, func(raceService interfaces.RaceService) (*entities.Race, error) {
		race, err := raceService.GetOpenRace(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get open race: %w", err)
		}
		if race != nil {
			return race, nil
		}

		race, err = raceService.CreateRace(ctx)
		if errors.Is(err, interfaces.ErrActiveRaceExists) {
			return raceService.GetOpenRace(ctx)
		}
		return race, err
	})
}

// RunWarning announces that betting on the open race closes soon
func (s *RaceScheduler) RunWarning(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observability.GetMetrics().MeasureSchedulerJob("closing_warning")()

	_, err := withRaceService(s, ctx, func(raceService interfaces.RaceService) (bool, error) {
		announced, err := raceService.AnnounceClosingSoon(ctx)
		if err == nil && !announced {
			log.Debug("No open race to warn about")
		}
		return announced, err
	})
	return err
}

// RunReminder posts a community reminder
func (s *RaceScheduler) RunReminder(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observability.GetMetrics().MeasureSchedulerJob("community_reminder")()

	_, err := withRaceService(s, ctx, func(raceService interfaces.RaceService) (struct{}, error) {
		return struct{}{}, raceService.AnnounceReminder(ctx)
	})
	return err
}

// ListOpenRace returns the open race and its confirmed bets, nil if no race is open
func (s *RaceScheduler) ListOpenRace(ctx context.Context) (*entities.Race, []*entities.Participant, error) {
	var participants []*entities.Participant

	race, err := withRaceService(s, ctx, func(raceService interfaces.RaceService) (*entities.Race, error) {
		race, err := raceService.GetOpenRace(ctx)
		if err != nil || race == nil {
			return nil, err
		}
		participants, err = raceService.ListParticipants(ctx, race.RaceID)
		return race, err
	})
	if err != nil {
		return nil, nil, err
	}
	return race, participants, nil
}

// RunMaintenance recovers stale races and purges expired selections
func (s *RaceScheduler) RunMaintenance(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observability.GetMetrics().MeasureSchedulerJob("maintenance")()

	_, err := withRaceService(s, ctx, func(raceService interfaces.RaceService) (struct{}, error) {
		reports, err := raceService.ReconcileStale(ctx)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to reconcile stale races: %w", err)
		}

		purged, err := raceService.PurgeTempSelections(ctx, s.config.TempSelectionTTL)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to purge selections: %w", err)
		}

		if len(reports) > 0 || purged > 0 {
			log.WithFields(log.Fields{
				"recovered_races":   len(reports),
				"purged_selections": purged,
			}).Info("Maintenance completed")
		}
		return struct{}{}, nil
	})
	return err
}

// FinishRace forces a race to finished and settles it
func (s *RaceScheduler) FinishRace(ctx context.Context, raceID string) (*entities.SettlementReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return withRaceService(s, ctx, func(raceService interfaces.RaceService) (*entities.SettlementReport, error) {
		return raceService.FinishRace(ctx, raceID, true)
	})
}

// RetryFailedPayouts re-attempts the failed payouts of a settled race
func (s *RaceScheduler) RetryFailedPayouts(ctx context.Context, raceID string) (*entities.SettlementReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return withRaceService(s, ctx, func(raceService interfaces.RaceService) (*entities.SettlementReport, error) {
		return raceService.RetryFailedPayouts(ctx, raceID)
	})
}

// withRaceService runs fn against an autocommit unit of work so every payout claim is
// durable before its transfer starts
func withRaceService[T any](s *RaceScheduler, ctx context.Context, fn func(interfaces.RaceService) (T, error)) (T, error) {
	var zero T

	uow := s.uowFactory.CreateAutoCommit()
	if err := uow.Begin(ctx); err != nil {
		return zero, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer uow.Rollback()

	result, err := fn(s.services.RaceService(uow))
	if err != nil {
		return result, err
	}

	if err := uow.Commit(); err != nil {
		return zero, fmt.Errorf("failed to commit unit of work: %w", err)
	}
	return result, nil
}
