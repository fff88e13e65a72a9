package cmd

import (
	"context"
	"fmt"

	"pixelponies/config"
	"pixelponies/database"
	"pixelponies/infrastructure"

	log "github.com/sirupsen/logrus"
)

// FinishStale settles every race left unfinished past the stale threshold and exits.
// Events are dropped since no bot is connected to announce them.
func FinishStale(ctx context.Context) error {
	cfg := config.Get()

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	tokenClient, err := newTokenClient(cfg)
	if err != nil {
		return err
	}
	defer tokenClient.Close()

	serviceFactory, err := newServiceFactory(cfg, tokenClient, nil)
	if err != nil {
		return err
	}
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, infrastructure.NewNoopEventPublisher())

	uow := uowFactory.CreateAutoCommit()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer uow.Rollback()

	reports, err := serviceFactory.RaceService(uow).ReconcileStale(ctx)
	if err != nil {
		return fmt.Errorf("failed to reconcile stale races: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	for _, report := range reports {
		log.WithFields(log.Fields{
			"race_id":      report.RaceID,
			"participants": report.Participants,
			"total_paid":   report.TotalPaid,
			"unpaid":       report.Unpaid,
			"failed":       len(report.FailedPayouts()),
		}).Info("Stale race settled")
	}
	log.Infof("Finished %d stale race(s)", len(reports))

	return nil
}
