package repository

import (
	"context"
	"errors"
	"fmt"

	"pixelponies/application"
	"pixelponies/database"
	"pixelponies/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                *database.DB
	tx                pgx.Tx
	ctx               context.Context
	autoCommit        bool
	started           bool
	publisher         interfaces.EventPublisher
	userRepo          interfaces.UserRepository
	raceRepo          interfaces.RaceRepository
	participantRepo   interfaces.ParticipantRepository
	tempSelectionRepo interfaces.TempSelectionRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{
		db: db,
	}
}

type unitOfWorkFactory struct {
	db *database.DB
}

// CreateWithPublisher creates a transactional UnitOfWork whose events are held by the publisher until commit
func (f *unitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:        f.db,
		publisher: transactionalPublisher,
	}
}

// CreateAutoCommitWithPublisher creates a UnitOfWork bound to the pool. Events go straight to the publisher.
func (f *unitOfWorkFactory) CreateAutoCommitWithPublisher(publisher interfaces.EventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:         f.db,
		autoCommit: true,
		publisher:  publisher,
	}
}

// Begin starts a new transaction, or binds the repositories to the pool in auto-commit mode
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.started {
		return fmt.Errorf("transaction already started")
	}

	var q queryable = u.db.Pool
	if !u.autoCommit {
		tx, err := u.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		u.tx = tx
		q = tx
	}

	u.ctx = ctx
	u.started = true

	u.userRepo = newUserRepository(q)
	u.raceRepo = newRaceRepository(q)
	u.participantRepo = newParticipantRepository(q)
	u.tempSelectionRepo = newTempSelectionRepository(q)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if !u.started {
		return fmt.Errorf("no transaction to commit")
	}

	if u.tx != nil {
		if err := u.tx.Commit(u.ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		u.tx = nil
	}
	u.started = false

	if tp, ok := u.publisher.(interfaces.TransactionalEventPublisher); ok {
		if err := tp.Flush(u.ctx); err != nil {
			return fmt.Errorf("failed to flush events: %w", err)
		}
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if !u.started {
		return nil // Nothing to rollback
	}
	u.started = false

	if tp, ok := u.publisher.(interfaces.TransactionalEventPublisher); ok {
		tp.Discard()
	}

	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() interfaces.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// RaceRepository returns the race repository for this unit of work
func (u *unitOfWork) RaceRepository() interfaces.RaceRepository {
	if u.raceRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.raceRepo
}

// ParticipantRepository returns the participant repository for this unit of work
func (u *unitOfWork) ParticipantRepository() interfaces.ParticipantRepository {
	if u.participantRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.participantRepo
}

// TempSelectionRepository returns the temp selection repository for this unit of work
func (u *unitOfWork) TempSelectionRepository() interfaces.TempSelectionRepository {
	if u.tempSelectionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.tempSelectionRepo
}

// EventBus returns the event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.publisher == nil {
		panic("unit of work has no event publisher")
	}
	return u.publisher
}
