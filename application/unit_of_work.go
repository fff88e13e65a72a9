package application

import (
	"context"

	"pixelponies/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() interfaces.UserRepository
	RaceRepository() interfaces.RaceRepository
	ParticipantRepository() interfaces.ParticipantRepository
	TempSelectionRepository() interfaces.TempSelectionRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create returns a unit of work backed by a single database transaction
	Create() UnitOfWork

	// CreateAutoCommit returns a unit of work whose statements commit individually.
	// Settlement uses it so each payout claim is durable before its transfer starts.
	CreateAutoCommit() UnitOfWork
}
