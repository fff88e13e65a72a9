package infrastructure

import (
	"pixelponies/application"
	"pixelponies/database"
	"pixelponies/domain/interfaces"
	"pixelponies/repository"
)

// UnitOfWorkFactory implements application.UnitOfWorkFactory.
// Transactional units hold their events until commit; auto-commit units publish immediately.
type UnitOfWorkFactory struct {
	repoFactory interface {
		CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork
		CreateAutoCommitWithPublisher(publisher interfaces.EventPublisher) application.UnitOfWork
	}
	eventPublisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		repoFactory:    repository.NewUnitOfWorkFactory(db),
		eventPublisher: eventPublisher,
	}
}

// Create creates a new transactional UnitOfWork with its own pending event queue
func (f *UnitOfWorkFactory) Create() application.UnitOfWork {
	return f.repoFactory.CreateWithPublisher(NewNATSTransactionalPublisher(f.eventPublisher))
}

// CreateAutoCommit creates a UnitOfWork whose writes and events take effect immediately
func (f *UnitOfWorkFactory) CreateAutoCommit() application.UnitOfWork {
	return f.repoFactory.CreateAutoCommitWithPublisher(f.eventPublisher)
}
