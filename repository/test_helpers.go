package repository

import (
	"pixelponies/application"
	"pixelponies/database"
	"pixelponies/domain/interfaces"
)

// CreateTestUnitOfWork creates a transactional unit of work for testing with the provided publisher
func CreateTestUnitOfWork(db *database.DB, transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return NewUnitOfWorkFactory(db).CreateWithPublisher(transactionalPublisher)
}
