package application

import (
	"pixelponies/domain/interfaces"
	"pixelponies/domain/services"
)

// ServiceProvider builds domain services bound to a unit of work
type ServiceProvider interface {
	RaceService(uow UnitOfWork) interfaces.RaceService
	RewardService(uow UnitOfWork) interfaces.RewardService
	UserService(uow UnitOfWork) interfaces.UserService
}

// ServiceFactory builds domain services over the repositories of a unit of work
type ServiceFactory struct {
	tokenClient    interfaces.TokenTransferClient
	prizePolicy    interfaces.PrizePoolPolicy
	communitySizer interfaces.CommunitySizer
	raceConfig     services.RaceConfig
	rewardConfig   services.RewardConfig
}

// NewServiceFactory creates a new service factory. communitySizer may be nil.
func NewServiceFactory(
	tokenClient interfaces.TokenTransferClient,
	prizePolicy interfaces.PrizePoolPolicy,
	communitySizer interfaces.CommunitySizer,
	raceConfig services.RaceConfig,
	rewardConfig services.RewardConfig,
) *ServiceFactory {
	return &ServiceFactory{
		tokenClient:    tokenClient,
		prizePolicy:    prizePolicy,
		communitySizer: communitySizer,
		raceConfig:     raceConfig,
		rewardConfig:   rewardConfig,
	}
}

// RaceService returns a race service bound to the unit of work
func (f *ServiceFactory) RaceService(uow UnitOfWork) interfaces.RaceService {
	return services.NewRaceService(
		uow.RaceRepository(),
		uow.ParticipantRepository(),
		uow.TempSelectionRepository(),
		uow.UserRepository(),
		f.tokenClient,
		f.prizePolicy,
		f.communitySizer,
		uow.EventBus(),
		f.raceConfig,
	)
}

// RewardService returns a reward service bound to the unit of work
func (f *ServiceFactory) RewardService(uow UnitOfWork) interfaces.RewardService {
	return services.NewRewardService(
		uow.UserRepository(),
		uow.ParticipantRepository(),
		f.tokenClient,
		uow.EventBus(),
		f.rewardConfig,
	)
}

// UserService returns a user service bound to the unit of work
func (f *ServiceFactory) UserService(uow UnitOfWork) interfaces.UserService {
	return services.NewUserService(
		uow.UserRepository(),
		uow.ParticipantRepository(),
		uow.TempSelectionRepository(),
		f.tokenClient,
	)
}
