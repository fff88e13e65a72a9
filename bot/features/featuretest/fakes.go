// Package featuretest provides in-memory fakes for testing bot features
package featuretest

import (
	"context"
	"sync"

	"pixelponies/application"
	"pixelponies/domain/interfaces"
	"pixelponies/domain/testhelpers"

	"github.com/stretchr/testify/mock"
)

// UnitOfWork records the lifecycle calls made against it
type UnitOfWork struct {
	AutoCommit bool
	Began      bool
	Committed  bool
	RolledBack bool
	BeginErr   error
	CommitErr  error
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	u.Began = true
	return u.BeginErr
}

func (u *UnitOfWork) Commit() error {
	if u.CommitErr != nil {
		return u.CommitErr
	}
	u.Committed = true
	return nil
}

func (u *UnitOfWork) Rollback() error {
	if !u.Committed {
		u.RolledBack = true
	}
	return nil
}

func (u *UnitOfWork) UserRepository() interfaces.UserRepository                   { return nil }
func (u *UnitOfWork) RaceRepository() interfaces.RaceRepository                   { return nil }
func (u *UnitOfWork) ParticipantRepository() interfaces.ParticipantRepository     { return nil }
func (u *UnitOfWork) TempSelectionRepository() interfaces.TempSelectionRepository { return nil }
func (u *UnitOfWork) EventBus() interfaces.EventPublisher                         { return nil }

// UnitOfWorkFactory hands out fresh units of work and remembers them
type UnitOfWorkFactory struct {
	mu    sync.Mutex
	Units []*UnitOfWork
}

func (f *UnitOfWorkFactory) Create() application.UnitOfWork {
	return f.add(&UnitOfWork{})
}

func (f *UnitOfWorkFactory) CreateAutoCommit() application.UnitOfWork {
	return f.add(&UnitOfWork{AutoCommit: true})
}

func (f *UnitOfWorkFactory) add(u *UnitOfWork) *UnitOfWork {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Units = append(f.Units, u)
	return u
}

// Committed reports how many units of work were committed
func (f *UnitOfWorkFactory) Committed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, u := range f.Units {
		if u.Committed {
			count++
		}
	}
	return count
}

// Services returns the same mocks for every unit of work
type Services struct {
	Race   *testhelpers.MockRaceService
	Reward *testhelpers.MockRewardService
	User   *testhelpers.MockUserService
}

// NewServices creates a service provider backed by fresh mocks
func NewServices() *Services {
	return &Services{
		Race:   new(testhelpers.MockRaceService),
		Reward: new(testhelpers.MockRewardService),
		User:   new(testhelpers.MockUserService),
	}
}

func (s *Services) RaceService(application.UnitOfWork) interfaces.RaceService     { return s.Race }
func (s *Services) RewardService(application.UnitOfWork) interfaces.RewardService { return s.Reward }
func (s *Services) UserService(application.UnitOfWork) interfaces.UserService     { return s.User }

// AssertExpectations checks every mock
func (s *Services) AssertExpectations(t mock.TestingT) {
	s.Race.AssertExpectations(t)
	s.Reward.AssertExpectations(t)
	s.User.AssertExpectations(t)
}
