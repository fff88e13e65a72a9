package application

import (
	"context"
	"sync"

	"pixelponies/domain/interfaces"
	"pixelponies/domain/testhelpers"
)

// fakeUnitOfWork records the lifecycle calls made against it
type fakeUnitOfWork struct {
	autoCommit bool
	began      bool
	committed  bool
	rolledBack bool
	beginErr   error
	commitErr  error
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	u.began = true
	return u.beginErr
}

func (u *fakeUnitOfWork) Commit() error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	if !u.committed {
		u.rolledBack = true
	}
	return nil
}

func (u *fakeUnitOfWork) UserRepository() interfaces.UserRepository                   { return nil }
func (u *fakeUnitOfWork) RaceRepository() interfaces.RaceRepository                   { return nil }
func (u *fakeUnitOfWork) ParticipantRepository() interfaces.ParticipantRepository     { return nil }
func (u *fakeUnitOfWork) TempSelectionRepository() interfaces.TempSelectionRepository { return nil }
func (u *fakeUnitOfWork) EventBus() interfaces.EventPublisher                         { return nil }

// fakeUnitOfWorkFactory hands out fresh fake units of work and remembers them
type fakeUnitOfWorkFactory struct {
	mu    sync.Mutex
	units []*fakeUnitOfWork
}

func (f *fakeUnitOfWorkFactory) Create() UnitOfWork {
	return f.add(&fakeUnitOfWork{})
}

func (f *fakeUnitOfWorkFactory) CreateAutoCommit() UnitOfWork {
	return f.add(&fakeUnitOfWork{autoCommit: true})
}

func (f *fakeUnitOfWorkFactory) add(u *fakeUnitOfWork) *fakeUnitOfWork {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units = append(f.units, u)
	return u
}

// stubServices returns the same mocks for every unit of work
type stubServices struct {
	race   *testhelpers.MockRaceService
	reward *testhelpers.MockRewardService
	user   *testhelpers.MockUserService
}

func newStubServices() *stubServices {
	return &stubServices{
		race:   new(testhelpers.MockRaceService),
		reward: new(testhelpers.MockRewardService),
		user:   new(testhelpers.MockUserService),
	}
}

func (s *stubServices) RaceService(UnitOfWork) interfaces.RaceService     { return s.race }
func (s *stubServices) RewardService(UnitOfWork) interfaces.RewardService { return s.reward }
func (s *stubServices) UserService(UnitOfWork) interfaces.UserService     { return s.user }
