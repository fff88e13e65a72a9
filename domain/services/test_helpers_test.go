package services

import (
	"fmt"
	"testing"
	"time"

	"pixelponies/domain/entities"
	"pixelponies/domain/interfaces"
	"pixelponies/domain/testhelpers"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// raceMocks bundles the collaborators of the race service
type raceMocks struct {
	raceRepo          *testhelpers.MockRaceRepository
	participantRepo   *testhelpers.MockParticipantRepository
	tempSelectionRepo *testhelpers.MockTempSelectionRepository
	userRepo          *testhelpers.MockUserRepository
	tokenClient       *testhelpers.MockTokenClient
	communitySizer    *testhelpers.MockCommunitySizer
	eventPublisher    *testhelpers.MockEventPublisher
}

func setupRaceServiceMocks() *raceMocks {
	return &raceMocks{
		raceRepo:          new(testhelpers.MockRaceRepository),
		participantRepo:   new(testhelpers.MockParticipantRepository),
		tempSelectionRepo: new(testhelpers.MockTempSelectionRepository),
		userRepo:          new(testhelpers.MockUserRepository),
		tokenClient:       new(testhelpers.MockTokenClient),
		communitySizer:    new(testhelpers.MockCommunitySizer),
		eventPublisher:    new(testhelpers.MockEventPublisher),
	}
}

// newService builds a race service with a flat 1000 token pool and a frozen clock
func (m *raceMocks) newService(cfg RaceConfig) *raceService {
	policy := &flatPrizePolicy{amount: 1000}
	svc := NewRaceService(
		m.raceRepo, m.participantRepo, m.tempSelectionRepo, m.userRepo,
		m.tokenClient, policy, m.communitySizer, m.eventPublisher, cfg,
	).(*raceService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func (m *raceMocks) assertExpectations(t *testing.T) {
	m.raceRepo.AssertExpectations(t)
	m.participantRepo.AssertExpectations(t)
	m.tempSelectionRepo.AssertExpectations(t)
	m.userRepo.AssertExpectations(t)
	m.tokenClient.AssertExpectations(t)
	m.eventPublisher.AssertExpectations(t)
}

// createTestRace creates a race accepting bets with the default roster
func createTestRace(id string, opts ...func(*entities.Race)) *entities.Race {
	race := &entities.Race{
		RaceID:          id,
		StartTime:       testNow.Add(-5 * time.Minute),
		BettingClosesAt: testNow.Add(5 * time.Minute),
		Status:          entities.RaceStatusBettingOpen,
		Horses:          entities.DefaultRoster(),
		PrizePool:       1000,
		CreatedAt:       testNow.Add(-5 * time.Minute),
	}
	for _, opt := range opts {
		opt(race)
	}
	return race
}

// withFinishOrder finishes the race with horses placed in the given id order
func withFinishOrder(horseIDs ...int) func(*entities.Race) {
	return func(r *entities.Race) {
		for i := range r.Horses {
			r.Horses[i].Position = nil
		}
		for pos, id := range horseIDs {
			for i := range r.Horses {
				if r.Horses[i].ID == id {
					position := pos + 1
					finish := 60 + float64(pos)
					r.Horses[i].Position = &position
					r.Horses[i].FinishTime = &finish
				}
			}
		}
		r.Status = entities.RaceStatusFinished
		end := testNow.Add(-time.Minute)
		r.EndTime = &end
		if winner, ok := r.HorseAtPosition(1); ok {
			r.WinnerHorseID = &winner.ID
			r.WinnerHorseName = &winner.Name
		}
	}
}

func withStatus(status entities.RaceStatus) func(*entities.Race) {
	return func(r *entities.Race) {
		r.Status = status
	}
}

func withPrizePool(pool int64) func(*entities.Race) {
	return func(r *entities.Race) {
		r.PrizePool = pool
	}
}

func withBettingClosedAt(at time.Time) func(*entities.Race) {
	return func(r *entities.Race) {
		r.BettingClosesAt = at
	}
}

func withSettled() func(*entities.Race) {
	return func(r *entities.Race) {
		settled := testNow.Add(-30 * time.Second)
		r.SettledAt = &settled
	}
}

// createTestParticipant creates a confirmed bet with a wallet on file
func createTestParticipant(raceID string, userID int64, horseID int) *entities.ParticipantWithWallet {
	wallet := testWallet(userID)
	return &entities.ParticipantWithWallet{
		Participant: entities.Participant{
			RaceID:   raceID,
			UserID:   userID,
			Username: "rider",
			HorseID:  horseID,
			JoinedAt: testNow.Add(-time.Minute),
		},
		WalletAddress: &wallet,
	}
}

// createTestUser creates a registered user, with a wallet when withWallet is set
func createTestUser(telegramID int64, withWallet bool) *entities.User {
	user := &entities.User{
		TelegramID:   telegramID,
		Username:     "rider",
		FirstName:    "Rider",
		ReferralCode: GenerateReferralCode(telegramID, testNow),
		CreatedAt:    testNow.Add(-24 * time.Hour),
	}
	if withWallet {
		wallet := testWallet(telegramID)
		user.WalletAddress = &wallet
	}
	return user
}

func testWallet(userID int64) string {
	return fmt.Sprintf("0x%040x", userID)
}

func transferOK(txRef string) interfaces.TransferResult {
	return interfaces.TransferResult{Success: true, TxRef: txRef}
}

func transferFailed(reason string) interfaces.TransferResult {
	return interfaces.TransferResult{Success: false, Error: reason}
}
