package testhelpers

import (
	"context"
	"math/big"
	"time"

	"pixelponies/domain/entities"
	"pixelponies/domain/events"
	"pixelponies/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*entities.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByReferralCode(ctx context.Context, code string) (*entities.User, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, telegramID int64, username, firstName string) error {
	args := m.Called(ctx, telegramID, username, firstName)
	return args.Error(0)
}

func (m *MockUserRepository) SetWallet(ctx context.Context, telegramID int64, address string) error {
	args := m.Called(ctx, telegramID, address)
	return args.Error(0)
}

func (m *MockUserRepository) SetTwitterHandle(ctx context.Context, telegramID int64, handle string) error {
	args := m.Called(ctx, telegramID, handle)
	return args.Error(0)
}

func (m *MockUserRepository) SetReferredBy(ctx context.Context, telegramID, referrerID int64) (bool, error) {
	args := m.Called(ctx, telegramID, referrerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) IncrementRacesParticipated(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

func (m *MockUserRepository) RecordWin(ctx context.Context, telegramID int64, amount int64) error {
	args := m.Called(ctx, telegramID, amount)
	return args.Error(0)
}

func (m *MockUserRepository) AddRaceRewardEarned(ctx context.Context, telegramID int64, amount int64) error {
	args := m.Called(ctx, telegramID, amount)
	return args.Error(0)
}

func (m *MockUserRepository) ClaimSignupBonus(ctx context.Context, telegramID int64) (bool, error) {
	args := m.Called(ctx, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) MarkSignupBonusPaid(ctx context.Context, telegramID int64, amount int64) error {
	args := m.Called(ctx, telegramID, amount)
	return args.Error(0)
}

func (m *MockUserRepository) ReleaseSignupBonusClaim(ctx context.Context, telegramID int64) (bool, error) {
	args := m.Called(ctx, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) RecordSignupBonusPending(ctx context.Context, telegramID int64, txRef string) error {
	args := m.Called(ctx, telegramID, txRef)
	return args.Error(0)
}

func (m *MockUserRepository) ClearSignupBonusPending(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

func (m *MockUserRepository) ClaimReferralReward(ctx context.Context, telegramID int64) (bool, error) {
	args := m.Called(ctx, telegramID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) RecordReferralEarning(ctx context.Context, referrerID int64, amount int64) error {
	args := m.Called(ctx, referrerID, amount)
	return args.Error(0)
}

func (m *MockUserRepository) GetTopWinners(ctx context.Context, limit int) ([]*entities.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetRecent(ctx context.Context, limit int) ([]*entities.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

// MockRaceRepository is a mock implementation of RaceRepository
type MockRaceRepository struct {
	mock.Mock
}

func (m *MockRaceRepository) Create(ctx context.Context, race *entities.Race) error {
	args := m.Called(ctx, race)
	return args.Error(0)
}

func (m *MockRaceRepository) GetByID(ctx context.Context, raceID string) (*entities.Race, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Race), args.Error(1)
}

func (m *MockRaceRepository) GetByIDForUpdate(ctx context.Context, raceID string) (*entities.Race, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Race), args.Error(1)
}

func (m *MockRaceRepository) GetOpenRace(ctx context.Context) (*entities.Race, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Race), args.Error(1)
}

func (m *MockRaceRepository) UpdateStatus(ctx context.Context, raceID string, from, to entities.RaceStatus) (bool, error) {
	args := m.Called(ctx, raceID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockRaceRepository) SaveResults(ctx context.Context, race *entities.Race) (bool, error) {
	args := m.Called(ctx, race)
	return args.Bool(0), args.Error(1)
}

func (m *MockRaceRepository) MarkSettled(ctx context.Context, raceID string, totalPayout, unpaid int64, settledAt time.Time) (bool, error) {
	args := m.Called(ctx, raceID, totalPayout, unpaid, settledAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockRaceRepository) UpdateSettlementTotals(ctx context.Context, raceID string, totalPayout, unpaid int64) error {
	args := m.Called(ctx, raceID, totalPayout, unpaid)
	return args.Error(0)
}

func (m *MockRaceRepository) GetStaleRaces(ctx context.Context, closedBefore time.Time) ([]*entities.Race, error) {
	args := m.Called(ctx, closedBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Race), args.Error(1)
}

func (m *MockRaceRepository) GetUnsettledFinished(ctx context.Context) ([]*entities.Race, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Race), args.Error(1)
}

func (m *MockRaceRepository) CarryOverInto(ctx context.Context, intoRaceID string) (int64, error) {
	args := m.Called(ctx, intoRaceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRaceRepository) GetRecent(ctx context.Context, limit int) ([]*entities.Race, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Race), args.Error(1)
}

// MockParticipantRepository is a mock implementation of ParticipantRepository
type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) Create(ctx context.Context, participant *entities.Participant) (bool, error) {
	args := m.Called(ctx, participant)
	return args.Bool(0), args.Error(1)
}

func (m *MockParticipantRepository) Get(ctx context.Context, raceID string, userID int64) (*entities.Participant, error) {
	args := m.Called(ctx, raceID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Participant), args.Error(1)
}

func (m *MockParticipantRepository) GetByRace(ctx context.Context, raceID string) ([]*entities.Participant, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Participant), args.Error(1)
}

func (m *MockParticipantRepository) GetByRaceWithWallets(ctx context.Context, raceID string) ([]*entities.ParticipantWithWallet, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ParticipantWithWallet), args.Error(1)
}

func (m *MockParticipantRepository) CountByRace(ctx context.Context, raceID string) (int, error) {
	args := m.Called(ctx, raceID)
	return args.Int(0), args.Error(1)
}

func (m *MockParticipantRepository) ClaimPayout(ctx context.Context, raceID string, userID int64) (bool, error) {
	args := m.Called(ctx, raceID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockParticipantRepository) RecordPayoutSuccess(ctx context.Context, raceID string, userID int64, amount int64, txRef string) error {
	args := m.Called(ctx, raceID, userID, amount, txRef)
	return args.Error(0)
}

func (m *MockParticipantRepository) RecordPayoutFailure(ctx context.Context, raceID string, userID int64, reason, pendingTx string) error {
	args := m.Called(ctx, raceID, userID, reason, pendingTx)
	return args.Error(0)
}

func (m *MockParticipantRepository) ClearPendingPayout(ctx context.Context, raceID string, userID int64) error {
	args := m.Called(ctx, raceID, userID)
	return args.Error(0)
}

func (m *MockParticipantRepository) ReleaseFailedPayoutClaims(ctx context.Context, raceID string) (int64, error) {
	args := m.Called(ctx, raceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockParticipantRepository) ClaimRaceReward(ctx context.Context, raceID string, userID int64) (bool, error) {
	args := m.Called(ctx, raceID, userID)
	return args.Bool(0), args.Error(1)
}

// MockTempSelectionRepository is a mock implementation of TempSelectionRepository
type MockTempSelectionRepository struct {
	mock.Mock
}

func (m *MockTempSelectionRepository) Insert(ctx context.Context, selection *entities.TempSelection) (bool, error) {
	args := m.Called(ctx, selection)
	return args.Bool(0), args.Error(1)
}

func (m *MockTempSelectionRepository) Get(ctx context.Context, userID int64, raceID string) (*entities.TempSelection, error) {
	args := m.Called(ctx, userID, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TempSelection), args.Error(1)
}

func (m *MockTempSelectionRepository) Delete(ctx context.Context, userID int64, raceID string) error {
	args := m.Called(ctx, userID, raceID)
	return args.Error(0)
}

func (m *MockTempSelectionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockTokenClient is a mock implementation of TokenTransferClient and TokenBalanceReader
type MockTokenClient struct {
	mock.Mock
}

func (m *MockTokenClient) ValidateAddress(address string) bool {
	args := m.Called(address)
	return args.Bool(0)
}

func (m *MockTokenClient) SendTokens(ctx context.Context, address string, amount int64) interfaces.TransferResult {
	args := m.Called(ctx, address, amount)
	return args.Get(0).(interfaces.TransferResult)
}

func (m *MockTokenClient) TransferStatus(ctx context.Context, txRef string) (interfaces.TransferStatus, error) {
	args := m.Called(ctx, txRef)
	return args.Get(0).(interfaces.TransferStatus), args.Error(1)
}

func (m *MockTokenClient) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockTokenClient) Decimals(ctx context.Context) (uint8, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint8), args.Error(1)
}

// MockCommunitySizer is a mock implementation of CommunitySizer
type MockCommunitySizer struct {
	mock.Mock
}

func (m *MockCommunitySizer) MemberCount(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockTransactionalEventPublisher is a mock implementation of TransactionalEventPublisher
type MockTransactionalEventPublisher struct {
	mock.Mock
}

func (m *MockTransactionalEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Discard() {
	m.Called()
}

// MockRaceService is a mock implementation of RaceService
type MockRaceService struct {
	mock.Mock
}

func (m *MockRaceService) CreateRace(ctx context.Context) (*entities.Race, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Race), args.Error(1)
}

func (m *MockRaceService) PlaceBet(ctx context.Context, raceID string, userID int64, horseID int) (*entities.TempSelection, error) {
	args := m.Called(ctx, raceID, userID, horseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TempSelection), args.Error(1)
}

func (m *MockRaceService) ConfirmBet(ctx context.Context, raceID string, userID int64, username, proofRef string) (*entities.Participant, error) {
	args := m.Called(ctx, raceID, userID, username, proofRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Participant), args.Error(1)
}

func (m *MockRaceService) CloseBetting(ctx context.Context, raceID string) (*entities.Race, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Race), args.Error(1)
}

func (m *MockRaceService) SimulateRace(ctx context.Context, raceID string) (*entities.Race, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Race), args.Error(1)
}

func (m *MockRaceService) SettlePayouts(ctx context.Context, race *entities.Race) (*entities.SettlementReport, error) {
	args := m.Called(ctx, race)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SettlementReport), args.Error(1)
}

func (m *MockRaceService) FinishRace(ctx context.Context, raceID string, force bool) (*entities.SettlementReport, error) {
	args := m.Called(ctx, raceID, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SettlementReport), args.Error(1)
}

func (m *MockRaceService) GetOpenRace(ctx context.Context) (*entities.Race, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Race), args.Error(1)
}

func (m *MockRaceService) RetryFailedPayouts(ctx context.Context, raceID string) (*entities.SettlementReport, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SettlementReport), args.Error(1)
}

func (m *MockRaceService) ReconcileStale(ctx context.Context) ([]*entities.SettlementReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SettlementReport), args.Error(1)
}

func (m *MockRaceService) AnnounceClosingSoon(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockRaceService) AnnounceReminder(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRaceService) PurgeTempSelections(ctx context.Context, ttl time.Duration) (int64, error) {
	args := m.Called(ctx, ttl)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRaceService) ListParticipants(ctx context.Context, raceID string) ([]*entities.Participant, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Participant), args.Error(1)
}

// MockRewardService is a mock implementation of RewardService
type MockRewardService struct {
	mock.Mock
}

func (m *MockRewardService) IssueParticipationRewards(ctx context.Context, userID int64, raceID string) ([]entities.RewardResult, error) {
	args := m.Called(ctx, userID, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.RewardResult), args.Error(1)
}

func (m *MockRewardService) IssueSignupBonus(ctx context.Context, userID int64) (*entities.RewardResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RewardResult), args.Error(1)
}

func (m *MockRewardService) IssueRaceReward(ctx context.Context, userID int64, raceID string) (*entities.RewardResult, error) {
	args := m.Called(ctx, userID, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RewardResult), args.Error(1)
}

func (m *MockRewardService) IssueReferralReward(ctx context.Context, userID int64) ([]entities.RewardResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.RewardResult), args.Error(1)
}

func (m *MockRewardService) ResendSignupBonus(ctx context.Context, userID int64) (*entities.RewardResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RewardResult), args.Error(1)
}

func (m *MockRewardService) Airdrop(ctx context.Context, userID int64, amount int64) (*entities.RewardResult, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RewardResult), args.Error(1)
}

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, telegramID int64, username, firstName string) (*entities.User, bool, error) {
	args := m.Called(ctx, telegramID, username, firstName)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entities.User), args.Bool(1), args.Error(2)
}

func (m *MockUserService) ApplyReferral(ctx context.Context, telegramID int64, code string) (*entities.User, error) {
	args := m.Called(ctx, telegramID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserService) SetWallet(ctx context.Context, telegramID int64, address string) (*entities.User, error) {
	args := m.Called(ctx, telegramID, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserService) SetTwitterHandle(ctx context.Context, telegramID int64, handle string) error {
	args := m.Called(ctx, telegramID, handle)
	return args.Error(0)
}

func (m *MockUserService) GetStats(ctx context.Context, telegramID int64, openRace *entities.Race) (*entities.UserStats, error) {
	args := m.Called(ctx, telegramID, openRace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.UserStats), args.Error(1)
}

func (m *MockUserService) Leaderboard(ctx context.Context, limit int) ([]*entities.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.User), args.Error(1)
}

func (m *MockUserService) Directory(ctx context.Context, limit int) (int64, []*entities.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(1) == nil {
		return args.Get(0).(int64), nil, args.Error(2)
	}
	return args.Get(0).(int64), args.Get(1).([]*entities.User), args.Error(2)
}

func (m *MockUserService) Purge(ctx context.Context, telegramID int64) (*entities.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}
