package admin

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"pixelponies/application"
	"pixelponies/bot/common"
	"pixelponies/bot/features/featuretest"
	"pixelponies/domain/entities"
	"pixelponies/domain/interfaces"
	"pixelponies/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const adminID = int64(999)

type mockRaceOperator struct {
	mock.Mock
}

func (m *mockRaceOperator) RunTick(ctx context.Context) (*application.TickResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.TickResult), args.Error(1)
}

func (m *mockRaceOperator) FinishRace(ctx context.Context, raceID string) (*entities.SettlementReport, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SettlementReport), args.Error(1)
}

func (m *mockRaceOperator) RetryFailedPayouts(ctx context.Context, raceID string) (*entities.SettlementReport, error) {
	args := m.Called(ctx, raceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SettlementReport), args.Error(1)
}

func (m *mockRaceOperator) ListOpenRace(ctx context.Context) (*entities.Race, []*entities.Participant, error) {
	args := m.Called(ctx)
	var race *entities.Race
	if args.Get(0) != nil {
		race = args.Get(0).(*entities.Race)
	}
	var participants []*entities.Participant
	if args.Get(1) != nil {
		participants = args.Get(1).([]*entities.Participant)
	}
	return race, participants, args.Error(2)
}

type mockBonusResender struct {
	mock.Mock
}

func (m *mockBonusResender) ResendSignupBonus(ctx context.Context, userID int64) (*entities.RewardResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RewardResult), args.Error(1)
}

func newTestFeature() (*Feature, *mockRaceOperator, *mockBonusResender, *testhelpers.MockTokenClient) {
	feature, races, bonuses, token, _, _ := newTestFeatureWithServices()
	return feature, races, bonuses, token
}

func newTestFeatureWithServices() (*Feature, *mockRaceOperator, *mockBonusResender, *testhelpers.MockTokenClient, *featuretest.Services, *featuretest.UnitOfWorkFactory) {
	races := new(mockRaceOperator)
	bonuses := new(mockBonusResender)
	token := new(testhelpers.MockTokenClient)
	services := featuretest.NewServices()
	factory := &featuretest.UnitOfWorkFactory{}
	isAdmin := func(id int64) bool { return id == adminID }

	feature := NewFeature(factory, services, races, bonuses, token, "0xB0770000000000000000000000000000000000B0", "PONY", isAdmin)
	return feature, races, bonuses, token, services, factory
}

func adminCommand(name string, args ...string) common.Command {
	return common.Command{Name: name, Args: args, UserID: adminID, ChatID: adminID, IsPrivate: true}
}

func TestHandleCommand_RejectsNonAdmins(t *testing.T) {
	t.Parallel()

	feature, races, _, _ := newTestFeature()

	for _, name := range feature.Commands() {
		cmd := adminCommand(name, "race_1")
		cmd.UserID = 1

		_, err := feature.HandleCommand(context.Background(), cmd)

		var botErr *common.BotError
		require.ErrorAs(t, err, &botErr)
		assert.True(t, botErr.IsUserError())
		assert.Contains(t, botErr.UserMessage, "admins only")
	}
	races.AssertNotCalled(t, "RunTick", mock.Anything)
	races.AssertNotCalled(t, "FinishRace", mock.Anything, mock.Anything)
	races.AssertNotCalled(t, "ListOpenRace", mock.Anything)
}

func TestHandleRunRace(t *testing.T) {
	t.Parallel()

	feature, races, _, _ := newTestFeature()
	races.On("RunTick", mock.Anything).Return(&application.TickResult{
		Finished:   &entities.Race{RaceID: "race_old"},
		Settlement: &entities.SettlementReport{TotalPaid: 850, Payouts: []entities.PayoutResult{{Success: true}, {Error: "boom"}}},
		Opened:     &entities.Race{RaceID: "race_new", PrizePool: 700},
	}, nil)

	text, err := feature.HandleCommand(context.Background(), adminCommand("admin_race"))

	require.NoError(t, err)
	assert.Contains(t, text, "Finished: race_old")
	assert.Contains(t, text, "Paid: 850 $PONY, failed payouts: 1")
	assert.Contains(t, text, "Opened: race_new (pool 700 $PONY)")
	races.AssertExpectations(t)
}

func TestHandleFinish(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		setup   func(*mockRaceOperator)
		want    string
		wantErr string
	}{
		{
			name:    "missing race id",
			wantErr: "Usage: /admin_finish",
		},
		{
			name: "finishes and settles",
			args: []string{"race_1"},
			setup: func(m *mockRaceOperator) {
				m.On("FinishRace", mock.Anything, "race_1").
					Return(&entities.SettlementReport{RaceID: "race_1", PrizePool: 700, NoWinners: true}, nil)
			},
			want: "Race finished.",
		},
		{
			name: "already settled",
			args: []string{"race_1"},
			setup: func(m *mockRaceOperator) {
				m.On("FinishRace", mock.Anything, "race_1").Return(nil, interfaces.ErrAlreadySettled)
			},
			wantErr: "already been settled",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			feature, races, _, _ := newTestFeature()
			if tt.setup != nil {
				tt.setup(races)
			}

			text, err := feature.HandleCommand(context.Background(), adminCommand("admin_finish", tt.args...))

			if tt.wantErr != "" {
				var botErr *common.BotError
				require.ErrorAs(t, err, &botErr)
				assert.Contains(t, botErr.UserMessage, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, text, tt.want)
			races.AssertExpectations(t)
		})
	}
}

func TestHandleRetry(t *testing.T) {
	t.Parallel()

	feature, races, _, _ := newTestFeature()
	races.On("RetryFailedPayouts", mock.Anything, "race_1").Return(&entities.SettlementReport{
		Payouts:   []entities.PayoutResult{{Success: true, Amount: 100}, {Error: "still down"}},
		TotalPaid: 950,
		Unpaid:    50,
	}, nil)

	text, err := feature.HandleCommand(context.Background(), adminCommand("admin_retry", "race_1"))

	require.NoError(t, err)
	assert.Contains(t, text, "Retried 2 payout(s), 1 still failing")
	assert.Contains(t, text, "unpaid: 50 $PONY")
}

func TestHandleBalance(t *testing.T) {
	t.Parallel()

	feature, _, _, token := newTestFeature()
	balance, _ := new(big.Int).SetString("1234500000000000000000", 10)
	token.On("Decimals", mock.Anything).Return(uint8(18), nil)
	token.On("BalanceOf", mock.Anything, feature.botAddress).Return(balance, nil)

	text, err := feature.HandleCommand(context.Background(), adminCommand("admin_balance"))

	require.NoError(t, err)
	assert.Contains(t, text, "1234.50 $PONY")
	token.AssertExpectations(t)
}

func TestHandleBalance_NoReader(t *testing.T) {
	t.Parallel()

	feature := NewFeature(&featuretest.UnitOfWorkFactory{}, featuretest.NewServices(),
		new(mockRaceOperator), new(mockBonusResender), nil, "", "PONY", func(int64) bool { return true })

	_, err := feature.HandleCommand(context.Background(), adminCommand("admin_balance"))

	var botErr *common.BotError
	require.ErrorAs(t, err, &botErr)
	assert.Contains(t, botErr.UserMessage, "No token client")
}

func TestHandleAirdrop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		arg    string
		result *entities.RewardResult
		err    error
		want   string
	}{
		{"invalid id", "abc", nil, nil, "Usage: /admin_airdrop"},
		{"nothing outstanding", "42", nil, nil, "no outstanding signup bonus"},
		{"already paid", "42", &entities.RewardResult{Skipped: true}, nil, "no outstanding signup bonus"},
		{"failed", "42", &entities.RewardResult{Error: "insufficient balance"}, nil, "failed: insufficient balance"},
		{"sent", "42", &entities.RewardResult{Success: true, Amount: 1000, TxRef: "0xabcdefabcdefabcdef"}, nil, "Sent 1.0K $PONY to user 42"},
		{"no wallet", "42", nil, interfaces.ErrInvalidWallet, "valid wallet address"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			feature, _, bonuses, _ := newTestFeature()
			if tt.arg == "42" {
				bonuses.On("ResendSignupBonus", mock.Anything, int64(42)).Return(tt.result, tt.err)
			}

			text, err := feature.HandleCommand(context.Background(), adminCommand("admin_airdrop", tt.arg))

			if err != nil {
				var botErr *common.BotError
				require.ErrorAs(t, err, &botErr)
				text = botErr.UserMessage
			}
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestHandleAirdropUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		args      []string
		setup     func(*featuretest.Services)
		want      string
		committed bool
	}{
		{name: "missing amount", args: []string{"42"}, want: "Usage: /admin_airdrop_user"},
		{name: "invalid id", args: []string{"bob", "500"}, want: "Usage: /admin_airdrop_user"},
		{
			name: "sent",
			args: []string{"42", "5000"},
			setup: func(s *featuretest.Services) {
				s.Reward.On("Airdrop", mock.Anything, int64(42), int64(5000)).
					Return(&entities.RewardResult{Success: true, Amount: 5000, TxRef: "0xabcdefabcdefabcdef"}, nil)
			},
			want:      "Airdropped 5.0K $PONY to user 42",
			committed: true,
		},
		{
			name: "broadcast without receipt",
			args: []string{"42", "5000"},
			setup: func(s *featuretest.Services) {
				s.Reward.On("Airdrop", mock.Anything, int64(42), int64(5000)).
					Return(&entities.RewardResult{Error: "timed out waiting for receipt", TxRef: "0xabcdefabcdefabcdef"}, nil)
			},
			want:      "may still confirm",
			committed: true,
		},
		{
			name: "unknown user",
			args: []string{"42", "5000"},
			setup: func(s *featuretest.Services) {
				s.Reward.On("Airdrop", mock.Anything, int64(42), int64(5000)).Return(nil, interfaces.ErrUserNotFound)
			},
			want: "User 42 not found",
		},
		{
			name: "zero amount",
			args: []string{"42", "0"},
			setup: func(s *featuretest.Services) {
				s.Reward.On("Airdrop", mock.Anything, int64(42), int64(0)).Return(nil, interfaces.ErrInvalidAmount)
			},
			want: "positive whole number",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			feature, _, _, _, services, factory := newTestFeatureWithServices()
			if tt.setup != nil {
				tt.setup(services)
			}

			text, err := feature.HandleCommand(context.Background(), adminCommand("admin_airdrop_user", tt.args...))

			if err != nil {
				var botErr *common.BotError
				require.ErrorAs(t, err, &botErr)
				text = botErr.UserMessage
			}
			assert.Contains(t, text, tt.want)
			assert.Equal(t, tt.committed, factory.Committed() == 1)
			for _, uow := range factory.Units {
				assert.True(t, uow.AutoCommit)
			}
			services.AssertExpectations(t)
		})
	}
}

func TestHandleRacers(t *testing.T) {
	t.Parallel()

	t.Run("lists participants of the open race", func(t *testing.T) {
		t.Parallel()

		feature, races, _, _ := newTestFeature()
		races.On("ListOpenRace", mock.Anything).Return(&entities.Race{RaceID: "race_1"}, []*entities.Participant{
			{UserID: 1, Username: "alice", HorseID: 3, HorseName: "Lightning Storm"},
			{UserID: 2, HorseID: 7, HorseName: "Midnight Shadow"},
		}, nil)

		text, err := feature.HandleCommand(context.Background(), adminCommand("admin_racers"))

		require.NoError(t, err)
		assert.Contains(t, text, "Race race_1</b>: 2 participant(s)")
		assert.Contains(t, text, "1. @alice: horse #3 Lightning Storm")
		assert.Contains(t, text, "2. @2: horse #7 Midnight Shadow")
	})

	t.Run("empty race", func(t *testing.T) {
		t.Parallel()

		feature, races, _, _ := newTestFeature()
		races.On("ListOpenRace", mock.Anything).Return(&entities.Race{RaceID: "race_1"}, nil, nil)

		text, err := feature.HandleCommand(context.Background(), adminCommand("admin_racers"))

		require.NoError(t, err)
		assert.Contains(t, text, "No participants yet")
	})

	t.Run("no open race", func(t *testing.T) {
		t.Parallel()

		feature, races, _, _ := newTestFeature()
		races.On("ListOpenRace", mock.Anything).Return(nil, nil, nil)

		text, err := feature.HandleCommand(context.Background(), adminCommand("admin_racers"))

		require.NoError(t, err)
		assert.Contains(t, text, "No active race")
	})
}

func TestHandleUsers(t *testing.T) {
	t.Parallel()

	feature, _, _, _, services, _ := newTestFeatureWithServices()
	wallet := "0x00000000000000000000000000000000000000aa"
	handle := "ponyfan"
	services.User.On("Directory", mock.Anything, recentUsersShown).Return(int64(57), []*entities.User{
		{TelegramID: 7, Username: "carol", WalletAddress: &wallet, TwitterHandle: &handle},
		{TelegramID: 6, FirstName: "Dave"},
	}, nil)

	text, err := feature.HandleCommand(context.Background(), adminCommand("admin_users"))

	require.NoError(t, err)
	assert.Contains(t, text, "Total: 57")
	assert.Contains(t, text, "Most recent 2")
	assert.Contains(t, text, "(<code>7</code>) 💎 🐦")
	assert.Contains(t, text, "Dave (<code>6</code>) ❌ ❌")
	services.AssertExpectations(t)
}

func TestHandlePurge(t *testing.T) {
	t.Parallel()

	t.Run("removes the user", func(t *testing.T) {
		t.Parallel()

		feature, _, _, _, services, factory := newTestFeatureWithServices()
		services.User.On("Purge", mock.Anything, int64(42)).Return(&entities.User{TelegramID: 42, Username: "spammer"}, nil).Once()

		text, err := feature.HandleCommand(context.Background(), adminCommand("admin_purge", "42"))

		require.NoError(t, err)
		assert.Contains(t, text, "Removed @spammer")
		assert.Equal(t, 1, factory.Committed())
		services.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		feature, _, _, _, services, factory := newTestFeatureWithServices()
		services.User.On("Purge", mock.Anything, int64(42)).Return(nil, interfaces.ErrUserNotFound)

		_, err := feature.HandleCommand(context.Background(), adminCommand("admin_purge", "42"))

		var botErr *common.BotError
		require.ErrorAs(t, err, &botErr)
		assert.Contains(t, botErr.UserMessage, "User 42 not found")
		assert.Zero(t, factory.Committed())
	})

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()

		feature, _, _, _, services, _ := newTestFeatureWithServices()

		_, err := feature.HandleCommand(context.Background(), adminCommand("admin_purge"))

		var botErr *common.BotError
		require.ErrorAs(t, err, &botErr)
		assert.Contains(t, botErr.UserMessage, "Usage: /admin_purge")
		services.User.AssertNotCalled(t, "Purge", mock.Anything, mock.Anything)
	})

	t.Run("non-admin cannot purge", func(t *testing.T) {
		t.Parallel()

		feature, _, _, _, services, _ := newTestFeatureWithServices()
		cmd := adminCommand("admin_purge", "42")
		cmd.UserID = 1

		_, err := feature.HandleCommand(context.Background(), cmd)

		require.Error(t, err)
		services.User.AssertNotCalled(t, "Purge", mock.Anything, mock.Anything)
	})
}

func TestHandleRunRace_Error(t *testing.T) {
	t.Parallel()

	feature, races, _, _ := newTestFeature()
	races.On("RunTick", mock.Anything).Return(nil, errors.New("db down"))

	_, err := feature.HandleCommand(context.Background(), adminCommand("admin_race"))

	var botErr *common.BotError
	require.ErrorAs(t, err, &botErr)
	assert.False(t, botErr.IsUserError())
}
