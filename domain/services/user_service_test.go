package services

import (
	"context"
	"testing"
	"time"

	"pixelponies/domain/entities"
	"pixelponies/domain/interfaces"
	"pixelponies/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupUserServiceMocks() (
	*testhelpers.MockUserRepository,
	*testhelpers.MockParticipantRepository,
	*testhelpers.MockTempSelectionRepository,
	*testhelpers.MockTokenClient,
) {
	return new(testhelpers.MockUserRepository),
		new(testhelpers.MockParticipantRepository),
		new(testhelpers.MockTempSelectionRepository),
		new(testhelpers.MockTokenClient)
}

func TestGenerateReferralCode(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_000_000)

	assert.Equal(t, "PP6789LOYW3V28", GenerateReferralCode(123456789, now))
	assert.Equal(t, "PP42LOYW3V28", GenerateReferralCode(42, now))
}

func TestReferralLink(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://t.me/PixelPoniesBot?start=PP1234ABC", ReferralLink("@PixelPoniesBot", "PP1234ABC"))
}

func TestValidateTweetProof(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		url        string
		wantHandle string
		wantErr    bool
	}{
		{name: "x.com link", url: "https://x.com/pony_fan/status/1790000000000000000", wantHandle: "pony_fan"},
		{name: "twitter.com link", url: "https://twitter.com/PonyFan/status/123", wantHandle: "PonyFan"},
		{name: "with query string", url: "https://x.com/pony_fan/status/123?s=20", wantHandle: "pony_fan"},
		{name: "profile link", url: "https://x.com/pony_fan", wantErr: true},
		{name: "plain http", url: "http://x.com/pony_fan/status/123", wantErr: true},
		{name: "other site", url: "https://example.com/pony_fan/status/123", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handle, err := ValidateTweetProof(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, interfaces.ErrInvalidProof)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHandle, handle)
		})
	}
}

func TestUserService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates new user with referral code", func(t *testing.T) {
		t.Parallel()

		userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
		userRepo.On("GetByTelegramID", mock.Anything, int64(1234)).Return(nil, nil)
		userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *entities.User) bool {
			return u.TelegramID == 1234 && len(u.ReferralCode) > 6 && u.ReferralCode[:6] == "PP1234"
		})).Return(nil)

		svc := NewUserService(userRepo, participantRepo, tempRepo, token)
		user, created, err := svc.Register(context.Background(), 1234, "rider", "Rider")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "rider", user.Username)

		userRepo.AssertExpectations(t)
	})

	t.Run("existing user refreshes profile", func(t *testing.T) {
		t.Parallel()

		userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
		userRepo.On("GetByTelegramID", mock.Anything, int64(1234)).Return(createTestUser(1234, false), nil)
		userRepo.On("UpdateProfile", mock.Anything, int64(1234), "renamed", "Rider").Return(nil)

		svc := NewUserService(userRepo, participantRepo, tempRepo, token)
		user, created, err := svc.Register(context.Background(), 1234, "renamed", "Rider")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "renamed", user.Username)

		userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		userRepo.AssertExpectations(t)
	})
}

func TestUserService_ApplyReferral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		code       string
		setupMocks func(*testhelpers.MockUserRepository)
		wantErr    error
		wantRef    *int64
	}{
		{
			name: "links to referrer",
			code: "pp9999abc",
			setupMocks: func(userRepo *testhelpers.MockUserRepository) {
				userRepo.On("GetByTelegramID", mock.Anything, int64(1)).Return(createTestUser(1, false), nil)
				userRepo.On("GetByReferralCode", mock.Anything, "PP9999ABC").Return(createTestUser(9999, true), nil)
				userRepo.On("SetReferredBy", mock.Anything, int64(1), int64(9999)).Return(true, nil)
			},
			wantRef: func() *int64 { v := int64(9999); return &v }(),
		},
		{
			name: "self referral rejected",
			code: "PPSELF",
			setupMocks: func(userRepo *testhelpers.MockUserRepository) {
				userRepo.On("GetByTelegramID", mock.Anything, int64(1)).Return(createTestUser(1, false), nil)
				userRepo.On("GetByReferralCode", mock.Anything, "PPSELF").Return(createTestUser(1, false), nil)
			},
			wantErr: interfaces.ErrInvalidReferral,
		},
		{
			name: "unknown code",
			code: "PPNOPE",
			setupMocks: func(userRepo *testhelpers.MockUserRepository) {
				userRepo.On("GetByTelegramID", mock.Anything, int64(1)).Return(createTestUser(1, false), nil)
				userRepo.On("GetByReferralCode", mock.Anything, "PPNOPE").Return(nil, nil)
			},
			wantErr: interfaces.ErrInvalidReferral,
		},
		{
			name: "existing referrer is kept",
			code: "PP9999ABC",
			setupMocks: func(userRepo *testhelpers.MockUserRepository) {
				user := createTestUser(1, false)
				existing := int64(555)
				user.ReferredBy = &existing
				userRepo.On("GetByTelegramID", mock.Anything, int64(1)).Return(user, nil)
			},
			wantRef: func() *int64 { v := int64(555); return &v }(),
		},
		{
			name:       "empty code",
			code:       "  ",
			setupMocks: func(userRepo *testhelpers.MockUserRepository) {},
			wantErr:    interfaces.ErrInvalidReferral,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
			tt.setupMocks(userRepo)

			svc := NewUserService(userRepo, participantRepo, tempRepo, token)
			user, err := svc.ApplyReferral(context.Background(), 1, tt.code)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				userRepo.AssertNotCalled(t, "SetReferredBy", mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				require.NotNil(t, user.ReferredBy)
				assert.Equal(t, *tt.wantRef, *user.ReferredBy)
			}

			userRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_SetWallet(t *testing.T) {
	t.Parallel()

	const address = "0x52908400098527886E0F7030069857D2E4169EE7"

	t.Run("invalid address is rejected before any write", func(t *testing.T) {
		t.Parallel()

		userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
		token.On("ValidateAddress", "not-an-address").Return(false)

		svc := NewUserService(userRepo, participantRepo, tempRepo, token)
		user, err := svc.SetWallet(context.Background(), 1, "not-an-address")

		assert.ErrorIs(t, err, interfaces.ErrInvalidWallet)
		assert.Nil(t, user)
		userRepo.AssertNotCalled(t, "SetWallet", mock.Anything, mock.Anything, mock.Anything)
		userRepo.AssertNotCalled(t, "GetByTelegramID", mock.Anything, mock.Anything)
	})

	t.Run("valid address is stored", func(t *testing.T) {
		t.Parallel()

		userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
		token.On("ValidateAddress", address).Return(true)
		userRepo.On("GetByTelegramID", mock.Anything, int64(1)).Return(createTestUser(1, false), nil)
		userRepo.On("SetWallet", mock.Anything, int64(1), address).Return(nil)

		svc := NewUserService(userRepo, participantRepo, tempRepo, token)
		user, err := svc.SetWallet(context.Background(), 1, "  "+address+" ")
		require.NoError(t, err)
		require.True(t, user.HasWallet())
		assert.Equal(t, address, *user.WalletAddress)

		userRepo.AssertExpectations(t)
		token.AssertExpectations(t)
	})
}

func TestUserService_SetTwitterHandle(t *testing.T) {
	t.Parallel()

	userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
	userRepo.On("GetByTelegramID", mock.Anything, int64(1)).Return(createTestUser(1, false), nil)
	userRepo.On("SetTwitterHandle", mock.Anything, int64(1), "pony_fan").Return(nil)

	svc := NewUserService(userRepo, participantRepo, tempRepo, token)
	require.NoError(t, svc.SetTwitterHandle(context.Background(), 1, "@pony_fan"))
	assert.Error(t, svc.SetTwitterHandle(context.Background(), 1, "not a handle!"))

	userRepo.AssertNumberOfCalls(t, "SetTwitterHandle", 1)
}

func TestUserService_GetStats(t *testing.T) {
	t.Parallel()

	race := createTestRace("race_1")

	t.Run("reports pending selection", func(t *testing.T) {
		t.Parallel()

		userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
		user := createTestUser(1, true)
		user.RacesParticipated = 4
		user.RacesWon = 1
		userRepo.On("GetByTelegramID", mock.Anything, int64(1)).Return(user, nil)
		participantRepo.On("Get", mock.Anything, "race_1", int64(1)).Return(nil, nil)
		tempRepo.On("Get", mock.Anything, int64(1), "race_1").Return(&entities.TempSelection{UserID: 1, RaceID: "race_1", HorseID: 4}, nil)

		svc := NewUserService(userRepo, participantRepo, tempRepo, token)
		stats, err := svc.GetStats(context.Background(), 1, race)
		require.NoError(t, err)
		assert.InDelta(t, 25.0, stats.WinRate, 0.001)
		require.NotNil(t, stats.ActiveSelection)
		assert.Equal(t, 4, stats.ActiveSelection.HorseID)
		assert.Nil(t, stats.CurrentBet)
	})

	t.Run("confirmed bet hides selection lookup", func(t *testing.T) {
		t.Parallel()

		userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
		userRepo.On("GetByTelegramID", mock.Anything, int64(1)).Return(createTestUser(1, true), nil)
		participantRepo.On("Get", mock.Anything, "race_1", int64(1)).Return(&entities.Participant{RaceID: "race_1", UserID: 1, HorseID: 9}, nil)

		svc := NewUserService(userRepo, participantRepo, tempRepo, token)
		stats, err := svc.GetStats(context.Background(), 1, race)
		require.NoError(t, err)
		require.NotNil(t, stats.CurrentBet)
		assert.Equal(t, 9, stats.CurrentBet.HorseID)
		tempRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
		userRepo.On("GetByTelegramID", mock.Anything, int64(1)).Return(nil, nil)

		svc := NewUserService(userRepo, participantRepo, tempRepo, token)
		_, err := svc.GetStats(context.Background(), 1, nil)
		assert.ErrorIs(t, err, interfaces.ErrUserNotFound)
	})
}

func TestUserService_Leaderboard(t *testing.T) {
	t.Parallel()

	userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
	userRepo.On("GetTopWinners", mock.Anything, 10).Return([]*entities.User{createTestUser(1, true)}, nil)

	svc := NewUserService(userRepo, participantRepo, tempRepo, token)
	users, err := svc.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	userRepo.AssertExpectations(t)
}

func TestUserService_Directory(t *testing.T) {
	t.Parallel()

	userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
	recent := []*entities.User{createTestUser(3, false), createTestUser(2, true)}
	userRepo.On("Count", mock.Anything).Return(int64(42), nil)
	userRepo.On("GetRecent", mock.Anything, 10).Return(recent, nil)

	svc := NewUserService(userRepo, participantRepo, tempRepo, token)
	total, users, err := svc.Directory(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	assert.Equal(t, recent, users)
	userRepo.AssertExpectations(t)
}

func TestUserService_Purge(t *testing.T) {
	t.Parallel()

	t.Run("deletes an existing user", func(t *testing.T) {
		t.Parallel()

		userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
		user := createTestUser(9, true)
		userRepo.On("GetByTelegramID", mock.Anything, int64(9)).Return(user, nil)
		userRepo.On("Delete", mock.Anything, int64(9)).Return(nil).Once()

		svc := NewUserService(userRepo, participantRepo, tempRepo, token)
		purged, err := svc.Purge(context.Background(), 9)
		require.NoError(t, err)
		assert.Same(t, user, purged)
		userRepo.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		userRepo, participantRepo, tempRepo, token := setupUserServiceMocks()
		userRepo.On("GetByTelegramID", mock.Anything, int64(9)).Return(nil, nil)

		svc := NewUserService(userRepo, participantRepo, tempRepo, token)
		_, err := svc.Purge(context.Background(), 9)
		assert.ErrorIs(t, err, interfaces.ErrUserNotFound)
		userRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
