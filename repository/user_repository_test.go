package repository

import (
	"context"
	"testing"

	"pixelponies/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByTelegramID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("user not found", func(t *testing.T) {
		user, err := repo.GetByTelegramID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("user found", func(t *testing.T) {
		testUser := testutil.CreateTestUser(123456, "testuser")
		require.NoError(t, repo.Create(ctx, testUser))
		assert.False(t, testUser.CreatedAt.IsZero())

		user, err := repo.GetByTelegramID(ctx, 123456)
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.Equal(t, "testuser", user.Username)
		assert.Equal(t, testUser.ReferralCode, user.ReferralCode)
		assert.False(t, user.HasWallet())
		assert.Equal(t, int64(0), user.TotalWon)

		byCode, err := repo.GetByReferralCode(ctx, testUser.ReferralCode)
		require.NoError(t, err)
		require.NotNil(t, byCode)
		assert.Equal(t, int64(123456), byCode.TelegramID)
	})

	t.Run("duplicate telegram ID", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, testutil.CreateTestUser(789012, "first")))

		duplicate := testutil.CreateTestUser(789012, "second")
		duplicate.ReferralCode = "PPOTHER"
		assert.Error(t, repo.Create(ctx, duplicate))
	})
}

func TestUserRepository_ProfileUpdates(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testutil.CreateTestUser(1, "alice")))

	require.NoError(t, repo.UpdateProfile(ctx, 1, "alice_new", "Alice"))
	require.NoError(t, repo.SetWallet(ctx, 1, "0x00000000000000000000000000000000000000aa"))
	require.NoError(t, repo.SetTwitterHandle(ctx, 1, "alice_x"))
	require.NoError(t, repo.IncrementRacesParticipated(ctx, 1))
	require.NoError(t, repo.RecordWin(ctx, 1, 425))
	require.NoError(t, repo.AddRaceRewardEarned(ctx, 1, 100))

	user, err := repo.GetByTelegramID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice_new", user.Username)
	assert.Equal(t, "Alice", user.FirstName)
	require.True(t, user.HasWallet())
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", *user.WalletAddress)
	assert.Equal(t, "alice_x", *user.TwitterHandle)
	assert.Equal(t, int64(1), user.RacesParticipated)
	assert.Equal(t, int64(1), user.RacesWon)
	assert.Equal(t, int64(425), user.TotalWon)
	assert.Equal(t, int64(100), user.RaceRewardsEarned)

	t.Run("missing user", func(t *testing.T) {
		assert.Error(t, repo.SetWallet(ctx, 42, "0x00000000000000000000000000000000000000aa"))
	})

	t.Run("leaderboard", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, testutil.CreateTestUser(2, "bob")))
		require.NoError(t, repo.RecordWin(ctx, 2, 1000))
		require.NoError(t, repo.Create(ctx, testutil.CreateTestUser(3, "carol")))

		top, err := repo.GetTopWinners(ctx, 10)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, int64(2), top[0].TelegramID)
		assert.Equal(t, int64(1), top[1].TelegramID)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		recent, err := repo.GetRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, int64(3), recent[0].TelegramID)
		assert.Equal(t, int64(2), recent[1].TelegramID)
	})
}

func TestUserRepository_Claims(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testutil.CreateTestUser(1, "referrer")))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestUser(2, "referred")))

	t.Run("signup bonus", func(t *testing.T) {
		claimed, err := repo.ClaimSignupBonus(ctx, 1)
		require.NoError(t, err)
		assert.True(t, claimed)

		claimed, err = repo.ClaimSignupBonus(ctx, 1)
		require.NoError(t, err)
		assert.False(t, claimed)

		released, err := repo.ReleaseSignupBonusClaim(ctx, 1)
		require.NoError(t, err)
		assert.True(t, released)

		claimed, err = repo.ClaimSignupBonus(ctx, 1)
		require.NoError(t, err)
		require.True(t, claimed)
		require.NoError(t, repo.MarkSignupBonusPaid(ctx, 1, 10_000_000_000))

		// A paid bonus is never released
		released, err = repo.ReleaseSignupBonusClaim(ctx, 1)
		require.NoError(t, err)
		assert.False(t, released)
	})

	t.Run("pending signup bonus transfer blocks release", func(t *testing.T) {
		claimed, err := repo.ClaimSignupBonus(ctx, 2)
		require.NoError(t, err)
		require.True(t, claimed)
		require.NoError(t, repo.RecordSignupBonusPending(ctx, 2, "0xpending"))

		user, err := repo.GetByTelegramID(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, user.SignupBonusPendingTx)
		assert.Equal(t, "0xpending", *user.SignupBonusPendingTx)

		released, err := repo.ReleaseSignupBonusClaim(ctx, 2)
		require.NoError(t, err)
		assert.False(t, released)

		require.NoError(t, repo.ClearSignupBonusPending(ctx, 2))

		released, err = repo.ReleaseSignupBonusClaim(ctx, 2)
		require.NoError(t, err)
		assert.True(t, released)
	})

	t.Run("paying the bonus clears the pending hash", func(t *testing.T) {
		claimed, err := repo.ClaimSignupBonus(ctx, 2)
		require.NoError(t, err)
		require.True(t, claimed)
		require.NoError(t, repo.RecordSignupBonusPending(ctx, 2, "0xlate"))
		require.NoError(t, repo.MarkSignupBonusPaid(ctx, 2, 10_000_000_000))

		user, err := repo.GetByTelegramID(ctx, 2)
		require.NoError(t, err)
		assert.True(t, user.SignupBonusPaid)
		assert.Nil(t, user.SignupBonusPendingTx)
	})

	t.Run("referral link is set once", func(t *testing.T) {
		set, err := repo.SetReferredBy(ctx, 2, 2)
		require.NoError(t, err)
		assert.False(t, set)

		claimed, err := repo.ClaimReferralReward(ctx, 2)
		require.NoError(t, err)
		assert.False(t, claimed, "unreferred users have nothing to claim")

		set, err = repo.SetReferredBy(ctx, 2, 1)
		require.NoError(t, err)
		assert.True(t, set)

		set, err = repo.SetReferredBy(ctx, 2, 1)
		require.NoError(t, err)
		assert.False(t, set)
	})

	t.Run("referral reward", func(t *testing.T) {
		claimed, err := repo.ClaimReferralReward(ctx, 2)
		require.NoError(t, err)
		assert.True(t, claimed)

		claimed, err = repo.ClaimReferralReward(ctx, 2)
		require.NoError(t, err)
		assert.False(t, claimed)

		require.NoError(t, repo.RecordReferralEarning(ctx, 1, 250_000_000))

		referrer, err := repo.GetByTelegramID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), referrer.ReferralCount)
		assert.Equal(t, int64(250_000_000), referrer.ReferralEarnings)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, 2))

		user, err := repo.GetByTelegramID(ctx, 2)
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}
