package testutil

import (
	"fmt"
	"time"

	"pixelponies/domain/entities"
)

// CreateTestUser creates a test user with a unique referral code
func CreateTestUser(telegramID int64, username string) *entities.User {
	return &entities.User{
		TelegramID:   telegramID,
		Username:     username,
		FirstName:    "Test",
		ReferralCode: fmt.Sprintf("PPTEST%d", telegramID),
	}
}

// CreateTestUserWithWallet creates a test user with a wallet on file
func CreateTestUserWithWallet(telegramID int64, username string) *entities.User {
	user := CreateTestUser(telegramID, username)
	wallet := fmt.Sprintf("0x%040x", telegramID)
	user.WalletAddress = &wallet
	return user
}

// CreateTestRace creates a race accepting bets that closes in five minutes
func CreateTestRace(raceID string) *entities.Race {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &entities.Race{
		RaceID:          raceID,
		StartTime:       now,
		BettingClosesAt: now.Add(5 * time.Minute),
		Status:          entities.RaceStatusBettingOpen,
		Horses:          entities.DefaultRoster(),
		PrizePool:       1000,
	}
}

// CreateTestParticipant creates a confirmed bet on a horse from the default roster
func CreateTestParticipant(raceID string, userID int64, horseID int) *entities.Participant {
	tweet := fmt.Sprintf("https://x.com/rider%d/status/%d", userID, 1000+userID)
	return &entities.Participant{
		RaceID:    raceID,
		UserID:    userID,
		Username:  fmt.Sprintf("rider%d", userID),
		HorseID:   horseID,
		HorseName: entities.DefaultRoster()[horseID-1].Name,
		TweetURL:  &tweet,
	}
}
