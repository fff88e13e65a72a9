package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pixelponies/domain/entities"
	"pixelponies/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const referralCodePrefix = "PP"

var (
	tweetURLPattern      = regexp.MustCompile(`^https://(?:www\.)?(?:x|twitter)\.com/([A-Za-z0-9_]{1,15})/status/(\d+)(?:[/?#].*)?$`)
	twitterHandlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
)

// userService handles registration and profile operations
type userService struct {
	userRepo          interfaces.UserRepository
	participantRepo   interfaces.ParticipantRepository
	tempSelectionRepo interfaces.TempSelectionRepository
	tokenClient       interfaces.TokenTransferClient
	now               func() time.Time
}

// NewUserService creates a new user service
func NewUserService(
	userRepo interfaces.UserRepository,
	participantRepo interfaces.ParticipantRepository,
	tempSelectionRepo interfaces.TempSelectionRepository,
	tokenClient interfaces.TokenTransferClient,
) interfaces.UserService {
	return &userService{
		userRepo:          userRepo,
		participantRepo:   participantRepo,
		tempSelectionRepo: tempSelectionRepo,
		tokenClient:       tokenClient,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// GenerateReferralCode builds "PP" + last four digits of the id + base36 creation time
func GenerateReferralCode(telegramID int64, now time.Time) string {
	id := strconv.FormatInt(telegramID, 10)
	if len(id) > 4 {
		id = id[len(id)-4:]
	}
	return strings.ToUpper(referralCodePrefix + id + strconv.FormatInt(now.UnixMilli(), 36))
}

// ReferralLink returns the Telegram deep link that starts the bot with a referral code
func ReferralLink(botUsername, code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", strings.TrimPrefix(botUsername, "@"), code)
}

// ValidateTweetProof checks that the proof is a link to a single tweet and returns the
// author handle
func ValidateTweetProof(url string) (string, error) {
	matches := tweetURLPattern.FindStringSubmatch(strings.TrimSpace(url))
	if matches == nil {
		return "", interfaces.ErrInvalidProof
	}
	return matches[1], nil
}

// Register gets or creates the user, refreshing the cached Telegram profile
func (s *userService) Register(ctx context.Context, telegramID int64, username, firstName string) (*entities.User, bool, error) {
	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}

	if user != nil {
		if user.Username != username || user.FirstName != firstName {
			if err := s.userRepo.UpdateProfile(ctx, telegramID, username, firstName); err != nil {
				return nil, false, fmt.Errorf("failed to update profile: %w", err)
			}
			user.Username = username
			user.FirstName = firstName
		}
		return user, false, nil
	}

	now := s.now()
	user = &entities.User{
		TelegramID:   telegramID,
		Username:     username,
		FirstName:    firstName,
		ReferralCode: GenerateReferralCode(telegramID, now),
		CreatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":       telegramID,
		"username":      username,
		"referral_code": user.ReferralCode,
	}).Info("User registered")

	return user, true, nil
}

// ApplyReferral links the user to the owner of the code. Users who already have a
// referrer are left untouched.
func (s *userService) ApplyReferral(ctx context.Context, telegramID int64, code string) (*entities.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, interfaces.ErrInvalidReferral
	}

	user, err := s.getUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if user.IsReferred() {
		return user, nil
	}

	referrer, err := s.userRepo.GetByReferralCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get referrer: %w", err)
	}
	if referrer == nil || referrer.TelegramID == telegramID {
		return nil, interfaces.ErrInvalidReferral
	}

	linked, err := s.userRepo.SetReferredBy(ctx, telegramID, referrer.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to set referrer: %w", err)
	}
	if linked {
		user.ReferredBy = &referrer.TelegramID
		log.WithFields(log.Fields{
			"user_id":     telegramID,
			"referrer_id": referrer.TelegramID,
		}).Info("Referral applied")
	}

	return user, nil
}

// SetWallet validates the address and stores it. Nothing is written for an invalid address.
func (s *userService) SetWallet(ctx context.Context, telegramID int64, address string) (*entities.User, error) {
	address = strings.TrimSpace(address)
	if !s.tokenClient.ValidateAddress(address) {
		return nil, interfaces.ErrInvalidWallet
	}

	user, err := s.getUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetWallet(ctx, telegramID, address); err != nil {
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}
	user.WalletAddress = &address

	log.WithField("user_id", telegramID).Info("Wallet registered")
	return user, nil
}

// SetTwitterHandle stores the handle without a leading @
func (s *userService) SetTwitterHandle(ctx context.Context, telegramID int64, handle string) error {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if !twitterHandlePattern.MatchString(handle) {
		return fmt.Errorf("invalid twitter handle %q", handle)
	}

	if _, err := s.getUser(ctx, telegramID); err != nil {
		return err
	}

	if err := s.userRepo.SetTwitterHandle(ctx, telegramID, handle); err != nil {
		return fmt.Errorf("failed to save twitter handle: %w", err)
	}
	return nil
}

// GetStats returns the user's profile along with their pick or bet in the open race
func (s *userService) GetStats(ctx context.Context, telegramID int64, openRace *entities.Race) (*entities.UserStats, error) {
	user, err := s.getUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	stats := &entities.UserStats{User: user}
	if user.RacesParticipated > 0 {
		stats.WinRate = float64(user.RacesWon) / float64(user.RacesParticipated) * 100
	}

	if openRace == nil {
		return stats, nil
	}

	participant, err := s.participantRepo.Get(ctx, openRace.RaceID, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	stats.CurrentBet = participant

	if participant == nil {
		selection, err := s.tempSelectionRepo.Get(ctx, telegramID, openRace.RaceID)
		if err != nil {
			return nil, fmt.Errorf("failed to get horse selection: %w", err)
		}
		stats.ActiveSelection = selection
	}

	return stats, nil
}

// Leaderboard returns the top winners by total winnings
func (s *userService) Leaderboard(ctx context.Context, limit int) ([]*entities.User, error) {
	if limit <= 0 {
		limit = 10
	}
	users, err := s.userRepo.GetTopWinners(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return users, nil
}

// Directory returns the user count and the most recent registrations
func (s *userService) Directory(ctx context.Context, limit int) (int64, []*entities.User, error) {
	if limit <= 0 {
		limit = 10
	}

	total, err := s.userRepo.Count(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to count users: %w", err)
	}

	recent, err := s.userRepo.GetRecent(ctx, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get recent users: %w", err)
	}
	return total, recent, nil
}

// Purge deletes the user. Their picks and bets go with them; referrals they made are
// unlinked.
func (s *userService) Purge(ctx context.Context, telegramID int64) (*entities.User, error) {
	user, err := s.getUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Delete(ctx, telegramID); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":  telegramID,
		"username": user.Username,
	}).Warn("User purged")

	return user, nil
}

func (s *userService) getUser(ctx context.Context, telegramID int64) (*entities.User, error) {
	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, interfaces.ErrUserNotFound
	}
	return user, nil
}
