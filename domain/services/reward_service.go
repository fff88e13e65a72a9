package services

import (
	"context"
	"fmt"

	"pixelponies/domain/entities"
	"pixelponies/domain/events"
	"pixelponies/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RewardConfig holds reward amounts in whole tokens. A zero amount disables the reward.
type RewardConfig struct {
	SignupBonus    int64
	RaceReward     int64
	ReferralReward int64
	ReferredBonus  int64
}

// DefaultRewardConfig returns 10B signup, 100M per race, 250M per referral and 100 for the referred user
func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		SignupBonus:    10_000_000_000,
		RaceReward:     100_000_000,
		ReferralReward: 250_000_000,
		ReferredBonus:  100,
	}
}

// rewardService issues token rewards. Every reward is claimed in storage before its
// transfer is attempted, so a retried call can never pay twice.
type rewardService struct {
	userRepo        interfaces.UserRepository
	participantRepo interfaces.ParticipantRepository
	tokenClient     interfaces.TokenTransferClient
	eventPublisher  interfaces.EventPublisher
	config          RewardConfig
}

// NewRewardService creates a new reward service
func NewRewardService(
	userRepo interfaces.UserRepository,
	participantRepo interfaces.ParticipantRepository,
	tokenClient interfaces.TokenTransferClient,
	eventPublisher interfaces.EventPublisher,
	config RewardConfig,
) interfaces.RewardService {
	return &rewardService{
		userRepo:        userRepo,
		participantRepo: participantRepo,
		tokenClient:     tokenClient,
		eventPublisher:  eventPublisher,
		config:          config,
	}
}

// IssueParticipationRewards pays the race reward, then the signup bonus and referral
// rewards if they are still outstanding
func (s *rewardService) IssueParticipationRewards(ctx context.Context, userID int64, raceID string) ([]entities.RewardResult, error) {
	results := make([]entities.RewardResult, 0, 4)

	raceReward, err := s.IssueRaceReward(ctx, userID, raceID)
	if err != nil {
		return results, err
	}
	if raceReward != nil {
		results = append(results, *raceReward)
	}

	signup, err := s.IssueSignupBonus(ctx, userID)
	if err != nil {
		return results, err
	}
	if signup != nil {
		results = append(results, *signup)
	}

	referral, err := s.IssueReferralReward(ctx, userID)
	if err != nil {
		return results, err
	}
	results = append(results, referral...)

	return results, nil
}

// IssueSignupBonus pays the one-time signup bonus. Users without a wallet are skipped
// without claiming so the bonus is paid once they register one.
func (s *rewardService) IssueSignupBonus(ctx context.Context, userID int64) (*entities.RewardResult, error) {
	if s.config.SignupBonus <= 0 {
		return nil, nil
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasWallet() {
		return nil, nil
	}

	result := &entities.RewardResult{
		Kind:   entities.RewardKindSignupBonus,
		UserID: userID,
	}

	if user.HasClaimedSignupBonus() {
		result.Skipped = true
		return result, nil
	}

	claimed, err := s.userRepo.ClaimSignupBonus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim signup bonus: %w", err)
	}
	if !claimed {
		result.Skipped = true
		return result, nil
	}

	s.transfer(ctx, result, *user.WalletAddress, s.config.SignupBonus)
	if !result.Success {
		if result.TxRef != "" {
			if err := s.userRepo.RecordSignupBonusPending(ctx, userID, result.TxRef); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"user_id": userID,
					"tx_ref":  result.TxRef,
				}).Error("Failed to record pending signup bonus transfer")
			}
		}
		return result, nil
	}

	if err := s.userRepo.MarkSignupBonusPaid(ctx, userID, result.Amount); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to record signup bonus after transfer")
	}
	s.publishReward(result)
	return result, nil
}

// ResendSignupBonus releases an unpaid signup bonus claim and pays it again. A bonus
// whose earlier transfer may still be mined is resolved on-chain first and never resent
// while its outcome is unknown.
func (s *rewardService) ResendSignupBonus(ctx context.Context, userID int64) (*entities.RewardResult, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.SignupBonusPendingTx != nil && !user.SignupBonusPaid {
		result, err := s.resolvePendingSignupBonus(ctx, userID, *user.SignupBonusPendingTx)
		if err != nil || result != nil {
			return result, err
		}
	}

	released, err := s.userRepo.ReleaseSignupBonusClaim(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to release signup bonus claim: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"released": released,
	}).Info("Resending signup bonus")

	return s.IssueSignupBonus(ctx, userID)
}

// resolvePendingSignupBonus settles an earlier bonus transfer of unknown outcome. It
// returns a nil result once the transfer is known to have reverted and can be resent.
func (s *rewardService) resolvePendingSignupBonus(ctx context.Context, userID int64, txRef string) (*entities.RewardResult, error) {
	status, err := s.tokenClient.TransferStatus(ctx, txRef)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending signup bonus %s: %w", txRef, err)
	}

	result := &entities.RewardResult{
		Kind:   entities.RewardKindSignupBonus,
		UserID: userID,
		TxRef:  txRef,
	}

	switch status {
	case interfaces.TransferStatusConfirmed:
		if err := s.userRepo.MarkSignupBonusPaid(ctx, userID, s.config.SignupBonus); err != nil {
			return nil, fmt.Errorf("failed to record confirmed signup bonus: %w", err)
		}
		result.Success = true
		result.Amount = s.config.SignupBonus
		s.publishReward(result)
		log.WithFields(log.Fields{
			"user_id": userID,
			"tx_ref":  txRef,
		}).Info("Pending signup bonus confirmed on-chain")
		return result, nil

	case interfaces.TransferStatusReverted:
		if err := s.userRepo.ClearSignupBonusPending(ctx, userID); err != nil {
			return nil, fmt.Errorf("failed to clear reverted signup bonus: %w", err)
		}
		return nil, nil

	default:
		result.Error = "previous transfer is still pending"
		return result, nil
	}
}

// Airdrop sends an operator-chosen amount to the user's wallet. Airdrops carry no claim:
// every call is a new transfer.
func (s *rewardService) Airdrop(ctx context.Context, userID int64, amount int64) (*entities.RewardResult, error) {
	if amount <= 0 {
		return nil, interfaces.ErrInvalidAmount
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &entities.RewardResult{
		Kind:   entities.RewardKindAirdrop,
		UserID: userID,
	}
	if !user.HasWallet() {
		result.Error = "no wallet registered"
		return result, nil
	}

	s.transfer(ctx, result, *user.WalletAddress, amount)
	if result.Success {
		s.publishReward(result)
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amount,
		"success": result.Success,
		"tx_ref":  result.TxRef,
	}).Warn("Operator airdrop")

	return result, nil
}

// IssueRaceReward pays the per-race participation reward once per participant
func (s *rewardService) IssueRaceReward(ctx context.Context, userID int64, raceID string) (*entities.RewardResult, error) {
	if s.config.RaceReward <= 0 {
		return nil, nil
	}

	participant, err := s.participantRepo.Get(ctx, raceID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	if participant == nil {
		return nil, fmt.Errorf("user %d has not joined race %s", userID, raceID)
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &entities.RewardResult{
		Kind:   entities.RewardKindRace,
		UserID: userID,
	}

	if !user.HasWallet() {
		result.Error = "no wallet registered"
		return result, nil
	}

	claimed, err := s.participantRepo.ClaimRaceReward(ctx, raceID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim race reward: %w", err)
	}
	if !claimed {
		result.Skipped = true
		return result, nil
	}

	s.transfer(ctx, result, *user.WalletAddress, s.config.RaceReward)
	if !result.Success {
		return result, nil
	}

	if err := s.userRepo.AddRaceRewardEarned(ctx, userID, result.Amount); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to record race reward after transfer")
	}
	s.publishReward(result)
	return result, nil
}

// IssueReferralReward pays the referrer and the referred user the first time the
// referred user takes part. The referred user's claim guards both transfers.
func (s *rewardService) IssueReferralReward(ctx context.Context, userID int64) ([]entities.RewardResult, error) {
	if s.config.ReferralReward <= 0 && s.config.ReferredBonus <= 0 {
		return nil, nil
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsReferred() || user.ReferralRewardClaimedAt != nil {
		return nil, nil
	}

	referrer, err := s.userRepo.GetByTelegramID(ctx, *user.ReferredBy)
	if err != nil {
		return nil, fmt.Errorf("failed to get referrer: %w", err)
	}
	if referrer == nil || !referrer.HasWallet() || !user.HasWallet() {
		return nil, nil
	}

	claimed, err := s.userRepo.ClaimReferralReward(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim referral reward: %w", err)
	}
	if !claimed {
		return nil, nil
	}

	results := make([]entities.RewardResult, 0, 2)

	if s.config.ReferralReward > 0 {
		referrerResult := &entities.RewardResult{
			Kind:   entities.RewardKindReferral,
			UserID: referrer.TelegramID,
		}
		s.transfer(ctx, referrerResult, *referrer.WalletAddress, s.config.ReferralReward)
		if referrerResult.Success {
			if err := s.userRepo.RecordReferralEarning(ctx, referrer.TelegramID, referrerResult.Amount); err != nil {
				log.WithError(err).WithField("user_id", referrer.TelegramID).Error("Failed to record referral earning after transfer")
			}
			s.publishReward(referrerResult)
		}
		results = append(results, *referrerResult)

		// The referred bonus is only paid once the referrer has been paid
		if !referrerResult.Success {
			return results, nil
		}
	}

	if s.config.ReferredBonus > 0 {
		referredResult := &entities.RewardResult{
			Kind:   entities.RewardKindReferred,
			UserID: userID,
		}
		s.transfer(ctx, referredResult, *user.WalletAddress, s.config.ReferredBonus)
		if referredResult.Success {
			s.publishReward(referredResult)
		}
		results = append(results, *referredResult)
	}

	return results, nil
}

// transfer sends tokens and fills in the result
func (s *rewardService) transfer(ctx context.Context, result *entities.RewardResult, address string, amount int64) {
	transfer := s.tokenClient.SendTokens(ctx, address, amount)
	if !transfer.Success {
		result.Error = transfer.Error
		if result.Error == "" {
			result.Error = "transfer failed"
		}
		result.TxRef = transfer.TxRef
		log.WithFields(log.Fields{
			"kind":    result.Kind,
			"user_id": result.UserID,
			"amount":  amount,
			"error":   result.Error,
			"tx_ref":  transfer.TxRef,
		}).Error("Reward transfer failed")
		return
	}

	result.Success = true
	result.Amount = amount
	result.TxRef = transfer.TxRef

	log.WithFields(log.Fields{
		"kind":    result.Kind,
		"user_id": result.UserID,
		"amount":  amount,
		"tx_ref":  transfer.TxRef,
	}).Info("Reward sent")
}

func (s *rewardService) getUser(ctx context.Context, userID int64) (*entities.User, error) {
	user, err := s.userRepo.GetByTelegramID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, interfaces.ErrUserNotFound
	}
	return user, nil
}

func (s *rewardService) publishReward(result *entities.RewardResult) {
	if s.eventPublisher == nil {
		return
	}
	err := s.eventPublisher.Publish(events.RewardIssuedEvent{
		UserID: result.UserID,
		Kind:   result.Kind,
		Amount: result.Amount,
		TxRef:  result.TxRef,
	})
	if err != nil {
		log.WithError(err).Error("Failed to publish reward event")
	}
}
