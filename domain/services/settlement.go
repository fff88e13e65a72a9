package services

import (
	"context"
	"fmt"

	"pixelponies/domain/entities"
	"pixelponies/domain/events"
	"pixelponies/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const paidPositions = 3

// allocatePrizePool splits the pool into one bucket per paid position. Each bucket share
// and each member's cut are floored; nothing is redistributed from empty buckets.
func allocatePrizePool(race *entities.Race, participants []*entities.ParticipantWithWallet, split entities.PayoutSplit) []entities.PayoutBucket {
	backers := make(map[int]int)
	for _, p := range participants {
		backers[p.HorseID]++
	}

	buckets := make([]entities.PayoutBucket, 0, paidPositions)
	for position := 1; position <= paidPositions; position++ {
		horse, ok := race.HorseAtPosition(position)
		if !ok {
			continue
		}

		bucket := entities.PayoutBucket{
			Position:  position,
			HorseID:   horse.ID,
			HorseName: horse.Name,
			Share:     split.Share(race.PrizePool, position),
			Members:   backers[horse.ID],
		}
		if bucket.Members > 0 {
			bucket.PerMember = bucket.Share / int64(bucket.Members)
		}
		buckets = append(buckets, bucket)
	}
	return buckets
}

// payoutFor returns the bucket position and per-member amount for a horse, zero if the
// horse did not place or its bucket pays nothing
func payoutFor(buckets []entities.PayoutBucket, horseID int) (int, int64) {
	for _, b := range buckets {
		if b.HorseID == horseID && b.Members > 0 && b.PerMember > 0 {
			return b.Position, b.PerMember
		}
	}
	return 0, 0
}

// tallySettlement derives the report totals from participant state, so payouts made by
// an earlier interrupted pass are counted and transfers of unknown outcome are held back
// from the unpaid remainder.
func tallySettlement(report *entities.SettlementReport, participants []*entities.ParticipantWithWallet) {
	report.TotalPaid = 0
	report.PendingAmount = 0
	for _, p := range participants {
		switch {
		case p.IsPaid():
			report.TotalPaid += p.Payout
		case p.HasPendingPayout(), p.HasUnrecordedClaim():
			_, amount := payoutFor(report.Buckets, p.HorseID)
			report.PendingAmount += amount
		}
	}

	report.Unpaid = report.PrizePool - report.TotalPaid - report.PendingAmount
	if report.Unpaid < 0 {
		report.Unpaid = 0
	}

	report.NoWinners = true
	for _, b := range report.Buckets {
		if b.Members > 0 && b.PerMember > 0 {
			report.NoWinners = false
			break
		}
	}
}

// SettlePayouts splits the prize pool among participants who backed a placed horse and
// attempts each transfer independently. A failed transfer leaves that payout at zero.
// Settling a race interrupted mid-way pays only the participants not yet attempted.
func (s *raceService) SettlePayouts(ctx context.Context, race *entities.Race) (*entities.SettlementReport, error) {
	if race == nil {
		return nil, interfaces.ErrRaceNotFound
	}

	// Reload so a stale in-memory copy cannot settle twice
	current, err := s.getRace(ctx, race.RaceID)
	if err != nil {
		return nil, err
	}
	if !current.IsFinished() {
		return nil, fmt.Errorf("%w: race %s is %s", interfaces.ErrRaceNotFinished, current.RaceID, current.Status)
	}
	if current.IsSettled() {
		return nil, interfaces.ErrAlreadySettled
	}

	participants, err := s.participantRepo.GetByRaceWithWallets(ctx, current.RaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	report := &entities.SettlementReport{
		RaceID:       current.RaceID,
		PrizePool:    current.PrizePool,
		Participants: len(participants),
		Payouts:      make([]entities.PayoutResult, 0),
	}

	if len(participants) > 0 {
		report.Buckets = allocatePrizePool(current, participants, s.config.PayoutSplit)
		report.Payouts = append(report.Payouts, s.resolvePendingPayouts(ctx, current, participants, report.Buckets)...)
		report.Payouts = append(report.Payouts, s.payBuckets(ctx, current, participants, report.Buckets, nil)...)
	}
	tallySettlement(report, participants)

	settled, err := s.raceRepo.MarkSettled(ctx, current.RaceID, report.TotalPaid, report.Unpaid, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to mark race settled: %w", err)
	}
	if !settled {
		return nil, interfaces.ErrAlreadySettled
	}
	race.MarkSettled(report.TotalPaid, report.Unpaid, s.now())

	s.publish(events.PayoutsSettledEvent{Report: *report})

	log.WithFields(log.Fields{
		"race_id":      report.RaceID,
		"prize_pool":   report.PrizePool,
		"participants": report.Participants,
		"total_paid":   report.TotalPaid,
		"pending":      report.PendingAmount,
		"unpaid":       report.Unpaid,
		"failed":       len(report.FailedPayouts()),
	}).Info("Race payouts settled")

	return report, nil
}

// RetryFailedPayouts resolves transfers of unknown outcome, releases the attempt marks on
// failed payouts of a settled race and pays those participants again. Already paid
// participants are never touched, and neither is a transfer that may still be mined.
func (s *raceService) RetryFailedPayouts(ctx context.Context, raceID string) (*entities.SettlementReport, error) {
	race, err := s.getRace(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if !race.IsFinished() {
		return nil, fmt.Errorf("%w: race %s is %s", interfaces.ErrRaceNotFinished, raceID, race.Status)
	}
	if !race.IsSettled() {
		return s.SettlePayouts(ctx, race)
	}
	if race.IsCarriedOver() {
		return nil, fmt.Errorf("%w: race %s", interfaces.ErrUnpaidCarriedOver, raceID)
	}

	participants, err := s.participantRepo.GetByRaceWithWallets(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	report := &entities.SettlementReport{
		RaceID:       raceID,
		PrizePool:    race.PrizePool,
		Participants: len(participants),
		Buckets:      allocatePrizePool(race, participants, s.config.PayoutSplit),
		Payouts:      make([]entities.PayoutResult, 0),
	}
	report.Payouts = append(report.Payouts, s.resolvePendingPayouts(ctx, race, participants, report.Buckets)...)

	released, err := s.participantRepo.ReleaseFailedPayoutClaims(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to release payout claims: %w", err)
	}
	if released > 0 {
		participants, err = s.participantRepo.GetByRaceWithWallets(ctx, raceID)
		if err != nil {
			return nil, fmt.Errorf("failed to get participants: %w", err)
		}
	}

	retryable := func(p *entities.ParticipantWithWallet) bool {
		return !p.IsPaid() && p.PayoutAttemptedAt == nil
	}
	report.Payouts = append(report.Payouts, s.payBuckets(ctx, race, participants, report.Buckets, retryable)...)
	tallySettlement(report, participants)

	if err := s.raceRepo.UpdateSettlementTotals(ctx, raceID, report.TotalPaid, report.Unpaid); err != nil {
		return nil, fmt.Errorf("failed to update settlement totals: %w", err)
	}

	s.publish(events.PayoutsSettledEvent{Report: *report})

	log.WithFields(log.Fields{
		"race_id":    raceID,
		"released":   released,
		"retried":    len(report.Payouts),
		"total_paid": report.TotalPaid,
		"pending":    report.PendingAmount,
		"unpaid":     report.Unpaid,
	}).Info("Retried failed race payouts")

	return report, nil
}

// resolvePendingPayouts looks up the receipt of every transfer left with an unknown
// outcome. Mined transfers are recorded as paid; reverted ones lose their pending hash
// so the next release can free the claim. Unresolved transfers are left alone.
func (s *raceService) resolvePendingPayouts(
	ctx context.Context,
	race *entities.Race,
	participants []*entities.ParticipantWithWallet,
	buckets []entities.PayoutBucket,
) []entities.PayoutResult {
	results := make([]entities.PayoutResult, 0)
	for _, p := range participants {
		if !p.HasPendingPayout() {
			continue
		}

		txRef := *p.PayoutPendingTx
		logger := log.WithFields(log.Fields{
			"race_id": race.RaceID,
			"user_id": p.UserID,
			"tx_ref":  txRef,
		})

		status, err := s.tokenClient.TransferStatus(ctx, txRef)
		if err != nil {
			logger.WithError(err).Warn("Failed to look up pending payout transfer")
			continue
		}

		switch status {
		case interfaces.TransferStatusConfirmed:
			position, amount := payoutFor(buckets, p.HorseID)
			if err := s.participantRepo.RecordPayoutSuccess(ctx, race.RaceID, p.UserID, amount, txRef); err != nil {
				logger.WithError(err).Error("Failed to record confirmed pending payout")
				continue
			}
			if err := s.userRepo.RecordWin(ctx, p.UserID, amount); err != nil {
				logger.WithError(err).Error("Failed to update user winnings")
			}
			p.Payout = amount
			p.PayoutTxRef = &txRef
			p.PayoutPendingTx = nil
			p.PayoutError = nil

			results = append(results, entities.PayoutResult{
				UserID:   p.UserID,
				Username: p.Username,
				HorseID:  p.HorseID,
				Position: position,
				Amount:   amount,
				Intended: amount,
				TxRef:    txRef,
				Success:  true,
			})
			logger.WithField("amount", amount).Info("Pending payout confirmed on-chain")

		case interfaces.TransferStatusReverted:
			if err := s.participantRepo.ClearPendingPayout(ctx, race.RaceID, p.UserID); err != nil {
				logger.WithError(err).Error("Failed to clear reverted pending payout")
				continue
			}
			p.PayoutPendingTx = nil
			logger.Info("Pending payout reverted, claim can be released")

		default:
			logger.Info("Pending payout still unconfirmed")
		}
	}
	return results
}

// payBuckets pays every participant in a non-empty bucket. include filters which
// participants are attempted; nil attempts everyone.
func (s *raceService) payBuckets(
	ctx context.Context,
	race *entities.Race,
	participants []*entities.ParticipantWithWallet,
	buckets []entities.PayoutBucket,
	include func(*entities.ParticipantWithWallet) bool,
) []entities.PayoutResult {
	results := make([]entities.PayoutResult, 0)
	for _, bucket := range buckets {
		if bucket.Members == 0 || bucket.PerMember <= 0 {
			continue
		}
		for _, p := range participants {
			if p.HorseID != bucket.HorseID {
				continue
			}
			if include != nil && !include(p) {
				continue
			}
			results = append(results, s.payParticipant(ctx, race, p, bucket.Position, bucket.PerMember))
		}
	}
	return results
}

// payParticipant claims the payout, transfers it and records the outcome. The claim is
// taken before the transfer so a crash can never lead to a second payment.
func (s *raceService) payParticipant(ctx context.Context, race *entities.Race, p *entities.ParticipantWithWallet, position int, amount int64) entities.PayoutResult {
	result := entities.PayoutResult{
		UserID:   p.UserID,
		Username: p.Username,
		HorseID:  p.HorseID,
		Position: position,
		Intended: amount,
	}

	logger := log.WithFields(log.Fields{
		"race_id":  race.RaceID,
		"user_id":  p.UserID,
		"position": position,
		"amount":   amount,
	})

	claimed, err := s.participantRepo.ClaimPayout(ctx, race.RaceID, p.UserID)
	if err != nil {
		logger.WithError(err).Error("Failed to claim payout")
		result.Error = "failed to claim payout"
		return result
	}
	if !claimed {
		result.Skipped = true
		result.Error = "payout already attempted"
		return result
	}

	if p.WalletAddress == nil || *p.WalletAddress == "" {
		result.Error = "no wallet registered"
		s.recordPayoutFailure(ctx, race.RaceID, p.UserID, result.Error, "")
		logger.Warn("Winner has no wallet, payout skipped")
		return result
	}

	transfer := s.tokenClient.SendTokens(ctx, *p.WalletAddress, amount)
	if !transfer.Success {
		result.Error = transfer.Error
		if result.Error == "" {
			result.Error = "transfer failed"
		}
		// A broadcast transaction may still be mined; its hash blocks any retry until resolved
		result.TxRef = transfer.TxRef
		s.recordPayoutFailure(ctx, race.RaceID, p.UserID, result.Error, transfer.TxRef)
		if transfer.TxRef != "" {
			pending := transfer.TxRef
			p.PayoutPendingTx = &pending
		}
		logger.WithFields(log.Fields{
			"error":  result.Error,
			"tx_ref": transfer.TxRef,
		}).Error("Payout transfer failed")
		return result
	}

	result.Success = true
	result.Amount = amount
	result.TxRef = transfer.TxRef

	txRef := transfer.TxRef
	p.Payout = amount
	p.PayoutTxRef = &txRef

	// The tokens have moved; bookkeeping failures below are logged for manual repair
	if err := s.participantRepo.RecordPayoutSuccess(ctx, race.RaceID, p.UserID, amount, transfer.TxRef); err != nil {
		logger.WithError(err).WithField("tx_ref", transfer.TxRef).Error("Failed to record payout after successful transfer")
	}
	if err := s.userRepo.RecordWin(ctx, p.UserID, amount); err != nil {
		logger.WithError(err).Error("Failed to update user winnings")
	}

	logger.WithField("tx_ref", transfer.TxRef).Info("Payout sent")
	return result
}

func (s *raceService) recordPayoutFailure(ctx context.Context, raceID string, userID int64, reason, pendingTx string) {
	if err := s.participantRepo.RecordPayoutFailure(ctx, raceID, userID, reason, pendingTx); err != nil {
		log.WithFields(log.Fields{
			"race_id": raceID,
			"user_id": userID,
			"error":   err,
		}).Error("Failed to record payout failure")
	}
}
