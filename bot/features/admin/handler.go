package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pixelponies/bot/common"
	"pixelponies/domain/interfaces"
	"pixelponies/domain/utils"

	log "github.com/sirupsen/logrus"
)

const recentUsersShown = 10

func (f *Feature) handleRunRace(ctx context.Context) (string, error) {
	result, err := f.races.RunTick(ctx)
	if err != nil {
		return "", common.FromError(err, "admin race tick failed")
	}

	var b strings.Builder
	b.WriteString("✅ Race tick complete.")
	if result.Finished != nil {
		fmt.Fprintf(&b, "\nFinished: %s", common.Escape(result.Finished.RaceID))
	}
	if result.Settlement != nil {
		fmt.Fprintf(&b, "\nPaid: %s, failed payouts: %d",
			common.FormatTokens(result.Settlement.TotalPaid, f.symbol), len(result.Settlement.FailedPayouts()))
	}
	if result.Opened != nil {
		fmt.Fprintf(&b, "\nOpened: %s (pool %s)", common.Escape(result.Opened.RaceID), common.FormatTokens(result.Opened.PrizePool, f.symbol))
	}
	return b.String(), nil
}

func (f *Feature) handleFinish(ctx context.Context, cmd common.Command) (string, error) {
	raceID := cmd.Arg(0)
	if raceID == "" {
		return "", common.NewUserError("Usage: /admin_finish &lt;raceId&gt;", "missing race id")
	}

	report, err := f.races.FinishRace(ctx, raceID)
	if err != nil {
		return "", common.FromError(err, "admin finish failed")
	}

	log.WithFields(log.Fields{
		"race_id":    raceID,
		"total_paid": report.TotalPaid,
	}).Info("Race finished by admin")

	return "✅ Race finished.\n\n" + common.FormatSettlement(report, f.symbol), nil
}

func (f *Feature) handleRetry(ctx context.Context, cmd common.Command) (string, error) {
	raceID := cmd.Arg(0)
	if raceID == "" {
		return "", common.NewUserError("Usage: /admin_retry &lt;raceId&gt;", "missing race id")
	}

	report, err := f.races.RetryFailedPayouts(ctx, raceID)
	if err != nil {
		return "", common.FromError(err, "admin retry failed")
	}

	return fmt.Sprintf("🔁 Retried %d payout(s), %d still failing.\nTotal paid: %s, unpaid: %s",
		len(report.Payouts), len(report.FailedPayouts()),
		common.FormatTokens(report.TotalPaid, f.symbol), common.FormatTokens(report.Unpaid, f.symbol)), nil
}

func (f *Feature) handleBalance(ctx context.Context) (string, error) {
	if f.balanceReader == nil || f.botAddress == "" {
		return "", common.NewUserError("❌ No token client configured.", "balance reader missing")
	}

	decimals, err := f.balanceReader.Decimals(ctx)
	if err != nil {
		return "", common.NewSystemError(err, "failed to read token decimals")
	}
	balance, err := f.balanceReader.BalanceOf(ctx, f.botAddress)
	if err != nil {
		return "", common.NewSystemError(err, "failed to read bot balance")
	}

	return fmt.Sprintf("🏦 Bot wallet <code>%s</code>\nBalance: <b>%s $%s</b>",
		f.botAddress, utils.FormatBaseUnits(balance, decimals), f.symbol), nil
}

func (f *Feature) handleAirdrop(ctx context.Context, cmd common.Command) (string, error) {
	userID, err := strconv.ParseInt(cmd.Arg(0), 10, 64)
	if err != nil {
		return "", common.NewUserError("Usage: /admin_airdrop &lt;telegramUserId&gt;", "invalid user id")
	}

	result, err := f.bonuses.ResendSignupBonus(ctx, userID)
	if err != nil {
		return "", common.FromError(err, "admin airdrop failed")
	}
	if result == nil || result.Skipped {
		return fmt.Sprintf("ℹ️ User %d has no outstanding signup bonus.", userID), nil
	}

	if !result.Success {
		return fmt.Sprintf("⚠️ Signup bonus for user %d failed: %s", userID, common.Escape(result.Error)), nil
	}
	return fmt.Sprintf("✅ Sent %s to user %d %s",
		common.FormatTokens(result.Amount, f.symbol), userID, common.TxLink(result.TxRef)), nil
}

func (f *Feature) handleAirdropUser(ctx context.Context, cmd common.Command) (string, error) {
	userID, idErr := strconv.ParseInt(cmd.Arg(0), 10, 64)
	amount, amountErr := strconv.ParseInt(cmd.Arg(1), 10, 64)
	if idErr != nil || amountErr != nil {
		return "", common.NewUserError("Usage: /admin_airdrop_user &lt;telegramUserId&gt; &lt;amount&gt;", "invalid airdrop arguments")
	}

	uow := f.uowFactory.CreateAutoCommit()
	if err := uow.Begin(ctx); err != nil {
		return "", common.NewSystemError(err, "failed to begin unit of work")
	}
	defer uow.Rollback()

	result, err := f.services.RewardService(uow).Airdrop(ctx, userID, amount)
	if errors.Is(err, interfaces.ErrUserNotFound) {
		return "", common.NewUserError(fmt.Sprintf("❌ User %d not found.", userID), "airdrop to unknown user")
	}
	if err != nil {
		return "", common.FromError(err, "admin user airdrop failed")
	}

	if err := uow.Commit(); err != nil {
		return "", common.NewSystemError(err, "failed to commit unit of work")
	}

	if !result.Success {
		text := fmt.Sprintf("⚠️ Airdrop to user %d failed: %s", userID, common.Escape(result.Error))
		if result.TxRef != "" {
			text += "\nThe transfer was broadcast and may still confirm: " + common.TxLink(result.TxRef)
		}
		return text, nil
	}
	return fmt.Sprintf("🎁 Airdropped %s to user %d %s",
		common.FormatTokens(result.Amount, f.symbol), userID, common.TxLink(result.TxRef)), nil
}

func (f *Feature) handleRacers(ctx context.Context) (string, error) {
	race, participants, err := f.races.ListOpenRace(ctx)
	if err != nil {
		return "", common.FromError(err, "failed to list racers")
	}
	if race == nil {
		return "❌ No active race found.", nil
	}
	if len(participants) == 0 {
		return fmt.Sprintf("📋 <b>Race %s</b>\n\nNo participants yet.", common.Escape(race.RaceID)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Race %s</b>: %d participant(s)\n\n", common.Escape(race.RaceID), len(participants))
	for i, p := range participants {
		name := p.Username
		if name == "" {
			name = strconv.FormatInt(p.UserID, 10)
		}
		fmt.Fprintf(&b, "%d. @%s: horse #%d %s\n", i+1, common.Escape(name), p.HorseID, common.Escape(p.HorseName))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (f *Feature) handleUsers(ctx context.Context) (string, error) {
	uow := f.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	total, recent, err := f.services.UserService(uow).Directory(ctx, recentUsersShown)
	if err != nil {
		return "", common.FromError(err, "failed to list users")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 <b>Users</b>\n\nTotal: %d", total)
	if len(recent) > 0 {
		fmt.Fprintf(&b, "\n\n<b>Most recent %d</b>\n", len(recent))
	}
	for i, user := range recent {
		wallet := "❌"
		if user.HasWallet() {
			wallet = "💎"
		}
		twitter := "❌"
		if user.TwitterHandle != nil {
			twitter = "🐦"
		}
		fmt.Fprintf(&b, "%d. %s (<code>%d</code>) %s %s\n", i+1, common.Escape(user.DisplayName()), user.TelegramID, wallet, twitter)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (f *Feature) handlePurge(ctx context.Context, cmd common.Command) (string, error) {
	userID, err := strconv.ParseInt(cmd.Arg(0), 10, 64)
	if err != nil {
		return "", common.NewUserError("Usage: /admin_purge &lt;telegramUserId&gt;", "invalid user id")
	}

	uow := f.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	user, err := f.services.UserService(uow).Purge(ctx, userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrUserNotFound) {
			return "", common.NewUserError(fmt.Sprintf("❌ User %d not found.", userID), "purge of unknown user")
		}
		return "", common.FromError(err, "admin purge failed")
	}

	if err := uow.Commit(); err != nil {
		return "", common.NewSystemError(err, "failed to commit transaction")
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"admin_id": cmd.UserID,
	}).Warn("User purged by admin")

	return fmt.Sprintf("🗑️ Removed %s (<code>%d</code>) with their picks and bets.", common.Escape(user.DisplayName()), userID), nil
}
