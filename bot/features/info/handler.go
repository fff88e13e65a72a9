package info

import (
	"context"
	"fmt"
	"strings"

	"pixelponies/bot/common"
	"pixelponies/domain/services"
	"pixelponies/domain/utils"

	log "github.com/sirupsen/logrus"
)

func (f *Feature) handleBalance(ctx context.Context, cmd common.Command) (string, error) {
	uow := f.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	if _, _, err := f.services.UserService(uow).Register(ctx, cmd.UserID, cmd.Username, cmd.FirstName); err != nil {
		return "", common.FromError(err, "failed to register user")
	}

	openRace, err := f.services.RaceService(uow).GetOpenRace(ctx)
	if err != nil {
		return "", common.FromError(err, "failed to get open race")
	}

	stats, err := f.services.UserService(uow).GetStats(ctx, cmd.UserID, openRace)
	if err != nil {
		return "", common.FromError(err, "failed to get user stats")
	}

	if err := uow.Commit(); err != nil {
		return "", common.NewSystemError(err, "failed to commit transaction")
	}

	user := stats.User
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>%s</b>\n\n", common.Escape(user.DisplayName()))
	fmt.Fprintf(&b, "🏆 Total won: <b>%s</b>\n", common.FormatTokens(user.TotalWon, f.symbol))
	fmt.Fprintf(&b, "🥇 Podium finishes: %d of %d races (%.1f%%)\n", user.RacesWon, user.RacesParticipated, stats.WinRate)
	fmt.Fprintf(&b, "🎁 Race rewards: %s\n", common.FormatTokens(user.RaceRewardsEarned, f.symbol))
	fmt.Fprintf(&b, "🤝 Referrals: %d (%s)\n", user.ReferralCount, common.FormatTokens(user.ReferralEarnings, f.symbol))

	switch {
	case stats.CurrentBet != nil:
		fmt.Fprintf(&b, "\n🐎 In the current race on #%d %s\n", stats.CurrentBet.HorseID, common.Escape(stats.CurrentBet.HorseName))
	case stats.ActiveSelection != nil:
		fmt.Fprintf(&b, "\n🐎 Picked #%d %s, confirm with /verify\n", stats.ActiveSelection.HorseID, common.Escape(stats.ActiveSelection.HorseName))
	}

	if !user.HasWallet() {
		b.WriteString("\n💳 No wallet yet. Use /register 0xYourAddress")
		return b.String(), nil
	}

	fmt.Fprintf(&b, "\n💳 Wallet: <code>%s</code>", common.ShortHash(*user.WalletAddress))
	if f.balanceReader != nil {
		if onChain, err := f.onChainBalance(ctx, *user.WalletAddress); err != nil {
			log.WithFields(log.Fields{
				"user_id": cmd.UserID,
				"error":   err,
			}).Warn("Failed to read on-chain balance")
		} else {
			fmt.Fprintf(&b, "\n💰 On-chain balance: <b>%s $%s</b>", onChain, f.symbol)
		}
	}

	return b.String(), nil
}

func (f *Feature) onChainBalance(ctx context.Context, address string) (string, error) {
	decimals, err := f.balanceReader.Decimals(ctx)
	if err != nil {
		return "", err
	}
	balance, err := f.balanceReader.BalanceOf(ctx, address)
	if err != nil {
		return "", err
	}
	return utils.FormatBaseUnits(balance, decimals), nil
}

func (f *Feature) handleReferral(ctx context.Context, cmd common.Command) (string, error) {
	uow := f.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	user, _, err := f.services.UserService(uow).Register(ctx, cmd.UserID, cmd.Username, cmd.FirstName)
	if err != nil {
		return "", common.FromError(err, "failed to register user")
	}

	if err := uow.Commit(); err != nil {
		return "", common.NewSystemError(err, "failed to commit transaction")
	}

	return fmt.Sprintf("🤝 <b>Invite friends and earn</b>\n\nYour link: %s\nYour code: <code>%s</code>\n\nReferrals so far: %d\nEarned: %s",
		services.ReferralLink(f.botUsername, user.ReferralCode),
		common.Escape(user.ReferralCode),
		user.ReferralCount,
		common.FormatTokens(user.ReferralEarnings, f.symbol)), nil
}

func (f *Feature) handleLeaderboard(ctx context.Context) (string, error) {
	uow := f.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	leaders, err := f.services.UserService(uow).Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return "", common.FromError(err, "failed to get leaderboard")
	}

	if len(leaders) == 0 {
		return "🏆 No winners yet. Be the first!", nil
	}

	var b strings.Builder
	b.WriteString("🏆 <b>Top winners</b>\n\n")
	for i, user := range leaders {
		fmt.Fprintf(&b, "%s %s: %s (%d wins)\n",
			common.MedalFor(i+1), common.Escape(user.DisplayName()), common.FormatTokens(user.TotalWon, f.symbol), user.RacesWon)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}
