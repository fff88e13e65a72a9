package race

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"pixelponies/bot/common"
	"pixelponies/domain/entities"
	"pixelponies/domain/services"
	"pixelponies/domain/utils"

	log "github.com/sirupsen/logrus"
)

func (f *Feature) openRace(ctx context.Context) (*entities.Race, error) {
	uow := f.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	race, err := f.services.RaceService(uow).GetOpenRace(ctx)
	if err != nil {
		return nil, common.FromError(err, "failed to get open race")
	}
	return race, nil
}

func (f *Feature) handleRace(ctx context.Context) (string, error) {
	race, err := f.openRace(ctx)
	if err != nil {
		return "", err
	}
	if race == nil {
		return "🏁 No race is open right now. The next one starts soon!", nil
	}

	return common.FormatRaceCard(race, f.now(), f.symbol), nil
}

func (f *Feature) handleRaceTime(ctx context.Context) (string, error) {
	race, err := f.openRace(ctx)
	if err != nil {
		return "", err
	}
	if race == nil {
		return "🏁 No race is open right now. The next one starts soon!", nil
	}
	if !race.IsBettingOpen() {
		return "🏇 The race is running! Results are coming up.", nil
	}

	return fmt.Sprintf("⏰ Betting on race %s closes in <b>%s</b>.",
		common.Escape(race.RaceID), utils.FormatCountdown(race.TimeUntilClose(f.now()))), nil
}

func (f *Feature) handleHorse(ctx context.Context, cmd common.Command) (string, error) {
	horseID, err := strconv.Atoi(cmd.Arg(0))
	if err != nil {
		return "", common.NewUserError("Usage: /horse &lt;number&gt;, e.g. /horse 7", "invalid horse argument")
	}

	if err := f.requireWallet(ctx, cmd); err != nil {
		return "", err
	}

	race, selection, err := f.bets.PlaceBet(ctx, cmd.UserID, horseID)
	if err != nil {
		return "", common.FromError(err, "failed to place bet")
	}

	log.WithFields(log.Fields{
		"user_id":  cmd.UserID,
		"race_id":  race.RaceID,
		"horse_id": selection.HorseID,
	}).Info("Horse selected")

	var b strings.Builder
	fmt.Fprintf(&b, "🐎 You picked <b>#%d %s</b> in race %s.\n\n",
		selection.HorseID, common.Escape(selection.HorseName), common.Escape(race.RaceID))
	b.WriteString("To lock it in, tweet this and send the link with /verify &lt;tweet link&gt;:\n\n")
	fmt.Fprintf(&b, "<code>%s</code>\n\n", common.Escape(common.RaceTweetTemplate(selection.HorseID)))
	fmt.Fprintf(&b, "⏰ Betting closes in %s.", utils.FormatCountdown(race.TimeUntilClose(f.now())))

	return b.String(), nil
}

func (f *Feature) requireWallet(ctx context.Context, cmd common.Command) error {
	uow := f.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	user, _, err := f.services.UserService(uow).Register(ctx, cmd.UserID, cmd.Username, cmd.FirstName)
	if err != nil {
		return common.FromError(err, "failed to register user")
	}
	if err := uow.Commit(); err != nil {
		return common.NewSystemError(err, "failed to commit transaction")
	}

	if !user.HasWallet() {
		return common.NewUserError("❌ Register your wallet first: /register 0xYourAddress", "bet without wallet")
	}
	return nil
}

func (f *Feature) handleVerify(ctx context.Context, cmd common.Command) (string, error) {
	proof := cmd.Arg(0)
	if _, err := services.ValidateTweetProof(proof); err != nil {
		return "", common.FromError(err, "invalid tweet proof")
	}

	confirmation, err := f.bets.ConfirmBet(ctx, cmd.UserID, cmd.Username, proof)
	if err != nil {
		return "", common.FromError(err, "failed to confirm bet")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ <b>You're in!</b> #%d %s is running in race %s.\n",
		confirmation.Participant.HorseID,
		common.Escape(confirmation.Participant.HorseName),
		common.Escape(confirmation.Race.RaceID))

	for _, reward := range confirmation.Rewards {
		switch {
		case reward.Success:
			fmt.Fprintf(&b, "\n🎁 %s: %s %s", rewardLabel(reward.Kind), common.FormatTokens(reward.Amount, f.symbol), common.TxLink(reward.TxRef))
		case !reward.Skipped:
			fmt.Fprintf(&b, "\n⚠️ %s could not be sent yet. An admin will follow up.", rewardLabel(reward.Kind))
		}
	}
	if confirmation.RewardError != nil {
		b.WriteString("\n⚠️ Rewards are delayed. Your bet still counts.")
	}

	return b.String(), nil
}

func rewardLabel(kind entities.RewardKind) string {
	switch kind {
	case entities.RewardKindSignupBonus:
		return "Signup bonus"
	case entities.RewardKindRace:
		return "Race reward"
	case entities.RewardKindReferral:
		return "Your referrer's reward"
	case entities.RewardKindReferred:
		return "Referred bonus"
	default:
		return string(kind)
	}
}
