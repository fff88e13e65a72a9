package info

import (
	"context"

	"pixelponies/application"
	"pixelponies/bot/common"
	"pixelponies/domain/interfaces"
)

const leaderboardSize = 10

// Feature handles read-only commands: /balance, /referral, /leaderboard and /help
type Feature struct {
	uowFactory    application.UnitOfWorkFactory
	services      application.ServiceProvider
	balanceReader interfaces.TokenBalanceReader
	botUsername   string
	symbol        string
}

// NewFeature creates a new info feature instance. balanceReader may be nil.
func NewFeature(
	uowFactory application.UnitOfWorkFactory,
	services application.ServiceProvider,
	balanceReader interfaces.TokenBalanceReader,
	botUsername, symbol string,
) *Feature {
	return &Feature{
		uowFactory:    uowFactory,
		services:      services,
		balanceReader: balanceReader,
		botUsername:   botUsername,
		symbol:        symbol,
	}
}

// Commands lists the commands this feature answers
func (f *Feature) Commands() []string {
	return []string{"balance", "stats", "referral", "invite", "leaderboard", "help"}
}

// HandleCommand handles info commands
func (f *Feature) HandleCommand(ctx context.Context, cmd common.Command) (string, error) {
	switch cmd.Name {
	case "balance", "stats":
		return f.handleBalance(ctx, cmd)
	case "referral", "invite":
		return f.handleReferral(ctx, cmd)
	case "leaderboard":
		return f.handleLeaderboard(ctx)
	case "help":
		return helpText, nil
	}
	return "", nil
}

const helpText = `🐴 <b>Pixel Ponies commands</b>

/start - get started
/register &lt;wallet&gt; - register your Base wallet
/twitter &lt;handle&gt; - save your X handle
/race - see the open race
/horse &lt;number&gt; - pick a horse
/verify &lt;tweet link&gt; - confirm your pick
/racetime - time left to bet
/balance - your stats and token balance
/referral - your invite link
/leaderboard - top winners`
