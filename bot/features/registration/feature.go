package registration

import (
	"context"

	"pixelponies/application"
	"pixelponies/bot/common"
)

// Feature handles onboarding: /start, wallet registration and the Twitter handle
type Feature struct {
	uowFactory  application.UnitOfWorkFactory
	services    application.ServiceProvider
	botUsername string
	symbol      string
}

// NewFeature creates a new registration feature instance
func NewFeature(uowFactory application.UnitOfWorkFactory, services application.ServiceProvider, botUsername, symbol string) *Feature {
	return &Feature{
		uowFactory:  uowFactory,
		services:    services,
		botUsername: botUsername,
		symbol:      symbol,
	}
}

// Commands lists the commands this feature answers
func (f *Feature) Commands() []string {
	return []string{"start", "register", "wallet", "twitter"}
}

// HandleCommand handles registration commands
func (f *Feature) HandleCommand(ctx context.Context, cmd common.Command) (string, error) {
	switch cmd.Name {
	case "start":
		return f.handleStart(ctx, cmd)
	case "register", "wallet":
		return f.handleWallet(ctx, cmd)
	case "twitter":
		return f.handleTwitter(ctx, cmd)
	}
	return "", nil
}
