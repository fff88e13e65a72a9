package race

import (
	"context"
	"time"

	"pixelponies/application"
	"pixelponies/bot/common"
	"pixelponies/domain/entities"
)

// BetPlacer places and confirms bets on the open race
type BetPlacer interface {
	PlaceBet(ctx context.Context, userID int64, horseID int) (*entities.Race, *entities.TempSelection, error)
	ConfirmBet(ctx context.Context, userID int64, username, proofRef string) (*application.BetConfirmation, error)
}

// Feature handles the race commands: /race, /horse, /verify and /racetime
type Feature struct {
	uowFactory application.UnitOfWorkFactory
	services   application.ServiceProvider
	bets       BetPlacer
	symbol     string
	now        func() time.Time
}

// NewFeature creates a new race feature instance
func NewFeature(uowFactory application.UnitOfWorkFactory, services application.ServiceProvider, bets BetPlacer, symbol string) *Feature {
	return &Feature{
		uowFactory: uowFactory,
		services:   services,
		bets:       bets,
		symbol:     symbol,
		now:        time.Now,
	}
}

// Commands lists the commands this feature answers
func (f *Feature) Commands() []string {
	return []string{"race", "horse", "verify", "racetime"}
}

// HandleCommand handles race commands
func (f *Feature) HandleCommand(ctx context.Context, cmd common.Command) (string, error) {
	switch cmd.Name {
	case "race":
		return f.handleRace(ctx)
	case "horse":
		return f.handleHorse(ctx, cmd)
	case "verify":
		return f.handleVerify(ctx, cmd)
	case "racetime":
		return f.handleRaceTime(ctx)
	}
	return "", nil
}
