package admin

import (
	"context"

	"pixelponies/application"
	"pixelponies/bot/common"
	"pixelponies/domain/entities"
	"pixelponies/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RaceOperator runs race lifecycle operations on demand
type RaceOperator interface {
	RunTick(ctx context.Context) (*application.TickResult, error)
	FinishRace(ctx context.Context, raceID string) (*entities.SettlementReport, error)
	RetryFailedPayouts(ctx context.Context, raceID string) (*entities.SettlementReport, error)
	ListOpenRace(ctx context.Context) (*entities.Race, []*entities.Participant, error)
}

// BonusResender re-sends an unpaid signup bonus
type BonusResender interface {
	ResendSignupBonus(ctx context.Context, userID int64) (*entities.RewardResult, error)
}

// Feature handles operator commands, restricted to configured admins
type Feature struct {
	uowFactory    application.UnitOfWorkFactory
	services      application.ServiceProvider
	races         RaceOperator
	bonuses       BonusResender
	balanceReader interfaces.TokenBalanceReader
	botAddress    string
	symbol        string
	isAdmin       func(telegramID int64) bool
}

// NewFeature creates a new admin feature instance. balanceReader may be nil.
func NewFeature(
	uowFactory application.UnitOfWorkFactory,
	services application.ServiceProvider,
	races RaceOperator,
	bonuses BonusResender,
	balanceReader interfaces.TokenBalanceReader,
	botAddress, symbol string,
	isAdmin func(telegramID int64) bool,
) *Feature {
	return &Feature{
		uowFactory:    uowFactory,
		services:      services,
		races:         races,
		bonuses:       bonuses,
		balanceReader: balanceReader,
		botAddress:    botAddress,
		symbol:        symbol,
		isAdmin:       isAdmin,
	}
}

// Commands lists the commands this feature answers
func (f *Feature) Commands() []string {
	return []string{
		"admin_race", "admin_finish", "admin_retry", "admin_balance", "admin_airdrop",
		"admin_airdrop_user", "admin_racers", "admin_users", "admin_purge",
	}
}

// HandleCommand handles admin commands after checking the caller
func (f *Feature) HandleCommand(ctx context.Context, cmd common.Command) (string, error) {
	if !f.isAdmin(cmd.UserID) {
		log.WithFields(log.Fields{
			"user_id": cmd.UserID,
			"command": cmd.Name,
		}).Warn("Rejected admin command from non-admin")
		return "", common.NewUserError("⛔ This command is for admins only.", "non-admin used admin command")
	}

	switch cmd.Name {
	case "admin_race":
		return f.handleRunRace(ctx)
	case "admin_finish":
		return f.handleFinish(ctx, cmd)
	case "admin_retry":
		return f.handleRetry(ctx, cmd)
	case "admin_balance":
		return f.handleBalance(ctx)
	case "admin_airdrop":
		return f.handleAirdrop(ctx, cmd)
	case "admin_airdrop_user":
		return f.handleAirdropUser(ctx, cmd)
	case "admin_racers":
		return f.handleRacers(ctx)
	case "admin_users":
		return f.handleUsers(ctx)
	case "admin_purge":
		return f.handlePurge(ctx, cmd)
	}
	return "", nil
}
