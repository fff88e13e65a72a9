package cmd

import (
	"fmt"

	"pixelponies/application"
	"pixelponies/config"
	"pixelponies/domain/entities"
	"pixelponies/domain/interfaces"
	"pixelponies/domain/services"
	"pixelponies/infrastructure/token"
)

func newTokenClient(cfg *config.Config) (*token.ERC20Client, error) {
	client, err := token.NewERC20Client(token.Config{
		RPCURL:          cfg.BaseRPCURL,
		ChainID:         cfg.ChainID,
		PrivateKey:      cfg.BotPrivateKey,
		TokenAddress:    cfg.TokenAddress,
		TransferTimeout: cfg.TransferTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token client: %w", err)
	}
	return client, nil
}

func newServiceFactory(cfg *config.Config, tokenClient interfaces.TokenTransferClient, sizer interfaces.CommunitySizer) (*application.ServiceFactory, error) {
	prizePolicy, err := services.NewPrizePoolPolicy(services.PrizePolicyConfig{
		Name:       cfg.PrizePolicy,
		Base:       cfg.PrizePoolBase,
		PerMember:  cfg.PrizePoolPerMember,
		CohortSize: cfg.PrizeTierCohort,
		TierRates:  cfg.PrizeTierRates,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid prize policy: %w", err)
	}

	var split entities.PayoutSplit
	for i, bps := range cfg.PayoutSplit {
		split[i] = entities.BasisPoints(bps)
	}
	if err := split.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PAYOUT_SPLIT: %w", err)
	}

	raceConfig := services.RaceConfig{
		BettingWindow:   cfg.BettingWindow,
		StaleThreshold:  cfg.StaleRaceThreshold,
		PayoutSplit:     split,
		CarryOverUnpaid: cfg.CarryOverUnpaid,
	}
	rewardConfig := services.RewardConfig{
		SignupBonus:    cfg.SignupBonus,
		RaceReward:     cfg.RaceReward,
		ReferralReward: cfg.ReferralReward,
		ReferredBonus:  cfg.ReferredBonus,
	}

	return application.NewServiceFactory(tokenClient, prizePolicy, sizer, raceConfig, rewardConfig), nil
}
