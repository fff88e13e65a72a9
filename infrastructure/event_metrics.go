package infrastructure

import (
	"context"

	"pixelponies/domain/events"
	"pixelponies/infrastructure/observability"
)

// RegisterEventMetrics counts domain events as they are published
func RegisterEventMetrics(publisher *NATSEventPublisher, metrics *observability.MetricsProvider) {
	publisher.RegisterLocalHandler(events.EventTypeRaceOpened, func(context.Context, events.Event) error {
		metrics.RecordRaceCreated()
		return nil
	})

	publisher.RegisterLocalHandler(events.EventTypeBetConfirmed, func(context.Context, events.Event) error {
		metrics.RecordBetConfirmed()
		return nil
	})

	publisher.RegisterLocalHandler(events.EventTypePayoutsSettled, func(_ context.Context, event events.Event) error {
		settled, ok := event.(events.PayoutsSettledEvent)
		if !ok {
			return nil
		}
		for _, payout := range settled.Report.Payouts {
			switch {
			case payout.Skipped:
				metrics.RecordPayout(observability.OutcomeSkipped, 0)
			case payout.Success:
				metrics.RecordPayout(observability.OutcomeSuccess, payout.Amount)
			default:
				metrics.RecordPayout(observability.OutcomeFailure, 0)
			}
		}
		return nil
	})

	publisher.RegisterLocalHandler(events.EventTypeRewardIssued, func(_ context.Context, event events.Event) error {
		if issued, ok := event.(events.RewardIssuedEvent); ok {
			metrics.RecordReward(string(issued.Kind))
		}
		return nil
	})
}
