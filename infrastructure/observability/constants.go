package observability

// Metric name prefixes
const (
	MetricPrefix = "pixelponies"
)

// Metric names
const (
	// Race metrics
	RacesCreatedTotal   = MetricPrefix + ".races.created_total"
	BetsConfirmedTotal  = MetricPrefix + ".bets.confirmed_total"
	SchedulerTickLength = MetricPrefix + ".scheduler.tick_duration"

	// Token transfer metrics
	PayoutTransfersTotal = MetricPrefix + ".payouts.transfers_total"
	PayoutAmountTotal    = MetricPrefix + ".payouts.amount_total"
	RewardTransfersTotal = MetricPrefix + ".rewards.transfers_total"

	// Telegram metrics
	CommandsHandledTotal = MetricPrefix + ".telegram.commands_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelOutcome   = "outcome"
	LabelCommand   = "command"
	LabelJob       = "job"
)

// Transfer outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)
