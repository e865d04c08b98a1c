package observability

// Metric name prefixes
const (
	MetricPrefix = "raffler"
)

// Metric names
const (
	// Raffle lifecycle metrics
	RafflesCreatedTotal = MetricPrefix + ".raffles.created_total"
	TicketsSoldTotal    = MetricPrefix + ".tickets.sold_total"
	SettlementsTotal    = MetricPrefix + ".settlements.total"
	ProceedsSettled     = MetricPrefix + ".settlements.proceeds"

	// Oracle metrics
	RandomnessRequestsTotal    = MetricPrefix + ".randomness.requests_total"
	RandomnessFulfilmentsTotal = MetricPrefix + ".randomness.fulfilments_total"

	// NATS metrics
	NATSMessagesReceivedTotal  = MetricPrefix + ".nats.messages_received_total"
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelPayment = "payment"
	LabelEntry   = "entry"
	LabelPath    = "path"
	LabelShare   = "share"
	LabelRetry   = "retry"
	LabelOutcome = "outcome"
	LabelSubject = "subject"
)

// Settlement paths
const (
	PathClaim   = "claim"
	PathCollect = "collect"
)

// Proceeds shares
const (
	ShareFee      = "fee"
	ShareTreasury = "treasury"
)

// Randomness fulfilment outcomes
const (
	OutcomeConsumed  = "consumed"
	OutcomeRejected  = "rejected"
	OutcomeFatal     = "fatal"
	OutcomeRetried   = "retried"
	OutcomeDiscarded = "discarded"
)
