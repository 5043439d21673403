package topics

const (
	// Settlement
	SettlementRequests = "settlement_requests"
	BetSettled         = "bet_settled"

	// DLQs
	SettlementRequestsDLQ = "settlement_requests_dlq"

	// Redis Pub/Sub
	BalanceUpdates = "balance_updates"
)
