package events

// Mensagem consumida do tópico "settlement_requests" (job de liquidação).
// Mesmo formato do corpo do webhook POST /v1/settlements.
type SettlementRequested struct {
	BetID              string   `json:"bet_id"`
	Result             string   `json:"result"` // won | lost | void
	Winnings           *float64 `json:"winnings,omitempty"`
	DeadHeatPositions  *int     `json:"dead_heat_positions,omitempty"`
	Sport              string   `json:"sport,omitempty"`
	Rule4WithdrawnOdds *float64 `json:"rule4_withdrawn_odds,omitempty"`
}
