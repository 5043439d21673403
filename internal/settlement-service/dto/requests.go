package dto

import "github.com/radieske/sports-bet-settlement/pkg/contracts/events"

// SettleRequest é o corpo do webhook POST /v1/settlements.
// Mesmo formato da mensagem do tópico settlement_requests.
type SettleRequest = events.SettlementRequested
