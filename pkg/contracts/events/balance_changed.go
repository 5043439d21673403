package events

import "time"

// Evento publicado no canal Redis "balance_updates" e repassado aos clientes WebSocket.
type BalanceChanged struct {
	UserID        string    `json:"user_id"`
	BalanceBefore string    `json:"balance_before"`
	BalanceAfter  string    `json:"balance_after"`
	Amount        string    `json:"amount"`
	Reason        string    `json:"reason"` // bet_win | bet_loss | bet_refund
	BetID         string    `json:"bet_id"`
	Ts            time.Time `json:"ts"`
}
