package events

import "time"

// Mensagem publicada em "settlement_requests_dlq" quando um pedido não pode ser liquidado.
// Payload é a mensagem original como recebida (pode não ser JSON válido).
type SettlementDeadLetter struct {
	Reason    string    `json:"reason"` // decode | invalid | not_found | exhausted
	Error     string    `json:"error"`
	Payload   string    `json:"payload"`
	Topic     string    `json:"topic"`
	Partition int       `json:"partition"`
	Offset    int64     `json:"offset"`
	Attempts  int       `json:"attempts"`
	FailedAt  time.Time `json:"failed_at"`
}
