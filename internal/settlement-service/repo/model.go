package repo

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Status da aposta; todos exceto pending são terminais.
const (
	StatusPending   = "pending"
	StatusWon       = "won"
	StatusLost      = "lost"
	StatusVoid      = "void"
	StatusCashedOut = "cashed_out"
)

// Tipos de lançamento no ledger
const (
	LedgerBetWin    = "bet_win"
	LedgerBetLoss   = "bet_loss"
	LedgerBetRefund = "bet_refund"
)

// Bet é o modelo persistido. Imutável após liquidada, exceto status/settled_at.
type Bet struct {
	ID        string
	UserID    string
	Stake     decimal.Decimal
	Currency  string
	Odds      float64 // odds decimais no momento da aposta
	Sport     string
	Status    string
	Payout    decimal.NullDecimal
	SettledAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerEntry é um lançamento append-only; BalanceAfter - BalanceBefore == Amount.
type LedgerEntry struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ReferenceID   string          `json:"reference_id"`
	Description   string          `json:"description"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AuditEntry é uma linha do audit log (actor, action, resource, status, payload)
type AuditEntry struct {
	ID           string
	Actor        string
	Action       string
	ResourceType string
	ResourceID   string
	Status       string
	Payload      json.RawMessage
	CreatedAt    time.Time
}
