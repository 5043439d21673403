package dto

import (
	"time"

	"github.com/radieske/sports-bet-settlement/internal/settlement-service/repo"
)

type SettleResponse struct {
	Success           bool      `json:"success"`
	BetID             string    `json:"bet_id"`
	Result            string    `json:"result"`
	Winnings          float64   `json:"winnings"`
	OriginalWinnings  float64   `json:"original_winnings"`
	DeadHeatApplied   bool      `json:"dead_heat_applied"`
	DeadHeatPositions *int      `json:"dead_heat_positions"`
	Rule4Applied      bool      `json:"rule4_applied"`
	SettledAt         time.Time `json:"settled_at"`
}

type LedgerResponse struct {
	UserID  string             `json:"user_id"`
	Entries []repo.LedgerEntry `json:"entries"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// TokenResponse carrega o token de acesso ao WebSocket de saldo
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
