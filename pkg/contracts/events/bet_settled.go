package events

import "time"

// Evento emitido após o commit de uma liquidação.
type BetSettled struct {
	BetID             string    `json:"bet_id"`
	UserID            string    `json:"user_id"`
	Result            string    `json:"result"`
	Stake             string    `json:"stake"`
	Winnings          string    `json:"winnings"`
	OriginalWinnings  string    `json:"original_winnings"`
	DeadHeatApplied   bool      `json:"dead_heat_applied"`
	DeadHeatPositions int       `json:"dead_heat_positions,omitempty"`
	Rule4Applied      bool      `json:"rule4_applied"`
	SettledAt         time.Time `json:"settled_at"`
}
