package settler

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bet-settlement/internal/settlement-service/repo"
	"github.com/radieske/sports-bet-settlement/pkg/deadheat"
)

// outcome é o que a transação precisa gravar para um resultado
type outcome struct {
	credit         decimal.Decimal // variação de saldo
	payout         decimal.Decimal // valor reportado como winnings
	original       decimal.Decimal // winnings antes de dead-heat/Rule 4
	ledgerType     string
	description    string
	metadata       json.RawMessage
	deadHeat       bool
	rule4          bool
	rule4Deduction float64
}

// winMetadata vai no ledger para disputa/auditoria; parâmetros não usados ficam null
type winMetadata struct {
	Stake                   string   `json:"stake"`
	Odds                    float64  `json:"odds"`
	Sport                   string   `json:"sport"`
	Winnings                string   `json:"winnings"`
	OriginalWinnings        string   `json:"original_winnings"`
	Profit                  string   `json:"profit"`
	DeadHeatPositions       *int     `json:"dead_heat_positions"`
	DeadHeatReductionFactor *float64 `json:"dead_heat_reduction_factor"`
	Rule4WithdrawnOdds      *float64 `json:"rule4_withdrawn_odds"`
	Rule4Deduction          *float64 `json:"rule4_deduction"`
}

func computeOutcome(bet repo.Bet, req Request) (outcome, error) {
	switch req.Result {
	case repo.StatusWon:
		return wonOutcome(bet, req)

	case repo.StatusLost:
		meta, _ := json.Marshal(map[string]any{
			"stake":  bet.Stake.StringFixed(2),
			"odds":   bet.Odds,
			"sport":  sportOf(bet, req),
			"result": repo.StatusLost,
		})
		return outcome{
			credit:      decimal.Zero,
			payout:      decimal.Zero,
			original:    decimal.Zero,
			ledgerType:  repo.LedgerBetLoss,
			description: fmt.Sprintf("Bet lost: %s", bet.ID),
			metadata:    meta,
		}, nil

	case repo.StatusVoid:
		meta, _ := json.Marshal(map[string]any{
			"stake":  bet.Stake.StringFixed(2),
			"sport":  sportOf(bet, req),
			"result": repo.StatusVoid,
		})
		return outcome{
			credit:      bet.Stake,
			payout:      bet.Stake,
			original:    bet.Stake,
			ledgerType:  repo.LedgerBetRefund,
			description: fmt.Sprintf("Bet void, stake refunded: %s", bet.ID),
			metadata:    meta,
		}, nil
	}
	return outcome{}, fmt.Errorf("%w: unsupported result %q", ErrInvalidRequest, req.Result)
}

// wonOutcome aplica dead-heat e depois Rule 4, sobre as odds efetivas winnings/stake
func wonOutcome(bet repo.Bet, req Request) (outcome, error) {
	stake := bet.Stake.InexactFloat64()
	if stake <= 0 {
		return outcome{}, &deadheat.ValidationError{Field: "stake", Message: "Stake must be greater than 0"}
	}

	gross := stake * bet.Odds
	if req.Winnings != nil {
		gross = *req.Winnings
	}

	sport := sportOf(bet, req)
	eligible := deadheat.SupportsDeadHeat(sport)
	meta := winMetadata{
		Stake: bet.Stake.StringFixed(2),
		Odds:  bet.Odds,
		Sport: sport,
	}
	out := outcome{ledgerType: repo.LedgerBetWin}

	final := gross
	if req.DeadHeatPositions != nil && *req.DeadHeatPositions > 1 && eligible {
		dh, err := deadheat.ApplyReduction(stake, final/stake, *req.DeadHeatPositions)
		if err != nil {
			return outcome{}, err
		}
		final = dh.ReducedPayout
		out.deadHeat = true
		positions, factor := dh.Winners, dh.ReductionFactor
		meta.DeadHeatPositions = &positions
		meta.DeadHeatReductionFactor = &factor
	}

	if req.Rule4WithdrawnOdds != nil && eligible {
		withdrawn := *req.Rule4WithdrawnOdds
		effective := final / stake
		deduction := deadheat.CalculateRule4Deduction(effective, withdrawn)
		final = deadheat.ApplyRule4(stake, effective, withdrawn)
		out.rule4 = true
		out.rule4Deduction = deduction
		meta.Rule4WithdrawnOdds = &withdrawn
		meta.Rule4Deduction = &deduction
	}

	out.original = decimal.NewFromFloat(gross).Round(2)
	out.payout = decimal.NewFromFloat(final).Round(2)
	out.credit = out.payout

	meta.Winnings = out.payout.StringFixed(2)
	meta.OriginalWinnings = out.original.StringFixed(2)
	meta.Profit = out.payout.Sub(bet.Stake).StringFixed(2)

	raw, err := json.Marshal(meta)
	if err != nil {
		return outcome{}, fmt.Errorf("encode ledger metadata: %w", err)
	}
	out.metadata = raw
	out.description = fmt.Sprintf("Bet won: %s", bet.ID)
	return out, nil
}

// o esporte informado no pedido prevalece sobre o gravado na aposta
func sportOf(bet repo.Bet, req Request) string {
	if req.Sport != "" {
		return req.Sport
	}
	return bet.Sport
}
