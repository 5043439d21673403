package deadheat

import "strings"

// ValidationError indica qual argumento do cálculo é inválido.
type ValidationError struct {
	Field   string // stake | odds | positions
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Result é o resultado de uma redução de dead-heat. Nunca é persistido.
type Result struct {
	OriginalStake   float64 `json:"original_stake"`
	OriginalOdds    float64 `json:"original_odds"`
	Winners         int     `json:"winners"`
	ReducedStake    float64 `json:"reduced_stake"`
	ReducedPayout   float64 `json:"reduced_payout"`
	ReductionFactor float64 `json:"reduction_factor"`
}

// MinAdjustedOdds é o piso das odds após a dedução Rule 4.
const MinAdjustedOdds = 1.01

// ApplyReduction liquida a aposta como se apenas stake/positions tivesse sido apostado, com odds cheias.
func ApplyReduction(stake, odds float64, positions int) (Result, error) {
	if stake <= 0 {
		return Result{}, &ValidationError{Field: "stake", Message: "Stake must be greater than 0"}
	}
	if odds <= 1.0 {
		return Result{}, &ValidationError{Field: "odds", Message: "Odds must be greater than 1.0"}
	}
	if positions <= 0 {
		return Result{}, &ValidationError{Field: "positions", Message: "Number of positions must be greater than 0"}
	}

	if positions == 1 {
		return Result{
			OriginalStake:   stake,
			OriginalOdds:    odds,
			Winners:         1,
			ReducedStake:    stake,
			ReducedPayout:   stake * odds,
			ReductionFactor: 1.0,
		}, nil
	}

	factor := 1.0 / float64(positions)
	reduced := stake / float64(positions)
	return Result{
		OriginalStake:   stake,
		OriginalOdds:    odds,
		Winners:         positions,
		ReducedStake:    reduced,
		ReducedPayout:   reduced * odds,
		ReductionFactor: factor,
	}, nil
}

// rule4Step é um degrau da tabela Tattersalls: odds do retirado até MaxOdds => Deduction.
type rule4Step struct {
	MaxOdds   float64
	Deduction float64
}

// Tabela oficial Rule 4 (odds decimais do cavalo retirado).
var rule4Table = []rule4Step{
	{1.11, 0.90},
	{1.14, 0.85},
	{1.20, 0.80},
	{1.25, 0.75},
	{1.33, 0.70},
	{1.40, 0.65},
	{1.50, 0.60},
	{1.67, 0.55},
	{2.00, 0.50},
	{2.20, 0.45},
	{2.50, 0.40},
	{2.75, 0.35},
	{3.00, 0.30},
	{3.50, 0.25},
	{4.00, 0.20},
	{4.50, 0.15},
	{6.00, 0.10},
	{9.00, 0.05},
}

// CalculateRule4Deduction retorna a dedução para as odds do participante retirado.
// odds não participa da busca na tabela.
func CalculateRule4Deduction(odds, withdrawnOdds float64) float64 {
	_ = odds
	for _, s := range rule4Table {
		if withdrawnOdds <= s.MaxOdds {
			return s.Deduction
		}
	}
	return 0
}

// ApplyRule4 retorna o pagamento com as odds deduzidas, nunca abaixo de MinAdjustedOdds.
func ApplyRule4(stake, odds, withdrawnOdds float64) float64 {
	adjusted := odds - CalculateRule4Deduction(odds, withdrawnOdds)
	if adjusted < MinAdjustedOdds {
		adjusted = MinAdjustedOdds
	}
	return stake * adjusted
}

// esportes onde dead-heat e Rule 4 se aplicam
var deadHeatSports = map[string]struct{}{
	"horse_racing":         {},
	"greyhound_racing":     {},
	"golf":                 {},
	"virtual_horse_racing": {},
	"virtual_greyhounds":   {},
	"virtual_speedway":     {},
}

// SupportsDeadHeat informa se o esporte aceita regras de dead-heat/Rule 4 (case-insensitive).
func SupportsDeadHeat(sport string) bool {
	_, ok := deadHeatSports[strings.ToLower(strings.TrimSpace(sport))]
	return ok
}
