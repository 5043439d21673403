package generator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bet-settlement/internal/settlement-service/repo"
	"github.com/radieske/sports-bet-settlement/pkg/contracts/events"
	"github.com/radieske/sports-bet-settlement/pkg/deadheat"
)

// Catálogo de esportes simulados; os de corrida/golfe exercitam dead-heat e Rule 4
var sports = []string{"horse_racing", "greyhound_racing", "golf", "football", "tennis", "basketball"}

// odds típicas de um participante retirado (Rule 4)
var withdrawnOdds = []float64{1.10, 1.50, 2.00, 3.00, 5.00, 8.00, 12.00}

// Generator cria apostas pending e os resultados correspondentes, como um fornecedor de resultados faria
type Generator struct {
	rnd   *rand.Rand
	users int
}

func New(seed int64, users int) *Generator {
	if users <= 0 {
		users = 1
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed)), users: users}
}

// Bet gera uma aposta pending aleatória (stake 1..100, odds 1.20..12.00)
func (g *Generator) Bet() repo.Bet {
	return repo.Bet{
		UserID: fmt.Sprintf("sim-user-%03d", g.rnd.Intn(g.users)+1),
		Stake:  decimal.NewFromInt(int64(g.rnd.Intn(100) + 1)),
		Odds:   round2(g.between(1.20, 12.00)),
		Sport:  sports[g.rnd.Intn(len(sports))],
	}
}

// Result gera o pedido de liquidação: 40% won, 55% lost, 5% void.
// Em esportes com dead-heat, 20% dos won empatam (2..4 posições) e 10% sofrem Rule 4.
func (g *Generator) Result(b repo.Bet) events.SettlementRequested {
	req := events.SettlementRequested{BetID: b.ID, Sport: b.Sport}

	switch n := g.rnd.Intn(100); {
	case n < 40:
		req.Result = repo.StatusWon
	case n < 95:
		req.Result = repo.StatusLost
		return req
	default:
		req.Result = repo.StatusVoid
		return req
	}

	winnings := round2(b.Stake.InexactFloat64() * b.Odds)
	req.Winnings = &winnings

	if !deadheat.SupportsDeadHeat(b.Sport) {
		return req
	}
	if g.rnd.Intn(100) < 20 {
		positions := g.rnd.Intn(3) + 2
		req.DeadHeatPositions = &positions
	}
	if g.rnd.Intn(100) < 10 {
		w := withdrawnOdds[g.rnd.Intn(len(withdrawnOdds))]
		req.Rule4WithdrawnOdds = &w
	}
	return req
}

func (g *Generator) between(lo, hi float64) float64 {
	return g.rnd.Float64()*(hi-lo) + lo
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
