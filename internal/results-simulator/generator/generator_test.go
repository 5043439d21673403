package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/sports-bet-settlement/pkg/deadheat"
)

func TestGenerator_BetIsPlaceable(t *testing.T) {
	g := New(42, 5)
	for i := 0; i < 500; i++ {
		b := g.Bet()
		assert.True(t, b.Stake.IsPositive())
		assert.GreaterOrEqual(t, b.Odds, 1.20)
		assert.LessOrEqual(t, b.Odds, 12.00)
		assert.Contains(t, sports, b.Sport)
		assert.Regexp(t, `^sim-user-00[1-5]$`, b.UserID)
	}
}

func TestGenerator_ResultsAreSettleable(t *testing.T) {
	g := New(7, 3)
	seen := map[string]int{}
	adjusted := 0

	for i := 0; i < 2000; i++ {
		b := g.Bet()
		b.ID = "bet"
		req := g.Result(b)
		seen[req.Result]++

		assert.Equal(t, "bet", req.BetID)
		assert.Equal(t, b.Sport, req.Sport)

		if req.Result != "won" {
			assert.Nil(t, req.Winnings)
			assert.Nil(t, req.DeadHeatPositions)
			assert.Nil(t, req.Rule4WithdrawnOdds)
			continue
		}
		require.NotNil(t, req.Winnings)
		assert.Greater(t, *req.Winnings, b.Stake.InexactFloat64())

		if req.DeadHeatPositions != nil || req.Rule4WithdrawnOdds != nil {
			adjusted++
			assert.True(t, deadheat.SupportsDeadHeat(b.Sport), b.Sport)
		}
		if req.DeadHeatPositions != nil {
			assert.GreaterOrEqual(t, *req.DeadHeatPositions, 2)
			assert.LessOrEqual(t, *req.DeadHeatPositions, 4)
		}
		if req.Rule4WithdrawnOdds != nil {
			assert.Greater(t, *req.Rule4WithdrawnOdds, 1.0)
		}
	}

	assert.Positive(t, seen["won"])
	assert.Positive(t, seen["lost"])
	assert.Positive(t, seen["void"])
	assert.Positive(t, adjusted)
}

func TestGenerator_Deterministic(t *testing.T) {
	a, b := New(1, 10), New(1, 10)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Bet(), b.Bet())
	}
}
