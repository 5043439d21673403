package stats

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// decrementa pending sem deixar negativo (apostas colocadas antes do contador existir)
const decrPendingLua = `
local v = tonumber(redis.call('HGET', KEYS[1], 'pending') or '0')
if v > 0 then
	return redis.call('HINCRBY', KEYS[1], 'pending', -1)
end
return 0`

// RedisStats mantém contadores agregados por usuário num hash Redis.
// Não participa da transação de saldo: o ledger continua sendo a fonte da verdade.
type RedisStats struct {
	Client *redis.Client
}

func NewRedisStats(c *redis.Client) *RedisStats {
	return &RedisStats{Client: c}
}

// key gera a chave do hash de estatísticas do usuário
func key(userID string) string { return "user:stats:" + userID }

// RecordPlaced conta uma aposta nova como pending
func (s *RedisStats) RecordPlaced(ctx context.Context, userID string) error {
	if err := s.Client.HIncrBy(ctx, key(userID), "pending", 1).Err(); err != nil {
		return fmt.Errorf("record placed for %s: %w", userID, err)
	}
	return nil
}

// RecordSettlement move uma aposta de pending para o contador do resultado
func (s *RedisStats) RecordSettlement(ctx context.Context, userID, result string, amount decimal.Decimal) error {
	k := key(userID)
	_, err := s.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Eval(ctx, decrPendingLua, []string{k})
		p.HIncrBy(ctx, k, "settled", 1)
		p.HIncrBy(ctx, k, result, 1)
		if result == "won" {
			p.HIncrByFloat(ctx, k, "total_winnings", amount.InexactFloat64())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record stats for %s: %w", userID, err)
	}
	return nil
}

// Get retorna o hash bruto de contadores (vazio se o usuário não tem histórico)
func (s *RedisStats) Get(ctx context.Context, userID string) (map[string]string, error) {
	return s.Client.HGetAll(ctx, key(userID)).Result()
}
