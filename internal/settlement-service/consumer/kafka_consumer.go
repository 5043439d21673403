package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/settlement-service/settler"
	"github.com/radieske/sports-bet-settlement/pkg/contracts/events"
	"github.com/radieske/sports-bet-settlement/pkg/deadheat"
)

// MessageReader é o subconjunto de *kafka.Reader usado pelo worker (commit manual)
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageWriter é o subconjunto de *kafka.Writer usado para a DLQ
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Settler interface {
	Settle(ctx context.Context, req settler.Request) (settler.Result, error)
}

// Processor consome pedidos de liquidação do Kafka e aplica via Settler.
// Pedidos inválidos ou de apostas inexistentes vão para a DLQ; falhas transitórias são
// retentadas com backoff e, esgotadas as tentativas, também vão para a DLQ.
type Processor struct {
	Log         *zap.Logger
	Reader      MessageReader
	DLQ         MessageWriter
	Settler     Settler
	MaxAttempts int           // default 3
	Backoff     time.Duration // default 200ms, dobra a cada tentativa

	OnConsumed func()              // métricas (counter++)
	OnDLQ      func(reason string) // métricas
	OnError    func(string)        // métricas por fase
}

// Run inicia o loop de consumo. Só retorna com ctx cancelado ou se a DLQ/commit falhar,
// para que o offset não avance sobre uma mensagem não tratada.
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.fail("read")
			if !sleep(ctx, 500*time.Millisecond) {
				return ctx.Err()
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if err := p.handle(ctx, m); err != nil {
			return err
		}

		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.fail("commit")
			return fmt.Errorf("commit offset %d: %w", m.Offset, err)
		}
	}
}

// handle retorna erro apenas quando a mensagem não pôde ser tratada nem enviada à DLQ
func (p *Processor) handle(ctx context.Context, m kafka.Message) error {
	log := p.Log.With(zap.Int64("offset", m.Offset), zap.Int("partition", m.Partition))

	var ev events.SettlementRequested
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		return p.deadLetter(ctx, m, "decode", err, 0)
	}
	log = log.With(zap.String("bet_id", ev.BetID), zap.String("result", ev.Result))

	req := settler.Request{
		BetID:              ev.BetID,
		Result:             ev.Result,
		Winnings:           ev.Winnings,
		DeadHeatPositions:  ev.DeadHeatPositions,
		Sport:              ev.Sport,
		Rule4WithdrawnOdds: ev.Rule4WithdrawnOdds,
	}

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		_, err := p.Settler.Settle(ctx, req)
		if err == nil {
			return nil
		}

		var verr *deadheat.ValidationError
		switch {
		case errors.Is(err, settler.ErrAlreadySettled):
			// reentrega de um pedido já aplicado
			log.Info("bet already settled, skipping")
			return nil
		case errors.Is(err, settler.ErrInvalidRequest), errors.As(err, &verr):
			return p.deadLetter(ctx, m, "invalid", err, attempt)
		case errors.Is(err, settler.ErrBetNotFound):
			return p.deadLetter(ctx, m, "not_found", err, attempt)
		}

		lastErr = err
		log.Warn("settlement attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		p.fail("settle")
		if attempt < attempts && !sleep(ctx, backoff<<(attempt-1)) {
			return ctx.Err()
		}
	}

	log.Error("settlement retries exhausted", zap.Int("attempts", attempts), zap.Error(lastErr))
	return p.deadLetter(ctx, m, "exhausted", lastErr, attempts)
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, reason string, cause error, attempts int) error {
	dl := events.SettlementDeadLetter{
		Reason:    reason,
		Error:     cause.Error(),
		Payload:   string(m.Value),
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Attempts:  attempts,
		FailedAt:  time.Now().UTC(),
	}
	b, err := json.Marshal(dl)
	if err != nil {
		return err
	}
	if err := p.DLQ.WriteMessages(ctx, kafka.Message{Key: m.Key, Value: b, Time: dl.FailedAt}); err != nil {
		p.fail("dlq")
		return fmt.Errorf("write dlq (offset %d): %w", m.Offset, err)
	}

	p.Log.Warn("settlement request sent to dlq",
		zap.String("reason", reason), zap.Int64("offset", m.Offset), zap.Error(cause))
	if p.OnDLQ != nil {
		p.OnDLQ(reason)
	}
	return nil
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

// sleep respeita o cancelamento; false se ctx terminou antes
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
