package consumer_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/settlement-service/consumer"
	"github.com/radieske/sports-bet-settlement/internal/settlement-service/settler"
	"github.com/radieske/sports-bet-settlement/pkg/contracts/events"
	"github.com/radieske/sports-bet-settlement/pkg/deadheat"
)

// fakeReader entrega as mensagens em ordem e bloqueia até ctx terminar quando esgota
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	commitErr error
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitErr != nil {
		return r.commitErr
	}
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type fakeDLQ struct {
	mu   sync.Mutex
	msgs []events.SettlementDeadLetter
	err  error
}

func (w *fakeDLQ) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	for _, m := range msgs {
		var dl events.SettlementDeadLetter
		if err := json.Unmarshal(m.Value, &dl); err != nil {
			return err
		}
		w.msgs = append(w.msgs, dl)
	}
	return nil
}

func (w *fakeDLQ) letters() []events.SettlementDeadLetter {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]events.SettlementDeadLetter(nil), w.msgs...)
}

// scriptedSettler devolve os erros na ordem, um por chamada, por betId
type scriptedSettler struct {
	mu     sync.Mutex
	errs   map[string][]error
	calls  map[string]int
	gotReq []settler.Request
}

func (s *scriptedSettler) Settle(_ context.Context, req settler.Request) (settler.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[req.BetID]++
	s.gotReq = append(s.gotReq, req)
	if q := s.errs[req.BetID]; len(q) > 0 {
		s.errs[req.BetID] = q[1:]
		if q[0] != nil {
			return settler.Result{}, q[0]
		}
	}
	return settler.Result{BetID: req.BetID, Result: req.Result}, nil
}

func msg(offset int64, v any) kafka.Message {
	var b []byte
	switch x := v.(type) {
	case string:
		b = []byte(x)
	default:
		b, _ = json.Marshal(x)
	}
	return kafka.Message{Topic: "settlement_requests", Offset: offset, Value: b}
}

func run(t *testing.T, p *consumer.Processor, r *fakeReader, wantCommits int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(r.commits()) == wantCommits }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestProcessor_RoutesOutcomes(t *testing.T) {
	winnings := 50.0
	positions := 2
	reader := &fakeReader{msgs: []kafka.Message{
		msg(1, events.SettlementRequested{BetID: "ok", Result: "won", Winnings: &winnings, DeadHeatPositions: &positions, Sport: "golf"}),
		msg(2, "{not json"),
		msg(3, events.SettlementRequested{BetID: "dup", Result: "lost"}),
		msg(4, events.SettlementRequested{BetID: "missing", Result: "won"}),
		msg(5, events.SettlementRequested{BetID: "bad", Result: "won"}),
		msg(6, events.SettlementRequested{BetID: "calc", Result: "won"}),
	}}
	dlq := &fakeDLQ{}
	st := &scriptedSettler{errs: map[string][]error{
		"dup":     {settler.ErrAlreadySettled},
		"missing": {settler.ErrBetNotFound},
		"bad":     {settler.ErrInvalidRequest},
		"calc":    {&deadheat.ValidationError{Field: "odds", Message: "Odds must be greater than 1.0"}},
	}}

	var (
		mu       sync.Mutex
		consumed int
		reasons  []string
	)
	p := &consumer.Processor{
		Log: zap.NewNop(), Reader: reader, DLQ: dlq, Settler: st,
		OnConsumed: func() { mu.Lock(); consumed++; mu.Unlock() },
		OnDLQ:      func(r string) { mu.Lock(); reasons = append(reasons, r); mu.Unlock() },
	}
	run(t, p, reader, 6)

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, reader.commits())
	mu.Lock()
	assert.Equal(t, 6, consumed)
	assert.Equal(t, []string{"decode", "not_found", "invalid", "invalid"}, reasons)
	mu.Unlock()

	letters := dlq.letters()
	require.Len(t, letters, 4)
	assert.Equal(t, "{not json", letters[0].Payload)
	assert.Equal(t, int64(2), letters[0].Offset)
	assert.Equal(t, "settlement_requests", letters[0].Topic)
	assert.Equal(t, "bet not found", letters[1].Error)

	// todos os campos do pedido chegam ao settler
	first := st.gotReq[0]
	assert.Equal(t, "ok", first.BetID)
	assert.Equal(t, "golf", first.Sport)
	require.NotNil(t, first.DeadHeatPositions)
	assert.Equal(t, 2, *first.DeadHeatPositions)
	assert.Equal(t, 1, st.calls["dup"])
}

func TestProcessor_RetriesTransientFailures(t *testing.T) {
	boom := errors.New("connection reset")
	reader := &fakeReader{msgs: []kafka.Message{
		msg(10, events.SettlementRequested{BetID: "flaky", Result: "won"}),
		msg(11, events.SettlementRequested{BetID: "down", Result: "won"}),
	}}
	dlq := &fakeDLQ{}
	st := &scriptedSettler{errs: map[string][]error{
		"flaky": {boom, boom},
		"down":  {boom, boom, boom},
	}}
	p := &consumer.Processor{
		Log: zap.NewNop(), Reader: reader, DLQ: dlq, Settler: st,
		MaxAttempts: 3, Backoff: time.Millisecond,
	}
	run(t, p, reader, 2)

	assert.Equal(t, 3, st.calls["flaky"])
	assert.Equal(t, 3, st.calls["down"])

	letters := dlq.letters()
	require.Len(t, letters, 1)
	assert.Equal(t, "exhausted", letters[0].Reason)
	assert.Equal(t, 3, letters[0].Attempts)
	assert.Equal(t, int64(11), letters[0].Offset)
}

func TestProcessor_StopsWhenDLQUnavailable(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{msg(7, "garbage")}}
	p := &consumer.Processor{
		Log: zap.NewNop(), Reader: reader, DLQ: &fakeDLQ{err: errors.New("broker down")}, Settler: &scriptedSettler{},
	}

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write dlq")
	assert.Empty(t, reader.commits())
}

func TestProcessor_StopsWhenCommitFails(t *testing.T) {
	reader := &fakeReader{
		msgs:      []kafka.Message{msg(8, events.SettlementRequested{BetID: "b", Result: "lost"})},
		commitErr: errors.New("rebalance in progress"),
	}
	p := &consumer.Processor{Log: zap.NewNop(), Reader: reader, DLQ: &fakeDLQ{}, Settler: &scriptedSettler{}}

	err := p.Run(context.Background())
	assert.ErrorContains(t, err, "commit offset 8")
}
