package settler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/settlement-service/repo"
	"github.com/radieske/sports-bet-settlement/pkg/contracts/events"
	"github.com/radieske/sports-bet-settlement/pkg/deadheat"
)

var (
	ErrInvalidRequest = errors.New("invalid settlement request")
	ErrBetNotFound    = errors.New("bet not found")
	ErrAlreadySettled = errors.New("bet already settled")
)

// Store é o ledger/saldo transacional (repo.Store)
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx repo.Tx) error) error
	InsertAudit(ctx context.Context, a repo.AuditEntry) error
}

// BalanceNotifier publica a mudança de saldo no canal realtime
type BalanceNotifier interface {
	PublishBalanceChanged(ctx context.Context, e events.BalanceChanged) error
}

// EventPublisher publica o evento bet_settled
type EventPublisher interface {
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

// StatsRecorder mantém contadores agregados por usuário (best-effort)
type StatsRecorder interface {
	RecordSettlement(ctx context.Context, userID, result string, amount decimal.Decimal) error
}

// Request é a entrada de uma liquidação (webhook ou job)
type Request struct {
	BetID              string
	Result             string // won | lost | void
	Winnings           *float64
	DeadHeatPositions  *int
	Sport              string
	Rule4WithdrawnOdds *float64
}

// Result é o que foi efetivamente pago e por quê
type Result struct {
	BetID             string
	UserID            string
	Result            string
	Stake             decimal.Decimal
	Winnings          decimal.Decimal // valor final creditado (pós-ajustes)
	OriginalWinnings  decimal.Decimal
	DeadHeatApplied   bool
	DeadHeatPositions *int
	Rule4Applied      bool
	Rule4Deduction    float64
	BalanceBefore     decimal.Decimal
	BalanceAfter      decimal.Decimal
	LedgerEntryID     string
	SettledAt         time.Time
}

// Settler aplica o resultado de uma aposta: ajustes dead-heat/Rule 4, saldo e ledger numa única transação,
// e depois os efeitos colaterais (estatísticas, notificação, evento, audit log).
type Settler struct {
	Log      *zap.Logger
	Store    Store
	Notifier BalanceNotifier // opcional
	Events   EventPublisher  // opcional
	Stats    StatsRecorder   // opcional
	Actor    string          // quem aparece no audit log
	Now      func() time.Time

	OnSettled  func(result string) // métricas
	OnAdjusted func(kind string)   // métricas: dead_heat | rule4
	OnError    func(stage string)  // métricas por fase
	Observe    func(start time.Time)
}

// Settle liquida uma aposta. Reinvocar para uma aposta já terminal retorna ErrAlreadySettled sem tocar no saldo.
func (s *Settler) Settle(ctx context.Context, req Request) (Result, error) {
	if s.Observe != nil {
		defer s.Observe(time.Now())
	}
	if err := validate(req); err != nil {
		s.fail("validate")
		return Result{}, err
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}

	var res Result
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		bet, err := tx.LockBet(ctx, req.BetID)
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrBetNotFound, req.BetID)
		}
		if err != nil {
			return fmt.Errorf("load bet: %w", err)
		}
		if bet.Status != repo.StatusPending {
			return fmt.Errorf("%w: %s is %s", ErrAlreadySettled, bet.ID, bet.Status)
		}

		out, err := computeOutcome(bet, req)
		if err != nil {
			return err
		}

		if err := tx.MarkSettled(ctx, bet.ID, req.Result, out.payout, now); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return fmt.Errorf("%w: %s", ErrAlreadySettled, bet.ID)
			}
			return err
		}

		before, err := tx.LockBalance(ctx, bet.UserID)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		after := before.Add(out.credit)
		if !out.credit.IsZero() {
			if err := tx.SetBalance(ctx, bet.UserID, after, now); err != nil {
				return fmt.Errorf("write balance: %w", err)
			}
		}

		entry := &repo.LedgerEntry{
			UserID:        bet.UserID,
			Type:          out.ledgerType,
			Amount:        out.credit,
			BalanceBefore: before,
			BalanceAfter:  after,
			ReferenceID:   bet.ID,
			Description:   out.description,
			Metadata:      out.metadata,
			CreatedAt:     now,
		}
		if err := tx.AppendLedger(ctx, entry); err != nil {
			return fmt.Errorf("append ledger: %w", err)
		}

		res = Result{
			BetID:             bet.ID,
			UserID:            bet.UserID,
			Result:            req.Result,
			Stake:             bet.Stake,
			Winnings:          out.payout,
			OriginalWinnings:  out.original,
			DeadHeatApplied:   out.deadHeat,
			DeadHeatPositions: req.DeadHeatPositions,
			Rule4Applied:      out.rule4,
			Rule4Deduction:    out.rule4Deduction,
			BalanceBefore:     before,
			BalanceAfter:      after,
			LedgerEntryID:     entry.ID,
			SettledAt:         now,
		}
		return nil
	})
	if err != nil {
		s.onTxError(ctx, req, err)
		return Result{}, err
	}

	if s.OnSettled != nil {
		s.OnSettled(res.Result)
	}
	if res.DeadHeatApplied && s.OnAdjusted != nil {
		s.OnAdjusted("dead_heat")
	}
	if res.Rule4Applied && s.OnAdjusted != nil {
		s.OnAdjusted("rule4")
	}

	s.log().Info("bet settled",
		zap.String("bet_id", res.BetID),
		zap.String("user_id", res.UserID),
		zap.String("result", res.Result),
		zap.String("winnings", res.Winnings.String()),
		zap.String("original_winnings", res.OriginalWinnings.String()),
		zap.Bool("dead_heat", res.DeadHeatApplied),
		zap.Bool("rule4", res.Rule4Applied),
	)

	s.afterCommit(ctx, res)
	return res, nil
}

// afterCommit: falhas aqui são logadas e contadas, nunca desfazem a liquidação
func (s *Settler) afterCommit(ctx context.Context, res Result) {
	log := s.log().With(zap.String("bet_id", res.BetID), zap.String("user_id", res.UserID))

	if s.Stats != nil {
		if err := s.Stats.RecordSettlement(ctx, res.UserID, res.Result, res.Winnings); err != nil {
			log.Warn("user stats update failed", zap.Error(err))
			s.fail("stats")
		}
	}

	if s.Notifier != nil {
		err := s.Notifier.PublishBalanceChanged(ctx, events.BalanceChanged{
			UserID:        res.UserID,
			BalanceBefore: res.BalanceBefore.StringFixed(2),
			BalanceAfter:  res.BalanceAfter.StringFixed(2),
			Amount:        res.BalanceAfter.Sub(res.BalanceBefore).StringFixed(2),
			Reason:        ledgerTypeFor(res.Result),
			BetID:         res.BetID,
			Ts:            res.SettledAt,
		})
		if err != nil {
			log.Warn("balance notification failed", zap.Error(err))
			s.fail("notify")
		}
	}

	if s.Events != nil {
		ev := events.BetSettled{
			BetID:            res.BetID,
			UserID:           res.UserID,
			Result:           res.Result,
			Stake:            res.Stake.StringFixed(2),
			Winnings:         res.Winnings.StringFixed(2),
			OriginalWinnings: res.OriginalWinnings.StringFixed(2),
			DeadHeatApplied:  res.DeadHeatApplied,
			Rule4Applied:     res.Rule4Applied,
			SettledAt:        res.SettledAt,
		}
		if res.DeadHeatPositions != nil {
			ev.DeadHeatPositions = *res.DeadHeatPositions
		}
		if err := s.Events.PublishBetSettled(ctx, ev); err != nil {
			log.Warn("bet_settled publish failed", zap.Error(err))
			s.fail("publish")
		}
	}

	payload, _ := json.Marshal(map[string]any{
		"result":            res.Result,
		"stake":             res.Stake.StringFixed(2),
		"winnings":          res.Winnings.StringFixed(2),
		"original_winnings": res.OriginalWinnings.StringFixed(2),
		"dead_heat_applied": res.DeadHeatApplied,
		"rule4_applied":     res.Rule4Applied,
		"balance_before":    res.BalanceBefore.StringFixed(2),
		"balance_after":     res.BalanceAfter.StringFixed(2),
		"ledger_entry_id":   res.LedgerEntryID,
	})
	if err := s.Store.InsertAudit(ctx, repo.AuditEntry{
		Actor:        s.actor(),
		Action:       "bet.settle",
		ResourceType: "bet",
		ResourceID:   res.BetID,
		Status:       "success",
		Payload:      payload,
		CreatedAt:    res.SettledAt,
	}); err != nil {
		log.Warn("audit log insert failed", zap.Error(err))
		s.fail("audit")
	}
}

// onTxError registra a falha; erros de persistência também vão para o audit log
func (s *Settler) onTxError(ctx context.Context, req Request, err error) {
	log := s.log().With(zap.String("bet_id", req.BetID), zap.String("result", req.Result))

	var verr *deadheat.ValidationError
	switch {
	case errors.Is(err, ErrBetNotFound):
		log.Info("settlement rejected: bet not found")
		s.fail("not_found")
		return
	case errors.Is(err, ErrAlreadySettled):
		log.Warn("settlement rejected: bet already settled", zap.Error(err))
		s.fail("already_settled")
		return
	case errors.Is(err, ErrInvalidRequest), errors.As(err, &verr):
		log.Warn("settlement rejected: invalid input", zap.Error(err))
		s.fail("validate")
		return
	}

	log.Error("settlement transaction failed", zap.Error(err))
	s.fail("tx")

	payload, _ := json.Marshal(map[string]any{"result": req.Result, "error": err.Error()})
	if aerr := s.Store.InsertAudit(ctx, repo.AuditEntry{
		Actor:        s.actor(),
		Action:       "bet.settle",
		ResourceType: "bet",
		ResourceID:   req.BetID,
		Status:       "failed",
		Payload:      payload,
	}); aerr != nil {
		log.Warn("audit log insert failed", zap.Error(aerr))
	}
}

func (s *Settler) fail(stage string) {
	if s.OnError != nil {
		s.OnError(stage)
	}
}

func (s *Settler) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Settler) actor() string {
	if s.Actor == "" {
		return "settlement-service"
	}
	return s.Actor
}

func validate(req Request) error {
	if req.BetID == "" {
		return fmt.Errorf("%w: bet_id is required", ErrInvalidRequest)
	}
	switch req.Result {
	case repo.StatusWon, repo.StatusLost, repo.StatusVoid:
	case "":
		return fmt.Errorf("%w: result is required", ErrInvalidRequest)
	default:
		return fmt.Errorf("%w: result must be one of won, lost, void", ErrInvalidRequest)
	}
	if req.Winnings != nil && *req.Winnings < 0 {
		return fmt.Errorf("%w: winnings must not be negative", ErrInvalidRequest)
	}
	if req.DeadHeatPositions != nil && *req.DeadHeatPositions < 1 {
		return fmt.Errorf("%w: dead_heat_positions must be at least 1", ErrInvalidRequest)
	}
	if req.Rule4WithdrawnOdds != nil && *req.Rule4WithdrawnOdds <= 1.0 {
		return fmt.Errorf("%w: rule4_withdrawn_odds must be greater than 1.0", ErrInvalidRequest)
	}
	return nil
}

func ledgerTypeFor(result string) string {
	switch result {
	case repo.StatusWon:
		return repo.LedgerBetWin
	case repo.StatusVoid:
		return repo.LedgerBetRefund
	default:
		return repo.LedgerBetLoss
	}
}
