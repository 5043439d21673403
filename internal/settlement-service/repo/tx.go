package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tx são as operações de uma liquidação que precisam ser atômicas
type Tx interface {
	// LockBet carrega a aposta com lock de linha; ErrNotFound se não existir
	LockBet(ctx context.Context, betID string) (Bet, error)
	// MarkSettled move a aposta de pending para status; ErrConflict se não estiver pending
	MarkSettled(ctx context.Context, betID, status string, payout decimal.Decimal, settledAt time.Time) error
	// LockBalance retorna o saldo atual com lock, criando a linha zerada se necessário
	LockBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	SetBalance(ctx context.Context, userID string, balance decimal.Decimal, at time.Time) error
	// AppendLedger grava o lançamento; preenche ID e CreatedAt se vazios
	AppendLedger(ctx context.Context, e *LedgerEntry) error
}

type sqlTx struct {
	tx *sql.Tx
	d  dialect
}

func (t *sqlTx) LockBet(ctx context.Context, betID string) (Bet, error) {
	return scanBet(t.tx.QueryRowContext(ctx, t.d.rebind(selectBet+` WHERE id=$1`+t.d.forUpdate), betID))
}

func (t *sqlTx) MarkSettled(ctx context.Context, betID, status string, payout decimal.Decimal, settledAt time.Time) error {
	res, err := t.tx.ExecContext(ctx, t.d.rebind(`
		UPDATE bets SET status=$1, payout=$2, settled_at=$3, updated_at=$4
		WHERE id=$5 AND status='pending'`),
		status, payout, settledAt, settledAt, betID,
	)
	if err != nil {
		return fmt.Errorf("update bet status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrConflict
	}
	return nil
}

func (t *sqlTx) LockBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	q := t.d.rebind(`SELECT balance FROM balances WHERE user_id=$1` + t.d.forUpdate)

	var bal decimal.Decimal
	err := t.tx.QueryRowContext(ctx, q, userID).Scan(&bal)
	if err == nil {
		return bal, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("select balance: %w", err)
	}

	// primeira movimentação do usuário
	if _, err := t.tx.ExecContext(ctx, t.d.rebind(`
		INSERT INTO balances (user_id, balance, version, updated_at) VALUES ($1,$2,1,$3)
		ON CONFLICT (user_id) DO NOTHING`), userID, decimal.Zero, time.Now().UTC()); err != nil {
		return decimal.Zero, fmt.Errorf("create balance: %w", err)
	}
	if err := t.tx.QueryRowContext(ctx, q, userID).Scan(&bal); err != nil {
		return decimal.Zero, fmt.Errorf("select balance: %w", err)
	}
	return bal, nil
}

func (t *sqlTx) SetBalance(ctx context.Context, userID string, balance decimal.Decimal, at time.Time) error {
	res, err := t.tx.ExecContext(ctx, t.d.rebind(`
		UPDATE balances SET balance=$1, version=version+1, updated_at=$2 WHERE user_id=$3`),
		balance, at, userID,
	)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("update balance: user %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (t *sqlTx) AppendLedger(ctx context.Context, e *LedgerEntry) error {
	if !e.BalanceAfter.Sub(e.BalanceBefore).Equal(e.Amount) {
		return fmt.Errorf("ledger entry inconsistent: %s - %s != %s", e.BalanceAfter, e.BalanceBefore, e.Amount)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := t.tx.ExecContext(ctx, t.d.rebind(`
		INSERT INTO ledger_entries (id, user_id, type, amount, balance_before, balance_after, reference_id, description, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`),
		e.ID, e.UserID, e.Type, e.Amount, e.BalanceBefore, e.BalanceAfter, e.ReferenceID, e.Description, nullJSON(e.Metadata), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}
