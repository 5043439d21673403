package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/sports-bet-settlement/internal/settlement-service/repo"
	"github.com/radieske/sports-bet-settlement/internal/shared/db"
)

func newStore(t *testing.T) *repo.Store {
	s, _ := newStoreWithDB(t)
	return s
}

func newStoreWithDB(t *testing.T) (*repo.Store, *sql.DB) {
	t.Helper()
	conn, err := db.ConnectSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	s := repo.NewSQLite(conn)
	require.NoError(t, s.Migrate(context.Background()))
	return s, conn
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestStore_CreateAndGetBet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.CreateBet(ctx, &repo.Bet{UserID: "u1", Stake: decimal.NewFromInt(10), Odds: 5.0, Sport: "horse_racing"})
	require.NoError(t, err)

	b, err := s.GetBet(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", b.UserID)
	assert.True(t, decimal.NewFromInt(10).Equal(b.Stake))
	assert.Equal(t, 5.0, b.Odds)
	assert.Equal(t, "GBP", b.Currency)
	assert.Equal(t, repo.StatusPending, b.Status)
	assert.False(t, b.Payout.Valid)
	assert.Nil(t, b.SettledAt)

	_, err = s.GetBet(ctx, "missing")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestStore_CreditWritesBalanceAndLedger(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Credit(ctx, "u1", decimal.RequireFromString("100.00"), "deposit", "dep-1", "seed")
	require.NoError(t, err)
	e, err := s.Credit(ctx, "u1", decimal.RequireFromString("25.50"), "deposit", "dep-2", "seed")
	require.NoError(t, err)

	assert.Equal(t, "100", e.BalanceBefore.String())
	assert.Equal(t, "125.5", e.BalanceAfter.String())

	bal, err := s.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "125.5", bal.String())

	entries, err := s.ListLedger(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, le := range entries {
		assert.True(t, le.BalanceAfter.Sub(le.BalanceBefore).Equal(le.Amount))
	}
}

func TestStore_GetBalanceUnknownUserIsZero(t *testing.T) {
	s := newStore(t)
	bal, err := s.GetBalance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestStore_WithTxRollsBackOnError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.CreateBet(ctx, &repo.Bet{UserID: "u1", Stake: decimal.NewFromInt(10), Odds: 2.0})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		if err := tx.MarkSettled(ctx, id, repo.StatusWon, decimal.NewFromInt(20), time.Now().UTC()); err != nil {
			return err
		}
		bal, err := tx.LockBalance(ctx, "u1")
		if err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, "u1", bal.Add(decimal.NewFromInt(20)), time.Now().UTC()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	b, err := s.GetBet(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, repo.StatusPending, b.Status)

	bal, err := s.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestStore_MarkSettledOnlyFromPending(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.CreateBet(ctx, &repo.Bet{UserID: "u1", Stake: decimal.NewFromInt(10), Odds: 2.0})
	require.NoError(t, err)

	settle := func() error {
		return s.WithTx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return tx.MarkSettled(ctx, id, repo.StatusLost, decimal.Zero, time.Now().UTC())
		})
	}
	require.NoError(t, settle())
	assert.ErrorIs(t, settle(), repo.ErrConflict)

	b, err := s.GetBet(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, repo.StatusLost, b.Status)
	require.NotNil(t, b.SettledAt)
}

func TestStore_AppendLedgerRejectsInconsistentEntry(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		return tx.AppendLedger(ctx, &repo.LedgerEntry{
			UserID:        "u1",
			Type:          repo.LedgerBetWin,
			Amount:        decimal.NewFromInt(10),
			BalanceBefore: decimal.NewFromInt(0),
			BalanceAfter:  decimal.NewFromInt(11),
			ReferenceID:   "b1",
		})
	})
	require.Error(t, err)

	entries, err := s.ListLedger(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_LedgerIsAppendOnly(t *testing.T) {
	s, conn := newStoreWithDB(t)
	ctx := context.Background()

	e, err := s.Credit(ctx, "u1", decimal.NewFromInt(5), "deposit", "dep-1", "")
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, `UPDATE ledger_entries SET amount='500' WHERE id=?`, e.ID)
	assert.Error(t, err)
	_, err = conn.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id=?`, e.ID)
	assert.Error(t, err)

	// id duplicado não sobrescreve lançamento existente
	err = s.WithTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		return tx.AppendLedger(ctx, &repo.LedgerEntry{
			ID:            e.ID,
			UserID:        "u1",
			Type:          "deposit",
			Amount:        decimal.NewFromInt(1),
			BalanceBefore: decimal.NewFromInt(5),
			BalanceAfter:  decimal.NewFromInt(6),
			ReferenceID:   "dup",
		})
	})
	assert.Error(t, err)

	entries, err := s.ListLedger(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "5", entries[0].Amount.String())
}

func TestStore_AuditLog(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertAudit(ctx, repo.AuditEntry{
		Actor:        "settlement-service",
		Action:       "bet.settle",
		ResourceType: "bet",
		ResourceID:   "b1",
		Status:       "success",
		Payload:      []byte(`{"result":"won"}`),
	}))

	rows, err := s.ListAudit(ctx, "bet", "b1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bet.settle", rows[0].Action)
	assert.JSONEq(t, `{"result":"won"}`, string(rows[0].Payload))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, conn, err := repo.Open(ctx, "sqlite", "", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, s.Ping(ctx))

	_, err = s.CreateBet(ctx, &repo.Bet{UserID: "u1", Stake: decimal.NewFromInt(1), Odds: 2, Sport: "golf"})
	assert.NoError(t, err)

	_, _, err = repo.Open(ctx, "mysql", "", "")
	assert.EqualError(t, err, `unknown store driver "mysql"`)
}
