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

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict indica que a aposta saiu de pending entre a leitura e a escrita
	ErrConflict = errors.New("bet is not pending")
)

// Store implementa ledger, saldo e apostas sobre database/sql (Postgres ou SQLite)
type Store struct {
	db *sql.DB
	d  dialect
}

// NewPostgres retorna o store sobre Postgres (lib/pq)
func NewPostgres(db *sql.DB) *Store { return &Store{db: db, d: postgresDialect} }

// NewSQLite retorna o store sobre SQLite (modernc), usado em dev local e testes
func NewSQLite(db *sql.DB) *Store { return &Store{db: db, d: sqliteDialect} }

// Migrate aplica o schema do dialeto (idempotente)
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.d.schema); err != nil {
		return fmt.Errorf("repo.Migrate %s: %w", s.d.name, err)
	}
	return nil
}

// Ping valida a conexão (healthz)
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// WithTx executa fn numa única transação: commit se fn retornar nil, rollback caso contrário
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqlTx{tx: tx, d: s.d}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CreateBet insere uma aposta pending (colocação é feita por outro serviço; usado em seed e testes)
func (s *Store) CreateBet(ctx context.Context, b *Bet) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Currency == "" {
		b.Currency = "GBP"
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.d.rebind(`
		INSERT INTO bets (id, user_id, stake, currency, odds, sport, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,'pending',$7,$8)`),
		b.ID, b.UserID, b.Stake, b.Currency, b.Odds, b.Sport, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert bet: %w", err)
	}
	return b.ID, nil
}

// GetBet retorna a aposta sem lock
func (s *Store) GetBet(ctx context.Context, betID string) (Bet, error) {
	return scanBet(s.db.QueryRowContext(ctx, s.d.rebind(selectBet+` WHERE id=$1`), betID))
}

// GetBalance retorna o saldo atual (zero se o usuário ainda não tem linha)
func (s *Store) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := s.db.QueryRowContext(ctx, s.d.rebind(`SELECT balance FROM balances WHERE user_id=$1`), userID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	return bal, err
}

// Credit ajusta o saldo e grava o lançamento correspondente na mesma transação (depósitos/seed)
func (s *Store) Credit(ctx context.Context, userID string, amount decimal.Decimal, entryType, reference, description string) (LedgerEntry, error) {
	var entry LedgerEntry
	err := s.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		before, err := tx.LockBalance(ctx, userID)
		if err != nil {
			return err
		}
		after := before.Add(amount)
		if err := tx.SetBalance(ctx, userID, after, time.Now().UTC()); err != nil {
			return err
		}
		entry = LedgerEntry{
			UserID:        userID,
			Type:          entryType,
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			ReferenceID:   reference,
			Description:   description,
			CreatedAt:     time.Now().UTC(),
		}
		return tx.AppendLedger(ctx, &entry)
	})
	return entry, err
}

// ListLedger retorna os lançamentos do usuário, mais recentes primeiro
func (s *Store) ListLedger(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.d.rebind(`
		SELECT id, user_id, type, amount, balance_before, balance_after, reference_id, description, metadata, created_at
		FROM ledger_entries
		WHERE user_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`), userID, limit)
	if err != nil {
		return nil, err
	}
	return scanLedger(rows)
}

// ListLedgerByReference retorna os lançamentos de uma aposta
func (s *Store) ListLedgerByReference(ctx context.Context, reference string) ([]LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.d.rebind(`
		SELECT id, user_id, type, amount, balance_before, balance_after, reference_id, description, metadata, created_at
		FROM ledger_entries
		WHERE reference_id=$1
		ORDER BY created_at, id`), reference)
	if err != nil {
		return nil, err
	}
	return scanLedger(rows)
}

// InsertAudit grava uma linha no audit log
func (s *Store) InsertAudit(ctx context.Context, a AuditEntry) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.d.rebind(`
		INSERT INTO audit_logs (id, actor, action, resource_type, resource_id, status, payload, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`),
		a.ID, a.Actor, a.Action, a.ResourceType, a.ResourceID, a.Status, nullJSON(a.Payload), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// ListAudit retorna o audit log de um recurso, em ordem cronológica
func (s *Store) ListAudit(ctx context.Context, resourceType, resourceID string) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.d.rebind(`
		SELECT id, actor, action, resource_type, resource_id, status, payload, created_at
		FROM audit_logs
		WHERE resource_type=$1 AND resource_id=$2
		ORDER BY created_at, id`), resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var a AuditEntry
		var payload sql.NullString
		if err := rows.Scan(&a.ID, &a.Actor, &a.Action, &a.ResourceType, &a.ResourceID, &a.Status, &payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		if payload.Valid {
			a.Payload = []byte(payload.String)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanLedger(rows *sql.Rows) ([]LedgerEntry, error) {
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var meta sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &e.BalanceBefore, &e.BalanceAfter,
			&e.ReferenceID, &e.Description, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if meta.Valid {
			e.Metadata = []byte(meta.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const selectBet = `SELECT id, user_id, stake, currency, odds, sport, status, payout, settled_at, created_at, updated_at FROM bets`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(row rowScanner) (Bet, error) {
	var b Bet
	var settled sql.NullTime
	err := row.Scan(&b.ID, &b.UserID, &b.Stake, &b.Currency, &b.Odds, &b.Sport, &b.Status,
		&b.Payout, &settled, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Bet{}, ErrNotFound
	}
	if err != nil {
		return Bet{}, err
	}
	if settled.Valid {
		t := settled.Time
		b.SettledAt = &t
	}
	return b, nil
}

// JSON como string: o pq envia []byte como bytea, o que o jsonb rejeita
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
