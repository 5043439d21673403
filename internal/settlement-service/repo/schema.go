package repo

const postgresSchema = `
CREATE TABLE IF NOT EXISTS bets (
    id          TEXT PRIMARY KEY,
    user_id     TEXT           NOT NULL,
    stake       NUMERIC(20,2)  NOT NULL CHECK (stake > 0),
    currency    TEXT           NOT NULL DEFAULT 'GBP',
    odds        DOUBLE PRECISION NOT NULL,
    sport       TEXT           NOT NULL DEFAULT '',
    status      TEXT           NOT NULL DEFAULT 'pending',
    payout      NUMERIC(20,2),
    settled_at  TIMESTAMPTZ,
    created_at  TIMESTAMPTZ    NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ    NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS balances (
    user_id     TEXT PRIMARY KEY,
    balance     NUMERIC(20,2)  NOT NULL DEFAULT 0,
    version     BIGINT         NOT NULL DEFAULT 1,
    updated_at  TIMESTAMPTZ    NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id              TEXT PRIMARY KEY,
    user_id         TEXT           NOT NULL,
    type            TEXT           NOT NULL,
    amount          NUMERIC(20,2)  NOT NULL,
    balance_before  NUMERIC(20,2)  NOT NULL,
    balance_after   NUMERIC(20,2)  NOT NULL,
    reference_id    TEXT           NOT NULL,
    description     TEXT           NOT NULL DEFAULT '',
    metadata        JSONB,
    created_at      TIMESTAMPTZ    NOT NULL DEFAULT NOW(),
    CHECK (balance_after - balance_before = amount)
);

CREATE TABLE IF NOT EXISTS audit_logs (
    id              TEXT PRIMARY KEY,
    actor           TEXT        NOT NULL,
    action          TEXT        NOT NULL,
    resource_type   TEXT        NOT NULL,
    resource_id     TEXT        NOT NULL,
    status          TEXT        NOT NULL,
    payload         JSONB,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ledger_user_created ON ledger_entries(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_ledger_reference   ON ledger_entries(reference_id);
CREATE INDEX IF NOT EXISTS idx_audit_resource     ON audit_logs(resource_type, resource_id);

-- ledger é append-only
CREATE OR REPLACE FUNCTION ledger_entries_immutable() RETURNS trigger AS $$
BEGIN
    RAISE EXCEPTION 'ledger_entries is append-only';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_ledger_entries_immutable ON ledger_entries;
CREATE TRIGGER trg_ledger_entries_immutable
    BEFORE UPDATE OR DELETE ON ledger_entries
    FOR EACH ROW EXECUTE FUNCTION ledger_entries_immutable();
`

// Valores monetários em TEXT para round-trip exato do decimal.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bets (
    id          TEXT PRIMARY KEY,
    user_id     TEXT      NOT NULL,
    stake       TEXT      NOT NULL,
    currency    TEXT      NOT NULL DEFAULT 'GBP',
    odds        REAL      NOT NULL,
    sport       TEXT      NOT NULL DEFAULT '',
    status      TEXT      NOT NULL DEFAULT 'pending',
    payout      TEXT,
    settled_at  TIMESTAMP,
    created_at  TIMESTAMP NOT NULL,
    updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS balances (
    user_id     TEXT PRIMARY KEY,
    balance     TEXT      NOT NULL DEFAULT '0',
    version     INTEGER   NOT NULL DEFAULT 1,
    updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id              TEXT PRIMARY KEY,
    user_id         TEXT      NOT NULL,
    type            TEXT      NOT NULL,
    amount          TEXT      NOT NULL,
    balance_before  TEXT      NOT NULL,
    balance_after   TEXT      NOT NULL,
    reference_id    TEXT      NOT NULL,
    description     TEXT      NOT NULL DEFAULT '',
    metadata        TEXT,
    created_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
    id              TEXT PRIMARY KEY,
    actor           TEXT      NOT NULL,
    action          TEXT      NOT NULL,
    resource_type   TEXT      NOT NULL,
    resource_id     TEXT      NOT NULL,
    status          TEXT      NOT NULL,
    payload         TEXT,
    created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_user_created ON ledger_entries(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_ledger_reference   ON ledger_entries(reference_id);
CREATE INDEX IF NOT EXISTS idx_audit_resource     ON audit_logs(resource_type, resource_id);

CREATE TRIGGER IF NOT EXISTS trg_ledger_no_update BEFORE UPDATE ON ledger_entries
BEGIN
    SELECT RAISE(ABORT, 'ledger_entries is append-only');
END;

CREATE TRIGGER IF NOT EXISTS trg_ledger_no_delete BEFORE DELETE ON ledger_entries
BEGIN
    SELECT RAISE(ABORT, 'ledger_entries is append-only');
END;
`
