package postgres

// migrations are applied in order by Migrate. Every statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS token_config (
		id                INT PRIMARY KEY CHECK (id = 1),
		contract          TEXT NOT NULL,
		name              TEXT NOT NULL,
		symbol            TEXT NOT NULL,
		decimals          SMALLINT NOT NULL,
		total_supply      NUMERIC(78, 0) NOT NULL,
		owner             TEXT NOT NULL,
		tax_percentage    SMALLINT NOT NULL CHECK (tax_percentage BETWEEN 0 AND 10),
		tax_wallet        TEXT NOT NULL,
		max_tx_amount     NUMERIC(78, 0) NOT NULL,
		max_wallet_amount NUMERIC(78, 0) NOT NULL,
		trading_enabled   BOOLEAN NOT NULL DEFAULT FALSE,
		block_number      BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS balances (
		address TEXT PRIMARY KEY,
		amount  NUMERIC(78, 0) NOT NULL CHECK (amount >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS receipts (
		tx_hash      TEXT PRIMARY KEY,
		block_number BIGINT NOT NULL UNIQUE,
		kind         TEXT NOT NULL,
		from_account TEXT NOT NULL,
		contract     TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transfers (
		tx_hash      TEXT NOT NULL REFERENCES receipts (tx_hash),
		idx          INT NOT NULL,
		block_number BIGINT NOT NULL,
		from_account TEXT NOT NULL,
		to_account   TEXT NOT NULL,
		amount       NUMERIC(78, 0) NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (tx_hash, idx)
	)`,
	`CREATE INDEX IF NOT EXISTS transfers_from_idx ON transfers (from_account)`,
	`CREATE INDEX IF NOT EXISTS transfers_to_idx ON transfers (to_account)`,
}
