package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The persisted row layout matches the original simulator schema:
// two tables with money columns as NUMERIC(38, 18).
const createWallets = `
CREATE TABLE IF NOT EXISTS wallets (
	pk BIGSERIAL PRIMARY KEY,
	id VARCHAR(64) UNIQUE NOT NULL,
	type VARCHAR(32) NOT NULL,
	address VARCHAR(128) NOT NULL,
	balance NUMERIC(38, 18) NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
)`

const createTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
	pk BIGSERIAL PRIMARY KEY,
	id VARCHAR(64) UNIQUE NOT NULL,
	from_address VARCHAR(128) NOT NULL,
	to_address VARCHAR(128) NOT NULL,
	amount NUMERIC(38, 18) NOT NULL,
	fee_priority VARCHAR(32) NOT NULL,
	fee_amount NUMERIC(38, 18) NOT NULL,
	status VARCHAR(32) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	wallet_id VARCHAR(64) NOT NULL REFERENCES wallets(id)
)`

const createPendingIndex = `
CREATE INDEX IF NOT EXISTS transactions_pending_fee_idx
ON transactions (fee_amount DESC) WHERE status = 'PENDING'`

// EnsureSchema creates the wallets and transactions tables if they do not
// exist. It is idempotent and safe to run at every process start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{createWallets, createTransactions, createPendingIndex} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
