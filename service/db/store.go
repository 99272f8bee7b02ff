package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/simchain/walletsim/service/ledger"
)

// Store provides database operations for the service. It implements the
// ledger.WalletStore and ledger.TransactionStore contracts against the
// preserved wallets/transactions schema.
//
// The pool is constructed by the caller and passed in explicitly: opened
// at process start, closed at shutdown.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// walletRow is the scan target for a wallets row.
type walletRow struct {
	ID        string
	Kind      string
	Address   string
	Balance   pgtype.Numeric
	CreatedAt pgtype.Timestamptz
}

func (r *walletRow) toDomain() *ledger.Wallet {
	return &ledger.Wallet{
		ID:        r.ID,
		Kind:      ledger.AssetKind(r.Kind),
		Address:   r.Address,
		Balance:   decimalFromPgNumeric(r.Balance),
		CreatedAt: r.CreatedAt.Time,
	}
}

// SaveWallet upserts the wallet by id: an update if the id exists, an
// insert otherwise. This is what lets repeated settlement against one
// wallet persist each new balance.
func (s *Store) SaveWallet(ctx context.Context, w *ledger.Wallet) error {
	const q = `
		INSERT INTO wallets (id, type, address, balance, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET type = EXCLUDED.type, address = EXCLUDED.address, balance = EXCLUDED.balance`

	_, err := s.pool.Exec(ctx, q,
		w.ID,
		string(w.Kind),
		w.Address,
		pgNumericFromDecimal(w.Balance),
		pgTimestamptz(w.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save wallet %s: %w", w.ID, err)
	}
	return nil
}

// GetWallet retrieves a wallet by its id.
func (s *Store) GetWallet(ctx context.Context, id string) (*ledger.Wallet, error) {
	const q = `SELECT id, type, address, balance, created_at FROM wallets WHERE id = $1`
	return s.scanWallet(s.pool.QueryRow(ctx, q, id))
}

// GetWalletByAddress retrieves a wallet by its receive address.
func (s *Store) GetWalletByAddress(ctx context.Context, address string) (*ledger.Wallet, error) {
	const q = `SELECT id, type, address, balance, created_at FROM wallets WHERE address = $1`
	return s.scanWallet(s.pool.QueryRow(ctx, q, address))
}

func (s *Store) scanWallet(row pgx.Row) (*ledger.Wallet, error) {
	var r walletRow
	if err := row.Scan(&r.ID, &r.Kind, &r.Address, &r.Balance, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	return r.toDomain(), nil
}

// ListWallets retrieves all wallets, oldest first.
func (s *Store) ListWallets(ctx context.Context) ([]*ledger.Wallet, error) {
	const q = `SELECT id, type, address, balance, created_at FROM wallets ORDER BY created_at, pk`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*ledger.Wallet
	for rows.Next() {
		var r walletRow
		if err := rows.Scan(&r.ID, &r.Kind, &r.Address, &r.Balance, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, r.toDomain())
	}
	return wallets, rows.Err()
}

// transactionRow is the scan target for a transactions row.
type transactionRow struct {
	ID          string
	FromAddress string
	ToAddress   string
	Amount      pgtype.Numeric
	Priority    string
	FeeAmount   pgtype.Numeric
	Status      string
	CreatedAt   pgtype.Timestamptz
	WalletID    string
}

func (r *transactionRow) toDomain() *ledger.Transaction {
	tx := &ledger.Transaction{
		ID:          r.ID,
		FromAddress: r.FromAddress,
		ToAddress:   r.ToAddress,
		Amount:      decimalFromPgNumeric(r.Amount),
		Priority:    ledger.Priority(r.Priority),
		Status:      ledger.Status(r.Status),
		CreatedAt:   r.CreatedAt.Time,
		WalletID:    r.WalletID,
	}
	tx.SetFee(decimalFromPgNumeric(r.FeeAmount))
	return tx
}

const transactionColumns = `id, from_address, to_address, amount, fee_priority, fee_amount, status, created_at, wallet_id`

// SaveTransaction inserts a transaction row. Transactions are persisted
// with their fee already assigned.
func (s *Store) SaveTransaction(ctx context.Context, tx *ledger.Transaction) error {
	const q = `
		INSERT INTO transactions (id, from_address, to_address, amount, fee_priority, fee_amount, status, created_at, wallet_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, q,
		tx.ID,
		tx.FromAddress,
		tx.ToAddress,
		pgNumericFromDecimal(tx.Amount),
		string(tx.Priority),
		pgNumericFromDecimal(tx.Fee()),
		string(tx.Status),
		pgTimestamptz(tx.CreatedAt),
		tx.WalletID,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", tx.ID, err)
	}
	return nil
}

// GetTransaction retrieves a transaction by its id.
func (s *Store) GetTransaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	var r transactionRow
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&r.ID, &r.FromAddress, &r.ToAddress, &r.Amount, &r.Priority,
		&r.FeeAmount, &r.Status, &r.CreatedAt, &r.WalletID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return r.toDomain(), nil
}

// ListPendingTransactions retrieves all PENDING transactions ordered by
// fee descending, insertion order breaking ties. This is the order the
// confirmation sweep consumes them in.
func (s *Store) ListPendingTransactions(ctx context.Context) ([]*ledger.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE status = 'PENDING' ORDER BY fee_amount DESC, pk`
	return s.listTransactions(ctx, q)
}

// ListTransactionsByWallet retrieves all transactions for a wallet,
// newest first.
func (s *Store) ListTransactionsByWallet(ctx context.Context, walletID string) ([]*ledger.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE wallet_id = $1 ORDER BY created_at DESC, pk DESC`
	return s.listTransactions(ctx, q, walletID)
}

func (s *Store) listTransactions(ctx context.Context, q string, args ...any) ([]*ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*ledger.Transaction
	for rows.Next() {
		var r transactionRow
		if err := rows.Scan(
			&r.ID, &r.FromAddress, &r.ToAddress, &r.Amount, &r.Priority,
			&r.FeeAmount, &r.Status, &r.CreatedAt, &r.WalletID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, r.toDomain())
	}
	return txs, rows.Err()
}

// UpdateTransactionStatus advances a PENDING transaction to the given
// status. The PENDING guard keeps the lifecycle monotonic: a CONFIRMED
// or FAILED row is never moved again, and such attempts return
// ledger.ErrNotFound.
func (s *Store) UpdateTransactionStatus(ctx context.Context, id string, status ledger.Status) error {
	const q = `UPDATE transactions SET status = $2 WHERE id = $1 AND status = 'PENDING'`

	tag, err := s.pool.Exec(ctx, q, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update transaction %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Helper functions to convert between pgx types and domain types

func pgNumericFromDecimal(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func decimalFromPgNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func pgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
