package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// BalanceLedger enforces the funds-conservation invariant: a wallet
// balance only decreases by exactly amount+fee, and only when it covers
// the total. Durability is delegated to the WalletStore.
//
// The ledger does not serialize concurrent calls against the same wallet;
// the Coordinator holds a per-wallet lock around settlement.
type BalanceLedger struct {
	store  WalletStore
	logger *slog.Logger
}

// NewBalanceLedger creates a ledger backed by the given wallet store.
func NewBalanceLedger(store WalletStore, logger *slog.Logger) *BalanceLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceLedger{store: store, logger: logger}
}

// ApplyTransfer deducts amount+fee from the wallet and persists the new
// state. If the balance does not cover the total it returns
// InsufficientFundsError, leaves the wallet untouched, and performs no
// durability write. A store failure after the deduction is returned
// wrapped; the in-memory balance change is not rolled back.
func (l *BalanceLedger) ApplyTransfer(ctx context.Context, w *Wallet, amount, fee decimal.Decimal) (decimal.Decimal, error) {
	required := amount.Add(fee)
	if w.Balance.LessThan(required) {
		l.logger.Warn("transfer rejected, insufficient funds",
			"wallet_id", w.ID,
			"balance", w.Balance.String(),
			"required", required.String(),
		)
		return decimal.Zero, &InsufficientFundsError{Balance: w.Balance, Required: required}
	}

	newBalance := w.Balance.Sub(required)
	w.Balance = newBalance

	if err := l.store.SaveWallet(ctx, w); err != nil {
		l.logger.Error("failed to persist wallet after transfer",
			"wallet_id", w.ID,
			"new_balance", newBalance.String(),
			"error", err,
		)
		return newBalance, fmt.Errorf("could not persist wallet %s: %w", w.ID, err)
	}

	l.logger.Info("transfer applied",
		"wallet_id", w.ID,
		"amount", amount.String(),
		"fee", fee.String(),
		"new_balance", newBalance.String(),
	)
	return newBalance, nil
}

// AddFunds unconditionally increases the wallet balance, simulating an
// inbound receipt. Non-positive amounts fail with ValidationError.
func (l *BalanceLedger) AddFunds(ctx context.Context, w *Wallet, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, &ValidationError{Reason: "amount must be > 0"}
	}

	newBalance := w.Balance.Add(amount)
	w.Balance = newBalance

	if err := l.store.SaveWallet(ctx, w); err != nil {
		l.logger.Error("failed to persist wallet after deposit",
			"wallet_id", w.ID,
			"new_balance", newBalance.String(),
			"error", err,
		)
		return newBalance, fmt.Errorf("could not persist wallet %s: %w", w.ID, err)
	}

	l.logger.Info("funds added",
		"wallet_id", w.ID,
		"amount", amount.String(),
		"new_balance", newBalance.String(),
	)
	return newBalance, nil
}
