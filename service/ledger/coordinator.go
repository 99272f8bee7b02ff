package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Pool is the mempool surface the coordinator needs: accept a settled
// transaction and report where it sits in the fee-descending order.
type Pool interface {
	Enqueue(tx *Transaction) error
	PositionOf(id string) int
	EstimatedConfirmation(id string) time.Duration
}

// SettlementEvent is published after a transfer settles or is confirmed.
type SettlementEvent struct {
	TransactionID string    `json:"transaction_id"`
	WalletID      string    `json:"wallet_id"`
	FromAddress   string    `json:"from_address"`
	ToAddress     string    `json:"to_address"`
	Amount        string    `json:"amount"`
	Fee           string    `json:"fee"`
	Priority      string    `json:"priority"`
	Status        string    `json:"status"`
	PublishedAt   time.Time `json:"published_at"`
}

// NewSettlementEvent builds the event payload for a transaction.
func NewSettlementEvent(tx *Transaction) *SettlementEvent {
	return &SettlementEvent{
		TransactionID: tx.ID,
		WalletID:      tx.WalletID,
		FromAddress:   tx.FromAddress,
		ToAddress:     tx.ToAddress,
		Amount:        tx.Amount.String(),
		Fee:           tx.Fee().String(),
		Priority:      string(tx.Priority),
		Status:        string(tx.Status),
		PublishedAt:   time.Now().UTC(),
	}
}

// EventPublisher receives settlement events. Implementations must be safe
// for concurrent use.
type EventPublisher interface {
	PublishSettlement(ctx context.Context, event *SettlementEvent) error
}

// Coordinator executes "submit transfer" as one logical operation:
// validation, fee computation, ledger deduction, then the durable record
// and the mempool enqueue. It is the only path that decreases a wallet
// balance.
type Coordinator struct {
	ledger    *BalanceLedger
	txStore   TransactionStore
	pool      Pool
	publisher EventPublisher // optional
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*walletLock
}

// walletLock serializes settlement for one wallet id. refs counts the
// submissions holding or waiting on it so the entry can be dropped once
// the last one finishes.
type walletLock struct {
	mu   sync.Mutex
	refs int
}

// NewCoordinator wires the settlement flow. publisher may be nil, in which
// case no events are emitted.
func NewCoordinator(l *BalanceLedger, txStore TransactionStore, pool Pool, publisher EventPublisher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		ledger:    l,
		txStore:   txStore,
		pool:      pool,
		publisher: publisher,
		logger:    logger,
		locks:     make(map[string]*walletLock),
	}
}

// Submit validates and settles a transfer from the wallet, then records
// the resulting PENDING transaction durably and in the mempool.
//
// Validation and the balance deduction run under a per-wallet lock so
// concurrent submissions against the same wallet cannot both pass the
// funds check. If a durability write fails after the ledger deduction,
// the settled transaction is returned together with a DurabilityError.
func (c *Coordinator) Submit(ctx context.Context, w *Wallet, toAddress string, amount decimal.Decimal, priority Priority) (*Transaction, error) {
	if w == nil {
		return nil, &ValidationError{Reason: "wallet is required"}
	}

	tx, settleErr := c.settle(ctx, w, toAddress, amount, priority)
	if settleErr != nil {
		var insufficient *InsufficientFundsError
		var invalid *ValidationError
		var unsupported *UnsupportedAssetKindError
		if errors.As(settleErr, &insufficient) || errors.As(settleErr, &invalid) || errors.As(settleErr, &unsupported) {
			return nil, settleErr
		}
		// The ledger deduction happened but the wallet write failed.
		// Carry on recording the transaction and surface the gap below.
	}

	var recordErr error
	if err := c.txStore.SaveTransaction(ctx, tx); err != nil {
		c.logger.Error("failed to persist transaction",
			"transaction_id", tx.ID,
			"wallet_id", w.ID,
			"error", err,
		)
		recordErr = err
	}
	if err := c.pool.Enqueue(tx); err != nil {
		c.logger.Error("failed to enqueue transaction",
			"transaction_id", tx.ID,
			"error", err,
		)
		if recordErr == nil {
			recordErr = err
		}
	}

	if c.publisher != nil {
		if err := c.publisher.PublishSettlement(ctx, NewSettlementEvent(tx)); err != nil {
			// Event loss is tolerable; the stores remain authoritative.
			c.logger.Warn("failed to publish settlement event",
				"transaction_id", tx.ID,
				"error", err,
			)
		}
	}

	if settleErr != nil {
		return tx, &DurabilityError{Tx: tx, Err: settleErr}
	}
	if recordErr != nil {
		return tx, &DurabilityError{Tx: tx, Err: recordErr}
	}

	c.logger.Info("transfer submitted",
		"transaction_id", tx.ID,
		"wallet_id", w.ID,
		"amount", amount.String(),
		"fee", tx.Fee().String(),
		"priority", string(priority),
		"position", c.pool.PositionOf(tx.ID),
	)
	return tx, nil
}

// settle runs steps 1-4 under the wallet's lock: validate, price, deduct.
// On success the returned transaction carries its fee and has not yet
// been handed to any reader.
func (c *Coordinator) settle(ctx context.Context, w *Wallet, toAddress string, amount decimal.Decimal, priority Priority) (*Transaction, error) {
	unlock := c.lockWallet(w.ID)
	defer unlock()

	if !amount.IsPositive() {
		return nil, &ValidationError{Reason: "amount must be > 0"}
	}
	if !ValidAddress(w.Kind, toAddress) {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid %s address %q", string(w.Kind), toAddress)}
	}

	fee, err := Fee(w.Kind, priority)
	if err != nil {
		return nil, err
	}

	tx := NewTransaction(w.Address, toAddress, amount, priority, w.ID)
	tx.SetFee(fee)

	if _, err := c.ledger.ApplyTransfer(ctx, w, amount, fee); err != nil {
		var insufficient *InsufficientFundsError
		if errors.As(err, &insufficient) {
			// No transaction record is created for a rejected transfer.
			return nil, err
		}
		return tx, err
	}
	return tx, nil
}

// lockWallet acquires the per-wallet settlement lock and returns the
// release func. The map entry is removed when its last holder releases,
// so the coordinator carries no state for idle wallets.
func (c *Coordinator) lockWallet(id string) func() {
	c.mu.Lock()
	entry, ok := c.locks[id]
	if !ok {
		entry = &walletLock{}
		c.locks[id] = entry
	}
	entry.refs++
	c.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		c.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(c.locks, id)
		}
		c.mu.Unlock()
	}
}
