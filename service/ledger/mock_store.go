package ledger

import (
	"context"
	"sort"
	"sync"
)

// MockWalletStore is an in-memory WalletStore for tests.
type MockWalletStore struct {
	mu        sync.RWMutex
	wallets   map[string]*Wallet
	saveCalls int
	saveError error
}

// NewMockWalletStore creates an empty in-memory wallet store.
func NewMockWalletStore() *MockWalletStore {
	return &MockWalletStore{wallets: make(map[string]*Wallet)}
}

// SaveWallet upserts the wallet by id, or returns any configured error.
func (m *MockWalletStore) SaveWallet(ctx context.Context, w *Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.saveCalls++
	cp := *w
	m.wallets[w.ID] = &cp
	return nil
}

// GetWallet returns the wallet with the given id, or ErrNotFound.
func (m *MockWalletStore) GetWallet(ctx context.Context, id string) (*Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wallets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

// GetWalletByAddress returns the wallet with the given address, or ErrNotFound.
func (m *MockWalletStore) GetWalletByAddress(ctx context.Context, address string) (*Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.wallets {
		if w.Address == address {
			cp := *w
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListWallets returns all wallets ordered by creation time.
func (m *MockWalletStore) ListWallets(ctx context.Context) ([]*Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SaveCalls returns how many successful saves have happened.
func (m *MockWalletStore) SaveCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCalls
}

// SetSaveError configures SaveWallet to fail with err.
func (m *MockWalletStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// MockTransactionStore is an in-memory TransactionStore for tests.
type MockTransactionStore struct {
	mu        sync.RWMutex
	order     []string
	txs       map[string]*Transaction
	saveError error
}

// NewMockTransactionStore creates an empty in-memory transaction store.
func NewMockTransactionStore() *MockTransactionStore {
	return &MockTransactionStore{txs: make(map[string]*Transaction)}
}

// SaveTransaction inserts the transaction, or returns any configured error.
func (m *MockTransactionStore) SaveTransaction(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	if _, exists := m.txs[tx.ID]; !exists {
		m.order = append(m.order, tx.ID)
	}
	cp := *tx
	m.txs[tx.ID] = &cp
	return nil
}

// GetTransaction returns the transaction with the given id, or ErrNotFound.
func (m *MockTransactionStore) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

// ListPendingTransactions returns PENDING transactions in insertion order.
func (m *MockTransactionStore) ListPendingTransactions(ctx context.Context) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Transaction
	for _, id := range m.order {
		if tx := m.txs[id]; tx.Status == StatusPending {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListTransactionsByWallet returns the wallet's transactions in insertion order.
func (m *MockTransactionStore) ListTransactionsByWallet(ctx context.Context, walletID string) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Transaction
	for _, id := range m.order {
		if tx := m.txs[id]; tx.WalletID == walletID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

// UpdateTransactionStatus advances a PENDING transaction to status.
// Transactions that are absent or already settled return ErrNotFound,
// keeping the lifecycle monotonic.
func (m *MockTransactionStore) UpdateTransactionStatus(ctx context.Context, id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok || tx.Status != StatusPending {
		return ErrNotFound
	}
	tx.Status = status
	return nil
}

// SetSaveError configures SaveTransaction to fail with err.
func (m *MockTransactionStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}
