package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePool records enqueued transactions; ordering is covered by the
// mempool package's own tests.
type fakePool struct {
	mu           sync.Mutex
	enqueued     []*Transaction
	enqueueError error
}

func (p *fakePool) Enqueue(tx *Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enqueueError != nil {
		return p.enqueueError
	}
	p.enqueued = append(p.enqueued, tx)
	return nil
}

func (p *fakePool) PositionOf(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, tx := range p.enqueued {
		if tx.ID == id {
			return i + 1
		}
	}
	return -1
}

func (p *fakePool) EstimatedConfirmation(id string) time.Duration {
	pos := p.PositionOf(id)
	if pos < 0 {
		return 0
	}
	return time.Duration(pos) * 10 * time.Minute
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []*SettlementEvent
}

func (p *capturingPublisher) PublishSettlement(ctx context.Context, event *SettlementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func newTestCoordinator(t *testing.T) (*Coordinator, *MockWalletStore, *MockTransactionStore, *fakePool, *capturingPublisher) {
	t.Helper()
	wallets := NewMockWalletStore()
	txs := NewMockTransactionStore()
	pool := &fakePool{}
	pub := &capturingPublisher{}
	c := NewCoordinator(NewBalanceLedger(wallets, nil), txs, pool, pub, nil)
	return c, wallets, txs, pool, pub
}

func TestSubmit_Success(t *testing.T) {
	c, wallets, txs, pool, pub := newTestCoordinator(t)
	ctx := context.Background()

	w := newTestWallet(t, AssetEthereum, "1.0")
	require.NoError(t, wallets.SaveWallet(ctx, w))

	tx, err := c.Submit(ctx, w, "0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be",
		decimal.RequireFromString("0.5"), PriorityStandard)
	require.NoError(t, err)
	require.NotNil(t, tx)

	// Fee is the standard Ethereum rate: 21000 * 20 gwei.
	assert.True(t, tx.Fee().Equal(decimal.RequireFromString("0.00042")), "got %s", tx.Fee())
	assert.Equal(t, StatusPending, tx.Status)
	assert.Equal(t, w.ID, tx.WalletID)
	assert.Equal(t, w.Address, tx.FromAddress)
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("0.49958")), "got %s", w.Balance)

	// Durable record and pool entry both exist.
	saved, err := txs.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, saved.Status)
	assert.Equal(t, 1, pool.PositionOf(tx.ID))

	require.Len(t, pub.events, 1)
	assert.Equal(t, tx.ID, pub.events[0].TransactionID)
	assert.Equal(t, "0.00042", pub.events[0].Fee)
}

func TestSubmit_InsufficientFundsAfterPriorTransfer(t *testing.T) {
	c, wallets, txs, pool, _ := newTestCoordinator(t)
	ctx := context.Background()

	w := newTestWallet(t, AssetEthereum, "1.0")
	require.NoError(t, wallets.SaveWallet(ctx, w))

	_, err := c.Submit(ctx, w, "0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be",
		decimal.RequireFromString("0.5"), PriorityStandard)
	require.NoError(t, err)

	// 0.6 + 0.00042 > the remaining 0.49958.
	_, err = c.Submit(ctx, w, "0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be",
		decimal.RequireFromString("0.6"), PriorityStandard)
	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Balance.Equal(decimal.RequireFromString("0.49958")))
	assert.True(t, insufficient.Required.Equal(decimal.RequireFromString("0.60042")))

	// Balance unchanged, no second transaction anywhere.
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("0.49958")))
	pending, err := txs.ListPendingTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Len(t, pool.enqueued, 1)
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name      string
		toAddress string
		amount    string
	}{
		{"zero amount", "0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be", "0"},
		{"negative amount", "0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be", "-1"},
		{"bad address", "not-an-address", "0.5"},
		{"wrong kind address", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", "0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, wallets, txs, pool, _ := newTestCoordinator(t)
			ctx := context.Background()
			w := newTestWallet(t, AssetEthereum, "10")
			require.NoError(t, wallets.SaveWallet(ctx, w))
			saves := wallets.SaveCalls()

			_, err := c.Submit(ctx, w, tt.toAddress, decimal.RequireFromString(tt.amount), PriorityStandard)
			var invalid *ValidationError
			require.ErrorAs(t, err, &invalid)

			assert.True(t, w.Balance.Equal(decimal.RequireFromString("10")))
			assert.Equal(t, saves, wallets.SaveCalls())
			pending, err := txs.ListPendingTransactions(ctx)
			require.NoError(t, err)
			assert.Empty(t, pending)
			assert.Empty(t, pool.enqueued)
		})
	}
}

func TestSubmit_NilWallet(t *testing.T) {
	c, _, _, _, _ := newTestCoordinator(t)
	_, err := c.Submit(context.Background(), nil, "0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be",
		decimal.RequireFromString("1"), PriorityStandard)
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
}

func TestSubmit_TransactionStoreFailure(t *testing.T) {
	c, wallets, txs, pool, _ := newTestCoordinator(t)
	ctx := context.Background()

	w := newTestWallet(t, AssetEthereum, "1.0")
	require.NoError(t, wallets.SaveWallet(ctx, w))
	txs.SetSaveError(errors.New("connection refused"))

	tx, err := c.Submit(ctx, w, "0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be",
		decimal.RequireFromString("0.5"), PriorityStandard)
	require.Error(t, err)

	// The ledger mutation stands and the caller still gets the
	// transaction, wrapped in a durability error.
	var durability *DurabilityError
	require.ErrorAs(t, err, &durability)
	require.NotNil(t, tx)
	assert.Equal(t, tx.ID, durability.Tx.ID)
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("0.49958")))

	// The pool enqueue still happened.
	assert.Equal(t, 1, pool.PositionOf(tx.ID))
}

func TestSubmit_ConcurrentSameWallet(t *testing.T) {
	c, wallets, _, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	// Balance covers exactly one standard transfer of 0.5.
	w := newTestWallet(t, AssetEthereum, "0.6")
	require.NoError(t, wallets.SaveWallet(ctx, w))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Submit(ctx, w, "0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be",
				decimal.RequireFromString("0.5"), PriorityStandard)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			var insufficient *InsufficientFundsError
			require.ErrorAs(t, err, &insufficient)
		}
	}
	assert.Equal(t, 1, succeeded, "per-wallet lock admits exactly one transfer")
	assert.False(t, w.Balance.IsNegative())

	c.mu.Lock()
	remaining := len(c.locks)
	c.mu.Unlock()
	assert.Equal(t, 0, remaining, "wallet lock entries released after submission")
}

func TestSubmit_WalletLocksDoNotAccumulate(t *testing.T) {
	c, wallets, _, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	for range 20 {
		w := newTestWallet(t, AssetEthereum, "1.0")
		require.NoError(t, wallets.SaveWallet(ctx, w))
		_, err := c.Submit(ctx, w, "0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be",
			decimal.RequireFromString("0.5"), PriorityStandard)
		require.NoError(t, err)
	}

	c.mu.Lock()
	remaining := len(c.locks)
	c.mu.Unlock()
	assert.Equal(t, 0, remaining, "one-shot submissions leave no lock entries behind")
}
