package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(t *testing.T, kind AssetKind, balance string) *Wallet {
	t.Helper()
	w, err := NewWallet(kind)
	require.NoError(t, err)
	w.Balance = decimal.RequireFromString(balance)
	return w
}

func TestApplyTransfer_Success(t *testing.T) {
	store := NewMockWalletStore()
	l := NewBalanceLedger(store, nil)
	w := newTestWallet(t, AssetEthereum, "1.0")

	newBalance, err := l.ApplyTransfer(context.Background(), w,
		decimal.RequireFromString("0.5"), decimal.RequireFromString("0.00042"))
	require.NoError(t, err)

	want := decimal.RequireFromString("0.49958")
	assert.True(t, newBalance.Equal(want), "got %s", newBalance)
	assert.True(t, w.Balance.Equal(want))
	assert.Equal(t, 1, store.SaveCalls(), "exactly one durability write")

	saved, err := store.GetWallet(context.Background(), w.ID)
	require.NoError(t, err)
	assert.True(t, saved.Balance.Equal(want))
}

func TestApplyTransfer_ExactBalance(t *testing.T) {
	store := NewMockWalletStore()
	l := NewBalanceLedger(store, nil)
	w := newTestWallet(t, AssetBitcoin, "0.50015")

	newBalance, err := l.ApplyTransfer(context.Background(), w,
		decimal.RequireFromString("0.5"), decimal.RequireFromString("0.00015"))
	require.NoError(t, err)
	assert.True(t, newBalance.IsZero(), "got %s", newBalance)
}

func TestApplyTransfer_InsufficientFunds(t *testing.T) {
	store := NewMockWalletStore()
	l := NewBalanceLedger(store, nil)
	w := newTestWallet(t, AssetEthereum, "0.49958")

	_, err := l.ApplyTransfer(context.Background(), w,
		decimal.RequireFromString("0.6"), decimal.RequireFromString("0.00042"))
	require.Error(t, err)

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Balance.Equal(decimal.RequireFromString("0.49958")))
	assert.True(t, insufficient.Required.Equal(decimal.RequireFromString("0.60042")))

	// Wallet untouched, no durability write.
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("0.49958")))
	assert.Equal(t, 0, store.SaveCalls())
}

func TestApplyTransfer_StoreFailure(t *testing.T) {
	store := NewMockWalletStore()
	store.SetSaveError(errors.New("connection refused"))
	l := NewBalanceLedger(store, nil)
	w := newTestWallet(t, AssetEthereum, "1.0")

	newBalance, err := l.ApplyTransfer(context.Background(), w,
		decimal.RequireFromString("0.5"), decimal.RequireFromString("0.00042"))
	require.Error(t, err)

	var insufficient *InsufficientFundsError
	assert.False(t, errors.As(err, &insufficient), "store failure is not an insufficient-funds failure")

	// The in-memory deduction stands; only persistence failed.
	assert.True(t, newBalance.Equal(decimal.RequireFromString("0.49958")))
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("0.49958")))
}

func TestAddFunds(t *testing.T) {
	store := NewMockWalletStore()
	l := NewBalanceLedger(store, nil)
	w := newTestWallet(t, AssetBitcoin, "0")

	newBalance, err := l.AddFunds(context.Background(), w, decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.True(t, newBalance.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, 1, store.SaveCalls())
}

func TestAddFunds_NonPositive(t *testing.T) {
	store := NewMockWalletStore()
	l := NewBalanceLedger(store, nil)
	w := newTestWallet(t, AssetBitcoin, "1.0")

	for _, amount := range []string{"0", "-0.5"} {
		_, err := l.AddFunds(context.Background(), w, decimal.RequireFromString(amount))
		var invalid *ValidationError
		require.ErrorAs(t, err, &invalid, "amount %s", amount)
	}

	assert.True(t, w.Balance.Equal(decimal.RequireFromString("1.0")))
	assert.Equal(t, 0, store.SaveCalls())
}
