package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFee_ExactValues(t *testing.T) {
	tests := []struct {
		name     string
		kind     AssetKind
		priority Priority
		want     string
	}{
		{"bitcoin economy", AssetBitcoin, PriorityEconomy, "0.0000125"},
		{"bitcoin standard", AssetBitcoin, PriorityStandard, "0.00005"},
		{"bitcoin fast", AssetBitcoin, PriorityFast, "0.00015"},
		{"ethereum economy", AssetEthereum, PriorityEconomy, "0.000105"},
		{"ethereum standard", AssetEthereum, PriorityStandard, "0.00042"},
		{"ethereum fast", AssetEthereum, PriorityFast, "0.00126"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, err := Fee(tt.kind, tt.priority)
			require.NoError(t, err)
			assert.True(t, fee.Equal(decimal.RequireFromString(tt.want)),
				"want %s, got %s", tt.want, fee)
		})
	}
}

func TestFee_Deterministic(t *testing.T) {
	first, err := Fee(AssetEthereum, PriorityStandard)
	require.NoError(t, err)
	for range 10 {
		again, err := Fee(AssetEthereum, PriorityStandard)
		require.NoError(t, err)
		assert.True(t, first.Equal(again))
	}
}

func TestFee_MonotonicInPriority(t *testing.T) {
	for _, kind := range []AssetKind{AssetBitcoin, AssetEthereum} {
		economy, err := Fee(kind, PriorityEconomy)
		require.NoError(t, err)
		standard, err := Fee(kind, PriorityStandard)
		require.NoError(t, err)
		fast, err := Fee(kind, PriorityFast)
		require.NoError(t, err)

		assert.True(t, standard.GreaterThan(economy), "%s: standard > economy", kind)
		assert.True(t, fast.GreaterThan(standard), "%s: fast > standard", kind)
	}
}

func TestFee_UnsupportedKind(t *testing.T) {
	_, err := Fee(AssetKind("DOGECOIN"), PriorityStandard)
	require.Error(t, err)

	var unsupported *UnsupportedAssetKindError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, AssetKind("DOGECOIN"), unsupported.Kind)
}

func TestFee_FallbackRateForUnknownTier(t *testing.T) {
	// The default branch is unreachable for parsed priorities; it exists
	// as a defensive rate for raw tier values.
	btc, err := Fee(AssetBitcoin, Priority("TURBO"))
	require.NoError(t, err)
	assert.True(t, btc.Equal(decimal.RequireFromString("0.000025")), "got %s", btc)

	eth, err := Fee(AssetEthereum, Priority("TURBO"))
	require.NoError(t, err)
	assert.True(t, eth.Equal(decimal.RequireFromString("0.00021")), "got %s", eth)
}
