package mempool

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simchain/walletsim/service/ledger"
)

// realTx builds a pool entry with a full-length source address so it is
// never classified as synthetic.
func realTx(t *testing.T, fee string) *ledger.Transaction {
	t.Helper()
	tx := ledger.NewTransaction(
		"0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be",
		"0x9bf4001d307dfd62b26a2f1307ee0c0307632d59",
		decimal.RequireFromString("0.01"),
		ledger.PriorityStandard,
		"wallet-1",
	)
	if fee != "" {
		tx.SetFee(decimal.RequireFromString(fee))
	}
	return tx
}

func rankedFees(p *Pool) []string {
	var fees []string
	for tx := range p.RankedByFeeDesc() {
		fees = append(fees, tx.Fee().String())
	}
	return fees
}

func TestRankedByFeeDesc(t *testing.T) {
	p := New(nil)
	for _, fee := range []string{"0.3", "0.1", "0.2"} {
		require.NoError(t, p.Enqueue(realTx(t, fee)))
	}

	assert.Equal(t, []string{"0.3", "0.2", "0.1"}, rankedFees(p))
}

func TestRankedByFeeDesc_ExcludesUnsetFee(t *testing.T) {
	p := New(nil)
	require.NoError(t, p.Enqueue(realTx(t, "0.2")))
	require.NoError(t, p.Enqueue(realTx(t, ""))) // fee never set
	require.NoError(t, p.Enqueue(realTx(t, "0.1")))

	assert.Equal(t, []string{"0.2", "0.1"}, rankedFees(p))
	assert.Equal(t, 3, p.Size())
}

func TestRankedByFeeDesc_StableTies(t *testing.T) {
	p := New(nil)
	first := realTx(t, "0.2")
	second := realTx(t, "0.2")
	third := realTx(t, "0.2")
	for _, tx := range []*ledger.Transaction{first, second, third} {
		require.NoError(t, p.Enqueue(tx))
	}

	var ids []string
	for tx := range p.RankedByFeeDesc() {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, ids,
		"equal fees keep insertion order")
}

func TestRankedByFeeDesc_Restartable(t *testing.T) {
	p := New(nil)
	for _, fee := range []string{"0.3", "0.1", "0.2"} {
		require.NoError(t, p.Enqueue(realTx(t, fee)))
	}

	seq := p.RankedByFeeDesc()

	// Early break, then a fresh full pass over the same sequence value.
	for range seq {
		break
	}
	var fees []string
	for tx := range seq {
		fees = append(fees, tx.Fee().String())
	}
	assert.Equal(t, []string{"0.3", "0.2", "0.1"}, fees)
}

func TestPositionOf(t *testing.T) {
	p := New(nil)
	low := realTx(t, "0.1")
	high := realTx(t, "0.3")
	mid := realTx(t, "0.2")
	for _, tx := range []*ledger.Transaction{low, high, mid} {
		require.NoError(t, p.Enqueue(tx))
	}

	assert.Equal(t, 1, p.PositionOf(high.ID))
	assert.Equal(t, 2, p.PositionOf(mid.ID))
	assert.Equal(t, 3, p.PositionOf(low.ID))
	assert.Equal(t, -1, p.PositionOf("no-such-id"))
}

func TestPositionOf_MatchesHypotheticalIdentity(t *testing.T) {
	// For a pooled transaction with a unique fee:
	// positionOf(t) == 1 + count(entries with fee > t.fee).
	p := New(nil)
	var txs []*ledger.Transaction
	for _, fee := range []string{"0.05", "0.4", "0.15", "0.25", "0.35"} {
		tx := realTx(t, fee)
		txs = append(txs, tx)
		require.NoError(t, p.Enqueue(tx))
	}

	for _, tx := range txs {
		greater := 0
		for other := range p.RankedByFeeDesc() {
			if other.Fee().GreaterThan(tx.Fee()) {
				greater++
			}
		}
		assert.Equal(t, 1+greater, p.PositionOf(tx.ID), "fee %s", tx.Fee())
	}
}

func TestHypotheticalPosition(t *testing.T) {
	p := New(nil)
	for _, fee := range []string{"0.3", "0.1", "0.2"} {
		require.NoError(t, p.Enqueue(realTx(t, fee)))
	}

	tests := []struct {
		fee  string
		want int
	}{
		{"0.5", 1},
		{"0.25", 2},
		{"0.2", 2}, // strictly-greater count: the equal 0.2 entry does not push it back
		{"0.15", 3},
		{"0.05", 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.HypotheticalPosition(decimal.RequireFromString(tt.fee)), "fee %s", tt.fee)
	}
}

func TestHypotheticalPosition_DoesNotMutate(t *testing.T) {
	p := New(nil)
	for _, fee := range []string{"0.3", "0.1"} {
		require.NoError(t, p.Enqueue(realTx(t, fee)))
	}

	for range 5 {
		p.HypotheticalPosition(decimal.RequireFromString("0.2"))
	}
	assert.Equal(t, 2, p.Size())
	assert.Equal(t, []string{"0.3", "0.1"}, rankedFees(p))
}

func TestEstimatedConfirmation(t *testing.T) {
	p := New(nil)
	high := realTx(t, "0.3")
	low := realTx(t, "0.1")
	require.NoError(t, p.Enqueue(high))
	require.NoError(t, p.Enqueue(low))

	assert.Equal(t, 10*time.Minute, p.EstimatedConfirmation(high.ID))
	assert.Equal(t, 20*time.Minute, p.EstimatedConfirmation(low.ID))

	// Not pooled: zero duration, -1 position.
	assert.Equal(t, time.Duration(0), p.EstimatedConfirmation("no-such-id"))
	assert.Equal(t, -1, p.PositionOf("no-such-id"))
}

func TestEnqueue_Nil(t *testing.T) {
	p := New(nil)
	require.ErrorIs(t, p.Enqueue(nil), ErrNilTransaction)
	assert.Equal(t, 0, p.Size())
}

func TestSeedSyntheticLoad(t *testing.T) {
	p := New(nil)
	mine := realTx(t, "0.0001")
	require.NoError(t, p.Enqueue(mine))

	p.SeedSyntheticLoad(25)
	assert.Equal(t, 26, p.Size())
	assert.NotEqual(t, -1, p.PositionOf(mine.ID), "real submission preserved")

	// Reseeding replaces the synthetic entries, never the real one.
	p.SeedSyntheticLoad(10)
	assert.Equal(t, 11, p.Size())
	assert.NotEqual(t, -1, p.PositionOf(mine.ID))

	synthetic := 0
	for tx := range p.RankedByFeeDesc() {
		if tx.ID == mine.ID {
			continue
		}
		synthetic++
		// Fees land in the fixed range (1..90) * 0.00000010.
		assert.True(t, tx.Fee().GreaterThanOrEqual(decimal.RequireFromString("0.0000001")), "fee %s", tx.Fee())
		assert.True(t, tx.Fee().LessThanOrEqual(decimal.RequireFromString("0.000009")), "fee %s", tx.Fee())
		// Each fee is a whole multiple of the 0.00000010 step.
		steps := tx.Fee().Div(decimal.RequireFromString("0.0000001"))
		assert.True(t, steps.Equal(steps.Truncate(0)), "fee %s is not a step multiple", tx.Fee())
	}
	assert.Equal(t, 10, synthetic)
}

func TestSeedSyntheticLoad_NegativeCountClearsSynthetic(t *testing.T) {
	p := New(nil)
	mine := realTx(t, "0.0001")
	require.NoError(t, p.Enqueue(mine))
	p.SeedSyntheticLoad(5)

	p.SeedSyntheticLoad(-1)
	assert.Equal(t, 1, p.Size())
	assert.Equal(t, 1, p.PositionOf(mine.ID))
}
