// Package mempool holds the process-local pool of submitted but not yet
// confirmed transactions, ordered by fee to simulate miner prioritization.
package mempool

import (
	"errors"
	"iter"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simchain/walletsim/service/ledger"
)

// ErrNilTransaction is returned when a nil transaction is enqueued.
var ErrNilTransaction = errors.New("mempool: nil transaction")

// BlockInterval is the simulated time between confirmations; a
// transaction at position n is estimated to confirm after n intervals.
const BlockInterval = 10 * time.Minute

// A source address shorter than this is treated as synthetic demo load.
// The generator below emits 10-byte addresses; the shortest real format
// (bech32-style) is 33 bytes.
const syntheticAddressLen = 20

// Pool is the in-memory pending-transaction set. Ranks are derived, not
// stored: every query recomputes the fee-descending order so readers
// never see a stale ranking. Safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	entries []*ledger.Transaction
	logger  *slog.Logger
}

// New creates an empty pool.
func New(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{logger: logger}
}

// Enqueue appends a transaction to the pool. No ordering happens at
// insert time; insertion order is remembered only as the tie-break.
func (p *Pool) Enqueue(tx *ledger.Transaction) error {
	if tx == nil {
		return ErrNilTransaction
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, tx)
	return nil
}

// RankedByFeeDesc returns a restartable sequence of the pooled
// transactions ordered by fee descending. Entries with an unset fee are
// excluded. Ties keep insertion order, so two transactions at the same
// tier always rank the same way. Each range re-sorts a fresh snapshot.
func (p *Pool) RankedByFeeDesc() iter.Seq[*ledger.Transaction] {
	return func(yield func(*ledger.Transaction) bool) {
		for _, tx := range p.ranked() {
			if !yield(tx) {
				return
			}
		}
	}
}

// ranked snapshots the entries with a fee and stable-sorts them.
func (p *Pool) ranked() []*ledger.Transaction {
	p.mu.Lock()
	snapshot := make([]*ledger.Transaction, 0, len(p.entries))
	for _, tx := range p.entries {
		if tx.FeeAmount != nil {
			snapshot = append(snapshot, tx)
		}
	}
	p.mu.Unlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].FeeAmount.GreaterThan(*snapshot[j].FeeAmount)
	})
	return snapshot
}

// PositionOf returns the 1-based rank of the transaction id in the
// fee-descending order, or -1 when the id is not pooled.
func (p *Pool) PositionOf(id string) int {
	for i, tx := range p.ranked() {
		if tx.ID == id {
			return i + 1
		}
	}
	return -1
}

// HypotheticalPosition returns the 1-based rank a transaction carrying
// candidateFee would occupy, without mutating the pool: one plus the
// number of entries with a strictly greater fee.
func (p *Pool) HypotheticalPosition(candidateFee decimal.Decimal) int {
	pos := 1
	for _, tx := range p.ranked() {
		if tx.FeeAmount.GreaterThan(candidateFee) {
			pos++
		}
	}
	return pos
}

// EstimatedConfirmation returns position × BlockInterval for the given
// transaction id, or zero when the id is not pooled. Callers that need
// to distinguish "absent" from "front of the queue" check PositionOf.
func (p *Pool) EstimatedConfirmation(id string) time.Duration {
	pos := p.PositionOf(id)
	if pos < 0 {
		return 0
	}
	return time.Duration(pos) * BlockInterval
}

// Size returns the number of pooled transactions, fee set or not.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// SeedSyntheticLoad replaces the pool's synthetic entries with count
// freshly generated ones carrying random fees in a small fixed range.
// Real user submissions are preserved, so repeated demo refreshes never
// discard an operator's in-flight transaction.
func (p *Pool) SeedSyntheticLoad(count int) {
	if count < 0 {
		count = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.entries[:0]
	for _, tx := range p.entries {
		if !isSynthetic(tx) {
			kept = append(kept, tx)
		}
	}
	p.entries = kept

	feeStep := decimal.New(10, -8) // 0.00000010
	for range count {
		tx := ledger.NewTransaction(syntheticAddress(), syntheticAddress(), decimal.NewFromFloat(0.01), ledger.PriorityStandard, uuid.NewString())
		tx.SetFee(decimal.NewFromInt(int64(rand.Intn(90) + 1)).Mul(feeStep))
		p.entries = append(p.entries, tx)
	}

	p.logger.Debug("seeded synthetic mempool load",
		"synthetic", count,
		"preserved", len(kept),
	)
}

// isSynthetic classifies a pool entry by its source address length.
func isSynthetic(tx *ledger.Transaction) bool {
	return len(tx.FromAddress) < syntheticAddressLen
}

// syntheticAddress builds a deliberately short 0x-prefixed address so
// seeded entries are distinguishable from real submissions.
func syntheticAddress() string {
	const hex = "0123456789abcdef"
	b := make([]byte, 0, 10)
	b = append(b, '0', 'x')
	for range 8 {
		b = append(b, hex[rand.Intn(len(hex))])
	}
	return string(b)
}
