package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetKind identifies which simulated chain a wallet lives on.
// The string values are what gets persisted in the wallets.type column.
type AssetKind string

const (
	AssetBitcoin  AssetKind = "BITCOIN"
	AssetEthereum AssetKind = "ETHEREUM"
)

// ParseAssetKind converts a string to an AssetKind.
func ParseAssetKind(s string) (AssetKind, error) {
	switch AssetKind(s) {
	case AssetBitcoin:
		return AssetBitcoin, nil
	case AssetEthereum:
		return AssetEthereum, nil
	default:
		return "", &UnsupportedAssetKindError{Kind: AssetKind(s)}
	}
}

// Priority is the fee-speed tier a submitter selects.
// Tiers are ordered: economy < standard < fast.
type Priority string

const (
	PriorityEconomy  Priority = "ECONOMY"
	PriorityStandard Priority = "STANDARD"
	PriorityFast     Priority = "FAST"
)

// ParsePriority converts a string to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityEconomy, PriorityStandard, PriorityFast:
		return Priority(s), nil
	default:
		return "", &ValidationError{Reason: fmt.Sprintf("invalid priority %q (want ECONOMY, STANDARD, or FAST)", s)}
	}
}

// Status is the transaction lifecycle state.
// Transitions are monotonic: PENDING -> CONFIRMED or PENDING -> FAILED.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
)

// Wallet represents a simulated wallet holding a single asset.
// Balance is mutated only through the BalanceLedger.
type Wallet struct {
	ID        string
	Kind      AssetKind
	Address   string
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// NewWallet creates a wallet of the given kind with a freshly generated
// kind-appropriate address and a zero balance.
func NewWallet(kind AssetKind) (*Wallet, error) {
	address, err := GenerateAddress(kind)
	if err != nil {
		return nil, err
	}
	return &Wallet{
		ID:        uuid.NewString(),
		Kind:      kind,
		Address:   address,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Transaction records a submitted transfer. It is immutable except for
// FeeAmount (set once, before the transaction is handed to any reader)
// and Status (advanced by the confirmation sweep).
type Transaction struct {
	ID          string
	FromAddress string
	ToAddress   string
	Amount      decimal.Decimal
	Priority    Priority
	FeeAmount   *decimal.Decimal // nil until SetFee
	Status      Status
	CreatedAt   time.Time
	WalletID    string
}

// NewTransaction creates a PENDING transaction with a generated id.
func NewTransaction(fromAddress, toAddress string, amount decimal.Decimal, priority Priority, walletID string) *Transaction {
	return &Transaction{
		ID:          uuid.NewString(),
		FromAddress: fromAddress,
		ToAddress:   toAddress,
		Amount:      amount,
		Priority:    priority,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
		WalletID:    walletID,
	}
}

// SetFee assigns the computed fee. Callers set this exactly once, before
// the transaction becomes visible to the mempool or any store.
func (t *Transaction) SetFee(fee decimal.Decimal) {
	t.FeeAmount = &fee
}

// Fee returns the assigned fee, or zero if none was set.
func (t *Transaction) Fee() decimal.Decimal {
	if t.FeeAmount == nil {
		return decimal.Zero
	}
	return *t.FeeAmount
}
