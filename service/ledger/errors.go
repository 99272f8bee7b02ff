package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by stores when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports bad caller input (amount, address, priority).
// It is always recoverable and never leaves state mutated.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// InsufficientFundsError reports a transfer whose amount+fee exceeds the
// wallet balance. No state is mutated when it is returned.
type InsufficientFundsError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %s, required %s", e.Balance, e.Required)
}

// UnsupportedAssetKindError reports an asset kind outside the closed
// enumeration. It indicates a programming or configuration error and the
// call that produced it should not be retried.
type UnsupportedAssetKindError struct {
	Kind AssetKind
}

func (e *UnsupportedAssetKindError) Error() string {
	return fmt.Sprintf("unsupported asset kind %q", string(e.Kind))
}

// DurabilityError reports that a transfer settled against the in-memory
// balance but a durability write failed afterwards. The settled
// transaction is carried so callers can still report it; the store and
// the ledger may disagree until the operator reconciles them.
type DurabilityError struct {
	Tx  *Transaction
	Err error
}

func (e *DurabilityError) Error() string {
	return fmt.Sprintf("transaction %s settled but could not be fully persisted: %v", e.Tx.ID, e.Err)
}

func (e *DurabilityError) Unwrap() error {
	return e.Err
}
