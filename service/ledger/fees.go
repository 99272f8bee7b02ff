package ledger

import "github.com/shopspring/decimal"

// Simplified flat-rate fee models. Both are intentionally size/gas
// agnostic: a fixed transaction shape priced by priority tier.
const (
	btcTxSizeBytes = 250
	btcSatsPerUnit = 100_000_000

	ethGasUnits = 21_000
)

// feeFunc computes the fee for one priority tier of one asset kind.
type feeFunc func(priority Priority) decimal.Decimal

// feeSchedules dispatches fee computation by asset kind. Adding a kind
// means adding an entry here and to the address table.
var feeSchedules = map[AssetKind]feeFunc{
	AssetBitcoin:  bitcoinFee,
	AssetEthereum: ethereumFee,
}

// Fee returns the fee for a transfer of the given kind and priority,
// expressed in the asset's base unit. It is pure and deterministic; the
// only failure is an asset kind outside the enumeration.
func Fee(kind AssetKind, priority Priority) (decimal.Decimal, error) {
	fn, ok := feeSchedules[kind]
	if !ok {
		return decimal.Zero, &UnsupportedAssetKindError{Kind: kind}
	}
	return fn(priority), nil
}

func bitcoinFee(priority Priority) decimal.Decimal {
	var satPerByte int64
	switch priority {
	case PriorityEconomy:
		satPerByte = 5
	case PriorityStandard:
		satPerByte = 20
	case PriorityFast:
		satPerByte = 60
	default:
		// Unreachable for parsed input; defensive default rate.
		satPerByte = 10
	}
	sats := decimal.NewFromInt(btcTxSizeBytes * satPerByte)
	return sats.Div(decimal.NewFromInt(btcSatsPerUnit))
}

func ethereumFee(priority Priority) decimal.Decimal {
	var gasPriceGwei int64
	switch priority {
	case PriorityEconomy:
		gasPriceGwei = 5
	case PriorityStandard:
		gasPriceGwei = 20
	case PriorityFast:
		gasPriceGwei = 60
	default:
		gasPriceGwei = 10
	}
	// 1 gwei = 1e-9 of the base unit.
	gwei := decimal.NewFromInt(ethGasUnits * gasPriceGwei)
	return gwei.Mul(decimal.New(1, -9))
}
