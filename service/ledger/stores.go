package ledger

import "context"

// WalletStore is the durability collaborator for wallets.
// SaveWallet is an upsert keyed by wallet id: an update if the id exists,
// an insert otherwise. Lookups return ErrNotFound when no row matches.
type WalletStore interface {
	SaveWallet(ctx context.Context, w *Wallet) error
	GetWallet(ctx context.Context, id string) (*Wallet, error)
	GetWalletByAddress(ctx context.Context, address string) (*Wallet, error)
	ListWallets(ctx context.Context) ([]*Wallet, error)
}

// TransactionStore is the durability collaborator for transactions.
// UpdateTransactionStatus only advances PENDING rows; attempts to move a
// CONFIRMED or FAILED transaction return ErrNotFound.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	ListPendingTransactions(ctx context.Context) ([]*Transaction, error)
	ListTransactionsByWallet(ctx context.Context, walletID string) ([]*Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, status Status) error
}
