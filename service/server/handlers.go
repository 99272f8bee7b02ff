package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simchain/walletsim/service/ledger"
	"github.com/simchain/walletsim/service/mempool"
	"github.com/simchain/walletsim/service/metrics"
)

const maxRequestBodySize = 1 << 20 // 1MB - plenty for any request here

// handleCreateWallet returns a handler that creates a wallet for an asset kind.
// POST /api/v1/wallets
func handleCreateWallet(store ledger.WalletStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Type string `json:"type"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			logger.Debug("failed to decode create wallet request", "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		kind, err := ledger.ParseAssetKind(req.Type)
		if err != nil {
			logger.Debug("invalid asset kind", "type", req.Type, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		wallet, err := ledger.NewWallet(kind)
		if err != nil {
			logger.Error("failed to create wallet", "type", req.Type, "error", err)
			writeError(w, "failed to create wallet", http.StatusInternalServerError)
			return
		}

		if err := store.SaveWallet(r.Context(), wallet); err != nil {
			logger.Error("failed to save wallet", "wallet_id", wallet.ID, "error", err)
			writeError(w, "failed to save wallet", http.StatusInternalServerError)
			return
		}

		logger.Info("wallet created", "wallet_id", wallet.ID, "type", kind, "address", wallet.Address)
		writeJSON(w, walletToResponse(wallet), http.StatusCreated)
	})
}

// handleGetWallet returns a handler that retrieves a wallet by id.
// GET /api/v1/wallets/{id}
func handleGetWallet(store ledger.WalletStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		wallet, err := store.GetWallet(r.Context(), id)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				writeError(w, "wallet not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get wallet", "wallet_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, walletToResponse(wallet), http.StatusOK)
	})
}

// handleListWallets returns a handler that lists all wallets.
// GET /api/v1/wallets
func handleListWallets(store ledger.WalletStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wallets, err := store.ListWallets(r.Context())
		if err != nil {
			logger.Error("failed to list wallets", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Debug("wallets listed", "count", len(wallets))

		resp := make([]walletResponse, len(wallets))
		for i, wallet := range wallets {
			resp[i] = walletToResponse(wallet)
		}

		writeJSON(w, map[string]interface{}{
			"wallets": resp,
		}, http.StatusOK)
	})
}

// handleDeposit returns a handler that credits funds to a wallet.
// POST /api/v1/wallets/{id}/deposits
func handleDeposit(store ledger.WalletStore, balances *ledger.BalanceLedger, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		id := r.PathValue("id")

		var req struct {
			Amount string `json:"amount"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeError(w, "invalid amount: must be a decimal string", http.StatusBadRequest)
			return
		}

		wallet, err := store.GetWallet(r.Context(), id)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				writeError(w, "wallet not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get wallet", "wallet_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		previous := wallet.Balance
		newBalance, err := balances.AddFunds(r.Context(), wallet, amount)
		if err != nil {
			var vErr *ledger.ValidationError
			if errors.As(err, &vErr) {
				writeError(w, vErr.Error(), http.StatusBadRequest)
				return
			}
			logger.Error("failed to add funds", "wallet_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Info("funds deposited", "wallet_id", id, "amount", amount.String())
		writeJSON(w, map[string]string{
			"wallet_id":        id,
			"previous_balance": previous.String(),
			"balance":          newBalance.String(),
		}, http.StatusOK)
	})
}

// handleSubmitTransfer returns a handler that submits a transfer through
// the settlement coordinator.
// POST /api/v1/wallets/{id}/transfers
func handleSubmitTransfer(store ledger.WalletStore, coordinator *ledger.Coordinator, pool *mempool.Pool, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		start := time.Now()
		id := r.PathValue("id")

		var req struct {
			ToAddress string `json:"to_address"`
			Amount    string `json:"amount"`
			Priority  string `json:"priority"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeError(w, "invalid amount: must be a decimal string", http.StatusBadRequest)
			return
		}

		priority := ledger.PriorityStandard
		if req.Priority != "" {
			priority, err = ledger.ParsePriority(req.Priority)
			if err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		wallet, err := store.GetWallet(r.Context(), id)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				writeError(w, "wallet not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get wallet", "wallet_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		tx, err := coordinator.Submit(r.Context(), wallet, req.ToAddress, amount, priority)
		if err != nil {
			status, body := transferErrorResponse(err, tx)
			if m != nil {
				m.RecordSubmission(string(wallet.Kind), string(priority), outcomeLabel(err), time.Since(start).Seconds())
				var fundsErr *ledger.InsufficientFundsError
				if errors.As(err, &fundsErr) {
					m.RecordInsufficientFunds(string(wallet.Kind))
				}
			}
			logger.Info("transfer rejected", "wallet_id", id, "error", err)
			writeJSON(w, body, status)
			return
		}

		if m != nil {
			m.RecordSubmission(string(wallet.Kind), string(priority), "accepted", time.Since(start).Seconds())
			fee, _ := tx.Fee().Float64()
			m.RecordFeeCharged(string(wallet.Kind), string(priority), fee)
		}

		logger.Info("transfer submitted",
			"wallet_id", id,
			"transaction_id", tx.ID,
			"amount", amount.String(),
			"fee", tx.Fee().String(),
			"priority", priority,
		)

		position := pool.PositionOf(tx.ID)
		writeJSON(w, map[string]interface{}{
			"transaction":       transactionToResponse(tx),
			"balance":           wallet.Balance.String(),
			"position":          position,
			"estimated_wait_ms": pool.EstimatedConfirmation(tx.ID).Milliseconds(),
		}, http.StatusCreated)
	})
}

// transferErrorResponse maps a settlement error to a status code and body.
func transferErrorResponse(err error, tx *ledger.Transaction) (int, interface{}) {
	var fundsErr *ledger.InsufficientFundsError
	if errors.As(err, &fundsErr) {
		return http.StatusPaymentRequired, map[string]string{
			"error":    fundsErr.Error(),
			"balance":  fundsErr.Balance.String(),
			"required": fundsErr.Required.String(),
		}
	}

	var vErr *ledger.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, map[string]string{"error": vErr.Error()}
	}

	var kindErr *ledger.UnsupportedAssetKindError
	if errors.As(err, &kindErr) {
		return http.StatusBadRequest, map[string]string{"error": kindErr.Error()}
	}

	var durErr *ledger.DurabilityError
	if errors.As(err, &durErr) {
		// The deduction settled; only the record keeping failed. Surface
		// the transaction so the caller can reconcile.
		body := map[string]interface{}{
			"error": "transfer settled but could not be fully recorded",
		}
		if durErr.Tx != nil {
			body["transaction"] = transactionToResponse(durErr.Tx)
		}
		return http.StatusInternalServerError, body
	}

	return http.StatusInternalServerError, map[string]string{"error": "internal server error"}
}

func outcomeLabel(err error) string {
	var fundsErr *ledger.InsufficientFundsError
	if errors.As(err, &fundsErr) {
		return "insufficient_funds"
	}
	var vErr *ledger.ValidationError
	if errors.As(err, &vErr) {
		return "invalid"
	}
	return "error"
}

// handleListWalletTransactions returns a handler listing a wallet's transactions.
// GET /api/v1/wallets/{id}/transactions
func handleListWalletTransactions(walletStore ledger.WalletStore, txStore ledger.TransactionStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		if _, err := walletStore.GetWallet(r.Context(), id); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				writeError(w, "wallet not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get wallet", "wallet_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		txs, err := txStore.ListTransactionsByWallet(r.Context(), id)
		if err != nil {
			logger.Error("failed to list transactions", "wallet_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]transactionResponse, len(txs))
		for i, tx := range txs {
			resp[i] = transactionToResponse(tx)
		}

		writeJSON(w, map[string]interface{}{
			"wallet_id":    id,
			"transactions": resp,
		}, http.StatusOK)
	})
}

// handleFeeQuotes returns a handler that quotes the fee, hypothetical
// mempool position, and estimated wait for each priority tier.
// GET /api/v1/wallets/{id}/fee-quotes
func handleFeeQuotes(store ledger.WalletStore, pool *mempool.Pool, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		wallet, err := store.GetWallet(r.Context(), id)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				writeError(w, "wallet not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get wallet", "wallet_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		quotes := make([]feeQuoteResponse, 0, 3)
		for _, priority := range []ledger.Priority{ledger.PriorityEconomy, ledger.PriorityStandard, ledger.PriorityFast} {
			fee, err := ledger.Fee(wallet.Kind, priority)
			if err != nil {
				logger.Error("failed to quote fee", "wallet_id", id, "priority", priority, "error", err)
				writeError(w, "internal server error", http.StatusInternalServerError)
				return
			}

			position := pool.HypotheticalPosition(fee)
			quotes = append(quotes, feeQuoteResponse{
				Priority:        string(priority),
				Fee:             fee.String(),
				Position:        position,
				EstimatedWaitMS: (time.Duration(position) * mempool.BlockInterval).Milliseconds(),
			})
		}

		writeJSON(w, map[string]interface{}{
			"wallet_id": id,
			"asset":     string(wallet.Kind),
			"quotes":    quotes,
		}, http.StatusOK)
	})
}

// handleGetMempool returns a handler that lists the mempool in fee order.
// GET /api/v1/mempool
func handleGetMempool(pool *mempool.Pool, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := make([]transactionResponse, 0, pool.Size())
		for tx := range pool.RankedByFeeDesc() {
			resp = append(resp, transactionToResponse(tx))
		}

		logger.Debug("mempool listed", "count", len(resp))

		writeJSON(w, map[string]interface{}{
			"size":         pool.Size(),
			"transactions": resp,
		}, http.StatusOK)
	})
}

// handleMempoolPosition returns a handler reporting a transaction's queue
// position and estimated confirmation wait.
// GET /api/v1/mempool/position/{txID}
func handleMempoolPosition(pool *mempool.Pool, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		txID := r.PathValue("txID")

		position := pool.PositionOf(txID)
		if position < 0 {
			writeError(w, "transaction not found in mempool", http.StatusNotFound)
			return
		}

		writeJSON(w, map[string]interface{}{
			"transaction_id":    txID,
			"position":          position,
			"estimated_wait_ms": pool.EstimatedConfirmation(txID).Milliseconds(),
		}, http.StatusOK)
	})
}

// handleSeedMempool returns a handler that replaces the synthetic mempool
// load with a freshly generated batch.
// POST /api/v1/mempool/seed
func handleSeedMempool(pool *mempool.Pool, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Count int `json:"count"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.Count < 0 {
			writeError(w, "count must not be negative", http.StatusBadRequest)
			return
		}

		pool.SeedSyntheticLoad(req.Count)

		if m != nil {
			m.RecordSyntheticSeeds(req.Count)
			m.RecordMempoolSize(pool.Size())
		}

		logger.Info("mempool seeded", "count", req.Count, "size", pool.Size())

		writeJSON(w, map[string]interface{}{
			"seeded": req.Count,
			"size":   pool.Size(),
		}, http.StatusOK)
	})
}

// Response types

type walletResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Address   string    `json:"address"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

func walletToResponse(w *ledger.Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		Type:      string(w.Kind),
		Address:   w.Address,
		Balance:   w.Balance.String(),
		CreatedAt: w.CreatedAt,
	}
}

type transactionResponse struct {
	ID          string    `json:"id"`
	FromAddress string    `json:"from_address"`
	ToAddress   string    `json:"to_address"`
	Amount      string    `json:"amount"`
	Priority    string    `json:"priority"`
	Fee         string    `json:"fee"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	WalletID    string    `json:"wallet_id,omitempty"`
}

func transactionToResponse(tx *ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		FromAddress: tx.FromAddress,
		ToAddress:   tx.ToAddress,
		Amount:      tx.Amount.String(),
		Priority:    string(tx.Priority),
		Fee:         tx.Fee().String(),
		Status:      string(tx.Status),
		CreatedAt:   tx.CreatedAt,
		WalletID:    tx.WalletID,
	}
}

type feeQuoteResponse struct {
	Priority        string `json:"priority"`
	Fee             string `json:"fee"`
	Position        int    `json:"position"`
	EstimatedWaitMS int64  `json:"estimated_wait_ms"`
}

// Helpers

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if strings.Contains(err.Error(), "http: request body too large") {
			return errors.New("request body too large: maximum size is 1MB")
		}
		return errors.New("invalid request body: must be valid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
