package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simchain/walletsim/service/config"
	"github.com/simchain/walletsim/service/ledger"
	"github.com/simchain/walletsim/service/mempool"
	"github.com/simchain/walletsim/service/metrics"
)

// Server represents the HTTP server for the wallet simulator.
type Server struct {
	addr        string
	cfg         *config.Config
	walletStore ledger.WalletStore
	txStore     ledger.TransactionStore
	coordinator *ledger.Coordinator
	balances    *ledger.BalanceLedger
	pool        *mempool.Pool
	metrics     *metrics.Metrics
	logger      *slog.Logger
	server      *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, cfg *config.Config, walletStore ledger.WalletStore, txStore ledger.TransactionStore, balances *ledger.BalanceLedger, coordinator *ledger.Coordinator, pool *mempool.Pool, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:        addr,
		cfg:         cfg,
		walletStore: walletStore,
		txStore:     txStore,
		balances:    balances,
		coordinator: coordinator,
		pool:        pool,
		metrics:     m,
		logger:      logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := s.routes()

	// Wrap mux with CORS middleware
	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// routes builds the request mux. Split from Start so tests can exercise
// the full routing table without binding a listener.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Wallet routes
	mux.Handle("POST /api/v1/wallets", handleCreateWallet(s.walletStore, s.logger))
	mux.Handle("GET /api/v1/wallets", handleListWallets(s.walletStore, s.logger))
	mux.Handle("GET /api/v1/wallets/{id}", handleGetWallet(s.walletStore, s.logger))
	mux.Handle("POST /api/v1/wallets/{id}/deposits", handleDeposit(s.walletStore, s.balances, s.logger))
	mux.Handle("GET /api/v1/wallets/{id}/transactions", handleListWalletTransactions(s.walletStore, s.txStore, s.logger))
	mux.Handle("GET /api/v1/wallets/{id}/fee-quotes", handleFeeQuotes(s.walletStore, s.pool, s.logger))

	// Settlement routes
	mux.Handle("POST /api/v1/wallets/{id}/transfers", handleSubmitTransfer(s.walletStore, s.coordinator, s.pool, s.metrics, s.logger))

	// Mempool routes
	mux.Handle("GET /api/v1/mempool", handleGetMempool(s.pool, s.logger))
	mux.Handle("GET /api/v1/mempool/position/{txID}", handleMempoolPosition(s.pool, s.logger))
	mux.Handle("POST /api/v1/mempool/seed", handleSeedMempool(s.pool, s.metrics, s.logger))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return mux
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers for all requests
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
