package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/simchain/walletsim/service/db"
	"github.com/simchain/walletsim/service/ledger"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the database schema if it does not exist",
		Action: func(c *cli.Context) error {
			pool, closer, err := getPool(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := db.EnsureSchema(context.Background(), pool); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}

			fmt.Println("schema is up to date")
			return nil
		},
	}
}

func listWalletsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-wallets",
		Usage:   "List all wallets",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Filter by asset type (BITCOIN, ETHEREUM)",
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			wallets, err := store.ListWallets(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list wallets: %w", err)
			}

			// Filter by type if specified
			typeFilter := c.String("type")
			if typeFilter != "" {
				filtered := make([]*ledger.Wallet, 0)
				for _, w := range wallets {
					if string(w.Kind) == typeFilter {
						filtered = append(filtered, w)
					}
				}
				wallets = filtered
			}

			if c.Bool("json") {
				return outputJSON(wallets)
			}

			// Pretty table output
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tADDRESS\tBALANCE\tCREATED")
			for _, wallet := range wallets {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					wallet.ID,
					wallet.Kind,
					wallet.Address,
					wallet.Balance.String(),
					wallet.CreatedAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d wallets\n", len(wallets))
			return nil
		},
	}
}

func getWalletCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-wallet",
		Usage:     "Get wallet details",
		Aliases:   []string{"get"},
		ArgsUsage: "<wallet-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet id")
			}

			id := c.Args().First()
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			wallet, err := store.GetWallet(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to get wallet: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(wallet)
			}

			// Pretty output
			fmt.Printf("ID:      %s\n", wallet.ID)
			fmt.Printf("Type:    %s\n", wallet.Kind)
			fmt.Printf("Address: %s\n", wallet.Address)
			fmt.Printf("Balance: %s\n", wallet.Balance.String())
			fmt.Printf("Created: %s\n", wallet.CreatedAt.Format(time.RFC3339))

			return nil
		},
	}
}

func listTransactionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-transactions",
		Usage:   "List transactions",
		Aliases: []string{"txs"},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "wallet",
				Aliases: []string{"w"},
				Usage:   "Filter by wallet id",
			},
			&cli.BoolFlag{
				Name:  "pending",
				Usage: "Show only pending transactions, ranked by fee",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: json (default) or human",
				Value: "json",
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			var transactions []*ledger.Transaction

			walletID := c.String("wallet")
			switch {
			case c.Bool("pending"):
				transactions, err = store.ListPendingTransactions(context.Background())
				if err != nil {
					return fmt.Errorf("failed to get pending transactions: %w", err)
				}
			case walletID != "":
				transactions, err = store.ListTransactionsByWallet(context.Background(), walletID)
				if err != nil {
					return fmt.Errorf("failed to get transactions: %w", err)
				}
			default:
				return fmt.Errorf("please specify --wallet or --pending to list transactions")
			}

			format := c.String("format")

			// Default to JSON output (stdout = JSON)
			if format == "json" {
				return outputJSON(transactions)
			}

			// Human-readable output
			if len(transactions) == 0 {
				fmt.Println("No transactions found")
				return nil
			}

			for i, tx := range transactions {
				if i > 0 {
					fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
				}

				fmt.Printf("ID:         %s\n", tx.ID)
				fmt.Printf("From:       %s\n", tx.FromAddress)
				fmt.Printf("To:         %s\n", tx.ToAddress)
				fmt.Printf("Amount:     %s\n", tx.Amount.String())
				fmt.Printf("Priority:   %s\n", tx.Priority)
				fmt.Printf("Fee:        %s\n", tx.Fee().String())
				fmt.Printf("Status:     %s\n", tx.Status)
				fmt.Printf("Wallet:     %s\n", tx.WalletID)
				fmt.Printf("Created At: %s\n", tx.CreatedAt.Format(time.RFC3339))
			}

			fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			fmt.Fprintf(os.Stderr, "\nTotal: %d transactions\n", len(transactions))
			return nil
		},
	}
}

// Helper function to connect to database
func getPool(c *cli.Context) (*pgxpool.Pool, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, func() { pool.Close() }, nil
}

func getStore(c *cli.Context) (*db.Store, func(), error) {
	pool, closer, err := getPool(c)
	if err != nil {
		return nil, nil, err
	}
	return db.NewStore(pool), closer, nil
}

// Helper function to output JSON
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
