package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "walletsim",
		Usage: "Crypto wallet settlement simulator CLI",
		Description: `A command-line tool for managing and debugging the walletsim service.

Use this CLI to create and fund wallets, submit transfers, inspect the
mempool, and query database state.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			// Database inspection commands
			{
				Name:  "db",
				Usage: "Database inspection commands",
				Subcommands: []*cli.Command{
					migrateCommand(),
					listWalletsCommand(),
					getWalletCommand(),
					listTransactionsCommand(),
				},
			},
			// Wallet commands (HTTP API)
			{
				Name:  "wallet",
				Usage: "Wallet operations over the HTTP API",
				Subcommands: []*cli.Command{
					createWalletCommand(),
					fundWalletCommand(),
					sendTransferCommand(),
					feeQuoteCommand(),
					walletTransactionsCommand(),
				},
			},
			// Mempool commands (HTTP API)
			{
				Name:  "mempool",
				Usage: "Mempool inspection and seeding over the HTTP API",
				Subcommands: []*cli.Command{
					mempoolListCommand(),
					mempoolPositionCommand(),
					mempoolSeedCommand(),
				},
			},
			// Server utility commands
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "HTTP server URL",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
