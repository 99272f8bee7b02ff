package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func createWalletCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a wallet for an asset type",
		ArgsUsage: "<BITCOIN|ETHEREUM>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: asset type")
			}

			result, err := apiRequest(c, http.MethodPost, "/api/v1/wallets", map[string]string{
				"type": c.Args().First(),
			})
			if err != nil {
				return err
			}

			return outputJSON(result)
		},
	}
}

func fundWalletCommand() *cli.Command {
	return &cli.Command{
		Name:      "fund",
		Usage:     "Deposit funds into a wallet",
		ArgsUsage: "<wallet-id> <amount>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("requires two arguments: wallet id and amount")
			}

			id := c.Args().Get(0)
			amount := c.Args().Get(1)

			result, err := apiRequest(c, http.MethodPost, "/api/v1/wallets/"+id+"/deposits", map[string]string{
				"amount": amount,
			})
			if err != nil {
				return err
			}

			return outputJSON(result)
		},
	}
}

func sendTransferCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Submit a transfer from a wallet",
		ArgsUsage: "<wallet-id> <to-address> <amount>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "priority",
				Aliases: []string{"p"},
				Value:   "STANDARD",
				Usage:   "Fee priority tier (ECONOMY, STANDARD, FAST)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return fmt.Errorf("requires three arguments: wallet id, destination address, amount")
			}

			id := c.Args().Get(0)
			result, err := apiRequest(c, http.MethodPost, "/api/v1/wallets/"+id+"/transfers", map[string]string{
				"to_address": c.Args().Get(1),
				"amount":     c.Args().Get(2),
				"priority":   c.String("priority"),
			})
			if err != nil {
				return err
			}

			return outputJSON(result)
		},
	}
}

func feeQuoteCommand() *cli.Command {
	return &cli.Command{
		Name:      "quote",
		Usage:     "Quote fees and queue positions for each priority tier",
		ArgsUsage: "<wallet-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet id")
			}

			result, err := apiRequest(c, http.MethodGet, "/api/v1/wallets/"+c.Args().First()+"/fee-quotes", nil)
			if err != nil {
				return err
			}

			return outputJSON(result)
		},
	}
}

func walletTransactionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "transactions",
		Aliases:   []string{"txns", "tx"},
		Usage:     "List transactions for a wallet",
		ArgsUsage: "<wallet-id>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Usage:   "jq filter expression that must evaluate to true (can be specified multiple times, all must match)",
				Aliases: []string{"jq"},
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet id")
			}

			result, err := apiRequest(c, http.MethodGet, "/api/v1/wallets/"+c.Args().First()+"/transactions", nil)
			if err != nil {
				return err
			}

			filters, err := compileJQFilters(c.StringSlice("must-jq"))
			if err != nil {
				return err
			}
			if len(filters) > 0 {
				body, ok := result.(map[string]interface{})
				if !ok {
					return fmt.Errorf("unexpected response shape")
				}
				txs, _ := body["transactions"].([]interface{})
				filtered := make([]interface{}, 0, len(txs))
				for _, tx := range txs {
					if matchesAll(filters, tx) {
						filtered = append(filtered, tx)
					}
				}
				body["transactions"] = filtered
				result = body
			}

			return outputJSON(result)
		},
	}
}

func mempoolListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List the mempool in fee-descending order",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Usage:   "jq filter expression that must evaluate to true (can be specified multiple times, all must match)",
				Aliases: []string{"jq"},
			},
		},
		Action: func(c *cli.Context) error {
			result, err := apiRequest(c, http.MethodGet, "/api/v1/mempool", nil)
			if err != nil {
				return err
			}

			filters, err := compileJQFilters(c.StringSlice("must-jq"))
			if err != nil {
				return err
			}
			if len(filters) > 0 {
				body, ok := result.(map[string]interface{})
				if !ok {
					return fmt.Errorf("unexpected response shape")
				}
				txs, _ := body["transactions"].([]interface{})
				filtered := make([]interface{}, 0, len(txs))
				for _, tx := range txs {
					if matchesAll(filters, tx) {
						filtered = append(filtered, tx)
					}
				}
				body["transactions"] = filtered
				result = body
			}

			return outputJSON(result)
		},
	}
}

func mempoolPositionCommand() *cli.Command {
	return &cli.Command{
		Name:      "position",
		Usage:     "Show a transaction's queue position and estimated wait",
		ArgsUsage: "<transaction-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: transaction id")
			}

			result, err := apiRequest(c, http.MethodGet, "/api/v1/mempool/position/"+c.Args().First(), nil)
			if err != nil {
				return err
			}

			return outputJSON(result)
		},
	}
}

func mempoolSeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Replace the synthetic mempool load with a generated batch",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Value:   50,
				Usage:   "Number of synthetic transactions to seed",
			},
		},
		Action: func(c *cli.Context) error {
			result, err := apiRequest(c, http.MethodPost, "/api/v1/mempool/seed", map[string]int{
				"count": c.Int("count"),
			})
			if err != nil {
				return err
			}

			return outputJSON(result)
		},
	}
}

// apiRequest performs an HTTP request against the service and decodes the
// JSON response. Non-2xx responses are returned as errors carrying the
// server's error message.
func apiRequest(c *cli.Context, method, path string, body interface{}) (interface{}, error) {
	serverURL := c.String("server-url")
	if serverURL == "" {
		return nil, fmt.Errorf("server-url is required (set SERVER_URL env var or use --server-url)")
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	req, err := http.NewRequest(method, serverURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var decoded interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if m, ok := decoded.(map[string]interface{}); ok {
			if msg, ok := m["error"].(string); ok {
				return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
			}
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	return decoded, nil
}

// compileJQFilters parses and compiles the given jq expressions.
func compileJQFilters(filters []string) ([]*gojq.Code, error) {
	compiled := make([]*gojq.Code, len(filters))
	for i, filter := range filters {
		query, err := gojq.Parse(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		compiled[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}
	}
	return compiled, nil
}

// matchesAll reports whether every compiled filter evaluates truthily
// against the value.
func matchesAll(filters []*gojq.Code, v interface{}) bool {
	for _, code := range filters {
		iter := code.Run(v)
		result, ok := iter.Next()
		if !ok {
			return false
		}
		if _, isErr := result.(error); isErr {
			return false
		}
		if !isTruthy(result) {
			return false
		}
	}
	return true
}

// isTruthy checks if a jq result value is truthy.
// In jq, false and null are falsy, everything else is truthy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	// Everything else (numbers, strings, objects, arrays) is truthy
	return true
}
