package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/splitledger/internal/infrastructure/postgres"
)

var (
	baseURL string
	userID  string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "splitledger-cli",
		Short: "SplitLedger CLI tool",
		Long:  `A command line interface for interacting with the SplitLedger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the SplitLedger API")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "Acting user id (sent as X-User-ID)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	balancesCmd := &cobra.Command{
		Use:   "balances",
		Short: "Show the acting user's balances per friend",
		Run: func(cmd *cobra.Command, args []string) {
			showBalances()
		},
	}

	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over unapplied transactions",
		Run: func(cmd *cobra.Command, args []string) {
			runReconcile()
		},
	}

	var databaseURL, migrationsPath string

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migration operations",
	}
	migrateCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres URL (defaults to DATABASE_URL)")
	migrateCmd.PersistentFlags().StringVar(&migrationsPath, "migrations", "migrations", "Path to the migrations directory")

	migrateUpCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.RunMigrations(databaseURL, migrationsPath)
		},
	}

	migrateDownCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.RunMigrationsDown(databaseURL, migrationsPath)
		},
	}

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	ledgerCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(balancesCmd, ledgerCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func doRequest(method, path string) []byte {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequest(method, baseURL+path, nil)
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Printf("Request FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	return body
}

func showBalances() {
	body := doRequest(http.MethodGet, "/api/v1/friends")

	var rows []struct {
		CounterpartID string `json:"counterpart_id"`
		Balance       string `json:"balance"`
		Status        string `json:"status"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	if len(rows) == 0 {
		fmt.Println("No friendships")
		return
	}

	for _, r := range rows {
		fmt.Printf("%-30s %10s  (%s)\n", r.CounterpartID, r.Balance, r.Status)
	}
}

func runReconcile() {
	body := doRequest(http.MethodPost, "/api/v1/ledger/reconcile")

	var report struct {
		Scanned int `json:"scanned"`
		Applied int `json:"applied"`
		Failed  int `json:"failed"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Reconciliation: scanned=%d applied=%d failed=%d\n", report.Scanned, report.Applied, report.Failed)
}
