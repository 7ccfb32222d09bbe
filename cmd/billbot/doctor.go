package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"billbot/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your billbot installation",
		Long: `Verifies that billbot's configuration, audit database, session store and
upstream gateways are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("billbot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'billbot init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return fmt.Errorf("%d check(s) failed", failed)
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Audit database writable
			if err := checkDatabase(cfg.Audit.DBPath); err != nil {
				printFail("Audit database", err.Error())
				failed++
			} else {
				printPass("Audit database", cfg.Audit.DBPath)
				passed++
			}

			// 4. Session store
			if cfg.Session.Store == "redis" {
				if err := checkRedis(cfg.Session.Redis); err != nil {
					printFail("Redis", err.Error())
					failed++
				} else {
					printPass("Redis", cfg.Session.Redis.Addr)
					passed++
				}
			} else {
				printPass("Session store", "in-memory")
				passed++
			}

			// 5. Webhook port
			if err := checkPort(cfg.Provider.WebhookPort); err != nil {
				printWarn("Webhook port", fmt.Sprintf("port %d may be in use: %v", cfg.Provider.WebhookPort, err))
				warned++
			} else {
				printPass("Webhook port", fmt.Sprintf(":%d available", cfg.Provider.WebhookPort))
				passed++
			}

			// 6. Upstream gateways reachable
			for _, gw := range []struct{ name, url string }{
				{"Provider API", cfg.Provider.APIBase},
				{"Entitlement gateway", cfg.Gateways.Entitlement.BaseURL},
				{"Document gateway", cfg.Gateways.Documents.BaseURL},
			} {
				if err := checkReachable(gw.url); err != nil {
					printWarn(gw.name, fmt.Sprintf("%s: %v", gw.url, err))
					warned++
				} else {
					printPass(gw.name, gw.url)
					passed++
				}
			}

			// 7. Intent alias file
			if cfg.Intents.AliasPath != "" {
				if _, err := os.Stat(cfg.Intents.AliasPath); err != nil {
					printFail("Intent aliases", fmt.Sprintf("not found: %s", cfg.Intents.AliasPath))
					failed++
				} else {
					printPass("Intent aliases", cfg.Intents.AliasPath)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running billbot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nbillbot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! billbot is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}

	// Try a write.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")

	return nil
}

func checkRedis(cfg config.RedisConfig) error {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}

func checkReachable(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Head(baseURL)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func checkPort(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
