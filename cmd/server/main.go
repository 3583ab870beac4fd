/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll ledger server: token, pool, journal,
  ledger, HTTP router, graceful shutdown.

CONFIGURATION:
  A .env file (if present) is loaded first; flags override environment
  values. Variables:

    PORT               HTTP server port (default 8080)
    DB_PATH            SQLite database path (":memory:" supported)
    EMPLOYER_ADDRESS   Administering principal
    POOL_ADDRESS       Account holding the funded pool
    INITIAL_MINT       Tokens minted to the employer at boot

DEMO TOKEN:
  The in-memory token stands in for the real fungible-token collaborator:
  the initial mint lands on the employer, and the pool is pre-approved to
  pull funding from it. State outlives restarts only through the ledger
  journal, not the token.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, drain for up to 30s,
  close the database, exit.

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Journal implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/payroll-ledger/api"
	"github.com/warp/payroll-ledger/payroll"
	"github.com/warp/payroll-ledger/store/sqlite"
	"github.com/warp/payroll-ledger/token"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	// .env is optional; flags override whatever it sets.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	port := flag.Int("port", envIntOr("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envOr("DB_PATH", "payroll.db"), "SQLite database path")
	employer := flag.String("employer", envOr("EMPLOYER_ADDRESS", "0xe3e70682c2094cac629f6fbed82c07cd"), "employer principal address")
	pool := flag.String("pool", envOr("POOL_ADDRESS", "payroll-pool"), "pool account address")
	mint := flag.String("mint", envOr("INITIAL_MINT", "1000000"), "tokens minted to the employer at boot")
	flag.Parse()

	// Journal
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	records, err := store.LoadRecords(context.Background())
	if err != nil {
		log.Fatalf("Failed to load employee records: %v", err)
	}
	if len(records) > 0 {
		log.Printf("Restored %d employee record(s) from %s", len(records), *dbPath)
	}

	// Funding token: mint to the employer, pre-approve the pool to pull.
	mintAmount, err := payroll.ParseAmount(*mint)
	if err != nil {
		log.Fatalf("Invalid INITIAL_MINT: %v", err)
	}
	tok := token.NewMemory()
	if err := tok.Mint(payroll.Address(*employer), mintAmount); err != nil {
		log.Fatalf("Failed to mint initial supply: %v", err)
	}
	if err := tok.Approve(payroll.Address(*employer), payroll.Address(*pool), mintAmount); err != nil {
		log.Fatalf("Failed to approve pool: %v", err)
	}

	ledger, err := payroll.New(
		payroll.Address(*employer),
		payroll.Address(*pool),
		token.Bind(tok, payroll.Address(*pool)),
		payroll.WithJournal(store),
		payroll.WithRecords(records),
	)
	if err != nil {
		log.Fatalf("Failed to create ledger: %v", err)
	}

	handler := api.NewHandler(ledger, store)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Payroll ledger on http://localhost:%d (employer %s)", *port, *employer)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
