package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"bom2pic/internal/account"
	"bom2pic/internal/payment"
	"bom2pic/internal/web"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("bom2pic")
	var (
		port         = fs.IntLong("port", 8000, "HTTP server port")
		dbPath       = fs.StringLong("db", "bom2pic.db", "Database file path")
		baseURL      = fs.StringLong("base-url", "http://localhost:8000", "Public base URL for payment redirects")
		maxUploadMB  = fs.IntLong("max-upload-mb", 20, "Maximum upload size per file in MB")
		trialDays    = fs.IntLong("trial-days", 30, "Free trial length in days")
		paypalID     = fs.StringLong("paypal-client-id", "", "PayPal client ID")
		paypalSecret = fs.StringLong("paypal-secret", "", "PayPal client secret")
		paypalEnv    = fs.StringLong("paypal-env", "sandbox", "PayPal environment: 'sandbox' or 'live'")
		adminKey     = fs.StringLong("admin-key", "", "Admin key for the user listing endpoint")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BOM2PIC"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...", "path", *dbPath)
	db, err := account.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	accounts := account.NewService(db, *trialDays)

	// Initialize payment provider. Missing credentials only surface when a
	// checkout is attempted, so the service runs fine without them.
	checkout, err := payment.NewPayPal(*paypalID, *paypalSecret, *paypalEnv)
	if err != nil {
		slog.Error("Failed to initialize payment provider", "error", err)
		os.Exit(1)
	}
	if *paypalID == "" {
		slog.Warn("PayPal credentials not configured; checkout is disabled")
	}
	if *adminKey == "" {
		slog.Warn("Admin key not configured; admin endpoint is disabled")
	}

	server := web.NewServer(accounts, checkout, web.Config{
		MaxUploadMB: *maxUploadMB,
		AdminKey:    *adminKey,
		BaseURL:     strings.TrimSuffix(*baseURL, "/"),
		Version:     version,
	})

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
