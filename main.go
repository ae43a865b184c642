package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/danielhkuo/sealed-poll/cliparse"
	"github.com/danielhkuo/sealed-poll/db"
	"github.com/danielhkuo/sealed-poll/handlers"
	"github.com/danielhkuo/sealed-poll/identity"
	"github.com/danielhkuo/sealed-poll/ledger"
	"github.com/danielhkuo/sealed-poll/middleware"
	"github.com/danielhkuo/sealed-poll/router"
)

func main() {
	var err error
	ctx := context.Background()

	if err := cliparse.LoadEnv(".env"); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the journal, if configured
	var witness ledger.Witness
	var recorder handlers.Journal
	if cfg.JournalURL != "" {
		journal, err := db.Open(ctx, cfg.JournalURL, cfg.DatabaseType)
		if err != nil {
			slog.Error("journal connection failed", "error", err)
			os.Exit(1)
		}
		defer journal.Close()

		witness = journal
		recorder = journal
		slog.Info("Journal ready")
	} else {
		slog.Warn("No journal configured; rolled back ledger files cannot be detected")
	}

	// Load and verify every poll
	registry, err := ledger.LoadDir(ctx, cfg.PollDir, witness)
	if err != nil {
		if ledger.IsIntegrityError(err) {
			slog.Error("poll failed verification", "dir", cfg.PollDir, "error", err)
		} else {
			slog.Error("failed to load polls", "dir", cfg.PollDir, "error", err)
		}
		os.Exit(1)
	}
	if journal, ok := witness.(*db.Journal); ok {
		for _, l := range registry.List() {
			seal, found, err := journal.LastSeal(ctx, l.Name())
			if err != nil {
				slog.Warn("failed to read journal seal", "poll", l.Name(), "error", err)
				continue
			}
			if found && seal != l.Seal() {
				slog.Warn("journal is behind the ledger", "poll", l.Name(), "journal_seal", seal, "seal", l.Seal())
			}
		}
	}

	verifier := identity.New(cfg.AuthURL, nil)
	if verifier == nil {
		slog.Warn("Identity verification disabled")
	}

	// Create router
	mux := router.NewRouter(registry, verifier, recorder, cfg)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}
	if cfg.TLSEnabled() {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "polls", len(registry.List()), "tls", cfg.TLSEnabled())
	if cfg.TLSEnabled() {
		err = server.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
