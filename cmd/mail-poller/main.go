package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quotedesk/internal/ai"
	"quotedesk/internal/config"
	"quotedesk/internal/connectors"
	gmailconnector "quotedesk/internal/connectors/gmail"
	imapconnector "quotedesk/internal/connectors/imap"
	"quotedesk/internal/flow"
	"quotedesk/internal/logging"
	"quotedesk/internal/scheduler"
	"quotedesk/internal/storage"
)

// mail-poller runs one polling job per active business and reconciles the
// job set against the database every minute, so activating or deactivating
// a business takes effect without a restart.
func main() {
	cfg, err := config.Load()
	must(err)
	logging.Setup(cfg.LogLevel)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	processor := flow.NewProcessor(db, cfg, ai.NewClient(cfg))
	poller := scheduler.NewPoller(db, cfg, processor, func(provider string) (connectors.MailConnector, error) {
		switch provider {
		case "gmail":
			return gmailconnector.NewConnector(cfg)
		case "imap":
			return imapconnector.NewConnector(cfg)
		default:
			return nil, fmt.Errorf("unsupported provider: %s", provider)
		}
	})

	registry, err := scheduler.NewRegistry(poller.Poll)
	must(err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sync := func() {
		businesses, err := db.ListActiveBusinesses()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list businesses: %v\n", err)
			return
		}
		if err := registry.Sync(businesses); err != nil {
			fmt.Fprintf(os.Stderr, "sync registry: %v\n", err)
		}
	}
	sync()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			must(registry.Shutdown())
			return
		case <-ticker.C:
			sync()
		}
	}
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
