package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"quotedesk/internal"
	"quotedesk/internal/config"
	"quotedesk/internal/connectors"
	"quotedesk/internal/flow"
	"quotedesk/internal/logging"
	"quotedesk/internal/storage"
)

// ConnectorFactory builds the mail connector for a business's provider.
type ConnectorFactory func(provider string) (connectors.MailConnector, error)

// Poller runs one business's poll cycle: fetch, archive, process. A
// failure on one message never stops the rest of the batch.
type Poller struct {
	db        *storage.DB
	cfg       config.Config
	processor *flow.Processor
	factory   ConnectorFactory
	log       zerolog.Logger
}

func NewPoller(db *storage.DB, cfg config.Config, processor *flow.Processor, factory ConnectorFactory) *Poller {
	return &Poller{
		db:        db,
		cfg:       cfg,
		processor: processor,
		factory:   factory,
		log:       logging.Component("poller"),
	}
}

func (p *Poller) Poll(ctx context.Context, business internal.BusinessRecord) {
	connector, err := p.factory(business.Provider)
	if err != nil {
		p.log.Warn().Err(err).Int64("business", business.ID).Str("provider", business.Provider).Msg("connector unavailable")
		return
	}

	fetch := connectors.NewFetchService(p.db, p.cfg.RawMailDir, connector)
	result, err := fetch.FetchAndStore(business.ID, "INBOX", p.cfg.PollFetchMax)
	if err != nil {
		p.log.Warn().Err(err).Int64("business", business.ID).Msg("fetch failed")
		return
	}

	processed := 0
	for _, msg := range result.Messages {
		if processed >= p.cfg.PollProcessBatch && p.cfg.PollProcessBatch > 0 {
			break
		}
		if _, err := p.processor.ProcessMessage(ctx, msg); err != nil {
			p.log.Error().Err(err).Str("from", msg.FromEmail).Msg("message processing failed")
			continue
		}
		processed++
	}

	p.log.Info().
		Int64("business", business.ID).
		Int("fetched", result.Fetched).
		Int("skipped", result.Skipped).
		Int("processed", processed).
		Msg("poll cycle done")
}
