package connectors

import (
	"time"

	"github.com/rs/zerolog"

	"quotedesk/internal"
	"quotedesk/internal/logging"
	"quotedesk/internal/storage"
	"quotedesk/internal/util"
)

// FetchService pulls a mailbox, archives each raw message and parses it
// into the pipeline's input form. Messages already ingested are skipped
// before any disk write.
type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStore
	log       zerolog.Logger
}

type FetchResult struct {
	Fetched  int
	Parsed   int
	Skipped  int
	Messages []internal.RawMessage
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStore(rawMailDir),
		log:       logging.Component("connectors"),
	}
}

// FetchAndStore fetches up to max messages from the given mailbox label.
// When businessID is zero the owning business is resolved from each
// message's To: address; messages that resolve to no business are skipped.
func (s *FetchService) FetchAndStore(businessID int64, label string, max int) (FetchResult, error) {
	fetched, err := s.connector.FetchInbox(label, max)
	if err != nil {
		return FetchResult{}, err
	}

	result := FetchResult{Fetched: len(fetched)}
	for _, fm := range fetched {
		if id := util.CleanMessageID(fm.MessageID); id != "" {
			seen, err := s.db.HasMessage(fm.Provider, id)
			if err != nil {
				return result, err
			}
			if seen {
				result.Skipped++
				continue
			}
		}

		rawRef, err := s.store.Store(fm)
		if err != nil {
			return result, err
		}

		receivedAt := time.Now().UTC()
		if t, perr := time.Parse(time.RFC3339, fm.ReceivedAt); perr == nil {
			receivedAt = t
		}

		msg, err := ParseRawMessage(fm.Raw, fm.Provider, rawRef, receivedAt)
		if err != nil {
			s.log.Warn().Err(err).Str("messageId", fm.MessageID).Msg("unparseable message skipped")
			result.Skipped++
			continue
		}
		if msg.MessageID == nil {
			if id := util.CleanMessageID(fm.MessageID); id != "" {
				msg.MessageID = &id
			}
		}

		msg.BusinessID = businessID
		if msg.BusinessID == 0 {
			to := ""
			if msg.ToEmail != nil {
				to = *msg.ToEmail
			}
			business, err := s.db.FindBusinessByAddress(to)
			if err != nil {
				return result, err
			}
			if business == nil {
				s.log.Warn().Str("to", to).Msg("no business owns this address, message skipped")
				result.Skipped++
				continue
			}
			msg.BusinessID = business.ID
		}

		result.Messages = append(result.Messages, msg)
		result.Parsed++
	}

	return result, nil
}
