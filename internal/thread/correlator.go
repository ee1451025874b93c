// Package thread maps inbound messages onto conversation threads.
//
// A thread owns the union of every message identifier and reply-chain
// identifier seen across all of its messages, so later replies correlate
// even when they reference an intermediate message instead of the first.
package thread

import (
	"github.com/rs/zerolog"

	"quotedesk/internal"
	"quotedesk/internal/logging"
	"quotedesk/internal/util"
)

// Store is the persistence the correlator needs: an identifier -> thread
// index plus thread creation.
type Store interface {
	FindThreadIDByIdentifier(businessID int64, key string) (int64, bool, error)
	FindOpenThreadByFallbackKey(businessID int64, fallbackKey string) (int64, bool, error)
	CreateThread(businessID int64, threadKey, fallbackKey string) (internal.Thread, error)
	AddThreadKey(threadID, businessID int64, key string) error
}

type Correlator struct {
	store Store
	log   zerolog.Logger
}

func New(store Store) *Correlator {
	return &Correlator{store: store, log: logging.Component("thread")}
}

// Correlate resolves the thread a message belongs to, creating one when
// nothing matches. Identifier matches always win over the sender+subject
// fallback key. Returns the thread id and whether it was newly created.
func (c *Correlator) Correlate(msg internal.RawMessage) (int64, bool, error) {
	candidates := candidateKeys(msg)

	for _, key := range candidates {
		id, ok, err := c.store.FindThreadIDByIdentifier(msg.BusinessID, key)
		if err != nil {
			return 0, false, err
		}
		if ok {
			if err := c.registerKeys(id, msg, candidates); err != nil {
				return 0, false, err
			}
			return id, false, nil
		}
	}

	fallbackKey := util.FallbackThreadKey(msg.FromEmail, msg.Subject)
	id, ok, err := c.store.FindOpenThreadByFallbackKey(msg.BusinessID, fallbackKey)
	if err != nil {
		return 0, false, err
	}
	if ok {
		c.log.Debug().Int64("thread", id).Str("key", fallbackKey).Msg("correlated by fallback key")
		if err := c.registerKeys(id, msg, candidates); err != nil {
			return 0, false, err
		}
		return id, false, nil
	}

	threadKey := fallbackKey
	if msg.MessageID != nil {
		if own := util.CleanMessageID(*msg.MessageID); own != "" {
			threadKey = own
		}
	}
	created, err := c.store.CreateThread(msg.BusinessID, threadKey, fallbackKey)
	if err != nil {
		return 0, false, err
	}
	if err := c.registerKeys(created.ID, msg, candidates); err != nil {
		return 0, false, err
	}
	c.log.Debug().Int64("thread", created.ID).Str("key", threadKey).Msg("created thread")
	return created.ID, true, nil
}

// candidateKeys returns lookup keys in priority order: In-Reply-To first,
// then each References identifier.
func candidateKeys(msg internal.RawMessage) []string {
	out := make([]string, 0, 1+len(msg.References))
	seen := map[string]struct{}{}
	add := func(raw string) {
		key := util.CleanMessageID(raw)
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	if msg.InReplyTo != nil {
		add(*msg.InReplyTo)
	}
	for _, ref := range msg.References {
		add(ref)
	}
	return out
}

// registerKeys grows the thread's identifier arena with the message's own
// id and every reply-chain id it carried.
func (c *Correlator) registerKeys(threadID int64, msg internal.RawMessage, candidates []string) error {
	if msg.MessageID != nil {
		if own := util.CleanMessageID(*msg.MessageID); own != "" {
			if err := c.store.AddThreadKey(threadID, msg.BusinessID, own); err != nil {
				return err
			}
		}
	}
	for _, key := range candidates {
		if err := c.store.AddThreadKey(threadID, msg.BusinessID, key); err != nil {
			return err
		}
	}
	return nil
}
