// Package intent labels a message's role relative to its conversation
// thread: new request, follow-up, duplicate, or unrelated.
package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"quotedesk/internal"
	"quotedesk/internal/ai"
	"quotedesk/internal/logging"
)

// AI is the intent-detection collaborator.
type AI interface {
	DetectIntent(ctx context.Context, subject, body, threadSummary string) (ai.IntentResult, error)
}

type Classifier struct {
	ai  AI
	log zerolog.Logger
}

func New(aiClient AI) *Classifier {
	return &Classifier{ai: aiClient, log: logging.Component("intent")}
}

// Message carries the per-message facts the classifier works from.
type Message struct {
	Subject    string
	Body       string
	Extraction internal.ExtractedRequest
}

// Classify labels the message within its thread. AI failure never blocks
// processing: it degrades to the deterministic policy built from thread
// state and field presence alone.
func (c *Classifier) Classify(ctx context.Context, thread internal.Thread, priorMessages int, msg Message) internal.Intent {
	if c.ai != nil {
		result, err := c.ai.DetectIntent(ctx, msg.Subject, msg.Body, summarize(thread, priorMessages))
		if err == nil {
			return internal.Intent(result.Intent)
		}
		c.log.Warn().Err(err).Int64("thread", thread.ID).Msg("ai intent unavailable, using deterministic policy")
	}
	return Deterministic(thread, priorMessages, msg.Extraction)
}

// Deterministic is the fallback policy over (thread state, field presence):
//
//	duplicate    - thread already quoted and the message adds nothing new
//	follow_up    - prior messages exist and the thread is still collecting info
//	new_request  - first message, or a complete, distinct ask on a finished thread
//	unrelated    - no extractable signal and nothing carried over to merge into
func Deterministic(thread internal.Thread, priorMessages int, extraction internal.ExtractedRequest) internal.Intent {
	if !hasSignal(extraction) && thread.Request == nil {
		return internal.IntentUnrelated
	}
	if priorMessages == 0 {
		return internal.IntentNewRequest
	}

	switch thread.State {
	case internal.StateQuoted, internal.StateClosed:
		if extraction.Complete() && distinct(thread.Request, extraction) {
			return internal.IntentNewRequest
		}
		if thread.State == internal.StateQuoted && !introducesNewField(thread.Request, extraction) {
			return internal.IntentDuplicate
		}
		return internal.IntentFollowUp
	default:
		return internal.IntentFollowUp
	}
}

func hasSignal(e internal.ExtractedRequest) bool {
	return e.ProductName != nil || e.LengthInches != nil || e.WidthInches != nil
}

// introducesNewField reports whether the extraction carries a structured
// field the stored request does not already have.
func introducesNewField(stored *internal.ExtractedRequest, e internal.ExtractedRequest) bool {
	if stored == nil {
		return hasSignal(e)
	}
	if e.ProductName != nil && stored.ProductName == nil {
		return true
	}
	if e.LengthInches != nil && stored.LengthInches == nil {
		return true
	}
	if e.WidthInches != nil && stored.WidthInches == nil {
		return true
	}
	return false
}

// distinct reports whether the extraction asks for something other than
// what was already quoted: a different product or different dimensions.
func distinct(stored *internal.ExtractedRequest, e internal.ExtractedRequest) bool {
	if stored == nil {
		return true
	}
	if e.ProductName != nil && stored.ProductName != nil &&
		!strings.EqualFold(*e.ProductName, *stored.ProductName) {
		return true
	}
	if e.LengthInches != nil && stored.LengthInches != nil && *e.LengthInches != *stored.LengthInches {
		return true
	}
	if e.WidthInches != nil && stored.WidthInches != nil && *e.WidthInches != *stored.WidthInches {
		return true
	}
	return false
}

func summarize(thread internal.Thread, priorMessages int) string {
	have := []string{}
	if thread.Request != nil {
		if thread.Request.ProductName != nil {
			have = append(have, "product")
		}
		if thread.Request.LengthInches != nil {
			have = append(have, "length")
		}
		if thread.Request.WidthInches != nil {
			have = append(have, "width")
		}
	}
	known := "nothing"
	if len(have) > 0 {
		known = strings.Join(have, ", ")
	}
	return fmt.Sprintf("thread state %s, %d earlier message(s), known fields: %s", thread.State, priorMessages, known)
}
