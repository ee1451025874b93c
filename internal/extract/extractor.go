// Package extract turns free-text quote emails into structured requests.
// The AI path is primary; a deterministic regex fallback guarantees that
// extraction itself never fails.
package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"quotedesk/internal"
	"quotedesk/internal/ai"
	"quotedesk/internal/catalog"
	"quotedesk/internal/logging"
	"quotedesk/internal/util"
)

// AI is the text-extraction collaborator.
type AI interface {
	ExtractQuoteFields(ctx context.Context, subject, body string) (ai.Extraction, error)
}

type Extractor struct {
	ai  AI
	log zerolog.Logger
}

func New(aiClient AI) *Extractor {
	return &Extractor{ai: aiClient, log: logging.Component("extract")}
}

// Extract produces an ExtractedRequest from a message, merging into prior
// when one exists. Extraction never errors: a message with no signal yields
// a request whose missing set is the full required set.
func (e *Extractor) Extract(ctx context.Context, subject, body string, idx *catalog.Index, prior *internal.ExtractedRequest) internal.ExtractedRequest {
	current, ok := e.extractAI(ctx, subject, body, idx)
	if !ok {
		current = extractRegex(subject, body, idx)
	}

	if prior != nil {
		return prior.Merge(current)
	}
	return current
}

func (e *Extractor) extractAI(ctx context.Context, subject, body string, idx *catalog.Index) (internal.ExtractedRequest, bool) {
	if e.ai == nil {
		return internal.ExtractedRequest{}, false
	}

	fields, err := e.ai.ExtractQuoteFields(ctx, subject, body)
	if err != nil {
		// recoverable by design; log and degrade silently
		e.log.Warn().Err(err).Msg("ai extraction unavailable, using regex fallback")
		return internal.ExtractedRequest{}, false
	}
	if fields.ProductName == nil && fields.LengthInches == nil && fields.WidthInches == nil {
		e.log.Debug().Msg("ai extraction returned no usable signal")
		return internal.ExtractedRequest{}, false
	}

	out := internal.ExtractedRequest{
		LengthInches: fields.LengthInches,
		WidthInches:  fields.WidthInches,
		CustomerName: fields.CustomerName,
		Source:       internal.SourceAI,
		Confidence:   fields.Confidence,
	}
	if fields.ProductName != nil && strings.TrimSpace(*fields.ProductName) != "" {
		name := strings.TrimSpace(*fields.ProductName)
		if p, found := idx.ResolveName(name); found {
			name = p.Name
		}
		out.ProductName = &name
	}
	return out, true
}

// Dimension pairs: "48x36", "48 x 36", `48" x 36"`, "48 in x 36 inches".
var reDimensions = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:"|in(?:ch(?:es)?)?\.?)?\s*[x×]\s*(\d+(?:\.\d+)?)\s*(?:"|in(?:ch(?:es)?)?\.?)?`)

func extractRegex(subject, body string, idx *catalog.Index) internal.ExtractedRequest {
	text := subject + "\n" + body

	out := internal.ExtractedRequest{Source: internal.SourceRegex, Confidence: 0.3}

	if m := reDimensions.FindStringSubmatch(text); m != nil {
		if length, err := strconv.ParseFloat(m[1], 64); err == nil && length > 0 {
			out.LengthInches = util.FloatPtr(length)
		}
		if width, err := strconv.ParseFloat(m[2], 64); err == nil && width > 0 {
			out.WidthInches = util.FloatPtr(width)
		}
	}

	if p, found := idx.MatchText(text); found {
		out.ProductName = util.StringPtr(p.Name)
	}

	if out.ProductName != nil || (out.LengthInches != nil && out.WidthInches != nil) {
		out.Confidence = 0.7
	}
	return out
}
