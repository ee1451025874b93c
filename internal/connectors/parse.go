package connectors

import (
	"bytes"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"

	"quotedesk/internal"
	"quotedesk/internal/util"
)

// ParseRawMessage turns a stored RFC822 message into the pipeline's input
// form: threading identifiers, addresses and a plain-text body. HTML-only
// messages fall back to stripped document text.
func ParseRawMessage(raw []byte, provider, rawRef string, receivedAt time.Time) (internal.RawMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.RawMessage{}, err
	}

	msg := internal.RawMessage{
		Provider:   provider,
		Subject:    env.GetHeader("Subject"),
		ReceivedAt: receivedAt,
		RawRef:     rawRef,
	}

	if id := util.CleanMessageID(env.GetHeader("Message-ID")); id != "" {
		msg.MessageID = &id
	}
	if id := util.CleanMessageID(env.GetHeader("In-Reply-To")); id != "" {
		msg.InReplyTo = &id
	}
	msg.References = util.SplitReferences(env.GetHeader("References"))

	from := env.GetHeader("From")
	msg.FromEmail = util.CleanAddress(from)
	if name := displayName(from); name != "" {
		msg.FromName = &name
	}
	if to := util.CleanAddress(env.GetHeader("To")); to != "" {
		msg.ToEmail = &to
	}

	msg.Body = strings.TrimSpace(env.Text)
	if msg.Body == "" && env.HTML != "" {
		msg.Body = htmlToText(env.HTML)
	}

	return msg, nil
}

func displayName(header string) string {
	s := strings.TrimSpace(header)
	if i := strings.IndexByte(s, '<'); i > 0 {
		return strings.Trim(strings.TrimSpace(s[:i]), `"`)
	}
	return ""
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script,style").Remove()

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
