package connectors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawPlain = "Message-ID: <m2@cust.example>\r\n" +
	"In-Reply-To: <m1@cust.example>\r\n" +
	"References: <m0@cust.example> <m1@cust.example>\r\n" +
	"From: \"Ana Petrova\" <Ana@cust.example>\r\n" +
	"To: quotes@kyoto.example\r\n" +
	"Subject: Re: Walnut slab quote\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"48 x 36 inches please.\r\n"

const rawHTMLOnly = "Message-ID: <m3@cust.example>\r\n" +
	"From: bo@cust.example\r\n" +
	"To: quotes@kyoto.example\r\n" +
	"Subject: Felt rug\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><head><style>p{color:red}</style></head>" +
	"<body><p>Looking for a felt rug,</p><p>60 x 40.</p></body></html>\r\n"

func TestParseRawMessagePlainText(t *testing.T) {
	now := time.Now().UTC()
	msg, err := ParseRawMessage([]byte(rawPlain), "imap", "/tmp/raw.eml", now)
	require.NoError(t, err)

	require.NotNil(t, msg.MessageID)
	assert.Equal(t, "m2@cust.example", *msg.MessageID)
	require.NotNil(t, msg.InReplyTo)
	assert.Equal(t, "m1@cust.example", *msg.InReplyTo)
	assert.Equal(t, []string{"m0@cust.example", "m1@cust.example"}, msg.References)

	assert.Equal(t, "ana@cust.example", msg.FromEmail)
	require.NotNil(t, msg.FromName)
	assert.Equal(t, "Ana Petrova", *msg.FromName)
	require.NotNil(t, msg.ToEmail)
	assert.Equal(t, "quotes@kyoto.example", *msg.ToEmail)

	assert.Equal(t, "Re: Walnut slab quote", msg.Subject)
	assert.Equal(t, "48 x 36 inches please.", msg.Body)
	assert.Equal(t, now, msg.ReceivedAt)
}

func TestParseRawMessageHTMLFallback(t *testing.T) {
	msg, err := ParseRawMessage([]byte(rawHTMLOnly), "imap", "", time.Now())
	require.NoError(t, err)

	assert.Nil(t, msg.InReplyTo)
	assert.Empty(t, msg.References)
	assert.Contains(t, msg.Body, "Looking for a felt rug,")
	assert.Contains(t, msg.Body, "60 x 40.")
	assert.NotContains(t, msg.Body, "color:red")
}
