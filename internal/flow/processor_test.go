package flow

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotedesk/internal"
	"quotedesk/internal/config"
	"quotedesk/internal/storage"
	"quotedesk/internal/util"
)

func testProcessor(t *testing.T) (*Processor, *storage.DB, int64) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	bizID, err := db.InsertBusiness(internal.BusinessRecord{
		Name: "Kyoto Custom Surfaces", Email: "quotes@kyoto.example", Provider: "imap",
		PollIntervalMins: 10, Active: true,
	})
	require.NoError(t, err)

	cfg := config.Config{BaseRatePerSqIn: 0.05, MinOrderAmount: 50.00}
	return NewProcessor(db, cfg, nil), db, bizID
}

func addProduct(t *testing.T, db *storage.DB, bizID int64, name string, mutate func(*internal.ProductRecord)) int64 {
	t.Helper()
	p := internal.ProductRecord{
		BusinessID: bizID, Name: name,
		RatePerSqIn: 0.05, MinOrderAmt: 50.00, Active: true,
	}
	if mutate != nil {
		mutate(&p)
	}
	id, err := db.InsertProduct(p)
	require.NoError(t, err)
	return id
}

func inbound(bizID int64, messageID, inReplyTo, from, subject, body string) internal.RawMessage {
	m := internal.RawMessage{
		BusinessID: bizID, Provider: "imap",
		FromEmail: from, Subject: subject, Body: body,
		ReceivedAt: time.Now().UTC(),
	}
	if messageID != "" {
		m.MessageID = util.StringPtr(messageID)
	}
	if inReplyTo != "" {
		m.InReplyTo = util.StringPtr(inReplyTo)
	}
	return m
}

func TestProcessMessageCompleteRequestGetsQuoted(t *testing.T) {
	p, db, bizID := testProcessor(t)
	addProduct(t, db, bizID, "walnut slab", nil)

	res, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m1@cust", "", "ana@cust.example", "Quote please",
			"Hi, I'd like a walnut slab, 48 x 36 inches. Thanks, Ana"))
	require.NoError(t, err)

	assert.Equal(t, internal.IntentNewRequest, res.Intent)
	assert.Equal(t, internal.StateQuoted, res.State)
	assert.Equal(t, internal.ActionGenerateQuote, res.Action)
	require.NotNil(t, res.Quote)
	assert.InDelta(t, 86.40, res.Quote.TotalPrice, 1e-9) // 48*36 * 0.05
	assert.True(t, strings.HasPrefix(res.Quote.QuoteNumber, "Q-"))

	th, err := db.MustGetThread(res.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, internal.StateQuoted, th.State)
	require.NotNil(t, th.QuoteID)
	assert.Equal(t, res.Quote.ID, *th.QuoteID)

	n, err := db.CountThreadResponses(res.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessMessageIncompleteThenFollowUp(t *testing.T) {
	p, db, bizID := testProcessor(t)
	addProduct(t, db, bizID, "felt rug", nil)

	res, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m1@cust", "", "bo@cust.example", "Rug quote",
			"How much for one of your felt rugs?"))
	require.NoError(t, err)
	assert.Equal(t, internal.StateInfoRequested, res.State)
	assert.Equal(t, internal.ActionRequestInfo, res.Action)
	assert.ElementsMatch(t, []string{internal.FieldLengthInches, internal.FieldWidthInches}, res.MissingFields)

	// Dimensions arrive in the reply; the product carries over from before.
	res2, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m2@cust", "m1@cust", "bo@cust.example", "Re: Rug quote", "60 x 40 please"))
	require.NoError(t, err)
	assert.Equal(t, res.ThreadID, res2.ThreadID)
	assert.Equal(t, internal.IntentFollowUp, res2.Intent)
	assert.Equal(t, internal.StateQuoted, res2.State)
	require.NotNil(t, res2.Quote)
	assert.InDelta(t, 120.00, res2.Quote.TotalPrice, 1e-9) // 60*40 * 0.05
}

func TestProcessMessageDuplicateAfterQuoteIsSuppressed(t *testing.T) {
	p, db, bizID := testProcessor(t)
	addProduct(t, db, bizID, "walnut slab", nil)

	res, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m1@cust", "", "ana@cust.example", "Quote please", "walnut slab 48 x 36"))
	require.NoError(t, err)
	require.NotNil(t, res.Quote)

	res2, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m2@cust", "m1@cust", "ana@cust.example", "Re: Quote please",
			"Just checking you got my walnut slab 48 x 36 request?"))
	require.NoError(t, err)
	assert.Equal(t, internal.IntentDuplicate, res2.Intent)
	assert.Equal(t, internal.ActionSuppressReply, res2.Action)
	assert.Nil(t, res2.Quote)

	// No second quote, no second outbound reply.
	th, err := db.MustGetThread(res.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, res.Quote.ID, *th.QuoteID)
	n, err := db.CountThreadResponses(res.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessMessageNewRequestOnQuotedThread(t *testing.T) {
	p, db, bizID := testProcessor(t)
	addProduct(t, db, bizID, "walnut slab", nil)

	res, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m1@cust", "", "ana@cust.example", "Quote please", "walnut slab 48 x 36"))
	require.NoError(t, err)
	first := res.Quote
	require.NotNil(t, first)

	res2, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m2@cust", "m1@cust", "ana@cust.example", "Re: Quote please",
			"Actually, make that walnut slab 24 x 18 instead."))
	require.NoError(t, err)
	assert.Equal(t, internal.IntentNewRequest, res2.Intent)
	assert.Equal(t, internal.StateQuoted, res2.State)
	require.NotNil(t, res2.Quote)
	assert.NotEqual(t, first.ID, res2.Quote.ID)
	assert.InDelta(t, 50.00, res2.Quote.TotalPrice, 1e-9) // 24*18*0.05=21.60, floored

	th, err := db.MustGetThread(res.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, res2.Quote.ID, *th.QuoteID)
	require.NotNil(t, th.Request)
	require.NotNil(t, th.Request.LengthInches)
	assert.Equal(t, 24.0, *th.Request.LengthInches)
}

func TestProcessMessageMinOrderFloor(t *testing.T) {
	p, db, bizID := testProcessor(t)
	addProduct(t, db, bizID, "coaster", nil)

	res, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m1@cust", "", "cy@cust.example", "Tiny order", "One coaster, 5 x 5"))
	require.NoError(t, err)
	require.NotNil(t, res.Quote)
	assert.InDelta(t, 50.00, res.Quote.TotalPrice, 1e-9)
}

func TestProcessMessageBoundsViolationFlagsManual(t *testing.T) {
	p, db, bizID := testProcessor(t)
	addProduct(t, db, bizID, "walnut slab", func(pr *internal.ProductRecord) {
		pr.MaxSizeSqIn = util.FloatPtr(1000)
	})

	res, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m1@cust", "", "ana@cust.example", "Big slab", "walnut slab 48 x 36"))
	require.NoError(t, err)
	assert.Equal(t, internal.ActionFlagManual, res.Action)
	assert.Equal(t, internal.StateComplete, res.State)
	assert.NotEmpty(t, res.ManualReason)
	assert.Nil(t, res.Quote)

	th, err := db.MustGetThread(res.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, internal.StateComplete, th.State)
	assert.Nil(t, th.QuoteID)
}

func TestProcessMessageUnrelatedRecordedOnly(t *testing.T) {
	p, db, bizID := testProcessor(t)

	res, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m1@cust", "", "spam@cust.example", "Newsletter", "Check out our great offers!"))
	require.NoError(t, err)
	assert.Equal(t, internal.IntentUnrelated, res.Intent)
	assert.Equal(t, internal.ActionNone, res.Action)

	th, err := db.MustGetThread(res.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, internal.StateIncomplete, th.State)
	assert.Nil(t, th.Request)
	assert.Len(t, th.MessageIDs, 1)
}

func TestProcessMessageDedupesByMessageID(t *testing.T) {
	p, db, bizID := testProcessor(t)
	addProduct(t, db, bizID, "walnut slab", nil)

	m := inbound(bizID, "m1@cust", "", "ana@cust.example", "Quote please", "walnut slab 48 x 36")
	res, err := p.ProcessMessage(context.Background(), m)
	require.NoError(t, err)
	require.False(t, res.Skipped)

	res2, err := p.ProcessMessage(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, res2.Skipped)

	n, err := db.CountThreadMessages(res.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessMessageCustomFormula(t *testing.T) {
	p, db, bizID := testProcessor(t)
	addProduct(t, db, bizID, "banner", func(pr *internal.ProductRecord) {
		pr.Formula = util.StringPtr("max(area * rate, 75)")
	})

	res, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m1@cust", "", "ana@cust.example", "Banner", "banner 20 x 10"))
	require.NoError(t, err)
	require.NotNil(t, res.Quote)
	assert.InDelta(t, 75.00, res.Quote.TotalPrice, 1e-9) // max(200*0.05, 75)
}

func TestProcessDirect(t *testing.T) {
	p, db, bizID := testProcessor(t)
	addProduct(t, db, bizID, "walnut slab", nil)

	res, err := p.ProcessDirect(context.Background(), DirectRequest{
		BusinessID:    bizID,
		ProductName:   "walnut slab",
		LengthInches:  48,
		WidthInches:   36,
		CustomerEmail: "Web Buyer <web@cust.example>",
		CustomerName:  util.StringPtr("Web Buyer"),
	})
	require.NoError(t, err)
	assert.Equal(t, internal.StateQuoted, res.State)
	require.NotNil(t, res.Quote)
	assert.InDelta(t, 86.40, res.Quote.TotalPrice, 1e-9)

	th, err := db.MustGetThread(res.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, internal.StateQuoted, th.State)
}

func TestCloseThreadStopsAutomation(t *testing.T) {
	p, db, bizID := testProcessor(t)
	addProduct(t, db, bizID, "walnut slab", nil)

	res, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m1@cust", "", "ana@cust.example", "Quote please", "walnut slab 48 x 36"))
	require.NoError(t, err)
	require.NoError(t, p.CloseThread(res.ThreadID))

	res2, err := p.ProcessMessage(context.Background(),
		inbound(bizID, "m2@cust", "m1@cust", "ana@cust.example", "Re: Quote please", "walnut slab 48 x 36 again"))
	require.NoError(t, err)
	assert.Equal(t, internal.StateClosed, res2.State)
	assert.Equal(t, internal.ActionNone, res2.Action)
	assert.Nil(t, res2.Quote)

	n, err := db.CountThreadResponses(res.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
