package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quotedesk/internal"
	"quotedesk/internal/ai"
	"quotedesk/internal/catalog"
	"quotedesk/internal/config"
	"quotedesk/internal/extract"
	"quotedesk/internal/formula"
	"quotedesk/internal/intent"
	"quotedesk/internal/logging"
	"quotedesk/internal/storage"
	"quotedesk/internal/thread"
	"quotedesk/internal/util"
)

// Processor runs one message through the full pipeline: correlate, extract,
// classify, transition, and execute the resulting action. Threads are
// processed single-writer: messages for the same thread serialize on a
// per-thread lock, messages for different threads run concurrently.
type Processor struct {
	db         *storage.DB
	cfg        config.Config
	correlator *thread.Correlator
	extractor  *extract.Extractor
	classifier *intent.Classifier
	log        zerolog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	compileMu sync.Mutex
	compiled  map[string]*formula.Compiled
}

func NewProcessor(db *storage.DB, cfg config.Config, aiClient *ai.Client) *Processor {
	var extractAI extract.AI
	var intentAI intent.AI
	if aiClient != nil && aiClient.Configured() {
		extractAI = aiClient
		intentAI = aiClient
	}
	return &Processor{
		db:         db,
		cfg:        cfg,
		correlator: thread.New(db),
		extractor:  extract.New(extractAI),
		classifier: intent.New(intentAI),
		log:        logging.Component("flow"),
		locks:      map[int64]*sync.Mutex{},
		compiled:   map[string]*formula.Compiled{},
	}
}

// Result reports what one processing step did.
type Result struct {
	ThreadID      int64
	MessageID     int64
	Intent        internal.Intent
	State         internal.ThreadState
	Action        internal.Action
	MissingFields []string
	Quote         *internal.QuoteRecord
	Price         *internal.PriceResult
	ManualReason  string
	Skipped       bool
}

// ProcessMessage ingests one inbound message end to end. Already-seen
// message ids are skipped, never reprocessed.
func (p *Processor) ProcessMessage(ctx context.Context, msg internal.RawMessage) (Result, error) {
	if msg.MessageID != nil && *msg.MessageID != "" {
		seen, err := p.db.HasMessage(msg.Provider, *msg.MessageID)
		if err != nil {
			return Result{}, fmt.Errorf("dedupe check: %w", err)
		}
		if seen {
			p.log.Debug().Str("messageId", *msg.MessageID).Msg("message already ingested, skipping")
			return Result{Skipped: true, Action: internal.ActionNone}, nil
		}
	}

	threadID, created, err := p.correlator.Correlate(msg)
	if err != nil {
		return Result{}, fmt.Errorf("correlate: %w", err)
	}
	if created {
		p.log.Info().Int64("thread", threadID).Str("from", msg.FromEmail).Msg("new thread")
	}

	unlock := p.lockThread(threadID)
	defer unlock()

	return p.step(ctx, threadID, msg)
}

func (p *Processor) step(ctx context.Context, threadID int64, msg internal.RawMessage) (Result, error) {
	th, err := p.db.MustGetThread(threadID)
	if err != nil {
		return Result{}, err
	}
	prior, err := p.db.CountThreadMessages(threadID)
	if err != nil {
		return Result{}, err
	}
	msgDBID, err := p.db.InsertMessage(msg, threadID)
	if err != nil {
		return Result{}, fmt.Errorf("insert message: %w", err)
	}

	products, err := p.db.ListActiveProducts(msg.BusinessID)
	if err != nil {
		return Result{}, err
	}
	idx := catalog.BuildIndex(products)

	extraction := p.extractor.Extract(ctx, msg.Subject, msg.Body, idx, nil)
	label := p.classifier.Classify(ctx, th, prior, intent.Message{
		Subject:    msg.Subject,
		Body:       msg.Body,
		Extraction: extraction,
	})

	merged := extraction
	if th.Request != nil {
		merged = th.Request.Merge(extraction)
	}
	complete := merged.Complete()
	if th.State == internal.StateQuoted && label == internal.IntentNewRequest {
		complete = extraction.Complete()
	}

	decision := Next(th.State, label, complete)
	result := Result{
		ThreadID:  threadID,
		MessageID: msgDBID,
		Intent:    label,
		State:     decision.Next,
		Action:    decision.Action,
	}

	p.log.Info().
		Int64("thread", threadID).
		Str("intent", string(label)).
		Str("state", string(th.State)).
		Str("next", string(decision.Next)).
		Str("action", string(decision.Action)).
		Msg("transition")

	if label == internal.IntentUnrelated {
		return result, p.db.MarkMessageProcessed(msgDBID)
	}

	request := merged
	if decision.Supersede {
		request = extraction
	}
	if err := p.db.SetThreadRequest(threadID, &request); err != nil {
		return Result{}, err
	}
	result.MissingFields = request.MissingFields()

	if decision.Next != th.State {
		if err := p.db.UpdateThreadState(threadID, decision.Next); err != nil {
			return Result{}, err
		}
	}

	business, err := p.db.GetBusiness(msg.BusinessID)
	if err != nil {
		return Result{}, err
	}
	if business == nil {
		return Result{}, fmt.Errorf("business not found: id=%d", msg.BusinessID)
	}

	customerName := msg.FromName
	if customerName == nil {
		customerName = request.CustomerName
	}
	customer, err := p.db.UpsertCustomer(msg.BusinessID, util.CleanAddress(msg.FromEmail), customerName)
	if err != nil {
		return Result{}, err
	}

	switch decision.Action {
	case internal.ActionRequestInfo:
		body := renderInfoRequest(business.Name, customer, result.MissingFields)
		if err := p.recordResponse(threadID, *business, msg, replySubject(msg.Subject), body, internal.ActionRequestInfo, nil); err != nil {
			return Result{}, err
		}

	case internal.ActionGenerateQuote:
		quote, price, qerr := p.generateQuote(*business, customer, threadID, request, idx)
		if qerr != nil {
			result.Action = internal.ActionFlagManual
			result.State = internal.StateComplete
			result.ManualReason = qerr.Error()
			p.log.Warn().Err(qerr).Int64("thread", threadID).Msg("pricing failed, flagged for manual handling")
		} else {
			if err := p.db.UpdateThreadState(threadID, internal.StateQuoted); err != nil {
				return Result{}, err
			}
			result.State = internal.StateQuoted
			result.Quote = quote
			result.Price = price
			body := renderQuote(*business, customer, *quote, *price)
			if err := p.recordResponse(threadID, *business, msg, replySubject(msg.Subject), body, internal.ActionGenerateQuote, &quote.ID); err != nil {
				return Result{}, err
			}
		}

	case internal.ActionSuppressReply:
		p.log.Info().Int64("thread", threadID).Msg("duplicate after quote, reply suppressed")
	}

	return result, p.db.MarkMessageProcessed(msgDBID)
}

// DirectRequest is a structured quote ask that arrives outside the mail
// flow (web form, API). It skips extraction and intent entirely.
type DirectRequest struct {
	BusinessID    int64
	ProductName   string
	LengthInches  float64
	WidthInches   float64
	CustomerEmail string
	CustomerName  *string
	Notes         string
}

// ProcessDirect prices a structured request and records the quote on a
// fresh thread. Pricing failures flag for manual handling, same as the
// mail path.
func (p *Processor) ProcessDirect(ctx context.Context, req DirectRequest) (Result, error) {
	business, err := p.db.GetBusiness(req.BusinessID)
	if err != nil {
		return Result{}, err
	}
	if business == nil {
		return Result{}, fmt.Errorf("business not found: id=%d", req.BusinessID)
	}

	key := "direct-" + uuid.NewString()
	th, err := p.db.CreateThread(req.BusinessID, key, key)
	if err != nil {
		return Result{}, err
	}

	unlock := p.lockThread(th.ID)
	defer unlock()

	extraction := internal.ExtractedRequest{
		ProductName:  &req.ProductName,
		LengthInches: &req.LengthInches,
		WidthInches:  &req.WidthInches,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		Source:       internal.SourceAI,
		Confidence:   1,
	}
	if !extraction.Complete() {
		return Result{}, fmt.Errorf("direct request incomplete: missing %s", strings.Join(extraction.MissingFields(), ", "))
	}
	if err := p.db.SetThreadRequest(th.ID, &extraction); err != nil {
		return Result{}, err
	}
	if err := p.db.UpdateThreadState(th.ID, internal.StateComplete); err != nil {
		return Result{}, err
	}

	customer, err := p.db.UpsertCustomer(req.BusinessID, util.CleanAddress(req.CustomerEmail), req.CustomerName)
	if err != nil {
		return Result{}, err
	}

	products, err := p.db.ListActiveProducts(req.BusinessID)
	if err != nil {
		return Result{}, err
	}

	result := Result{ThreadID: th.ID, Intent: internal.IntentNewRequest, State: internal.StateComplete, Action: internal.ActionGenerateQuote}
	quote, price, qerr := p.generateQuote(*business, customer, th.ID, extraction, catalog.BuildIndex(products))
	if qerr != nil {
		result.Action = internal.ActionFlagManual
		result.ManualReason = qerr.Error()
		return result, nil
	}
	if err := p.db.UpdateThreadState(th.ID, internal.StateQuoted); err != nil {
		return Result{}, err
	}
	result.State = internal.StateQuoted
	result.Quote = quote
	result.Price = price
	return result, nil
}

// CloseThread ends automation for a thread.
func (p *Processor) CloseThread(threadID int64) error {
	unlock := p.lockThread(threadID)
	defer unlock()
	return p.db.UpdateThreadState(threadID, internal.StateClosed)
}

const defaultFormula = "area * rate"

func (p *Processor) generateQuote(business internal.BusinessRecord, customer internal.CustomerRecord, threadID int64, req internal.ExtractedRequest, idx *catalog.Index) (*internal.QuoteRecord, *internal.PriceResult, error) {
	product, ok := idx.ResolveName(*req.ProductName)
	if !ok {
		return nil, nil, fmt.Errorf("no active product matches %q", *req.ProductName)
	}

	src := defaultFormula
	if product.Formula != nil && strings.TrimSpace(*product.Formula) != "" {
		src = *product.Formula
	}
	compiled, err := p.compile(src)
	if err != nil {
		return nil, nil, fmt.Errorf("formula for %q: %w", product.Name, err)
	}

	rate := product.RatePerSqIn
	if rate == 0 {
		rate = p.cfg.BaseRatePerSqIn
	}
	minOrder := product.MinOrderAmt
	if minOrder == 0 {
		minOrder = p.cfg.MinOrderAmount
	}
	bounds := formula.Bounds{
		MinArea:   product.MinSizeSqIn,
		MaxArea:   product.MaxSizeSqIn,
		MinLength: product.MinLengthIn,
		MaxLength: product.MaxLengthIn,
		MinWidth:  product.MinWidthIn,
		MaxWidth:  product.MaxWidthIn,
	}

	price, err := formula.Price(compiled, *req.LengthInches, *req.WidthInches, p.cfg.BaseRatePerSqIn, rate, minOrder, bounds)
	if err != nil {
		return nil, nil, err
	}

	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}
	quote := internal.QuoteRecord{
		BusinessID:   business.ID,
		QuoteNumber:  QuoteNumber(time.Now()),
		ThreadID:     threadID,
		CustomerID:   customer.ID,
		ProductID:    product.ID,
		LengthInches: *req.LengthInches,
		WidthInches:  *req.WidthInches,
		AreaSqInches: price.AreaSqInches,
		UnitPrice:    price.UnitPrice,
		TotalPrice:   price.TotalPrice,
		Status:       "pending",
		Notes:        notes,
	}
	quoteID, err := p.db.InsertQuote(quote)
	if err != nil {
		return nil, nil, fmt.Errorf("insert quote: %w", err)
	}
	quote.ID = quoteID
	quote.CreatedAt = time.Now()

	if err := p.db.SetThreadQuote(threadID, quoteID); err != nil {
		return nil, nil, err
	}
	if err := p.db.TouchCustomerQuoted(customer.ID, time.Now()); err != nil {
		return nil, nil, err
	}

	p.log.Info().
		Str("quoteNumber", quote.QuoteNumber).
		Float64("total", quote.TotalPrice).
		Int64("thread", threadID).
		Msg("quote generated")
	return &quote, &price, nil
}

// recordResponse persists the outbound reply and registers its Message-ID
// as a thread key, so a customer replying to it lands on the same thread.
func (p *Processor) recordResponse(threadID int64, business internal.BusinessRecord, inbound internal.RawMessage, subject, body string, kind internal.Action, quoteID *int64) error {
	messageID := newMessageID(business.Email)
	rec := internal.ResponseRecord{
		ThreadID:  threadID,
		MessageID: messageID,
		InReplyTo: inbound.MessageID,
		ToEmail:   util.CleanAddress(inbound.FromEmail),
		Subject:   subject,
		Body:      body,
		Kind:      kind,
		QuoteID:   quoteID,
	}
	if _, err := p.db.InsertResponse(rec); err != nil {
		return fmt.Errorf("record response: %w", err)
	}
	return p.db.AddThreadKey(threadID, business.ID, util.CleanMessageID(messageID))
}

func (p *Processor) compile(src string) (*formula.Compiled, error) {
	p.compileMu.Lock()
	defer p.compileMu.Unlock()
	if c, ok := p.compiled[src]; ok {
		return c, nil
	}
	c, err := formula.Compile(src)
	if err != nil {
		return nil, err
	}
	p.compiled[src] = c
	return c, nil
}

func (p *Processor) lockThread(threadID int64) func() {
	p.mu.Lock()
	lock, ok := p.locks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[threadID] = lock
	}
	p.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// QuoteNumber formats a quote identifier like Q-20260831-3FA2C1.
func QuoteNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("Q-%s-%s", now.Format("20060102"), suffix)
}

func newMessageID(fromEmail string) string {
	domain := "quotedesk.local"
	if at := strings.LastIndexByte(fromEmail, '@'); at >= 0 && at < len(fromEmail)-1 {
		domain = fromEmail[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		return subject
	}
	return "Re: " + subject
}
