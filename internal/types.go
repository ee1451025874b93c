package internal

import "time"

// ThreadState is the lifecycle state of a conversation thread.
type ThreadState string

const (
	StateIncomplete    ThreadState = "incomplete"
	StateInfoRequested ThreadState = "info_requested"
	StateComplete      ThreadState = "complete"
	StateQuoted        ThreadState = "quoted"
	StateClosed        ThreadState = "closed"
)

// Intent labels a message's role relative to its thread.
type Intent string

const (
	IntentNewRequest Intent = "new_request"
	IntentFollowUp   Intent = "follow_up"
	IntentDuplicate  Intent = "duplicate"
	IntentUnrelated  Intent = "unrelated"
)

// Action is the directive the pipeline emits for the orchestration layer.
type Action string

const (
	ActionRequestInfo   Action = "request_info"
	ActionGenerateQuote Action = "generate_quote"
	ActionSuppressReply Action = "suppress_reply"
	ActionFlagManual    Action = "flag_manual"
	ActionNone          Action = "none"
)

// ExtractionSource distinguishes how an ExtractedRequest was produced.
type ExtractionSource string

const (
	SourceAI    ExtractionSource = "ai"
	SourceRegex ExtractionSource = "regex"
)

// RawMessage is one inbound communication. Immutable once ingested.
type RawMessage struct {
	ID         int64
	BusinessID int64
	Provider   string
	MessageID  *string
	InReplyTo  *string
	References []string
	FromEmail  string
	FromName   *string
	ToEmail    *string
	Subject    string
	Body       string
	ReceivedAt time.Time
	RawRef     string
}

// Thread correlates one or more RawMessages into a conversation.
type Thread struct {
	ID         int64
	BusinessID int64
	ThreadKey  string
	State      ThreadState
	MessageIDs []int64
	Request    *ExtractedRequest
	QuoteID    *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExtractedRequest is the structured result of field extraction, possibly
// merged across a thread's messages.
type ExtractedRequest struct {
	ProductName  *string          `json:"productName,omitempty"`
	LengthInches *float64         `json:"lengthInches,omitempty"`
	WidthInches  *float64         `json:"widthInches,omitempty"`
	CustomerName *string          `json:"customerName,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	Source       ExtractionSource `json:"source"`
	Confidence   float64          `json:"confidence"`
}

const (
	FieldProductName  = "product_name"
	FieldLengthInches = "length_inches"
	FieldWidthInches  = "width_inches"
)

// MissingFields lists required fields not yet populated.
func (r ExtractedRequest) MissingFields() []string {
	missing := []string{}
	if r.ProductName == nil || *r.ProductName == "" {
		missing = append(missing, FieldProductName)
	}
	if r.LengthInches == nil {
		missing = append(missing, FieldLengthInches)
	}
	if r.WidthInches == nil {
		missing = append(missing, FieldWidthInches)
	}
	return missing
}

// Complete reports whether product and both dimensions are present with
// strictly positive dimensions.
func (r ExtractedRequest) Complete() bool {
	if len(r.MissingFields()) > 0 {
		return false
	}
	return *r.LengthInches > 0 && *r.WidthInches > 0
}

// Merge overlays later extraction b onto r: non-nil fields of b overwrite,
// nil fields of b never erase what r already has.
func (r ExtractedRequest) Merge(b ExtractedRequest) ExtractedRequest {
	out := r
	if b.ProductName != nil && *b.ProductName != "" {
		out.ProductName = b.ProductName
	}
	if b.LengthInches != nil {
		out.LengthInches = b.LengthInches
	}
	if b.WidthInches != nil {
		out.WidthInches = b.WidthInches
	}
	if b.CustomerName != nil && *b.CustomerName != "" {
		out.CustomerName = b.CustomerName
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}
	out.Source = b.Source
	out.Confidence = b.Confidence
	return out
}

// PriceResult is the outcome of evaluating a product's pricing against
// extracted dimensions.
type PriceResult struct {
	TotalPrice   float64            `json:"totalPrice"`
	AreaSqInches float64            `json:"areaSqInches"`
	UnitPrice    float64            `json:"unitPrice"`
	MinOrder     float64            `json:"minOrder"`
	Bindings     map[string]float64 `json:"bindings"`
	WithinBounds bool               `json:"withinBounds"`
}

// BusinessRecord is one tenant whose inbox the system polls.
type BusinessRecord struct {
	ID               int64
	Name             string
	Email            string
	InboxEmail       *string
	Provider         string
	PollIntervalMins int
	Active           bool
}

// ProductRecord is a business-owned product with its pricing rule.
type ProductRecord struct {
	ID          int64
	BusinessID  int64
	Name        string
	Description *string
	Formula     *string
	RatePerSqIn float64
	MinOrderAmt float64
	MinSizeSqIn *float64
	MaxSizeSqIn *float64
	MinLengthIn *float64
	MaxLengthIn *float64
	MinWidthIn  *float64
	MaxWidthIn  *float64
	Active      bool
}

// CustomerRecord is a sender known to a business.
type CustomerRecord struct {
	ID            int64
	BusinessID    int64
	Email         string
	Name          *string
	IsNewCustomer bool
	LastQuoteAt   *time.Time
}

// QuoteRecord is a priced quote produced for a thread.
type QuoteRecord struct {
	ID           int64
	BusinessID   int64
	QuoteNumber  string
	ThreadID     int64
	CustomerID   int64
	ProductID    int64
	LengthInches float64
	WidthInches  float64
	AreaSqInches float64
	UnitPrice    float64
	TotalPrice   float64
	Status       string
	Notes        *string
	CreatedAt    time.Time
}

// ResponseRecord is an outbound reply we produced for a thread. The actual
// send is handled by an external collaborator; the record keeps the
// Message-ID fields so later inbound replies correlate back to the thread.
type ResponseRecord struct {
	ID        int64
	ThreadID  int64
	MessageID string
	InReplyTo *string
	ToEmail   string
	Subject   string
	Body      string
	Kind      Action
	QuoteID   *int64
	SentAt    time.Time
}

// FetchedMailMessage is a raw message pulled from a mail provider before
// MIME parsing.
type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

// ParsedPriceRow is one product row extracted from an uploaded pricing
// document before validation.
type ParsedPriceRow struct {
	LineNo      int
	Name        string
	Formula     *string
	RatePerSqIn *float64
	MinSizeSqIn *float64
	MaxSizeSqIn *float64
	RawLine     string
}

// QuoteExportRow is one row of the quote ledger XLSX export.
type QuoteExportRow struct {
	QuoteNumber  string
	BusinessName string
	CustomerMail string
	ProductName  string
	LengthInches float64
	WidthInches  float64
	AreaSqInches float64
	UnitPrice    float64
	TotalPrice   float64
	Status       string
	CreatedAt    string
}
