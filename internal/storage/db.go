package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"quotedesk/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS businesses (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  inboxEmail TEXT,
  provider TEXT NOT NULL DEFAULT 'imap',
  pollIntervalMins INTEGER NOT NULL DEFAULT 10,
  active INTEGER NOT NULL DEFAULT 1,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_businesses_email ON businesses(email);

CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  businessId INTEGER NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  formula TEXT,
  ratePerSqIn REAL NOT NULL DEFAULT 0.05,
  minOrderAmt REAL NOT NULL DEFAULT 50.0,
  minSizeSqIn REAL,
  maxSizeSqIn REAL,
  minLengthIn REAL,
  maxLengthIn REAL,
  minWidthIn REAL,
  maxWidthIn REAL,
  active INTEGER NOT NULL DEFAULT 1,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(businessId) REFERENCES businesses(id)
);
CREATE INDEX IF NOT EXISTS idx_products_business ON products(businessId);

CREATE TABLE IF NOT EXISTS customers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  businessId INTEGER NOT NULL,
  email TEXT NOT NULL,
  name TEXT,
  isNewCustomer INTEGER NOT NULL DEFAULT 1,
  lastQuoteAt TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(businessId, email),
  FOREIGN KEY(businessId) REFERENCES businesses(id)
);

CREATE TABLE IF NOT EXISTS threads (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  businessId INTEGER NOT NULL,
  threadKey TEXT NOT NULL,
  fallbackKey TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT 'incomplete',
  requestJson TEXT,
  quoteId INTEGER,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(businessId) REFERENCES businesses(id)
);
CREATE INDEX IF NOT EXISTS idx_threads_fallback ON threads(businessId, fallbackKey);

CREATE TABLE IF NOT EXISTS thread_keys (
  threadId INTEGER NOT NULL,
  businessId INTEGER NOT NULL,
  key TEXT NOT NULL,
  UNIQUE(businessId, key),
  FOREIGN KEY(threadId) REFERENCES threads(id)
);
CREATE INDEX IF NOT EXISTS idx_thread_keys_thread ON thread_keys(threadId);

CREATE TABLE IF NOT EXISTS messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  threadId INTEGER,
  businessId INTEGER NOT NULL,
  provider TEXT NOT NULL,
  messageId TEXT,
  inReplyTo TEXT,
  referencesJson TEXT NOT NULL DEFAULT '[]',
  fromEmail TEXT NOT NULL,
  fromName TEXT,
  toEmail TEXT,
  subject TEXT NOT NULL DEFAULT '',
  body TEXT NOT NULL DEFAULT '',
  receivedAt TEXT NOT NULL,
  rawRef TEXT NOT NULL DEFAULT '',
  processedAt TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId),
  FOREIGN KEY(threadId) REFERENCES threads(id),
  FOREIGN KEY(businessId) REFERENCES businesses(id)
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(threadId);

CREATE TABLE IF NOT EXISTS quotes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  businessId INTEGER NOT NULL,
  quoteNumber TEXT NOT NULL UNIQUE,
  threadId INTEGER NOT NULL,
  customerId INTEGER NOT NULL,
  productId INTEGER NOT NULL,
  lengthInches REAL NOT NULL,
  widthInches REAL NOT NULL,
  areaSqInches REAL NOT NULL,
  unitPrice REAL NOT NULL,
  totalPrice REAL NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  notes TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(businessId) REFERENCES businesses(id),
  FOREIGN KEY(threadId) REFERENCES threads(id),
  FOREIGN KEY(customerId) REFERENCES customers(id),
  FOREIGN KEY(productId) REFERENCES products(id)
);

CREATE TABLE IF NOT EXISTS responses (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  threadId INTEGER NOT NULL,
  messageId TEXT NOT NULL UNIQUE,
  inReplyTo TEXT,
  toEmail TEXT NOT NULL,
  subject TEXT NOT NULL,
  body TEXT NOT NULL,
  kind TEXT NOT NULL,
  quoteId INTEGER,
  sentAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(threadId) REFERENCES threads(id)
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// --- businesses ---

func (d *DB) InsertBusiness(b internal.BusinessRecord) (int64, error) {
	active := 0
	if b.Active {
		active = 1
	}
	result, err := d.conn.Exec(`
INSERT INTO businesses (name, email, inboxEmail, provider, pollIntervalMins, active)
VALUES (?, ?, ?, ?, ?, ?)
`, b.Name, b.Email, b.InboxEmail, b.Provider, b.PollIntervalMins, active)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) SetBusinessActive(id int64, active bool) error {
	v := 0
	if active {
		v = 1
	}
	_, err := d.conn.Exec(`UPDATE businesses SET active = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, v, id)
	return err
}

const businessColumns = `id, name, email, inboxEmail, provider, pollIntervalMins, active`

func scanBusiness(row interface{ Scan(...any) error }) (internal.BusinessRecord, error) {
	var b internal.BusinessRecord
	var active int
	err := row.Scan(&b.ID, &b.Name, &b.Email, &b.InboxEmail, &b.Provider, &b.PollIntervalMins, &active)
	b.Active = active != 0
	return b, err
}

func (d *DB) GetBusiness(id int64) (*internal.BusinessRecord, error) {
	b, err := scanBusiness(d.conn.QueryRow(`SELECT `+businessColumns+` FROM businesses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (d *DB) ListActiveBusinesses() ([]internal.BusinessRecord, error) {
	rows, err := d.conn.Query(`SELECT ` + businessColumns + ` FROM businesses WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.BusinessRecord
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// FindBusinessByAddress resolves the owning business for a To: address:
// exact match on email or inboxEmail, then local-part prefix match, then
// the first active business.
func (d *DB) FindBusinessByAddress(addr string) (*internal.BusinessRecord, error) {
	if addr != "" {
		b, err := scanBusiness(d.conn.QueryRow(`
SELECT `+businessColumns+` FROM businesses
WHERE lower(email) = ? OR lower(inboxEmail) = ?
ORDER BY id LIMIT 1`, addr, addr))
		if err == nil {
			return &b, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		if at := indexByte(addr, '@'); at > 0 {
			local := addr[:at]
			b, err = scanBusiness(d.conn.QueryRow(`
SELECT `+businessColumns+` FROM businesses
WHERE lower(email) LIKE ? ORDER BY id LIMIT 1`, local+"@%"))
			if err == nil {
				return &b, nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
		}
	}

	b, err := scanBusiness(d.conn.QueryRow(`SELECT ` + businessColumns + ` FROM businesses WHERE active = 1 ORDER BY id LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// --- products ---

func (d *DB) InsertProduct(p internal.ProductRecord) (int64, error) {
	active := 0
	if p.Active {
		active = 1
	}
	result, err := d.conn.Exec(`
INSERT INTO products (businessId, name, description, formula, ratePerSqIn, minOrderAmt,
  minSizeSqIn, maxSizeSqIn, minLengthIn, maxLengthIn, minWidthIn, maxWidthIn, active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, p.BusinessID, p.Name, p.Description, p.Formula, p.RatePerSqIn, p.MinOrderAmt,
		p.MinSizeSqIn, p.MaxSizeSqIn, p.MinLengthIn, p.MaxLengthIn, p.MinWidthIn, p.MaxWidthIn, active)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const productColumns = `id, businessId, name, description, formula, ratePerSqIn, minOrderAmt,
  minSizeSqIn, maxSizeSqIn, minLengthIn, maxLengthIn, minWidthIn, maxWidthIn, active`

func scanProduct(row interface{ Scan(...any) error }) (internal.ProductRecord, error) {
	var p internal.ProductRecord
	var active int
	err := row.Scan(&p.ID, &p.BusinessID, &p.Name, &p.Description, &p.Formula, &p.RatePerSqIn, &p.MinOrderAmt,
		&p.MinSizeSqIn, &p.MaxSizeSqIn, &p.MinLengthIn, &p.MaxLengthIn, &p.MinWidthIn, &p.MaxWidthIn, &active)
	p.Active = active != 0
	return p, err
}

func (d *DB) GetProduct(id int64) (*internal.ProductRecord, error) {
	p, err := scanProduct(d.conn.QueryRow(`SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActiveProducts returns a business's active catalog in insertion order,
// which is also the extractor's tie-break order.
func (d *DB) ListActiveProducts(businessID int64) ([]internal.ProductRecord, error) {
	rows, err := d.conn.Query(`SELECT `+productColumns+` FROM products WHERE businessId = ? AND active = 1 ORDER BY id`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ProductRecord
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- customers ---

// UpsertCustomer finds or creates the sender for a business. A customer seen
// again stops being "new".
func (d *DB) UpsertCustomer(businessID int64, email string, name *string) (internal.CustomerRecord, error) {
	var c internal.CustomerRecord
	var isNew int
	var lastQuoteAt *string
	err := d.conn.QueryRow(`
SELECT id, businessId, email, name, isNewCustomer, lastQuoteAt
FROM customers WHERE businessId = ? AND email = ?`, businessID, email).
		Scan(&c.ID, &c.BusinessID, &c.Email, &c.Name, &isNew, &lastQuoteAt)
	if err == nil {
		if _, err := d.conn.Exec(`UPDATE customers SET isNewCustomer = 0 WHERE id = ?`, c.ID); err != nil {
			return internal.CustomerRecord{}, err
		}
		if name != nil && c.Name == nil {
			_, _ = d.conn.Exec(`UPDATE customers SET name = ? WHERE id = ?`, name, c.ID)
			c.Name = name
		}
		c.IsNewCustomer = false
		if lastQuoteAt != nil {
			if t, perr := time.Parse(time.RFC3339, *lastQuoteAt); perr == nil {
				c.LastQuoteAt = &t
			}
		}
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return internal.CustomerRecord{}, err
	}

	result, err := d.conn.Exec(`INSERT INTO customers (businessId, email, name) VALUES (?, ?, ?)`, businessID, email, name)
	if err != nil {
		return internal.CustomerRecord{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return internal.CustomerRecord{}, err
	}
	return internal.CustomerRecord{ID: id, BusinessID: businessID, Email: email, Name: name, IsNewCustomer: true}, nil
}

func (d *DB) TouchCustomerQuoted(customerID int64, at time.Time) error {
	_, err := d.conn.Exec(`UPDATE customers SET lastQuoteAt = ? WHERE id = ?`, at.UTC().Format(time.RFC3339), customerID)
	return err
}

// --- threads ---

func (d *DB) CreateThread(businessID int64, threadKey, fallbackKey string) (internal.Thread, error) {
	result, err := d.conn.Exec(`
INSERT INTO threads (businessId, threadKey, fallbackKey, state) VALUES (?, ?, ?, ?)
`, businessID, threadKey, fallbackKey, string(internal.StateIncomplete))
	if err != nil {
		return internal.Thread{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return internal.Thread{}, err
	}
	return internal.Thread{ID: id, BusinessID: businessID, ThreadKey: threadKey, State: internal.StateIncomplete}, nil
}

func (d *DB) GetThread(id int64) (*internal.Thread, error) {
	var t internal.Thread
	var state string
	var requestJSON *string
	var createdAt, updatedAt string
	err := d.conn.QueryRow(`
SELECT id, businessId, threadKey, state, requestJson, quoteId, createdAt, updatedAt
FROM threads WHERE id = ?`, id).
		Scan(&t.ID, &t.BusinessID, &t.ThreadKey, &state, &requestJSON, &t.QuoteID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.State = internal.ThreadState(state)
	if requestJSON != nil {
		var req internal.ExtractedRequest
		if err := json.Unmarshal([]byte(*requestJSON), &req); err == nil {
			t.Request = &req
		}
	}
	t.CreatedAt = parseTimestamp(createdAt)
	t.UpdatedAt = parseTimestamp(updatedAt)

	rows, err := d.conn.Query(`SELECT id FROM messages WHERE threadId = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var msgID int64
		if err := rows.Scan(&msgID); err != nil {
			return nil, err
		}
		t.MessageIDs = append(t.MessageIDs, msgID)
	}
	return &t, rows.Err()
}

// FindThreadIDByIdentifier looks up a thread by any message or reply-chain
// identifier it has ever seen.
func (d *DB) FindThreadIDByIdentifier(businessID int64, key string) (int64, bool, error) {
	var id int64
	err := d.conn.QueryRow(`SELECT threadId FROM thread_keys WHERE businessId = ? AND key = ?`, businessID, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// FindOpenThreadByFallbackKey matches the sender+subject fallback key
// against threads that are not closed.
func (d *DB) FindOpenThreadByFallbackKey(businessID int64, fallbackKey string) (int64, bool, error) {
	var id int64
	err := d.conn.QueryRow(`
SELECT id FROM threads
WHERE businessId = ? AND fallbackKey = ? AND state != ?
ORDER BY updatedAt DESC LIMIT 1`, businessID, fallbackKey, string(internal.StateClosed)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// AddThreadKey records one more identifier in the thread's arena. Duplicate
// keys are ignored; a key already owned by another thread stays with the
// thread that saw it first.
func (d *DB) AddThreadKey(threadID, businessID int64, key string) error {
	if key == "" {
		return nil
	}
	_, err := d.conn.Exec(`
INSERT INTO thread_keys (threadId, businessId, key) VALUES (?, ?, ?)
ON CONFLICT(businessId, key) DO NOTHING`, threadID, businessID, key)
	return err
}

func (d *DB) UpdateThreadState(threadID int64, state internal.ThreadState) error {
	_, err := d.conn.Exec(`UPDATE threads SET state = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, string(state), threadID)
	return err
}

func (d *DB) SetThreadRequest(threadID int64, req *internal.ExtractedRequest) error {
	if req == nil {
		_, err := d.conn.Exec(`UPDATE threads SET requestJson = NULL, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, threadID)
		return err
	}
	blob, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`UPDATE threads SET requestJson = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, string(blob), threadID)
	return err
}

func (d *DB) SetThreadQuote(threadID, quoteID int64) error {
	_, err := d.conn.Exec(`UPDATE threads SET quoteId = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, quoteID, threadID)
	return err
}

// --- messages ---

func (d *DB) InsertMessage(msg internal.RawMessage, threadID int64) (int64, error) {
	refs, err := json.Marshal(msg.References)
	if err != nil {
		return 0, err
	}
	result, err := d.conn.Exec(`
INSERT INTO messages (threadId, businessId, provider, messageId, inReplyTo, referencesJson,
  fromEmail, fromName, toEmail, subject, body, receivedAt, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, threadID, msg.BusinessID, msg.Provider, msg.MessageID, msg.InReplyTo, string(refs),
		msg.FromEmail, msg.FromName, msg.ToEmail, msg.Subject, msg.Body,
		msg.ReceivedAt.UTC().Format(time.RFC3339), msg.RawRef)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) HasMessage(provider, messageID string) (bool, error) {
	var one int
	err := d.conn.QueryRow(`SELECT 1 FROM messages WHERE provider = ? AND messageId = ?`, provider, messageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *DB) MarkMessageProcessed(id int64) error {
	_, err := d.conn.Exec(`UPDATE messages SET processedAt = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

func (d *DB) CountThreadMessages(threadID int64) (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM messages WHERE threadId = ?`, threadID).Scan(&n)
	return n, err
}

// --- quotes ---

func (d *DB) InsertQuote(q internal.QuoteRecord) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO quotes (businessId, quoteNumber, threadId, customerId, productId,
  lengthInches, widthInches, areaSqInches, unitPrice, totalPrice, status, notes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, q.BusinessID, q.QuoteNumber, q.ThreadID, q.CustomerID, q.ProductID,
		q.LengthInches, q.WidthInches, q.AreaSqInches, q.UnitPrice, q.TotalPrice, q.Status, q.Notes)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) GetQuote(id int64) (*internal.QuoteRecord, error) {
	var q internal.QuoteRecord
	var createdAt string
	err := d.conn.QueryRow(`
SELECT id, businessId, quoteNumber, threadId, customerId, productId,
  lengthInches, widthInches, areaSqInches, unitPrice, totalPrice, status, notes, createdAt
FROM quotes WHERE id = ?`, id).
		Scan(&q.ID, &q.BusinessID, &q.QuoteNumber, &q.ThreadID, &q.CustomerID, &q.ProductID,
			&q.LengthInches, &q.WidthInches, &q.AreaSqInches, &q.UnitPrice, &q.TotalPrice, &q.Status, &q.Notes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	q.CreatedAt = parseTimestamp(createdAt)
	return &q, nil
}

func (d *DB) GetQuoteExportRows(businessID int64) ([]internal.QuoteExportRow, error) {
	rows, err := d.conn.Query(`
SELECT q.quoteNumber, b.name, c.email, p.name,
  q.lengthInches, q.widthInches, q.areaSqInches, q.unitPrice, q.totalPrice, q.status, q.createdAt
FROM quotes q
JOIN businesses b ON b.id = q.businessId
JOIN customers c ON c.id = q.customerId
JOIN products p ON p.id = q.productId
WHERE q.businessId = ?
ORDER BY q.id`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.QuoteExportRow
	for rows.Next() {
		var r internal.QuoteExportRow
		if err := rows.Scan(&r.QuoteNumber, &r.BusinessName, &r.CustomerMail, &r.ProductName,
			&r.LengthInches, &r.WidthInches, &r.AreaSqInches, &r.UnitPrice, &r.TotalPrice, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- responses ---

func (d *DB) InsertResponse(r internal.ResponseRecord) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO responses (threadId, messageId, inReplyTo, toEmail, subject, body, kind, quoteId)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, r.ThreadID, r.MessageID, r.InReplyTo, r.ToEmail, r.Subject, r.Body, string(r.Kind), r.QuoteID)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) CountThreadResponses(threadID int64) (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM responses WHERE threadId = ?`, threadID).Scan(&n)
	return n, err
}

func (d *DB) MustGetThread(id int64) (internal.Thread, error) {
	t, err := d.GetThread(id)
	if err != nil {
		return internal.Thread{}, err
	}
	if t == nil {
		return internal.Thread{}, fmt.Errorf("thread not found: id=%d", id)
	}
	return *t, nil
}

func parseTimestamp(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
