package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"simex/internal/orderbook"

	_ "modernc.org/sqlite"
)

// Store archives the trade ledger and event log to SQLite as a session
// tape. It is write-only during a session: rows are appended as the engine
// reports them and never read back into the book.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the tape database and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		trade_id INTEGER NOT NULL,
		order_id INTEGER NOT NULL,
		side TEXT NOT NULL,       -- 'buy' or 'sell'
		price INTEGER NOT NULL,   -- in cents
		quantity INTEGER NOT NULL,
		executed_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, trade_id)
	);

	CREATE TABLE IF NOT EXISTS events (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		order_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		price INTEGER NOT NULL,
		status TEXT NOT NULL,     -- 'cancelled' or 'expired'
		logged_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, order_id)
	);

	CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginSession registers a new session and returns its id.
func (s *Store) BeginSession(startedAt time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(`INSERT INTO sessions (id, started_at) VALUES (?, ?)`, id, startedAt)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecordTrade appends one ledger row to the session tape.
func (s *Store) RecordTrade(sessionID string, t orderbook.Trade) error {
	_, err := s.db.Exec(
		`INSERT INTO trades (session_id, trade_id, order_id, side, price, quantity, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, t.TradeID, t.OrderID, t.Side.String(), t.Price, t.Quantity, t.ExecutedAt,
	)
	return err
}

// RecordEvent appends one cancel/expire row to the session tape.
func (s *Store) RecordEvent(sessionID string, ev orderbook.Event) error {
	_, err := s.db.Exec(
		`INSERT INTO events (session_id, order_id, quantity, price, status, logged_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, ev.ID, ev.Quantity, ev.Price, ev.Status.String(), ev.LoggedAt,
	)
	return err
}

// SessionTrades returns the archived trades for a session in trade_id order.
func (s *Store) SessionTrades(sessionID string) ([]orderbook.Trade, error) {
	rows, err := s.db.Query(
		`SELECT trade_id, order_id, side, price, quantity, executed_at
		 FROM trades WHERE session_id = ? ORDER BY trade_id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []orderbook.Trade
	for rows.Next() {
		var t orderbook.Trade
		var side string
		if err := rows.Scan(&t.TradeID, &t.OrderID, &side, &t.Price, &t.Quantity, &t.ExecutedAt); err != nil {
			return nil, err
		}
		if t.Side, err = orderbook.ParseSide(side); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// SessionEvents returns the archived events for a session in append order.
func (s *Store) SessionEvents(sessionID string) ([]orderbook.Event, error) {
	// rowid preserves insertion order even when timestamps collide.
	rows, err := s.db.Query(
		`SELECT order_id, quantity, price, status, logged_at
		 FROM events WHERE session_id = ? ORDER BY rowid`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []orderbook.Event
	for rows.Next() {
		var ev orderbook.Event
		var status string
		if err := rows.Scan(&ev.ID, &ev.Quantity, &ev.Price, &status, &ev.LoggedAt); err != nil {
			return nil, err
		}
		switch status {
		case "cancelled":
			ev.Status = orderbook.Cancelled
		case "expired":
			ev.Status = orderbook.Expired
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
