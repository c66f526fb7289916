package engine

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"simex/internal/config"
	"simex/internal/feed"
	"simex/internal/orderbook"
)

// Engine is the boundary the presentation layer calls: it owns the book,
// the shared order id counter and the generator configuration, and hands
// out point-in-time snapshots. Counters are per-engine, so multiple
// engines coexist without interference.
type Engine struct {
	log  zerolog.Logger
	book *orderbook.Book

	idSeq atomic.Int64

	cfgMu     sync.RWMutex
	genCfg    config.Generator
	basePrice int64

	cbMu    sync.Mutex
	onTrade []func(orderbook.Trade)
	onEvent []func(orderbook.Event)

	sweepMu       sync.Mutex
	sweepInterval time.Duration
	sweepStop     chan struct{}
	sweeping      bool
}

// New creates an engine with a fresh book. cfg must already be validated.
func New(cfg *config.Config, log zerolog.Logger) *Engine {
	return &Engine{
		log:           log,
		book:          orderbook.New(),
		genCfg:        cfg.Generator,
		basePrice:     cfg.BasePrice,
		sweepInterval: cfg.ExpiryInterval,
	}
}

// NextID allocates the next order id. Ids are globally unique and strictly
// increasing across the user and synthetic submission paths.
func (e *Engine) NextID() int64 {
	return e.idSeq.Add(1)
}

// Configure atomically replaces the generator configuration. An invalid
// config is rejected and the previous one stays in effect; a valid one
// applies to subsequently generated orders only.
func (e *Engine) Configure(gc config.Generator) error {
	if err := gc.Validate(); err != nil {
		return err
	}
	e.cfgMu.Lock()
	e.genCfg = gc
	e.cfgMu.Unlock()

	e.log.Info().
		Float64("tick_size", gc.TickSize).
		Float64("price_sigma", gc.PriceSigma).
		Float64("market_prob", gc.MarketProb).
		Int("expiry_seconds", gc.ExpirySeconds).
		Int64("min_qty", gc.MinQty).
		Int64("max_qty", gc.MaxQty).
		Msg("generator reconfigured")
	return nil
}

// GeneratorConfig returns the configuration in effect right now.
func (e *Engine) GeneratorConfig() config.Generator {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.genCfg
}

// SubmitUserOrder validates a user submission, mints an id and runs it
// through the book. Side and order type are case-insensitive. Validation
// failures leave no state change.
func (e *Engine) SubmitUserOrder(side, orderType string, price, quantity int64) (orderbook.Order, []orderbook.Trade, error) {
	s, err := orderbook.ParseSide(side)
	if err != nil {
		return orderbook.Order{}, nil, err
	}
	t, err := orderbook.ParseOrderType(orderType)
	if err != nil {
		return orderbook.Order{}, nil, err
	}
	if quantity <= 0 {
		return orderbook.Order{}, nil, orderbook.ErrInvalidQuantity
	}
	if price <= 0 {
		return orderbook.Order{}, nil, orderbook.ErrInvalidPrice
	}

	order := &orderbook.Order{
		ID:       e.NextID(),
		Side:     s,
		Type:     t,
		Price:    price,
		Quantity: quantity,
	}
	return e.Submit(order)
}

// SubmitSynthetic builds one synthetic order around the current reference
// price, mints its id and runs it through the book. The caller owns the
// random source, so sessions are reproducible under a fixed seed.
func (e *Engine) SubmitSynthetic(rng *rand.Rand) (orderbook.Order, []orderbook.Trade, error) {
	return e.Submit(feed.Generate(e.NextID(), e.ReferencePrice(), e.GeneratorConfig(), rng))
}

// Submit runs an already-built order through the book and fires trade and
// event callbacks. The synthetic path enters here; callbacks run outside
// the book lock. The returned order is the copy the book captured under
// its lock; the pointer passed in belongs to the book afterwards and may
// keep mutating as later submissions fill it.
func (e *Engine) Submit(order *orderbook.Order) (orderbook.Order, []orderbook.Trade, error) {
	result, trades, events, err := e.book.Submit(order)
	if err != nil {
		return orderbook.Order{}, nil, err
	}

	e.log.Debug().
		Int64("order_id", result.ID).
		Str("side", result.Side.String()).
		Str("type", result.Type.String()).
		Int64("price", result.Price).
		Int64("quantity", result.Quantity).
		Str("status", result.Status.String()).
		Int("trades", len(trades)).
		Msg("order submitted")

	e.notify(trades, events)
	return result, trades, nil
}

// ReferencePrice returns the book mid, falling back to the configured base
// price while the book is one-sided or empty.
func (e *Engine) ReferencePrice() int64 {
	if mid := e.book.MidPrice(); mid > 0 {
		return mid
	}
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.basePrice
}

// BookSnapshot returns a consistent copy of every resting order.
func (e *Engine) BookSnapshot() []orderbook.BookRow {
	return e.book.Snapshot()
}

// TradeSnapshot returns a copy of the trade ledger in trade_id order.
func (e *Engine) TradeSnapshot() []orderbook.Trade {
	return e.book.Trades()
}

// EventSnapshot returns a copy of the cancelled/expired event log.
func (e *Engine) EventSnapshot() []orderbook.Event {
	return e.book.Events()
}

// Stats returns current book statistics for display.
func (e *Engine) Stats() orderbook.Stats {
	return e.book.Stats()
}

// Order looks up an active resting order by id.
func (e *Engine) Order(id int64) (orderbook.Order, bool) {
	return e.book.Order(id)
}

// OnTrade registers a callback fired once per trade, after the submission
// that produced it has completed.
func (e *Engine) OnTrade(fn func(orderbook.Trade)) {
	e.cbMu.Lock()
	e.onTrade = append(e.onTrade, fn)
	e.cbMu.Unlock()
}

// OnEvent registers a callback fired once per cancel/expire event.
func (e *Engine) OnEvent(fn func(orderbook.Event)) {
	e.cbMu.Lock()
	e.onEvent = append(e.onEvent, fn)
	e.cbMu.Unlock()
}

func (e *Engine) notify(trades []orderbook.Trade, events []orderbook.Event) {
	e.cbMu.Lock()
	tradeFns := make([]func(orderbook.Trade), len(e.onTrade))
	copy(tradeFns, e.onTrade)
	eventFns := make([]func(orderbook.Event), len(e.onEvent))
	copy(eventFns, e.onEvent)
	e.cbMu.Unlock()

	for _, t := range trades {
		for _, fn := range tradeFns {
			fn(t)
		}
	}
	for _, ev := range events {
		for _, fn := range eventFns {
			fn(ev)
		}
	}
}

// Start launches the background expiry sweeper. Submissions also sweep
// lazily, so the ticker only bounds how long an untouched book can hold
// expired orders.
func (e *Engine) Start() {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()
	if e.sweeping {
		return
	}
	e.sweeping = true
	e.sweepStop = make(chan struct{})
	go e.sweepLoop(e.sweepStop)
}

// Stop halts the expiry sweeper. It does not interrupt an in-flight sweep.
func (e *Engine) Stop() {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()
	if !e.sweeping {
		return
	}
	e.sweeping = false
	close(e.sweepStop)
}

func (e *Engine) sweepLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.SweepExpired(time.Now())
		case <-stop:
			return
		}
	}
}

// SweepExpired expires every resting order past its deadline at now and
// fires event callbacks for each.
func (e *Engine) SweepExpired(now time.Time) []orderbook.Event {
	events := e.book.SweepExpired(now)
	if len(events) > 0 {
		e.log.Debug().Int("expired", len(events)).Msg("expiry sweep")
		e.notify(nil, events)
	}
	return events
}
