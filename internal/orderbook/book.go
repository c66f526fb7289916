package orderbook

import (
	"sync"
	"time"

	"github.com/google/btree"
)

// priceLevel holds the FIFO queue of resting orders at one price.
// Orders within a level match in arrival order.
type priceLevel struct {
	price  int64
	orders []*Order
}

func (pl *priceLevel) totalQuantity() int64 {
	var total int64
	for _, o := range pl.orders {
		total += o.Remaining()
	}
	return total
}

// bidLess orders the bid side by price descending so Min() is the best bid.
func bidLess(a, b *priceLevel) bool {
	return a.price > b.price
}

// askLess orders the ask side by price ascending so Min() is the best ask.
func askLess(a, b *priceLevel) bool {
	return a.price < b.price
}

// Book is an in-memory order book for a single instrument. Each side is a
// B-tree of price levels with a FIFO queue per level; a secondary index maps
// order id to the resting order. All mutation happens under one write lock,
// so a submission, its trades and its trade ids are applied atomically.
type Book struct {
	mu     sync.RWMutex
	bids   *btree.BTreeG[*priceLevel]
	asks   *btree.BTreeG[*priceLevel]
	orders map[int64]*Order

	trades []Trade
	events []Event

	tradeSeq int64
	now      func() time.Time
}

func New() *Book {
	const degree = 32
	return &Book{
		bids:   btree.NewG(degree, bidLess),
		asks:   btree.NewG(degree, askLess),
		orders: make(map[int64]*Order),
		now:    time.Now,
	}
}

// Submit runs an order through the expiry sweep and the matching loop, then
// rests any limit remainder on the book. It returns a copy of the order's
// state at the end of the submission, the trades this submission produced,
// and any events appended (expiries from the head sweep, or the cancel of
// an unfilled market remainder). The book takes ownership of the order; a
// resting order keeps mutating under the book lock as later submissions
// fill it, so callers must use the returned copy, never the pointer.
func (b *Book) Submit(order *Order) (Order, []Trade, []Event, error) {
	if order == nil || order.Quantity <= 0 {
		return Order{}, nil, nil, ErrInvalidQuantity
	}
	if order.Type == Limit && order.Price <= 0 {
		return Order{}, nil, nil, ErrInvalidPrice
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.Status = Open

	events := b.sweepLocked(now)

	trades := b.matchLocked(order, now)

	switch {
	case order.Remaining() == 0:
		order.Status = Filled
	case order.Type == Market:
		// An unmatched market remainder never rests.
		order.Status = Cancelled
		ev := Event{
			ID:       order.ID,
			Quantity: order.Remaining(),
			Price:    order.Price,
			Status:   Cancelled,
			LoggedAt: now,
		}
		b.events = append(b.events, ev)
		events = append(events, ev)
	default:
		if order.Filled > 0 {
			order.Status = PartiallyFilled
		}
		b.restLocked(order)
	}

	// Copied before the lock is released.
	return *order, trades, events, nil
}

// matchLocked runs the crossing loop: while the order has remaining quantity
// and the best opposite level crosses, fill against the head of that level's
// FIFO queue. Trades print at the resting price.
func (b *Book) matchLocked(order *Order, now time.Time) []Trade {
	opposite := b.asks
	if order.Side == Sell {
		opposite = b.bids
	}

	var trades []Trade
	for order.Remaining() > 0 {
		level, ok := opposite.Min()
		if !ok {
			break
		}
		if order.Type == Limit {
			if order.Side == Buy && order.Price < level.price {
				break
			}
			if order.Side == Sell && order.Price > level.price {
				break
			}
		}

		resting := level.orders[0]
		matched := min(order.Remaining(), resting.Remaining())

		order.Filled += matched
		resting.Filled += matched

		b.tradeSeq++
		trade := Trade{
			TradeID:    b.tradeSeq,
			OrderID:    resting.ID,
			Side:       resting.Side,
			Price:      resting.Price,
			Quantity:   matched,
			ExecutedAt: now,
		}
		b.trades = append(b.trades, trade)
		trades = append(trades, trade)

		if resting.Remaining() == 0 {
			resting.Status = Filled
			delete(b.orders, resting.ID)
			level.orders = level.orders[1:]
			if len(level.orders) == 0 {
				opposite.Delete(level)
			}
		} else {
			// Partial fill at the head keeps its time priority.
			resting.Status = PartiallyFilled
		}
	}

	return trades
}

// restLocked inserts a limit order at the tail of its price level's queue,
// creating the level if needed.
func (b *Book) restLocked(order *Order) {
	side := b.bids
	if order.Side == Sell {
		side = b.asks
	}

	key := &priceLevel{price: order.Price}
	if level, ok := side.Get(key); ok {
		level.orders = append(level.orders, order)
	} else {
		key.orders = []*Order{order}
		side.ReplaceOrInsert(key)
	}
	b.orders[order.ID] = order
}

// SweepExpired removes every resting order whose TTL has elapsed at now,
// marks it expired and appends one event row per order. Each expiry is
// logged exactly once.
func (b *Book) SweepExpired(now time.Time) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sweepLocked(now)
}

func (b *Book) sweepLocked(now time.Time) []Event {
	events := b.sweepSideLocked(b.bids, now)
	return append(events, b.sweepSideLocked(b.asks, now)...)
}

func (b *Book) sweepSideLocked(side *btree.BTreeG[*priceLevel], now time.Time) []Event {
	// Collect levels first; the tree must not be mutated mid-iteration.
	var levels []*priceLevel
	side.Ascend(func(level *priceLevel) bool {
		levels = append(levels, level)
		return true
	})

	var events []Event
	for _, level := range levels {
		kept := level.orders[:0]
		for _, o := range level.orders {
			if o.TTL > 0 && !o.ExpiresAt().After(now) {
				o.Status = Expired
				delete(b.orders, o.ID)
				ev := Event{
					ID:       o.ID,
					Quantity: o.Remaining(),
					Price:    o.Price,
					Status:   Expired,
					LoggedAt: now,
				}
				b.events = append(b.events, ev)
				events = append(events, ev)
				continue
			}
			kept = append(kept, o)
		}
		level.orders = kept
		if len(level.orders) == 0 {
			side.Delete(level)
		}
	}
	return events
}

// Order returns a copy of an active resting order by id.
func (b *Book) Order(id int64) (Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// BestBid returns the highest bid price, or 0 if no bids.
func (b *Book) BestBid() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestBidLocked()
}

// BestAsk returns the lowest ask price, or 0 if no asks.
func (b *Book) BestAsk() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestAskLocked()
}

// MidPrice returns the midpoint between best bid and ask, or 0 if either
// side is empty.
func (b *Book) MidPrice() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bid := b.bestBidLocked()
	ask := b.bestAskLocked()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

func (b *Book) bestBidLocked() int64 {
	if level, ok := b.bids.Min(); ok {
		return level.price
	}
	return 0
}

func (b *Book) bestAskLocked() int64 {
	if level, ok := b.asks.Min(); ok {
		return level.price
	}
	return 0
}

// setNow overrides the book clock, for tests.
func (b *Book) setNow(now func() time.Time) {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
}
