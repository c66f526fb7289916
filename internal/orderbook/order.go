package orderbook

import (
	"strings"
	"time"
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// ParseSide accepts "buy" or "sell", case-insensitive.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, ErrInvalidSide
	}
}

type OrderType int

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	if t == Limit {
		return "limit"
	}
	return "market"
}

// ParseOrderType accepts "limit" or "market", case-insensitive.
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToLower(s) {
	case "limit":
		return Limit, nil
	case "market":
		return Market, nil
	default:
		return 0, ErrInvalidType
	}
}

// Status tracks the order lifecycle: open and partially_filled orders sit in
// the book; filled, cancelled and expired are terminal.
type Status int

const (
	Open Status = iota
	PartiallyFilled
	Filled
	Cancelled
	Expired
)

func (st Status) String() string {
	switch st {
	case Open:
		return "open"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	default:
		return "expired"
	}
}

// Terminal reports whether the status can no longer change.
func (st Status) Terminal() bool {
	return st == Filled || st == Cancelled || st == Expired
}

// Order is a single buy or sell instruction. Price is in cents to avoid
// float issues; for market orders it is carried for display only and
// matching ignores it.
type Order struct {
	ID        int64         `json:"id"`
	Side      Side          `json:"side"`
	Type      OrderType     `json:"type"`
	Price     int64         `json:"price"`
	Quantity  int64         `json:"quantity"`
	Filled    int64         `json:"filled"`
	TTL       time.Duration `json:"ttl"` // 0 = good till cancelled
	CreatedAt time.Time     `json:"created_at"`
	Status    Status        `json:"status"`
}

func (o *Order) Remaining() int64 {
	return o.Quantity - o.Filled
}

func (o *Order) IsFilled() bool {
	return o.Filled >= o.Quantity
}

// ExpiresAt returns the expiry deadline, or the zero time for GTC orders.
func (o *Order) ExpiresAt() time.Time {
	if o.TTL <= 0 {
		return time.Time{}
	}
	return o.CreatedAt.Add(o.TTL)
}

// Trade records one execution. OrderID, Side and Price refer to the resting
// order; trades always print at the resting price.
type Trade struct {
	TradeID    int64     `json:"trade_id"`
	OrderID    int64     `json:"order_id"`
	Side       Side      `json:"side"`
	Price      int64     `json:"price"`
	Quantity   int64     `json:"quantity"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Event records an order that left the book without a full fill, either
// cancelled or expired. Quantity is the remainder at the moment it left.
type Event struct {
	ID       int64     `json:"id"`
	Quantity int64     `json:"quantity"`
	Price    int64     `json:"price"`
	Status   Status    `json:"status"`
	LoggedAt time.Time `json:"logged_at"`
}
