package orderbook

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/google/btree"
)

// BookRow is one resting order in a book snapshot. Qty is the remaining
// quantity, not the original.
type BookRow struct {
	ID    int64 `json:"id"`
	Side  Side  `json:"side"`
	Price int64 `json:"price"`
	Qty   int64 `json:"qty"`
}

// Stats summarizes the book for display: best prices, mid, spread, order
// book imbalance and per-side depth.
type Stats struct {
	BestBid   int64   `json:"best_bid"`
	BestAsk   int64   `json:"best_ask"`
	Mid       int64   `json:"mid"`
	Spread    int64   `json:"spread"`
	Imbalance float64 `json:"imbalance"`
	BidDepth  int64   `json:"bid_depth"`
	AskDepth  int64   `json:"ask_depth"`
	BidOrders int     `json:"bid_orders"`
	AskOrders int     `json:"ask_orders"`
}

// Snapshot returns a point-in-time copy of every resting order: bids by
// price descending then asks ascending, FIFO order within a level. The
// copy is taken under the read lock so it never shows a torn match.
func (b *Book) Snapshot() []BookRow {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rows := make([]BookRow, 0, len(b.orders))
	rows = appendSideRows(rows, b.bids)
	rows = appendSideRows(rows, b.asks)
	return rows
}

func appendSideRows(rows []BookRow, side *btree.BTreeG[*priceLevel]) []BookRow {
	side.Ascend(func(level *priceLevel) bool {
		for _, o := range level.orders {
			rows = append(rows, BookRow{
				ID:    o.ID,
				Side:  o.Side,
				Price: o.Price,
				Qty:   o.Remaining(),
			})
		}
		return true
	})
	return rows
}

// Trades returns a copy of the trade ledger in trade_id order.
func (b *Book) Trades() []Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Trade, len(b.trades))
	copy(out, b.trades)
	return out
}

// Events returns a copy of the cancelled/expired event log in append order.
func (b *Book) Events() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Stats computes display statistics in one consistent read.
func (b *Book) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := Stats{
		BestBid: b.bestBidLocked(),
		BestAsk: b.bestAskLocked(),
	}
	if st.BestBid > 0 && st.BestAsk > 0 {
		st.Mid = (st.BestBid + st.BestAsk) / 2
		st.Spread = st.BestAsk - st.BestBid
	}

	b.bids.Ascend(func(level *priceLevel) bool {
		st.BidDepth += level.totalQuantity()
		st.BidOrders += len(level.orders)
		return true
	})
	b.asks.Ascend(func(level *priceLevel) bool {
		st.AskDepth += level.totalQuantity()
		st.AskOrders += len(level.orders)
		return true
	})

	if total := st.BidDepth + st.AskDepth; total > 0 {
		st.Imbalance = float64(st.BidDepth-st.AskDepth) / float64(total)
	}
	return st
}

// BookCSV renders book rows as ID,SIDE,PRICE,QTY. An empty book produces
// an empty payload with no header.
func BookCSV(rows []BookRow) string {
	if len(rows) == 0 {
		return ""
	}
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Write([]string{"ID", "SIDE", "PRICE", "QTY"})
	for _, r := range rows {
		w.Write([]string{
			strconv.FormatInt(r.ID, 10),
			r.Side.String(),
			strconv.FormatInt(r.Price, 10),
			strconv.FormatInt(r.Qty, 10),
		})
	}
	w.Flush()
	return sb.String()
}

// TradesCSV renders trades as TRADE_ID,ORDER_ID,SIDE,PRICE,QUANTITY in
// trade_id order. Empty ledger produces an empty payload.
func TradesCSV(trades []Trade) string {
	if len(trades) == 0 {
		return ""
	}
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Write([]string{"TRADE_ID", "ORDER_ID", "SIDE", "PRICE", "QUANTITY"})
	for _, t := range trades {
		w.Write([]string{
			strconv.FormatInt(t.TradeID, 10),
			strconv.FormatInt(t.OrderID, 10),
			t.Side.String(),
			strconv.FormatInt(t.Price, 10),
			strconv.FormatInt(t.Quantity, 10),
		})
	}
	w.Flush()
	return sb.String()
}

// EventsCSV renders cancel/expire events as ID,QUANTITY,PRICE,STATUS.
// Empty log produces an empty payload.
func EventsCSV(events []Event) string {
	if len(events) == 0 {
		return ""
	}
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Write([]string{"ID", "QUANTITY", "PRICE", "STATUS"})
	for _, e := range events {
		w.Write([]string{
			strconv.FormatInt(e.ID, 10),
			strconv.FormatInt(e.Quantity, 10),
			strconv.FormatInt(e.Price, 10),
			e.Status.String(),
		})
	}
	w.Flush()
	return sb.String()
}
