package orderbook

import (
	"testing"

	"pgregory.net/rapid"
)

// Random order streams against the invariants that must hold after every
// submission sequence: the book never crosses, quantity is conserved
// between fills and the trade ledger, nothing over-fills, and market
// orders never rest.
func TestBookProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book := New()

		n := rapid.IntRange(1, 80).Draw(t, "orders")
		orders := make([]*Order, 0, n)
		for i := 0; i < n; i++ {
			side := Buy
			if rapid.Bool().Draw(t, "sell") {
				side = Sell
			}
			typ := Limit
			if rapid.Bool().Draw(t, "market") {
				typ = Market
			}
			o := &Order{
				ID:       int64(i + 1),
				Side:     side,
				Type:     typ,
				Price:    rapid.Int64Range(95, 105).Draw(t, "price"),
				Quantity: rapid.Int64Range(1, 20).Draw(t, "qty"),
			}
			if _, _, _, err := book.Submit(o); err != nil {
				t.Fatalf("submit rejected valid order: %v", err)
			}
			orders = append(orders, o)

			// The book must never cross.
			bid, ask := book.BestBid(), book.BestAsk()
			if bid > 0 && ask > 0 && bid >= ask {
				t.Fatalf("crossed book: best bid %d >= best ask %d", bid, ask)
			}
		}

		var totalFilled int64
		for _, o := range orders {
			if o.Filled < 0 || o.Filled > o.Quantity {
				t.Fatalf("order %d over-filled: %d of %d", o.ID, o.Filled, o.Quantity)
			}
			switch o.Status {
			case Open:
				if o.Filled != 0 {
					t.Fatalf("open order %d has fills", o.ID)
				}
			case Filled:
				if o.Filled != o.Quantity {
					t.Fatalf("filled order %d with remaining %d", o.ID, o.Remaining())
				}
			case PartiallyFilled:
				if o.Filled == 0 || o.Filled == o.Quantity {
					t.Fatalf("partially_filled order %d with filled %d of %d", o.ID, o.Filled, o.Quantity)
				}
			}
			totalFilled += o.Filled
		}

		// Every trade fills one aggressor unit and one resting unit.
		var totalTraded int64
		trades := book.Trades()
		for i, tr := range trades {
			if tr.TradeID != int64(i+1) {
				t.Fatalf("trade ids not dense: position %d has id %d", i, tr.TradeID)
			}
			if tr.Quantity <= 0 {
				t.Fatalf("non-positive trade quantity %d", tr.Quantity)
			}
			totalTraded += tr.Quantity
		}
		if totalFilled != 2*totalTraded {
			t.Fatalf("conservation broken: filled %d, traded %d", totalFilled, totalTraded)
		}

		byID := make(map[int64]*Order, len(orders))
		for _, o := range orders {
			byID[o.ID] = o
		}
		lastBid, lastAsk := int64(0), int64(0)
		for _, row := range book.Snapshot() {
			o := byID[row.ID]
			if o.Type == Market {
				t.Fatalf("market order %d resting", row.ID)
			}
			if o.Status.Terminal() {
				t.Fatalf("terminal order %d resting", row.ID)
			}
			if row.Qty != o.Remaining() || row.Qty <= 0 {
				t.Fatalf("order %d snapshot qty %d, remaining %d", row.ID, row.Qty, o.Remaining())
			}
			// Bids descend, then asks ascend.
			if row.Side == Buy {
				if lastBid != 0 && row.Price > lastBid {
					t.Fatalf("bids out of order at price %d", row.Price)
				}
				lastBid = row.Price
			} else {
				if lastAsk != 0 && row.Price < lastAsk {
					t.Fatalf("asks out of order at price %d", row.Price)
				}
				lastAsk = row.Price
			}
		}

		// Every cancelled market remainder logged exactly once.
		seen := make(map[int64]int)
		for _, ev := range book.Events() {
			seen[ev.ID]++
		}
		for _, o := range orders {
			if o.Status == Cancelled {
				if seen[o.ID] != 1 {
					t.Fatalf("cancelled order %d logged %d times", o.ID, seen[o.ID])
				}
			} else if seen[o.ID] != 0 {
				t.Fatalf("order %d with status %s has events", o.ID, o.Status)
			}
		}
	})
}
