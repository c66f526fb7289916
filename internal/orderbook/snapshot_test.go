package orderbook

import (
	"strings"
	"testing"
)

func TestBookCSV(t *testing.T) {
	rows := []BookRow{
		{ID: 2, Side: Buy, Price: 100, Qty: 10},
		{ID: 5, Side: Sell, Price: 101, Qty: 3},
	}
	got := BookCSV(rows)
	want := "ID,SIDE,PRICE,QTY\n2,buy,100,10\n5,sell,101,3\n"
	if got != want {
		t.Errorf("BookCSV:\ngot  %q\nwant %q", got, want)
	}

	if got := BookCSV(nil); got != "" {
		t.Errorf("empty book must serialize to empty payload, got %q", got)
	}
}

func TestTradesCSV(t *testing.T) {
	trades := []Trade{
		{TradeID: 1, OrderID: 2, Side: Sell, Price: 100, Quantity: 5},
	}
	got := TradesCSV(trades)
	want := "TRADE_ID,ORDER_ID,SIDE,PRICE,QUANTITY\n1,2,sell,100,5\n"
	if got != want {
		t.Errorf("TradesCSV:\ngot  %q\nwant %q", got, want)
	}

	if got := TradesCSV(nil); got != "" {
		t.Errorf("empty ledger must serialize to empty payload, got %q", got)
	}
}

func TestEventsCSV(t *testing.T) {
	events := []Event{
		{ID: 7, Quantity: 6, Price: 95, Status: Cancelled},
		{ID: 9, Quantity: 10, Price: 100, Status: Expired},
	}
	got := EventsCSV(events)
	want := "ID,QUANTITY,PRICE,STATUS\n7,6,95,cancelled\n9,10,100,expired\n"
	if got != want {
		t.Errorf("EventsCSV:\ngot  %q\nwant %q", got, want)
	}

	if got := EventsCSV(nil); got != "" {
		t.Errorf("empty log must serialize to empty payload, got %q", got)
	}
}

func TestTradesCSVMatchesLedger(t *testing.T) {
	book := New()
	book.Submit(&Order{ID: 1, Side: Sell, Type: Limit, Price: 100, Quantity: 5})
	book.Submit(&Order{ID: 2, Side: Buy, Type: Limit, Price: 100, Quantity: 5})

	csv := TradesCSV(book.Trades())
	lines := strings.Split(strings.TrimSuffix(csv, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus 1 row, got %d lines", len(lines))
	}
	if lines[1] != "1,1,sell,100,5" {
		t.Errorf("unexpected trade row %q", lines[1])
	}
}
