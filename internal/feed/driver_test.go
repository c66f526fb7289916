package feed_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"simex/internal/config"
	"simex/internal/engine"
	"simex/internal/feed"
)

func newTestEngine() *engine.Engine {
	cfg := &config.Config{
		BasePrice:      10000,
		FeedInterval:   5 * time.Millisecond,
		FeedBatch:      2,
		ExpiryInterval: time.Second,
		Generator:      config.DefaultGenerator(),
	}
	return engine.New(cfg, zerolog.Nop())
}

// idMark consumes one id and returns it. The driver mints one id per
// generated order, so the gap between two marks counts its submissions.
func idMark(eng *engine.Engine) int64 {
	return eng.NextID()
}

func TestDriverStartStop(t *testing.T) {
	eng := newTestEngine()
	driver := feed.NewDriver(eng, 5*time.Millisecond, 2, zerolog.Nop())
	driver.Seed(42)

	if driver.Running() {
		t.Fatal("driver running before Start")
	}

	before := idMark(eng)
	driver.Start()
	if !driver.Running() {
		t.Fatal("driver not running after Start")
	}

	time.Sleep(100 * time.Millisecond)
	driver.Stop()
	if driver.Running() {
		t.Fatal("driver running after Stop")
	}

	// Allow any in-flight batch to finish, then verify the flow stops.
	time.Sleep(20 * time.Millisecond)
	mark := idMark(eng)
	if mark == before+1 {
		t.Fatal("driver submitted nothing while running")
	}

	time.Sleep(50 * time.Millisecond)
	if after := idMark(eng); after != mark+1 {
		t.Errorf("driver kept submitting after Stop: %d orders", after-mark-1)
	}
}

func TestDriverRestart(t *testing.T) {
	eng := newTestEngine()
	driver := feed.NewDriver(eng, 5*time.Millisecond, 2, zerolog.Nop())
	driver.Seed(7)

	driver.Start()
	time.Sleep(50 * time.Millisecond)
	driver.Stop()
	time.Sleep(20 * time.Millisecond)
	mark := idMark(eng)

	driver.Start()
	time.Sleep(50 * time.Millisecond)
	driver.Stop()

	if after := idMark(eng); after == mark+1 {
		t.Error("restarted driver submitted nothing")
	}
}

func TestDriverStartTwice(t *testing.T) {
	eng := newTestEngine()
	driver := feed.NewDriver(eng, 5*time.Millisecond, 1, zerolog.Nop())

	driver.Start()
	driver.Start() // no-op
	driver.Stop()
	driver.Stop() // no-op
}
