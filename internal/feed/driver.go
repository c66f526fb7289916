package feed

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"simex/internal/orderbook"
)

// Exchange is the facade surface the driver submits through.
type Exchange interface {
	SubmitSynthetic(rng *rand.Rand) (orderbook.Order, []orderbook.Trade, error)
}

// Driver feeds synthetic orders into the exchange from its own goroutine.
// Each iteration submits one bounded batch, then sleeps for the configured
// interval. Start and Stop are cooperative: stopping never interrupts an
// in-flight submission, and a stopped driver can be started again.
type Driver struct {
	exchange Exchange
	log      zerolog.Logger
	interval time.Duration
	batch    int

	mu      sync.Mutex
	rng     *rand.Rand
	running bool
	stopCh  chan struct{}
}

// NewDriver creates a feed driver. interval is the pause between batches
// and batch the number of orders per iteration.
func NewDriver(ex Exchange, interval time.Duration, batch int, log zerolog.Logger) *Driver {
	return &Driver{
		exchange: ex,
		log:      log,
		interval: interval,
		batch:    batch,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed reseeds the driver's random source, for reproducible sessions.
func (d *Driver) Seed(seed int64) {
	d.mu.Lock()
	d.rng = rand.New(rand.NewSource(seed))
	d.mu.Unlock()
}

// Start launches the feed loop. It is a no-op if already running.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	go d.loop(d.stopCh)
	d.log.Info().Dur("interval", d.interval).Int("batch", d.batch).Msg("feed started")
}

// Stop clears the run flag; no further submissions happen after the
// current batch completes.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.running = false
	close(d.stopCh)
	d.log.Info().Msg("feed stopped")
}

// Running reports whether the feed loop is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) loop(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-time.After(d.interval):
			d.submitBatch()
		}
	}
}

func (d *Driver) submitBatch() {
	for i := 0; i < d.batch; i++ {
		d.mu.Lock()
		_, _, err := d.exchange.SubmitSynthetic(d.rng)
		d.mu.Unlock()

		if err != nil {
			d.log.Warn().Err(err).Msg("synthetic submit rejected")
		}
	}
	d.log.Debug().Int("batch", d.batch).Msg("synthetic batch submitted")
}
