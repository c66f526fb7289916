package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"simex/internal/config"
	"simex/internal/engine"
	"simex/internal/feed"
	"simex/internal/orderbook"
	"simex/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Flags override the environment defaults.
	basePrice := flag.Int64("base-price", cfg.BasePrice, "reference price in cents before the book has a mid")
	interval := flag.Duration("interval", cfg.FeedInterval, "pause between synthetic batches")
	batch := flag.Int("batch", cfg.FeedBatch, "synthetic orders per batch")
	dbPath := flag.String("db", cfg.DBPath, "SQLite tape path (empty disables recording)")
	dumpDir := flag.String("dump", "", "directory for end-of-session CSV snapshots (empty disables)")
	logLevel := flag.String("log-level", cfg.LogLevel, "debug, info, warn or error")
	seed := flag.Int64("seed", 0, "feed RNG seed (0 = time-based)")
	tickSize := flag.Float64("tick", cfg.Generator.TickSize, "price tick size in cents")
	priceSigma := flag.Float64("sigma", cfg.Generator.PriceSigma, "price perturbation sigma in ticks")
	marketProb := flag.Float64("market-prob", cfg.Generator.MarketProb, "probability a synthetic order is a market order")
	expirySec := flag.Int("expiry-sec", cfg.Generator.ExpirySeconds, "TTL for synthetic orders in seconds (0 = GTC)")
	minQty := flag.Int64("min-qty", cfg.Generator.MinQty, "minimum synthetic quantity")
	maxQty := flag.Int64("max-qty", cfg.Generator.MaxQty, "maximum synthetic quantity")
	flag.Parse()

	cfg.BasePrice = *basePrice
	cfg.FeedInterval = *interval
	cfg.FeedBatch = *batch
	cfg.DBPath = *dbPath
	cfg.LogLevel = *logLevel
	cfg.Generator = config.Generator{
		TickSize:      *tickSize,
		PriceSigma:    *priceSigma,
		MarketProb:    *marketProb,
		ExpirySeconds: *expirySec,
		MinQty:        *minQty,
		MaxQty:        *maxQty,
	}

	log := newLogger(cfg.LogLevel, "main")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	eng := engine.New(cfg, newLogger(cfg.LogLevel, "engine"))
	driver := feed.NewDriver(eng, cfg.FeedInterval, cfg.FeedBatch, newLogger(cfg.LogLevel, "feed"))
	if *seed != 0 {
		driver.Seed(*seed)
	}

	// Optional tape recorder: archive every trade and event as they happen.
	var tape *store.Store
	if cfg.DBPath != "" {
		tape, err = store.New(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("db", cfg.DBPath).Msg("failed to open tape")
		}
		sessionID, err := tape.BeginSession(time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to begin session")
		}
		storeLog := newLogger(cfg.LogLevel, "store")
		eng.OnTrade(func(t orderbook.Trade) {
			if err := tape.RecordTrade(sessionID, t); err != nil {
				storeLog.Error().Err(err).Int64("trade_id", t.TradeID).Msg("failed to record trade")
			}
		})
		eng.OnEvent(func(ev orderbook.Event) {
			if err := tape.RecordEvent(sessionID, ev); err != nil {
				storeLog.Error().Err(err).Int64("order_id", ev.ID).Msg("failed to record event")
			}
		})
		log.Info().Str("db", cfg.DBPath).Str("session", sessionID).Msg("tape recording enabled")
	}

	eng.Start()
	driver.Start()

	// Periodic stats line, the headless stand-in for the dashboard poll.
	statsStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				st := eng.Stats()
				log.Info().
					Int64("best_bid", st.BestBid).
					Int64("best_ask", st.BestAsk).
					Int64("mid", st.Mid).
					Int64("spread", st.Spread).
					Float64("imbalance", st.Imbalance).
					Int64("bid_depth", st.BidDepth).
					Int64("ask_depth", st.AskDepth).
					Int("trades", len(eng.TradeSnapshot())).
					Msg("book")
			case <-statsStop:
				return
			}
		}
	}()

	log.Info().
		Int64("base_price", cfg.BasePrice).
		Dur("interval", cfg.FeedInterval).
		Int("batch", cfg.FeedBatch).
		Msg("simulation running, Ctrl-C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	driver.Stop()
	eng.Stop()
	close(statsStop)

	if *dumpDir != "" {
		if err := dumpSnapshots(eng, *dumpDir); err != nil {
			log.Error().Err(err).Str("dir", *dumpDir).Msg("snapshot dump failed")
		} else {
			log.Info().Str("dir", *dumpDir).Msg("snapshots written")
		}
	}

	if tape != nil {
		if err := tape.Close(); err != nil {
			log.Error().Err(err).Msg("tape close failed")
		}
	}

	st := eng.Stats()
	log.Info().
		Int("trades", len(eng.TradeSnapshot())).
		Int("events", len(eng.EventSnapshot())).
		Int("resting", st.BidOrders+st.AskOrders).
		Msg("session complete")
}

// dumpSnapshots writes the three CSV tables the presentation layer renders.
func dumpSnapshots(eng *engine.Engine, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := map[string]string{
		"book.csv":   orderbook.BookCSV(eng.BookSnapshot()),
		"trades.csv": orderbook.TradesCSV(eng.TradeSnapshot()),
		"events.csv": orderbook.EventsCSV(eng.EventSnapshot()),
	}
	for name, payload := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(payload), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// newLogger builds a structured JSON logger for one component.
func newLogger(level, component string) zerolog.Logger {
	return zerolog.New(os.Stdout).
		Level(parseLogLevel(level)).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func parseLogLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
