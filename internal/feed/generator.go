package feed

import (
	"math"
	"math/rand"

	"simex/internal/config"
	"simex/internal/orderbook"
)

// Generate synthesizes one order around refPrice (cents). Side is uniform,
// quantity is uniform in [MinQty, MaxQty], the price is a normal
// perturbation of refPrice with standard deviation PriceSigma ticks,
// quantized to the tick grid and floored at one tick. The order is a market
// order with probability MarketProb; market orders keep the generated price
// for display only. The id must come from the engine's shared counter.
func Generate(id int64, refPrice int64, cfg config.Generator, rng *rand.Rand) *orderbook.Order {
	side := orderbook.Buy
	if rng.Intn(2) == 1 {
		side = orderbook.Sell
	}

	orderType := orderbook.Limit
	if rng.Float64() < cfg.MarketProb {
		orderType = orderbook.Market
	}

	perturbed := float64(refPrice) + rng.NormFloat64()*cfg.PriceSigma*cfg.TickSize
	ticks := math.Round(perturbed / cfg.TickSize)
	if ticks < 1 {
		ticks = 1
	}
	price := int64(math.Round(ticks * cfg.TickSize))
	if price < 1 {
		price = 1
	}

	quantity := cfg.MinQty
	if cfg.MaxQty > cfg.MinQty {
		quantity += rng.Int63n(cfg.MaxQty - cfg.MinQty + 1)
	}

	return &orderbook.Order{
		ID:       id,
		Side:     side,
		Type:     orderType,
		Price:    price,
		Quantity: quantity,
		TTL:      cfg.TTL(),
	}
}
