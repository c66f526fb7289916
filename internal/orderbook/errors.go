package orderbook

import "errors"

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidSide     = errors.New("side must be 'buy' or 'sell'")
	ErrInvalidType     = errors.New("type must be 'limit' or 'market'")
)
