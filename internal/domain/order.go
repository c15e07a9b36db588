package domain

import (
	"fmt"
	"math"
	"time"
)

// OrderSide is the taker direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderStatus represents the lifecycle of an order on the gateway.
type OrderStatus string

const (
	StatusOpen      OrderStatus = "OPEN"
	StatusFilled    OrderStatus = "FILLED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusUnknown   OrderStatus = "UNKNOWN"
)

// OpenOrder is one entry of the gateway's authoritative open-order list.
// Price is not carried on the wire — it derives from the maker/taker
// amounts according to side.
type OpenOrder struct {
	MarketID    string
	Ref         string
	Side        OrderSide
	MakerAmount float64
	TakerAmount float64
	NegRisk     bool
}

// Price derives the limit price from the maker/taker amounts:
// a buyer gives makerAmount USD for takerAmount shares, a seller the
// inverse. Any other shape is a reconciliation error to skip, not to guess.
func (o OpenOrder) Price() (float64, error) {
	var p float64
	switch o.Side {
	case SideBuy:
		if o.TakerAmount <= 0 {
			return 0, fmt.Errorf("order %s: taker amount %f", o.Ref, o.TakerAmount)
		}
		p = o.MakerAmount / o.TakerAmount
	case SideSell:
		if o.MakerAmount <= 0 {
			return 0, fmt.Errorf("order %s: maker amount %f", o.Ref, o.MakerAmount)
		}
		p = o.TakerAmount / o.MakerAmount
	default:
		return 0, fmt.Errorf("order %s: unknown side %q", o.Ref, o.Side)
	}

	p = QuantizeTick(p)
	if p <= priceEpsilon || p >= 1-priceEpsilon {
		return 0, fmt.Errorf("order %s: price %f outside (0,1)", o.Ref, p)
	}
	return p, nil
}

// OrderRequest is sent to the gateway to open a resting limit bid.
type OrderRequest struct {
	MarketID  string
	Price     float64
	AmountUSD float64
	Side      OrderSide // always SideBuy for ladder orders
}

// PlacedOrder is the gateway's response after opening an order.
type PlacedOrder struct {
	Ref     string
	NegRisk bool
}

// CancelRequest identifies one order to cancel. NegRisk is the type flag
// the gateway groups batches by; callers pass it through opaquely.
type CancelRequest struct {
	Ref      string
	MarketID string
	NegRisk  bool
}

// CancelGroup is the outcome for one internally grouped cancel sub-batch.
// Only the refs in Cancelled may be dropped from tracking — a batch can
// report overall success while a sub-group failed.
type CancelGroup struct {
	NegRisk   bool
	Requested []string
	Cancelled []string
}

// CancelledRefs flattens the successfully cancelled refs of all groups.
func CancelledRefs(groups []CancelGroup) map[string]bool {
	refs := make(map[string]bool)
	for _, g := range groups {
		for _, r := range g.Cancelled {
			refs[r] = true
		}
	}
	return refs
}

// OrderRecord is the persisted shape of a tracked order: an idempotent
// key-value entry keyed by the gateway ref, overwritten on add and removed
// on cancel/fill.
type OrderRecord struct {
	ID        string // local row id (uuid)
	Ref       string
	MarketID  string
	Price     float64
	NegRisk   bool
	CreatedAt time.Time
}

// MarketState is the persisted per-market ladder metadata: the cached
// title plus the cooldown counters, enough to recover after a restart
// together with the gateway's open-order list.
type MarketState struct {
	MarketID      string
	Title         string
	CancelCount   int
	CooldownUntil time.Time
}

// SharesForUSD converts an order notional into shares at the given price,
// rounded to two decimals the way the exchange quantizes sizes.
func SharesForUSD(amountUSD, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return math.Round(amountUSD/price*100) / 100
}
