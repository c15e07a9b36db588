package domain

import (
	"errors"
	"math"
)

const (
	// Tick is the price quantization step: every resting order sits on a
	// multiple of it, strictly between 0 and 1.
	Tick = 0.001

	// MaxLadderSize is the maximum number of resting orders per market.
	MaxLadderSize = 5

	// initScanDepth is how many top-of-book bids the initializer inspects
	// while accumulating depth.
	initScanDepth = 6

	priceEpsilon = 1e-9
)

// ErrInsufficientDepth means the book never accumulated enough bid value
// within the scanned levels. Not a failure — the caller just places nothing.
var ErrInsufficientDepth = errors.New("insufficient bid depth for ladder")

// QuantizeTick snaps a price onto the tick grid.
func QuantizeTick(p float64) float64 {
	return math.Round(p/Tick) * Tick
}

// InitialLadder computes the starting price levels for a market with no
// tracked orders. It scans at most the first initScanDepth bids accumulating
// value; the first level where the running sum exceeds depthUSD anchors the
// ladder one tick below. The deeper the threshold is met, the fewer orders
// come out: heavy liquidity near the top needs less of the book protected.
func InitialLadder(bids []MarketBid, depthUSD float64) ([]float64, error) {
	limit := len(bids)
	if limit > initScanDepth {
		limit = initScanDepth
	}

	sum := 0.0
	anchorIdx := -1
	for i := 0; i < limit; i++ {
		sum += bids[i].Value
		if sum > depthUSD {
			anchorIdx = i
			break
		}
	}
	if anchorIdx < 0 {
		return nil, ErrInsufficientDepth
	}

	count := initScanDepth - anchorIdx
	if count > MaxLadderSize {
		count = MaxLadderSize
	}

	anchor := QuantizeTick(bids[anchorIdx].Price - Tick)
	return DescendingLevels(anchor, count), nil
}

// DescendingLevels emits up to count tick-aligned prices starting at start
// and descending one tick per level, stopping before any price would
// reach zero.
func DescendingLevels(start float64, count int) []float64 {
	var out []float64
	p := QuantizeTick(start)
	for i := 0; i < count; i++ {
		if p <= priceEpsilon {
			break
		}
		out = append(out, p)
		p = QuantizeTick(p - Tick)
	}
	return out
}

// AscendingLevels emits up to count tick-aligned prices starting at start
// and ascending one tick per level, stopping before any price would
// reach one.
func AscendingLevels(start float64, count int) []float64 {
	var out []float64
	p := QuantizeTick(start)
	for i := 0; i < count; i++ {
		if p >= 1-priceEpsilon {
			break
		}
		out = append(out, p)
		p = QuantizeTick(p + Tick)
	}
	return out
}
