package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/alejandrodnm/ladderbot/internal/domain"
)

const priceEpsilon = 1e-9

// rebalance runs the per-market ladder pass: trim excess, refill shortfall,
// then shift the whole ladder up or down following the best bid and the
// liquidity resting above it. Cancel batches are confirmed before their
// replacement orders go out, so the ladder never exceeds its cap transiently.
func (e *Engine) rebalance(ctx context.Context, m *domain.TrackedMarket) (placed, cancelled int) {
	// 1. Trim excess from the bottom of the ladder.
	if excess := len(m.Orders) - domain.MaxLadderSize; excess > 0 {
		n := e.cancelTracked(ctx, m, m.Orders[len(m.Orders)-excess:])
		cancelled += n
		slog.Info("engine: trimmed excess orders", "market", m.ID, "cancelled", n)
		if m.InCooldown(e.now()) {
			return placed, cancelled
		}
	}

	bids, err := e.gateway.FetchOrderBook(ctx, m.ID)
	if err != nil {
		slog.Warn("engine: order book unavailable, skipping placement", "market", m.ID, "err", err)
		return placed, cancelled
	}
	if len(bids) == 0 {
		slog.Debug("engine: empty order book", "market", m.ID)
		return placed, cancelled
	}

	// 2. Refill shortfall at the bottom (or re-derive the anchor from
	// scratch when the ladder is empty).
	if need := domain.MaxLadderSize - len(m.Orders); need > 0 {
		placed += e.refill(ctx, m, bids, need)
	}
	if len(m.Orders) == 0 {
		return placed, cancelled
	}

	// 3. Directional rebalance against the current snapshot.
	best := domain.BestBid(bids)
	top := m.Top()
	depthAboveTop := domain.DepthAbove(bids, top)

	switch {
	case best <= top+priceEpsilon || depthAboveTop < e.cfg.ShiftLiquidityUSD:
		p, c := e.shiftDown(ctx, m, best, depthAboveTop)
		placed, cancelled = placed+p, cancelled+c
	case best > top+domain.Tick+priceEpsilon:
		p, c := e.shiftUp(ctx, m, bids, best, top)
		placed, cancelled = placed+p, cancelled+c
	}

	return placed, cancelled
}

// refill places need new orders at the bottom of the ladder.
func (e *Engine) refill(ctx context.Context, m *domain.TrackedMarket, bids []domain.MarketBid, need int) int {
	var levels []float64
	if len(m.Orders) == 0 {
		var err error
		levels, err = domain.InitialLadder(bids, e.cfg.DepthThresholdUSD)
		if errors.Is(err, domain.ErrInsufficientDepth) {
			slog.Debug("engine: insufficient depth to initialize ladder", "market", m.ID)
			return 0
		}
	} else {
		levels = domain.DescendingLevels(domain.QuantizeTick(m.Bottom()-domain.Tick), need)
	}

	placed := 0
	for _, price := range levels {
		if e.placeOrder(ctx, m, price) {
			placed++
		}
	}
	m.SortOrders()
	if placed > 0 {
		slog.Info("engine: refilled ladder", "market", m.ID, "placed", placed, "tracked", len(m.Orders))
	}
	return placed
}

// shiftDown cancels from the top of the ladder and reopens at the bottom.
// Triggered when the best bid sits at or below our top order, or when the
// bid value resting above the ladder thinned out below the floor.
func (e *Engine) shiftDown(ctx context.Context, m *domain.TrackedMarket, best, depthAboveTop float64) (placed, cancelled int) {
	// Orders now at or above the market are the ones to move.
	n := 0
	for _, o := range m.Orders {
		if o.Price >= best-priceEpsilon {
			n++
		}
	}
	if n < 1 {
		n = 1
	}
	if n > len(m.Orders) {
		n = len(m.Orders)
	}

	prevBottom := m.Bottom()
	cancelled = e.cancelTracked(ctx, m, m.Orders[:n])
	if cancelled == 0 {
		return 0, 0
	}
	slog.Info("engine: shifting ladder down",
		"market", m.ID,
		"best", fmt.Sprintf("%.3f", best),
		"depth_above_top", fmt.Sprintf("$%.0f", depthAboveTop),
		"orders", cancelled,
	)
	if m.InCooldown(e.now()) {
		return 0, cancelled
	}

	base := prevBottom
	if len(m.Orders) > 0 {
		base = m.Bottom()
	}
	for _, price := range domain.DescendingLevels(domain.QuantizeTick(base-domain.Tick), cancelled) {
		if e.placeOrder(ctx, m, price) {
			placed++
		}
	}
	m.SortOrders()
	return placed, cancelled
}

// shiftUp cancels from the bottom of the ladder and reopens at the top,
// one step per tick the book moved, but only as far as every step keeps
// the liquidity floor above it. The first failing step halts growth — it
// does not skip ahead.
func (e *Engine) shiftUp(ctx context.Context, m *domain.TrackedMarket, bids []domain.MarketBid, best, top float64) (placed, cancelled int) {
	candidate := int(math.Round((best - top) / domain.Tick))
	if candidate > len(m.Orders) {
		candidate = len(m.Orders)
	}

	shift := 0
	for i := 1; i <= candidate; i++ {
		target := domain.QuantizeTick(top + float64(i)*domain.Tick)
		if domain.DepthAbove(bids, target) < e.cfg.ShiftLiquidityUSD {
			break
		}
		shift = i
	}
	if shift < 1 {
		return 0, 0
	}

	prevTop := m.Top()
	cancelled = e.cancelTracked(ctx, m, m.Orders[len(m.Orders)-shift:])
	if cancelled == 0 {
		return 0, 0
	}
	slog.Info("engine: shifting ladder up",
		"market", m.ID,
		"best", fmt.Sprintf("%.3f", best),
		"orders", cancelled,
	)
	if m.InCooldown(e.now()) {
		return 0, cancelled
	}

	base := prevTop
	if len(m.Orders) > 0 {
		base = m.Top()
	}
	for _, price := range domain.AscendingLevels(domain.QuantizeTick(base+domain.Tick), cancelled) {
		if e.placeOrder(ctx, m, price) {
			placed++
		}
	}
	m.SortOrders()
	return placed, cancelled
}
