package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/ladderbot/internal/domain"
	"github.com/alejandrodnm/ladderbot/internal/ports"
)

// Config holds the tunables of the ladder engine.
type Config struct {
	OrderSizeUSD      float64
	DepthThresholdUSD float64 // cumulative bid value required during initialization
	ShiftLiquidityUSD float64 // depth floor above the ladder before it may shift up
}

// TickResult contains everything produced by one control-loop tick.
type TickResult struct {
	Liquidated      bool
	Reopened        int
	Reconciled      bool
	Placed          int
	Cancelled       int
	MarketsCooldown int
	Warnings        []string
}

// Engine runs the ladder-maintenance state machine for a fixed set of
// tracked markets. It is single-threaded: the control loop owns the
// tracked-market collection exclusively and calls RunOnce per tick.
type Engine struct {
	gateway    ports.Gateway
	liquidator ports.Liquidator
	store      ports.OrderStore
	markets    []*domain.TrackedMarket
	cfg        Config

	now func() time.Time
}

// New creates a ladder engine over the given markets.
func New(gateway ports.Gateway, liquidator ports.Liquidator, store ports.OrderStore, markets []*domain.TrackedMarket, cfg Config) *Engine {
	if cfg.OrderSizeUSD <= 0 {
		cfg.OrderSizeUSD = 5
	}
	if cfg.DepthThresholdUSD <= 0 {
		cfg.DepthThresholdUSD = 100
	}
	if cfg.ShiftLiquidityUSD <= 0 {
		cfg.ShiftLiquidityUSD = 500
	}
	return &Engine{
		gateway:    gateway,
		liquidator: liquidator,
		store:      store,
		markets:    markets,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Markets exposes the tracked markets for reporting.
func (e *Engine) Markets() []*domain.TrackedMarket {
	return e.markets
}

// RunOnce executes one tick: liquidate → reopen fills → reconcile →
// rebalance every market. No failure here is fatal; whatever a gateway
// call breaks, the next tick's reconciliation re-derives from truth.
func (e *Engine) RunOnce(ctx context.Context) (*TickResult, error) {
	result := &TickResult{}

	// 1. Liquidation: sell whatever positions fills left behind.
	sold, err := e.liquidator.LiquidateAll(ctx)
	if err != nil {
		slog.Warn("engine: liquidation failed, skipping this tick's sell", "err", err)
	}
	result.Liquidated = sold

	// 2. Reopen: a sale means some tracked bids filled — replace them at
	// the same levels so the ladder shape survives the cycle.
	if sold {
		result.Reopened = e.reopenFilled(ctx)
	}

	// 3. Reconciliation for all markets, always before rebalancing.
	if err := e.reconcile(ctx); err != nil {
		slog.Warn("engine: reconcile failed, skipping rebalance this tick", "err", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("reconcile: %v", err))
		return result, nil
	}
	result.Reconciled = true

	// 4. Rebalance each market in turn.
	now := e.now()
	for _, m := range e.markets {
		if m.ExpireCooldown(now) {
			slog.Info("engine: cooldown expired", "market", m.ID)
			e.persistMarket(ctx, m)
		}

		if m.InCooldown(now) {
			result.MarketsCooldown++
			cancelled := e.cancelTracked(ctx, m, m.Orders)
			result.Cancelled += cancelled
			slog.Info("engine: market in cooldown, cancelling resting orders",
				"market", m.ID,
				"cancelled", cancelled,
				"until", m.CooldownUntil.Format("15:04:05"),
			)
			continue
		}

		placed, cancelled := e.rebalance(ctx, m)
		result.Placed += placed
		result.Cancelled += cancelled
	}

	return result, nil
}

// reopenFilled polls order status for every tracked order and replaces the
// filled ones with fresh bids at the same price level.
func (e *Engine) reopenFilled(ctx context.Context) int {
	reopened := 0
	for _, m := range e.markets {
		var filled []domain.TrackedOrder
		for _, o := range m.Orders {
			status, err := e.gateway.GetOrderStatus(ctx, o.Ref)
			if err != nil {
				slog.Warn("engine: order status check failed", "ref", o.Ref, "err", err)
				continue
			}
			if status == domain.StatusFilled {
				filled = append(filled, o)
			}
		}
		if len(filled) == 0 {
			continue
		}

		refs := make(map[string]bool, len(filled))
		for _, o := range filled {
			refs[o.Ref] = true
			if err := e.store.DeleteOrder(ctx, o.Ref); err != nil {
				slog.Warn("engine: error deleting filled order", "ref", o.Ref, "err", err)
			}
		}
		m.RemoveRefs(refs)

		for _, o := range filled {
			if e.placeOrder(ctx, m, o.Price) {
				reopened++
			}
		}
		m.SortOrders()

		slog.Info("engine: reopened filled orders", "market", m.ID, "count", reopened)
	}
	return reopened
}

// placeOrder opens one limit bid and tracks it. Returns false on failure —
// the level is simply retried by a later refill.
func (e *Engine) placeOrder(ctx context.Context, m *domain.TrackedMarket, price float64) bool {
	placed, err := e.gateway.OpenOrder(ctx, domain.OrderRequest{
		MarketID:  m.ID,
		Price:     price,
		AmountUSD: e.cfg.OrderSizeUSD,
		Side:      domain.SideBuy,
	})
	if err != nil {
		slog.Warn("engine: error opening order",
			"market", m.ID,
			"price", fmt.Sprintf("%.3f", price),
			"err", err,
		)
		return false
	}

	m.AddOrder(domain.TrackedOrder{Price: price, Ref: placed.Ref, NegRisk: placed.NegRisk})

	rec := domain.OrderRecord{
		ID:        uuid.New().String(),
		Ref:       placed.Ref,
		MarketID:  m.ID,
		Price:     price,
		NegRisk:   placed.NegRisk,
		CreatedAt: e.now().UTC(),
	}
	if err := e.store.SaveOrder(ctx, rec); err != nil {
		slog.Warn("engine: error saving order", "ref", placed.Ref, "err", err)
	}

	slog.Debug("engine: order placed",
		"market", m.ID,
		"price", fmt.Sprintf("%.3f", price),
		"ref", placed.Ref,
	)
	return true
}

// cancelTracked cancels the given orders through the gateway and drops from
// tracking exactly the refs each sub-group reported cancelled. Returns the
// number actually cancelled, after recording them toward the cooldown.
func (e *Engine) cancelTracked(ctx context.Context, m *domain.TrackedMarket, orders []domain.TrackedOrder) int {
	if len(orders) == 0 {
		return 0
	}

	reqs := make([]domain.CancelRequest, len(orders))
	for i, o := range orders {
		reqs[i] = domain.CancelRequest{Ref: o.Ref, MarketID: m.ID, NegRisk: o.NegRisk}
	}

	groups, err := e.gateway.CancelOrders(ctx, reqs)
	if err != nil {
		slog.Warn("engine: cancel batch failed", "market", m.ID, "count", len(orders), "err", err)
		return 0
	}

	cancelled := domain.CancelledRefs(groups)
	if len(cancelled) < len(orders) {
		slog.Warn("engine: partial cancel batch, keeping failed refs tracked",
			"market", m.ID,
			"requested", len(orders),
			"cancelled", len(cancelled),
		)
	}

	m.RemoveRefs(cancelled)
	for ref := range cancelled {
		if err := e.store.DeleteOrder(ctx, ref); err != nil {
			slog.Warn("engine: error deleting cancelled order", "ref", ref, "err", err)
		}
	}

	m.RecordCancels(len(cancelled), e.now())
	e.persistMarket(ctx, m)
	if m.InCooldown(e.now()) {
		slog.Warn("engine: cancel threshold reached, market entering cooldown",
			"market", m.ID,
			"cancel_count", m.CancelCount,
			"until", m.CooldownUntil.Format("15:04:05"),
		)
	}
	return len(cancelled)
}

// persistMarket saves the market's cooldown counters and title.
func (e *Engine) persistMarket(ctx context.Context, m *domain.TrackedMarket) {
	state := domain.MarketState{
		MarketID:      m.ID,
		Title:         m.Title,
		CancelCount:   m.CancelCount,
		CooldownUntil: m.CooldownUntil,
	}
	if err := e.store.SaveMarket(ctx, state); err != nil {
		slog.Warn("engine: error saving market state", "market", m.ID, "err", err)
	}
}
