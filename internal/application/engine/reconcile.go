package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alejandrodnm/ladderbot/internal/domain"
)

// reconcile synchronizes every tracked market against the gateway's
// authoritative open-order list: untracked open orders are adopted,
// tracked orders the gateway no longer reports are dropped silently
// (external fills/cancels don't count toward the cooldown). If the listing
// call fails, all tracked state is left untouched — absence of data never
// means emptiness.
func (e *Engine) reconcile(ctx context.Context) error {
	remote, err := e.gateway.ListOpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("engine.reconcile: list open orders: %w", err)
	}

	byMarket := make(map[string][]domain.OpenOrder, len(remote))
	for _, o := range remote {
		byMarket[o.MarketID] = append(byMarket[o.MarketID], o)
	}

	for _, m := range e.markets {
		adopted, dropped := e.reconcileMarket(ctx, m, byMarket[m.ID])
		if adopted > 0 || dropped > 0 {
			slog.Info("engine: reconciled market",
				"market", m.ID,
				"adopted", adopted,
				"dropped", dropped,
				"tracked", len(m.Orders),
			)
		}
	}
	return nil
}

// reconcileMarket applies one market's remote order set to its tracked set.
func (e *Engine) reconcileMarket(ctx context.Context, m *domain.TrackedMarket, remote []domain.OpenOrder) (adopted, dropped int) {
	openRefs := make(map[string]bool, len(remote))

	for _, ro := range remote {
		openRefs[ro.Ref] = true
		if m.HasRef(ro.Ref) {
			continue
		}

		price, err := ro.Price()
		if err != nil {
			slog.Warn("engine: skipping remote order with underivable price",
				"market", m.ID, "ref", ro.Ref, "err", err)
			continue
		}

		m.AddOrder(domain.TrackedOrder{Price: price, Ref: ro.Ref, NegRisk: ro.NegRisk})
		adopted++

		rec := domain.OrderRecord{
			ID:        uuid.New().String(),
			Ref:       ro.Ref,
			MarketID:  m.ID,
			Price:     price,
			NegRisk:   ro.NegRisk,
			CreatedAt: e.now().UTC(),
		}
		if err := e.store.SaveOrder(ctx, rec); err != nil {
			slog.Warn("engine: error registering adopted order", "ref", ro.Ref, "err", err)
		}
	}

	// Whatever the gateway stopped reporting has filled or been cancelled
	// externally. Removal is silent: the core did not initiate it.
	removed := m.RetainRefs(openRefs)
	for _, o := range removed {
		if err := e.store.DeleteOrder(ctx, o.Ref); err != nil {
			slog.Warn("engine: error deleting vanished order", "ref", o.Ref, "err", err)
		}
	}
	dropped = len(removed)

	m.SortOrders()
	return adopted, dropped
}
