package domain

import (
	"sort"
	"time"
)

const (
	// CancelThreshold is the cumulative cancellation count that trips a
	// market into cooldown.
	CancelThreshold = 10

	// CooldownPeriod is how long a tripped market stays in cooldown.
	CooldownPeriod = 30 * time.Minute
)

// TrackedOrder is one resting buy order the bot believes is open.
// Ref is the gateway's opaque order identifier — never parsed, only passed
// back for cancellation and used for set membership.
type TrackedOrder struct {
	Price   float64
	Ref     string
	NegRisk bool
}

// TrackedMarket is the per-market ladder state. Orders stay sorted
// descending by price with unique price levels; CancelCount accumulates
// core-initiated cancellations until cooldown expiry resets it.
type TrackedMarket struct {
	ID            string
	Title         string
	Orders        []TrackedOrder
	CancelCount   int
	CooldownUntil time.Time // zero = not in cooldown
}

// InCooldown reports whether the market is currently suspended.
func (m *TrackedMarket) InCooldown(now time.Time) bool {
	return !m.CooldownUntil.IsZero() && now.Before(m.CooldownUntil)
}

// RecordCancels adds n core-initiated cancellations and trips the cooldown
// once the threshold is reached while not already in cooldown.
func (m *TrackedMarket) RecordCancels(n int, now time.Time) {
	if n <= 0 {
		return
	}
	m.CancelCount += n
	if m.CancelCount >= CancelThreshold && m.CooldownUntil.IsZero() {
		m.CooldownUntil = now.Add(CooldownPeriod)
	}
}

// ExpireCooldown clears an elapsed cooldown and resets the cancel counter.
// Returns true if the market just left cooldown.
func (m *TrackedMarket) ExpireCooldown(now time.Time) bool {
	if m.CooldownUntil.IsZero() || now.Before(m.CooldownUntil) {
		return false
	}
	m.CooldownUntil = time.Time{}
	m.CancelCount = 0
	return true
}

// HasRef reports whether an order with the given ref is tracked.
func (m *TrackedMarket) HasRef(ref string) bool {
	for _, o := range m.Orders {
		if o.Ref == ref {
			return true
		}
	}
	return false
}

// AddOrder appends an order. Call SortOrders before relying on ladder order.
func (m *TrackedMarket) AddOrder(o TrackedOrder) {
	m.Orders = append(m.Orders, o)
}

// RemoveRefs drops every tracked order whose ref is in refs and returns
// the removed orders.
func (m *TrackedMarket) RemoveRefs(refs map[string]bool) []TrackedOrder {
	if len(refs) == 0 {
		return nil
	}
	var removed []TrackedOrder
	kept := m.Orders[:0]
	for _, o := range m.Orders {
		if refs[o.Ref] {
			removed = append(removed, o)
		} else {
			kept = append(kept, o)
		}
	}
	m.Orders = kept
	return removed
}

// RetainRefs drops every tracked order whose ref is NOT in refs and returns
// the removed orders. Used by reconciliation: anything the gateway no longer
// reports open has filled or been cancelled externally.
func (m *TrackedMarket) RetainRefs(refs map[string]bool) []TrackedOrder {
	var removed []TrackedOrder
	kept := m.Orders[:0]
	for _, o := range m.Orders {
		if refs[o.Ref] {
			kept = append(kept, o)
		} else {
			removed = append(removed, o)
		}
	}
	m.Orders = kept
	return removed
}

// SortOrders restores the descending-by-price ladder invariant.
func (m *TrackedMarket) SortOrders() {
	sort.Slice(m.Orders, func(i, j int) bool {
		return m.Orders[i].Price > m.Orders[j].Price
	})
}

// Top devuelve el precio más alto del ladder (0 si está vacío).
func (m *TrackedMarket) Top() float64 {
	if len(m.Orders) == 0 {
		return 0
	}
	return m.Orders[0].Price
}

// Bottom devuelve el precio más bajo del ladder (0 si está vacío).
func (m *TrackedMarket) Bottom() float64 {
	if len(m.Orders) == 0 {
		return 0
	}
	return m.Orders[len(m.Orders)-1].Price
}
