package notify

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/ladderbot/internal/domain"
)

func TestReport_NoMarkets(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleWriter(&buf).Report(nil)
	assert.Contains(t, buf.String(), "no markets tracked")
}

func TestReport_PrintsLadderAndCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &domain.TrackedMarket{
		ID:            "tok1",
		Title:         "Will it rain tomorrow in Madrid, Spain, before noon?",
		CancelCount:   7,
		CooldownUntil: now.Add(12 * time.Minute),
	}
	m.AddOrder(domain.TrackedOrder{Price: 0.618, Ref: "r2"})
	m.AddOrder(domain.TrackedOrder{Price: 0.620, Ref: "r1"})
	m.SortOrders()

	empty := &domain.TrackedMarket{ID: "tok2", Title: "quiet market"}

	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)
	c.now = func() time.Time { return now }
	c.Report([]*domain.TrackedMarket{m, empty})

	out := buf.String()
	assert.Contains(t, out, "Will it rain tomorrow in Madrid")
	assert.Contains(t, out, "0.620..0.618")
	assert.Contains(t, out, "12m0s")
	assert.Contains(t, out, "quiet market")
}
