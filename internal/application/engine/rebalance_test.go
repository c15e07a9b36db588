package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/ladderbot/internal/domain"
)

func TestRebalance_TrimsExcessFromBottom(t *testing.T) {
	m := trackedMarket("tok1", 0.620, 0.619, 0.618, 0.617, 0.616, 0.615, 0.614)
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{bid(0.621, 2000)}
	e, _ := newTestEngine(gw, m)

	placed, cancelled := e.rebalance(context.Background(), m)
	assert.Equal(t, 2, cancelled)
	assert.Zero(t, placed)
	assert.Equal(t, []float64{0.620, 0.619, 0.618, 0.617, 0.616}, prices(m))
}

func TestRebalance_RefillsShortfallAtBottom(t *testing.T) {
	m := trackedMarket("tok1", 0.620, 0.619)
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{bid(0.621, 2000)}
	e, _ := newTestEngine(gw, m)

	placed, cancelled := e.rebalance(context.Background(), m)
	assert.Equal(t, 3, placed)
	assert.Zero(t, cancelled)
	assert.Equal(t, []float64{0.620, 0.619, 0.618, 0.617, 0.616}, prices(m))
}

func TestRebalance_EmptyLadderInitializesFromBook(t *testing.T) {
	m := trackedMarket("tok1")
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{bid(0.500, 1300), bid(0.499, 100)}
	e, _ := newTestEngine(gw, m)

	placed, _ := e.rebalance(context.Background(), m)
	assert.Equal(t, 5, placed)
	assert.Equal(t, []float64{0.499, 0.498, 0.497, 0.496, 0.495}, prices(m))
}

func TestRebalance_EmptyLadderInsufficientDepthPlacesNothing(t *testing.T) {
	m := trackedMarket("tok1")
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{bid(0.500, 10)}
	e, _ := newTestEngine(gw, m)

	placed, cancelled := e.rebalance(context.Background(), m)
	assert.Zero(t, placed)
	assert.Zero(t, cancelled)
	assert.Empty(t, m.Orders)
}

func TestRebalance_BookUnavailableSkipsPlacement(t *testing.T) {
	m := trackedMarket("tok1", 0.620, 0.619)
	gw := newFakeGateway()
	gw.bookErr = assert.AnError
	e, _ := newTestEngine(gw, m)

	placed, cancelled := e.rebalance(context.Background(), m)
	assert.Zero(t, placed)
	assert.Zero(t, cancelled)
	assert.Len(t, m.Orders, 2)
}

func TestShiftDown_BestBidInsideLadder(t *testing.T) {
	// Best bid cayó a 0.618: los tres niveles superiores quedaron en o por
	// encima del mercado → se mueven al fondo.
	m := trackedMarket("tok1", 0.620, 0.619, 0.618, 0.617, 0.616)
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{bid(0.618, 1000), bid(0.617, 500)}
	e, _ := newTestEngine(gw, m)

	placed, cancelled := e.rebalance(context.Background(), m)
	assert.Equal(t, 3, cancelled)
	assert.Equal(t, 3, placed)
	assert.Equal(t, []float64{0.617, 0.616, 0.615, 0.614, 0.613}, prices(m))
}

func TestShiftDown_ThinDepthAboveTopMovesOneLevel(t *testing.T) {
	// Best bid sigue por encima del ladder, pero la liquidez por encima del
	// top quedó por debajo del suelo → baja un nivel.
	m := trackedMarket("tok1", 0.620, 0.619, 0.618, 0.617, 0.616)
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{bid(0.621, 100)} // $62.1 < $500
	e, _ := newTestEngine(gw, m)

	placed, cancelled := e.rebalance(context.Background(), m)
	assert.Equal(t, 1, cancelled)
	assert.Equal(t, 1, placed)
	assert.Equal(t, []float64{0.619, 0.618, 0.617, 0.616, 0.615}, prices(m))
}

func TestShiftDown_CooldownTripBlocksReplacement(t *testing.T) {
	m := trackedMarket("tok1", 0.620, 0.619, 0.618, 0.617, 0.616)
	m.CancelCount = 8 // 3 cancels más → umbral superado
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{bid(0.618, 1000)}
	e, _ := newTestEngine(gw, m)

	placed, cancelled := e.rebalance(context.Background(), m)
	assert.Equal(t, 3, cancelled)
	assert.Zero(t, placed, "no placements once the cooldown trips")
	assert.True(t, m.InCooldown(e.now()))
	assert.Equal(t, []float64{0.617, 0.616}, prices(m))
}

func TestShiftUp_LimitedByLiquidityFloor(t *testing.T) {
	// Best bid subió 4 ticks, pero el suelo de liquidez solo aguanta dos
	// pasos: el tercero corta el avance aunque el cuarto lo cumpliera.
	m := trackedMarket("tok1", 0.600, 0.599, 0.598, 0.597, 0.596)
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{
		bid(0.604, 700), // $422.8
		bid(0.603, 200), // $120.6
		bid(0.602, 300), // $180.6
	}
	// DepthAbove(0.601) = 422.8+120.6+180.6 = 724 ≥ 500 ✓
	// DepthAbove(0.602) = 422.8+120.6 = 543.4 ≥ 500 ✓
	// DepthAbove(0.603) = 422.8 < 500 ✗ → shift = 2
	e, _ := newTestEngine(gw, m)

	placed, cancelled := e.rebalance(context.Background(), m)
	assert.Equal(t, 2, cancelled)
	assert.Equal(t, 2, placed)
	assert.Equal(t, []float64{0.602, 0.601, 0.600, 0.599, 0.598}, prices(m))
}

func TestShiftUp_OneTickGapDoesNotShift(t *testing.T) {
	// Best bid exactamente 1 tick por encima del top: posición ideal.
	m := trackedMarket("tok1", 0.600, 0.599, 0.598, 0.597, 0.596)
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{bid(0.601, 2000)}
	e, _ := newTestEngine(gw, m)

	placed, cancelled := e.rebalance(context.Background(), m)
	assert.Zero(t, placed)
	assert.Zero(t, cancelled)
	assert.Equal(t, []float64{0.600, 0.599, 0.598, 0.597, 0.596}, prices(m))
}

func TestShiftUp_FirstStepFailingHaltsShift(t *testing.T) {
	m := trackedMarket("tok1", 0.600, 0.599, 0.598, 0.597, 0.596)
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{
		bid(0.604, 300), // $181.2 por encima de 0.601 → < 500
		bid(0.601, 1000),
	}
	e, _ := newTestEngine(gw, m)

	placed, cancelled := e.rebalance(context.Background(), m)
	assert.Zero(t, placed)
	assert.Zero(t, cancelled)
}

func TestShiftDown_PartialCancelOnlyReplacesConfirmed(t *testing.T) {
	m := trackedMarket("tok1", 0.620, 0.619, 0.618, 0.617, 0.616)
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{bid(0.618, 1000)}
	failedRef := m.Orders[0].Ref
	gw.cancelFail[failedRef] = true
	e, _ := newTestEngine(gw, m)

	placed, cancelled := e.rebalance(context.Background(), m)
	assert.Equal(t, 2, cancelled)
	assert.Equal(t, 2, placed)
	assert.True(t, m.HasRef(failedRef))
	assert.Equal(t, []float64{0.620, 0.617, 0.616, 0.615, 0.614}, prices(m))
}

func TestRebalance_NeverExceedsMaxLadderSize(t *testing.T) {
	m := trackedMarket("tok1", 0.620, 0.619, 0.618)
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{bid(0.621, 2000), bid(0.620, 1000)}
	e, _ := newTestEngine(gw, m)

	for i := 0; i < 3; i++ {
		e.rebalance(context.Background(), m)
		assert.LessOrEqual(t, len(m.Orders), domain.MaxLadderSize, "pass %d", i)
	}
}

func TestCooldownLifecycle_EndToEnd(t *testing.T) {
	m := trackedMarket("tok1", 0.620, 0.619, 0.618, 0.617, 0.616)
	m.CancelCount = 7
	gw := newFakeGateway()
	gw.books["tok1"] = []domain.MarketBid{bid(0.618, 1000)}
	for _, o := range m.Orders {
		gw.open = append(gw.open, domain.OpenOrder{
			MarketID: "tok1", Ref: o.Ref, Side: domain.SideBuy,
			MakerAmount: o.Price * 10, TakerAmount: 10,
		})
	}
	e, _ := newTestEngine(gw, m)
	base := e.now()

	// Tick 1: el down-shift cancela 3 → contador 10 → cooldown, sin placements.
	result, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Cancelled)
	assert.Zero(t, result.Placed)
	assert.True(t, m.InCooldown(base))

	// Tick 2, aún en cooldown: cancela lo que queda.
	gw.open = nil
	for _, o := range m.Orders {
		gw.open = append(gw.open, domain.OpenOrder{
			MarketID: "tok1", Ref: o.Ref, Side: domain.SideBuy,
			MakerAmount: o.Price * 10, TakerAmount: 10,
		})
	}
	result, err = e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.MarketsCooldown)
	assert.Equal(t, 2, result.Cancelled)
	assert.Zero(t, result.Placed)
	assert.Empty(t, m.Orders)

	// Tick 3, cooldown expirado: contador a cero y ladder nuevo.
	e.now = func() time.Time { return base.Add(domain.CooldownPeriod + time.Second) }
	gw.open = nil
	gw.books["tok1"] = []domain.MarketBid{bid(0.621, 2000), bid(0.620, 1000)}
	result, err = e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.MarketsCooldown)
	assert.Equal(t, 0, m.CancelCount)
	assert.Equal(t, domain.MaxLadderSize, result.Placed)
}
