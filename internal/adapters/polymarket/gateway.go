package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/alejandrodnm/ladderbot/internal/domain"
	"github.com/alejandrodnm/ladderbot/internal/ports"
)

// endCursor es el sentinel de fin de paginación del CLOB.
const endCursor = "LTE="

// Gateway implementa ports.Gateway contra el CLOB de Polymarket.
type Gateway struct {
	client *Client

	mu      sync.Mutex
	negRisk map[string]bool // cache token_id → neg_risk
}

var _ ports.Gateway = (*Gateway)(nil)

// NewGateway crea un Gateway sobre el Client dado.
func NewGateway(client *Client) *Gateway {
	return &Gateway{
		client:  client,
		negRisk: make(map[string]bool),
	}
}

// FetchOrderBook devuelve los bids del book ordenados de mayor a menor precio.
func (g *Gateway) FetchOrderBook(ctx context.Context, marketID string) ([]domain.MarketBid, error) {
	u := fmt.Sprintf("%s/book?token_id=%s", g.client.clobBase, url.QueryEscape(marketID))

	var resp bookResponse
	if err := g.client.get(ctx, g.client.booksLimiter, u, false, &resp); err != nil {
		return nil, fmt.Errorf("fetch book %s: %w", marketID, err)
	}
	return mapBids(resp.Bids), nil
}

// OpenOrder coloca una limit order GTC y devuelve la referencia asignada.
func (g *Gateway) OpenOrder(ctx context.Context, req domain.OrderRequest) (domain.PlacedOrder, error) {
	negRisk, err := g.isNegRisk(ctx, req.MarketID)
	if err != nil {
		return domain.PlacedOrder{}, err
	}

	body := clobOrderRequest{
		TokenID:   req.MarketID,
		Price:     fmt.Sprintf("%.3f", req.Price),
		Size:      domain.SharesForUSD(req.AmountUSD, req.Price),
		Side:      string(req.Side),
		OrderType: "GTC",
	}
	if g.client.signer != nil {
		body.Owner = g.client.signer.apiKey
	}

	u := g.client.clobBase + "/order"
	var resp clobOrderResponse
	if err := g.client.post(ctx, g.client.clobLimiter, u, true, body, &resp); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("open order %s@%.3f: %w", req.MarketID, req.Price, err)
	}
	if !resp.Success || resp.OrderID == "" {
		return domain.PlacedOrder{}, fmt.Errorf("open order %s@%.3f rejected: %s", req.MarketID, req.Price, resp.ErrorMsg)
	}
	return domain.PlacedOrder{Ref: resp.OrderID, NegRisk: negRisk}, nil
}

// CancelOrders cancela un batch de órdenes, agrupando por flag neg_risk
// (el CLOB exige un request por tipo). Devuelve el resultado por grupo;
// sólo devuelve error si ningún grupo pudo cancelarse.
func (g *Gateway) CancelOrders(ctx context.Context, reqs []domain.CancelRequest) ([]domain.CancelGroup, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	byType := make(map[bool][]string)
	for _, r := range reqs {
		byType[r.NegRisk] = append(byType[r.NegRisk], r.Ref)
	}

	groups := make([]domain.CancelGroup, 0, len(byType))
	var failures int
	for negRisk, refs := range byType {
		body := clobCancelRequest{OrderIDs: refs, NegRisk: negRisk}

		u := g.client.clobBase + "/orders"
		var resp clobCancelResponse
		if err := g.client.del(ctx, g.client.clobLimiter, u, true, body, &resp); err != nil {
			slog.Warn("cancel batch failed", "neg_risk", negRisk, "orders", len(refs), "error", err)
			failures++
			groups = append(groups, domain.CancelGroup{NegRisk: negRisk, Requested: refs})
			continue
		}
		for ref, reason := range resp.NotCanceled {
			slog.Warn("order not cancelled", "ref", ref, "reason", reason)
		}
		groups = append(groups, domain.CancelGroup{
			NegRisk:   negRisk,
			Requested: refs,
			Cancelled: resp.Canceled,
		})
	}

	if failures == len(byType) {
		return groups, fmt.Errorf("all %d cancel batches failed", failures)
	}
	return groups, nil
}

// GetOrderStatus consulta el estado actual de una orden.
func (g *Gateway) GetOrderStatus(ctx context.Context, ref string) (domain.OrderStatus, error) {
	u := g.client.clobBase + "/order/" + url.PathEscape(ref)

	var resp clobOrderStatusResponse
	if err := g.client.get(ctx, g.client.clobLimiter, u, true, &resp); err != nil {
		return domain.StatusUnknown, fmt.Errorf("order status %s: %w", ref, err)
	}
	return mapOrderStatus(resp.Status), nil
}

// ListOpenOrders devuelve todas las órdenes abiertas del usuario,
// siguiendo next_cursor hasta agotar las páginas.
func (g *Gateway) ListOpenOrders(ctx context.Context) ([]domain.OpenOrder, error) {
	var orders []domain.OpenOrder
	cursor := ""
	for {
		u := g.client.clobBase + "/orders"
		if cursor != "" {
			u += "?next_cursor=" + url.QueryEscape(cursor)
		}

		var page clobOrdersResponse
		if err := g.client.get(ctx, g.client.clobLimiter, u, true, &page); err != nil {
			return nil, fmt.Errorf("list open orders: %w", err)
		}
		for _, o := range page.Data {
			orders = append(orders, mapOpenOrder(o))
		}

		if page.NextCursor == "" || page.NextCursor == endCursor {
			return orders, nil
		}
		cursor = page.NextCursor
	}
}

// isNegRisk resuelve si un token pertenece a un mercado neg-risk, con cache.
func (g *Gateway) isNegRisk(ctx context.Context, marketID string) (bool, error) {
	g.mu.Lock()
	if v, ok := g.negRisk[marketID]; ok {
		g.mu.Unlock()
		return v, nil
	}
	g.mu.Unlock()

	u := fmt.Sprintf("%s/neg-risk?token_id=%s", g.client.clobBase, url.QueryEscape(marketID))
	var resp clobNegRiskResponse
	if err := g.client.get(ctx, g.client.clobLimiter, u, false, &resp); err != nil {
		return false, fmt.Errorf("neg-risk lookup %s: %w", marketID, err)
	}

	g.mu.Lock()
	g.negRisk[marketID] = resp.NegRisk
	g.mu.Unlock()
	return resp.NegRisk, nil
}
