package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/alejandrodnm/ladderbot/internal/ports"
)

// minPositionSize filtra el polvo que deja el matching parcial.
const minPositionSize = 0.01

// Liquidator vende todas las posiciones abiertas del usuario a mercado.
type Liquidator struct {
	client *Client
}

var _ ports.Liquidator = (*Liquidator)(nil)

// NewLiquidator crea un Liquidator sobre el Client dado.
func NewLiquidator(client *Client) *Liquidator {
	return &Liquidator{client: client}
}

// LiquidateAll consulta las posiciones en la data API y las vende con
// órdenes FOK a mercado. Devuelve true si vendió al menos una. Los fallos
// individuales se loguean y no interrumpen el resto.
func (l *Liquidator) LiquidateAll(ctx context.Context) (bool, error) {
	if l.client.signer == nil {
		return false, fmt.Errorf("liquidator requires credentials")
	}

	u := fmt.Sprintf("%s/positions?user=%s", l.client.dataBase, url.QueryEscape(l.client.signer.address))
	var positions []dataPosition
	if err := l.client.get(ctx, l.client.clobLimiter, u, false, &positions); err != nil {
		return false, fmt.Errorf("fetch positions: %w", err)
	}

	sold := 0
	for _, p := range positions {
		if p.Size < minPositionSize {
			continue
		}
		if err := l.sellPosition(ctx, p); err != nil {
			slog.Warn("liquidate: sell failed", "asset", p.Asset, "title", p.Title, "error", err)
			continue
		}
		slog.Info("liquidate: position sold", "asset", p.Asset, "title", p.Title, "size", p.Size)
		sold++
	}
	return sold > 0, nil
}

// sellPosition emite un SELL FOK por el tamaño completo de la posición.
func (l *Liquidator) sellPosition(ctx context.Context, p dataPosition) error {
	body := clobOrderRequest{
		TokenID:   p.Asset,
		Price:     fmt.Sprintf("%.3f", p.CurPrice),
		Size:      p.Size,
		Side:      "SELL",
		OrderType: "FOK",
		Owner:     l.client.signer.apiKey,
	}

	u := l.client.clobBase + "/order"
	var resp clobOrderResponse
	if err := l.client.post(ctx, l.client.clobLimiter, u, true, body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("sell rejected: %s", resp.ErrorMsg)
	}
	return nil
}
