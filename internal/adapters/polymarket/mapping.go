package polymarket

import (
	"sort"
	"strconv"
	"strings"

	"github.com/alejandrodnm/ladderbot/internal/domain"
)

// mapBids convierte los niveles crudos del book a domain.MarketBid,
// garantizando el orden descendente por precio que el core asume.
func mapBids(levels []bookLevel) []domain.MarketBid {
	bids := make([]domain.MarketBid, 0, len(levels))
	for _, l := range levels {
		price := parseFloat(l.Price)
		size := parseFloat(l.Size)
		if price <= 0 || size <= 0 {
			continue
		}
		bids = append(bids, domain.MarketBid{
			Price:    price,
			Quantity: size,
			Value:    price * size,
		})
	}
	sort.Slice(bids, func(i, j int) bool {
		return bids[i].Price > bids[j].Price
	})
	return bids
}

// mapOpenOrder convierte una orden abierta del CLOB a domain.OpenOrder.
func mapOpenOrder(o clobOpenOrder) domain.OpenOrder {
	side := domain.OrderSide(strings.ToUpper(o.Side))
	return domain.OpenOrder{
		MarketID:    o.AssetID,
		Ref:         o.ID,
		Side:        side,
		MakerAmount: parseFloat(o.MakerAmount),
		TakerAmount: parseFloat(o.TakerAmount),
		NegRisk:     o.NegRisk,
	}
}

// mapOrderStatus traduce el status del CLOB al enum del domain.
func mapOrderStatus(s string) domain.OrderStatus {
	upper := strings.ToUpper(s)
	switch {
	case strings.Contains(upper, "MATCHED"):
		return domain.StatusFilled
	case strings.Contains(upper, "CANCEL") || strings.Contains(upper, "INVALID"):
		return domain.StatusCancelled
	case strings.Contains(upper, "LIVE") || strings.Contains(upper, "OPEN"):
		return domain.StatusOpen
	default:
		return domain.StatusUnknown
	}
}

// parseFloat convierte un string numérico a float64 (0 si no parsea).
func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
