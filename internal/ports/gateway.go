package ports

import (
	"context"

	"github.com/alejandrodnm/ladderbot/internal/domain"
)

// Gateway es el contrato con el exchange: abre, cancela y lista órdenes.
// El transporte, la autenticación y el firmado quedan detrás de esta
// interfaz — el core solo ve refs opacas.
type Gateway interface {
	// FetchOrderBook devuelve los mejores bids del mercado, ordenados de
	// mayor a menor precio. Lista vacía si el book no está disponible.
	FetchOrderBook(ctx context.Context, marketID string) ([]domain.MarketBid, error)

	// OpenOrder abre una orden limit BUY resting en el book.
	OpenOrder(ctx context.Context, req domain.OrderRequest) (domain.PlacedOrder, error)

	// CancelOrders cancela un batch. Internamente agrupa por tipo
	// (neg-risk) y devuelve el resultado por sub-grupo; solo los refs
	// reportados como cancelados deben salir del tracking.
	CancelOrders(ctx context.Context, reqs []domain.CancelRequest) ([]domain.CancelGroup, error)

	// GetOrderStatus consulta el estado actual de una orden.
	GetOrderStatus(ctx context.Context, ref string) (domain.OrderStatus, error)

	// ListOpenOrders devuelve TODAS las órdenes abiertas de la cuenta,
	// acumulando la paginación internamente.
	ListOpenOrders(ctx context.Context) ([]domain.OpenOrder, error)
}
