package ports

import (
	"context"

	"github.com/alejandrodnm/ladderbot/internal/domain"
)

// OrderStore persiste el estado del ladder para sobrevivir reinicios.
// Es un key-value idempotente: claves por order ref, sobreescritura segura
// en el alta y borrado en cancel/fill.
type OrderStore interface {
	// Órdenes trackeadas
	SaveOrder(ctx context.Context, rec domain.OrderRecord) error
	DeleteOrder(ctx context.Context, ref string) error
	LoadOrders(ctx context.Context) ([]domain.OrderRecord, error)

	// Metadata por mercado: título cacheado + contadores de cooldown
	SaveMarket(ctx context.Context, state domain.MarketState) error
	LoadMarkets(ctx context.Context) ([]domain.MarketState, error)

	// Close cierra la conexión limpiamente.
	Close() error
}
