package ports

import "context"

// Liquidator vende todas las posiciones actuales con órdenes de mercado.
type Liquidator interface {
	// LiquidateAll devuelve true si existía al menos una posición y se vendió.
	LiquidateAll(ctx context.Context) (bool, error)
}
