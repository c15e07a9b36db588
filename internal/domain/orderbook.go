package domain

// MarketBid es un nivel de compra en el orderbook de un mercado.
// Las secuencias de bids siempre vienen ordenadas de mayor a menor precio
// (invariante del proveedor, no se reordena aquí).
type MarketBid struct {
	Price    float64
	Quantity float64
	Value    float64 // Price × Quantity, en USD
}

// BestBid devuelve el mejor precio de compra del snapshot.
// Devuelve 0 si el book está vacío.
func BestBid(bids []MarketBid) float64 {
	if len(bids) == 0 {
		return 0
	}
	return bids[0].Price
}

// DepthAbove suma el value (USD) de los bids con precio estrictamente
// mayor que price.
func DepthAbove(bids []MarketBid, price float64) float64 {
	var total float64
	for _, b := range bids {
		if b.Price > price+priceEpsilon {
			total += b.Value
		}
	}
	return total
}
