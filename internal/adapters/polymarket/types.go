package polymarket

// types.go — DTOs crudos de las APIs. El mapping a domain vive en mapping.go.

// bookLevel es un nivel de precio tal como lo devuelve el CLOB (strings).
type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// bookResponse es la respuesta de GET /book.
type bookResponse struct {
	Market  string      `json:"market"`
	AssetID string      `json:"asset_id"`
	Bids    []bookLevel `json:"bids"`
	Asks    []bookLevel `json:"asks"`
}

// clobOpenOrder es una orden abierta tal como la devuelve GET /orders.
type clobOpenOrder struct {
	ID          string `json:"id"`
	AssetID     string `json:"asset_id"`
	Market      string `json:"market"`
	Side        string `json:"side"`
	MakerAmount string `json:"maker_amount"`
	TakerAmount string `json:"taker_amount"`
	Status      string `json:"status"`
	NegRisk     bool   `json:"neg_risk"`
}

// clobOrdersResponse es la página de GET /orders.
type clobOrdersResponse struct {
	Data       []clobOpenOrder `json:"data"`
	NextCursor string          `json:"next_cursor"`
}

// clobOrderRequest es el body de POST /order.
type clobOrderRequest struct {
	TokenID   string  `json:"token_id"`
	Price     string  `json:"price"`
	Size      float64 `json:"size"`
	Side      string  `json:"side"`
	OrderType string  `json:"orderType"`
	Owner     string  `json:"owner"`
}

// clobOrderResponse es la respuesta de POST /order.
type clobOrderResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
}

// clobCancelRequest es el body de DELETE /orders.
type clobCancelRequest struct {
	OrderIDs []string `json:"orderIDs"`
	NegRisk  bool     `json:"negRisk"`
}

// clobCancelResponse es la respuesta de DELETE /orders.
type clobCancelResponse struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

// clobOrderStatusResponse es la respuesta de GET /order/{id}.
type clobOrderStatusResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	SizeMatched string `json:"size_matched"`
}

// clobNegRiskResponse es la respuesta de GET /neg-risk.
type clobNegRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

// dataPosition es una posición tal como la devuelve la data API.
type dataPosition struct {
	Asset        string  `json:"asset"`
	ConditionID  string  `json:"conditionId"`
	Size         float64 `json:"size"`
	CurPrice     float64 `json:"curPrice"`
	NegativeRisk bool    `json:"negativeRisk"`
	Title        string  `json:"title"`
}
