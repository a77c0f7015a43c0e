package server

// SubmitOrderRequest is the body of POST /api/orders
type SubmitOrderRequest struct {
	Token  string `json:"token"`
	Owner  string `json:"owner"`
	Side   string `json:"side"`
	Price  string `json:"price"`
	Amount string `json:"amount"`
	LotID  int64  `json:"lotId,omitempty"`
	Quote  string `json:"quote,omitempty"`
}

// AcceptOrderRequest is the body of POST /api/orders/{id}/accept.
// An empty amount accepts the entire remaining quantity.
type AcceptOrderRequest struct {
	Taker  string `json:"taker"`
	Amount string `json:"amount,omitempty"`
}

// CancelOrderRequest is the body of POST /api/orders/{id}/cancel
type CancelOrderRequest struct {
	Owner string `json:"owner"`
}

// AcceptOrderResponse reports the fill performed by an accept call
type AcceptOrderResponse struct {
	OrderID      string `json:"orderId"`
	TradeID      string `json:"tradeId"`
	FilledAmount string `json:"filledAmount"`
	Remaining    string `json:"remaining"`
	Status       string `json:"status"`
}

// AddTokenRequest is the body of POST /api/registry/tokens
type AddTokenRequest struct {
	ChainID    int64  `json:"chainId"`
	Token      string `json:"token"`
	Restrictor string `json:"restrictor,omitempty"`
	Name       string `json:"name,omitempty"`
	Symbol     string `json:"symbol,omitempty"`
	Decimals   uint8  `json:"decimals,omitempty"`
}

// AddIntentRequest is the body of POST /api/intents
type AddIntentRequest struct {
	Token  string `json:"token"`
	Buyer  string `json:"buyer"`
	Amount string `json:"amount"`
}

// ReviewIntentRequest is the body of POST /api/intents/{id}/review
type ReviewIntentRequest struct {
	Approve bool `json:"approve"`
}

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
