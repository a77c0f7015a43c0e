package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/erain9/otcbook/pkg/core"
	"github.com/erain9/otcbook/pkg/logging"
)

// Server exposes the order book and token registry over HTTP
type Server struct {
	book     *core.OrderBook
	registry *core.Registry
	router   *mux.Router
	httpSrv  *http.Server
}

// NewServer creates an API server over the given book and registry
func NewServer(book *core.OrderBook, registry *core.Registry) *Server {
	s := &Server{
		book:     book,
		registry: registry,
		router:   mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Order endpoints
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{id}/accept", s.handleAcceptOrder).Methods("POST")
	api.HandleFunc("/orders/{id}/cancel", s.handleCancelOrder).Methods("POST")

	// Book projection and trade history
	api.HandleFunc("/orderbook", s.handleGetOrderBook).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")

	// Token registry
	api.HandleFunc("/registry/tokens", s.handleAddToken).Methods("POST")
	api.HandleFunc("/registry/tokens", s.handleListTokens).Methods("GET")

	// Purchase intents
	api.HandleFunc("/intents", s.handleAddIntent).Methods("POST")
	api.HandleFunc("/intents", s.handleListIntents).Methods("GET")
	api.HandleFunc("/intents/{id}/review", s.handleReviewIntent).Methods("POST")

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the full middleware-wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(logging.RequestLogger()(s.router))
}

// Start starts the API server on addr and blocks until it exits
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the API server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context()).With().Str("method", "SubmitOrder").Logger()

	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	side, err := core.ParseSide(req.Side)
	if err != nil {
		respondCoreError(w, err)
		return
	}

	price, err := core.ParsePrice(req.Price)
	if err != nil {
		respondCoreError(w, err)
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondCoreError(w, err)
		return
	}

	order, err := core.NewOrder(core.NewOrderID(), req.Token, req.Owner, side, price, amount)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	if req.LotID != 0 || req.Quote != "" {
		order.SetSettlement(req.LotID, req.Quote)
	}

	if err := s.book.Submit(r.Context(), order); err != nil {
		logger.Error().Err(err).Msg("Failed to submit order")
		respondCoreError(w, err)
		return
	}

	logger.Info().
		Str("order_id", order.ID()).
		Str("token", order.Token()).
		Str("side", order.Side().String()).
		Msg("Order submitted")
	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	order := s.book.GetOrder(orderID)
	if order == nil {
		respondCoreError(w, core.ErrNonexistentOrder)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleAcceptOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	logger := logging.FromContext(r.Context()).With().Str("method", "AcceptOrder").Logger()

	var req AcceptOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	// A missing amount means "fill whatever is left"
	var amount *big.Int
	if req.Amount != "" {
		parsed, ok := new(big.Int).SetString(req.Amount, 10)
		if !ok {
			respondCoreError(w, core.ErrInvalidFill)
			return
		}
		amount = parsed
	}

	result, err := s.book.Accept(r.Context(), orderID, req.Taker, amount)
	if err != nil {
		logger.Debug().Err(err).Str("order_id", orderID).Msg("Accept rejected")
		respondCoreError(w, err)
		return
	}

	logger.Info().
		Str("order_id", orderID).
		Str("trade_id", result.Trade.ID).
		Str("filled_amount", result.FilledAmount.String()).
		Str("status", string(result.Status)).
		Msg("Order accepted")

	order := s.book.GetOrder(orderID)
	remaining := "0"
	if order != nil {
		remaining = order.Remaining().String()
	}

	respondJSON(w, http.StatusOK, AcceptOrderResponse{
		OrderID:      orderID,
		TradeID:      result.Trade.ID,
		FilledAmount: result.FilledAmount.String(),
		Remaining:    remaining,
		Status:       string(result.Status),
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := s.book.Cancel(r.Context(), orderID, req.Owner); err != nil {
		respondCoreError(w, err)
		return
	}

	logger := logging.FromContext(r.Context())
	logger.Info().
		Str("method", "CancelOrder").
		Str("order_id", orderID).
		Msg("Order cancelled")
	respondJSON(w, http.StatusOK, s.book.GetOrder(orderID))
}

func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusBadRequest, "missing token parameter", "")
		return
	}

	respondJSON(w, http.StatusOK, s.book.Snapshot(token))
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	trades := s.book.Trades(r.URL.Query().Get("token"))
	if trades == nil {
		trades = []*core.Trade{}
	}
	respondJSON(w, http.StatusOK, trades)
}

func (s *Server) handleAddToken(w http.ResponseWriter, r *http.Request) {
	var req AddTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if !core.IsERC20Address(req.Token) {
		respondError(w, http.StatusBadRequest, "invalid token address", req.Token)
		return
	}

	info, err := s.registry.AddToken(&core.TokenInfo{
		ChainID:    req.ChainID,
		Token:      core.NormalizeAddress(req.Token),
		Restrictor: core.NormalizeAddress(req.Restrictor),
		Name:       req.Name,
		Symbol:     req.Symbol,
		Decimals:   req.Decimals,
	})
	if err != nil {
		respondCoreError(w, err)
		return
	}

	logger := logging.FromContext(r.Context())
	logger.Info().
		Str("method", "AddToken").
		Str("token", info.Token).
		Str("symbol", info.Symbol).
		Msg("Token registered")
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens := s.registry.ListTokens()
	if tokens == nil {
		tokens = []*core.TokenInfo{}
	}
	respondJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleAddIntent(w http.ResponseWriter, r *http.Request) {
	var req AddIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if _, err := core.ParseAmount(req.Amount); err != nil {
		respondCoreError(w, err)
		return
	}

	intent, err := s.registry.AddIntent(req.Token, req.Buyer, req.Amount)
	if err != nil {
		respondCoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, intent)
}

func (s *Server) handleListIntents(w http.ResponseWriter, r *http.Request) {
	intents := s.registry.ListIntents()
	if intents == nil {
		intents = []*core.PurchaseIntent{}
	}
	respondJSON(w, http.StatusOK, intents)
}

func (s *Server) handleReviewIntent(w http.ResponseWriter, r *http.Request) {
	intentID := mux.Vars(r)["id"]

	var req ReviewIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	intent, err := s.registry.ReviewIntent(intentID, req.Approve)
	if err != nil {
		respondCoreError(w, err)
		return
	}

	logger := logging.FromContext(r.Context())
	logger.Info().
		Str("method", "ReviewIntent").
		Str("intent_id", intentID).
		Str("status", string(intent.Status)).
		Msg("Intent reviewed")
	respondJSON(w, http.StatusOK, intent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errMsg,
		Message: message,
	})
}

// respondCoreError maps engine errors to HTTP status codes
func respondCoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidSide),
		errors.Is(err, core.ErrInvalidQuantity),
		errors.Is(err, core.ErrInvalidPrice),
		errors.Is(err, core.ErrInvalidFill):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNonexistentOrder),
		errors.Is(err, core.ErrNonexistentIntent):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrOrderClosed),
		errors.Is(err, core.ErrIntentClosed),
		errors.Is(err, core.ErrOrderExists),
		errors.Is(err, core.ErrTokenExists):
		status = http.StatusConflict
	}
	respondError(w, status, err.Error(), "")
}
