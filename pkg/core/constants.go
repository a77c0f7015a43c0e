package core

import "errors"

// Errors
var (
	ErrInvalidSide       = errors.New("invalid side")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidFill       = errors.New("invalid fill amount")
	ErrOrderExists       = errors.New("order exists")
	ErrNonexistentOrder  = errors.New("nonexistent order")
	ErrOrderClosed       = errors.New("order closed")
	ErrNotOwner          = errors.New("not order owner")
	ErrTokenExists       = errors.New("token already registered")
	ErrNonexistentIntent = errors.New("nonexistent intent")
	ErrIntentClosed      = errors.New("intent already reviewed")
	ErrStore             = errors.New("store failure")
)
