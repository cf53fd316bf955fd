package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrFilterViolation     = errors.New("symbol filter violated")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWSDisconnect        = errors.New("websocket disconnected")
	ErrContextDone         = errors.New("context cancelled")
)
