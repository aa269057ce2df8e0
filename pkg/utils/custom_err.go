package utils

import "errors"

var (
	ErrDatabaseError    = errors.New("database error")
	ErrStoreUnavailable = errors.New("store temporarily unavailable")

	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooLong    = errors.New("password longer than 72 bytes")
	ErrUnauthenticated    = errors.New("authentication required")

	ErrQuotaExceeded = errors.New("free tier limit reached")

	ErrInvalidPlan       = errors.New("invalid subscription plan")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrPaymentUnverified = errors.New("payment not confirmed by provider")
	ErrPaymentProvider   = errors.New("payment provider error")
)
