package service

import "errors"

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrConflict   = errors.New("conflict")   // 409

	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidTransition   = errors.New("status transition not allowed")

	ErrNoReference     = errors.New("no payment reference")
	ErrPaymentFailed   = errors.New("payment not successful")
	ErrInvalidMetadata = errors.New("unusable payment metadata")

	ErrUpstream    = errors.New("upstream provider failed") // 502
	ErrUnavailable = errors.New("not configured")           // 503
)
