package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrMissingSecret = fmt.Errorf("signing secret not configured")

	// Authentication errors
	ErrUnauthenticated   = fmt.Errorf("no bearer credential presented")
	ErrInvalidCredential = fmt.Errorf("invalid or expired credential")
	ErrInvalidState      = fmt.Errorf("invalid state parameter")
	ErrAuthFailed        = fmt.Errorf("authentication failed")

	// Input validation errors
	ErrInvalidTimeRange = fmt.Errorf("invalid time range")
	ErrInvalidInput     = fmt.Errorf("invalid input")
)
