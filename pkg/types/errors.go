package types

import "fmt"

// ConfigurationError indicates missing or malformed credential material.
// A venue in this state is "unconfigured" and must never look like a
// real trade outcome.
type ConfigurationError struct {
	Venue   string // venue or subsystem the credentials belong to
	Missing string // which piece of material is missing/malformed
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured: %s", e.Venue, e.Missing)
}

// SignatureError indicates malformed input handed to a signer.
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature error: %s", e.Reason)
}

// ProxyNotDeployedError is returned when a trade requires a proxy wallet
// that has not been deployed yet. Deployment is a separate user action,
// never triggered from inside a trade call.
type ProxyNotDeployedError struct {
	Owner string
}

func (e *ProxyNotDeployedError) Error() string {
	return fmt.Sprintf("proxy wallet for %s is not deployed", e.Owner)
}

// InsufficientBalanceError is returned before any signing happens.
type InsufficientBalanceError struct {
	Balance  float64
	Required float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %.2f, need %.2f", e.Balance, e.Required)
}

// InsufficientAllowanceError is returned after the single bounded
// auto-approval cycle failed to raise the allowance high enough.
type InsufficientAllowanceError struct {
	Spender   string
	Allowance float64
	Required  float64
}

func (e *InsufficientAllowanceError) Error() string {
	return fmt.Sprintf("insufficient allowance for %s: have %.2f, need %.2f",
		e.Spender, e.Allowance, e.Required)
}

// RelayUnavailableError indicates the relay could not be reached or
// answered with something that is not its API (e.g. an edge-proxy block
// page). Transient: the caller may retry the whole operation.
type RelayUnavailableError struct {
	Cause error
}

func (e *RelayUnavailableError) Error() string {
	return fmt.Sprintf("relay unavailable: %v", e.Cause)
}

func (e *RelayUnavailableError) Unwrap() error {
	return e.Cause
}

// RelayTimeoutError means polling exhausted its attempt budget without
// reaching a terminal state. The outcome is unknown: callers must
// re-check later, never treat this as a confirmed failure.
type RelayTimeoutError struct {
	TransactionID string
	Attempts      int
}

func (e *RelayTimeoutError) Error() string {
	return fmt.Sprintf("relay transaction %s still pending after %d attempts (outcome unknown)",
		e.TransactionID, e.Attempts)
}

// RelayerRejectedError is a terminal application-level rejection from
// the relay service.
type RelayerRejectedError struct {
	StatusCode int
	Message    string
}

func (e *RelayerRejectedError) Error() string {
	return fmt.Sprintf("relayer rejected request (status %d): %s", e.StatusCode, e.Message)
}

// VenueRejectedOrderError carries a venue's rejection verbatim. Never
// retried automatically: re-submitting with the same salt risks a
// duplicate-order response and a fresh salt risks double execution.
type VenueRejectedOrderError struct {
	Venue      Venue
	StatusCode int
	Code       string
	Message    string
}

func (e *VenueRejectedOrderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s rejected order: %s (%s)", e.Venue, e.Message, e.Code)
	}

	return fmt.Sprintf("%s rejected order (status %d): %s", e.Venue, e.StatusCode, e.Message)
}

// Known Polymarket CLOB API error codes
const (
	ErrInvalidMinTickSize = "INVALID_ORDER_MIN_TICK_SIZE"
	ErrNotEnoughBalance   = "INVALID_ORDER_NOT_ENOUGH_BALANCE"
	ErrFOKNotFilled       = "FOK_ORDER_NOT_FILLED_ERROR"
	ErrMarketNotReady     = "MARKET_NOT_READY"
)
