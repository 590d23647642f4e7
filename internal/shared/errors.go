package shared

import "errors"

// Sentinel errors shared across domain modules. Handlers map these to HTTP
// statuses in platform/httpx.
var (
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness violation (invoice number, sku, barcode, email).
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientStock indicates an outgoing quantity exceeds current stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInactiveAgency indicates a sale against a deactivated or non-agency distributor.
	ErrInactiveAgency = errors.New("invalid or inactive agency")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing, invalid, or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the actor's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrAccountLocked indicates too many failed login attempts.
	ErrAccountLocked = errors.New("account temporarily locked")
)
