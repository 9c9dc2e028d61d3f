package randomnft

import "errors"

var (
	// ErrInsufficientFee rejects a request whose payment is below the mint fee.
	ErrInsufficientFee = errors.New("randomnft: insufficient fee")
	// ErrUnknownOrAlreadyFulfilledRequest rejects a fulfillment for a request
	// that was never issued or has already produced its asset.
	ErrUnknownOrAlreadyFulfilledRequest = errors.New("randomnft: unknown or already fulfilled request")
	// ErrRangeOutOfBounds is returned when a value falls outside the configured
	// category boundaries.
	ErrRangeOutOfBounds = errors.New("randomnft: range out of bounds")
	// ErrUnauthorized rejects treasury withdrawals by anyone but the owner.
	ErrUnauthorized = errors.New("randomnft: unauthorized")
	// ErrOnlyCoordinator rejects fulfillments not delivered by the configured
	// randomness coordinator.
	ErrOnlyCoordinator = errors.New("randomnft: only coordinator can fulfill")
	// ErrInsufficientFunds is returned when the payer cannot cover the payment.
	ErrInsufficientFunds = errors.New("randomnft: insufficient funds")

	ErrInvalidBoundaries = errors.New("randomnft: category boundaries must be strictly ascending and end at 100")
	ErrInvalidTokenURIs  = errors.New("randomnft: one non-empty token uri required per category")
	ErrInvalidMintFee    = errors.New("randomnft: mint fee must be non-negative")
	ErrOwnerNotSet       = errors.New("randomnft: owner not configured")
	ErrNilState          = errors.New("randomnft: state not configured")
	ErrInvalidAmount     = errors.New("randomnft: amount must be positive")
	ErrMissingRandomness = errors.New("randomnft: random value required")
	ErrRequestNotFound   = errors.New("randomnft: request not found")
	ErrAssetNotFound     = errors.New("randomnft: asset not found")
	ErrCounterOverflow   = errors.New("randomnft: counter overflow")
)

// ErrorCode returns a stable machine-readable code for err so callers can
// branch on the failure kind.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientFee):
		return "insufficient_fee"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrUnknownOrAlreadyFulfilledRequest):
		return "unknown_or_fulfilled_request"
	case errors.Is(err, ErrRangeOutOfBounds):
		return "range_out_of_bounds"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrOnlyCoordinator):
		return "only_coordinator"
	case errors.Is(err, ErrRequestNotFound), errors.Is(err, ErrAssetNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrMissingRandomness):
		return "invalid_argument"
	default:
		return "internal"
	}
}
