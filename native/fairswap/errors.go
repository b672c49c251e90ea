package fairswap

import (
	"errors"
	"fmt"

	"fairswap/native/bank"
	"fairswap/native/common"
)

// Top-level failure classes. Every error returned by an operation matches
// exactly one of these with errors.Is.
var (
	ErrUnauthorized        = errors.New("fairswap: unauthorized")
	ErrPreconditionFailed  = errors.New("fairswap: precondition failed")
	ErrInsufficientBalance = errors.New("fairswap: insufficient balance")
	ErrDuplicateRecord     = errors.New("fairswap: duplicate record")
)

// Precondition causes, always wrapped together with ErrPreconditionFailed.
var (
	ErrOfferNotFound          = errors.New("offer not found")
	ErrProposalNotFound       = errors.New("proposal not found")
	ErrAlternativesNotAllowed = errors.New("offer does not accept alternative proposals")
	ErrInvalidAssetKind       = errors.New("invalid asset kind")
	ErrAddressMismatch        = errors.New("address mismatch")
	ErrProposalOfferMismatch  = errors.New("proposal does not reference offer")
	ErrAccountNotFound        = errors.New("token account not found")
	ErrInvalidAmount          = errors.New("amount must be positive")
)

var (
	errNilBackend = errors.New("fairswap: backend not configured")
	errVaultState = errors.New("fairswap: vault out of sync with record")
)

func precondition(cause error, format string, args ...interface{}) error {
	if format == "" {
		return fmt.Errorf("%w: %w", ErrPreconditionFailed, cause)
	}
	return fmt.Errorf("%w: %w: %s", ErrPreconditionFailed, cause, fmt.Sprintf(format, args...))
}

// translate maps bank failures onto the fair-swap taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrPreconditionFailed),
		errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrDuplicateRecord):
		return err
	case errors.Is(err, bank.ErrUnauthorized):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case errors.Is(err, bank.ErrInsufficientBalance), errors.Is(err, bank.ErrInsufficientDeposit):
		return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	case errors.Is(err, bank.ErrAccountExists):
		return fmt.Errorf("%w: %v", ErrDuplicateRecord, err)
	case errors.Is(err, bank.ErrAssetMismatch), errors.Is(err, bank.ErrAssetNotFound):
		return precondition(ErrInvalidAssetKind, "%v", err)
	case errors.Is(err, bank.ErrAccountNotFound):
		return precondition(ErrAccountNotFound, "%v", err)
	case errors.Is(err, bank.ErrInvalidAmount):
		return precondition(ErrInvalidAmount, "")
	default:
		return err
	}
}

// Reason classifies err into a stable label for metrics and RPC codes.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, common.ErrModulePaused):
		return "paused"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrPreconditionFailed):
		return "precondition_failed"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrDuplicateRecord):
		return "duplicate_record"
	default:
		return "internal"
	}
}
