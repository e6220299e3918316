package core

import "errors"

// Validation errors: surfaced inline, the operation is aborted before any write.
var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("amount must be a positive number")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidPayMethod = errors.New("invalid pay method")
	ErrAccountRequired  = errors.New("account is required for card expenses and card payments")
	ErrInvalidAccount   = errors.New("invalid account")
	ErrUnknownAccount   = errors.New("unknown account")
	ErrNotesTooLong     = errors.New("notes too long (max 500 characters)")
	ErrEmptyMerchantKey = errors.New("could not detect a merchant key from notes")
	ErrInvalidBilling   = errors.New("billing day must be between 1 and 31")
	ErrInvalidLimit     = errors.New("limit must be zero or positive")
	ErrEmptyAccountName = errors.New("account name is required")
	ErrDuplicateAccount = errors.New("account already exists")
)

// State invariant violations: rejected before any write.
var (
	ErrMonthLocked     = errors.New("month is locked")
	ErrRulesLocked     = errors.New("rules are locked")
	ErrLastAccount     = errors.New("at least one account must remain")
	ErrNotFound        = errors.New("not found")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrRecurringExists = errors.New("recurring entry already exists for this month")
)

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidDate, ErrInvalidMonth, ErrInvalidAmount, ErrInvalidType, ErrInvalidPayMethod,
		ErrAccountRequired, ErrInvalidAccount, ErrUnknownAccount, ErrNotesTooLong, ErrEmptyMerchantKey,
		ErrInvalidBilling, ErrInvalidLimit, ErrEmptyAccountName, ErrDuplicateAccount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict reports whether err is a state invariant violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrMonthLocked) || errors.Is(err, ErrRulesLocked) ||
		errors.Is(err, ErrLastAccount) || errors.Is(err, ErrNothingToUndo) ||
		errors.Is(err, ErrRecurringExists)
}
