/*
errors.go - Centralized error types for the party engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Services wrap these errors with additional context via fmt.Errorf("%w").

ERROR CATEGORIES:
  1. Not-found errors - Missing parties, assignments, invoices
  2. Transition errors - Illegal status changes, toggle misuse
  3. Store errors - Concurrency conflicts, persistence failures

SEE ALSO:
  - engine.go: Uses transition errors
  - reconciler.go: Collects (not propagates) per-party failures in batches
*/
package party

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPartyNotFound is returned when a referenced party doesn't exist.
	ErrPartyNotFound = errors.New("party not found")

	// ErrAssignmentNotFound is returned when a referenced staff assignment
	// doesn't exist.
	ErrAssignmentNotFound = errors.New("staff assignment not found")

	// ErrInvoiceNotFound is returned when a referenced invoice doesn't exist.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrInstallmentNotFound is returned when a referenced installment
	// doesn't exist.
	ErrInstallmentNotFound = errors.New("installment not found")

	// ErrInvoiceExists is returned when creating a second invoice for a
	// party that already has one.
	ErrInvoiceExists = errors.New("party already has an invoice")

	// ErrConcurrentModification is returned when the version check on a
	// party update detects a conflicting write.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrAlreadyInState is returned when a payment toggle requests the state
	// the record is already in. Toggles are state-guarded: marking paid twice
	// would create a duplicate payment record.
	ErrAlreadyInState = errors.New("record already in requested state")

	// ErrInvalidSchedule is returned when installment generation inputs are
	// unusable (count < 1, down payment exceeding total).
	ErrInvalidSchedule = errors.New("invalid installment schedule")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError reports an illegal manual status transition.
type TransitionError struct {
	PartyID PartyID
	From    Status
	To      Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition for party %s: %s -> %s", e.PartyID, e.From, e.To)
}

// MalformedPartyError reports a party that cannot be reconciled because its
// scheduling data is missing or unusable. Batch reconciliation skips these.
type MalformedPartyError struct {
	PartyID PartyID
	Field   string
}

func (e *MalformedPartyError) Error() string {
	return fmt.Sprintf("party %s has malformed %s", e.PartyID, e.Field)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPartyNotFound) ||
		errors.Is(err, ErrAssignmentNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrInstallmentNotFound)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input
// rather than a system failure.
func IsClientError(err error) bool {
	if errors.Is(err, ErrAlreadyInState) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrInvoiceExists) {
		return true
	}
	var te *TransitionError
	return errors.As(err, &te)
}
