/*
store.go - Persistence interfaces for the party engine

PURPOSE:
  Defines the interface between the domain logic and the database. Every
  write here is a discrete, independently-committed single-record operation;
  the reconciliation design is resilient to partial failure instead of
  relying on multi-record transactions.

KEY INTERFACES:
  PartyStore:       Party records, with compare-and-swap updates
  AssignmentStore:  Staff assignments per party
  PaymentStore:     Freelancer payment records (created/deleted by toggles)
  InvoiceStore:     One invoice per party
  InstallmentStore: Installment schedules, batch-inserted at invoice creation

CONCURRENCY:
  UpdateParty is CAS on Party.Version. The payment-aggregate write and the
  status write both go through it, so a lost update between the two steps of
  a payment event surfaces as ErrConcurrentModification instead of silently
  clobbering.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - store/memory: In-memory for tests

SEE ALSO:
  - reconciler.go: The main consumer of these interfaces
*/
package party

import (
	"context"
	"time"
)

// =============================================================================
// PARTY STORE
// =============================================================================

// PartyFilter narrows ListParties. Zero value means no filtering.
type PartyFilter struct {
	Statuses []Status
	FromDate *time.Time
	ToDate   *time.Time
}

type PartyStore interface {
	GetParty(ctx context.Context, id PartyID) (*Party, error)
	ListParties(ctx context.Context, filter PartyFilter) ([]Party, error)

	// SaveParty inserts a new party.
	SaveParty(ctx context.Context, p Party) error

	// UpdateParty persists p if and only if the stored version matches
	// p.Version. On success the stored and in-memory versions are
	// incremented. Returns ErrConcurrentModification on version mismatch.
	UpdateParty(ctx context.Context, p *Party) error

	// DeleteParty removes the party and cascades to its assignments,
	// payments, invoice, and installments.
	DeleteParty(ctx context.Context, id PartyID) error
}

// =============================================================================
// STAFF ASSIGNMENT + PAYMENT STORES
// =============================================================================

type AssignmentStore interface {
	GetAssignment(ctx context.Context, id AssignmentID) (*StaffAssignment, error)
	ListAssignmentsByParty(ctx context.Context, partyID PartyID) ([]StaffAssignment, error)
	SaveAssignment(ctx context.Context, a StaffAssignment) error
	UpdateAssignment(ctx context.Context, a StaffAssignment) error
	DeleteAssignment(ctx context.Context, id AssignmentID) error
}

type PaymentStore interface {
	SavePayment(ctx context.Context, p Payment) error
	ListPaymentsByParty(ctx context.Context, partyID PartyID) ([]Payment, error)

	// DeletePaymentByAssignment removes the payment record backing a paid
	// assignment. Used when a payment toggle goes paid -> unpaid.
	DeletePaymentByAssignment(ctx context.Context, assignmentID AssignmentID) error
}

// =============================================================================
// INVOICE + INSTALLMENT STORES
// =============================================================================

type InvoiceStore interface {
	GetInvoice(ctx context.Context, id InvoiceID) (*Invoice, error)

	// GetInvoiceByParty returns (nil, nil) when the party has no invoice:
	// an absent invoice is a normal state, not an error.
	GetInvoiceByParty(ctx context.Context, partyID PartyID) (*Invoice, error)

	SaveInvoice(ctx context.Context, inv Invoice) error
	UpdateInvoice(ctx context.Context, inv Invoice) error
}

type InstallmentStore interface {
	GetInstallment(ctx context.Context, id InstallmentID) (*Installment, error)
	ListInstallmentsByInvoice(ctx context.Context, invoiceID InvoiceID) ([]Installment, error)
	ListInstallmentsByParty(ctx context.Context, partyID PartyID) ([]Installment, error)

	// ListOverdueInstallments returns pending installments whose due date is
	// before now, across all parties. Used by reporting, not by the engine.
	ListOverdueInstallments(ctx context.Context, now time.Time) ([]Installment, error)

	// SaveInstallments batch-inserts a generated schedule.
	SaveInstallments(ctx context.Context, ins []Installment) error

	UpdateInstallment(ctx context.Context, in Installment) error
}

// =============================================================================
// COMPOSITE STORE
// =============================================================================

// Store is everything the reconciliation paths need in one place.
type Store interface {
	PartyStore
	AssignmentStore
	PaymentStore
	InvoiceStore
	InstallmentStore
}
