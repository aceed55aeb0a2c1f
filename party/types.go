/*
Package party provides the core party lifecycle engine.

PURPOSE:
  This package contains the domain types and algorithms that keep a party's
  lifecycle consistent with three independently-updated payment facts: the
  client's invoice payment, the aggregate freelancer payment, and the
  individual per-installment payments. The status state machine, the payment
  aggregation rules, and the reconciliation orchestration all live here.

KEY CONCEPTS IN THIS FILE (types.go):
  - Party: One scheduled client event and its lifecycle status
  - StaffAssignment: Binding of one freelancer to one party with agreed pay
  - Invoice/Installment: The client-facing bill and its payment schedule
  - Payment: The record created when a freelancer is actually paid

DESIGN PRINCIPLES:
  1. Derived fields are projections: Party.FreelancerPaymentStatus is always
     recomputed from the assignment set, never patched incrementally
  2. Precision: Uses decimal.Decimal for money to avoid floating-point errors
  3. Guarded transitions: Status changes go through the transition table,
     never through blind field writes
  4. Optimistic concurrency: Party carries a version counter so the aggregate
     write and the status write cannot silently clobber each other

SEE ALSO:
  - engine.go: The status state machine
  - aggregate.go: Freelancer payment aggregation
  - reconciler.go: Orchestration of payment and time-based reconciliation
*/
package party

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PARTY - One scheduled client event
// =============================================================================

type PartyID string
type AssignmentID string
type InvoiceID string
type InstallmentID string
type PaymentID string

// Status is the party lifecycle state.
//
//	planning -> confirmed -> (happening) -> ended_pending -> ended
//
// cancelled is terminal and reachable from any non-terminal state.
// happening is set manually by staff on the day of the event; it is never
// derived by the engine.
type Status string

const (
	StatusPlanning     Status = "planning"
	StatusConfirmed    Status = "confirmed"
	StatusHappening    Status = "happening"
	StatusEndedPending Status = "ended_pending"
	StatusEnded        Status = "ended"
	StatusCancelled    Status = "cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// transitions lists the manual transitions allowed per state. The engine's
// automatic transitions (confirmed -> ended/ended_pending, ended_pending ->
// ended) are applied by the status engine, not through this table.
var transitions = map[Status][]Status{
	StatusPlanning:     {StatusConfirmed, StatusCancelled},
	StatusConfirmed:    {StatusPlanning, StatusHappening, StatusCancelled},
	StatusHappening:    {StatusEndedPending, StatusEnded, StatusCancelled},
	StatusEndedPending: {StatusCancelled},
	StatusEnded:        {},
	StatusCancelled:    {},
}

// CanTransition reports whether a manual transition from s to target is allowed.
func (s Status) CanTransition(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// FreelancerPaymentStatus is the aggregate payment state across a party's
// staff assignments. It is a cached projection of the assignment set.
type FreelancerPaymentStatus string

const (
	FreelancerPending FreelancerPaymentStatus = "pending"
	FreelancerPartial FreelancerPaymentStatus = "partial"
	FreelancerPaid    FreelancerPaymentStatus = "paid"
)

// ClientPaymentStatus is the payment completeness of the party's invoice.
type ClientPaymentStatus string

const (
	ClientPending       ClientPaymentStatus = "pending"
	ClientPartiallyPaid ClientPaymentStatus = "partially_paid"
	ClientFullyPaid     ClientPaymentStatus = "fully_paid"
)

// TimeOfDay is a naive wall-clock time. Party dates and times carry no
// timezone; comparisons use the same local semantics as storage.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Party is one scheduled event.
type Party struct {
	ID   PartyID
	Name string

	// Date is the scheduled calendar date (time component zero).
	// StartTime, when set, is the scheduled start time of day.
	Date      time.Time
	StartTime *TimeOfDay

	Status Status

	// FreelancerPaymentStatus is derived from the assignment set; it is a
	// cached projection, never authoritative. ClientPaymentStatus mirrors
	// the invoice's payment status.
	FreelancerPaymentStatus FreelancerPaymentStatus
	ClientPaymentStatus     ClientPaymentStatus

	// Version supports compare-and-swap updates. Incremented by the store
	// on every successful update.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// STAFF ASSIGNMENT - One freelancer booked for one party
// =============================================================================

type AssignmentPaymentStatus string

const (
	AssignmentUnpaid AssignmentPaymentStatus = "pending"
	AssignmentPaid   AssignmentPaymentStatus = "paid"
)

type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
)

// StaffAssignment binds one freelancer to one party with an agreed price.
// BaseAmount and BonusAmount are copied from the staff profile at assignment
// time so later rate changes don't retroactively change agreed pay.
type StaffAssignment struct {
	ID        AssignmentID
	PartyID   PartyID
	StaffID   string
	StaffName string

	BaseAmount  decimal.Decimal
	BonusAmount decimal.Decimal
	BonusReason *string

	PaymentStatus      AssignmentPaymentStatus
	ConfirmationStatus ConfirmationStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Payable is the total owed for this assignment: base plus bonus.
func (a StaffAssignment) Payable() decimal.Decimal {
	return a.BaseAmount.Add(a.BonusAmount)
}

// =============================================================================
// INVOICE - The client-facing bill for a party
// =============================================================================

type PaymentMode string

const (
	ModeLumpSum     PaymentMode = "lump_sum"
	ModeInstallment PaymentMode = "installment"
)

// LineItem is one billed item on an invoice.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Invoice is the budget/bill for a party. At most one invoice per party.
// Total is always recomputed from the line items plus discount and surcharge.
type Invoice struct {
	ID      InvoiceID
	PartyID PartyID

	LineItems []LineItem
	Discount  decimal.Decimal
	Surcharge decimal.Decimal
	Total     decimal.Decimal

	PaymentMode      PaymentMode
	InstallmentCount int
	DownPayment      decimal.Decimal

	PaymentStatus ClientPaymentStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// INSTALLMENT - One scheduled payment unit of an installment invoice
// =============================================================================

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	// InstallmentOverdue is display-only: derived from due date at read time,
	// never stored.
	InstallmentOverdue InstallmentStatus = "overdue"
)

// Installment is one scheduled partial payment of an installment-mode invoice.
// PartyID is denormalized for query convenience.
type Installment struct {
	ID        InstallmentID
	InvoiceID InvoiceID
	PartyID   PartyID

	SequenceNo int
	Amount     decimal.Decimal
	DueDate    time.Time

	Status        InstallmentStatus
	PaymentDate   *time.Time
	PaymentMethod *string
	Notes         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveStatus derives the display status: a pending installment whose due
// date has passed reads as overdue. This is a read-time projection; the
// stored status never becomes overdue, and an overdue installment can still
// be marked paid.
func (i Installment) EffectiveStatus(now time.Time) InstallmentStatus {
	if i.Status == InstallmentPending && now.After(endOfDay(i.DueDate)) {
		return InstallmentOverdue
	}
	return i.Status
}

// =============================================================================
// PAYMENT - Record of money actually paid to a freelancer
// =============================================================================

// Payment is created when an assignment is marked paid and deleted when the
// assignment is marked unpaid again. One payment per paid assignment.
type Payment struct {
	ID           PaymentID
	PartyID      PartyID
	AssignmentID AssignmentID
	Amount       decimal.Decimal
	PaidAt       time.Time
}
