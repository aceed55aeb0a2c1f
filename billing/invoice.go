/*
Package billing manages invoices, their totals, and installment payments.

PURPOSE:
  The client-facing side of party payments: budget line items, discounts
  and surcharges, the lump-sum/installment split, and the per-installment
  payment lifecycle.

TOTAL INVARIANT:
  An invoice's total is always recomputed from its line items plus
  surcharge minus discount. Client-supplied totals are ignored.

INSTALLMENT FAILURE IS NON-FATAL:
  If schedule generation fails after the invoice row is committed, the
  invoice stays. The party and invoice exist without installments and the
  failure is surfaced as a warning on the create result, not an error -
  billing problems must never block party creation.

SEE ALSO:
  - installment.go: Schedule generation and status recompute
  - party/reconciler.go: OnPaymentEvent, invoked after payment mutations
*/
package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/party-engine/party"
)

// =============================================================================
// TOTALS
// =============================================================================

// ComputeTotal recomputes an invoice total from its inputs:
// sum(quantity x unit price) - discount + surcharge.
func ComputeTotal(items []party.LineItem, discount, surcharge decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Subtotal())
	}
	return total.Sub(discount).Add(surcharge)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service creates invoices and records client payments.
type Service struct {
	Store      party.Store
	Reconciler *party.Reconciler
	Clock      party.Clock
}

func NewService(store party.Store, rec *party.Reconciler, clock party.Clock) *Service {
	return &Service{Store: store, Reconciler: rec, Clock: clock}
}

// CreateInvoiceInput is the budget as entered. Total is not an input.
type CreateInvoiceInput struct {
	LineItems        []party.LineItem
	Discount         decimal.Decimal
	Surcharge        decimal.Decimal
	PaymentMode      party.PaymentMode
	InstallmentCount int
	DownPayment      decimal.Decimal
}

// CreateResult reports the created invoice and, when installment generation
// failed after the invoice was committed, a non-fatal warning.
type CreateResult struct {
	Invoice      party.Invoice
	Installments []party.Installment
	Warning      error
}

// CreateInvoice creates the party's invoice and, in installment mode,
// generates its payment schedule. The invoice insert and the schedule
// insert are independent commits: a schedule failure does not roll back
// the invoice (see package comment).
func (s *Service) CreateInvoice(ctx context.Context, partyID party.PartyID, input CreateInvoiceInput) (*CreateResult, error) {
	p, err := s.Store.GetParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if existing, err := s.Store.GetInvoiceByParty(ctx, partyID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: party %s", party.ErrInvoiceExists, partyID)
	}

	mode := input.PaymentMode
	if mode == "" {
		mode = party.ModeLumpSum
	}
	if mode == party.ModeInstallment && input.InstallmentCount < 1 {
		return nil, fmt.Errorf("%w: installment mode requires a count >= 1", party.ErrInvalidSchedule)
	}
	// A single installment is a lump sum in practice. Normalizing here keeps
	// the invoice payable through MarkInvoicePaid; otherwise it would have an
	// empty schedule that can never be settled.
	if mode == party.ModeInstallment && input.InstallmentCount == 1 {
		mode = party.ModeLumpSum
	}

	now := s.Clock.Now()
	inv := party.Invoice{
		ID:               party.InvoiceID(uuid.NewString()),
		PartyID:          partyID,
		LineItems:        input.LineItems,
		Discount:         input.Discount,
		Surcharge:        input.Surcharge,
		Total:            ComputeTotal(input.LineItems, input.Discount, input.Surcharge),
		PaymentMode:      mode,
		InstallmentCount: input.InstallmentCount,
		DownPayment:      input.DownPayment,
		PaymentStatus:    party.ClientPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.Store.SaveInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	result := &CreateResult{Invoice: inv}

	if mode == party.ModeInstallment {
		installments, err := GenerateInstallments(inv.ID, partyID, inv.Total, inv.DownPayment,
			inv.InstallmentCount, p.Date, now)
		if err == nil && len(installments) > 0 {
			err = s.Store.SaveInstallments(ctx, installments)
			if err == nil {
				result.Installments = installments
			}
		}
		if err != nil {
			// Invoice already committed; surface as warning, don't abort.
			result.Warning = fmt.Errorf("invoice created without installments: %w", err)
		}
	}

	return result, nil
}

// UpdateBudget replaces the invoice's line items, discount, and surcharge
// and recomputes the total. The payment schedule is not regenerated;
// already-agreed installments stand.
func (s *Service) UpdateBudget(ctx context.Context, invoiceID party.InvoiceID, items []party.LineItem, discount, surcharge decimal.Decimal) (*party.Invoice, error) {
	inv, err := s.Store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	inv.LineItems = items
	inv.Discount = discount
	inv.Surcharge = surcharge
	inv.Total = ComputeTotal(items, discount, surcharge)
	inv.UpdatedAt = s.Clock.Now()

	if err := s.Store.UpdateInvoice(ctx, *inv); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}
	return inv, nil
}

// MarkInvoicePaid settles a lump-sum invoice. Guarded like the staff
// toggle: flipping to the current state is rejected. Installment-mode
// invoices are settled through their installments, not directly.
func (s *Service) MarkInvoicePaid(ctx context.Context, invoiceID party.InvoiceID, paid bool) error {
	inv, err := s.Store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.PaymentMode != party.ModeLumpSum {
		return fmt.Errorf("%w: installment invoices are settled per installment", party.ErrInvalidSchedule)
	}

	target := party.ClientPending
	if paid {
		target = party.ClientFullyPaid
	}
	if inv.PaymentStatus == target {
		return fmt.Errorf("%w: invoice %s is already %s", party.ErrAlreadyInState, invoiceID, target)
	}

	inv.PaymentStatus = target
	inv.UpdatedAt = s.Clock.Now()
	if err := s.Store.UpdateInvoice(ctx, *inv); err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	return s.Reconciler.OnPaymentEvent(ctx, inv.PartyID)
}

// MarkInstallmentPaid records a payment against one installment and
// recomputes the invoice status from the full schedule. An overdue
// installment can be paid like any pending one; overdue is display-only.
func (s *Service) MarkInstallmentPaid(ctx context.Context, id party.InstallmentID, method *string, notes string) error {
	in, err := s.Store.GetInstallment(ctx, id)
	if err != nil {
		return err
	}
	if in.Status == party.InstallmentPaid {
		return fmt.Errorf("%w: installment %d is already paid", party.ErrAlreadyInState, in.SequenceNo)
	}

	now := s.Clock.Now()
	in.Status = party.InstallmentPaid
	in.PaymentDate = &now
	in.PaymentMethod = method
	if notes != "" {
		in.Notes = notes
	}
	in.UpdatedAt = now
	if err := s.Store.UpdateInstallment(ctx, *in); err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}

	if err := s.refreshInvoiceStatus(ctx, in.InvoiceID); err != nil {
		return err
	}
	return s.Reconciler.OnPaymentEvent(ctx, in.PartyID)
}

// refreshInvoiceStatus recomputes an installment-mode invoice's payment
// status as a projection over its schedule.
func (s *Service) refreshInvoiceStatus(ctx context.Context, invoiceID party.InvoiceID) error {
	inv, err := s.Store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	installments, err := s.Store.ListInstallmentsByInvoice(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to load installments: %w", err)
	}

	status := RecomputeInvoiceStatus(installments)
	if status == inv.PaymentStatus {
		return nil
	}

	inv.PaymentStatus = status
	inv.UpdatedAt = s.Clock.Now()
	if err := s.Store.UpdateInvoice(ctx, *inv); err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	return nil
}
