/*
installment.go - Installment schedule generation

PURPOSE:
  Amortizes an invoice's financed amount (total minus down payment) into N
  equal monthly installments anchored on the event date.

ROUNDING POLICY:
  Each installment is the financed amount divided by the count, rounded
  DOWN to 2 decimal places. The final installment absorbs the remainder so
  the series sums exactly to the financed amount. Rounding down keeps the
  remainder non-negative: half-up rounding could overshoot across many
  installments and push the final one below zero. Example: 1000.00 over 3
  yields 333.33, 333.33, 333.34.

DUE DATES:
  Installment i (1-indexed) is due on the event date plus (i-1) calendar
  months. Calendar-month arithmetic, not fixed 30-day increments: an event
  on Jan 31 yields due dates Jan 31, Mar 3 (Go's AddDate normalization),
  Mar 31, ... consistent with time.AddDate semantics.

SEE ALSO:
  - invoice.go: Calls this at invoice-creation time
*/
package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/party-engine/party"
)

// GenerateInstallments produces the payment schedule for an installment-mode
// invoice. count must be >= 1; a count of 1 (or lump-sum mode upstream)
// produces no installments, because single payments use the invoice's own
// payment status instead.
func GenerateInstallments(
	invoiceID party.InvoiceID,
	partyID party.PartyID,
	invoiceTotal, downPayment decimal.Decimal,
	count int,
	eventDate time.Time,
	now time.Time,
) ([]party.Installment, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be >= 1, got %d", party.ErrInvalidSchedule, count)
	}
	if count == 1 {
		return nil, nil
	}
	if eventDate.IsZero() {
		return nil, fmt.Errorf("%w: event date is required", party.ErrInvalidSchedule)
	}

	toFinance := invoiceTotal.Sub(downPayment)
	if toFinance.IsNegative() {
		return nil, fmt.Errorf("%w: down payment %s exceeds total %s",
			party.ErrInvalidSchedule, downPayment, invoiceTotal)
	}

	per := toFinance.Div(decimal.NewFromInt(int64(count))).RoundDown(2)

	installments := make([]party.Installment, count)
	for i := 0; i < count; i++ {
		amount := per
		if i == count-1 {
			// Last installment absorbs the rounding remainder so the series
			// sums exactly to the financed amount. per is rounded down, so
			// the remainder is never negative.
			amount = toFinance.Sub(per.Mul(decimal.NewFromInt(int64(count - 1))))
		}
		installments[i] = party.Installment{
			ID:         party.InstallmentID(uuid.NewString()),
			InvoiceID:  invoiceID,
			PartyID:    partyID,
			SequenceNo: i + 1,
			Amount:     amount,
			DueDate:    eventDate.AddDate(0, i, 0),
			Status:     party.InstallmentPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return installments, nil
}

// RecomputeInvoiceStatus derives an installment-mode invoice's payment
// status from its schedule: fully paid when every installment is paid,
// pending when none are, partially paid otherwise. An empty schedule reads
// as pending (the schedule failed to generate; nothing has been paid).
func RecomputeInvoiceStatus(installments []party.Installment) party.ClientPaymentStatus {
	if len(installments) == 0 {
		return party.ClientPending
	}

	paid := 0
	for _, in := range installments {
		if in.Status == party.InstallmentPaid {
			paid++
		}
	}

	switch paid {
	case len(installments):
		return party.ClientFullyPaid
	case 0:
		return party.ClientPending
	default:
		return party.ClientPartiallyPaid
	}
}
