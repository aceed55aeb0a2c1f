package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/party-engine/party"
	"github.com/warp/party-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func seedParty(t *testing.T, store *sqlite.Store, id party.PartyID, status party.Status) party.Party {
	t.Helper()
	now := time.Now()
	p := party.Party{
		ID:                      id,
		Name:                    "seed party",
		Date:                    time.Date(2026, time.July, 4, 0, 0, 0, 0, time.Local),
		Status:                  status,
		FreelancerPaymentStatus: party.FreelancerPaid,
		ClientPaymentStatus:     party.ClientPending,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	require.NoError(t, store.SaveParty(context.Background(), p))
	return p
}

func TestPartyRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	p := seedParty(t, store, "p1", party.StatusPlanning)
	p.StartTime = &party.TimeOfDay{Hour: 18, Minute: 30}
	// SaveParty stored it without a start time; write the full record.
	require.NoError(t, store.UpdateParty(ctx, &p))

	got, err := store.GetParty(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, p.Name, got.Name)
	assert.True(t, p.Date.Equal(got.Date), "date: %s vs %s", p.Date, got.Date)
	require.NotNil(t, got.StartTime)
	assert.Equal(t, 18, got.StartTime.Hour)
	assert.Equal(t, 30, got.StartTime.Minute)
	assert.Equal(t, party.StatusPlanning, got.Status)
	assert.Equal(t, int64(1), got.Version)
}

func TestGetParty_NotFound(t *testing.T) {
	store := newStore(t)
	_, err := store.GetParty(context.Background(), "missing")
	assert.ErrorIs(t, err, party.ErrPartyNotFound)
}

func TestUpdateParty_VersionCAS(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	seedParty(t, store, "p1", party.StatusConfirmed)

	first, err := store.GetParty(ctx, "p1")
	require.NoError(t, err)
	second, err := store.GetParty(ctx, "p1")
	require.NoError(t, err)

	first.Status = party.StatusEndedPending
	require.NoError(t, store.UpdateParty(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	// The second writer still holds version 0.
	second.Status = party.StatusCancelled
	err = store.UpdateParty(ctx, second)
	require.ErrorIs(t, err, party.ErrConcurrentModification)

	got, err := store.GetParty(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, party.StatusEndedPending, got.Status)
}

func TestUpdateParty_Missing(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	p := party.Party{ID: "ghost", Date: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	err := store.UpdateParty(ctx, &p)
	assert.ErrorIs(t, err, party.ErrPartyNotFound)
}

func TestListParties_Filters(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	seedParty(t, store, "a", party.StatusConfirmed)
	seedParty(t, store, "b", party.StatusEndedPending)
	seedParty(t, store, "c", party.StatusCancelled)

	got, err := store.ListParties(ctx, party.PartyFilter{
		Statuses: []party.Status{party.StatusConfirmed, party.StatusEndedPending},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, party.PartyID("a"), got[0].ID)
	assert.Equal(t, party.PartyID("b"), got[1].ID)
}

func TestDeleteParty_Cascades(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := seedParty(t, store, "p1", party.StatusConfirmed)

	now := time.Now()
	require.NoError(t, store.SaveAssignment(ctx, party.StaffAssignment{
		ID: "a1", PartyID: p.ID, StaffID: "s1", StaffName: "Lena",
		BaseAmount: d("100.00"), BonusAmount: decimal.Zero,
		PaymentStatus: party.AssignmentPaid, ConfirmationStatus: party.ConfirmationPending,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.SavePayment(ctx, party.Payment{
		ID: "pay1", PartyID: p.ID, AssignmentID: "a1", Amount: d("100.00"), PaidAt: now,
	}))
	require.NoError(t, store.SaveInvoice(ctx, party.Invoice{
		ID: "inv1", PartyID: p.ID,
		Discount: decimal.Zero, Surcharge: decimal.Zero, Total: d("100.00"),
		PaymentMode: party.ModeInstallment, InstallmentCount: 2, DownPayment: decimal.Zero,
		PaymentStatus: party.ClientPending, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.SaveInstallments(ctx, []party.Installment{
		{ID: "in1", InvoiceID: "inv1", PartyID: p.ID, SequenceNo: 1, Amount: d("50.00"),
			DueDate: time.Date(2026, time.July, 4, 0, 0, 0, 0, time.Local),
			Status:  party.InstallmentPending, CreatedAt: now, UpdatedAt: now},
	}))

	// WHEN the party is deleted
	require.NoError(t, store.DeleteParty(ctx, p.ID))

	// THEN everything hanging off it is gone
	_, err := store.GetAssignment(ctx, "a1")
	assert.ErrorIs(t, err, party.ErrAssignmentNotFound)

	payments, err := store.ListPaymentsByParty(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	inv, err := store.GetInvoiceByParty(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, inv)

	installments, err := store.ListInstallmentsByParty(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, installments)
}

func TestAssignmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := seedParty(t, store, "p1", party.StatusConfirmed)

	reason := "overtime"
	now := time.Now()
	a := party.StaffAssignment{
		ID: "a1", PartyID: p.ID, StaffID: "s1", StaffName: "Lena",
		BaseAmount: d("120.50"), BonusAmount: d("15.25"), BonusReason: &reason,
		PaymentStatus: party.AssignmentUnpaid, ConfirmationStatus: party.ConfirmationPending,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.SaveAssignment(ctx, a))

	got, err := store.GetAssignment(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, got.BaseAmount.Equal(d("120.50")))
	assert.True(t, got.BonusAmount.Equal(d("15.25")))
	require.NotNil(t, got.BonusReason)
	assert.Equal(t, "overtime", *got.BonusReason)
	assert.True(t, got.Payable().Equal(d("135.75")))

	got.PaymentStatus = party.AssignmentPaid
	require.NoError(t, store.UpdateAssignment(ctx, *got))

	list, err := store.ListAssignmentsByParty(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, party.AssignmentPaid, list[0].PaymentStatus)
}

func TestPaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := seedParty(t, store, "p1", party.StatusConfirmed)

	require.NoError(t, store.SavePayment(ctx, party.Payment{
		ID: "pay1", PartyID: p.ID, AssignmentID: "a1", Amount: d("135.75"), PaidAt: time.Now(),
	}))

	payments, err := store.ListPaymentsByParty(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(d("135.75")))

	require.NoError(t, store.DeletePaymentByAssignment(ctx, "a1"))
	payments, err = store.ListPaymentsByParty(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestInvoiceRoundTrip_LineItemsSurviveJSON(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := seedParty(t, store, "p1", party.StatusConfirmed)

	now := time.Now()
	inv := party.Invoice{
		ID: "inv1", PartyID: p.ID,
		LineItems: []party.LineItem{
			{Description: "catering", Quantity: d("40"), UnitPrice: d("18.50")},
			{Description: "venue", Quantity: d("1"), UnitPrice: d("300.00")},
		},
		Discount: d("40.00"), Surcharge: d("25.00"), Total: d("1025.00"),
		PaymentMode: party.ModeLumpSum, DownPayment: decimal.Zero,
		PaymentStatus: party.ClientPending, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.SaveInvoice(ctx, inv))

	got, err := store.GetInvoiceByParty(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, "catering", got.LineItems[0].Description)
	assert.True(t, got.LineItems[0].Subtotal().Equal(d("740.00")))
	assert.True(t, got.Total.Equal(d("1025.00")))

	got.PaymentStatus = party.ClientFullyPaid
	got.UpdatedAt = time.Now()
	require.NoError(t, store.UpdateInvoice(ctx, *got))

	again, err := store.GetInvoice(ctx, "inv1")
	require.NoError(t, err)
	assert.Equal(t, party.ClientFullyPaid, again.PaymentStatus)
}

func TestGetInvoiceByParty_AbsentIsNotAnError(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := seedParty(t, store, "p1", party.StatusConfirmed)

	inv, err := store.GetInvoiceByParty(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestInstallments_BatchSaveAndOverdueQuery(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := seedParty(t, store, "p1", party.StatusConfirmed)

	now := time.Now()
	require.NoError(t, store.SaveInvoice(ctx, party.Invoice{
		ID: "inv1", PartyID: p.ID,
		Discount: decimal.Zero, Surcharge: decimal.Zero, Total: d("600.00"),
		PaymentMode: party.ModeInstallment, InstallmentCount: 3, DownPayment: decimal.Zero,
		PaymentStatus: party.ClientPending, CreatedAt: now, UpdatedAt: now,
	}))

	mk := func(id string, seq int, due time.Time, status party.InstallmentStatus) party.Installment {
		return party.Installment{
			ID: party.InstallmentID(id), InvoiceID: "inv1", PartyID: p.ID,
			SequenceNo: seq, Amount: d("200.00"), DueDate: due, Status: status,
			CreatedAt: now, UpdatedAt: now,
		}
	}
	past := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.Local)
	future := time.Date(2030, time.January, 10, 0, 0, 0, 0, time.Local)

	require.NoError(t, store.SaveInstallments(ctx, []party.Installment{
		mk("in1", 1, past, party.InstallmentPending),
		mk("in2", 2, past, party.InstallmentPaid),
		mk("in3", 3, future, party.InstallmentPending),
	}))

	list, err := store.ListInstallmentsByInvoice(ctx, "inv1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].SequenceNo)

	// Only pending rows with a past due date are overdue.
	asOf := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.Local)
	overdue, err := store.ListOverdueInstallments(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, party.InstallmentID("in1"), overdue[0].ID)

	// Paying it clears it from the overdue view.
	in1 := overdue[0]
	paidAt := time.Now()
	in1.Status = party.InstallmentPaid
	in1.PaymentDate = &paidAt
	in1.UpdatedAt = paidAt
	require.NoError(t, store.UpdateInstallment(ctx, in1))

	overdue, err = store.ListOverdueInstallments(ctx, asOf)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	got, err := store.GetInstallment(ctx, "in1")
	require.NoError(t, err)
	assert.Equal(t, party.InstallmentPaid, got.Status)
	require.NotNil(t, got.PaymentDate)
}
