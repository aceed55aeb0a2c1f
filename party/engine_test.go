package party_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/party-engine/party"
	"github.com/warp/party-engine/store/memory"
)

func newTestParty(t *testing.T, store *memory.Store, status party.Status, date time.Time) *party.Party {
	t.Helper()
	p := party.Party{
		ID:                      party.PartyID("party-" + string(status) + "-" + date.Format("20060102")),
		Name:                    "test party",
		Date:                    date,
		Status:                  status,
		FreelancerPaymentStatus: party.FreelancerPaid,
		ClientPaymentStatus:     party.ClientPending,
		CreatedAt:               date,
		UpdatedAt:               date,
	}
	require.NoError(t, store.SaveParty(context.Background(), p))
	return &p
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestReconcileTimeBasedStatus_EndOfDayBoundary(t *testing.T) {
	// GIVEN a confirmed party on June 10 with no start time: it effectively
	// ends at 23:59:59 that day
	eventDate := date(2026, time.June, 10)

	tests := []struct {
		name       string
		now        time.Time
		wantStatus party.Status
	}{
		{
			name:       "one second before end of day stays confirmed",
			now:        time.Date(2026, time.June, 10, 23, 59, 58, 0, time.Local),
			wantStatus: party.StatusConfirmed,
		},
		{
			name:       "exactly at end of day advances",
			now:        time.Date(2026, time.June, 10, 23, 59, 59, 0, time.Local),
			wantStatus: party.StatusEndedPending,
		},
		{
			name:       "next day advances",
			now:        time.Date(2026, time.June, 11, 0, 0, 1, 0, time.Local),
			wantStatus: party.StatusEndedPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			engine := &party.StatusEngine{Parties: store}
			p := newTestParty(t, store, party.StatusConfirmed, eventDate)
			p.ClientPaymentStatus = party.ClientPending // invoice unpaid

			// WHEN the time-based check runs
			_, err := engine.ReconcileTimeBasedStatus(context.Background(), p, tt.now)
			require.NoError(t, err)

			// THEN the party has (or has not) advanced
			assert.Equal(t, tt.wantStatus, p.Status)
		})
	}
}

func TestReconcileTimeBasedStatus_RespectsStartTime(t *testing.T) {
	// GIVEN a confirmed party starting at 18:30
	store := memory.New()
	engine := &party.StatusEngine{Parties: store}
	p := newTestParty(t, store, party.StatusConfirmed, date(2026, time.June, 10))
	p.StartTime = &party.TimeOfDay{Hour: 18, Minute: 30}

	// WHEN checked just before and just after the start instant
	before := time.Date(2026, time.June, 10, 18, 29, 0, 0, time.Local)
	changed, err := engine.ReconcileTimeBasedStatus(context.Background(), p, before)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, party.StatusConfirmed, p.Status)

	after := time.Date(2026, time.June, 10, 18, 30, 0, 0, time.Local)
	changed, err = engine.ReconcileTimeBasedStatus(context.Background(), p, after)
	require.NoError(t, err)

	// THEN the start instant, not end of day, decides
	assert.True(t, changed)
	assert.Equal(t, party.StatusEndedPending, p.Status)
}

func TestReconcileTimeBasedStatus_PaymentGate(t *testing.T) {
	// All four payment combinations for a confirmed party whose date has
	// passed: only fully settled goes straight to ended.
	tests := []struct {
		name       string
		client     party.ClientPaymentStatus
		freelancer party.FreelancerPaymentStatus
		want       party.Status
	}{
		{"both settled", party.ClientFullyPaid, party.FreelancerPaid, party.StatusEnded},
		{"client unpaid", party.ClientPending, party.FreelancerPaid, party.StatusEndedPending},
		{"freelancers unpaid", party.ClientFullyPaid, party.FreelancerPending, party.StatusEndedPending},
		{"neither settled", party.ClientPartiallyPaid, party.FreelancerPartial, party.StatusEndedPending},
	}

	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.Local)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			engine := &party.StatusEngine{Parties: store}
			p := newTestParty(t, store, party.StatusConfirmed, date(2026, time.June, 10))
			p.ClientPaymentStatus = tt.client
			p.FreelancerPaymentStatus = tt.freelancer

			changed, err := engine.ReconcileTimeBasedStatus(context.Background(), p, now)
			require.NoError(t, err)
			assert.True(t, changed)
			assert.Equal(t, tt.want, p.Status)

			// The write is persisted, not just in-memory.
			stored, err := store.GetParty(context.Background(), p.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Status)
		})
	}
}

func TestReconcileTimeBasedStatus_Idempotent(t *testing.T) {
	// GIVEN a confirmed party past its date
	store := memory.New()
	engine := &party.StatusEngine{Parties: store}
	p := newTestParty(t, store, party.StatusConfirmed, date(2026, time.June, 10))
	now := time.Date(2026, time.June, 12, 9, 0, 0, 0, time.Local)

	// WHEN reconciled twice with the same inputs
	changed, err := engine.ReconcileTimeBasedStatus(context.Background(), p, now)
	require.NoError(t, err)
	require.True(t, changed)
	versionAfterFirst := p.Version

	changed, err = engine.ReconcileTimeBasedStatus(context.Background(), p, now)
	require.NoError(t, err)

	// THEN the second pass is a no-op: no change, no second write
	assert.False(t, changed)
	assert.Equal(t, versionAfterFirst, p.Version)
}

func TestReconcileTimeBasedStatus_OnlyTouchesConfirmed(t *testing.T) {
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.Local)

	for _, status := range []party.Status{
		party.StatusPlanning, party.StatusHappening, party.StatusEndedPending,
		party.StatusEnded, party.StatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			store := memory.New()
			engine := &party.StatusEngine{Parties: store}
			p := newTestParty(t, store, status, date(2026, time.June, 10))

			changed, err := engine.ReconcileTimeBasedStatus(context.Background(), p, now)
			require.NoError(t, err)
			assert.False(t, changed)
			assert.Equal(t, status, p.Status)
		})
	}
}

func TestReconcileTimeBasedStatus_MalformedDate(t *testing.T) {
	// GIVEN a confirmed party with a zero date
	store := memory.New()
	engine := &party.StatusEngine{Parties: store}
	p := &party.Party{ID: "broken", Status: party.StatusConfirmed}
	require.NoError(t, store.SaveParty(context.Background(), *p))

	// WHEN reconciled
	_, err := engine.ReconcileTimeBasedStatus(context.Background(), p, time.Now())

	// THEN the error identifies the malformed field and the status is untouched
	var malformed *party.MalformedPartyError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "date", malformed.Field)
	assert.Equal(t, party.StatusConfirmed, p.Status)
}

func TestReconcilePendingToEnded(t *testing.T) {
	tests := []struct {
		name       string
		client     party.ClientPaymentStatus
		freelancer party.FreelancerPaymentStatus
		wantEnded  bool
	}{
		{"settled moves to ended", party.ClientFullyPaid, party.FreelancerPaid, true},
		{"client outstanding stays", party.ClientPartiallyPaid, party.FreelancerPaid, false},
		{"freelancer outstanding stays", party.ClientFullyPaid, party.FreelancerPartial, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			engine := &party.StatusEngine{Parties: store}
			p := newTestParty(t, store, party.StatusEndedPending, date(2026, time.May, 1))
			p.ClientPaymentStatus = tt.client
			p.FreelancerPaymentStatus = tt.freelancer

			changed, err := engine.ReconcilePendingToEnded(context.Background(), p)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnded, changed)
			if tt.wantEnded {
				assert.Equal(t, party.StatusEnded, p.Status)
			} else {
				assert.Equal(t, party.StatusEndedPending, p.Status)
			}
		})
	}
}

func TestManualTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("planning to confirmed", func(t *testing.T) {
		store := memory.New()
		engine := &party.StatusEngine{Parties: store}
		p := newTestParty(t, store, party.StatusPlanning, date(2026, time.July, 4))

		require.NoError(t, engine.Transition(ctx, p, party.StatusConfirmed))
		assert.Equal(t, party.StatusConfirmed, p.Status)
	})

	t.Run("confirmed to happening is manual-only and allowed", func(t *testing.T) {
		store := memory.New()
		engine := &party.StatusEngine{Parties: store}
		p := newTestParty(t, store, party.StatusConfirmed, date(2026, time.July, 4))

		require.NoError(t, engine.Transition(ctx, p, party.StatusHappening))
		assert.Equal(t, party.StatusHappening, p.Status)
	})

	t.Run("planning cannot jump to ended", func(t *testing.T) {
		store := memory.New()
		engine := &party.StatusEngine{Parties: store}
		p := newTestParty(t, store, party.StatusPlanning, date(2026, time.July, 4))

		err := engine.Transition(ctx, p, party.StatusEnded)
		var te *party.TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, party.StatusPlanning, p.Status)
	})

	t.Run("cancel from any non-terminal state", func(t *testing.T) {
		for _, status := range []party.Status{
			party.StatusPlanning, party.StatusConfirmed,
			party.StatusHappening, party.StatusEndedPending,
		} {
			store := memory.New()
			engine := &party.StatusEngine{Parties: store}
			p := newTestParty(t, store, status, date(2026, time.July, 4))

			require.NoError(t, engine.Cancel(ctx, p), "cancel from %s", status)
			assert.Equal(t, party.StatusCancelled, p.Status)
		}
	})

	t.Run("cancel from ended is rejected", func(t *testing.T) {
		store := memory.New()
		engine := &party.StatusEngine{Parties: store}
		p := newTestParty(t, store, party.StatusEnded, date(2026, time.July, 4))

		err := engine.Cancel(ctx, p)
		var te *party.TransitionError
		require.ErrorAs(t, err, &te)
	})

	t.Run("cancel twice is a no-op", func(t *testing.T) {
		store := memory.New()
		engine := &party.StatusEngine{Parties: store}
		p := newTestParty(t, store, party.StatusCancelled, date(2026, time.July, 4))

		require.NoError(t, engine.Cancel(ctx, p))
		assert.Equal(t, party.StatusCancelled, p.Status)
	})
}
