package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/party-engine/api"
	"github.com/warp/party-engine/party"
	"github.com/warp/party-engine/store/memory"
)

func TestSchedulerSweepsOnTick(t *testing.T) {
	// GIVEN a stale confirmed party and a fast-ticking scheduler
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2026, time.June, 11, 9, 0, 0, 0, time.Local)
	rec := party.NewReconciler(store, party.FixedClock{T: now}, zerolog.Nop())

	require.NoError(t, store.SaveParty(ctx, party.Party{
		ID: "stale", Name: "past party",
		Date:                    time.Date(2026, time.June, 10, 0, 0, 0, 0, time.Local),
		Status:                  party.StatusConfirmed,
		FreelancerPaymentStatus: party.FreelancerPaid,
		ClientPaymentStatus:     party.ClientPending,
	}))

	sched := api.NewScheduler(rec, 10*time.Millisecond, zerolog.Nop())
	sched.Start(ctx)
	defer sched.Stop()

	// WHEN at least one tick has fired
	require.Eventually(t, func() bool {
		p, err := store.GetParty(ctx, "stale")
		return err == nil && p.Status == party.StatusEndedPending
	}, time.Second, 5*time.Millisecond)

	assert.True(t, sched.Running())
}

func TestSchedulerStartStop(t *testing.T) {
	store := memory.New()
	rec := party.NewReconciler(store, party.SystemClock{}, zerolog.Nop())
	sched := api.NewScheduler(rec, time.Hour, zerolog.Nop())

	ctx := context.Background()
	sched.Start(ctx)
	assert.True(t, sched.Running())
	assert.False(t, sched.NextRun().IsZero())

	// Start on a running scheduler is a no-op.
	sched.Start(ctx)

	sched.Stop()
	assert.False(t, sched.Running())

	// Stop twice is safe.
	sched.Stop()
}

func TestSchedulerRunNow(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2026, time.June, 11, 9, 0, 0, 0, time.Local)
	rec := party.NewReconciler(store, party.FixedClock{T: now}, zerolog.Nop())

	require.NoError(t, store.SaveParty(ctx, party.Party{
		ID: "stale", Name: "past party",
		Date:                    time.Date(2026, time.June, 10, 0, 0, 0, 0, time.Local),
		Status:                  party.StatusConfirmed,
		FreelancerPaymentStatus: party.FreelancerPaid,
		ClientPaymentStatus:     party.ClientPending,
	}))

	// RunNow sweeps without the loop running at all.
	sched := api.NewScheduler(rec, time.Hour, zerolog.Nop())
	result, err := sched.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
}
