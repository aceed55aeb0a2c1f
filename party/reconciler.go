/*
reconciler.go - Reconciliation orchestrator

PURPOSE:
  Entry point invoked on every payment event and on every list read.
  Sequences the payment-aggregate recomputation and the status engine so
  the party record stays consistent with its assignments and its invoice.

ORDERING:
  Within one party, the freelancer aggregate is recomputed and persisted
  BEFORE the pending->ended check runs, because that check reads the
  just-written aggregate. Across parties there is no ordering requirement;
  each reconciliation is self-contained.

ERROR ISOLATION:
  A failed store write for one party never aborts the batch. Failures are
  logged and collected in the SweepResult; processing continues. Parties
  with malformed scheduling data are skipped, not crashed on.

CONCURRENCY:
  Party updates are CAS on the version counter. On conflict the party is
  re-read and the operation retried once; a second conflict is recorded as
  a failure and left for the next sweep.

SEE ALSO:
  - engine.go: The two automatic transitions this orchestrates
  - api/scheduler.go: Ticker that drives AutoUpdateStatuses
*/
package party

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Reconciler keeps party records consistent with payment facts and time.
type Reconciler struct {
	Store  Store
	Engine *StatusEngine
	Clock  Clock
	Log    zerolog.Logger
}

// NewReconciler wires a reconciler over a store.
func NewReconciler(store Store, clock Clock, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		Store:  store,
		Engine: &StatusEngine{Parties: store},
		Clock:  clock,
		Log:    log,
	}
}

// =============================================================================
// SWEEP RESULT - Outcome of a batch reconciliation pass
// =============================================================================

type SweepFailure struct {
	PartyID PartyID
	Err     error
}

type SweepResult struct {
	Checked  int
	Updated  int
	Skipped  int
	Failures []SweepFailure
}

func (r *SweepResult) fail(id PartyID, err error) {
	r.Failures = append(r.Failures, SweepFailure{PartyID: id, Err: err})
}

// =============================================================================
// PROJECTION REFRESH
// =============================================================================

// RefreshFreelancerAggregate recomputes the aggregate from the full
// assignment set and persists it on the party when it changed.
func (r *Reconciler) RefreshFreelancerAggregate(ctx context.Context, p *Party) error {
	assignments, err := r.Store.ListAssignmentsByParty(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to load assignments for party %s: %w", p.ID, err)
	}

	agg := ComputeFreelancerPaymentStatus(assignments)
	if agg == p.FreelancerPaymentStatus {
		return nil
	}

	prev := p.FreelancerPaymentStatus
	p.FreelancerPaymentStatus = agg
	if err := r.Store.UpdateParty(ctx, p); err != nil {
		p.FreelancerPaymentStatus = prev
		return fmt.Errorf("failed to persist freelancer aggregate for party %s: %w", p.ID, err)
	}
	return nil
}

// RefreshClientStatus mirrors the invoice's payment status onto the party.
// A party without an invoice reads as client-pending.
func (r *Reconciler) RefreshClientStatus(ctx context.Context, p *Party) error {
	inv, err := r.Store.GetInvoiceByParty(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to load invoice for party %s: %w", p.ID, err)
	}

	status := ClientPending
	if inv != nil {
		status = inv.PaymentStatus
	}
	if status == p.ClientPaymentStatus {
		return nil
	}

	prev := p.ClientPaymentStatus
	p.ClientPaymentStatus = status
	if err := r.Store.UpdateParty(ctx, p); err != nil {
		p.ClientPaymentStatus = prev
		return fmt.Errorf("failed to persist client status for party %s: %w", p.ID, err)
	}
	return nil
}

// =============================================================================
// EVENT-TRIGGERED RECONCILIATION
// =============================================================================

// OnPaymentEvent runs after any payment mutation touching the party: a staff
// payment toggle, an installment marked paid, or a lump-sum invoice marked
// paid. It refreshes both payment projections, then re-checks the
// pending->ended transition. The time-based check is NOT run here; that is
// driven by reads and by the scheduler.
func (r *Reconciler) OnPaymentEvent(ctx context.Context, partyID PartyID) error {
	return r.withRetry(ctx, partyID, func(p *Party) error {
		if err := r.RefreshFreelancerAggregate(ctx, p); err != nil {
			return err
		}
		if err := r.RefreshClientStatus(ctx, p); err != nil {
			return err
		}
		if _, err := r.Engine.ReconcilePendingToEnded(ctx, p); err != nil {
			return err
		}
		return nil
	})
}

// withRetry loads the party and applies fn, retrying once from a fresh read
// when a CAS conflict is detected.
func (r *Reconciler) withRetry(ctx context.Context, partyID PartyID, fn func(*Party) error) error {
	for attempt := 0; ; attempt++ {
		p, err := r.Store.GetParty(ctx, partyID)
		if err != nil {
			return err
		}
		err = fn(p)
		if err == nil {
			return nil
		}
		if attempt == 0 && errors.Is(err, ErrConcurrentModification) {
			r.Log.Debug().Str("party", string(partyID)).Msg("version conflict, retrying reconciliation")
			continue
		}
		return err
	}
}

// =============================================================================
// READ-TRIGGERED RECONCILIATION
// =============================================================================

// OnListView opportunistically advances stale statuses on a read of the
// party collection: confirmed parties get the time-based check, ended_pending
// parties get the payment check. Returns the (possibly updated) parties; the
// caller renders these, so a failed update still renders the stale status.
func (r *Reconciler) OnListView(ctx context.Context, parties []Party, now time.Time) ([]Party, SweepResult) {
	var result SweepResult

	for i := range parties {
		p := &parties[i]
		switch p.Status {
		case StatusConfirmed, StatusEndedPending:
			result.Checked++
			updated, err := r.reconcileOneWithRetry(ctx, p, now)
			if err != nil {
				var malformed *MalformedPartyError
				if errors.As(err, &malformed) {
					result.Skipped++
					r.Log.Warn().Str("party", string(p.ID)).Str("field", malformed.Field).
						Msg("skipping party with malformed schedule data")
					continue
				}
				result.fail(p.ID, err)
				r.Log.Error().Err(err).Str("party", string(p.ID)).Msg("reconciliation failed")
				continue
			}
			if updated {
				result.Updated++
			}
		}
	}

	return parties, result
}

// reconcileOneWithRetry applies reconcileOne, retrying once from a fresh
// read on a CAS conflict. Same single-retry policy as withRetry; a second
// conflict is left for the next sweep.
func (r *Reconciler) reconcileOneWithRetry(ctx context.Context, p *Party, now time.Time) (bool, error) {
	updated, err := r.reconcileOne(ctx, p, now)
	if err == nil || !errors.Is(err, ErrConcurrentModification) {
		return updated, err
	}

	r.Log.Debug().Str("party", string(p.ID)).Msg("version conflict, retrying reconciliation")
	fresh, gerr := r.Store.GetParty(ctx, p.ID)
	if gerr != nil {
		return false, gerr
	}
	*p = *fresh
	return r.reconcileOne(ctx, p, now)
}

// reconcileOne refreshes projections and applies whichever automatic
// transition matches the party's current status.
func (r *Reconciler) reconcileOne(ctx context.Context, p *Party, now time.Time) (bool, error) {
	if err := r.RefreshFreelancerAggregate(ctx, p); err != nil {
		return false, err
	}
	if err := r.RefreshClientStatus(ctx, p); err != nil {
		return false, err
	}

	switch p.Status {
	case StatusConfirmed:
		return r.Engine.ReconcileTimeBasedStatus(ctx, p, now)
	case StatusEndedPending:
		return r.Engine.ReconcilePendingToEnded(ctx, p)
	default:
		return false, nil
	}
}

// =============================================================================
// FULL SWEEPS - Driven by the scheduler and the admin CLI
// =============================================================================

// AutoUpdateStatuses sweeps every confirmed and ended_pending party and
// applies both automatic transitions. Per-party failures are collected in
// the result, never propagated.
func (r *Reconciler) AutoUpdateStatuses(ctx context.Context) (SweepResult, error) {
	parties, err := r.Store.ListParties(ctx, PartyFilter{
		Statuses: []Status{StatusConfirmed, StatusEndedPending},
	})
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list parties for status sweep: %w", err)
	}

	_, result := r.OnListView(ctx, parties, r.Clock.Now())

	if result.Updated > 0 || len(result.Failures) > 0 {
		r.Log.Info().
			Int("checked", result.Checked).
			Int("updated", result.Updated).
			Int("skipped", result.Skipped).
			Int("failed", len(result.Failures)).
			Msg("status sweep completed")
	}
	return result, nil
}

// CheckAndUpdateCompletedPayments sweeps only ended_pending parties and
// applies the payment-driven transition. Returns the count moved to ended.
func (r *Reconciler) CheckAndUpdateCompletedPayments(ctx context.Context) (int, error) {
	parties, err := r.Store.ListParties(ctx, PartyFilter{
		Statuses: []Status{StatusEndedPending},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list pending parties: %w", err)
	}

	updated := 0
	for i := range parties {
		p := &parties[i]
		if err := r.RefreshFreelancerAggregate(ctx, p); err != nil {
			r.Log.Error().Err(err).Str("party", string(p.ID)).Msg("aggregate refresh failed")
			continue
		}
		if err := r.RefreshClientStatus(ctx, p); err != nil {
			r.Log.Error().Err(err).Str("party", string(p.ID)).Msg("client status refresh failed")
			continue
		}
		changed, err := r.Engine.ReconcilePendingToEnded(ctx, p)
		if err != nil {
			r.Log.Error().Err(err).Str("party", string(p.ID)).Msg("pending->ended check failed")
			continue
		}
		if changed {
			updated++
		}
	}
	return updated, nil
}
