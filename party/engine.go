/*
engine.go - Party status state machine

PURPOSE:
  Governs the forward movement of a party through its lifecycle. Two
  reconciliation operations advance status automatically:

  1. Time-based (confirmed parties): once the event's end instant has
     passed, the party becomes ended when both payment sides are settled,
     otherwise ended_pending.
  2. Payment-based (ended_pending parties): re-checked after every payment
     event, so the party becomes ended the moment the last outstanding
     payment lands.

STATE DIAGRAM:

    planning ──▶ confirmed ──▶ (happening) ──▶ ended_pending ──▶ ended
        │            │              │                │
        └────────────┴──────────────┴────────────────┴──▶ cancelled

  The engine only performs the two automatic transitions. Manual moves
  (confirm, happening, cancel) are validated against the transition table
  in types.go.

IDEMPOTENCE:
  Both reconcile operations are idempotent: re-invoking with the same
  inputs yields the same final status and performs no second write.

FAILURE SEMANTICS:
  If the store update fails, the in-memory party is restored to its prior
  status so a retry starts from clean state. Batch callers collect the
  failure and continue with other parties.

SEE ALSO:
  - reconciler.go: Refreshes payment projections before calling the engine
  - types.go: Transition table for manual moves
*/
package party

import (
	"context"
	"fmt"
	"time"
)

// StatusEngine applies lifecycle transitions and persists them.
type StatusEngine struct {
	Parties PartyStore
}

// paymentsSettled is the gate for reaching ended: the client has fully paid
// the invoice AND every freelancer has been paid.
func paymentsSettled(p *Party) bool {
	return p.ClientPaymentStatus == ClientFullyPaid &&
		p.FreelancerPaymentStatus == FreelancerPaid
}

// ReconcileTimeBasedStatus advances a confirmed party whose end instant has
// passed. Parties in any other status are untouched. Returns true when the
// status changed and was persisted.
//
// The party's ClientPaymentStatus and FreelancerPaymentStatus must be fresh;
// the reconciler refreshes both before calling.
func (e *StatusEngine) ReconcileTimeBasedStatus(ctx context.Context, p *Party, now time.Time) (bool, error) {
	if p.Status != StatusConfirmed {
		return false, nil
	}

	end, err := p.EndInstant()
	if err != nil {
		return false, err
	}
	if now.Before(end) {
		return false, nil
	}

	next := StatusEndedPending
	if paymentsSettled(p) {
		next = StatusEnded
	}

	return e.setStatus(ctx, p, next)
}

// ReconcilePendingToEnded moves an ended_pending party to ended once both
// payment sides are settled. Payment-driven, no time dependency.
func (e *StatusEngine) ReconcilePendingToEnded(ctx context.Context, p *Party) (bool, error) {
	if p.Status != StatusEndedPending {
		return false, nil
	}
	if !paymentsSettled(p) {
		return false, nil
	}
	return e.setStatus(ctx, p, StatusEnded)
}

// Transition performs a manual status change (confirm, happening, cancel...)
// validated against the transition table.
func (e *StatusEngine) Transition(ctx context.Context, p *Party, target Status) error {
	if p.Status == target {
		return nil
	}
	if !p.Status.CanTransition(target) {
		return &TransitionError{PartyID: p.ID, From: p.Status, To: target}
	}
	if _, err := e.setStatus(ctx, p, target); err != nil {
		return err
	}
	return nil
}

// Cancel moves the party to cancelled from any non-terminal state.
func (e *StatusEngine) Cancel(ctx context.Context, p *Party) error {
	if p.Status == StatusCancelled {
		return nil
	}
	if p.Status.Terminal() {
		return &TransitionError{PartyID: p.ID, From: p.Status, To: StatusCancelled}
	}
	if _, err := e.setStatus(ctx, p, StatusCancelled); err != nil {
		return err
	}
	return nil
}

// setStatus writes the new status through the store. On failure the
// in-memory party keeps its previous status.
func (e *StatusEngine) setStatus(ctx context.Context, p *Party, next Status) (bool, error) {
	prev := p.Status
	p.Status = next
	if err := e.Parties.UpdateParty(ctx, p); err != nil {
		p.Status = prev
		return false, fmt.Errorf("failed to persist status %s for party %s: %w", next, p.ID, err)
	}
	return true, nil
}
