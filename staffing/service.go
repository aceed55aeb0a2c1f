/*
Package staffing manages freelancer assignments and their payment toggles.

PURPOSE:
  Books freelancers onto parties and handles pay/unpay toggles. A toggle is
  a state machine transition, not a blind upsert:

    pending -> paid:   creates a Payment record (base + bonus, dated now)
    paid -> pending:   deletes the Payment record

  Requesting the state the assignment is already in returns
  party.ErrAlreadyInState, because repeating the paid transition would
  create a duplicate payment record.

AGGREGATION:
  After every mutation to the assignment set (add, remove, toggle) the
  party's freelancer aggregate is recomputed via the reconciler, which also
  re-checks the pending->ended transition.

SEE ALSO:
  - party/aggregate.go: The aggregation this package triggers
  - party/reconciler.go: OnPaymentEvent
*/
package staffing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/party-engine/party"
)

// =============================================================================
// STAFF PROFILE - External staff record (rates live outside this engine)
// =============================================================================

// StaffProfile carries the standing rate and fixed bonus used as defaults
// when the freelancer is booked. The profile itself is owned by an external
// registry; only the snapshot taken at booking time matters here.
type StaffProfile struct {
	ID         string
	Name       string
	BaseRate   decimal.Decimal
	FixedBonus decimal.Decimal
}

// =============================================================================
// SERVICE
// =============================================================================

// Service books staff and toggles their payments.
type Service struct {
	Store      party.Store
	Reconciler *party.Reconciler
	Clock      party.Clock
}

func NewService(store party.Store, rec *party.Reconciler, clock party.Clock) *Service {
	return &Service{Store: store, Reconciler: rec, Clock: clock}
}

// AddStaff books a freelancer onto a party. The agreed base and bonus
// default to the profile's standing values; overrides replace them.
func (s *Service) AddStaff(
	ctx context.Context,
	partyID party.PartyID,
	profile StaffProfile,
	baseOverride, bonusOverride *decimal.Decimal,
	bonusReason *string,
) (*party.StaffAssignment, error) {
	if _, err := s.Store.GetParty(ctx, partyID); err != nil {
		return nil, err
	}

	base := profile.BaseRate
	if baseOverride != nil {
		base = *baseOverride
	}
	bonus := profile.FixedBonus
	if bonusOverride != nil {
		bonus = *bonusOverride
	}
	if base.Add(bonus).IsNegative() {
		return nil, fmt.Errorf("%w: payable amount is negative", party.ErrInvalidSchedule)
	}

	now := s.Clock.Now()
	assignment := party.StaffAssignment{
		ID:                 party.AssignmentID(uuid.NewString()),
		PartyID:            partyID,
		StaffID:            profile.ID,
		StaffName:          profile.Name,
		BaseAmount:         base,
		BonusAmount:        bonus,
		BonusReason:        bonusReason,
		PaymentStatus:      party.AssignmentUnpaid,
		ConfirmationStatus: party.ConfirmationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.Store.SaveAssignment(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to save assignment: %w", err)
	}

	// A new unpaid assignment can demote the aggregate (paid -> partial).
	if err := s.Reconciler.OnPaymentEvent(ctx, partyID); err != nil {
		return &assignment, fmt.Errorf("assignment saved but reconciliation failed: %w", err)
	}
	return &assignment, nil
}

// RemoveStaff unbooks a freelancer. The backing payment record, if any, is
// removed with the assignment, then the aggregate is recomputed.
func (s *Service) RemoveStaff(ctx context.Context, partyID party.PartyID, id party.AssignmentID) error {
	assignment, err := s.Store.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	if assignment.PartyID != partyID {
		return party.ErrAssignmentNotFound
	}

	if assignment.PaymentStatus == party.AssignmentPaid {
		if err := s.Store.DeletePaymentByAssignment(ctx, id); err != nil {
			return fmt.Errorf("failed to delete payment record: %w", err)
		}
	}
	if err := s.Store.DeleteAssignment(ctx, id); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	return s.Reconciler.OnPaymentEvent(ctx, partyID)
}

// SetPaymentStatus toggles an assignment between paid and unpaid. The
// transition is guarded on the current state; the paid transition creates
// the payment record and the unpaid transition deletes it.
func (s *Service) SetPaymentStatus(ctx context.Context, partyID party.PartyID, id party.AssignmentID, paid bool) error {
	assignment, err := s.Store.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	if assignment.PartyID != partyID {
		return party.ErrAssignmentNotFound
	}

	target := party.AssignmentUnpaid
	if paid {
		target = party.AssignmentPaid
	}
	if assignment.PaymentStatus == target {
		return fmt.Errorf("%w: assignment %s is already %s", party.ErrAlreadyInState, id, target)
	}

	now := s.Clock.Now()
	if paid {
		payment := party.Payment{
			ID:           party.PaymentID(uuid.NewString()),
			PartyID:      partyID,
			AssignmentID: id,
			Amount:       assignment.Payable(),
			PaidAt:       now,
		}
		if err := s.Store.SavePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment record: %w", err)
		}
	} else {
		if err := s.Store.DeletePaymentByAssignment(ctx, id); err != nil {
			return fmt.Errorf("failed to delete payment record: %w", err)
		}
	}

	assignment.PaymentStatus = target
	assignment.UpdatedAt = now
	if err := s.Store.UpdateAssignment(ctx, *assignment); err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	return s.Reconciler.OnPaymentEvent(ctx, partyID)
}

// SetConfirmation marks whether the freelancer has confirmed attendance.
func (s *Service) SetConfirmation(ctx context.Context, partyID party.PartyID, id party.AssignmentID, confirmed bool) error {
	assignment, err := s.Store.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	if assignment.PartyID != partyID {
		return party.ErrAssignmentNotFound
	}

	target := party.ConfirmationPending
	if confirmed {
		target = party.ConfirmationConfirmed
	}
	if assignment.ConfirmationStatus == target {
		return nil
	}

	assignment.ConfirmationStatus = target
	assignment.UpdatedAt = s.Clock.Now()
	if err := s.Store.UpdateAssignment(ctx, *assignment); err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return nil
}
