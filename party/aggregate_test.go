package party_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/party-engine/party"
)

func assignment(paid bool, base, bonus int64) party.StaffAssignment {
	status := party.AssignmentUnpaid
	if paid {
		status = party.AssignmentPaid
	}
	return party.StaffAssignment{
		BaseAmount:    decimal.NewFromInt(base),
		BonusAmount:   decimal.NewFromInt(bonus),
		PaymentStatus: status,
	}
}

func TestComputeFreelancerPaymentStatus(t *testing.T) {
	tests := []struct {
		name        string
		assignments []party.StaffAssignment
		want        party.FreelancerPaymentStatus
	}{
		{
			// Nothing owed means the obligation is satisfied, not pending.
			name:        "empty set aggregates to paid",
			assignments: nil,
			want:        party.FreelancerPaid,
		},
		{
			name:        "all paid",
			assignments: []party.StaffAssignment{assignment(true, 100, 0), assignment(true, 150, 20)},
			want:        party.FreelancerPaid,
		},
		{
			name:        "none paid",
			assignments: []party.StaffAssignment{assignment(false, 100, 0), assignment(false, 150, 20)},
			want:        party.FreelancerPending,
		},
		{
			name:        "mixed is partial",
			assignments: []party.StaffAssignment{assignment(true, 100, 0), assignment(false, 150, 20)},
			want:        party.FreelancerPartial,
		},
		{
			name:        "single unpaid",
			assignments: []party.StaffAssignment{assignment(false, 80, 0)},
			want:        party.FreelancerPending,
		},
		{
			name:        "single paid",
			assignments: []party.StaffAssignment{assignment(true, 80, 0)},
			want:        party.FreelancerPaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, party.ComputeFreelancerPaymentStatus(tt.assignments))
		})
	}
}

func TestComputeFreelancerPaymentStatusIsPure(t *testing.T) {
	// GIVEN a fixed assignment set
	set := []party.StaffAssignment{assignment(true, 100, 10), assignment(false, 200, 0)}

	// WHEN the aggregate is computed repeatedly
	first := party.ComputeFreelancerPaymentStatus(set)
	second := party.ComputeFreelancerPaymentStatus(set)

	// THEN the result is stable and the input is untouched
	assert.Equal(t, first, second)
	assert.Equal(t, party.AssignmentPaid, set[0].PaymentStatus)
	assert.Equal(t, party.AssignmentUnpaid, set[1].PaymentStatus)
}

func TestComputeFreelancerTotals(t *testing.T) {
	// GIVEN two assignments, one paid
	set := []party.StaffAssignment{
		assignment(true, 100, 25),  // payable 125, paid
		assignment(false, 200, 0),  // payable 200, outstanding
	}

	// WHEN totals are computed
	totals := party.ComputeFreelancerTotals(set)

	// THEN payable, paid, and outstanding reconcile
	assert.True(t, totals.TotalPayable.Equal(decimal.NewFromInt(325)), "payable: %s", totals.TotalPayable)
	assert.True(t, totals.TotalPaid.Equal(decimal.NewFromInt(125)), "paid: %s", totals.TotalPaid)
	assert.True(t, totals.Outstanding.Equal(decimal.NewFromInt(200)), "outstanding: %s", totals.Outstanding)
}
