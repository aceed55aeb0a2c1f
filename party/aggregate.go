/*
aggregate.go - Freelancer payment aggregation

PURPOSE:
  Derives a party's aggregate freelancer-payment status from its staff
  assignment set. This is the single place the projection is computed;
  every mutation to the assignment set re-runs it and persists the result
  on the party, rather than patching the cached value from call sites.

AGGREGATION RULE:
  paid    - every assignment is paid, or there are no assignments
  pending - no assignment is paid
  partial - at least one paid and at least one unpaid

ZERO-STAFF EDGE CASE:
  An empty assignment set aggregates to "paid": nothing is owed, so the
  obligation is fully satisfied. This is deliberate and load-bearing - a
  staffless party must not be held in ended_pending forever waiting for
  payments that can never happen.
*/
package party

import "github.com/shopspring/decimal"

// ComputeFreelancerPaymentStatus derives the aggregate payment status from
// the full assignment set of one party. Pure function of its input.
func ComputeFreelancerPaymentStatus(assignments []StaffAssignment) FreelancerPaymentStatus {
	if len(assignments) == 0 {
		return FreelancerPaid
	}

	paid := 0
	for _, a := range assignments {
		if a.PaymentStatus == AssignmentPaid {
			paid++
		}
	}

	switch paid {
	case len(assignments):
		return FreelancerPaid
	case 0:
		return FreelancerPending
	default:
		return FreelancerPartial
	}
}

// FreelancerTotals summarizes what a party owes its staff.
type FreelancerTotals struct {
	TotalPayable decimal.Decimal
	TotalPaid    decimal.Decimal
	Outstanding  decimal.Decimal
}

// ComputeFreelancerTotals sums payable and paid amounts over the assignment
// set. Like the status aggregation, this is a pure projection.
func ComputeFreelancerTotals(assignments []StaffAssignment) FreelancerTotals {
	totals := FreelancerTotals{
		TotalPayable: decimal.Zero,
		TotalPaid:    decimal.Zero,
	}
	for _, a := range assignments {
		payable := a.Payable()
		totals.TotalPayable = totals.TotalPayable.Add(payable)
		if a.PaymentStatus == AssignmentPaid {
			totals.TotalPaid = totals.TotalPaid.Add(payable)
		}
	}
	totals.Outstanding = totals.TotalPayable.Sub(totals.TotalPaid)
	return totals
}
