// Package memory provides an in-memory party.Store for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/party-engine/party"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu           sync.RWMutex
	parties      map[party.PartyID]party.Party
	assignments  map[party.AssignmentID]party.StaffAssignment
	payments     map[party.PaymentID]party.Payment
	invoices     map[party.InvoiceID]party.Invoice
	installments map[party.InstallmentID]party.Installment

	// FailPartyUpdates forces UpdateParty to fail, for batch error-isolation
	// tests.
	FailPartyUpdates bool

	// ConflictPartyUpdates fails the next N UpdateParty calls with
	// ErrConcurrentModification, for CAS-retry tests.
	ConflictPartyUpdates int
}

var _ party.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		parties:      make(map[party.PartyID]party.Party),
		assignments:  make(map[party.AssignmentID]party.StaffAssignment),
		payments:     make(map[party.PaymentID]party.Payment),
		invoices:     make(map[party.InvoiceID]party.Invoice),
		installments: make(map[party.InstallmentID]party.Installment),
	}
}

// =============================================================================
// PARTY STORE
// =============================================================================

func (s *Store) GetParty(_ context.Context, id party.PartyID) (*party.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.parties[id]
	if !ok {
		return nil, party.ErrPartyNotFound
	}
	return &p, nil
}

func (s *Store) ListParties(_ context.Context, filter party.PartyFilter) ([]party.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []party.Party
	for _, p := range s.parties {
		if !matchesFilter(p, filter) {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID < result[j].ID
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func matchesFilter(p party.Party, filter party.PartyFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, st := range filter.Statuses {
			if p.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.FromDate != nil && p.Date.Before(*filter.FromDate) {
		return false
	}
	if filter.ToDate != nil && p.Date.After(*filter.ToDate) {
		return false
	}
	return true
}

func (s *Store) SaveParty(_ context.Context, p party.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties[p.ID] = p
	return nil
}

func (s *Store) UpdateParty(_ context.Context, p *party.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPartyUpdates {
		return errForcedFailure
	}
	if s.ConflictPartyUpdates > 0 {
		s.ConflictPartyUpdates--
		return party.ErrConcurrentModification
	}

	current, ok := s.parties[p.ID]
	if !ok {
		return party.ErrPartyNotFound
	}
	if current.Version != p.Version {
		return party.ErrConcurrentModification
	}

	p.Version++
	p.UpdatedAt = time.Now()
	s.parties[p.ID] = *p
	return nil
}

func (s *Store) DeleteParty(_ context.Context, id party.PartyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.parties[id]; !ok {
		return party.ErrPartyNotFound
	}
	delete(s.parties, id)

	// Cascade to dependents.
	for aid, a := range s.assignments {
		if a.PartyID == id {
			delete(s.assignments, aid)
		}
	}
	for pid, p := range s.payments {
		if p.PartyID == id {
			delete(s.payments, pid)
		}
	}
	for iid, inv := range s.invoices {
		if inv.PartyID == id {
			delete(s.invoices, iid)
		}
	}
	for iid, in := range s.installments {
		if in.PartyID == id {
			delete(s.installments, iid)
		}
	}
	return nil
}

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

func (s *Store) GetAssignment(_ context.Context, id party.AssignmentID) (*party.StaffAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[id]
	if !ok {
		return nil, party.ErrAssignmentNotFound
	}
	return &a, nil
}

func (s *Store) ListAssignmentsByParty(_ context.Context, partyID party.PartyID) ([]party.StaffAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []party.StaffAssignment
	for _, a := range s.assignments {
		if a.PartyID == partyID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) SaveAssignment(_ context.Context, a party.StaffAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID] = a
	return nil
}

func (s *Store) UpdateAssignment(_ context.Context, a party.StaffAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignments[a.ID]; !ok {
		return party.ErrAssignmentNotFound
	}
	s.assignments[a.ID] = a
	return nil
}

func (s *Store) DeleteAssignment(_ context.Context, id party.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignments[id]; !ok {
		return party.ErrAssignmentNotFound
	}
	delete(s.assignments, id)
	return nil
}

// =============================================================================
// PAYMENT STORE
// =============================================================================

func (s *Store) SavePayment(_ context.Context, p party.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
	return nil
}

func (s *Store) ListPaymentsByParty(_ context.Context, partyID party.PartyID) ([]party.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []party.Payment
	for _, p := range s.payments {
		if p.PartyID == partyID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PaidAt.Before(result[j].PaidAt) })
	return result, nil
}

func (s *Store) DeletePaymentByAssignment(_ context.Context, assignmentID party.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.payments {
		if p.AssignmentID == assignmentID {
			delete(s.payments, id)
		}
	}
	return nil
}

// =============================================================================
// INVOICE STORE
// =============================================================================

func (s *Store) GetInvoice(_ context.Context, id party.InvoiceID) (*party.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, party.ErrInvoiceNotFound
	}
	return &inv, nil
}

func (s *Store) GetInvoiceByParty(_ context.Context, partyID party.PartyID) (*party.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inv := range s.invoices {
		if inv.PartyID == partyID {
			result := inv
			return &result, nil
		}
	}
	return nil, nil
}

func (s *Store) SaveInvoice(_ context.Context, inv party.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = inv
	return nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv party.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[inv.ID]; !ok {
		return party.ErrInvoiceNotFound
	}
	s.invoices[inv.ID] = inv
	return nil
}

// =============================================================================
// INSTALLMENT STORE
// =============================================================================

func (s *Store) GetInstallment(_ context.Context, id party.InstallmentID) (*party.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in, ok := s.installments[id]
	if !ok {
		return nil, party.ErrInstallmentNotFound
	}
	return &in, nil
}

func (s *Store) ListInstallmentsByInvoice(_ context.Context, invoiceID party.InvoiceID) ([]party.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []party.Installment
	for _, in := range s.installments {
		if in.InvoiceID == invoiceID {
			result = append(result, in)
		}
	}
	sortBySequence(result)
	return result, nil
}

func (s *Store) ListInstallmentsByParty(_ context.Context, partyID party.PartyID) ([]party.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []party.Installment
	for _, in := range s.installments {
		if in.PartyID == partyID {
			result = append(result, in)
		}
	}
	sortBySequence(result)
	return result, nil
}

func (s *Store) ListOverdueInstallments(_ context.Context, now time.Time) ([]party.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []party.Installment
	for _, in := range s.installments {
		if in.EffectiveStatus(now) == party.InstallmentOverdue {
			result = append(result, in)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DueDate.Before(result[j].DueDate) })
	return result, nil
}

func (s *Store) SaveInstallments(_ context.Context, ins []party.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, in := range ins {
		s.installments[in.ID] = in
	}
	return nil
}

func (s *Store) UpdateInstallment(_ context.Context, in party.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.installments[in.ID]; !ok {
		return party.ErrInstallmentNotFound
	}
	s.installments[in.ID] = in
	return nil
}

func sortBySequence(ins []party.Installment) {
	sort.Slice(ins, func(i, j int) bool { return ins[i].SequenceNo < ins[j].SequenceNo })
}

type forcedFailure struct{}

func (forcedFailure) Error() string { return "forced store failure" }

var errForcedFailure = forcedFailure{}
