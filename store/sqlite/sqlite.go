/*
Package sqlite provides a SQLite-backed implementation of the party stores.

PURPOSE:
  Implements party.Store (parties, assignments, payments, invoices,
  installments) using SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  parties:           Party records with status + cached payment projections
  staff_assignments: Freelancer bookings per party
  payments:          Money actually paid to freelancers (one per paid booking)
  invoices:          One client bill per party; line items stored as JSON
  installments:      Payment schedule rows for installment-mode invoices

MONEY:
  Decimal amounts are stored as TEXT and parsed with shopspring/decimal.
  No floats touch money columns.

CONCURRENCY:
  UpdateParty is compare-and-swap on the version column:

    UPDATE parties SET ..., version = version + 1
    WHERE id = ? AND version = ?

  Zero rows affected means another writer got there first; callers get
  party.ErrConcurrentModification and retry from a fresh read.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery.

CASCADES:
  Deleting a party cascades to assignments, payments, invoice, and
  installments via foreign keys (the pragma is enabled on open).

SEE ALSO:
  - party/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/party-engine/party"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// Store implements party.Store using SQLite.
type Store struct {
	db *sql.DB
}

var _ party.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Parties
	CREATE TABLE IF NOT EXISTS parties (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		event_date TEXT NOT NULL,
		start_time TEXT,
		status TEXT NOT NULL,
		freelancer_payment_status TEXT NOT NULL DEFAULT 'paid',
		client_payment_status TEXT NOT NULL DEFAULT 'pending',
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: the status sweep lists confirmed + ended_pending parties
	CREATE INDEX IF NOT EXISTS idx_parties_status ON parties(status);
	CREATE INDEX IF NOT EXISTS idx_parties_date ON parties(event_date);

	-- Staff assignments
	CREATE TABLE IF NOT EXISTS staff_assignments (
		id TEXT PRIMARY KEY,
		party_id TEXT NOT NULL REFERENCES parties(id) ON DELETE CASCADE,
		staff_id TEXT NOT NULL,
		staff_name TEXT NOT NULL,
		base_amount TEXT NOT NULL,
		bonus_amount TEXT NOT NULL,
		bonus_reason TEXT,
		payment_status TEXT NOT NULL DEFAULT 'pending',
		confirmation_status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_party ON staff_assignments(party_id);

	-- Freelancer payments (one per paid assignment)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		party_id TEXT NOT NULL REFERENCES parties(id) ON DELETE CASCADE,
		assignment_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_party ON payments(party_id);
	CREATE INDEX IF NOT EXISTS idx_payments_assignment ON payments(assignment_id);

	-- Invoices (one per party)
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		party_id TEXT NOT NULL UNIQUE REFERENCES parties(id) ON DELETE CASCADE,
		line_items_json TEXT NOT NULL DEFAULT '[]',
		discount TEXT NOT NULL,
		surcharge TEXT NOT NULL,
		total TEXT NOT NULL,
		payment_mode TEXT NOT NULL,
		installment_count INTEGER NOT NULL DEFAULT 0,
		down_payment TEXT NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Installments
	CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		party_id TEXT NOT NULL,
		sequence_no INTEGER NOT NULL,
		amount TEXT NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_date TEXT,
		payment_method TEXT,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(invoice_id, sequence_no)
	);

	CREATE INDEX IF NOT EXISTS idx_installments_invoice ON installments(invoice_id);
	CREATE INDEX IF NOT EXISTS idx_installments_party ON installments(party_id);
	CREATE INDEX IF NOT EXISTS idx_installments_due ON installments(status, due_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PARTY STORE
// =============================================================================

const partyColumns = `id, name, event_date, start_time, status,
	freelancer_payment_status, client_payment_status, version, created_at, updated_at`

func (s *Store) GetParty(ctx context.Context, id party.PartyID) (*party.Party, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE id = ?`, string(id))
	p, err := scanParty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, party.ErrPartyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	return p, nil
}

func (s *Store) ListParties(ctx context.Context, filter party.PartyFilter) ([]party.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties`
	var conds []string
	var args []any

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		conds = append(conds, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.FromDate != nil {
		conds = append(conds, "event_date >= ?")
		args = append(args, filter.FromDate.Format(dateLayout))
	}
	if filter.ToDate != nil {
		conds = append(conds, "event_date <= ?")
		args = append(args, filter.ToDate.Format(dateLayout))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY event_date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list parties: %w", err)
	}
	defer rows.Close()

	var result []party.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (s *Store) SaveParty(ctx context.Context, p party.Party) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO parties (id, name, event_date, start_time, status,
			freelancer_payment_status, client_payment_status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(p.ID), p.Name, p.Date.Format(dateLayout), encodeTimeOfDay(p.StartTime),
		string(p.Status), string(p.FreelancerPaymentStatus), string(p.ClientPaymentStatus),
		p.Version, p.CreatedAt.Format(timeLayout), p.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert party: %w", err)
	}
	return nil
}

func (s *Store) UpdateParty(ctx context.Context, p *party.Party) error {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE parties
		SET name = ?, event_date = ?, start_time = ?, status = ?,
		    freelancer_payment_status = ?, client_payment_status = ?,
		    version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		p.Name, p.Date.Format(dateLayout), encodeTimeOfDay(p.StartTime), string(p.Status),
		string(p.FreelancerPaymentStatus), string(p.ClientPaymentStatus),
		now.Format(timeLayout), string(p.ID), p.Version)
	if err != nil {
		return fmt.Errorf("failed to update party: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the party is gone or another writer bumped the version.
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM parties WHERE id = ?`, string(p.ID)).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return party.ErrPartyNotFound
		}
		return party.ErrConcurrentModification
	}

	p.Version++
	p.UpdatedAt = now
	return nil
}

func (s *Store) DeleteParty(ctx context.Context, id party.PartyID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM parties WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete party: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return party.ErrPartyNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParty(row scanner) (*party.Party, error) {
	var p party.Party
	var date, createdAt, updatedAt string
	var startTime sql.NullString
	var status, fps, cps string

	if err := row.Scan(&p.ID, &p.Name, &date, &startTime, &status,
		&fps, &cps, &p.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if p.Date, err = time.ParseInLocation(dateLayout, date, time.Local); err != nil {
		return nil, fmt.Errorf("bad event_date %q: %w", date, err)
	}
	if p.StartTime, err = decodeTimeOfDay(startTime); err != nil {
		return nil, err
	}
	p.Status = party.Status(status)
	p.FreelancerPaymentStatus = party.FreelancerPaymentStatus(fps)
	p.ClientPaymentStatus = party.ClientPaymentStatus(cps)
	p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &p, nil
}

func encodeTimeOfDay(t *party.TimeOfDay) any {
	if t == nil {
		return nil
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func decodeTimeOfDay(v sql.NullString) (*party.TimeOfDay, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	var t party.TimeOfDay
	if _, err := fmt.Sscanf(v.String, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return nil, fmt.Errorf("bad start_time %q: %w", v.String, err)
	}
	return &t, nil
}

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

const assignmentColumns = `id, party_id, staff_id, staff_name, base_amount,
	bonus_amount, bonus_reason, payment_status, confirmation_status, created_at, updated_at`

func (s *Store) GetAssignment(ctx context.Context, id party.AssignmentID) (*party.StaffAssignment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM staff_assignments WHERE id = ?`, string(id))
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, party.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

func (s *Store) ListAssignmentsByParty(ctx context.Context, partyID party.PartyID) ([]party.StaffAssignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM staff_assignments WHERE party_id = ? ORDER BY created_at, id`,
		string(partyID))
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var result []party.StaffAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (s *Store) SaveAssignment(ctx context.Context, a party.StaffAssignment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff_assignments (id, party_id, staff_id, staff_name, base_amount,
			bonus_amount, bonus_reason, payment_status, confirmation_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(a.ID), string(a.PartyID), a.StaffID, a.StaffName,
		a.BaseAmount.String(), a.BonusAmount.String(), a.BonusReason,
		string(a.PaymentStatus), string(a.ConfirmationStatus),
		a.CreatedAt.Format(timeLayout), a.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

func (s *Store) UpdateAssignment(ctx context.Context, a party.StaffAssignment) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE staff_assignments
		SET staff_name = ?, base_amount = ?, bonus_amount = ?, bonus_reason = ?,
		    payment_status = ?, confirmation_status = ?, updated_at = ?
		WHERE id = ?`,
		a.StaffName, a.BaseAmount.String(), a.BonusAmount.String(), a.BonusReason,
		string(a.PaymentStatus), string(a.ConfirmationStatus),
		a.UpdatedAt.Format(timeLayout), string(a.ID))
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return party.ErrAssignmentNotFound
	}
	return nil
}

func (s *Store) DeleteAssignment(ctx context.Context, id party.AssignmentID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM staff_assignments WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return party.ErrAssignmentNotFound
	}
	return nil
}

func scanAssignment(row scanner) (*party.StaffAssignment, error) {
	var a party.StaffAssignment
	var base, bonus, createdAt, updatedAt string
	var reason sql.NullString
	var payStatus, confStatus string

	if err := row.Scan(&a.ID, &a.PartyID, &a.StaffID, &a.StaffName, &base, &bonus,
		&reason, &payStatus, &confStatus, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if a.BaseAmount, err = decimal.NewFromString(base); err != nil {
		return nil, fmt.Errorf("bad base_amount %q: %w", base, err)
	}
	if a.BonusAmount, err = decimal.NewFromString(bonus); err != nil {
		return nil, fmt.Errorf("bad bonus_amount %q: %w", bonus, err)
	}
	if reason.Valid {
		a.BonusReason = &reason.String
	}
	a.PaymentStatus = party.AssignmentPaymentStatus(payStatus)
	a.ConfirmationStatus = party.ConfirmationStatus(confStatus)
	a.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	a.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &a, nil
}

// =============================================================================
// PAYMENT STORE
// =============================================================================

func (s *Store) SavePayment(ctx context.Context, p party.Payment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, party_id, assignment_id, amount, paid_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(p.ID), string(p.PartyID), string(p.AssignmentID),
		p.Amount.String(), p.PaidAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *Store) ListPaymentsByParty(ctx context.Context, partyID party.PartyID) ([]party.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, party_id, assignment_id, amount, paid_at
		FROM payments WHERE party_id = ? ORDER BY paid_at, id`, string(partyID))
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var result []party.Payment
	for rows.Next() {
		var p party.Payment
		var amount, paidAt string
		if err := rows.Scan(&p.ID, &p.PartyID, &p.AssignmentID, &amount, &paidAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad amount %q: %w", amount, err)
		}
		p.PaidAt, _ = time.Parse(timeLayout, paidAt)
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) DeletePaymentByAssignment(ctx context.Context, assignmentID party.AssignmentID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM payments WHERE assignment_id = ?`, string(assignmentID))
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return nil
}

// =============================================================================
// INVOICE STORE
// =============================================================================

const invoiceColumns = `id, party_id, line_items_json, discount, surcharge, total,
	payment_mode, installment_count, down_payment, payment_status, created_at, updated_at`

func (s *Store) GetInvoice(ctx context.Context, id party.InvoiceID) (*party.Invoice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, string(id))
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, party.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

func (s *Store) GetInvoiceByParty(ctx context.Context, partyID party.PartyID) (*party.Invoice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE party_id = ?`, string(partyID))
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No invoice is a normal state, not an error.
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice by party: %w", err)
	}
	return inv, nil
}

func (s *Store) SaveInvoice(ctx context.Context, inv party.Invoice) error {
	items, err := json.Marshal(inv.LineItems)
	if err != nil {
		return fmt.Errorf("failed to encode line items: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, party_id, line_items_json, discount, surcharge, total,
			payment_mode, installment_count, down_payment, payment_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(inv.ID), string(inv.PartyID), string(items),
		inv.Discount.String(), inv.Surcharge.String(), inv.Total.String(),
		string(inv.PaymentMode), inv.InstallmentCount, inv.DownPayment.String(),
		string(inv.PaymentStatus), inv.CreatedAt.Format(timeLayout), inv.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

func (s *Store) UpdateInvoice(ctx context.Context, inv party.Invoice) error {
	items, err := json.Marshal(inv.LineItems)
	if err != nil {
		return fmt.Errorf("failed to encode line items: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices
		SET line_items_json = ?, discount = ?, surcharge = ?, total = ?,
		    payment_mode = ?, installment_count = ?, down_payment = ?,
		    payment_status = ?, updated_at = ?
		WHERE id = ?`,
		string(items), inv.Discount.String(), inv.Surcharge.String(), inv.Total.String(),
		string(inv.PaymentMode), inv.InstallmentCount, inv.DownPayment.String(),
		string(inv.PaymentStatus), inv.UpdatedAt.Format(timeLayout), string(inv.ID))
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return party.ErrInvoiceNotFound
	}
	return nil
}

func scanInvoice(row scanner) (*party.Invoice, error) {
	var inv party.Invoice
	var items, discount, surcharge, total, down, createdAt, updatedAt string
	var mode, status string

	if err := row.Scan(&inv.ID, &inv.PartyID, &items, &discount, &surcharge, &total,
		&mode, &inv.InstallmentCount, &down, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(items), &inv.LineItems); err != nil {
		return nil, fmt.Errorf("bad line_items_json: %w", err)
	}
	var err error
	if inv.Discount, err = decimal.NewFromString(discount); err != nil {
		return nil, fmt.Errorf("bad discount %q: %w", discount, err)
	}
	if inv.Surcharge, err = decimal.NewFromString(surcharge); err != nil {
		return nil, fmt.Errorf("bad surcharge %q: %w", surcharge, err)
	}
	if inv.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("bad total %q: %w", total, err)
	}
	if inv.DownPayment, err = decimal.NewFromString(down); err != nil {
		return nil, fmt.Errorf("bad down_payment %q: %w", down, err)
	}
	inv.PaymentMode = party.PaymentMode(mode)
	inv.PaymentStatus = party.ClientPaymentStatus(status)
	inv.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	inv.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &inv, nil
}

// =============================================================================
// INSTALLMENT STORE
// =============================================================================

const installmentColumns = `id, invoice_id, party_id, sequence_no, amount, due_date,
	status, payment_date, payment_method, notes, created_at, updated_at`

func (s *Store) GetInstallment(ctx context.Context, id party.InstallmentID) (*party.Installment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE id = ?`, string(id))
	in, err := scanInstallment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, party.ErrInstallmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}
	return in, nil
}

func (s *Store) ListInstallmentsByInvoice(ctx context.Context, invoiceID party.InvoiceID) ([]party.Installment, error) {
	return s.listInstallments(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE invoice_id = ? ORDER BY sequence_no`,
		string(invoiceID))
}

func (s *Store) ListInstallmentsByParty(ctx context.Context, partyID party.PartyID) ([]party.Installment, error) {
	return s.listInstallments(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE party_id = ? ORDER BY sequence_no`,
		string(partyID))
}

func (s *Store) ListOverdueInstallments(ctx context.Context, now time.Time) ([]party.Installment, error) {
	// due_date is a date column; anything strictly before today is overdue.
	return s.listInstallments(ctx,
		`SELECT `+installmentColumns+` FROM installments
		 WHERE status = 'pending' AND due_date < ? ORDER BY due_date, sequence_no`,
		now.Format(dateLayout))
}

func (s *Store) listInstallments(ctx context.Context, query string, args ...any) ([]party.Installment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	defer rows.Close()

	var result []party.Installment
	for rows.Next() {
		in, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		result = append(result, *in)
	}
	return result, rows.Err()
}

func (s *Store) SaveInstallments(ctx context.Context, ins []party.Installment) error {
	if len(ins) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO installments (id, invoice_id, party_id, sequence_no, amount, due_date,
			status, payment_date, payment_method, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare installment insert: %w", err)
	}
	defer stmt.Close()

	for _, in := range ins {
		_, err := stmt.ExecContext(ctx,
			string(in.ID), string(in.InvoiceID), string(in.PartyID), in.SequenceNo,
			in.Amount.String(), in.DueDate.Format(dateLayout), string(in.Status),
			encodeNullTime(in.PaymentDate), in.PaymentMethod, in.Notes,
			in.CreatedAt.Format(timeLayout), in.UpdatedAt.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("failed to insert installment %d: %w", in.SequenceNo, err)
		}
	}
	return tx.Commit()
}

func (s *Store) UpdateInstallment(ctx context.Context, in party.Installment) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE installments
		SET amount = ?, due_date = ?, status = ?, payment_date = ?,
		    payment_method = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		in.Amount.String(), in.DueDate.Format(dateLayout), string(in.Status),
		encodeNullTime(in.PaymentDate), in.PaymentMethod, in.Notes,
		in.UpdatedAt.Format(timeLayout), string(in.ID))
	if err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return party.ErrInstallmentNotFound
	}
	return nil
}

func scanInstallment(row scanner) (*party.Installment, error) {
	var in party.Installment
	var amount, dueDate, createdAt, updatedAt string
	var status string
	var paymentDate, paymentMethod sql.NullString

	if err := row.Scan(&in.ID, &in.InvoiceID, &in.PartyID, &in.SequenceNo, &amount,
		&dueDate, &status, &paymentDate, &paymentMethod, &in.Notes,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if in.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", amount, err)
	}
	if in.DueDate, err = time.ParseInLocation(dateLayout, dueDate, time.Local); err != nil {
		return nil, fmt.Errorf("bad due_date %q: %w", dueDate, err)
	}
	in.Status = party.InstallmentStatus(status)
	if paymentDate.Valid {
		t, err := time.Parse(timeLayout, paymentDate.String)
		if err != nil {
			return nil, fmt.Errorf("bad payment_date %q: %w", paymentDate.String, err)
		}
		in.PaymentDate = &t
	}
	if paymentMethod.Valid {
		in.PaymentMethod = &paymentMethod.String
	}
	in.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	in.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &in, nil
}

func encodeNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}
