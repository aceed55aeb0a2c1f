/*
dto.go - HTTP request/response shapes

PURPOSE:
  Keeps the wire format independent of the domain types. Domain structs
  never pick up json tags; these DTOs are the only JSON-facing shapes.

MONEY ON THE WIRE:
  decimal.Decimal marshals as a JSON number string-safe value; clients
  should send amounts as strings ("150.00") to avoid float round-trips.

DERIVED FIELDS:
  Installment responses carry the effective status (pending/paid/overdue)
  computed at render time; the stored status never says overdue.

SEE ALSO:
  - handlers.go: Converts between DTOs and domain types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/party-engine/party"
)

// =============================================================================
// PARTY
// =============================================================================

type CreatePartyRequest struct {
	Name string `json:"name"`
	// Date is the event date as YYYY-MM-DD.
	Date string `json:"date"`
	// StartTime is an optional HH:MM start time.
	StartTime *string `json:"start_time,omitempty"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type PartyResponse struct {
	ID                      string  `json:"id"`
	Name                    string  `json:"name"`
	Date                    string  `json:"date"`
	StartTime               *string `json:"start_time,omitempty"`
	Status                  string  `json:"status"`
	FreelancerPaymentStatus string  `json:"freelancer_payment_status"`
	ClientPaymentStatus     string  `json:"client_payment_status"`
	CreatedAt               string  `json:"created_at"`
	UpdatedAt               string  `json:"updated_at"`
}

func toPartyResponse(p party.Party) PartyResponse {
	resp := PartyResponse{
		ID:                      string(p.ID),
		Name:                    p.Name,
		Date:                    p.Date.Format("2006-01-02"),
		Status:                  string(p.Status),
		FreelancerPaymentStatus: string(p.FreelancerPaymentStatus),
		ClientPaymentStatus:     string(p.ClientPaymentStatus),
		CreatedAt:               p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:               p.UpdatedAt.Format(time.RFC3339),
	}
	if p.StartTime != nil {
		st := formatTimeOfDay(*p.StartTime)
		resp.StartTime = &st
	}
	return resp
}

type PartyListResponse struct {
	Parties []PartyResponse `json:"parties"`
	// Reconciled counts the parties whose status advanced during this read.
	Reconciled int `json:"reconciled"`
}

// =============================================================================
// STAFF
// =============================================================================

type AddStaffRequest struct {
	StaffID    string           `json:"staff_id"`
	StaffName  string           `json:"staff_name"`
	BaseRate   decimal.Decimal  `json:"base_rate"`
	FixedBonus decimal.Decimal  `json:"fixed_bonus"`
	Base       *decimal.Decimal `json:"base,omitempty"`
	Bonus      *decimal.Decimal `json:"bonus,omitempty"`
	BonusNote  *string          `json:"bonus_reason,omitempty"`
}

type SetPaidRequest struct {
	Paid bool `json:"paid"`
}

type AssignmentResponse struct {
	ID                 string          `json:"id"`
	PartyID            string          `json:"party_id"`
	StaffID            string          `json:"staff_id"`
	StaffName          string          `json:"staff_name"`
	BaseAmount         decimal.Decimal `json:"base_amount"`
	BonusAmount        decimal.Decimal `json:"bonus_amount"`
	BonusReason        *string         `json:"bonus_reason,omitempty"`
	Payable            decimal.Decimal `json:"payable"`
	PaymentStatus      string          `json:"payment_status"`
	ConfirmationStatus string          `json:"confirmation_status"`
}

func toAssignmentResponse(a party.StaffAssignment) AssignmentResponse {
	return AssignmentResponse{
		ID:                 string(a.ID),
		PartyID:            string(a.PartyID),
		StaffID:            a.StaffID,
		StaffName:          a.StaffName,
		BaseAmount:         a.BaseAmount,
		BonusAmount:        a.BonusAmount,
		BonusReason:        a.BonusReason,
		Payable:            a.Payable(),
		PaymentStatus:      string(a.PaymentStatus),
		ConfirmationStatus: string(a.ConfirmationStatus),
	}
}

// =============================================================================
// BILLING
// =============================================================================

type LineItemDTO struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateInvoiceRequest struct {
	LineItems        []LineItemDTO   `json:"line_items"`
	Discount         decimal.Decimal `json:"discount"`
	Surcharge        decimal.Decimal `json:"surcharge"`
	PaymentMode      string          `json:"payment_mode"`
	InstallmentCount int             `json:"installment_count"`
	DownPayment      decimal.Decimal `json:"down_payment"`
}

type MarkInstallmentPaidRequest struct {
	PaymentMethod *string `json:"payment_method,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

type InvoiceResponse struct {
	ID               string                `json:"id"`
	PartyID          string                `json:"party_id"`
	LineItems        []LineItemDTO         `json:"line_items"`
	Discount         decimal.Decimal       `json:"discount"`
	Surcharge        decimal.Decimal       `json:"surcharge"`
	Total            decimal.Decimal       `json:"total"`
	PaymentMode      string                `json:"payment_mode"`
	InstallmentCount int                   `json:"installment_count"`
	DownPayment      decimal.Decimal       `json:"down_payment"`
	PaymentStatus    string                `json:"payment_status"`
	Installments     []InstallmentResponse `json:"installments,omitempty"`
	Warning          string                `json:"warning,omitempty"`
}

func toInvoiceResponse(inv party.Invoice) InvoiceResponse {
	items := make([]LineItemDTO, len(inv.LineItems))
	for i, li := range inv.LineItems {
		items[i] = LineItemDTO{Description: li.Description, Quantity: li.Quantity, UnitPrice: li.UnitPrice}
	}
	return InvoiceResponse{
		ID:               string(inv.ID),
		PartyID:          string(inv.PartyID),
		LineItems:        items,
		Discount:         inv.Discount,
		Surcharge:        inv.Surcharge,
		Total:            inv.Total,
		PaymentMode:      string(inv.PaymentMode),
		InstallmentCount: inv.InstallmentCount,
		DownPayment:      inv.DownPayment,
		PaymentStatus:    string(inv.PaymentStatus),
	}
}

type InstallmentResponse struct {
	ID            string          `json:"id"`
	InvoiceID     string          `json:"invoice_id"`
	PartyID       string          `json:"party_id"`
	SequenceNo    int             `json:"sequence_no"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       string          `json:"due_date"`
	Status        string          `json:"status"`
	PaymentDate   *string         `json:"payment_date,omitempty"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

func toInstallmentResponse(in party.Installment, now time.Time) InstallmentResponse {
	resp := InstallmentResponse{
		ID:            string(in.ID),
		InvoiceID:     string(in.InvoiceID),
		PartyID:       string(in.PartyID),
		SequenceNo:    in.SequenceNo,
		Amount:        in.Amount,
		DueDate:       in.DueDate.Format("2006-01-02"),
		Status:        string(in.EffectiveStatus(now)),
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
	}
	if in.PaymentDate != nil {
		pd := in.PaymentDate.Format(time.RFC3339)
		resp.PaymentDate = &pd
	}
	return resp
}

// =============================================================================
// ADMIN
// =============================================================================

type SweepResponse struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type NextRunResponse struct {
	Enabled bool   `json:"enabled"`
	NextRun string `json:"next_run,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
