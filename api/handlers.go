/*
handlers.go - HTTP handlers for the party engine

PURPOSE:
  Thin HTTP layer over the domain services. Handlers parse/validate input,
  call one service operation, and translate domain errors to status codes.
  No business logic lives here.

ERROR MAPPING:
  not found            -> 404
  already in state     -> 409
  concurrent update    -> 409 (client may retry)
  invalid input        -> 400
  anything else        -> 500

RECONCILE-ON-READ:
  Listing parties and fetching one party both run the reconciler first, so
  a stale confirmed party whose date has passed renders as ended or
  ended_pending even between scheduler ticks.

SEE ALSO:
  - server.go: Route table
  - scheduler.go: Background sweep driving the same reconciler
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/party-engine/billing"
	"github.com/warp/party-engine/party"
	"github.com/warp/party-engine/staffing"
)

// Handler carries the services the HTTP layer dispatches to.
type Handler struct {
	Store      party.Store
	Reconciler *party.Reconciler
	Engine     *party.StatusEngine
	Staffing   *staffing.Service
	Billing    *billing.Service
	Clock      party.Clock
	Scheduler  *ReconciliationScheduler
	Log        zerolog.Logger
}

func NewHandler(
	store party.Store,
	rec *party.Reconciler,
	staffSvc *staffing.Service,
	billSvc *billing.Service,
	clock party.Clock,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		Store:      store,
		Reconciler: rec,
		Engine:     rec.Engine,
		Staffing:   staffSvc,
		Billing:    billSvc,
		Clock:      clock,
		Log:        log,
	}
}

// =============================================================================
// JSON HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case party.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, party.ErrAlreadyInState) || party.IsRetryable(err):
		status = http.StatusConflict
	case party.IsClientError(err):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, ErrorResponse{Error: http.StatusText(status), Detail: err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Bad Request", Detail: detail})
}

// =============================================================================
// DATE/TIME PARSING
// =============================================================================

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

func parseTimeOfDay(s string) (*party.TimeOfDay, error) {
	var t party.TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return nil, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return nil, fmt.Errorf("time %q out of range", s)
	}
	return &t, nil
}

func formatTimeOfDay(t party.TimeOfDay) string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// =============================================================================
// PARTY HANDLERS
// =============================================================================

// ListParties returns all parties, reconciling stale statuses on the way out.
func (h *Handler) ListParties(w http.ResponseWriter, r *http.Request) {
	parties, err := h.Store.ListParties(r.Context(), party.PartyFilter{})
	if err != nil {
		writeError(w, err)
		return
	}

	// Background-style reconciliation: failures are logged inside the
	// reconciler, the read still succeeds with whatever statuses we have.
	parties, sweep := h.Reconciler.OnListView(r.Context(), parties, h.Clock.Now())

	resp := PartyListResponse{Parties: make([]PartyResponse, len(parties)), Reconciled: sweep.Updated}
	for i, p := range parties {
		resp.Parties[i] = toPartyResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateParty registers a new party in planning status.
func (h *Handler) CreateParty(w http.ResponseWriter, r *http.Request) {
	var req CreatePartyRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeBadRequest(w, "date must be YYYY-MM-DD")
		return
	}
	var startTime *party.TimeOfDay
	if req.StartTime != nil {
		if startTime, err = parseTimeOfDay(*req.StartTime); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
	}

	now := h.Clock.Now()
	p := party.Party{
		ID:                      party.PartyID(uuid.NewString()),
		Name:                    req.Name,
		Date:                    date,
		StartTime:               startTime,
		Status:                  party.StatusPlanning,
		FreelancerPaymentStatus: party.FreelancerPaid, // no staff booked yet
		ClientPaymentStatus:     party.ClientPending,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := h.Store.SaveParty(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPartyResponse(p))
}

// GetParty returns one party with its assignments and invoice, reconciling
// its status first.
func (h *Handler) GetParty(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetParty(r.Context(), party.PartyID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}

	single := []party.Party{*p}
	single, _ = h.Reconciler.OnListView(r.Context(), single, h.Clock.Now())

	assignments, err := h.Store.ListAssignmentsByParty(r.Context(), p.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	inv, err := h.Store.GetInvoiceByParty(r.Context(), p.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := struct {
		PartyResponse
		Assignments []AssignmentResponse `json:"assignments"`
		Invoice     *InvoiceResponse     `json:"invoice,omitempty"`
	}{PartyResponse: toPartyResponse(single[0])}

	resp.Assignments = make([]AssignmentResponse, len(assignments))
	for i, a := range assignments {
		resp.Assignments[i] = toAssignmentResponse(a)
	}
	if inv != nil {
		invResp := toInvoiceResponse(*inv)
		installments, err := h.Store.ListInstallmentsByInvoice(r.Context(), inv.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		now := h.Clock.Now()
		for _, in := range installments {
			invResp.Installments = append(invResp.Installments, toInstallmentResponse(in, now))
		}
		resp.Invoice = &invResp
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetStatus performs a manual status transition, including happening.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	p, err := h.Store.GetParty(r.Context(), party.PartyID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Engine.Transition(r.Context(), p, party.Status(req.Status)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPartyResponse(*p))
}

// CancelParty cancels a party from any non-terminal status.
func (h *Handler) CancelParty(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetParty(r.Context(), party.PartyID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Engine.Cancel(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPartyResponse(*p))
}

// =============================================================================
// STAFF HANDLERS
// =============================================================================

// AddStaff books a freelancer onto a party.
func (h *Handler) AddStaff(w http.ResponseWriter, r *http.Request) {
	var req AddStaffRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.StaffID == "" || req.StaffName == "" {
		writeBadRequest(w, "staff_id and staff_name are required")
		return
	}

	profile := staffing.StaffProfile{
		ID:         req.StaffID,
		Name:       req.StaffName,
		BaseRate:   req.BaseRate,
		FixedBonus: req.FixedBonus,
	}
	assignment, err := h.Staffing.AddStaff(r.Context(),
		party.PartyID(chi.URLParam(r, "id")), profile, req.Base, req.Bonus, req.BonusNote)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentResponse(*assignment))
}

// RemoveStaff unbooks a freelancer and re-aggregates the party.
func (h *Handler) RemoveStaff(w http.ResponseWriter, r *http.Request) {
	err := h.Staffing.RemoveStaff(r.Context(),
		party.PartyID(chi.URLParam(r, "id")),
		party.AssignmentID(chi.URLParam(r, "aid")))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetStaffPayment toggles an assignment's paid state.
func (h *Handler) SetStaffPayment(w http.ResponseWriter, r *http.Request) {
	var req SetPaidRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	err := h.Staffing.SetPaymentStatus(r.Context(),
		party.PartyID(chi.URLParam(r, "id")),
		party.AssignmentID(chi.URLParam(r, "aid")), req.Paid)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BILLING HANDLERS
// =============================================================================

// CreateInvoice creates the party's invoice and, in installment mode, its
// payment schedule. A schedule failure still returns 201; the warning field
// tells the client the installments are missing.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	items := make([]party.LineItem, len(req.LineItems))
	for i, li := range req.LineItems {
		items[i] = party.LineItem{Description: li.Description, Quantity: li.Quantity, UnitPrice: li.UnitPrice}
	}

	result, err := h.Billing.CreateInvoice(r.Context(), party.PartyID(chi.URLParam(r, "id")),
		billing.CreateInvoiceInput{
			LineItems:        items,
			Discount:         req.Discount,
			Surcharge:        req.Surcharge,
			PaymentMode:      party.PaymentMode(req.PaymentMode),
			InstallmentCount: req.InstallmentCount,
			DownPayment:      req.DownPayment,
		})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := toInvoiceResponse(result.Invoice)
	now := h.Clock.Now()
	for _, in := range result.Installments {
		resp.Installments = append(resp.Installments, toInstallmentResponse(in, now))
	}
	if result.Warning != nil {
		resp.Warning = result.Warning.Error()
		h.Log.Warn().Err(result.Warning).Str("invoice", resp.ID).Msg("invoice created without installments")
	}
	writeJSON(w, http.StatusCreated, resp)
}

// SetInvoicePaid settles a lump-sum invoice.
func (h *Handler) SetInvoicePaid(w http.ResponseWriter, r *http.Request) {
	var req SetPaidRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	err := h.Billing.MarkInvoicePaid(r.Context(),
		party.InvoiceID(chi.URLParam(r, "id")), req.Paid)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetInstallmentPaid records a payment against one installment.
func (h *Handler) SetInstallmentPaid(w http.ResponseWriter, r *http.Request) {
	var req MarkInstallmentPaidRequest
	if err := decode(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	err := h.Billing.MarkInstallmentPaid(r.Context(),
		party.InstallmentID(chi.URLParam(r, "id")), req.PaymentMethod, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RunReconcile triggers a full status sweep immediately.
func (h *Handler) RunReconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.Reconciler.AutoUpdateStatuses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResponse{
		Checked: result.Checked,
		Updated: result.Updated,
		Skipped: result.Skipped,
		Failed:  len(result.Failures),
	})
}

// NextReconcile reports when the scheduler will next sweep.
func (h *Handler) NextReconcile(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil || !h.Scheduler.Running() {
		writeJSON(w, http.StatusOK, NextRunResponse{Enabled: false})
		return
	}
	writeJSON(w, http.StatusOK, NextRunResponse{
		Enabled: true,
		NextRun: h.Scheduler.NextRun().Format(time.RFC3339),
	})
}
