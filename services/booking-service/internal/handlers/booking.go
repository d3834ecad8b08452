package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonqueue/libs/httpx"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/model"
)

// Bookings is the part of booking.Service the HTTP layer needs.
type Bookings interface {
	Slots(ctx context.Context, q booking.SlotsQuery) ([]string, error)
	Book(ctx context.Context, req booking.BookRequest, idempotencyKey string) (model.Appointment, bool, error)
	Lookup(ctx context.Context, q booking.LookupQuery) ([]model.Appointment, error)
	CancelByCustomer(ctx context.Context, req booking.CustomerCancel) (model.Appointment, error)
	UpdateStatus(ctx context.Context, businessID, id, status string) (model.Appointment, error)
	ListDay(ctx context.Context, businessID, date string) ([]model.Appointment, error)
}

type BookingHandler struct {
	bookings Bookings
	logger   *slog.Logger
}

func NewBookingHandler(bookings Bookings, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, logger: logger}
}

type slotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

type appointmentsResponse struct {
	Appointments []model.Appointment `json:"appointments"`
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

// Slots serves GET /api/v1/public/slots?business_id=&staff_id=&date=.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	query := booking.SlotsQuery{
		BusinessID: httpx.BusinessID(r),
		StaffID:    strings.TrimSpace(q.Get("staff_id")),
		Date:       strings.TrimSpace(q.Get("date")),
	}
	slots, err := h.bookings.Slots(r.Context(), query)
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{Date: query.Date, Slots: slots})
}

// Create serves POST /api/v1/public/appointments. A repeated Idempotency-Key
// returns the original appointment with 200 instead of 201.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req booking.BookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BusinessID == "" {
		req.BusinessID = httpx.BusinessID(r)
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	appt, replayed, err := h.bookings.Book(r.Context(), req, key)
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, appt)
}

// Lookup serves GET /api/v1/public/appointments/lookup?business_id=&phone=|email=.
func (h *BookingHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	appts, err := h.bookings.Lookup(r.Context(), booking.LookupQuery{
		BusinessID: httpx.BusinessID(r),
		Phone:      q.Get("phone"),
		Email:      q.Get("email"),
	})
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appointmentsResponse{Appointments: appts})
}

// Cancel serves POST /api/v1/public/appointments/cancel.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req booking.CustomerCancel
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BusinessID == "" {
		req.BusinessID = httpx.BusinessID(r)
	}
	appt, err := h.bookings.CancelByCustomer(r.Context(), req)
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

// List serves GET /api/v1/appointments?date= for staff of the caller's business.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	businessID := httpx.BusinessID(r)
	if businessID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "business_id is required")
		return
	}
	appts, err := h.bookings.ListDay(r.Context(), businessID, strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appointmentsResponse{Appointments: appts})
}

// UpdateStatus serves POST /api/v1/appointments/status.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	businessID := httpx.BusinessID(r)
	if businessID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "business_id is required")
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.AppointmentID) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_id is required")
		return
	}
	appt, err := h.bookings.UpdateStatus(r.Context(), businessID, strings.TrimSpace(req.AppointmentID), strings.TrimSpace(req.Status))
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}
