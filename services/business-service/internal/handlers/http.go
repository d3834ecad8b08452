package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/salonqueue/libs/httpx"
	"github.com/md-rashed-zaman/salonqueue/libs/phone"
	"github.com/md-rashed-zaman/salonqueue/libs/tenant"
	"github.com/md-rashed-zaman/salonqueue/libs/validate"
	"github.com/shopspring/decimal"
)

type Catalog interface {
	Business(ctx context.Context, id string) (tenant.Business, error)
	BusinessBySlug(ctx context.Context, slug string) (tenant.Business, error)
	Businesses(ctx context.Context, limit int) ([]tenant.Business, error)
	Service(ctx context.Context, businessID, id string) (tenant.Service, error)
	Services(ctx context.Context, businessID string, activeOnly bool) ([]tenant.Service, error)
	Staff(ctx context.Context, businessID, id string) (tenant.Staff, error)
	StaffList(ctx context.Context, businessID string, activeOnly bool) ([]tenant.Staff, error)
}

type Store interface {
	CreateBusiness(ctx context.Context, b tenant.Business) (string, error)
	UpdateBusiness(ctx context.Context, b tenant.Business) error
	UpdateSettings(ctx context.Context, businessID string, s tenant.Settings) error
	CreateService(ctx context.Context, s tenant.Service) (string, error)
	UpdateService(ctx context.Context, s tenant.Service) error
	CreateStaff(ctx context.Context, s tenant.Staff) (string, error)
	UpdateStaff(ctx context.Context, s tenant.Staff) error
}

type Handler struct {
	catalog Catalog
	store   Store
	logger  *slog.Logger
}

func New(catalog Catalog, store Store, logger *slog.Logger) *Handler {
	return &Handler{catalog: catalog, store: store, logger: logger}
}

type createBusinessRequest struct {
	Name     string           `json:"name" validate:"required,max=200"`
	Slug     string           `json:"slug" validate:"required,max=63,slug"`
	Phone    string           `json:"phone" validate:"required,max=40"`
	Address  *string          `json:"address" validate:"omitempty,max=500"`
	Settings *tenant.Settings `json:"settings"`
}

type updateBusinessRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Phone   string  `json:"phone" validate:"required,max=40"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

type serviceRequest struct {
	Name            string          `json:"name" validate:"required,max=200"`
	DurationMinutes int             `json:"duration_minutes" validate:"gt=0,max=1440"`
	Price           decimal.Decimal `json:"price"`
	Description     *string         `json:"description" validate:"omitempty,max=2000"`
	IsActive        *bool           `json:"is_active"`
}

type staffRequest struct {
	Name     string           `json:"name" validate:"required,max=200"`
	Phone    *string          `json:"phone" validate:"omitempty,max=40"`
	IsActive *bool            `json:"is_active"`
	UserID   *string          `json:"user_id" validate:"omitempty,max=200"`
	Hours    tenant.WeekHours `json:"hours"`
}

type publicBusinessResponse struct {
	Business tenant.Business  `json:"business"`
	Services []tenant.Service `json:"services"`
	Staff    []tenant.Staff   `json:"staff"`
}

type idResponse struct {
	ID string `json:"id"`
}

// Businesses serves GET and POST /api/v1/admin/businesses (super admin only,
// enforced at the gateway).
func (h *Handler) Businesses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 100
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 500 {
				httpx.WriteError(w, http.StatusBadRequest, "limit must be between 1 and 500")
				return
			}
			limit = n
		}
		list, err := h.catalog.Businesses(r.Context(), limit)
		if err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"businesses": list})
	case http.MethodPost:
		h.createBusiness(w, r)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) createBusiness(w http.ResponseWriter, r *http.Request) {
	var req createBusinessRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(req.Slug)
	if err := validate.Struct(req); err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	settings := tenant.DefaultSettings()
	if req.Settings != nil {
		settings = *req.Settings
		if settings.Hours == nil {
			settings.Hours = tenant.DefaultHours()
		}
		if err := settings.Validate(); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	businessPhone, err := phone.Normalize(req.Phone, settings.PhoneRegion)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "phone is not a valid phone number")
		return
	}

	b := tenant.Business{Name: req.Name, Slug: req.Slug, Phone: businessPhone, Address: trimmed(req.Address), Settings: settings}
	id, err := h.store.CreateBusiness(r.Context(), b)
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	h.logger.Info("business created", "business_id", id, "slug", b.Slug)
	httpx.WriteJSON(w, http.StatusCreated, idResponse{ID: id})
}

// Profile serves GET and PUT /api/v1/business for the caller's business.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireBusiness(w, r)
	if !ok {
		return
	}
	biz, err := h.catalog.Business(r.Context(), businessID)
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		httpx.WriteJSON(w, http.StatusOK, biz)
	case http.MethodPut:
		var req updateBusinessRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if err := validate.Struct(req); err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		businessPhone, err := phone.Normalize(req.Phone, biz.Settings.PhoneRegion)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "phone is not a valid phone number")
			return
		}
		biz.Name, biz.Phone, biz.Address = req.Name, businessPhone, trimmed(req.Address)
		if err := h.store.UpdateBusiness(r.Context(), biz); err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, biz)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Settings serves GET and PUT /api/v1/business/settings.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireBusiness(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		biz, err := h.catalog.Business(r.Context(), businessID)
		if err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, biz.Settings)
	case http.MethodPut:
		var s tenant.Settings
		if err := httpx.DecodeJSON(r, &s); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.Validate(); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.store.UpdateSettings(r.Context(), businessID, s); err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, s)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Services serves GET, POST and PUT (?id=) /api/v1/business/services.
func (h *Handler) Services(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireBusiness(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("active") == "true"
		list, err := h.catalog.Services(r.Context(), businessID, activeOnly)
		if err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"services": list})
	case http.MethodPost, http.MethodPut:
		var req serviceRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if err := validate.Struct(req); err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		if req.Price.IsNegative() {
			httpx.WriteError(w, http.StatusBadRequest, "price must be 0 or more")
			return
		}
		svc := tenant.Service{
			BusinessID:      businessID,
			Name:            req.Name,
			DurationMinutes: req.DurationMinutes,
			Price:           req.Price.Round(2),
			Description:     trimmed(req.Description),
			IsActive:        true,
		}
		if r.Method == http.MethodPost {
			if req.IsActive != nil {
				svc.IsActive = *req.IsActive
			}
			id, err := h.store.CreateService(r.Context(), svc)
			if err != nil {
				httpx.WriteDomainError(w, r, h.logger, err)
				return
			}
			httpx.WriteJSON(w, http.StatusCreated, idResponse{ID: id})
			return
		}
		current, err := h.catalog.Service(r.Context(), businessID, strings.TrimSpace(r.URL.Query().Get("id")))
		if err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		svc.ID, svc.IsActive, svc.CreatedAt = current.ID, current.IsActive, current.CreatedAt
		if req.IsActive != nil {
			svc.IsActive = *req.IsActive
		}
		if err := h.store.UpdateService(r.Context(), svc); err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, svc)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Staff serves GET, POST and PUT (?id=) /api/v1/business/staff.
func (h *Handler) Staff(w http.ResponseWriter, r *http.Request) {
	businessID, ok := requireBusiness(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("active") == "true"
		list, err := h.catalog.StaffList(r.Context(), businessID, activeOnly)
		if err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"staff": list})
	case http.MethodPost, http.MethodPut:
		var req staffRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if err := validate.Struct(req); err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		if err := req.Hours.Validate(); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		biz, err := h.catalog.Business(r.Context(), businessID)
		if err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		member := tenant.Staff{
			BusinessID: businessID,
			Name:       req.Name,
			IsActive:   true,
			UserID:     trimmed(req.UserID),
			Hours:      req.Hours,
		}
		if p := trimmed(req.Phone); p != nil {
			normalized, err := phone.Normalize(*p, biz.Settings.PhoneRegion)
			if err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "phone is not a valid phone number")
				return
			}
			member.Phone = &normalized
		}
		if r.Method == http.MethodPost {
			if req.IsActive != nil {
				member.IsActive = *req.IsActive
			}
			id, err := h.store.CreateStaff(r.Context(), member)
			if err != nil {
				httpx.WriteDomainError(w, r, h.logger, err)
				return
			}
			httpx.WriteJSON(w, http.StatusCreated, idResponse{ID: id})
			return
		}
		current, err := h.catalog.Staff(r.Context(), businessID, strings.TrimSpace(r.URL.Query().Get("id")))
		if err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		member.ID, member.IsActive, member.CreatedAt = current.ID, current.IsActive, current.CreatedAt
		if req.IsActive != nil {
			member.IsActive = *req.IsActive
		}
		if err := h.store.UpdateStaff(r.Context(), member); err != nil {
			httpx.WriteDomainError(w, r, h.logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, member)
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// PublicBusiness serves GET /api/v1/public/business?slug=, the data behind a
// business's booking page: the business, its active services and active staff.
func (h *Handler) PublicBusiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	if slug == "" {
		httpx.WriteNotFound(w, "business not found")
		return
	}
	biz, err := h.catalog.BusinessBySlug(r.Context(), slug)
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	services, err := h.catalog.Services(r.Context(), biz.ID, true)
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	staff, err := h.catalog.StaffList(r.Context(), biz.ID, true)
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, publicBusinessResponse{Business: biz, Services: services, Staff: staff})
}

func requireBusiness(w http.ResponseWriter, r *http.Request) (string, bool) {
	businessID := strings.TrimSpace(r.Header.Get(httpx.BusinessIDHeader))
	if businessID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing "+httpx.BusinessIDHeader)
		return "", false
	}
	return businessID, true
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
