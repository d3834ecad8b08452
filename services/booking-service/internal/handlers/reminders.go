package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonqueue/libs/httpx"
	"github.com/md-rashed-zaman/salonqueue/services/booking-service/internal/reminders"
	"golang.org/x/crypto/bcrypt"
)

type Sweep interface {
	Run(ctx context.Context) (reminders.Result, error)
}

// RemindersHandler guards the reminder sweep with a shared bearer token. Only
// the bcrypt hash of the token is configured on this side.
type RemindersHandler struct {
	sweep     Sweep
	tokenHash []byte
	logger    *slog.Logger
}

func NewRemindersHandler(sweep Sweep, tokenHash string, logger *slog.Logger) *RemindersHandler {
	return &RemindersHandler{sweep: sweep, tokenHash: []byte(strings.TrimSpace(tokenHash)), logger: logger}
}

func (h *RemindersHandler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.authorized(r) {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	res, err := h.sweep.Run(r.Context())
	if err != nil {
		h.logger.Error("reminder sweep failed", "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to process reminders")
		return
	}
	h.logger.Info("reminder sweep done", "total", res.Total, "successful", res.Successful, "failed", res.Failed, "skipped", res.Skipped)
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *RemindersHandler) authorized(r *http.Request) bool {
	if len(h.tokenHash) == 0 {
		return false
	}
	raw := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(raw, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(h.tokenHash, []byte(strings.TrimSpace(token))) == nil
}
