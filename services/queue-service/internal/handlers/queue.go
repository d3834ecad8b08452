package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/changefeed"
	"github.com/md-rashed-zaman/salonqueue/libs/httpx"
	"github.com/md-rashed-zaman/salonqueue/services/queue-service/internal/queue"
	"github.com/md-rashed-zaman/salonqueue/services/queue-service/internal/walkin"
)

type Queue interface {
	Join(ctx context.Context, req walkin.JoinRequest) (queue.Entry, error)
	Transition(ctx context.Context, businessID, id, status string) ([]queue.Entry, error)
	CallNext(ctx context.Context, businessID string) (queue.Entry, error)
	Board(ctx context.Context, businessID, date string) (queue.Board, error)
	Watch(ctx context.Context, businessID string, fn func(changefeed.Change)) (func(), error)
}

type QueueHandler struct {
	queue     Queue
	logger    *slog.Logger
	keepAlive time.Duration
}

func NewQueueHandler(q Queue, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{queue: q, logger: logger, keepAlive: 25 * time.Second}
}

type transitionRequest struct {
	EntryID string `json:"entry_id"`
	Status  string `json:"status"`
}

type transitionResponse struct {
	Changed []queue.Entry `json:"changed"`
}

// Join serves POST /api/v1/public/queue/join.
func (h *QueueHandler) Join(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req walkin.JoinRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BusinessID == "" {
		req.BusinessID = httpx.BusinessID(r)
	}
	entry, err := h.queue.Join(r.Context(), req)
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, entry)
}

// Board serves GET /api/v1/public/queue/board and GET /api/v1/queue.
func (h *QueueHandler) Board(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	businessID := httpx.BusinessID(r)
	if businessID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "business_id is required")
		return
	}
	board, err := h.queue.Board(r.Context(), businessID, strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, board)
}

// CallNext serves POST /api/v1/queue/call-next.
func (h *QueueHandler) CallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	businessID := httpx.BusinessID(r)
	if businessID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "business_id is required")
		return
	}
	entry, err := h.queue.CallNext(r.Context(), businessID)
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entry)
}

// Transition serves POST /api/v1/queue/status.
func (h *QueueHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	businessID := httpx.BusinessID(r)
	if businessID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "business_id is required")
		return
	}
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.EntryID) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "entry_id is required")
		return
	}
	changed, err := h.queue.Transition(r.Context(), businessID, strings.TrimSpace(req.EntryID), req.Status)
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, transitionResponse{Changed: changed})
}

// Stream serves GET /api/v1/public/queue/stream as Server-Sent Events. The
// current board is sent on connect and again after every queue change.
func (h *QueueHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	businessID := httpx.BusinessID(r)
	if businessID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "business_id is required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	changes := make(chan changefeed.Change, 16)
	stop, err := h.queue.Watch(ctx, businessID, func(c changefeed.Change) {
		select {
		case changes <- c:
		default:
		}
	})
	if err != nil {
		httpx.WriteDomainError(w, r, h.logger, err)
		return
	}
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := h.sendBoard(ctx, w, businessID); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			if err := h.sendBoard(ctx, w, businessID); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *QueueHandler) sendBoard(ctx context.Context, w http.ResponseWriter, businessID string) error {
	board, err := h.queue.Board(ctx, businessID, "")
	if err != nil {
		h.logger.Warn("queue board refresh failed", "business_id", businessID, "err", err)
		_, werr := fmt.Fprintf(w, "event: error\ndata: {\"error\":\"board unavailable\"}\n\n")
		return werr
	}
	body, err := json.Marshal(board)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: board\ndata: %s\n\n", body)
	return err
}
