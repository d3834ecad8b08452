package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/salonqueue/libs/apperr"
	"github.com/md-rashed-zaman/salonqueue/libs/validate"
)

// WriteDomainError maps a service-layer error to a response. Validation and
// conflict messages go out verbatim; anything unclassified is logged and
// reported as an opaque 500.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *validate.Error
	if errors.As(err, &ve) {
		WriteError(w, http.StatusBadRequest, ve.Message)
		return
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case apperr.KindNotFound:
			WriteNotFound(w, ae.Msg)
			return
		case apperr.KindConflict:
			WriteError(w, http.StatusConflict, ae.Msg)
			return
		case apperr.KindForbidden:
			WriteError(w, http.StatusForbidden, ae.Msg)
			return
		}
	}
	logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", RequestIDFromContext(r.Context()), "err", err)
	WriteError(w, http.StatusInternalServerError, "internal error")
}
