package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// SafeRedirect is where clients should navigate when a referenced business or
// appointment no longer resolves.
const SafeRedirect = "/"

type errorBody struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorBody{Error: msg})
}

// WriteNotFound answers 404 with a redirect hint instead of a bare failure.
func WriteNotFound(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusNotFound, errorBody{Error: msg, Redirect: SafeRedirect})
}

// DecodeJSON decodes a single JSON object and rejects unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid json body")
	}
	return nil
}

// BusinessID returns the tenant scope resolved by the gateway. Public endpoints
// may carry it as a query parameter instead.
func BusinessID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(BusinessIDHeader)); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get("business_id"))
}
