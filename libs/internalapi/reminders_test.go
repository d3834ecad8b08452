package internalapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemindersClientRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, RemindersRunPath, r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"ok","total":3,"successful":2,"failed":0,"skipped":1}`))
	}))
	defer srv.Close()

	res, err := NewRemindersClient(srv.URL, "good", time.Second).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Skipped)

	_, err = NewRemindersClient(srv.URL, "bad", time.Second).Run(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
