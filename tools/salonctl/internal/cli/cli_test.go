package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/salonqueue/libs/auth"
	"github.com/md-rashed-zaman/salonqueue/libs/grpcx"
	"github.com/md-rashed-zaman/salonqueue/libs/internalapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{{"reminders", "run"}, {"health"}, {"token"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "yaml", "token", "--secret", "s", "--role", "super_admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestRemindersRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != internalapi.RemindersRunPath || r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Processed 2 reminders","total":2,"successful":1,"failed":1,"skipped":0,
			"results":[{"appointment_id":"a1","status":"sent"},{"appointment_id":"a2","status":"failed","error":"smtp down"}]}`))
	}))
	defer srv.Close()

	out, err := execute(t, "reminders", "run", "--booking-url", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Equal(t, "total=2 successful=1 failed=1 skipped=0\n  a2 failed: smtp down\n", out)

	out, err = execute(t, "--format", "json", "reminders", "run", "--booking-url", srv.URL, "--token", "tok")
	require.NoError(t, err)
	var res internalapi.SweepResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Total)

	_, err = execute(t, "reminders", "run", "--booking-url", srv.URL, "--token", "wrong")
	assert.ErrorIs(t, err, internalapi.ErrUnauthorized)

	_, err = execute(t, "reminders", "run", "--booking-url", srv.URL, "--token", "")
	assert.EqualError(t, err, "--token or REMINDER_TOKEN is required")
}

func TestTokenIsVerifiable(t *testing.T) {
	out, err := execute(t, "token", "--secret", "s3cret", "--role", "staff", "--business-id", "b1", "--sub", "u1")
	require.NoError(t, err)

	claims, err := auth.ParseAndVerifyHS256(strings.TrimSpace(out), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Sub)
	assert.Equal(t, "b1", claims.BusinessID)
	assert.Equal(t, auth.RoleStaff, claims.Role)

	_, err = execute(t, "token", "--secret", "s3cret", "--role", "staff")
	assert.Error(t, err)
	_, err = execute(t, "token", "--secret", "s3cret", "--role", "owner")
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	hs := grpcx.NewHealthServer("queue-service")
	go func() { _ = hs.Serve(addr, slog.New(slog.NewTextHandler(io.Discard, nil))) }()
	defer hs.Stop()

	out, err := execute(t, "--timeout", "5s", "health", addr, "--service", "queue-service")
	require.NoError(t, err)
	assert.Equal(t, addr+" SERVING\n", out)

	hs.SetServing(false)
	out, err = execute(t, "--timeout", "5s", "health", addr, "--service", "queue-service")
	require.Error(t, err)
	assert.Equal(t, addr+" NOT_SERVING\n", out)
}
