// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/tsrec/internal/health"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRouter_Status(t *testing.T) {
	tr := &Tracker{}
	q := 21.3
	tr.Update(func(s *Snapshot) {
		s.RunID = "run-1"
		s.Mode = "record"
		s.State = StateRunning
		s.Bytes = 1880
		s.SignalQuality = &q
	})

	rec := httptest.NewRecorder()
	NewRouter(tr, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, int64(1880), got.Bytes)
	require.NotNil(t, got.SignalQuality)
	assert.Equal(t, 21.3, *got.SignalQuality)
}

func TestRouter_MetricsAndHealth(t *testing.T) {
	r := NewRouter(&Tracker{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ReadyReflectsStall(t *testing.T) {
	tr := &Tracker{}
	tr.Update(func(s *Snapshot) {
		s.State = StateRunning
		s.StartedAt = time.Now().Add(-time.Hour)
	})
	h := health.NewManager("test")
	h.RegisterChecker(health.NewStallChecker(time.Second, tr.Progress))

	rec := httptest.NewRecorder()
	NewRouter(tr, h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	tr.Update(func(s *Snapshot) { s.LastProgress = time.Now() })
	rec = httptest.NewRecorder()
	NewRouter(tr, h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTracker_SnapshotIsDetached(t *testing.T) {
	tr := &Tracker{}
	q := 10.0
	tr.Update(func(s *Snapshot) { s.SignalQuality = &q })

	snap := tr.Snapshot()
	*snap.SignalQuality = 99
	assert.Equal(t, 10.0, *tr.Snapshot().SignalQuality)
}

func TestServer_StartAndShutdown(t *testing.T) {
	tr := &Tracker{}
	tr.Update(func(s *Snapshot) { s.Mode = "decode" })

	srv, err := Start("127.0.0.1:0", tr, nil)
	require.NoError(t, err)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + srv.Addr() + "/status")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), `"mode":"decode"`)
	client.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}

func TestServer_BadAddress(t *testing.T) {
	_, err := Start("256.0.0.1:http-nope", &Tracker{}, nil)
	assert.Error(t, err)
}
