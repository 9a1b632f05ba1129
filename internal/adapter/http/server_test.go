package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/storm-data-radar/internal/adapter/http"
	"github.com/couchcryptid/storm-data-radar/internal/domain"
	"github.com/couchcryptid/storm-data-radar/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type fakeStatus map[string]pipeline.Status

func (f fakeStatus) Statuses() []pipeline.Status {
	out := make([]pipeline.Status, 0, len(f))
	for _, s := range f {
		out = append(out, s)
	}
	return out
}

func (f fakeStatus) SensorStatus(id string) (pipeline.Status, bool) {
	s, ok := f[id]
	return s, ok
}

func newTestServer(readyErr error, status httpadapter.StatusSource) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, status, logger)
}
func get(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("no grids yet"), nil), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no grids yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusBeforeFirstGrid(t *testing.T) {
	rec := get(newTestServer(nil, fakeStatus{}), "/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = get(newTestServer(nil, nil), "/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusListsSensors(t *testing.T) {
	status := fakeStatus{"KTLX": {SensorID: "KTLX", Stats: domain.GridStats{Resolved: 12}}}
	rec := get(newTestServer(nil, status), "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body struct {
		Sensors []pipeline.Status `json:"sensors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sensors, 1)
	assert.Equal(t, "KTLX", body.Sensors[0].SensorID)
	assert.Equal(t, 12, body.Sensors[0].Stats.Resolved)
}

func TestStatusForSensor(t *testing.T) {
	status := fakeStatus{"KTLX": {SensorID: "KTLX", ProductID: "p-1"}}
	srv := newTestServer(nil, status)

	rec := get(srv, "/status/KTLX")
	assert.Equal(t, http.StatusOK, rec.Code)
	var got pipeline.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "p-1", got.ProductID)

	rec = get(srv, "/status/KOUN")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "KOUN", body["sensor_id"])
}

func TestUnknownMethodRejected(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
