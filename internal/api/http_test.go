package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysubinoy/pyazkv/internal/router"
	"github.com/heysubinoy/pyazkv/internal/store"
	"github.com/heysubinoy/pyazkv/pkg/kv"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestHTTP(t *testing.T, st kv.Store) *httptest.Server {
	t.Helper()
	m := mux.NewRouter()
	NewServer(router.New(st, discard), discard).RegisterRoutes(m)
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHTTP_Lifecycle(t *testing.T) {
	srv := newTestHTTP(t, store.NewMemStore())
	base := srv.URL + "/api/repository"

	resp, body := do(t, http.MethodPost, base, `{"key":"a","value":"1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"key": "a", "value": "1"}, body)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	resp, body = do(t, http.MethodGet, base+"/a", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"key": "a", "value": "1"}, body)

	resp, body = do(t, http.MethodDelete, base+"/a", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"key": "a", "value": "1", "is_deleted": true}, body)

	resp, body = do(t, http.MethodGet, base+"/a", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Key 'a' not found", body["detail"])

	resp, _ = do(t, http.MethodDelete, base+"/a", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTP_RejectsMalformedSave(t *testing.T) {
	st := store.NewMemStore()
	srv := newTestHTTP(t, st)
	base := srv.URL + "/api/repository"

	for _, body := range []string{
		`{`,
		`{"value":"1"}`,
		`{"key":"","value":"1"}`,
		`{"key":"a"}`,
	} {
		resp, _ := do(t, http.MethodPost, base, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.Equal(t, 0, st.Len())
}

func TestHTTP_KeepsRequestID(t *testing.T) {
	srv := newTestHTTP(t, store.NewMemStore())

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/repository/x", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc", resp.Header.Get(RequestIDHeader))
}

type brokenStore struct{}

func (brokenStore) Save(context.Context, string, string) error {
	return errors.New("connection refused")
}

func (brokenStore) Get(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func (brokenStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func TestHTTP_BackendUnavailable(t *testing.T) {
	srv := newTestHTTP(t, brokenStore{})
	base := srv.URL + "/api/repository"

	resp, _ := do(t, http.MethodPost, base, `{"key":"a","value":"1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, base+"/a", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, base+"/a", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	instrumented, err := store.NewInstrumentedStore(store.NewMemStore(), reg)
	require.NoError(t, err)
	sel := store.NewSelection(instrumented, store.KindMemory)

	m := mux.NewRouter()
	NewServer(router.New(instrumented, discard), discard).RegisterRoutes(m)
	RegisterMetrics(m, sel, instrumented, reg)
	srv := httptest.NewServer(m)
	defer srv.Close()

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/repository", `{"key":"a","value":"1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	ops := body["operations"].(map[string]any)
	assert.Equal(t, 1.0, ops["save"])
	assert.Equal(t, "memory", body["backend"].(map[string]any)["kind"])

	promResp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer promResp.Body.Close()
	text, err := io.ReadAll(promResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), `pyazkv_store_operations_total{op="save",outcome="ok"} 1`)
}
