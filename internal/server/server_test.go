package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/horarium/internal/app"
	"github.com/ternarybob/horarium/internal/common"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Database.URL = "sqlite://" + t.TempDir() + "/jobs.db"
	cfg.Jobs.DefinitionsDir = ""

	application, err := app.New(cfg, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { application.Close() })

	s := New(application)
	ts := httptest.NewServer(s.withMiddleware(s.router))
	t.Cleanup(ts.Close)

	return ts
}

func TestHealthAndVersionRoutes(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])

	resp, err = http.Get(ts.URL + "/api/version")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownAPIRouteReturnsJSON404(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/nonsense")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestJobRoutesRoundTrip(t *testing.T) {
	ts := setupTestServer(t)

	// Create
	body := `{"name":"t1","cron":"*/1 * * * * *","task_type":"print","payload":"{\"message\":\"hi\"}"}`
	resp, err := http.Post(ts.URL+"/api/jobs", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "scheduled", created["status"])

	// Get
	resp, err = http.Get(ts.URL + "/api/jobs/" + id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// List
	resp, err = http.Get(ts.URL + "/api/jobs")
	require.NoError(t, err)
	var jobs []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jobs))
	resp.Body.Close()
	assert.Len(t, jobs, 1)

	// Update
	update := `{"name":"t1","cron":"*/2 * * * * *","task_type":"print","payload":"{\"message\":\"hi\"}"}`
	req, err := http.NewRequest("PUT", ts.URL+"/api/jobs/"+id, bytes.NewBufferString(update))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Delete
	req, err = http.NewRequest("DELETE", ts.URL+"/api/jobs/"+id, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Gone
	resp, err = http.Get(ts.URL + "/api/jobs/" + id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestInvalidCronRejectedBeforePersist(t *testing.T) {
	ts := setupTestServer(t)

	body := `{"name":"bad","cron":"not a cron","task_type":"print","payload":"{}"}`
	resp, err := http.Post(ts.URL+"/api/jobs", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/jobs")
	require.NoError(t, err)
	var jobs []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jobs))
	resp.Body.Close()
	assert.Empty(t, jobs)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := setupTestServer(t)

	req, err := http.NewRequest("PATCH", ts.URL+"/api/jobs", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
