package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lookstudioapi/config"
	"lookstudioapi/models"
	"lookstudioapi/studio"
	"lookstudioapi/test"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	e         *echo.Echo
	registry  *studio.Registry
	generator *test.GeneratorMock
	store     *test.StoreMock
	aws       *test.AWSProviderMock
	urlCache  *test.URLCacheMock
	queue     *test.TaskEnqueuerMock
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	cfg := &config.Config{
		JWTSecret:       "test-secret",
		SessionTTL:      time.Hour,
		ExportRetention: 24 * time.Hour,
		DownloadPrefix:  "styled-",
		R2BucketName:    "bucket",
	}
	env := &testEnv{
		generator: &test.GeneratorMock{},
		store:     test.NewStoreMock(),
		aws:       &test.AWSProviderMock{},
		urlCache:  &test.URLCacheMock{},
		queue:     &test.TaskEnqueuerMock{},
	}
	env.registry = studio.NewRegistry(cfg.SessionTTL, env.generator, env.store)
	env.e = SetupServer(cfg, env.registry, env.store, env.aws, env.urlCache, env.queue)
	return env
}

func (env *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// createSession uploads a 40x80 PNG and returns the new session.
func (env *testEnv) createSession(t *testing.T) models.SessionCreatedOut {
	t.Helper()
	req := test.NewMultipartRequest("POST", "/studio/sessions", "image", "me.png", test.PNGBytes(40, 80), nil)
	rec := env.serve(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.SessionCreatedOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) models.StateOut {
	t.Helper()
	var state models.StateOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state), rec.Body.String())
	return state
}

type errorBody struct {
	Error string          `json:"error"`
	State models.StateOut `json:"state"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t)
	rec := env.serve(httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStudioRoutesRequireToken(t *testing.T) {
	env := setupTestServer(t)
	rec := env.serve(test.NewJSONRequest("GET", "/studio/state", nil))
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusUnauthorized}, rec.Code)
}

func TestUnknownSessionToken(t *testing.T) {
	env := setupTestServer(t)
	rec := env.serve(test.NewJSONAuthRequest("GET", "/studio/state", "no-such-session", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "expired")
}
