package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"lookstudioapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionOk(t *testing.T) {
	env := setupTestServer(t)
	created := env.createSession(t)

	assert.NotEmpty(t, created.SessionID)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, created.SessionID, created.State.SessionID)
	assert.Equal(t, []string{"Original"}, created.State.History)
	assert.Equal(t, "me.png", created.State.OriginalName)

	req := test.NewJSONRequest("GET", "/studio/state", nil)
	req.Header.Add("Authorization", "Bearer "+created.Token)
	rec := env.serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.SessionID, decodeState(t, rec).SessionID)
}

func TestCreateSessionRequiresImage(t *testing.T) {
	env := setupTestServer(t)
	rec := env.serve(test.NewMultipartRequest("POST", "/studio/sessions", "", "", nil, map[string]string{"note": "x"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "image")
	assert.Equal(t, 0, env.registry.Count())
}

func TestCreateSessionRejectsNonImage(t *testing.T) {
	env := setupTestServer(t)
	rec := env.serve(test.NewMultipartRequest("POST", "/studio/sessions", "image", "notes.txt", []byte("just some text"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUndoWithNothingToUndo(t *testing.T) {
	env := setupTestServer(t)
	created := env.createSession(t)

	rec := env.serve(test.NewJSONAuthRequest("POST", "/studio/undo", created.SessionID, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "nothing to undo", body.Error)
	assert.Equal(t, "nothing to undo", body.State.Error)
}

func TestImagesAndRestart(t *testing.T) {
	env := setupTestServer(t)
	created := env.createSession(t)

	rec := env.serve(test.NewJSONAuthRequest("GET", "/studio/images/current", created.SessionID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, test.PNGBytes(40, 80), rec.Body.Bytes())

	rec = env.serve(test.NewMultipartAuthRequest("POST", "/studio/restart", created.SessionID, "image", "other.png", test.PNGBytes(8, 8), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "other.png", decodeState(t, rec).OriginalName)

	rec = env.serve(test.NewJSONAuthRequest("GET", "/studio/images/original", created.SessionID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, test.PNGBytes(8, 8), rec.Body.Bytes())
}

func TestEndSession(t *testing.T) {
	env := setupTestServer(t)
	created := env.createSession(t)

	rec := env.serve(test.NewJSONAuthRequest("DELETE", "/studio/session", created.SessionID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.serve(test.NewJSONAuthRequest("GET", "/studio/state", created.SessionID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
