package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	thoughtModels "thoughtbox/internal/domain/models/thought"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (ts *testServer) createThought(t *testing.T, user, body string) thoughtModels.Thought {
	t.Helper()
	var th thoughtModels.Thought
	resp := ts.do(t, user, http.MethodPost, "/api/thoughts", body, &th)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return th
}

func TestRoutes_RequireAuth(t *testing.T) {
	ts := newTestServer(t, 10)

	var p problem
	resp := ts.do(t, "", http.MethodGet, "/api/thoughts", "", &p)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.Equal(t, http.StatusUnauthorized, p.Status)

	var health healthResponse
	resp = ts.do(t, "", http.MethodGet, "/health", "", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health.Database)
}

func TestThoughtRoutes_CreateGetList(t *testing.T) {
	ts := newTestServer(t, 10)
	th := ts.createThought(t, alice, `{"title":"Ideas","content":[{"type":"paragraph","children":[{"text":"hi"}]}]}`)
	assert.Equal(t, "Ideas", th.Title)
	assert.True(t, th.IsPrivate)

	var got thoughtModels.Thought
	resp := ts.do(t, alice, http.MethodGet, "/api/thoughts/"+th.ID, "", &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, th.ID, got.ID)

	var p problem
	resp = ts.do(t, bob, http.MethodGet, "/api/thoughts/"+th.ID, "", &p)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var list []thoughtModels.Thought
	ts.do(t, alice, http.MethodGet, "/api/thoughts", "", &list)
	assert.Len(t, list, 1)
	ts.do(t, bob, http.MethodGet, "/api/thoughts", "", &list)
	assert.Empty(t, list)

	resp = ts.do(t, alice, http.MethodDelete, "/api/thoughts/"+th.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestThoughtRoutes_RejectBadBodies(t *testing.T) {
	ts := newTestServer(t, 10)

	resp := ts.do(t, alice, http.MethodPost, "/api/thoughts", `{"title":"x","colour":"red"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown fields are rejected")

	resp = ts.do(t, alice, http.MethodPost, "/api/thoughts", `{"title":`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	th := ts.createThought(t, alice, `{"title":"Ideas"}`)
	var p problem
	resp = ts.do(t, alice, http.MethodPut, "/api/thoughts/"+th.ID+"/content",
		`{"content":[{"type":"quote","children":[{"text":"x"}]}]}`, &p)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, p.Detail, "validation failed")
}

func TestUpdateThought_Description(t *testing.T) {
	ts := newTestServer(t, 10)
	th := ts.createThought(t, alice, `{"title":"Ideas"}`)
	path := "/api/thoughts/" + th.ID

	var got thoughtModels.Thought
	resp := ts.do(t, alice, http.MethodPatch, path, `{"title":"Plans","description":"weekly"}`, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, got.Description)
	assert.Equal(t, "weekly", *got.Description)

	got = thoughtModels.Thought{}
	ts.do(t, alice, http.MethodPatch, path, `{"title":"Plans"}`, &got)
	require.NotNil(t, got.Description, "absent leaves the description alone")

	got = thoughtModels.Thought{}
	ts.do(t, alice, http.MethodPatch, path, `{"title":"Plans","description":null}`, &got)
	assert.Nil(t, got.Description, "null clears it")

	resp = ts.do(t, alice, http.MethodPatch, path, `{"title":"  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVersionRoutes(t *testing.T) {
	ts := newTestServer(t, 10)
	th := ts.createThought(t, alice, `{"title":"Ideas"}`)
	base := "/api/thoughts/" + th.ID

	var v thoughtModels.Version
	resp := ts.do(t, alice, http.MethodPost, base+"/versions", "", &v)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 2, v.VersionNumber)
	assert.False(t, v.IsCore)

	resp = ts.do(t, alice, http.MethodPut, base+"/selected-version", `{"version_id":"`+v.ID+`"}`, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, alice, http.MethodPut, base+"/content", `{"content":[{"type":"code","children":[{"text":"x := 1"}]}]}`, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var sel thoughtModels.Version
	ts.do(t, alice, http.MethodGet, base+"/selected-version", "", &sel)
	assert.Equal(t, v.ID, sel.ID)
	require.Len(t, sel.Content, 1)

	var p problem
	resp = ts.do(t, alice, http.MethodDelete, base+"/versions/"+*th.SelectedVersion, "", &p)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "core version cannot be deleted")

	resp = ts.do(t, alice, http.MethodDelete, base+"/versions/"+v.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	ts.do(t, alice, http.MethodGet, base+"/selected-version", "", &sel)
	assert.True(t, sel.IsCore, "deleting the selected version falls back to core")

	var list []thoughtModels.Version
	ts.do(t, alice, http.MethodGet, base+"/versions", "", &list)
	assert.Len(t, list, 1)
}

func TestShareRoutes(t *testing.T) {
	ts := newTestServer(t, 10)
	th := ts.createThought(t, alice, `{"title":"Ideas"}`)

	var share shareResponse
	resp := ts.do(t, alice, http.MethodPost, "/api/thoughts/"+th.ID+"/share", "", &share)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://thoughts.example/shared/tok-"+th.ID, share.ThoughtLink)

	var joined thoughtModels.SharedThought
	resp = ts.do(t, bob, http.MethodPost, "/api/shared/tok-"+th.ID, "", &joined)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, th.ID, joined.ThoughtID)

	resp = ts.do(t, bob, http.MethodDelete, "/api/thoughts/"+th.ID+"/share", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, alice, http.MethodDelete, "/api/thoughts/"+th.ID+"/share", "", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, bob, http.MethodPost, "/api/shared/tok-"+th.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestThoughtRoutes_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t, 10)
	body := `{"title":"` + strings.Repeat("a", 3<<20) + `"}`

	// Served in-process; over the network the client may see the early
	// close before the response.
	req := httptest.NewRequest(http.MethodPost, "/api/thoughts", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer token-"+alice)
	rec := httptest.NewRecorder()
	ts.Config.Handler.ServeHTTP(rec, req)

	var p problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "request body is too large", p.Detail)
}
