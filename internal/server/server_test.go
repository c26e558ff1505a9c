package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/vamp/backend/internal/config"
	"github.com/emilythestrangee/vamp/backend/internal/memstore"
	"github.com/emilythestrangee/vamp/backend/internal/middleware"
	"github.com/emilythestrangee/vamp/backend/internal/server"
)

const secret = "test-secret"

type harness struct {
	t      *testing.T
	router *gin.Engine
}

func newHarness(t *testing.T, health server.HealthFunc) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	cfg := &config.Config{
		Port:        8080,
		Environment: "test",
		JWTSecret:   secret,
		CORSOrigins: []string{"*"},
	}
	srv := server.New(cfg, log, memstore.New(), health)
	return &harness{t: t, router: srv.RegisterRoutes()}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	return namedToken(t, userID, userID, role)
}

func namedToken(t *testing.T, userID, username, role string) string {
	t.Helper()
	claims := middleware.Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// do sends body as JSON with an optional bearer token and decodes the
// response into a generic map.
func (h *harness) do(method, path, bearer string, body any) (int, map[string]any) {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	out := map[string]any{}
	if strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func (h *harness) list(path string) (int, []map[string]any) {
	h.t.Helper()
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var out []map[string]any
	require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func TestGrantLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	sam := token(t, "sam", "SPONSOR")
	alice := token(t, "alice", "BUILDER")
	bob := token(t, "bob", "BUILDER")

	code, grant := h.do(http.MethodPost, "/api/grants", sam, map[string]any{
		"title":       "Build Week",
		"description": "Ship something in seven days",
		"amount":      "500.00",
	})
	require.Equal(t, http.StatusCreated, code, grant)
	grantID := grant["id"].(string)
	assert.Equal(t, "OPEN", grant["status"])

	code, body := h.do(http.MethodPost, "/api/projects", alice, map[string]any{
		"title":    "Vibe Coder",
		"grant_id": grantID,
	})
	require.Equal(t, http.StatusCreated, code, body)
	projectID := body["project"].(map[string]any)["id"].(string)
	app := body["application"].(map[string]any)
	appID := app["id"].(string)
	assert.Equal(t, "PENDING", app["status"])

	code, body = h.do(http.MethodPost, "/api/grants/"+grantID+"/applications", alice, map[string]any{"project_id": projectID})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_applied", body["code"])

	code, body = h.do(http.MethodPost, "/api/grants/"+grantID+"/applications", bob, map[string]any{"project_id": projectID})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", body["code"])

	code, body = h.do(http.MethodPatch, "/api/applications/"+appID+"/status", bob, map[string]any{"status": "APPROVED"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", body["code"])

	code, _ = h.do(http.MethodPatch, "/api/applications/"+appID+"/status", sam, map[string]any{"status": "WITHDRAWN"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = h.do(http.MethodPatch, "/api/applications/"+appID+"/status", sam, map[string]any{"status": "APPROVED"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "APPROVED", body["status"])

	code, body = h.do(http.MethodGet, "/api/users/alice/vibe-score", "", nil)
	require.Equal(t, http.StatusOK, code)
	total, err := decimal.NewFromString(body["total_grant_amount"].(string))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(500)), total.String())
	assert.Equal(t, float64(1), body["grants_received"])

	code, _ = h.do(http.MethodGet, "/api/users/nobody/vibe-score", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = h.do(http.MethodGet, "/api/dashboard/grants/"+grantID, sam, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["counts"].(map[string]any)["approved"])

	code, _ = h.do(http.MethodGet, "/api/dashboard/grants/"+grantID, alice, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = h.do(http.MethodPatch, "/api/grants/"+grantID+"/status", sam, map[string]any{"status": "CLOSED"})
	require.Equal(t, http.StatusOK, code, body)

	code, grants := h.list("/api/grants")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, grants)

	code, body = h.do(http.MethodPost, "/api/grants/"+grantID+"/applications", alice, map[string]any{"project_id": projectID})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "not_open", body["code"])
}

func TestCreateGrantRequiresSponsor(t *testing.T) {
	h := newHarness(t, nil)

	code, body := h.do(http.MethodPost, "/api/grants", token(t, "alice", "BUILDER"), map[string]any{
		"title":       "Nope",
		"description": "Builders cannot fund",
		"amount":      "10",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", body["code"])

	code, _ = h.do(http.MethodPost, "/api/grants", token(t, "sam", "SPONSOR"), map[string]any{
		"title":       "Free money",
		"description": "Zero is not an amount",
		"amount":      "0",
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestVoteRoutes(t *testing.T) {
	h := newHarness(t, nil)
	alice := token(t, "alice", "BUILDER")
	bob := token(t, "bob", "BUILDER")
	carol := token(t, "carol", "BUILDER")

	code, project := h.do(http.MethodPost, "/api/projects", alice, map[string]any{"title": "Vibe Coder"})
	require.Equal(t, http.StatusCreated, code)
	projectID := project["project"].(map[string]any)["id"].(string)

	code, thread := h.do(http.MethodPost, "/api/threads", alice, map[string]any{
		"title":   "Show your stack",
		"content": "What are you all shipping with this week?",
	})
	require.Equal(t, http.StatusCreated, code, thread)
	threadID := thread["id"].(string)

	steps := []struct {
		bearer string
		path   string
		voted  bool
		count  float64
	}{
		{bob, "/api/projects/" + projectID + "/vote", true, 1},
		{carol, "/api/projects/" + projectID + "/vote", true, 2},
		{bob, "/api/projects/" + projectID + "/vote", false, 1},
		{bob, "/api/threads/" + threadID + "/vote", true, 1},
	}
	for _, s := range steps {
		code, body := h.do(http.MethodPost, s.path, s.bearer, nil)
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, s.voted, body["voted"])
		assert.Equal(t, s.count, body["new_count"])
	}

	code, body := h.do(http.MethodGet, "/api/projects/"+projectID, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["vote_count"])

	code, body = h.do(http.MethodPost, "/api/projects/"+projectID+"/vote", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthenticated", body["code"])

	code, body = h.do(http.MethodPost, "/api/projects/missing/vote", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["code"])

	code, _ = h.do(http.MethodPost, "/api/projects/"+projectID+"/vote", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, entries := h.list("/api/leaderboard")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0]["username"])
	assert.Equal(t, float64(1), entries[0]["vibe_score"])
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, func() map[string]string { return map[string]string{"status": "down"} })

	code, body := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "down", body["status"])

	_, _ = h.do(http.MethodPost, "/api/projects/x/vote", token(t, "bob", "BUILDER"), nil)

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vamp_voting_votes_toggled_total")
	assert.Contains(t, w.Body.String(), "vamp_http_requests_total")
}

func TestSharedUsernameResolvesBothActors(t *testing.T) {
	h := newHarness(t, nil)

	code, first := h.do(http.MethodGet, "/api/me", namedToken(t, "id-one", "sam", "SPONSOR"), nil)
	require.Equal(t, http.StatusOK, code, first)
	assert.Equal(t, "sam", first["username"])

	for i := 0; i < 2; i++ {
		code, second := h.do(http.MethodGet, "/api/me", namedToken(t, "id-two", "sam", "BUILDER"), nil)
		require.Equal(t, http.StatusOK, code, second)
		assert.Equal(t, "id-two", second["id"])
		assert.Equal(t, "sam-id-two", second["username"])
	}
}

func TestRoleSelection(t *testing.T) {
	h := newHarness(t, nil)
	grant := map[string]any{"title": "Build Week", "description": "Ship something", "amount": "250"}

	code, me := h.do(http.MethodGet, "/api/me", token(t, "u1", "BUILDER"), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "BUILDER", me["role"])

	// The stored role wins over later token claims.
	code, _ = h.do(http.MethodPost, "/api/grants", token(t, "u1", "SPONSOR"), grant)
	assert.Equal(t, http.StatusForbidden, code)

	bearer := token(t, "u1", "BUILDER")
	code, me = h.do(http.MethodPatch, "/api/me/role", bearer, map[string]any{"role": "SPONSOR"})
	require.Equal(t, http.StatusOK, code, me)
	assert.Equal(t, "SPONSOR", me["role"])

	code, body := h.do(http.MethodPost, "/api/grants", bearer, grant)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "u1", body["sponsor_id"])

	for _, role := range []string{"ADMIN", "WIZARD", ""} {
		code, _ = h.do(http.MethodPatch, "/api/me/role", bearer, map[string]any{"role": role})
		assert.Equal(t, http.StatusBadRequest, code, role)
	}

	code, _ = h.do(http.MethodPatch, "/api/me/role", "", map[string]any{"role": "SPONSOR"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = h.do(http.MethodPatch, "/api/me/role", token(t, "root", "ADMIN"), map[string]any{"role": "BUILDER"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", body["code"])
}

func TestDiscussionRoutes(t *testing.T) {
	h := newHarness(t, nil)
	alice := token(t, "alice", "BUILDER")
	bob := token(t, "bob", "BUILDER")

	code, thread := h.do(http.MethodPost, "/api/threads", alice, map[string]any{
		"title":   "Show your stack",
		"content": "What are you all shipping with this week?",
	})
	require.Equal(t, http.StatusCreated, code, thread)
	threadID := thread["id"].(string)
	assert.Equal(t, float64(0), thread["reply_count"])

	code, first := h.do(http.MethodPost, "/api/threads/"+threadID+"/replies", bob, map[string]any{"content": "Go and Postgres"})
	require.Equal(t, http.StatusCreated, code, first)
	assert.Equal(t, float64(1), first["reply_count"])
	firstID := first["reply"].(map[string]any)["id"].(string)

	code, second := h.do(http.MethodPost, "/api/threads/"+threadID+"/replies", alice, map[string]any{"content": "nice", "parent_id": firstID})
	require.Equal(t, http.StatusCreated, code, second)
	assert.Equal(t, float64(2), second["reply_count"])

	code, body := h.do(http.MethodPost, "/api/threads/"+threadID+"/replies", bob, map[string]any{"content": " k "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", body["code"])

	code, _ = h.do(http.MethodPost, "/api/threads/missing/replies", bob, map[string]any{"content": "hello"})
	assert.Equal(t, http.StatusNotFound, code)

	code, body = h.do(http.MethodGet, "/api/threads/"+threadID, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["reply_count"])

	code, replies := h.list("/api/threads/" + threadID + "/replies")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, replies, 2)

	code, project := h.do(http.MethodPost, "/api/projects", alice, map[string]any{"title": "Vibe Coder"})
	require.Equal(t, http.StatusCreated, code)
	projectID := project["project"].(map[string]any)["id"].(string)

	code, comment := h.do(http.MethodPost, "/api/projects/"+projectID+"/comments", bob, map[string]any{"text": "  Love it  "})
	require.Equal(t, http.StatusCreated, code, comment)
	assert.Equal(t, "Love it", comment["text"])
	commentID := comment["id"].(string)

	code, _ = h.do(http.MethodPost, "/api/projects/"+projectID+"/comments", alice, map[string]any{"text": strings.Repeat("x", 1001)})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(http.MethodPost, "/api/projects/missing/comments", bob, map[string]any{"text": "hello"})
	assert.Equal(t, http.StatusNotFound, code)

	code, comments := h.list("/api/projects/" + projectID + "/comments")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, comments, 1)

	code, _ = h.do(http.MethodDelete, "/api/comments/"+commentID, alice, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = h.do(http.MethodDelete, "/api/comments/"+commentID, bob, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(1), body["removed"])

	code, _ = h.do(http.MethodDelete, "/api/comments/"+commentID, bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
