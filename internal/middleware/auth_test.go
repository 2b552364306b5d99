package middleware

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/internal/util"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGuard struct {
	outcomes map[string]service.SessionOutcome
	seen     []string
}

func (g *stubGuard) Check(_ context.Context, rawToken string) service.SessionOutcome {
	g.seen = append(g.seen, rawToken)
	if rawToken == "" {
		return service.SessionOutcome{Reason: service.ReasonNoCredential}
	}
	if outcome, ok := g.outcomes[rawToken]; ok {
		return outcome
	}
	return service.SessionOutcome{Reason: service.ReasonInvalidCredential}
}

func newGuard() *stubGuard {
	return &stubGuard{outcomes: map[string]service.SessionOutcome{
		"student": {Authorized: true, Claims: &util.Claims{AccountID: 1, AccountType: model.AccountStudent, Role: model.RoleStudent}},
		"tutor":   {Authorized: true, Claims: &util.Claims{AccountID: 2, AccountType: model.AccountTutor, Role: model.RoleTutor}},
		"admin":   {Authorized: true, Claims: &util.Claims{AccountID: 3, AccountType: model.AccountTutor, Role: model.RoleAdmin}},
		"old":     {Reason: service.ReasonSuperseded},
		"flaky":   {Reason: service.ReasonUnverifiable},
	}}
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(guard SessionChecker, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{SessionAuth(guard, "token")}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"uid": claims.AccountID})
	})
	r.GET("/me", handlers...)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) util.Response {
	t.Helper()
	var resp util.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSessionAuthRejections(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		message string
	}{
		{"missing", "", "authentication required"},
		{"forged", "Bearer forged", "invalid or expired credential"},
		{"superseded", "Bearer old", "session expired, logged in elsewhere"},
		{"unverifiable", "Bearer flaky", "session could not be verified"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(newGuard())
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tc.message, resp.Message)
		})
	}
}

func TestSessionAuthPrefersCookie(t *testing.T) {
	guard := newGuard()
	r := newRouter(guard)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "student"})
	req.Header.Set("Authorization", "Bearer old")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"student"}, guard.seen)
}

func TestSessionAuthFallsBackToBearerWhenCookieStale(t *testing.T) {
	guard := newGuard()
	r := newRouter(guard)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "old"})
	req.Header.Set("Authorization", "Bearer tutor")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"old", "tutor"}, guard.seen)
}

func TestSessionAuthReportsCookieOutcomeWhenBothFail(t *testing.T) {
	r := newRouter(newGuard())
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "old"})
	req.Header.Set("Authorization", "Bearer forged")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "session expired, logged in elsewhere", decode(t, w).Message)
}

func TestRoleGuards(t *testing.T) {
	cases := []struct {
		name   string
		token  string
		mw     gin.HandlerFunc
		status int
	}{
		{"student route allows student", "student", StudentOnly(), http.StatusOK},
		{"student route rejects tutor", "tutor", StudentOnly(), http.StatusForbidden},
		{"tutor route allows tutor", "tutor", RoleMiddleware(model.RoleTutor), http.StatusOK},
		{"tutor route allows admin", "admin", RoleMiddleware(model.RoleTutor), http.StatusOK},
		{"tutor route rejects student", "student", RoleMiddleware(model.RoleTutor), http.StatusForbidden},
		{"admin route rejects tutor", "tutor", RoleMiddleware(model.RoleAdmin), http.StatusForbidden},
		{"admin route allows admin", "admin", RoleMiddleware(model.RoleAdmin), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(newGuard(), tc.mw)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer "+tc.token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestOptionalSessionAuth(t *testing.T) {
	r := gin.New()
	r.GET("/courses/1", OptionalSessionAuth(newGuard(), "token"), func(c *gin.Context) {
		if claims := util.GetUserFromContext(c); claims != nil {
			c.String(http.StatusOK, "member")
			return
		}
		c.String(http.StatusOK, "guest")
	})

	for token, want := range map[string]string{"": "guest", "old": "guest", "student": "member"} {
		req := httptest.NewRequest(http.MethodGet, "/courses/1", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, w.Body.String())
	}
}
