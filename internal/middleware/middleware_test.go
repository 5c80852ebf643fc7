package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awesomeproject/service/internal/auth"
)

const secret = "test-secret"

func echoRole() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(UserRoleKey).(string)
		id, _ := r.Context().Value(UserIDKey).(string)
		_, _ = w.Write([]byte(id + ":" + role))
	})
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	raw, err := auth.IssueToken(secret, auth.Claims{UserID: "u-1", Role: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + raw
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(secret)(echoRole())

	for name, tc := range map[string]struct {
		header string
		code   int
	}{
		"missing header": {"", http.StatusUnauthorized},
		"wrong scheme":   {"Basic abc", http.StatusUnauthorized},
		"bad token":      {"Bearer nope", http.StatusUnauthorized},
		"valid":          {bearer(t, auth.RoleUser), http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.code, rec.Code, name)
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireAuth(secret)(RequireRole(auth.RoleStaff)(echoRole()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, auth.RoleUser))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req.Header.Set("Authorization", bearer(t, auth.RoleStaff))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1:staff", rec.Body.String())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/brew", nil))

	assert.Contains(t, buf.String(), "method=POST")
	assert.Contains(t, buf.String(), "path=/brew")
	assert.Contains(t, buf.String(), "status=418")
}
