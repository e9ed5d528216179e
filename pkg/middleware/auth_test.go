package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/logger"
)

func staticValidator(claims *Claims, err error) TokenValidator {
	return func(token string) (*Claims, error) {
		if token != "good-token" {
			return nil, errors.New("bad token")
		}
		return claims, err
	}
}

func TestAuth(t *testing.T) {
	validate := staticValidator(&Claims{UserID: "u-1", Role: "admin"}, nil)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good-token", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good-token", http.StatusOK},
		{"scheme case-insensitive", "bearer good-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID, gotRole string
			h := Auth(validate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID = UserIDFromContext(r.Context())
				gotRole = RoleFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "u-1", gotID)
				assert.Equal(t, "ADMIN", gotRole)
			} else {
				assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}

func TestAuth_RejectsClaimsWithoutUser(t *testing.T) {
	h := Auth(staticValidator(&Claims{Role: "USER"}, nil))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_SetsLoggerCaller(t *testing.T) {
	var id, role string
	h := Auth(staticValidator(&Claims{UserID: "u-9", Role: "business"}, nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, role = logger.CallerFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "u-9", id)
	assert.Equal(t, "BUSINESS", role)
}

func TestRequireRole(t *testing.T) {
	validate := func(token string) (*Claims, error) { return &Claims{UserID: "u", Role: token}, nil }
	h := Auth(validate)(RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	for role, want := range map[string]int{
		"ADMIN":    http.StatusNoContent,
		"Admin":    http.StatusNoContent,
		"BUSINESS": http.StatusForbidden,
		"USER":     http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPatch, "/", nil)
		req.Header.Set("Authorization", "Bearer "+role)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}

func TestRequireRole_NoAuthContext(t *testing.T) {
	h := RequireRole("ADMIN")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)
}
