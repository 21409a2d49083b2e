package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dinein-order-services/internal/auth"
)

const testSecret = "middleware-secret"

func bearer(t *testing.T, userID string, role auth.StaffRole) string {
	t.Helper()
	token, err := auth.SignAccessToken(userID, role, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	code, _ := body["error"].(string)
	return code
}

func TestStaffAuth(t *testing.T) {
	var seen *auth.Claims
	handler := StaffAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetStaff(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, "9", auth.RoleCashier))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, int64(9), seen.ActorID())
}

func TestRequireManager(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := StaffAuth(testSecret)(RequireManager()(ok))

	cases := []struct {
		role auth.StaffRole
		want int
	}{
		{auth.RoleCashier, http.StatusForbidden},
		{auth.RoleManager, http.StatusOK},
		{auth.RoleOwner, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set("Authorization", bearer(t, "3", tc.role))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	RequireManager()(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestID(t *testing.T) {
	var fromCtx string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-Id", "corr-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "corr-1", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "corr-1", fromCtx)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-Id"), 32)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), fromCtx)
}

func TestTelemetryLogsActorAndLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := chi.NewRouter()
	r.Use(Telemetry(zap.New(core)))
	r.With(StaffAuth(testSecret)).Get("/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/12", nil)
	req.Header.Set("Authorization", bearer(t, "5", auth.RoleManager))
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/orders/{orderId}", fields["routePattern"])
	assert.Equal(t, int64(404), fields["status"])
	assert.Equal(t, int64(5), fields["actorId"])
	assert.Equal(t, "MANAGER", fields["role"])
}

func TestPercentile(t *testing.T) {
	values := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, int64(5), percentile(values, 0.5))
	assert.Equal(t, int64(10), percentile(values, 0.95))
	assert.Equal(t, int64(0), percentile(nil, 0.5))
}
