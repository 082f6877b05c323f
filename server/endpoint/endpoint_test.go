package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/fuisce/component"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	r := gin.New()
	r.GET("/x", h)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return rr, body
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		statuses []component.HealthStatus
		want     component.HealthStatus
		code     int
	}{
		{"no components", nil, component.StatusHealthy, http.StatusOK},
		{"healthy", []component.HealthStatus{component.StatusHealthy}, component.StatusHealthy, http.StatusOK},
		{"degraded", []component.HealthStatus{component.StatusHealthy, component.StatusDegraded}, component.StatusDegraded, http.StatusOK},
		{"unhealthy wins", []component.HealthStatus{component.StatusUnhealthy, component.StatusDegraded}, component.StatusUnhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := func(context.Context) []component.Health {
				var out []component.Health
				for _, s := range tt.statuses {
					out = append(out, component.Health{Name: "c", Status: s})
				}
				return out
			}
			rr, body := serve(t, Health("app", checker))
			if rr.Code != tt.code {
				t.Errorf("code = %d, want %d", rr.Code, tt.code)
			}
			if body["status"] != string(tt.want) || body["app"] != "app" {
				t.Errorf("unexpected body %v", body)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	rr, body := serve(t, Version())
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d", rr.Code)
	}
	if _, ok := body["version"]; !ok {
		t.Errorf("expected version field, got %v", body)
	}
}
