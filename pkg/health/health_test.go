package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func TestRunAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"empty", nil, StatusUp},
		{"all up", map[string]Check{"a": PingCheck(func(context.Context) error { return nil })}, StatusUp},
		{
			"degraded",
			map[string]Check{
				"a": PingCheck(func(context.Context) error { return nil }),
				"b": func(context.Context) ComponentHealth { return ComponentHealth{Status: StatusDegraded} },
			},
			StatusDegraded,
		},
		{
			"down wins",
			map[string]Check{
				"a": func(context.Context) ComponentHealth { return ComponentHealth{Status: StatusDegraded} },
				"b": PingCheck(func(context.Context) error { return errors.New("refused") }),
			},
			StatusDown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("components = %v", report.Components)
			}
		})
	}
}

func TestWritableDirCheck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	if got := WritableDirCheck(dir)(context.Background()); got.Status != StatusUp {
		t.Errorf("status = %+v", got)
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("index", PingCheck(func(context.Context) error { return errors.New("no manifest") }))
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d", rec.Code)
	}
}
