package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	r := Healthy("all good")
	if r.Status != StatusHealthy || r.Message != "all good" {
		t.Errorf("Healthy() = %+v", r)
	}
	if r.Timestamp.IsZero() {
		t.Error("Healthy() timestamp not set")
	}

	r = Degraded("slow")
	if r.Status != StatusDegraded {
		t.Errorf("Degraded() status = %v", r.Status)
	}

	cause := errors.New("down")
	r = Unhealthy("broken", cause)
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, cause) {
		t.Errorf("Unhealthy() = %+v", r)
	}

	r = Healthy("ok").WithDetails(map[string]any{"n": 1})
	if r.Details["n"] != 1 {
		t.Errorf("WithDetails not applied: %+v", r.Details)
	}
}

func TestCheckerFunc(t *testing.T) {
	c := NewCheckerFunc("custom", func(ctx context.Context) Result {
		return Healthy("fine")
	})
	if c.Name() != "custom" {
		t.Errorf("Name() = %q, want %q", c.Name(), "custom")
	}
	if got := c.Check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("Check() status = %v, want %v", got.Status, StatusHealthy)
	}
}
