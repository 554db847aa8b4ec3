package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func staticChecker(name string, result Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return result })
}

func TestAggregatorCheckAll(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register(staticChecker("a", Healthy("ok")))
	agg.Register(staticChecker("b", Degraded("slow")))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results["a"].Status != StatusHealthy {
		t.Errorf("a status = %v", results["a"].Status)
	}
	if results["b"].Status != StatusDegraded {
		t.Errorf("b status = %v", results["b"].Status)
	}
	if results["a"].Duration < 0 {
		t.Errorf("a duration = %s", results["a"].Duration)
	}
}

func TestAggregatorCheckByName(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register(staticChecker("a", Healthy("ok")))

	result, err := agg.Check(context.Background(), "a")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Status != StatusHealthy {
		t.Errorf("status = %v", result.Status)
	}

	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregatorUnregister(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register(staticChecker("a", Healthy("ok")))
	agg.Unregister("a")

	if results := agg.CheckAll(context.Background()); len(results) != 0 {
		t.Errorf("results after unregister = %d, want 0", len(results))
	}
}

func TestAggregatorReplacesByName(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register(staticChecker("a", Healthy("v1")))
	agg.Register(staticChecker("a", Degraded("v2")))

	results := agg.CheckAll(context.Background())
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results["a"].Message != "v2" {
		t.Errorf("message = %q, want %q", results["a"].Message, "v2")
	}
}

func TestAggregatorStuckCheckerTimesOut(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 50 * time.Millisecond})
	agg.Register(NewCheckerFunc("stuck", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(time.Minute)
		return Healthy("never")
	}))

	start := time.Now()
	results := agg.CheckAll(context.Background())
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("CheckAll took %s", elapsed)
	}

	result := results["stuck"]
	if result.Status != StatusUnhealthy {
		t.Errorf("status = %v, want %v", result.Status, StatusUnhealthy)
	}
	if !errors.Is(result.Error, ErrCheckTimeout) {
		t.Errorf("error = %v, want ErrCheckTimeout", result.Error)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", map[string]Result{}, StatusHealthy},
		{"all healthy", map[string]Result{
			"a": {Status: StatusHealthy},
			"b": {Status: StatusHealthy},
		}, StatusHealthy},
		{"one degraded", map[string]Result{
			"a": {Status: StatusHealthy},
			"b": {Status: StatusDegraded},
		}, StatusDegraded},
		{"unhealthy wins", map[string]Result{
			"a": {Status: StatusDegraded},
			"b": {Status: StatusUnhealthy},
		}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus = %v, want %v", got, tt.want)
			}
		})
	}
}
