package server

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestSetupTelemetryDisabled(t *testing.T) {
	shutdown, err := SetupTelemetry(context.Background(), TelemetryConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if Tracer("test") == nil {
		t.Fatal("nil tracer")
	}
}

func TestSetupTelemetryEnabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := SetupTelemetry(context.Background(), TelemetryConfig{
		Enabled:     true,
		Endpoint:    "http://127.0.0.1:4318/v1/traces",
		ServiceName: "miniarpg-test",
	})
	if err != nil {
		t.Fatal(err)
	}
	if otel.GetTracerProvider() == prev {
		t.Fatal("global provider was not replaced")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// 没有 span 待导出，关闭不依赖收集端
	if err := shutdown(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestSessionMetricsSnapshot(t *testing.T) {
	var m SessionMetrics
	m.AddTick(2e6)
	m.AddTick(4e6)
	m.AddTransitions(5)
	m.IncInputsAccepted()
	m.IncInputsDropped()

	snap := m.Snapshot()
	if snap["tick_count"].(int64) != 2 || snap["transitions"].(int64) != 5 {
		t.Fatalf("snapshot = %v", snap)
	}
	if snap["avg_tick_ms"].(float64) != 3 {
		t.Fatalf("avg = %v, want 3", snap["avg_tick_ms"])
	}
	if snap["inputs_accepted"].(int64) != 1 || snap["inputs_dropped"].(int64) != 1 {
		t.Fatalf("snapshot = %v", snap)
	}
}
