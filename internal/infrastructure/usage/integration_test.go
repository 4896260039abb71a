//go:build integration

package usage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/usage"
)

// These tests need a local InfluxDB v2 answering on 127.0.0.1:8086 with
// the dev token:
//
//	go test -tags=integration -count=1 ./internal/infrastructure/usage/...
//
// They verify real writes land without async errors, which the unit
// tests cannot observe.

func integrationConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "graylogic-dev-token",
		Org:           "graylogic",
		Bucket:        "blueprints",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// mustConnect dials the local InfluxDB and fails the test when it is
// not reachable.
func mustConnect(t *testing.T) *usage.Client {
	t.Helper()
	client, err := usage.Connect(context.Background(), integrationConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// captureWriteErrors registers an error callback and returns a getter
// for the first async write error seen.
func captureWriteErrors(client *usage.Client) func() error {
	var mu sync.Mutex
	var first error
	client.SetOnError(func(err error) {
		mu.Lock()
		if first == nil {
			first = err
		}
		mu.Unlock()
	})
	return func() error {
		mu.Lock()
		defer mu.Unlock()
		return first
	}
}

func TestIntegration_ConnectAndHealthCheck(t *testing.T) {
	client := mustConnect(t)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestIntegration_DefaultBatchSettings(t *testing.T) {
	cfg := integrationConfig()
	cfg.BatchSize = 0
	cfg.FlushInterval = 0

	client, err := usage.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() with zero batch settings error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestIntegration_WriteBlueprintUsage(t *testing.T) {
	client := mustConnect(t)
	writeErr := captureWriteErrors(client)

	client.WriteBlueprintUsage("automation", "motion_light.yaml", usage.EventInstantiate)
	client.WriteBlueprintUsage("automation", "imported.yaml", usage.EventImport)
	client.Flush()

	// Async errors trail the flush slightly.
	time.Sleep(100 * time.Millisecond)
	if err := writeErr(); err != nil {
		t.Errorf("async write error: %v", err)
	}
}

func TestIntegration_WritePoint(t *testing.T) {
	client := mustConnect(t)
	writeErr := captureWriteErrors(client)

	client.WritePoint("registry_cache",
		map[string]string{"domain": "automation", "event": "cache_reset"},
		map[string]any{"dropped": 12},
	)
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := writeErr(); err != nil {
		t.Errorf("async write error: %v", err)
	}
}

func TestIntegration_Close(t *testing.T) {
	client := mustConnect(t)

	client.WriteBlueprintUsage("automation", "close-test.yaml", usage.EventInstantiate)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Close is idempotent; the cleanup hook closes again.
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
