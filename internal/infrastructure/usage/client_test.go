package usage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/usage"
)

func TestConnect_Disabled(t *testing.T) {
	cfg := config.InfluxDBConfig{Enabled: false}

	_, err := usage.Connect(context.Background(), cfg)
	if !errors.Is(err, usage.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:59999",
		Token:   "irrelevant",
		Org:     "test",
		Bucket:  "test",
	}

	_, err := usage.Connect(context.Background(), cfg)
	if !errors.Is(err, usage.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// A zero-value client must absorb every call, since the daemon carries
// a nil-ish writer whenever the usage section is disabled.
func TestClient_ZeroValue(t *testing.T) {
	var client usage.Client

	if client.IsConnected() {
		t.Error("IsConnected() = true on zero-value client")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Writes and flushes on a disconnected client are silent no-ops.
	client.WriteBlueprintUsage("automation", "motion_light.yaml", usage.EventInstantiate)
	client.WritePoint("registry_cache", map[string]string{"domain": "automation"}, map[string]any{"dropped": 3})
	client.Flush()

	if err := client.HealthCheck(context.Background()); !errors.Is(err, usage.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}
