package usage

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Usage events recorded as the "event" tag on blueprint_usage points.
const (
	EventInstantiate = "instantiate"
	EventImport      = "import"
)

// WriteBlueprintUsage queues one blueprint_usage point: which blueprint
// was touched and what happened to it. Summing count over a time window
// answers "which blueprints actually get used".
func (c *Client) WriteBlueprintUsage(domain, path, event string) {
	c.WritePoint("blueprint_usage",
		map[string]string{"domain": domain, "path": path, "event": event},
		map[string]any{"count": 1},
	)
}

// WritePoint queues a point on an arbitrary measurement, stamped with
// the current time. Tags index the point, so keep their cardinality
// low. Non-blocking; the point rides the next batch flush, and a
// disconnected client drops it.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
