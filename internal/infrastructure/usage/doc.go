// Package usage records blueprint usage metrics to InfluxDB.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking batched writes of blueprint_usage points
//   - Health monitoring and async write error callbacks
//
// # Data Model
//
// Each instantiate or import event produces one point:
//
//	measurement: blueprint_usage
//	tags:        domain, path, event
//	fields:      count=1
//
// Aggregating count over time windows answers "which blueprints are
// actually used" without the service keeping any local counters.
//
// # Optionality
//
// The writer is disabled by default. When influxdb.enabled is false,
// Connect returns ErrDisabled and the daemon simply skips usage
// recording; no other feature depends on it.
//
// # Usage
//
//	client, err := usage.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, usage.ErrDisabled) {
//	    // run without usage recording
//	}
//	defer client.Close()
//
//	client.WriteBlueprintUsage("automation", "motion_light.yaml", usage.EventInstantiate)
package usage
