// Package config loads and validates the blueprint service
// configuration.
//
// Values are resolved in three layers: hard-coded defaults, then the
// YAML config file, then BLUEPRINTD_* environment variables. Secrets
// (the JWT signing key, MQTT and InfluxDB credentials) belong in the
// environment, not in the file.
//
// Validation runs once at load time. A config that passes Load is safe
// to hand to every component without further checks; in particular the
// domain list is already in slug form and the blueprint root is set.
//
//	cfg, err := config.Load("configs/blueprintd.yaml")
//	if err != nil {
//	    return err
//	}
//	root := cfg.Core.BlueprintRoot
package config
