// Package blueprint implements templated configuration documents for
// Gray Logic: parameterized YAML documents ("blueprints") with named
// placeholders, stored per domain on disk, instantiated into concrete
// configurations by supplying placeholder values.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────────────┐
//	│                         Blueprint Subsystem                              │
//	│                                                                          │
//	│  ┌──────────────────┐    ┌──────────────────┐    ┌──────────────────┐   │
//	│  │  DomainRegistry  │    │      Store       │    │    Blueprint     │   │
//	│  │  (registry.go)   │───▶│   (store.go)     │    │  (blueprint.go)  │   │
//	│  │                  │    │                  │    │                  │   │
//	│  │ • Path cache     │    │ • Create-only    │    │ • Schema check   │   │
//	│  │ • Double-checked │    │   writes         │    │ • Placeholder    │   │
//	│  │   locking        │    │ • Recursive scan │    │   extraction     │   │
//	│  │ • CRUD ops       │    │ • Path guard     │    │ • min_version    │   │
//	│  └──────────────────┘    └──────────────────┘    └──────────────────┘   │
//	│           │                                               ▲              │
//	│           │              ┌──────────────────┐             │              │
//	│           └─────────────▶│      Inputs      │─────────────┘              │
//	│                          │   (inputs.go)    │                            │
//	│                          │                  │                            │
//	│                          │ • Coverage check │                            │
//	│                          │ • Substitution   │                            │
//	│                          │ • Merge + strip  │                            │
//	│                          └──────────────────┘                            │
//	└─────────────────────────────────────────────────────────────────────────┘
//
// # Document shape
//
// A blueprint document is a YAML mapping whose blueprint: block holds
// metadata (domain, name, input declarations, optional min_version and
// source_url); the rest of the document is the template body, which
// references declared inputs with !input tags:
//
//	blueprint:
//	  domain: automation
//	  name: Motion light
//	  input:
//	    motion_sensor:
//	      description: Sensor that triggers the light
//	    target: {}
//	trigger:
//	  platform: state
//	  entity_id: !input motion_sensor
//	action:
//	  service: light.turn_on
//	  target: !input target
//
// An instance config references a blueprint by path and supplies the
// input values:
//
//	use_blueprint:
//	  path: motion_light.yaml
//	  input:
//	    motion_sensor: binary_sensor.hallway
//	    target: light.hallway
//
// # Usage
//
//	store := blueprint.NewFileStore(cfg.Core.BlueprintRoot)
//	registries := blueprint.NewRegistries(store, cfg.Core.Domains)
//	registries.SetLogger(log)
//
//	reg, _ := registries.Domain("automation")
//	inputs, err := reg.InstantiateFromConfig(instanceConfig)
//	if err != nil {
//	    return err
//	}
//	config, err := inputs.Substitute()
//
// # Caching and thread safety
//
// Each DomainRegistry caches load outcomes (blueprint or error) keyed
// by relative path and serializes disk access behind one lock with a
// lock-free fast path for cached entries. Failed loads stay cached and
// re-surface their original error until a rescan, removal, or cache
// reset. All exported types are safe for concurrent use; Blueprint
// instances are immutable once shared.
package blueprint
