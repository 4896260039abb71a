// Gray Logic Blueprints - Templated Configuration Service
//
// This is the main entry point for the blueprint service. It hosts
// per-domain registries of schema-validated configuration templates
// ("blueprints"), serves them over a REST/WebSocket API, announces
// lifecycle events on MQTT, and records mutations to a SQLite audit
// trail.
//
// A second mode, `blueprintd mint-token`, signs service tokens for API
// clients without starting the daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/nerrad567/gray-logic-blueprints/migrations"

	"github.com/nerrad567/gray-logic-blueprints/internal/api"
	"github.com/nerrad567/gray-logic-blueprints/internal/audit"
	"github.com/nerrad567/gray-logic-blueprints/internal/auth"
	"github.com/nerrad567/gray-logic-blueprints/internal/blueprint"
	"github.com/nerrad567/gray-logic-blueprints/internal/importer"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/usage"
)

// Build metadata, stamped by the release pipeline:
//
//	go build -ldflags "-X main.version=1.2.3 -X main.commit=$(git rev-parse --short HEAD)"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is used when BLUEPRINTD_CONFIG is not set.
const defaultConfigPath = "configs/blueprintd.yaml"

func main() {
	// mint-token runs and exits without the daemon lifecycle.
	if len(os.Args) > 1 && os.Args[1] == "mint-token" {
		if err := mintToken(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the service together and blocks until ctx is cancelled.
// Separated from main so tests can drive a full startup and shutdown.
func run(ctx context.Context) error {
	// Bootstrap logger, replaced once the config says how to log.
	log := logging.Default()
	log.Info("starting blueprintd", "version", version, "commit", commit, "build_date", date)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeOnShutdown(log, "database", db.Close)

	store := blueprint.NewFileStore(cfg.Core.BlueprintRoot)
	for _, domain := range cfg.Core.Domains {
		if ensureErr := store.EnsureDomain(domain); ensureErr != nil {
			return fmt.Errorf("preparing blueprint root: %w", ensureErr)
		}
	}
	registries := blueprint.NewRegistries(store, cfg.Core.Domains)
	registries.SetLogger(log)
	warmRegistries(registries, log)

	auditRepo := audit.NewSQLiteRepository(db.DB)

	imp := importer.New(cfg.Importer, cfg.Core.Domains)
	imp.SetLogger(log)

	mqttClient, err := connectMQTT(cfg.MQTT, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer closeOnShutdown(log, "MQTT client", mqttClient.Close)
	}

	usageClient, err := connectUsage(ctx, cfg.InfluxDB, log)
	if err != nil {
		return err
	}
	if usageClient != nil {
		defer closeOnShutdown(log, "usage writer", usageClient.Close)
	}

	apiServer, err := api.New(api.Deps{
		Server:      cfg.Server,
		WS:          cfg.WebSocket,
		Auth:        cfg.Auth,
		Logger:      log,
		Registries:  registries,
		Importer:    imp,
		AuditRepo:   auditRepo,
		MQTT:        mqttClient,
		Usage:       usageClient,
		DB:          db,
		CoreVersion: cfg.Core.Version,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer closeOnShutdown(log, "API server", apiServer.Close)
	log.Info("API server started", "host", cfg.Server.Host, "port", cfg.Server.Port)

	// Reload command: any publish to the reload topic drops every cache.
	if mqttClient != nil {
		if subErr := subscribeReload(registries, auditRepo, apiServer, mqttClient, byte(cfg.MQTT.QoS), log); subErr != nil {
			return fmt.Errorf("subscribing to reload command: %w", subErr)
		}
		log.Info("reload command subscribed", "topic", mqtt.Topics{}.CmdReload())
	}

	if err := healthCheck(ctx, db, mqttClient, usageClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("startup complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutting down")

	// The deferred closers unwind in reverse: API server first so no new
	// work arrives, then the usage writer and MQTT, database last.
	return nil
}

// getConfigPath resolves the config file location, preferring the
// BLUEPRINTD_CONFIG environment variable over the compiled-in default.
func getConfigPath() string {
	if path := os.Getenv("BLUEPRINTD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openDatabase connects to SQLite and brings the schema up to date.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Path)
	return db, nil
}

// connectMQTT dials the broker and attaches lifecycle logging.
// Returns nil when MQTT is disabled in config.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.Enabled {
		log.Info("MQTT disabled")
		return nil, nil //nolint:nilnil // nil client means the feature is off
	}

	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() { log.Info("MQTT reconnected") })
	client.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })

	broker := net.JoinHostPort(cfg.Broker.Host, strconv.Itoa(cfg.Broker.Port))
	log.Info("MQTT connected", "broker", broker, "client_id", cfg.Broker.ClientID)
	return client, nil
}

// connectUsage brings up the InfluxDB usage writer. Returns nil when
// the usage section is disabled.
func connectUsage(ctx context.Context, cfg config.InfluxDBConfig, log *logging.Logger) (*usage.Client, error) {
	if !cfg.Enabled {
		log.Info("usage writer disabled")
		return nil, nil //nolint:nilnil // nil client means the feature is off
	}

	client, err := usage.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) { log.Error("usage write error", "error", err) })
	log.Info("usage writer connected", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)
	return client, nil
}

// closeOnShutdown logs and runs a closer during the deferred unwind.
// Failures are logged, never fatal: the rest of shutdown keeps going.
func closeOnShutdown(log *logging.Logger, name string, closeFn func() error) {
	log.Info("closing " + name)
	if err := closeFn(); err != nil {
		log.Error("close failed", "component", name, "error", err)
	}
}

// warmRegistries loads every domain's blueprints so startup surfaces
// broken files immediately instead of on first request.
func warmRegistries(registries *blueprint.Registries, log *logging.Logger) {
	for _, domain := range registries.Domains() {
		reg, err := registries.Domain(domain)
		if err != nil {
			continue
		}
		results, err := reg.ListAll()
		if err != nil {
			log.Warn("blueprint scan failed", "domain", domain, "error", err)
			continue
		}
		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
			}
		}
		log.Info("blueprints loaded", "domain", domain, "total", len(results), "failed", failed)
	}
}

// subscribeReload wires the MQTT reload command to a full cache reset.
// The reset is audited under the mqtt source and announced to WebSocket
// and MQTT event subscribers, same as an API-triggered reset.
func subscribeReload(registries *blueprint.Registries, auditRepo audit.Repository, apiServer *api.Server, mqttClient *mqtt.Client, qos byte, log *logging.Logger) error {
	topic := mqtt.Topics{}.CmdReload()
	return mqttClient.Subscribe(topic, qos, func(_ string, _ []byte) error {
		log.Info("reload command received, resetting blueprint caches")
		registries.ResetAll()

		entry := &audit.AuditLog{
			Action: audit.ActionCacheReset,
			Source: audit.SourceMQTT,
		}
		if err := auditRepo.Create(context.Background(), entry); err != nil {
			log.Error("audit write for reload failed", "error", err)
		}

		apiServer.AnnounceCacheReset()
		return nil
	})
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and usageClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, usageClient *usage.Client, apiServer *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if usageClient != nil {
		if err := usageClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}

// mintToken signs a service token using the configured JWT secret and
// prints it to stdout. Lets operators issue client credentials without
// a running daemon.
func mintToken(args []string) error {
	fs := flag.NewFlagSet("mint-token", flag.ContinueOnError)
	subject := fs.String("subject", "", "token subject, identifies the client in audit entries")
	role := fs.String("role", string(auth.RoleViewer), "token role: viewer or editor")
	ttl := fs.Int("ttl", 0, "token lifetime in minutes (0 uses auth.token_ttl from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *subject == "" {
		return errors.New("mint-token: -subject is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	minutes := *ttl
	if minutes <= 0 {
		minutes = cfg.Auth.TokenTTL
	}

	token, err := auth.GenerateAccessToken(*subject, auth.Role(*role), cfg.Auth.JWTSecret, minutes)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}
