package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the blueprintd configuration tree, populated
// by Load from defaults, the YAML file, and environment overrides.
type Config struct {
	Core      CoreConfig      `yaml:"core"`
	Server    ServerConfig    `yaml:"server"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Importer  ImporterConfig  `yaml:"importer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CoreConfig describes the Gray Logic core deployment this service manages
// blueprints for.
type CoreConfig struct {
	// Version is the semantic version of the running core, compared
	// against each blueprint's min_version constraint.
	Version string `yaml:"version"`

	// BlueprintRoot is the directory holding one subdirectory per domain.
	BlueprintRoot string `yaml:"blueprint_root"`

	// Domains lists the blueprint domains this service hosts.
	Domains []string `yaml:"domains"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	TLS      TLSConfig           `yaml:"tls"`
	Timeouts ServerTimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig          `yaml:"cors"`
}

// HTTP timeouts are stored as whole seconds to keep the YAML plain;
// these helpers convert them where the net/http server is built.

// ReadTimeout returns Timeouts.Read as a Duration.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.Timeouts.Read) * time.Second
}

// WriteTimeout returns Timeouts.Write as a Duration.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.Timeouts.Write) * time.Second
}

// IdleTimeout returns Timeouts.Idle as a Duration.
func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.Timeouts.Idle) * time.Second
}

// TLSConfig names the certificate pair served when TLS is enabled.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ServerTimeoutConfig sets the HTTP server timeouts, in whole seconds.
type ServerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig controls which origins may call the API from a browser.
// An empty AllowedOrigins list admits every origin, which suits
// development; production configs should name theirs.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig tunes the event stream endpoint. Sizes are in bytes,
// intervals in seconds.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// AuthConfig contains service token settings for the API.
type AuthConfig struct {
	// JWTSecret signs and validates bearer tokens. Required; set
	// BLUEPRINTD_JWT_SECRET rather than committing it to the file.
	JWTSecret string `yaml:"jwt_secret"`

	// TokenTTL is the token lifetime in minutes.
	TokenTTL int `yaml:"token_ttl"`
}

// DatabaseConfig locates the SQLite file that stores the audit trail.
// BusyTimeout is in seconds.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig describes the broker link. When Enabled is false the
// service runs API-only, with no bus announcements or reload commands.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig identifies the broker and the client identity this
// service presents to it.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig carries optional broker credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig shapes the reconnect backoff, in seconds. The
// client retries forever; only the delay between attempts is tunable.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig configures the optional usage metrics writer.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`

	// Write batching. FlushInterval is in seconds; zero values fall
	// back to the client defaults.
	BatchSize     int `yaml:"batch_size"`
	FlushInterval int `yaml:"flush_interval"`
}

// ImporterConfig contains settings for fetching blueprints from URLs.
type ImporterConfig struct {
	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`

	// MaxRetries bounds retry attempts on transient fetch failures.
	MaxRetries int `yaml:"max_retries"`

	// MaxResponseBytes caps the size of a fetched blueprint document.
	MaxResponseBytes int64 `yaml:"max_response_bytes"`
}

// RequestTimeout returns Timeout as a Duration.
func (i ImporterConfig) RequestTimeout() time.Duration {
	return time.Duration(i.Timeout) * time.Second
}

// LoggingConfig selects level, format, and destination for the
// structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// domainPattern restricts domain names to lowercase slug form, since they
// become directory names and MQTT topic segments.
var domainPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// Load builds the service configuration from the YAML file at path.
// Values resolve in three layers, lowest first: compiled-in defaults,
// the file, then BLUEPRINTD_* environment variables. The merged result
// must pass Validate before it is returned.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns the baseline every deployment starts from.
// Anything the YAML file or the environment sets replaces these.
func defaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			Version:       "0.0.0",
			BlueprintRoot: "./data/blueprints",
			Domains:       []string{"automation", "script"},
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8094,
			Timeouts: ServerTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Auth: AuthConfig{
			TokenTTL: 60,
		},
		Database: DatabaseConfig{
			Path:        "./data/blueprintd.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-blueprintd",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Importer: ImporterConfig{
			Timeout:          15,
			MaxRetries:       3,
			MaxResponseBytes: 1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides layers BLUEPRINTD_* environment variables over cfg.
// Unset and empty variables leave the existing value alone.
func applyEnvOverrides(cfg *Config) {
	set := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	set("BLUEPRINTD_CORE_VERSION", &cfg.Core.Version)
	set("BLUEPRINTD_BLUEPRINT_ROOT", &cfg.Core.BlueprintRoot)
	set("BLUEPRINTD_SERVER_HOST", &cfg.Server.Host)
	set("BLUEPRINTD_DATABASE_PATH", &cfg.Database.Path)
	set("BLUEPRINTD_MQTT_HOST", &cfg.MQTT.Broker.Host)
	set("BLUEPRINTD_MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	set("BLUEPRINTD_MQTT_PASSWORD", &cfg.MQTT.Auth.Password)
	set("BLUEPRINTD_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)
	set("BLUEPRINTD_JWT_SECRET", &cfg.Auth.JWTSecret)

	// The port is the one numeric override. A value that does not parse
	// is ignored; whatever the file or defaults chose stands.
	if v := os.Getenv("BLUEPRINTD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

// Validate checks the merged configuration before the service starts.
// Every violation is reported, not just the first, so a broken config
// can be fixed in one pass.
func (c *Config) Validate() error {
	var errs []string
	fail := func(msg string) { errs = append(errs, msg) }

	if c.Core.BlueprintRoot == "" {
		fail("core.blueprint_root is required")
	}
	if len(c.Core.Domains) == 0 {
		fail("core.domains must name at least one domain")
	}
	for _, d := range c.Core.Domains {
		if !domainPattern.MatchString(d) {
			fail(fmt.Sprintf("core.domains: %q is not a valid domain name", d))
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		fail("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		fail("database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		fail("mqtt.qos must be 0, 1, or 2")
	}
	if c.Importer.MaxResponseBytes <= 0 {
		fail("importer.max_response_bytes must be positive")
	}

	// The API mutates the blueprint tree, so a weak or missing signing
	// secret would let anyone rewrite stored configuration.
	const minSecretChars = 32
	if c.Auth.JWTSecret == "" {
		fail("auth.jwt_secret is required (set BLUEPRINTD_JWT_SECRET)")
	} else if len(c.Auth.JWTSecret) < minSecretChars {
		fail(fmt.Sprintf("auth.jwt_secret must be at least %d characters", minSecretChars))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
