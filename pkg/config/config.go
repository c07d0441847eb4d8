// Package config loads the groundcore configuration from file, environment,
// and defaults.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (GROUNDCORE_*, plus the legacy names listed in
//     bindEnvAliases)
//  2. A .env file in the working directory, if present
//  3. Configuration file (YAML)
//  4. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/netrasat/groundcore/pkg/bridgelog"
	"github.com/netrasat/groundcore/pkg/bus"
	"github.com/netrasat/groundcore/pkg/store"
)

// Config is the full groundcore configuration: ambient settings plus one
// section per worker.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Bus configures the AMQP broker connection shared by all workers.
	Bus bus.Config `mapstructure:"bus"`

	// Database configures the telemetry PostgreSQL database.
	Database store.Config `mapstructure:"database"`

	// BridgeLog configures the SQLite bridge message log.
	BridgeLog bridgelog.Config `mapstructure:"bridge_log"`

	// Ingest configures the upstream telemetry stream subscription.
	Ingest IngestConfig `mapstructure:"ingest"`

	// Stations lists the ground stations the bridge can connect to.
	Stations []StationConfig `mapstructure:"stations" validate:"dive"`

	// Alerts configures threshold evaluation and mail notification.
	Alerts AlertsConfig `mapstructure:"alerts"`

	// Gateway configures the admin HTTP API.
	Gateway GatewayConfig `mapstructure:"gateway"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format is text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output is stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required"`
}

// IngestConfig configures the streaming telemetry subscription.
type IngestConfig struct {
	// URL is the streaming WebSocket endpoint.
	URL string `mapstructure:"url" validate:"required,uri"`

	// Host and Port compose the endpoint when URL is unset. They exist for
	// the OPENC3_API_HOSTNAME / OPENC3_API_PORT environment pair.
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`

	// Password is the API token sent during authorization.
	Password string `mapstructure:"password"`

	// Scope is the mission scope to subscribe under.
	Scope string `mapstructure:"scope"`

	// Packets overrides the built-in packet subscription list.
	Packets []string `mapstructure:"packets"`

	// ReconnectWait is the pause between reconnect attempts.
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

// StationConfig describes one ground station bridge.
type StationConfig struct {
	ID   string `mapstructure:"id" validate:"required"`
	Name string `mapstructure:"name"`

	// BrokerA is the mission-control side broker (anonymous, plain TCP).
	BrokerA BrokerConfig `mapstructure:"broker_a"`

	// BrokerB is the station side broker (authenticated, optionally TLS).
	BrokerB BrokerConfig `mapstructure:"broker_b"`

	// TopicUplink is the station topic commands are published to.
	TopicUplink string `mapstructure:"topic_uplink"`

	// TopicDownlink is the station topic telemetry arrives on.
	TopicDownlink string `mapstructure:"topic_downlink"`

	// Health configures the station's band health capture.
	Health StationHealthConfig `mapstructure:"health"`
}

// BrokerConfig is one MQTT broker endpoint.
type BrokerConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// TLS enables a TLS connection.
	TLS bool `mapstructure:"tls"`

	// InsecureSkipVerify disables certificate verification. Station
	// brokers commonly run self-signed certs; this stays an explicit
	// opt-in.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// StationHealthConfig configures the per-band health capture subscription.
type StationHealthConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	SbandTopic string `mapstructure:"sband_topic"`
	XbandTopic string `mapstructure:"xband_topic"`
}

// AlertsConfig configures threshold evaluation and notification.
type AlertsConfig struct {
	// ConfigPath is the JSON threshold configuration file.
	ConfigPath string `mapstructure:"config_path"`

	// SMTP configures outgoing alert mail.
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig configures the alert mail transport.
type SMTPConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from" validate:"omitempty,email"`
	To       []string `mapstructure:"to" validate:"dive,email"`

	// Mock logs rendered mail instead of sending it.
	Mock bool `mapstructure:"mock"`
}

// GatewayConfig configures the admin HTTP API.
type GatewayConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`

	// RequestTimeout bounds each request through the timeout middleware.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// Station returns the station with the given id.
func (c *Config) Station(id string) (*StationConfig, bool) {
	for i := range c.Stations {
		if c.Stations[i].ID == id {
			return &c.Stations[i], true
		}
	}
	return nil, false
}

// Load loads configuration from file, environment, and defaults.
// An empty configPath uses the default location and falls back to pure
// defaults when no file exists there.
func Load(configPath string) (*Config, error) {
	// .env is a convenience for local runs; absence is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal runs even without a config file so the bound environment
	// variables still land in the struct.
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// GROUNDCORE_LOGGING_LEVEL=DEBUG etc.
	v.SetEnvPrefix("GROUNDCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvAliases(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnvAliases registers the per-key environment bindings. Every key
// answers to its GROUNDCORE_* name and to the variable names the previous
// deployment used; the GROUNDCORE_* form wins when both are set.
func bindEnvAliases(v *viper.Viper) {
	legacy := map[string][]string{
		"bus.url":              {"RABBITMQ_URL"},
		"database.host":        {"DB_HOST"},
		"database.port":        {"DB_PORT"},
		"database.database":    {"DB_NAME"},
		"database.user":        {"DB_USER"},
		"database.password":    {"DB_PASSWORD", "DB_PASS"},
		"ingest.host":          {"OPENC3_API_HOSTNAME"},
		"ingest.port":          {"OPENC3_API_PORT"},
		"ingest.password":      {"OPENC3_API_PASSWORD"},
		"ingest.scope":         {"OPENC3_SCOPE"},
		"alerts.smtp.host":     {"SMTP_HOST"},
		"alerts.smtp.port":     {"SMTP_PORT"},
		"alerts.smtp.username": {"SMTP_USER"},
		"alerts.smtp.password": {"SMTP_PASS"},
		"alerts.smtp.from":     {"EMAIL_FROM"},
		"alerts.smtp.to":       {"EMAIL_TO"},
	}
	for key, names := range legacy {
		args := make([]string, 0, len(names)+2)
		args = append(args, key,
			"GROUNDCORE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
		args = append(args, names...)
		_ = v.BindEnv(args...)
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
		stringToIntDecodeHook(),
	)
}

// stringToIntDecodeHook converts numeric strings to ints; ports arrive as
// strings when sourced from the environment.
func stringToIntDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Int {
			return data, nil
		}
		return strconv.Atoi(data.(string))
	}
}

// durationDecodeHook converts strings like "30s" and raw numbers (taken as
// nanoseconds) to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path, preferring
// XDG_CONFIG_HOME over ~/.config.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "groundcore")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "groundcore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
