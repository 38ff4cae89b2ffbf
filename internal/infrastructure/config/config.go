package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the configuration file is looked up when neither
// --config nor IREMITTER_CONFIG names one.
const DefaultPath = "/etc/linux-enable-ir-emitter/config.yaml"

// Config is the root configuration structure for linux-enable-ir-emitter.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Boot      BootConfig      `yaml:"boot"`
	History   HistoryConfig   `yaml:"history"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PathsConfig contains the filesystem locations the tool reads and writes.
type PathsConfig struct {
	// DriverDir holds one driver record per configured device.
	DriverDir string `yaml:"driver_dir"`

	// RuleFile is the udev rule file regenerated by boot enable.
	RuleFile string `yaml:"rule_file"`

	// Executable is the path udev invokes on add/change events.
	Executable string `yaml:"executable"`

	// ByPathDir is the directory of persistent V4L device symlinks.
	ByPathDir string `yaml:"by_path_dir"`
}

// DiscoveryConfig contains settings for the external driver generator.
type DiscoveryConfig struct {
	// Binary is the path to the driver generator executable.
	Binary string `yaml:"binary"`

	// Emitters is the default number of emitters to search for.
	// Default: 1
	Emitters int `yaml:"emitters"`

	// NegAnswerLimit is the default number of negative answers before a
	// pattern is skipped. -1 means unlimited.
	// Default: 40
	NegAnswerLimit int `yaml:"neg_answer_limit"`

	// Exhaustive searches every control instead of stopping at the first
	// working one.
	Exhaustive bool `yaml:"exhaustive"`
}

// BootConfig contains boot service settings.
type BootConfig struct {
	// Backend selects the init system: "auto", "systemd", "openrc" or "none".
	// Default: "auto"
	Backend string `yaml:"backend"`

	// ServiceName is the systemd unit or OpenRC service name.
	ServiceName string `yaml:"service_name"`

	// SystemdUnitDir is where the systemd unit is installed when missing.
	SystemdUnitDir string `yaml:"systemd_unit_dir"`

	// OpenRCInitDir is where the OpenRC script is installed when missing.
	OpenRCInitDir string `yaml:"openrc_init_dir"`

	// CommandTimeout bounds each udevadm/systemctl/rc-update call (seconds).
	// Default: 30
	CommandTimeout int `yaml:"command_timeout"`
}

// HistoryConfig contains the lifecycle history database settings.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: IREMITTER_SECTION_KEY
// For example: IREMITTER_PATHS_DRIVER_DIR, IREMITTER_BOOT_BACKEND
func Load(path string) (*Config, error) {
	cfg := Default()

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

// LoadOrDefault behaves like Load, except that a missing file is not an
// error unless the caller named it explicitly. udev runs the binary on
// systems that never created a config file.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg = Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// ResolvePath returns the config path to use and whether it was chosen
// explicitly (flag or environment) rather than defaulted.
func ResolvePath(flag string) (string, bool) {
	if flag != "" {
		return flag, true
	}
	if v := os.Getenv("IREMITTER_CONFIG"); v != "" {
		return v, true
	}
	return DefaultPath, false
}

// Default returns a Config with the packaged defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			DriverDir:  "/etc/linux-enable-ir-emitter/drivers",
			RuleFile:   "/etc/udev/rules.d/99-linux-enable-ir-emitter.rules",
			Executable: "/usr/bin/linux-enable-ir-emitter",
			ByPathDir:  "/dev/v4l/by-path",
		},
		Discovery: DiscoveryConfig{
			Binary:         "/usr/lib/linux-enable-ir-emitter/driver-generator",
			Emitters:       1,
			NegAnswerLimit: 40,
		},
		Boot: BootConfig{
			Backend:        "auto",
			ServiceName:    "linux-enable-ir-emitter",
			SystemdUnitDir: "/etc/systemd/system",
			OpenRCInitDir:  "/etc/init.d",
			CommandTimeout: 30,
		},
		History: HistoryConfig{
			Enabled:     true,
			Path:        "/var/lib/linux-enable-ir-emitter/history.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "linux-enable-ir-emitter",
			},
			QoS:         1,
			TopicPrefix: "ir-emitter",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Paths
	if v := os.Getenv("IREMITTER_PATHS_DRIVER_DIR"); v != "" {
		cfg.Paths.DriverDir = v
	}
	if v := os.Getenv("IREMITTER_PATHS_RULE_FILE"); v != "" {
		cfg.Paths.RuleFile = v
	}
	if v := os.Getenv("IREMITTER_PATHS_EXECUTABLE"); v != "" {
		cfg.Paths.Executable = v
	}

	// Discovery
	if v := os.Getenv("IREMITTER_DISCOVERY_BINARY"); v != "" {
		cfg.Discovery.Binary = v
	}

	// Boot
	if v := os.Getenv("IREMITTER_BOOT_BACKEND"); v != "" {
		cfg.Boot.Backend = v
	}

	// History
	if v := os.Getenv("IREMITTER_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("IREMITTER_HISTORY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.History.Enabled = b
		}
	}

	// MQTT
	if v := os.Getenv("IREMITTER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IREMITTER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IREMITTER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("IREMITTER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("IREMITTER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Paths.DriverDir == "" {
		errs = append(errs, "paths.driver_dir is required")
	}
	if c.Paths.RuleFile == "" {
		errs = append(errs, "paths.rule_file is required")
	}
	if c.Paths.Executable == "" {
		errs = append(errs, "paths.executable is required")
	}

	if c.Discovery.Binary == "" {
		errs = append(errs, "discovery.binary is required")
	}
	if c.Discovery.Emitters < 1 {
		errs = append(errs, "discovery.emitters must be at least 1")
	}
	if c.Discovery.NegAnswerLimit == 0 || c.Discovery.NegAnswerLimit < -1 {
		errs = append(errs, "discovery.neg_answer_limit must be positive or -1")
	}

	switch c.Boot.Backend {
	case "auto", "systemd", "openrc", "none":
	default:
		errs = append(errs, fmt.Sprintf("boot.backend %q must be auto, systemd, openrc or none", c.Boot.Backend))
	}
	if c.Boot.ServiceName == "" {
		errs = append(errs, "boot.service_name is required")
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && (c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535) {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
