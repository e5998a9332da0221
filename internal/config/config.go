// Package config loads and validates status service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/keyspace-status/internal/ledger"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageLocal  = "local"
	StorageGCS    = "gcs"
)

// Hardware monitor backends.
const (
	HwmonNone   = "none"
	HwmonHost   = "host"
	HwmonStatic = "static"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Session  SessionConfig  `mapstructure:"session"`
	Keyspace KeyspaceConfig `mapstructure:"keyspace"`
	Reporter ReporterConfig `mapstructure:"reporter"`
	Progress ProgressConfig `mapstructure:"progress"`
	DB       DBConfig       `mapstructure:"db"`
	Storage  StorageConfig  `mapstructure:"storage"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Hwmon    HwmonConfig    `mapstructure:"hwmon"`
	Simulate SimulateConfig `mapstructure:"simulate"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	RequestTimeoutSeconds  int    `mapstructure:"request_timeout_seconds"`
	APIKey                 string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// SessionConfig sizes the status subsystem.
type SessionConfig struct {
	Name                string `mapstructure:"name"`
	Devices             int    `mapstructure:"devices"`
	SpeedWindow         int    `mapstructure:"speed_window"`
	ExecWindow          int    `mapstructure:"exec_window"`
	CPTBuffer           int    `mapstructure:"cpt_buffer"`
	RuntimeLimitSeconds int    `mapstructure:"runtime_limit_seconds"`
	Skipped             []int  `mapstructure:"skipped"`
}

// KeyspaceConfig describes the search space handed to InitProgress.
type KeyspaceConfig struct {
	Base       uint64 `mapstructure:"base"`
	Keyspace   uint64 `mapstructure:"keyspace"`
	Skip       uint64 `mapstructure:"skip"`
	Limit      uint64 `mapstructure:"limit"`
	Multiplier uint64 `mapstructure:"multiplier"`
	Targets    int    `mapstructure:"targets"`
}

// ReporterConfig controls the status poll loop.
type ReporterConfig struct {
	IntervalSeconds int  `mapstructure:"interval_seconds"`
	Hardware        bool `mapstructure:"hardware"`
}

// ProgressConfig tunes the event hub and selects sinks.
type ProgressConfig struct {
	BufferSize         int  `mapstructure:"buffer_size"`
	MaxBatchEvents     int  `mapstructure:"max_batch_events"`
	MaxBatchWaitMs     int  `mapstructure:"max_batch_wait_ms"`
	SinkTimeoutSeconds int  `mapstructure:"sink_timeout_seconds"`
	Log                bool `mapstructure:"log"`
	Prometheus         bool `mapstructure:"prometheus"`
	Archive            bool `mapstructure:"archive"`
}

// DBConfig controls access to the relational database. An empty DSN keeps
// snapshots in memory.
type DBConfig struct {
	DSN              string `mapstructure:"dsn"`
	MaxConns         int32  `mapstructure:"max_conns"`
	MinConns         int32  `mapstructure:"min_conns"`
	ConnLifetimeMins int    `mapstructure:"conn_lifetime_minutes"`
	SessionTable     string `mapstructure:"session_table"`
	SnapshotTable    string `mapstructure:"snapshot_table"`
	MemoryRetention  int    `mapstructure:"memory_retention"`
	EnsureSchema     bool   `mapstructure:"ensure_schema"`
}

// StorageConfig selects where final reports are archived.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
	LocalDir  string `mapstructure:"local_dir"`
}

// PubSubConfig holds metadata for publish-subscribe notifications. An empty
// project disables publishing.
type PubSubConfig struct {
	ProjectID        string `mapstructure:"project_id"`
	TopicName        string `mapstructure:"topic_name"`
	PublishSnapshots bool   `mapstructure:"publish_snapshots"`
}

// HwmonConfig selects the hardware monitor backend.
type HwmonConfig struct {
	Backend string `mapstructure:"backend"`
}

// SimulateConfig drives the built-in device simulator.
type SimulateConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	BatchesPerSecond float64 `mapstructure:"batches_per_second"`
	BatchSize        uint64  `mapstructure:"batch_size"`
	CrackProbability float64 `mapstructure:"crack_probability"`
	AutotuneMs       int     `mapstructure:"autotune_ms"`
	Seed             int64   `mapstructure:"seed"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KSSTATUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("session.name", "default")
	v.SetDefault("session.devices", 1)
	v.SetDefault("session.speed_window", 128)
	v.SetDefault("session.exec_window", 128)
	v.SetDefault("session.cpt_buffer", 0x20000)
	v.SetDefault("session.runtime_limit_seconds", 0)
	v.SetDefault("keyspace.base", 1_000_000)
	v.SetDefault("keyspace.keyspace", 0)
	v.SetDefault("keyspace.skip", 0)
	v.SetDefault("keyspace.limit", 0)
	v.SetDefault("keyspace.multiplier", 1)
	v.SetDefault("keyspace.targets", 1)
	v.SetDefault("reporter.interval_seconds", 10)
	v.SetDefault("reporter.hardware", true)
	v.SetDefault("progress.buffer_size", 1024)
	v.SetDefault("progress.max_batch_events", 64)
	v.SetDefault("progress.max_batch_wait_ms", 1000)
	v.SetDefault("progress.sink_timeout_seconds", 10)
	v.SetDefault("progress.log", true)
	v.SetDefault("progress.prometheus", true)
	v.SetDefault("progress.archive", false)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.session_table", "session_runs")
	v.SetDefault("db.snapshot_table", "session_snapshots")
	v.SetDefault("db.memory_retention", 1000)
	v.SetDefault("db.ensure_schema", true)
	v.SetDefault("db.conn_lifetime_minutes", 30)
	v.SetDefault("storage.backend", StorageMemory)
	v.SetDefault("storage.prefix", "reports")
	v.SetDefault("storage.local_dir", "./reports")
	v.SetDefault("pubsub.topic_name", "keyspace-status")
	v.SetDefault("pubsub.publish_snapshots", false)
	v.SetDefault("hwmon.backend", HwmonHost)
	v.SetDefault("simulate.enabled", false)
	v.SetDefault("simulate.batches_per_second", 20)
	v.SetDefault("simulate.batch_size", 1000)
	v.SetDefault("simulate.crack_probability", 0.001)
	v.SetDefault("simulate.autotune_ms", 500)
	v.SetDefault("simulate.seed", 0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Session.Devices <= 0 {
		return fmt.Errorf("session.devices must be > 0")
	}
	if c.Session.SpeedWindow <= 0 || c.Session.ExecWindow <= 0 || c.Session.CPTBuffer <= 0 {
		return fmt.Errorf("session ring sizes must be > 0")
	}
	if c.Session.RuntimeLimitSeconds < 0 {
		return fmt.Errorf("session.runtime_limit_seconds must be >= 0")
	}
	for _, id := range c.Session.Skipped {
		if id < 0 || id >= c.Session.Devices {
			return fmt.Errorf("session.skipped device %d out of range", id)
		}
	}
	if c.Keyspace.Targets <= 0 {
		return fmt.Errorf("keyspace.targets must be > 0")
	}
	if c.Reporter.IntervalSeconds <= 0 {
		return fmt.Errorf("reporter.interval_seconds must be > 0")
	}
	switch c.Storage.Backend {
	case StorageMemory, StorageLocal:
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.backend is gcs")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, local, gcs", c.Storage.Backend)
	}
	switch c.Hwmon.Backend {
	case HwmonNone, HwmonHost, HwmonStatic:
	default:
		return fmt.Errorf("hwmon.backend %q is not one of none, host, static", c.Hwmon.Backend)
	}
	if c.PubSub.ProjectID != "" && c.PubSub.TopicName == "" {
		return fmt.Errorf("pubsub.topic_name must be set when pubsub.project_id is set")
	}
	if c.Simulate.Enabled {
		if c.Simulate.BatchesPerSecond <= 0 || c.Simulate.BatchSize == 0 {
			return fmt.Errorf("simulate rate and batch size must be > 0")
		}
		if c.Simulate.CrackProbability < 0 || c.Simulate.CrackProbability > 1 {
			return fmt.Errorf("simulate.crack_probability must be within [0,1]")
		}
	}
	return nil
}

// RuntimeLimit converts the session runtime limit to a duration.
func (c Config) RuntimeLimit() time.Duration {
	return time.Duration(c.Session.RuntimeLimitSeconds) * time.Second
}

// ReporterInterval converts the reporter period to a duration.
func (c Config) ReporterInterval() time.Duration {
	return time.Duration(c.Reporter.IntervalSeconds) * time.Second
}

// ShutdownTimeout converts the server shutdown budget to a duration.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// Bounds returns the ledger bounds described by the keyspace section.
func (c Config) Bounds() ledger.Bounds {
	return ledger.Bounds{
		Base:       c.Keyspace.Base,
		Keyspace:   c.Keyspace.Keyspace,
		Skip:       c.Keyspace.Skip,
		Limit:      c.Keyspace.Limit,
		Multiplier: c.Keyspace.Multiplier,
	}
}
