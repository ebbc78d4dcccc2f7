package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/LexxLuey/fascraft/internal/qualitygate"
	"github.com/LexxLuey/fascraft/internal/secrets"
)

// Config holds all application configuration.
type Config struct {
	Analysis AnalysisConfig         `mapstructure:"analysis"`
	Log      LogConfig              `mapstructure:"log"`
	Tracing  TracingConfig          `mapstructure:"tracing"`
	Server   ServerConfig           `mapstructure:"server"`
	Graph    GraphConfig            `mapstructure:"graph"`
	Snapshot SnapshotConfig         `mapstructure:"snapshot"`
	Gates    qualitygate.GateConfig `mapstructure:"gates"`
	Secrets  secrets.Config         `mapstructure:"secrets"`
}

// AnalysisConfig tunes the thresholds used by suggestions and validation.
type AnalysisConfig struct {
	HighDependencyThreshold int `mapstructure:"high_dependency_threshold"`
	DeepChainThreshold      int `mapstructure:"deep_chain_threshold"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig configures the OTLP exporter. An empty endpoint disables
// export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"otlp_endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// GraphConfig points at the Neo4j instance used by `deps store`/`deps load`.
// An empty password is resolved through the secrets provider.
type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type SnapshotConfig struct {
	Dir string `mapstructure:"dir"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{HighDependencyThreshold: 10, DeepChainThreshold: 5},
		Log:      LogConfig{Level: "info", Format: "text"},
		Tracing:  TracingConfig{ServiceName: "fascraft", Environment: "development", SampleRate: 1.0},
		Server:   ServerConfig{Addr: ":8080"},
		Graph:    GraphConfig{URI: "bolt://localhost:7687", Username: "neo4j"},
		Snapshot: SnapshotConfig{Dir: ".fascraft/snapshots"},
		Gates:    *qualitygate.DefaultConfig(),
		Secrets:  *secrets.DefaultConfig(),
	}
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validSeverities = map[string]bool{"critical": true, "required": true, "advisory": true}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Analysis.HighDependencyThreshold <= 0 {
		warnings = append(warnings, fmt.Sprintf("analysis high_dependency_threshold %d must be positive, default will be used", c.Analysis.HighDependencyThreshold))
	}
	if c.Analysis.DeepChainThreshold <= 0 {
		warnings = append(warnings, fmt.Sprintf("analysis deep_chain_threshold %d must be positive, default will be used", c.Analysis.DeepChainThreshold))
	}

	if c.Log.Level != "" && !validLevels[strings.ToLower(c.Log.Level)] {
		warnings = append(warnings, fmt.Sprintf("log level '%s' is unknown, using info", c.Log.Level))
	}
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		warnings = append(warnings, fmt.Sprintf("log format '%s' is unknown, using text", c.Log.Format))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside range [0.0, 1.0]", c.Tracing.SampleRate))
	}

	if c.Graph.URI != "" && c.Graph.Password == "" && c.Secrets.Provider != "file" {
		warnings = append(warnings, fmt.Sprintf("graph uri '%s' is configured but password is empty", c.Graph.URI))
	}
	if c.Secrets.Provider == "file" && c.Secrets.File == "" {
		warnings = append(warnings, "secrets provider 'file' requires secrets.file")
	}

	for name, sev := range map[string]string{
		"cycle_severity":     c.Gates.CycleSeverity,
		"health_severity":    c.Gates.HealthSeverity,
		"fan_out_severity":   c.Gates.FanOutSeverity,
		"depth_severity":     c.Gates.DepthSeverity,
		"isolation_severity": c.Gates.IsolationSeverity,
	} {
		if sev != "" && !validSeverities[strings.ToLower(sev)] {
			warnings = append(warnings, fmt.Sprintf("gates %s '%s' is unknown, using required", name, sev))
		}
	}
	if c.Gates.MinHealthScore > 100 {
		warnings = append(warnings, fmt.Sprintf("gates min_health_score %.1f can never be met", c.Gates.MinHealthScore))
	}

	return warnings
}

// Load reads configuration from file and environment. Variables use the
// FASCRAFT_ prefix with dots replaced by underscores, e.g.
// FASCRAFT_SERVER_ADDR. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FASCRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	for _, warning := range cfg.Validate() {
		slog.Warn("config", "warning", warning)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("analysis.high_dependency_threshold", d.Analysis.HighDependencyThreshold)
	v.SetDefault("analysis.deep_chain_threshold", d.Analysis.DeepChainThreshold)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.environment", d.Tracing.Environment)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("graph.uri", d.Graph.URI)
	v.SetDefault("graph.username", d.Graph.Username)
	v.SetDefault("graph.password", d.Graph.Password)
	v.SetDefault("snapshot.dir", d.Snapshot.Dir)
	v.SetDefault("gates.enabled", d.Gates.Enabled)
	v.SetDefault("gates.cycle_severity", d.Gates.CycleSeverity)
	v.SetDefault("gates.min_health_score", d.Gates.MinHealthScore)
	v.SetDefault("gates.health_severity", d.Gates.HealthSeverity)
	v.SetDefault("gates.max_dependencies", d.Gates.MaxDependencies)
	v.SetDefault("gates.fan_out_severity", d.Gates.FanOutSeverity)
	v.SetDefault("gates.max_depth", d.Gates.MaxDepth)
	v.SetDefault("gates.depth_severity", d.Gates.DepthSeverity)
	v.SetDefault("gates.max_isolated", d.Gates.MaxIsolated)
	v.SetDefault("gates.isolation_severity", d.Gates.IsolationSeverity)
	v.SetDefault("secrets.provider", d.Secrets.Provider)
	v.SetDefault("secrets.file", d.Secrets.File)
	v.SetDefault("secrets.env_prefix", d.Secrets.EnvPrefix)
}
