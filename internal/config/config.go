// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Grid       GridConfig       `yaml:"grid" mapstructure:"grid"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Directions DirectionsConfig `yaml:"directions" mapstructure:"directions"`
	Import     ImportConfig     `yaml:"import" mapstructure:"import"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`             // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"` // postgres DSN
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// GridConfig configures the hexagonal grid build.
type GridConfig struct {
	Resolution int `yaml:"resolution" mapstructure:"resolution"`
	Workers    int `yaml:"workers" mapstructure:"workers"` // 0 = GOMAXPROCS
}

// ScoringConfig holds the safety score weights. Weights sum to 100.
type ScoringConfig struct {
	IncidentWeight    float64 `yaml:"incident_weight" mapstructure:"incident_weight"`
	SeverityWeight    float64 `yaml:"severity_weight" mapstructure:"severity_weight"`
	MaxSeverityWeight float64 `yaml:"max_severity_weight" mapstructure:"max_severity_weight"`
	CountSaturation   float64 `yaml:"count_saturation" mapstructure:"count_saturation"`
	SeverityScale     float64 `yaml:"severity_scale" mapstructure:"severity_scale"`
}

// DirectionsConfig configures the OpenRouteService collaborator.
type DirectionsConfig struct {
	APIKey        string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Alternatives  int     `yaml:"alternatives" mapstructure:"alternatives"`
	WeightFactor  float64 `yaml:"weight_factor" mapstructure:"weight_factor"`
	ShareFactor   float64 `yaml:"share_factor" mapstructure:"share_factor"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	CacheSize     int     `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTLMins  int     `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
}

// ImportConfig configures incident ingestion.
type ImportConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultScoringConfig returns the production scoring weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		IncidentWeight:    40,
		SeverityWeight:    35,
		MaxSeverityWeight: 25,
		CountSaturation:   10,
		SeverityScale:     10,
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SAFEROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "saferoute.db")
	v.SetDefault("grid.resolution", 9)
	v.SetDefault("grid.workers", 0)
	v.SetDefault("scoring.incident_weight", 40)
	v.SetDefault("scoring.severity_weight", 35)
	v.SetDefault("scoring.max_severity_weight", 25)
	v.SetDefault("scoring.count_saturation", 10)
	v.SetDefault("scoring.severity_scale", 10)
	v.SetDefault("directions.base_url", "https://api.openrouteservice.org")
	v.SetDefault("directions.timeout_secs", 10)
	v.SetDefault("directions.alternatives", 2)
	v.SetDefault("directions.weight_factor", 1.4)
	v.SetDefault("directions.share_factor", 0.6)
	v.SetDefault("directions.rate_per_second", 2)
	v.SetDefault("directions.cache_size", 128)
	v.SetDefault("directions.cache_ttl_mins", 30)
	v.SetDefault("import.batch_size", 5000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
