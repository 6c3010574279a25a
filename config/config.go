package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Security    SecurityConfig    `mapstructure:"security"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Progression ProgressionConfig `mapstructure:"progression"`
}

type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	Debug           bool   `mapstructure:"debug"`
	AdminKey        string `mapstructure:"admin_key"`
	DefaultTimezone string `mapstructure:"default_timezone"` // used when a user's timezone is missing or invalid
}

type DatabaseConfig struct {
	Mode        string        `mapstructure:"mode"` // sqlite | sqlite_memory | mysql | postgres
	SQLitePath  string        `mapstructure:"sqlite_path"`
	MySQLDSN    string        `mapstructure:"mysql_dsn"`
	PostgresDSN string        `mapstructure:"postgres_dsn"`
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLife     time.Duration `mapstructure:"max_life"`
	LogQueries  bool          `mapstructure:"log_queries"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"` // empty → stdout exporter
	Insecure     bool    `mapstructure:"insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type SchedulerConfig struct {
	AdaptationInterval    time.Duration `mapstructure:"adaptation_interval"`
	AdaptationConcurrency int           `mapstructure:"adaptation_concurrency"`
	AdaptationLockTTL     time.Duration `mapstructure:"adaptation_lock_ttl"`
	StreakRefreshInterval time.Duration `mapstructure:"streak_refresh_interval"`
}

type CatalogConfig struct {
	Path        string `mapstructure:"path"` // empty → embedded default catalog
	SyncOnStart bool   `mapstructure:"sync_on_start"`
}

// ProgressionConfig overrides the built-in progression tables. Zero values keep
// the defaults.
type ProgressionConfig struct {
	MetricBounds   map[string]MetricBounds `mapstructure:"metric_bounds"`
	Calibration    CalibrationConfig       `mapstructure:"calibration"`
	Rotation       RotationConfig          `mapstructure:"rotation"`
	StreakLookback int                     `mapstructure:"streak_lookback"`
}

type MetricBounds struct {
	Min     float64 `mapstructure:"min"`
	Max     float64 `mapstructure:"max"`
	Default float64 `mapstructure:"default"`
}

type CalibrationConfig struct {
	WindowDays       int     `mapstructure:"window_days"`
	MinSamples       int     `mapstructure:"min_samples"`
	RaiseAchievement float64 `mapstructure:"raise_achievement"`
	RaiseCompletion  float64 `mapstructure:"raise_completion"`
	LowerAchievement float64 `mapstructure:"lower_achievement"`
	LowerCompletion  float64 `mapstructure:"lower_completion"`
	Step             float64 `mapstructure:"step"`
}

type RotationConfig struct {
	UnlockDays     int                 `mapstructure:"unlock_days"`
	RecentDays     int                 `mapstructure:"recent_days"`
	RecencyPenalty float64             `mapstructure:"recency_penalty"`
	WeakStatBoost  float64             `mapstructure:"weak_stat_boost"`
	DayBoost       float64             `mapstructure:"day_boost"`
	BaseWeights    map[string]int      `mapstructure:"base_weights"`
	DayPreferences map[string][]string `mapstructure:"day_preferences"` // weekday name → template keys
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.default_timezone", "UTC")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/fitquest.db")
	v.SetDefault("database.max_open", 50)
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("security.jwt_ttl", "720h")
	v.SetDefault("security.rate_limit_rps", 20)
	v.SetDefault("security.rate_limit_burst", 40)
	v.SetDefault("tracing.service_name", "fitquest")
	v.SetDefault("tracing.sample_ratio", 0.1)
	v.SetDefault("scheduler.adaptation_interval", "168h")
	v.SetDefault("scheduler.adaptation_concurrency", 4)
	v.SetDefault("scheduler.adaptation_lock_ttl", "10m")
	v.SetDefault("scheduler.streak_refresh_interval", "1h")
	v.SetDefault("catalog.sync_on_start", true)
	v.SetDefault("progression.streak_lookback", 365)
}
