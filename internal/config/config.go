package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	R2       R2Config       `mapstructure:"r2"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Playlist PlaylistConfig `mapstructure:"playlist"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"` // "dev" or "prod"
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	URI            string        `mapstructure:"uri"`
	Name           string        `mapstructure:"name"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	WatchChanges   bool          `mapstructure:"watch_changes"` // needs a replica set
}

// R2Config configures the S3-compatible bucket holding uploaded clips.
type R2Config struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	BucketName      string        `mapstructure:"bucket_name"`
	PublicBaseURL   string        `mapstructure:"public_base_url"` // optional public domain in front of the bucket
	URLExpiry       time.Duration `mapstructure:"url_expiry"`
}

// StreamConfig configures Cloudflare Stream.
type StreamConfig struct {
	AccountID      string `mapstructure:"account_id"`
	APIToken       string `mapstructure:"api_token"`
	APIBaseURL     string `mapstructure:"api_base_url"`
	CustomerDomain string `mapstructure:"customer_domain"`
}

// RedisConfig enables the cross-worker invalidation bus when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// JWTConfig holds the secret used to verify bearer tokens issued by the auth service.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// BreakerConfig configures the storage circuit breaker.
type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// PlaylistConfig is the named-option surface of the playlist engine.
type PlaylistConfig struct {
	StrictMode                  bool                `mapstructure:"strict_mode"`
	MistakeInclusionProbability float64             `mapstructure:"mistake_inclusion_probability"`
	StorageRetryBudget          int                 `mapstructure:"storage_retry_budget"`
	CatalogTTL                  time.Duration       `mapstructure:"catalog_ttl"`
	CoverageTTL                 time.Duration       `mapstructure:"coverage_ttl"`
	ProbeTimeout                time.Duration       `mapstructure:"probe_timeout"`
	BuildTimeout                time.Duration       `mapstructure:"build_timeout"`
	CoverageKinds               []string            `mapstructure:"coverage_kinds"`
	RequiredVideoKinds          []string            `mapstructure:"required_video_kinds"`
	OptionalVideoKinds          []string            `mapstructure:"optional_video_kinds"`
	ArchetypeFallbackOrder      map[string][]string `mapstructure:"archetype_fallback_order"`
	IncludeWeeklyClips          bool                `mapstructure:"include_weekly_clips"`
	MaxSubstitutes              int                 `mapstructure:"max_substitutes"`
	SimilarityWeights           SimilarityWeights   `mapstructure:"similarity_weights"`
}

// SimilarityWeights are priority ranks; 1 is the most important attribute.
type SimilarityWeights struct {
	MuscleGroup float64 `mapstructure:"muscle_group"`
	Equipment   float64 `mapstructure:"equipment"`
	Difficulty  float64 `mapstructure:"difficulty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("log.mode", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "workout_playlist")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.watch_changes", false)
	v.SetDefault("r2.region", "auto")
	v.SetDefault("r2.url_expiry", "15m")
	v.SetDefault("redis.channel", "playlist-cache-invalidation")

	v.SetDefault("breaker.max_requests", 3)
	v.SetDefault("breaker.interval", "1m")
	v.SetDefault("breaker.timeout", "30s")
	v.SetDefault("breaker.min_requests", 10)
	v.SetDefault("breaker.failure_ratio", 0.6)

	v.SetDefault("playlist.strict_mode", false)
	v.SetDefault("playlist.mistake_inclusion_probability", 0.30)
	v.SetDefault("playlist.storage_retry_budget", 2)
	v.SetDefault("playlist.catalog_ttl", "15m")
	v.SetDefault("playlist.coverage_ttl", "5m")
	v.SetDefault("playlist.probe_timeout", "3s")
	v.SetDefault("playlist.build_timeout", "30s")
	v.SetDefault("playlist.coverage_kinds", []string{"instruction", "technique", "mistake"})
	v.SetDefault("playlist.required_video_kinds", []string{"technique", "instruction"})
	v.SetDefault("playlist.optional_video_kinds", []string{
		"mistake", "intro", "weekly", "closing", "reminder",
		"contextual_intro", "contextual_outro", "mid_workout", "theme_based", "motivational_break",
	})
	v.SetDefault("playlist.archetype_fallback_order", map[string][]string{
		"mentor":       {"mentor", "professional", "peer"},
		"professional": {"professional", "mentor", "peer"},
		"peer":         {"peer", "professional", "mentor"},
	})
	v.SetDefault("playlist.include_weekly_clips", true)
	v.SetDefault("playlist.max_substitutes", 5)
	v.SetDefault("playlist.similarity_weights.muscle_group", 1)
	v.SetDefault("playlist.similarity_weights.equipment", 2)
	v.SetDefault("playlist.similarity_weights.difficulty", 3)
}

// LoadConfig reads configuration from <path>/config.yaml and environment
// variables (nested keys use underscores: PLAYLIST_STRICT_MODE).
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	// A missing file is fine; defaults and env vars still apply.
	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	return config, nil
}
