// Package config loads service configuration from an optional YAML file,
// a .env file and FPLCACHE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. FPLCACHE_SERVER_ADDR.
const EnvPrefix = "FPLCACHE"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	MCPPath      string        `mapstructure:"mcp_path"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RequireAuth  bool          `mapstructure:"require_auth"`
	AuthHeader   string        `mapstructure:"auth_header"`
	APIKey       string        `mapstructure:"api_key"`
}

// ArchiveConfig selects where snapshots live and how they are decompressed.
type ArchiveConfig struct {
	Backend      string   `mapstructure:"backend"` // fs|s3
	Dir          string   `mapstructure:"dir"`
	Decompressor string   `mapstructure:"decompressor"` // native|exec|auto
	XZPath       string   `mapstructure:"xz_path"`
	S3           S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type CacheConfig struct {
	Size  int         `mapstructure:"size"`
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"` // json|pretty
	FileEnabled   bool   `mapstructure:"file_enabled"`
	FilePath      string `mapstructure:"file_path"`
	RotationSize  int    `mapstructure:"rotation_size"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Load reads configuration. path may be empty, in which case only defaults,
// .env and the environment are used.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("archive.dir", "FPLCACHE_ARCHIVE_DIR", "FPLCACHE_DIR")
	_ = v.BindEnv("server.api_key", "FPLCACHE_SERVER_API_KEY", "FPLCACHE_API_KEY")
	_ = v.BindEnv("archive.s3.access_key_id", "FPLCACHE_ARCHIVE_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("archive.s3.secret_access_key", "FPLCACHE_ARCHIVE_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("archive.s3.region", "FPLCACHE_ARCHIVE_S3_REGION", "AWS_REGION")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Archive.S3.Bucket = strings.TrimSpace(cfg.Archive.S3.Bucket)
	cfg.Server.APIKey = strings.TrimSpace(cfg.Server.APIKey)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.mcp_path", "/mcp")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.require_auth", false)
	v.SetDefault("server.auth_header", "X-API-Key")
	v.SetDefault("server.api_key", "")

	v.SetDefault("archive.backend", "fs")
	v.SetDefault("archive.dir", "vendor/fplcache")
	v.SetDefault("archive.decompressor", "auto")
	v.SetDefault("archive.xz_path", "xz")
	v.SetDefault("archive.s3.bucket", "")
	v.SetDefault("archive.s3.region", "")
	v.SetDefault("archive.s3.prefix", "")
	v.SetDefault("archive.s3.endpoint", "")
	v.SetDefault("archive.s3.path_style", false)
	v.SetDefault("archive.s3.access_key_id", "")
	v.SetDefault("archive.s3.secret_access_key", "")

	v.SetDefault("cache.size", 512)
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.ttl", "24h")
	v.SetDefault("cache.redis.key_prefix", "fplcache:ts")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file_enabled", false)
	v.SetDefault("logging.file_path", "logs")
	v.SetDefault("logging.rotation_size", 100)
	v.SetDefault("logging.retention_days", 14)
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !strings.HasPrefix(c.Server.MCPPath, "/") {
		return fmt.Errorf("server.mcp_path must start with /")
	}
	if c.Server.RequireAuth && c.Server.APIKey == "" {
		return fmt.Errorf("server.api_key is required when server.require_auth is set (FPLCACHE_API_KEY)")
	}

	switch c.Archive.Backend {
	case "fs":
		if c.Archive.Dir == "" {
			return fmt.Errorf("archive.dir is required for the fs backend")
		}
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return fmt.Errorf("archive.s3.bucket is required for the s3 backend")
		}
		if c.Archive.S3.Region == "" {
			return fmt.Errorf("archive.s3.region is required for the s3 backend")
		}
	default:
		return fmt.Errorf("archive.backend must be one of: fs, s3")
	}
	validModes := map[string]bool{"native": true, "exec": true, "auto": true}
	if !validModes[c.Archive.Decompressor] {
		return fmt.Errorf("archive.decompressor must be one of: native, exec, auto")
	}

	if c.Cache.Size < 1 {
		return fmt.Errorf("cache.size must be at least 1")
	}
	if c.Cache.Redis.Enabled {
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required when redis is enabled")
		}
		if c.Cache.Redis.TTL <= 0 {
			return fmt.Errorf("cache.redis.ttl must be greater than 0")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "pretty": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, pretty")
	}
	return nil
}
