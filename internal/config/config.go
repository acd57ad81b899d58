// Package config loads stayctl settings from ~/.stayctl/config.toml, STAYCTL_*
// environment variables and built-in defaults, in increasing order of
// precedence: defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyAuthorityBaseURL        = "authority.base_url"
	KeyAuthorityRequestTimeout = "authority.request_timeout"
	KeyRefreshBuffer           = "auth.refresh_buffer"
	KeyFallbackTTL             = "auth.fallback_ttl"
	KeyStorageBackend          = "storage.backend"
	KeyDurablePath             = "storage.durable_path"
	KeyEphemeralDir            = "storage.ephemeral_dir"
	KeyRedisAddr               = "storage.redis.addr"
	KeyRedisPassword           = "storage.redis.password"
	KeyRedisDB                 = "storage.redis.db"
	KeyRedisPrefix             = "storage.redis.prefix"
	KeyLogLevel                = "log.level"
	KeyLogFormat               = "log.format"

	BackendTOML    = "toml"
	BackendKeyring = "keyring"
	BackendRedis   = "redis"

	envPrefix  = "STAYCTL"
	configDir  = ".stayctl"
	configName = "config"
)

type Config struct {
	AuthorityBaseURL string
	RequestTimeout   time.Duration
	RefreshBuffer    time.Duration
	FallbackTTL      time.Duration
	StorageBackend   string
	DurablePath      string
	EphemeralDir     string
	Redis            RedisConfig
	LogLevel         string
	LogFormat        string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Load reads the configuration for the user whose home directory is home.
func Load(home string) (Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v, home)

	v.SetConfigName(configName)
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(home, configDir))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		AuthorityBaseURL: strings.TrimSpace(v.GetString(KeyAuthorityBaseURL)),
		RequestTimeout:   v.GetDuration(KeyAuthorityRequestTimeout),
		RefreshBuffer:    v.GetDuration(KeyRefreshBuffer),
		FallbackTTL:      v.GetDuration(KeyFallbackTTL),
		StorageBackend:   strings.ToLower(strings.TrimSpace(v.GetString(KeyStorageBackend))),
		DurablePath:      expandHome(v.GetString(KeyDurablePath), home),
		EphemeralDir:     expandHome(v.GetString(KeyEphemeralDir), home),
		Redis: RedisConfig{
			Addr:     v.GetString(KeyRedisAddr),
			Password: v.GetString(KeyRedisPassword),
			DB:       v.GetInt(KeyRedisDB),
			Prefix:   v.GetString(KeyRedisPrefix),
		},
		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, nil, err
	}
	// Storage adapters locate their files through the same instance.
	v.Set(KeyDurablePath, cfg.DurablePath)

	return cfg, v, nil
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault(KeyAuthorityBaseURL, "http://localhost:8080/api")
	v.SetDefault(KeyAuthorityRequestTimeout, 30*time.Second)
	v.SetDefault(KeyRefreshBuffer, 60*time.Second)
	v.SetDefault(KeyFallbackTTL, 15*time.Minute)
	v.SetDefault(KeyStorageBackend, BackendTOML)
	v.SetDefault(KeyDurablePath, filepath.Join(home, configDir, "session.toml"))
	v.SetDefault(KeyEphemeralDir, "")
	v.SetDefault(KeyRedisAddr, "127.0.0.1:6379")
	v.SetDefault(KeyRedisPassword, "")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyRedisPrefix, "stayctl:")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
}

func (c Config) validate() error {
	var errs []error
	if c.AuthorityBaseURL == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyAuthorityBaseURL))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyAuthorityRequestTimeout))
	}
	if c.RefreshBuffer < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyRefreshBuffer))
	}
	if c.FallbackTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyFallbackTTL))
	}
	switch c.StorageBackend {
	case BackendTOML, BackendKeyring, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unsupported %s %q", KeyStorageBackend, c.StorageBackend))
	}
	return errors.Join(errs...)
}

func expandHome(path, home string) string {
	path = strings.TrimSpace(path)
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return filepath.Join(home, path[2:])
	}
	return path
}
