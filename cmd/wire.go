package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bnema/stayctl/internal/adapters/api"
	"github.com/bnema/stayctl/internal/adapters/authority"
	"github.com/bnema/stayctl/internal/adapters/cookiejar"
	"github.com/bnema/stayctl/internal/adapters/metrics"
	statusadapter "github.com/bnema/stayctl/internal/adapters/render/status"
	chainstore "github.com/bnema/stayctl/internal/adapters/storage/chain"
	filestore "github.com/bnema/stayctl/internal/adapters/storage/file"
	passstore "github.com/bnema/stayctl/internal/adapters/storage/pass"
	redisstore "github.com/bnema/stayctl/internal/adapters/storage/redis"
	tomlstore "github.com/bnema/stayctl/internal/adapters/storage/toml"
	"github.com/bnema/stayctl/internal/adapters/tokencodec"
	"github.com/bnema/stayctl/internal/adapters/transport"
	"github.com/bnema/stayctl/internal/application"
	"github.com/bnema/stayctl/internal/config"
	"github.com/bnema/stayctl/internal/logging"
	"github.com/bnema/stayctl/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

type app struct {
	cfg            config.Config
	logger         *slog.Logger
	auth           *application.AuthService
	jar            *cookiejar.Jar
	api            api.Client
	registry       *prometheus.Registry
	statusRenderer func(application.SessionStatus, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
	closers        []func() error
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg, v, err := config.Load(homeDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	a := &app{
		cfg:            cfg,
		logger:         logger,
		registry:       prometheus.NewRegistry(),
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}

	durable, err := a.wireDurableStore(cfg, v)
	if err != nil {
		return nil, err
	}
	ephemeralDir := cfg.EphemeralDir
	if ephemeralDir == "" {
		ephemeralDir = filestore.DefaultEphemeralRoot()
	}
	ephemeral := filestore.NewStore(ephemeralDir)

	collector := metrics.NewCollector(a.registry)
	clock := ports.SystemClock{}

	jar, err := cookiejar.New(durable, ephemeral, logger)
	if err != nil {
		return nil, fmt.Errorf("wire cookie jar: %w", err)
	}
	a.jar = jar

	authorityClient := authority.Client{
		BaseURL:        cfg.AuthorityBaseURL,
		HTTPClient:     &http.Client{Jar: jar},
		RequestTimeout: cfg.RequestTimeout,
		Cookies:        jar,
	}

	a.auth = application.NewAuthService(application.AuthServiceConfig{
		Authority: authorityClient,
		Tokens:    application.NewTokenStore(durable, ephemeral, logger, collector),
		Scheduler: application.NewRefreshScheduler(clock, cfg.RefreshBuffer, logger),
		Codec:     tokencodec.NewJWTCodec(clock, cfg.FallbackTTL),
		Jar:       jar,
		Clock:     clock,
		Logger:    logger,
		Metrics:   collector,
	})
	a.auth.OnLogout(func(reason error) {
		if reason != nil {
			logger.Warn("session ended", slog.String("reason", reason.Error()))
		}
	})

	a.api = api.Client{
		BaseURL: cfg.AuthorityBaseURL,
		HTTPClient: &http.Client{
			Jar:     jar,
			Timeout: cfg.RequestTimeout,
			Transport: &transport.Interceptor{
				Base:    http.DefaultTransport,
				Session: a.auth,
				Cookies: jar,
				Metrics: collector,
				Logger:  logger,
			},
		},
	}

	return a, nil
}

func (a *app) wireDurableStore(cfg config.Config, v *viper.Viper) (ports.KeyValueStore, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		store := redisstore.NewStore(redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.BackendKeyring:
		fallback, err := tomlstore.NewStore(v)
		if err != nil {
			return nil, fmt.Errorf("wire durable session file: %w", err)
		}
		store, err := chainstore.NewStoreChecked(passstore.NewStore(""), fallback)
		if err != nil {
			return nil, fmt.Errorf("wire keyring chain: %w", err)
		}
		return store, nil
	default:
		store, err := tomlstore.NewStore(v)
		if err != nil {
			return nil, fmt.Errorf("wire durable session file: %w", err)
		}
		return store, nil
	}
}

// restore brings back the previous session and reports whether it is usable.
func (a *app) restore(ctx context.Context) bool {
	return a.auth.Initialize(ctx)
}

func (a *app) close() error {
	a.auth.Close()

	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
