package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"continuous-futures/internal/alerting"
	"continuous-futures/internal/catalog"
	"continuous-futures/internal/config"
	"continuous-futures/internal/metrics"
	"continuous-futures/internal/provider"
	"continuous-futures/internal/storage"
	"continuous-futures/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Catalog catalog.Catalog
	Out     io.Writer

	// Fetcher and Notifier, when set, replace the configured provider chain and alert channel.
	Fetcher  provider.Fetcher
	Notifier alerting.Notifier
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config:  cfg,
		Logger:  logger.With().Str("component", "app").Logger(),
		Metrics: metrics.New(cfg.Metrics.Namespace),
		Catalog: catalog.Default(),
		Out:     os.Stdout,
	}
}

// newFetcher layers the provider chain: Quandl, then retries with rate limiting and a breaker,
// then the optional Redis cache in front so cache hits skip the limiter.
func (a *App) newFetcher() (provider.Fetcher, func(), error) {
	if a.Fetcher != nil {
		return a.Fetcher, func() {}, nil
	}

	pc := a.Config.Provider
	if pc.APIKey == "" {
		return nil, nil, fmt.Errorf("provider.api_key is required (set CONTCHAIN_PROVIDER_API_KEY)")
	}

	userAgent := pc.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	var fetcher provider.Fetcher = provider.NewQuandl(provider.QuandlOptions{
		BaseURL:   pc.BaseURL,
		APIKey:    pc.APIKey,
		Timeout:   pc.Timeout,
		UserAgent: userAgent,
	}, a.Logger)

	fetcher = provider.NewRetrying(fetcher, provider.RetryOptions{
		MaxAttempts:       pc.MaxAttempts,
		InitialBackoff:    pc.InitialBackoff,
		MaxBackoff:        pc.MaxBackoff,
		RequestsPerSecond: pc.RequestsPerSecond,
		Burst:             pc.Burst,
		BreakerFailures:   pc.BreakerFailures,
		BreakerTimeout:    pc.BreakerTimeout,
	}, a.Metrics, a.Logger)

	if !a.Config.Cache.Enabled {
		return fetcher, func() {}, nil
	}

	cc := a.Config.Cache
	client := redis.NewClient(&redis.Options{
		Addr:     cc.Addr,
		Password: cc.Password,
		DB:       cc.DB,
	})
	cached := provider.NewCached(fetcher, client, provider.CacheOptions{Prefix: cc.Prefix, TTL: cc.TTL}, a.Logger)

	closer := func() {
		if err := client.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("close redis client")
		}
	}
	return cached, closer, nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Notifier != nil {
		return a.Notifier
	}
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return alerting.NewLogNotifier(a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool, a.Metrics)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// requireStore opens the store or explains why the command cannot run without one.
func (a *App) requireStore(ctx context.Context, purpose string) (*storage.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, fmt.Errorf("database.dsn not configured; cannot %s", purpose)
	}
	return store, closeStore, nil
}

// selectProducts resolves explicit symbols, falling back to build.products, then to the whole catalog.
func (a *App) selectProducts(symbols []string) ([]catalog.Product, error) {
	if len(symbols) == 0 {
		symbols = a.Config.Build.Products
	}
	cleaned := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return a.Catalog.Select(cleaned)
}

// ExportOptions hold parameters for exporting a stored continuous series.
type ExportOptions struct {
	Product   string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
	VolPeriod int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Product string
	Limit   int
}

// BuildOptions configure a one-shot build.
type BuildOptions struct {
	Products []string
	FromYear int
	ToYear   int
	DryRun   bool
	Workers  int
}
