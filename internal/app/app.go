// Package app initializes and holds the long-lived application services.
package app

import (
	"context"
	"fmt"
	"time"

	pubsubclient "cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	archivegcs "github.com/logimarket/leadflow/internal/archive/gcs"
	archivelocal "github.com/logimarket/leadflow/internal/archive/local"
	archivememory "github.com/logimarket/leadflow/internal/archive/memory"
	systemclock "github.com/logimarket/leadflow/internal/clock/system"
	"github.com/logimarket/leadflow/internal/config"
	"github.com/logimarket/leadflow/internal/crawl"
	"github.com/logimarket/leadflow/internal/discovery"
	"github.com/logimarket/leadflow/internal/dispatch"
	"github.com/logimarket/leadflow/internal/extract"
	collyfetcher "github.com/logimarket/leadflow/internal/fetcher/colly"
	"github.com/logimarket/leadflow/internal/genai/anthropic"
	uuidgen "github.com/logimarket/leadflow/internal/id/uuid"
	"github.com/logimarket/leadflow/internal/lead"
	"github.com/logimarket/leadflow/internal/logging"
	smtpmailer "github.com/logimarket/leadflow/internal/mailer/smtp"
	"github.com/logimarket/leadflow/internal/metrics"
	pubsubpublisher "github.com/logimarket/leadflow/internal/publisher/pubsub"
	memorystore "github.com/logimarket/leadflow/internal/storage/memory"
	postgresstore "github.com/logimarket/leadflow/internal/storage/postgres"
)

// repository is the persistence surface the app owns and must shut down.
type repository interface {
	lead.Repository
	Close()
}

// App wires configuration into concrete services. It is initialized once at
// startup and fails fast when a critical dependency cannot be built.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	repo       repository
	crawler    *crawl.Orchestrator
	dispatcher *dispatch.Dispatcher
	location   *time.Location
	publisher  *pubsubpublisher.Publisher
}

// New builds the full service graph from cfg.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	metrics.Init()

	location, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, location: location}

	if err := a.buildRepository(ctx); err != nil {
		return nil, err
	}

	var publisher lead.Publisher
	if cfg.PubSub.ProjectID != "" {
		client, err := pubsubclient.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		p, err := pubsubpublisher.New(client, cfg.PubSub.Topic)
		if err != nil {
			return nil, fmt.Errorf("build publisher: %w", err)
		}
		a.publisher = p
		publisher = p
		logger.Info("publishing lifecycle events",
			zap.String("project", cfg.PubSub.ProjectID),
			zap.String("topic", cfg.PubSub.Topic))
	}

	blobs, err := a.buildArchive(ctx)
	if err != nil {
		return nil, err
	}

	clock := systemclock.New()
	ids := uuidgen.NewUUIDGenerator()

	if cfg.Anthropic.APIKey == "" {
		logger.Warn("anthropic.api_key is empty; target discovery will fail")
	}
	oracle := anthropic.New(anthropic.Config{
		APIKey:    cfg.Anthropic.APIKey,
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
	})

	a.crawler = crawl.New(
		collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.Crawler.UserAgent,
			Timeout:   cfg.FetchTimeout(),
		}),
		extract.New(cfg.Crawler.OwnDomains...),
		a.repo,
		discovery.New(oracle, logger),
		ids,
		clock,
		publisher,
		blobs,
		crawl.Config{
			Industry:        cfg.Crawler.Industry,
			Queries:         cfg.Crawler.Queries,
			QueriesPerSweep: cfg.Crawler.QueriesPerSweep,
			URLsPerQuery:    cfg.Crawler.URLsPerQuery,
			PaceInterval:    cfg.CrawlPace(),
		},
		logger,
	)

	if cfg.SMTP.Host == "" {
		logger.Warn("smtp.host is empty; outbound sends will fail")
	}
	a.dispatcher = dispatch.New(
		a.repo,
		smtpmailer.New(smtpmailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}),
		clock,
		publisher,
		dispatch.Config{
			DailyQuota:   cfg.Mailer.DailyQuota,
			PaceInterval: cfg.DispatchPace(),
			Timezone:     location,
		},
		logger,
	)

	return a, nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Crawler returns the crawl orchestrator.
func (a *App) Crawler() *crawl.Orchestrator {
	return a.crawler
}

// Dispatcher returns the outbound dispatcher.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// Location returns the configured scheduling timezone.
func (a *App) Location() *time.Location {
	return a.location
}

// Readiness reports whether the repository answers queries.
func (a *App) Readiness(ctx context.Context) error {
	if _, err := a.repo.GetSetting(ctx, "outreach.subject"); err != nil {
		return fmt.Errorf("repository: %w", err)
	}
	return nil
}

// Close shuts down all services. Safe to call once after commands finish.
func (a *App) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.repo != nil {
		a.repo.Close()
	}
	_ = a.logger.Sync()
}

func (a *App) buildRepository(ctx context.Context) error {
	if a.cfg.DB.DSN == "" {
		a.logger.Warn("db.dsn is empty; using in-memory repository, leads will not survive restarts")
		a.repo = memorystore.NewLeadStore()
		return nil
	}
	store, err := postgresstore.NewLeadStore(ctx, postgresstore.Config{
		DSN:      a.cfg.DB.DSN,
		MaxConns: a.cfg.DB.MaxConns,
		MinConns: a.cfg.DB.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	a.logger.Info("connected to postgres")
	a.repo = store
	return nil
}

func (a *App) buildArchive(ctx context.Context) (lead.BlobStore, error) {
	switch a.cfg.Archive.Provider {
	case "off", "":
		return nil, nil
	case "memory":
		return archivememory.New(), nil
	case "local":
		store, err := archivelocal.New(archivelocal.Config{BaseDir: a.cfg.Archive.Dir})
		if err != nil {
			return nil, fmt.Errorf("build local archive: %w", err)
		}
		a.logger.Info("archiving snapshots locally", zap.String("dir", a.cfg.Archive.Dir))
		return store, nil
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		store, err := archivegcs.New(client, archivegcs.Config{Bucket: a.cfg.Archive.Bucket})
		if err != nil {
			return nil, fmt.Errorf("build gcs archive: %w", err)
		}
		a.logger.Info("archiving snapshots to gcs", zap.String("bucket", a.cfg.Archive.Bucket))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", a.cfg.Archive.Provider)
	}
}
