// Package crawl sequences discovery, fetching, extraction, and persistence
// into the daily lead-acquisition sweep.
package crawl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/logimarket/leadflow/internal/extract"
	"github.com/logimarket/leadflow/internal/lead"
	"github.com/logimarket/leadflow/internal/metrics"
)

const (
	defaultQueriesPerSweep = 3
	defaultURLsPerQuery    = 15
	defaultPaceInterval    = 2 * time.Second

	createdTopic = "lead.created"
)

// Config controls sweep behavior.
type Config struct {
	// Industry is the fixed sector label stamped on every lead.
	Industry string
	// Queries is the rotating list of candidate search phrases.
	Queries         []string
	QueriesPerSweep int
	URLsPerQuery    int
	// PaceInterval spaces consecutive page fetches. It bounds the request
	// rate against third-party sites to one in-flight fetch at a time.
	PaceInterval time.Duration
}

// Orchestrator runs the crawl pipeline. Per-item failures are absorbed and
// logged; only context cancellation stops a sweep early.
type Orchestrator struct {
	fetcher   lead.Fetcher
	extractor *extract.Extractor
	repo      lead.Repository
	disc      lead.Discoverer
	ids       lead.IDGenerator
	clock     lead.Clock
	publisher lead.Publisher
	blobs     lead.BlobStore
	limiter   *rate.Limiter
	logger    *zap.Logger
	cfg       Config
}

// New constructs an Orchestrator. publisher and blobs may be nil; lifecycle
// events and page snapshots are then skipped.
func New(
	fetcher lead.Fetcher,
	extractor *extract.Extractor,
	repo lead.Repository,
	disc lead.Discoverer,
	ids lead.IDGenerator,
	clock lead.Clock,
	publisher lead.Publisher,
	blobs lead.BlobStore,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.QueriesPerSweep <= 0 {
		cfg.QueriesPerSweep = defaultQueriesPerSweep
	}
	if cfg.URLsPerQuery <= 0 {
		cfg.URLsPerQuery = defaultURLsPerQuery
	}
	if cfg.PaceInterval <= 0 {
		cfg.PaceInterval = defaultPaceInterval
	}
	return &Orchestrator{
		fetcher:   fetcher,
		extractor: extractor,
		repo:      repo,
		disc:      disc,
		ids:       ids,
		clock:     clock,
		publisher: publisher,
		blobs:     blobs,
		limiter:   rate.NewLimiter(rate.Every(cfg.PaceInterval), 1),
		logger:    logger,
		cfg:       cfg,
	}
}

// SelectQueries picks n consecutive queries starting at epochDay mod
// len(queries), wrapping around. The rotation advances exactly one position
// per calendar day and is reproducible without external state.
func SelectQueries(queries []string, epochDay int, n int) []string {
	if len(queries) == 0 || n <= 0 {
		return nil
	}
	if n > len(queries) {
		n = len(queries)
	}
	start := epochDay % len(queries)
	if start < 0 {
		start += len(queries)
	}
	selected := make([]string, 0, n)
	for i := 0; i < n; i++ {
		selected = append(selected, queries[(start+i)%len(queries)])
	}
	return selected
}

// CrawlURL fetches, extracts, and persists new leads from one URL, returning
// the count of newly inserted leads. Fetch failures and known emails yield 0.
func (o *Orchestrator) CrawlURL(ctx context.Context, pageURL string) int {
	return o.crawl(ctx, pageURL, pageURL)
}

// RunSweep runs one bounded daily crawl across the rotation's 3 queries.
func (o *Orchestrator) RunSweep(ctx context.Context) lead.SweepResult {
	var result lead.SweepResult

	epochDay := int(o.clock.Now().Unix() / 86400)
	queries := SelectQueries(o.cfg.Queries, epochDay, o.cfg.QueriesPerSweep)

	for _, query := range queries {
		urls, err := o.disc.Discover(ctx, query)
		metrics.RecordDiscoveryQuery(err == nil)
		if err != nil {
			// One bad query never aborts the sweep.
			o.logger.Error("discovery query failed",
				zap.String("query", query),
				zap.Error(err),
			)
			continue
		}
		if len(urls) > o.cfg.URLsPerQuery {
			urls = urls[:o.cfg.URLsPerQuery]
		}
		for _, pageURL := range urls {
			if err := o.limiter.Wait(ctx); err != nil {
				return result
			}
			result.Searched++
			result.Found += o.crawl(ctx, pageURL, query)
		}
	}

	metrics.RecordCrawlSweep()
	o.logger.Info("crawl sweep finished",
		zap.Int("searched", result.Searched),
		zap.Int("found", result.Found),
	)
	return result
}

func (o *Orchestrator) crawl(ctx context.Context, pageURL, source string) int {
	markup, err := o.fetcher.Fetch(ctx, pageURL)
	metrics.RecordPageFetch(err == nil)
	if err != nil {
		// All fetch error classes collapse to "no content" here.
		o.logger.Debug("page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return 0
	}
	if markup == "" {
		return 0
	}

	contacts := o.extractor.Extract(markup)
	if len(contacts.Emails) == 0 {
		return 0
	}

	name := contacts.CompanyName
	if name == "" {
		name = hostname(pageURL)
	}
	snapshotURI := o.archiveSnapshot(ctx, pageURL, markup)

	found := 0
	for _, email := range contacts.Emails {
		existing, err := o.repo.FindByEmail(ctx, email)
		if err != nil {
			o.logger.Error("lead lookup failed", zap.String("email", email), zap.Error(err))
			continue
		}
		if existing != nil {
			continue
		}
		id, err := o.ids.NewID()
		if err != nil {
			o.logger.Error("lead id generation failed", zap.Error(err))
			continue
		}
		l := lead.Lead{
			ID:          id,
			CompanyName: name,
			Email:       email,
			Phone:       first(contacts.Phones),
			Fax:         first(contacts.Faxes),
			Website:     pageURL,
			Industry:    o.cfg.Industry,
			Source:      source,
			Status:      lead.StatusNew,
			SnapshotURI: snapshotURI,
			CreatedAt:   o.clock.Now(),
		}
		if err := o.repo.Insert(ctx, l); err != nil {
			o.logger.Error("lead insert failed",
				zap.String("email", email),
				zap.String("url", pageURL),
				zap.Error(err),
			)
			continue
		}
		found++
		metrics.RecordLeadFound()
		o.publish(ctx, createdTopic, l)
	}
	return found
}

// archiveSnapshot stores the raw markup for operator audit. Failures are
// logged only; a missing snapshot never blocks insertion.
func (o *Orchestrator) archiveSnapshot(ctx context.Context, pageURL, markup string) string {
	if o.blobs == nil {
		return ""
	}
	digest := sha256.Sum256([]byte(markup))
	path := fmt.Sprintf("snapshots/%s/%s.html", hostname(pageURL), hex.EncodeToString(digest[:8]))
	uri, err := o.blobs.PutObject(ctx, path, "text/html; charset=utf-8", []byte(markup))
	if err != nil {
		o.logger.Warn("snapshot archive failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}
	return uri
}

func (o *Orchestrator) publish(ctx context.Context, topic string, l lead.Lead) {
	if o.publisher == nil {
		return
	}
	payload := map[string]any{
		"lead_id": l.ID,
		"email":   l.Email,
		"company": l.CompanyName,
		"website": l.Website,
		"source":  l.Source,
	}
	if _, err := o.publisher.Publish(ctx, topic, payload); err != nil {
		o.logger.Warn("lead event publish failed", zap.String("lead_id", l.ID), zap.Error(err))
	}
}

func hostname(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return pageURL
	}
	return u.Hostname()
}

func first(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}
