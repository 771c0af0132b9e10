package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/logimarket/leadflow/internal/extract"
	"github.com/logimarket/leadflow/internal/lead"
)

const companyPage = `<html><head><title>ABC運送 | トップ</title></head>
<body>contact@abc-unso.co.jp 03-1234-5678</body></html>`

func TestSelectQueries_DeterministicRotation(t *testing.T) {
	t.Parallel()

	queries := []string{"A", "B", "C"}

	assert.Equal(t, []string{"B", "C", "A"}, SelectQueries(queries, 10, 3))
	// Advances exactly one position per day.
	assert.Equal(t, []string{"C", "A", "B"}, SelectQueries(queries, 11, 3))
	assert.Equal(t, SelectQueries(queries, 10, 3), SelectQueries(queries, 13, 3))

	assert.Nil(t, SelectQueries(nil, 10, 3))
	assert.Equal(t, []string{"B", "C", "A"}, SelectQueries(queries, 1, 5))
}

func TestCrawlURL_InsertsNewLead(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	o := newTestOrchestrator(t, repo, &fakeFetcher{pages: map[string]string{
		"https://abc-unso.co.jp": companyPage,
	}}, nil)

	found := o.CrawlURL(context.Background(), "https://abc-unso.co.jp")

	require.Equal(t, 1, found)
	require.Len(t, repo.leads, 1)
	l := repo.leads["contact@abc-unso.co.jp"]
	assert.Equal(t, "ABC運送", l.CompanyName)
	assert.Equal(t, "03-1234-5678", l.Phone)
	assert.Equal(t, "https://abc-unso.co.jp", l.Website)
	assert.Equal(t, "https://abc-unso.co.jp", l.Source)
	assert.Equal(t, lead.StatusNew, l.Status)
	assert.Equal(t, "運送業", l.Industry)
}

func TestCrawlURL_SecondCrawlIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	o := newTestOrchestrator(t, repo, &fakeFetcher{pages: map[string]string{
		"https://abc-unso.co.jp": companyPage,
	}}, nil)

	first := o.CrawlURL(context.Background(), "https://abc-unso.co.jp")
	second := o.CrawlURL(context.Background(), "https://abc-unso.co.jp")

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	assert.Len(t, repo.leads, 1)
}

func TestCrawlURL_FetchFailureYieldsZero(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	o := newTestOrchestrator(t, repo, &fakeFetcher{err: errors.New("dns failure")}, nil)

	assert.Equal(t, 0, o.CrawlURL(context.Background(), "https://unreachable.co.jp"))
	assert.Empty(t, repo.leads)
}

func TestCrawlURL_InsertFailureDoesNotAbortOtherEmails(t *testing.T) {
	t.Parallel()

	page := `<body>first@carrier-a.co.jp second@carrier-b.co.jp</body>`
	repo := newFakeRepo()
	repo.insertErrs = map[string]error{"first@carrier-a.co.jp": errors.New("storage down")}
	o := newTestOrchestrator(t, repo, &fakeFetcher{pages: map[string]string{"https://x.co.jp": page}}, nil)

	found := o.CrawlURL(context.Background(), "https://x.co.jp")

	assert.Equal(t, 1, found)
	require.Len(t, repo.leads, 1)
	// No title tag: the hostname stands in for the company name.
	assert.Equal(t, "x.co.jp", repo.leads["second@carrier-b.co.jp"].CompanyName)
}

func TestRunSweep_PartialFailureIsolation(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscoverer{
		urls: map[string][]string{
			"A": {"https://a1.co.jp"},
			"C": {"https://c1.co.jp"},
		},
		errs: map[string]error{"B": errors.New("oracle outage")},
	}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a1.co.jp": `<body>info@a1-trans.co.jp</body>`,
		"https://c1.co.jp": `<body>info@c1-trans.co.jp</body>`,
	}}
	repo := newFakeRepo()
	o := newTestOrchestrator(t, repo, fetcher, disc)

	result := o.RunSweep(context.Background())

	assert.Equal(t, lead.SweepResult{Searched: 2, Found: 2}, result)
	assert.Len(t, repo.leads, 2)
	// Sweep leads carry the originating query as provenance.
	assert.Equal(t, "A", repo.leads["info@a1-trans.co.jp"].Source)
}

func TestRunSweep_CapsURLsPerQuery(t *testing.T) {
	t.Parallel()

	var urls []string
	pages := make(map[string]string)
	for i := 0; i < 20; i++ {
		u := fmt.Sprintf("https://site-%d.co.jp", i)
		urls = append(urls, u)
		pages[u] = fmt.Sprintf("<body>info@site-%d.co.jp</body>", i)
	}
	disc := &fakeDiscoverer{urls: map[string][]string{"A": urls, "B": nil, "C": nil}}
	repo := newFakeRepo()
	o := newTestOrchestrator(t, repo, &fakeFetcher{pages: pages}, disc)

	result := o.RunSweep(context.Background())

	assert.Equal(t, 15, result.Searched)
	assert.Equal(t, 15, result.Found)
}

func TestRunSweep_PublishesLeadCreatedEvents(t *testing.T) {
	t.Parallel()

	disc := &fakeDiscoverer{urls: map[string][]string{
		"A": {"https://a1.co.jp"}, "B": nil, "C": nil,
	}}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a1.co.jp": `<body>info@a1-trans.co.jp</body>`,
	}}
	pub := &fakePublisher{}
	o := New(
		fetcher, extract.New(), newFakeRepo(), disc,
		&fakeIDs{}, &fakeClock{now: time.Unix(864000, 0)}, pub, nil,
		Config{Industry: "運送業", Queries: []string{"A", "B", "C"}, PaceInterval: time.Millisecond},
		zap.NewNop(),
	)

	o.RunSweep(context.Background())

	require.Len(t, pub.events, 1)
	assert.Equal(t, createdTopic, pub.events[0].topic)
}

// --- fakes ---

func newTestOrchestrator(t *testing.T, repo *fakeRepo, fetcher *fakeFetcher, disc *fakeDiscoverer) *Orchestrator {
	t.Helper()
	if disc == nil {
		disc = &fakeDiscoverer{}
	}
	return New(
		fetcher,
		extract.New(),
		repo,
		disc,
		&fakeIDs{},
		&fakeClock{now: time.Unix(864000, 0)}, // epoch day 10
		nil,
		nil,
		Config{
			Industry:     "運送業",
			Queries:      []string{"A", "B", "C"},
			PaceInterval: time.Millisecond,
		},
		zap.NewNop(),
	)
}

type fakeFetcher struct {
	pages map[string]string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.pages[url], nil
}

type fakeDiscoverer struct {
	urls map[string][]string
	errs map[string]error
}

func (f *fakeDiscoverer) Discover(_ context.Context, query string) ([]string, error) {
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.urls[query], nil
}

type fakeRepo struct {
	mu         sync.Mutex
	leads      map[string]lead.Lead
	insertErrs map[string]error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{leads: make(map[string]lead.Lead)}
}

func (r *fakeRepo) FindByEmail(_ context.Context, email string) (*lead.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.leads[email]; ok {
		return &l, nil
	}
	return nil, nil
}

func (r *fakeRepo) Insert(_ context.Context, l lead.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.insertErrs[l.Email]; err != nil {
		return err
	}
	r.leads[l.Email] = l
	return nil
}

func (r *fakeRepo) RecordOutcome(_ context.Context, _ string, _ lead.SendOutcome) error {
	return nil
}

func (r *fakeRepo) CountSentSince(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (r *fakeRepo) ListByStatus(_ context.Context, _ lead.Status, _ int) ([]lead.Lead, error) {
	return nil, nil
}

func (r *fakeRepo) GetSetting(_ context.Context, _ string) (string, error) {
	return "", nil
}

type fakeIDs struct {
	mu sync.Mutex
	n  int
}

func (f *fakeIDs) NewID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	return fmt.Sprintf("lead-%d", f.n), nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type publishedEvent struct {
	topic   string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, payload: payload})
	return "fake-id", nil
}
