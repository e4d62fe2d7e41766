package pricing

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/site-quote/internal/resilience"
)

// maxRemoteBytes caps the size of a downloaded pricing document.
const maxRemoteBytes = 4 << 20

// Remote is a Source backed by a YAML pricing document served over HTTP.
// The last good table is served for maxAge, then revalidated with its ETag,
// so an unchanged document is not downloaded or parsed again. Concurrent
// revalidations share one request.
type Remote struct {
	url    string
	client *http.Client
	maxAge time.Duration
	now    func() time.Time
	group  singleflight.Group

	mu      sync.Mutex
	etag    string
	table   Table
	fetched time.Time
}

// NewRemote creates a Remote source for url. A zero timeout means 30s. A
// maxAge <= 0 revalidates on every load.
func NewRemote(url string, timeout, maxAge time.Duration) *Remote {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Remote{
		url:    url,
		maxAge: maxAge,
		now:    time.Now,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// LoadPricing returns the cached table while it is fresh. Otherwise it
// fetches the document, keeping the cached table when the server answers
// 304 Not Modified. Network failures, 429 and 5xx responses are reported as
// transient.
func (r *Remote) LoadPricing(ctx context.Context) (Table, error) {
	if table, ok := r.fresh(); ok {
		return table, nil
	}
	v, err, _ := r.group.Do("load", func() (any, error) {
		return r.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(Table), nil
}

func (r *Remote) fresh() (Table, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.table == nil || r.maxAge <= 0 || r.now().Sub(r.fetched) >= r.maxAge {
		return nil, false
	}
	return r.table, true
}

func (r *Remote) fetch(ctx context.Context) (Table, error) {
	// A flight that finished between the caller's check and this one
	// already refreshed the table.
	if table, ok := r.fresh(); ok {
		return table, nil
	}

	r.mu.Lock()
	etag, cached := r.etag, r.table
	r.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "pricing: create request")
	}
	req.Header.Set("User-Agent", "site-quote/1.0")
	if cached != nil && etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, resilience.Transient(eris.Wrapf(err, "pricing: fetch %s", r.url))
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotModified && cached != nil:
		zap.L().Debug("pricing: remote table not modified", zap.String("url", r.url))
		r.mu.Lock()
		r.fetched = r.now()
		r.mu.Unlock()
		return cached, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, resilience.Transient(eris.Errorf("pricing: fetch %s: status %d", r.url, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("pricing: fetch %s: unexpected status %d", r.url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes))
	if err != nil {
		return nil, resilience.Transient(eris.Wrapf(err, "pricing: read %s", r.url))
	}
	table, err := Parse(data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.table = table
	r.etag = resp.Header.Get("ETag")
	r.fetched = r.now()
	r.mu.Unlock()

	zap.L().Info("pricing: remote table loaded",
		zap.String("url", r.url),
		zap.Int("currencies", len(table)),
		zap.String("etag", resp.Header.Get("ETag")),
	)
	return table, nil
}
