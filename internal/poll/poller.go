// Package poll implements the status poller: a timer-driven client that
// periodically fetches the status document, renders it, and backs off on
// repeated failure.
package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/notdeathm/notdeath/internal/status"
)

// Source fetches the current status document.
type Source interface {
	Fetch(ctx context.Context) (*status.Document, error)
}

// Renderer receives poll outcomes. RenderError stands in for the visible
// "unknown" fallback state; stale data is never presented as fresh.
type Renderer interface {
	RenderStatus(doc *status.Document)
	RenderError(err error)
}

// FailureThreshold is the number of consecutive failures after which the
// poller switches to the backoff interval.
const FailureThreshold = 3

// Config holds configuration for creating a Poller.
type Config struct {
	Source   Source
	Renderer Renderer
	Logger   zerolog.Logger

	// Interval is the default tick spacing. Default: 30s
	Interval time.Duration

	// BackoffInitial is the first backoff interval after the failure
	// threshold is reached. Default: 60s
	BackoffInitial time.Duration

	// BackoffMax caps the backoff interval. Default: 5m
	BackoffMax time.Duration

	// FetchTimeout bounds one fetch. Default: 10s
	FetchTimeout time.Duration
}

// Poller is a single-goroutine cooperative poll loop. Only one fetch is in
// flight at a time; visibility loss cancels the pending tick, and a manual
// refresh supersedes it.
type Poller struct {
	source   Source
	renderer Renderer
	logger   zerolog.Logger

	interval     time.Duration
	fetchTimeout time.Duration
	backoff      *backoff.ExponentialBackOff

	refreshCh chan struct{}
	visibleCh chan bool

	// loop-owned state, touched only from run
	visible  bool
	failures int
}

// NewPoller creates a new status poller.
func NewPoller(cfg Config) *Poller {
	interval := cfg.Interval
	if interval == 0 {
		interval = 30 * time.Second
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = 10 * time.Second
	}
	backoffInitial := cfg.BackoffInitial
	if backoffInitial == 0 {
		backoffInitial = time.Minute
	}
	backoffMax := cfg.BackoffMax
	if backoffMax == 0 {
		backoffMax = 5 * time.Minute
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = backoffInitial
	bo.MaxInterval = backoffMax
	bo.MaxElapsedTime = 0

	return &Poller{
		source:       cfg.Source,
		renderer:     cfg.Renderer,
		logger:       cfg.Logger,
		interval:     interval,
		fetchTimeout: fetchTimeout,
		backoff:      bo,
		refreshCh:    make(chan struct{}, 1),
		visibleCh:    make(chan bool, 1),
		visible:      true,
	}
}

// Refresh requests an immediate fetch, resetting the failure counter. The
// pending scheduled tick is discarded. Non-blocking; a refresh already
// queued absorbs the call.
func (p *Poller) Refresh() {
	select {
	case p.refreshCh <- struct{}{}:
	default:
	}
}

// SetVisible pauses polling while the viewing surface is hidden and resumes
// with an immediate fetch when it becomes visible again. Latest-wins: a
// queued, not-yet-consumed value is replaced so rapid toggles always leave
// the final state visible to the loop.
func (p *Poller) SetVisible(visible bool) {
	for {
		select {
		case p.visibleCh <- visible:
			return
		default:
			select {
			case <-p.visibleCh:
			default:
			}
		}
	}
}

// Run drives the poll loop until ctx is cancelled. The first fetch happens
// immediately.
func (p *Poller) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C:
			if !p.visible {
				// Paused; the tick that raced the pause is dropped.
				continue
			}
			p.fetch(ctx)
			timer.Reset(p.nextInterval())

		case <-p.refreshCh:
			p.failures = 0
			p.backoff.Reset()
			stopTimer(timer)
			p.fetch(ctx)
			timer.Reset(p.nextInterval())

		case visible := <-p.visibleCh:
			switch {
			case visible && !p.visible:
				p.visible = true
				stopTimer(timer)
				p.fetch(ctx)
				timer.Reset(p.nextInterval())
			case !visible && p.visible:
				p.visible = false
				stopTimer(timer)
			}
		}
	}
}

// fetch performs one poll and renders the outcome.
func (p *Poller) fetch(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	doc, err := p.source.Fetch(fetchCtx)
	if err != nil {
		p.failures++
		p.logger.Debug().Err(err).Int("failures", p.failures).Msg("status fetch failed")
		p.renderer.RenderError(err)
		return
	}

	p.failures = 0
	p.backoff.Reset()
	p.renderer.RenderStatus(doc)
}

// nextInterval returns the default interval, or a growing backoff interval
// once the consecutive-failure threshold is reached.
func (p *Poller) nextInterval() time.Duration {
	if p.failures >= FailureThreshold {
		return p.backoff.NextBackOff()
	}
	return p.interval
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// HTTPSource fetches the status document from the query endpoint.
type HTTPSource struct {
	URL        string
	HTTPClient *http.Client
}

// NewHTTPSource creates a source for the given status endpoint URL.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch retrieves and decodes the status document.
func (s *HTTPSource) Fetch(ctx context.Context) (*status.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from status endpoint", resp.StatusCode)
	}

	var doc status.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode status document: %w", err)
	}
	return &doc, nil
}

// Ensure HTTPSource implements Source.
var _ Source = (*HTTPSource)(nil)
