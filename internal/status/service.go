package status

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/notdeathm/notdeath/internal/probe"
)

// Prober issues a single reachability check against one target.
type Prober interface {
	Check(ctx context.Context, url string, expect int) probe.Result
}

// CertInspector reads the TLS certificate expiry of a host. A nil inspector
// disables certificate probing.
type CertInspector func(ctx context.Context, host string) (time.Time, bool)

// Tracker mirrors incidents to an external issue tracker. Both operations
// are best-effort; an unconfigured tracker returns zero values and nil.
type Tracker interface {
	OpenIssue(ctx context.Context, title, body string, labels []string) (string, error)
	CloseIssue(ctx context.Context, issueURL string) (bool, error)
}

// Notifier posts a short alert message to a webhook, single attempt.
type Notifier interface {
	Notify(ctx context.Context, content string) error
}

// ServiceConfig holds configuration for creating a Service.
type ServiceConfig struct {
	Config    *Config
	Store     Store
	Prober    Prober
	Inspector CertInspector
	Tracker   Tracker
	Notifier  Notifier
	Logger    zerolog.Logger

	// Concurrency bounds parallel component checks. Default: 3
	Concurrency int

	// CheckTimeout bounds one component's probe plus inspection. Default: 30s
	CheckTimeout time.Duration

	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time
}

// Service is the status aggregator. One Run regenerates every component
// record, detects transitions against the previously persisted document,
// drives the incident lifecycle and persists the result. Runs are invoked
// serially by the external scheduler; checks within a run are concurrent.
type Service struct {
	cfg       *Config
	store     Store
	prober    Prober
	inspector CertInspector
	tracker   Tracker
	notifier  Notifier
	logger    zerolog.Logger

	concurrency  int
	checkTimeout time.Duration
	now          func() time.Time
}

// NewService creates a new aggregator service.
func NewService(cfg ServiceConfig) *Service {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}
	checkTimeout := cfg.CheckTimeout
	if checkTimeout == 0 {
		checkTimeout = 30 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		cfg:          cfg.Config,
		store:        cfg.Store,
		prober:       cfg.Prober,
		inspector:    cfg.Inspector,
		tracker:      cfg.Tracker,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger,
		concurrency:  concurrency,
		checkTimeout: checkTimeout,
		now:          now,
	}
}

// Run executes one aggregator pass: check every configured component,
// merge with the previous document, open/resolve incidents on transitions
// and persist the new document. Only storage write failure is fatal.
func (s *Service) Run(ctx context.Context) (*Document, error) {
	start := s.now()

	prev, err := s.store.Load(ctx)
	if err != nil {
		// Load treats absent/malformed as (nil, nil); anything else is an
		// unexpected backend failure, still handled as a first run.
		s.logger.Warn().Err(err).Msg("loading previous document failed, treating as first run")
		prev = nil
	}

	components := s.checkAll(ctx, true)
	doc := s.transition(ctx, prev, components)

	if err := s.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save status document: %w", err)
	}

	entry := HistoryEntry{
		Time:    doc.UpdatedAt,
		Status:  doc.Status,
		Summary: doc.Summary,
	}
	for _, c := range doc.Components {
		entry.Components = append(entry.Components, ComponentState{ID: c.ID, Status: c.Status})
	}
	if err := s.store.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Msg("failed to append history")
	}

	s.logger.Info().
		Dur("duration", s.now().Sub(start)).
		Int("components", len(doc.Components)).
		Str("overall", string(doc.Status)).
		Msg("status run completed")

	return doc, nil
}

// RunChecksOnly re-probes every configured component without certificate
// inspection, transition detection or persistence. This is the lightweight
// path behind the on-demand query flag.
func (s *Service) RunChecksOnly(ctx context.Context) []Component {
	return s.checkAll(ctx, false)
}

// checkAll dispatches component checks across a bounded worker pool.
// Results keep config order; checks share no mutable state.
func (s *Service) checkAll(ctx context.Context, inspectTLS bool) []Component {
	type job struct {
		idx int
		cfg CheckConfig
	}

	checks := s.cfg.Components
	results := make([]Component, len(checks))

	jobs := make(chan job, len(checks))
	done := make(chan struct{}, s.concurrency)

	for i := 0; i < s.concurrency; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := range jobs {
				select {
				case <-ctx.Done():
					results[j.idx] = s.unknownComponent(j.cfg, ctx.Err().Error())
				default:
					results[j.idx] = s.checkComponent(ctx, j.cfg, inspectTLS)
				}
			}
		}()
	}

	for i, c := range checks {
		jobs <- job{idx: i, cfg: c}
	}
	close(jobs)

	for i := 0; i < s.concurrency; i++ {
		<-done
	}

	return results
}

// checkComponent runs one check. Probe failure is recorded as component
// state, never returned as an error.
func (s *Service) checkComponent(ctx context.Context, cfg CheckConfig, inspectTLS bool) Component {
	if cfg.Type != "http" {
		return s.unknownComponent(cfg, "unsupported check type")
	}

	checkCtx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	result := s.prober.Check(checkCtx, cfg.URL, cfg.Expect)

	cmp := Component{
		ID:          cfg.ID,
		Name:        cfg.Name,
		Status:      StatusOffline,
		Description: cfg.Description,
		CheckedAt:   s.now(),
		Details:     result.Details(),
	}
	if result.OK {
		cmp.Status = StatusOnline
	}

	// Expiry is attached opportunistically; a failed inspection never
	// blocks or degrades the component.
	if inspectTLS && s.inspector != nil {
		if expiry, ok := s.inspector(checkCtx, cfg.URL); ok {
			cmp.TLSExpires = &expiry
		}
	}

	return cmp
}

func (s *Service) unknownComponent(cfg CheckConfig, details string) Component {
	return Component{
		ID:          cfg.ID,
		Name:        cfg.Name,
		Status:      StatusUnknown,
		Description: cfg.Description,
		CheckedAt:   s.now(),
		Details:     details,
	}
}

// transition builds the new document from the fresh component set and the
// previous document, opening and resolving incidents on status changes.
func (s *Service) transition(ctx context.Context, prev *Document, components []Component) *Document {
	var incidents []Incident
	prevByID := map[string]Component{}
	if prev != nil {
		incidents = append(incidents, prev.Incidents...)
		for _, p := range prev.Components {
			prevByID[p.ID] = p
		}
	}

	doc := &Document{
		Components: components,
		Incidents:  incidents,
	}

	for _, cmp := range components {
		previous, seen := prevByID[cmp.ID]
		if !seen || previous.Status == cmp.Status {
			continue
		}

		msg := fmt.Sprintf("Status change for **%s**: %s → %s", cmp.Name, previous.Status, cmp.Status)
		if s.cfg.Alerts.NotifyOnChange && s.notifier != nil {
			s.attempt(ctx, "notify", func(ctx context.Context) error {
				return s.notifier.Notify(ctx, msg)
			})
		}

		switch {
		case cmp.Status.IsUnhealthy() && doc.OpenIncident(cmp.ID) == nil:
			doc.Incidents = append(doc.Incidents, s.openIncident(ctx, cmp, msg))
		case !cmp.Status.IsUnhealthy():
			s.resolveIncident(ctx, doc, cmp.ID)
		}
	}

	doc.Status = Overall(components)
	doc.Summary = Summarize(doc.Status)
	doc.UpdatedAt = s.now()
	return doc
}

// openIncident creates the local incident record. Ticket creation is
// delegated to the tracker; the incident is created even when the external
// call is skipped or fails, with an empty issue reference.
func (s *Service) openIncident(ctx context.Context, cmp Component, msg string) Incident {
	title := fmt.Sprintf("Status: %s is %s", cmp.Name, cmp.Status)
	body := fmt.Sprintf("%s\n\nChecked at: %s\nDetails: %s",
		msg, cmp.CheckedAt.Format(time.RFC3339), cmp.Details)

	var issueURL string
	if s.tracker != nil {
		s.attempt(ctx, "open issue", func(ctx context.Context) error {
			url, err := s.tracker.OpenIssue(ctx, title, body, []string{"incident"})
			issueURL = url
			return err
		})
	}

	incident := Incident{
		ID:          uuid.New().String(),
		ComponentID: cmp.ID,
		Title:       title,
		Status:      IncidentInvestigating,
		Issue:       issueURL,
		CreatedAt:   s.now(),
	}

	s.logger.Info().
		Str("component", cmp.ID).
		Str("incident", incident.ID).
		Str("issue", issueURL).
		Msg("incident opened")

	return incident
}

// resolveIncident marks the open incident for componentID resolved and
// closes the external ticket best-effort. Local resolution is never rolled
// back when the remote close fails.
func (s *Service) resolveIncident(ctx context.Context, doc *Document, componentID string) {
	open := doc.OpenIncident(componentID)
	if open == nil {
		return
	}

	resolvedAt := s.now()
	open.Status = IncidentResolved
	open.ResolvedAt = &resolvedAt

	if s.tracker != nil && open.Issue != "" {
		issueURL := open.Issue
		s.attempt(ctx, "close issue", func(ctx context.Context) error {
			_, err := s.tracker.CloseIssue(ctx, issueURL)
			return err
		})
	}

	s.logger.Info().
		Str("component", componentID).
		Str("incident", open.ID).
		Msg("incident resolved")
}

// attempt runs a best-effort external side effect: the failure is logged
// and discarded, never propagated to abort the run.
func (s *Service) attempt(ctx context.Context, op string, fn func(ctx context.Context) error) {
	if err := fn(ctx); err != nil {
		s.logger.Warn().Err(err).Str("op", op).Msg("external side effect failed")
	}
}
