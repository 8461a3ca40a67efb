package aggregator

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"dineoffer-api/internal/events"
	"dineoffer-api/internal/extractor"
	"dineoffer-api/internal/models"
	"dineoffer-api/internal/provider"
)

// EventKind identifies the kind of event emitted while a session runs.
type EventKind string

const (
	KindOffer EventKind = "offer"
	KindDone  EventKind = "done"
	KindError EventKind = "error"
)

// Event is a single item on a session's output stream. Exactly one
// terminal event (done or error) is emitted per session.
type Event struct {
	Kind    EventKind
	Offer   models.Offer
	Summary models.Summary
	Reason  string
}

// Aggregator fans extraction out across platforms and funnels results
// into a single deduplicated stream.
type Aggregator struct {
	provider provider.Provider // nil when no search provider is configured
	district extractor.Extractor
	events   *events.Manager
	timeout  time.Duration

	// factory overrides extractor construction in tests.
	factory func(models.Platform) (extractor.Extractor, error)
}

// New creates an aggregator. The search provider may be nil, in which
// case search-backed platforms report as unavailable.
func New(p provider.Provider, district extractor.Extractor, em *events.Manager, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Aggregator{
		provider: p,
		district: district,
		events:   em,
		timeout:  timeout,
	}
}

// extractorFor returns the extractor for a platform, or an error when
// the platform cannot be served with the current configuration.
func (a *Aggregator) extractorFor(platform models.Platform) (extractor.Extractor, error) {
	if a.factory != nil {
		return a.factory(platform)
	}
	if platform == models.PlatformDistrict {
		if a.district == nil {
			return nil, fmt.Errorf("district extractor not configured")
		}
		return a.district, nil
	}
	if a.provider == nil {
		return nil, fmt.Errorf("no search provider configured for %s", platform)
	}
	return extractor.NewSearchExtractor(platform, a.provider), nil
}

type platformResult struct {
	platform models.Platform
	offers   []models.Offer
	err      error
}

// Run executes the session and returns a channel of events. The channel
// is closed after the terminal event. Cancelling ctx aborts in-flight
// extraction; the session timeout bounds total extraction time without
// suppressing the terminal event.
func (a *Aggregator) Run(ctx context.Context, session *Session) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)

		a.events.PublishAggregationStarted(ctx, session.ID, session.Restaurant, session.City, session.Platforms)

		tracer := otel.Tracer("dineoffer-api/aggregator")
		ctx, span := tracer.Start(ctx, "aggregator.run")
		span.SetAttributes(
			attribute.String("session.id", session.ID),
			attribute.String("session.mode", string(session.Mode)),
			attribute.Int("session.platforms", len(session.Platforms)),
		)
		defer span.End()

		// The timeout bounds extraction only. Emission keys off the
		// caller's context so a timed-out session can still deliver
		// its terminal event.
		extractCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		switch session.Mode {
		case ModeQuick:
			a.runQuick(ctx, extractCtx, session, out)
		default:
			a.runThorough(ctx, extractCtx, session, out)
		}
	}()

	return out
}

func (a *Aggregator) runThorough(ctx, extractCtx context.Context, session *Session, out chan<- Event) {
	results := make(chan platformResult, len(session.Platforms))

	for _, platform := range session.Platforms {
		go func(platform models.Platform) {
			ex, err := a.extractorFor(platform)
			if err != nil {
				results <- platformResult{platform: platform, err: err}
				return
			}
			offers, err := ex.Extract(extractCtx, session.Restaurant, session.City)
			results <- platformResult{platform: platform, offers: offers, err: err}
		}(platform)
	}

	var failed int
	var firstErr error
	for range session.Platforms {
		res := <-results
		if res.err != nil {
			failed++
			if firstErr == nil {
				firstErr = res.err
			}
			log.Printf("aggregator: session %s: %s failed: %v", session.ID, res.platform, res.err)
			continue
		}
		for _, offer := range res.offers {
			if !session.Admit(offer) {
				continue
			}
			a.events.PublishOfferFound(ctx, session.ID, offer)
			select {
			case out <- Event{Kind: KindOffer, Offer: offer}:
			case <-ctx.Done():
				session.Finish(StatusFailed)
				return
			}
		}
	}

	a.finish(ctx, session, out, failed == len(session.Platforms), firstErr)
}

func (a *Aggregator) runQuick(ctx, extractCtx context.Context, session *Session, out chan<- Event) {
	if a.provider == nil {
		a.finish(ctx, session, out, true, fmt.Errorf("no search provider configured"))
		return
	}

	offers, tip, err := extractor.CombinedSearch(extractCtx, a.provider, session.Restaurant, session.City, session.Platforms)
	if err != nil {
		log.Printf("aggregator: session %s: combined search failed: %v", session.ID, err)
		a.finish(ctx, session, out, true, err)
		return
	}

	for _, offer := range offers {
		if !session.Admit(offer) {
			continue
		}
		a.events.PublishOfferFound(ctx, session.ID, offer)
		select {
		case out <- Event{Kind: KindOffer, Offer: offer}:
		case <-ctx.Done():
			session.Finish(StatusFailed)
			return
		}
	}

	session.SetTip(tip)
	a.finish(ctx, session, out, false, nil)
}

// finish emits the terminal event. A session fails only when every
// source failed and nothing was admitted; partial failures still
// produce a done event with whatever was found.
func (a *Aggregator) finish(ctx context.Context, session *Session, out chan<- Event, allFailed bool, cause error) {
	if allFailed && len(session.Offers()) == 0 {
		session.Finish(StatusFailed)
		a.events.PublishAggregationFinished(ctx, session.ID, 0, true)
		reason := "all sources failed"
		if cause != nil {
			reason = fmt.Sprintf("all sources failed: %v", cause)
		}
		select {
		case out <- Event{Kind: KindError, Reason: reason}:
		case <-ctx.Done():
		}
		return
	}

	session.Finish(StatusDone)
	summary := session.Summarize()
	a.events.PublishAggregationFinished(ctx, session.ID, summary.TotalOffers, false)
	select {
	case out <- Event{Kind: KindDone, Summary: summary}:
	case <-ctx.Done():
	}
}
