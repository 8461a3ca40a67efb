package aggregator

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"dineoffer-api/internal/events"
	"dineoffer-api/internal/extractor"
	"dineoffer-api/internal/models"
)

type fakeExtractor struct {
	platform models.Platform
	offers   []models.Offer
	err      error
	delay    time.Duration
}

func (f *fakeExtractor) Platform() models.Platform { return f.platform }

func (f *fakeExtractor) Extract(ctx context.Context, restaurant, city string) ([]models.Offer, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.offers, nil
}

type fakeProvider struct {
	response string
	err      error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func offerOn(platform models.Platform, text string) models.Offer {
	return models.Offer{
		Platform:            platform,
		PlatformDisplayName: platform.Info().DisplayName,
		OfferType:           models.OfferTypeGeneral,
		DiscountText:        text,
	}
}

func testAggregator(fakes map[models.Platform]*fakeExtractor) *Aggregator {
	a := New(nil, nil, events.NewManager(false), 5*time.Second)
	a.factory = func(p models.Platform) (extractor.Extractor, error) {
		f, ok := fakes[p]
		if !ok {
			return nil, fmt.Errorf("no extractor for %s", p)
		}
		return f, nil
	}
	return a
}

func collect(t *testing.T, ch <-chan Event) (offers []models.Offer, terminal *Event) {
	t.Helper()
	for ev := range ch {
		switch ev.Kind {
		case KindOffer:
			if terminal != nil {
				t.Fatalf("offer event after terminal event")
			}
			offers = append(offers, ev.Offer)
		case KindDone, KindError:
			if terminal != nil {
				t.Fatalf("second terminal event %s", ev.Kind)
			}
			clone := ev
			terminal = &clone
		}
	}
	if terminal == nil {
		t.Fatalf("stream closed without terminal event")
	}
	return offers, terminal
}

func TestRunThoroughPartialFailure(t *testing.T) {
	a := testAggregator(map[models.Platform]*fakeExtractor{
		models.PlatformSwiggyDineout: {
			platform: models.PlatformSwiggyDineout,
			offers:   []models.Offer{offerOn(models.PlatformSwiggyDineout, "30% off on total bill")},
		},
		models.PlatformEazyDiner: {
			platform: models.PlatformEazyDiner,
			err:      &extractor.ExtractionError{Source: "eazydiner", Reason: "not_found"},
		},
		models.PlatformDistrict: {
			platform: models.PlatformDistrict,
			offers:   []models.Offer{offerOn(models.PlatformDistrict, "Flat ₹200 off")},
		},
	})

	session := NewSession("Olive Bar", "delhi", models.AllPlatforms(), ModeThorough)
	offers, terminal := collect(t, a.Run(context.Background(), session))

	if terminal.Kind != KindDone {
		t.Fatalf("terminal = %s (%s), want done", terminal.Kind, terminal.Reason)
	}
	if len(offers) != 2 {
		t.Fatalf("got %d offers, want 2", len(offers))
	}
	if terminal.Summary.TotalOffers != 2 {
		t.Errorf("summary total = %d, want 2", terminal.Summary.TotalOffers)
	}
	if session.Status() != StatusDone {
		t.Errorf("session status = %s, want done", session.Status())
	}
}

func TestRunThoroughAllFailed(t *testing.T) {
	a := testAggregator(map[models.Platform]*fakeExtractor{
		models.PlatformSwiggyDineout: {
			platform: models.PlatformSwiggyDineout,
			err:      &extractor.ExtractionError{Source: "swiggy_dineout", Reason: "provider_error"},
		},
		models.PlatformEazyDiner: {
			platform: models.PlatformEazyDiner,
			err:      &extractor.ExtractionError{Source: "eazydiner", Reason: "not_found"},
		},
	})

	platforms := []models.Platform{models.PlatformSwiggyDineout, models.PlatformEazyDiner}
	session := NewSession("Olive Bar", "delhi", platforms, ModeThorough)
	offers, terminal := collect(t, a.Run(context.Background(), session))

	if terminal.Kind != KindError {
		t.Fatalf("terminal = %s, want error", terminal.Kind)
	}
	if !strings.Contains(terminal.Reason, "all sources failed") {
		t.Errorf("reason = %q, want all-sources-failed", terminal.Reason)
	}
	if len(offers) != 0 {
		t.Errorf("got %d offers before error, want 0", len(offers))
	}
	if session.Status() != StatusFailed {
		t.Errorf("session status = %s, want failed", session.Status())
	}
}

func TestRunThoroughDeduplicatesAcrossPlatforms(t *testing.T) {
	dup := offerOn(models.PlatformSwiggyDineout, "20% off up to ₹150")
	a := testAggregator(map[models.Platform]*fakeExtractor{
		models.PlatformSwiggyDineout: {
			platform: models.PlatformSwiggyDineout,
			offers:   []models.Offer{dup, offerOn(models.PlatformSwiggyDineout, "20%  OFF up to ₹150")},
		},
	})

	session := NewSession("Olive Bar", "delhi", []models.Platform{models.PlatformSwiggyDineout}, ModeThorough)
	offers, terminal := collect(t, a.Run(context.Background(), session))

	if len(offers) != 1 {
		t.Fatalf("got %d offers, want 1 after dedup", len(offers))
	}
	if terminal.Summary.TotalOffers != 1 {
		t.Errorf("summary total = %d, want 1", terminal.Summary.TotalOffers)
	}
}

func TestRunQuickMode(t *testing.T) {
	content := `{
		"offers": [
			{"platform": "swiggy_dineout", "discount_text": "40% off up to ₹120", "offer_type": "pre_booked"},
			{"platform": "eazydiner", "discount_text": "Flat 25% off on walk-in", "offer_type": "walk_in"}
		],
		"summary": "Pre-book on Swiggy Dineout for the best deal"
	}`

	p := &fakeProvider{response: content}
	a := New(p, nil, events.NewManager(false), 5*time.Second)

	platforms := []models.Platform{models.PlatformSwiggyDineout, models.PlatformEazyDiner}
	session := NewSession("Olive Bar", "delhi", platforms, ModeQuick)
	offers, terminal := collect(t, a.Run(context.Background(), session))

	if terminal.Kind != KindDone {
		t.Fatalf("terminal = %s (%s), want done", terminal.Kind, terminal.Reason)
	}
	if len(offers) != 2 {
		t.Fatalf("got %d offers, want 2", len(offers))
	}
	if terminal.Summary.Tip != "Pre-book on Swiggy Dineout for the best deal" {
		t.Errorf("tip = %q, want provider summary", terminal.Summary.Tip)
	}
}

func TestRunQuickModeProviderFailure(t *testing.T) {
	p := &fakeProvider{err: fmt.Errorf("upstream unavailable")}
	a := New(p, nil, events.NewManager(false), 5*time.Second)

	session := NewSession("Olive Bar", "delhi", nil, ModeQuick)
	offers, terminal := collect(t, a.Run(context.Background(), session))

	if terminal.Kind != KindError {
		t.Fatalf("terminal = %s, want error", terminal.Kind)
	}
	if len(offers) != 0 {
		t.Errorf("got %d offers, want 0", len(offers))
	}
}

func TestRunCancelledContextStopsEmission(t *testing.T) {
	a := testAggregator(map[models.Platform]*fakeExtractor{
		models.PlatformSwiggyDineout: {
			platform: models.PlatformSwiggyDineout,
			delay:    50 * time.Millisecond,
			offers:   []models.Offer{offerOn(models.PlatformSwiggyDineout, "30% off")},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := NewSession("Olive Bar", "delhi", []models.Platform{models.PlatformSwiggyDineout}, ModeThorough)
	ch := a.Run(ctx, session)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		mode Mode
		ok   bool
	}{
		{"", ModeThorough, true},
		{"thorough", ModeThorough, true},
		{"quick", ModeQuick, true},
		{"fast", "", false},
	}
	for _, tc := range cases {
		mode, ok := ParseMode(tc.in)
		if mode != tc.mode || ok != tc.ok {
			t.Errorf("ParseMode(%q) = (%q, %v), want (%q, %v)", tc.in, mode, ok, tc.mode, tc.ok)
		}
	}
}
