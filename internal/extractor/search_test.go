package extractor

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"dineoffer-api/internal/models"
	"dineoffer-api/internal/provider"
)

// fakeProvider returns canned text or a canned error.
type fakeProvider struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func TestSearchExtractor_FiltersForeignPlatforms(t *testing.T) {
	fake := &fakeProvider{text: `{
		"offers": [
			{"platform": "swiggy_dineout", "discount_text": "40% off on pre-booked meals"},
			{"platform": "eazydiner", "discount_text": "15% off walk-in"},
			{"platform": "unknown", "discount_text": "10% off for everyone"}
		]
	}`}

	ex := NewSearchExtractor(models.PlatformSwiggyDineout, fake)
	offers, err := ex.Extract(context.Background(), "Bercos", "Delhi")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// The eazydiner record is foreign; the unknown one is claimed.
	if len(offers) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(offers))
	}
	for _, o := range offers {
		if o.Platform != models.PlatformSwiggyDineout {
			t.Errorf("all offers must carry the extractor's platform, got %s", o.Platform)
		}
	}
}

func TestSearchExtractor_EmptyResponseIsZeroOffers(t *testing.T) {
	ex := NewSearchExtractor(models.PlatformEazyDiner, &fakeProvider{text: ""})
	offers, err := ex.Extract(context.Background(), "Bercos", "Delhi")
	if err != nil {
		t.Fatalf("empty response must not be an error, got %v", err)
	}
	if len(offers) != 0 {
		t.Errorf("expected zero offers, got %d", len(offers))
	}
}

func TestSearchExtractor_FatalProviderError(t *testing.T) {
	fake := &fakeProvider{err: &provider.Error{Provider: "fake", Status: http.StatusUnauthorized, Message: "bad key"}}
	ex := NewSearchExtractor(models.PlatformEazyDiner, fake)

	_, err := ex.Extract(context.Background(), "Bercos", "Delhi")
	if err == nil {
		t.Fatal("expected error")
	}
	exErr, ok := err.(*ExtractionError)
	if !ok {
		t.Fatalf("expected *ExtractionError, got %T", err)
	}
	if exErr.Reason != "provider_error" {
		t.Errorf("auth failure must be provider_error, got %q", exErr.Reason)
	}
	if exErr.Recoverable() {
		t.Error("provider auth failure is not recoverable")
	}
}

func TestBuildSearchPrompt(t *testing.T) {
	prompt := BuildSearchPrompt("Bercos", "Delhi", []models.Platform{models.PlatformDistrict})
	if !strings.Contains(prompt, `"Bercos" in Delhi`) {
		t.Errorf("prompt must name the restaurant and city: %q", prompt)
	}
	if !strings.Contains(prompt, "District") {
		t.Error("single-platform prompt must be scoped to that platform")
	}
	if strings.Contains(prompt, "EazyDiner") {
		t.Error("single-platform prompt must not mention other platforms")
	}

	combined := BuildSearchPrompt("Bercos", "Delhi", nil)
	for _, name := range []string{"Swiggy Dineout", "EazyDiner", "District"} {
		if !strings.Contains(combined, name) {
			t.Errorf("combined prompt missing %s", name)
		}
	}
}

func TestCombinedSearch_FiltersUnrequestedPlatforms(t *testing.T) {
	fake := &fakeProvider{text: `{
		"offers": [
			{"platform": "swiggy_dineout", "discount_text": "40% off pre-booked"},
			{"platform": "district", "discount_text": "25% off total bill"}
		],
		"summary": "Swiggy has the best deal"
	}`}

	offers, summary, err := CombinedSearch(context.Background(), fake, "Bercos", "Delhi",
		[]models.Platform{models.PlatformSwiggyDineout})
	if err != nil {
		t.Fatalf("CombinedSearch failed: %v", err)
	}
	if len(offers) != 1 || offers[0].Platform != models.PlatformSwiggyDineout {
		t.Errorf("expected only the requested platform's offers, got %+v", offers)
	}
	if summary != "Swiggy has the best deal" {
		t.Errorf("unexpected summary %q", summary)
	}
	if len(fake.prompts) != 1 {
		t.Errorf("quick mode must issue exactly one provider call, got %d", len(fake.prompts))
	}
}
