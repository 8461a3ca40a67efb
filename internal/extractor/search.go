package extractor

import (
	"context"
	"errors"

	"dineoffer-api/internal/models"
	"dineoffer-api/internal/normalizer"
	"dineoffer-api/internal/provider"
)

// SearchExtractor answers the extractor contract for one platform by asking
// a search provider and parsing whatever text comes back.
type SearchExtractor struct {
	platform models.Platform
	provider provider.Provider
}

// NewSearchExtractor builds a search-backed extractor for the platform.
func NewSearchExtractor(platform models.Platform, p provider.Provider) *SearchExtractor {
	return &SearchExtractor{platform: platform, provider: p}
}

func (s *SearchExtractor) Platform() models.Platform { return s.platform }

// Extract issues a single-platform prompt and normalizes the response.
// Offers the provider attributes to a different platform than the one asked
// about are filtered out so one source cannot pollute another's results.
func (s *SearchExtractor) Extract(ctx context.Context, restaurant, city string) ([]models.Offer, error) {
	prompt := BuildSearchPrompt(restaurant, city, []models.Platform{s.platform})

	text, err := s.provider.Search(ctx, prompt)
	if err != nil {
		var perr *provider.Error
		if errors.As(err, &perr) && !perr.Fatal() {
			return nil, &ExtractionError{Source: s.platform, Reason: "not_found", Err: err}
		}
		return nil, &ExtractionError{Source: s.platform, Reason: "provider_error", Err: err}
	}

	result := normalizer.ParseSearchText(text, s.platform)
	offers := result.Offers[:0:0]
	for _, o := range result.Offers {
		if o.Platform == s.platform || o.Platform == models.PlatformUnknown {
			o.Platform = s.platform
			o.PlatformDisplayName = s.platform.DisplayName()
			offers = append(offers, o)
		}
	}
	return offers, nil
}

// CombinedSearch asks about every requested platform in one provider call
// (quick mode) and returns the parsed offers plus the provider's summary.
func CombinedSearch(ctx context.Context, p provider.Provider, restaurant, city string, platforms []models.Platform) ([]models.Offer, string, error) {
	prompt := BuildSearchPrompt(restaurant, city, platforms)

	text, err := p.Search(ctx, prompt)
	if err != nil {
		return nil, "", &ExtractionError{Source: models.PlatformUnknown, Reason: "provider_error", Err: err}
	}

	result := normalizer.ParseSearchText(text, models.PlatformUnknown)
	requested := make(map[models.Platform]bool, len(platforms))
	for _, pl := range platforms {
		requested[pl] = true
	}

	offers := result.Offers[:0:0]
	for _, o := range result.Offers {
		if len(requested) == 0 || requested[o.Platform] {
			offers = append(offers, o)
		}
	}
	return offers, result.Summary, nil
}
