// Package extractor provides one extractor per offer source behind a single
// contract. Extractors return zero offers for recoverable conditions (page
// not found, provider returned nothing useful) and an *ExtractionError only
// when the source itself failed.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"dineoffer-api/internal/models"
)

// Extractor pulls candidate offers for one platform.
type Extractor interface {
	// Platform identifies the source this extractor covers.
	Platform() models.Platform
	// Extract returns normalized offers for the restaurant in the city.
	Extract(ctx context.Context, restaurant, city string) ([]models.Offer, error)
}

// ExtractionError is a source-specific extraction failure.
type ExtractionError struct {
	Source models.Platform
	Reason string // "not_found", "fetch_failed", "provider_error", ...
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Source, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Recoverable reports whether the orchestrator should treat this failure as
// "zero offers from this source" rather than a fatal condition.
func (e *ExtractionError) Recoverable() bool {
	return e.Reason == "not_found"
}

// BuildSearchPrompt produces the natural-language query sent to a search
// provider. With multiple platforms it asks one combined question (quick
// mode); with a single platform it scopes the question to that source.
func BuildSearchPrompt(restaurant, city string, platforms []models.Platform) string {
	if len(platforms) == 0 {
		platforms = models.AllPlatforms()
	}
	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, p.DisplayName())
	}

	return fmt.Sprintf(`Find current dine-in payment offers for "%s" in %s from these payment apps: %s.

Look for:
1. Flat discounts - e.g., "Flat 20%% off up to ₹200"
2. Pre-booking offers - discounts for reserving tables in advance
3. Walk-in / pay-via-app discounts
4. Bank card offers - extra discounts with HDFC, ICICI, Axis, SBI, Kotak, Amex cards
5. Weekday/weekend specials
6. Active promo codes

For each offer provide: platform name, discount amount (percentage and max cap in ₹), conditions (minimum order, valid days, card restrictions), and bank name for bank offers.

Important: only include currently active offers and be specific with numbers.`,
		restaurant, city, strings.Join(names, ", "))
}
