package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dineoffer-api/internal/models"
	"dineoffer-api/internal/normalizer"
)

// cityCodes maps common city names to District's URL city codes. Ambiguous
// NCR names all collapse to "ncr".
var cityCodes = map[string]string{
	"delhi":     "ncr",
	"new delhi": "ncr",
	"ncr":       "ncr",
	"gurgaon":   "ncr",
	"gurugram":  "ncr",
	"noida":     "ncr",
	"mumbai":    "mumbai",
	"bangalore": "bangalore",
	"bengaluru": "bangalore",
	"hyderabad": "hyderabad",
	"chennai":   "chennai",
	"pune":      "pune",
	"kolkata":   "kolkata",
	"ahmedabad": "ahmedabad",
	"jaipur":    "jaipur",
}

var (
	slugStripRe    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapseRe = regexp.MustCompile(`[\s_]+`)
	slugDashRe     = regexp.MustCompile(`-+`)
)

// CityCode resolves a city name to District's city code. Unknown cities fall
// back to a best-effort slug; the remote site may still resolve it.
func CityCode(city string) string {
	key := strings.ToLower(strings.TrimSpace(city))
	if code, ok := cityCodes[key]; ok {
		return code
	}
	return Slugify(key)
}

// Slugify converts a name to a URL slug the way District builds its paths.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugCollapseRe.ReplaceAllString(s, "-")
	s = slugDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// DistrictExtractor fetches a restaurant's District page and parses its
// offer blocks directly, with no search provider in between.
type DistrictExtractor struct {
	baseURL string
	client  *http.Client
}

// NewDistrictExtractor builds the District extractor. baseURL is overridable
// for tests; empty means the production site.
func NewDistrictExtractor(client *http.Client, baseURL string) *DistrictExtractor {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = "https://www.district.in"
	}
	return &DistrictExtractor{baseURL: baseURL, client: client}
}

func (d *DistrictExtractor) Platform() models.Platform { return models.PlatformDistrict }

// Extract builds candidate page URLs from the city code and slug variants,
// fetches the first one that resolves, and parses its offer blocks. A page
// that never resolves is a recoverable not_found, not a fatal error.
func (d *DistrictExtractor) Extract(ctx context.Context, restaurant, city string) ([]models.Offer, error) {
	code := CityCode(city)
	if code == "" {
		return nil, &ExtractionError{Source: d.Platform(), Reason: "not_found",
			Err: fmt.Errorf("no city code for %q", city)}
	}

	slugs := []string{
		Slugify(restaurant),
		Slugify(restaurant + " " + city),
		Slugify(strings.ReplaceAll(restaurant, "'", "")),
	}

	var lastErr error
	for _, slug := range seenOnce(slugs) {
		if slug == "" {
			continue
		}
		pageURL := fmt.Sprintf("%s/dining/%s/%s", d.baseURL, code, slug)
		offers, err := d.fetchAndParse(ctx, pageURL)
		if err != nil {
			lastErr = err
			var exErr *ExtractionError
			// Keep trying slug variants on not_found; bail on transport errors.
			if errors.As(err, &exErr) && exErr.Reason == "not_found" {
				continue
			}
			return nil, err
		}
		return offers, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &ExtractionError{Source: d.Platform(), Reason: "not_found"}
}

func (d *DistrictExtractor) fetchAndParse(ctx context.Context, pageURL string) ([]models.Offer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &ExtractionError{Source: d.Platform(), Reason: "fetch_failed", Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &ExtractionError{Source: d.Platform(), Reason: "fetch_failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &ExtractionError{Source: d.Platform(), Reason: "not_found"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ExtractionError{Source: d.Platform(), Reason: "fetch_failed",
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &ExtractionError{Source: d.Platform(), Reason: "parse_failed", Err: err}
	}
	return d.parseOffers(doc, pageURL), nil
}

// parseOffers walks the text blocks of the page looking for discount
// wording. District renders offers in plain cards, so matching on text
// shape is more stable than matching on class names.
func (d *DistrictExtractor) parseOffers(doc *goquery.Document, sourceURL string) []models.Offer {
	var offers []models.Offer
	best := make(map[string]int) // offer identity -> index into offers

	doc.Find("div, span, p, li, h3, h4").Each(func(_ int, sel *goquery.Selection) {
		if sel.Children().Length() > 0 {
			return // only leaf blocks; parents repeat their children's text
		}
		text := strings.TrimSpace(sel.Text())
		if len(text) < 10 || len(text) > 500 {
			return
		}
		lower := strings.ToLower(text)
		if !strings.Contains(lower, "off") && !strings.Contains(lower, "discount") &&
			!strings.Contains(lower, "cashback") && !strings.Contains(lower, "₹") {
			return
		}

		offer, ok := normalizer.NormalizeText(text, models.PlatformDistrict)
		if !ok {
			return
		}
		// A block without any numeric discount is navigation or marketing copy.
		if offer.DiscountPercentage == nil && offer.MaxDiscount == nil {
			return
		}
		src := sourceURL
		offer.SourceURL = &src

		key := offerIdentity(offer)
		if i, ok := best[key]; ok {
			if betterOffer(offer, offers[i]) {
				offers[i] = offer
			}
			return
		}
		best[key] = len(offers)
		offers = append(offers, offer)
	})

	return offers
}

// offerIdentity groups page blocks describing the same underlying offer.
func offerIdentity(o models.Offer) string {
	bank := "general"
	if o.BankName != nil {
		bank = *o.BankName
	}
	return bank + ":" + string(o.OfferType)
}

// betterOffer prefers the variant with the higher discount.
func betterOffer(a, b models.Offer) bool {
	av, bv := 0.0, 0.0
	if a.DiscountPercentage != nil {
		av = *a.DiscountPercentage
	}
	if b.DiscountPercentage != nil {
		bv = *b.DiscountPercentage
	}
	if av != bv {
		return av > bv
	}
	if a.MaxDiscount != nil {
		av = *a.MaxDiscount
	}
	if b.MaxDiscount != nil {
		bv = *b.MaxDiscount
	}
	return av > bv
}

func seenOnce(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
