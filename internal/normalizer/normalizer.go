// Package normalizer turns heterogeneous offer text from any platform into
// the canonical Offer shape. Every function here is pure and total:
// unparseable fields are omitted, never errors.
package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"dineoffer-api/internal/models"
)

var (
	percentRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%\s*(?:off|discount|cashback)`)
	flatRe    = regexp.MustCompile(`(?i)(?:₹|rs\.?|inr)\s*(\d+(?:\.\d+)?)\s*off`)
	maxRe     = regexp.MustCompile(`(?i)(?:up\s*to|upto|max(?:imum)?|capped\s+at)[:\s]*(?:₹|rs\.?|inr)?\s*(\d+(?:\.\d+)?)\s*(%)?`)
	minRe     = regexp.MustCompile(`(?i)min(?:imum)?\.?\s*(?:spend|order|transaction|bill)?\s*(?:of\s*)?(?:₹|rs\.?|inr)\s*(\d+(?:\.\d+)?)`)
	couponRe  = regexp.MustCompile(`(?i)code:?\s+([A-Z0-9]{4,12})\b`)
	daysRe    = regexp.MustCompile(`(?i)\b(all\s+days|weekdays?(?:\s+only)?|weekends?(?:\s+only)?|mon(?:day)?|tue(?:sday)?|wed(?:nesday)?|thu(?:rsday)?|fri(?:day)?|sat(?:urday)?|sun(?:day)?)\b`)
)

// knownBanks maps lowercase markers found in offer text to display names.
// Longer markers are checked first so "american express" wins over "amex".
var knownBanks = []struct {
	marker string
	name   string
}{
	{"american express", "American Express"},
	{"hdfc", "HDFC"},
	{"icici", "ICICI"},
	{"axis", "Axis"},
	{"sbi", "SBI"},
	{"kotak", "Kotak"},
	{"amex", "American Express"},
	{"hsbc", "HSBC"},
	{"rbl", "RBL"},
	{"idfc", "IDFC First"},
	{"yes bank", "Yes Bank"},
	{"au bank", "AU Bank"},
	{"federal", "Federal Bank"},
	{"indusind", "IndusInd"},
}

// NormalizeText applies the field extraction rules to one free-text record.
// The rules are independent; a single record may populate several fields.
// The second return is false only when no discount text can be derived at
// all, in which case the record must be dropped, not emitted.
func NormalizeText(text string, platform models.Platform) (models.Offer, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Offer{}, false
	}

	offer := models.Offer{
		Platform:            platform,
		PlatformDisplayName: platform.DisplayName(),
		OfferType:           models.OfferTypeGeneral,
		DiscountText:        text,
	}

	lower := strings.ToLower(text)

	if m := percentRe.FindStringSubmatch(text); m != nil {
		if pct, err := strconv.ParseFloat(m[1], 64); err == nil && pct >= 0 && pct <= 100 {
			offer.DiscountPercentage = &pct
		}
		// Out-of-range percentages are a non-match, not a clamp.
	}

	// "up to 50%" is a percentage phrasing, not a monetary cap; the trailing
	// percent capture rejects it while a later "max ₹100" still counts.
	for _, m := range maxRe.FindAllStringSubmatch(text, -1) {
		if m[2] == "%" {
			continue
		}
		if amt, err := strconv.ParseFloat(m[1], 64); err == nil && amt > 0 {
			offer.MaxDiscount = &amt
			break
		}
	}
	if offer.MaxDiscount == nil && offer.DiscountPercentage == nil {
		// A flat "₹150 off" with no percentage caps the saving at the flat amount.
		if m := flatRe.FindStringSubmatch(text); m != nil {
			if amt, err := strconv.ParseFloat(m[1], 64); err == nil && amt > 0 {
				offer.MaxDiscount = &amt
			}
		}
	}

	if bank := DetectBank(text); bank != "" {
		offer.BankName = &bank
	}

	offer.OfferType = detectOfferType(lower, offer.BankName != nil)

	if m := minRe.FindStringSubmatch(text); m != nil {
		if amt, err := strconv.ParseFloat(m[1], 64); err == nil && amt > 0 {
			offer.MinOrder = &amt
		}
	}

	if cond := extractConditions(text, lower); cond != "" {
		offer.Conditions = &cond
	}

	if offer.OfferType == models.OfferTypeCoupon || strings.Contains(lower, "code") {
		if code := extractCouponCode(text); code != "" {
			offer.CouponCode = &code
		}
	}

	if ct := detectCardType(lower); ct != "" {
		offer.CardType = &ct
	}

	attachPlatformLinks(&offer)
	return offer, true
}

// DetectBank returns the display name of the first known bank mentioned in
// the text, or "" when none matches.
func DetectBank(text string) string {
	lower := strings.ToLower(text)
	for _, b := range knownBanks {
		if strings.Contains(lower, b.marker) {
			return b.name
		}
	}
	return ""
}

// DetectPlatform infers the origin platform from wording. Used only for the
// single-combined-query mode where the provider tags offers in prose.
func DetectPlatform(text string) models.Platform {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "swiggy") || strings.Contains(lower, "dineout"):
		return models.PlatformSwiggyDineout
	case strings.Contains(lower, "eazydiner") || strings.Contains(lower, "eazy diner"):
		return models.PlatformEazyDiner
	case strings.Contains(lower, "district"):
		return models.PlatformDistrict
	}
	return models.PlatformUnknown
}

func detectOfferType(lower string, hasBank bool) models.OfferType {
	switch {
	case strings.Contains(lower, "pre-book") || strings.Contains(lower, "pre book") || strings.Contains(lower, "prebook"):
		return models.OfferTypePreBooked
	case strings.Contains(lower, "walk-in") || strings.Contains(lower, "walkin") || strings.Contains(lower, "pay via app"):
		return models.OfferTypeWalkIn
	case hasBank:
		return models.OfferTypeBankOffer
	case strings.Contains(lower, "coupon") || strings.Contains(lower, "code"):
		return models.OfferTypeCoupon
	}
	return models.OfferTypeGeneral
}

func detectCardType(lower string) string {
	hasCredit := strings.Contains(lower, "credit")
	hasDebit := strings.Contains(lower, "debit")
	switch {
	case hasCredit && !hasDebit:
		return "credit"
	case hasDebit && !hasCredit:
		return "debit"
	}
	return ""
}

// extractConditions collects validity-day phrases. Multiple hits are
// appended, not overwritten.
func extractConditions(text, lower string) string {
	var parts []string
	seen := make(map[string]bool)
	for _, m := range daysRe.FindAllString(text, -1) {
		key := strings.ToLower(strings.Join(strings.Fields(m), " "))
		if seen[key] {
			continue
		}
		seen[key] = true
		parts = append(parts, strings.TrimSpace(m))
	}
	return strings.Join(parts, ", ")
}

// extractCouponCode pulls an uppercase alphanumeric token of length 4-12
// following a "code" marker. Bank acronyms are not codes.
func extractCouponCode(text string) string {
	m := couponRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	token := m[1]
	if token != strings.ToUpper(token) {
		return ""
	}
	for _, b := range knownBanks {
		if strings.EqualFold(token, strings.ReplaceAll(b.marker, " ", "")) {
			return ""
		}
	}
	return token
}

// attachPlatformLinks fills navigation targets from the platform registry
// when the source itself did not provide them.
func attachPlatformLinks(offer *models.Offer) {
	info := offer.Platform.Info()
	if offer.PlatformURL == nil && info.Website != "" {
		site := info.Website
		offer.PlatformURL = &site
	}
	if offer.AppLink == nil && info.AppLink != "" {
		link := info.AppLink
		offer.AppLink = &link
	}
}

// DedupKey is the duplicate identity of a normalized offer: platform plus
// the case-folded, whitespace-collapsed discount text.
func DedupKey(offer models.Offer) string {
	folded := strings.ToLower(strings.Join(strings.Fields(offer.DiscountText), " "))
	return string(offer.Platform) + "|" + folded
}

// Dedup drops duplicate offers, keeping the first-seen instance. It is
// idempotent: applying it to its own output changes nothing.
func Dedup(offers []models.Offer) []models.Offer {
	seen := make(map[string]bool, len(offers))
	out := offers[:0:0]
	for _, o := range offers {
		key := DedupKey(o)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, o)
	}
	return out
}
