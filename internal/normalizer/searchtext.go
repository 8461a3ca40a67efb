package normalizer

import (
	"encoding/json"
	"regexp"
	"strings"

	"dineoffer-api/internal/models"
)

// ParseResult is the outcome of parsing one provider response.
type ParseResult struct {
	Offers  []models.Offer
	Summary string
}

// rawOffer mirrors the JSON shape providers are asked to return. Every field
// is optional; the response is untrusted input.
type rawOffer struct {
	Platform           string   `json:"platform"`
	OfferType          string   `json:"offer_type"`
	DiscountText       string   `json:"discount_text"`
	DiscountPercentage *float64 `json:"discount_percentage"`
	MaxDiscount        *float64 `json:"max_discount"`
	MinOrder           *float64 `json:"min_order"`
	BankName           *string  `json:"bank_name"`
	Conditions         *string  `json:"conditions"`
	CouponCode         *string  `json:"coupon_code"`
	SourceURL          *string  `json:"source_url"`
}

type rawResponse struct {
	Offers  []rawOffer `json:"offers"`
	Summary string     `json:"summary"`
}

var (
	fenceRe   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	summaryRe = regexp.MustCompile(`(?m)^SUMMARY:\s*(.+)$`)
)

// ParseSearchText extracts offers from a provider response. It tolerates
// valid JSON in markdown fencing, JSON with surrounding commentary, and
// complete non-JSON prose (regex fallback per line). An empty or no-offer
// response yields zero offers, which is a valid outcome, not an error.
// fallback is the platform assigned to offers whose origin cannot be
// inferred from the text; pass models.PlatformUnknown for combined queries.
func ParseSearchText(content string, fallback models.Platform) ParseResult {
	content = strings.TrimSpace(content)
	if content == "" {
		return ParseResult{}
	}

	if raw, ok := extractJSON(content); ok {
		result := fromRawResponse(raw, fallback)
		if len(result.Offers) > 0 || raw.Summary != "" {
			return result
		}
	}

	return parseProse(content, fallback)
}

// extractJSON finds and decodes a JSON object inside content, stripping
// markdown fences and leading/trailing commentary.
func extractJSON(content string) (rawResponse, bool) {
	candidates := []string{}
	if m := fenceRe.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		candidates = append(candidates, content[start:end+1])
	}

	for _, c := range candidates {
		var raw rawResponse
		if err := json.Unmarshal([]byte(strings.TrimSpace(c)), &raw); err == nil {
			return raw, true
		}
	}
	return rawResponse{}, false
}

func fromRawResponse(raw rawResponse, fallback models.Platform) ParseResult {
	result := ParseResult{Summary: strings.TrimSpace(raw.Summary)}
	for _, item := range raw.Offers {
		if offer, ok := fromRawOffer(item, fallback); ok {
			result.Offers = append(result.Offers, offer)
		}
	}
	return result
}

// fromRawOffer converts one decoded record, re-checking the numeric bounds
// the schema cannot guarantee. A record with no derivable discount text is
// dropped.
func fromRawOffer(item rawOffer, fallback models.Platform) (models.Offer, bool) {
	text := strings.TrimSpace(item.DiscountText)
	if text == "" {
		return models.Offer{}, false
	}

	platform := models.ParsePlatform(item.Platform)
	if platform == models.PlatformUnknown {
		if inferred := DetectPlatform(text); inferred != models.PlatformUnknown {
			platform = inferred
		} else {
			platform = fallback
		}
	}

	// Run the rule-based pass first, then let explicit JSON fields win.
	offer, ok := NormalizeText(text, platform)
	if !ok {
		return models.Offer{}, false
	}

	if item.DiscountPercentage != nil && *item.DiscountPercentage >= 0 && *item.DiscountPercentage <= 100 {
		offer.DiscountPercentage = item.DiscountPercentage
	}
	if item.MaxDiscount != nil && *item.MaxDiscount > 0 {
		offer.MaxDiscount = item.MaxDiscount
	}
	if item.MinOrder != nil && *item.MinOrder > 0 {
		offer.MinOrder = item.MinOrder
	}
	if item.BankName != nil && strings.TrimSpace(*item.BankName) != "" {
		name := strings.TrimSpace(*item.BankName)
		offer.BankName = &name
	}
	if item.Conditions != nil && strings.TrimSpace(*item.Conditions) != "" {
		cond := strings.TrimSpace(*item.Conditions)
		offer.Conditions = &cond
	}
	if item.CouponCode != nil && strings.TrimSpace(*item.CouponCode) != "" {
		code := strings.TrimSpace(*item.CouponCode)
		offer.CouponCode = &code
	}
	if item.SourceURL != nil && strings.TrimSpace(*item.SourceURL) != "" {
		u := strings.TrimSpace(*item.SourceURL)
		offer.SourceURL = &u
	}

	if t := parseOfferType(item.OfferType); t != "" {
		offer.OfferType = t
	}
	if offer.BankName != nil && offer.OfferType == models.OfferTypeGeneral {
		offer.OfferType = models.OfferTypeBankOffer
	}
	// A bank offer with no identifiable bank is untrustworthy; keep the record
	// but demote the type.
	if offer.BankName == nil && offer.OfferType == models.OfferTypeBankOffer {
		offer.OfferType = models.OfferTypeGeneral
	}
	return offer, true
}

func parseOfferType(s string) models.OfferType {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))) {
	case "pre_booked", "prebooked", "pre_book":
		return models.OfferTypePreBooked
	case "walk_in", "walkin":
		return models.OfferTypeWalkIn
	case "bank_offer":
		return models.OfferTypeBankOffer
	case "coupon":
		return models.OfferTypeCoupon
	case "general":
		return models.OfferTypeGeneral
	}
	return ""
}

// parseProse is the last-resort pass over non-JSON provider prose: each line
// that looks like a discount is run through the normalization rules.
func parseProse(content string, fallback models.Platform) ParseResult {
	var result ParseResult
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• \t"))
		if m := summaryRe.FindStringSubmatch(line); m != nil {
			result.Summary = strings.TrimSpace(m[1])
			continue
		}
		if !looksLikeOffer(line) {
			continue
		}
		platform := DetectPlatform(line)
		if platform == models.PlatformUnknown {
			platform = fallback
		}
		if offer, ok := NormalizeText(line, platform); ok {
			result.Offers = append(result.Offers, offer)
		}
	}
	return result
}

func looksLikeOffer(line string) bool {
	if len(line) < 10 || len(line) > 500 {
		return false
	}
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "%") && !strings.Contains(lower, "off") &&
		!strings.Contains(lower, "discount") && !strings.Contains(lower, "cashback") &&
		!strings.Contains(lower, "₹") {
		return false
	}
	// Require either a number or a platform mention to filter narrative lines.
	return strings.ContainsAny(line, "0123456789")
}
