package models

import "time"

// Platform identifies one external dine-out offer source.
type Platform string

const (
	PlatformSwiggyDineout Platform = "swiggy_dineout"
	PlatformEazyDiner     Platform = "eazydiner"
	PlatformDistrict      Platform = "district"
	PlatformUnknown       Platform = "unknown"
)

// PlatformInfo carries static metadata about a platform.
type PlatformInfo struct {
	Code        Platform `json:"code"`
	DisplayName string   `json:"display_name"`
	Website     string   `json:"website,omitempty"`
	AppLink     string   `json:"app_link,omitempty"`
	SearchURL   string   `json:"search_url,omitempty"` // template: {restaurant}, {city}
}

// platformInfo is the closed platform registry. Lookups outside it resolve
// to the unknown entry.
var platformInfo = map[Platform]PlatformInfo{
	PlatformSwiggyDineout: {
		Code:        PlatformSwiggyDineout,
		DisplayName: "Swiggy Dineout",
		Website:     "https://www.swiggy.com/dineout",
		AppLink:     "swiggy://dineout",
		SearchURL:   "https://www.swiggy.com/dineout/search?query={restaurant}",
	},
	PlatformEazyDiner: {
		Code:        PlatformEazyDiner,
		DisplayName: "EazyDiner",
		Website:     "https://www.eazydiner.com",
		AppLink:     "eazydiner://",
		SearchURL:   "https://www.eazydiner.com/search?q={restaurant}&city={city}",
	},
	PlatformDistrict: {
		Code:        PlatformDistrict,
		DisplayName: "District",
		Website:     "https://www.district.in/dining/",
		AppLink:     "district://dining",
		SearchURL:   "https://www.district.in/dining/{city}?q={restaurant}",
	},
	PlatformUnknown: {
		Code:        PlatformUnknown,
		DisplayName: "Unknown",
	},
}

// Info returns the registry entry for p, falling back to the unknown entry.
func (p Platform) Info() PlatformInfo {
	if info, ok := platformInfo[p]; ok {
		return info
	}
	return platformInfo[PlatformUnknown]
}

// DisplayName returns the human label for p.
func (p Platform) DisplayName() string {
	return p.Info().DisplayName
}

// AllPlatforms returns the searchable platforms in a stable order.
func AllPlatforms() []Platform {
	return []Platform{PlatformSwiggyDineout, PlatformEazyDiner, PlatformDistrict}
}

// ParsePlatform maps a free-form platform string to the closed enum.
// Unrecognized names map to PlatformUnknown.
func ParsePlatform(s string) Platform {
	switch normalizePlatformString(s) {
	case "swiggy_dineout", "swiggy dineout", "swiggy dine out", "swiggy", "dineout", "dine out":
		return PlatformSwiggyDineout
	case "eazydiner", "eazy diner", "eazy_diner", "easydiner", "easy diner":
		return PlatformEazyDiner
	case "district", "district app":
		return PlatformDistrict
	}
	return PlatformUnknown
}

func normalizePlatformString(s string) string {
	out := make([]rune, 0, len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
		case r == '-' || r == '\t':
			r = ' '
		}
		if r == ' ' {
			if lastSpace || len(out) == 0 {
				continue
			}
			lastSpace = true
		} else {
			lastSpace = false
		}
		out = append(out, r)
	}
	for len(out) > 0 && out[len(out)-1] == ' ' {
		out = out[:len(out)-1]
	}
	return string(out)
}

// OfferType classifies the discount mechanism of an offer.
type OfferType string

const (
	OfferTypePreBooked OfferType = "pre_booked"
	OfferTypeWalkIn    OfferType = "walk_in"
	OfferTypeBankOffer OfferType = "bank_offer"
	OfferTypeCoupon    OfferType = "coupon"
	OfferTypeGeneral   OfferType = "general"
)

// Offer is the canonical normalized discount record from any platform.
// Platform and DiscountText are always populated; every other field is a
// best-effort extraction whose absence is signaled by a nil pointer.
type Offer struct {
	Platform            Platform  `json:"platform"`
	PlatformDisplayName string    `json:"platform_display_name"`
	OfferType           OfferType `json:"offer_type"`
	DiscountText        string    `json:"discount_text"`
	DiscountPercentage  *float64  `json:"discount_percentage,omitempty"` // 0-100
	MaxDiscount         *float64  `json:"max_discount,omitempty"`
	MinOrder            *float64  `json:"min_order,omitempty"`
	BankName            *string   `json:"bank_name,omitempty"`
	CardType            *string   `json:"card_type,omitempty"` // "credit", "debit"
	Conditions          *string   `json:"conditions,omitempty"`
	CouponCode          *string   `json:"coupon_code,omitempty"`
	SourceURL           *string   `json:"source_url,omitempty"`
	PlatformURL         *string   `json:"platform_url,omitempty"`
	AppLink             *string   `json:"app_link,omitempty"`
}

// Summary terminates an aggregation: total offers emitted plus an optional
// tip derived from the best offer found.
type Summary struct {
	TotalOffers int    `json:"total_offers"`
	Tip         string `json:"tip,omitempty"`
}

// Bank is a card-issuing bank.
type Bank struct {
	ID   string `json:"id"`   // uuid
	Code string `json:"code"` // unique slug, e.g. "icici"
	Name string `json:"name"`
}

// Card is a payment card product issued by a bank.
type Card struct {
	ID             string    `json:"id"` // uuid
	BankID         string    `json:"bank_id"`
	BankCode       string    `json:"bank_code"`
	Name           string    `json:"name"`
	AnnualFee      float64   `json:"annual_fee"`
	RewardType     string    `json:"reward_type"`      // cashback, points, miles
	BaseRewardRate float64   `json:"base_reward_rate"` // percent
	CreatedAt      time.Time `json:"created_at"`
}

// Brand groups merchant name variants under one canonical partner entity.
type Brand struct {
	ID          string   `json:"id"` // uuid
	Name        string   `json:"name"`
	Code        string   `json:"code"` // unique slug
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords"` // lowercased, matched as substrings
}

// EcosystemBenefit is a standing elevated reward rate tying a card to a brand.
type EcosystemBenefit struct {
	ID          string  `json:"id"` // uuid
	CardID      string  `json:"card_id"`
	BrandID     string  `json:"brand_id"`
	BenefitRate float64 `json:"benefit_rate"` // percent
	BenefitType string  `json:"benefit_type"` // cashback, points, miles, neucoins, discount, ...
}

// Campaign is a time-bounded promotional override of an ecosystem benefit.
type Campaign struct {
	ID          string    `json:"id"` // uuid
	CardID      string    `json:"card_id"`
	BrandID     string    `json:"brand_id"`
	BenefitRate float64   `json:"benefit_rate"`
	BenefitType string    `json:"benefit_type"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// ActiveOn reports whether the campaign window covers the given day.
func (c Campaign) ActiveOn(day time.Time) bool {
	return !day.Before(c.StartDate) && !day.After(c.EndDate)
}

// RateSource identifies which record produced a card's winning rate.
type RateSource string

const (
	RateSourceBase      RateSource = "base"
	RateSourceEcosystem RateSource = "ecosystem"
	RateSourceCampaign  RateSource = "campaign"
)

// Recommendation is one ranked entry from the ecosystem benefit resolver.
type Recommendation struct {
	Card          Card       `json:"card"`
	EffectiveRate float64    `json:"effective_rate"`
	Source        RateSource `json:"source"`
	Explanation   string     `json:"explanation"`
}

// AggregateRequest is the request body for offer aggregation.
type AggregateRequest struct {
	RestaurantName string   `json:"restaurant_name"`
	City           string   `json:"city"`
	Platforms      []string `json:"platforms,omitempty"` // defaults to all
	Mode           string   `json:"mode,omitempty"`      // "thorough" (default) or "quick"
}

// AggregateResponse is the fully materialized result for non-streaming clients.
type AggregateResponse struct {
	RestaurantName string  `json:"restaurant_name"`
	City           string  `json:"city"`
	Offers         []Offer `json:"offers"`
	Summary        Summary `json:"summary"`
	Cached         bool    `json:"cached"`
}

// ResolveRequest asks for a card recommendation for a merchant.
type ResolveRequest struct {
	MerchantName string   `json:"merchant_name"`
	CardIDs      []string `json:"card_ids"`
}

// ResolveResponse is the ranked recommendation list. Best is nil when the
// caller holds no cards.
type ResolveResponse struct {
	MerchantName string           `json:"merchant_name"`
	MatchedBrand *string          `json:"matched_brand,omitempty"`
	Best         *Recommendation  `json:"best,omitempty"`
	Alternatives []Recommendation `json:"alternatives"`
}

// DuplicateGroup is a set of cards sharing one canonical key under a bank.
type DuplicateGroup struct {
	BankCode     string `json:"bank_code"`
	CanonicalKey string `json:"canonical_key"`
	Cards        []Card `json:"cards"`
}

// MergeCardsRequest repoints references from duplicates to the kept card.
type MergeCardsRequest struct {
	KeepID       string   `json:"keep_id"`
	DuplicateIDs []string `json:"duplicate_ids"`
}

// MergeCardsResponse reports the outcome of a merge.
type MergeCardsResponse struct {
	KeptID  string `json:"kept_id"`
	Removed int    `json:"removed"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"` // taxonomy tag, e.g. "input_validation"
}
