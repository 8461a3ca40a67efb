package resolver

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"dineoffer-api/internal/models"
)

// Resolver ranks a cardholder's cards for a merchant by effective reward
// rate. It is pure computation over data the caller already loaded; it
// performs no I/O.
type Resolver struct {
	brands    []models.Brand
	benefits  map[string][]models.EcosystemBenefit // keyed by card ID
	campaigns map[string][]models.Campaign         // keyed by card ID
	now       func() time.Time
}

// New builds a resolver over the given catalog.
func New(brands []models.Brand, benefits []models.EcosystemBenefit, campaigns []models.Campaign) *Resolver {
	r := &Resolver{
		brands:    brands,
		benefits:  make(map[string][]models.EcosystemBenefit),
		campaigns: make(map[string][]models.Campaign),
		now:       time.Now,
	}
	for _, b := range benefits {
		r.benefits[b.CardID] = append(r.benefits[b.CardID], b)
	}
	for _, c := range campaigns {
		r.campaigns[c.CardID] = append(r.campaigns[c.CardID], c)
	}
	return r
}

// MatchBrand finds the brand whose keyword matches the merchant name.
// Keywords match as case-insensitive substrings; when several brands match,
// the longest matching keyword wins so "westside" beats "west".
func (r *Resolver) MatchBrand(merchant string) *models.Brand {
	name := strings.ToLower(strings.TrimSpace(merchant))
	if name == "" {
		return nil
	}

	var best *models.Brand
	bestLen := 0
	for i := range r.brands {
		for _, kw := range r.brands[i].Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || !strings.Contains(name, kw) {
				continue
			}
			if len(kw) > bestLen {
				best = &r.brands[i]
				bestLen = len(kw)
			}
		}
	}
	return best
}

// sourceRank orders tie-breaks: a campaign rate beats an ecosystem rate
// beats the base rate when the percentages are equal.
func sourceRank(s models.RateSource) int {
	switch s {
	case models.RateSourceCampaign:
		return 2
	case models.RateSourceEcosystem:
		return 1
	}
	return 0
}

// rateFor computes the effective rate for one card at the matched brand.
func (r *Resolver) rateFor(card models.Card, brand *models.Brand) (float64, models.RateSource, string) {
	rate := card.BaseRewardRate
	source := models.RateSourceBase
	explanation := fmt.Sprintf("Base %s rate of %g%%", card.RewardType, card.BaseRewardRate)

	if brand == nil {
		return rate, source, explanation
	}

	for _, b := range r.benefits[card.ID] {
		if b.BrandID != brand.ID {
			continue
		}
		if b.BenefitRate > rate || (b.BenefitRate == rate && sourceRank(models.RateSourceEcosystem) > sourceRank(source)) {
			rate = b.BenefitRate
			source = models.RateSourceEcosystem
			explanation = fmt.Sprintf("%g%% %s at %s brands", b.BenefitRate, b.BenefitType, brand.Name)
		}
	}

	today := r.now()
	for _, c := range r.campaigns[card.ID] {
		if c.BrandID != brand.ID || !c.ActiveOn(today) {
			continue
		}
		if c.BenefitRate > rate || (c.BenefitRate == rate && sourceRank(models.RateSourceCampaign) > sourceRank(source)) {
			rate = c.BenefitRate
			source = models.RateSourceCampaign
			explanation = fmt.Sprintf("Limited-time %g%% %s at %s brands until %s",
				c.BenefitRate, c.BenefitType, brand.Name, c.EndDate.Format("2 Jan 2006"))
		}
	}

	return rate, source, explanation
}

// Resolve ranks the given cards for the merchant. Ordering is effective rate
// descending, then annual fee ascending, then card name. With no cards the
// response carries an empty alternatives list and no best pick.
func (r *Resolver) Resolve(merchant string, cards []models.Card) models.ResolveResponse {
	resp := models.ResolveResponse{
		MerchantName: merchant,
		Alternatives: []models.Recommendation{},
	}

	brand := r.MatchBrand(merchant)
	if brand != nil {
		resp.MatchedBrand = &brand.Name
	}

	if len(cards) == 0 {
		return resp
	}

	recs := make([]models.Recommendation, 0, len(cards))
	for _, card := range cards {
		rate, source, explanation := r.rateFor(card, brand)
		recs = append(recs, models.Recommendation{
			Card:          card,
			EffectiveRate: rate,
			Source:        source,
			Explanation:   explanation,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].EffectiveRate != recs[j].EffectiveRate {
			return recs[i].EffectiveRate > recs[j].EffectiveRate
		}
		if recs[i].Card.AnnualFee != recs[j].Card.AnnualFee {
			return recs[i].Card.AnnualFee < recs[j].Card.AnnualFee
		}
		return recs[i].Card.Name < recs[j].Card.Name
	})

	resp.Best = &recs[0]
	resp.Alternatives = recs[1:]
	return resp
}
