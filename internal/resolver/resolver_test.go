package resolver

import (
	"testing"
	"time"

	"dineoffer-api/internal/models"
)

var (
	tataBrand = models.Brand{
		ID:       "brand-tata",
		Name:     "Tata Group",
		Code:     "tata",
		Keywords: []string{"tata", "westside", "croma", "bigbasket", "taj", "tata cliq"},
	}
	relianceBrand = models.Brand{
		ID:       "brand-reliance",
		Name:     "Reliance Retail",
		Code:     "reliance",
		Keywords: []string{"reliance", "jio"},
	}
)

func testCards() []models.Card {
	return []models.Card{
		{
			ID:             "card-neu",
			BankCode:       "hdfc",
			Name:           "Tata Neu Infinity",
			AnnualFee:      1499,
			RewardType:     "neucoins",
			BaseRewardRate: 1.5,
		},
		{
			ID:             "card-amazon",
			BankCode:       "icici",
			Name:           "Amazon Pay",
			AnnualFee:      0,
			RewardType:     "cashback",
			BaseRewardRate: 1.0,
		},
	}
}

func TestMatchBrandLongestKeywordWins(t *testing.T) {
	r := New([]models.Brand{tataBrand, relianceBrand}, nil, nil)

	cases := []struct {
		merchant string
		want     string
	}{
		{"Westside Store, Connaught Place", "Tata Group"},
		{"Taj Mahal Palace Hotel", "Tata Group"},
		{"Reliance Digital", "Reliance Retail"},
		{"TATA CLiQ Luxury", "Tata Group"},
	}
	for _, tc := range cases {
		brand := r.MatchBrand(tc.merchant)
		if brand == nil || brand.Name != tc.want {
			t.Errorf("MatchBrand(%q) = %v, want %s", tc.merchant, brand, tc.want)
		}
	}

	if brand := r.MatchBrand("Olive Bar and Kitchen"); brand != nil {
		t.Errorf("MatchBrand(unrelated merchant) = %v, want nil", brand)
	}
	if brand := r.MatchBrand("  "); brand != nil {
		t.Errorf("MatchBrand(blank) = %v, want nil", brand)
	}
}

func TestResolveEcosystemBeatsBase(t *testing.T) {
	benefits := []models.EcosystemBenefit{
		{ID: "b1", CardID: "card-neu", BrandID: "brand-tata", BenefitRate: 5.0, BenefitType: "neucoins"},
	}
	r := New([]models.Brand{tataBrand}, benefits, nil)

	resp := r.Resolve("Westside", testCards())
	if resp.MatchedBrand == nil || *resp.MatchedBrand != "Tata Group" {
		t.Fatalf("matched brand = %v, want Tata Group", resp.MatchedBrand)
	}
	if resp.Best == nil {
		t.Fatal("no best recommendation")
	}
	if resp.Best.Card.ID != "card-neu" {
		t.Errorf("best card = %s, want card-neu", resp.Best.Card.ID)
	}
	if resp.Best.EffectiveRate != 5.0 || resp.Best.Source != models.RateSourceEcosystem {
		t.Errorf("best = %g from %s, want 5 from ecosystem", resp.Best.EffectiveRate, resp.Best.Source)
	}
	if len(resp.Alternatives) != 1 || resp.Alternatives[0].Source != models.RateSourceBase {
		t.Errorf("alternatives = %+v, want one base-rate entry", resp.Alternatives)
	}
}

func TestResolveActiveCampaignBeatsEcosystem(t *testing.T) {
	benefits := []models.EcosystemBenefit{
		{ID: "b1", CardID: "card-neu", BrandID: "brand-tata", BenefitRate: 5.0, BenefitType: "neucoins"},
	}
	campaigns := []models.Campaign{
		{
			ID: "c1", CardID: "card-neu", BrandID: "brand-tata",
			BenefitRate: 10.0, BenefitType: "neucoins",
			StartDate: time.Now().AddDate(0, 0, -3),
			EndDate:   time.Now().AddDate(0, 0, 4),
		},
	}
	r := New([]models.Brand{tataBrand}, benefits, campaigns)

	resp := r.Resolve("Westside", testCards())
	if resp.Best.EffectiveRate != 10.0 || resp.Best.Source != models.RateSourceCampaign {
		t.Errorf("best = %g from %s, want 10 from campaign", resp.Best.EffectiveRate, resp.Best.Source)
	}
}

func TestResolveExpiredCampaignIgnored(t *testing.T) {
	benefits := []models.EcosystemBenefit{
		{ID: "b1", CardID: "card-neu", BrandID: "brand-tata", BenefitRate: 5.0, BenefitType: "neucoins"},
	}
	campaigns := []models.Campaign{
		{
			ID: "c1", CardID: "card-neu", BrandID: "brand-tata",
			BenefitRate: 10.0, BenefitType: "neucoins",
			StartDate: time.Now().AddDate(0, 0, -30),
			EndDate:   time.Now().AddDate(0, 0, -1),
		},
	}
	r := New([]models.Brand{tataBrand}, benefits, campaigns)

	resp := r.Resolve("Westside", testCards())
	if resp.Best.EffectiveRate != 5.0 || resp.Best.Source != models.RateSourceEcosystem {
		t.Errorf("best = %g from %s, want 5 from ecosystem", resp.Best.EffectiveRate, resp.Best.Source)
	}
}

func TestResolveEqualRateCampaignWinsTie(t *testing.T) {
	benefits := []models.EcosystemBenefit{
		{ID: "b1", CardID: "card-neu", BrandID: "brand-tata", BenefitRate: 5.0, BenefitType: "neucoins"},
	}
	campaigns := []models.Campaign{
		{
			ID: "c1", CardID: "card-neu", BrandID: "brand-tata",
			BenefitRate: 5.0, BenefitType: "neucoins",
			StartDate: time.Now().AddDate(0, 0, -1),
			EndDate:   time.Now().AddDate(0, 0, 1),
		},
	}
	r := New([]models.Brand{tataBrand}, benefits, campaigns)

	resp := r.Resolve("Westside", testCards())
	if resp.Best.Source != models.RateSourceCampaign {
		t.Errorf("tie source = %s, want campaign", resp.Best.Source)
	}
}

func TestResolveNoBrandMatchFallsBackToBaseRates(t *testing.T) {
	benefits := []models.EcosystemBenefit{
		{ID: "b1", CardID: "card-neu", BrandID: "brand-tata", BenefitRate: 5.0, BenefitType: "neucoins"},
	}
	r := New([]models.Brand{tataBrand}, benefits, nil)

	resp := r.Resolve("Olive Bar and Kitchen", testCards())
	if resp.MatchedBrand != nil {
		t.Errorf("matched brand = %v, want nil", resp.MatchedBrand)
	}
	if resp.Best.Card.ID != "card-neu" || resp.Best.EffectiveRate != 1.5 || resp.Best.Source != models.RateSourceBase {
		t.Errorf("best = %s at %g from %s, want card-neu at 1.5 from base",
			resp.Best.Card.ID, resp.Best.EffectiveRate, resp.Best.Source)
	}
}

func TestResolveTieBreaksOnFeeThenName(t *testing.T) {
	cards := []models.Card{
		{ID: "c1", Name: "Zeta", AnnualFee: 500, BaseRewardRate: 2.0, RewardType: "cashback"},
		{ID: "c2", Name: "Alpha", AnnualFee: 0, BaseRewardRate: 2.0, RewardType: "cashback"},
		{ID: "c3", Name: "Beta", AnnualFee: 0, BaseRewardRate: 2.0, RewardType: "cashback"},
	}
	r := New(nil, nil, nil)

	resp := r.Resolve("Anywhere Cafe", cards)
	if resp.Best.Card.Name != "Alpha" {
		t.Errorf("best = %s, want Alpha (lowest fee, first name)", resp.Best.Card.Name)
	}
	if resp.Alternatives[0].Card.Name != "Beta" || resp.Alternatives[1].Card.Name != "Zeta" {
		t.Errorf("order = %s, %s; want Beta, Zeta",
			resp.Alternatives[0].Card.Name, resp.Alternatives[1].Card.Name)
	}
}

func TestResolveNoCards(t *testing.T) {
	r := New([]models.Brand{tataBrand}, nil, nil)

	resp := r.Resolve("Westside", nil)
	if resp.Best != nil {
		t.Errorf("best = %+v, want nil", resp.Best)
	}
	if resp.Alternatives == nil || len(resp.Alternatives) != 0 {
		t.Errorf("alternatives = %v, want empty non-nil slice", resp.Alternatives)
	}
	if resp.MatchedBrand == nil {
		t.Error("brand should still match with no cards")
	}
}
