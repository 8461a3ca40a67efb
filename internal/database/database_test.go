package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dineoffer-api/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSeedIsIdempotent(t *testing.T) {
	db := testDB(t)

	if err := db.Seed(); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	banks, err := db.ListBanks()
	if err != nil {
		t.Fatalf("ListBanks: %v", err)
	}
	if len(banks) == 0 {
		t.Fatal("seed created no banks")
	}

	if err := db.Seed(); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	again, err := db.ListBanks()
	if err != nil {
		t.Fatalf("ListBanks: %v", err)
	}
	if len(again) != len(banks) {
		t.Errorf("second seed changed bank count: %d -> %d", len(banks), len(again))
	}
}

func TestCardRoundTrip(t *testing.T) {
	db := testDB(t)

	bank := models.Bank{ID: "bank-1", Code: "icici", Name: "ICICI Bank"}
	if err := db.UpsertBank(bank); err != nil {
		t.Fatalf("UpsertBank: %v", err)
	}

	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	card := models.Card{
		ID: "card-1", BankID: "bank-1", Name: "Coral",
		AnnualFee: 500, RewardType: "points", BaseRewardRate: 0.5,
		CreatedAt: created,
	}
	if err := db.UpsertCard(card); err != nil {
		t.Fatalf("UpsertCard: %v", err)
	}

	got, err := db.GetCard("card-1")
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if got == nil {
		t.Fatal("card not found after upsert")
	}
	if got.BankCode != "icici" {
		t.Errorf("bank code = %q, want icici", got.BankCode)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, created)
	}

	missing, err := db.GetCard("nope")
	if err != nil {
		t.Fatalf("GetCard(missing): %v", err)
	}
	if missing != nil {
		t.Errorf("GetCard(missing) = %+v, want nil", missing)
	}
}

func TestBrandKeywordsRoundTrip(t *testing.T) {
	db := testDB(t)

	brand := models.Brand{
		ID: "brand-1", Code: "tata", Name: "Tata Group",
		Keywords: []string{"tata", "westside", "croma"},
	}
	if err := db.UpsertBrand(brand); err != nil {
		t.Fatalf("UpsertBrand: %v", err)
	}

	brands, err := db.ListBrands()
	if err != nil {
		t.Fatalf("ListBrands: %v", err)
	}
	if len(brands) != 1 {
		t.Fatalf("got %d brands, want 1", len(brands))
	}
	if len(brands[0].Keywords) != 3 || brands[0].Keywords[1] != "westside" {
		t.Errorf("keywords = %v, want original list back", brands[0].Keywords)
	}
}

func mergeFixture(t *testing.T) *DB {
	t.Helper()
	db := testDB(t)

	if err := db.UpsertBank(models.Bank{ID: "bank-1", Code: "icici", Name: "ICICI Bank"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertBank(models.Bank{ID: "bank-2", Code: "hdfc", Name: "HDFC Bank"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertBrand(models.Brand{ID: "brand-1", Code: "tata", Name: "Tata Group", Keywords: []string{"tata"}}); err != nil {
		t.Fatal(err)
	}

	cards := []models.Card{
		{ID: "keep", BankID: "bank-1", Name: "Coral", RewardType: "points"},
		{ID: "dup1", BankID: "bank-1", Name: "ICICI Coral", RewardType: "points"},
		{ID: "dup2", BankID: "bank-1", Name: "ICICI Coral Credit Card", RewardType: "points"},
		{ID: "other-bank", BankID: "bank-2", Name: "Coral", RewardType: "points"},
	}
	for _, c := range cards {
		if err := db.UpsertCard(c); err != nil {
			t.Fatal(err)
		}
	}

	benefits := []models.EcosystemBenefit{
		{ID: "b-keep", CardID: "keep", BrandID: "brand-1", BenefitRate: 5.0, BenefitType: "points"},
		{ID: "b-dup", CardID: "dup1", BrandID: "brand-1", BenefitRate: 3.0, BenefitType: "points"},
	}
	for _, b := range benefits {
		if err := db.UpsertEcosystemBenefit(b); err != nil {
			t.Fatal(err)
		}
	}

	campaign := models.Campaign{
		ID: "camp-1", CardID: "dup2", BrandID: "brand-1",
		BenefitRate: 10.0, BenefitType: "points",
		StartDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.UpsertCampaign(campaign); err != nil {
		t.Fatal(err)
	}

	return db
}

func TestMergeCards(t *testing.T) {
	db := mergeFixture(t)

	removed, err := db.MergeCards("keep", []string{"dup1", "dup2"})
	if err != nil {
		t.Fatalf("MergeCards: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	for _, id := range []string{"dup1", "dup2"} {
		c, err := db.GetCard(id)
		if err != nil {
			t.Fatalf("GetCard(%s): %v", id, err)
		}
		if c != nil {
			t.Errorf("card %s still exists after merge", id)
		}
	}

	// The kept card's own benefit survives; the duplicate's conflicting
	// benefit for the same brand is dropped, not duplicated.
	benefits, err := db.ListEcosystemBenefits()
	if err != nil {
		t.Fatalf("ListEcosystemBenefits: %v", err)
	}
	if len(benefits) != 1 {
		t.Fatalf("got %d benefits, want 1", len(benefits))
	}
	if benefits[0].CardID != "keep" || benefits[0].BenefitRate != 5.0 {
		t.Errorf("surviving benefit = %+v, want keep's 5%% benefit", benefits[0])
	}

	campaigns, err := db.ListCampaigns()
	if err != nil {
		t.Fatalf("ListCampaigns: %v", err)
	}
	if len(campaigns) != 1 || campaigns[0].CardID != "keep" {
		t.Fatalf("campaigns = %+v, want one repointed to keep", campaigns)
	}
}

func TestMergeCardsRejectsBadInput(t *testing.T) {
	db := mergeFixture(t)

	cases := []struct {
		name   string
		keepID string
		dups   []string
	}{
		{"self merge", "keep", []string{"keep"}},
		{"missing keep", "nope", []string{"dup1"}},
		{"missing duplicate", "keep", []string{"nope"}},
		{"cross-bank merge", "keep", []string{"other-bank"}},
		{"empty duplicates", "keep", nil},
	}
	for _, tc := range cases {
		if _, err := db.MergeCards(tc.keepID, tc.dups); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	// Missing cards are a conflict, bad requests are not.
	var conflict *MergeConflictError
	if _, err := db.MergeCards("keep", []string{"nope"}); !errors.As(err, &conflict) {
		t.Errorf("missing duplicate must surface as a merge conflict, got %v", err)
	}
	if _, err := db.MergeCards("nope", []string{"dup1"}); !errors.As(err, &conflict) {
		t.Errorf("missing keep card must surface as a merge conflict, got %v", err)
	}
	if _, err := db.MergeCards("keep", []string{"other-bank"}); errors.As(err, &conflict) {
		t.Errorf("cross-bank merge is a bad request, not a conflict: %v", err)
	}

	// A failed merge must not change anything.
	if _, err := db.MergeCards("keep", []string{"dup1", "other-bank"}); err == nil {
		t.Fatal("expected cross-bank merge to fail")
	}
	c, err := db.GetCard("dup1")
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if c == nil {
		t.Error("dup1 deleted by a merge that should have rolled back")
	}
}
