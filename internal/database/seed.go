package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"dineoffer-api/internal/models"
)

// Seed loads the starter catalog when the database is empty: the common
// Indian card-issuing banks, the partner brand groups with their merchant
// keywords, and a handful of cards with known ecosystem benefits. Running
// it against a populated database is a no-op.
func (db *DB) Seed() error {
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM banks`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check seed state: %w", err)
	}
	if count > 0 {
		return nil
	}

	banks := []models.Bank{
		{ID: uuid.New().String(), Code: "hdfc", Name: "HDFC Bank"},
		{ID: uuid.New().String(), Code: "icici", Name: "ICICI Bank"},
		{ID: uuid.New().String(), Code: "sbi", Name: "State Bank of India"},
		{ID: uuid.New().String(), Code: "axis", Name: "Axis Bank"},
		{ID: uuid.New().String(), Code: "kotak", Name: "Kotak Mahindra Bank"},
		{ID: uuid.New().String(), Code: "amex", Name: "American Express"},
	}
	bankID := make(map[string]string, len(banks))
	for _, b := range banks {
		if err := db.UpsertBank(b); err != nil {
			return err
		}
		bankID[b.Code] = b.ID
	}

	brands := []models.Brand{
		{
			ID:          uuid.New().String(),
			Code:        "tata",
			Name:        "Tata Group",
			Description: "Tata Neu partner merchants",
			Keywords:    []string{"tata", "westside", "croma", "bigbasket", "taj", "starbucks", "tata cliq", "air india", "vistara", "titan", "tanishq"},
		},
		{
			ID:          uuid.New().String(),
			Code:        "reliance",
			Name:        "Reliance Retail",
			Description: "Reliance-owned retail and dining",
			Keywords:    []string{"reliance", "jio", "smart bazaar", "trends"},
		},
		{
			ID:          uuid.New().String(),
			Code:        "amazon",
			Name:        "Amazon",
			Keywords:    []string{"amazon", "amazon pay", "amazon fresh"},
		},
	}
	brandID := make(map[string]string, len(brands))
	for _, b := range brands {
		if err := db.UpsertBrand(b); err != nil {
			return err
		}
		brandID[b.Code] = b.ID
	}

	now := time.Now().UTC()
	cards := []models.Card{
		{ID: uuid.New().String(), BankID: bankID["hdfc"], Name: "Tata Neu Infinity", AnnualFee: 1499, RewardType: "neucoins", BaseRewardRate: 1.5, CreatedAt: now},
		{ID: uuid.New().String(), BankID: bankID["hdfc"], Name: "Millennia", AnnualFee: 1000, RewardType: "cashback", BaseRewardRate: 1.0, CreatedAt: now},
		{ID: uuid.New().String(), BankID: bankID["icici"], Name: "Amazon Pay", AnnualFee: 0, RewardType: "cashback", BaseRewardRate: 1.0, CreatedAt: now},
		{ID: uuid.New().String(), BankID: bankID["icici"], Name: "Coral", AnnualFee: 500, RewardType: "points", BaseRewardRate: 0.5, CreatedAt: now},
		{ID: uuid.New().String(), BankID: bankID["sbi"], Name: "SimplyCLICK", AnnualFee: 499, RewardType: "points", BaseRewardRate: 0.25, CreatedAt: now},
		{ID: uuid.New().String(), BankID: bankID["axis"], Name: "ACE", AnnualFee: 499, RewardType: "cashback", BaseRewardRate: 1.5, CreatedAt: now},
	}
	cardID := make(map[string]string, len(cards))
	for _, c := range cards {
		if err := db.UpsertCard(c); err != nil {
			return err
		}
		cardID[c.Name] = c.ID
	}

	benefits := []models.EcosystemBenefit{
		{ID: uuid.New().String(), CardID: cardID["Tata Neu Infinity"], BrandID: brandID["tata"], BenefitRate: 5.0, BenefitType: "neucoins"},
		{ID: uuid.New().String(), CardID: cardID["Amazon Pay"], BrandID: brandID["amazon"], BenefitRate: 5.0, BenefitType: "cashback"},
	}
	for _, b := range benefits {
		if err := db.UpsertEcosystemBenefit(b); err != nil {
			return err
		}
	}

	return nil
}
