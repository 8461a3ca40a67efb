package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dineoffer-api/internal/models"
)

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS banks (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			bank_id TEXT NOT NULL REFERENCES banks(id),
			name TEXT NOT NULL,
			annual_fee REAL NOT NULL DEFAULT 0,
			reward_type TEXT NOT NULL DEFAULT 'cashback',
			base_reward_rate REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS brands (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS ecosystem_benefits (
			id TEXT PRIMARY KEY,
			card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
			brand_id TEXT NOT NULL REFERENCES brands(id) ON DELETE CASCADE,
			benefit_rate REAL NOT NULL,
			benefit_type TEXT NOT NULL,
			UNIQUE(card_id, brand_id)
		)`,
		`CREATE TABLE IF NOT EXISTS campaigns (
			id TEXT PRIMARY KEY,
			card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
			brand_id TEXT NOT NULL REFERENCES brands(id) ON DELETE CASCADE,
			benefit_rate REAL NOT NULL,
			benefit_type TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_bank_id ON cards(bank_id)`,
		`CREATE INDEX IF NOT EXISTS idx_benefits_card_id ON ecosystem_benefits(card_id)`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_card_id ON campaigns(card_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// UpsertBank creates or updates a bank.
func (db *DB) UpsertBank(bank models.Bank) error {
	query := `INSERT INTO banks (id, code, name) VALUES (?, ?, ?)
	ON CONFLICT(code) DO UPDATE SET name = excluded.name`

	if _, err := db.conn.Exec(query, bank.ID, bank.Code, bank.Name); err != nil {
		return fmt.Errorf("failed to upsert bank: %w", err)
	}
	return nil
}

// ListBanks returns all banks ordered by code.
func (db *DB) ListBanks() ([]models.Bank, error) {
	rows, err := db.conn.Query(`SELECT id, code, name FROM banks ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query banks: %w", err)
	}
	defer rows.Close()

	var banks []models.Bank
	for rows.Next() {
		var b models.Bank
		if err := rows.Scan(&b.ID, &b.Code, &b.Name); err != nil {
			return nil, fmt.Errorf("failed to scan bank: %w", err)
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

// GetBankByCode retrieves a bank by its code.
func (db *DB) GetBankByCode(code string) (*models.Bank, error) {
	var b models.Bank
	err := db.conn.QueryRow(`SELECT id, code, name FROM banks WHERE code = ?`, code).
		Scan(&b.ID, &b.Code, &b.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank: %w", err)
	}
	return &b, nil
}

const cardColumns = `c.id, c.bank_id, b.code, c.name, c.annual_fee, c.reward_type, c.base_reward_rate, c.created_at`

func scanCard(row interface{ Scan(...interface{}) error }) (models.Card, error) {
	var c models.Card
	var createdAt string
	if err := row.Scan(&c.ID, &c.BankID, &c.BankCode, &c.Name, &c.AnnualFee, &c.RewardType, &c.BaseRewardRate, &createdAt); err != nil {
		return models.Card{}, err
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// UpsertCard creates or updates a card.
func (db *DB) UpsertCard(card models.Card) error {
	query := `INSERT INTO cards (id, bank_id, name, annual_fee, reward_type, base_reward_rate, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		bank_id = excluded.bank_id,
		name = excluded.name,
		annual_fee = excluded.annual_fee,
		reward_type = excluded.reward_type,
		base_reward_rate = excluded.base_reward_rate`

	createdAt := card.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.conn.Exec(query,
		card.ID, card.BankID, card.Name, card.AnnualFee,
		card.RewardType, card.BaseRewardRate, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert card: %w", err)
	}
	return nil
}

// ListCards returns all cards with their bank codes, ordered by bank and name.
func (db *DB) ListCards() ([]models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards c JOIN banks b ON b.id = c.bank_id ORDER BY b.code, c.name`
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// GetCard retrieves a single card by ID, or nil when it does not exist.
func (db *DB) GetCard(id string) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards c JOIN banks b ON b.id = c.bank_id WHERE c.id = ?`
	c, err := scanCard(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &c, nil
}

// GetCardsByIDs retrieves the cards with the given IDs. Unknown IDs are
// silently skipped; the caller compares lengths when that matters.
func (db *DB) GetCardsByIDs(ids []string) ([]models.Card, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := `SELECT ` + cardColumns + ` FROM cards c JOIN banks b ON b.id = c.bank_id WHERE c.id IN (` + placeholders + `)`

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// UpsertBrand creates or updates a brand, keywords included.
func (db *DB) UpsertBrand(brand models.Brand) error {
	keywordsJSON, err := json.Marshal(brand.Keywords)
	if err != nil {
		return fmt.Errorf("failed to serialize keywords: %w", err)
	}

	query := `INSERT INTO brands (id, code, name, description, keywords) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(code) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		keywords = excluded.keywords`

	if _, err := db.conn.Exec(query, brand.ID, brand.Code, brand.Name, brand.Description, string(keywordsJSON)); err != nil {
		return fmt.Errorf("failed to upsert brand: %w", err)
	}
	return nil
}

// ListBrands returns all brands with their keyword lists.
func (db *DB) ListBrands() ([]models.Brand, error) {
	rows, err := db.conn.Query(`SELECT id, code, name, description, keywords FROM brands ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query brands: %w", err)
	}
	defer rows.Close()

	var brands []models.Brand
	for rows.Next() {
		var b models.Brand
		var keywordsJSON string
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Description, &keywordsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &b.Keywords); err != nil {
			return nil, fmt.Errorf("failed to parse keywords for brand %s: %w", b.Code, err)
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

// UpsertEcosystemBenefit creates or updates the standing benefit for a
// card-brand pair.
func (db *DB) UpsertEcosystemBenefit(benefit models.EcosystemBenefit) error {
	query := `INSERT INTO ecosystem_benefits (id, card_id, brand_id, benefit_rate, benefit_type)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(card_id, brand_id) DO UPDATE SET
		benefit_rate = excluded.benefit_rate,
		benefit_type = excluded.benefit_type`

	_, err := db.conn.Exec(query, benefit.ID, benefit.CardID, benefit.BrandID, benefit.BenefitRate, benefit.BenefitType)
	if err != nil {
		return fmt.Errorf("failed to upsert ecosystem benefit: %w", err)
	}
	return nil
}

// ListEcosystemBenefits returns all ecosystem benefits.
func (db *DB) ListEcosystemBenefits() ([]models.EcosystemBenefit, error) {
	rows, err := db.conn.Query(`SELECT id, card_id, brand_id, benefit_rate, benefit_type FROM ecosystem_benefits`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ecosystem benefits: %w", err)
	}
	defer rows.Close()

	var benefits []models.EcosystemBenefit
	for rows.Next() {
		var b models.EcosystemBenefit
		if err := rows.Scan(&b.ID, &b.CardID, &b.BrandID, &b.BenefitRate, &b.BenefitType); err != nil {
			return nil, fmt.Errorf("failed to scan ecosystem benefit: %w", err)
		}
		benefits = append(benefits, b)
	}
	return benefits, rows.Err()
}

// UpsertCampaign creates or updates a campaign.
func (db *DB) UpsertCampaign(campaign models.Campaign) error {
	query := `INSERT INTO campaigns (id, card_id, brand_id, benefit_rate, benefit_type, start_date, end_date)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		card_id = excluded.card_id,
		brand_id = excluded.brand_id,
		benefit_rate = excluded.benefit_rate,
		benefit_type = excluded.benefit_type,
		start_date = excluded.start_date,
		end_date = excluded.end_date`

	_, err := db.conn.Exec(query,
		campaign.ID, campaign.CardID, campaign.BrandID,
		campaign.BenefitRate, campaign.BenefitType,
		campaign.StartDate.Format(time.RFC3339), campaign.EndDate.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert campaign: %w", err)
	}
	return nil
}

// ListCampaigns returns all campaigns.
func (db *DB) ListCampaigns() ([]models.Campaign, error) {
	rows, err := db.conn.Query(`SELECT id, card_id, brand_id, benefit_rate, benefit_type, start_date, end_date FROM campaigns`)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		var start, end string
		if err := rows.Scan(&c.ID, &c.CardID, &c.BrandID, &c.BenefitRate, &c.BenefitType, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		c.StartDate = parseTime(start)
		c.EndDate = parseTime(end)
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
