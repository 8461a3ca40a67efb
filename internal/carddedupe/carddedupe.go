package carddedupe

import (
	"sort"
	"strings"

	"dineoffer-api/internal/models"
)

// suffixes stripped from the end of a card name, longest first so
// "credit card" is removed before a bare "card" could match.
var nameSuffixes = []string{"credit card", "debit card", "card"}

// CanonicalKey reduces a card name to the token that identifies the product
// regardless of how the issuer decorated it. "ICICI Coral Credit Card" and
// "ICICI Coral" under the icici bank both reduce to "coral".
func CanonicalKey(bankCode, bankName, cardName string) string {
	key := strings.ToLower(strings.TrimSpace(cardName))
	if key == "" {
		return ""
	}

	// Strip issuer prefixes: the bank's full name, its code, and a
	// dangling "bank" left behind by either.
	prefixes := []string{
		strings.ToLower(strings.TrimSpace(bankName)),
		strings.ToLower(strings.TrimSpace(bankCode)),
		"bank",
	}
	for changed := true; changed; {
		changed = false
		for _, p := range prefixes {
			if p == "" {
				continue
			}
			if strings.HasPrefix(key, p+" ") {
				key = strings.TrimSpace(strings.TrimPrefix(key, p))
				changed = true
			} else if key == p {
				key = ""
			}
		}
	}

	for _, s := range nameSuffixes {
		if strings.HasSuffix(key, " "+s) {
			key = strings.TrimSpace(strings.TrimSuffix(key, s))
			break
		}
	}

	return strings.Join(strings.Fields(key), " ")
}

// FindGroups buckets cards by bank and canonical key and returns every
// bucket holding more than one card. Groups and their members come back in
// a stable order. bankNames maps bank code to display name and may be nil.
func FindGroups(cards []models.Card, bankNames map[string]string) []models.DuplicateGroup {
	type bucket struct {
		bankCode string
		key      string
	}

	byBucket := make(map[bucket][]models.Card)
	for _, card := range cards {
		key := CanonicalKey(card.BankCode, bankNames[card.BankCode], card.Name)
		if key == "" {
			continue
		}
		b := bucket{bankCode: card.BankCode, key: key}
		byBucket[b] = append(byBucket[b], card)
	}

	var groups []models.DuplicateGroup
	for b, members := range byBucket {
		if len(members) < 2 {
			continue
		}
		sortByPreference(members)
		groups = append(groups, models.DuplicateGroup{
			BankCode:     b.bankCode,
			CanonicalKey: b.key,
			Cards:        members,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].BankCode != groups[j].BankCode {
			return groups[i].BankCode < groups[j].BankCode
		}
		return groups[i].CanonicalKey < groups[j].CanonicalKey
	})
	return groups
}

// Keeper picks the card a duplicate group collapses into: the shortest
// name, then the earliest created, then the lowest ID.
func Keeper(cards []models.Card) models.Card {
	sorted := make([]models.Card, len(cards))
	copy(sorted, cards)
	sortByPreference(sorted)
	return sorted[0]
}

func sortByPreference(cards []models.Card) {
	sort.Slice(cards, func(i, j int) bool {
		ni, nj := len(cards[i].Name), len(cards[j].Name)
		if ni != nj {
			return ni < nj
		}
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.Before(cards[j].CreatedAt)
		}
		return cards[i].ID < cards[j].ID
	})
}
