package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"dineoffer-api/internal/models"
)

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateAggregateRequest checks an aggregation request. Platform and mode
// strings are resolved to their typed values so handlers do not re-parse.
func ValidateAggregateRequest(req models.AggregateRequest) ([]models.Platform, error) {
	name := SanitizeString(req.RestaurantName)
	if name == "" {
		return nil, &ValidationError{Field: "restaurant_name", Message: "is required"}
	}
	if len(name) > 200 {
		return nil, &ValidationError{Field: "restaurant_name", Message: "cannot exceed 200 characters"}
	}

	city := SanitizeString(req.City)
	if city == "" {
		return nil, &ValidationError{Field: "city", Message: "is required"}
	}
	if len(city) > 100 {
		return nil, &ValidationError{Field: "city", Message: "cannot exceed 100 characters"}
	}

	var platforms []models.Platform
	seen := make(map[models.Platform]bool)
	for i, raw := range req.Platforms {
		p := models.ParsePlatform(raw)
		if p == models.PlatformUnknown {
			return nil, &ValidationError{
				Field:   fmt.Sprintf("platforms[%d]", i),
				Message: fmt.Sprintf("unknown platform '%s'", SanitizeString(raw)),
			}
		}
		if !seen[p] {
			seen[p] = true
			platforms = append(platforms, p)
		}
	}

	return platforms, nil
}

// ValidateResolveRequest checks a card recommendation request.
func ValidateResolveRequest(req models.ResolveRequest) error {
	if SanitizeString(req.MerchantName) == "" {
		return &ValidationError{Field: "merchant_name", Message: "is required"}
	}
	if len(req.CardIDs) > 50 {
		return &ValidationError{Field: "card_ids", Message: "cannot contain more than 50 cards"}
	}
	for i, id := range req.CardIDs {
		if err := ValidateUUID(id, fmt.Sprintf("card_ids[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMergeRequest checks a card merge request.
func ValidateMergeRequest(req models.MergeCardsRequest) error {
	if err := ValidateUUID(req.KeepID, "keep_id"); err != nil {
		return err
	}
	if len(req.DuplicateIDs) == 0 {
		return &ValidationError{Field: "duplicate_ids", Message: "is required"}
	}
	if len(req.DuplicateIDs) > 50 {
		return &ValidationError{Field: "duplicate_ids", Message: "cannot contain more than 50 cards"}
	}
	for i, id := range req.DuplicateIDs {
		if err := ValidateUUID(id, fmt.Sprintf("duplicate_ids[%d]", i)); err != nil {
			return err
		}
		if id == req.KeepID {
			return &ValidationError{
				Field:   fmt.Sprintf("duplicate_ids[%d]", i),
				Message: "cannot merge a card into itself",
			}
		}
	}
	return nil
}

// SanitizeString strips control characters and surrounding whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

func ValidateUUID(id, fieldName string) error {
	if id == "" {
		return &ValidationError{Field: fieldName, Message: "is required"}
	}

	id = SanitizeString(id)

	if !uuidRegex.MatchString(strings.ToLower(id)) {
		return &ValidationError{Field: fieldName, Message: "must be a valid UUID"}
	}

	return nil
}
