package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"dineoffer-api/internal/carddedupe"
	"dineoffer-api/internal/database"
	"dineoffer-api/internal/models"
	"dineoffer-api/internal/resolver"
	"dineoffer-api/internal/validation"
)

// ResolveRecommendation handles POST /recommendations/resolve: ranks the
// caller's cards for a merchant by effective reward rate.
func (h *Handler) ResolveRecommendation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	if err := validation.ValidateResolveRequest(req); err != nil {
		h.respondValidationError(w, err)
		return
	}

	brands, err := h.db.ListBrands()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load brands")
		return
	}
	benefits, err := h.db.ListEcosystemBenefits()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load benefits")
		return
	}
	campaigns, err := h.db.ListCampaigns()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load campaigns")
		return
	}
	cards, err := h.db.GetCardsByIDs(req.CardIDs)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load cards")
		return
	}

	res := resolver.New(brands, benefits, campaigns)
	resp := res.Resolve(validation.SanitizeString(req.MerchantName), cards)
	h.respondJSON(w, http.StatusOK, resp)
}

// ListDuplicateCards handles GET /cards/duplicates.
func (h *Handler) ListDuplicateCards(w http.ResponseWriter, r *http.Request) {
	groups, err := h.duplicateGroups()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"groups": groups})
}

// MergeCards handles POST /cards/merge.
func (h *Handler) MergeCards(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.MergeCardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	if err := validation.ValidateMergeRequest(req); err != nil {
		h.respondValidationError(w, err)
		return
	}

	removed, err := h.db.MergeCards(req.KeepID, req.DuplicateIDs)
	if err != nil {
		h.respondMergeError(w, err)
		return
	}

	h.events.PublishCardsMerged(r.Context(), req.KeepID, removed)
	h.respondJSON(w, http.StatusOK, models.MergeCardsResponse{KeptID: req.KeepID, Removed: removed})
}

// AutoDedupeCards handles POST /cards/auto-dedupe: every duplicate group is
// collapsed into its preferred keeper in one pass.
func (h *Handler) AutoDedupeCards(w http.ResponseWriter, r *http.Request) {
	groups, err := h.duplicateGroups()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	merged := 0
	removed := 0
	for _, group := range groups {
		keeper := carddedupe.Keeper(group.Cards)
		var dups []string
		for _, c := range group.Cards {
			if c.ID != keeper.ID {
				dups = append(dups, c.ID)
			}
		}
		n, err := h.db.MergeCards(keeper.ID, dups)
		if err != nil {
			h.respondMergeError(w, err)
			return
		}
		h.events.PublishCardsMerged(r.Context(), keeper.ID, n)
		merged++
		removed += n
	}

	h.respondJSON(w, http.StatusOK, map[string]int{
		"groups_merged": merged,
		"cards_removed": removed,
	})
}

// respondMergeError distinguishes merges that failed against concurrent
// state (conflict) from merges the request itself made impossible (bad
// request).
func (h *Handler) respondMergeError(w http.ResponseWriter, err error) {
	var conflict *database.MergeConflictError
	if errors.As(err, &conflict) {
		h.respondErrorKind(w, http.StatusConflict, err.Error(), "merge_conflict")
		return
	}
	h.respondError(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) duplicateGroups() ([]models.DuplicateGroup, error) {
	cards, err := h.db.ListCards()
	if err != nil {
		return nil, err
	}
	banks, err := h.db.ListBanks()
	if err != nil {
		return nil, err
	}

	bankNames := make(map[string]string, len(banks))
	for _, b := range banks {
		bankNames[b.Code] = b.Name
	}
	return carddedupe.FindGroups(cards, bankNames), nil
}
