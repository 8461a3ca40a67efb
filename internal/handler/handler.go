package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"dineoffer-api/internal/aggregator"
	"dineoffer-api/internal/cache"
	"dineoffer-api/internal/database"
	"dineoffer-api/internal/events"
	"dineoffer-api/internal/features"
	"dineoffer-api/internal/models"
	"dineoffer-api/internal/stream"
	"dineoffer-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	db          *database.DB
	agg         *aggregator.Aggregator
	results     *cache.ResultCache
	features    *features.Manager
	events      *events.Manager
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	Results     *cache.ResultCache
	Events      *events.Manager
	MaxBodySize int64
}

// NewHandler creates a new handler instance.
func NewHandler(db *database.DB, agg *aggregator.Aggregator, flags *features.Manager, opts NewHandlerOptions) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 1 << 20
	}
	return &Handler{
		db:          db,
		agg:         agg,
		results:     opts.Results,
		features:    flags,
		events:      opts.Events,
		maxBodySize: opts.MaxBodySize,
	}
}

func (h *Handler) cacheEnabled() bool {
	return h.results != nil && h.features.IsEnabled(features.FeatureCacheEnabled)
}

// AggregateOffers handles POST /aggregate-offers: the non-streaming variant
// that materializes the whole result before responding.
func (h *Handler) AggregateOffers(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.AggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	platforms, err := validation.ValidateAggregateRequest(req)
	if err != nil {
		h.respondValidationError(w, err)
		return
	}

	mode, ok := aggregator.ParseMode(req.Mode)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "mode must be 'thorough' or 'quick'")
		return
	}
	if mode == aggregator.ModeQuick && !h.features.IsEnabled(features.FeatureQuickMode) {
		h.respondError(w, http.StatusBadRequest, "quick mode is disabled")
		return
	}

	restaurant := validation.SanitizeString(req.RestaurantName)
	city := validation.SanitizeString(req.City)

	session := aggregator.NewSession(restaurant, city, platforms, mode)

	cacheKey := ""
	if h.cacheEnabled() {
		cacheKey = h.results.Key(restaurant, city, session.Platforms, string(mode))
		if resp, ok := h.results.Get(r.Context(), cacheKey); ok {
			h.respondJSON(w, http.StatusOK, resp)
			return
		}
	}

	resp := models.AggregateResponse{
		RestaurantName: restaurant,
		City:           city,
		Offers:         []models.Offer{},
	}

	for ev := range h.agg.Run(r.Context(), session) {
		switch ev.Kind {
		case aggregator.KindOffer:
			resp.Offers = append(resp.Offers, ev.Offer)
		case aggregator.KindDone:
			resp.Summary = ev.Summary
		case aggregator.KindError:
			h.respondErrorKind(w, http.StatusBadGateway, ev.Reason, "aggregation_failed")
			return
		}
	}

	if cacheKey != "" {
		if err := h.results.Set(r.Context(), cacheKey, resp); err != nil {
			log.Printf("handler: failed to cache aggregation result: %v", err)
		}
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// StreamOffers handles GET /aggregate-offers/stream: offers are pushed as
// server-sent events while extraction is still running.
func (h *Handler) StreamOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.AggregateRequest{
		RestaurantName: q.Get("restaurant_name"),
		City:           q.Get("city"),
		Mode:           q.Get("mode"),
	}
	if raw := strings.TrimSpace(q.Get("platforms")); raw != "" {
		req.Platforms = strings.Split(raw, ",")
	}

	platforms, err := validation.ValidateAggregateRequest(req)
	if err != nil {
		h.respondValidationError(w, err)
		return
	}

	mode, ok := aggregator.ParseMode(req.Mode)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "mode must be 'thorough' or 'quick'")
		return
	}
	if mode == aggregator.ModeQuick && !h.features.IsEnabled(features.FeatureQuickMode) {
		h.respondError(w, http.StatusBadRequest, "quick mode is disabled")
		return
	}

	restaurant := validation.SanitizeString(req.RestaurantName)
	city := validation.SanitizeString(req.City)

	session := aggregator.NewSession(restaurant, city, platforms, mode)

	sw, err := stream.NewWriter(w)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "streaming is not supported on this connection")
		return
	}

	if err := sw.SendStart(session.ID, restaurant, city, session.Platforms, string(mode)); err != nil {
		return
	}

	// A cached result is replayed over the stream so clients see the same
	// event sequence either way.
	cacheKey := ""
	if h.cacheEnabled() {
		cacheKey = h.results.Key(restaurant, city, session.Platforms, string(mode))
		if resp, ok := h.results.Get(r.Context(), cacheKey); ok {
			for _, offer := range resp.Offers {
				if err := sw.SendOffer(offer); err != nil {
					return
				}
			}
			_ = sw.SendDone(resp.Summary)
			return
		}
	}

	resp := models.AggregateResponse{
		RestaurantName: restaurant,
		City:           city,
		Offers:         []models.Offer{},
	}

	for ev := range h.agg.Run(r.Context(), session) {
		switch ev.Kind {
		case aggregator.KindOffer:
			resp.Offers = append(resp.Offers, ev.Offer)
			if err := sw.SendOffer(ev.Offer); err != nil {
				return
			}
		case aggregator.KindDone:
			resp.Summary = ev.Summary
			if cacheKey != "" {
				if err := h.results.Set(r.Context(), cacheKey, resp); err != nil {
					log.Printf("handler: failed to cache aggregation result: %v", err)
				}
			}
			_ = sw.SendDone(ev.Summary)
		case aggregator.KindError:
			_ = sw.SendError(ev.Reason)
		}
	}
}

// ListPlatforms handles GET /platforms.
func (h *Handler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms := models.AllPlatforms()
	infos := make([]models.PlatformInfo, 0, len(platforms))
	for _, p := range platforms {
		infos = append(infos, p.Info())
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"platforms": infos})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}

func (h *Handler) respondErrorKind(w http.ResponseWriter, status int, message, kind string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message, Kind: kind})
}

func (h *Handler) respondValidationError(w http.ResponseWriter, err error) {
	h.respondErrorKind(w, http.StatusBadRequest, err.Error(), "input_validation")
}
