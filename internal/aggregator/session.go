package aggregator

import (
	"sync"

	"github.com/google/uuid"

	"dineoffer-api/internal/models"
	"dineoffer-api/internal/normalizer"
)

// Mode selects the fan-out strategy for one aggregation.
type Mode string

const (
	// ModeThorough issues one extraction request per platform concurrently.
	ModeThorough Mode = "thorough"
	// ModeQuick issues a single combined query covering every platform.
	ModeQuick Mode = "quick"
)

// ParseMode maps a request string to a Mode, defaulting to thorough.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", string(ModeThorough):
		return ModeThorough, true
	case string(ModeQuick):
		return ModeQuick, true
	}
	return "", false
}

// Status is the terminal state of a session.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Session is the per-request aggregation state: the accumulated offers (for
// dedup and the final summary), the requested platform subset, and the mode.
// One session exists per streamed request and is discarded when the stream
// closes; nothing about it is shared between requests or persisted.
type Session struct {
	ID         string
	Restaurant string
	City       string
	Platforms  []models.Platform
	Mode       Mode

	mu     sync.Mutex
	seen   map[string]bool
	offers []models.Offer
	status Status
	tip    string
}

// NewSession creates the session record for one aggregation request.
func NewSession(restaurant, city string, platforms []models.Platform, mode Mode) *Session {
	if len(platforms) == 0 {
		platforms = models.AllPlatforms()
	}
	return &Session{
		ID:         uuid.New().String(),
		Restaurant: restaurant,
		City:       city,
		Platforms:  platforms,
		Mode:       mode,
		seen:       make(map[string]bool),
		status:     StatusRunning,
	}
}

// Admit records the offer unless it duplicates one already emitted in this
// session. Duplicates share a platform and near-identical discount text.
func (s *Session) Admit(offer models.Offer) bool {
	key := normalizer.DedupKey(offer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	s.offers = append(s.offers, offer)
	return true
}

// Offers returns a copy of everything admitted so far.
func (s *Session) Offers() []models.Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Offer, len(s.offers))
	copy(out, s.offers)
	return out
}

// Finish moves the session to its terminal status.
func (s *Session) Finish(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Status returns the current session status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetTip overrides the derived tip, used when the source supplies its
// own summary line.
func (s *Session) SetTip(tip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tip = tip
}

// Summarize builds the terminal summary: the offer count plus a tip derived
// from the best offer found, omitted when nothing was found.
func (s *Session) Summarize() models.Summary {
	s.mu.Lock()
	tip := s.tip
	s.mu.Unlock()

	offers := s.Offers()
	summary := models.Summary{TotalOffers: len(offers)}
	if tip != "" {
		summary.Tip = tip
	} else if best := bestOffer(offers); best != nil {
		summary.Tip = tipFor(*best)
	}
	return summary
}

// bestOffer ranks by percentage first, then flat cap.
func bestOffer(offers []models.Offer) *models.Offer {
	var best *models.Offer
	var bestPct, bestMax float64
	for i := range offers {
		o := &offers[i]
		pct, max := 0.0, 0.0
		if o.DiscountPercentage != nil {
			pct = *o.DiscountPercentage
		}
		if o.MaxDiscount != nil {
			max = *o.MaxDiscount
		}
		if best == nil || pct > bestPct || (pct == bestPct && max > bestMax) {
			best, bestPct, bestMax = o, pct, max
		}
	}
	return best
}

func tipFor(o models.Offer) string {
	if o.DiscountPercentage != nil {
		switch o.OfferType {
		case models.OfferTypeWalkIn:
			return "Try the walk-in discount for better savings"
		case models.OfferTypePreBooked:
			return "Pre-book your table to lock in the best discount"
		case models.OfferTypeBankOffer:
			if o.BankName != nil {
				return "Pay with your " + *o.BankName + " card for the best discount"
			}
		}
		return "Best deal found on " + o.PlatformDisplayName
	}
	return "Check " + o.PlatformDisplayName + " for the best current deal"
}
