package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"dineoffer-api/internal/models"
)

func TestNewWriterSetsHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	if _, err := NewWriter(rec); err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

type plainWriter struct {
	header http.Header
}

func (p *plainWriter) Header() http.Header        { return p.header }
func (p *plainWriter) Write([]byte) (int, error)  { return 0, nil }
func (p *plainWriter) WriteHeader(statusCode int) {}

func TestNewWriterRejectsNonFlusher(t *testing.T) {
	if _, err := NewWriter(&plainWriter{header: http.Header{}}); err == nil {
		t.Fatal("expected error for non-flushing writer")
	}
}

func TestSendFrameFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	pct := 30.0
	offer := models.Offer{
		Platform:            models.PlatformSwiggyDineout,
		PlatformDisplayName: "Swiggy Dineout",
		OfferType:           models.OfferTypePreBooked,
		DiscountText:        "30% off on total bill",
		DiscountPercentage:  &pct,
	}
	if err := w.SendOffer(offer); err != nil {
		t.Fatalf("SendOffer: %v", err)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "event: offer\ndata: ") {
		t.Fatalf("frame = %q, want event line then data line", body)
	}
	if !strings.HasSuffix(body, "\n\n") {
		t.Fatalf("frame %q does not end with blank line", body)
	}

	data := strings.TrimPrefix(strings.TrimSuffix(body, "\n\n"), "event: offer\ndata: ")
	var decoded models.Offer
	if err := json.Unmarshal([]byte(data), &decoded); err != nil {
		t.Fatalf("data line is not valid JSON: %v", err)
	}
	if decoded.DiscountText != offer.DiscountText {
		t.Errorf("decoded text = %q, want %q", decoded.DiscountText, offer.DiscountText)
	}
	if decoded.DiscountPercentage == nil || *decoded.DiscountPercentage != 30 {
		t.Errorf("decoded percentage = %v, want 30", decoded.DiscountPercentage)
	}
}

func TestSendEventSequence(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	platforms := []models.Platform{models.PlatformDistrict}
	if err := w.SendStart("abc-123", "Olive Bar", "delhi", platforms, "thorough"); err != nil {
		t.Fatalf("SendStart: %v", err)
	}
	if err := w.SendDone(models.Summary{TotalOffers: 0}); err != nil {
		t.Fatalf("SendDone: %v", err)
	}

	frames := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n\n"), "\n\n")
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !strings.HasPrefix(frames[0], "event: start\n") {
		t.Errorf("first frame = %q, want start", frames[0])
	}
	if !strings.HasPrefix(frames[1], "event: done\n") {
		t.Errorf("second frame = %q, want done", frames[1])
	}

	var start StartPayload
	data := strings.TrimPrefix(frames[0], "event: start\ndata: ")
	if err := json.Unmarshal([]byte(data), &start); err != nil {
		t.Fatalf("start payload: %v", err)
	}
	if start.SessionID != "abc-123" || start.Mode != "thorough" {
		t.Errorf("start payload = %+v", start)
	}
}

func TestSendConcurrentWritersDoNotInterleave(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.SendOffer(models.Offer{
				Platform:     models.PlatformEazyDiner,
				OfferType:    models.OfferTypeGeneral,
				DiscountText: "Flat 20% off on the bill",
			})
		}()
	}
	wg.Wait()

	for _, frame := range strings.Split(strings.TrimSuffix(rec.Body.String(), "\n\n"), "\n\n") {
		lines := strings.SplitN(frame, "\n", 2)
		if len(lines) != 2 || lines[0] != "event: offer" || !strings.HasPrefix(lines[1], "data: {") {
			t.Fatalf("malformed frame %q", frame)
		}
	}
}
