package app

import (
	"log"
	"sync"
	"time"

	"github.com/ayusman/fingerspell/internal/display"
	"github.com/ayusman/fingerspell/internal/prediction"
	"github.com/ayusman/fingerspell/internal/session"
	"github.com/ayusman/fingerspell/internal/store"
)

// historySink records a prediction each time the displayed letter changes.
// It never affects what is displayed.
type historySink struct {
	store *store.Store

	mu        sync.Mutex
	sessionID string
	last      string
}

func newHistorySink(s *store.Store) *historySink {
	return &historySink{store: s}
}

// begin creates the session row.
func (h *historySink) begin(id string, startedAt time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessionID = id
	h.last = ""

	if h.store == nil {
		return
	}
	if err := h.store.Sessions().Create(&store.Session{ID: id, StartedAt: startedAt}); err != nil {
		log.Printf("Error recording session start: %v", err)
		h.store = nil
	}
}

// end closes the session row with the final counters.
func (h *historySink) end(stats session.Stats) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store == nil {
		return
	}
	if err := h.store.Sessions().End(h.sessionID, time.Now(), stats.Ticks, stats.Skipped); err != nil {
		log.Printf("Error recording session end: %v", err)
	}
}

// Show implements display.Sink.
func (h *historySink) Show(u display.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.last
	h.last = u.Label

	if h.store == nil || u.Label == prev || !isLetter(u.Label) {
		return
	}

	err := h.store.Predictions().Create(&store.Prediction{
		SessionID:  h.sessionID,
		Label:      u.Label,
		Confidence: u.Probability,
		Hands:      u.Hands,
		CreatedAt:  u.At,
	})
	if err != nil {
		log.Printf("Error recording prediction: %v", err)
	}
}

// Status implements display.Sink.
func (h *historySink) Status(string) {}

func isLetter(label string) bool {
	return prediction.Prediction{Label: label}.IsLetter()
}
