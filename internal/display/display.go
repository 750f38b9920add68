// Package display carries the current letter, confidence and status text
// to whatever is showing them (web clients, tray, history).
package display

import (
	"sync"
	"time"

	"github.com/ayusman/fingerspell/internal/prediction"
)

// Placeholder texts shown while no hand is in view.
const (
	PlaceholderLabel      = "--"
	PlaceholderConfidence = "--%"
)

// Status texts.
const (
	StatusInitializing = "Initializing..."
	StatusLoading      = "Loading models..."
	StatusReadyToStart = "Ready to start"
	StatusWebcam       = "Initializing webcam..."
	StatusReady        = "Ready"
)

// StatusError formats a startup failure for the status line.
func StatusError(msg string) string {
	return "Error: " + msg
}

// Update is one display refresh.
type Update struct {
	Label       string    `json:"label"`
	Confidence  string    `json:"confidence"`
	Probability float64   `json:"probability"`
	Hands       int       `json:"hands"`
	At          time.Time `json:"at"`
}

// IsPlaceholder reports whether u is the no-hand reset.
func (u Update) IsPlaceholder() bool {
	return u.Label == PlaceholderLabel && u.Confidence == PlaceholderConfidence
}

// Placeholder returns the reset shown when no hand is visible.
func Placeholder() Update {
	return Update{
		Label:      PlaceholderLabel,
		Confidence: PlaceholderConfidence,
		At:         time.Now(),
	}
}

// FromPrediction converts a scored prediction into a display update.
func FromPrediction(p prediction.Prediction, hands int) Update {
	return Update{
		Label:       p.Label,
		Confidence:  p.DisplayConfidence + "%",
		Probability: p.Confidence,
		Hands:       hands,
		At:          time.Now(),
	}
}

// Failure is shown when a tick could not be processed.
func Failure() Update {
	return FromPrediction(prediction.Failed(), 0)
}

// Sink receives display updates and status text.
type Sink interface {
	Show(u Update)
	Status(text string)
}

// multi fans out to several sinks in order.
type multi []Sink

// Multi returns a Sink that forwards to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multi) Show(u Update) {
	for _, s := range m {
		s.Show(u)
	}
}

func (m multi) Status(text string) {
	for _, s := range m {
		s.Status(text)
	}
}

// State is a snapshot of the board.
type State struct {
	Update
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

// Board keeps the latest display state and notifies subscribers.
// Subscribers only ever see the most recent state; slow readers miss
// intermediate ones.
type Board struct {
	mu      sync.RWMutex
	state   State
	subs    map[int]chan State
	nextSub int
}

// NewBoard creates a board showing the placeholder.
func NewBoard() *Board {
	return &Board{
		state: State{Update: Placeholder(), Status: StatusInitializing},
		subs:  make(map[int]chan State),
	}
}

// Show implements Sink.
func (b *Board) Show(u Update) {
	b.mu.Lock()
	b.state.Update = u
	b.publishLocked()
	b.mu.Unlock()
}

// Status implements Sink.
func (b *Board) Status(text string) {
	b.mu.Lock()
	b.state.Status = text
	b.publishLocked()
	b.mu.Unlock()
}

// SetRunning records whether a demo session is active.
func (b *Board) SetRunning(running bool) {
	b.mu.Lock()
	b.state.Running = running
	b.publishLocked()
	b.mu.Unlock()
}

// State returns the current state.
func (b *Board) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Subscribe returns a channel that receives the current state immediately
// and every later change. Call the returned function to unsubscribe; it
// closes the channel.
func (b *Board) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	ch <- b.state
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Board) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// publishLocked replaces any unread state in each subscriber channel.
func (b *Board) publishLocked() {
	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- b.state:
		default:
		}
	}
}
