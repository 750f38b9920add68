// Package encoder turns detected world landmarks into the fixed-shape input
// tensor expected by the letter classifier.
package encoder

import "github.com/ayusman/fingerspell/internal/detector"

// Hands is the set of world-space hands seen in one frame. It is one of
// NoHand, OneHand or TwoHands.
type Hands interface {
	count() int
}

// NoHand means nothing was detected; classification is skipped.
type NoHand struct{}

// OneHand carries a single detected hand.
type OneHand struct {
	Hand detector.HandLandmarks
}

// TwoHands carries two hands in detection order. First is not necessarily
// the left or right hand.
type TwoHands struct {
	First  detector.HandLandmarks
	Second detector.HandLandmarks
}

func (NoHand) count() int   { return 0 }
func (OneHand) count() int  { return 1 }
func (TwoHands) count() int { return 2 }

// Count returns the number of hands in h.
func Count(h Hands) int {
	if h == nil {
		return 0
	}
	return h.count()
}

// FromSlice builds a Hands value from a detector result slice. Hands beyond
// the second are ignored.
func FromSlice(hands []detector.HandLandmarks) Hands {
	switch len(hands) {
	case 0:
		return NoHand{}
	case 1:
		return OneHand{Hand: hands[0]}
	default:
		return TwoHands{First: hands[0], Second: hands[1]}
	}
}
