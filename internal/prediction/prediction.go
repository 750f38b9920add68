// Package prediction turns raw classifier scores into a letter and a
// confidence value.
package prediction

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/tensor"
)

// Labels that are not letters.
const (
	LabelNoModel = "No Model"
	LabelError   = "Error"
	LabelUnknown = "Unknown"
)

// Alphabet is the classifier's output order.
var Alphabet = []string{
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
}

var errNonFinite = errors.New("non-finite score")

// Prediction is the outcome of scoring one frame.
type Prediction struct {
	Label             string  `json:"label"`
	Confidence        float64 `json:"confidence"`
	DisplayConfidence string  `json:"display_confidence"`
}

// IsLetter reports whether the label is one of the alphabet letters.
func (p Prediction) IsLetter() bool {
	for _, l := range Alphabet {
		if p.Label == l {
			return true
		}
	}
	return false
}

// NoModel is returned when no classifier is loaded.
func NoModel() Prediction {
	return Prediction{Label: LabelNoModel, Confidence: 0, DisplayConfidence: formatPercent(0)}
}

// Failed is returned when inference fails.
func Failed() Prediction {
	return Prediction{Label: LabelError, Confidence: 0, DisplayConfidence: formatPercent(0)}
}

// Scorer runs the classifier and picks the most probable letter.
type Scorer struct {
	classifier classifier.Classifier
	labels     []string
}

// NewScorer creates a Scorer. A nil classifier makes every Score return
// NoModel.
func NewScorer(c classifier.Classifier) *Scorer {
	return &Scorer{
		classifier: c,
		labels:     Alphabet,
	}
}

// HasModel reports whether a classifier is loaded.
func (s *Scorer) HasModel() bool {
	return s != nil && s.classifier != nil
}

// Score classifies an encoded tensor. It never fails: a missing model yields
// NoModel and any inference fault, including a panic in the backend, yields
// Failed.
func (s *Scorer) Score(in tensor.Tensor) (p Prediction) {
	if !s.HasModel() {
		return NoModel()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Prediction panic: %v", r)
			p = Failed()
		}
	}()

	raw, err := s.classifier.Predict(in)
	if err != nil {
		log.Printf("Prediction error: %v", err)
		return Failed()
	}

	p, err = s.fromScores(raw)
	if err != nil {
		log.Printf("Prediction error: %v", err)
		return Failed()
	}
	return p
}

// fromScores applies softmax to the first row of raw and selects the top class.
func (s *Scorer) fromScores(raw tensor.Tensor) (Prediction, error) {
	if err := raw.Validate(); err != nil {
		return Prediction{}, err
	}
	if raw.IsEmpty() || len(raw.Shape) == 0 {
		return Prediction{}, fmt.Errorf("empty classifier output")
	}

	classes := raw.Shape[len(raw.Shape)-1]
	probs, err := Softmax(raw.Data[:classes])
	if err != nil {
		return Prediction{}, err
	}

	idx, confidence := Argmax(probs)

	label := LabelUnknown
	if idx >= 0 && idx < len(s.labels) {
		label = s.labels[idx]
	}

	return Prediction{
		Label:             label,
		Confidence:        confidence,
		DisplayConfidence: formatPercent(confidence),
	}, nil
}

// Softmax returns the normalized exponential of scores. The maximum is
// subtracted first so large logits do not overflow.
func Softmax(scores []float32) ([]float64, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("softmax of empty scores")
	}

	top := math.Inf(-1)
	for _, v := range scores {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errNonFinite
		}
		if f > top {
			top = f
		}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, v := range scores {
		probs[i] = math.Exp(float64(v) - top)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// Argmax returns the index and value of the largest element. The first
// index wins ties. It returns -1 for an empty slice.
func Argmax(values []float64) (int, float64) {
	idx, best := -1, math.Inf(-1)
	for i, v := range values {
		if v > best {
			idx, best = i, v
		}
	}
	if idx < 0 {
		return -1, 0
	}
	return idx, best
}

// formatPercent renders a probability as a percentage with one decimal.
func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f", p*100)
}
