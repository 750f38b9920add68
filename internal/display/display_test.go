package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/fingerspell/internal/prediction"
)

type recordingSink struct {
	shown    []Update
	statuses []string
}

func (r *recordingSink) Show(u Update)      { r.shown = append(r.shown, u) }
func (r *recordingSink) Status(text string) { r.statuses = append(r.statuses, text) }

func TestPlaceholder(t *testing.T) {
	u := Placeholder()
	assert.Equal(t, "--", u.Label)
	assert.Equal(t, "--%", u.Confidence)
	assert.Zero(t, u.Hands)
	assert.True(t, u.IsPlaceholder())
}

func TestFromPrediction(t *testing.T) {
	tests := []struct {
		name     string
		p        prediction.Prediction
		hands    int
		wantConf string
	}{
		{
			name:     "letter",
			p:        prediction.Prediction{Label: "A", Confidence: 0.847, DisplayConfidence: "84.7"},
			hands:    1,
			wantConf: "84.7%",
		},
		{
			name:     "no model",
			p:        prediction.NoModel(),
			hands:    2,
			wantConf: "0.0%",
		},
		{
			name:     "error",
			p:        prediction.Failed(),
			wantConf: "0.0%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := FromPrediction(tt.p, tt.hands)
			assert.Equal(t, tt.p.Label, u.Label)
			assert.Equal(t, tt.wantConf, u.Confidence)
			assert.Equal(t, tt.p.Confidence, u.Probability)
			assert.Equal(t, tt.hands, u.Hands)
			assert.False(t, u.IsPlaceholder())
		})
	}
}

func TestFailure(t *testing.T) {
	u := Failure()
	assert.Equal(t, prediction.LabelError, u.Label)
	assert.Equal(t, "0.0%", u.Confidence)
}

func TestStatusError(t *testing.T) {
	assert.Equal(t, "Error: model missing", StatusError("model missing"))
}

func TestMulti(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := Multi(a, nil, b)

	m.Show(Placeholder())
	m.Status(StatusReady)

	for _, s := range []*recordingSink{a, b} {
		require.Len(t, s.shown, 1)
		assert.Equal(t, PlaceholderLabel, s.shown[0].Label)
		assert.Equal(t, []string{StatusReady}, s.statuses)
	}
}

func TestBoard_InitialState(t *testing.T) {
	b := NewBoard()
	st := b.State()
	assert.True(t, st.IsPlaceholder())
	assert.Equal(t, StatusInitializing, st.Status)
	assert.False(t, st.Running)
}

func TestBoard_SubscribeReceivesCurrentAndLatest(t *testing.T) {
	b := NewBoard()
	ch, cancel := b.Subscribe()
	defer cancel()

	first := <-ch
	assert.True(t, first.IsPlaceholder())

	// Several updates without reading: only the newest survives.
	b.Show(FromPrediction(prediction.Prediction{Label: "A", DisplayConfidence: "50.0"}, 1))
	b.Show(FromPrediction(prediction.Prediction{Label: "B", DisplayConfidence: "60.0"}, 1))
	b.Status(StatusReady)

	latest := <-ch
	assert.Equal(t, "B", latest.Label)
	assert.Equal(t, StatusReady, latest.Status)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected queued state %+v", extra)
	default:
	}
}

func TestBoard_Unsubscribe(t *testing.T) {
	b := NewBoard()
	ch, cancel := b.Subscribe()
	assert.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, b.Subscribers())

	<-ch // initial state
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")

	assert.NotPanics(t, func() { b.Show(Placeholder()) })
}

func TestBoard_SetRunning(t *testing.T) {
	b := NewBoard()
	b.SetRunning(true)
	assert.True(t, b.State().Running)
	b.SetRunning(false)
	assert.False(t, b.State().Running)
}
