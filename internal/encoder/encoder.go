package encoder

import (
	"fmt"

	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/tensor"
)

// Tensor layout constants. The classifier input is [batch, landmark, coord, slot].
const (
	Batch    = 1
	Coords   = 3
	Slots    = 2
	Sentinel = -1.0
)

// Shape is the classifier input shape.
var Shape = []int{Batch, detector.NumLandmarks, Coords, Slots}

// Encode lays the hands out as a [1,21,3,2] tensor: slot 0 is the first
// hand, slot 1 the second. A missing second hand is filled with the
// sentinel (-1,-1,-1) at every landmark. NoHand yields tensor.Empty().
// Values are copied as-is; world landmarks are already metric.
func Encode(h Hands) tensor.Tensor {
	switch v := h.(type) {
	case nil, NoHand:
		return tensor.Empty()
	case OneHand:
		out := tensor.New(Shape...)
		fillSlot(out, 0, &v.Hand)
		fillSlot(out, 1, nil)
		return out
	case TwoHands:
		out := tensor.New(Shape...)
		fillSlot(out, 0, &v.First)
		fillSlot(out, 1, &v.Second)
		return out
	default:
		panic(fmt.Sprintf("encoder: unknown hands type %T", h))
	}
}

// fillSlot writes one hand into a slot. A nil hand writes the sentinel.
func fillSlot(t tensor.Tensor, slot int, hand *detector.HandLandmarks) {
	for l := 0; l < detector.NumLandmarks; l++ {
		x, y, z := float32(Sentinel), float32(Sentinel), float32(Sentinel)
		if hand != nil {
			p := hand.Points[l]
			x, y, z = float32(p.X), float32(p.Y), float32(p.Z)
		}
		t.Set(x, 0, l, 0, slot)
		t.Set(y, 0, l, 1, slot)
		t.Set(z, 0, l, 2, slot)
	}
}
