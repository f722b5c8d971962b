// internal/palette/palette.go
//
// Card colors for the deck generator.
// Responsibilities:
//   - Convert HSV to an "rgb(r, g, b)" string (the card's equality key).
//   - Produce n evenly spread hues by stepping the golden-ratio conjugate.
//
// Notes:
//   - Saturation and value are fixed so every card has the same pastel weight.
//   - Golden-ratio stepping never clusters: any n consecutive steps split the
//     unit circle into at most three distinct gap sizes.

package palette

import (
	"fmt"
	"math"
)

const (
	// GoldenRatioConjugate is the hue step between consecutive colors.
	GoldenRatioConjugate = 0.618033988749895

	Saturation = 0.5
	Value      = 0.95
)

// HSVToRGB converts h, s, v in [0,1] to a CSS rgb() string.
func HSVToRGB(h, s, v float64) string {
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", round255(r), round255(g), round255(b))
}

// round255 scales a unit channel to 0..255 rounding half up, like Math.round.
func round255(c float64) int {
	return int(math.Floor(c*255 + 0.5))
}

// Hues returns n hues starting one golden step after start.
func Hues(start float64, n int) []float64 {
	out := make([]float64, 0, n)
	h := start
	for i := 0; i < n; i++ {
		h = math.Mod(h+GoldenRatioConjugate, 1)
		out = append(out, h)
	}
	return out
}

// Colors returns n card colors for the hue sequence beginning at start.
func Colors(start float64, n int) []string {
	hues := Hues(start, n)
	out := make([]string, len(hues))
	for i, h := range hues {
		out[i] = HSVToRGB(h, Saturation, Value)
	}
	return out
}
