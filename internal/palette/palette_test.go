package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHSVToRGB(t *testing.T) {
	tests := []struct {
		name    string
		h, s, v float64
		want    string
	}{
		{"red", 0, 1, 1, "rgb(255, 0, 0)"},
		{"green", 1.0 / 3, 1, 1, "rgb(0, 255, 0)"},
		{"blue", 2.0 / 3, 1, 1, "rgb(0, 0, 255)"},
		{"white", 0, 0, 1, "rgb(255, 255, 255)"},
		{"black", 0.5, 1, 0, "rgb(0, 0, 0)"},
		{"pastel red", 0, Saturation, Value, "rgb(242, 121, 121)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HSVToRGB(tt.h, tt.s, tt.v))
		})
	}
}

func TestHues_StayInUnitRange(t *testing.T) {
	for _, start := range []float64{0, 0.25, 0.5, 0.999} {
		hues := Hues(start, 8)
		assert.Len(t, hues, 8)
		for _, h := range hues {
			assert.GreaterOrEqual(t, h, 0.0)
			assert.Less(t, h, 1.0)
		}
	}
}

func TestHues_FirstStep(t *testing.T) {
	hues := Hues(0, 2)
	assert.InDelta(t, GoldenRatioConjugate, hues[0], 1e-12)
	assert.InDelta(t, 2*GoldenRatioConjugate-1, hues[1], 1e-12)
}

func TestColors_Distinct(t *testing.T) {
	for i := 0; i < 100; i++ {
		start := float64(i) / 100
		seen := map[string]bool{}
		for _, c := range Colors(start, 8) {
			assert.False(t, seen[c], "duplicate color %s for start %v", c, start)
			seen[c] = true
		}
	}
}
