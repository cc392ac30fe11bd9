// Package style turns free-form style tags into a numeric bias vector.
package style

import (
	"strings"
	"unicode"
)

// Biases is additive: every recognised tag contributes a partial delta.
type Biases struct {
	DensityBias      float64 `json:"densityBias"`
	SwingBias        float64 `json:"swingBias"`
	TimelineBias     float64 `json:"timelineBias"`
	AccentSharpness  float64 `json:"accentSharpness"`
	GhostProbBias    float64 `json:"ghostProbBias"`
	NoiseBias        float64 `json:"noiseBias"`
	HarshnessPenalty float64 `json:"harshnessPenalty"`
}

// Add returns the component-wise sum.
func (b Biases) Add(o Biases) Biases {
	return Biases{
		DensityBias:      b.DensityBias + o.DensityBias,
		SwingBias:        b.SwingBias + o.SwingBias,
		TimelineBias:     b.TimelineBias + o.TimelineBias,
		AccentSharpness:  b.AccentSharpness + o.AccentSharpness,
		GhostProbBias:    b.GhostProbBias + o.GhostProbBias,
		NoiseBias:        b.NoiseBias + o.NoiseBias,
		HarshnessPenalty: b.HarshnessPenalty + o.HarshnessPenalty,
	}
}

// Tags are the four style inputs of a generation run.
type Tags struct {
	CityProfile     string
	InfluenceVector []string
	ArtistLenses    []string
	Mode            string
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Biases      Biases
	UnknownTags []string
}

// Resolve sums the deltas of every recognised tag. Unrecognised tags add
// nothing and are reported in UnknownTags; empty tags are ignored.
func Resolve(t Tags) Resolution {
	var res Resolution
	add := func(table map[string]Biases, tag string) {
		if strings.TrimSpace(tag) == "" {
			return
		}
		if d, ok := lookup(table, tag); ok {
			res.Biases = res.Biases.Add(d)
			return
		}
		res.UnknownTags = append(res.UnknownTags, tag)
	}

	add(cities, t.CityProfile)
	for _, tag := range t.InfluenceVector {
		add(influences, tag)
	}
	for _, tag := range t.ArtistLenses {
		add(lenses, tag)
	}
	add(modes, t.Mode)
	return res
}

// NormalizeTag folds case and separators so that "afro_funk", "AfroFunk"
// and "AFRO-FUNK" share one key. Every table lookup goes through it.
func NormalizeTag(tag string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(tag) {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			// Anything else means the tag does not normalise cleanly.
			return ""
		}
	}
	return b.String()
}

func lookup(table map[string]Biases, tag string) (Biases, bool) {
	if key := NormalizeTag(tag); key != "" {
		if d, ok := table[key]; ok {
			return d, true
		}
	}
	if key, ok := aliases[strings.TrimSpace(tag)]; ok {
		d, ok := table[key]
		return d, ok
	}
	return Biases{}, false
}

// HasLens reports whether lens appears in lenses, using tag normalisation.
func HasLens(lenses []string, lens string) bool {
	want := NormalizeTag(lens)
	for _, l := range lenses {
		if NormalizeTag(l) == want {
			return true
		}
	}
	return false
}

// Known returns whether tag resolves in any table.
func Known(tag string) bool {
	for _, t := range []map[string]Biases{cities, influences, lenses, modes} {
		if _, ok := lookup(t, tag); ok {
			return true
		}
	}
	return false
}
