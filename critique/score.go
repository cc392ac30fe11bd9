package critique

import (
	"math"

	"go-groove/patch"
	"go-groove/pattern"
	"go-groove/style"
)

// Score is the ranking of one candidate with its components.
type Score struct {
	Score                float64 `json:"score"`
	CollisionImprovement float64 `json:"collisionImprovement"`
	AnchorImprovement    float64 `json:"anchorImprovement"`
	HarshnessImprovement float64 `json:"harshnessImprovement"`
	StyleMatch           float64 `json:"styleMatch"`

	Before   Metrics `json:"before"`
	After    Metrics `json:"after"`
	Applied  int     `json:"applied"`
	Rejected int     `json:"rejected"`
}

// ScoreCandidate simulates ops on p and scores the change. p is not touched.
func ScoreCandidate(p *pattern.Pattern, ops []patch.Op, biases style.Biases) Score {
	res := patch.Apply(p, ops)
	before := ComputeMetrics(p)
	after := ComputeMetrics(res.Next)

	s := Score{
		CollisionImprovement: math.Max(0, before.CollisionRiskScore-after.CollisionRiskScore),
		AnchorImprovement:    math.Max(0, after.AnchorClarity-before.AnchorClarity),
		HarshnessImprovement: math.Max(0, before.HarshnessRisk-after.HarshnessRisk),
		StyleMatch:           styleMatch(before, after, res.Next, biases),
		Before:               before,
		After:                after,
		Applied:              len(res.Applied),
		Rejected:             len(res.Rejected),
	}
	s.Score = clamp01(WeightCollision*(0.5+s.CollisionImprovement) +
		WeightAnchor*(0.5+s.AnchorImprovement) +
		WeightHarshness*(0.5+s.HarshnessImprovement) +
		WeightStyle*s.StyleMatch)
	return s
}

// styleMatch gives small bumps when the result moves the way the biases ask.
func styleMatch(before, after Metrics, next *pattern.Pattern, b style.Biases) float64 {
	match := 0.0
	db, da := before.MeanDensity(), after.MeanDensity()
	if (b.DensityBias > 0 && da > db) || (b.DensityBias < 0 && da < db) {
		match += 0.1
	}
	if next == nil {
		return match
	}
	accents, ghosts := false, false
	for _, l := range next.Lanes {
		for _, s := range l.Steps {
			if !s.On {
				continue
			}
			if s.Accent {
				accents = true
			}
			if s.Probability > 0 && s.Probability < 1 {
				ghosts = true
			}
		}
	}
	if b.AccentSharpness > 0 && accents {
		match += 0.1
	}
	if b.GhostProbBias > 0 && ghosts {
		match += 0.05
	}
	return math.Min(match, 1)
}
