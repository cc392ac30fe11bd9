// Package critique measures pattern quality and ranks candidate edits.
package critique

import (
	"go-groove/pattern"
)

// Thresholds and weights. The values are tuned by ear; keep them exact.
const (
	StrongVelocity    = 0.65 // collision "strong hit"
	MaskingVelocity   = 0.7  // anchor masking "strong hit"
	CollisionFreeHits = 3    // simultaneous strong hits tolerated per step

	AnchorMissPenalty    = 0.3
	MaskingStepPenalty   = 0.1
	MaskingPenaltyCap    = 0.3
	MaskingLaneThreshold = 2

	WeightCollision = 0.3
	WeightAnchor    = 0.3
	WeightHarshness = 0.2
	WeightStyle     = 0.2
)

// AnchorPositions are the quarter-note steps the anchor lane must hit.
var AnchorPositions = []int{0, 4, 8, 12}

// Metrics summarise a pattern.
type Metrics struct {
	DensityPerLane     map[pattern.LaneID]float64 `json:"densityPerLane"`
	CollisionRiskScore float64                    `json:"collisionRiskScore"`
	HarshnessRisk      float64                    `json:"harshnessRisk"`
	AnchorClarity      float64                    `json:"anchorClarity"`
}

// MeanDensity averages the per-lane densities.
func (m Metrics) MeanDensity() float64 {
	if len(m.DensityPerLane) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range m.DensityPerLane {
		sum += d
	}
	return sum / float64(len(m.DensityPerLane))
}

// ComputeMetrics measures p. A nil or lane-less pattern yields zero metrics.
func ComputeMetrics(p *pattern.Pattern) Metrics {
	m := Metrics{DensityPerLane: make(map[pattern.LaneID]float64)}
	if p == nil || len(p.Lanes) == 0 {
		return m
	}
	for _, l := range p.Lanes {
		m.DensityPerLane[l.ID] = pattern.LaneDensity(l)
	}
	m.CollisionRiskScore = collisionRisk(p)
	m.HarshnessRisk = harshnessRisk(p)
	m.AnchorClarity = anchorClarity(p)
	return m
}

// strongHitsAt counts lanes with an on step above threshold at index i,
// optionally skipping one lane.
func strongHitsAt(p *pattern.Pattern, i int, threshold float64, skip pattern.LaneID) int {
	n := 0
	for _, l := range p.Lanes {
		if l.ID == skip || i >= len(l.Steps) {
			continue
		}
		if s := l.Steps[i]; s.On && s.Velocity > threshold {
			n++
		}
	}
	return n
}

func collisionRisk(p *pattern.Pattern) float64 {
	sum := 0.0
	for i := 0; i < p.StepsPerBar; i++ {
		if n := strongHitsAt(p, i, StrongVelocity, ""); n > CollisionFreeHits {
			sum += float64(n-CollisionFreeHits) / 4
		}
	}
	return clamp01(sum / 4)
}

func harshnessRisk(p *pattern.Pattern) float64 {
	sum := 0.0
	for _, l := range p.Lanes {
		if !pattern.IsHat(l.ID) {
			continue
		}
		on, vel := 0, 0.0
		for _, s := range l.Steps {
			if s.On {
				on++
				vel += s.Velocity
			}
		}
		if on == 0 {
			continue
		}
		sum += pattern.LaneDensity(l) * (vel / float64(on))
	}
	return clamp01(sum / 2)
}

func anchorClarity(p *pattern.Pattern) float64 {
	anchor, ok := p.AnchorLane()
	if !ok {
		return 0
	}
	clarity := 1.0

	quarters := true
	for _, i := range AnchorPositions {
		if i >= len(anchor.Steps) || !anchor.Steps[i].On {
			quarters = false
			break
		}
	}
	if !quarters || anchor.OnCount() < 2 {
		clarity -= AnchorMissPenalty
	}

	masking := 0.0
	for i, s := range anchor.Steps {
		if !s.On {
			continue
		}
		if strongHitsAt(p, i, MaskingVelocity, anchor.ID) >= MaskingLaneThreshold {
			masking += MaskingStepPenalty
		}
	}
	if masking > MaskingPenaltyCap {
		masking = MaskingPenaltyCap
	}
	clarity -= masking

	if clarity < 0 {
		return 0
	}
	return clarity
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
