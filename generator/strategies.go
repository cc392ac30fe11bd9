package generator

import (
	"go-groove/critique"
	"go-groove/patch"
	"go-groove/pattern"
	"go-groove/rng"
	"go-groove/style"
)

var liftSteps = []int{2, 6, 10, 14}

// sparseMin is the lane density above which sparse clears rather than thins.
const sparseMin = 0.4

// tighten scales down the lane most involved in strong collisions. With no
// collisions it softens one non-anchor hit instead.
func tighten(r *rng.Rand, p *pattern.Pattern, b style.Biases) []patch.Op {
	best, worst := 0, []pattern.LaneID(nil)
	for _, l := range p.Lanes {
		if l.Role == pattern.RoleAnchor {
			continue
		}
		n := 0
		for i, s := range l.Steps {
			if s.On && s.Velocity > critique.StrongVelocity && strongAt(p, i, l.ID) > 0 {
				n++
			}
		}
		switch {
		case n > best:
			best, worst = n, []pattern.LaneID{l.ID}
		case n == best && n > 0:
			worst = append(worst, l.ID)
		}
	}
	if best > 0 {
		factor := clamp(0.8-0.1*b.HarshnessPenalty, 0.6, 0.9)
		return []patch.Op{patch.ScaleVelocity{
			LaneID: rng.Pick(r, worst),
			Factor: factor,
			Meta:   patch.Meta{ReasonCode: patch.ReasonTighten},
		}}
	}

	type hit struct {
		lane pattern.LaneID
		step int
		vel  float64
	}
	var hits []hit
	for _, l := range p.Lanes {
		if l.Role == pattern.RoleAnchor {
			continue
		}
		for i, s := range l.Steps {
			if s.On && s.Velocity > patch.MinVelocity {
				hits = append(hits, hit{l.ID, i, s.Velocity})
			}
		}
	}
	if len(hits) == 0 {
		return nil
	}
	h := rng.Pick(r, hits)
	return []patch.Op{patch.SetVelocity{
		LaneID:    h.lane,
		StepIndex: h.step,
		Velocity:  h.vel * 0.85,
		Meta:      patch.Meta{ReasonCode: patch.ReasonTighten},
	}}
}

// interlock drops a quiet probabilistic hit on a texture lane, in a gap
// left by the anchor.
func interlock(r *rng.Rand, p *pattern.Pattern, b style.Biases) []patch.Op {
	lane, ok := pickLane(p, pattern.Perc, pattern.RoleTexture)
	if !ok {
		return nil
	}
	anchor, hasAnchor := p.AnchorLane()
	var free []int
	for i, s := range lane.Steps {
		if s.On || i%2 == 0 {
			continue
		}
		if hasAnchor && anchor.Steps[i].On {
			continue
		}
		free = append(free, i)
	}
	if len(free) == 0 {
		return nil
	}
	op := patch.Hit(lane.ID, rng.Pick(r, free), r.Range(0.35, 0.5), roleOr(lane, pattern.RoleTexture), patch.ReasonInterlock)
	prob := clamp(0.55+b.GhostProbBias, 0.1, 0.95)
	op.Probability = &prob
	return []patch.Op{op}
}

// lift puts an accented hit on an offbeat eighth.
func lift(r *rng.Rand, p *pattern.Pattern, b style.Biases) []patch.Op {
	lane, ok := pickLane(p, pattern.OpenHat, pattern.RoleOffbeat)
	if !ok {
		return nil
	}
	accent := true
	var free []int
	for _, i := range liftSteps {
		if i < len(lane.Steps) && !lane.Steps[i].On {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		// everything is already there; sharpen one instead
		i := rng.Pick(r, liftSteps)
		if i >= len(lane.Steps) {
			return nil
		}
		return []patch.Op{patch.SetStep{
			LaneID:    lane.ID,
			StepIndex: i,
			Accent:    &accent,
			Meta:      patch.Meta{ReasonCode: patch.ReasonLift},
		}}
	}
	vel := clamp(0.75+0.1*b.AccentSharpness, patch.MinVelocity, patch.MaxVelocity)
	op := patch.Hit(lane.ID, rng.Pick(r, free), vel, roleOr(lane, pattern.RoleOffbeat), patch.ReasonLift)
	op.Accent = &accent
	return []patch.Op{op}
}

// sparse clears a hit from the busiest non-anchor lane. If no lane is
// crowded it makes one hit probabilistic instead.
func sparse(r *rng.Rand, p *pattern.Pattern, b style.Biases) []patch.Op {
	var densest pattern.Lane
	top := -1.0
	for _, l := range p.Lanes {
		if l.Role == pattern.RoleAnchor {
			continue
		}
		if d := pattern.LaneDensity(l); d > top {
			top, densest = d, l
		}
	}
	if top <= 0 {
		return nil
	}
	var on, offQuarter []int
	for i, s := range densest.Steps {
		if !s.On {
			continue
		}
		on = append(on, i)
		if i%4 != 0 {
			offQuarter = append(offQuarter, i)
		}
	}
	if top > sparseMin-0.1*b.DensityBias {
		pool := offQuarter
		if len(pool) == 0 {
			pool = on
		}
		return []patch.Op{patch.ClearStep{
			LaneID:    densest.ID,
			StepIndex: rng.Pick(r, pool),
			Meta:      patch.Meta{ReasonCode: patch.ReasonSparse},
		}}
	}
	return []patch.Op{patch.SetProbability{
		LaneID:      densest.ID,
		StepIndex:   rng.Pick(r, on),
		Probability: 0.7,
		Meta:        patch.Meta{ReasonCode: patch.ReasonSparse},
	}}
}

// drive pushes the noise lane harder, seeding it with a hit when empty.
func drive(r *rng.Rand, p *pattern.Pattern, b style.Biases) []patch.Op {
	lane, ok := p.Lane(pattern.Noise)
	if !ok {
		return nil
	}
	if lane.OnCount() > 0 {
		return []patch.Op{patch.ScaleVelocity{
			LaneID: lane.ID,
			Factor: clamp(1.2+0.5*b.NoiseBias, 1.05, 1.5),
			Meta:   patch.Meta{ReasonCode: patch.ReasonDrive},
		}}
	}
	var odd []int
	for i := 1; i < len(lane.Steps); i += 2 {
		odd = append(odd, i)
	}
	vel := clamp(0.5+b.NoiseBias, patch.MinVelocity, patch.MaxVelocity)
	return []patch.Op{patch.Hit(lane.ID, rng.Pick(r, odd), vel, roleOr(lane, pattern.RoleTexture), patch.ReasonDrive)}
}

// pickLane prefers the lane with the given id, then the first lane with role.
func pickLane(p *pattern.Pattern, id pattern.LaneID, role pattern.Role) (pattern.Lane, bool) {
	if l, ok := p.Lane(id); ok {
		return l, true
	}
	for _, l := range p.Lanes {
		if l.Role == role {
			return l, true
		}
	}
	return pattern.Lane{}, false
}

func roleOr(l pattern.Lane, fallback pattern.Role) pattern.Role {
	if l.Role.Valid() {
		return l.Role
	}
	return fallback
}

// strongAt counts strong hits at step i on lanes other than skip.
func strongAt(p *pattern.Pattern, i int, skip pattern.LaneID) int {
	n := 0
	for _, l := range p.Lanes {
		if l.ID == skip || i >= len(l.Steps) {
			continue
		}
		if s := l.Steps[i]; s.On && s.Velocity > critique.StrongVelocity {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
