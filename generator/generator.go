// Package generator proposes candidate edits to a pattern. Each named
// strategy is a pure function of (seed, pattern, biases); all randomness
// comes from a per-strategy sub-seed of the run seed.
package generator

import (
	"fmt"

	"go-groove/debug"
	"go-groove/patch"
	"go-groove/pattern"
	"go-groove/rng"
	"go-groove/style"
)

// Strategy names one way of changing a pattern.
type Strategy int

const (
	Tighten Strategy = iota
	Interlock
	Lift
	Sparse
	Drive
)

// Strategies is the fixed set run on every Generate call, in output order.
var Strategies = []Strategy{Tighten, Interlock, Lift, Sparse, Drive}

func (s Strategy) String() string {
	switch s {
	case Tighten:
		return "tighten"
	case Interlock:
		return "interlock"
	case Lift:
		return "lift"
	case Sparse:
		return "sparse"
	case Drive:
		return "drive"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Label is the human title shown next to a candidate.
func (s Strategy) Label() string {
	switch s {
	case Tighten:
		return "Tighten collisions"
	case Interlock:
		return "Interlock percussion"
	case Lift:
		return "Lift the offbeat"
	case Sparse:
		return "Thin it out"
	case Drive:
		return "Drive the noise"
	}
	return s.String()
}

// Input is one generation request.
type Input struct {
	Seed         uint32
	Pattern      *pattern.Pattern
	Biases       style.Biases
	ArtistLenses []string
}

// Candidate is one proposed idea: an ordered op list.
type Candidate struct {
	ID       string
	Strategy Strategy
	Label    string
	Ops      []patch.Op
}

// Generate runs every strategy against in.Pattern. Strategies with nothing
// to propose are left out. An invalid pattern yields no candidates.
func Generate(in Input) []Candidate {
	p := in.Pattern
	if !p.Valid() {
		return nil
	}
	surgeon := style.HasLens(in.ArtistLenses, style.Surgeon)
	hash := p.Hash()

	var out []Candidate
	for _, s := range Strategies {
		r := rng.New(rng.KeySeed(in.Seed, s.String()))
		ops := Build(s, r, p, in.Biases)
		if len(ops) == 0 {
			continue
		}
		if surgeon {
			ops = EnforceRoles(p, ops)
		}
		out = append(out, Candidate{
			ID:       fmt.Sprintf("%s-%08x", s, rng.KeySeed(in.Seed, s.String(), hash)),
			Strategy: s,
			Label:    s.Label(),
			Ops:      ops,
		})
	}
	if surgeon {
		out = FilterUnroled(out)
	}
	debug.Log("pipeline", "generate seed=%d candidates=%d surgeon=%v", in.Seed, len(out), surgeon)
	return out
}

// Build dispatches to the strategy's op builder.
func Build(s Strategy, r *rng.Rand, p *pattern.Pattern, b style.Biases) []patch.Op {
	switch s {
	case Tighten:
		return tighten(r, p, b)
	case Interlock:
		return interlock(r, p, b)
	case Lift:
		return lift(r, p, b)
	case Sparse:
		return sparse(r, p, b)
	case Drive:
		return drive(r, p, b)
	}
	return nil
}

// EnforceRoles rewrites every op that turns a step on without a role.
// When the target lane has a role the op inherits it; otherwise the op
// becomes a probability-only adjustment of the same step.
func EnforceRoles(p *pattern.Pattern, ops []patch.Op) []patch.Op {
	out := make([]patch.Op, 0, len(ops))
	for _, op := range ops {
		set, ok := op.(patch.SetStep)
		if !ok || !patch.TurnsOn(op) || set.Role != pattern.RoleNone {
			out = append(out, op)
			continue
		}
		lane, ok := p.Lane(set.LaneID)
		if !ok {
			out = append(out, op)
			continue
		}
		if lane.Role.Valid() {
			set.Role = lane.Role
			out = append(out, set)
			continue
		}
		prob := 0.5
		if set.Probability != nil {
			prob = *set.Probability
		}
		out = append(out, patch.SetProbability{
			LaneID:      set.LaneID,
			StepIndex:   set.StepIndex,
			Probability: prob,
			Meta:        patch.Meta{ReasonCode: patch.ReasonRoleSafe},
		})
	}
	return out
}

// FilterUnroled drops candidates that still turn a step on without a role.
func FilterUnroled(cands []Candidate) []Candidate {
	out := cands[:0:0]
	for _, c := range cands {
		if hasUnroled(c.Ops) {
			debug.Log("pipeline", "dropped candidate %s: unroled hit", c.ID)
			continue
		}
		out = append(out, c)
	}
	return out
}

func hasUnroled(ops []patch.Op) bool {
	for _, op := range ops {
		if patch.TurnsOn(op) && op.Provenance().Role == pattern.RoleNone {
			return true
		}
	}
	return false
}
