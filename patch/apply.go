package patch

import (
	"math"

	"go-groove/debug"
	"go-groove/pattern"
)

// Value domains. Out-of-domain numbers are clamped, never rejected.
const (
	MinVelocity   = 0.15
	MaxVelocity   = 1.0
	MinMicroShift = -18
	MaxMicroShift = 18
	MinLaneSwing  = 50.0
	MaxLaneSwing  = 62.0
)

// Reason explains why an op was rejected.
type Reason string

const (
	RejectNilOp         Reason = "nil operation"
	RejectNoPattern     Reason = "no pattern"
	RejectUnknownLane   Reason = "unknown lane"
	RejectStepRange     Reason = "step index out of range"
	RejectOffsetRange   Reason = "lane offset out of range"
	RejectInvalidRole   Reason = "invalid role"
	RejectUnsupportedOp Reason = "unsupported operation"
)

// Rejection pairs a rejected op with its reason.
type Rejection struct {
	Op     Op
	Reason Reason
}

// Result is the outcome of Apply. len(Applied)+len(Rejected) always equals
// the number of ops passed in.
type Result struct {
	Next     *pattern.Pattern
	Applied  []Op
	Rejected []Rejection
}

// RejectedOps returns just the rejected operations.
func (r Result) RejectedOps() []Op {
	ops := make([]Op, len(r.Rejected))
	for i, rj := range r.Rejected {
		ops[i] = rj.Op
	}
	return ops
}

// Apply folds ops into a copy of p in order; each op is validated against
// the state left by the ops before it. p itself is never modified.
func Apply(p *pattern.Pattern, ops []Op) Result {
	if !p.Valid() {
		res := Result{Next: p}
		for _, op := range ops {
			res.Rejected = append(res.Rejected, Rejection{Op: op, Reason: RejectNoPattern})
		}
		return res
	}

	next := p.Clone()
	res := Result{Next: next}
	for _, op := range ops {
		if reason, ok := applyOne(next, op); ok {
			res.Applied = append(res.Applied, op)
		} else {
			res.Rejected = append(res.Rejected, Rejection{Op: op, Reason: reason})
			debug.Log("patch", "rejected %s: %s", Describe(op), reason)
		}
	}
	return res
}

func applyOne(p *pattern.Pattern, op Op) (Reason, bool) {
	op = deref(op)
	if op == nil {
		return RejectNilOp, false
	}
	lane := p.MutableLane(op.Lane())
	if lane == nil {
		return RejectUnknownLane, false
	}
	n := p.StepsPerBar
	inRange := func(i int) bool { return i >= 0 && i < n && i < len(lane.Steps) }

	switch o := op.(type) {
	case SetStep:
		if !inRange(o.StepIndex) {
			return RejectStepRange, false
		}
		if o.Role != pattern.RoleNone && !o.Role.Valid() {
			return RejectInvalidRole, false
		}
		s := lane.Steps[o.StepIndex]
		if o.On != nil {
			s.On = *o.On
		}
		if o.Velocity != nil {
			s.Velocity = ClampVelocity(*o.Velocity)
		}
		if o.Probability != nil {
			s.Probability = ClampProbability(*o.Probability)
		}
		if o.MicroShiftMs != nil {
			s.MicroShiftMs = ClampMicroShift(*o.MicroShiftMs)
		}
		if o.Accent != nil {
			s.Accent = *o.Accent
		}
		lane.Steps[o.StepIndex] = s
		if o.Role != pattern.RoleNone {
			lane.Role = o.Role
		}

	case SetVelocity:
		if !inRange(o.StepIndex) {
			return RejectStepRange, false
		}
		lane.Steps[o.StepIndex].Velocity = ClampVelocity(o.Velocity)

	case SetProbability:
		if !inRange(o.StepIndex) {
			return RejectStepRange, false
		}
		lane.Steps[o.StepIndex].Probability = ClampProbability(o.Probability)

	case SetMicroShift:
		if !inRange(o.StepIndex) {
			return RejectStepRange, false
		}
		lane.Steps[o.StepIndex].MicroShiftMs = ClampMicroShift(o.MicroShiftMs)

	case ClearStep:
		if !inRange(o.StepIndex) {
			return RejectStepRange, false
		}
		lane.Steps[o.StepIndex] = pattern.DefaultStep()

	case ShiftLane:
		lane.PlayStartOffsetSteps = Wrap(lane.PlayStartOffsetSteps+o.Delta, n)

	case SetLaneStart:
		if o.Offset < 0 || o.Offset >= n {
			return RejectOffsetRange, false
		}
		lane.PlayStartOffsetSteps = o.Offset

	case SetLaneSwing:
		lane.LaneSwingPct = ClampLaneSwing(o.SwingPct)

	case ScaleVelocity:
		if o.StepIndex != nil {
			if !inRange(*o.StepIndex) {
				return RejectStepRange, false
			}
			s := &lane.Steps[*o.StepIndex]
			s.Velocity = ClampVelocity(s.Velocity * o.Factor)
			break
		}
		for i := range lane.Steps {
			lane.Steps[i].Velocity = ClampVelocity(lane.Steps[i].Velocity * o.Factor)
		}

	default:
		return RejectUnsupportedOp, false
	}
	return "", true
}

// deref turns pointer ops into their values. Pointers satisfy Op through
// the value method set, so a typed nil maps to a plain nil.
func deref(op Op) Op {
	switch o := op.(type) {
	case *SetStep:
		if o != nil {
			return *o
		}
	case *SetVelocity:
		if o != nil {
			return *o
		}
	case *SetProbability:
		if o != nil {
			return *o
		}
	case *SetMicroShift:
		if o != nil {
			return *o
		}
	case *ClearStep:
		if o != nil {
			return *o
		}
	case *ShiftLane:
		if o != nil {
			return *o
		}
	case *SetLaneStart:
		if o != nil {
			return *o
		}
	case *SetLaneSwing:
		if o != nil {
			return *o
		}
	case *ScaleVelocity:
		if o != nil {
			return *o
		}
	default:
		return op
	}
	return nil
}

// Wrap returns v mod n in [0, n).
func Wrap(v, n int) int {
	if n <= 0 {
		return 0
	}
	return ((v % n) + n) % n
}

func ClampVelocity(v float64) float64 { return clampf(v, MinVelocity, MaxVelocity) }

func ClampProbability(v float64) float64 { return clampf(v, 0, 1) }

func ClampLaneSwing(v float64) float64 { return clampf(v, MinLaneSwing, MaxLaneSwing) }

func ClampMicroShift(ms int) int {
	if ms < MinMicroShift {
		return MinMicroShift
	}
	if ms > MaxMicroShift {
		return MaxMicroShift
	}
	return ms
}

// clampf maps NaN to lo.
func clampf(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
