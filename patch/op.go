// Package patch is the single choke point for pattern mutation. Operations
// are plain data; Apply folds them into a fresh copy of a pattern and sorts
// them into applied and rejected without ever failing as a whole.
package patch

import (
	"encoding/json"
	"fmt"

	"go-groove/pattern"
)

// Kind tags each operation variant.
type Kind string

const (
	KindSetStep        Kind = "SET_STEP"
	KindSetVelocity    Kind = "SET_VELOCITY"
	KindSetProbability Kind = "SET_PROBABILITY"
	KindSetMicroShift  Kind = "SET_MICROSHIFT"
	KindClearStep      Kind = "CLEAR_STEP"
	KindShiftLane      Kind = "SHIFT_LANE"
	KindSetLaneStart   Kind = "SET_LANE_START"
	KindSetLaneSwing   Kind = "SET_LANE_SWING"
	KindScaleVelocity  Kind = "SCALE_VELOCITY"
)

// Reason codes carried in Meta for provenance.
const (
	ReasonUser      = "USER_EDIT"
	ReasonGroove    = "GROOVE"
	ReasonTighten   = "TIGHTEN_COLLISION"
	ReasonInterlock = "ADD_INTERLOCK"
	ReasonLift      = "LIFT_OFFBEAT"
	ReasonSparse    = "REDUCE_DENSITY"
	ReasonDrive     = "DRIVE_INTENSITY"
	ReasonRoleSafe  = "ROLE_SAFE_REWRITE"
)

// Meta is optional provenance. The scheduler never reads it.
type Meta struct {
	Role       pattern.Role `json:"role,omitempty"`
	ReasonCode string       `json:"reasonCode,omitempty"`
}

// Op is one patch operation.
type Op interface {
	Kind() Kind
	Lane() pattern.LaneID
	Provenance() Meta
}

// SetStep replaces a step; nil fields keep the step's prior value. A
// non-empty Meta.Role also becomes the owning lane's role.
type SetStep struct {
	LaneID       pattern.LaneID `json:"laneId"`
	StepIndex    int            `json:"stepIndex"`
	On           *bool          `json:"on,omitempty"`
	Velocity     *float64       `json:"velocity,omitempty"`
	Probability  *float64       `json:"probability,omitempty"`
	MicroShiftMs *int           `json:"microShiftMs,omitempty"`
	Accent       *bool          `json:"accent,omitempty"`
	Meta
}

type SetVelocity struct {
	LaneID    pattern.LaneID `json:"laneId"`
	StepIndex int            `json:"stepIndex"`
	Velocity  float64        `json:"velocity"`
	Meta
}

type SetProbability struct {
	LaneID      pattern.LaneID `json:"laneId"`
	StepIndex   int            `json:"stepIndex"`
	Probability float64        `json:"probability"`
	Meta
}

type SetMicroShift struct {
	LaneID       pattern.LaneID `json:"laneId"`
	StepIndex    int            `json:"stepIndex"`
	MicroShiftMs int            `json:"microShiftMs"`
	Meta
}

// ClearStep resets a step to pattern.DefaultStep.
type ClearStep struct {
	LaneID    pattern.LaneID `json:"laneId"`
	StepIndex int            `json:"stepIndex"`
	Meta
}

// ShiftLane rotates the lane start by a signed delta, wrapping.
type ShiftLane struct {
	LaneID pattern.LaneID `json:"laneId"`
	Delta  int            `json:"delta"`
	Meta
}

// SetLaneStart sets the lane start absolutely.
type SetLaneStart struct {
	LaneID pattern.LaneID `json:"laneId"`
	Offset int            `json:"offset"`
	Meta
}

type SetLaneSwing struct {
	LaneID   pattern.LaneID `json:"laneId"`
	SwingPct float64        `json:"swingPct"`
	Meta
}

// ScaleVelocity multiplies one step (StepIndex set) or the whole lane.
type ScaleVelocity struct {
	LaneID    pattern.LaneID `json:"laneId"`
	StepIndex *int           `json:"stepIndex,omitempty"`
	Factor    float64        `json:"factor"`
	Meta
}

func (o SetStep) Kind() Kind        { return KindSetStep }
func (o SetVelocity) Kind() Kind    { return KindSetVelocity }
func (o SetProbability) Kind() Kind { return KindSetProbability }
func (o SetMicroShift) Kind() Kind  { return KindSetMicroShift }
func (o ClearStep) Kind() Kind      { return KindClearStep }
func (o ShiftLane) Kind() Kind      { return KindShiftLane }
func (o SetLaneStart) Kind() Kind   { return KindSetLaneStart }
func (o SetLaneSwing) Kind() Kind   { return KindSetLaneSwing }
func (o ScaleVelocity) Kind() Kind  { return KindScaleVelocity }

func (o SetStep) Lane() pattern.LaneID        { return o.LaneID }
func (o SetVelocity) Lane() pattern.LaneID    { return o.LaneID }
func (o SetProbability) Lane() pattern.LaneID { return o.LaneID }
func (o SetMicroShift) Lane() pattern.LaneID  { return o.LaneID }
func (o ClearStep) Lane() pattern.LaneID      { return o.LaneID }
func (o ShiftLane) Lane() pattern.LaneID      { return o.LaneID }
func (o SetLaneStart) Lane() pattern.LaneID   { return o.LaneID }
func (o SetLaneSwing) Lane() pattern.LaneID   { return o.LaneID }
func (o ScaleVelocity) Lane() pattern.LaneID  { return o.LaneID }

func (m Meta) Provenance() Meta { return m }

// TurnsOn reports whether op switches a step on.
func TurnsOn(op Op) bool {
	s, ok := deref(op).(SetStep)
	return ok && s.On != nil && *s.On
}

// Hit builds a SET_STEP that turns a step on with the given velocity.
func Hit(lane pattern.LaneID, step int, velocity float64, role pattern.Role, reason string) SetStep {
	on := true
	return SetStep{
		LaneID:    lane,
		StepIndex: step,
		On:        &on,
		Velocity:  &velocity,
		Meta:      Meta{Role: role, ReasonCode: reason},
	}
}

// Toggle builds the user edit that flips a step.
func Toggle(p *pattern.Pattern, lane pattern.LaneID, step int) Op {
	s, ok := p.Step(lane, step)
	if ok && s.On {
		return ClearStep{LaneID: lane, StepIndex: step, Meta: Meta{ReasonCode: ReasonUser}}
	}
	on := true
	return SetStep{LaneID: lane, StepIndex: step, On: &on, Meta: Meta{ReasonCode: ReasonUser}}
}

// Describe renders an op for logs and the UI.
func Describe(op Op) string {
	op = deref(op)
	switch o := op.(type) {
	case SetStep:
		if o.On != nil && !*o.On {
			return fmt.Sprintf("%s %s[%d] off", o.Kind(), o.LaneID, o.StepIndex)
		}
		v := "-"
		if o.Velocity != nil {
			v = fmt.Sprintf("%.2f", *o.Velocity)
		}
		return fmt.Sprintf("%s %s[%d] vel=%s role=%s", o.Kind(), o.LaneID, o.StepIndex, v, o.Role)
	case SetVelocity:
		return fmt.Sprintf("%s %s[%d] %.2f", o.Kind(), o.LaneID, o.StepIndex, o.Velocity)
	case SetProbability:
		return fmt.Sprintf("%s %s[%d] %.2f", o.Kind(), o.LaneID, o.StepIndex, o.Probability)
	case SetMicroShift:
		return fmt.Sprintf("%s %s[%d] %+dms", o.Kind(), o.LaneID, o.StepIndex, o.MicroShiftMs)
	case ClearStep:
		return fmt.Sprintf("%s %s[%d]", o.Kind(), o.LaneID, o.StepIndex)
	case ShiftLane:
		return fmt.Sprintf("%s %s %+d", o.Kind(), o.LaneID, o.Delta)
	case SetLaneStart:
		return fmt.Sprintf("%s %s %d", o.Kind(), o.LaneID, o.Offset)
	case SetLaneSwing:
		return fmt.Sprintf("%s %s %.1f%%", o.Kind(), o.LaneID, o.SwingPct)
	case ScaleVelocity:
		if o.StepIndex == nil {
			return fmt.Sprintf("%s %s x%.2f", o.Kind(), o.LaneID, o.Factor)
		}
		return fmt.Sprintf("%s %s[%d] x%.2f", o.Kind(), o.LaneID, *o.StepIndex, o.Factor)
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%s %s", op.Kind(), op.Lane())
}

type envelope struct {
	Kind Kind            `json:"kind"`
	Op   json.RawMessage `json:"op"`
}

// MarshalOps encodes ops as a JSON array of {kind, op} envelopes.
func MarshalOps(ops []Op) ([]byte, error) {
	envs := make([]envelope, 0, len(ops))
	for i, op := range ops {
		op = deref(op)
		if op == nil {
			return nil, fmt.Errorf("op %d is nil", i)
		}
		raw, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("encode op %d: %w", i, err)
		}
		envs = append(envs, envelope{Kind: op.Kind(), Op: raw})
	}
	return json.Marshal(envs)
}

// UnmarshalOps decodes the output of MarshalOps.
func UnmarshalOps(data []byte) ([]Op, error) {
	var envs []envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("decode ops: %w", err)
	}
	ops := make([]Op, 0, len(envs))
	for i, e := range envs {
		op, err := decodeOp(e)
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func decodeOp(e envelope) (Op, error) {
	switch e.Kind {
	case KindSetStep:
		return decodeAs[SetStep](e.Op)
	case KindSetVelocity:
		return decodeAs[SetVelocity](e.Op)
	case KindSetProbability:
		return decodeAs[SetProbability](e.Op)
	case KindSetMicroShift:
		return decodeAs[SetMicroShift](e.Op)
	case KindClearStep:
		return decodeAs[ClearStep](e.Op)
	case KindShiftLane:
		return decodeAs[ShiftLane](e.Op)
	case KindSetLaneStart:
		return decodeAs[SetLaneStart](e.Op)
	case KindSetLaneSwing:
		return decodeAs[SetLaneSwing](e.Op)
	case KindScaleVelocity:
		return decodeAs[ScaleVelocity](e.Op)
	}
	return nil, fmt.Errorf("unknown op kind %q", e.Kind)
}

func decodeAs[T Op](raw json.RawMessage) (Op, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
