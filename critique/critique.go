package critique

import (
	"fmt"
	"sort"

	"go-groove/pattern"
)

// Item codes.
const (
	CodeUnknownTag    = "UNKNOWN_TAG"
	CodeCollision     = "COLLISION_RISK"
	CodeHarshness     = "HARSH_HATS"
	CodeAnchorUnclear = "ANCHOR_UNCLEAR"
	CodeLaneCrowded   = "LANE_OVERCROWDED"
	CodePatternEmpty  = "PATTERN_EMPTY"
	CodeRejectedOps   = "REJECTED_OPS"
)

// Severity of a critique item
type Severity string

const (
	SeverityInfo Severity = "info"
	SeverityWarn Severity = "warn"
)

// Item is one human-readable observation.
type Item struct {
	Code     string         `json:"code"`
	Severity Severity       `json:"severity"`
	Lane     pattern.LaneID `json:"lane,omitempty"`
	Message  string         `json:"message"`
}

const (
	harshWarn   = 0.5
	anchorWarn  = 0.7
	crowdedLane = 0.75
)

// Critique turns metrics into observations, most important first.
func Critique(m Metrics) []Item {
	var items []Item
	if m.CollisionRiskScore > 0 {
		items = append(items, Item{
			Code:     CodeCollision,
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("more than %d strong hits land together (risk %.2f)", CollisionFreeHits, m.CollisionRiskScore),
		})
	}
	if m.AnchorClarity < anchorWarn {
		items = append(items, Item{
			Code:     CodeAnchorUnclear,
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("anchor pulse is unclear (clarity %.2f)", m.AnchorClarity),
		})
	}
	if m.HarshnessRisk > harshWarn {
		items = append(items, Item{
			Code:     CodeHarshness,
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("hats are dense and loud (harshness %.2f)", m.HarshnessRisk),
		})
	}

	ids := make([]pattern.LaneID, 0, len(m.DensityPerLane))
	for id := range m.DensityPerLane {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if d := m.DensityPerLane[id]; d > crowdedLane {
			items = append(items, Item{
				Code:     CodeLaneCrowded,
				Severity: SeverityInfo,
				Lane:     id,
				Message:  fmt.Sprintf("%s plays %.0f%% of steps", id, d*100),
			})
		}
	}
	if len(m.DensityPerLane) > 0 && m.MeanDensity() == 0 {
		items = append(items, Item{Code: CodePatternEmpty, Severity: SeverityInfo, Message: "pattern has no active steps"})
	}
	return items
}

// UnknownTagItem reports a style tag no table recognised.
func UnknownTagItem(tag string) Item {
	return Item{
		Code:     CodeUnknownTag,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("unknown style tag %q ignored", tag),
	}
}
