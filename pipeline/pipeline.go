// Package pipeline runs one generation pass: resolve style, generate
// candidates, score and rank them, and pick what to show.
package pipeline

import (
	"sort"

	"go-groove/critique"
	"go-groove/debug"
	"go-groove/generator"
	"go-groove/pattern"
	"go-groove/style"
)

const (
	curatorPicks = 3
	defaultPicks = 1
)

// Input to Run.
type Input struct {
	Seed    uint32
	Pattern *pattern.Pattern
	Tags    style.Tags
}

// ScoredCandidate is a candidate with its ranking.
type ScoredCandidate struct {
	generator.Candidate
	Score critique.Score
}

// Output of Run. Nothing in it is an error; unknown tags and weak metrics
// are reported as critique items.
type Output struct {
	ScoredCandidates []ScoredCandidate
	CritiqueItems    []critique.Item
	UnknownTags      []string
	Biases           style.Biases
	Metrics          critique.Metrics
}

// Run is pure: the same input always produces the same output.
func Run(in Input) Output {
	res := style.Resolve(in.Tags)
	out := Output{
		UnknownTags: res.UnknownTags,
		Biases:      res.Biases,
		Metrics:     critique.ComputeMetrics(in.Pattern),
	}
	for _, tag := range res.UnknownTags {
		out.CritiqueItems = append(out.CritiqueItems, critique.UnknownTagItem(tag))
	}
	out.CritiqueItems = append(out.CritiqueItems, critique.Critique(out.Metrics)...)

	cands := generator.Generate(generator.Input{
		Seed:         in.Seed,
		Pattern:      in.Pattern,
		Biases:       res.Biases,
		ArtistLenses: in.Tags.ArtistLenses,
	})
	scored := make([]ScoredCandidate, len(cands))
	for i, c := range cands {
		scored[i] = ScoredCandidate{
			Candidate: c,
			Score:     critique.ScoreCandidate(in.Pattern, c.Ops, res.Biases),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score.Score > scored[j].Score.Score
	})

	n := defaultPicks
	if style.HasLens(in.Tags.ArtistLenses, style.Huckaby) {
		n = curatorPicks
	}
	if len(scored) > n {
		scored = scored[:n]
	}
	out.ScoredCandidates = scored

	if len(scored) > 0 {
		debug.Log("pipeline", "seed=%d best=%s score=%.4f of %d", in.Seed, scored[0].ID, scored[0].Score.Score, len(cands))
	} else {
		debug.Log("pipeline", "seed=%d no candidates", in.Seed)
	}
	return out
}
