package pipeline

import (
	"reflect"
	"testing"

	"go-groove/critique"
	"go-groove/patch"
	"go-groove/pattern"
	"go-groove/style"
)

func cleanInput() Input {
	return Input{
		Seed:    42,
		Pattern: pattern.New(120, 42),
		Tags: style.Tags{
			ArtistLenses:    []string{},
			InfluenceVector: []string{},
			Mode:            style.ModeCleanFunctional,
		},
	}
}

func TestCleanFunctionalScenario(t *testing.T) {
	a := Run(cleanInput())
	b := Run(cleanInput())
	if len(a.ScoredCandidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(a.ScoredCandidates))
	}
	if a.ScoredCandidates[0].Score.Score != b.ScoredCandidates[0].Score.Score {
		t.Fatalf("score not stable: %v vs %v", a.ScoredCandidates[0].Score.Score, b.ScoredCandidates[0].Score.Score)
	}
	if len(a.UnknownTags) != 0 {
		t.Fatalf("unexpected unknown tags %v", a.UnknownTags)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	in := cleanInput()
	in.Tags.ArtistLenses = []string{style.Huckaby}
	in.Tags.CityProfile = "Detroit"
	a, b := Run(in), Run(in)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two runs differ")
	}
	for i := range a.ScoredCandidates {
		ha := patch.Apply(in.Pattern, a.ScoredCandidates[i].Ops).Next.Hash()
		hb := patch.Apply(in.Pattern, b.ScoredCandidates[i].Ops).Next.Hash()
		if ha != hb {
			t.Fatalf("candidate %d hash %s vs %s", i, ha, hb)
		}
	}
}

func TestHuckabySurfacesThree(t *testing.T) {
	in := cleanInput()
	in.Tags.ArtistLenses = []string{"huckaby"}
	out := Run(in)
	if len(out.ScoredCandidates) != 3 {
		t.Fatalf("got %d candidates, want 3", len(out.ScoredCandidates))
	}
	for i := 1; i < len(out.ScoredCandidates); i++ {
		if out.ScoredCandidates[i].Score.Score > out.ScoredCandidates[i-1].Score.Score {
			t.Fatal("candidates not sorted by score")
		}
	}
}

func TestUnknownTagsBecomeCritique(t *testing.T) {
	in := cleanInput()
	in.Tags.InfluenceVector = []string{"Polka", "Dub"}
	in.Tags.CityProfile = "Atlantis"
	out := Run(in)
	if !reflect.DeepEqual(out.UnknownTags, []string{"Atlantis", "Polka"}) {
		t.Fatalf("unknown tags = %v", out.UnknownTags)
	}
	n := 0
	for _, it := range out.CritiqueItems {
		if it.Code == critique.CodeUnknownTag {
			n++
		}
	}
	if n != 2 {
		t.Fatalf("got %d unknown-tag items, want 2", n)
	}
	if len(out.ScoredCandidates) != 1 {
		t.Fatal("unknown tags stopped the pipeline")
	}
}

func TestRunWithoutPattern(t *testing.T) {
	out := Run(Input{Seed: 1})
	if len(out.ScoredCandidates) != 0 {
		t.Fatalf("got %d candidates for nil pattern", len(out.ScoredCandidates))
	}
}

func TestRunDoesNotMutate(t *testing.T) {
	in := cleanInput()
	h := in.Pattern.Hash()
	Run(in)
	if in.Pattern.Hash() != h {
		t.Fatal("Run mutated the pattern")
	}
}
