package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-groove/patch"
	"go-groove/pattern"
)

func TestRunJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := runCmd([]string{"-json", "-seed", "7", "-city", "Atlantis"}, &buf); err != nil {
		t.Fatal(err)
	}
	var r report
	if err := json.Unmarshal(buf.Bytes(), &r); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if r.Seed != 7 || len(r.Candidates) != 1 {
		t.Errorf("seed=%d candidates=%d", r.Seed, len(r.Candidates))
	}
	if len(r.UnknownTags) != 1 || r.UnknownTags[0] != "Atlantis" {
		t.Errorf("unknown tags = %v", r.UnknownTags)
	}
	if len(r.Candidates) > 0 && len(r.Candidates[0].Ops) == 0 {
		t.Error("candidate ops missing")
	}
}

func TestRunSeedFolds(t *testing.T) {
	tests := []struct {
		arg  string
		want uint32
	}{
		{"7", 7},
		{"-1", 0xFFFFFFFF},
		{"4294967303", 7},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := runCmd([]string{"-json", "-seed", tt.arg}, &buf); err != nil {
			t.Fatalf("seed %s: %v", tt.arg, err)
		}
		var r report
		if err := json.Unmarshal(buf.Bytes(), &r); err != nil {
			t.Fatal(err)
		}
		if r.Seed != tt.want {
			t.Errorf("seed %s: report seed = %d, want %d", tt.arg, r.Seed, tt.want)
		}
	}
}

func TestRunText(t *testing.T) {
	var buf bytes.Buffer
	if err := runCmd([]string{"-lenses", "Huckaby,Dilla"}, &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"collision", "1. ", "3. "} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExportJSONAfterAccept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.json")
	if err := exportCmd([]string{"-accept", "1", "-groove", "mpc", "-out", path}, nil); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	p, err := pattern.UnmarshalRecord(data)
	if err != nil {
		t.Fatal(err)
	}
	if p.VariationIndex != 1 || p.GrooveTemplateID != "mpc" {
		t.Errorf("variation=%d groove=%q", p.VariationIndex, p.GrooveTemplateID)
	}

	// the exported record is valid input for the next run
	var buf bytes.Buffer
	if err := runCmd([]string{"-in", path}, &buf); err != nil {
		t.Fatal(err)
	}
}

const opsJSON = `[
	{"kind":"SET_VELOCITY","op":{"laneId":"kick","stepIndex":0,"velocity":0.5}},
	{"kind":"SET_LANE_START","op":{"laneId":"kick","offset":99}}
]`

func TestApplyOps(t *testing.T) {
	dir := t.TempDir()
	opsPath := filepath.Join(dir, "ops.json")
	if err := os.WriteFile(opsPath, []byte(opsJSON), 0644); err != nil {
		t.Fatal(err)
	}
	rejectedPath := filepath.Join(dir, "rejected.json")

	var stdout, stderr bytes.Buffer
	if err := applyCmd([]string{"-ops", opsPath, "-rejected", rejectedPath}, nil, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	p, err := pattern.UnmarshalRecord(stdout.Bytes())
	if err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout.String())
	}
	if s, _ := p.Step(pattern.Kick, 0); s.Velocity != 0.5 {
		t.Errorf("kick velocity = %v", s.Velocity)
	}
	if !strings.Contains(stderr.String(), "lane offset out of range") {
		t.Errorf("stderr = %q", stderr.String())
	}

	data, err := os.ReadFile(rejectedPath)
	if err != nil {
		t.Fatal(err)
	}
	rejected, err := patch.UnmarshalOps(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(rejected) != 1 || rejected[0].Kind() != patch.KindSetLaneStart {
		t.Errorf("rejected = %v", rejected)
	}
}

func TestApplyOpsErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
	}{
		{"strict", []string{"-strict"}, opsJSON},
		{"bad json", nil, "{"},
		{"unknown kind", nil, `[{"kind":"EXPLODE","op":{}}]`},
		{"missing ops file", []string{"-ops", "/no/such/ops.json"}, ""},
	}
	for _, tt := range tests {
		var stdout, stderr bytes.Buffer
		if err := applyCmd(tt.args, strings.NewReader(tt.stdin), &stdout, &stderr); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
		if stdout.Len() != 0 {
			t.Errorf("%s: wrote a pattern anyway", tt.name)
		}
	}
}

func TestExportSMF(t *testing.T) {
	var buf bytes.Buffer
	if err := exportCmd([]string{"-format", "smf", "-bars", "2"}, &buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("MThd")) {
		t.Errorf("not a MIDI file: % x", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestExportErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"format", []string{"-format", "wav"}},
		{"accept", []string{"-accept", "3"}},
		{"missing input", []string{"-in", "/no/such/file.json"}},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := exportCmd(tt.args, &buf); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" Dub, ,Acid ,")
	if len(got) != 2 || got[0] != "Dub" || got[1] != "Acid" {
		t.Errorf("got %q", got)
	}
	if splitList("") != nil {
		t.Error("empty list should be nil")
	}
}
