// Command groovegen runs the variation pipeline without the UI: generate
// candidates, apply saved ops, export patterns as JSON or Standard MIDI
// Files, list ports and play a pattern once.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-groove/critique"
	"go-groove/debug"
	"go-groove/groove"
	"go-groove/midi"
	"go-groove/patch"
	"go-groove/pattern"
	"go-groove/pipeline"
	"go-groove/rng"
	"go-groove/scheduler"
	"go-groove/sequencer"
	"go-groove/style"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("groovegen: ")

	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:], os.Stdout)
	case "apply":
		err = applyCmd(os.Args[2:], os.Stdin, os.Stdout, os.Stderr)
	case "export":
		err = exportCmd(os.Args[2:], os.Stdout)
	case "ports":
		err = portsCmd(os.Stdout)
	case "play":
		err = playCmd(os.Args[2:])
	default:
		usage()
		return
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Println("groovegen - pattern variations from the command line")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run     - Generate and score candidates, print the report")
	fmt.Println("  apply   - Apply an ops list to a pattern and write the result")
	fmt.Println("  export  - Write a pattern as JSON or MIDI (optionally after accepting a candidate)")
	fmt.Println("  ports   - List MIDI ports")
	fmt.Println("  play    - Play a pattern once on a MIDI port")
	fmt.Println("")
	fmt.Println("Run 'groovegen <command> -h' for flags.")
}

// common holds the flags every pattern command shares.
type common struct {
	in         string
	seed       int64
	tempo      float64
	city       string
	influences string
	lenses     string
	mode       string
	debug      bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.in, "in", "", "pattern record JSON (default: the session-start pattern)")
	fs.Int64Var(&c.seed, "seed", 42, "run seed (any integer, folded mod 2^32)")
	fs.Float64Var(&c.tempo, "tempo", 120, "tempo for a new pattern")
	fs.StringVar(&c.city, "city", "", "city profile tag")
	fs.StringVar(&c.influences, "influences", "", "comma separated influence tags")
	fs.StringVar(&c.lenses, "lenses", "", "comma separated artist lenses")
	fs.StringVar(&c.mode, "mode", style.ModeCleanFunctional, "mode tag")
	fs.BoolVar(&c.debug, "debug", false, "log internals to stderr")
}

func (c *common) tags() style.Tags {
	return style.Tags{
		CityProfile:     c.city,
		InfluenceVector: splitList(c.influences),
		ArtistLenses:    splitList(c.lenses),
		Mode:            c.mode,
	}
}

func (c *common) runSeed() uint32 {
	return rng.FromInt(c.seed)
}

func (c *common) load() (*pattern.Pattern, error) {
	if c.debug {
		debug.EnableWriter(os.Stderr)
	}
	if c.in == "" {
		return pattern.New(c.tempo, c.runSeed()), nil
	}
	data, err := os.ReadFile(c.in)
	if err != nil {
		return nil, err
	}
	return pattern.UnmarshalRecord(data)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type report struct {
	Seed        uint32            `json:"seed"`
	Candidates  []candidateReport `json:"candidates"`
	Critique    []critique.Item   `json:"critique"`
	UnknownTags []string          `json:"unknownTags"`
	Biases      style.Biases      `json:"biases"`
	Metrics     critique.Metrics  `json:"metrics"`
}

type candidateReport struct {
	ID       string          `json:"id"`
	Strategy string          `json:"strategy"`
	Label    string          `json:"label"`
	Score    critique.Score  `json:"score"`
	Ops      json.RawMessage `json:"ops"`
}

func newReport(seed uint32, out pipeline.Output) (report, error) {
	r := report{
		Seed:        seed,
		Critique:    out.CritiqueItems,
		UnknownTags: out.UnknownTags,
		Biases:      out.Biases,
		Metrics:     out.Metrics,
	}
	for _, c := range out.ScoredCandidates {
		ops, err := patch.MarshalOps(c.Ops)
		if err != nil {
			return report{}, fmt.Errorf("candidate %s: %w", c.ID, err)
		}
		r.Candidates = append(r.Candidates, candidateReport{
			ID:       c.ID,
			Strategy: c.Strategy.String(),
			Label:    c.Label,
			Score:    c.Score,
			Ops:      ops,
		})
	}
	return r, nil
}

func runCmd(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var c common
	c.register(fs)
	asJSON := fs.Bool("json", false, "print the full report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := c.load()
	if err != nil {
		return err
	}
	seed := c.runSeed()
	out := pipeline.Run(pipeline.Input{Seed: seed, Pattern: p, Tags: c.tags()})

	if *asJSON {
		r, err := newReport(seed, out)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	m := out.Metrics
	fmt.Fprintf(w, "collision %.2f  harsh %.2f  anchor %.2f  density %.2f\n",
		m.CollisionRiskScore, m.HarshnessRisk, m.AnchorClarity, m.MeanDensity())
	for i, sc := range out.ScoredCandidates {
		fmt.Fprintf(w, "%d. %s  %-22s score %.4f\n", i+1, sc.ID, sc.Label, sc.Score.Score)
		for _, op := range sc.Ops {
			fmt.Fprintf(w, "     %s\n", patch.Describe(op))
		}
	}
	for _, it := range out.CritiqueItems {
		fmt.Fprintf(w, "[%s] %s: %s\n", it.Severity, it.Code, it.Message)
	}
	return nil
}

func exportCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var c common
	c.register(fs)
	format := fs.String("format", "json", "json or smf")
	outPath := fs.String("out", "", "output file (default stdout)")
	accept := fs.Int("accept", 0, "apply candidate N (1-based) of a run first, 0 for none")
	grooveID := fs.String("groove", "", "apply a groove template: "+strings.Join(groove.TemplateIDs(), ", "))
	amount := fs.Float64("amount", 1, "groove amount 0-1")
	bars := fs.Int("bars", 0, "bars to render for smf (default: the pattern's bar count)")
	kit := fs.String("kit", "gm", "drum kit: "+strings.Join(midi.KitNames(), ", "))
	channel := fs.Int("channel", 10, "MIDI channel 1-16")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := c.load()
	if err != nil {
		return err
	}
	if *accept > 0 {
		out := pipeline.Run(pipeline.Input{Seed: c.runSeed(), Pattern: p, Tags: c.tags()})
		if *accept > len(out.ScoredCandidates) {
			return fmt.Errorf("run produced %d candidate(s), cannot accept %d", len(out.ScoredCandidates), *accept)
		}
		res := patch.Apply(p, out.ScoredCandidates[*accept-1].Ops)
		p = res.Next.WithVariation(p.VariationIndex + 1)
	}
	if *grooveID != "" {
		ops := groove.Apply(p, groove.Settings{TempoBPM: p.TempoBPM, SwingPct: p.SwingPct, TemplateID: *grooveID, Amount: *amount})
		_, id := groove.Lookup(*grooveID)
		p = patch.Apply(p, ops).Next.WithGroove(id, *amount)
	}

	var buf bytes.Buffer
	switch *format {
	case "json":
		data, err := prettyRecord(p)
		if err != nil {
			return err
		}
		buf.Write(data)
	case "smf", "mid", "midi":
		if err := midi.WriteSMF(&buf, p, midi.SMFOptions{Kit: *kit, Channel: *channel, Bars: *bars}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	return writeOut(*outPath, buf.Bytes(), stdout)
}

// applyCmd folds an ops list (the "ops" array of a run report) into a
// pattern. Rejections are listed on stderr and can be saved for editing.
func applyCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	var c common
	c.register(fs)
	opsPath := fs.String("ops", "-", "ops JSON file, - for stdin")
	outPath := fs.String("out", "", "output file (default stdout)")
	rejectedPath := fs.String("rejected", "", "write rejected ops to this file")
	strict := fs.Bool("strict", false, "fail without writing if any op is rejected")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := c.load()
	if err != nil {
		return err
	}
	var data []byte
	if *opsPath == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(*opsPath)
	}
	if err != nil {
		return err
	}
	ops, err := patch.UnmarshalOps(data)
	if err != nil {
		return err
	}

	res := patch.Apply(p, ops)
	for _, rj := range res.Rejected {
		fmt.Fprintf(stderr, "rejected %s: %s\n", patch.Describe(rj.Op), rj.Reason)
	}
	if rejected := res.RejectedOps(); len(rejected) > 0 {
		if *rejectedPath != "" {
			data, err := patch.MarshalOps(rejected)
			if err != nil {
				return err
			}
			if err := os.WriteFile(*rejectedPath, data, 0644); err != nil {
				return err
			}
		}
		if *strict {
			return fmt.Errorf("%d of %d op(s) rejected", len(rejected), len(ops))
		}
	}

	data, err = prettyRecord(res.Next)
	if err != nil {
		return err
	}
	return writeOut(*outPath, data, stdout)
}

func prettyRecord(p *pattern.Pattern) ([]byte, error) {
	data, err := pattern.MarshalRecord(p)
	if err != nil {
		return nil, err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return nil, err
	}
	pretty.WriteByte('\n')
	return pretty.Bytes(), nil
}

func writeOut(path string, data []byte, stdout io.Writer) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func portsCmd(w io.Writer) error {
	ins, err := midi.InPorts()
	if err != nil {
		return fmt.Errorf("%w (fix: sudo killall coreaudiod midiserver)", err)
	}
	outs, err := midi.OutPorts()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "=== MIDI Input Ports ===")
	for i, p := range ins {
		fmt.Fprintf(w, "  %d: %s\n", i, p)
	}
	fmt.Fprintln(w, "\n=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Fprintf(w, "  %d: %s\n", i, p)
	}
	return nil
}

func playCmd(args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	var c common
	c.register(fs)
	port := fs.String("port", "", "output port (substring match, default first port)")
	bars := fs.Int("bars", 0, "bars to play (default: the pattern's bar count)")
	kit := fs.String("kit", "gm", "drum kit")
	channel := fs.Int("channel", 10, "MIDI channel 1-16")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := c.load()
	if err != nil {
		return err
	}
	if *bars > 0 {
		p = p.WithBars(*bars)
	}

	name := *port
	if name == "" {
		outs, err := midi.OutPorts()
		if err != nil {
			return err
		}
		if len(outs) == 0 {
			return midi.ErrPortNotFound
		}
		name = outs[0]
	}
	send, opened, err := midi.OpenSender(name)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	clock := scheduler.WallClock()
	out := midi.NewOutput(send, clock, midi.OutputOptions{Kit: *kit, Channel: *channel})
	go out.Run(ctx)

	m := sequencer.NewManager(sequencer.Options{Clock: clock, Tags: c.tags()})
	if err := restorePattern(m, p, c.tags()); err != nil {
		return err
	}
	m.SetVoice(out)

	log.Printf("playing %d bar(s) at %.0f bpm on %s", p.Bars, p.TempoBPM, opened)
	if !m.Play() {
		return fmt.Errorf("scheduler refused to start")
	}
	for m.Playing() {
		select {
		case <-ctx.Done():
			m.Stop()
		case <-m.UpdateChan:
		case <-time.After(100 * time.Millisecond):
		}
	}

	// let queued note offs drain
	deadline := time.Now().Add(time.Second)
	for out.Pending() > 0 && time.Now().Before(deadline) && ctx.Err() == nil {
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("sent %d message(s), %d trigger(s)", out.Sent(), m.Hits())
	return nil
}

// restorePattern loads p into a fresh manager as a one-shot session.
func restorePattern(m *sequencer.Manager, p *pattern.Pattern, tags style.Tags) error {
	sess, err := sequencer.NewSession(p, tags, false, p.Seed)
	if err != nil {
		return err
	}
	return m.Restore(sess)
}
