package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-groove/config"
	"go-groove/debug"
	"go-groove/midi"
	"go-groove/scheduler"
	"go-groove/sequencer"
	"go-groove/style"
	"go-groove/theme"
	"go-groove/tui"
)

func main() {
	cfgPath := flag.String("config", "", "config file (default ~/.config/go-groove/config.json)")
	project := flag.String("project", "", "project to save to and load from")
	port := flag.String("port", "", "MIDI output port (substring match)")
	dbg := flag.Bool("debug", false, "write a debug log to ~/.config/go-groove/debug.log")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	for _, tag := range cfg.UnknownStyleTags() {
		fmt.Printf("warning: unknown style tag %q in config\n", tag)
	}
	if *port != "" {
		cfg.Output.PortName = *port
	}
	if *project != "" {
		cfg.UI.Project = *project
	}
	if cfg.Debug || *dbg {
		if err := debug.Enable(""); err != nil {
			fmt.Printf("debug log disabled: %v\n", err)
		}
		defer debug.Disable()
	}

	palette, err := theme.LoadOrDefault(cfg.UI.PalettePath)
	if err != nil {
		debug.Log("ui", "palette: %v, using default", err)
	}
	th := theme.New(palette)

	clock := scheduler.WallClock()
	manager := sequencer.NewManager(sequencer.Options{
		Tempo:    cfg.Transport.Tempo,
		Seed:     cfg.Transport.Seed,
		Loop:     cfg.Transport.Loop,
		LoopBars: cfg.Transport.LoopBars,
		SwingPct: cfg.Transport.SwingPct,
		Tags: style.Tags{
			CityProfile:     cfg.Style.City,
			InfluenceVector: cfg.Style.Influences,
			ArtistLenses:    cfg.Style.ArtistLenses,
			Mode:            cfg.Style.Mode,
		},
		Scheduler: scheduler.Options{
			Interval:   time.Duration(cfg.Scheduler.LookaheadMs) * time.Millisecond,
			Window:     time.Duration(cfg.Scheduler.ScheduleAheadMs) * time.Millisecond,
			StartDelay: time.Duration(cfg.Scheduler.StartDelayMs) * time.Millisecond,
		},
		Clock: clock,
	})

	store, err := sequencer.DefaultStore()
	if err != nil {
		debug.Log("project", "no project store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hot-plug: the output attaches whenever the configured port appears.
	ports := midi.NewWatcher()
	go ports.Run(ctx)

	link := &outputLink{
		ctx:     ctx,
		manager: manager,
		clock:   clock,
		want:    cfg.Output.PortName,
		opts: midi.OutputOptions{
			Kit:     cfg.Output.Kit,
			Channel: cfg.Output.Channel,
			Gate:    time.Duration(cfg.Output.GateMs) * time.Millisecond,
		},
	}
	defer link.close()

	if cfg.Output.InputPort != "" {
		in := midi.NewInput(midi.GetKit(cfg.Output.Kit))
		if err := in.Listen(cfg.Output.InputPort); err != nil {
			fmt.Printf("input: %v\n", err)
		} else {
			defer in.Close()
			go manager.ListenInput(ctx, in.Hits())
		}
	}

	fmt.Println("go-groove")
	fmt.Println("Connect MIDI devices any time - they'll be detected automatically")
	fmt.Println("")

	m := tui.NewModel(manager, ports, store, th)
	if cfg.UI.Project != "" {
		m.Project = cfg.UI.Project
	}
	if cfg.Groove.Amount > 0 {
		m.GrooveAmount = cfg.Groove.Amount
	}
	m.SetGrooveTemplate(cfg.Groove.Template)
	m.OnPort = link.handle

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
