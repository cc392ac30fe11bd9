package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-groove/style"
)

// TransportConfig is the session-start transport.
type TransportConfig struct {
	Tempo    float64 `json:"tempo"`
	Seed     uint32  `json:"seed"`
	Loop     bool    `json:"loop"`
	LoopBars int     `json:"loopBars"`
	SwingPct float64 `json:"swingPct"`
}

// SchedulerConfig tunes the lookahead clock, in milliseconds.
type SchedulerConfig struct {
	LookaheadMs     int `json:"lookaheadMs"`
	ScheduleAheadMs int `json:"scheduleAheadMs"`
	StartDelayMs    int `json:"startDelayMs"`
}

// OutputConfig defines the drum machine MIDI output
type OutputConfig struct {
	PortName  string `json:"portName,omitempty"`
	InputPort string `json:"inputPort,omitempty"`
	Channel   int    `json:"channel"`
	Kit       string `json:"kit"`
	GateMs    int    `json:"gateMs"`
}

// StyleConfig holds the default generation tags.
type StyleConfig struct {
	City         string   `json:"city,omitempty"`
	Influences   []string `json:"influences,omitempty"`
	ArtistLenses []string `json:"artistLenses,omitempty"`
	Mode         string   `json:"mode,omitempty"`
}

// GrooveConfig selects the default timing template.
type GrooveConfig struct {
	Template string  `json:"template"`
	Amount   float64 `json:"amount"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	PalettePath string `json:"palettePath,omitempty"`
	Project     string `json:"project,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Transport TransportConfig `json:"transport"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Output    OutputConfig    `json:"output"`
	Style     StyleConfig     `json:"style"`
	Groove    GrooveConfig    `json:"groove"`
	UI        UIConfig        `json:"ui"`
	Debug     bool            `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			Tempo:    120,
			Seed:     42,
			Loop:     true,
			LoopBars: 1,
			SwingPct: 50,
		},
		Scheduler: SchedulerConfig{
			LookaheadMs:     25,
			ScheduleAheadMs: 120,
			StartDelayMs:    50,
		},
		Output: OutputConfig{
			Channel: 10,
			Kit:     "gm",
			GateMs:  30,
		},
		Style: StyleConfig{
			Mode: "CLEAN_FUNCTIONAL",
		},
		Groove: GrooveConfig{
			Template: "straight",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-groove"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads path. Fields missing from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Validate()
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// UnknownStyleTags lists the configured style tags that no table knows.
// They are kept as-is and contribute nothing when resolved.
func (c *Config) UnknownStyleTags() []string {
	tags := []string{c.Style.City, c.Style.Mode}
	tags = append(tags, c.Style.Influences...)
	tags = append(tags, c.Style.ArtistLenses...)
	var out []string
	for _, tag := range tags {
		if strings.TrimSpace(tag) != "" && !style.Known(tag) {
			out = append(out, tag)
		}
	}
	return out
}

// Validate pulls out-of-range values back to something playable.
func (c *Config) Validate() {
	d := DefaultConfig()
	t := &c.Transport
	if t.Tempo < 20 || t.Tempo > 300 {
		t.Tempo = d.Transport.Tempo
	}
	if t.LoopBars < 1 {
		t.LoopBars = 1
	}
	if t.SwingPct < 0 || t.SwingPct > 100 {
		t.SwingPct = d.Transport.SwingPct
	}

	s := &c.Scheduler
	if s.LookaheadMs <= 0 {
		s.LookaheadMs = d.Scheduler.LookaheadMs
	}
	if s.ScheduleAheadMs < s.LookaheadMs {
		s.ScheduleAheadMs = max(d.Scheduler.ScheduleAheadMs, s.LookaheadMs)
	}
	if s.StartDelayMs < 0 {
		s.StartDelayMs = d.Scheduler.StartDelayMs
	}

	if c.Output.Channel < 1 || c.Output.Channel > 16 {
		c.Output.Channel = d.Output.Channel
	}
	if c.Output.Kit == "" {
		c.Output.Kit = d.Output.Kit
	}
	if c.Output.GateMs <= 0 {
		c.Output.GateMs = d.Output.GateMs
	}

	if c.Groove.Template == "" {
		c.Groove.Template = d.Groove.Template
	}
	if c.Groove.Amount < 0 {
		c.Groove.Amount = 0
	} else if c.Groove.Amount > 1 {
		c.Groove.Amount = 1
	}
}
