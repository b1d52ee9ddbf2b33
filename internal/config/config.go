// Package config loads gard.toml, the per-project settings file.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"gard/internal/ledger"
	"gard/internal/sched"
	"gard/internal/trace"
)

// FileName is the settings file looked up from the source directory upwards.
const FileName = "gard.toml"

// Config mirrors gard.toml.
type Config struct {
	// Path is the file the config was read from; empty for defaults.
	Path      string          `toml:"-"`
	Run       RunConfig       `toml:"run"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Trace     TraceConfig     `toml:"trace"`
}

type RunConfig struct {
	// Main is the entry file used by `gard run` without arguments.
	Main string `toml:"main"`
}

type SchedulerConfig struct {
	Clock           string `toml:"clock"`
	DefaultDeadline string `toml:"default_deadline"`
	Fuzz            bool   `toml:"fuzz"`
	Seed            uint64 `toml:"seed"`
}

type LedgerConfig struct {
	BlockSize     int               `toml:"block_size"`
	Store         string            `toml:"store"`
	Path          string            `toml:"path"`
	DefaultSender string            `toml:"default_sender"`
	Genesis       map[string]string `toml:"genesis"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// Default returns the settings used when no gard.toml exists.
func Default() Config {
	return Config{
		Scheduler: SchedulerConfig{Clock: "virtual"},
		Ledger: LedgerConfig{
			BlockSize:     16,
			Store:         "memory",
			Path:          filepath.Join(".gard", "chain"),
			DefaultSender: "main",
		},
		Trace: TraceConfig{Level: "off", Format: "text"},
	}
}

// Find walks up from startDir to locate gard.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads a gard.toml file on top of Default. Unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover finds gard.toml above startDir and loads it; without one the
// defaults are returned.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Root is the directory holding the config file, or "." for defaults.
func (c Config) Root() string {
	if c.Path == "" {
		return "."
	}
	return filepath.Dir(c.Path)
}

// Validate checks enumerated values. Load calls it; CLI code calls it again
// after applying flag overrides.
func (c Config) Validate() error {
	if _, err := c.clock(); err != nil {
		return err
	}
	if _, err := c.deadline(); err != nil {
		return err
	}
	switch c.Ledger.Store {
	case "memory", "leveldb":
	default:
		return fmt.Errorf("invalid ledger.store: %q (expected: memory|leveldb)", c.Ledger.Store)
	}
	if c.Ledger.BlockSize <= 0 {
		return fmt.Errorf("ledger.block_size must be positive")
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return err
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		return err
	}
	if _, err := c.GenesisBalances(); err != nil {
		return err
	}
	return nil
}

func (c Config) clock() (sched.ClockMode, error) {
	switch strings.ToLower(c.Scheduler.Clock) {
	case "", "virtual":
		return sched.ClockVirtual, nil
	case "real":
		return sched.ClockReal, nil
	default:
		return sched.ClockVirtual, fmt.Errorf("invalid scheduler.clock: %q (expected: virtual|real)", c.Scheduler.Clock)
	}
}

func (c Config) deadline() (time.Duration, error) {
	if c.Scheduler.DefaultDeadline == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Scheduler.DefaultDeadline)
	if err != nil {
		return 0, fmt.Errorf("invalid scheduler.default_deadline: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("scheduler.default_deadline must not be negative")
	}
	return d, nil
}

// SchedOptions converts the [scheduler] section.
func (c Config) SchedOptions(tracer trace.Tracer) (sched.Options, error) {
	clock, err := c.clock()
	if err != nil {
		return sched.Options{}, err
	}
	d, err := c.deadline()
	if err != nil {
		return sched.Options{}, err
	}
	return sched.Options{
		Clock:           clock,
		DefaultDeadline: d,
		Fuzz:            c.Scheduler.Fuzz,
		Seed:            c.Scheduler.Seed,
		Tracer:          tracer,
	}, nil
}

// TraceOptions converts the [trace] section; output paths are relative to
// the config root.
func (c Config) TraceOptions() (trace.Config, error) {
	lvl, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return trace.Config{}, err
	}
	out := c.Trace.Output
	if out != "" && out != "-" && !filepath.IsAbs(out) {
		out = filepath.Join(c.Root(), out)
	}
	return trace.Config{Level: lvl, Format: format, OutputPath: out}, nil
}

// GenesisBalances parses [ledger.genesis]; amounts are decimal strings so
// they are not limited to 64 bits.
func (c Config) GenesisBalances() (map[string]*big.Int, error) {
	if len(c.Ledger.Genesis) == 0 {
		return nil, nil
	}
	out := make(map[string]*big.Int, len(c.Ledger.Genesis))
	for addr, s := range c.Ledger.Genesis {
		n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("invalid genesis balance for %s: %q", addr, s)
		}
		out[addr] = n
	}
	return out, nil
}

// StorePath resolves ledger.path against the config root.
func (c Config) StorePath() string {
	if filepath.IsAbs(c.Ledger.Path) {
		return c.Ledger.Path
	}
	return filepath.Join(c.Root(), c.Ledger.Path)
}

// OpenStore opens the configured block store.
func (c Config) OpenStore() (ledger.Store, error) {
	switch c.Ledger.Store {
	case "", "memory":
		return ledger.NewMemoryStore(), nil
	case "leveldb":
		s, err := ledger.OpenLevelStore(c.StorePath())
		if err != nil {
			return nil, fmt.Errorf("open ledger store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("invalid ledger.store: %q", c.Ledger.Store)
	}
}

// LedgerOptions opens the store and fills ledger.Options.
func (c Config) LedgerOptions(tracer trace.Tracer) (ledger.Options, error) {
	store, err := c.OpenStore()
	if err != nil {
		return ledger.Options{}, err
	}
	return ledger.Options{BlockSize: c.Ledger.BlockSize, Store: store, Tracer: tracer}, nil
}
