package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/params"
)

const (
	DefaultDt        = 0.1
	DefaultDuration  = 10.0
	DefaultTolerance = 1e-10
)

// Config describes one binding point: the model, its discretization, the
// liquid phase it sees and the parameters it is configured with.
type Config struct {
	Model  string `yaml:"model" toml:"model"`
	NComp  int    `yaml:"ncomp" toml:"ncomp"`
	NBound []int  `yaml:"nbound" toml:"nbound"`
	Unit   int    `yaml:"unit" toml:"unit"`
	// Kinetic is a bool or one flag per bound state. It is used as
	// IS_KINETIC when Parameters does not set that key.
	Kinetic  any             `yaml:"kinetic,omitempty" toml:"kinetic,omitempty"`
	Section  int             `yaml:"section" toml:"section"`
	Time     float64         `yaml:"time" toml:"time"`
	Position dynamo.Position `yaml:"position" toml:"position"`
	// Liquid is the particle liquid phase, salt first.
	Liquid []float64 `yaml:"liquid" toml:"liquid"`
	// Bound is the initial bound phase.
	Bound      []float64      `yaml:"bound" toml:"bound"`
	Dt         float64        `yaml:"dt" toml:"dt"`
	Duration   float64        `yaml:"duration" toml:"duration"`
	Tolerance  float64        `yaml:"tolerance" toml:"tolerance"`
	UseAD      bool           `yaml:"use_ad" toml:"use_ad"`
	Parameters map[string]any `yaml:"parameters" toml:"parameters"`
	// External holds driving signal expressions, indexed by EXTFUN.
	External []string `yaml:"external,omitempty" toml:"external,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "STERIC_MASS_ACTION",
		NComp:      2,
		NBound:     []int{1, 1},
		Kinetic:    true,
		Liquid:     []float64{100, 1},
		Bound:      []float64{0, 0},
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Tolerance:  DefaultTolerance,
		Parameters: map[string]any{},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a YAML or TOML file, chosen by extension, over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Kinetic = nil
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Parameters == nil {
		cfg.Parameters = map[string]any{}
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if isTOML(path) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return toml.NewEncoder(f).Encode(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields that are not checked by the binding model.
func (c *Config) Validate() error {
	if c.Model == "" {
		return dynamo.Invalidf("model is empty")
	}
	if c.NComp <= 0 {
		return dynamo.Invalidf("ncomp must be positive, got %d", c.NComp)
	}
	if len(c.NBound) != c.NComp {
		return dynamo.Invalidf("nbound has %d entries, want %d", len(c.NBound), c.NComp)
	}
	if len(c.Liquid) != c.NComp {
		return dynamo.Invalidf("liquid has %d entries, want %d", len(c.Liquid), c.NComp)
	}
	n := 0
	for _, b := range c.NBound {
		n += b
	}
	if len(c.Bound) != n {
		return dynamo.Invalidf("bound has %d entries, want %d", len(c.Bound), n)
	}
	if c.Dt <= 0 {
		return dynamo.Invalidf("dt must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		return dynamo.Invalidf("duration must be positive, got %g", c.Duration)
	}
	if c.Tolerance <= 0 {
		return dynamo.Invalidf("tolerance must be positive, got %g", c.Tolerance)
	}
	return nil
}

// Source returns the parameter provider the model is configured from.
func (c *Config) Source() params.MapProvider {
	src := make(params.MapProvider, len(c.Parameters)+1)
	for k, v := range c.Parameters {
		src[k] = v
	}
	if _, ok := src["IS_KINETIC"]; !ok && c.Kinetic != nil {
		src["IS_KINETIC"] = c.Kinetic
	}
	return src
}

// ExternalFunctions compiles the driving signal expressions.
func (c *Config) ExternalFunctions() ([]params.ExternalFunction, error) {
	out := make([]params.ExternalFunction, 0, len(c.External))
	for i, expr := range c.External {
		f, err := params.NewExprFunction(expr)
		if err != nil {
			return nil, fmt.Errorf("external[%d]: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func (c *Config) Point() dynamo.Point {
	return dynamo.Point{Time: c.Time, Section: c.Section, Pos: c.Position}
}

// Clone returns a deep copy. Nested parameter arrays are copied as well.
func (c *Config) Clone() *Config {
	out := *c
	out.NBound = append([]int(nil), c.NBound...)
	out.Liquid = append([]float64(nil), c.Liquid...)
	out.Bound = append([]float64(nil), c.Bound...)
	out.External = append([]string(nil), c.External...)
	out.Kinetic = cloneValue(c.Kinetic)
	out.Parameters = make(map[string]any, len(c.Parameters))
	for k, v := range c.Parameters {
		out.Parameters[k] = cloneValue(v)
	}
	return &out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		return append([]any(nil), x...)
	case []float64:
		return append([]float64(nil), x...)
	case []int:
		return append([]int(nil), x...)
	case []bool:
		return append([]bool(nil), x...)
	}
	return v
}
