package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/adsorb/internal/config"
	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/experiment"
	"github.com/san-kum/adsorb/internal/sim"
)

// Scenario defines a scripted sequence of binding points
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset or a config file and overrides single
// fields. Parameters are merged into the base parameters.
type ScenarioStep struct {
	Model      string         `yaml:"model"`
	Preset     string         `yaml:"preset"`
	Config     string         `yaml:"config"`
	Solver     string         `yaml:"solver"`
	Duration   float64        `yaml:"duration"`
	Dt         float64        `yaml:"dt"`
	Time       float64        `yaml:"time"`
	Liquid     []float64      `yaml:"liquid"`
	Bound      []float64      `yaml:"bound"`
	Parameters map[string]any `yaml:"parameters"`
	SaveAs     string         `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}

	return &scenario, nil
}

// Resolve builds the point configuration of a step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case s.Preset != "":
		cfg = config.GetPreset(s.Model, s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s/%s", s.Model, s.Preset)
		}
	default:
		return nil, fmt.Errorf("step needs a preset or a config file")
	}

	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.Time != 0 {
		cfg.Time = s.Time
	}
	if s.Liquid != nil {
		cfg.Liquid = append([]float64(nil), s.Liquid...)
	}
	if s.Bound != nil {
		cfg.Bound = append([]float64(nil), s.Bound...)
	}
	for k, v := range s.Parameters {
		cfg.Parameters[k] = v
	}
	return cfg, nil
}

// StepResult pairs a run with the configuration it was made from.
type StepResult struct {
	Name   string
	Config *config.Config
	Result *sim.Result
}

// RunScenario executes all steps in a scenario
func RunScenario(ctx context.Context, scenario *Scenario, log logrus.FieldLogger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		log.WithFields(logrus.Fields{"step": i + 1, "of": len(scenario.Steps), "model": cfg.Model}).Info("scenario: running step")

		solver := step.Solver
		if solver == "" {
			solver = "newton"
		}
		exp := experiment.New(cfg)
		exp.Log = log
		if err := exp.Setup(solver); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		name := step.SaveAs
		if name == "" {
			name = fmt.Sprintf("step%d", i+1)
		}
		results = append(results, StepResult{Name: name, Config: cfg, Result: result})
	}

	return results, nil
}

// MonteCarloConfig perturbs the liquid phase of a base point.
type MonteCarloConfig struct {
	Base *config.Config
	// Perturbation is the relative half width of the uniform perturbation.
	Perturbation float64
	NumTrials    int
	Seed         int64
}

// MonteCarloResult holds the outcome of one trial
type MonteCarloResult struct {
	TrialID    int
	Liquid     dynamo.State
	FinalState dynamo.State
	Converged  bool
	Err        error
}

// RunMonteCarlo executes trials with random liquid phases. A failed trial
// is recorded, not returned as an error.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, log logrus.FieldLogger) ([]MonteCarloResult, error) {
	if err := cfg.Base.Validate(); err != nil {
		return nil, err
	}
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for trial := 0; trial < cfg.NumTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		point := cfg.Base.Clone()
		for i, v := range point.Liquid {
			point.Liquid[i] = v * (1 + (rng.Float64()-0.5)*2*cfg.Perturbation)
		}

		exp := experiment.New(point)
		exp.Log = log
		r := MonteCarloResult{TrialID: trial, Liquid: dynamo.State(point.Liquid).Clone()}
		if err := exp.Setup("newton"); err != nil {
			return nil, err
		}
		result, err := exp.Run(ctx)
		r.Err = err
		r.Converged = err == nil
		if result != nil {
			r.FinalState = result.Final()
		}
		results = append(results, r)

		if (trial+1)%10 == 0 {
			log.WithField("trials", trial+1).Info("monte carlo: progress")
		}
	}

	return results, nil
}

// MonteCarloStats counts converged and failed trials.
func MonteCarloStats(results []MonteCarloResult) (converged int, failed int) {
	for _, r := range results {
		if r.Converged {
			converged++
		} else {
			failed++
		}
	}
	return
}
