// Package config loads the ewfit configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-spectro/internal/logging"
	"github.com/cwbudde/algo-spectro/measure/linefit"
	"github.com/cwbudde/algo-spectro/spectro/profile"
)

// Environment variables overriding file values.
const (
	EnvLogLevel = "EWFIT_LOG_LEVEL"
	EnvWorkers  = "EWFIT_WORKERS"
	EnvDB       = "EWFIT_DB"
)

var validate = validator.New()

// Config is the complete configuration.
type Config struct {
	Log     logging.Config `yaml:"log"`
	Fit     Fit            `yaml:"fit"`
	Batch   Batch          `yaml:"batch"`
	Store   Store          `yaml:"store"`
	Metrics Metrics        `yaml:"metrics"`
}

// Fit holds the per-line fit settings.
type Fit struct {
	Kind               string                `yaml:"kind" default:"gaussian" validate:"oneof=gaussian voigt lorentzian"`
	Strategy           string                `yaml:"strategy" default:"iterative" validate:"oneof=iterative mixture"`
	ContinuumOrder     int                   `yaml:"continuum_order" default:"-1" validate:"gte=-1"`
	Surrounding        float64               `yaml:"surrounding" default:"2" validate:"gt=0"`
	Oversample         int                   `yaml:"oversample" default:"4" validate:"gt=0"`
	WavelengthStep     float64               `yaml:"wavelength_step" validate:"gte=0"`
	MaxIterations      int                   `yaml:"max_iterations" validate:"gte=0"`
	XTol               float64               `yaml:"xtol" default:"1e-5" validate:"gt=0"`
	FTol               float64               `yaml:"ftol" default:"1e-5" validate:"gt=0"`
	LineDepthTolerance float64               `yaml:"line_depth_tolerance" default:"0.001" validate:"gt=0,lt=0.5"`
	DetectNearbyLines  bool                  `yaml:"detect_nearby_lines" default:"true"`
	MaskRounds         int                   `yaml:"mask_rounds" default:"3" validate:"gt=0"`
	WavelengthTol      float64               `yaml:"wavelength_tolerance" validate:"gte=0"`
	CentralWeighting   bool                  `yaml:"central_weighting"`
	ClipSigma          float64               `yaml:"clip_sigma" validate:"gte=0"`
	Constraints        map[string]Constraint `yaml:"constraints"`
}

// Constraint bounds one fitted parameter; a missing side is unbounded.
type Constraint struct {
	Lower *float64 `yaml:"lower"`
	Upper *float64 `yaml:"upper"`
}

// Batch configures the worker pool.
type Batch struct {
	// Workers is the number of concurrent fits; zero uses GOMAXPROCS.
	Workers int `yaml:"workers" validate:"gte=0"`
}

// Store configures the result database. An empty path disables it.
type Store struct {
	Path string `yaml:"path"`
}

// Metrics configures the Prometheus textfile export. An empty path
// disables it.
type Metrics struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration used without a file.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file. An empty path yields
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides values from the environment lookup function.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Batch.Workers = n
	}
	if v, ok := lookup(EnvDB); ok {
		c.Store.Path = v
	}
	return nil
}

// Validate checks every field against its validation tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", e.Namespace(), e.Tag(), e.Param()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// Options converts the fit settings to linefit options.
func (f Fit) Options() ([]linefit.Option, error) {
	kind, err := profile.ParseKind(f.Kind)
	if err != nil {
		return nil, err
	}
	strategy, err := linefit.ParseStrategy(f.Strategy)
	if err != nil {
		return nil, err
	}

	opts := []linefit.Option{
		linefit.WithKind(kind),
		linefit.WithStrategy(strategy),
		linefit.WithSurrounding(f.Surrounding),
		linefit.WithOversample(f.Oversample),
		linefit.WithMaxIterations(f.MaxIterations),
		linefit.WithTolerance(f.XTol, f.FTol),
		linefit.WithLineDepthTolerance(f.LineDepthTolerance),
		linefit.WithDetectNearbyLines(f.DetectNearbyLines),
		linefit.WithMaskRounds(f.MaskRounds),
	}
	if f.ContinuumOrder >= 0 {
		opts = append(opts, linefit.WithContinuumOrder(f.ContinuumOrder))
	}
	if f.WavelengthStep > 0 {
		opts = append(opts, linefit.WithWavelengthStep(f.WavelengthStep))
	}
	if f.WavelengthTol > 0 {
		opts = append(opts, linefit.WithWavelengthTolerance(f.WavelengthTol))
	}
	if f.CentralWeighting {
		opts = append(opts, linefit.WithCentralWeighting(true))
	}
	if f.ClipSigma > 0 {
		opts = append(opts, linefit.WithClipSigma(f.ClipSigma))
	}

	names := make([]string, 0, len(f.Constraints))
	for name := range f.Constraints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := f.Constraints[name]
		opts = append(opts, linefit.WithConstraint(name, c.Lower, c.Upper))
	}
	return opts, nil
}
