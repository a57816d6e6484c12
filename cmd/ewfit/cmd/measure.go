package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-spectro/internal/metrics"
	"github.com/cwbudde/algo-spectro/measure/batch"
	"github.com/cwbudde/algo-spectro/measure/linefit"
	"github.com/cwbudde/algo-spectro/spectro/spectrum"
	"github.com/cwbudde/algo-spectro/store/sqlite"
	"github.com/cwbudde/algo-spectro/synth/synthtest"
)

type measureOptions struct {
	root *rootOptions

	spectrumPath string
	linesPath    string
	lineFormat   string
	output       string

	strategy    string
	kind        string
	order       int
	surrounding float64
	tolerance   float64
	central     bool
	clipSigma   float64
	workers     int
	dbPath      string
	textfile    string

	stubFWHM  float64
	stubDepth float64

	teff, logg, feh, vt float64
}

func newMeasureCmd(root *rootOptions) *cobra.Command {
	o := &measureOptions{root: root}

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Fit every transition of a line list",
		Long: `Fit every transition of a line list against an ASCII spectrum with
columns dispersion, flux and optional variance.

Line lists are YAML sequences of transitions or whitespace columns
"wavelength species [excitation_potential [loggf [vdW]]]".

Blended transitions need a synthesiser. --stub-fwhm enables a Gaussian
stand-in that renders every blending line with the given width, which is
useful for dry runs of a line list.`,
		Args: cobra.NoArgs,
		RunE: o.run,
	}

	f := cmd.Flags()
	f.StringVarP(&o.spectrumPath, "spectrum", "s", "", "ASCII spectrum file (required)")
	f.StringVarP(&o.linesPath, "lines", "l", "", "line list file (required)")
	f.StringVar(&o.lineFormat, "line-format", formatAuto, "line list format (auto, yaml, columns)")
	f.StringVarP(&o.output, "output", "o", "table", "output format (table, json)")
	f.StringVar(&o.strategy, "strategy", "", "fit strategy (iterative, mixture)")
	f.StringVar(&o.kind, "kind", "", "profile kind (gaussian, voigt, lorentzian)")
	f.IntVar(&o.order, "order", 0, "polynomial continuum order")
	f.Float64Var(&o.surrounding, "surrounding", 0, "half width of the fitted window in Angstrom")
	f.Float64Var(&o.tolerance, "wavelength-tolerance", 0, "let the line centre move by this many Angstrom")
	f.BoolVar(&o.central, "central-weighting", false, "down-weight pixels far from the line centre")
	f.Float64Var(&o.clipSigma, "clip-sigma", 0, "refit once without pixels this many sigma off the model")
	f.IntVarP(&o.workers, "workers", "w", 0, "concurrent fits (0 uses all CPUs)")
	f.StringVar(&o.dbPath, "db", "", "SQLite database to store results in")
	f.StringVar(&o.textfile, "metrics-textfile", "", "write Prometheus metrics to this file")
	f.Float64Var(&o.stubFWHM, "stub-fwhm", 0, "FWHM of the Gaussian stand-in synthesiser for blends")
	f.Float64Var(&o.stubDepth, "stub-depth", 0.5, "line depth of the Gaussian stand-in synthesiser")
	f.Float64Var(&o.teff, "teff", 0, "effective temperature for blending synthesis")
	f.Float64Var(&o.logg, "logg", 0, "surface gravity for blending synthesis")
	f.Float64Var(&o.feh, "feh", 0, "metallicity for blending synthesis")
	f.Float64Var(&o.vt, "vt", 0, "microturbulence for blending synthesis")

	_ = cmd.MarkFlagRequired("spectrum")
	_ = cmd.MarkFlagRequired("lines")
	return cmd
}

// applyFlags copies explicitly set flags over the configuration.
func (o *measureOptions) applyFlags(cmd *cobra.Command) error {
	cfg := o.root.cfg
	f := cmd.Flags()
	if f.Changed("strategy") {
		cfg.Fit.Strategy = o.strategy
	}
	if f.Changed("kind") {
		cfg.Fit.Kind = o.kind
	}
	if f.Changed("order") {
		cfg.Fit.ContinuumOrder = o.order
	}
	if f.Changed("surrounding") {
		cfg.Fit.Surrounding = o.surrounding
	}
	if f.Changed("wavelength-tolerance") {
		cfg.Fit.WavelengthTol = o.tolerance
	}
	if f.Changed("central-weighting") {
		cfg.Fit.CentralWeighting = o.central
	}
	if f.Changed("clip-sigma") {
		cfg.Fit.ClipSigma = o.clipSigma
	}
	if f.Changed("workers") {
		cfg.Batch.Workers = o.workers
	}
	if f.Changed("db") {
		cfg.Store.Path = o.dbPath
	}
	if f.Changed("metrics-textfile") {
		cfg.Metrics.Textfile = o.textfile
	}
	switch o.output {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format %q (available: table, json)", o.output)
	}
	return cfg.Validate()
}

func (o *measureOptions) stellarTheta(cmd *cobra.Command) linefit.Theta {
	theta := linefit.Theta{}
	set := func(flag, name string, v float64) {
		if cmd.Flags().Changed(flag) {
			theta[name] = v
		}
	}
	set("teff", linefit.ParamEffectiveTemperature, o.teff)
	set("logg", linefit.ParamSurfaceGravity, o.logg)
	set("feh", linefit.ParamMetallicity, o.feh)
	set("vt", linefit.ParamMicroturbulence, o.vt)
	return theta
}

func readSpectrum(path string) (*spectrum.Spectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spectrum: %w", err)
	}
	defer f.Close()
	return spectrum.ReadASCII(f)
}

func readTransitions(path, format string) ([]*linefit.AtomicTransition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open line list: %w", err)
	}
	defer f.Close()

	specs, err := readLineList(f, path, format)
	if err != nil {
		return nil, err
	}
	out := make([]*linefit.AtomicTransition, len(specs))
	for i, spec := range specs {
		if out[i], err = linefit.NewTransition(spec); err != nil {
			return nil, fmt.Errorf("line list entry %d: %w", i+1, err)
		}
	}
	return out, nil
}

func (o *measureOptions) run(cmd *cobra.Command, _ []string) error {
	if err := o.applyFlags(cmd); err != nil {
		return err
	}
	cfg := o.root.cfg
	log := o.root.logger

	data, err := readSpectrum(o.spectrumPath)
	if err != nil {
		return err
	}
	transitions, err := readTransitions(o.linesPath, o.lineFormat)
	if err != nil {
		return err
	}

	opts, err := cfg.Fit.Options()
	if err != nil {
		return err
	}
	opts = append(opts, linefit.WithLogger(log))
	if theta := o.stellarTheta(cmd); len(theta) > 0 {
		opts = append(opts, linefit.WithInitialTheta(theta))
	}
	if o.stubFWHM > 0 {
		opts = append(opts, linefit.WithSynthesizer(&synthtest.Gaussian{FWHM: o.stubFWHM, Depth: o.stubDepth}))
	}
	var recorder *metrics.Recorder
	if cfg.Metrics.Textfile != "" {
		recorder = metrics.New()
		opts = append(opts, linefit.WithMetrics(recorder))
	}

	jobs := make([]batch.Job, len(transitions))
	for i, tr := range transitions {
		jobs[i] = batch.Job{Transition: tr}
	}
	fitter := &batch.Fitter{Workers: cfg.Batch.Workers, Options: opts, Logger: log}
	outcomes, err := fitter.Run(cmd.Context(), data, jobs)
	if err != nil {
		return err
	}

	sum := batch.Summarize(outcomes)
	log.Info().Int("fitted", sum.Fitted).Int("failed", sum.Failed).Int("converged", sum.Converged).Msg("line list measured")

	if cfg.Store.Path != "" {
		if err := saveOutcomes(cfg.Store.Path, outcomes); err != nil {
			return err
		}
		log.Info().Str("db", cfg.Store.Path).Int("fits", sum.Fitted).Msg("results stored")
	}
	if recorder != nil {
		if err := recorder.WriteToTextfile(cfg.Metrics.Textfile); err != nil {
			return err
		}
	}

	if o.output == "json" {
		return writeOutcomesJSON(cmd.OutOrStdout(), outcomes)
	}
	return writeOutcomesTable(cmd.OutOrStdout(), outcomes)
}

func saveOutcomes(path string, outcomes []batch.Outcome) error {
	store, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, out := range outcomes {
		if out.Err != nil {
			continue
		}
		if _, err := store.Save(out.Transition, out.Result); err != nil {
			return err
		}
	}
	return nil
}

func writeOutcomesTable(w io.Writer, outcomes []batch.Outcome) error {
	t := newTable(w, "Wavelength", "Species", "EW [mA]", "log(EW/lambda)", "Reduced chi2", "Converged", "Error")
	for _, out := range outcomes {
		tr := out.Transition
		if out.Err != nil {
			t.row(fmt.Sprintf("%.3f", tr.Wavelength()), tr.Species().String(), "-", "-", "-", "-", out.Err.Error())
			continue
		}
		rew, _ := tr.ReducedEquivalentWidth()
		t.row(
			fmt.Sprintf("%.3f", tr.Wavelength()),
			tr.Species().String(),
			fmt.Sprintf("%.2f", out.Result.EquivalentWidth),
			fmt.Sprintf("%.3f", rew),
			fmt.Sprintf("%.3f", out.Result.ReducedChiSquare),
			fmt.Sprint(out.Result.Diagnostics.Converged),
			"",
		)
	}
	return t.flush()
}

type outcomeJSON struct {
	Wavelength             float64              `json:"wavelength"`
	Species                string               `json:"species"`
	EquivalentWidth        *float64             `json:"equivalent_width,omitempty"`
	ReducedEquivalentWidth *float64             `json:"reduced_equivalent_width,omitempty"`
	ReducedChiSquare       *float64             `json:"reduced_chi_square,omitempty"`
	Theta                  linefit.Theta        `json:"theta,omitempty"`
	Diagnostics            *linefit.Diagnostics `json:"diagnostics,omitempty"`
	Error                  string               `json:"error,omitempty"`
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeOutcomesJSON(w io.Writer, outcomes []batch.Outcome) error {
	rows := make([]outcomeJSON, len(outcomes))
	for i, out := range outcomes {
		tr := out.Transition
		rows[i] = outcomeJSON{Wavelength: tr.Wavelength(), Species: tr.Species().String()}
		if out.Err != nil {
			rows[i].Error = out.Err.Error()
			continue
		}
		rows[i].EquivalentWidth = finitePtr(out.Result.EquivalentWidth)
		if rew, err := tr.ReducedEquivalentWidth(); err == nil {
			rows[i].ReducedEquivalentWidth = finitePtr(rew)
		}
		rows[i].ReducedChiSquare = finitePtr(out.Result.ReducedChiSquare)
		rows[i].Theta = out.Result.OptimalTheta
		diag := out.Result.Diagnostics
		rows[i].Diagnostics = &diag
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
