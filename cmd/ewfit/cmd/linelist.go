package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-spectro/measure/linefit"
	"github.com/cwbudde/algo-spectro/spectro/species"
	"github.com/cwbudde/algo-spectro/spectro/spectrum"
	"github.com/cwbudde/algo-spectro/synth"
)

// Line list formats.
const (
	formatAuto    = "auto"
	formatYAML    = "yaml"
	formatColumns = "columns"
)

// speciesField accepts a species as a number (26.1) or a name ("Fe II").
type speciesField struct {
	value string
}

func (s *speciesField) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: species must be a scalar", node.Line)
	}
	s.value = node.Value
	return nil
}

func (s speciesField) spec() species.Spec {
	v := strings.TrimSpace(s.value)
	if v == "" {
		return species.Spec{}
	}
	if code, err := strconv.ParseFloat(v, 64); err == nil {
		return species.Code(code)
	}
	return species.Name(v)
}

type lineEntry struct {
	Wavelength            float64      `yaml:"wavelength"`
	Species               speciesField `yaml:"species"`
	ExcitationPotential   *float64     `yaml:"excitation_potential"`
	LogGF                 *float64     `yaml:"loggf"`
	VanDerWaalsBroadening float64      `yaml:"van_der_waals_broadening"`
	Mask                  [][]float64  `yaml:"mask"`
	ContinuumRegions      [][]float64  `yaml:"continuum_regions"`
	Blending              []synth.Line `yaml:"blending"`
}

func intervals(pairs [][]float64) ([]spectrum.Interval, error) {
	out := make([]spectrum.Interval, 0, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("interval %v: need [start, end]", p)
		}
		out = append(out, spectrum.Interval{Start: p[0], End: p[1]})
	}
	return out, nil
}

func (e lineEntry) transitionSpec() (linefit.TransitionSpec, error) {
	mask, err := intervals(e.Mask)
	if err != nil {
		return linefit.TransitionSpec{}, fmt.Errorf("mask: %w", err)
	}
	regions, err := intervals(e.ContinuumRegions)
	if err != nil {
		return linefit.TransitionSpec{}, fmt.Errorf("continuum_regions: %w", err)
	}
	return linefit.TransitionSpec{
		Wavelength:            e.Wavelength,
		Species:               e.Species.spec(),
		ExcitationPotential:   e.ExcitationPotential,
		LogGF:                 e.LogGF,
		VanDerWaalsBroadening: e.VanDerWaalsBroadening,
		Mask:                  mask,
		ContinuumRegions:      regions,
		BlendingTransitions:   e.Blending,
	}, nil
}

// readLineList parses a line list. With format "auto", files ending in
// .yaml or .yml are read as YAML, anything else as columns.
func readLineList(r io.Reader, name, format string) ([]linefit.TransitionSpec, error) {
	if format == formatAuto || format == "" {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".yaml", ".yml":
			format = formatYAML
		default:
			format = formatColumns
		}
	}

	switch format {
	case formatYAML:
		return readYAMLLineList(r)
	case formatColumns:
		return readColumnLineList(r)
	default:
		return nil, fmt.Errorf("unknown line list format %q (available: auto, yaml, columns)", format)
	}
}

func readYAMLLineList(r io.Reader) ([]linefit.TransitionSpec, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read line list: %w", err)
	}
	var entries []lineEntry
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse line list: %w", err)
	}

	specs := make([]linefit.TransitionSpec, 0, len(entries))
	for i, e := range entries {
		spec, err := e.transitionSpec()
		if err != nil {
			return nil, fmt.Errorf("line list entry %d: %w", i+1, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// readColumnLineList reads whitespace-separated columns: wavelength,
// species, then optionally excitation potential, log(gf) and van der
// Waals broadening. '#' starts a comment.
func readColumnLineList(r io.Reader) ([]linefit.TransitionSpec, error) {
	var specs []linefit.TransitionSpec
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 || len(fields) > 5 {
			return nil, fmt.Errorf("line list line %d: need 2 to 5 columns, got %d", line, len(fields))
		}

		values := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line list line %d column %d: %w", line, i+1, err)
			}
			values[i] = v
		}

		spec := linefit.TransitionSpec{
			Wavelength: values[0],
			Species:    species.Code(values[1]),
		}
		if len(values) > 2 {
			spec.ExcitationPotential = &values[2]
		}
		if len(values) > 3 {
			spec.LogGF = &values[3]
		}
		if len(values) > 4 {
			spec.VanDerWaalsBroadening = values[4]
		}
		specs = append(specs, spec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read line list: %w", err)
	}
	return specs, nil
}
