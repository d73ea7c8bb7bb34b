package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/fftgen"
)

// planFile is the on-disk form of a set of plan steps.
//
//	plans:
//	  - name: row-1024
//	    lengths: [1024]
//	    batch: 16
//	  - name: corner-turn
//	    operation: transpose
//	    lengths: [64, 32]
//	    twiddles: true
type planFile struct {
	Plans []planSpec `yaml:"plans"`
}

type planSpec struct {
	Name string `yaml:"name"`
	// Generator overrides the generator chosen for the device.
	Generator *fftgen.GeneratorKind `yaml:"generator,omitempty"`

	Operation     fftgen.Operation `yaml:"operation"`
	Lengths       []int            `yaml:"lengths"`
	InStrides     []int            `yaml:"inStrides,omitempty"`
	OutStrides    []int            `yaml:"outStrides,omitempty"`
	InDistance    int              `yaml:"inDistance,omitempty"`
	OutDistance   int              `yaml:"outDistance,omitempty"`
	InputLayout   fftgen.Layout    `yaml:"inputLayout,omitempty"`
	OutputLayout  fftgen.Layout    `yaml:"outputLayout,omitempty"`
	Precision     fftgen.Precision `yaml:"precision,omitempty"`
	Placement     fftgen.Placement `yaml:"placement,omitempty"`
	Batch         int              `yaml:"batch,omitempty"`
	ForwardScale  float64          `yaml:"forwardScale,omitempty"`
	BackwardScale float64          `yaml:"backwardScale,omitempty"`
	Twiddles      bool             `yaml:"twiddles,omitempty"`
}

// namedPlan is a decoded plan step ready for the builder.
type namedPlan struct {
	Name string
	// Kind is nil when the generator is selected from the device.
	Kind *fftgen.GeneratorKind
	Plan *fftgen.Plan
}

func (s planSpec) plan() *fftgen.Plan {
	return &fftgen.Plan{
		Operation:         s.Operation,
		Lengths:           s.Lengths,
		InStrides:         s.InStrides,
		OutStrides:        s.OutStrides,
		InDistance:        s.InDistance,
		OutDistance:       s.OutDistance,
		InputLayout:       s.InputLayout,
		OutputLayout:      s.OutputLayout,
		Precision:         s.Precision,
		Placement:         s.Placement,
		BatchSize:         s.Batch,
		ForwardScale:      s.ForwardScale,
		BackwardScale:     s.BackwardScale,
		TransposeTwiddles: s.Twiddles,
	}
}

func loadPlanFile(path string) ([]namedPlan, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}

	plans, err := decodePlans(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plans, nil
}

func decodePlans(data []byte) ([]namedPlan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file planFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no plans")
		}
		return nil, err
	}
	if len(file.Plans) == 0 {
		return nil, errors.New("no plans")
	}

	seen := make(map[string]bool, len(file.Plans))
	out := make([]namedPlan, 0, len(file.Plans))
	for i, entry := range file.Plans {
		name := entry.Name
		if name == "" {
			name = fmt.Sprintf("plan-%d", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate plan name %q", name)
		}
		seen[name] = true

		out = append(out, namedPlan{Name: name, Kind: entry.Generator, Plan: entry.plan()})
	}

	return out, nil
}

// selectPlans narrows plans to the one called name; an empty name keeps all.
func selectPlans(plans []namedPlan, name string) ([]namedPlan, error) {
	if name == "" {
		return plans, nil
	}
	for _, p := range plans {
		if p.Name == name {
			return []namedPlan{p}, nil
		}
	}
	return nil, fmt.Errorf("no plan named %q", name)
}
