// Package config loads crop and bin pipelines from YAML files.
//
// A pipeline names the array it reads, the reduction used by its bins and the
// ordered list of steps:
//
//	source: file:///data/volume.zarr
//	reduction: mean
//	steps:
//	  - crop: "slice(1, 8), slice(5, 6)"
//	  - bin: 2
//	  - crop: [0, 2, None, None]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TuSKan/zarr-roi/chain"
	"github.com/TuSKan/zarr-roi/rebin"
	"github.com/TuSKan/zarr-roi/region"
)

// Pipeline is a YAML pipeline file.
type Pipeline struct {
	Source    string `yaml:"source"`
	Reduction string `yaml:"reduction,omitempty"`
	Steps     []Step `yaml:"steps"`
}

// Step holds exactly one of Crop and Bin.
type Step struct {
	Crop *Region `yaml:"crop,omitempty"`
	Bin  *int    `yaml:"bin,omitempty"`
}

// Region is a crop written either as a string or as a sequence of scalars.
type Region struct {
	Spec region.Spec
}

func (r *Region) UnmarshalYAML(n *yaml.Node) error {
	var text string
	switch n.Kind {
	case yaml.ScalarNode:
		text = scalar(n)
	case yaml.SequenceNode:
		parts := make([]string, len(n.Content))
		for i, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: crop entries must be scalars", c.Line)
			}
			parts[i] = scalar(c)
		}
		text = strings.Join(parts, ", ")
	default:
		return fmt.Errorf("line %d: crop must be a string or a sequence", n.Line)
	}
	spec, err := region.Parse(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	r.Spec = spec
	return nil
}

func (r Region) MarshalYAML() (any, error) {
	return r.Spec.String(), nil
}

// scalar returns the text of a scalar node, with YAML nulls spelled None.
func scalar(n *yaml.Node) string {
	if n.Tag == "!!null" {
		return "None"
	}
	return n.Value
}

// Load reads the pipeline file at path.
func Load(path string) (*Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline: %w", err)
	}
	p, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a pipeline document. Unknown keys are rejected.
func Parse(b []byte) (*Pipeline, error) {
	var p Pipeline
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode pipeline: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that the pipeline names a source, a known reduction and
// well-formed steps.
func (p *Pipeline) Validate() error {
	if p.Source == "" {
		return fmt.Errorf("pipeline has no source")
	}
	if _, err := p.ReductionKind(); err != nil {
		return err
	}
	for i, s := range p.Steps {
		switch {
		case s.Crop != nil && s.Bin != nil:
			return fmt.Errorf("step %d: has both crop and bin", i)
		case s.Crop == nil && s.Bin == nil:
			return fmt.Errorf("step %d: needs crop or bin", i)
		case s.Bin != nil && *s.Bin < 1:
			return fmt.Errorf("step %d: %w: %d", i, rebin.ErrInvalidFactor, *s.Bin)
		}
	}
	return nil
}

// Chain returns the steps as an operation chain, in file order.
func (p *Pipeline) Chain() chain.Chain {
	ops := make(chain.Chain, 0, len(p.Steps))
	for _, s := range p.Steps {
		if s.Bin != nil {
			ops = append(ops, chain.Bin(*s.Bin))
			continue
		}
		ops = append(ops, chain.Crop(s.Crop.Spec))
	}
	return ops
}

// ReductionKind returns the reduction named by the pipeline, Sum when unset.
func (p *Pipeline) ReductionKind() (rebin.Reduction, error) {
	return rebin.ParseReduction(p.Reduction)
}
