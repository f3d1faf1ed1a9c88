package load

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Options controls how many virtual users run and for how long. The file
// format is the k6 options object (JSON or YAML); keys this runner does not
// use, such as thresholds, are ignored.
type Options struct {
	VUs        int     `yaml:"vus"`
	Iterations int     `yaml:"iterations"`
	Duration   string  `yaml:"duration"`
	Stages     []Stage `yaml:"stages"`
}

// Stage is one ramping step. The runner does not ramp: stages only
// contribute their total duration and their highest target.
type Stage struct {
	Duration string `yaml:"duration"`
	Target   int    `yaml:"target"`
}

// Plan is a validated Options.
type Plan struct {
	VUs        int
	Iterations int
	Duration   time.Duration
}

// LoadOptions reads the options file at path.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to read options file: %w", err)
	}
	return ParseOptions(data)
}

// ParseOptions decodes options from JSON or YAML.
func ParseOptions(data []byte) (Options, error) {
	var opts Options
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("failed to parse options: %w", err)
	}
	return opts, nil
}

// Plan validates the options. With neither iterations nor a duration, every
// VU runs one iteration.
func (o Options) Plan() (Plan, error) {
	p := Plan{VUs: o.VUs, Iterations: o.Iterations}

	if o.Duration != "" {
		d, err := time.ParseDuration(o.Duration)
		if err != nil {
			return Plan{}, fmt.Errorf("duration: %w", err)
		}
		p.Duration = d
	}
	for i, s := range o.Stages {
		d, err := time.ParseDuration(s.Duration)
		if err != nil {
			return Plan{}, fmt.Errorf("stages[%d].duration: %w", i, err)
		}
		if o.Duration == "" {
			p.Duration += d
		}
		if s.Target > p.VUs {
			p.VUs = s.Target
		}
	}

	switch {
	case p.VUs < 0:
		return Plan{}, fmt.Errorf("vus must be positive, got %d", p.VUs)
	case p.VUs == 0:
		p.VUs = 1
	}
	if p.Iterations < 0 {
		return Plan{}, fmt.Errorf("iterations must be positive, got %d", p.Iterations)
	}
	if p.Duration < 0 {
		return Plan{}, fmt.Errorf("duration must be positive, got %s", p.Duration)
	}
	if p.Iterations == 0 && p.Duration == 0 {
		p.Iterations = p.VUs
	}
	return p, nil
}
