package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RunIDVar is replaced by the run id inside string step arguments.
const RunIDVar = "${RUN_ID}"

// Scenario is one Given/When/Then test case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// RunID fixes the run id. When empty a fresh one is generated per run.
	RunID string `yaml:"run_id,omitempty"`

	// Timeout overrides the scenario deadline, as a Go duration string.
	Timeout string `yaml:"timeout,omitempty"`

	Given []Step `yaml:"given,omitempty"`
	When  []Step `yaml:"when"`
	Then  []Step `yaml:"then"`

	// Assertions are checked after cleanup.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step invokes a registered step with its arguments.
type Step struct {
	Step string         `yaml:"step"`
	Args map[string]any `yaml:"args,omitempty"`
}

// Assertion validates the trace or the datastore after cleanup.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count or absent.
	Type string `yaml:"type"`

	// Step and Args select trace events (trace_contains, trace_count).
	// Args is a subset match.
	Step string         `yaml:"step,omitempty"`
	Args map[string]any `yaml:"args,omitempty"`

	// Steps is the expected order (trace_order).
	Steps []string `yaml:"steps,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Container and ID name a document that must be gone (absent).
	Container string `yaml:"container,omitempty"`
	ID        string `yaml:"id,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertAbsent        = "absent"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields,
// unknown steps and missing arguments are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name. Only scenarios whose name contains filter are kept.
func LoadScenarios(dir, filter string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	seen := map[string]string{}
	var scenarios []*Scenario
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", f, s.Name, prev)
		}
		seen[s.Name] = f
		if filter == "" || strings.Contains(s.Name, filter) {
			scenarios = append(scenarios, s)
		}
	}
	return scenarios, nil
}

// timeout returns the parsed Timeout, or 0 when unset.
func (s *Scenario) timeout() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	return d, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.When) == 0 {
		return fmt.Errorf("when list is required and must be non-empty")
	}
	if len(s.Then) == 0 {
		return fmt.Errorf("then list is required and must be non-empty")
	}
	if _, err := s.timeout(); err != nil {
		return err
	}

	for _, sec := range []struct {
		name  string
		steps []Step
	}{
		{SectionGiven, s.Given},
		{SectionWhen, s.When},
		{SectionThen, s.Then},
	} {
		for i, step := range sec.steps {
			if err := validateStep(sec.name, i, step); err != nil {
				return err
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(section string, index int, step Step) error {
	if step.Step == "" {
		return fmt.Errorf("%s[%d]: step is required", section, index)
	}
	def, ok := registry[step.Step]
	if !ok {
		return fmt.Errorf("%s[%d]: unknown step %q (known: %s)",
			section, index, step.Step, strings.Join(StepNames(section), ", "))
	}
	if def.section != section {
		return fmt.Errorf("%s[%d]: step %q belongs in %s", section, index, step.Step, def.section)
	}

	allowed := map[string]bool{}
	for _, name := range def.args {
		allowed[name] = true
		if _, ok := step.Args[name]; !ok {
			return fmt.Errorf("%s[%d] %s: argument %s is required", section, index, step.Step, name)
		}
	}
	for name := range step.Args {
		if !allowed[name] {
			return fmt.Errorf("%s[%d] %s: unknown argument %s", section, index, step.Step, name)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Step == "" {
			return fmt.Errorf("assertions[%d]: step is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Steps) == 0 {
			return fmt.Errorf("assertions[%d]: steps list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Step == "" {
			return fmt.Errorf("assertions[%d]: step is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertAbsent:
		if a.Container == "" || a.ID == "" {
			return fmt.Errorf("assertions[%d]: container and id are required for absent", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
