package suite

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-equiptest/protocol"
)

// Range is an inclusive [Min, Max] bound on a measurement.
//
// It is serialized as a two-element array.
type Range struct {
	Min float64
	Max float64
}

// NewRange returns a pointer to the range [lo, hi].
func NewRange(lo, hi float64) *Range {
	return &Range{Min: lo, Max: hi}
}

// Contains reports whether min <= v <= max.
func (r Range) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

// String formats the range as "<min>-<max>".
func (r Range) String() string {
	return formatBound(r.Min) + "-" + formatBound(r.Max)
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (r Range) validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
		return fmt.Errorf("range bound is NaN")
	}
	if r.Min > r.Max {
		return fmt.Errorf("range min %s is greater than max %s", formatBound(r.Min), formatBound(r.Max))
	}

	return nil
}

func (r *Range) fromSlice(bounds []float64) error {
	if len(bounds) != 2 {
		return fmt.Errorf("expected range needs 2 values, got %d", len(bounds))
	}
	r.Min, r.Max = bounds[0], bounds[1]

	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([]float64{r.Min, r.Max})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Range) UnmarshalJSON(data []byte) error {
	var bounds []float64
	if err := json.Unmarshal(data, &bounds); err != nil {
		return err
	}

	return r.fromSlice(bounds)
}

// MarshalYAML implements yaml.Marshaler.
func (r Range) MarshalYAML() (any, error) {
	return []float64{r.Min, r.Max}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	var bounds []float64
	if err := node.Decode(&bounds); err != nil {
		return err
	}

	return r.fromSlice(bounds)
}

// Step is one test within a suite.
type Step struct {
	Name       string   `yaml:"name" json:"name"`
	Parameters []string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	// ExpectedRange is nil when the measurement is not range-checked.
	ExpectedRange *Range `yaml:"expected_range,omitempty" json:"expected_range,omitempty"`
	// Critical stops the suite when this step fails.
	Critical bool `yaml:"critical,omitempty" json:"critical,omitempty"`
}

// Suite is a named, ordered sequence of steps with setup and teardown commands.
type Suite struct {
	Name             string   `yaml:"name" json:"name"`
	Description      string   `yaml:"description,omitempty" json:"description,omitempty"`
	Steps            []Step   `yaml:"tests" json:"tests"`
	SetupCommands    []string `yaml:"setup_commands,omitempty" json:"setup_commands,omitempty"`
	TeardownCommands []string `yaml:"teardown_commands,omitempty" json:"teardown_commands,omitempty"`
}

// Validate checks the suite definition.
//
// The returned error wraps ErrInvalidSuite.
func (s *Suite) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil suite", ErrInvalidSuite)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSuite)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: %s: at least one test is required", ErrInvalidSuite, s.Name)
	}

	for i, step := range s.Steps {
		if strings.TrimSpace(step.Name) == "" {
			return fmt.Errorf("%w: %s: test %d has no name", ErrInvalidSuite, s.Name, i)
		}
		if step.ExpectedRange != nil {
			if err := step.ExpectedRange.validate(); err != nil {
				return fmt.Errorf("%w: %s: test %q: %s", ErrInvalidSuite, s.Name, step.Name, err)
			}
		}
		for _, p := range step.Parameters {
			if strings.ContainsAny(p, protocol.Delimiter+protocol.LineTerminator) {
				return fmt.Errorf("%w: %s: test %q: parameter %q: %w",
					ErrInvalidSuite, s.Name, step.Name, p, protocol.ErrDelimiterInField)
			}
		}
	}

	return nil
}

// Clone returns a deep copy of the suite.
func (s *Suite) Clone() *Suite {
	if s == nil {
		return nil
	}

	c := *s
	c.SetupCommands = append([]string(nil), s.SetupCommands...)
	c.TeardownCommands = append([]string(nil), s.TeardownCommands...)
	c.Steps = make([]Step, len(s.Steps))
	for i, step := range s.Steps {
		step.Parameters = append([]string(nil), step.Parameters...)
		if step.ExpectedRange != nil {
			r := *step.ExpectedRange
			step.ExpectedRange = &r
		}
		c.Steps[i] = step
	}

	return &c
}
