package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blockgraph/internal/blueprint"
)

// Scenario is one harness test case.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Blueprint is the graph under test, written inline.
	Blueprint *blueprint.Blueprint `yaml:"blueprint,omitempty"`

	// BlueprintFile references a blueprint file instead. Relative paths are
	// resolved against the scenario file's directory.
	BlueprintFile string `yaml:"blueprint_file,omitempty"`

	// MaxPasses overrides the graph's resolution pass ceiling when non-zero.
	MaxPasses int `yaml:"max_passes,omitempty"`

	// ActionIDs pins the correlation ids of the first posts, in order.
	// Later posts get "act-N".
	ActionIDs []string `yaml:"action_ids,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step operations.
const (
	OpCommit     = "commit"
	OpRelease    = "release"
	OpShutdown   = "shutdown"
	OpSet        = "set"
	OpConnect    = "connect"
	OpDisconnect = "disconnect"
	OpPost       = "post"
)

// Step is one operation on the graph.
type Step struct {
	Op string `yaml:"op"`

	// Node and Key address a property (set) or a posting node (post).
	Node string `yaml:"node,omitempty"`
	Key  string `yaml:"key,omitempty"`

	// Value is the value written by set. It is parsed into the property type.
	Value any `yaml:"value,omitempty"`

	// Edge fields for connect and disconnect, as in a blueprint edge.
	Src  string `yaml:"src,omitempty"`
	Dst  string `yaml:"dst,omitempty"`
	Kind string `yaml:"kind,omitempty"`
	Back bool   `yaml:"back,omitempty"`

	// Port ("in:0", "out:1"), Action and Payload describe a post. Integer
	// payloads are passed as float64.
	Port    string `yaml:"port,omitempty"`
	Action  string `yaml:"action,omitempty"`
	Payload any    `yaml:"payload,omitempty"`

	// ExpectError is the error code the step must fail with, such as
	// VALUE_ERROR. Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion checks the graph after all steps ran.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Node and Key address a property (property_equals) or a receiving node
	// (delivered).
	Node string `yaml:"node,omitempty"`
	Key  string `yaml:"key,omitempty"`

	// Value is the expected property value. Numbers compare numerically.
	Value any `yaml:"value,omitempty"`

	// Count is the expected number of edges (edge_count).
	Count int `yaml:"count,omitempty"`

	// Contains is a substring of the dot dump (dot_contains).
	Contains string `yaml:"contains,omitempty"`

	// Action and Outcome match a journal delivery (delivered). An empty
	// outcome matches any.
	Action  string `yaml:"action,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`
}

// Assertion type constants.
const (
	AssertPropertyEquals = "property_equals"
	AssertEdgeCount      = "edge_count"
	AssertDotContains    = "dot_contains"
	AssertDelivered      = "delivered"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected, and a referenced blueprint file is loaded.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if s.BlueprintFile != "" {
		bpPath := s.BlueprintFile
		if !filepath.IsAbs(bpPath) {
			bpPath = filepath.Join(filepath.Dir(path), bpPath)
		}
		bp, err := blueprint.Load(bpPath)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario: %w", err)
		}
		s.Blueprint = bp
	}
	return s, nil
}

// ParseScenario decodes a scenario from YAML and validates it. A
// blueprint_file reference is left unresolved.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Blueprint == nil && s.BlueprintFile == "" {
		return fmt.Errorf("blueprint or blueprint_file is required")
	}
	if s.Blueprint != nil && s.BlueprintFile != "" {
		return fmt.Errorf("blueprint and blueprint_file are mutually exclusive")
	}
	if s.MaxPasses < 0 {
		return fmt.Errorf("max_passes must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Op {
	case OpCommit, OpRelease, OpShutdown:
	case OpSet:
		if s.Node == "" || s.Key == "" {
			return fmt.Errorf("steps[%d]: node and key are required for set", index)
		}
		if s.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for set", index)
		}
	case OpConnect, OpDisconnect:
		if s.Src == "" || s.Dst == "" {
			return fmt.Errorf("steps[%d]: src and dst are required for %s", index, s.Op)
		}
	case OpPost:
		if s.Node == "" || s.Port == "" || s.Action == "" {
			return fmt.Errorf("steps[%d]: node, port and action are required for post", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPropertyEquals:
		if a.Node == "" || a.Key == "" {
			return fmt.Errorf("assertions[%d]: node and key are required for property_equals", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for property_equals", index)
		}
	case AssertEdgeCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for edge_count", index)
		}
	case AssertDotContains:
		if a.Contains == "" {
			return fmt.Errorf("assertions[%d]: contains is required for dot_contains", index)
		}
	case AssertDelivered:
		if a.Node == "" || a.Action == "" {
			return fmt.Errorf("assertions[%d]: node and action are required for delivered", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
