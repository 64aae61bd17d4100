package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a recall scenario: a flow of cache and page operations
// followed by assertions on what the backend recorded.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// TTL overrides the page cache lifetime. Zero keeps the default.
	TTL time.Duration `yaml:"ttl,omitempty"`

	// Pages maps URLs to the content the scenario fetcher serves.
	Pages map[string]string `yaml:"pages,omitempty"`

	// Flow contains the operations to execute in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate backend state after the flow.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single flow operation. Exactly one of Store, Get, Fetch or
// Advance must be set.
type Step struct {
	// Store saves a value (text, integer or float) under the next key.
	Store any `yaml:"store,omitempty"`

	// Get reads a key, converted according to As ("text", "int", "bytes").
	Get string `yaml:"get,omitempty"`
	As  string `yaml:"as,omitempty"`

	// Fetch requests a URL through the page cache.
	Fetch string `yaml:"fetch,omitempty"`

	// Advance moves backend time forward.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Expect is the value a get or fetch must return. Nil skips the check.
	Expect any `yaml:"expect,omitempty"`

	// Missing asserts that a get finds nothing.
	Missing bool `yaml:"missing,omitempty"`
}

// Step operation names.
const (
	OpStore   = "store"
	OpGet     = "get"
	OpFetch   = "fetch"
	OpAdvance = "advance"
)

// Op returns which operation the step performs, or "" when none or several
// are set.
func (s Step) Op() string {
	var ops []string
	if s.Store != nil {
		ops = append(ops, OpStore)
	}
	if s.Get != "" {
		ops = append(ops, OpGet)
	}
	if s.Fetch != "" {
		ops = append(ops, OpFetch)
	}
	if s.Advance != 0 {
		ops = append(ops, OpAdvance)
	}
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

// Assertion validates backend state after the flow.
type Assertion struct {
	// Type is one of call_count, history_len, visits, fetch_count.
	Type string `yaml:"type"`

	// Method is the recorded operation name (call_count, history_len).
	Method string `yaml:"method,omitempty"`

	// URL is the page URL (visits, fetch_count).
	URL string `yaml:"url,omitempty"`

	// Count is the expected value.
	Count int64 `yaml:"count"`
}

// Assertion type constants.
const (
	AssertCallCount  = "call_count"
	AssertHistoryLen = "history_len"
	AssertVisits     = "visits"
	AssertFetchCount = "fetch_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if s.TTL < 0 {
		return fmt.Errorf("ttl must be non-negative")
	}

	for i, step := range s.Flow {
		op := step.Op()
		if op == "" {
			return fmt.Errorf("flow[%d]: exactly one of store, get, fetch or advance is required", i)
		}
		if op == OpAdvance && step.Advance < 0 {
			return fmt.Errorf("flow[%d]: advance must be positive", i)
		}
		if op == OpGet {
			switch step.As {
			case "", "text", "int", "bytes":
			default:
				return fmt.Errorf("flow[%d]: unknown conversion %q", i, step.As)
			}
		}
		if step.Missing && op != OpGet {
			return fmt.Errorf("flow[%d]: missing only applies to get", i)
		}
		if step.Missing && step.Expect != nil {
			return fmt.Errorf("flow[%d]: missing and expect are exclusive", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCallCount, AssertHistoryLen:
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for %s", index, a.Type)
		}
	case AssertVisits, AssertFetchCount:
		if a.URL == "" {
			return fmt.Errorf("assertions[%d]: url is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
