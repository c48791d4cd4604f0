package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/denorm/internal/ir"
)

// cycleMarker stands in for a container already on the encoding path.
var cycleMarker = ir.IRObject{"$cycle": ir.IRBool(true)}

// Snapshot captures every step result of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Steps        []StepResult `json:"steps"`
}

// MarshalCanonical renders the snapshot as canonical JSON. Cycles in plain
// results render as {"$cycle":true}.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	steps := make(ir.IRArray, len(s.Steps))
	for i, step := range s.Steps {
		steps[i] = ir.IRObject{
			"name":   ir.IRString(step.Name),
			"result": step.Value,
		}
	}
	return ir.MarshalCanonicalWith(ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"steps":         steps,
	}, ir.CanonicalOptions{CycleMarker: cycleMarker})
}

// RunWithGolden executes a scenario and compares its step results against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the results don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{ScenarioName: scenarioName, Steps: result.Steps}
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
