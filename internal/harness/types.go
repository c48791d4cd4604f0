package harness

import (
	"github.com/roach88/denorm/internal/denorm"
	"github.com/roach88/denorm/internal/ir"
)

// StepResult is the denormalized value one step produced.
type StepResult struct {
	Name  string     `json:"name"`
	Value ir.IRValue `json:"value"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Steps holds each step's result in execution order.
	Steps []StepResult `json:"steps"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Cache is the memo cache's counters after the last step.
	// Zero for plain scenarios.
	Cache denorm.CacheStats `json:"cache"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep records a step's result.
func (r *Result) AddStep(name string, value ir.IRValue) {
	r.Steps = append(r.Steps, StepResult{Name: name, Value: value})
}

// Step returns the result of the named step.
func (r *Result) Step(name string) (ir.IRValue, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s.Value, true
		}
	}
	return nil, false
}
