package harness

import "github.com/roach88/blockgraph/internal/journal"

// StepResult records how one step went. Seq comes from the journal's clock,
// so the rows a step produced carry seqs between the previous step's and its
// own.
type StepResult struct {
	Seq   int64  `json:"seq"`
	Op    string `json:"op"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step matched its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Dot is the graph's dot dump after the last step.
	Dot string `json:"dot"`

	Steps      []StepResult       `json:"steps"`
	Deliveries []journal.Delivery `json:"deliveries"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Errors:     []string{},
		Steps:      []StepResult{},
		Deliveries: []journal.Delivery{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
