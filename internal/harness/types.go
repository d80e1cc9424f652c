package harness

// TraceEvent is one emission observed while a scenario ran.
type TraceEvent struct {
	// Step is the 1-based index of the step that caused the emission.
	// Zero means the emission was replayed from engine construction.
	Step   int    `json:"step"`
	Seq    int64  `json:"seq"`
	Signal string `json:"signal"`
	Value  string `json:"value"`
}

// Snapshot is the value of every output after one step settled.
type Snapshot struct {
	Step  int    `json:"step"`
	Label string `json:"label"`

	// Values maps output name to its latest value. Outputs without a value
	// yet are absent.
	Values map[string]string `json:"values"`

	// Pending counts unsettled collaborator calls by target.
	Pending map[string]int `json:"pending"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds every emission in seq order.
	Trace []TraceEvent `json:"trace"`

	// Snapshots holds the output values after setup and after each step.
	Snapshots []Snapshot `json:"snapshots"`

	// Prompts lists the messages shown to the user, in order.
	Prompts []string `json:"prompts"`

	// Calls counts every collaborator call made, by target.
	Calls map[string]int `json:"calls"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Calls:  make(map[string]int),
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Final returns the last snapshot's values, or nil before any step ran.
func (r *Result) Final() map[string]string {
	if len(r.Snapshots) == 0 {
		return nil
	}
	return r.Snapshots[len(r.Snapshots)-1].Values
}

// Values returns every value emitted on signal, in order.
func (r *Result) Values(signal string) []string {
	var out []string
	for _, ev := range r.Trace {
		if ev.Signal == signal {
			out = append(out, ev.Value)
		}
	}
	return out
}
