package harness

// Scenario is the YAML shape of one scripted engine session.
type Scenario struct {
	Name   string `yaml:"name"`
	Config struct {
		NumNodes  int     `yaml:"num_nodes"`
		TotalMass float64 `yaml:"total_mass"`
	} `yaml:"config"`
	Ops    []Op    `yaml:"ops"`
	Expect *Expect `yaml:"expect,omitempty"`
}

// Op is one scripted operation.
type Op struct {
	// Op is one of "step", "collapse", "rewrite", "set_expr", "run".
	Op    string  `yaml:"op"`
	Alpha float64 `yaml:"alpha,omitempty"`
	Steps int     `yaml:"steps,omitempty"`

	Expr        string `yaml:"expr,omitempty"`
	Pattern     string `yaml:"pattern,omitempty"`
	Replacement string `yaml:"replacement,omitempty"`
	RuleID      string `yaml:"rule_id,omitempty"`

	// ExpectApplied, when set on a rewrite op, asserts the outcome.
	ExpectApplied *bool `yaml:"expect_applied,omitempty"`
}

// Expect holds final-state assertions. Nil fields are not checked.
type Expect struct {
	IMass     *float64 `yaml:"i_mass,omitempty"`
	NMass     *float64 `yaml:"n_mass,omitempty"`
	UMass     *float64 `yaml:"u_mass,omitempty"`
	Conserved *bool    `yaml:"conserved,omitempty"`
	// Tolerance for mass comparisons; zero means 1e-9.
	Tolerance float64 `yaml:"tolerance,omitempty"`
}

// TraceEvent records one executed operation and the masses after it.
type TraceEvent struct {
	Op      string  `json:"op"`
	Seq     int     `json:"seq"`
	IMass   float64 `json:"i_mass"`
	NMass   float64 `json:"n_mass"`
	UMass   float64 `json:"u_mass"`
	Applied *bool   `json:"applied,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	Pass  bool         `json:"pass"`
	Trace []TraceEvent `json:"trace"`
	// Converged reports whether the undecided mass settled over the
	// scenario's tail (diagnostic only; never fails a scenario).
	Converged bool     `json:"converged"`
	Errors    []string `json:"errors,omitempty"`
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []TraceEvent{}}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
