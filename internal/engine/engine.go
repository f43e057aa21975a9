package engine

import (
	"log/slog"
	"math"

	"github.com/sidlab/sid/internal/diagram"
	"github.com/sidlab/sid/internal/expr"
	"github.com/sidlab/sid/internal/field"
	"github.com/sidlab/sid/internal/rewrite"
)

// DefaultDiagramID names the empty diagram every engine starts with,
// before SetDiagramExpr or SetDiagramJSON replaces it.
const DefaultDiagramID = "d_main"

// Config holds the construction parameters for one engine instance.
type Config struct {
	// NumNodes is the shared field length of the three processors.
	NumNodes int
	// TotalMass is the conserved total C; the three fields always sum
	// to it.
	TotalMass float64
	// Capacity bounds each processor's stability metric. Zero means
	// TotalMass.
	Capacity float64
	// Mixer is the conservation tuning. Zero value means defaults.
	Mixer field.MixerConfig
}

// Metrics is the external snapshot of an engine's observable state.
type Metrics struct {
	IMass              float64            `json:"I_mass"`
	NMass              float64            `json:"N_mass"`
	UMass              float64            `json:"U_mass"`
	InstantaneousGain  float64            `json:"instantaneous_gain"`
	IsConserved        bool               `json:"is_conserved"`
	LastRewriteApplied bool               `json:"last_rewrite_applied"`
	LastRewriteMessage string             `json:"last_rewrite_message"`
	StepCount          uint64             `json:"step_count"`
	Mixer              field.MixerMetrics `json:"mixer"`
}

// Engine owns one diagram, one mixer, and three role-locked semantic
// processors. All mutation goes through Step, Collapse, ApplyRewrite,
// and the SetDiagram operations; each either commits in full or leaves
// the engine untouched.
type Engine struct {
	cfg   Config
	clock *Clock

	diagram *diagram.Diagram
	mixer   *field.Mixer
	sspI    *field.Processor
	sspN    *field.Processor
	sspU    *field.Processor

	stepCount          uint64
	lastRewriteApplied bool
	lastRewriteMessage string
}

// New constructs an initialized engine: the three fields are set to
// equal thirds of the total mass and metrics are committed once, so
// conservation holds before the first Step.
func New(cfg Config) (*Engine, error) {
	if cfg.NumNodes <= 0 {
		return nil, &field.LogicError{Op: "engine.New", Message: "num_nodes must be positive"}
	}
	if cfg.TotalMass <= 0 {
		return nil, &field.LogicError{Op: "engine.New", Message: "total_mass must be positive"}
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = cfg.TotalMass
	}
	if cfg.Mixer == (field.MixerConfig{}) {
		cfg.Mixer = field.DefaultMixerConfig()
	}

	sspI, err := field.NewProcessor(field.RoleI, cfg.NumNodes, cfg.Capacity)
	if err != nil {
		return nil, err
	}
	sspN, err := field.NewProcessor(field.RoleN, cfg.NumNodes, cfg.Capacity)
	if err != nil {
		return nil, err
	}
	sspU, err := field.NewProcessor(field.RoleU, cfg.NumNodes, cfg.Capacity)
	if err != nil {
		return nil, err
	}
	mixer, err := field.NewMixer(cfg.TotalMass, cfg.Mixer)
	if err != nil {
		return nil, err
	}

	perCell := cfg.TotalMass / 3 / float64(cfg.NumNodes)
	for _, p := range []*field.Processor{sspI, sspN, sspU} {
		f := p.Field()
		for i := range f {
			f[i] = perCell
		}
		p.CommitStep()
	}

	e := &Engine{
		cfg:     cfg,
		clock:   NewClock(),
		diagram: diagram.New(DefaultDiagramID),
		mixer:   mixer,
		sspI:    sspI,
		sspN:    sspN,
		sspU:    sspU,
	}
	slog.Debug("engine initialized",
		"num_nodes", cfg.NumNodes,
		"total_mass", cfg.TotalMass,
	)
	return e, nil
}

// Step runs one mixer conservation step and commits all three fields.
// Alpha is accepted for wire compatibility with the step command and
// must be non-negative; bulk mass movement between roles happens only
// in Collapse.
func (e *Engine) Step(alpha float64) error {
	if alpha < 0 {
		return &field.LogicError{Op: "Step", Message: "alpha must be non-negative"}
	}
	if err := e.mixer.Step(e.sspI, e.sspN, e.sspU); err != nil {
		return err
	}
	e.sspI.CommitStep()
	e.sspN.CommitStep()
	e.sspU.CommitStep()
	e.stepCount++
	seq := e.clock.Next()
	slog.Debug("step committed",
		"seq", seq,
		"step_count", e.stepCount,
		"conservation_error", e.mixer.Metrics().ConservationError,
	)
	return nil
}

// Collapse moves field_U[i]*alpha*0.5 to each of I and N, per index.
// This is the direct bulk transfer external callers drive; it is
// distinct from the mixer's internal collapse, which exists only for
// conservation correction. Alpha is clamped to [0,1].
func (e *Engine) Collapse(alpha float64) error {
	if alpha < 0 {
		return &field.LogicError{Op: "Collapse", Message: "alpha must be non-negative"}
	}
	if alpha > 1 {
		alpha = 1
	}

	fieldI := e.sspI.Field()
	fieldN := e.sspN.Field()
	fieldU := e.sspU.Field()
	for i := range fieldU {
		moved := fieldU[i] * alpha
		fieldU[i] -= moved
		fieldI[i] += moved * 0.5
		fieldN[i] += moved * 0.5
	}

	e.sspI.CommitStep()
	e.sspN.CommitStep()
	e.sspU.CommitStep()
	seq := e.clock.Next()
	slog.Debug("collapse committed", "seq", seq, "alpha", alpha)
	return nil
}

// ApplyRewrite runs the pattern/replacement rewrite against the current
// diagram and swaps the new diagram in only when it applied. The
// outcome is recorded as last-rewrite status either way.
func (e *Engine) ApplyRewrite(pattern, replacement, ruleID string) (rewrite.Result, error) {
	res, err := rewrite.Apply(e.diagram, pattern, replacement, ruleID)
	if err != nil {
		e.lastRewriteApplied = false
		e.lastRewriteMessage = err.Error()
		return res, err
	}

	e.lastRewriteApplied = res.Applied
	e.lastRewriteMessage = res.Message
	if res.Applied {
		e.diagram = res.Diagram
		seq := e.clock.Next()
		slog.Debug("rewrite committed", "seq", seq, "rule_id", ruleID)
	}
	return res, nil
}

// SetDiagramExpr parses the expression text, compiles a fresh diagram,
// and replaces the engine's diagram wholesale. The rule id names the
// new diagram; empty means "d_expr". A parse or compile failure leaves
// the current diagram untouched.
func (e *Engine) SetDiagramExpr(text, ruleID string) error {
	ast, err := expr.Parse(text)
	if err != nil {
		return err
	}
	diagramID := ruleID
	if diagramID == "" {
		diagramID = "d_expr"
	}
	d, err := diagram.Compile(ast, diagramID, "")
	if err != nil {
		return err
	}
	e.diagram = d
	seq := e.clock.Next()
	slog.Debug("diagram set from expression", "seq", seq, "diagram_id", diagramID)
	return nil
}

// SetDiagramJSON replaces the engine's diagram with one decoded from
// the wire shape. Malformed input, dangling references, and cyclic
// graphs are all rejected before any engine state changes.
func (e *Engine) SetDiagramJSON(data []byte) error {
	d, err := diagram.FromJSON(data)
	if err != nil {
		return err
	}
	if d.HasCycle() {
		return &diagram.StructuralError{
			Code:    diagram.ErrCodeCycle,
			Message: "diagram contains a cycle",
		}
	}
	e.diagram = d
	seq := e.clock.Next()
	slog.Debug("diagram set from json", "seq", seq, "diagram_id", d.ID)
	return nil
}

// DiagramJSON renders the current diagram in the wire shape.
func (e *Engine) DiagramJSON() ([]byte, error) {
	return e.diagram.MarshalJSON()
}

// Diagram returns the engine's current diagram. Callers must treat it
// as read-only; structural changes go through ApplyRewrite and the
// SetDiagram operations.
func (e *Engine) Diagram() *diagram.Diagram {
	return e.diagram
}

// Processor returns the role's semantic processor for inspection and
// direct test setup.
func (e *Engine) Processor(role field.Role) *field.Processor {
	switch role {
	case field.RoleI:
		return e.sspI
	case field.RoleN:
		return e.sspN
	default:
		return e.sspU
	}
}

// IMass returns the total included mass.
func (e *Engine) IMass() float64 { return e.sspI.TotalMass() }

// NMass returns the total negated mass.
func (e *Engine) NMass() float64 { return e.sspN.TotalMass() }

// UMass returns the total undecided mass.
func (e *Engine) UMass() float64 { return e.sspU.TotalMass() }

// TotalMass returns the conserved total C.
func (e *Engine) TotalMass() float64 { return e.cfg.TotalMass }

// StepCount returns the number of committed mixer steps.
func (e *Engine) StepCount() uint64 { return e.stepCount }

// Clock returns the engine's logical clock. Used by persistence code
// to stamp run-log records before writing.
func (e *Engine) Clock() *Clock { return e.clock }

// InstantaneousGain returns the mixer's smoothed loop gain.
func (e *Engine) InstantaneousGain() float64 {
	return e.mixer.Metrics().LoopGain
}

// ConservationError returns |I + N + U - C| right now, independent of
// the last mixer step.
func (e *Engine) ConservationError() float64 {
	return math.Abs(e.IMass() + e.NMass() + e.UMass() - e.cfg.TotalMass)
}

// IsConserved reports whether the live conservation error is within
// tolerance. A non-positive tolerance means the mixer's effective
// eps_conservation.
func (e *Engine) IsConserved(tolerance float64) bool {
	if tolerance <= 0 {
		tolerance = e.mixer.Config().EpsConservation
	}
	return e.ConservationError() <= tolerance
}

// LastRewriteApplied reports whether the most recent rewrite applied.
func (e *Engine) LastRewriteApplied() bool { return e.lastRewriteApplied }

// LastRewriteMessage returns the most recent rewrite's status message.
func (e *Engine) LastRewriteMessage() string { return e.lastRewriteMessage }

// Metrics returns the external snapshot of the engine's state.
func (e *Engine) Metrics() Metrics {
	return Metrics{
		IMass:              e.IMass(),
		NMass:              e.NMass(),
		UMass:              e.UMass(),
		InstantaneousGain:  e.InstantaneousGain(),
		IsConserved:        e.IsConserved(0),
		LastRewriteApplied: e.lastRewriteApplied,
		LastRewriteMessage: e.lastRewriteMessage,
		StepCount:          e.stepCount,
		Mixer:              e.mixer.Metrics(),
	}
}
