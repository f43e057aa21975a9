package field

import "math"

// Role identifies which of the three conserved mass categories a processor
// carries. Fixed at construction; it is the mechanism that prevents, for
// example, accidentally collapsing the included field.
type Role int

const (
	// RoleI holds included/admissible mass.
	RoleI Role = iota
	// RoleN holds negated/excluded mass.
	RoleN
	// RoleU holds undecided mass; the only role collapse may drain.
	RoleU
)

// String returns the one-letter role tag.
func (r Role) String() string {
	switch r {
	case RoleI:
		return "I"
	case RoleN:
		return "N"
	case RoleU:
		return "U"
	}
	return "?"
}

// Metrics are per-field observables recomputed on each CommitStep.
type Metrics struct {
	// Stability is the semantic headroom 1 - clamp01(total/capacity).
	Stability float64 `json:"stability"`
	// Coherence is the field uniformity 1/(1+variance).
	Coherence float64 `json:"coherence"`
	// Divergence is the mean absolute neighbor difference.
	Divergence float64 `json:"divergence"`
}

// Processor is a role-tagged numeric field of fixed length with a capacity
// bound. Every element stays non-negative at all times: deltas are clamped
// before application, the field itself never is, so mass accounting stays
// monotonic.
type Processor struct {
	role     Role
	step     uint64
	capacity float64
	field    []float64
	metrics  Metrics
}

// NewProcessor creates a processor with a zeroed field.
func NewProcessor(role Role, fieldLen int, capacity float64) (*Processor, error) {
	if fieldLen <= 0 {
		return nil, &LogicError{Op: "NewProcessor", Message: "field length must be positive"}
	}
	if capacity < 0 {
		return nil, &LogicError{Op: "NewProcessor", Message: "capacity must be non-negative"}
	}
	return &Processor{role: role, capacity: capacity, field: make([]float64, fieldLen)}, nil
}

// Role returns the processor's fixed role.
func (p *Processor) Role() Role { return p.role }

// Step returns the number of committed steps.
func (p *Processor) Step() uint64 { return p.step }

// Len returns the fixed field length.
func (p *Processor) Len() int { return len(p.field) }

// Capacity returns the capacity bound used for the stability metric.
func (p *Processor) Capacity() float64 { return p.capacity }

// Metrics returns the metrics from the last CommitStep.
func (p *Processor) Metrics() Metrics { return p.metrics }

// Field exposes the underlying field for initialization and direct
// transfers by the owning engine.
func (p *Processor) Field() []float64 { return p.field }

// TotalMass returns the sum of the field.
func (p *Processor) TotalMass() float64 {
	sum := 0.0
	for _, v := range p.field {
		sum += v
	}
	return sum
}

// CommitStep recomputes metrics and advances the step counter.
func (p *Processor) CommitStep() {
	p.computeMetrics()
	p.step++
}

func (p *Processor) computeMetrics() {
	if len(p.field) == 0 {
		p.metrics = Metrics{}
		return
	}

	sum := p.field[0]
	sumSq := p.field[0] * p.field[0]
	div := 0.0
	for i := 1; i < len(p.field); i++ {
		sum += p.field[i]
		sumSq += p.field[i] * p.field[i]
		div += math.Abs(p.field[i] - p.field[i-1])
	}

	load := 1.0
	if p.capacity > 0 {
		load = sum / p.capacity
	}
	p.metrics.Stability = 1.0 - clamp01(load)

	n := float64(len(p.field))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0 // numerical safety
	}
	p.metrics.Coherence = 1.0 / (1.0 + variance)

	if len(p.field) > 1 {
		p.metrics.Divergence = div / float64(len(p.field)-1)
	} else {
		p.metrics.Divergence = 0
	}
}

// ApplyCollapse removes mask[i]*amount from each cell, clamped to the
// available mass per cell. Single-mask legacy form; requires RoleU.
func (p *Processor) ApplyCollapse(mask []float64, amount float64) error {
	if p.role != RoleU {
		return &LogicError{Op: "ApplyCollapse", Message: "requires role U, have " + p.role.String()}
	}
	if len(mask) != len(p.field) {
		return &LogicError{Op: "ApplyCollapse", Message: "mask length mismatch"}
	}
	for _, m := range mask {
		if m < 0 || m > 1 {
			return &LogicError{Op: "ApplyCollapse", Message: "mask values must be in [0,1]"}
		}
	}
	for i, m := range mask {
		delta := m * amount
		if delta < 0 {
			delta = 0
		}
		if delta > p.field[i] {
			delta = p.field[i]
		}
		p.field[i] -= delta
	}
	return nil
}

// ApplyCollapseMask applies the dual-mask collapse
// U'(x) = U(x) - alpha*(maskI(x)+maskN(x))*U(x); requires RoleU. Alpha is
// clamped to [0,1] after sign validation.
func (p *Processor) ApplyCollapseMask(mask *CollapseMask, alpha float64) error {
	if p.role != RoleU {
		return &LogicError{Op: "ApplyCollapseMask", Message: "requires role U, have " + p.role.String()}
	}
	if len(mask.I) != len(p.field) || len(mask.N) != len(p.field) {
		return &LogicError{Op: "ApplyCollapseMask", Message: "mask length mismatch"}
	}
	if err := mask.Validate(); err != nil {
		return err
	}
	if alpha < 0 {
		return &LogicError{Op: "ApplyCollapseMask", Message: "alpha must be non-negative"}
	}
	if alpha > 1 {
		alpha = 1
	}

	for i := range p.field {
		total := clamp01(mask.I[i] + mask.N[i])
		delta := alpha * total * p.field[i]
		if delta > p.field[i] {
			delta = p.field[i]
		}
		p.field[i] -= delta
	}
	return nil
}

// RouteFromField accumulates alpha*mask[i]*src[i] into each cell. Negative
// source contributions are floored to zero, defending against malformed
// external data.
func (p *Processor) RouteFromField(src, mask []float64, alpha float64) error {
	if len(src) != len(p.field) || len(mask) != len(p.field) {
		return &LogicError{Op: "RouteFromField", Message: "length mismatch"}
	}
	if alpha < 0 {
		return &LogicError{Op: "RouteFromField", Message: "alpha must be non-negative"}
	}
	for _, m := range mask {
		if m < 0 || m > 1 {
			return &LogicError{Op: "RouteFromField", Message: "mask values must be in [0,1]"}
		}
	}
	for i := range p.field {
		delta := alpha * mask[i] * src[i]
		if delta < 0 {
			delta = 0
		}
		p.field[i] += delta
	}
	return nil
}

// ScaleAll multiplies every cell by scale.
func (p *Processor) ScaleAll(scale float64) error {
	if scale < 0 {
		return &LogicError{Op: "ScaleAll", Message: "scale must be non-negative"}
	}
	for i := range p.field {
		p.field[i] *= scale
	}
	return nil
}

// AddUniform adds the same amount to every cell.
func (p *Processor) AddUniform(amountPerCell float64) error {
	if amountPerCell < 0 {
		return &LogicError{Op: "AddUniform", Message: "amount must be non-negative"}
	}
	if amountPerCell == 0 {
		return nil
	}
	for i := range p.field {
		p.field[i] += amountPerCell
	}
	return nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
