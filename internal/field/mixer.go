package field

import "math"

// MaxScaleFactor caps the deficit-correction scale applied to U. Exceeding
// the cap aborts the step instead of silently growing the field without
// bound.
const MaxScaleFactor = 10.0

// MixerConfig holds the mixer tuning parameters.
type MixerConfig struct {
	// EpsConservation is the conservation error tolerance. The default
	// 1e-6 is rescaled by max(C, 1) at construction.
	EpsConservation float64
	// EpsDelta is the per-step change tolerance for the stability check,
	// rescaled like EpsConservation.
	EpsDelta float64
	// K is the number of consecutive stable steps required before
	// transport readiness.
	K uint64
	// EMAAlpha is the loop-gain smoothing factor in [0,1].
	EMAAlpha float64
}

// DefaultMixerConfig returns the standard tuning.
func DefaultMixerConfig() MixerConfig {
	return MixerConfig{
		EpsConservation: 1e-6,
		EpsDelta:        1e-6,
		K:               5,
		EMAAlpha:        0.1,
	}
}

// MixerMetrics are the observables emitted each step.
type MixerMetrics struct {
	// LoopGain is the smoothed I<->U feedback amplification.
	LoopGain float64 `json:"loop_gain"`
	// AdmissibleVolume is the total mass in I.
	AdmissibleVolume float64 `json:"admissible_volume"`
	// ExcludedVolume is the total mass in N.
	ExcludedVolume float64 `json:"excluded_volume"`
	// UndecidedVolume is the total mass in U.
	UndecidedVolume float64 `json:"undecided_volume"`
	// CollapseRatio is (U0-U)/U0, the irreversible depletion.
	CollapseRatio float64 `json:"collapse_ratio"`
	// ConservationError is |(I+N+U) - C|.
	ConservationError float64 `json:"conservation_error"`
	// TransportReady is true once K consecutive stable steps have passed.
	TransportReady bool `json:"transport_ready"`
}

// Mixer owns the conservation invariant I + N + U = C across the three
// semantic processors. It corrects drift each step, computes smoothed loop
// gain and stability, and enforces the correction-scale cap.
type Mixer struct {
	c      float64
	config MixerConfig

	initialized bool
	i0, n0, u0  float64
	prevI       float64
	prevU       float64
	stableCount uint64
	metrics     MixerMetrics
}

// NewMixer creates a mixer for the given total conserved mass.
func NewMixer(totalMass float64, config MixerConfig) (*Mixer, error) {
	if totalMass <= 0 {
		return nil, &LogicError{Op: "NewMixer", Message: "total mass must be positive"}
	}
	if config.EpsConservation < 0 {
		return nil, &LogicError{Op: "NewMixer", Message: "eps_conservation must be non-negative"}
	}
	if config.EpsDelta < 0 {
		return nil, &LogicError{Op: "NewMixer", Message: "eps_delta must be non-negative"}
	}
	if config.K == 0 {
		return nil, &LogicError{Op: "NewMixer", Message: "K must be positive"}
	}
	if config.EMAAlpha < 0 || config.EMAAlpha > 1 {
		return nil, &LogicError{Op: "NewMixer", Message: "ema_alpha must be in [0,1]"}
	}

	// Default tolerances scale with the conserved mass.
	if config.EpsConservation == 1e-6 {
		config.EpsConservation = 1e-6 * math.Max(totalMass, 1)
	}
	if config.EpsDelta == 1e-6 {
		config.EpsDelta = 1e-6 * math.Max(totalMass, 1)
	}
	return &Mixer{c: totalMass, config: config}, nil
}

// TotalMass returns the conserved total C.
func (m *Mixer) TotalMass() float64 { return m.c }

// Config returns the effective tuning.
func (m *Mixer) Config() MixerConfig { return m.config }

// Metrics returns the metrics from the last step.
func (m *Mixer) Metrics() MixerMetrics { return m.metrics }

// Step runs one conservation observation step over the three processors.
//
// Excess total mass is collapsed out of U; a deficit is corrected by
// scaling U up, aborting with a ConservationError when the required scale
// exceeds MaxScaleFactor. After correction the balance must hold within
// EpsConservation as a hard post-condition.
func (m *Mixer) Step(sspI, sspN, sspU *Processor) error {
	if sspI.Role() != RoleI || sspN.Role() != RoleN || sspU.Role() != RoleU {
		return &LogicError{Op: "Mixer.Step", Message: "role mismatch for I/N/U processors"}
	}
	length := sspU.Len()
	if sspI.Len() != length || sspN.Len() != length {
		return &LogicError{Op: "Mixer.Step", Message: "field length mismatch"}
	}

	i := sspI.TotalMass()
	n := sspN.TotalMass()
	u := sspU.TotalMass()
	total := i + n + u
	totalBefore := total

	switch {
	case total > m.c && u > 0:
		excess := total - m.c
		alpha := math.Min(1, excess/u)
		if err := sspU.ApplyCollapse(uniformMask(length, 1), alpha*u/float64(length)); err != nil {
			return err
		}
		u = sspU.TotalMass()
		total = i + n + u

	case total < m.c:
		deficit := m.c - total
		if u > 0 {
			scale := 1 + deficit/u
			if scale > MaxScaleFactor {
				return &ConservationError{
					Message: "deficit correction scale exceeds cap",
					Scale:   scale,
				}
			}
			if err := sspU.ScaleAll(scale); err != nil {
				return err
			}
		} else {
			if err := sspU.AddUniform(deficit / float64(length)); err != nil {
				return err
			}
		}
		u = sspU.TotalMass()
		total = i + n + u
	}

	m.metrics.AdmissibleVolume = i
	m.metrics.ExcludedVolume = n
	m.metrics.UndecidedVolume = u
	m.metrics.ConservationError = math.Abs(total - m.c)
	if m.metrics.ConservationError > m.config.EpsConservation {
		return &ConservationError{
			Message: "balance not restored after correction",
			Total:   totalBefore,
			Target:  m.c,
		}
	}

	if !m.initialized {
		m.initialized = true
		m.i0, m.n0, m.u0 = i, n, u
		m.prevI, m.prevU = i, u
		m.stableCount = 0
		m.metrics.LoopGain = 0
		m.metrics.CollapseRatio = 0
		m.metrics.TransportReady = false
		return nil
	}

	if m.u0 > 0 {
		m.metrics.CollapseRatio = math.Max(0, m.u0-u) / m.u0
	} else {
		m.metrics.CollapseRatio = 0
	}

	dI := i - m.prevI
	dU := m.prevU - u
	instGain := dI / math.Max(math.Abs(dU), 1e-12)
	m.metrics.LoopGain = (1-m.config.EMAAlpha)*m.metrics.LoopGain + m.config.EMAAlpha*instGain

	stableNow := m.metrics.ConservationError <= m.config.EpsConservation &&
		math.Abs(dI) <= m.config.EpsDelta &&
		math.Abs(u-m.prevU) <= m.config.EpsDelta
	if stableNow {
		m.stableCount++
	} else {
		m.stableCount = 0
	}
	m.metrics.TransportReady = m.stableCount >= m.config.K

	m.prevI, m.prevU = i, u
	return nil
}

// RequestCollapse applies a uniform mask with a small fixed alpha.
// Callers with an actual collapse policy pass their own masks instead.
func (m *Mixer) RequestCollapse(sspI, sspN, sspU *Processor) error {
	if sspI.Role() != RoleI || sspN.Role() != RoleN || sspU.Role() != RoleU {
		return &LogicError{Op: "RequestCollapse", Message: "role mismatch for I/N/U processors"}
	}
	return sspU.ApplyCollapse(uniformMask(sspU.Len(), 1), 0.01)
}
