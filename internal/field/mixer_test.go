package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTriad(t *testing.T, length int, capacity float64) (*Processor, *Processor, *Processor) {
	t.Helper()
	sspI, err := NewProcessor(RoleI, length, capacity)
	require.NoError(t, err)
	sspN, err := NewProcessor(RoleN, length, capacity)
	require.NoError(t, err)
	sspU, err := NewProcessor(RoleU, length, capacity)
	require.NoError(t, err)
	return sspI, sspN, sspU
}

func fill(p *Processor, perCell float64) {
	f := p.Field()
	for i := range f {
		f[i] = perCell
	}
}

func TestNewMixer_Validation(t *testing.T) {
	var le *LogicError

	_, err := NewMixer(0, DefaultMixerConfig())
	require.ErrorAs(t, err, &le)

	cfg := DefaultMixerConfig()
	cfg.K = 0
	_, err = NewMixer(10, cfg)
	require.ErrorAs(t, err, &le)

	cfg = DefaultMixerConfig()
	cfg.EMAAlpha = 1.5
	_, err = NewMixer(10, cfg)
	require.ErrorAs(t, err, &le)

	cfg = DefaultMixerConfig()
	cfg.EpsConservation = -1
	_, err = NewMixer(10, cfg)
	require.ErrorAs(t, err, &le)
}

func TestNewMixer_DefaultEpsScalesWithMass(t *testing.T) {
	m, err := NewMixer(1000, DefaultMixerConfig())
	require.NoError(t, err)
	assert.InDelta(t, 1e-3, m.Config().EpsConservation, 1e-15)
	assert.InDelta(t, 1e-3, m.Config().EpsDelta, 1e-15)

	// Explicit tolerances pass through untouched.
	cfg := DefaultMixerConfig()
	cfg.EpsConservation = 0.5
	cfg.EpsDelta = 0.25
	m, err = NewMixer(1000, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0.5, m.Config().EpsConservation)
	assert.Equal(t, 0.25, m.Config().EpsDelta)
}

func TestStep_ConservationHolds(t *testing.T) {
	sspI, sspN, sspU := newTriad(t, 4, 10)
	fill(sspI, 0.75) // 3
	fill(sspN, 0.75) // 3
	fill(sspU, 1.0)  // 4

	m, err := NewMixer(10, DefaultMixerConfig())
	require.NoError(t, err)
	require.NoError(t, m.Step(sspI, sspN, sspU))

	got := m.Metrics()
	assert.InDelta(t, 3.0, got.AdmissibleVolume, 1e-9)
	assert.InDelta(t, 3.0, got.ExcludedVolume, 1e-9)
	assert.InDelta(t, 4.0, got.UndecidedVolume, 1e-9)
	assert.InDelta(t, 0.0, got.ConservationError, 1e-9)
	assert.False(t, got.TransportReady)
}

func TestStep_DeficitCorrectedByScalingU(t *testing.T) {
	sspI, sspN, sspU := newTriad(t, 4, 10)
	fill(sspI, 0.75)
	fill(sspN, 0.75)
	fill(sspU, 1.0)

	m, err := NewMixer(10, DefaultMixerConfig())
	require.NoError(t, err)
	require.NoError(t, m.Step(sspI, sspN, sspU))

	// Drain a quarter of U, then step: the deficit is pushed back into U.
	require.NoError(t, sspU.ApplyCollapse(uniformMask(4, 1), 0.25))
	require.NoError(t, m.Step(sspI, sspN, sspU))

	total := sspI.TotalMass() + sspN.TotalMass() + sspU.TotalMass()
	assert.InDelta(t, 10.0, total, 1e-9)
	assert.InDelta(t, 0.0, m.Metrics().ConservationError, 1e-9)
}

func TestStep_ExcessCollapsedOutOfU(t *testing.T) {
	sspI, sspN, sspU := newTriad(t, 4, 10)
	fill(sspI, 1.25) // 5
	fill(sspN, 1.25) // 5
	fill(sspU, 0.5)  // 2, total 12

	m, err := NewMixer(10, DefaultMixerConfig())
	require.NoError(t, err)
	require.NoError(t, m.Step(sspI, sspN, sspU))

	assert.InDelta(t, 0.0, sspU.TotalMass(), 1e-9, "excess drained entirely from U")
	total := sspI.TotalMass() + sspN.TotalMass() + sspU.TotalMass()
	assert.InDelta(t, 10.0, total, 1e-9)
}

func TestStep_ScaleCapViolation(t *testing.T) {
	sspI, sspN, sspU := newTriad(t, 4, 10)
	fill(sspI, 0.75)  // 3
	fill(sspN, 0.75)  // 3
	fill(sspU, 0.075) // 0.3: deficit 3.7, required scale ~13.3

	m, err := NewMixer(10, DefaultMixerConfig())
	require.NoError(t, err)

	err = m.Step(sspI, sspN, sspU)
	var ce *ConservationError
	require.ErrorAs(t, err, &ce)
	assert.Greater(t, ce.Scale, MaxScaleFactor)
	assert.InDelta(t, 0.3, sspU.TotalMass(), 1e-9, "U not inflated on rejection")
}

func TestStep_EmptyUDeficitFilledUniformly(t *testing.T) {
	sspI, sspN, sspU := newTriad(t, 4, 10)
	fill(sspI, 1.5) // 6
	fill(sspN, 0.5) // 2, U empty, deficit 2

	m, err := NewMixer(10, DefaultMixerConfig())
	require.NoError(t, err)
	require.NoError(t, m.Step(sspI, sspN, sspU))

	for _, v := range sspU.Field() {
		assert.InDelta(t, 0.5, v, 1e-12)
	}
}

func TestStep_TransportReadyAfterKStableSteps(t *testing.T) {
	sspI, sspN, sspU := newTriad(t, 4, 10)
	fill(sspI, 0.5)
	fill(sspN, 0.5)
	fill(sspU, 1.5)

	cfg := DefaultMixerConfig()
	cfg.K = 3
	m, err := NewMixer(10, cfg)
	require.NoError(t, err)

	// First step establishes the baseline and never reports readiness.
	require.NoError(t, m.Step(sspI, sspN, sspU))
	assert.False(t, m.Metrics().TransportReady)

	for k := 0; k < 2; k++ {
		require.NoError(t, m.Step(sspI, sspN, sspU))
		assert.False(t, m.Metrics().TransportReady, "step %d still settling", k)
	}
	require.NoError(t, m.Step(sspI, sspN, sspU))
	assert.True(t, m.Metrics().TransportReady)
}

func TestStep_CollapseRatio(t *testing.T) {
	sspI, sspN, sspU := newTriad(t, 4, 10)
	fill(sspI, 0.5) // 2
	fill(sspN, 0.5) // 2
	fill(sspU, 1.5) // 6

	cfg := DefaultMixerConfig()
	cfg.EpsConservation = 5 // wide tolerance: observe depletion without correction noise
	m, err := NewMixer(10, cfg)
	require.NoError(t, err)
	require.NoError(t, m.Step(sspI, sspN, sspU))
	assert.Zero(t, m.Metrics().CollapseRatio)

	// Remove half of U and route it into I so the total stays at 10.
	require.NoError(t, sspU.ApplyCollapse(uniformMask(4, 1), 0.75))
	require.NoError(t, sspI.AddUniform(0.75))
	require.NoError(t, m.Step(sspI, sspN, sspU))
	assert.InDelta(t, 0.5, m.Metrics().CollapseRatio, 1e-9)
}

func TestStep_RoleAndLengthValidation(t *testing.T) {
	sspI, sspN, sspU := newTriad(t, 4, 10)
	m, err := NewMixer(10, DefaultMixerConfig())
	require.NoError(t, err)

	var le *LogicError
	require.ErrorAs(t, m.Step(sspN, sspI, sspU), &le, "swapped roles rejected")

	shortU, err := NewProcessor(RoleU, 2, 10)
	require.NoError(t, err)
	require.ErrorAs(t, m.Step(sspI, sspN, shortU), &le)
}

func TestRequestCollapse(t *testing.T) {
	sspI, sspN, sspU := newTriad(t, 4, 10)
	fill(sspU, 1.0)

	m, err := NewMixer(10, DefaultMixerConfig())
	require.NoError(t, err)
	require.NoError(t, m.RequestCollapse(sspI, sspN, sspU))
	assert.InDelta(t, 4.0-4*0.01, sspU.TotalMass(), 1e-12)

	var le *LogicError
	require.ErrorAs(t, m.RequestCollapse(sspU, sspN, sspI), &le)
}
