package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProc(t *testing.T, role Role, values []float64, capacity float64) *Processor {
	t.Helper()
	p, err := NewProcessor(role, len(values), capacity)
	require.NoError(t, err)
	copy(p.Field(), values)
	return p
}

func TestNewProcessor_Validation(t *testing.T) {
	_, err := NewProcessor(RoleI, 0, 1)
	var le *LogicError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "NewProcessor", le.Op)

	_, err = NewProcessor(RoleI, 4, -1)
	require.ErrorAs(t, err, &le)

	p, err := NewProcessor(RoleU, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, RoleU, p.Role())
	assert.Equal(t, 4, p.Len())
	assert.Zero(t, p.TotalMass())
}

func TestApplyCollapse_RoleLocked(t *testing.T) {
	for _, role := range []Role{RoleI, RoleN} {
		p := newProc(t, role, []float64{1, 1}, 10)
		err := p.ApplyCollapse([]float64{1, 1}, 0.5)
		var le *LogicError
		require.ErrorAs(t, err, &le, "role %s must reject collapse", role)
		assert.Equal(t, 2.0, p.TotalMass(), "field untouched on rejection")
	}
}

func TestApplyCollapse_ClampsToAvailableMass(t *testing.T) {
	p := newProc(t, RoleU, []float64{0.1, 5, 0}, 10)
	require.NoError(t, p.ApplyCollapse([]float64{1, 1, 1}, 1))

	f := p.Field()
	assert.Equal(t, 0.0, f[0])
	assert.Equal(t, 4.0, f[1])
	assert.Equal(t, 0.0, f[2], "empty cells never go negative")
}

func TestApplyCollapse_MaskRange(t *testing.T) {
	p := newProc(t, RoleU, []float64{1, 1}, 10)
	var le *LogicError
	require.ErrorAs(t, p.ApplyCollapse([]float64{1.5, 0}, 0.1), &le)
	require.ErrorAs(t, p.ApplyCollapse([]float64{-0.1, 0}, 0.1), &le)
	require.ErrorAs(t, p.ApplyCollapse([]float64{1}, 0.1), &le, "length mismatch")
}

func TestApplyCollapseMask(t *testing.T) {
	p := newProc(t, RoleU, []float64{2, 2, 2, 2}, 10)
	mask := NewCollapseMask(4)
	for i := range mask.I {
		mask.I[i] = 0.3
		mask.N[i] = 0.2
	}
	require.NoError(t, p.ApplyCollapseMask(mask, 0.5))

	// delta = 0.5 * (0.3+0.2) * 2 = 0.5 per cell.
	for _, v := range p.Field() {
		assert.InDelta(t, 1.5, v, 1e-12)
	}
}

func TestApplyCollapseMask_InvalidMaskRejected(t *testing.T) {
	p := newProc(t, RoleU, []float64{1, 1}, 10)

	mask := NewCollapseMask(2)
	mask.I[0] = 0.7
	mask.N[0] = 0.6 // sum 1.3 > 1
	var le *LogicError
	require.ErrorAs(t, p.ApplyCollapseMask(mask, 0.5), &le)
	assert.Equal(t, 2.0, p.TotalMass())

	require.ErrorAs(t, p.ApplyCollapseMask(NewCollapseMask(2), -0.1), &le)
}

func TestApplyCollapseMask_AlphaClampedHigh(t *testing.T) {
	p := newProc(t, RoleU, []float64{4}, 10)
	mask := NewCollapseMask(1)
	mask.I[0] = 1
	require.NoError(t, p.ApplyCollapseMask(mask, 5))
	assert.InDelta(t, 0.0, p.Field()[0], 1e-12, "alpha clamps to 1, drains fully")
}

func TestRouteFromField(t *testing.T) {
	p := newProc(t, RoleI, []float64{1, 1, 1}, 10)
	src := []float64{2, -4, 6}
	mask := []float64{1, 1, 0.5}
	require.NoError(t, p.RouteFromField(src, mask, 0.5))

	f := p.Field()
	assert.InDelta(t, 2.0, f[0], 1e-12)
	assert.Equal(t, 1.0, f[1], "negative source contribution floored")
	assert.InDelta(t, 2.5, f[2], 1e-12)

	var le *LogicError
	require.ErrorAs(t, p.RouteFromField(src[:2], mask, 0.5), &le)
	require.ErrorAs(t, p.RouteFromField(src, mask, -1), &le)
}

func TestScaleAllAndAddUniform(t *testing.T) {
	p := newProc(t, RoleU, []float64{1, 2}, 10)
	require.NoError(t, p.ScaleAll(2))
	assert.Equal(t, 6.0, p.TotalMass())

	require.NoError(t, p.AddUniform(0.5))
	assert.Equal(t, 7.0, p.TotalMass())

	var le *LogicError
	require.ErrorAs(t, p.ScaleAll(-1), &le)
	require.ErrorAs(t, p.AddUniform(-0.5), &le)
}

func TestCommitStep_Metrics(t *testing.T) {
	p := newProc(t, RoleI, []float64{2, 2, 2, 2}, 16)
	assert.Zero(t, p.Step())
	p.CommitStep()
	assert.Equal(t, uint64(1), p.Step())

	m := p.Metrics()
	assert.InDelta(t, 0.5, m.Stability, 1e-12, "load 8/16 leaves half the headroom")
	assert.InDelta(t, 1.0, m.Coherence, 1e-12, "uniform field has zero variance")
	assert.InDelta(t, 0.0, m.Divergence, 1e-12)
}

func TestCommitStep_MetricsNonUniform(t *testing.T) {
	p := newProc(t, RoleN, []float64{0, 4}, 2)
	p.CommitStep()

	m := p.Metrics()
	assert.Equal(t, 0.0, m.Stability, "overloaded field clamps to zero headroom")
	// variance = 4, coherence = 1/5.
	assert.InDelta(t, 0.2, m.Coherence, 1e-12)
	assert.InDelta(t, 4.0, m.Divergence, 1e-12)
}

func TestCollapseMask_Validate(t *testing.T) {
	mask := NewCollapseMask(3)
	require.NoError(t, mask.Validate())

	mask.I[1] = 0.5
	mask.N[1] = 0.5
	require.NoError(t, mask.Validate(), "sum exactly 1 is allowed")

	mask.N[1] = 0.6
	var le *LogicError
	require.ErrorAs(t, mask.Validate(), &le)

	mask.N[1] = -0.1
	require.ErrorAs(t, mask.Validate(), &le)

	mask.N = mask.N[:2]
	require.ErrorAs(t, mask.Validate(), &le)
}
