package field

// CollapseMask is the dual admissible/inadmissible mask pair governing a
// collapse. Pointwise constraint: I[x] + N[x] <= 1 with both components in
// [0,1], validated before every masked-collapse application.
type CollapseMask struct {
	I []float64
	N []float64
}

// NewCollapseMask allocates a zeroed mask pair of the given length.
func NewCollapseMask(fieldLen int) *CollapseMask {
	return &CollapseMask{
		I: make([]float64, fieldLen),
		N: make([]float64, fieldLen),
	}
}

// Validate checks the mask constraints.
func (m *CollapseMask) Validate() error {
	if len(m.I) != len(m.N) {
		return &LogicError{Op: "CollapseMask", Message: "mask component lengths differ"}
	}
	for i := range m.I {
		if m.I[i] < 0 || m.I[i] > 1 {
			return &LogicError{Op: "CollapseMask", Message: "mask_I values must be in [0,1]"}
		}
		if m.N[i] < 0 || m.N[i] > 1 {
			return &LogicError{Op: "CollapseMask", Message: "mask_N values must be in [0,1]"}
		}
		if m.I[i]+m.N[i] > 1 {
			return &LogicError{Op: "CollapseMask", Message: "mask_I + mask_N must not exceed 1"}
		}
	}
	return nil
}

// uniformMask returns a mask of the given weight at every cell.
func uniformMask(fieldLen int, weight float64) []float64 {
	mask := make([]float64, fieldLen)
	for i := range mask {
		mask[i] = weight
	}
	return mask
}
