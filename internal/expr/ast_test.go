package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsVariable(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"$x", true},
		{"$target", true},
		{"x", true},
		{"q", true},
		{"Freedom", false},
		{"xy", false},
		{"X", false},
		{"", false},
		{"_x", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsVariable(tc.name), tc.name)
	}
}

func TestExpr_VarName(t *testing.T) {
	assert.Equal(t, "x", NewAtom("$x").VarName())
	assert.Equal(t, "y", NewAtom("y").VarName())
}

func TestExpr_Equal(t *testing.T) {
	a := MustParse("C(P(Freedom), P(Choice))")
	b := MustParse("C(P(Freedom), P(Choice))")
	c := MustParse("C(P(Choice), P(Freedom))")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c), "argument order is structural")
	assert.False(t, a.Equal(NewAtom("Freedom")))
}

func TestExpr_Clone(t *testing.T) {
	orig := MustParse("C(P(Freedom), O(P(Choice)))")
	clone := orig.Clone()

	require.True(t, orig.Equal(clone))

	// Mutating the clone's children must not reach the original.
	clone.Args[0] = NewAtom("tampered")
	assert.Equal(t, OpProject, orig.Args[0].Op)
}

func TestOperator_CheckArity(t *testing.T) {
	assert.NoError(t, OpProject.CheckArity(1))
	assert.Error(t, OpProject.CheckArity(0))
	assert.Error(t, OpProject.CheckArity(2))

	assert.NoError(t, OpCompose.CheckArity(2))
	assert.Error(t, OpCompose.CheckArity(1))

	assert.NoError(t, OpSuperPlus.CheckArity(1))
	assert.NoError(t, OpSuperPlus.CheckArity(5))
	assert.Error(t, OpSuperMinus.CheckArity(0))

	assert.NoError(t, OpCollapse.CheckArity(1))
	assert.NoError(t, OpTransport.CheckArity(1))
}

func TestOperator_Irreversible(t *testing.T) {
	assert.True(t, OpCollapse.Irreversible())
	for _, op := range []Operator{OpProject, OpSuperPlus, OpSuperMinus, OpCompose, OpTransport} {
		assert.False(t, op.Irreversible(), string(op))
	}
}

func TestParseOperator(t *testing.T) {
	for _, op := range Operators {
		got, ok := ParseOperator(string(op))
		require.True(t, ok)
		assert.Equal(t, op, got)
	}
	_, ok := ParseOperator("Q")
	assert.False(t, ok)
}
