package expr

import (
	"strings"
	"unicode"
)

// Operator is the closed set of SID operators.
type Operator string

const (
	// OpProject is the projection/literal operator (arity 1).
	OpProject Operator = "P"
	// OpSuperPlus is positive superposition (arity >= 1).
	OpSuperPlus Operator = "S+"
	// OpSuperMinus is negative superposition (arity >= 1).
	OpSuperMinus Operator = "S-"
	// OpCollapse marks its result irreversible (arity 1).
	OpCollapse Operator = "O"
	// OpCompose is composition (arity exactly 2).
	OpCompose Operator = "C"
	// OpTransport is transport (arity 1).
	OpTransport Operator = "T"
)

// Operators lists every valid operator. Two-character operators must be
// tokenized before single-character ones.
var Operators = []Operator{OpSuperPlus, OpSuperMinus, OpProject, OpCollapse, OpCompose, OpTransport}

// ParseOperator maps an operator literal to its Operator, reporting whether
// the literal is a member of the closed set.
func ParseOperator(s string) (Operator, bool) {
	switch Operator(s) {
	case OpProject, OpSuperPlus, OpSuperMinus, OpCollapse, OpCompose, OpTransport:
		return Operator(s), true
	}
	return "", false
}

// Irreversible reports whether nodes created for this operator are marked
// irreversible. Only O (collapse) is.
func (op Operator) Irreversible() bool {
	return op == OpCollapse
}

// CheckArity validates the argument count for the operator.
// P, O, T take exactly 1 argument; C takes exactly 2; S+ and S- take 1 or more.
func (op Operator) CheckArity(n int) error {
	switch op {
	case OpProject, OpCollapse, OpTransport:
		if n != 1 {
			return &ParseError{Msg: string(op) + " requires exactly 1 argument", Pos: -1, Got: n}
		}
	case OpCompose:
		if n != 2 {
			return &ParseError{Msg: "C requires exactly 2 arguments", Pos: -1, Got: n}
		}
	case OpSuperPlus, OpSuperMinus:
		if n < 1 {
			return &ParseError{Msg: string(op) + " requires at least 1 argument", Pos: -1, Got: n}
		}
	}
	return nil
}

// Expr is a SID expression: either an Atom (named leaf) or an Op with
// ordered child expressions. Values are owned recursively; there is no
// sharing between trees, so copying a slice of children is a deep copy of
// structure as far as mutation is concerned (Exprs are never mutated after
// construction).
type Expr struct {
	// Atom is the leaf name. Set exactly when Args is nil and Op is empty.
	Atom string

	// Op and Args describe an operator expression.
	Op   Operator
	Args []Expr
}

// NewAtom builds a leaf expression.
func NewAtom(name string) Expr {
	return Expr{Atom: name}
}

// NewOp builds an operator expression.
func NewOp(op Operator, args ...Expr) Expr {
	return Expr{Op: op, Args: args}
}

// IsAtom reports whether e is a leaf.
func (e Expr) IsAtom() bool {
	return e.Op == ""
}

// IsVariable reports whether e is an atom naming a pattern variable:
// a "$name" identifier or a single lowercase letter.
func (e Expr) IsVariable() bool {
	return e.IsAtom() && IsVariable(e.Atom)
}

// VarName returns the binding name of a variable atom, with any leading
// "$" stripped.
func (e Expr) VarName() string {
	return strings.TrimPrefix(e.Atom, "$")
}

// IsVariable reports whether an atom name denotes a pattern variable.
func IsVariable(name string) bool {
	if name == "" {
		return false
	}
	if name[0] == '$' {
		return true
	}
	runes := []rune(name)
	return len(runes) == 1 && unicode.IsLower(runes[0])
}

// Equal reports structural equality.
func (e Expr) Equal(other Expr) bool {
	if e.IsAtom() != other.IsAtom() {
		return false
	}
	if e.IsAtom() {
		return e.Atom == other.Atom
	}
	if e.Op != other.Op || len(e.Args) != len(other.Args) {
		return false
	}
	for i := range e.Args {
		if !e.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the expression.
func (e Expr) Clone() Expr {
	if e.IsAtom() {
		return e
	}
	args := make([]Expr, len(e.Args))
	for i := range e.Args {
		args[i] = e.Args[i].Clone()
	}
	return Expr{Op: e.Op, Args: args}
}

// String renders the expression in the SID grammar. The output reparses to
// a structurally equal expression.
func (e Expr) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e Expr) write(sb *strings.Builder) {
	if e.IsAtom() {
		sb.WriteString(e.Atom)
		return
	}
	sb.WriteString(string(e.Op))
	sb.WriteByte('(')
	for i := range e.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		e.Args[i].write(sb)
	}
	sb.WriteByte(')')
}
