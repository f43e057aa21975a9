package expr

import "errors"

// Parse converts a SID expression string into an Expr.
//
// Grammar (recursive descent):
//
//	Expr     := OPERATOR '(' ExprList ')' | OPERATOR | IDENT
//	ExprList := Expr (',' Expr)*
//
// Arity is validated per operator after parsing arguments. Trailing tokens
// after a complete expression are a hard error.
func Parse(text string) (Expr, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return Expr{}, err
	}
	p := &parser{tokens: tokens}
	e, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}
	if tok := p.current(); tok != nil {
		return Expr{}, &ParseError{Msg: "unexpected trailing token " + tok.value, Pos: tok.pos}
	}
	return e, nil
}

// MustParse is a test and fixture helper; it panics on parse failure.
func MustParse(text string) Expr {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) current() *token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *parser) consume(kind tokenKind, what string) (token, error) {
	tok := p.current()
	if tok == nil {
		return token{}, &ParseError{Msg: "unexpected end of input, expected " + what, Pos: -1}
	}
	if tok.kind != kind {
		return token{}, &ParseError{Msg: "expected " + what + ", found " + tok.value, Pos: tok.pos}
	}
	p.pos++
	return *tok, nil
}

func (p *parser) parseExpr() (Expr, error) {
	tok := p.current()
	if tok == nil {
		return Expr{}, &ParseError{Msg: "empty expression", Pos: -1}
	}

	switch tok.kind {
	case tokOperator:
		op, ok := ParseOperator(tok.value)
		if !ok {
			return Expr{}, &ParseError{Msg: "unknown operator " + tok.value, Pos: tok.pos}
		}
		p.pos++

		var args []Expr
		if next := p.current(); next != nil && next.kind == tokLParen {
			p.pos++
			var err error
			args, err = p.parseExprList()
			if err != nil {
				return Expr{}, err
			}
			if _, err := p.consume(tokRParen, ")"); err != nil {
				return Expr{}, err
			}
		}

		if err := op.CheckArity(len(args)); err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Pos = tok.pos
			}
			return Expr{}, err
		}
		return Expr{Op: op, Args: args}, nil

	case tokIdent:
		p.pos++
		return NewAtom(tok.value), nil

	default:
		return Expr{}, &ParseError{Msg: "unexpected token " + tok.value, Pos: tok.pos}
	}
}

func (p *parser) parseExprList() ([]Expr, error) {
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	exprs := []Expr{first}
	for {
		tok := p.current()
		if tok == nil || tok.kind != tokComma {
			return exprs, nil
		}
		p.pos++
		next, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, next)
	}
}
