// Package rulepack loads rewrite rule packs authored in CUE.
//
// A pack is a named, ordered list of rewrite rules (rule id, pattern,
// replacement, optional metadata). CUE gives rule authors constraints
// and composition; the compiler here validates every pattern and
// replacement through the expression parser before a pack is accepted,
// so a malformed rule fails at load time rather than mid-session.
package rulepack

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/sidlab/sid/internal/engine"
	"github.com/sidlab/sid/internal/expr"
	"github.com/sidlab/sid/internal/rewrite"
)

// Rule is one compiled rewrite rule.
type Rule struct {
	ID          string
	Pattern     string
	Replacement string
	Description string
	Meta        map[string]string
}

// Pack is an ordered rule collection. Rule order is the application
// order for ApplyAll.
type Pack struct {
	Name  string
	Rules []Rule
}

// LoadFile compiles a CUE file into a Pack. The file must carry a
// top-level `pack` struct.
func LoadFile(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule pack %s: %w", path, err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	packVal := v.LookupPath(cue.ParsePath("pack"))
	if !packVal.Exists() {
		return nil, &CompileError{
			Field:   "pack",
			Message: "top-level pack struct is required",
			Pos:     v.Pos(),
		}
	}
	return CompilePack(packVal)
}

// CompilePack parses a CUE value into a Pack.
// Uses CUE SDK's Go API directly (not CLI subprocess).
func CompilePack(v cue.Value) (*Pack, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	pack := &Pack{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "name",
			Message: "pack name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	pack.Name = name

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &CompileError{
			Field:   "rules",
			Message: "at least one rule is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := rulesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	seen := make(map[string]bool)
	for iter.Next() {
		rule, err := compileRule(iter.Value())
		if err != nil {
			return nil, err
		}
		if seen[rule.ID] {
			return nil, &CompileError{
				Field:   "rules",
				Message: fmt.Sprintf("duplicate rule id %q", rule.ID),
				Pos:     iter.Value().Pos(),
			}
		}
		seen[rule.ID] = true
		pack.Rules = append(pack.Rules, rule)
	}

	if len(pack.Rules) == 0 {
		return nil, &CompileError{
			Field:   "rules",
			Message: "at least one rule is required",
			Pos:     v.Pos(),
		}
	}
	return pack, nil
}

func compileRule(v cue.Value) (Rule, error) {
	var rule Rule

	for _, req := range []struct {
		field string
		dst   *string
	}{
		{"id", &rule.ID},
		{"pattern", &rule.Pattern},
		{"replacement", &rule.Replacement},
	} {
		fieldVal := v.LookupPath(cue.ParsePath(req.field))
		if !fieldVal.Exists() {
			return rule, &CompileError{
				Field:   "rules." + req.field,
				Message: req.field + " is required",
				Pos:     v.Pos(),
			}
		}
		s, err := fieldVal.String()
		if err != nil {
			return rule, formatCUEError(err)
		}
		*req.dst = s
	}

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return rule, formatCUEError(err)
		}
		rule.Description = desc
	}

	metaVal := v.LookupPath(cue.ParsePath("meta"))
	if metaVal.Exists() {
		metaIter, err := metaVal.Fields()
		if err != nil {
			return rule, formatCUEError(err)
		}
		rule.Meta = make(map[string]string)
		for metaIter.Next() {
			s, err := metaIter.Value().String()
			if err != nil {
				return rule, formatCUEError(err)
			}
			rule.Meta[metaIter.Label()] = s
		}
	}

	// Reject malformed rules at compile time, not mid-session.
	if _, err := expr.Parse(rule.Pattern); err != nil {
		return rule, &CompileError{
			Field:   fmt.Sprintf("rules.%s.pattern", rule.ID),
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	if _, err := expr.Parse(rule.Replacement); err != nil {
		return rule, &CompileError{
			Field:   fmt.Sprintf("rules.%s.replacement", rule.ID),
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return rule, nil
}

// ApplyAll applies the pack's rules in order against the engine's
// diagram. Rules that do not match are skipped; the results slice has
// one entry per rule. A structural or parse failure aborts and returns
// the results so far.
func (p *Pack) ApplyAll(e *engine.Engine) ([]rewrite.Result, error) {
	results := make([]rewrite.Result, 0, len(p.Rules))
	for _, rule := range p.Rules {
		res, err := e.ApplyRewrite(rule.Pattern, rule.Replacement, rule.ID)
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
	}
	return results, nil
}

// CompileError represents a pack compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
