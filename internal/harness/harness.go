package harness

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sidlab/sid/internal/engine"
	"github.com/sidlab/sid/internal/stability"
)

// Scenario defaults applied when the config block omits sizing.
const (
	defaultNumNodes  = 4
	defaultTotalMass = 12.0
	defaultTolerance = 1e-9
)

// LoadFile reads one scenario from a YAML file. Unknown keys are an
// error so a typoed assertion cannot silently pass.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if len(s.Ops) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one op is required", path)
	}
	return &s, nil
}

// Run executes a scenario against a fresh engine. Operation failures
// and broken expectations land in the result's errors; a non-nil error
// means the scenario itself is malformed.
func (s *Scenario) Run() (*Result, error) {
	cfg := engine.Config{
		NumNodes:  s.Config.NumNodes,
		TotalMass: s.Config.TotalMass,
	}
	if cfg.NumNodes == 0 {
		cfg.NumNodes = defaultNumNodes
	}
	if cfg.TotalMass == 0 {
		cfg.TotalMass = defaultTotalMass
	}
	e, err := engine.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result := NewResult()
	settle := stability.NewChecker(defaultTolerance, 2)
	for i, op := range s.Ops {
		event := TraceEvent{Op: op.Op, Seq: i + 1}

		switch op.Op {
		case "step":
			err = e.Step(op.Alpha)
		case "collapse":
			err = e.Collapse(op.Alpha)
		case "set_expr":
			err = e.SetDiagramExpr(op.Expr, op.RuleID)
		case "run":
			for n := 0; n < op.Steps && err == nil; n++ {
				err = e.Step(op.Alpha)
			}
		case "rewrite":
			var res rewriteResult
			res, err = applyRewrite(e, op)
			event.Applied = &res.applied
			event.Message = res.message
			if err == nil && op.ExpectApplied != nil && res.applied != *op.ExpectApplied {
				result.AddError(fmt.Sprintf(
					"op %d (%s): applied = %v, expected %v", i+1, op.RuleID, res.applied, *op.ExpectApplied))
			}
		default:
			return nil, fmt.Errorf("scenario %s: unknown op %q", s.Name, op.Op)
		}

		if err != nil {
			result.AddError(fmt.Sprintf("op %d (%s): %v", i+1, op.Op, err))
			err = nil
			continue
		}

		event.IMass = e.IMass()
		event.NMass = e.NMass()
		event.UMass = e.UMass()
		settle.Observe(event.UMass)
		result.Trace = append(result.Trace, event)

		if !e.IsConserved(0) {
			result.AddError(fmt.Sprintf(
				"op %d (%s): conservation broken, error %g", i+1, op.Op, e.ConservationError()))
		}
	}

	result.Converged = settle.Converged()
	s.checkExpect(e, result)
	return result, nil
}

type rewriteResult struct {
	applied bool
	message string
}

func applyRewrite(e *engine.Engine, op Op) (rewriteResult, error) {
	res, err := e.ApplyRewrite(op.Pattern, op.Replacement, op.RuleID)
	return rewriteResult{applied: res.Applied, message: res.Message}, err
}

func (s *Scenario) checkExpect(e *engine.Engine, result *Result) {
	if s.Expect == nil {
		return
	}
	tol := s.Expect.Tolerance
	if tol == 0 {
		tol = defaultTolerance
	}

	checkMass := func(name string, want *float64, got float64) {
		if want == nil {
			return
		}
		if math.Abs(got-*want) > tol {
			result.AddError(fmt.Sprintf("expect: %s = %g, want %g (tol %g)", name, got, *want, tol))
		}
	}
	checkMass("i_mass", s.Expect.IMass, e.IMass())
	checkMass("n_mass", s.Expect.NMass, e.NMass())
	checkMass("u_mass", s.Expect.UMass, e.UMass())

	if s.Expect.Conserved != nil && e.IsConserved(0) != *s.Expect.Conserved {
		result.AddError(fmt.Sprintf("expect: conserved = %v, want %v", e.IsConserved(0), *s.Expect.Conserved))
	}
}
