// Package router exposes engine sessions over a line-delimited JSON
// command protocol.
//
// Each request line is one JSON object naming a command and its
// parameters; each response line is
// {command, status, result|error+error_code, execution_time_ms}.
// Engines are created per session and addressed by opaque UUID handles.
// The engine core never logs; all structured logging happens here at
// the boundary.
package router

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sidlab/sid/internal/engine"
)

// Command names accepted on the wire.
const (
	CmdCreate         = "sid_create"
	CmdDestroy        = "sid_destroy"
	CmdStep           = "sid_step"
	CmdCollapse       = "sid_collapse"
	CmdMetrics        = "sid_metrics"
	CmdSetDiagramExpr = "sid_set_diagram_expr"
	CmdSetDiagramJSON = "sid_set_diagram_json"
	CmdGetDiagramJSON = "sid_get_diagram_json"
	CmdRewrite        = "sid_rewrite"
	CmdRun            = "sid_run"
)

// Defaults applied by sid_create when the request omits sizing.
const (
	DefaultNumNodes  = 64
	DefaultTotalMass = 100.0
)

// maxRunSteps bounds a single sid_run so a bad request cannot pin the
// session loop.
const maxRunSteps = 1_000_000

// Request is the decoded wire form of one command line. Fields are a
// union over all commands; each handler reads only its own.
type Request struct {
	Command    string  `json:"command"`
	EngineID   string  `json:"engine_id,omitempty"`
	EngineType string  `json:"engine_type,omitempty"`
	NumNodes   int     `json:"num_nodes,omitempty"`
	TotalMass  float64 `json:"total_mass,omitempty"`
	Alpha      float64 `json:"alpha,omitempty"`
	Steps      int     `json:"steps,omitempty"`

	Expr        string `json:"expr,omitempty"`
	RuleID      string `json:"rule_id,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Replacement string `json:"replacement,omitempty"`

	Diagram json.RawMessage `json:"diagram,omitempty"`
}

// Response is the wire form of one reply line.
type Response struct {
	Command         string          `json:"command"`
	Status          string          `json:"status"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
	ErrorCode       ErrorCode       `json:"error_code,omitempty"`
	ExecutionTimeMS float64         `json:"execution_time_ms"`
}

// Recorder receives committed operations for persistence. Implemented
// by store.Store; nil disables recording.
type Recorder interface {
	RecordDiagram(engineID string, seq int64, diagramJSON []byte) error
	RecordMetrics(engineID string, seq int64, metrics engine.Metrics) error
	RecordRewrite(engineID string, seq int64, ruleID string, applied bool, message string) error
}

// Router owns the engine registry and dispatches commands.
//
// A single mutex serializes all dispatch: the stdio session loop is
// sequential anyway, and per-engine sharding buys nothing at this
// request rate.
type Router struct {
	mu       sync.Mutex
	engines  map[string]*engine.Engine
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithRecorder attaches a persistence sink for committed operations.
func WithRecorder(r Recorder) Option {
	return func(rt *Router) { rt.recorder = r }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Router) { rt.logger = l }
}

// New creates an empty router.
func New(opts ...Option) *Router {
	rt := &Router{
		engines: make(map[string]*engine.Engine),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// EngineCount returns the number of live engine sessions.
func (rt *Router) EngineCount() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.engines)
}

// Handle dispatches one request and renders its response. It never
// returns an error: every failure becomes a structured error response.
func (rt *Router) Handle(req Request) Response {
	start := time.Now()

	rt.mu.Lock()
	result, err := rt.dispatch(req)
	rt.mu.Unlock()

	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		rt.logger.Warn("command failed",
			"command", req.Command,
			"engine_id", req.EngineID,
			"error", err,
			"error_code", CodeForError(err),
		)
		return Response{
			Command:         req.Command,
			Status:          "error",
			Error:           err.Error(),
			ErrorCode:       CodeForError(err),
			ExecutionTimeMS: elapsed,
		}
	}

	raw, merr := json.Marshal(result)
	if merr != nil {
		return Response{
			Command:         req.Command,
			Status:          "error",
			Error:           fmt.Sprintf("encode result: %v", merr),
			ErrorCode:       CodeInternal,
			ExecutionTimeMS: elapsed,
		}
	}
	rt.logger.Debug("command handled",
		"command", req.Command,
		"engine_id", req.EngineID,
		"elapsed_ms", elapsed,
	)
	return Response{
		Command:         req.Command,
		Status:          "ok",
		Result:          raw,
		ExecutionTimeMS: elapsed,
	}
}

func (rt *Router) dispatch(req Request) (any, error) {
	switch req.Command {
	case CmdCreate:
		return rt.create(req)
	case CmdDestroy:
		return rt.destroy(req)
	case CmdStep:
		return rt.step(req)
	case CmdCollapse:
		return rt.collapse(req)
	case CmdMetrics:
		return rt.metrics(req)
	case CmdSetDiagramExpr:
		return rt.setDiagramExpr(req)
	case CmdSetDiagramJSON:
		return rt.setDiagramJSON(req)
	case CmdGetDiagramJSON:
		return rt.getDiagramJSON(req)
	case CmdRewrite:
		return rt.rewrite(req)
	case CmdRun:
		return rt.run(req)
	case "":
		return nil, &ProtocolError{Code: CodeBadRequest, Message: "missing command"}
	default:
		return nil, &ProtocolError{
			Code:    CodeUnknownCommand,
			Message: fmt.Sprintf("unknown command %q", req.Command),
		}
	}
}

func (rt *Router) engine(id string) (*engine.Engine, error) {
	if id == "" {
		return nil, &ProtocolError{Code: CodeBadRequest, Message: "missing engine_id"}
	}
	e, ok := rt.engines[id]
	if !ok {
		return nil, &ProtocolError{
			Code:    CodeEngineNotFound,
			Message: fmt.Sprintf("no engine with id %q", id),
		}
	}
	return e, nil
}

func (rt *Router) create(req Request) (any, error) {
	if req.EngineType != "" && req.EngineType != "sid_ternary" {
		return nil, &ProtocolError{
			Code:    CodeBadRequest,
			Message: fmt.Sprintf("unsupported engine_type %q", req.EngineType),
		}
	}
	cfg := engine.Config{
		NumNodes:  req.NumNodes,
		TotalMass: req.TotalMass,
	}
	if cfg.NumNodes == 0 {
		cfg.NumNodes = DefaultNumNodes
	}
	if cfg.TotalMass == 0 {
		cfg.TotalMass = DefaultTotalMass
	}
	e, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	rt.engines[id] = e
	rt.logger.Info("engine created",
		"engine_id", id,
		"num_nodes", cfg.NumNodes,
		"total_mass", cfg.TotalMass,
	)
	return map[string]any{"engine_id": id}, nil
}

func (rt *Router) destroy(req Request) (any, error) {
	if _, err := rt.engine(req.EngineID); err != nil {
		return nil, err
	}
	delete(rt.engines, req.EngineID)
	rt.logger.Info("engine destroyed", "engine_id", req.EngineID)
	return map[string]any{"destroyed": true}, nil
}

func (rt *Router) step(req Request) (any, error) {
	e, err := rt.engine(req.EngineID)
	if err != nil {
		return nil, err
	}
	if err := e.Step(req.Alpha); err != nil {
		return nil, err
	}
	rt.record(req.EngineID, e)
	return map[string]any{"step_count": e.StepCount()}, nil
}

func (rt *Router) collapse(req Request) (any, error) {
	e, err := rt.engine(req.EngineID)
	if err != nil {
		return nil, err
	}
	if err := e.Collapse(req.Alpha); err != nil {
		return nil, err
	}
	rt.record(req.EngineID, e)
	return map[string]any{"U_mass": e.UMass()}, nil
}

func (rt *Router) metrics(req Request) (any, error) {
	e, err := rt.engine(req.EngineID)
	if err != nil {
		return nil, err
	}
	return e.Metrics(), nil
}

func (rt *Router) setDiagramExpr(req Request) (any, error) {
	e, err := rt.engine(req.EngineID)
	if err != nil {
		return nil, err
	}
	if req.Expr == "" {
		return nil, &ProtocolError{Code: CodeBadRequest, Message: "missing expr"}
	}
	if err := e.SetDiagramExpr(req.Expr, req.RuleID); err != nil {
		return nil, err
	}
	if rt.recorder != nil {
		rt.recordDiagram(req.EngineID, e)
	}
	return map[string]any{"message": "diagram set"}, nil
}

func (rt *Router) setDiagramJSON(req Request) (any, error) {
	e, err := rt.engine(req.EngineID)
	if err != nil {
		return nil, err
	}
	if len(req.Diagram) == 0 {
		return nil, &ProtocolError{Code: CodeBadRequest, Message: "missing diagram"}
	}
	if err := e.SetDiagramJSON(req.Diagram); err != nil {
		return nil, err
	}
	if rt.recorder != nil {
		rt.recordDiagram(req.EngineID, e)
	}
	return map[string]any{"message": "diagram set"}, nil
}

func (rt *Router) getDiagramJSON(req Request) (any, error) {
	e, err := rt.engine(req.EngineID)
	if err != nil {
		return nil, err
	}
	data, err := e.DiagramJSON()
	if err != nil {
		return nil, err
	}
	return map[string]any{"diagram": json.RawMessage(data)}, nil
}

func (rt *Router) rewrite(req Request) (any, error) {
	e, err := rt.engine(req.EngineID)
	if err != nil {
		return nil, err
	}
	if req.Pattern == "" || req.Replacement == "" {
		return nil, &ProtocolError{Code: CodeBadRequest, Message: "missing pattern or replacement"}
	}
	res, err := e.ApplyRewrite(req.Pattern, req.Replacement, req.RuleID)
	if err != nil {
		return nil, err
	}
	if rt.recorder != nil {
		seq := e.Clock().Current()
		if rerr := rt.recorder.RecordRewrite(req.EngineID, seq, req.RuleID, res.Applied, res.Message); rerr != nil {
			rt.logger.Warn("record rewrite failed", "engine_id", req.EngineID, "error", rerr)
		}
		if res.Applied {
			rt.recordDiagram(req.EngineID, e)
		}
	}
	return map[string]any{"applied": res.Applied, "message": res.Message}, nil
}

func (rt *Router) run(req Request) (any, error) {
	e, err := rt.engine(req.EngineID)
	if err != nil {
		return nil, err
	}
	if req.Steps <= 0 || req.Steps > maxRunSteps {
		return nil, &ProtocolError{
			Code:    CodeBadRequest,
			Message: fmt.Sprintf("steps must be in [1, %d]", maxRunSteps),
		}
	}
	for i := 0; i < req.Steps; i++ {
		if err := e.Step(req.Alpha); err != nil {
			return nil, fmt.Errorf("step %d of %d: %w", i+1, req.Steps, err)
		}
	}
	rt.record(req.EngineID, e)
	return map[string]any{
		"steps_completed": req.Steps,
		"metrics":         e.Metrics(),
	}, nil
}

// record persists the post-operation metrics when a recorder is
// attached. Persistence failures are logged, never surfaced: the
// operation itself already committed.
func (rt *Router) record(engineID string, e *engine.Engine) {
	if rt.recorder == nil {
		return
	}
	seq := e.Clock().Current()
	if err := rt.recorder.RecordMetrics(engineID, seq, e.Metrics()); err != nil {
		rt.logger.Warn("record metrics failed", "engine_id", engineID, "error", err)
	}
}

func (rt *Router) recordDiagram(engineID string, e *engine.Engine) {
	data, err := e.DiagramJSON()
	if err != nil {
		rt.logger.Warn("encode diagram for recording failed", "engine_id", engineID, "error", err)
		return
	}
	seq := e.Clock().Current()
	if err := rt.recorder.RecordDiagram(engineID, seq, data); err != nil {
		rt.logger.Warn("record diagram failed", "engine_id", engineID, "error", err)
	}
}
