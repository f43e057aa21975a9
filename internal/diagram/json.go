package diagram

import (
	"encoding/json"

	"github.com/sidlab/sid/internal/expr"
)

// wireDiagram is the one JSON wire shape used for diagrams.
type wireDiagram struct {
	ID            string     `json:"id"`
	CompartmentID string     `json:"compartment_id,omitempty"`
	Nodes         []wireNode `json:"nodes"`
	Edges         []wireEdge `json:"edges"`
}

type wireNode struct {
	ID           string            `json:"id"`
	Op           string            `json:"op"`
	Inputs       []string          `json:"inputs,omitempty"`
	DOFRefs      []string          `json:"dof_refs,omitempty"`
	AtomArgs     []string          `json:"atom_args,omitempty"`
	Irreversible bool              `json:"irreversible,omitempty"`
	Meta         map[string]string `json:"meta,omitempty"`
}

type wireEdge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
	Port  int    `json:"port"`
}

// MarshalJSON renders the diagram in the wire shape.
func (d *Diagram) MarshalJSON() ([]byte, error) {
	w := wireDiagram{
		ID:            d.ID,
		CompartmentID: d.CompartmentID,
		Nodes:         make([]wireNode, len(d.Nodes)),
		Edges:         make([]wireEdge, len(d.Edges)),
	}
	for i := range d.Nodes {
		n := &d.Nodes[i]
		w.Nodes[i] = wireNode{
			ID:           n.ID,
			Op:           string(n.Op),
			Inputs:       n.Inputs,
			DOFRefs:      n.DOFRefs,
			AtomArgs:     n.AtomArgs,
			Irreversible: n.Irreversible,
			Meta:         n.Meta,
		}
	}
	for i := range d.Edges {
		e := &d.Edges[i]
		w.Edges[i] = wireEdge{ID: e.ID, From: e.From, To: e.To, Label: e.Label, Port: e.Port}
	}
	return json.Marshal(w)
}

// FromJSON parses and fully validates a wire-shape diagram. Malformed input
// is rejected before any engine state could be touched: the returned
// diagram is freshly constructed or nil.
func FromJSON(data []byte) (*Diagram, error) {
	d, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Decode parses a wire-shape diagram without running structural
// validation. Callers that want every finding at once (rather than the
// first error) decode here and inspect the graph themselves.
func Decode(data []byte) (*Diagram, error) {
	var w wireDiagram
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &StructuralError{Code: ErrCodeMalformed, Message: "invalid diagram JSON: " + err.Error()}
	}
	if w.ID == "" {
		return nil, &StructuralError{Code: ErrCodeMalformed, Message: "diagram id must be a non-empty string"}
	}

	d := New(w.ID)
	d.CompartmentID = w.CompartmentID

	for i := range w.Nodes {
		n := &w.Nodes[i]
		if n.ID == "" {
			return nil, &StructuralError{Code: ErrCodeMalformed, Message: "node id must be a non-empty string"}
		}
		op, ok := expr.ParseOperator(n.Op)
		if !ok {
			return nil, &StructuralError{Code: ErrCodeMalformed, Message: "unknown operator " + n.Op, NodeID: n.ID}
		}
		d.AddNode(Node{
			ID:           n.ID,
			Op:           op,
			Inputs:       n.Inputs,
			DOFRefs:      n.DOFRefs,
			AtomArgs:     n.AtomArgs,
			Irreversible: n.Irreversible || op.Irreversible(),
			Meta:         n.Meta,
		})
	}

	for i := range w.Edges {
		e := &w.Edges[i]
		if e.ID == "" {
			return nil, &StructuralError{Code: ErrCodeMalformed, Message: "edge id must be a non-empty string"}
		}
		if e.From == "" || e.To == "" {
			return nil, &StructuralError{Code: ErrCodeMalformed, Message: "edge endpoints must be non-empty strings", EdgeID: e.ID}
		}
		label := e.Label
		if label == "" {
			label = DefaultEdgeLabel
		}
		d.AddEdge(Edge{ID: e.ID, From: e.From, To: e.To, Label: label, Port: e.Port})
	}
	return d, nil
}
