package diagram

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// fingerprintDomain is the domain prefix for content-addressed diagram
// identity. The version suffix enables future algorithm migration.
const fingerprintDomain = "sid/diagram/v1"

// Fingerprint computes a content-addressed identity for the diagram:
// SHA256(domain + 0x00 + canonical JSON). The null separator prevents
// domain/data boundary ambiguity.
//
// Nodes and edges are sorted by id before hashing, so two diagrams
// that differ only in declaration order share a fingerprint. The
// diagram id itself is included: d_main and a structurally identical
// d_expr are distinct snapshots.
func (d *Diagram) Fingerprint() (string, error) {
	canonical, err := d.marshalCanonical()
	if err != nil {
		return "", fmt.Errorf("fingerprint diagram %s: %w", d.ID, err)
	}

	h := sha256.New()
	h.Write([]byte(fingerprintDomain))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// marshalCanonical renders the wire shape with nodes and edges sorted
// by id. Struct field order is fixed, so the output is byte-stable.
func (d *Diagram) marshalCanonical() ([]byte, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var w wireDiagram
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	sort.Slice(w.Nodes, func(i, j int) bool { return w.Nodes[i].ID < w.Nodes[j].ID })
	sort.Slice(w.Edges, func(i, j int) bool { return w.Edges[i].ID < w.Edges[j].ID })
	return json.Marshal(w)
}
