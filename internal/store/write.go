package store

import (
	"context"
	"fmt"

	"github.com/sidlab/sid/internal/diagram"
	"github.com/sidlab/sid/internal/engine"
)

// WriteDiagram appends a diagram snapshot in the wire-JSON shape,
// stamped with its content-addressed fingerprint. Re-recording the
// same (engine_id, seq) overwrites: the snapshot is the state at that
// clock value, whichever write got there last.
func (s *Store) WriteDiagram(ctx context.Context, engineID string, seq int64, body []byte) error {
	d, err := diagram.Decode(body)
	if err != nil {
		return fmt.Errorf("decode diagram body: %w", err)
	}
	hash, err := d.Fingerprint()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO diagrams (engine_id, seq, diagram_id, hash, body)
		VALUES (?, ?, ?, ?, ?)
	`, engineID, seq, d.ID, hash, string(body))
	if err != nil {
		return fmt.Errorf("write diagram snapshot: %w", err)
	}
	return nil
}

// WriteMetrics appends one metrics row for a committed operation.
func (s *Store) WriteMetrics(ctx context.Context, engineID string, seq int64, m engine.Metrics) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO metrics
			(engine_id, seq, step_count, i_mass, n_mass, u_mass,
			 loop_gain, conservation_error, transport_ready)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, engineID, seq, m.StepCount, m.IMass, m.NMass, m.UMass,
		m.InstantaneousGain, m.Mixer.ConservationError, m.Mixer.TransportReady)
	if err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// WriteRewrite appends one rewrite audit row.
func (s *Store) WriteRewrite(ctx context.Context, engineID string, seq int64, ruleID string, applied bool, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO rewrites (engine_id, seq, rule_id, applied, message)
		VALUES (?, ?, ?, ?, ?)
	`, engineID, seq, ruleID, applied, message)
	if err != nil {
		return fmt.Errorf("write rewrite audit: %w", err)
	}
	return nil
}

// The Record* methods implement the router's Recorder interface. The
// router has no request context; recording rides on the background one.

// RecordDiagram implements router.Recorder.
func (s *Store) RecordDiagram(engineID string, seq int64, diagramJSON []byte) error {
	return s.WriteDiagram(context.Background(), engineID, seq, diagramJSON)
}

// RecordMetrics implements router.Recorder.
func (s *Store) RecordMetrics(engineID string, seq int64, m engine.Metrics) error {
	return s.WriteMetrics(context.Background(), engineID, seq, m)
}

// RecordRewrite implements router.Recorder.
func (s *Store) RecordRewrite(engineID string, seq int64, ruleID string, applied bool, message string) error {
	return s.WriteRewrite(context.Background(), engineID, seq, ruleID, applied, message)
}
