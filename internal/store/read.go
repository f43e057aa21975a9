package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("store: not found")

// MetricsRow is one persisted metrics record.
type MetricsRow struct {
	EngineID          string
	Seq               int64
	StepCount         uint64
	IMass             float64
	NMass             float64
	UMass             float64
	LoopGain          float64
	ConservationError float64
	TransportReady    bool
}

// RewriteRow is one persisted rewrite audit record.
type RewriteRow struct {
	EngineID string
	Seq      int64
	RuleID   string
	Applied  bool
	Message  string
}

// LatestDiagram returns the highest-seq diagram snapshot for an engine.
func (s *Store) LatestDiagram(ctx context.Context, engineID string) ([]byte, int64, error) {
	var body string
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT body, seq FROM diagrams
		WHERE engine_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, engineID).Scan(&body, &seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("diagram for engine %s: %w", engineID, ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read latest diagram: %w", err)
	}
	return []byte(body), seq, nil
}

// MetricsHistory returns up to limit metrics rows for an engine in seq
// order, oldest first. A non-positive limit means no limit.
func (s *Store) MetricsHistory(ctx context.Context, engineID string, limit int) ([]MetricsRow, error) {
	return s.QueryMetrics(ctx, MetricsFilter{EngineID: engineID, Limit: limit})
}

// RewriteAudit returns all rewrite records for an engine in seq order.
func (s *Store) RewriteAudit(ctx context.Context, engineID string) ([]RewriteRow, error) {
	return s.QueryRewrites(ctx, RewriteFilter{EngineID: engineID})
}
