package store

import (
	"context"
	"fmt"
	"strings"
)

// Typed filters compile to parameterized SQL: values are never
// interpolated, and every query carries an ORDER BY so results are
// deterministic across runs.

// MetricsFilter selects metrics rows. Zero values mean "no bound".
type MetricsFilter struct {
	EngineID string
	// SinceSeq and UntilSeq bound seq inclusively; 0 disables a bound.
	SinceSeq int64
	UntilSeq int64
	// TransportReady, when set, matches only rows with that flag.
	TransportReady *bool
	// Limit caps the row count; non-positive means unlimited.
	Limit int
}

// RewriteFilter selects rewrite audit rows. Zero values mean "no bound".
type RewriteFilter struct {
	EngineID string
	RuleID   string
	// Applied, when set, matches only rows with that outcome.
	Applied *bool
}

// cond is one compiled predicate: a "column op ?" fragment and its
// parameter.
type cond struct {
	sql   string
	param any
}

// compileWhere joins conditions with AND. An empty list compiles to a
// vacuously true clause so callers can always append " WHERE ".
func compileWhere(conds []cond) (string, []any) {
	if len(conds) == 0 {
		return "1 = 1", nil
	}
	parts := make([]string, len(conds))
	params := make([]any, len(conds))
	for i, c := range conds {
		parts[i] = c.sql
		params[i] = c.param
	}
	return strings.Join(parts, " AND "), params
}

func (f MetricsFilter) compile() (string, []any) {
	var conds []cond
	if f.EngineID != "" {
		conds = append(conds, cond{"engine_id = ?", f.EngineID})
	}
	if f.SinceSeq > 0 {
		conds = append(conds, cond{"seq >= ?", f.SinceSeq})
	}
	if f.UntilSeq > 0 {
		conds = append(conds, cond{"seq <= ?", f.UntilSeq})
	}
	if f.TransportReady != nil {
		conds = append(conds, cond{"transport_ready = ?", *f.TransportReady})
	}

	where, params := compileWhere(conds)
	limit := f.Limit
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means unlimited
	}
	query := fmt.Sprintf(`
		SELECT engine_id, seq, step_count, i_mass, n_mass, u_mass,
		       loop_gain, conservation_error, transport_ready
		FROM metrics
		WHERE %s
		ORDER BY engine_id ASC, seq ASC
		LIMIT ?
	`, where)
	return query, append(params, limit)
}

func (f RewriteFilter) compile() (string, []any) {
	var conds []cond
	if f.EngineID != "" {
		conds = append(conds, cond{"engine_id = ?", f.EngineID})
	}
	if f.RuleID != "" {
		conds = append(conds, cond{"rule_id = ?", f.RuleID})
	}
	if f.Applied != nil {
		conds = append(conds, cond{"applied = ?", *f.Applied})
	}

	where, params := compileWhere(conds)
	query := fmt.Sprintf(`
		SELECT engine_id, seq, rule_id, applied, message
		FROM rewrites
		WHERE %s
		ORDER BY engine_id ASC, seq ASC
	`, where)
	return query, params
}

// QueryMetrics returns metrics rows matching the filter, oldest first.
func (s *Store) QueryMetrics(ctx context.Context, f MetricsFilter) ([]MetricsRow, error) {
	query, params := f.compile()
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var out []MetricsRow
	for rows.Next() {
		var r MetricsRow
		if err := rows.Scan(&r.EngineID, &r.Seq, &r.StepCount, &r.IMass, &r.NMass,
			&r.UMass, &r.LoopGain, &r.ConservationError, &r.TransportReady); err != nil {
			return nil, fmt.Errorf("scan metrics row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics rows: %w", err)
	}
	return out, nil
}

// QueryRewrites returns rewrite audit rows matching the filter, oldest
// first.
func (s *Store) QueryRewrites(ctx context.Context, f RewriteFilter) ([]RewriteRow, error) {
	query, params := f.compile()
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query rewrites: %w", err)
	}
	defer rows.Close()

	var out []RewriteRow
	for rows.Next() {
		var r RewriteRow
		if err := rows.Scan(&r.EngineID, &r.Seq, &r.RuleID, &r.Applied, &r.Message); err != nil {
			return nil, fmt.Errorf("scan rewrite row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rewrite rows: %w", err)
	}
	return out, nil
}
