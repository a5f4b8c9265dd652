package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// MarkNode records the status of node in a running run. A later mark
// replaces an earlier one.
func (s *SQLiteStore) MarkNode(ctx context.Context, runID, node string, status NodeStatus, errMsg string) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if !status.Valid() {
		return fmt.Errorf("invalid node status %q", status)
	}

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status != RunStatusRunning {
		return fmt.Errorf("%w: %s is %s", ErrRunFinished, runID, run.Status)
	}

	var errValue sql.NullString
	if errMsg != "" {
		errValue = sql.NullString{String: errMsg, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO node_states (run_id, node, status, updated_at, error)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_id, node) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at,
			error = excluded.error`,
		runID, node, string(status), toMillis(time.Now()), errValue,
	)
	if err != nil {
		return fmt.Errorf("failed to mark node %s: %w", node, err)
	}

	s.logger.Debug("node marked",
		slog.String("run", runID),
		slog.String("node", node),
		slog.String("status", string(status)))
	return nil
}

// CompletedNodes returns the nodes of a run whose last status is completed,
// in the order they were first marked.
func (s *SQLiteStore) CompletedNodes(ctx context.Context, runID string) ([]string, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT node FROM node_states WHERE run_id = ? AND status = ? ORDER BY rowid`,
		runID, string(NodeStatusCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get completed nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []string
	for rows.Next() {
		var node string
		if err := rows.Scan(&node); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// NodeStates returns every recorded node state of a run.
func (s *SQLiteStore) NodeStates(ctx context.Context, runID string) ([]*NodeState, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, node, status, updated_at, error FROM node_states WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get node states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []*NodeState
	for rows.Next() {
		var (
			st        NodeState
			status    string
			updatedAt int64
			errMsg    sql.NullString
		)
		if err := rows.Scan(&st.RunID, &st.Node, &status, &updatedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan node state: %w", err)
		}
		st.Status = NodeStatus(status)
		st.UpdatedAt = fromMillis(updatedAt)
		st.Error = errMsg.String
		states = append(states, &st)
	}
	return states, rows.Err()
}
