package state

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/buildgraph/internal/testutil"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(context.Background(), ":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenMigrates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	version, err := store.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	for _, table := range []string{"runs", "node_states"} {
		rows, err := store.db.QueryContext(ctx, "SELECT 1 FROM "+table+" LIMIT 1")
		require.NoError(t, err, table)
		require.NoError(t, rows.Close())
	}
}

func TestSQLiteStore_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	ctx := context.Background()

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(ctx, path))
	run, err := store.CreateRun(ctx, "buildgraph.bgc")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// reopening keeps data and does not re-run migrations
	store = NewSQLiteStore(nil)
	require.NoError(t, store.Open(ctx, path))
	defer store.Close()

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
}

func TestSQLiteStore_NotOpen(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, err := store.CreateRun(ctx, "p")
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = store.CompletedNodes(ctx, "r")
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, store.MarkNode(ctx, "r", "A", NodeStatusCompleted, ""), ErrNotOpen)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "buildgraph.bgc")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Nil(t, run.CompletedAt)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "buildgraph.bgc", got.Program)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))

	require.NoError(t, store.CompleteRun(ctx, run.ID, RunStatusFailed, "node C failed"))

	got, err = store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "node C failed", got.Error)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.CompletedAt.Before(got.StartedAt))
}

func TestSQLiteStore_RunErrors(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.ErrorIs(t, store.CompleteRun(ctx, "missing", RunStatusCompleted, ""), ErrRunNotFound)
	assert.ErrorContains(t, store.CompleteRun(ctx, "missing", RunStatusRunning, ""), "invalid final status")
	assert.ErrorContains(t, store.CompleteRun(ctx, "missing", RunStatus("done"), ""), "invalid final status")
}

func TestSQLiteStore_LatestAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	latest, err := store.GetLatestRun(ctx, "a.bgc")
	require.NoError(t, err)
	assert.Nil(t, latest)

	first, err := store.CreateRun(ctx, "a.bgc")
	require.NoError(t, err)
	_, err = store.CreateRun(ctx, "b.bgc")
	require.NoError(t, err)
	second, err := store.CreateRun(ctx, "a.bgc")
	require.NoError(t, err)

	latest, err = store.GetLatestRun(ctx, "a.bgc")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)

	all, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, first.ID, all[2].ID)
}

func TestSQLiteStore_NodeStates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "buildgraph.bgc")
	require.NoError(t, err)

	marks := []struct {
		node   string
		status NodeStatus
		errMsg string
	}{
		{"A", NodeStatusRunning, ""},
		{"B", NodeStatusCompleted, ""},
		{"A", NodeStatusCompleted, ""},
		{"C", NodeStatusFailed, "exit code 3"},
		{"T", NodeStatusSkipped, ""},
	}
	for _, m := range marks {
		require.NoError(t, store.MarkNode(ctx, run.ID, m.node, m.status, m.errMsg))
	}

	completed, err := store.CompletedNodes(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, completed)

	states, err := store.NodeStates(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, states, 4)
	assert.Equal(t, "C", states[2].Node)
	assert.Equal(t, NodeStatusFailed, states[2].Status)
	assert.Equal(t, "exit code 3", states[2].Error)
	assert.WithinDuration(t, time.Now(), states[2].UpdatedAt, time.Minute)
}

func TestSQLiteStore_MarkNodeErrors(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "buildgraph.bgc")
	require.NoError(t, err)

	tests := []struct {
		name    string
		runID   string
		status  NodeStatus
		setup   func(t *testing.T)
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown run",
			runID:   "missing",
			status:  NodeStatusCompleted,
			wantErr: ErrRunNotFound,
		},
		{
			name:    "invalid status",
			runID:   run.ID,
			status:  NodeStatus("done"),
			wantMsg: "invalid node status",
		},
		{
			name:   "finished run",
			runID:  run.ID,
			status: NodeStatusCompleted,
			setup: func(t *testing.T) {
				require.NoError(t, store.CompleteRun(ctx, run.ID, RunStatusCompleted, ""))
			},
			wantErr: ErrRunFinished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup(t)
			}
			err := store.MarkNode(ctx, tt.runID, "A", tt.status, "")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.ErrorContains(t, err, tt.wantMsg)
			}
		})
	}
}

func TestSQLiteStore_DatabaseFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		call      func(s *SQLiteStore) error
		errMsg    string
	}{
		{
			name: "create run",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO runs")).WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.CreateRun(ctx, "p")
				return err
			},
			errMsg: "failed to create run",
		},
		{
			name: "get run",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("FROM runs WHERE id = ?")).WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.GetRun(ctx, "r")
				return err
			},
			errMsg: "failed to get run",
		},
		{
			name: "list runs",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("FROM runs ORDER BY")).WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.ListRuns(ctx, 5)
				return err
			},
			errMsg: "failed to list runs",
		},
		{
			name: "complete run",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("UPDATE runs")).WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				return s.CompleteRun(ctx, "r", RunStatusCompleted, "")
			},
			errMsg: "failed to complete run",
		},
		{
			name: "mark node",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("FROM runs WHERE id = ?")).
					WillReturnRows(sqlmock.NewRows([]string{"id", "program", "status", "started_at", "completed_at", "error"}).
						AddRow("r", "p", "running", int64(0), nil, nil))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO node_states")).WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				return s.MarkNode(ctx, "r", "A", NodeStatusCompleted, "")
			},
			errMsg: "failed to mark node A",
		},
		{
			name: "completed nodes",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT node FROM node_states")).WillReturnError(assert.AnError)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.CompletedNodes(ctx, "r")
				return err
			},
			errMsg: "failed to get completed nodes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.setupMock(mock)
			err = tt.call(NewSQLiteStoreWithDB(db, testutil.NewTestLogger(t)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.ErrorIs(t, err, assert.AnError)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
