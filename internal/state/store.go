// Package state records build runs and the nodes each run has finished.
// A recorded run supplies the completed node set that schedule exports
// leave out.
package state

import (
	"context"
	"errors"
	"time"
)

// RunStatus represents the status of a build run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// Run is one build of a program.
type Run struct {
	ID          string
	Program     string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// NodeStatus represents the status of one node within a run.
type NodeStatus string

// Node status constants.
const (
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusSkipped   NodeStatus = "skipped"
)

// Valid reports whether s is a known status.
func (s NodeStatus) Valid() bool {
	switch s {
	case NodeStatusRunning, NodeStatusCompleted, NodeStatusFailed, NodeStatusSkipped:
		return true
	}
	return false
}

// NodeState is the last recorded status of a node in a run.
type NodeState struct {
	RunID     string
	Node      string
	Status    NodeStatus
	UpdatedAt time.Time
	Error     string
}

// Store persists runs and node states.
type Store interface {
	CreateRun(ctx context.Context, program string) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	GetLatestRun(ctx context.Context, program string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, errMsg string) error

	MarkNode(ctx context.Context, runID, node string, status NodeStatus, errMsg string) error
	CompletedNodes(ctx context.Context, runID string) ([]string, error)
	NodeStates(ctx context.Context, runID string) ([]*NodeState, error)

	Close() error
}

var (
	// ErrNotOpen is returned when the store is used before Open.
	ErrNotOpen = errors.New("database not opened")
	// ErrRunNotFound is returned for an unknown run ID.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunFinished is returned when marking nodes on a finished run.
	ErrRunFinished = errors.New("run already finished")
)
