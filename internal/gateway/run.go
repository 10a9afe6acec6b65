package gateway

import (
	"context"
	"time"

	"github.com/user/artifactchat/internal/types"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run tracks one pending assistant reply. Its context is cancelled when
// the reply is superseded or the chat stops.
type Run struct {
	ID        types.RunID
	Request   types.ReplyRequest
	Status    RunStatus
	Attempts  int
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	Error     error

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRun creates a Run in the Queued state for req.
func NewRun(req types.ReplyRequest) *Run {
	return &Run{
		ID:        types.NewRunID(),
		Request:   req,
		Status:    RunStatusQueued,
		CreatedAt: time.Now(),
	}
}

// Cancel aborts the run. A cancelled run never appends a reply.
func (r *Run) Cancel() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Cancelled reports whether the run was aborted.
func (r *Run) Cancelled() bool {
	return r.ctx != nil && r.ctx.Err() != nil
}

func (r *Run) start() {
	now := time.Now()
	r.StartedAt = &now
	r.Status = RunStatusRunning
}

func (r *Run) finish(status RunStatus, err error) {
	now := time.Now()
	r.EndedAt = &now
	r.Status = status
	r.Error = err
}
