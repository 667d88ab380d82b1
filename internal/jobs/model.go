// Package jobs implements the priority/dependency-aware, retry-capable,
// crash-recoverable asynchronous task scheduler: JobSpec/JobState, the
// JobQueue, cancellation, persistence, and the dispatch loop.
package jobs

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is a job's stable 128-bit identity.
type ID = uuid.UUID

// NewID generates a fresh job id.
func NewID() ID { return uuid.New() }

// Priority orders ready jobs within the dispatch heap, highest first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityNormal:
		return "Normal"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// RetryPolicy bounds how many times a failed job is retried and how long to
// wait before each re-enqueue.
type RetryPolicy struct {
	MaxRetries uint8 `json:"max_retries"`
	DelayMS    int64 `json:"delay_ms"`
}

// KindTag discriminates JobKind. Exactly the matching fields on JobKind are
// populated for a given tag.
type KindTag string

const (
	KindCopy        KindTag = "copy"
	KindMove        KindTag = "move"
	KindDeleteTree  KindTag = "delete-tree"
	KindIndexScan   KindTag = "index-scan"
	KindRebuildIdx  KindTag = "rebuild-index"
	KindThumbnail   KindTag = "thumbnail"
)

// JobKind is the tagged union of asynchronous work this scheduler runs.
type JobKind struct {
	Tag KindTag `json:"tag"`

	// copy / move
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Conflict string `json:"conflict,omitempty"`

	// delete-tree / index-scan
	Target string `json:"target,omitempty"`

	// thumbnail
	File string `json:"file,omitempty"`
	Size uint32 `json:"size,omitempty"`
}

func (k JobKind) String() string {
	return fmt.Sprintf("%s(%s%s)", k.Tag, k.From, k.To)
}

// JobSpec is the immutable intent behind a job: what to do, at what
// priority, with what retry budget, after which dependencies.
type JobSpec struct {
	ID            ID       `json:"id"`
	Kind          JobKind  `json:"kind"`
	Priority      Priority `json:"priority"`
	Retry         RetryPolicy `json:"retry"`
	Dependencies  []ID     `json:"dependencies"`
	CreatedAtUnix int64    `json:"created_at_unix"`
}

// Status is the closed set of legal JobState.Status values.
type Status string

const (
	StatusQueued              Status = "Queued"
	StatusWaitingDependencies Status = "WaitingDependencies"
	StatusRunning             Status = "Running"
	StatusCompleted           Status = "Completed"
	StatusFailed              Status = "Failed"
	StatusCancelled           Status = "Cancelled"
)

// State is a job's mutable lifecycle, persisted alongside its spec.
type State struct {
	Status     Status `json:"status"`
	Reason     string `json:"reason,omitempty"`     // set when Status == Failed
	Unresolved []ID   `json:"unresolved,omitempty"` // set when Status == WaitingDependencies

	CreatedAtUnix  int64  `json:"created_at_unix"`
	StartedAtUnix  *int64 `json:"started_at_unix,omitempty"`
	FinishedAtUnix *int64 `json:"finished_at_unix,omitempty"`
	LastProgressAt *int64 `json:"last_progress_unix,omitempty"`

	Attempts uint8  `json:"attempts"`
	Done     uint64 `json:"done"`
	Total    uint64 `json:"total"`

	ReadyAtUnix int64 `json:"ready_at_unix"`
}

// resetForRetry clears timestamps and progress and moves the state back to
// Queued, per spec §4.6 ("Failed → Queued (on retry reset, clears
// timestamps and progress)").
func (s *State) resetForRetry(readyAtUnix int64) {
	s.Status = StatusQueued
	s.Reason = ""
	s.StartedAtUnix = nil
	s.FinishedAtUnix = nil
	s.LastProgressAt = nil
	s.Done = 0
	s.Total = 0
	s.ReadyAtUnix = readyAtUnix
}
