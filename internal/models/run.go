package models

import "time"

type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// RunRecord is one execution attempt of a task. A record is created in
// RUNNING state immediately before the body is invoked and finalized to
// exactly one terminal state; once finalized it is never written again.
type RunRecord struct {
	RunID       string
	TaskName    string
	Status      RunStatus
	TriggeredAt time.Time
	CompletedAt *time.Time
	Artifacts   *string // JSON payload returned by the body, nil if the body returned nothing
	Error       *string // failure message and diagnostic detail, nil unless FAILED
}
