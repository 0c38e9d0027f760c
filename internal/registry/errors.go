package registry

import "fmt"

// UnknownTaskError is returned when a requested or depended-on task name has
// no registered definition. No run record is written for the unknown name.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task: %s", e.Name)
}

// RunError reports a failed run. It carries the run identifier so callers can
// tell which recorded run failed; a dependency failure surfaces the
// dependency's own RunError unchanged.
type RunError struct {
	RunID string
	Task  string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("task %s failed; run_id=%s: %v", e.Task, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
