// Package registry holds the task registry and execution engine: named tasks
// with declared dependencies, run in depth-first dependency order, with one
// immutable run record written per execution.
package registry

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/notforyou23/nextgen-system/internal/models"
)

// RunStore is the persistence boundary for run records. The registry is the
// only writer; dashboards read the same table independently.
type RunStore interface {
	InsertRunning(runID, taskName string, triggeredAt time.Time) error
	Finalize(runID string, status models.RunStatus, completedAt time.Time, artifacts, errDetail *string) error
}

// Registry maps task names to definitions and drives execution. It is built
// fresh per process invocation and holds no run history in memory; the run
// store is the single source of truth for what ran and how it ended.
type Registry struct {
	store RunStore
	tasks map[string]*models.TaskDefinition
}

func New(store RunStore) *Registry {
	return &Registry{
		store: store,
		tasks: make(map[string]*models.TaskDefinition),
	}
}

// Register adds or replaces the definition for def.Name. Dependency names are
// not validated here; lookup is deferred to run time so tasks can be
// registered in any order, including forward references.
func (r *Registry) Register(def models.TaskDefinition) {
	r.tasks[def.Name] = &def
}

// List returns all registered task names in ascending lexicographic order.
// The ordering is a stable contract for discovery surfaces.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the definition for name, or an UnknownTaskError.
func (r *Registry) Get(name string) (*models.TaskDefinition, error) {
	def, ok := r.tasks[name]
	if !ok {
		return nil, &UnknownTaskError{Name: name}
	}
	return def, nil
}

// Run executes the named task after running its transitive dependencies,
// depth-first in declared order, each exactly once per call. It returns the
// run identifier of the task's own run, or the empty string if the task was
// already satisfied within this call's chain.
//
// Cyclic dependency graphs are not detected: the walk recurses until the
// stack is exhausted, because cycle members never complete and so never
// enter the executed set.
func (r *Registry) Run(name string) (string, error) {
	return r.run(name, make(map[string]struct{}))
}

func (r *Registry) run(name string, executed map[string]struct{}) (string, error) {
	if _, done := executed[name]; done {
		return "", nil
	}

	def, ok := r.tasks[name]
	if !ok {
		return "", &UnknownTaskError{Name: name}
	}

	for _, dep := range def.Dependencies {
		if _, err := r.run(dep, executed); err != nil {
			return "", err
		}
	}

	runID, err := r.execute(def)
	if err != nil {
		return "", err
	}

	executed[name] = struct{}{}
	return runID, nil
}

// execute records one run of def: insert the RUNNING record, invoke the body,
// and finalize. Finalization happens in a deferred block so the record always
// reaches a terminal state no matter how the body exits.
func (r *Registry) execute(def *models.TaskDefinition) (_ string, err error) {
	runID := newRunID()
	if serr := r.store.InsertRunning(runID, def.Name, time.Now().UTC()); serr != nil {
		return "", fmt.Errorf("record run %s for task %s: %w", runID, def.Name, serr)
	}

	status := models.RunStatusSuccess
	var artifacts, errDetail *string

	defer func() {
		ferr := r.store.Finalize(runID, status, time.Now().UTC(), artifacts, errDetail)
		if ferr != nil && err == nil {
			err = fmt.Errorf("finalize run %s: %w", runID, ferr)
		}
	}()

	result, bodyErr := invoke(def.Body)
	if bodyErr == nil && result != nil {
		data, merr := json.Marshal(result)
		if merr != nil {
			bodyErr = fmt.Errorf("serialize artifacts: %w", merr)
		} else {
			s := string(data)
			artifacts = &s
		}
	}

	if bodyErr != nil {
		status = models.RunStatusFailed
		detail := bodyErr.Error()
		errDetail = &detail
		artifacts = nil
		return "", &RunError{RunID: runID, Task: def.Name, Err: bodyErr}
	}

	return runID, nil
}

// invoke calls the body, converting a panic into an error carrying the stack
// so the failure lands in the run record instead of unwinding past the
// registry.
func invoke(body models.TaskFunc) (result map[string]any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task body panicked: %v\n%s", p, debug.Stack())
		}
	}()
	return body()
}

// newRunID returns a 32-character lowercase hex identifier derived from a
// random UUID.
func newRunID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
