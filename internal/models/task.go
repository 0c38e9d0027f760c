package models

// TaskFunc is the capability every task body implements: invoked with no
// arguments, it returns an optional structured result (serialized into the
// run record's artifacts) or an error. Bodies that need input close over it.
type TaskFunc func() (map[string]any, error)

// TaskDefinition describes a registered task. Definitions are built once at
// registry-construction time and never mutated afterwards.
type TaskDefinition struct {
	Name         string
	Dependencies []string
	Cadence      string // opaque hint for an external scheduler; the core never interprets it
	Description  string
	Body         TaskFunc
}
