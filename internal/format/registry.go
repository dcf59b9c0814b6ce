package format

import (
	"fmt"
	"strings"
)

// Registry is the ordered list of formats available to a loader. Probing
// walks it in registration order.
//
// The registry also keeps the per-format state the loader needs across
// lines (warned, initialized) so that plugins themselves stay immutable.
type Registry struct {
	formats     []Format
	disabled    map[string]bool
	warned      map[string]bool
	initialized map[string]bool
}

// NewRegistry returns a registry holding formats in the given order.
func NewRegistry(formats ...Format) *Registry {
	r := &Registry{
		disabled:    make(map[string]bool),
		warned:      make(map[string]bool),
		initialized: make(map[string]bool),
	}
	for _, f := range formats {
		r.Register(f)
	}
	return r
}

// Register appends f. Registering a label twice panics.
func (r *Registry) Register(f Format) {
	if _, ok := r.Lookup(f.Params().Label); ok {
		panic("format: duplicate label " + f.Params().Label)
	}
	r.formats = append(r.formats, f)
}

// List returns the formats in registration order.
func (r *Registry) List() []Format {
	return r.formats
}

// Lookup finds a format by label, ignoring case.
func (r *Registry) Lookup(label string) (Format, bool) {
	for _, f := range r.formats {
		if strings.EqualFold(f.Params().Label, label) {
			return f, true
		}
	}
	return nil, false
}

// Disable excludes labels from probing.
func (r *Registry) Disable(labels ...string) {
	for _, l := range labels {
		r.disabled[strings.ToLower(l)] = true
	}
}

// Disabled reports whether a label was disabled.
func (r *Registry) Disabled(label string) bool {
	return r.disabled[strings.ToLower(label)]
}

// Warn records a warning key and reports whether it is new.
func (r *Registry) Warn(key string) bool {
	if r.warned[key] {
		return false
	}
	r.warned[key] = true
	return true
}

// Warned reports whether a warning key was already recorded.
func (r *Registry) Warned(key string) bool {
	return r.warned[key]
}

// Init initializes f once.
func (r *Registry) Init(f Format) error {
	label := f.Params().Label
	if r.initialized[label] {
		return nil
	}
	if in, ok := f.(Initializer); ok {
		if err := in.Init(); err != nil {
			return fmt.Errorf("init format %s: %w", label, err)
		}
	}
	r.initialized[label] = true
	return nil
}
