// Package transform provides the closed dispatch library of whitelisted
// column transformations used by derived-variable formulas and sandboxed
// scripts. The registry is populated at init and read-only afterwards, so
// it is safe for concurrent use from any number of requests.
package transform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/marinad-syro/inferra/pkg/table"
)

// Param declares one parameter of a transformation (after the implicit
// table argument).
type Param struct {
	Name     string
	Required bool
	Default  any
}

// Transformation is one registry entry: a pure function from a table plus
// bound arguments to a single column aligned to the table's rows.
type Transformation struct {
	Name    string
	Summary string
	Params  []Param
	Fn      func(t *table.Table, args map[string]any) ([]table.Value, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Transformation)
)

// register adds a transformation to the global registry. Called from init.
func register(tr *Transformation) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[tr.Name] = tr
}

// Get returns a transformation by name.
func Get(name string) (*Transformation, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	tr, ok := registry[name]
	return tr, ok
}

// IsRegistered reports whether name is a known transformation.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// Names returns all registered transformation names (sorted).
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch binds positional and keyword arguments against the named
// transformation's declared parameters, validates arity, and invokes it.
func Dispatch(t *table.Table, name string, args []any, kwargs map[string]any) ([]table.Value, error) {
	tr, ok := Get(name)
	if !ok {
		return nil, &UnknownTransformationError{Name: name, Available: Names()}
	}

	bound, err := tr.bind(args, kwargs)
	if err != nil {
		return nil, err
	}
	return tr.Fn(t, bound)
}

// bind maps positional + keyword arguments onto declared parameters.
func (tr *Transformation) bind(args []any, kwargs map[string]any) (map[string]any, error) {
	if len(args) > len(tr.Params) {
		return nil, &InvalidArgumentError{
			Fn:      tr.Name,
			Message: fmt.Sprintf("takes at most %d arguments, got %d", len(tr.Params), len(args)),
		}
	}

	bound := make(map[string]any, len(tr.Params))
	for i, arg := range args {
		bound[tr.Params[i].Name] = arg
	}

	for key, val := range kwargs {
		param := tr.param(key)
		if param == nil {
			return nil, &InvalidArgumentError{
				Fn:      tr.Name,
				Message: fmt.Sprintf("unexpected keyword argument %q", key),
			}
		}
		if _, dup := bound[key]; dup {
			return nil, &InvalidArgumentError{
				Fn:      tr.Name,
				Message: fmt.Sprintf("got multiple values for argument %q", key),
			}
		}
		bound[key] = val
	}

	for _, p := range tr.Params {
		if _, ok := bound[p.Name]; ok {
			continue
		}
		if p.Required {
			return nil, &InvalidArgumentError{
				Fn:      tr.Name,
				Message: fmt.Sprintf("missing required argument %q", p.Name),
			}
		}
		bound[p.Name] = p.Default
	}

	return bound, nil
}

func (tr *Transformation) param(name string) *Param {
	for i := range tr.Params {
		if tr.Params[i].Name == name {
			return &tr.Params[i]
		}
	}
	return nil
}
