package workflow

import (
	"fmt"
	"sort"

	"github.com/frahmantamala/approval-workflow/internal"
)

// Registry holds the compiled definitions. It is read-only after construction.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry compiles and validates every definition. A single invalid
// definition fails the whole registry.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := d.compile(); err != nil {
			return nil, err
		}
		if _, dup := r.defs[d.EntityType]; dup {
			return nil, fmt.Errorf("duplicate definition for %q", d.EntityType)
		}
		r.defs[d.EntityType] = d
	}
	return r, nil
}

func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(ContractDefinition(), LeaveRequestDefinition(), LetterDefinition())
}

func (r *Registry) Get(entityType string) (*Definition, error) {
	d, ok := r.defs[entityType]
	if !ok {
		return nil, internal.ErrUnknownEntityType.WithDetails(map[string]string{"entityType": entityType})
	}
	return d, nil
}

// Lookup resolves the transition for action from state of entityType.
func (r *Registry) Lookup(entityType, state, action string) (Transition, error) {
	d, err := r.Get(entityType)
	if err != nil {
		return Transition{}, err
	}
	t, ok := d.Lookup(state, action)
	if !ok {
		return Transition{}, internal.ErrInvalidTransition.WithDetails(map[string]string{
			"state":  state,
			"action": action,
		})
	}
	return t, nil
}

// Definitions returns all definitions ordered by entity type.
func (r *Registry) Definitions() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityType < out[j].EntityType })
	return out
}
