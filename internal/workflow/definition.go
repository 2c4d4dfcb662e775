package workflow

import (
	"errors"
	"fmt"

	"github.com/frahmantamala/approval-workflow/internal/rbac"
)

const (
	ActionSubmit         = "submit"
	ActionApprove        = "approve"
	ActionReject         = "reject"
	ActionRequestChanges = "request_changes"
)

// forwardActions move one step along the declared state order; returnActions
// send the instance back to its initial state.
var (
	forwardActions = map[string]bool{ActionSubmit: true, ActionApprove: true}
	returnActions  = map[string]bool{ActionReject: true, ActionRequestChanges: true}
)

type RuleKind string

const (
	RuleNone          RuleKind = "none"
	RuleUnchanged     RuleKind = "unchanged"
	RuleRoleInTenant  RuleKind = "role_in_tenant"
	RuleSpecificActor RuleKind = "specific_actor"
)

// AssigneeRule says who should hold an instance after a transition.
type AssigneeRule struct {
	Kind RuleKind `json:"kind"`
	// Role is the role id for RuleRoleInTenant.
	Role string `json:"role,omitempty"`
	// Expression is "creator" or "entity.<attribute>" for RuleSpecificActor.
	Expression string        `json:"expression,omitempty"`
	Fallback   *AssigneeRule `json:"fallback,omitempty"`
}

func NoAssignee() AssigneeRule {
	return AssigneeRule{Kind: RuleNone}
}

func UnchangedAssignee() AssigneeRule {
	return AssigneeRule{Kind: RuleUnchanged}
}

func RoleInTenant(role string) AssigneeRule {
	return AssigneeRule{Kind: RuleRoleInTenant, Role: role}
}

func SpecificActor(expr string) AssigneeRule {
	return AssigneeRule{Kind: RuleSpecificActor, Expression: expr}
}

// Or returns a copy of r that falls back to next when r resolves to nobody.
func (r AssigneeRule) Or(next AssigneeRule) AssigneeRule {
	r.Fallback = &next
	return r
}

func (r AssigneeRule) validate() error {
	switch r.Kind {
	case RuleNone, RuleUnchanged:
	case RuleRoleInTenant:
		if r.Role == "" {
			return errors.New("role_in_tenant rule without a role")
		}
	case RuleSpecificActor:
		if _, err := parseExpression(r.Expression); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown assignee rule %q", r.Kind)
	}
	if r.Fallback != nil {
		return r.Fallback.validate()
	}
	return nil
}

type State struct {
	Name     string `json:"name"`
	Terminal bool   `json:"terminal"`
}

type Transition struct {
	From     string          `json:"from"`
	Action   string          `json:"action"`
	To       string          `json:"to"`
	Required rbac.Permission `json:"-"`
	Assignee AssigneeRule    `json:"assignee"`
}

// Definition is the state machine for one entity type. States are listed in
// review order; forward actions may only advance one step.
type Definition struct {
	EntityType  string
	Resource    string
	Version     int
	Initial     string
	States      []State
	Transitions []Transition
	// DocumentOn names the terminal state whose entry triggers document generation.
	DocumentOn string

	index map[string]int
	moves map[string]map[string]Transition
}

func (d *Definition) State(name string) (State, bool) {
	i, ok := d.index[name]
	if !ok {
		return State{}, false
	}
	return d.States[i], true
}

func (d *Definition) IsTerminal(name string) bool {
	s, ok := d.State(name)
	return ok && s.Terminal
}

// Lookup finds the transition for action from state.
func (d *Definition) Lookup(state, action string) (Transition, bool) {
	t, ok := d.moves[state][action]
	return t, ok
}

// Outgoing lists the transitions leaving state in declaration order.
func (d *Definition) Outgoing(state string) []Transition {
	var out []Transition
	for _, t := range d.Transitions {
		if t.From == state {
			out = append(out, t)
		}
	}
	return out
}

// compile validates the definition and builds its lookup tables.
func (d *Definition) compile() error {
	if d.EntityType == "" || d.Resource == "" {
		return errors.New("definition needs an entity type and resource")
	}
	if d.Version <= 0 {
		return fmt.Errorf("%s: version must be positive", d.EntityType)
	}

	d.index = make(map[string]int, len(d.States))
	terminals := 0
	for i, s := range d.States {
		if s.Name == "" {
			return fmt.Errorf("%s: state %d has no name", d.EntityType, i)
		}
		if _, dup := d.index[s.Name]; dup {
			return fmt.Errorf("%s: duplicate state %q", d.EntityType, s.Name)
		}
		d.index[s.Name] = i
		if s.Terminal {
			terminals++
		}
	}
	if _, ok := d.index[d.Initial]; !ok {
		return fmt.Errorf("%s: initial state %q is not declared", d.EntityType, d.Initial)
	}
	if d.IsTerminal(d.Initial) {
		return fmt.Errorf("%s: initial state cannot be terminal", d.EntityType)
	}
	if terminals == 0 {
		return fmt.Errorf("%s: needs at least one terminal state", d.EntityType)
	}
	if d.DocumentOn != "" && !d.IsTerminal(d.DocumentOn) {
		return fmt.Errorf("%s: document state %q must be terminal", d.EntityType, d.DocumentOn)
	}

	d.moves = make(map[string]map[string]Transition)
	for _, t := range d.Transitions {
		if err := d.checkTransition(t); err != nil {
			return fmt.Errorf("%s: %s --%s--> %s: %w", d.EntityType, t.From, t.Action, t.To, err)
		}
		if d.moves[t.From] == nil {
			d.moves[t.From] = make(map[string]Transition)
		}
		if _, dup := d.moves[t.From][t.Action]; dup {
			return fmt.Errorf("%s: duplicate action %q from %q", d.EntityType, t.Action, t.From)
		}
		d.moves[t.From][t.Action] = t
	}

	for _, s := range d.States {
		if !s.Terminal && len(d.moves[s.Name]) == 0 {
			return fmt.Errorf("%s: non-terminal state %q has no outgoing transition", d.EntityType, s.Name)
		}
	}

	return d.checkReachable()
}

func (d *Definition) checkTransition(t Transition) error {
	from, ok := d.index[t.From]
	if !ok {
		return errors.New("unknown source state")
	}
	to, ok := d.index[t.To]
	if !ok {
		return errors.New("unknown target state")
	}
	if d.States[from].Terminal {
		return errors.New("terminal states have no outgoing transitions")
	}
	if t.Required.Resource != d.Resource {
		return fmt.Errorf("required permission %q is not on resource %q", t.Required.String(), d.Resource)
	}
	if !t.Required.Scope.Valid() || t.Required.Action == "" {
		return fmt.Errorf("required permission %q is malformed", t.Required.String())
	}

	switch {
	case forwardActions[t.Action]:
		if to != from+1 {
			return errors.New("forward actions must advance exactly one stage")
		}
		if (t.Action == ActionSubmit) != (t.From == d.Initial) {
			return fmt.Errorf("submit is the only forward action from %q", d.Initial)
		}
	case returnActions[t.Action]:
		if t.To != d.Initial {
			return fmt.Errorf("rejections must return to %q", d.Initial)
		}
	default:
		return errors.New("unknown action")
	}

	if d.States[to].Terminal && t.Assignee.Kind != RuleNone {
		return errors.New("transitions into a terminal state cannot assign anyone")
	}
	return t.Assignee.validate()
}

func (d *Definition) checkReachable() error {
	seen := map[string]bool{d.Initial: true}
	queue := []string{d.Initial}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, t := range d.moves[cur] {
			if !seen[t.To] {
				seen[t.To] = true
				queue = append(queue, t.To)
			}
		}
	}
	for _, s := range d.States {
		if !seen[s.Name] {
			return fmt.Errorf("%s: state %q is unreachable from %q", d.EntityType, s.Name, d.Initial)
		}
	}
	return nil
}
