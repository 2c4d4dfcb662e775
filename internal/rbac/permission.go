package rbac

import (
	"fmt"
	"strings"
)

type Scope string

const (
	ScopeOwn          Scope = "own"
	ScopeOrganization Scope = "organization"
	ScopeAll          Scope = "all"
)

// scopeOrder ranks scopes from narrowest to broadest.
var scopeOrder = map[Scope]int{
	ScopeOwn:          1,
	ScopeOrganization: 2,
	ScopeAll:          3,
}

func (s Scope) Valid() bool {
	_, ok := scopeOrder[s]
	return ok
}

// Covers reports whether s is at least as broad as other.
func (s Scope) Covers(other Scope) bool {
	return scopeOrder[s] >= scopeOrder[other] && s.Valid() && other.Valid()
}

// Broader returns the scopes strictly broader than s, narrowest first.
func (s Scope) Broader() []Scope {
	var out []Scope
	for _, candidate := range []Scope{ScopeOwn, ScopeOrganization, ScopeAll} {
		if scopeOrder[candidate] > scopeOrder[s] {
			out = append(out, candidate)
		}
	}
	return out
}

// Permission is a capability of the form resource:action:scope.
type Permission struct {
	Resource string
	Action   string
	Scope    Scope
}

func (p Permission) String() string {
	return p.Resource + ":" + p.Action + ":" + string(p.Scope)
}

// WithScope returns a copy of p at the given scope.
func (p Permission) WithScope(scope Scope) Permission {
	p.Scope = scope
	return p
}

func ParsePermission(raw string) (Permission, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return Permission{}, fmt.Errorf("permission %q must have the form resource:action:scope", raw)
	}
	p := Permission{Resource: parts[0], Action: parts[1], Scope: Scope(parts[2])}
	if p.Resource == "" || p.Action == "" {
		return Permission{}, fmt.Errorf("permission %q has an empty resource or action", raw)
	}
	if !p.Scope.Valid() {
		return Permission{}, fmt.Errorf("permission %q has unknown scope %q", raw, parts[2])
	}
	return p, nil
}

// MustPermission is ParsePermission for compile-time constants.
func MustPermission(raw string) Permission {
	p, err := ParsePermission(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// PermissionSet is an actor's effective permissions keyed by their string form.
type PermissionSet map[string]struct{}

func NewPermissionSet(perms ...string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(permission string) bool {
	_, ok := s[permission]
	return ok
}

// HasAnyOnResource reports whether the set grants any action at any scope on resource.
func (s PermissionSet) HasAnyOnResource(resource string) bool {
	prefix := resource + ":"
	for p := range s {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (s PermissionSet) Slice() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}
