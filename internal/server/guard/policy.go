package guard

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dmitrijs2005/filmkeeper/internal/server/models"
)

type requirementKind int

const (
	kindPublic requirementKind = iota
	kindAuthenticated
	kindRoles
)

// Requirement is what an operation demands of its caller: nothing (public),
// any valid identity, or membership in a role set.
type Requirement struct {
	kind  requirementKind
	roles mapset.Set[models.Role]
}

// Public requires nothing.
func Public() Requirement {
	return Requirement{kind: kindPublic}
}

// Authenticated requires a valid token for an existing user, whatever its role.
func Authenticated() Requirement {
	return Requirement{kind: kindAuthenticated}
}

// Roles requires one of the given roles. Admins always pass.
// It panics on an empty or unknown role list, since policies are built
// at start-up from constants.
func Roles(roles ...models.Role) Requirement {
	if len(roles) == 0 {
		panic("guard: Roles requires at least one role")
	}
	set := mapset.NewThreadUnsafeSet[models.Role]()
	for _, r := range roles {
		if !r.Valid() {
			panic(fmt.Sprintf("guard: unknown role %q", r))
		}
		set.Add(r)
	}
	return Requirement{kind: kindRoles, roles: set}
}

func (r Requirement) IsPublic() bool { return r.kind == kindPublic }

// RequiredRoles returns the sorted role set, or nil when no role is demanded.
func (r Requirement) RequiredRoles() []models.Role {
	if r.kind != kindRoles {
		return nil
	}
	out := r.roles.ToSlice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r Requirement) String() string {
	switch r.kind {
	case kindPublic:
		return "public"
	case kindAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("roles%v", r.RequiredRoles())
	}
}

// Permits reports whether a user holding current satisfies required.
// Admin satisfies every requirement.
func Permits(current models.Role, required mapset.Set[models.Role]) bool {
	if current == models.RoleAdmin {
		return true
	}
	return required != nil && required.Contains(current)
}

// Policy maps operation names to requirements. It is filled before
// serving starts and only read afterwards.
//
//	policy := guard.NewPolicy().
//	    Public("POST /api/v1/auth/login").
//	    Require("GET /api/v1/users", models.RoleAdmin).
//	    Default(guard.Authenticated())
type Policy struct {
	rules map[string]Requirement
	def   Requirement
}

// NewPolicy returns an empty policy whose default is Public.
func NewPolicy() *Policy {
	return &Policy{rules: make(map[string]Requirement), def: Public()}
}

func (p *Policy) Set(operation string, req Requirement) *Policy {
	p.rules[operation] = req
	return p
}

func (p *Policy) Public(operation string) *Policy {
	return p.Set(operation, Public())
}

func (p *Policy) Authenticated(operation string) *Policy {
	return p.Set(operation, Authenticated())
}

func (p *Policy) Require(operation string, roles ...models.Role) *Policy {
	return p.Set(operation, Roles(roles...))
}

// Default sets the requirement of operations without an explicit rule.
func (p *Policy) Default(req Requirement) *Policy {
	p.def = req
	return p
}

// Resolve returns the requirement for operation.
func (p *Policy) Resolve(operation string) Requirement {
	if req, ok := p.rules[operation]; ok {
		return req
	}
	return p.def
}

// Operations lists the operations with explicit rules, sorted.
func (p *Policy) Operations() []string {
	ops := make([]string, 0, len(p.rules))
	for op := range p.rules {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
