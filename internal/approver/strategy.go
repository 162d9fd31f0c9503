// Package approver computes who may act on a workflow step.
package approver

import "fmt"

// Strategy is a closed set of approver resolution strategies. The unexported
// marker method keeps other packages from adding variants, so the type switch
// in Resolver.resolve stays exhaustive.
type Strategy interface {
	isStrategy()
	Name() string
}

// Manager resolves to the subject creator's direct manager.
type Manager struct{}

// Role resolves to active holders of any listed role that grants the step's permission.
type Role struct {
	RoleIDs []int64
}

// Permission resolves to active holders of the step's permission through any role.
type Permission struct{}

// Combined is the union of its parts.
type Combined struct {
	Strategies []Strategy
}

func (Manager) isStrategy()    {}
func (Role) isStrategy()       {}
func (Permission) isStrategy() {}
func (Combined) isStrategy()   {}

func (Manager) Name() string    { return "manager" }
func (Role) Name() string       { return "role" }
func (Permission) Name() string { return "permission" }
func (Combined) Name() string   { return "combined" }

// ParseStrategy turns the stored (approver_strategy, include_manager,
// required_roles) triple into a Strategy. combined always covers manager,
// role and permission; include_manager adds the manager to role or
// permission.
func ParseStrategy(name string, includeManager bool, roleIDs []int64) (Strategy, error) {
	withManager := func(s Strategy) Strategy {
		if !includeManager {
			return s
		}
		return Combined{Strategies: []Strategy{Manager{}, s}}
	}

	switch name {
	case "manager":
		return Manager{}, nil
	case "role":
		if len(roleIDs) == 0 {
			return nil, fmt.Errorf("role strategy needs at least one role")
		}
		return withManager(Role{RoleIDs: append([]int64(nil), roleIDs...)}), nil
	case "permission":
		return withManager(Permission{}), nil
	case "combined":
		if len(roleIDs) == 0 {
			return nil, fmt.Errorf("combined strategy needs at least one role")
		}
		return Combined{Strategies: []Strategy{
			Manager{},
			Role{RoleIDs: append([]int64(nil), roleIDs...)},
			Permission{},
		}}, nil
	}
	return nil, fmt.Errorf("unknown approver strategy %q", name)
}

// RoleIDs lists every role referenced anywhere in s.
func RoleIDs(s Strategy) []int64 {
	switch v := s.(type) {
	case Role:
		return v.RoleIDs
	case Combined:
		var out []int64
		for _, part := range v.Strategies {
			out = append(out, RoleIDs(part)...)
		}
		return out
	}
	return nil
}
