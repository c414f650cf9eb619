package layout

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"dario.cat/mergo"
	"github.com/q0jt/go-bootlayout/layout/config"
	"github.com/q0jt/go-bootlayout/layout/config/arch"
	"github.com/q0jt/go-bootlayout/layout/config/role"
)

// Names shared by every architecture. Architecture tables may override them.
var commonNames = map[role.Role]string{
	role.Text:      ".text",
	role.Data:      ".data",
	role.Bss:       ".bss",
	role.InitStack: ".stack",
	role.Heap:      ".heap",
}

// NamingEntry binds a role to its physical section name.
type NamingEntry struct {
	Role role.Role
	Name string
}

// Registry is the naming table of one architecture. It is immutable once
// constructed.
type Registry struct {
	arch  arch.Arch
	reset uint64
	names map[role.Role]string
	roles map[string]role.Role
}

// NewRegistry merges the architecture table over the common names. The
// table must bind start-text, and no two roles may share a section name.
func NewRegistry(a arch.Arch, table *config.ArchTable) (*Registry, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: %s", ErrArchNotRegistered, a)
	}
	for r, name := range table.Names {
		if _, ok := roles[r]; !ok {
			return nil, fmt.Errorf("%w: %q in %s table", ErrUnknownRole, r, a)
		}
		if err := checkSectionName(name); err != nil {
			return nil, fmt.Errorf("%s %s: %w", a, r, err)
		}
	}
	if _, ok := table.Names[role.StartText]; !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnboundRole, role.StartText, a)
	}

	names := maps.Clone(commonNames)
	if err := mergo.Merge(&names, table.Names, mergo.WithOverride); err != nil {
		return nil, err
	}

	inverse := make(map[string]role.Role, len(names))
	for _, r := range sortedRoles(names) {
		name := names[r]
		if prev, dup := inverse[name]; dup {
			return nil, fmt.Errorf("%w: %s is used by %s and %s on %s", ErrDuplicateName, name, prev, r, a)
		}
		inverse[name] = r
	}

	return &Registry{
		arch:  a,
		reset: uint64(table.ResetAddr),
		names: names,
		roles: inverse,
	}, nil
}

// RegistryFor builds the registry of an architecture listed in conf.
func RegistryFor(conf *config.BootLayout, a arch.Arch) (*Registry, error) {
	table, err := getArchTable(conf, a)
	if err != nil {
		return nil, err
	}
	return NewRegistry(a, table)
}

func (reg *Registry) Arch() arch.Arch {
	return reg.arch
}

// ResetAddr is where the hardware starts executing; start text is placed
// there.
func (reg *Registry) ResetAddr() uint64 {
	return reg.reset
}

// Name returns the section name bound to r. An unbound role is an error;
// there is no default name.
func (reg *Registry) Name(r role.Role) (string, error) {
	name, ok := reg.names[r]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s", ErrUnboundRole, r, reg.arch)
	}
	return name, nil
}

// Bound reports whether r has a section name.
func (reg *Registry) Bound(r role.Role) bool {
	_, ok := reg.names[r]
	return ok
}

// Role is the inverse of Name.
func (reg *Registry) Role(name string) (role.Role, bool) {
	r, ok := reg.roles[name]
	return r, ok
}

// Bindings lists the naming entries in role declaration order.
func (reg *Registry) Bindings() []NamingEntry {
	entries := make([]NamingEntry, 0, len(reg.names))
	for _, r := range sortedRoles(reg.names) {
		entries = append(entries, NamingEntry{Role: r, Name: reg.names[r]})
	}
	return entries
}

func sortedRoles(names map[role.Role]string) []role.Role {
	rs := slices.Collect(maps.Keys(names))
	slices.SortFunc(rs, func(a, b role.Role) int {
		return roles[a].order - roles[b].order
	})
	return rs
}

func checkSectionName(name string) error {
	if name == "" || strings.ContainsAny(name, " \t\r\n(){};:,\"") {
		return fmt.Errorf("%w: %q", ErrSectionName, name)
	}
	return nil
}
