package layout

import (
	"fmt"

	"github.com/q0jt/go-bootlayout/layout/config/role"
)

type roleInfo struct {
	order  int
	symbol string // boundary symbol stem

	loaded   bool // occupies space in the image file
	retained bool // kept through garbage collection, matched by exact name
	reserve  bool // no input; only address space
	sized    bool // reservation of a fixed byte count
	trailing bool // alignment applied again at the end
	common   bool // collects COMMON symbols
}

var roles = map[role.Role]roleInfo{
	role.StartText:  {order: 0, symbol: "text_start", loaded: true, retained: true},
	role.Text:       {order: 1, symbol: "text", loaded: true},
	role.Data:       {order: 2, symbol: "data", loaded: true},
	role.Dtb:        {order: 3, symbol: "dtb", loaded: true, retained: true},
	role.Bss:        {order: 4, symbol: "bss", trailing: true, common: true},
	role.StartArena: {order: 5, symbol: "arena", reserve: true, sized: true, trailing: true},
	role.InitStack:  {order: 6, symbol: "stack", reserve: true, sized: true, trailing: true},
	role.Heap:       {order: 7, symbol: "heap", reserve: true, trailing: true},
}

// Symbols is the pair of exported names marking the start and end of a
// region.
type Symbols struct {
	Start string
	End   string
}

// SymbolsOf returns the boundary symbols of r. They are the same on every
// architecture.
func SymbolsOf(r role.Role) Symbols {
	stem := roles[r].symbol
	return Symbols{Start: "__" + stem, End: "__e" + stem}
}

// Region is one placement unit of the image.
type Region struct {
	Role role.Role

	// Align is a power of two. Zero means no constraint.
	Align uint64

	// Size of reservation-only regions.
	Size uint64

	// Address fixes the start when Fixed is set.
	Address uint64
	Fixed   bool
}

// Loaded regions occupy space in the image file.
func (r Region) Loaded() bool { return roles[r.Role].loaded }

// Retained regions are reachable only through hardware-driven execution and
// survive unreferenced section elimination.
func (r Region) Retained() bool { return roles[r.Role].retained }

// Reserved regions take no input, only address space.
func (r Region) Reserved() bool { return roles[r.Role].reserve }

func (r Region) Symbols() Symbols { return SymbolsOf(r.Role) }

func (r Region) String() string {
	return string(r.Role)
}

func (r Region) check() error {
	info, ok := roles[r.Role]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRole, r.Role)
	}
	if r.Align != 0 && !isPowerOfTwo(r.Align) {
		return fmt.Errorf("%w: %s align %d", ErrAlignment, r.Role, r.Align)
	}
	if r.Fixed && r.Align != 0 && r.Address%r.Align != 0 {
		return fmt.Errorf("%w: %s address %#x not aligned to %d", ErrAlignment, r.Role, r.Address, r.Align)
	}
	switch {
	case info.sized && r.Size == 0:
		return fmt.Errorf("%w: %s needs a size", ErrSize, r.Role)
	case !info.sized && r.Size != 0:
		return fmt.Errorf("%w: %s takes no size", ErrSize, r.Role)
	}
	return nil
}

// inclusion returns the input section patterns of a region named name.
// Retained regions match their own name exactly.
func (r Region) inclusion(name string) []string {
	info := roles[r.Role]
	switch {
	case info.reserve:
		return nil
	case info.retained:
		return []string{name}
	case info.common:
		return []string{name + "*", "COMMON"}
	default:
		return []string{name + "*"}
	}
}
