package layout

import (
	"fmt"
	"math"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/q0jt/go-bootlayout/layout/config/arch"
	"github.com/q0jt/go-bootlayout/layout/config/role"
	"import.name/pan"
)

// InputSection is a section of a compiled object offered to the layout.
type InputSection struct {
	Name   string
	Object string
	Size   uint64
	Align  uint64
	Data   []byte // nil for sections without file content

	// Symbols defined in the section and visible to other objects.
	Symbols []string
	// Locals are defined in the section and visible only in its object.
	Locals []string
	// Refs are symbols referenced by relocations against the section.
	Refs []string
}

func (in InputSection) String() string {
	if in.Object == "" {
		return in.Name
	}
	return in.Object + "(" + in.Name + ")"
}

// PlacedInput is an input section at its resolved address.
type PlacedInput struct {
	InputSection
	Addr uint64
}

// Placement is a region at its resolved address range.
type Placement struct {
	Region
	Name   string
	Start  uint64
	End    uint64
	Inputs []PlacedInput
}

func (p *Placement) Size() uint64 {
	return p.End - p.Start
}

func (p *Placement) Empty() bool {
	return p.Start == p.End
}

// Overlaps reports whether [start, end) intersects the placement.
func (p *Placement) Overlaps(start, end uint64) bool {
	return start < p.End && p.Start < end
}

// Layout is the resolved image layout in declaration order.
type Layout struct {
	Arch       arch.Arch
	Entry      string
	Placements []Placement

	// Orphans matched no region.
	Orphans []InputSection
	// Discarded were removed as unreferenced.
	Discarded []InputSection
}

func (l *Layout) Placement(r role.Role) (*Placement, bool) {
	for i := range l.Placements {
		if l.Placements[i].Role == r {
			return &l.Placements[i], true
		}
	}
	return nil, false
}

// Symbols maps every boundary symbol to its address.
func (l *Layout) Symbols() map[string]uint64 {
	syms := make(map[string]uint64, len(l.Placements)*2)
	for _, p := range l.Placements {
		s := p.Symbols()
		syms[s.Start] = p.Start
		syms[s.End] = p.End
	}
	return syms
}

// Extent is an address range named by its region.
type Extent struct {
	Role  role.Role
	Start uint64
	End   uint64
}

// Reclaimable returns the early initialization regions, which may be
// handed back to the memory allocator once startup is done.
func (l *Layout) Reclaimable() []Extent {
	var es []Extent
	for _, p := range l.Placements {
		if p.Role == role.StartText || p.Role == role.StartArena {
			es = append(es, Extent{Role: p.Role, Start: p.Start, End: p.End})
		}
	}
	return es
}

// End is the address after the last region.
func (l *Layout) End() uint64 {
	if len(l.Placements) == 0 {
		return 0
	}
	return l.Placements[len(l.Placements)-1].End
}

// Resolve places the regions and inputs starting at the reset address of
// reg. The cursor only moves forward, in declaration order. Each input goes
// to the first region whose inclusion rule matches it.
func (d *Descriptor) Resolve(reg *Registry, inputs []InputSection) (l *Layout, err error) {
	defer func() { err = pan.Error(recover()) }()

	l = d.resolve(reg, inputs)
	return
}

func (d *Descriptor) resolve(reg *Registry, inputs []InputSection) *Layout {
	pan.Check(d.Check(reg))

	r := resolver{
		cursor:   reg.ResetAddr(),
		inputs:   inputs,
		consumed: make([]bool, len(inputs)),
	}

	l := &Layout{Arch: reg.Arch()}
	for i, region := range d.regions {
		name, err := reg.Name(region.Role)
		pan.Check(err)

		p := r.place(region, name, l.Placements)
		if i == 0 && p.Start != reg.ResetAddr() {
			pan.Panic(fmt.Errorf("%w: %s starts at %#x, reset vector is %#x", ErrResetVector, name, p.Start, reg.ResetAddr()))
		}
		l.Placements = append(l.Placements, p)
	}

	for i, in := range inputs {
		if !r.consumed[i] {
			l.Orphans = append(l.Orphans, in)
		}
	}
	return l
}

type resolver struct {
	cursor   uint64
	inputs   []InputSection
	consumed []bool
}

func (r *resolver) place(region Region, name string, prev []Placement) Placement {
	cursor := r.cursor
	if region.Fixed {
		if region.Address < cursor {
			var last string
			if n := len(prev); n > 0 {
				last = prev[n-1].Name
			}
			pan.Panic(fmt.Errorf("%w: %s at %#x, %s ends at %#x", ErrOverlap, name, region.Address, last, cursor))
		}
		cursor = region.Address
	}

	matched := r.match(region, name)

	align := region.Align
	for _, j := range matched {
		align = max(align, inputAlign(r.inputs[j]))
	}

	p := Placement{Region: region, Name: name}
	p.Start = alignAt(name, cursor, align)
	if region.Fixed && p.Start != region.Address {
		pan.Panic(fmt.Errorf("%w: %s at %#x, inputs need alignment %d", ErrAlignment, name, region.Address, align))
	}

	cursor = p.Start
	if region.Reserved() {
		cursor = advance(name, cursor, region.Size)
	} else {
		for _, j := range matched {
			in := r.inputs[j]
			cursor = alignAt(in.String(), cursor, inputAlign(in))
			p.Inputs = append(p.Inputs, PlacedInput{InputSection: in, Addr: cursor})
			cursor = advance(in.String(), cursor, in.Size)
			r.consumed[j] = true
		}
	}
	if roles[region.Role].trailing {
		cursor = alignAt(name, cursor, region.Align)
	}

	p.End = cursor
	r.cursor = cursor
	return p
}

// match returns the indexes of unconsumed inputs selected by the region.
func (r *resolver) match(region Region, name string) []int {
	patterns := region.inclusion(name)
	if len(patterns) == 0 {
		return nil
	}

	var matched []int
	for j, in := range r.inputs {
		if r.consumed[j] {
			continue
		}
		if region.Retained() {
			if in.Name == name {
				matched = append(matched, j)
			}
			continue
		}
		for _, pattern := range patterns {
			ok, err := doublestar.Match(pattern, in.Name)
			pan.Check(err)
			if ok {
				matched = append(matched, j)
				break
			}
		}
	}
	return matched
}

func inputAlign(in InputSection) uint64 {
	if in.Align == 0 {
		return 1
	}
	if !isPowerOfTwo(in.Align) {
		pan.Panic(fmt.Errorf("%w: input %s align %d", ErrAlignment, in, in.Align))
	}
	return in.Align
}

func alignAt(what string, cursor, align uint64) uint64 {
	aligned := alignUp(cursor, align)
	if aligned < cursor {
		pan.Panic(fmt.Errorf("%w: aligning %s at %#x to %d", ErrOverflow, what, cursor, align))
	}
	return aligned
}

func advance(what string, cursor, size uint64) uint64 {
	if size > math.MaxUint64-cursor {
		pan.Panic(fmt.Errorf("%w: %s of %d bytes at %#x", ErrOverflow, what, size, cursor))
	}
	return cursor + size
}
