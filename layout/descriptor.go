package layout

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/q0jt/go-bootlayout/layout/config"
	"github.com/q0jt/go-bootlayout/layout/config/role"
)

// Descriptor declares the regions of an image in placement order.
type Descriptor struct {
	regions []Region
}

func NewDescriptor() *Descriptor {
	return &Descriptor{}
}

// Declare appends r. Problems are reported by Check and Resolve.
func (d *Descriptor) Declare(r Region) *Descriptor {
	d.regions = append(d.regions, r)
	return d
}

// StartText declares the early initialization code region.
func (d *Descriptor) StartText() *Descriptor {
	return d.Declare(Region{Role: role.StartText})
}

func (d *Descriptor) Text() *Descriptor {
	return d.Declare(Region{Role: role.Text})
}

func (d *Descriptor) Data() *Descriptor {
	return d.Declare(Region{Role: role.Data})
}

// DTB declares the devicetree blob region.
func (d *Descriptor) DTB(align uint64) *Descriptor {
	return d.Declare(Region{Role: role.Dtb, Align: align})
}

// BSS declares the zero-initialized data region. Its start and end are
// aligned.
func (d *Descriptor) BSS(align uint64) *Descriptor {
	return d.Declare(Region{Role: role.Bss, Align: align})
}

// StartArena reserves memory for early initialization allocations. It is
// reclaimed together with start text.
func (d *Descriptor) StartArena(align, size uint64) *Descriptor {
	return d.Declare(Region{Role: role.StartArena, Align: align, Size: size})
}

// InitStack reserves the stack of the early initialization code.
func (d *Descriptor) InitStack(align, size uint64) *Descriptor {
	return d.Declare(Region{Role: role.InitStack, Align: align, Size: size})
}

// Heap marks where free memory begins.
func (d *Descriptor) Heap(align uint64) *Descriptor {
	return d.Declare(Region{Role: role.Heap, Align: align})
}

func (d *Descriptor) Regions() []Region {
	return append([]Region(nil), d.regions...)
}

// Check validates the declarations against reg without placing anything.
func (d *Descriptor) Check(reg *Registry) error {
	if len(d.regions) == 0 {
		return fmt.Errorf("%w: no regions declared", ErrOrdering)
	}
	if first := d.regions[0].Role; first != role.StartText {
		return fmt.Errorf("%w: %s declared before %s", ErrOrdering, first, role.StartText)
	}

	seen := make(map[role.Role]bool, len(d.regions))
	var reserved *Region
	var globs []Directive // inclusion of the glob regions declared so far
	for i, r := range d.regions {
		if err := r.check(); err != nil {
			return err
		}
		if seen[r.Role] {
			return fmt.Errorf("%w: %s declared twice", ErrOrdering, r.Role)
		}
		seen[r.Role] = true

		if r.Reserved() {
			if reserved == nil {
				reserved = &d.regions[i]
			}
		} else if reserved != nil {
			return fmt.Errorf("%w: %s declared after reservation %s", ErrOrdering, r.Role, reserved.Role)
		}

		name, err := reg.Name(r.Role)
		if err != nil {
			return err
		}
		if !r.Retained() {
			globs = append(globs, Directive{Name: name, Patterns: r.inclusion(name)})
			continue
		}
		for _, g := range globs {
			for _, pattern := range g.Patterns {
				ok, err := doublestar.Match(pattern, name)
				if err != nil {
					return err
				}
				if ok {
					return fmt.Errorf("%w: %s %s is taken by %s (%s) declared before it", ErrOrdering, r.Role, name, g.Name, pattern)
				}
			}
		}
	}
	return nil
}

// DefaultDescriptor declares every region the registry can name. The
// devicetree and arena regions are left out on architectures without such
// sections.
func DefaultDescriptor(reg *Registry, stackSize, arenaSize uint64) *Descriptor {
	d := NewDescriptor().StartText().Text().Data()
	if reg.Bound(role.Dtb) {
		d.DTB(8)
	}
	d.BSS(16)
	if reg.Bound(role.StartArena) && arenaSize != 0 {
		d.StartArena(4096, arenaSize)
	}
	return d.InitStack(16, stackSize).Heap(16)
}

// DescriptorFromConfig converts pkl region declarations.
func DescriptorFromConfig(decls []*config.RegionDecl) (*Descriptor, error) {
	d := NewDescriptor()
	for i, decl := range decls {
		if decl == nil {
			return nil, fmt.Errorf("region %d: empty declaration", i)
		}
		r := Region{Role: decl.Role}
		if decl.Align != nil {
			r.Align = uint64(*decl.Align)
		}
		if decl.Size != nil {
			bytes := decl.Size.Value * float64(decl.Size.Unit)
			if bytes < 0 || bytes != float64(uint64(bytes)) {
				return nil, fmt.Errorf("%w: %s size %v bytes", ErrSize, decl.Role, bytes)
			}
			r.Size = uint64(bytes)
		}
		if decl.Address != nil {
			r.Address = uint64(*decl.Address)
			r.Fixed = true
		}
		d.Declare(r)
	}
	return d, nil
}

// Directive is the placement rule of one region as given to the linker.
type Directive struct {
	Name    string
	Symbols Symbols

	Address uint64
	Fixed   bool

	NoLoad   bool
	Align    uint64 // before the start
	Trailing uint64 // before the end

	Keep     bool
	Patterns []string // input section names or globs
	Reserve  uint64
}

// Directives checks the descriptor and returns one directive per region in
// declaration order.
func (d *Descriptor) Directives(reg *Registry) ([]Directive, error) {
	if err := d.Check(reg); err != nil {
		return nil, err
	}

	ds := make([]Directive, 0, len(d.regions))
	for _, r := range d.regions {
		name, err := reg.Name(r.Role)
		if err != nil {
			return nil, err
		}
		dir := Directive{
			Name:     name,
			Symbols:  r.Symbols(),
			Address:  r.Address,
			Fixed:    r.Fixed,
			NoLoad:   !r.Loaded(),
			Align:    r.Align,
			Keep:     r.Retained(),
			Patterns: r.inclusion(name),
			Reserve:  r.Size,
		}
		if roles[r.Role].trailing {
			dir.Trailing = r.Align
		}
		ds = append(ds, dir)
	}
	return ds, nil
}
