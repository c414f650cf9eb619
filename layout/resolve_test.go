package layout

import (
	"testing"

	"github.com/q0jt/go-bootlayout/layout/config"
	"github.com/q0jt/go-bootlayout/layout/config/arch"
	"github.com/q0jt/go-bootlayout/layout/config/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInputs(t *testing.T, reg *Registry) []InputSection {
	t.Helper()
	start, err := reg.Name(role.StartText)
	require.NoError(t, err)

	inputs := []InputSection{
		{Name: start, Object: "start.o", Size: 0x11a, Align: 4},
		{Name: ".text.kmain", Object: "main.o", Size: 0x533, Align: 16},
		{Name: ".text", Object: "fdt.o", Size: 0x71, Align: 2},
		{Name: ".data", Object: "main.o", Size: 0x21, Align: 8},
		{Name: ".bss.arena", Object: "main.o", Size: 0x7, Align: 32},
		{Name: "COMMON", Object: "fdt.o", Size: 5, Align: 4},
	}
	if dtb, err := reg.Name(role.Dtb); err == nil {
		inputs = append(inputs, InputSection{Name: dtb, Object: "board.dtb", Size: 0x105, Align: 8})
	}
	return inputs
}

func TestResolveAlignment(t *testing.T) {
	for a := range DefaultArchTables() {
		t.Run(a.String(), func(t *testing.T) {
			reg := newRegistry(t, a)
			d := DefaultDescriptor(reg, 0x4000, 0x10000)

			l, err := d.Resolve(reg, sampleInputs(t, reg))
			require.NoError(t, err)
			assert.Empty(t, l.Orphans)

			for _, p := range l.Placements {
				if p.Align != 0 {
					assert.Zero(t, p.Start%p.Align, "%s start %#x", p.Name, p.Start)
				}
				if roles[p.Role].trailing && p.Align != 0 {
					assert.Zero(t, p.End%p.Align, "%s end %#x", p.Name, p.End)
				}
				for _, in := range p.Inputs {
					assert.Zero(t, in.Addr%in.Align, "%s at %#x", in, in.Addr)
					assert.Zero(t, p.Start%in.Align, "%s start %#x", p.Name, p.Start)
					assert.GreaterOrEqual(t, in.Addr, p.Start)
					assert.LessOrEqual(t, in.Addr+in.Size, p.End)
				}
			}
		})
	}
}

func TestResolveOrder(t *testing.T) {
	for a := range DefaultArchTables() {
		t.Run(a.String(), func(t *testing.T) {
			reg := newRegistry(t, a)
			d := DefaultDescriptor(reg, 0x4000, 0x10000)

			l, err := d.Resolve(reg, sampleInputs(t, reg))
			require.NoError(t, err)

			regions := d.Regions()
			require.Len(t, l.Placements, len(regions))
			for i, p := range l.Placements {
				assert.Equal(t, regions[i].Role, p.Role)
				if i > 0 {
					assert.GreaterOrEqual(t, p.Start, l.Placements[i-1].End)
				}
			}
			assert.Equal(t, role.StartText, l.Placements[0].Role)
			assert.Equal(t, reg.ResetAddr(), l.Placements[0].Start)
		})
	}
}

func TestResolveBSSAfterText(t *testing.T) {
	reg := newRegistry(t, arch.Generic)
	d := NewDescriptor().StartText().Text().BSS(8)

	l, err := d.Resolve(reg, []InputSection{
		{Name: ".text.start", Size: 0x1000, Align: 4},
		{Name: ".text", Size: 3, Align: 1},
	})
	require.NoError(t, err)

	text, ok := l.Placement(role.Text)
	require.True(t, ok)
	assert.Equal(t, uint64(0x1003), text.End)

	bss, ok := l.Placement(role.Bss)
	require.True(t, ok)
	assert.Equal(t, uint64(0x1008), bss.Start)
	assert.True(t, bss.Empty())
}

func TestResolveBSSCollectsCommon(t *testing.T) {
	reg := newRegistry(t, arch.Generic)
	d := NewDescriptor().StartText().BSS(16)

	l, err := d.Resolve(reg, []InputSection{
		{Name: ".text.start", Size: 0x10},
		{Name: ".bss", Size: 0x9, Align: 8},
		{Name: "COMMON", Size: 0x4, Align: 4},
	})
	require.NoError(t, err)

	bss, _ := l.Placement(role.Bss)
	require.Len(t, bss.Inputs, 2)
	assert.Equal(t, uint64(0x10), bss.Start)
	assert.Equal(t, uint64(0x1c), bss.Inputs[1].Addr)
	assert.Equal(t, uint64(0x20), bss.End)
}

func TestResolveReservations(t *testing.T) {
	reg := newRegistry(t, arch.RISCV64)
	d := NewDescriptor().StartText().StartArena(4096, 0x10000).InitStack(16, 0x4000).Heap(64)

	l, err := d.Resolve(reg, []InputSection{
		{Name: ".text.start", Size: 0x48},
	})
	require.NoError(t, err)

	syms := l.Symbols()
	assert.Equal(t, uint64(0x8000_0000), syms["__text_start"])
	assert.Equal(t, uint64(0x8000_0048), syms["__etext_start"])
	assert.Equal(t, uint64(0x8000_1000), syms["__arena"])
	assert.Equal(t, uint64(0x8001_1000), syms["__earena"])
	assert.Equal(t, uint64(0x8001_1000), syms["__stack"])
	assert.Equal(t, uint64(0x8001_5000), syms["__estack"])
	assert.Equal(t, syms["__heap"], syms["__eheap"])
	assert.Equal(t, uint64(0x8001_5000), syms["__heap"])

	assert.Equal(t, []Extent{
		{Role: role.StartText, Start: 0x8000_0000, End: 0x8000_0048},
		{Role: role.StartArena, Start: 0x8000_1000, End: 0x8001_1000},
	}, l.Reclaimable())
	assert.Equal(t, uint64(0x8001_5000), l.End())
}

func TestResolveExactRetainedMatch(t *testing.T) {
	reg := newRegistry(t, arch.Generic)
	d := NewDescriptor().StartText().Text()

	l, err := d.Resolve(reg, []InputSection{
		{Name: ".text.start.extra", Size: 8},
		{Name: ".text.start", Size: 4},
	})
	require.NoError(t, err)

	start, _ := l.Placement(role.StartText)
	require.Len(t, start.Inputs, 1)
	assert.Equal(t, ".text.start", start.Inputs[0].Name)

	text, _ := l.Placement(role.Text)
	require.Len(t, text.Inputs, 1)
	assert.Equal(t, ".text.start.extra", text.Inputs[0].Name)
}

func TestResolveOrphans(t *testing.T) {
	reg := newRegistry(t, arch.Generic)
	d := NewDescriptor().StartText().Text()

	l, err := d.Resolve(reg, []InputSection{
		{Name: ".text.start", Size: 4},
		{Name: ".rodata.str1.1", Object: "main.o", Size: 12},
	})
	require.NoError(t, err)
	require.Len(t, l.Orphans, 1)
	assert.Equal(t, "main.o(.rodata.str1.1)", l.Orphans[0].String())
}

func TestResolveFixedAddress(t *testing.T) {
	reg := newRegistry(t, arch.Generic)
	inputs := []InputSection{
		{Name: ".text.start", Size: 0x40},
		{Name: ".text", Size: 0x100},
		{Name: ".data", Size: 0x10},
	}

	d := NewDescriptor().StartText().Text().Declare(Region{Role: role.Data, Fixed: true, Address: 0x2000})
	l, err := d.Resolve(reg, inputs)
	require.NoError(t, err)
	data, _ := l.Placement(role.Data)
	assert.Equal(t, uint64(0x2000), data.Start)

	d = NewDescriptor().StartText().Text().Declare(Region{Role: role.Data, Fixed: true, Address: 0x80})
	_, err = d.Resolve(reg, inputs)
	assert.ErrorIs(t, err, ErrOverlap)
}

func TestResolveRetainedAfterGlob(t *testing.T) {
	reg, err := NewRegistry(arch.Generic, &config.ArchTable{
		Names: map[role.Role]string{
			role.StartText: ".text.start",
			role.Dtb:       ".data.fdt",
		},
	})
	require.NoError(t, err)
	inputs := []InputSection{
		{Name: ".text.start", Size: 4},
		{Name: ".data", Size: 8},
		{Name: ".data.fdt", Object: "board.dtb", Size: 0x40},
	}

	_, err = NewDescriptor().StartText().Data().DTB(8).Resolve(reg, inputs)
	assert.ErrorIs(t, err, ErrOrdering)
	assert.ErrorContains(t, err, ".data.fdt")

	l, err := NewDescriptor().StartText().DTB(8).Data().Resolve(reg, inputs)
	require.NoError(t, err)
	dtb, _ := l.Placement(role.Dtb)
	require.Len(t, dtb.Inputs, 1)
	assert.Equal(t, "board.dtb(.data.fdt)", dtb.Inputs[0].String())
}

func TestResolveFixedAddressAlignment(t *testing.T) {
	reg := newRegistry(t, arch.Generic)
	inputs := []InputSection{
		{Name: ".text.start", Size: 0x40},
		{Name: ".data", Size: 0x10, Align: 16},
	}

	d := NewDescriptor().StartText().Declare(Region{Role: role.Data, Align: 16, Fixed: true, Address: 0x2008})
	_, err := d.Resolve(reg, inputs)
	assert.ErrorIs(t, err, ErrAlignment)

	d = NewDescriptor().StartText().Declare(Region{Role: role.Data, Fixed: true, Address: 0x2008})
	_, err = d.Resolve(reg, inputs)
	assert.ErrorIs(t, err, ErrAlignment)

	d = NewDescriptor().StartText().Declare(Region{Role: role.Data, Align: 16, Fixed: true, Address: 0x2010})
	l, err := d.Resolve(reg, inputs)
	require.NoError(t, err)
	data, _ := l.Placement(role.Data)
	assert.Equal(t, uint64(0x2010), data.Start)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		arch   arch.Arch
		desc   *Descriptor
		inputs []InputSection
		err    error
	}{
		{
			name: "empty",
			desc: NewDescriptor(),
			err:  ErrOrdering,
		},
		{
			name: "text first",
			desc: NewDescriptor().Text().StartText(),
			err:  ErrOrdering,
		},
		{
			name: "content after reservation",
			desc: NewDescriptor().StartText().InitStack(16, 0x1000).Data(),
			err:  ErrOrdering,
		},
		{
			name: "declared twice",
			desc: NewDescriptor().StartText().Text().Text(),
			err:  ErrOrdering,
		},
		{
			name: "region alignment",
			desc: NewDescriptor().StartText().BSS(12),
			err:  ErrAlignment,
		},
		{
			name:   "input alignment",
			desc:   NewDescriptor().StartText().Text(),
			inputs: []InputSection{{Name: ".text.x", Size: 4, Align: 6}},
			err:    ErrAlignment,
		},
		{
			name: "stack without size",
			desc: NewDescriptor().StartText().InitStack(16, 0),
			err:  ErrSize,
		},
		{
			name: "sized text",
			desc: NewDescriptor().StartText().Declare(Region{Role: role.Text, Size: 8}),
			err:  ErrSize,
		},
		{
			name: "unknown role",
			desc: NewDescriptor().StartText().Declare(Region{Role: "rodata"}),
			err:  ErrUnknownRole,
		},
		{
			name: "dtb without binding",
			arch: arch.CortexM,
			desc: NewDescriptor().StartText().DTB(8),
			err:  ErrUnboundRole,
		},
		{
			name: "start text off reset vector",
			desc: NewDescriptor().Declare(Region{Role: role.StartText, Fixed: true, Address: 0x100}),
			err:  ErrResetVector,
		},
		{
			name: "overflow",
			desc: NewDescriptor().StartText().Text(),
			inputs: []InputSection{
				{Name: ".text.a", Size: 1 << 63},
				{Name: ".text.b", Size: 1 << 63},
			},
			err: ErrOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.arch
			if a == "" {
				a = arch.Generic
			}
			l, err := tt.desc.Resolve(newRegistry(t, a), tt.inputs)
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, l)
		})
	}
}
