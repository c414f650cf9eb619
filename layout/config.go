package layout

import (
	"context"
	"fmt"

	"github.com/q0jt/go-bootlayout/layout/config"
	"github.com/q0jt/go-bootlayout/layout/config/arch"
	"github.com/q0jt/go-bootlayout/layout/config/role"
)

const DefaultEntry = "_start"

// DefaultArchTables returns the built-in naming tables.
func DefaultArchTables() map[arch.Arch]*config.ArchTable {
	return map[arch.Arch]*config.ArchTable{
		arch.Generic: {
			ResetAddr: 0x0,
			Names: map[role.Role]string{
				role.StartText:  ".text.start",
				role.Dtb:        ".dtb.rodata",
				role.StartArena: ".start.arena",
			},
		},
		arch.RISCV64: {
			ResetAddr: 0x8000_0000,
			Names: map[role.Role]string{
				role.StartText:  ".text.start",
				role.Dtb:        ".dtb.rodata",
				role.StartArena: ".start.arena",
			},
		},
		arch.AArch64: {
			ResetAddr: 0x4008_0000,
			Names: map[role.Role]string{
				role.StartText:  ".text.head",
				role.Dtb:        ".rodata.fdt",
				role.StartArena: ".start.arena",
			},
		},
		// Cortex-M boots from its vector table and has no devicetree.
		arch.CortexM: {
			ResetAddr: 0x0,
			Names: map[role.Role]string{
				role.StartText: ".text.vectors",
			},
		},
	}
}

// DefaultConfig is used when no pkl module is given. It declares no
// regions, selecting DefaultDescriptor.
func DefaultConfig() *config.BootLayout {
	return &config.BootLayout{
		Entry:         DefaultEntry,
		Architectures: DefaultArchTables(),
	}
}

// LoadConfig evaluates the pkl module at path, or returns DefaultConfig if
// path is empty.
func LoadConfig(ctx context.Context, path string) (*config.BootLayout, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	conf, err := config.LoadFromPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if conf.Entry == "" {
		conf.Entry = DefaultEntry
	}
	return conf, nil
}

func getArchTable(conf *config.BootLayout, a arch.Arch) (*config.ArchTable, error) {
	for chip, table := range conf.Architectures {
		if chip != a {
			continue
		}
		return table, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrArchNotRegistered, a)
}

// ConfigDescriptor returns the regions declared in conf, or the default
// regions of reg when conf declares none.
func ConfigDescriptor(conf *config.BootLayout, reg *Registry, stackSize, arenaSize uint64) (*Descriptor, error) {
	if len(conf.Regions) == 0 {
		return DefaultDescriptor(reg, stackSize, arenaSize), nil
	}
	return DescriptorFromConfig(conf.Regions)
}
