package layout

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ReadObjectFile reads the allocatable sections of a relocatable ELF
// object.
func ReadObjectFile(name string) ([]InputSection, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return ReadObject(name, bytes.NewReader(b))
}

// ReadObject reads the allocatable sections of a relocatable ELF object.
// Symbols and relocation targets are recorded for garbage collection;
// common symbols are gathered into one COMMON input.
func ReadObject(object string, r io.ReaderAt) ([]InputSection, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if f.Type != elf.ET_REL {
		return nil, fmt.Errorf("%s: not a relocatable object (%v)", object, f.Type)
	}

	index := make(map[int]int) // ELF section index to input
	var inputs []InputSection
	for i, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Type == elf.SHT_GROUP {
			continue
		}
		in := InputSection{
			Name:   s.Name,
			Object: object,
			Size:   s.Size,
			Align:  s.Addralign,
		}
		if s.Type != elf.SHT_NOBITS {
			in.Data, err = s.Data()
			if err != nil {
				return nil, fmt.Errorf("%s(%s): %w", object, s.Name, err)
			}
		}
		index[i] = len(inputs)
		inputs = append(inputs, in)
	}

	syms, err := f.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, err
	}

	var common InputSection
	common.Name = "COMMON"
	common.Object = object
	for _, sym := range syms {
		if sym.Section == elf.SHN_COMMON {
			common.Align = max(common.Align, sym.Value)
			common.Size = alignUp(common.Size, max(sym.Value, 1)) + sym.Size
			common.Symbols = append(common.Symbols, sym.Name)
			continue
		}
		j, ok := index[int(sym.Section)]
		if !ok || sym.Name == "" {
			continue
		}
		if elf.ST_BIND(sym.Info) == elf.STB_LOCAL {
			inputs[j].Locals = append(inputs[j].Locals, sym.Name)
		} else {
			inputs[j].Symbols = append(inputs[j].Symbols, sym.Name)
		}
	}

	for _, s := range f.Sections {
		if s.Type != elf.SHT_RELA && s.Type != elf.SHT_REL {
			continue
		}
		j, ok := index[int(s.Info)]
		if !ok {
			continue
		}
		refs, err := relocationSymbols(f, s)
		if err != nil {
			return nil, fmt.Errorf("%s(%s): %w", object, s.Name, err)
		}
		for _, k := range refs {
			if k == 0 || int(k) > len(syms) {
				continue
			}
			sym := syms[k-1] // Symbols omits the null symbol.
			name := sym.Name
			if elf.ST_TYPE(sym.Info) == elf.STT_SECTION && int(sym.Section) < len(f.Sections) {
				name = f.Sections[sym.Section].Name
			}
			if name != "" {
				inputs[j].Refs = append(inputs[j].Refs, name)
			}
		}
	}

	if common.Size > 0 {
		inputs = append(inputs, common)
	}
	return inputs, nil
}

// relocationSymbols returns the symbol table indexes referenced by a
// relocation section.
func relocationSymbols(f *elf.File, s *elf.Section) ([]uint32, error) {
	data, err := s.Data()
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)

	var refs []uint32
	switch {
	case f.Class == elf.ELFCLASS64 && s.Type == elf.SHT_RELA:
		rels := make([]elf.Rela64, len(data)/24)
		if err := binary.Read(r, f.ByteOrder, rels); err != nil {
			return nil, err
		}
		for _, rel := range rels {
			refs = append(refs, elf.R_SYM64(rel.Info))
		}
	case f.Class == elf.ELFCLASS64:
		rels := make([]elf.Rel64, len(data)/16)
		if err := binary.Read(r, f.ByteOrder, rels); err != nil {
			return nil, err
		}
		for _, rel := range rels {
			refs = append(refs, elf.R_SYM64(rel.Info))
		}
	case s.Type == elf.SHT_RELA:
		rels := make([]elf.Rela32, len(data)/12)
		if err := binary.Read(r, f.ByteOrder, rels); err != nil {
			return nil, err
		}
		for _, rel := range rels {
			refs = append(refs, elf.R_SYM32(rel.Info))
		}
	default:
		rels := make([]elf.Rel32, len(data)/8)
		if err := binary.Read(r, f.ByteOrder, rels); err != nil {
			return nil, err
		}
		for _, rel := range rels {
			refs = append(refs, elf.R_SYM32(rel.Info))
		}
	}
	return refs, nil
}
