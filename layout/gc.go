package layout

import "fmt"

// CollectGarbage drops input sections which cannot be reached from the
// entry symbol, like the linker's section garbage collection. Sections
// selected by a retained region are roots even when nothing refers to them:
// hardware reaches them, not code.
//
// References are resolved within the same object first, then against
// global definitions. Section names count as definitions within their
// object.
func (d *Descriptor) CollectGarbage(reg *Registry, inputs []InputSection, entry string) (kept, discarded []InputSection, err error) {
	if err := d.Check(reg); err != nil {
		return nil, nil, err
	}

	keep := make(map[string]bool)
	for _, r := range d.regions {
		if r.Retained() {
			name, err := reg.Name(r.Role)
			if err != nil {
				return nil, nil, err
			}
			keep[name] = true
		}
	}

	global := make(map[string]int)
	local := make(map[string]map[string]int)
	for i, in := range inputs {
		defs := local[in.Object]
		if defs == nil {
			defs = make(map[string]int)
			local[in.Object] = defs
		}
		if _, ok := defs[in.Name]; !ok {
			defs[in.Name] = i
		}
		for _, sym := range in.Locals {
			defs[sym] = i
		}
		for _, sym := range in.Symbols {
			defs[sym] = i
			if _, ok := global[sym]; !ok {
				global[sym] = i
			}
		}
	}

	lookup := func(object, sym string) (int, bool) {
		if i, ok := local[object][sym]; ok {
			return i, true
		}
		i, ok := global[sym]
		return i, ok
	}

	live := make([]bool, len(inputs))
	var work []int
	mark := func(i int) {
		if !live[i] {
			live[i] = true
			work = append(work, i)
		}
	}

	for i, in := range inputs {
		if keep[in.Name] {
			mark(i)
		}
	}
	if entry != "" {
		i, ok := global[entry]
		if !ok {
			return nil, nil, fmt.Errorf("entry symbol %s is not defined", entry)
		}
		mark(i)
	}

	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		for _, ref := range inputs[i].Refs {
			if j, ok := lookup(inputs[i].Object, ref); ok {
				mark(j)
			}
		}
	}

	for i, in := range inputs {
		if live[i] {
			kept = append(kept, in)
		} else {
			discarded = append(discarded, in)
		}
	}
	return kept, discarded, nil
}

// Link collects garbage when gc is set and resolves the layout of the
// surviving inputs.
func (d *Descriptor) Link(reg *Registry, inputs []InputSection, entry string, gc bool) (*Layout, error) {
	kept := inputs
	var discarded []InputSection
	if gc {
		var err error
		kept, discarded, err = d.CollectGarbage(reg, inputs, entry)
		if err != nil {
			return nil, err
		}
	}

	l, err := d.Resolve(reg, kept)
	if err != nil {
		return nil, err
	}
	l.Entry = entry
	l.Discarded = discarded
	return l, nil
}
