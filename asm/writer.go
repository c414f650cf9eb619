// Package asm emits GNU assembler directives for hand-written startup code:
// section selection and framing of global routines.
package asm

import (
	"fmt"
	"io"
	"strings"

	"github.com/q0jt/go-bootlayout/layout/config/role"
)

// SectionType is the ELF type of a section being introduced.
type SectionType int

const (
	Progbits SectionType = iota + 1 // contents are program-defined
	Nobits                          // occupies no space in the file
)

func (t SectionType) String() string {
	switch t {
	case Progbits:
		return "%progbits"
	case Nobits:
		return "%nobits"
	}
	return fmt.Sprintf("SectionType(%d)", int(t))
}

// Attr is a set of section attributes.
type Attr uint8

const (
	Write Attr = 1 << iota
	Alloc
	Exec
)

// String returns the assembler flag letters.
func (a Attr) String() string {
	var b strings.Builder
	if a&Alloc != 0 {
		b.WriteByte('a')
	}
	if a&Write != 0 {
		b.WriteByte('w')
	}
	if a&Exec != 0 {
		b.WriteByte('x')
	}
	return b.String()
}

// Namer resolves section roles, see layout.Registry.
type Namer interface {
	Name(role.Role) (string, error)
}

// Writer writes directives to an underlying writer. Routines are flat:
// every BeginRoutine is closed by the EndRoutine of the same name before the
// next one begins.
type Writer struct {
	w   io.Writer
	err error

	routine    string
	defined    map[string]bool
	introduced map[string]bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:          w,
		defined:    make(map[string]bool),
		introduced: make(map[string]bool),
	}
}

// SelectSection assembles the following code into an existing section.
func (w *Writer) SelectSection(name string) error {
	if err := checkSection(name); err != nil {
		return err
	}
	return w.printf(".section %s\n", name)
}

// SelectRole selects the section bound to r.
func (w *Writer) SelectRole(names Namer, r role.Role) error {
	name, err := names.Name(r)
	if err != nil {
		return err
	}
	return w.SelectSection(name)
}

// IntroduceSection declares a section with its type and attributes and
// assembles the following code into it. A section is introduced once; use
// SelectSection to return to it.
func (w *Writer) IntroduceSection(name string, typ SectionType, attr Attr) error {
	if err := checkSection(name); err != nil {
		return err
	}
	if typ != Progbits && typ != Nobits {
		return fmt.Errorf("%w: %v", ErrSectionType, typ)
	}
	if w.introduced[name] {
		return fmt.Errorf("%w: %s", ErrSectionIntroduced, name)
	}
	w.introduced[name] = true
	return w.printf(".section %s, %q, %s\n", name, attr.String(), typ)
}

// BeginRoutine declares a global function symbol and its label.
func (w *Writer) BeginRoutine(name string) error {
	if err := checkSymbol(name); err != nil {
		return err
	}
	if w.routine != "" {
		return fmt.Errorf("%w: %s begins inside %s", ErrRoutineOpen, name, w.routine)
	}
	if w.defined[name] {
		return fmt.Errorf("%w: %s", ErrRoutineDefined, name)
	}
	w.routine = name
	w.defined[name] = true
	return w.printf(".globl\t%s\n.type\t%s, %%function\n%s:\n", name, name, name)
}

// EndRoutine records the size of the routine from its label to the current
// location.
func (w *Writer) EndRoutine(name string) error {
	switch w.routine {
	case "":
		return fmt.Errorf("%w: %s", ErrNoRoutine, name)
	case name:
	default:
		return fmt.Errorf("%w: %s ends %s", ErrRoutineMismatch, name, w.routine)
	}
	w.routine = ""
	return w.printf(".size\t%s, .-%s\n", name, name)
}

// Emit writes one indented line of routine body as is.
func (w *Writer) Emit(line string) error {
	return w.printf("\t%s\n", line)
}

// Close fails if a routine was left open. The underlying writer is not
// closed.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if w.routine != "" {
		return fmt.Errorf("%w: %s", ErrRoutineOpen, w.routine)
	}
	return nil
}

func (w *Writer) printf(format string, args ...any) error {
	if w.err != nil {
		return w.err
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
	return w.err
}

func checkSymbol(name string) error {
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		return fmt.Errorf("%w: %q", ErrSymbol, name)
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '.', c == '$':
		default:
			return fmt.Errorf("%w: %q", ErrSymbol, name)
		}
	}
	return nil
}

func checkSection(name string) error {
	if name == "" || strings.ContainsAny(name, " \t\r\n,;\"") {
		return fmt.Errorf("%w: %q", ErrSection, name)
	}
	return nil
}
