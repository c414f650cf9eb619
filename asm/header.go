package asm

import (
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/q0jt/go-bootlayout/layout"
	"github.com/q0jt/go-bootlayout/layout/config/arch"
)

const headerTemplate = `/* Generated by bootlayout for {{ .Arch }}. Do not edit. */

#pragma once
{{ range .Bindings }}
#define SNAME_{{ .Role | toString | replace "-" "_" | upper }} {{ .Name }}
{{- end }}

#if defined(__ASSEMBLER__)

#define SHT_PROGBITS {{ .Progbits }}
#define SHT_NOBITS   {{ .Nobits }}

#define SHF_WRITE     {{ .Write | quote }}
#define SHF_ALLOC     {{ .Alloc | quote }}
#define SHF_EXECINSTR {{ .Exec | quote }}

#define SECTION1(name) \
	.section name

#define SECTION3(name, type, attr) \
	.section name, attr, type

#define BEGIN_FUNCTION(name)   \
	.globl	name;            \
	.type	name, %function; \
name:

#define END_FUNCTION(name) \
	.size	name, .-name

#endif /* defined(__ASSEMBLER__) */
`

var headerTmpl = template.Must(template.New("header").Funcs(sprig.TxtFuncMap()).Parse(headerTemplate))

// Names is the naming registry of one architecture.
type Names interface {
	Arch() arch.Arch
	Bindings() []layout.NamingEntry
}

// WriteHeader writes a C preprocessor header for startup assembly with a
// SNAME_ macro per section role and the framing macros matching Writer.
func WriteHeader(w io.Writer, names Names) error {
	return headerTmpl.Execute(w, struct {
		Arch     string
		Bindings []layout.NamingEntry
		Progbits string
		Nobits   string
		Write    string
		Alloc    string
		Exec     string
	}{
		Arch:     names.Arch().String(),
		Bindings: names.Bindings(),
		Progbits: Progbits.String(),
		Nobits:   Nobits.String(),
		Write:    Write.String(),
		Alloc:    Alloc.String(),
		Exec:     Exec.String(),
	})
}
