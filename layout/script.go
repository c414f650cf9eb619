package layout

import (
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const scriptTemplate = `/* Generated by bootlayout for {{ .Arch }}. Do not edit. */

ENTRY({{ .Entry }})

SECTIONS
{
	. = {{ hex .Reset }};
{{- range .Directives }}

	{{ .Name }}{{ if .Fixed }} {{ hex .Address }}{{ end }}{{ if .NoLoad }} (NOLOAD){{ end }} :{{ if .Align }} ALIGN({{ .Align }}){{ end }} {
		{{ .Symbols.Start }} = .;
{{- if .Keep }}
		KEEP(*({{ join " " .Patterns }}))
{{- else }}
{{- range .Patterns }}
		*({{ . }})
{{- end }}
{{- end }}
{{- if .Reserve }}
		. += {{ hex .Reserve }};
{{- end }}
{{- if .Trailing }}
		. = ALIGN({{ .Trailing }});
{{- end }}
		{{ .Symbols.End }} = .;
	}
{{- end }}
}
`

var scriptTmpl = template.Must(template.New("script").Funcs(funcMap()).Parse(scriptTemplate))

func funcMap() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["hex"] = func(v uint64) string { return fmt.Sprintf("%#x", v) }
	return funcs
}

// WriteScript writes the GNU ld SECTIONS script of the descriptor. Nothing
// is written if the descriptor is invalid for reg.
func (d *Descriptor) WriteScript(w io.Writer, reg *Registry, entry string) error {
	dirs, err := d.Directives(reg)
	if err != nil {
		return err
	}
	if entry == "" {
		entry = DefaultEntry
	}

	return scriptTmpl.Execute(w, struct {
		Arch       string
		Entry      string
		Reset      uint64
		Directives []Directive
	}{
		Arch:       reg.Arch().String(),
		Entry:      entry,
		Reset:      reg.ResetAddr(),
		Directives: dirs,
	})
}
