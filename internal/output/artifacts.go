package output

import (
	"path/filepath"
	"strings"
	"text/template"
	"unicode"

	"modgraph/internal/core/errors"
	"modgraph/internal/engine/order"
)

// LinkerList returns one object path per line in initialization order, the
// linkage module excluded. Paths are made relative to base when possible.
func LinkerList(o *order.Ordering, base string) string {
	var b strings.Builder
	for _, name := range o.Modules() {
		path := o.Paths[name]
		if base != "" {
			if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
				path = rel
			}
		}
		b.WriteString(filepath.ToSlash(path))
		b.WriteByte('\n')
	}
	return b.String()
}

type initCall struct {
	Module string
	Func   string
}

var initTemplate = template.Must(template.New("init").Parse(`/* Generated by modgraph for {{.Root}}. Do not edit. */

{{range .Calls}}extern int {{.Func}}(void);
{{end}}
void do_init_modules(void)
{
{{- range .Calls}}
	{{.Func}}(); /* {{.Module}} */
{{- end}}
}
`))

// InitSource renders a C fragment declaring one init function per module and
// a driver calling them in dependency order.
func InitSource(o *order.Ordering) (string, error) {
	modules := o.Modules()
	calls := make([]initCall, 0, len(modules))
	for _, name := range modules {
		calls = append(calls, initCall{Module: name, Func: "init_" + cIdent(name)})
	}

	var b strings.Builder
	err := initTemplate.Execute(&b, struct {
		Root  string
		Calls []initCall
	}{Root: o.Root, Calls: calls})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "render init source")
	}
	return b.String(), nil
}

// cIdent maps a module name to a C identifier fragment.
func cIdent(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}
