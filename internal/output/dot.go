package output

import (
	"fmt"
	"strings"

	"modgraph/internal/core/errors"
	"modgraph/internal/engine/order"
)

// DOT renders the dependency tree of root from a profile. Each module is
// expanded once; edges into the linkage module are left out. A maxLevel of
// zero or less means no depth limit.
func DOT(p *order.Profile, root, linkage string, maxLevel int) (string, error) {
	if _, ok := p.Dependencies[root]; !ok {
		return "", errors.AddContext(errors.New(errors.CodeNotFound, "root not in profile"), errors.CtxModule, root)
	}

	var buf strings.Builder
	buf.WriteString("digraph DOT {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")

	expanded := make(map[string]bool, len(p.Dependencies))
	writeDOT(&buf, p, linkage, root, 0, maxLevel, expanded)

	buf.WriteString("}\n")
	return buf.String(), nil
}

func writeDOT(buf *strings.Builder, p *order.Profile, linkage, name string, level, maxLevel int, expanded map[string]bool) {
	if maxLevel > 0 && level >= maxLevel {
		return
	}
	deps, ok := p.Dependencies[name]
	if !ok || expanded[name] {
		return
	}
	expanded[name] = true

	for _, child := range deps {
		if child == linkage {
			continue
		}
		fmt.Fprintf(buf, "  %s -> %s;\n", dotID(name), dotID(child))
		writeDOT(buf, p, linkage, child, level+1, maxLevel, expanded)
	}
}

func dotID(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `\"`) + `"`
}
