package output

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"modgraph/internal/core/errors"
	"modgraph/internal/engine/order"
)

// Mermaid renders the dependency tree of root as a Markdown section holding a
// top-down mermaid graph, one "a --> b & c" line per expanded module.
func Mermaid(p *order.Profile, root string) (string, error) {
	if _, ok := p.Dependencies[root]; !ok {
		return "", errors.AddContext(errors.New(errors.CodeNotFound, "root not in profile"), errors.CtxModule, root)
	}

	ids := makeMermaidIDs(profileNames(p))

	var b strings.Builder
	fmt.Fprintf(&b, "### Profile: %s.md\n", root)
	b.WriteString("```mermaid\n")
	b.WriteString("graph TD\n")

	expanded := make(map[string]bool, len(p.Dependencies))
	stack := []string{root}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if expanded[name] {
			continue
		}
		expanded[name] = true

		deps := p.Dependencies[name]
		if len(deps) == 0 {
			continue
		}
		targets := make([]string, 0, len(deps))
		for _, d := range deps {
			targets = append(targets, mermaidNode(d, ids))
		}
		fmt.Fprintf(&b, "%s --> %s\n", mermaidNode(name, ids), strings.Join(targets, " & "))

		for i := len(deps) - 1; i >= 0; i-- {
			stack = append(stack, deps[i])
		}
	}

	b.WriteString("```\n")
	return b.String(), nil
}

func mermaidNode(name string, ids map[string]string) string {
	id := ids[name]
	if id == "" {
		id = sanitizeMermaidID(name)
	}
	if id == name {
		return id
	}
	return fmt.Sprintf("%s[\"%s\"]", id, escapeMermaidLabel(name))
}

func profileNames(p *order.Profile) []string {
	set := make(map[string]bool, len(p.Dependencies))
	for name, deps := range p.Dependencies {
		set[name] = true
		for _, d := range deps {
			set[d] = true
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sanitizeMermaidID(module string) string {
	if module == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range module {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if unicode.IsDigit(rune(out[0])) {
		return "m_" + out
	}
	return out
}

func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
