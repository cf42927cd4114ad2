package spreadsheet

import (
	"bytes"
	"fmt"
)

// DependencyDOT converts the dependency graph to Graphviz DOT format. Edges
// point from a precedent to the cells that read it; placeholders are dashed.
func (s *Sheet) DependencyDOT() string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white];\n")
	buf.WriteString("\n")

	for pos, cell := range s.Cells() {
		label := pos.String()
		if text := cell.Text(); text != "" {
			label += "\n" + text
		}
		attrs := fmt.Sprintf("label=%q", label)
		if cell.placeholder {
			attrs += ", style=\"rounded,filled,dashed\", fillcolor=lightgrey"
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", pos.String(), attrs)
	}

	buf.WriteString("\n")
	for pos, cell := range s.Cells() {
		for _, dependent := range cell.Dependents() {
			fmt.Fprintf(&buf, "  %q -> %q;\n", pos.String(), dependent.String())
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}
