package schema

import (
	"fmt"
	"strings"
)

// Describe renders n as an indented tree. Each entity's fields are expanded
// the first time it appears; later references print as "-> key".
func Describe(n Node) string {
	var b strings.Builder
	describe(&b, n, 0, make(map[*Entity]bool))
	return b.String()
}

func describe(b *strings.Builder, n Node, depth int, seen map[*Entity]bool) {
	indent := strings.Repeat("  ", depth)
	switch val := n.(type) {
	case *Entity:
		if val == nil {
			fmt.Fprintf(b, "%snone\n", indent)
			return
		}
		if seen[val] {
			fmt.Fprintf(b, "%s-> %s\n", indent, val.Key)
			return
		}
		seen[val] = true
		fmt.Fprintf(b, "%sentity %s (id: %s)\n", indent, val.Key, val.IDAttribute)
		for _, name := range val.FieldNames() {
			fmt.Fprintf(b, "%s  .%s\n", indent, name)
			describe(b, val.Fields[name], depth+2, seen)
		}
	case *Collection:
		if val == nil {
			fmt.Fprintf(b, "%snone\n", indent)
			return
		}
		fmt.Fprintf(b, "%scollection\n", indent)
		describe(b, val.Item, depth+1, seen)
	case *Union:
		if val == nil {
			fmt.Fprintf(b, "%snone\n", indent)
			return
		}
		fmt.Fprintf(b, "%sunion (by %s)\n", indent, val.SchemaAttribute)
		for _, tag := range val.Tags() {
			fmt.Fprintf(b, "%s  %s:\n", indent, tag)
			describe(b, val.Items[tag], depth+2, seen)
		}
	case Composite:
		fmt.Fprintf(b, "%scomposite\n", indent)
		for _, name := range val.FieldNames() {
			fmt.Fprintf(b, "%s  .%s\n", indent, name)
			describe(b, val[name], depth+2, seen)
		}
	default:
		fmt.Fprintf(b, "%snone\n", indent)
	}
}
