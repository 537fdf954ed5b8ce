package pds

import (
	"fmt"
	"strings"
)

// Format renders it as an indented tree, one item per line.
func Format(it Item) string {
	var sb strings.Builder
	format(&sb, "", it, 0)
	return sb.String()
}

func format(sb *strings.Builder, name string, it Item, depth int) {
	indent := strings.Repeat("  ", depth)
	label := ""
	if name != "" {
		label = fmt.Sprintf("%q: ", name)
	}
	switch v := it.(type) {
	case nil:
		fmt.Fprintf(sb, "%s%snull\n", indent, label)
	case *Compound:
		fmt.Fprintf(sb, "%s%sCompound (%d entries) {\n", indent, label, v.Len())
		for _, k := range v.keys {
			format(sb, k, v.items[k], depth+1)
		}
		fmt.Fprintf(sb, "%s}\n", indent)
	case *List:
		fmt.Fprintf(sb, "%s%sList<%s> (%d entries) [\n", indent, label, v.Elem, v.Len())
		for _, el := range v.Items {
			format(sb, "", el, depth+1)
		}
		fmt.Fprintf(sb, "%s]\n", indent)
	default:
		fmt.Fprintf(sb, "%s%s%s %s\n", indent, label, it.Tag(), it.String())
	}
}
