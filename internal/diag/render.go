package diag

import (
	"fmt"
	"strings"

	"github.com/mkerian10/pluto/internal/ast"
)

// Render formats a Diagnostic with a caret-under-source label against the
// merged source map, per spec.md §7's "ariadne-style contextual labels".
//
// A dependency on a Rust ariadne port was considered and dropped: the pack
// carries no Go port of ariadne, and the line/column arithmetic needed here
// is small and self-contained enough that reaching for a third-party
// diagnostics-rendering library would add a dependency with no concern it
// serves better than ~60 lines of stdlib string scanning.
func Render(d *Diagnostic, sm *ast.SourceMap) string {
	var b strings.Builder
	renderOne(&b, d, sm, 0)
	return b.String()
}

func renderOne(b *strings.Builder, d *Diagnostic, sm *ast.SourceMap, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s error: %s\n", indent, d.Kind, d.Message)

	if file, line, col, lineText, ok := sm.Locate(d.Span); ok {
		fmt.Fprintf(b, "%s  --> %s:%d:%d\n", indent, file, line, col)
		fmt.Fprintf(b, "%s   |\n", indent)
		fmt.Fprintf(b, "%s%3d| %s\n", indent, line, lineText)
		caretLen := d.Span.End - d.Span.Start
		if caretLen < 1 {
			caretLen = 1
		}
		fmt.Fprintf(b, "%s   | %s%s\n", indent, strings.Repeat(" ", col-1), strings.Repeat("^", caretLen))
	} else {
		fmt.Fprintf(b, "%s  (no location: synthetic node)\n", indent)
	}

	if d.Wrapped != nil {
		renderOne(b, d.Wrapped, sm, depth+1)
	}
}
