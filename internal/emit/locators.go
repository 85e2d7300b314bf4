package emit

import (
	"strings"

	"scriptforge/internal/naming"
	"scriptforge/internal/symbol"
)

func renderLocators(entries []symbol.Entry) string {
	var b strings.Builder
	b.WriteString("const locators = {\n")
	for _, e := range entries {
		ln(&b, "  %s: %s,", e.Name, naming.Literal(e.Selector))
	}
	b.WriteString("};\n\nexport default locators;\n")
	return b.String()
}
