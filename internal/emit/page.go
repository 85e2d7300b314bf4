package emit

import (
	"strings"

	"scriptforge/internal/binding"
	"scriptforge/internal/naming"
)

func renderPage(in Input) string {
	class := className(in.Paths)
	helper := in.Assets.Helper != ""

	var b strings.Builder
	b.WriteString("import { Page, Locator } from '@playwright/test';\n")
	if helper {
		ln(&b, "import HelperClass from %s;", naming.Literal(relImport(in.Paths.Page, in.Assets.Helper)))
	}
	ln(&b, "import locators from %s;", naming.Literal(relImport(in.Paths.Page, in.Paths.Locators)))
	b.WriteString("\n")
	ln(&b, "class %s {", class)
	b.WriteString("  page: Page;\n")
	if helper {
		b.WriteString("  helper: HelperClass;\n")
	}
	for _, e := range in.Entries {
		ln(&b, "  %s: Locator;", e.Name)
	}
	b.WriteString("\n  constructor(page: Page) {\n    this.page = page;\n")
	if helper {
		b.WriteString("    this.helper = new HelperClass(page);\n")
	}
	for _, e := range in.Entries {
		ln(&b, "    this.%s = page.locator(locators.%s);", e.Name, e.Name)
	}
	b.WriteString("  }\n")

	if len(in.Bindings) > 0 {
		groups := binding.Groups(in.Bindings)
		writeFieldTable(&b, class, groups)
		b.WriteString(valueHelpers)
		for _, bd := range in.Bindings {
			writeSetter(&b, bd, helper)
		}
		writeApplyData(&b, groups)
	}

	b.WriteString("}\n\n")
	ln(&b, "export default %s;", class)
	return b.String()
}

// writeFieldTable emits the normalized-key to locator table and the
// occurrence-indexed accessor over it.
func writeFieldTable(b *strings.Builder, class string, groups []binding.Group) {
	b.WriteString("\n  private static readonly dataFields: Record<string, string[]> = {\n")
	for _, g := range groups {
		symbols := make([]string, 0, len(g.Bindings))
		for _, bd := range g.Bindings {
			symbols = append(symbols, bd.Symbol)
		}
		ln(b, "    %s: %s,", naming.Literal(g.Normalized), naming.LiteralList(symbols))
	}
	b.WriteString("  };\n\n")
	b.WriteString("  fieldFor(key: string, index: number = 0): Locator | undefined {\n")
	ln(b, "    const symbols = %s.dataFields[this.normaliseDataKey(key)] ?? [];", class)
	b.WriteString("    const symbol = symbols[index];\n")
	b.WriteString("    return symbol ? (this as unknown as Record<string, Locator>)[symbol] : undefined;\n")
	b.WriteString("  }\n")
}

const valueHelpers = `
  private coerceValue(value: unknown): string {
    if (value === undefined || value === null) {
      return '';
    }
    if (typeof value === 'number') {
      return ` + "`${value}`" + `;
    }
    if (typeof value === 'string') {
      return value;
    }
    return ` + "`${value ?? ''}`" + `;
  }

  private normaliseDataKey(value: string): string {
    return (value || '').replace(/[^a-z0-9]+/gi, '').toLowerCase();
  }

  private resolveDataValue(formData: Record<string, any> | null | undefined, key: string, fallback: string = ''): string {
    const target = this.normaliseDataKey(key);
    if (formData) {
      for (const entryKey of Object.keys(formData)) {
        if (this.normaliseDataKey(entryKey) === target) {
          const candidate = this.coerceValue(formData[entryKey]);
          if (candidate.trim() !== '') {
            return candidate;
          }
        }
      }
    }
    return this.coerceValue(fallback);
  }
`

func writeSetter(b *strings.Builder, bd binding.Binding, helper bool) {
	b.WriteString("\n")
	ln(b, "  async %s(value: unknown): Promise<void> {", bd.Method)
	b.WriteString("    const finalValue = this.coerceValue(value);\n")
	switch {
	case bd.Category == binding.CategorySelect && helper:
		ln(b, "    await this.helper.compoundElementSelection(this.%s, finalValue);", bd.Symbol)
	case bd.Category == binding.CategorySelect:
		ln(b, "    await this.%s.selectOption(finalValue);", bd.Symbol)
	default:
		ln(b, "    await this.%s.fill(finalValue);", bd.Symbol)
	}
	b.WriteString("  }\n")
}

// writeApplyData emits the entry point that applies a subset of a data row.
// Keys bound more than once dispatch on the occurrence index.
func writeApplyData(b *strings.Builder, groups []binding.Group) {
	b.WriteString("\n  async applyData(formData: Record<string, any> | null | undefined, keys?: string[], index: number = 0): Promise<void> {\n")
	b.WriteString("    const targetKeys = Array.isArray(keys) && keys.length ? keys.map((key) => this.normaliseDataKey(key)) : null;\n")
	b.WriteString("    const shouldHandle = (key: string) => !targetKeys || targetKeys.includes(this.normaliseDataKey(key));\n")
	for _, g := range groups {
		column := naming.Literal(g.Column)
		ln(b, "    if (shouldHandle(%s)) {", column)
		if len(g.Bindings) == 1 {
			bd := g.Bindings[0]
			ln(b, "      await this.%s(this.resolveDataValue(formData, %s, %s));", bd.Method, column, naming.Literal(bd.Fallback))
			b.WriteString("    }\n")
			continue
		}
		b.WriteString("      switch (index) {\n")
		for _, bd := range g.Bindings {
			ln(b, "        case %d:", bd.Occurrence)
			ln(b, "          await this.%s(this.resolveDataValue(formData, %s, %s));", bd.Method, column, naming.Literal(bd.Fallback))
			b.WriteString("          break;\n")
		}
		b.WriteString("      }\n    }\n")
	}
	b.WriteString("  }\n")
}
