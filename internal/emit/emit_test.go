package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptforge/internal/binding"
	"scriptforge/internal/flow"
	"scriptforge/internal/framework"
	"scriptforge/internal/symbol"
)

type fixtureStep struct {
	step     flow.RecordedStep
	selector string
}

func invoiceInput(t *testing.T, assets framework.Assets, url string) Input {
	t.Helper()
	steps := []fixtureStep{
		{flow.RecordedStep{Ordinal: 1, Action: "Fill", Navigation: "Enter Supplier", Data: "Supplier: Allied", DataKey: "Supplier", DataValue: "Allied"}, "#supplier"},
		{flow.RecordedStep{Ordinal: 2, Action: "Click", Navigation: "Select Supplier option", Expected: "Supplier chosen"}, "div > span:nth-child(2)"},
		{flow.RecordedStep{Ordinal: 3, Action: "Fill", Navigation: "Enter Amount", DataKey: "Amount", DataValue: "100"}, "#header-amount"},
		{flow.RecordedStep{Ordinal: 4, Action: "Fill", Navigation: "Enter Amount", DataKey: "Amount", DataValue: "40"}, "#line-amount"},
		{flow.RecordedStep{Ordinal: 5, Action: "Click", Navigation: "Save"}, "#save"},
	}
	tbl := symbol.NewTable(symbol.Options{LoginPageAvailable: assets.LoginPage != ""})
	in := binding.NewInferencer()
	var refs []symbol.Ref
	for _, s := range steps {
		ref := tbl.Add(s.step, s.selector)
		in.Observe(ref)
		refs = append(refs, ref)
	}
	return Input{
		Title:       "Create Invoice",
		OriginalURL: url,
		Paths:       PathsFor(framework.Profile{Root: "/repo"}, "create-invoice"),
		Assets:      assets,
		Entries:     tbl.Entries(),
		Refs:        refs,
		Bindings:    in.Bindings(),
	}
}

func TestPathsFor(t *testing.T) {
	p := PathsFor(framework.Profile{Root: "/repo", PagesDir: "src/pages"}, "create-invoice")
	assert.Equal(t, Paths{
		Locators: "locators/create-invoice.ts",
		Page:     "src/pages/CreateInvoicePage.ts",
		Test:     "tests/create-invoice.spec.ts",
	}, p)
	assert.Equal(t, "pages/GeneratedPage.ts", PathsFor(framework.Profile{}, "").Page)
}

func TestPageClassForDigitLeadingSlug(t *testing.T) {
	p := PathsFor(framework.Profile{}, "2024-invoice")
	assert.Equal(t, "pages/Flow2024InvoicePage.ts", p.Page)
	assert.Equal(t, "Flow2024InvoicePage", className(p))
	assert.Equal(t, "Flow2024InvoicePage", className(Paths{Page: "pages/2024-InvoicePage.ts"}))
	assert.Equal(t, "OrderEntryPage", className(Paths{Page: "pages/Order-EntryPage.ts"}))
}

func TestRelImport(t *testing.T) {
	assert.Equal(t, "../locators/a.ts", relImport("pages/P.ts", "locators/a.ts"))
	assert.Equal(t, "./testSetup.ts", relImport("tests/a.spec.ts", "tests/testSetup.ts"))
	assert.Equal(t, "../../pages/P.ts", relImport("src/tests/a.spec.ts", "pages/P.ts"))
	assert.Equal(t, "..", rootFrom("tests/a.spec.ts"))
	assert.Equal(t, "../..", rootFrom("src/tests/a.spec.ts"))
}

func TestLocatorsFile(t *testing.T) {
	set := Emit(invoiceInput(t, framework.Assets{}, ""))
	require.Len(t, set.Locators, 1)
	assert.Equal(t, "locators/create-invoice.ts", set.Locators[0].Path)
	assert.Equal(t, `const locators = {
  enterSupplier: "#supplier",
  selectSupplierOption: "div > span:nth-child(2)",
  enterAmount: "#header-amount",
  enterAmount2: "#line-amount",
  save: "#save",
};

export default locators;
`, set.Locators[0].Content)
}

func TestPageExposesOccurrenceIndexedAccessors(t *testing.T) {
	page := Emit(invoiceInput(t, framework.Assets{}, "")).Pages[0]
	assert.Equal(t, "pages/CreateInvoicePage.ts", page.Path)

	c := page.Content
	assert.Contains(t, c, `import locators from "../locators/create-invoice.ts";`)
	assert.Contains(t, c, "class CreateInvoicePage {")
	assert.Contains(t, c, "    this.enterAmount2 = page.locator(locators.enterAmount2);")
	assert.Contains(t, c, `    "amount": ["enterAmount", "enterAmount2"],`)
	assert.Contains(t, c, `    const symbols = CreateInvoicePage.dataFields[this.normaliseDataKey(key)] ?? [];`)
	assert.Contains(t, c, "  async setAmount(value: unknown): Promise<void> {")
	assert.Contains(t, c, "  async setAmount2(value: unknown): Promise<void> {\n    const finalValue = this.coerceValue(value);\n    await this.enterAmount2.fill(finalValue);")
	assert.Contains(t, c, "        case 1:\n          await this.setAmount2(this.resolveDataValue(formData, \"Amount\", \"40\"));")
	assert.Contains(t, c, `      await this.setSupplier(this.resolveDataValue(formData, "Supplier", "Allied"));`)
	assert.NotContains(t, c, "HelperClass")
	assert.True(t, strings.HasSuffix(c, "}\n\nexport default CreateInvoicePage;\n"))
}

func TestPageWithoutBindingsHasNoDataHelpers(t *testing.T) {
	in := invoiceInput(t, framework.Assets{}, "")
	in.Bindings = nil
	c := Emit(in).Pages[0].Content
	assert.NotContains(t, c, "applyData")
	assert.NotContains(t, c, "coerceValue")
}

func TestSelectBindingUsesHelperWhenAvailable(t *testing.T) {
	tbl := symbol.NewTable(symbol.Options{})
	in := binding.NewInferencer()
	ref := tbl.Add(flow.RecordedStep{Ordinal: 1, Action: "Select", Navigation: "Choose currency", DataKey: "Currency", DataValue: "EUR"}, "#currency")
	in.Observe(ref)

	input := Input{
		Title:    "Currency",
		Paths:    PathsFor(framework.Profile{}, "currency"),
		Entries:  tbl.Entries(),
		Refs:     []symbol.Ref{ref},
		Bindings: in.Bindings(),
	}
	assert.Contains(t, Emit(input).Pages[0].Content, "await this.chooseCurrency.selectOption(finalValue);")

	input.Assets.Helper = "utils/methods.utility.ts"
	c := Emit(input).Pages[0].Content
	assert.Contains(t, c, `import HelperClass from "../utils/methods.utility.ts";`)
	assert.Contains(t, c, "    this.helper = new HelperClass(page);")
	assert.Contains(t, c, "await this.helper.compoundElementSelection(this.chooseCurrency, finalValue);")
}

func TestTestScriptNumbering(t *testing.T) {
	c := Emit(invoiceInput(t, framework.Assets{}, "https://erp.example.com/invoices")).Tests[0].Content

	assert.Contains(t, c, `import { test } from "./testSetup.ts";`)
	assert.Contains(t, c, `import PageObject from "../pages/CreateInvoicePage.ts";`)
	assert.Contains(t, c, `import { attachScreenshot, namedStep } from "../util/screenshot.ts";`)
	assert.Contains(t, c, `test.describe("Create Invoice", () => {`)
	assert.Contains(t, c, `await page.goto("https://erp.example.com/invoices");`)
	assert.Contains(t, c, "await createInvoicePage.enterSupplier.waitFor(")

	setup := strings.Index(c, `"Setup 0 - Navigate to application and wait for manual authentication"`)
	require.GreaterOrEqual(t, setup, 0)
	last := setup
	for i, want := range []string{
		`"Step 0 - Enter Supplier"`,
		`"Step 1 - Select Supplier option"`,
		`"Step 2 - Enter Amount"`,
		`"Step 3 - Enter Amount"`,
		`"Step 4 - Save"`,
	} {
		idx := strings.Index(c[last:], want)
		require.GreaterOrEqual(t, idx, 0, "step %d missing or out of order", i)
		last += idx + 1
	}
	assert.NotContains(t, c, "Step 5 -")

	assert.Contains(t, c, `await createInvoicePage.applyData(dataRow, ["Supplier"], 0);`)
	assert.Contains(t, c, `await createInvoicePage.applyData(dataRow, ["Amount"], 0);`)
	assert.Contains(t, c, `await createInvoicePage.applyData(dataRow, ["Amount"], 1);`)
	assert.Contains(t, c, "await createInvoicePage.selectSupplierOption.click();")
	assert.Contains(t, c, "// Expected: Supplier chosen")
	assert.True(t, strings.HasSuffix(c, "  });\n});\n"))
}

func TestTestScriptWithoutURLSkipsSetup(t *testing.T) {
	c := Emit(invoiceInput(t, framework.Assets{}, "")).Tests[0].Content
	assert.NotContains(t, c, "Setup 0")
	assert.Contains(t, c, `"Step 0 - Enter Supplier"`)
}

func TestLoginStepsAreDivertedFromScript(t *testing.T) {
	tbl := symbol.NewTable(symbol.Options{LoginPageAvailable: true})
	steps := []flow.RecordedStep{
		{Ordinal: 1, Action: "Fill", Navigation: "Enter Username", DataKey: "Username", DataValue: "amy"},
		{Ordinal: 2, Action: "Click", Navigation: "Open invoices"},
	}
	in := binding.NewInferencer()
	var refs []symbol.Ref
	for i, s := range steps {
		ref := tbl.Add(s, []string{"#user", "#invoices"}[i])
		in.Observe(ref)
		refs = append(refs, ref)
	}
	set := Emit(Input{
		Title:    "Invoices",
		Paths:    PathsFor(framework.Profile{}, "invoices"),
		Assets:   framework.Assets{LoginPage: "pages/login.page.ts", HomePage: "pages/home.page.ts"},
		Entries:  tbl.Entries(),
		Refs:     refs,
		Bindings: in.Bindings(),
	})

	assert.NotContains(t, set.Locators[0].Content, "#user")
	c := set.Tests[0].Content
	assert.Contains(t, c, `import LoginPage from "../pages/login.page.ts";`)
	assert.Contains(t, c, `import HomePage from "../pages/home.page.ts";`)
	assert.Contains(t, c, "    loginPage = new LoginPage(page);")
	assert.Contains(t, c, `"Step 0 - Open invoices"`)
	assert.NotContains(t, c, "Enter Username")
	assert.Empty(t, set.TestData)
}

func TestNonBoundActions(t *testing.T) {
	cases := []struct {
		step flow.RecordedStep
		want string
	}{
		{flow.RecordedStep{Ordinal: 1, Action: "Type", Navigation: "Notes", DataValue: "hello"}, `await p.notes.fill(getDataValue("notes", "hello"));`},
		{flow.RecordedStep{Ordinal: 1, Action: "Select", Navigation: "Region", DataValue: "EU"}, `await p.region.selectOption(getDataValue("region", "EU"));`},
		{flow.RecordedStep{Ordinal: 1, Action: "Press", Navigation: "Search box"}, `await p.searchBox.press("Enter");`},
		{flow.RecordedStep{Ordinal: 1, Action: "Navigate", Navigation: "Home", DataValue: "https://x.test"}, `await page.goto(getDataValue("home", "https://x.test"));`},
		{flow.RecordedStep{Ordinal: 1, Action: "Click", Navigation: "Go"}, `await p.go.click();`},
	}
	for _, tc := range cases {
		var b strings.Builder
		ref := symbol.NewTable(symbol.Options{}).Add(tc.step, "#x")
		writeStep(&b, 0, ref, "p", binding.Binding{}, false)
		assert.Contains(t, b.String(), tc.want, tc.step.Action)
	}
}

func TestEmitIsDeterministic(t *testing.T) {
	a := Emit(invoiceInput(t, framework.Assets{Helper: "util/methods.utility"}, "https://x.test"))
	b := Emit(invoiceInput(t, framework.Assets{Helper: "util/methods.utility"}, "https://x.test"))
	assert.Equal(t, a, b)
	assert.Equal(t, []binding.Column{
		{Name: "Amount", Occurrences: 2, ActionType: "fill", Methods: []string{"setAmount", "setAmount2"}},
		{Name: "Supplier", Occurrences: 1, ActionType: "fill", Methods: []string{"setSupplier"}},
	}, a.TestData)
}
