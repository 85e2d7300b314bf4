package emit

import (
	"path"
	"strconv"
	"strings"

	"scriptforge/internal/binding"
	"scriptforge/internal/naming"
	"scriptforge/internal/symbol"
)

const (
	setupNote      = "Navigate to application and wait for manual authentication"
	csvUtility     = "util/csvFileManipulation.ts"
	screenshotUtil = "util/screenshot.ts"
)

type actionKind int

const (
	actClick actionKind = iota
	actFill
	actSelect
	actPress
	actGoto
)

// actionRules maps recorded action vocabulary to the emitted call. The first
// matching rule wins; anything else clicks.
var actionRules = []struct {
	kind  actionKind
	terms []string
}{
	{kind: actFill, terms: []string{"fill", "type", "enter", "input"}},
	{kind: actSelect, terms: []string{"select"}},
	{kind: actPress, terms: []string{"press"}},
	{kind: actGoto, terms: []string{"goto", "navigate"}},
}

func classifyAction(action string) actionKind {
	lower := strings.ToLower(action)
	for _, r := range actionRules {
		for _, t := range r.terms {
			if strings.Contains(lower, t) {
				return r.kind
			}
		}
	}
	return actClick
}

// dataLoader resolves the external data row for the running test case from
// the test manager workbook. {{ROOT}} is replaced with the path from the
// test directory to the framework root.
const dataLoader = `    const testCaseId = testinfo.title;
    const testRow: Record<string, any> = executionList?.find((row: any) => row['TestCaseID'] === testCaseId) ?? {};
    const dataSheetName = String(testRow?.['DatasheetName'] ?? '').trim();
    const envReferenceId = (process.env.REFERENCE_ID || process.env.DATA_REFERENCE_ID || '').trim();
    const excelReferenceId = String(testRow?.['ReferenceID'] ?? '').trim();
    const dataReferenceId = envReferenceId || excelReferenceId;
    const dataIdColumn = String(testRow?.['IDName'] ?? '').trim();
    const dataSheetTab = String(testRow?.['SheetName'] ?? testRow?.['Sheet'] ?? '').trim();
    const dataDir = path.join(__dirname, '{{ROOT}}/data');
    fs.mkdirSync(dataDir, { recursive: true });
    let dataRow: Record<string, any> = {};
    const ensureDataFile = (): string | null => {
      if (!dataSheetName) {
        return null;
      }
      const expectedPath = path.join(dataDir, dataSheetName);
      if (fs.existsSync(expectedPath)) {
        return expectedPath;
      }
      const target = dataSheetName.toLowerCase();
      const found = fs.readdirSync(dataDir).find((entry: string) => entry.toLowerCase() === target);
      if (found) {
        return path.join(dataDir, found);
      }
      throw new Error(` + "`Test data file '${dataSheetName}' not found in data/. Upload the file before running '${testCaseId}'.`" + `);
    };
    const normaliseKey = (value: string) => value.replace(/[^a-z0-9]/gi, '').toLowerCase();
    const findMatchingDataKey = (sourceKey: string) => {
      const normalisedSource = normaliseKey(sourceKey);
      return Object.keys(dataRow || {}).find((candidate) => normaliseKey(String(candidate)) === normalisedSource);
    };
    const getDataValue = (sourceKey: string, fallback: string) => {
      const directKey = sourceKey ? findMatchingDataKey(sourceKey) : undefined;
      const candidate = directKey ? dataRow?.[directKey] : undefined;
      if (candidate !== undefined && candidate !== null && ` + "`${candidate}`" + `.trim() !== '') {
        return ` + "`${candidate}`" + `;
      }
      return fallback;
    };
    const dataPath = ensureDataFile();
    if (dataPath && dataReferenceId && dataIdColumn) {
      dataRow = readExcelData(dataPath, dataSheetTab, dataReferenceId, dataIdColumn) ?? {};
      if (Object.keys(dataRow).length === 0) {
        console.warn(` + "`[DATA] Row not found in ${dataSheetName} for ${dataIdColumn}='${dataReferenceId}'.`" + `);
      }
    } else if (dataSheetName) {
      throw new Error(` + "`DatasheetName='${dataSheetName}' requires ReferenceID and IDName in testmanager.xlsx for '${testCaseId}'.`" + `);
    }

`

func renderTest(in Input) string {
	class := className(in.Paths)
	pageVar := naming.LowerFirst(class)
	if pageVar == class {
		pageVar = "pageObject"
	}
	title := naming.Literal(in.Title)
	toRoot := rootFrom(in.Paths.Test)
	testSetup := path.Join(path.Dir(in.Paths.Test), "testSetup.ts")

	var b strings.Builder
	ln(&b, "import { test } from %s;", naming.Literal(relImport(in.Paths.Test, testSetup)))
	ln(&b, "import PageObject from %s;", naming.Literal(relImport(in.Paths.Test, in.Paths.Page)))
	if in.Assets.LoginPage != "" {
		ln(&b, "import LoginPage from %s;", naming.Literal(relImport(in.Paths.Test, in.Assets.LoginPage)))
	}
	if in.Assets.HomePage != "" {
		ln(&b, "import HomePage from %s;", naming.Literal(relImport(in.Paths.Test, in.Assets.HomePage)))
	}
	ln(&b, "import { getTestToRun, shouldRun, readExcelData } from %s;", naming.Literal(relImport(in.Paths.Test, csvUtility)))
	ln(&b, "import { attachScreenshot, namedStep } from %s;", naming.Literal(relImport(in.Paths.Test, screenshotUtil)))
	b.WriteString("import * as dotenv from 'dotenv';\n\n")
	b.WriteString("const path = require('path');\nconst fs = require('fs');\n\n")
	b.WriteString("dotenv.config();\nlet executionList: any[];\n\n")
	b.WriteString("test.beforeAll(() => {\n")
	ln(&b, "  const testManagerPath = path.join(__dirname, '%s/testmanager.xlsx');", toRoot)
	b.WriteString("  executionList = fs.existsSync(testManagerPath) ? getTestToRun(testManagerPath) : [];\n")
	b.WriteString("});\n\n")

	ln(&b, "test.describe(%s, () => {", title)
	ln(&b, "  let %s: PageObject;", pageVar)
	if in.Assets.LoginPage != "" {
		b.WriteString("  let loginPage: LoginPage;\n")
	}
	if in.Assets.HomePage != "" {
		b.WriteString("  let homePage: HomePage;\n")
	}
	b.WriteString("\n  const run = (name: string, fn: ({ page }, testinfo: any) => Promise<void>) =>\n")
	b.WriteString("    (shouldRun(name) ? test : test.skip)(name, fn);\n\n")
	ln(&b, "  run(%s, async ({ page }, testinfo) => {", title)
	ln(&b, "    %s = new PageObject(page);", pageVar)
	if in.Assets.LoginPage != "" {
		b.WriteString("    loginPage = new LoginPage(page);\n")
	}
	if in.Assets.HomePage != "" {
		b.WriteString("    homePage = new HomePage(page);\n")
	}
	b.WriteString(strings.ReplaceAll(dataLoader, "{{ROOT}}", toRoot))

	if in.OriginalURL != "" {
		writeSetupStep(&b, in, pageVar)
	}

	bound := make(map[int]binding.Binding, len(in.Bindings))
	for _, bd := range in.Bindings {
		bound[bd.Ordinal] = bd
	}
	n := 0
	for _, ref := range in.Refs {
		if ref.Diverted {
			continue
		}
		bd, ok := bound[ref.Step.Ordinal]
		writeStep(&b, n, ref, pageVar, bd, ok)
		n++
	}
	b.WriteString("  });\n});\n")
	return b.String()
}

// writeSetupStep opens the captured entry URL and leaves time for a manual
// sign-in before the functional steps run.
func writeSetupStep(b *strings.Builder, in Input, pageVar string) {
	title := naming.Literal("Setup 0 - " + setupNote)
	ln(b, "    await namedStep(%s, page, testinfo, async () => {", title)
	ln(b, "      await page.goto(%s);", naming.Literal(in.OriginalURL))
	b.WriteString("      // Complete any login manually in the browser.\n")
	b.WriteString("      await page.waitForLoadState(\"networkidle\", { timeout: 90000 });\n")
	for _, ref := range in.Refs {
		if ref.Diverted {
			continue
		}
		ln(b, "      await %s.%s.waitFor({ state: \"attached\", timeout: 30000 }).catch(() => {", pageVar, ref.Symbol)
		ln(b, "        console.log(%s);", naming.Literal("Note: First element ("+ref.Symbol+") not immediately available, continuing..."))
		b.WriteString("      });\n")
		break
	}
	b.WriteString("      const screenshot = await page.screenshot();\n")
	ln(b, "      attachScreenshot(%s, testinfo, screenshot);", title)
	b.WriteString("    });\n\n")
}

func writeStep(b *strings.Builder, n int, ref symbol.Ref, pageVar string, bd binding.Binding, bound bool) {
	step := ref.Step
	label := step.Label()
	if label == "" {
		label = "Recorded step"
	}
	title := naming.Literal("Step " + strconv.Itoa(n) + " - " + comment(label))
	ln(b, "    await namedStep(%s, page, testinfo, async () => {", title)
	if c := comment(firstNonEmpty(step.Navigation, step.Action)); c != "" {
		ln(b, "      // %s", c)
	}
	locator := pageVar + "." + ref.Symbol
	value := naming.Literal(step.DataValue)
	dataExpr := "getDataValue(" + naming.Literal(ref.Symbol) + ", " + value + ")"
	switch {
	case bound:
		ln(b, "      await %s.applyData(dataRow, %s, %d);", pageVar, naming.LiteralList([]string{bd.DataKey}), bd.Occurrence)
	default:
		switch classifyAction(step.Action) {
		case actFill:
			ln(b, "      await %s.fill(%s);", locator, dataExpr)
		case actSelect:
			ln(b, "      await %s.selectOption(%s);", locator, dataExpr)
		case actPress:
			ln(b, "      await %s.press(%s);", locator, naming.Literal(firstNonEmpty(step.DataValue, "Enter")))
		case actGoto:
			ln(b, "      await page.goto(%s);", dataExpr)
		default:
			ln(b, "      await %s.click();", locator)
		}
	}
	if step.Expected != "" {
		ln(b, "      // Expected: %s", comment(step.Expected))
	}
	b.WriteString("      const screenshot = await page.screenshot();\n")
	ln(b, "      attachScreenshot(%s, testinfo, screenshot);", title)
	b.WriteString("    });\n\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
