package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptforge/internal/flow"
)

func invoiceSteps() []flow.RecordedStep {
	return []flow.RecordedStep{
		{Ordinal: 1, Action: "Click", Navigation: "Open Invoices menu"},
		{Ordinal: 2, Action: "Fill", Navigation: "Enter Supplier", Data: "Supplier: Allied"},
		{Ordinal: 3, Action: "Click", Navigation: "Select Supplier option"},
		{Ordinal: 4, Action: "Fill", Navigation: "Enter Amount", Data: "Amount: 100"},
		{Ordinal: 5, Action: "Click", Navigation: "Save invoice"},
	}
}

func ordinals(steps []flow.RecordedStep) []int {
	out := make([]int, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.Ordinal)
	}
	return out
}

func TestRenderRoundTripsThroughSignatures(t *testing.T) {
	steps := invoiceSteps()
	text := Render(steps, 0)
	assert.Contains(t, text, "2. Fill | Enter Supplier | Data: Supplier: Allied")

	res := Reconcile(steps, text)
	assert.Nil(t, res.Degradation)
	assert.True(t, res.Filtered)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ordinals(res.Steps))
}

func TestRenderPlaceholderAndCap(t *testing.T) {
	steps := []flow.RecordedStep{
		{Ordinal: 1},
		{Ordinal: 2, Element: flow.Element{Name: "Logo"}},
		{Ordinal: 3, Action: "Click"},
	}
	text := Render(steps, 2)
	assert.Equal(t, "1. Note: Recorded step (no action/navigation)\n2. Note: Logo", text)
}

func TestReconcileDropsRemovedLines(t *testing.T) {
	text := "1. Click | Open Invoices menu\n" +
		"2. Fill | Enter Supplier | Data: Supplier: Allied\n" +
		"4. Fill | Enter Amount | Data: Amount: 100\n" +
		"5. Click | Save invoice\n"
	res := Reconcile(invoiceSteps(), text)
	assert.Nil(t, res.Degradation)
	assert.Equal(t, []int{1, 2, 4, 5}, ordinals(res.Steps))
}

func TestReconcileAcceptsEditedNumbering(t *testing.T) {
	text := "1) Click | Open Invoices menu\n" +
		"2.Fill | Enter Supplier | Data: Supplier: Allied\n" +
		"5 Click | Save invoice\n"
	res := Reconcile(invoiceSteps(), text)
	assert.Nil(t, res.Degradation)
	assert.Equal(t, []int{1, 2, 5}, ordinals(res.Steps))
}

func TestReconcileKeepsAllOnSingleParseableLine(t *testing.T) {
	res := Reconcile(invoiceSteps(), "Fill | Enter Supplier\nthis line has no pipes")
	require.NotNil(t, res.Degradation)
	assert.Equal(t, ReasonUnreliable, res.Degradation.Reason)
	assert.False(t, res.Filtered)
	assert.Len(t, res.Steps, 5)
}

func TestReconcileFuzzyFallback(t *testing.T) {
	// Wording drift: no signature matches, but phrases overlap navigation.
	text := "1. Tap | enter supplier name\n2. Tap | save invoice now\n"
	res := Reconcile(invoiceSteps(), text)
	require.NotNil(t, res.Degradation)
	assert.Equal(t, ReasonFuzzy, res.Degradation.Reason)
	assert.True(t, res.Filtered)
	assert.Equal(t, []int{2, 5}, ordinals(res.Steps))
}

func TestReconcileNoMatchKeepsEverything(t *testing.T) {
	res := Reconcile(invoiceSteps(), "1. Foo | bar\n2. Baz | qux\n")
	require.NotNil(t, res.Degradation)
	assert.Equal(t, ReasonNoMatch, res.Degradation.Reason)
	assert.Len(t, res.Steps, 5)
}

func TestReconcileEmptyPreview(t *testing.T) {
	res := Reconcile(invoiceSteps(), "   ")
	assert.Nil(t, res.Degradation)
	assert.Len(t, res.Steps, 5)
}

func TestPhrases(t *testing.T) {
	got := Phrases("1. Click | Open  'Invoices' menu | Data: x\n12 Just text\n\n")
	assert.Equal(t, []string{"click", "just text", "open invoices menu"}, got)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, "1. Click | Save", StripCodeFences("```text\n1. Click | Save\n```"))
	assert.Equal(t, "plain", StripCodeFences("  plain "))
}

func TestRefinePrompt(t *testing.T) {
	p := RefinePrompt(" 1. Click | Save ", "drop nothing")
	assert.Contains(t, p, "[CURRENT STEPS]\n1. Click | Save\n")
	assert.Contains(t, p, "[REVIEWER FEEDBACK]\ndrop nothing\n")
}
