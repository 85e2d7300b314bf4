package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCamel(t *testing.T) {
	cases := map[string]string{
		"Enter Supplier":      "enterSupplier",
		"  invoice_number ":   "invoiceNumber",
		`Click "Save" button`: "clickSaveButton",
		"Amount":              "amount",
		"PO-Number / line 2":  "poNumberLine2",
		"":                    "",
		"!!!":                 "",
		"step3":               "step3",
	}
	for in, want := range cases {
		assert.Equal(t, want, Camel(in), "Camel(%q)", in)
	}
}

func TestPascalAndSlug(t *testing.T) {
	assert.Equal(t, "CreateInvoice", Pascal("create-invoice"))
	assert.Equal(t, "create-invoice", Slug("  Create Invoice!! ", "scenario"))
	assert.Equal(t, "scenario", Slug("***", "scenario"))
}

func TestDataKey(t *testing.T) {
	assert.Equal(t, "invoicenumber", DataKey("Invoice Number"))
	assert.Equal(t, "invoicenumber", DataKey("invoice_number"))
	assert.Equal(t, "amount2", DataKey("Amount (2)"))
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, `"a \"b\" <c>"`, Literal(`a "b" <c>`))
	assert.Equal(t, `["x", "y"]`, LiteralList([]string{"x", "y"}))
	assert.Equal(t, `[]`, LiteralList(nil))
}
