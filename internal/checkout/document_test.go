package checkout_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-bridge/internal/checkout"
)

func TestParseDocScalarLeaves(t *testing.T) {
	doc, err := checkout.ParseDoc([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<new-order-notification xmlns="http://checkout.google.com/schema/2" serial-number="s1">
  <order-summary>
    <google-order-number>841171949013218</google-order-number>
    <order-total currency="USD">10.50</order-total>
  </order-summary>
</new-order-notification>`))
	require.NoError(t, err)

	number, err := doc.Get("order_summary.google_order_number")
	require.NoError(t, err)
	require.Equal(t, "841171949013218", number)

	total, err := doc.Get("order_summary.order_total")
	require.NoError(t, err)
	require.Equal(t, "10.50", total)
}

func TestParseDocLeafTextVerbatim(t *testing.T) {
	doc, err := checkout.ParseDoc([]byte(`<root><note> spaced  value </note></root>`))
	require.NoError(t, err)

	note, err := doc.Get("note")
	require.NoError(t, err)
	require.Equal(t, " spaced  value ", note, "leaf text must round-trip without trimming")
}

func TestParseDocRepetitionPromotion(t *testing.T) {
	one, err := checkout.ParseDoc([]byte(`<root><tag>a</tag></root>`))
	require.NoError(t, err)
	single, err := one.Get("tag")
	require.NoError(t, err)
	require.Equal(t, "a", single, "single occurrence stays scalar")

	two, err := checkout.ParseDoc([]byte(`<root><tag>a</tag><tag>b</tag></root>`))
	require.NoError(t, err)
	pair, err := two.List("tag")
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b"}, pair)

	three, err := checkout.ParseDoc([]byte(`<root><tag>a</tag><tag>b</tag><tag>c</tag></root>`))
	require.NoError(t, err)
	triple, err := three.List("tag")
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b", "c"}, triple, "document order preserved, first value never lost")
}

func TestParseDocHyphenNormalisation(t *testing.T) {
	doc, err := checkout.ParseDoc([]byte(`<root><buyer-shipping-address><contact-name>Jo</contact-name></buyer-shipping-address></root>`))
	require.NoError(t, err)

	name, err := doc.Get("buyer_shipping_address.contact_name")
	require.NoError(t, err)
	require.Equal(t, "Jo", name)
	require.Equal(t, []string{"buyer_shipping_address"}, doc.Keys())
}

func TestParseDocWhitespaceOnlyTextIgnored(t *testing.T) {
	doc, err := checkout.ParseDoc([]byte("<root>\n  <empty>\n  </empty>\n</root>"))
	require.NoError(t, err)

	sub, err := doc.Sub("empty")
	require.NoError(t, err)
	require.Equal(t, 0, sub.Len(), "whitespace-only element behaves like an empty one")
}

func TestGetAbsentFieldIsTypedError(t *testing.T) {
	doc, err := checkout.ParseDoc([]byte(`<root><a>1</a></root>`))
	require.NoError(t, err)

	_, err = doc.Get("missing")
	var fieldErr *checkout.FieldError
	require.ErrorAs(t, err, &fieldErr)
	require.Equal(t, "missing", fieldErr.Path)

	_, err = doc.Get("a.b")
	require.ErrorAs(t, err, &fieldErr)
}

func TestGetRejectsNonScalar(t *testing.T) {
	doc, err := checkout.ParseDoc([]byte(`<root><nested><x>1</x></nested></root>`))
	require.NoError(t, err)

	_, err = doc.Get("nested")
	require.Error(t, err)

	nested, err := doc.Sub("nested")
	require.NoError(t, err)
	require.Equal(t, 1, nested.Len())
}

func TestItemsNormalisesSingleAndMany(t *testing.T) {
	one, err := checkout.ParseDoc([]byte(`<root><shopping-cart><items><item><item-name>Tea</item-name></item></items></shopping-cart></root>`))
	require.NoError(t, err)
	items, err := one.Items()
	require.NoError(t, err)
	require.Len(t, items, 1)
	name, err := items[0].Get("item_name")
	require.NoError(t, err)
	require.Equal(t, "Tea", name)

	two, err := checkout.ParseDoc([]byte(`<root><shopping-cart><items>
		<item><item-name>Tea</item-name></item>
		<item><item-name>Coffee</item-name></item>
	</items></shopping-cart></root>`))
	require.NoError(t, err)
	items, err = two.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	first, err := items[0].Get("item_name")
	require.NoError(t, err)
	require.Equal(t, "Tea", first)
	second, err := items[1].Get("item_name")
	require.NoError(t, err)
	require.Equal(t, "Coffee", second)
}

func TestParseDocMalformedInput(t *testing.T) {
	_, err := checkout.ParseDoc([]byte(`<root><unclosed>`))
	require.Error(t, err)

	_, err = checkout.ParseDoc([]byte(``))
	require.Error(t, err)
}
