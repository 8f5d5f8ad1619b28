package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loadedAt = time.Date(2025, time.March, 3, 4, 5, 6, 0, time.UTC)

const productsFeed = `<?xml version="1.0" encoding="utf-8"?>
<SHOP>
  <SHOPITEM id="101">
    <CODE>CHM045</CODE>
    <NAME>Honey 500 g</NAME>
    <URL>https://shop.example/honey</URL>
    <SHORT_DESCRIPTION><![CDATA[<p>Forest&nbsp;honey &amp; wax</p>]]></SHORT_DESCRIPTION>
    <DESCRIPTION><![CDATA[<p>Long <b>description</b></p>]]></DESCRIPTION>
    <CATEGORIES>
      <CATEGORY id="12">Food</CATEGORY>
      <CATEGORY id="34">Honey</CATEGORY>
    </CATEGORIES>
  </SHOPITEM>
  <SHOPITEM id="102">
    <NAME>No code here</NAME>
  </SHOPITEM>
  <SHOPITEM id="103">
    <CODE>CHM010</CODE>
    <NAME>Wine</NAME>
    <VISIBILITY>hidden</VISIBILITY>
    <AVAILABILITY>in stock</AVAILABILITY>
    <IMAGES>
      <IMAGE>https://cdn.example/a.jpg</IMAGE>
      <IMAGE>https://cdn.example/b.jpg</IMAGE>
    </IMAGES>
    <CATEGORIES>
      <CATEGORY>Drinks</CATEGORY>
    </CATEGORIES>
  </SHOPITEM>
</SHOP>`

func TestParseProducts(t *testing.T) {
	t.Parallel()

	rows, err := ParseProducts([]byte(productsFeed), loadedAt)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	honey := rows[0]
	assert.Equal(t, "CHM045", honey.ProductCode)
	require.NotNil(t, honey.ProductID)
	assert.Equal(t, int64(101), *honey.ProductID)
	assert.Equal(t, "Honey 500 g", honey.Name)
	assert.Equal(t, "https://shop.example/honey", honey.URL)
	assert.Equal(t, "", honey.ImgURL)
	assert.Equal(t, "Forest honey & wax", honey.ShortDescription)
	assert.Equal(t, "<p>Long <b>description</b></p>", honey.DescriptionHTML)
	assert.Equal(t, "visible", honey.Visibility)
	assert.Equal(t, "unknown", honey.Availability)
	assert.Equal(t, []string{"12", "34"}, honey.CategoryIDs)
	assert.Equal(t, loadedAt, honey.UpdatedAt)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(honey.RawXML), &raw))
	assert.Equal(t, "CHM045", raw["CODE"])

	wine := rows[1]
	assert.Equal(t, "CHM010", wine.ProductCode)
	assert.Equal(t, "https://cdn.example/a.jpg", wine.ImgURL)
	assert.Equal(t, "hidden", wine.Visibility)
	assert.Equal(t, "in stock", wine.Availability)
	assert.Equal(t, []string{"Drinks"}, wine.CategoryIDs)
}

func TestParseProductsSingleItemAndImage(t *testing.T) {
	t.Parallel()

	feed := `<SHOP><SHOPITEM><CODE>A1</CODE><IMAGES><IMAGE>https://cdn.example/only.jpg</IMAGE></IMAGES></SHOPITEM></SHOP>`

	rows, err := ParseProducts([]byte(feed), loadedAt)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://cdn.example/only.jpg", rows[0].ImgURL)
	assert.Nil(t, rows[0].ProductID)
	assert.Empty(t, rows[0].CategoryIDs)
	assert.NotNil(t, rows[0].CategoryIDs)
}

func TestParseProductsKeepsDuplicateCategories(t *testing.T) {
	t.Parallel()

	feed := `<SHOP><SHOPITEM><CODE>A1</CODE><CATEGORIES>
		<CATEGORY id="5"/><CATEGORY id="3"/><CATEGORY id="5"/>
	</CATEGORIES></SHOPITEM></SHOP>`

	rows, err := ParseProducts([]byte(feed), loadedAt)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"5", "3", "5"}, rows[0].CategoryIDs)
}

func TestParseProductsEveryRowHasCode(t *testing.T) {
	t.Parallel()

	feed := `<SHOP>
		<SHOPITEM><CODE></CODE></SHOPITEM>
		<SHOPITEM><CODE>   </CODE></SHOPITEM>
		<SHOPITEM><NAME>x</NAME></SHOPITEM>
		<SHOPITEM><CODE>OK1</CODE></SHOPITEM>
	</SHOP>`

	rows, err := ParseProducts([]byte(feed), loadedAt)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	for _, row := range rows {
		assert.NotEmpty(t, row.ProductCode)
	}
}

func TestParseProductsIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := ParseProducts([]byte(productsFeed), loadedAt)
	require.NoError(t, err)
	second, err := ParseProducts([]byte(productsFeed), loadedAt)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParseProductsEmptyFeeds(t *testing.T) {
	t.Parallel()

	for name, feed := range map[string]string{
		"empty shop":      `<SHOP></SHOP>`,
		"other root":      `<CATALOG><ITEM><CODE>A</CODE></ITEM></CATALOG>`,
		"self closed":     `<SHOP/>`,
		"items all blank": `<SHOP><SHOPITEM/><SHOPITEM/></SHOP>`,
	} {
		t.Run(name, func(t *testing.T) {
			rows, err := ParseProducts([]byte(feed), loadedAt)
			require.NoError(t, err)
			assert.Empty(t, rows)
		})
	}
}

func TestParseProductsMalformed(t *testing.T) {
	t.Parallel()

	_, err := ParseProducts([]byte(`<SHOP><SHOPITEM><CODE>A</CODE></SHOP>`), loadedAt)
	require.Error(t, err)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParseProductsMixedContentDescriptions(t *testing.T) {
	t.Parallel()

	feed := `<SHOP>
  <SHOPITEM>
    <CODE>A1</CODE>
    <SHORT_DESCRIPTION>Hello <b>world</b> end</SHORT_DESCRIPTION>
    <DESCRIPTION>Intro <p class="lead">Tom &amp; Jerry<br/></p> outro</DESCRIPTION>
  </SHOPITEM>
  <SHOPITEM>
    <CODE>A2</CODE>
    <SHORT_DESCRIPTION>plain</SHORT_DESCRIPTION>
    <DESCRIPTION><![CDATA[<p>kept</p>]]></DESCRIPTION>
  </SHOPITEM>
</SHOP>`

	rows, err := ParseProducts([]byte(feed), loadedAt)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Hello world end", rows[0].ShortDescription)
	assert.Equal(t, `Intro <p class="lead">Tom &amp; Jerry<br/></p> outro`, rows[0].DescriptionHTML)

	assert.Equal(t, "plain", rows[1].ShortDescription)
	assert.Equal(t, "<p>kept</p>", rows[1].DescriptionHTML)
}

func TestParseProductsTrailingContent(t *testing.T) {
	t.Parallel()

	for name, feed := range map[string]string{
		"second root":   `<SHOP><SHOPITEM><CODE>A</CODE></SHOPITEM></SHOP><SHOP><broken`,
		"trailing text": `<SHOP><SHOPITEM><CODE>A</CODE></SHOPITEM></SHOP>garbage`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProducts([]byte(feed), loadedAt)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
		})
	}

	rows, err := ParseProducts([]byte("<SHOP><SHOPITEM><CODE>A</CODE></SHOPITEM></SHOP>\n<!-- generated -->\n"), loadedAt)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestParseSetItems(t *testing.T) {
	t.Parallel()

	feed := `<?xml version="1.0" encoding="utf-8"?>
<SHOP>
  <SHOPITEM>
    <CODE>BA195</CODE>
    <SET_ITEMS>
      <SET_ITEM><CODE>CHM045</CODE><AMOUNT>2</AMOUNT></SET_ITEM>
      <SET_ITEM><CODE>CHM010</CODE></SET_ITEM>
      <SET_ITEM><AMOUNT>3</AMOUNT></SET_ITEM>
    </SET_ITEMS>
  </SHOPITEM>
  <SHOPITEM>
    <CODE>PLAIN</CODE>
  </SHOPITEM>
  <SHOPITEM>
    <SET_ITEMS><SET_ITEM><CODE>ORPHAN</CODE></SET_ITEM></SET_ITEMS>
  </SHOPITEM>
  <SHOPITEM>
    <CODE>BA200</CODE>
    <SET_ITEMS>
      <SET_ITEM><CODE>X1</CODE><AMOUNT>1,5</AMOUNT></SET_ITEM>
    </SET_ITEMS>
  </SHOPITEM>
</SHOP>`

	rows, err := ParseSetItems([]byte(feed), loadedAt)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "BA195", rows[0].SetCode)
	assert.Equal(t, "CHM045", rows[0].ItemCode)
	assert.Equal(t, 2.0, rows[0].Amount)
	assert.Equal(t, loadedAt, rows[0].UpdatedAt)

	assert.Equal(t, "BA195", rows[1].SetCode)
	assert.Equal(t, "CHM010", rows[1].ItemCode)
	assert.Equal(t, 1.0, rows[1].Amount)

	assert.Equal(t, "BA200", rows[2].SetCode)
	assert.Equal(t, 1.5, rows[2].Amount)
}

func TestParseSetItemsSingleEntry(t *testing.T) {
	t.Parallel()

	feed := `<SHOP><SHOPITEM><CODE>S1</CODE><SET_ITEMS><SET_ITEM><CODE>P1</CODE><AMOUNT>abc</AMOUNT></SET_ITEM></SET_ITEMS></SHOPITEM></SHOP>`

	rows, err := ParseSetItems([]byte(feed), loadedAt)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "P1", rows[0].ItemCode)
	assert.Equal(t, 1.0, rows[0].Amount)
}

func TestParseSetItemsEmptyGroup(t *testing.T) {
	t.Parallel()

	rows, err := ParseSetItems([]byte(`<SHOP><SHOPITEM><CODE>S1</CODE><SET_ITEMS/></SHOPITEM></SHOP>`), loadedAt)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want float64
	}{
		{nil, 1},
		{"", 1},
		{"2", 2},
		{"0", 0},
		{" 2.25 ", 2.25},
		{"0,5", 0.5},
		{"NaN", 1},
		{"Inf", 1},
		{"many", 1},
		{int64(4), 4},
		{map[string]any{"-unit": "ks", "#text": "3"}, 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseAmount(tt.in), "parseAmount(%#v)", tt.in)
	}
}

func TestCleanHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<p>Hello&nbsp;<b>world</b></p>", "Hello world"},
		{"a &amp; b &lt;c&gt; &quot;d&quot;", `a & b <c> "d"`},
		{"&copy; 2024 &eacute;", "&copy; 2024 &eacute;"},
		{"  <br/>padded  ", "padded"},
		{"&amp;lt;", "<"},
		{"&amp;lt;b&amp;gt;", "<b>"},
		{"&amp;nbsp;", "&nbsp;"},
		{"<div class=\"x\">multi\nline</div>", "multi\nline"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanHTML(tt.in), "CleanHTML(%q)", tt.in)
	}
}

func TestCleanHTMLIdempotentOnCleanText(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"plain", "Honey & wax", "5 > 3", "&copy; kept"} {
		once := CleanHTML(s)
		assert.Equal(t, once, CleanHTML(once))
	}
}
