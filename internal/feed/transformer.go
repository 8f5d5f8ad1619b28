package feed

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/VlastikSap/product-sets-integration/internal/model"
)

const (
	defaultVisibility   = "visible"
	defaultAvailability = "unknown"
	defaultAmount       = 1.0
)

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// entities are decoded one after another, so "&amp;lt;" ends up as "<".
var entities = [...][2]string{
	{"&nbsp;", " "},
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
}

// CleanHTML strips tags and decodes the &nbsp; &amp; &lt; &gt; &quot;
// entities in that order. Any other entity is left as is.
func CleanHTML(s string) string {
	if s == "" {
		return ""
	}
	s = htmlTag.ReplaceAllString(s, "")
	for _, e := range entities {
		s = strings.ReplaceAll(s, e[0], e[1])
	}
	return strings.TrimSpace(s)
}

// ParseProducts maps every SHOPITEM with a CODE into a products table row.
// Items without a code are skipped.
func ParseProducts(data []byte, loadedAt time.Time) ([]model.ProductRow, error) {
	tree, markup, err := parseDocument(data)
	if err != nil {
		return nil, err
	}

	items := Items(tree)
	rows := make([]model.ProductRow, 0, len(items))
	for i, item := range items {
		row, ok := productRow(item, markup, i, loadedAt)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func productRow(item any, markup itemMarkup, index int, loadedAt time.Time) (model.ProductRow, bool) {
	fields, ok := item.(map[string]any)
	if !ok {
		return model.ProductRow{}, false
	}

	code := strings.TrimSpace(textOf(fields["CODE"]))
	if code == "" {
		return model.ProductRow{}, false
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		raw = nil
	}

	return model.ProductRow{
		ProductCode:      code,
		ProductID:        productID(attr(item, "id")),
		Name:             strings.TrimSpace(textOf(fields["NAME"])),
		URL:              strings.TrimSpace(textOf(fields["URL"])),
		ImgURL:           firstImage(fields["IMAGES"]),
		ShortDescription: CleanHTML(fieldMarkup(fields, markup, index, "SHORT_DESCRIPTION")),
		DescriptionHTML:  fieldMarkup(fields, markup, index, "DESCRIPTION"),
		Visibility:       orDefault(textOf(fields["VISIBILITY"]), defaultVisibility),
		Availability:     orDefault(textOf(fields["AVAILABILITY"]), defaultAvailability),
		CategoryIDs:      categoryIDs(fields["CATEGORIES"]),
		RawXML:           string(raw),
		UpdatedAt:        loadedAt,
	}, true
}

// fieldMarkup returns the text of an item field, or its inner markup when
// the field mixes text with child elements.
func fieldMarkup(fields map[string]any, markup itemMarkup, index int, name string) string {
	v := fields[name]
	if hasChildElements(v) {
		if inner := markup.field(index, name); inner != "" {
			return inner
		}
	}
	return textOf(v)
}

// firstImage returns the first IMAGES.IMAGE in document order.
func firstImage(images any) string {
	seq := ToSequence(child(images, "IMAGE"))
	if len(seq) == 0 {
		return ""
	}
	return strings.TrimSpace(textOf(seq[0]))
}

// categoryIDs maps each CATEGORIES.CATEGORY to its id attribute, falling back
// to the element text. Order and duplicates are preserved.
func categoryIDs(categories any) []string {
	seq := ToSequence(child(categories, "CATEGORY"))
	ids := make([]string, 0, len(seq))
	for _, cat := range seq {
		if id := textOf(attr(cat, "id")); id != "" {
			ids = append(ids, id)
			continue
		}
		ids = append(ids, textOf(cat))
	}
	return ids
}

func productID(v any) *int64 {
	var id int64
	switch t := v.(type) {
	case int64:
		id = t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		id = int64(t)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil
		}
		id = parsed
	default:
		return nil
	}
	return &id
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

// ParseSetItems emits one row per SET_ITEMS.SET_ITEM of every SHOPITEM that
// has a CODE. Entries without their own CODE are skipped.
func ParseSetItems(data []byte, loadedAt time.Time) ([]model.SetItemRow, error) {
	tree, err := ParseTree(data)
	if err != nil {
		return nil, err
	}

	var rows []model.SetItemRow
	for _, item := range Items(tree) {
		setCode := strings.TrimSpace(textOf(child(item, "CODE")))
		if setCode == "" {
			continue
		}

		group := child(item, "SET_ITEMS")
		if group == nil {
			continue
		}

		for _, entry := range ToSequence(child(group, "SET_ITEM")) {
			itemCode := strings.TrimSpace(textOf(child(entry, "CODE")))
			if itemCode == "" {
				continue
			}
			rows = append(rows, model.SetItemRow{
				SetCode:   setCode,
				ItemCode:  itemCode,
				Amount:    parseAmount(child(entry, "AMOUNT")),
				UpdatedAt: loadedAt,
			})
		}
	}

	if rows == nil {
		rows = []model.SetItemRow{}
	}
	return rows, nil
}

// parseAmount accepts a decimal point or comma and defaults to 1.
func parseAmount(v any) float64 {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return defaultAmount
		}
		return t
	}

	s := strings.TrimSpace(textOf(v))
	if s == "" {
		return defaultAmount
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return defaultAmount
	}
	return f
}
