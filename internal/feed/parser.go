package feed

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clbanning/mxj/v2"
	"golang.org/x/net/html/charset"
)

func init() {
	// Feeds declare their encoding in the prolog, often windows-1250.
	mxj.XmlCharsetReader = charset.NewReaderLabel
}

const (
	// AttrPrefix marks attribute keys in a parsed tree (mxj default).
	AttrPrefix = "-"
	// TextKey holds the character data of an element that also has attributes.
	TextKey = "#text"

	// RootElement and ItemElement locate the repeated item list: SHOP.SHOPITEM.
	RootElement = "SHOP"
	ItemElement = "SHOPITEM"
)

var numericAttr = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

// ParseError reports feed bytes that are not well-formed XML.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed xml: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseTree decodes an XML document into a generic tree keyed by element
// name. Attributes live under AttrPrefix+name, text of mixed elements under
// TextKey, and repeated siblings collapse into []any. Numeric-looking
// attribute values are converted to int64 or float64.
func ParseTree(data []byte) (map[string]any, error) {
	tree, _, err := parseDocument(data)
	return tree, err
}

func parseDocument(data []byte) (map[string]any, itemMarkup, error) {
	markup, err := scanDocument(data)
	if err != nil {
		return nil, nil, &ParseError{Err: err}
	}

	m, err := mxj.NewMapXml(data)
	if err != nil {
		return nil, nil, &ParseError{Err: err}
	}

	tree := map[string]any(m)
	castAttributes(tree)
	return tree, markup, nil
}

func castAttributes(node any) {
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			if s, ok := v.(string); ok && strings.HasPrefix(k, AttrPrefix) {
				n[k] = castNumber(s)
				continue
			}
			castAttributes(v)
		}
	case []any:
		for _, v := range n {
			castAttributes(v)
		}
	}
}

// castNumber keeps values such as "007" or "1e3" as strings; only plain
// decimal notation is converted.
func castNumber(s string) any {
	if !numericAttr.MatchString(s) {
		return s
	}
	if !strings.Contains(s, ".") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// ToSequence normalizes a repeatable XML group: absent yields an empty
// sequence, a single node yields a one-element sequence and a repeated
// group is returned in document order.
func ToSequence(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// Items returns the SHOP.SHOPITEM entries of a parsed feed.
func Items(tree map[string]any) []any {
	root, ok := tree[RootElement].(map[string]any)
	if !ok {
		return nil
	}
	return ToSequence(root[ItemElement])
}

// child returns the named sub-element of node when node is an element map.
func child(node any, name string) any {
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	return m[name]
}

// attr returns an attribute value of node, or nil.
func attr(node any, name string) any {
	return child(node, AttrPrefix+name)
}

// textOf renders a node as text. Elements with attributes contribute their
// character data; repeated elements contribute their first occurrence.
func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		return textOf(t[TextKey])
	case []any:
		if len(t) == 0 {
			return ""
		}
		return textOf(t[0])
	default:
		return fmt.Sprint(t)
	}
}
