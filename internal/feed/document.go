package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// markupFields are item fields whose inner markup is kept when they carry
// child elements. The generic tree drops the order of mixed content.
var markupFields = map[string]bool{
	"SHORT_DESCRIPTION": true,
	"DESCRIPTION":       true,
}

var (
	errTrailingContent = errors.New("content after root element")
	errNoRoot          = errors.New("no root element")

	markupText = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	markupAttr = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;")
)

// itemMarkup holds, per SHOPITEM in document order, the inner markup of its
// markupFields.
type itemMarkup []map[string]string

func (m itemMarkup) field(index int, name string) string {
	if index < 0 || index >= len(m) || m[index] == nil {
		return ""
	}
	return m[index][name]
}

// scanDocument walks every token of data. It rejects documents with more
// than one root element or with text after the root, and records the inner
// markup of markupFields under SHOP.SHOPITEM.
func scanDocument(data []byte) (itemMarkup, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel

	var (
		path     []string
		rootSeen bool
		items    itemMarkup
		capture  *fragment
		field    string
	)

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if rootSeen && len(path) == 0 {
				return nil, errTrailingContent
			}
			rootSeen = true
			path = append(path, t.Name.Local)

			switch {
			case capture != nil:
				capture.start(t)
			case len(path) == 2 && path[0] == RootElement && t.Name.Local == ItemElement:
				items = append(items, nil)
			case len(path) == 3 && path[0] == RootElement && path[1] == ItemElement && markupFields[t.Name.Local]:
				capture, field = &fragment{}, t.Name.Local
			}

		case xml.EndElement:
			depth := len(path)
			path = path[:depth-1]
			if capture == nil {
				continue
			}
			if depth > 3 {
				capture.end(t)
				continue
			}
			last := len(items) - 1
			if items[last] == nil {
				items[last] = map[string]string{}
			}
			items[last][field] = capture.String()
			capture = nil

		case xml.CharData:
			if capture != nil {
				capture.text(string(t))
				continue
			}
			if rootSeen && len(path) == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, errTrailingContent
			}
		}
	}

	if !rootSeen {
		return nil, errNoRoot
	}
	return items, nil
}

// fragment re-serializes element content. Empty elements are written
// self-closed.
type fragment struct {
	buf  strings.Builder
	open bool
}

func (f *fragment) start(t xml.StartElement) {
	f.closeTag()
	f.buf.WriteString("<" + t.Name.Local)
	for _, a := range t.Attr {
		f.buf.WriteString(" " + a.Name.Local + `="` + markupAttr.Replace(a.Value) + `"`)
	}
	f.open = true
}

func (f *fragment) end(t xml.EndElement) {
	if f.open {
		f.buf.WriteString("/>")
		f.open = false
		return
	}
	f.buf.WriteString("</" + t.Name.Local + ">")
}

func (f *fragment) text(s string) {
	f.closeTag()
	f.buf.WriteString(markupText.Replace(s))
}

func (f *fragment) closeTag() {
	if f.open {
		f.buf.WriteByte('>')
		f.open = false
	}
}

func (f *fragment) String() string {
	f.closeTag()
	return f.buf.String()
}

// hasChildElements reports whether a tree node is an element with
// sub-elements rather than plain text or text with attributes.
func hasChildElements(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	for k := range m {
		if k != TextKey && !strings.HasPrefix(k, AttrPrefix) {
			return true
		}
	}
	return false
}
