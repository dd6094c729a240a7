package checkout

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Doc is a structured view over the provider's flat XML schema. Element
// names become keys with hyphens normalised to underscores; a key maps to a
// scalar string, a nested *Doc, or a []any when the same tag repeats under
// one parent. Keys keep document order.
type Doc struct {
	order  []string
	fields map[string]any
}

// FieldError reports a dotted-path lookup that found no value. Callers must
// treat absence as an error rather than a zero value so malformed payloads
// surface instead of being masked.
type FieldError struct {
	Path string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("checkout: field %q not present", e.Path)
}

func newDoc() *Doc {
	return &Doc{fields: map[string]any{}}
}

// ParseDoc converts a well-formed XML document into a Doc rooted at the
// document element's children. Malformed XML yields an error.
func ParseDoc(data []byte) (*Doc, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("checkout: document has no root element")
		}
		if err != nil {
			return nil, fmt.Errorf("checkout: parse document: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		value, err := parseElement(dec, start)
		if err != nil {
			return nil, fmt.Errorf("checkout: parse document: %w", err)
		}
		if doc, ok := value.(*Doc); ok {
			return doc, nil
		}
		// Text-only root: nothing to key on, same as an empty element.
		return newDoc(), nil
	}
}

// parseElement walks one element depth-first. Text-only content with a
// non-whitespace payload is the element's value, returned verbatim; child
// elements fold into a nested Doc. Whitespace-only text is ignored, matching
// the provider's pretty-printed XML.
func parseElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	doc := newDoc()
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			value, err := parseElement(dec, t)
			if err != nil {
				return nil, err
			}
			doc.fold(fieldKey(t.Name.Local), value)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(doc.fields) == 0 {
				if strings.TrimSpace(text.String()) != "" {
					return text.String(), nil
				}
			}
			return doc, nil
		}
	}
}

// fold applies the repetition rule: the first occurrence is stored as a
// single value, the second promotes it in place to a two-element slice, and
// later occurrences append. The first occurrence is never lost.
func (d *Doc) fold(key string, value any) {
	existing, ok := d.fields[key]
	if !ok {
		d.order = append(d.order, key)
		d.fields[key] = value
		return
	}
	if list, ok := existing.([]any); ok {
		d.fields[key] = append(list, value)
		return
	}
	d.fields[key] = []any{existing, value}
}

func fieldKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// Keys returns the field names in document order.
func (d *Doc) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Len reports the number of distinct keys.
func (d *Doc) Len() int {
	if d == nil {
		return 0
	}
	return len(d.fields)
}

// Lookup traverses a dotted path and reports whether a value exists there.
// Intermediate segments must be nested documents.
func (d *Doc) Lookup(path string) (any, bool) {
	if d == nil {
		return nil, false
	}
	segments := strings.Split(path, ".")
	var current any = d
	for _, segment := range segments {
		doc, ok := current.(*Doc)
		if !ok {
			return nil, false
		}
		current, ok = doc.fields[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Get returns the scalar string at a dotted path. Absence yields a
// *FieldError; a nested or repeated value yields a type error.
func (d *Doc) Get(path string) (string, error) {
	value, ok := d.Lookup(path)
	if !ok {
		return "", &FieldError{Path: path}
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("checkout: field %q is not a scalar", path)
	}
	return s, nil
}

// Sub returns the nested document at a dotted path.
func (d *Doc) Sub(path string) (*Doc, error) {
	value, ok := d.Lookup(path)
	if !ok {
		return nil, &FieldError{Path: path}
	}
	doc, ok := value.(*Doc)
	if !ok {
		return nil, fmt.Errorf("checkout: field %q is not a document", path)
	}
	return doc, nil
}

// List returns the value at a dotted path as a slice, wrapping a single
// value so callers need not care whether the tag appeared once or many
// times.
func (d *Doc) List(path string) ([]any, error) {
	value, ok := d.Lookup(path)
	if !ok {
		return nil, &FieldError{Path: path}
	}
	if list, ok := value.([]any); ok {
		return list, nil
	}
	return []any{value}, nil
}

// Items returns the shopping-cart line items as documents. The underlying
// schema emits a bare <item> for a single-line cart and repeated siblings
// otherwise; Items always yields a slice.
func (d *Doc) Items() ([]*Doc, error) {
	const path = "shopping_cart.items.item"
	raw, err := d.List(path)
	if err != nil {
		return nil, err
	}
	items := make([]*Doc, 0, len(raw))
	for _, value := range raw {
		doc, ok := value.(*Doc)
		if !ok {
			return nil, fmt.Errorf("checkout: field %q holds a non-document item", path)
		}
		items = append(items, doc)
	}
	return items, nil
}
