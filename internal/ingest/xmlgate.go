package ingest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/scansage/scansage/internal/errors"
)

// unsafeMarkers are scanned case-insensitively on the raw payload before
// any tree construction. Matching payloads are rejected outright; no
// entity is ever resolved.
var unsafeMarkers = []string{"<!doctype", "<!entity"}

// Structural decode failures. These causes stay internal; callers only
// ever see the fixed malformed-XML message.
var (
	errNoRoot             = fmt.Errorf("no root element")
	errMultipleRoots      = fmt.Errorf("multiple root elements")
	errContentOutsideRoot = fmt.Errorf("content outside root element")
	errUnbalancedTree     = fmt.Errorf("unbalanced element tree")
)

// Element is one node of the whitelisted document tree: a name, its
// attributes, and child elements. Character data is not retained; the
// ingestion pipeline only consumes elements and attributes.
type Element struct {
	Name     string
	Attrs    map[string]string
	Children []*Element
}

// Attr returns the named attribute value, or the empty string.
func (e *Element) Attr(name string) string {
	if e == nil {
		return ""
	}
	return e.Attrs[name]
}

// ChildrenNamed returns all direct children with the given element name.
func (e *Element) ChildrenNamed(name string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, child := range e.Children {
		if child.Name == name {
			out = append(out, child)
		}
	}
	return out
}

// FirstChild returns the first direct child with the given element name,
// or nil.
func (e *Element) FirstChild(name string) *Element {
	if e == nil {
		return nil
	}
	for _, child := range e.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Document is a safety-gated element tree.
type Document struct {
	Root *Element
}

// ParseSafely validates payload against the untrusted-XML boundary and
// builds the element tree. Failure modes, in evaluation order: oversize,
// invalid UTF-8, unsafe markup declaration, malformed XML. Each failure
// carries a fixed message with no payload text. The decode path has no
// external entity or DTD resolution; the raw-text marker scan in front of
// it is a fast-path guard, not the sole control.
func ParseSafely(payload []byte, maxBytes int) (*Document, error) {
	if len(payload) > maxBytes {
		return nil, errors.ErrPayloadOversize()
	}
	if !utf8.Valid(payload) {
		return nil, errors.ErrInvalidEncoding()
	}
	lowered := strings.ToLower(string(payload))
	for _, marker := range unsafeMarkers {
		if strings.Contains(lowered, marker) {
			return nil, errors.ErrUnsafeDeclaration()
		}
	}
	return decodeTree(payload)
}

// decodeTree walks the token stream in strict mode and assembles the
// element tree. Directives are rejected as unsafe even though the marker
// scan should already have caught them.
func decodeTree(payload []byte) (*Document, error) {
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	decoder.Strict = true

	var root *Element
	var stack []*Element

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ErrMalformedXML(err)
		}

		switch tok := token.(type) {
		case xml.StartElement:
			element := &Element{
				Name:  tok.Name.Local,
				Attrs: make(map[string]string, len(tok.Attr)),
			}
			for _, attr := range tok.Attr {
				element.Attrs[attr.Name.Local] = attr.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.ErrMalformedXML(errMultipleRoots)
				}
				root = element
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, element)
			}
			stack = append(stack, element)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errors.ErrMalformedXML(errUnbalancedTree)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 && len(bytes.TrimSpace(tok)) > 0 {
				return nil, errors.ErrMalformedXML(errContentOutsideRoot)
			}
		case xml.Directive:
			return nil, errors.ErrUnsafeDeclaration()
		case xml.Comment, xml.ProcInst:
			// Harmless; carried no content we keep.
		}
	}

	if root == nil {
		return nil, errors.ErrMalformedXML(errNoRoot)
	}
	if len(stack) != 0 {
		return nil, errors.ErrMalformedXML(errUnbalancedTree)
	}
	return &Document{Root: root}, nil
}
