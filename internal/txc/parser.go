package txc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ErrEmptyDocument is returned when a document contains no root element
var ErrEmptyDocument = errors.New("document has no root element")

// Node is a generic XML element
// Name.Space holds the resolved namespace URI, not the prefix
type Node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*Node

	text strings.Builder
}

// Tag returns the element name in Clark notation ({uri}local) or the bare local name
func (n *Node) Tag() string {
	if n.Name.Space == "" {
		return n.Name.Local
	}
	return "{" + n.Name.Space + "}" + n.Name.Local
}

// Text returns the trimmed character data directly under the element
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.text.String())
}

// Attr returns the value of the attribute with the given local name
func (n *Node) Attr(local, defaultValue string) string {
	if n == nil {
		return defaultValue
	}
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return defaultValue
}

// Walk visits the node and all of its descendants in document order
func (n *Node) Walk(visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// ParseBytes parses an in-memory XML document
func ParseBytes(data []byte) (*Node, error) {
	return Parse(bytes.NewReader(data))
}

// Parse builds an element tree from r
// No schema validation is performed; malformed or truncated XML is an error.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var root *Node
	var stack []*Node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name, Attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("failed to parse XML: multiple root elements (%s)", node.Tag())
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("failed to parse XML: unexpected end of document inside <%s>", stack[len(stack)-1].Name.Local)
	}
	if root == nil {
		return nil, ErrEmptyDocument
	}

	return root, nil
}

// charsetReader accepts the single-byte encodings some TransXChange exporters declare
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	case "iso-8859-15", "latin-9":
		return charmap.ISO8859_15.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported charset: %s", label)
}
