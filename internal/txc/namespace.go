package txc

import "strings"

// Namespace is the XML namespace context of one document
// The zero value means the document is unqualified.
type Namespace struct {
	URI string
}

// ResolveNamespace detects the namespace used by a document from its root tag
func ResolveNamespace(root *Node) Namespace {
	if root == nil {
		return Namespace{}
	}
	uri, _ := SplitTag(root.Tag())
	return Namespace{URI: uri}
}

// Qualified reports whether the document uses a namespace
func (ns Namespace) Qualified() bool {
	return ns.URI != ""
}

// Qualify renders a local name as a tag in this namespace
func (ns Namespace) Qualify(local string) string {
	if ns.URI == "" {
		return local
	}
	return "{" + ns.URI + "}" + local
}

// Matches reports whether n carries exactly the qualified name {ns}local
func (ns Namespace) Matches(n *Node, local string) bool {
	return n != nil && n.Tag() == ns.Qualify(local)
}

// SplitTag splits a Clark notation tag ({uri}local) into its parts
// Tags without a namespace return an empty uri.
func SplitTag(tag string) (uri, local string) {
	if strings.HasPrefix(tag, "{") {
		if end := strings.Index(tag, "}"); end > 0 {
			return tag[1:end], tag[end+1:]
		}
	}
	return "", tag
}

// LocalName strips any namespace prefix from a tag
func LocalName(tag string) string {
	if i := strings.LastIndex(tag, "}"); i >= 0 {
		return tag[i+1:]
	}
	return tag
}
