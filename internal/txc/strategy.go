package txc

import "fmt"

// Strategy defines how logical fields are located in a document tree
// Each strategy resolves the same logical names; they differ in how strictly
// element position and namespace are honoured.
type Strategy interface {
	Name() string
	// Match reports whether n is the element named local
	Match(ns Namespace, n *Node, local string) bool
	// Find returns the elements named by locals that belong to a top-level container
	Find(ns Namespace, root *Node, container string, locals ...string) []*Node
	// Lookup returns every element reached by following path from n
	Lookup(ns Namespace, n *Node, path ...string) []*Node
	// DropEmptyLinks reports whether timing links without any stop reference are discarded
	DropEmptyLinks() bool
}

// TargetedStrategy resolves exact namespace-qualified paths relative to known containers
// It is fast but brittle when a producer nests elements differently.
type TargetedStrategy struct{}

func (s *TargetedStrategy) Name() string {
	return "targeted"
}

func (s *TargetedStrategy) Match(ns Namespace, n *Node, local string) bool {
	return ns.Matches(n, local)
}

func (s *TargetedStrategy) Find(ns Namespace, root *Node, container string, locals ...string) []*Node {
	var found []*Node
	if root == nil {
		return found
	}
	for _, c := range root.Children {
		if !s.Match(ns, c, container) {
			continue
		}
		for _, item := range c.Children {
			if matchAny(s, ns, item, locals) {
				found = append(found, item)
			}
		}
	}
	return found
}

func (s *TargetedStrategy) Lookup(ns Namespace, n *Node, path ...string) []*Node {
	if n == nil || len(path) == 0 {
		return nil
	}
	current := []*Node{n}
	for _, step := range path {
		var next []*Node
		for _, node := range current {
			for _, c := range node.Children {
				if s.Match(ns, c, step) {
					next = append(next, c)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

func (s *TargetedStrategy) DropEmptyLinks() bool {
	return false
}

// SuffixScanStrategy matches bare local names anywhere below the starting element
// Namespace prefixes are ignored, which tolerates schema drift at the cost of a
// full traversal per lookup.
type SuffixScanStrategy struct{}

func (s *SuffixScanStrategy) Name() string {
	return "suffix"
}

func (s *SuffixScanStrategy) Match(_ Namespace, n *Node, local string) bool {
	return n != nil && LocalName(n.Tag()) == local
}

func (s *SuffixScanStrategy) Find(ns Namespace, root *Node, _ string, locals ...string) []*Node {
	var found []*Node
	root.Walk(func(n *Node) {
		if matchAny(s, ns, n, locals) {
			found = append(found, n)
		}
	})
	return found
}

func (s *SuffixScanStrategy) Lookup(ns Namespace, n *Node, path ...string) []*Node {
	if n == nil || len(path) == 0 {
		return nil
	}
	current := []*Node{n}
	for _, step := range path {
		var next []*Node
		seen := make(map[*Node]bool)
		for _, node := range current {
			for _, c := range node.Children {
				c.Walk(func(d *Node) {
					if !seen[d] && s.Match(ns, d, step) {
						seen[d] = true
						next = append(next, d)
					}
				})
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

func (s *SuffixScanStrategy) DropEmptyLinks() bool {
	return true
}

// GetStrategy returns a strategy by name
func GetStrategy(name string) (Strategy, error) {
	switch name {
	case "targeted":
		return &TargetedStrategy{}, nil
	case "suffix", "":
		return &SuffixScanStrategy{}, nil
	}
	return nil, fmt.Errorf("unknown extraction strategy: %q", name)
}

// GetAllStrategies returns all available strategies
func GetAllStrategies() []Strategy {
	return []Strategy{
		&TargetedStrategy{},
		&SuffixScanStrategy{},
	}
}

func matchAny(s Strategy, ns Namespace, n *Node, locals []string) bool {
	for _, local := range locals {
		if s.Match(ns, n, local) {
			return true
		}
	}
	return false
}
