package pysyntax

import "strings"

// Node is one syntax element. Kind is the Python ast class name and Field the
// name of the parent field holding it ("body", "orelse", "ifs", ...).
// Operators and expression contexts are nodes too, as in Python's ast.
type Node struct {
	Kind     string
	Field    string
	Line     int
	Children []*Node
}

type Tree struct {
	Root *Node
}

type field struct {
	name  string
	nodes []*Node
}

func fld(name string, nodes ...*Node) field {
	return field{name: name, nodes: nodes}
}

// build assembles a node from its fields in declaration order. Nil entries
// stand for absent optional fields and are skipped.
func build(kind string, line int, fields ...field) *Node {
	n := &Node{Kind: kind, Line: line}
	for _, f := range fields {
		for _, c := range f.nodes {
			if c == nil {
				continue
			}
			c.Field = f.name
			n.Children = append(n.Children, c)
		}
	}
	return n
}

func leaf(kind string, line int) *Node {
	return &Node{Kind: kind, Line: line}
}

// Count returns the number of children held in the named field.
func (n *Node) Count(name string) int {
	count := 0
	for _, c := range n.Children {
		if c.Field == name {
			count++
		}
	}
	return count
}

// Get returns the first child held in the named field, or nil.
func (n *Node) Get(name string) *Node {
	for _, c := range n.Children {
		if c.Field == name {
			return c
		}
	}
	return nil
}

// Walk visits the tree breadth-first, children in field order, matching
// Python's ast.walk.
func (t *Tree) Walk(visit func(n *Node)) {
	queue := []*Node{t.Root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		queue = append(queue, n.Children...)
		visit(n)
	}
}

// Fingerprint lists the node kinds in walk order, joined by "-".
func (t *Tree) Fingerprint() string {
	kinds := make([]string, 0, 64)
	t.Walk(func(n *Node) {
		kinds = append(kinds, n.Kind)
	})
	return strings.Join(kinds, "-")
}
