package pysyntax

// FunctionComplexity is the cyclomatic complexity of one function body.
type FunctionComplexity struct {
	Line       int
	Complexity int
}

// Complexity reports the module's functions in source order, counted the way
// radon's ComplexityVisitor lists them: class methods are not listed, and a
// nested function is neither listed nor counted toward its parent.
func (t *Tree) Complexity() []FunctionComplexity {
	out := make([]FunctionComplexity, 0)
	var visit func(n *Node)
	visit = func(n *Node) {
		for _, c := range n.Children {
			switch {
			case isFunction(c):
				out = append(out, FunctionComplexity{Line: c.Line, Complexity: functionComplexity(c)})
			case c.Kind == "ClassDef":
			default:
				visit(c)
			}
		}
	}
	visit(t.Root)
	return out
}

// AverageComplexity is the mean over all listed functions, or 0 when there
// are none.
func (t *Tree) AverageComplexity() float64 {
	funcs := t.Complexity()
	if len(funcs) == 0 {
		return 0
	}
	total := 0
	for _, f := range funcs {
		total += f.Complexity
	}
	return float64(total) / float64(len(funcs))
}

func functionComplexity(fn *Node) int {
	complexity := 1
	for _, c := range fn.Children {
		if c.Field == "body" {
			complexity += decisions(c)
		}
	}
	return complexity
}

// decisions counts the branch points under n. With blocks are not branches.
func decisions(n *Node) int {
	if isFunction(n) || n.Kind == "ClassDef" {
		return 0
	}

	count := 0
	switch n.Kind {
	case "Assert":
		// Counted once; its operands are not searched.
		return 1
	case "If", "IfExp":
		count++
	case "For", "AsyncFor", "While":
		count += 1 + present(n, "orelse")
	case "Try":
		count += n.Count("handlers") + present(n, "orelse")
	case "BoolOp":
		count += n.Count("values") - 1
	case "comprehension":
		count += 1 + n.Count("ifs")
	case "Match":
		cases := n.Count("cases")
		if hasWildcard(n) {
			cases--
		}
		count += max(cases, 0)
	}

	for _, c := range n.Children {
		count += decisions(c)
	}
	return count
}

func present(n *Node, field string) int {
	if n.Get(field) != nil {
		return 1
	}
	return 0
}

// hasWildcard reports a case whose pattern is a bare capture or "_".
func hasWildcard(match *Node) bool {
	for _, c := range match.Children {
		if c.Field != "cases" {
			continue
		}
		if pat := c.Get("pattern"); pat != nil && pat.Kind == "MatchAs" && pat.Get("pattern") == nil {
			return true
		}
	}
	return false
}

func isFunction(n *Node) bool {
	return n.Kind == "FunctionDef" || n.Kind == "AsyncFunctionDef"
}
