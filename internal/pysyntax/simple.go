package pysyntax

import "strings"

var augmentedOps = map[string]string{
	"+=": "Add", "-=": "Sub", "*=": "Mult", "/=": "Div", "//=": "FloorDiv",
	"%=": "Mod", "**=": "Pow", ">>=": "RShift", "<<=": "LShift",
	"&=": "BitAnd", "|=": "BitOr", "^=": "BitXor", "@=": "MatMult",
}

func simpleStatements(toks []Token, line int) ([]*Node, error) {
	nodes := make([]*Node, 0)
	for _, part := range splitTopLevel(toks, ";") {
		if len(part) == 0 {
			continue
		}
		p := newExprParser(part, line)
		node, err := p.simpleStatement()
		if err != nil {
			return nil, err
		}
		if err := p.end(); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (p *exprParser) simpleStatement() (*Node, error) {
	t := p.cur()
	line := t.Line
	if t.Kind != TokKeyword {
		return p.expressionStatement(line)
	}

	switch t.Text {
	case "return":
		p.pos++
		var value *Node
		if p.more() {
			v, err := p.starExpressions()
			if err != nil {
				return nil, err
			}
			value = v
		}
		return build("Return", line, fld("value", value)), nil
	case "pass", "break", "continue":
		p.pos++
		return leaf(title(t.Text), line), nil
	case "del":
		p.pos++
		return p.del(line)
	case "raise":
		p.pos++
		return p.raise(line)
	case "assert":
		p.pos++
		test, err := p.test()
		if err != nil {
			return nil, err
		}
		var msg *Node
		if p.acceptOp(",") {
			if msg, err = p.test(); err != nil {
				return nil, err
			}
		}
		return build("Assert", line, fld("test", test), fld("msg", msg)), nil
	case "import":
		p.pos++
		aliases, err := p.importNames(true)
		if err != nil {
			return nil, err
		}
		return build("Import", line, fld("names", aliases...)), nil
	case "from":
		p.pos++
		return p.importFrom(line)
	case "global", "nonlocal":
		p.pos++
		if err := p.expectName(); err != nil {
			return nil, err
		}
		for p.acceptOp(",") {
			if err := p.expectName(); err != nil {
				return nil, err
			}
		}
		return leaf(title(t.Text), line), nil
	}
	if compoundKeywords[t.Text] || clauseKeywords[t.Text] {
		return nil, p.errorf("invalid syntax")
	}
	return p.expressionStatement(line)
}

func (p *exprParser) expressionStatement(line int) (*Node, error) {
	first, err := p.valueOrYield()
	if err != nil {
		return nil, err
	}

	switch {
	case p.isOp("="):
		targets := []*Node{first}
		for p.acceptOp("=") {
			v, err := p.valueOrYield()
			if err != nil {
				return nil, err
			}
			targets = append(targets, v)
		}
		value := targets[len(targets)-1]
		targets = targets[:len(targets)-1]
		for _, target := range targets {
			if err := setContext(target, "Store"); err != nil {
				return nil, err
			}
		}
		return build("Assign", line, fld("targets", targets...), fld("value", value)), nil

	case p.more() && p.cur().Kind == TokOp && augmentedOps[p.cur().Text] != "":
		op := augmentedOps[p.cur().Text]
		p.pos++
		if !singleTarget(first) {
			return nil, syntaxErr(line, "illegal expression for augmented assignment")
		}
		if err := setContext(first, "Store"); err != nil {
			return nil, err
		}
		value, err := p.valueOrYield()
		if err != nil {
			return nil, err
		}
		return build("AugAssign", line, fld("target", first), fld("op", leaf(op, line)), fld("value", value)), nil

	case p.acceptOp(":"):
		if !singleTarget(first) {
			return nil, syntaxErr(line, "illegal target for annotation")
		}
		if err := setContext(first, "Store"); err != nil {
			return nil, err
		}
		annotation, err := p.test()
		if err != nil {
			return nil, err
		}
		var value *Node
		if p.acceptOp("=") {
			if value, err = p.valueOrYield(); err != nil {
				return nil, err
			}
		}
		return build("AnnAssign", line, fld("target", first), fld("annotation", annotation), fld("value", value)), nil
	}

	return build("Expr", line, fld("value", first)), nil
}

func (p *exprParser) valueOrYield() (*Node, error) {
	if p.isKeyword("yield") {
		return p.yieldExpr()
	}
	return p.starExpressions()
}

func (p *exprParser) del(line int) (*Node, error) {
	var targets []*Node
	for {
		target, err := p.binary(0)
		if err != nil {
			return nil, err
		}
		if err := setContext(target, "Del"); err != nil {
			return nil, err
		}
		targets = append(targets, target)
		if !p.acceptOp(",") || !p.more() {
			break
		}
	}
	return build("Delete", line, fld("targets", targets...)), nil
}

func (p *exprParser) raise(line int) (*Node, error) {
	var exc, cause *Node
	if p.more() {
		var err error
		if exc, err = p.test(); err != nil {
			return nil, err
		}
		if p.acceptKeyword("from") {
			if cause, err = p.test(); err != nil {
				return nil, err
			}
		}
	}
	return build("Raise", line, fld("exc", exc), fld("cause", cause)), nil
}

// importNames parses "a.b as c, d" for import, or "a as b, c" for from-import
// when dotted is false.
func (p *exprParser) importNames(dotted bool) ([]*Node, error) {
	var aliases []*Node
	for {
		line := p.curLine()
		if err := p.expectName(); err != nil {
			return nil, err
		}
		for dotted && p.acceptOp(".") {
			if err := p.expectName(); err != nil {
				return nil, err
			}
		}
		if p.acceptKeyword("as") {
			if err := p.expectName(); err != nil {
				return nil, err
			}
		}
		aliases = append(aliases, leaf("alias", line))

		if !p.acceptOp(",") {
			return aliases, nil
		}
		if !dotted && (!p.more() || p.isOp(")")) {
			return aliases, nil
		}
	}
}

func (p *exprParser) importFrom(line int) (*Node, error) {
	dots := 0
	for p.acceptOp(".") || p.acceptOp("...") {
		dots++
	}
	if !p.isKeyword("import") {
		if err := p.expectName(); err != nil {
			return nil, err
		}
		for p.acceptOp(".") {
			if err := p.expectName(); err != nil {
				return nil, err
			}
		}
	} else if dots == 0 {
		return nil, p.errorf("invalid import")
	}
	if err := p.expectKeyword("import"); err != nil {
		return nil, err
	}

	var aliases []*Node
	switch {
	case p.acceptOp("*"):
		aliases = []*Node{leaf("alias", line)}
	case p.acceptOp("("):
		names, err := p.importNames(false)
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		aliases = names
	default:
		names, err := p.importNames(false)
		if err != nil {
			return nil, err
		}
		aliases = names
	}
	return build("ImportFrom", line, fld("names", aliases...)), nil
}

func singleTarget(n *Node) bool {
	return n.Kind == "Name" || n.Kind == "Attribute" || n.Kind == "Subscript"
}

func title(word string) string {
	return strings.ToUpper(word[:1]) + word[1:]
}
