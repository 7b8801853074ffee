package pysyntax

import (
	"slices"
	"strings"
)

// binaryLevels lists binary operators from loosest to tightest binding.
var binaryLevels = [][]string{
	{"|"}, {"^"}, {"&"}, {"<<", ">>"}, {"+", "-"}, {"*", "/", "//", "%", "@"},
}

var operatorNames = map[string]string{
	"+": "Add", "-": "Sub", "*": "Mult", "/": "Div", "//": "FloorDiv", "%": "Mod",
	"**": "Pow", "@": "MatMult", "<<": "LShift", ">>": "RShift",
	"&": "BitAnd", "|": "BitOr", "^": "BitXor",
}

var compareNames = map[string]string{
	"==": "Eq", "!=": "NotEq", "<": "Lt", "<=": "LtE", ">": "Gt", ">=": "GtE",
}

var unaryNames = map[string]string{"+": "UAdd", "-": "USub", "~": "Invert"}

// exprParser is a recursive-descent parser over the tokens of one statement
// part. Every method leaves pos after the last token it consumed.
type exprParser struct {
	toks []Token
	pos  int
	line int
}

func newExprParser(toks []Token, line int) *exprParser {
	return &exprParser{toks: toks, line: line}
}

// parseExpr runs parse over toks and rejects trailing tokens.
func parseExpr(toks []Token, line int, parse func(*exprParser) (*Node, error)) (*Node, error) {
	p := newExprParser(toks, line)
	n, err := parse(p)
	if err != nil {
		return nil, err
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *exprParser) more() bool {
	return p.pos < len(p.toks)
}

func (p *exprParser) cur() Token {
	return p.toks[p.pos]
}

func (p *exprParser) curLine() int {
	if p.more() {
		return p.toks[p.pos].Line
	}
	return p.line
}

func (p *exprParser) isOp(text string) bool {
	return p.more() && isOpToken(p.toks[p.pos], text)
}

func (p *exprParser) peekOp(offset int, text string) bool {
	i := p.pos + offset
	return i < len(p.toks) && isOpToken(p.toks[i], text)
}

func (p *exprParser) isKeyword(text string) bool {
	return p.more() && p.toks[p.pos].Kind == TokKeyword && p.toks[p.pos].Text == text
}

func (p *exprParser) acceptOp(text string) bool {
	if p.isOp(text) {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) acceptKeyword(text string) bool {
	if p.isKeyword(text) {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) expectOp(text string) error {
	if !p.acceptOp(text) {
		return p.errorf("expected '%s'", text)
	}
	return nil
}

func (p *exprParser) expectKeyword(text string) error {
	if !p.acceptKeyword(text) {
		return p.errorf("expected '%s'", text)
	}
	return nil
}

func (p *exprParser) expectName() error {
	if !p.more() || p.cur().Kind != TokName {
		return p.errorf("expected a name")
	}
	p.pos++
	return nil
}

func (p *exprParser) end() error {
	if p.more() {
		return p.errorf("invalid syntax")
	}
	return nil
}

func (p *exprParser) errorf(format string, args ...any) error {
	if !p.more() {
		format = "unexpected end of statement, " + format
	}
	return syntaxErr(p.curLine(), format, args...)
}

func (p *exprParser) startsExpr() bool {
	if !p.more() {
		return false
	}
	t := p.cur()
	switch t.Kind {
	case TokName, TokNumber, TokString:
		return true
	case TokKeyword:
		switch t.Text {
		case "not", "lambda", "await", "None", "True", "False", "yield":
			return true
		}
		return false
	}
	switch t.Text {
	case "(", "[", "{", "-", "+", "~", "*", "...":
		return true
	}
	return false
}

func (p *exprParser) startsComprehension() bool {
	if p.isKeyword("for") {
		return true
	}
	return p.isKeyword("async") && p.pos+1 < len(p.toks) &&
		p.toks[p.pos+1].Kind == TokKeyword && p.toks[p.pos+1].Text == "for"
}

func name(line int, ctx string) *Node {
	return build("Name", line, fld("ctx", leaf(ctx, line)))
}

func tuple(elts []*Node, line int) *Node {
	return build("Tuple", line, fld("elts", elts...), fld("ctx", leaf("Load", line)))
}

func starred(value *Node, line int) *Node {
	return build("Starred", line, fld("value", value), fld("ctx", leaf("Load", line)))
}

func unary(op string, operand *Node, line int) *Node {
	return build("UnaryOp", line, fld("op", leaf(op, line)), fld("operand", operand))
}

// starExpressions parses a comma list, which becomes a Tuple when a comma is
// present.
func (p *exprParser) starExpressions() (*Node, error) {
	line := p.curLine()
	first, err := p.starNamed()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	elts := []*Node{first}
	for p.acceptOp(",") {
		if !p.startsExpr() || p.isKeyword("yield") {
			break
		}
		e, err := p.starNamed()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	return tuple(elts, line), nil
}

func (p *exprParser) starNamed() (*Node, error) {
	if p.isOp("*") {
		line := p.curLine()
		p.pos++
		value, err := p.binary(0)
		if err != nil {
			return nil, err
		}
		return starred(value, line), nil
	}
	return p.namedExpr()
}

func (p *exprParser) namedExpr() (*Node, error) {
	if p.more() && p.cur().Kind == TokName && p.peekOp(1, ":=") {
		line := p.curLine()
		p.pos += 2
		value, err := p.test()
		if err != nil {
			return nil, err
		}
		return build("NamedExpr", line, fld("target", name(line, "Store")), fld("value", value)), nil
	}
	return p.test()
}

// test parses a full expression: a lambda or a possibly conditional
// disjunction.
func (p *exprParser) test() (*Node, error) {
	if p.isKeyword("lambda") {
		return p.lambda()
	}
	line := p.curLine()
	body, err := p.disjunction()
	if err != nil || !p.isKeyword("if") {
		return body, err
	}
	p.pos++
	cond, err := p.disjunction()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("else"); err != nil {
		return nil, err
	}
	orelse, err := p.test()
	if err != nil {
		return nil, err
	}
	return build("IfExp", line, fld("test", cond), fld("body", body), fld("orelse", orelse)), nil
}

func (p *exprParser) lambda() (*Node, error) {
	line := p.curLine()
	p.pos++
	start := p.pos
	colon := -1
	depth := 0
	for i := start; i < len(p.toks) && colon < 0; i++ {
		t := p.toks[i]
		if t.Kind != TokOp {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ":":
			if depth == 0 {
				colon = i
			}
		}
	}
	if colon < 0 {
		return nil, p.errorf("expected ':' in lambda")
	}

	args, err := parseParams(p.toks[start:colon], line, false)
	if err != nil {
		return nil, err
	}
	p.pos = colon + 1
	body, err := p.test()
	if err != nil {
		return nil, err
	}
	return build("Lambda", line, fld("args", args), fld("body", body)), nil
}

func (p *exprParser) disjunction() (*Node, error) {
	return p.boolOp("or", "Or", p.conjunction)
}

func (p *exprParser) conjunction() (*Node, error) {
	return p.boolOp("and", "And", p.inversion)
}

// boolOp folds a chain of one boolean operator into a single BoolOp.
func (p *exprParser) boolOp(keyword, kind string, next func() (*Node, error)) (*Node, error) {
	line := p.curLine()
	first, err := next()
	if err != nil || !p.isKeyword(keyword) {
		return first, err
	}
	values := []*Node{first}
	for p.acceptKeyword(keyword) {
		v, err := next()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return build("BoolOp", line, fld("op", leaf(kind, line)), fld("values", values...)), nil
}

func (p *exprParser) inversion() (*Node, error) {
	if p.isKeyword("not") {
		line := p.curLine()
		p.pos++
		operand, err := p.inversion()
		if err != nil {
			return nil, err
		}
		return unary("Not", operand, line), nil
	}
	return p.comparison()
}

func (p *exprParser) comparison() (*Node, error) {
	line := p.curLine()
	left, err := p.binary(0)
	if err != nil {
		return nil, err
	}

	var ops, comparators []*Node
	for {
		op := p.compareOp()
		if op == "" {
			break
		}
		right, err := p.binary(0)
		if err != nil {
			return nil, err
		}
		ops = append(ops, leaf(op, line))
		comparators = append(comparators, right)
	}
	if len(ops) == 0 {
		return left, nil
	}
	return build("Compare", line, fld("left", left), fld("ops", ops...), fld("comparators", comparators...)), nil
}

func (p *exprParser) compareOp() string {
	if !p.more() {
		return ""
	}
	t := p.cur()
	if t.Kind == TokOp {
		if op, ok := compareNames[t.Text]; ok {
			p.pos++
			return op
		}
		return ""
	}
	if t.Kind != TokKeyword {
		return ""
	}
	switch t.Text {
	case "in":
		p.pos++
		return "In"
	case "is":
		p.pos++
		if p.acceptKeyword("not") {
			return "IsNot"
		}
		return "Is"
	case "not":
		if p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == TokKeyword && p.toks[p.pos+1].Text == "in" {
			p.pos += 2
			return "NotIn"
		}
	}
	return ""
}

func (p *exprParser) binary(level int) (*Node, error) {
	if level == len(binaryLevels) {
		return p.factor()
	}
	line := p.curLine()
	left, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.more() && p.cur().Kind == TokOp && slices.Contains(binaryLevels[level], p.cur().Text) {
		op := operatorNames[p.cur().Text]
		p.pos++
		right, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		left = build("BinOp", line, fld("left", left), fld("op", leaf(op, line)), fld("right", right))
	}
	return left, nil
}

func (p *exprParser) factor() (*Node, error) {
	if p.more() && p.cur().Kind == TokOp {
		if op, ok := unaryNames[p.cur().Text]; ok {
			line := p.curLine()
			p.pos++
			operand, err := p.factor()
			if err != nil {
				return nil, err
			}
			return unary(op, operand, line), nil
		}
	}
	return p.power()
}

func (p *exprParser) power() (*Node, error) {
	line := p.curLine()
	var base *Node
	if p.acceptKeyword("await") {
		value, err := p.primary()
		if err != nil {
			return nil, err
		}
		base = build("Await", line, fld("value", value))
	} else {
		value, err := p.primary()
		if err != nil {
			return nil, err
		}
		base = value
	}

	if !p.acceptOp("**") {
		return base, nil
	}
	exponent, err := p.factor()
	if err != nil {
		return nil, err
	}
	return build("BinOp", line, fld("left", base), fld("op", leaf("Pow", line)), fld("right", exponent)), nil
}

func (p *exprParser) primary() (*Node, error) {
	node, err := p.atom()
	if err != nil {
		return nil, err
	}
	for p.more() {
		line := p.curLine()
		switch {
		case p.acceptOp("."):
			if err := p.expectName(); err != nil {
				return nil, err
			}
			node = build("Attribute", line, fld("value", node), fld("ctx", leaf("Load", line)))
		case p.acceptOp("("):
			args, keywords, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			node = build("Call", line, fld("func", node), fld("args", args...), fld("keywords", keywords...))
		case p.acceptOp("["):
			slice, err := p.slices()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp("]"); err != nil {
				return nil, err
			}
			node = build("Subscript", line, fld("value", node), fld("slice", slice), fld("ctx", leaf("Load", line)))
		default:
			return node, nil
		}
	}
	return node, nil
}

// callArgs parses call arguments after "(" through the closing ")".
func (p *exprParser) callArgs() ([]*Node, []*Node, error) {
	var args, keywords []*Node
	for !p.isOp(")") {
		line := p.curLine()
		switch {
		case p.acceptOp("*"):
			value, err := p.test()
			if err != nil {
				return nil, nil, err
			}
			args = append(args, starred(value, line))
		case p.acceptOp("**"):
			value, err := p.test()
			if err != nil {
				return nil, nil, err
			}
			keywords = append(keywords, build("keyword", line, fld("value", value)))
		case p.more() && p.cur().Kind == TokName && p.peekOp(1, "="):
			p.pos += 2
			value, err := p.test()
			if err != nil {
				return nil, nil, err
			}
			keywords = append(keywords, build("keyword", line, fld("value", value)))
		default:
			value, err := p.namedExpr()
			if err != nil {
				return nil, nil, err
			}
			if p.startsComprehension() {
				gens, err := p.comprehensions()
				if err != nil {
					return nil, nil, err
				}
				value = build("GeneratorExp", line, fld("elt", value), fld("generators", gens...))
			}
			args = append(args, value)
		}
		if !p.acceptOp(",") {
			break
		}
	}
	return args, keywords, p.expectOp(")")
}

func (p *exprParser) slices() (*Node, error) {
	line := p.curLine()
	first, err := p.slice()
	if err != nil || !p.isOp(",") {
		return first, err
	}
	elts := []*Node{first}
	for p.acceptOp(",") {
		if p.isOp("]") {
			break
		}
		e, err := p.slice()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	return tuple(elts, line), nil
}

func (p *exprParser) slice() (*Node, error) {
	line := p.curLine()
	if p.isOp("*") {
		return p.starNamed()
	}

	var lower, upper, step *Node
	var err error
	if !p.isOp(":") {
		lower, err = p.namedExpr()
		if err != nil || !p.isOp(":") {
			return lower, err
		}
	}
	p.pos++

	bound := func() bool { return !p.isOp(":") && !p.isOp(",") && !p.isOp("]") }
	if bound() {
		if upper, err = p.test(); err != nil {
			return nil, err
		}
	}
	if p.acceptOp(":") && bound() {
		if step, err = p.test(); err != nil {
			return nil, err
		}
	}
	return build("Slice", line, fld("lower", lower), fld("upper", upper), fld("step", step)), nil
}

func (p *exprParser) atom() (*Node, error) {
	if !p.more() {
		return nil, p.errorf("expression expected")
	}
	t := p.cur()
	line := t.Line

	switch t.Kind {
	case TokName:
		p.pos++
		return name(line, "Load"), nil
	case TokNumber:
		p.pos++
		return leaf("Constant", line), nil
	case TokString:
		// Adjacent literals concatenate; one f-string makes the whole a JoinedStr.
		joined := false
		for p.more() && p.cur().Kind == TokString {
			joined = joined || strings.Contains(p.cur().Text, "f")
			p.pos++
		}
		if joined {
			return leaf("JoinedStr", line), nil
		}
		return leaf("Constant", line), nil
	case TokKeyword:
		switch t.Text {
		case "None", "True", "False":
			p.pos++
			return leaf("Constant", line), nil
		}
		return nil, p.errorf("invalid syntax")
	}

	switch t.Text {
	case "...":
		p.pos++
		return leaf("Constant", line), nil
	case "(":
		p.pos++
		return p.parenthesized(line)
	case "[":
		p.pos++
		return p.list(line)
	case "{":
		p.pos++
		return p.braces(line)
	}
	return nil, p.errorf("invalid syntax")
}

func (p *exprParser) parenthesized(line int) (*Node, error) {
	if p.acceptOp(")") {
		return tuple(nil, line), nil
	}

	var node *Node
	if p.isKeyword("yield") {
		y, err := p.yieldExpr()
		if err != nil {
			return nil, err
		}
		node = y
	} else {
		first, err := p.starNamed()
		if err != nil {
			return nil, err
		}
		switch {
		case p.startsComprehension():
			gens, err := p.comprehensions()
			if err != nil {
				return nil, err
			}
			node = build("GeneratorExp", line, fld("elt", first), fld("generators", gens...))
		case p.isOp(","):
			elts, err := p.elements(first, ")")
			if err != nil {
				return nil, err
			}
			node = tuple(elts, line)
		default:
			node = first
		}
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *exprParser) list(line int) (*Node, error) {
	var node *Node
	if p.isOp("]") {
		node = build("List", line, fld("ctx", leaf("Load", line)))
	} else {
		first, err := p.starNamed()
		if err != nil {
			return nil, err
		}
		if p.startsComprehension() {
			gens, err := p.comprehensions()
			if err != nil {
				return nil, err
			}
			node = build("ListComp", line, fld("elt", first), fld("generators", gens...))
		} else {
			elts, err := p.elements(first, "]")
			if err != nil {
				return nil, err
			}
			node = build("List", line, fld("elts", elts...), fld("ctx", leaf("Load", line)))
		}
	}
	if err := p.expectOp("]"); err != nil {
		return nil, err
	}
	return node, nil
}

// braces parses a dict, set or their comprehensions after "{".
func (p *exprParser) braces(line int) (*Node, error) {
	if p.acceptOp("}") {
		return leaf("Dict", line), nil
	}
	if p.isOp("**") {
		return p.dict(line, nil)
	}

	first, err := p.starNamed()
	if err != nil {
		return nil, err
	}
	if p.isOp(":") {
		return p.dict(line, first)
	}

	var node *Node
	if p.startsComprehension() {
		gens, err := p.comprehensions()
		if err != nil {
			return nil, err
		}
		node = build("SetComp", line, fld("elt", first), fld("generators", gens...))
	} else {
		elts, err := p.elements(first, "}")
		if err != nil {
			return nil, err
		}
		node = build("Set", line, fld("elts", elts...))
	}
	if err := p.expectOp("}"); err != nil {
		return nil, err
	}
	return node, nil
}

// dict continues a dict display. firstKey is nil when the first entry is a
// "**" unpacking.
func (p *exprParser) dict(line int, firstKey *Node) (*Node, error) {
	var keys, values []*Node
	entry := func(key *Node) error {
		if key == nil {
			if err := p.expectOp("**"); err != nil {
				return err
			}
			value, err := p.binary(0)
			if err != nil {
				return err
			}
			values = append(values, value)
			return nil
		}
		if err := p.expectOp(":"); err != nil {
			return err
		}
		value, err := p.test()
		if err != nil {
			return err
		}
		keys = append(keys, key)
		values = append(values, value)
		return nil
	}

	if err := entry(firstKey); err != nil {
		return nil, err
	}
	if firstKey != nil && p.startsComprehension() {
		gens, err := p.comprehensions()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp("}"); err != nil {
			return nil, err
		}
		return build("DictComp", line, fld("key", keys[0]), fld("value", values[0]), fld("generators", gens...)), nil
	}

	for p.acceptOp(",") {
		if p.isOp("}") {
			break
		}
		var key *Node
		if !p.isOp("**") {
			k, err := p.test()
			if err != nil {
				return nil, err
			}
			key = k
		}
		if err := entry(key); err != nil {
			return nil, err
		}
	}
	if err := p.expectOp("}"); err != nil {
		return nil, err
	}
	return build("Dict", line, fld("keys", keys...), fld("values", values...)), nil
}

func (p *exprParser) elements(first *Node, closer string) ([]*Node, error) {
	elts := []*Node{first}
	for p.acceptOp(",") {
		if p.isOp(closer) {
			break
		}
		e, err := p.starNamed()
		if err != nil {
			return nil, err
		}
		elts = append(elts, e)
	}
	return elts, nil
}

func (p *exprParser) comprehensions() ([]*Node, error) {
	gens := make([]*Node, 0, 1)
	for p.startsComprehension() {
		line := p.curLine()
		p.acceptKeyword("async")
		p.pos++

		target, err := p.targetList()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("in"); err != nil {
			return nil, err
		}
		iter, err := p.disjunction()
		if err != nil {
			return nil, err
		}
		var ifs []*Node
		for p.acceptKeyword("if") {
			cond, err := p.disjunction()
			if err != nil {
				return nil, err
			}
			ifs = append(ifs, cond)
		}
		gens = append(gens, build("comprehension", line, fld("target", target), fld("iter", iter), fld("ifs", ifs...)))
	}
	return gens, nil
}

// targetList parses assignment targets that stop before a keyword such as
// "in", and marks them as stores.
func (p *exprParser) targetList() (*Node, error) {
	line := p.curLine()
	first, err := p.target()
	if err != nil {
		return nil, err
	}
	node := first
	if p.isOp(",") {
		elts := []*Node{first}
		for p.acceptOp(",") {
			if !p.startsExpr() {
				break
			}
			e, err := p.target()
			if err != nil {
				return nil, err
			}
			elts = append(elts, e)
		}
		node = tuple(elts, line)
	}
	if err := setContext(node, "Store"); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *exprParser) target() (*Node, error) {
	if p.isOp("*") {
		line := p.curLine()
		p.pos++
		value, err := p.binary(0)
		if err != nil {
			return nil, err
		}
		return starred(value, line), nil
	}
	return p.binary(0)
}

func (p *exprParser) yieldExpr() (*Node, error) {
	line := p.curLine()
	p.pos++
	if p.acceptKeyword("from") {
		value, err := p.test()
		if err != nil {
			return nil, err
		}
		return build("YieldFrom", line, fld("value", value)), nil
	}
	if !p.startsExpr() {
		return leaf("Yield", line), nil
	}
	value, err := p.starExpressions()
	if err != nil {
		return nil, err
	}
	return build("Yield", line, fld("value", value)), nil
}

// setContext turns a parsed expression into an assignment or deletion target.
func setContext(n *Node, ctx string) error {
	switch n.Kind {
	case "Name", "Attribute", "Subscript":
	case "Starred":
		if err := setContext(n.Get("value"), ctx); err != nil {
			return err
		}
	case "Tuple", "List":
		for _, c := range n.Children {
			if c.Field != "elts" {
				continue
			}
			if err := setContext(c, ctx); err != nil {
				return err
			}
		}
	default:
		return syntaxErr(n.Line, "cannot assign to %s", n.Kind)
	}
	if c := n.Get("ctx"); c != nil {
		c.Kind = ctx
	}
	return nil
}

// parseParams builds an arguments node from a def or lambda parameter list.
// Annotations are only allowed for def.
func parseParams(toks []Token, line int, annotations bool) (*Node, error) {
	var posonly, args, kwonly, kwDefaults, defaults []*Node
	var vararg, kwarg *Node
	keywordOnly := false

	parts := splitTopLevel(toks, ",")
	for i, part := range parts {
		if len(part) == 0 {
			// "()" and a trailing comma both leave one empty last part.
			if i == len(parts)-1 {
				continue
			}
			return nil, syntaxErr(line, "invalid parameter list")
		}
		if len(part) == 1 && part[0].Kind == TokOp {
			switch part[0].Text {
			case "/":
				posonly = append(posonly, args...)
				args = nil
				continue
			case "*":
				keywordOnly = true
				continue
			}
		}

		stars := ""
		if isOpToken(part[0], "*") || isOpToken(part[0], "**") {
			stars = part[0].Text
			part = part[1:]
		}
		arg, def, err := parseParam(part, line, annotations)
		if err != nil {
			return nil, err
		}

		switch {
		case stars == "*":
			vararg = arg
			keywordOnly = true
		case stars == "**":
			kwarg = arg
		case keywordOnly:
			kwonly = append(kwonly, arg)
			if def != nil {
				kwDefaults = append(kwDefaults, def)
			}
		default:
			args = append(args, arg)
			if def != nil {
				defaults = append(defaults, def)
			}
		}
	}

	return build("arguments", line,
		fld("posonlyargs", posonly...),
		fld("args", args...),
		fld("vararg", vararg),
		fld("kwonlyargs", kwonly...),
		fld("kw_defaults", kwDefaults...),
		fld("kwarg", kwarg),
		fld("defaults", defaults...),
	), nil
}

func parseParam(toks []Token, line int, annotations bool) (*Node, *Node, error) {
	if len(toks) == 0 || toks[0].Kind != TokName {
		return nil, nil, syntaxErr(line, "invalid parameter")
	}

	p := newExprParser(toks[1:], line)
	var annotation, def *Node
	var err error
	if annotations && p.acceptOp(":") {
		if annotation, err = p.test(); err != nil {
			return nil, nil, err
		}
	}
	if p.acceptOp("=") {
		if def, err = p.test(); err != nil {
			return nil, nil, err
		}
	}
	if err := p.end(); err != nil {
		return nil, nil, err
	}
	return build("arg", line, fld("annotation", annotation)), def, nil
}

func isOpToken(t Token, text string) bool {
	return t.Kind == TokOp && t.Text == text
}
