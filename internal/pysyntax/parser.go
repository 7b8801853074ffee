package pysyntax

type parser struct {
	lines []LogicalLine
	pos   int
}

var compoundKeywords = map[string]bool{
	"if": true, "while": true, "for": true, "try": true, "with": true,
	"def": true, "class": true,
}

var clauseKeywords = map[string]bool{
	"elif": true, "else": true, "except": true, "finally": true,
}

// Parse builds the syntax tree of src.
func Parse(src string) (*Tree, error) {
	lines, err := Lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{lines: lines}
	body, err := p.block(0)
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.lines) {
		return nil, syntaxErr(p.lines[p.pos].Line, "unindent does not match any outer indentation level")
	}
	return &Tree{Root: build("Module", 0, fld("body", body...))}, nil
}

func (p *parser) block(indent int) ([]*Node, error) {
	nodes := make([]*Node, 0)
	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.Indent < indent {
			break
		}
		if ln.Indent > indent {
			return nil, syntaxErr(ln.Line, "unexpected indent")
		}
		stmts, err := p.statement()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, stmts...)
	}
	return nodes, nil
}

func (p *parser) statement() ([]*Node, error) {
	ln := p.lines[p.pos]
	first := ln.Tokens[0]

	var node *Node
	var err error
	switch {
	case isOpToken(first, "@"):
		node, err = p.decorated(ln)
	case isMatchHeader(ln.Tokens):
		node, err = p.match(ln)
	case first.Kind == TokKeyword && compoundKeywords[first.Text]:
		node, err = p.compound(ln, 0, nil)
	case first.Kind == TokKeyword && isAsyncCompound(ln.Tokens):
		node, err = p.compound(ln, 1, nil)
	case first.Kind == TokKeyword && clauseKeywords[first.Text]:
		return nil, syntaxErr(ln.Line, "'%s' without a matching block", first.Text)
	default:
		p.pos++
		return simpleStatements(ln.Tokens, ln.Line)
	}
	if err != nil {
		return nil, err
	}
	return []*Node{node}, nil
}

func isAsyncCompound(toks []Token) bool {
	if len(toks) < 2 || toks[0].Text != "async" || toks[1].Kind != TokKeyword {
		return false
	}
	switch toks[1].Text {
	case "def", "for", "with":
		return true
	}
	return false
}

// decorated collects the decorator lines above a def or class.
func (p *parser) decorated(ln LogicalLine) (*Node, error) {
	decorators := make([]*Node, 0, 1)
	line := ln.Line
	for p.pos < len(p.lines) {
		d := p.lines[p.pos]
		if d.Indent != ln.Indent || !isOpToken(d.Tokens[0], "@") {
			break
		}
		if len(d.Tokens) < 2 {
			return nil, syntaxErr(d.Line, "invalid decorator")
		}
		expr, err := parseExpr(d.Tokens[1:], d.Line, (*exprParser).namedExpr)
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, expr)
		line = d.Line
		p.pos++
	}

	if p.pos >= len(p.lines) || p.lines[p.pos].Indent != ln.Indent {
		return nil, syntaxErr(line, "decorator must precede a definition")
	}
	def := p.lines[p.pos]
	skip := 0
	if isAsyncCompound(def.Tokens) {
		skip = 1
	}
	kw := def.Tokens[skip]
	if kw.Kind != TokKeyword || (kw.Text != "def" && kw.Text != "class") {
		return nil, syntaxErr(line, "decorator must precede a definition")
	}
	return p.compound(def, skip, decorators)
}

// compound parses a compound statement and its trailing clauses.
// skip is the number of leading tokens before the keyword (1 for async).
func (p *parser) compound(ln LogicalLine, skip int, decorators []*Node) (*Node, error) {
	keyword := ln.Tokens[skip].Text
	colon := headerColon(ln.Tokens, skip+1)
	if colon < 0 {
		return nil, syntaxErr(ln.Line, "expected ':'")
	}
	head := ln.Tokens[skip+1 : colon]
	prefix := ""
	if skip == 1 {
		prefix = "Async"
	}

	var kind string
	var before []field
	var returns *Node
	switch keyword {
	case "def":
		kind = prefix + "FunctionDef"
		args, annotation, err := defHeader(head, ln.Line)
		if err != nil {
			return nil, err
		}
		before = []field{fld("args", args)}
		returns = annotation
	case "class":
		kind = "ClassDef"
		bases, keywords, err := classHeader(head, ln.Line)
		if err != nil {
			return nil, err
		}
		before = []field{fld("bases", bases...), fld("keywords", keywords...)}
	case "if", "while":
		kind = title(keyword)
		test, err := parseExpr(head, ln.Line, (*exprParser).namedExpr)
		if err != nil {
			return nil, err
		}
		before = []field{fld("test", test)}
	case "for":
		kind = prefix + "For"
		target, iter, err := forHeader(head, ln.Line)
		if err != nil {
			return nil, err
		}
		before = []field{fld("target", target), fld("iter", iter)}
	case "with":
		kind = prefix + "With"
		items, err := withItems(head, ln.Line)
		if err != nil {
			return nil, err
		}
		before = []field{fld("items", items...)}
	case "try":
		kind = "Try"
		if len(head) != 0 {
			return nil, syntaxErr(ln.Line, "invalid try header")
		}
	}

	body, err := p.suite(ln, ln.Tokens[colon+1:])
	if err != nil {
		return nil, err
	}

	var after []field
	switch keyword {
	case "def":
		after = []field{fld("decorator_list", decorators...), fld("returns", returns)}
	case "class":
		after = []field{fld("decorator_list", decorators...)}
	case "if":
		orelse, err := p.ifOrelse(ln.Indent)
		if err != nil {
			return nil, err
		}
		after = []field{fld("orelse", orelse...)}
	case "for", "while":
		orelse, err := p.elseBody(ln.Indent)
		if err != nil {
			return nil, err
		}
		after = []field{fld("orelse", orelse...)}
	case "try":
		k, fields, err := p.tryClauses(ln)
		if err != nil {
			return nil, err
		}
		kind = k
		after = fields
	}

	fields := append(before, fld("body", body...))
	return build(kind, ln.Line, append(fields, after...)...), nil
}

// suite parses the body following a header, either inline after the colon or
// as an indented block on the next lines.
func (p *parser) suite(header LogicalLine, inline []Token) ([]*Node, error) {
	p.pos++
	if len(inline) > 0 {
		if inline[0].Kind == TokKeyword && (compoundKeywords[inline[0].Text] || clauseKeywords[inline[0].Text]) {
			return nil, syntaxErr(header.Line, "compound statement not allowed after ':'")
		}
		return simpleStatements(inline, header.Line)
	}

	if p.pos >= len(p.lines) || p.lines[p.pos].Indent <= header.Indent {
		return nil, syntaxErr(header.Line, "expected an indented block")
	}

	body, err := p.block(p.lines[p.pos].Indent)
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.lines) && p.lines[p.pos].Indent > header.Indent {
		return nil, syntaxErr(p.lines[p.pos].Line, "unindent does not match any outer indentation level")
	}
	return body, nil
}

func (p *parser) clause(keyword string, indent int) (LogicalLine, bool) {
	if p.pos >= len(p.lines) {
		return LogicalLine{}, false
	}
	ln := p.lines[p.pos]
	if ln.Indent != indent || ln.Tokens[0].Kind != TokKeyword || ln.Tokens[0].Text != keyword {
		return LogicalLine{}, false
	}
	return ln, true
}

func (p *parser) clauseBody(ln LogicalLine) ([]*Node, []Token, error) {
	colon := headerColon(ln.Tokens, 1)
	if colon < 0 {
		return nil, nil, syntaxErr(ln.Line, "expected ':'")
	}
	head := ln.Tokens[1:colon]
	body, err := p.suite(ln, ln.Tokens[colon+1:])
	return body, head, err
}

// ifOrelse parses the elif and else clauses of an if. An elif becomes a
// nested If in orelse.
func (p *parser) ifOrelse(indent int) ([]*Node, error) {
	ln, ok := p.clause("elif", indent)
	if !ok {
		return p.elseBody(indent)
	}
	body, head, err := p.clauseBody(ln)
	if err != nil {
		return nil, err
	}
	test, err := parseExpr(head, ln.Line, (*exprParser).namedExpr)
	if err != nil {
		return nil, err
	}
	orelse, err := p.ifOrelse(indent)
	if err != nil {
		return nil, err
	}
	return []*Node{build("If", ln.Line, fld("test", test), fld("body", body...), fld("orelse", orelse...))}, nil
}

func (p *parser) elseBody(indent int) ([]*Node, error) {
	ln, ok := p.clause("else", indent)
	if !ok {
		return nil, nil
	}
	body, head, err := p.clauseBody(ln)
	if err != nil {
		return nil, err
	}
	if len(head) != 0 {
		return nil, syntaxErr(ln.Line, "invalid else clause")
	}
	return body, nil
}

// tryClauses parses except, else and finally clauses. The kind is TryStar when
// the handlers use "except*".
func (p *parser) tryClauses(header LogicalLine) (string, []field, error) {
	kind := "Try"
	var handlers []*Node
	for {
		ln, ok := p.clause("except", header.Indent)
		if !ok {
			break
		}
		body, head, err := p.clauseBody(ln)
		if err != nil {
			return "", nil, err
		}
		if len(head) > 0 && isOpToken(head[0], "*") {
			kind = "TryStar"
			head = head[1:]
		}
		handler, err := exceptHandler(head, body, ln.Line)
		if err != nil {
			return "", nil, err
		}
		handlers = append(handlers, handler)
	}

	var orelse []*Node
	if len(handlers) > 0 {
		body, err := p.elseBody(header.Indent)
		if err != nil {
			return "", nil, err
		}
		orelse = body
	}

	var finalbody []*Node
	ln, ok := p.clause("finally", header.Indent)
	if ok {
		body, head, err := p.clauseBody(ln)
		if err != nil {
			return "", nil, err
		}
		if len(head) != 0 {
			return "", nil, syntaxErr(ln.Line, "invalid finally clause")
		}
		finalbody = body
	} else if len(handlers) == 0 {
		return "", nil, syntaxErr(header.Line, "expected 'except' or 'finally' block")
	}

	return kind, []field{
		fld("handlers", handlers...),
		fld("orelse", orelse...),
		fld("finalbody", finalbody...),
	}, nil
}

func exceptHandler(head []Token, body []*Node, line int) (*Node, error) {
	var typ *Node
	if len(head) > 0 {
		if as := topLevelKeyword(head, "as"); as >= 0 {
			if as != len(head)-2 || head[as+1].Kind != TokName {
				return nil, syntaxErr(line, "invalid except clause")
			}
			head = head[:as]
		}
		t, err := parseExpr(head, line, (*exprParser).test)
		if err != nil {
			return nil, err
		}
		typ = t
	}
	return build("ExceptHandler", line, fld("type", typ), fld("body", body...)), nil
}

// defHeader parses "name(params) -> annotation" into the arguments node and
// the optional return annotation.
func defHeader(head []Token, line int) (*Node, *Node, error) {
	if len(head) < 3 || head[0].Kind != TokName || !isOpToken(head[1], "(") {
		return nil, nil, syntaxErr(line, "invalid function definition")
	}
	closeIdx := matchingClose(head, 1)
	if closeIdx < 0 {
		return nil, nil, syntaxErr(line, "invalid function definition")
	}

	args, err := parseParams(head[2:closeIdx], line, true)
	if err != nil {
		return nil, nil, err
	}

	var returns *Node
	if tail := head[closeIdx+1:]; len(tail) > 0 {
		if !isOpToken(tail[0], "->") || len(tail) < 2 {
			return nil, nil, syntaxErr(line, "invalid function definition")
		}
		if returns, err = parseExpr(tail[1:], line, (*exprParser).test); err != nil {
			return nil, nil, err
		}
	}
	return args, returns, nil
}

func classHeader(head []Token, line int) ([]*Node, []*Node, error) {
	if len(head) == 0 || head[0].Kind != TokName {
		return nil, nil, syntaxErr(line, "class name expected")
	}
	if len(head) == 1 {
		return nil, nil, nil
	}
	if !isOpToken(head[1], "(") || matchingClose(head, 1) != len(head)-1 {
		return nil, nil, syntaxErr(line, "invalid class definition")
	}

	p := newExprParser(head[2:], line)
	bases, keywords, err := p.callArgs()
	if err != nil {
		return nil, nil, err
	}
	if err := p.end(); err != nil {
		return nil, nil, err
	}
	return bases, keywords, nil
}

func forHeader(head []Token, line int) (*Node, *Node, error) {
	p := newExprParser(head, line)
	target, err := p.targetList()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, nil, err
	}
	iter, err := p.starExpressions()
	if err != nil {
		return nil, nil, err
	}
	if err := p.end(); err != nil {
		return nil, nil, err
	}
	return target, iter, nil
}

func withItems(head []Token, line int) ([]*Node, error) {
	if len(head) == 0 {
		return nil, syntaxErr(line, "context expression expected")
	}
	if isOpToken(head[0], "(") && matchingClose(head, 0) == len(head)-1 {
		head = head[1 : len(head)-1]
	}

	var items []*Node
	parts := splitTopLevel(head, ",")
	for i, part := range parts {
		if len(part) == 0 {
			if i > 0 && i == len(parts)-1 {
				continue
			}
			return nil, syntaxErr(line, "invalid with item")
		}

		ctxToks := part
		var vars *Node
		if as := topLevelKeyword(part, "as"); as >= 0 {
			ctxToks = part[:as]
			target, err := parseExpr(part[as+1:], line, (*exprParser).targetList)
			if err != nil {
				return nil, err
			}
			vars = target
		}
		ctxExpr, err := parseExpr(ctxToks, line, (*exprParser).test)
		if err != nil {
			return nil, err
		}
		items = append(items, build("withitem", line, fld("context_expr", ctxExpr), fld("optional_vars", vars)))
	}
	return items, nil
}

// isMatchHeader reports a "match subject:" line. match is a soft keyword, so
// the line must end in the header colon to count.
func isMatchHeader(toks []Token) bool {
	return len(toks) >= 3 && toks[0].Kind == TokName && toks[0].Text == "match" &&
		headerColon(toks, 1) == len(toks)-1
}

func (p *parser) match(ln LogicalLine) (*Node, error) {
	subject, err := parseExpr(ln.Tokens[1:len(ln.Tokens)-1], ln.Line, (*exprParser).starExpressions)
	if err != nil {
		return nil, err
	}
	p.pos++
	if p.pos >= len(p.lines) || p.lines[p.pos].Indent <= ln.Indent {
		return nil, syntaxErr(ln.Line, "expected an indented block")
	}

	indent := p.lines[p.pos].Indent
	var cases []*Node
	for p.pos < len(p.lines) && p.lines[p.pos].Indent > ln.Indent {
		c := p.lines[p.pos]
		if c.Indent != indent {
			return nil, syntaxErr(c.Line, "unindent does not match any outer indentation level")
		}
		if c.Tokens[0].Kind != TokName || c.Tokens[0].Text != "case" {
			return nil, syntaxErr(c.Line, "expected 'case' block")
		}
		node, err := p.matchCase(c)
		if err != nil {
			return nil, err
		}
		cases = append(cases, node)
	}
	return build("Match", ln.Line, fld("subject", subject), fld("cases", cases...)), nil
}

func (p *parser) matchCase(c LogicalLine) (*Node, error) {
	colon := headerColon(c.Tokens, 1)
	if colon < 0 {
		return nil, syntaxErr(c.Line, "expected ':'")
	}
	head := c.Tokens[1:colon]

	var guard *Node
	if at := topLevelKeyword(head, "if"); at >= 0 {
		g, err := parseExpr(head[at+1:], c.Line, (*exprParser).namedExpr)
		if err != nil {
			return nil, err
		}
		guard = g
		head = head[:at]
	}
	pattern, err := parsePattern(head, c.Line)
	if err != nil {
		return nil, err
	}
	body, err := p.suite(c, c.Tokens[colon+1:])
	if err != nil {
		return nil, err
	}
	return build("match_case", c.Line, fld("pattern", pattern), fld("guard", guard), fld("body", body...)), nil
}

// headerColon finds the colon ending a compound statement header, skipping
// colons inside brackets and those belonging to lambdas.
func headerColon(toks []Token, start int) int {
	depth := 0
	lambdas := 0
	for i := start; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == TokKeyword && t.Text == "lambda" && depth == 0 {
			lambdas++
			continue
		}
		if t.Kind != TokOp {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ":":
			if depth != 0 {
				continue
			}
			if lambdas > 0 {
				lambdas--
				continue
			}
			return i
		}
	}
	return -1
}

func topLevelKeyword(toks []Token, keyword string) int {
	depth := 0
	for i, t := range toks {
		switch {
		case t.Kind == TokOp && (t.Text == "(" || t.Text == "[" || t.Text == "{"):
			depth++
		case t.Kind == TokOp && (t.Text == ")" || t.Text == "]" || t.Text == "}"):
			depth--
		case depth == 0 && t.Kind == TokKeyword && t.Text == keyword:
			return i
		}
	}
	return -1
}

func splitTopLevel(toks []Token, sep string) [][]Token {
	parts := make([][]Token, 0)
	depth := 0
	start := 0
	for i, t := range toks {
		if t.Kind != TokOp {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, toks[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, toks[start:])
}

func matchingClose(toks []Token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		if toks[i].Kind != TokOp {
			continue
		}
		switch toks[i].Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
