package pysyntax

// parsePattern parses the pattern of a case clause, including an open
// sequence such as "a, *rest".
func parsePattern(toks []Token, line int) (*Node, error) {
	if len(toks) == 0 {
		return nil, syntaxErr(line, "pattern expected")
	}
	p := newExprParser(toks, line)
	first, err := p.asPattern()
	if err != nil {
		return nil, err
	}
	if p.isOp(",") {
		patterns := []*Node{first}
		for p.acceptOp(",") {
			if !p.more() {
				break
			}
			n, err := p.asPattern()
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, n)
		}
		first = build("MatchSequence", line, fld("patterns", patterns...))
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	return first, nil
}

func (p *exprParser) asPattern() (*Node, error) {
	line := p.curLine()
	pattern, err := p.orPattern()
	if err != nil {
		return nil, err
	}
	if !p.acceptKeyword("as") {
		return pattern, nil
	}
	if err := p.expectName(); err != nil {
		return nil, err
	}
	return build("MatchAs", line, fld("pattern", pattern)), nil
}

func (p *exprParser) orPattern() (*Node, error) {
	line := p.curLine()
	first, err := p.closedPattern()
	if err != nil || !p.isOp("|") {
		return first, err
	}
	patterns := []*Node{first}
	for p.acceptOp("|") {
		n, err := p.closedPattern()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, n)
	}
	return build("MatchOr", line, fld("patterns", patterns...)), nil
}

func (p *exprParser) closedPattern() (*Node, error) {
	if !p.more() {
		return nil, p.errorf("pattern expected")
	}
	t := p.cur()
	line := t.Line

	switch t.Kind {
	case TokNumber, TokString:
		value, err := p.literalValue()
		if err != nil {
			return nil, err
		}
		return build("MatchValue", line, fld("value", value)), nil
	case TokKeyword:
		switch t.Text {
		case "None", "True", "False":
			p.pos++
			return leaf("MatchSingleton", line), nil
		}
		return nil, p.errorf("invalid pattern")
	case TokName:
		return p.namePattern()
	}

	switch t.Text {
	case "-":
		value, err := p.literalValue()
		if err != nil {
			return nil, err
		}
		return build("MatchValue", line, fld("value", value)), nil
	case "*":
		p.pos++
		if err := p.expectName(); err != nil {
			return nil, err
		}
		return leaf("MatchStar", line), nil
	case "(":
		p.pos++
		if p.acceptOp(")") {
			return leaf("MatchSequence", line), nil
		}
		first, err := p.asPattern()
		if err != nil {
			return nil, err
		}
		if p.acceptOp(")") {
			return first, nil
		}
		return p.sequencePattern(first, ")", line)
	case "[":
		p.pos++
		if p.acceptOp("]") {
			return leaf("MatchSequence", line), nil
		}
		first, err := p.asPattern()
		if err != nil {
			return nil, err
		}
		return p.sequencePattern(first, "]", line)
	case "{":
		p.pos++
		return p.mappingPattern(line)
	}
	return nil, p.errorf("invalid pattern")
}

func (p *exprParser) sequencePattern(first *Node, closer string, line int) (*Node, error) {
	patterns := []*Node{first}
	for p.acceptOp(",") {
		if p.isOp(closer) {
			break
		}
		n, err := p.asPattern()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, n)
	}
	if err := p.expectOp(closer); err != nil {
		return nil, err
	}
	return build("MatchSequence", line, fld("patterns", patterns...)), nil
}

// namePattern parses a capture, the wildcard, a dotted value or a class
// pattern.
func (p *exprParser) namePattern() (*Node, error) {
	line := p.curLine()
	p.pos++
	value := name(line, "Load")
	dotted := false
	for p.acceptOp(".") {
		if err := p.expectName(); err != nil {
			return nil, err
		}
		value = build("Attribute", line, fld("value", value), fld("ctx", leaf("Load", line)))
		dotted = true
	}

	if p.acceptOp("(") {
		return p.classPattern(value, line)
	}
	if dotted {
		return build("MatchValue", line, fld("value", value)), nil
	}
	// A bare name, "_" included, has no sub-pattern.
	return leaf("MatchAs", line), nil
}

func (p *exprParser) classPattern(cls *Node, line int) (*Node, error) {
	var patterns, keywords []*Node
	for !p.isOp(")") {
		keyword := p.more() && p.cur().Kind == TokName && p.peekOp(1, "=")
		if keyword {
			p.pos += 2
		}
		n, err := p.asPattern()
		if err != nil {
			return nil, err
		}
		if keyword {
			keywords = append(keywords, n)
		} else {
			patterns = append(patterns, n)
		}
		if !p.acceptOp(",") {
			break
		}
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return build("MatchClass", line, fld("cls", cls), fld("patterns", patterns...), fld("kwd_patterns", keywords...)), nil
}

func (p *exprParser) mappingPattern(line int) (*Node, error) {
	var keys, patterns []*Node
	for !p.isOp("}") {
		if p.acceptOp("**") {
			if err := p.expectName(); err != nil {
				return nil, err
			}
		} else {
			key, err := p.mappingKey()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(":"); err != nil {
				return nil, err
			}
			value, err := p.asPattern()
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
			patterns = append(patterns, value)
		}
		if !p.acceptOp(",") {
			break
		}
	}
	if err := p.expectOp("}"); err != nil {
		return nil, err
	}
	return build("MatchMapping", line, fld("keys", keys...), fld("patterns", patterns...)), nil
}

func (p *exprParser) mappingKey() (*Node, error) {
	if !p.more() {
		return nil, p.errorf("pattern expected")
	}
	t := p.cur()
	line := t.Line
	switch {
	case t.Kind == TokName:
		p.pos++
		value := name(line, "Load")
		for p.acceptOp(".") {
			if err := p.expectName(); err != nil {
				return nil, err
			}
			value = build("Attribute", line, fld("value", value), fld("ctx", leaf("Load", line)))
		}
		return value, nil
	case t.Kind == TokKeyword && (t.Text == "None" || t.Text == "True" || t.Text == "False"):
		p.pos++
		return leaf("Constant", line), nil
	}
	return p.literalValue()
}

// literalValue parses a number, string or signed or complex literal used as
// a pattern value.
func (p *exprParser) literalValue() (*Node, error) {
	line := p.curLine()
	if p.more() && p.cur().Kind == TokString {
		return p.atom()
	}

	negative := p.acceptOp("-")
	if !p.more() || p.cur().Kind != TokNumber {
		return nil, p.errorf("invalid pattern")
	}
	p.pos++
	value := leaf("Constant", line)
	if negative {
		value = unary("USub", value, line)
	}

	if !p.isOp("+") && !p.isOp("-") {
		return value, nil
	}
	op := operatorNames[p.cur().Text]
	p.pos++
	if !p.more() || p.cur().Kind != TokNumber {
		return nil, p.errorf("invalid pattern")
	}
	p.pos++
	return build("BinOp", line, fld("left", value), fld("op", leaf(op, line)), fld("right", leaf("Constant", line))), nil
}
