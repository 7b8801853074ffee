// Package pysyntax parses Python 3 source into a tree of Python ast node kinds,
// enough to describe its shape and the cyclomatic complexity of each function.
// Identifier and literal values never reach the tree.
package pysyntax

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrSyntax is returned for any source the lexer or parser rejects.
var ErrSyntax = errors.New("syntax error")

type TokenKind int

const (
	TokName TokenKind = iota
	TokKeyword
	TokNumber
	TokString
	TokOp
)

// Token is one lexical token. For strings Text holds the lowercased prefix
// ("", "f", "rb", ...), never the contents.
type Token struct {
	Kind TokenKind
	Text string
	Line int
}

// LogicalLine is one statement line after implicit and explicit joining.
type LogicalLine struct {
	Indent int
	Line   int
	Tokens []Token
}

var keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

var stringPrefixes = map[string]bool{
	"r": true, "u": true, "b": true, "f": true,
	"br": true, "rb": true, "fr": true, "rf": true,
}

var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"**", "//", "==", "!=", "<=", ">=", "<<", ">>", "+=", "-=", "*=", "/=",
	"%=", "&=", "|=", "^=", "@=", "->", ":=",
	"+", "-", "*", "/", "%", "@", "<", ">", "=", "&", "|", "^", "~",
	":", ";", ",", ".", "(", ")", "[", "]", "{", "}",
}

var closers = map[rune]rune{')': '(', ']': '[', '}': '{'}

func syntaxErr(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, line, fmt.Sprintf(format, args...))
}

type lexer struct {
	src      []rune
	pos      int
	line     int
	brackets []rune
	lines    []LogicalLine
	current  *LogicalLine
}

// Lex splits src into logical lines of tokens.
func Lex(src string) ([]LogicalLine, error) {
	lx := &lexer{src: []rune(strings.ReplaceAll(src, "\r\n", "\n")), line: 1}
	if err := lx.run(); err != nil {
		return nil, err
	}
	return lx.lines, nil
}

func (lx *lexer) peek(offset int) rune {
	if lx.pos+offset < len(lx.src) {
		return lx.src[lx.pos+offset]
	}
	return 0
}

func (lx *lexer) emit(kind TokenKind, text string) {
	if lx.current == nil {
		lx.current = &LogicalLine{Line: lx.line}
	}
	lx.current.Tokens = append(lx.current.Tokens, Token{Kind: kind, Text: text, Line: lx.line})
}

func (lx *lexer) endLine() {
	if lx.current != nil && len(lx.current.Tokens) > 0 {
		lx.lines = append(lx.lines, *lx.current)
	}
	lx.current = nil
}

func (lx *lexer) run() error {
	atLineStart := true
	for lx.pos < len(lx.src) {
		if atLineStart && len(lx.brackets) == 0 && lx.current == nil {
			indent := lx.indentation()
			if lx.pos >= len(lx.src) {
				break
			}
			r := lx.src[lx.pos]
			if r == '\n' || r == '#' {
				lx.skipToLineEnd()
				continue
			}
			lx.current = &LogicalLine{Indent: indent, Line: lx.line}
		}
		atLineStart = false

		r := lx.src[lx.pos]
		switch {
		case r == '\n':
			lx.pos++
			lx.line++
			atLineStart = true
			if len(lx.brackets) == 0 {
				lx.endLine()
			}
		case r == ' ' || r == '\t' || r == '\f' || r == '\r':
			lx.pos++
		case r == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		case r == '\\':
			if lx.peek(1) != '\n' {
				return syntaxErr(lx.line, "unexpected character after line continuation")
			}
			lx.pos += 2
			lx.line++
		case r == '"' || r == '\'':
			if err := lx.lexString(""); err != nil {
				return err
			}
		case unicode.IsDigit(r) || (r == '.' && unicode.IsDigit(lx.peek(1))):
			lx.lexNumber()
		case r == '_' || unicode.IsLetter(r):
			if err := lx.lexName(); err != nil {
				return err
			}
		default:
			if err := lx.lexOperator(); err != nil {
				return err
			}
		}
	}

	if len(lx.brackets) > 0 {
		return syntaxErr(lx.line, "unclosed '%c'", lx.brackets[len(lx.brackets)-1])
	}
	lx.endLine()
	return nil
}

// indentation consumes leading whitespace; tabs advance to the next multiple of 8.
func (lx *lexer) indentation() int {
	col := 0
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case ' ':
			col++
		case '\t':
			col = (col/8 + 1) * 8
		case '\f', '\r':
		default:
			return col
		}
		lx.pos++
	}
	return col
}

func (lx *lexer) skipToLineEnd() {
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
		lx.pos++
	}
	if lx.pos < len(lx.src) {
		lx.pos++
		lx.line++
	}
}

func (lx *lexer) lexName() error {
	start := lx.pos
	for lx.pos < len(lx.src) {
		r := lx.src[lx.pos]
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		lx.pos++
	}
	word := string(lx.src[start:lx.pos])

	if q := lx.peek(0); (q == '"' || q == '\'') && stringPrefixes[strings.ToLower(word)] {
		return lx.lexString(strings.ToLower(word))
	}
	if keywords[word] {
		lx.emit(TokKeyword, word)
	} else {
		lx.emit(TokName, word)
	}
	return nil
}

func (lx *lexer) lexNumber() {
	start := lx.pos
	hex := lx.peek(0) == '0' && (lx.peek(1) == 'x' || lx.peek(1) == 'X')
	for lx.pos < len(lx.src) {
		r := lx.src[lx.pos]
		if unicode.IsDigit(r) || unicode.IsLetter(r) || r == '_' || r == '.' {
			lx.pos++
			continue
		}
		if (r == '+' || r == '-') && !hex && lx.pos > start {
			if prev := lx.src[lx.pos-1]; prev == 'e' || prev == 'E' {
				lx.pos++
				continue
			}
		}
		break
	}
	lx.emit(TokNumber, string(lx.src[start:lx.pos]))
}

func (lx *lexer) lexString(prefix string) error {
	startLine := lx.line
	quote := lx.src[lx.pos]
	triple := lx.peek(1) == quote && lx.peek(2) == quote
	if triple {
		lx.pos += 3
	} else {
		lx.pos++
	}

	for lx.pos < len(lx.src) {
		r := lx.src[lx.pos]
		switch {
		case r == '\\':
			if lx.peek(1) == '\n' {
				lx.line++
			}
			lx.pos += 2
			continue
		case r == '\n':
			if !triple {
				return syntaxErr(startLine, "unterminated string literal")
			}
			lx.line++
		case r == quote:
			if !triple {
				lx.pos++
				lx.emit(TokString, prefix)
				return nil
			}
			if lx.peek(1) == quote && lx.peek(2) == quote {
				lx.pos += 3
				lx.emit(TokString, prefix)
				return nil
			}
		}
		lx.pos++
	}
	return syntaxErr(startLine, "unterminated string literal")
}

func (lx *lexer) lexOperator() error {
	for _, op := range operators {
		n := len([]rune(op))
		if lx.pos+n > len(lx.src) || string(lx.src[lx.pos:lx.pos+n]) != op {
			continue
		}

		r := []rune(op)[0]
		if n == 1 {
			switch r {
			case '(', '[', '{':
				lx.brackets = append(lx.brackets, r)
			case ')', ']', '}':
				if len(lx.brackets) == 0 || lx.brackets[len(lx.brackets)-1] != closers[r] {
					return syntaxErr(lx.line, "unmatched '%c'", r)
				}
				lx.brackets = lx.brackets[:len(lx.brackets)-1]
			}
		}
		lx.pos += n
		lx.emit(TokOp, op)
		return nil
	}
	return syntaxErr(lx.line, "invalid character '%c'", lx.src[lx.pos])
}
