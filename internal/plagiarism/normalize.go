package plagiarism

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
)

const (
	varPlaceholder = "<VAR>"
	numPlaceholder = "<NUM>"
)

var (
	tripleQuoted = regexp.MustCompile(`(?s)""".*?"""|'''.*?'''`)
	hashComment  = regexp.MustCompile(`#[^\n]*`)
	// Placeholders are matched first so a second pass leaves them alone.
	codeToken = regexp.MustCompile(`<VAR>|<NUM>|[A-Za-z_][A-Za-z0-9_]*|\d+(?:\.\d+)?`)
)

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// NormalizeText lowercases s, drops everything but word characters and
// whitespace, and collapses whitespace runs. Word characters are letters,
// numerics of any kind and the underscore; combining marks are dropped.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// HashSentence returns the SHA-256 hex digest of an already normalized sentence.
func HashSentence(normalized string) string {
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizeAndHash is NormalizeText followed by HashSentence.
func NormalizeAndHash(s string) (string, string) {
	normalized := NormalizeText(s)
	return normalized, HashSentence(normalized)
}

// StripComments removes triple-quoted blocks and # comments.
func StripComments(src string) string {
	src = tripleQuoted.ReplaceAllString(src, "")
	return hashComment.ReplaceAllString(src, "")
}

// NormalizeCodeLine replaces identifiers and numeric literals in one line
// with placeholders. Keywords are kept.
func NormalizeCodeLine(line string) string {
	line = codeToken.ReplaceAllStringFunc(line, func(tok string) string {
		switch {
		case tok == varPlaceholder || tok == numPlaceholder:
			return tok
		case tok[0] >= '0' && tok[0] <= '9':
			return numPlaceholder
		case pythonKeywords[tok]:
			return tok
		default:
			return varPlaceholder
		}
	})
	return strings.Join(strings.Fields(line), " ")
}

// NormalizeCode produces the normalized, non-empty lines of a source file.
func NormalizeCode(src string) []string {
	src = StripComments(src)
	lines := make([]string, 0)
	for _, line := range strings.Split(src, "\n") {
		if n := NormalizeCodeLine(line); n != "" {
			lines = append(lines, n)
		}
	}
	return lines
}
