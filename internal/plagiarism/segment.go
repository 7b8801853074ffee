package plagiarism

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/RishiKendai/provenance/internal/models"
)

// SegmentText splits text into sentences after '.', '!' or '?' followed by whitespace.
func SegmentText(text string) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if text == "" {
		return []string{}
	}

	sentences := make([]string, 0)
	start := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next >= len(text) {
			break
		}
		nr, _ := utf8.DecodeRuneInString(text[next:])
		if !unicode.IsSpace(nr) {
			continue
		}
		if s := strings.TrimSpace(text[start:next]); s != "" {
			sentences = append(sentences, s)
		}
		start = next
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// SegmentCode returns the stripped, non-empty lines of src.
func SegmentCode(src string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(src, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

// Sentences segments text and attaches ids and normalized forms.
func Sentences(text string) []models.Sentence {
	raw := SegmentText(text)
	out := make([]models.Sentence, len(raw))
	for i, s := range raw {
		out[i] = models.Sentence{ID: i, Raw: s, Normalized: NormalizeText(s)}
	}
	return out
}
