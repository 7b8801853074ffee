package plagiarism

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fibonacciSolution = `
def calculate_fibonacci(n):
    # Returns the nth fibonacci number
    if n <= 0:
        return 0
    elif n == 1:
        return 1
    else:
        a, b = 0, 1
        for _ in range(n - 1):
            a, b = b, a + b
        return b

if __name__ == "__main__":
    print(calculate_fibonacci(10))
`

func TestCompareStructure_IdenticalAfterCommentStripping(t *testing.T) {
	submission := `
def calculate_fibonacci(n):
    """Docstring that the reference does not have."""
    if n <= 0:
        return 0  # base case
    elif n == 1:
        return 1
    else:
        a, b = 0, 1
        for _ in range(n - 1):
            a, b = b, a + b
        return b

if __name__ == "__main__":
    print(calculate_fibonacci(10))
`
	res := CompareStructure(submission, fibonacciSolution)

	assert.Equal(t, 1.0, res.ASTSimilarity)
	assert.Equal(t, 1.0, res.ComplexitySimilarity)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, 1.0, res.SubtreeOverlap)
	require.Len(t, res.Details, 3)
	assert.Equal(t, "Submission complexity: 4.0, Solution: 4.0", res.Details[1].Explanation)
}

func TestCompareProfiles_ComplexityDeltaOfFive(t *testing.T) {
	sub := CodeProfile{Fingerprint: "Module-FunctionDef-arguments-Return", Complexity: 6}
	ref := CodeProfile{Fingerprint: "Module-FunctionDef-arguments-Return", Complexity: 1}

	res := CompareProfiles(sub, ref)

	assert.Equal(t, 1.0, res.ASTSimilarity)
	assert.Equal(t, 0.0, res.ComplexitySimilarity)
	assert.Equal(t, 0.5, res.Score)
}

func TestCompareProfiles_ComplexityDecay(t *testing.T) {
	sub := CodeProfile{Fingerprint: "a", Complexity: 3}
	ref := CodeProfile{Fingerprint: "b", Complexity: 2}

	res := CompareProfiles(sub, ref)

	assert.Equal(t, 0.0, res.ASTSimilarity)
	assert.InDelta(t, 2.0/3.0, res.ComplexitySimilarity, 1e-9)
	assert.Equal(t, 0.3333, res.Score)
}

func TestProfileCode_SyntaxErrorSentinel(t *testing.T) {
	p := ProfileCode("def broken(:\n    return")

	assert.Equal(t, SyntaxErrorFingerprint, p.Fingerprint)
	assert.Equal(t, 0.0, p.Complexity)
	assert.ErrorIs(t, p.ParseErr, ErrParse)
}

func TestCompareStructure_SentinelsNeverMatch(t *testing.T) {
	res := CompareStructure("def broken(:", "def broken(:")

	assert.Equal(t, 0.0, res.ASTSimilarity)
	assert.Equal(t, 1.0, res.ComplexitySimilarity)
	assert.Equal(t, 0.5, res.Score)
}

func TestCompareStructure_ZeroArgumentFunctions(t *testing.T) {
	src := "def main():\n    print(1)\n\nmain()\n"

	p := ProfileCode(src)
	require.NoError(t, p.ParseErr)
	assert.Equal(t, 1.0, p.Complexity)

	res := CompareStructure(src, src)
	assert.Equal(t, 1.0, res.ASTSimilarity)
	assert.Equal(t, 1.0, res.Score)
}

func TestCompareStructure_DifferentShape(t *testing.T) {
	other := `
def calculate_fibonacci(n):
    a, b = 0, 1
    while n > 0:
        a, b = b, a + b
        n -= 1
    return a
`
	res := CompareStructure(other, fibonacciSolution)

	assert.Equal(t, 0.0, res.ASTSimilarity)
	assert.Greater(t, res.SubtreeOverlap, 0.0)
	assert.Less(t, res.SubtreeOverlap, 1.0)
}

func TestTokenTiling(t *testing.T) {
	a := CodeTokens(fibonacciSolution)
	assert.Equal(t, 1.0, TokenTiling(a, a))
	assert.Equal(t, 0.0, TokenTiling(a, nil))
	assert.Equal(t, 0.0, TokenTiling([]string{"a", "b"}, []string{"a", "b"}), "runs shorter than the minimum tile do not count")
}

func TestTokenTiling_ReorderedRuns(t *testing.T) {
	a := strings.Fields("a b c d e f g x y z")
	b := strings.Fields("x y z a b c d e f g")

	assert.InDelta(t, 0.7, TokenTiling(a, b), 1e-9)
}

func TestTokenTiling_LongRepetitiveSource(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "def f%d(x):\n    y = x + %d\n    return y * 2\n", i, i)
	}
	tokens := CodeTokens(sb.String())
	require.Greater(t, len(tokens), 2000)

	start := time.Now()
	assert.Equal(t, 1.0, TokenTiling(tokens, tokens))
	assert.Less(t, time.Since(start), time.Second)
}
