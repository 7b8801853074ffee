package pysyntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fibonacci = `
def calculate_fibonacci(n):
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

func TestParse_SimpleFunctionFingerprint(t *testing.T) {
	tree, err := Parse("def f(a):\n    return a\n")
	require.NoError(t, err)
	assert.Equal(t, "Module-FunctionDef-arguments-Return-arg-Name-Load", tree.Fingerprint())
}

func TestParse_FingerprintsFollowBreadthFirstWalk(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "assignment",
			src:  "x = 1",
			want: "Module-Assign-Name-Constant-Store",
		},
		{
			name: "zero argument function",
			src:  "def main():\n    print(1)\n\nmain()\n",
			want: "Module-FunctionDef-Expr-arguments-Expr-Call-Call-Name-Name-Constant-Load-Load",
		},
		{
			name: "lambda without parameters",
			src:  "f = lambda: 0\n",
			want: "Module-Assign-Name-Lambda-Store-arguments-Constant",
		},
		{
			name: "walrus and delete",
			src:  "if (n := len(a)) > 10:\n    del a[0], b.c\n",
			want: "Module-If-Compare-Delete-NamedExpr-Gt-Constant-Subscript-Attribute-Name-Call-Name-Constant-Del-Name-Del-Store-Name-Name-Load-Load-Load-Load",
		},
		{
			name: "positional-only parameters and annotations",
			src:  "def g(a, /, b: int = 1, *, c, **kw) -> None:\n    x: list[int] = [i @ j for i in a if not i]\n    return -x ** 2\n",
			want: "Module-FunctionDef-arguments-AnnAssign-Return-Constant-arg-arg-arg-arg-Constant-Name-Subscript-ListComp-UnaryOp-Name-Store-Name-Name-Load-BinOp-comprehension-USub-BinOp-Load-Load-Load-Name-MatMult-Name-Name-Name-UnaryOp-Name-Pow-Constant-Load-Load-Store-Load-Not-Name-Load-Load",
		},
		{
			name: "exception groups",
			src:  "try:\n    pass\nexcept* ValueError as e:\n    raise\n",
			want: "Module-TryStar-Pass-ExceptHandler-Name-Raise-Load",
		},
		{
			name: "structural pattern matching",
			src:  "match cmd:\n    case [x, *rest] if x:\n        pass\n    case {'k': 1} | None:\n        pass\n    case Point(x=0):\n        pass\n    case _:\n        pass\n",
			want: "Module-Match-Name-match_case-match_case-match_case-match_case-Load-MatchSequence-Name-Pass-MatchOr-Pass-MatchClass-Pass-MatchAs-Pass-MatchAs-MatchStar-Load-MatchMapping-MatchSingleton-Name-MatchValue-Constant-MatchValue-Load-Constant-Constant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tree.Fingerprint())
		})
	}
}

func TestParse_EmptyParameterLists(t *testing.T) {
	for _, src := range []string{
		"def main():\n    pass\n",
		"def main() -> None:\n    pass\n",
		"async def main():\n    await run()\n",
		"def f(a, b,):\n    return a\n",
		"class A:\n    def m(self):\n        return lambda: self\n",
	} {
		_, err := Parse(src)
		assert.NoError(t, err, src)
	}
}

func TestParse_MatchIsSoftKeyword(t *testing.T) {
	tree, err := Parse("match = re.match(p, s)\nmatch.group(0)\n")
	require.NoError(t, err)
	assert.NotContains(t, tree.Fingerprint(), "Match-")
}

func TestParse_RenamedIdentifiersKeepFingerprint(t *testing.T) {
	renamed := `
def fib(k):
    if k <= 0:
        return 0
    elif k == 1:
        return 1
    else:
        x, y = 0, 1
        for i in range(k - 1):
            x, y = y, x + y
        return y

if __name__ == "__main__":
    print(fib(10))
`
	a, err := Parse(fibonacci)
	require.NoError(t, err)
	b, err := Parse(renamed)
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestParse_DifferentShapeChangesFingerprint(t *testing.T) {
	a, err := Parse("def f(a):\n    return a\n")
	require.NoError(t, err)
	b, err := Parse("def f(a):\n    while a:\n        a -= 1\n    return a\n")
	require.NoError(t, err)

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unclosed bracket", "x = (1, 2\n"},
		{"mismatched bracket", "x = [1, 2)\n"},
		{"missing colon", "if x\n    pass\n"},
		{"unexpected indent", "  x = 1\n"},
		{"stray else", "else:\n    pass\n"},
		{"unterminated string", "s = 'abc\n"},
		{"missing block", "def f():\nreturn 1\n"},
		{"inconsistent dedent", "if x:\n        a = 1\n    b = 2\n"},
		{"try without handler", "try:\n    pass\nx = 1\n"},
		{"dangling operator", "x = 1 +\n"},
		{"empty parameter in the middle", "def f(a, , b):\n    pass\n"},
		{"assignment to call", "f() = 1\n"},
		{"case outside match", "case x:\n    pass\n"},
		{"match without cases", "match x:\n    y = 1\n"},
		{"python 2 print", "print 'hello'\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestParse_AcceptedConstructs(t *testing.T) {
	src := `
import os
from typing import List, Dict

@decorator(arg=1)
class Shape(Base):
    sides: int = 0

    def area(self, *args, **kwargs) -> float:
        """Docstring."""
        try:
            with open(path) as fh, lock:
                data = fh.read()
        except (IOError, ValueError) as exc:
            raise RuntimeError("bad") from exc
        else:
            pass
        finally:
            cleanup()
        return lambda x: x if x else None

async def fetch(url):
    async with session.get(url) as resp:
        return await resp.json()

values = {k: v for k, v in items.items() if v is not None}
total = sum(x ** 2 for x in values) ; count = len(values)
while True:
    break
x = \
    1
`
	tree, err := Parse(src)
	require.NoError(t, err)
	assert.Contains(t, tree.Fingerprint(), "ClassDef")
	assert.Contains(t, tree.Fingerprint(), "AsyncFunctionDef")
	assert.Contains(t, tree.Fingerprint(), "AsyncWith")
	assert.Contains(t, tree.Fingerprint(), "ExceptHandler")
	assert.Contains(t, tree.Fingerprint(), "DictComp")
	assert.Contains(t, tree.Fingerprint(), "GeneratorExp")
	assert.Contains(t, tree.Fingerprint(), "IsNot")
}

func TestComplexity_Fibonacci(t *testing.T) {
	tree, err := Parse(fibonacci)
	require.NoError(t, err)

	funcs := tree.Complexity()
	require.Len(t, funcs, 1)
	assert.Equal(t, 4, funcs[0].Complexity)
	assert.Equal(t, 4.0, tree.AverageComplexity())
}

func TestComplexity_BooleanOperatorsCount(t *testing.T) {
	src := `
def g(xs):
    total = 0
    for x in xs:
        if x > 0 and x < 10:
            total += x
    return total
`
	tree, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, 4.0, tree.AverageComplexity())
}

func TestComplexity_MethodsAndClosuresAreNotListed(t *testing.T) {
	src := `
class A:
    def m(self):
        def inner():
            return [i for i in range(3) if i]
        return inner

def outer():
    def inner(x):
        if x:
            return 1
    return inner
`
	tree, err := Parse(src)
	require.NoError(t, err)

	funcs := tree.Complexity()
	require.Len(t, funcs, 1)
	assert.Equal(t, 8, funcs[0].Line)
	assert.Equal(t, 1, funcs[0].Complexity)
}

func TestComplexity_ClassOnlyModuleAveragesZero(t *testing.T) {
	tree, err := Parse("class A:\n    def m(self):\n        if self:\n            return 1\n")
	require.NoError(t, err)
	assert.Empty(t, tree.Complexity())
	assert.Equal(t, 0.0, tree.AverageComplexity())
}

func TestComplexity_DecisionRules(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"comprehension with condition", "def f(xs):\n    return [x for x in xs if x]\n", 3},
		{"for with else", "def f(xs):\n    for x in xs:\n        pass\n    else:\n        pass\n", 3},
		{"while", "def f(x):\n    while x:\n        x -= 1\n", 2},
		{"try with else", "def f():\n    try:\n        pass\n    except ValueError:\n        pass\n    else:\n        pass\n", 3},
		{"try with two handlers", "def f():\n    try:\n        pass\n    except ValueError:\n        pass\n    except KeyError:\n        pass\n", 3},
		{"conditional expression", "def f(x):\n    return 1 if x else 2\n", 2},
		{"boolean chain", "def f(a, b, c):\n    return a or b or c\n", 3},
		{"assert counts once", "def f(a, b):\n    assert a and b\n", 2},
		{"with is not a branch", "def f():\n    with a:\n        pass\n", 1},
		{"match with wildcard", "def f(c):\n    match c:\n        case 1:\n            pass\n        case 2:\n            pass\n        case _:\n            pass\n", 3},
		{"match without wildcard", "def f(c):\n    match c:\n        case 1:\n            pass\n        case [x]:\n            pass\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(tt.src)
			require.NoError(t, err)
			funcs := tree.Complexity()
			require.Len(t, funcs, 1)
			assert.Equal(t, tt.want, funcs[0].Complexity)
		})
	}
}

func TestComplexity_FunctionUnderModuleBranchIsListed(t *testing.T) {
	tree, err := Parse("if True:\n    def f():\n        pass\n")
	require.NoError(t, err)
	require.Len(t, tree.Complexity(), 1)
	assert.Equal(t, 1.0, tree.AverageComplexity())
}

func TestComplexity_NoFunctions(t *testing.T) {
	tree, err := Parse("x = 1\nif x:\n    x = 2\n")
	require.NoError(t, err)
	assert.Empty(t, tree.Complexity())
	assert.Equal(t, 0.0, tree.AverageComplexity())
}
