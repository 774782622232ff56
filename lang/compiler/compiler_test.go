package compiler_test

import (
	"testing"

	"github.com/kylelemons/godebug/diff"
	"github.com/stretchr/testify/require"

	"github.com/mna/glade/lang/compiler"
	"github.com/mna/glade/lang/host"
	"github.com/mna/glade/lang/parser"
	"github.com/mna/glade/lang/resolver"
	"github.com/mna/glade/lang/token"
)

// resolveProgram parses and resolves src, giving tests direct access to
// every hoisted function by id instead of only the top-level unit.
func resolveProgram(t *testing.T, src string) *resolver.Program {
	t.Helper()
	fset := token.NewFileSet()
	chunk, err := parser.ParseFile(fset, "test.glade", src)
	require.NoError(t, err)
	resolved, err := resolver.Resolve(fset, chunk, host.Arities)
	require.NoError(t, err)
	return resolved
}

// assertDisasm compiles fn and compares its disassembly against want,
// rendering a unified diff (rather than a single-line blob) on mismatch so
// a codegen regression is easy to read at a glance.
func assertDisasm(t *testing.T, fn *resolver.Function, pool *compiler.Pool, want string) {
	t.Helper()
	var code []byte
	entry, _, _ := compiler.Compile(fn, pool, &code)
	got := compiler.Disassemble(code, int(entry), len(code))
	if got != want {
		t.Fatalf("disassembly mismatch (-want +got):\n%s", diff.Diff(want, got))
	}
}

// a bare function with no locals, no params and a single literal return
// compiles to an exact, fully predictable instruction sequence: the
// trailing push_nil/ret pair is the compiler's always-emitted "implicit
// final return", dead here since the explicit return already ran.
func TestCompileReturnLiteralEmitsPushAndRet(t *testing.T) {
	resolved := resolveProgram(t, `fun f() { return 1; }`)
	pool := compiler.BuildPool(resolved)
	fn := resolved.Funs[1]

	want := `0000: push_int 1
0009: ret
0010: push_nil
0011: ret
`
	assertDisasm(t, fn, pool, want)
}

func TestCompileIfEmitsConditionalJump(t *testing.T) {
	resolved := resolveProgram(t, `
fun f(x) {
	if (x) {
		return 2;
	} else {
		return 3;
	}
}
`)
	pool := compiler.BuildPool(resolved)
	fn := resolved.Funs[1]

	var code []byte
	entry, _, _ := compiler.Compile(fn, pool, &code)
	got := compiler.Disassemble(code, int(entry), len(code))
	require.Contains(t, got, "if_false")
	require.Contains(t, got, "jump")
	require.Contains(t, got, " -> ")
}

func TestCompileWhileLoopBacksJumpToCondition(t *testing.T) {
	resolved := resolveProgram(t, `
fun f(x) {
	while (x) {
		x = 0;
	}
	return x;
}
`)
	pool := compiler.BuildPool(resolved)
	fn := resolved.Funs[1]

	var code []byte
	entry, _, _ := compiler.Compile(fn, pool, &code)
	got := compiler.Disassemble(code, int(entry), len(code))
	require.Contains(t, got, "if_false")
	// the loop's backward jump targets an offset strictly before itself:
	// the condition, at offset 0000.
	require.Contains(t, got, " -> ")
	require.Regexp(t, `jump -\d+ -> 0000`, got)
}
