package machine_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/glade/lang/host"
	"github.com/mna/glade/lang/machine"
	"github.com/mna/glade/lang/parser"
	"github.com/mna/glade/lang/resolver"
	"github.com/mna/glade/lang/token"
)

// noopRuntime is enough to run programs that don't touch the actor
// built-ins, exercising the interpreter in isolation from lang/actor.
type noopRuntime struct{ arena *machine.Arena }

func (r *noopRuntime) ActorID() uint32                     { return 0 }
func (r *noopRuntime) Arena() *machine.Arena                { return r.arena }
func (r *noopRuntime) Stdout() io.Writer                    { return io.Discard }
func (r *noopRuntime) Spawn(uint32) (uint32, error)         { return 0, nil }
func (r *noopRuntime) Send(uint32, machine.Value) bool      { return false }
func (r *noopRuntime) Recv() (machine.Value, error)         { return machine.Nil, nil }
func (r *noopRuntime) Poll() (machine.Value, bool)          { return machine.Nil, false }
func (r *noopRuntime) Join(uint32) (machine.Value, error)   { return machine.Nil, nil }

func run(t *testing.T, src string) machine.Value {
	t.Helper()
	fset := token.NewFileSet()
	chunk, err := parser.ParseFile(fset, "test.glade", src)
	require.NoError(t, err)
	resolved, err := resolver.Resolve(fset, chunk, host.Arities)
	require.NoError(t, err)
	prog := machine.NewProgram(resolved)

	arena := machine.NewArena()
	globals := make([]machine.Value, resolved.NumGlobals)
	for i := range globals {
		globals[i] = machine.Undef
	}
	interp := machine.NewInterp(prog, arena, &noopRuntime{arena: arena}, fset, host.Builtins(host.Config{}), globals)
	v, err := interp.Call(resolved.MainFn, nil)
	require.NoError(t, err)
	return v
}

func TestInterpArithmeticAndControlFlow(t *testing.T) {
	v := run(t, `
let sum = 0;
for (let i = 0; i < 5; i = i + 1) {
	sum = sum + i;
}
return sum;
`)
	require.Equal(t, machine.TagInt64, v.Tag())
	require.EqualValues(t, 10, v.AsInt64())
}

func TestInterpWhileBreakContinue(t *testing.T) {
	v := run(t, `
let i = 0;
let sum = 0;
while (true) {
	i = i + 1;
	if (i > 10) {
		break;
	}
	if (i % 2 == 0) {
		continue;
	}
	sum = sum + i;
}
return sum;
`)
	require.EqualValues(t, 25, v.AsInt64()) // 1+3+5+7+9
}

func TestInterpClosureCapturesMutableLocal(t *testing.T) {
	v := run(t, `
fun makeCounter() {
	let n = 0;
	fun inc() {
		n = n + 1;
		return n;
	}
	return inc;
}

let c = makeCounter();
c();
c();
return c();
`)
	require.EqualValues(t, 3, v.AsInt64())
}

func TestInterpClassFieldAccessAndMethods(t *testing.T) {
	v := run(t, `
class Point {
	fun init(self, x, y) {
		self.x = x;
		self.y = y;
	}
	fun sum(self) {
		return self.x + self.y;
	}
}

let p = Point(3, 4);
return p.sum();
`)
	require.EqualValues(t, 7, v.AsInt64())
}

func TestInterpArraysAndDicts(t *testing.T) {
	v := run(t, `
let a = [1, 2, 3];
a.push(4);
let d = {"x": 10};
return a.len() + d.len();
`)
	require.EqualValues(t, 5, v.AsInt64())
}

func TestInterpRecursiveFibonacci(t *testing.T) {
	v := run(t, `
fun f(n) {
	if (n < 2) {
		return n;
	}
	return f(n - 1) + f(n - 2);
}
return f(10);
`)
	require.Equal(t, machine.TagInt64, v.Tag())
	require.EqualValues(t, 55, v.AsInt64())
}
