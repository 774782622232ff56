package actor_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/glade/lang/actor"
	"github.com/mna/glade/lang/host"
	"github.com/mna/glade/lang/machine"
	"github.com/mna/glade/lang/parser"
	"github.com/mna/glade/lang/resolver"
	"github.com/mna/glade/lang/token"
)

func compile(t *testing.T, src string) *machine.Program {
	t.Helper()
	fset := token.NewFileSet()
	chunk, err := parser.ParseFile(fset, "test.glade", src)
	require.NoError(t, err)
	resolved, err := resolver.Resolve(fset, chunk, host.Arities)
	require.NoError(t, err)
	return machine.NewProgram(resolved)
}

// scenario: the main actor spawns a worker, the worker sends it a value,
// the main actor receives it and returns it as the process result, per
// spec.md §8 scenario 5.
func TestSpawnSendRecvJoin(t *testing.T) {
	src := `
fun worker() {
	$actor_send(0, 42);
	return nil;
}

let id = $actor_spawn(worker);
let v = $actor_recv();
$actor_join(id);
return v;
`
	prog := compile(t, src)
	var stdout bytes.Buffer
	vm := actor.NewVM(prog, host.Builtins(host.Config{Stdout: &stdout}), token.NewFileSet(), &stdout)

	v, err := vm.RunMain(prog.Resolved.MainFn, nil)
	require.NoError(t, err)
	require.Equal(t, machine.TagInt64, v.Tag())
	require.EqualValues(t, 42, v.AsInt64())
}

// sending to an actor that has already finished must fail gracefully
// (return false), never panic, per §7.
func TestSendToDeadActorFails(t *testing.T) {
	src := `
fun worker() {
	return nil;
}

let id = $actor_spawn(worker);
let ok = $actor_join(id);
return $actor_send(id, 1);
`
	prog := compile(t, src)
	var stdout bytes.Buffer
	vm := actor.NewVM(prog, host.Builtins(host.Config{Stdout: &stdout}), token.NewFileSet(), &stdout)

	v, err := vm.RunMain(prog.Resolved.MainFn, nil)
	require.NoError(t, err)
	require.Equal(t, machine.TagBool, v.Tag())
	require.False(t, v.AsBool())
}

// two globals referencing the same object must still refer to the same
// object after being deep-copied into a spawned actor's arena together
// (§8 scenario 6): the worker writes the field through one global and reads
// it back through the other, which only sees the write if both globals
// still refer to one object.
func TestSpawnPreservesSharingBetweenGlobals(t *testing.T) {
	src := `
class Box {
	fun init(self, v) {
		self.v = v;
	}
}

let a = Box(7);
let b = a;

fun worker() {
	a.v = 8;
	$actor_send(0, b.v);
	return nil;
}

let id = $actor_spawn(worker);
let got = $actor_recv();
$actor_join(id);
return got;
`
	prog := compile(t, src)
	var stdout bytes.Buffer
	vm := actor.NewVM(prog, host.Builtins(host.Config{Stdout: &stdout}), token.NewFileSet(), &stdout)

	v, err := vm.RunMain(prog.Resolved.MainFn, nil)
	require.NoError(t, err)
	require.Equal(t, machine.TagInt64, v.Tag())
	require.EqualValues(t, 8, v.AsInt64())
}
