package machine

import (
	"fmt"
	"io"

	"github.com/mna/glade/lang/token"
)

// RuntimeError is the concrete Go error type for a fatal runtime panic
// (§7): it carries the offending actor and, when available, a source
// position, distinct from the scanner/parser's static scanner.ErrorList
// and never implemented as a bare panic/recover for ordinary control flow.
type RuntimeError struct {
	ActorID uint32
	Pos     token.Position
	Msg     string
}

func (e *RuntimeError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("actor %d: %s: %s", e.ActorID, e.Pos, e.Msg)
	}
	return fmt.Sprintf("actor %d: %s", e.ActorID, e.Msg)
}

func newRuntimeErr(actorID uint32, format string, args ...any) *RuntimeError {
	return &RuntimeError{ActorID: actorID, Msg: fmt.Sprintf(format, args...)}
}

// Runtime is the set of actor-runtime operations a host function may
// invoke, per the §6 host-function ABI ("the actor passes itself so the
// host may allocate on the actor's arena, enqueue messages, read
// globals, etc."). It is declared here, in lang/machine, rather than in
// the actor-runtime package, so that lang/host can depend on it without
// importing lang/actor: lang/actor implements Runtime and imports
// lang/machine (its host-function table is passed to actor.NewVM by the
// caller, so it does not import lang/host), lang/host imports only
// lang/machine, and lang/machine imports neither.
type Runtime interface {
	// ActorID returns the id of the actor the current call is running in.
	ActorID() uint32
	// Arena returns the actor's own arena, for host functions that need to
	// allocate (e.g. file_read building a ByteArray/String result).
	Arena() *Arena
	// Stdout is the sink print() writes through,
	// matching the teacher's Stdio-writer-abstraction texture (§AMBIENT).
	Stdout() io.Writer

	// Spawn starts a new actor running funID with no arguments, deep-
	// copying the callee and the caller's globals into the new actor's
	// arena, and returns its id.
	Spawn(funID uint32) (uint32, error)
	// Send deep-copies v into dest's arena and enqueues it; it never
	// blocks and returns false (not a panic) if dest is unknown or dead.
	Send(dest uint32, v Value) bool
	// Recv blocks for one message from this actor's mailbox. The main
	// actor (id 0) additionally interleaves a short timed wait so a UI
	// event source could be polled between checks; that wait lives in the
	// actor runtime's implementation, not the interpreter.
	Recv() (Value, error)
	// Poll is Recv's non-blocking counterpart: it empties one message from
	// the mailbox if one is already waiting, and reports false without
	// blocking otherwise.
	Poll() (Value, bool)
	// Join blocks until actorID terminates and returns its result.
	Join(actorID uint32) (Value, error)
}

// CoreMethod is a Go-implemented method on a core (non-object) class,
// consulted by call_method per §4.7.
type CoreMethod func(rt Runtime, fset *token.FileSet, recv Value, args []Value) (Value, error)

// classRegistry maps a core ClassId to its method table.
var classRegistry = map[uint32]map[string]CoreMethod{}

func registerCoreMethod(classID uint32, name string, m CoreMethod) {
	tbl, ok := classRegistry[classID]
	if !ok {
		tbl = map[string]CoreMethod{}
		classRegistry[classID] = tbl
	}
	tbl[name] = m
}

// LookupCoreMethod returns the Go implementation of name on classID, if
// any is registered.
func LookupCoreMethod(classID uint32, name string) (CoreMethod, bool) {
	tbl, ok := classRegistry[classID]
	if !ok {
		return nil, false
	}
	m, ok := tbl[name]
	return m, ok
}
