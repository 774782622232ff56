// Package actor implements the multi-actor scheduler of §4.6/§5: actor id
// assignment, one goroutine per actor, mailbox delivery with deep-copied
// messages, join, and the weak-reference-style liveness check a dead
// actor's pending senders observe.
package actor

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mna/glade/lang/deepcopy"
	"github.com/mna/glade/lang/machine"
	"github.com/mna/glade/lang/token"
)

// mainRecvPollInterval is how often actor 0's recv wakes up to give a UI
// event source a chance to interleave with mailbox delivery, per §4.6's
// "~8 ms" figure.
const mainRecvPollInterval = 8 * time.Millisecond

// mailboxCapacity bounds the buffered channel backing each actor's
// mailbox. Sends never block (§4.6); a full mailbox is treated the same
// as a dead destination, i.e. a failed send, which is the only backpressure
// signal the language exposes.
const mailboxCapacity = 256

type actorState struct {
	id      uint32
	traceID string // human-correlatable tag for -debug lifecycle logging, distinct from id
	arena   *machine.Arena
	mailbox chan machine.Value
	done    chan struct{}

	// live is Go's hand-rolled stand-in for a weak reference to the
	// actor's message arena: Go has no ABI-stable weak pointer for the
	// targeted version, so liveness is a plain atomic flag a sender
	// consults before attempting to deep-copy a message into this actor's
	// arena. A zero value means "upgrade failed": the actor is gone and
	// its mailbox must not be written to again.
	live int32

	result machine.Value
	err    error
}

func (s *actorState) isLive() bool { return atomic.LoadInt32(&s.live) != 0 }
func (s *actorState) kill()        { atomic.StoreInt32(&s.live, 0) }

// VM is the one-mutex-guarded registry described in §4.6/§5: the shared
// program, the id counter, and every actor's mailbox/liveness handle.
// Everything else — each actor's stack, frames, arena, and instruction
// buffer — is strictly thread-local and never touched here.
type VM struct {
	mu     sync.Mutex
	prog   *machine.Program
	hosts  map[string]*machine.HostFn
	fset   *token.FileSet
	stdout io.Writer

	// Debug turns on the optional actor-lifecycle log line (spawn/exit),
	// tagged by traceID rather than the small monotonic actor id so
	// concurrent actors' log lines stay correlatable even after an id is
	// reused... ids are never reused here, but the trace id keeps the log
	// format stable if that changes.
	Debug bool

	nextID uint32
	actors map[uint32]*actorState
}

// NewVM builds a registry ready to run the main actor via RunMain.
func NewVM(prog *machine.Program, hosts map[string]*machine.HostFn, fset *token.FileSet, stdout io.Writer) *VM {
	return &VM{
		prog:   prog,
		hosts:  hosts,
		fset:   fset,
		stdout: stdout,
		actors: map[uint32]*actorState{},
	}
}

// RunMain runs funID as actor 0 (the main actor) synchronously on the
// calling goroutine, returning its result. Used by the CLI driver.
func (vm *VM) RunMain(funID uint32, args []machine.Value) (machine.Value, error) {
	globals := make([]machine.Value, vm.prog.Resolved.NumGlobals)
	for i := range globals {
		globals[i] = machine.Undef
	}
	st := &actorState{id: 0, traceID: uuid.NewString(), arena: machine.NewArena(), mailbox: make(chan machine.Value, mailboxCapacity), done: make(chan struct{}), live: 1}
	vm.mu.Lock()
	vm.actors[0] = st
	if vm.nextID == 0 {
		vm.nextID = 1
	}
	vm.mu.Unlock()
	vm.logSpawn(st)

	rt := &runtimeHandle{vm: vm, id: 0}
	interp := machine.NewInterp(vm.prog, st.arena, rt, vm.fset, vm.hosts, globals)
	rt.interp = interp
	v, err := interp.Call(funID, args)
	st.result, st.err = v, err
	st.kill()
	close(st.done)
	vm.logExit(st, err)
	return v, err
}

func (vm *VM) logSpawn(st *actorState) {
	if vm.Debug {
		log.Printf("actor[%d] trace=%s spawned", st.id, st.traceID)
	}
}

func (vm *VM) logExit(st *actorState, err error) {
	if vm.Debug {
		log.Printf("actor[%d] trace=%s exited err=%v", st.id, st.traceID, err)
	}
}

// spawnWithGlobals performs the real spawn: parentGlobals is the calling
// actor's current globals vector (read by the runtimeHandle from its own
// Interp, which the VM does not otherwise have access to).
func (vm *VM) spawnWithGlobals(funID uint32, parentGlobals []machine.Value) (uint32, error) {
	vm.mu.Lock()
	id := vm.nextID
	vm.nextID++
	vm.mu.Unlock()

	newArena := machine.NewArena()
	cp := deepcopy.New(newArena)
	globalsCopy, err := cp.CopyAll(parentGlobals)
	if err != nil {
		return 0, err
	}

	st := &actorState{id: id, traceID: uuid.NewString(), arena: newArena, mailbox: make(chan machine.Value, mailboxCapacity), done: make(chan struct{}), live: 1}
	vm.mu.Lock()
	vm.actors[id] = st
	vm.mu.Unlock()
	vm.logSpawn(st)

	go func() {
		rt := &runtimeHandle{vm: vm, id: id}
		interp := machine.NewInterp(vm.prog, newArena, rt, vm.fset, vm.hosts, globalsCopy)
		rt.interp = interp
		v, err := interp.Call(funID, nil)
		st.result, st.err = v, err
		st.kill()
		close(st.done)
		vm.logExit(st, err)
	}()
	return id, nil
}

// send deep-copies v into dest's arena and enqueues it without blocking;
// it fails (returns false, never panics) if dest is unknown, dead, or its
// mailbox is full.
func (vm *VM) send(dest uint32, v machine.Value) bool {
	vm.mu.Lock()
	st, ok := vm.actors[dest]
	vm.mu.Unlock()
	if !ok || !st.isLive() {
		return false
	}
	cp := deepcopy.New(st.arena)
	cpv, err := cp.Copy(v)
	if err != nil {
		return false
	}
	if !st.isLive() {
		return false // actor died while we were copying
	}
	select {
	case st.mailbox <- cpv:
		return true
	default:
		return false
	}
}

// recv blocks for one message. Actor 0 (the main actor) additionally wakes
// every mainRecvPollInterval to give a UI event source a chance to
// interleave (§4.6/§4.9); no windowing backend is wired in this module
// (per §1's scope), so the wake-up is presently a no-op retry of the same
// select, but it is the hook point a real windowing integration would poll
// from. Non-main actors block indefinitely, exactly as §4.6 specifies.
func (vm *VM) recv(id uint32) (machine.Value, error) {
	st, err := vm.actorFor(id)
	if err != nil {
		return machine.Value{}, err
	}
	if id != 0 {
		v, ok := <-st.mailbox
		if !ok {
			return machine.Value{}, fmt.Errorf("recv: actor %d mailbox closed", id)
		}
		return v, nil
	}
	for {
		select {
		case v, ok := <-st.mailbox:
			if !ok {
				return machine.Value{}, fmt.Errorf("recv: actor %d mailbox closed", id)
			}
			return v, nil
		case <-time.After(mainRecvPollInterval):
			// no UI event source wired; nothing to poll, loop back to waiting
			// on the mailbox.
		}
	}
}

// poll is recv's non-blocking counterpart: it returns immediately,
// reporting false if no message is waiting, per §4.6's "non-blocking poll"
// operation.
func (vm *VM) poll(id uint32) (machine.Value, bool, error) {
	st, err := vm.actorFor(id)
	if err != nil {
		return machine.Value{}, false, err
	}
	select {
	case v, ok := <-st.mailbox:
		if !ok {
			return machine.Value{}, false, fmt.Errorf("poll: actor %d mailbox closed", id)
		}
		return v, true, nil
	default:
		return machine.Undef, false, nil
	}
}

func (vm *VM) actorFor(id uint32) (*actorState, error) {
	vm.mu.Lock()
	st, ok := vm.actors[id]
	vm.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown actor %d", id)
	}
	return st, nil
}

// join blocks until actorID terminates and returns its result. Because
// the source actor has terminated by the time join observes `done`, no
// copy is required (§4.6).
func (vm *VM) join(actorID uint32) (machine.Value, error) {
	st, err := vm.actorFor(actorID)
	if err != nil {
		return machine.Value{}, fmt.Errorf("join: %w", err)
	}
	<-st.done
	return st.result, st.err
}

// runtimeHandle is the per-actor machine.Runtime implementation a host
// function receives; it closes over the VM and this actor's id.
type runtimeHandle struct {
	vm     *VM
	id     uint32
	interp *machine.Interp
}

func (r *runtimeHandle) ActorID() uint32 { return r.id }

func (r *runtimeHandle) Arena() *machine.Arena {
	r.vm.mu.Lock()
	defer r.vm.mu.Unlock()
	return r.vm.actors[r.id].arena
}

func (r *runtimeHandle) Stdout() io.Writer { return r.vm.stdout }

func (r *runtimeHandle) Spawn(funID uint32) (uint32, error) {
	return r.vm.spawnWithGlobals(funID, r.interp.Globals)
}

func (r *runtimeHandle) Send(dest uint32, v machine.Value) bool { return r.vm.send(dest, v) }
func (r *runtimeHandle) Recv() (machine.Value, error)           { return r.vm.recv(r.id) }
func (r *runtimeHandle) Poll() (machine.Value, bool) {
	v, ok, _ := r.vm.poll(r.id)
	return v, ok
}
func (r *runtimeHandle) Join(actorID uint32) (machine.Value, error) {
	return r.vm.join(actorID)
}
