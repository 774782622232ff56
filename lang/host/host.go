// Package host implements the thin adapters for the host-function ABI of
// §4.8/§6: a small, explicitly non-exhaustive demonstrative set (time,
// print, sandboxed file I/O, inert audio/window stubs) plus the
// `$actor_spawn`/`$actor_send`/`$actor_recv`/`$actor_join` built-ins that
// give scripts access to the actor runtime through the machine.Runtime
// interface, without lang/host ever importing the actor-runtime package
// itself (avoiding the import cycle noted in lang/machine/runtime.go).
package host

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mna/glade/lang/machine"
)

// Arities is consulted by the resolver (as the hostArity map passed to
// resolver.Resolve) to arity-check call sites against every predeclared
// host function, including the actor built-ins.
var Arities = map[string]int{
	"time_now":     0,
	"print":        1,
	"file_read":    1,
	"file_write":   2,
	"audio_beep":   2,
	"window_title": 1,

	"$actor_spawn": 1,
	"$actor_send":  2,
	"$actor_recv":  0,
	"$actor_poll":  0,
	"$actor_sleep": 1,
	"$actor_join":  1,
}

// Config bounds the sandboxed file_read/file_write host functions to a
// root directory, per the "path-sandboxing policy" external-collaborator
// note in §1.
type Config struct {
	FileRoot string
	Stdout   io.Writer
}

// Builtins returns the full host-function table, keyed by name exactly as
// Arities is, ready to hand to machine.NewInterp.
func Builtins(cfg Config) map[string]*machine.HostFn {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	fns := map[string]*machine.HostFn{
		"time_now":     {Name: "time_now", Arity: 0, Fn: timeNow},
		"print":        {Name: "print", Arity: 1, Fn: printFn},
		"file_read":    {Name: "file_read", Arity: 1, Fn: fileRead(cfg)},
		"file_write":   {Name: "file_write", Arity: 2, Fn: fileWrite(cfg)},
		"audio_beep":   {Name: "audio_beep", Arity: 2, Fn: audioBeep},
		"window_title": {Name: "window_title", Arity: 1, Fn: windowTitle},

		"$actor_spawn": {Name: "$actor_spawn", Arity: 1, Fn: actorSpawn},
		"$actor_send":  {Name: "$actor_send", Arity: 2, Fn: actorSend},
		"$actor_recv":  {Name: "$actor_recv", Arity: 0, Fn: actorRecv},
		"$actor_poll":  {Name: "$actor_poll", Arity: 0, Fn: actorPoll},
		"$actor_sleep": {Name: "$actor_sleep", Arity: 1, Fn: actorSleep},
		"$actor_join":  {Name: "$actor_join", Arity: 1, Fn: actorJoin},
	}
	return fns
}

func timeNow(rt machine.Runtime, args []machine.Value) (machine.Value, error) {
	return machine.Int64(time.Now().UnixMilli()), nil
}

func printFn(rt machine.Runtime, args []machine.Value) (machine.Value, error) {
	fmt.Fprintln(rt.Stdout(), args[0].String())
	return machine.Nil, nil
}

func fileRead(cfg Config) func(machine.Runtime, []machine.Value) (machine.Value, error) {
	return func(rt machine.Runtime, args []machine.Value) (machine.Value, error) {
		if args[0].Tag() != machine.TagString {
			return machine.Value{}, fmt.Errorf("file_read: path must be a string")
		}
		path, err := sandboxPath(cfg.FileRoot, string(args[0].AsString().Data()))
		if err != nil {
			return machine.Value{}, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return machine.Value{}, err
		}
		b, err := rt.Arena().NewByteArray(data)
		if err != nil {
			return machine.Value{}, err
		}
		return machine.WrapByteArray(b), nil
	}
}

func fileWrite(cfg Config) func(machine.Runtime, []machine.Value) (machine.Value, error) {
	return func(rt machine.Runtime, args []machine.Value) (machine.Value, error) {
		if args[0].Tag() != machine.TagString {
			return machine.Value{}, fmt.Errorf("file_write: path must be a string")
		}
		path, err := sandboxPath(cfg.FileRoot, string(args[0].AsString().Data()))
		if err != nil {
			return machine.Value{}, err
		}
		var data []byte
		switch args[1].Tag() {
		case machine.TagByteArray:
			data = args[1].AsByteArray().Bytes
		case machine.TagString:
			data = args[1].AsString().Data()
		default:
			return machine.Value{}, fmt.Errorf("file_write: content must be a string or bytearray")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return machine.Value{}, err
		}
		return machine.Nil, nil
	}
}

// sandboxPath confines path resolution to root, rejecting any ".." escape,
// per the path-sandboxing policy this package implements a minimal
// version of (§1 calls the full policy an external collaborator; this is
// the small demonstrative enforcement the host stubs need to be safe by
// default).
func sandboxPath(root, path string) (string, error) {
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	joined := filepath.Join(absRoot, path)
	rel, err := filepath.Rel(absRoot, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file path escapes sandbox root: %q", path)
	}
	return joined, nil
}

// audioBeep and windowTitle are inert stubs: the 0/1-arity, void-return
// corners of the ABI without a real windowing/audio backend (§4.8).
func audioBeep(rt machine.Runtime, args []machine.Value) (machine.Value, error) {
	return machine.Nil, nil
}

func windowTitle(rt machine.Runtime, args []machine.Value) (machine.Value, error) {
	return machine.Nil, nil
}

func actorSpawn(rt machine.Runtime, args []machine.Value) (machine.Value, error) {
	if args[0].Tag() != machine.TagFunID {
		return machine.Value{}, fmt.Errorf("$actor_spawn: argument must be a function")
	}
	id, err := rt.Spawn(args[0].AsFunID())
	if err != nil {
		return machine.Value{}, err
	}
	return machine.Int64(int64(id)), nil
}

func actorSend(rt machine.Runtime, args []machine.Value) (machine.Value, error) {
	if args[0].Tag() != machine.TagInt64 {
		return machine.Value{}, fmt.Errorf("$actor_send: actor id must be an int64")
	}
	ok := rt.Send(uint32(args[0].AsInt64()), args[1])
	return machine.Bool(ok), nil
}

func actorRecv(rt machine.Runtime, args []machine.Value) (machine.Value, error) {
	return rt.Recv()
}

// actorPoll is $actor_recv's non-blocking counterpart (§4.6): it returns
// Undef immediately instead of waiting when the mailbox is empty.
func actorPoll(rt machine.Runtime, args []machine.Value) (machine.Value, error) {
	v, ok := rt.Poll()
	if !ok {
		return machine.Undef, nil
	}
	return v, nil
}

// actorSleep suspends the calling actor's goroutine for ms milliseconds
// (§4.6's "suspension points": actor_sleep blocks the calling thread,
// nothing else). It needs no Runtime delegation, unlike the other actor
// built-ins: sleeping is purely local to the calling goroutine.
func actorSleep(rt machine.Runtime, args []machine.Value) (machine.Value, error) {
	if args[0].Tag() != machine.TagInt64 {
		return machine.Value{}, fmt.Errorf("$actor_sleep: duration must be an int64")
	}
	time.Sleep(time.Duration(args[0].AsInt64()) * time.Millisecond)
	return machine.Nil, nil
}

func actorJoin(rt machine.Runtime, args []machine.Value) (machine.Value, error) {
	if args[0].Tag() != machine.TagInt64 {
		return machine.Value{}, fmt.Errorf("$actor_join: actor id must be an int64")
	}
	return rt.Join(uint32(args[0].AsInt64()))
}
