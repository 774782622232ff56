package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/glade/lang/actor"
	"github.com/mna/glade/lang/host"
	"github.com/mna/glade/lang/machine"
	"github.com/mna/glade/lang/parser"
	"github.com/mna/glade/lang/resolver"
	"github.com/mna/glade/lang/scanner"
	"github.com/mna/glade/lang/token"
)

// run implements the four compile phases plus, unless --no-exec was given,
// execution of the program's unit function as the main actor (§4.9).
func (c *Cmd) run(ctx context.Context, stdio mainer.Stdio, path string) (int, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return 0, err
	}

	fset := token.NewFileSet()
	chunk, err := parser.ParseFile(fset, path, string(src))
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return 0, err
	}

	resolved, err := resolver.Resolve(fset, chunk, host.Arities)
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return 0, err
	}

	prog := machine.NewProgram(resolved)
	if c.NoExec {
		return 0, nil
	}

	cfg := host.Config{FileRoot: ".", Stdout: stdio.Stdout}
	vm := actor.NewVM(prog, host.Builtins(cfg), fset, stdio.Stdout)

	resultCh := make(chan struct {
		v   machine.Value
		err error
	}, 1)
	go func() {
		v, err := vm.RunMain(resolved.MainFn, nil)
		resultCh <- struct {
			v   machine.Value
			err error
		}{v, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(stdio.Stderr, ctx.Err())
		return 0, ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			fmt.Fprintln(stdio.Stderr, res.err)
			return 0, res.err
		}
		return exitCodeOf(res.v)
	}
}

// exitCodeOf converts the unit function's return value to a process exit
// code, per §6: the integer it returns, or 0 for Nil.
func exitCodeOf(v machine.Value) (int, error) {
	switch v.Tag() {
	case machine.TagNil, machine.TagUndef:
		return 0, nil
	case machine.TagInt64:
		return int(v.AsInt64()), nil
	default:
		return 0, fmt.Errorf("unit function returned %s, expected int64 or nil", v.Tag())
	}
}
