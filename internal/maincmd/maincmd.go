// Package maincmd wires the CLI flags to the compile-and-run pipeline,
// grounded on the teacher's internal/maincmd: a flag-tag Cmd struct parsed
// by github.com/mna/mainer, returning a mainer.ExitCode.
package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "glade"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <path>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <path>
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and runtime for the %[1]s scripting language.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --no-exec                 Parse and resolve the program but do not
                                  execute it.
`, binName)
)

// Cmd holds the parsed command line; BuildVersion/BuildDate are injected at
// build time via -ldflags, exactly as the teacher does.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
	NoExec  bool `flag:"no-exec"`

	args []string
}

func (c *Cmd) SetArgs(args []string)       { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 1 {
		return fmt.Errorf("exactly one source file path is required, got %d", len(c.args))
	}
	return nil
}

// Main parses args, dispatches, and returns the process exit code: the
// integer the program's unit function returns (0 for Nil), or a failure
// code for a parse/resolve/runtime error, per §6.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	code, err := c.run(ctx, stdio, c.args[0])
	if err != nil {
		// each stage prints its own errors; nothing left to report here
		return mainer.Failure
	}
	return mainer.ExitCode(code)
}
