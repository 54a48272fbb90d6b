// Command aibom creates, signs, verifies and gates AI bills of materials.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitRefused = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// exitError carries a process exit code out of a command. A nil err means
// the command already printed its message.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func fail(err error) error { return &exitError{code: exitFailure, err: err} }

func failf(format string, a ...any) error { return fail(fmt.Errorf(format, a...)) }

func exitWith(code int) error { return &exitError{code: code} }

func run(args []string, out io.Writer, errOut io.Writer) int {
	app := &app{out: out, errOut: errOut}
	defer app.close()

	root := newRootCmd(app)
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(errOut, "error: %v\n", ee.err)
		}
		return ee.code
	}
	// Anything cobra rejects before a command runs is a usage problem.
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitUsage
}
