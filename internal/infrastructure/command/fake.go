package command

import (
	"context"
	"strconv"
	"strings"
	"sync"
)

// Fake is a scripted Runner for adapter tests.
type Fake struct {
	mu sync.Mutex
	// Handle returns the result for a command line such as "apt-get update".
	Handle func(line string) (Result, error)
	Lines  []string
}

var _ Runner = (*Fake)(nil)

// Run records the command line and delegates to Handle.
func (f *Fake) Run(_ context.Context, name string, args ...string) (Result, error) {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.mu.Lock()
	f.Lines = append(f.Lines, line)
	handle := f.Handle
	f.mu.Unlock()
	if handle == nil {
		return Result{}, nil
	}
	return handle(line)
}

// Failure builds the error a failing command produces.
func Failure(line string, code int, output string) (Result, error) {
	res := Result{Stderr: output, ExitCode: code}
	return res, &Error{Command: line, ExitCode: code, Output: output, Err: errExit(code)}
}

type errExit int

func (e errExit) Error() string {
	return "exit status " + strconv.Itoa(int(e))
}
