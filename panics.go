package dispatch

import (
	"fmt"
	"runtime"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

// PanicError converts a recovered panic value into a classified execution
// error carrying a cleaned stack trace in its metadata. Used at the worker
// boundary and around work invocation so one faulting run never takes a
// worker down.
func PanicError(recovered any) *apperrors.Error {
	stack := make([]byte, 8096)
	n := runtime.Stack(stack, false)
	stack = stack[:n]

	var source error
	if err, ok := recovered.(error); ok {
		source = err
	} else {
		source = fmt.Errorf("%v", recovered)
	}

	return NewExecutionError(source).WithMetadata(map[string]any{
		"panic": true,
		"stack": string(cleanStackTrace(stack)),
	})
}

// cleanStackTrace drops everything up to and including the runtime panic
// frames so the trace starts at the faulting code.
func cleanStackTrace(stack []byte) []byte {
	lines := strings.Split(string(stack), "\n")

	panicLineIndex := -1
	for i, line := range lines {
		if strings.Contains(line, "panic(") {
			panicLineIndex = i
			break
		}
	}

	// the panic() call line plus its file reference line
	if panicLineIndex >= 0 && panicLineIndex+2 < len(lines) {
		lines = lines[panicLineIndex+2:]
	}

	return []byte(strings.Join(lines, "\n"))
}
