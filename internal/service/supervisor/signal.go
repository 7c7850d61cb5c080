package supervisor

import (
	"errors"
	"os"
	"runtime"
	"strings"
	"syscall"
)

// terminate asks the process to exit:
// - Linux/macOS and other Unix-like systems: SIGTERM
// - Windows: TerminateProcess, the only signal os.Process supports there.
// It does not wait for the process to exit.
func terminate(process *os.Process) error {
	var err error

	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		err = process.Kill()
	} else {
		err = process.Signal(syscall.SIGTERM)
	}

	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}
