package process

import (
	"errors"

	"golang.org/x/sys/unix"
)

// processAlive sends signal 0 to pid. Any error, ESRCH and EPERM
// included, counts as not alive: a pid we may not signal is not a
// process we started.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}

// terminate sends SIGTERM to pid. A process that is already gone is not
// an error.
func terminate(pid int) error {
	if pid <= 0 {
		return nil
	}

	err := unix.Kill(pid, unix.SIGTERM)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
