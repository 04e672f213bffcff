// Package tools holds small filesystem helpers shared by commands.
package tools

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
)

// FileExists reports whether filename exists. Stat errors other than
// not-exist count as existing.
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// PathExists reports whether path exists, surfacing stat errors to the
// caller.
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// WritePidFile writes the current process id to pidFile. An empty path
// disables the pid file.
func WritePidFile(pidFile string) error {
	if pidFile == "" {
		return nil
	}
	pid := []byte(strconv.Itoa(os.Getpid()) + "\n")
	return os.WriteFile(pidFile, pid, 0644)
}
