//go:build unix

package config

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// traceWriter duplicates the descriptor behind w so the trace keeps a
// stable handle while the program writes to w.
func traceWriter(w io.Writer) (io.Writer, func()) {
	f, ok := w.(*os.File)
	if !ok {
		return w, func() {}
	}
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return w, func() {}
	}
	dup := os.NewFile(uintptr(fd), f.Name())
	return dup, func() { _ = dup.Close() }
}
