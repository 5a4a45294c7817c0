//go:build windows

package ui

import (
	"io"
	"os"
)

// OpenTTY opens the console input, for use as program input when stdin is
// not a terminal.
func OpenTTY() (io.ReadWriteCloser, error) {
	return os.OpenFile("CONIN$", os.O_RDWR, 0)
}
