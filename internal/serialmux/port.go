package serialmux

import (
	"io"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// SerialPortOpener opens a serial port at path with the given options.
// NewRealSerialMux uses OpenSerialPort; tests substitute their own.
type SerialPortOpener func(path string, opts PortOptions) (SerialPorter, error)
