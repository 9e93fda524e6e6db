package serialmux

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenSerialPort opens the serial device at path with the given options.
func OpenSerialPort(path string, opts PortOptions) (SerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return port, nil
}

// NewRealSerialMux creates a SerialMux backed by the serial device at path.
// Readings are split on sentinel.
func NewRealSerialMux(path string, opts PortOptions, sentinel byte) (*SerialMux[SerialPorter], error) {
	return newSerialMuxWith(OpenSerialPort, path, opts, sentinel)
}

func newSerialMuxWith(open SerialPortOpener, path string, opts PortOptions, sentinel byte) (*SerialMux[SerialPorter], error) {
	if path == "" {
		return nil, fmt.Errorf("serial port path is required")
	}
	port, err := open(path, opts)
	if err != nil {
		return nil, err
	}
	return NewSerialMux(port, sentinel), nil
}
