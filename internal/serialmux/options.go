package serialmux

import (
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

// DefaultBaudRate is the rate the scanner firmware transmits at.
const DefaultBaudRate = 115200

// PortOptions holds the framing of the scanner link. Zero values mean the
// scanner's own 115200 8N1 framing.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

var (
	parityCodes = map[string]string{
		"": "N", "N": "N", "NONE": "N",
		"E": "E", "EVEN": "E",
		"O": "O", "ODD": "O",
	}
	serialParity   = map[string]serial.Parity{"N": serial.NoParity, "E": serial.EvenParity, "O": serial.OddParity}
	serialStopBits = map[int]serial.StopBits{1: serial.OneStopBit, 2: serial.TwoStopBits}
)

// ParsePortOptions reads the "baud framing" notation printed by String, for
// example "115200 8N1" or "9600 7E2".
func ParsePortOptions(s string) (PortOptions, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 || len(fields[1]) != 3 {
		return PortOptions{}, fmt.Errorf("invalid port framing %q: want the form \"115200 8N1\"", s)
	}
	baud, err := strconv.Atoi(fields[0])
	if err != nil || baud <= 0 {
		return PortOptions{}, fmt.Errorf("invalid baud rate %q", fields[0])
	}
	frame := fields[1]
	if !isDigit(frame[0]) || !isDigit(frame[2]) {
		return PortOptions{}, fmt.Errorf("invalid framing %q: want data bits, parity and stop bits such as 8N1", frame)
	}
	return PortOptions{
		BaudRate: baud,
		DataBits: int(frame[0] - '0'),
		Parity:   frame[1:2],
		StopBits: int(frame[2] - '0'),
	}.Normalize()
}

func isDigit(b byte) bool { return b >= '1' && b <= '9' }

// Normalize fills in the scanner defaults and rejects framing the serial
// driver cannot open.
func (o PortOptions) Normalize() (PortOptions, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = DefaultBaudRate
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	if o.DataBits < 5 || o.DataBits > 8 {
		return o, fmt.Errorf("invalid data bits %d: must be between 5 and 8", o.DataBits)
	}
	if _, ok := serialStopBits[o.StopBits]; !ok {
		return o, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}
	code, ok := parityCodes[strings.ToUpper(strings.TrimSpace(o.Parity))]
	if !ok {
		return o, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	o.Parity = code
	return o, nil
}

// Equal reports whether both options open the port with the same framing.
func (o PortOptions) Equal(other PortOptions) bool {
	a, errA := o.Normalize()
	b, errB := other.Normalize()
	return errA == nil && errB == nil && a == b
}

func (o PortOptions) String() string {
	n, err := o.Normalize()
	if err != nil {
		return fmt.Sprintf("invalid(%v)", err)
	}
	return fmt.Sprintf("%d %d%s%d", n.BaudRate, n.DataBits, n.Parity, n.StopBits)
}

// SerialMode returns the go.bug.st/serial mode for the normalized options.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	n, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	return &serial.Mode{
		BaudRate: n.BaudRate,
		DataBits: n.DataBits,
		Parity:   serialParity[n.Parity],
		StopBits: serialStopBits[n.StopBits],
	}, nil
}
