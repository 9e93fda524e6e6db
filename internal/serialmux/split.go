package serialmux

import "bytes"

// DefaultSentinel terminates every reading sent by the scanner firmware.
const DefaultSentinel byte = 'E'

// ScanSentinel returns a bufio.SplitFunc yielding the bytes before each
// sentinel. A trailing fragment with no sentinel at EOF is an interrupted
// reading and is discarded.
func ScanSentinel(sentinel byte) func(data []byte, atEOF bool) (advance int, token []byte, err error) {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.IndexByte(data, sentinel); i >= 0 {
			return i + 1, data[:i], nil
		}
		if atEOF && len(data) > 0 {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
}
