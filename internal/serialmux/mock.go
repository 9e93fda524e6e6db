package serialmux

import (
	"bytes"
	"errors"
	"io"
	"log"
	"sync"
	"time"
)

// MockSerialPort implements SerialPorter for dev mode. Reads come from a pipe
// fed by a generator goroutine; writes are discarded.
type MockSerialPort struct {
	r    *io.PipeReader
	once sync.Once
	done chan struct{}
}

func (m *MockSerialPort) Read(p []byte) (int, error) { return m.r.Read(p) }

func (m *MockSerialPort) Write(p []byte) (int, error) { return len(p), nil }

func (m *MockSerialPort) Close() error {
	m.once.Do(func() { close(m.done) })
	return m.r.Close()
}

// NewMockSerialMux creates a SerialMux backed by a mock port that emits each
// of readings followed by sentinel, one every interval. Once the readings are
// exhausted the port stays open and silent until closed, like an idle rig.
func NewMockSerialMux(readings []string, sentinel byte, interval time.Duration) *SerialMux[*MockSerialPort] {
	if sentinel == 0 {
		sentinel = DefaultSentinel
	}
	r, w := io.Pipe()
	port := &MockSerialPort{r: r, done: make(chan struct{})}
	log.Printf("mock serial port streaming %d readings every %s", len(readings), interval)

	go func() {
		defer w.Close()
		var tick <-chan time.Time
		if interval > 0 {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			tick = ticker.C
		}
		for _, reading := range readings {
			if tick != nil {
				select {
				case <-tick:
				case <-port.done:
					return
				}
			}
			if _, err := w.Write(append([]byte(reading), sentinel)); err != nil {
				return
			}
		}
		<-port.done
	}()

	return NewSerialMux(port, sentinel)
}

// TestableSerialPort implements SerialPorter with configurable behaviour for testing.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// BlockReads causes Read to block until data is added or Close is called
	// instead of returning io.EOF on an empty buffer.
	BlockReads bool

	readCond *sync.Cond
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

// Read reads from the read buffer, optionally blocking and returning errors.
func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.BlockReads {
		for !t.Closed && t.ReadBuffer.Len() == 0 && t.ReadError == nil {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, errors.New("serial port closed")
		}
	}

	if t.ReadBuffer.Len() == 0 && t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	return t.ReadBuffer.Read(p)
}

// Write captures p in the write buffer.
func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	return t.WriteBuffer.Write(p)
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast() // Wake up any blocked readers

	return t.CloseError
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Broadcast()
}

// FailReads makes the next Read, after buffered data is drained, return err.
func (t *TestableSerialPort) FailReads(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadError = err
	t.readCond.Broadcast()
}
