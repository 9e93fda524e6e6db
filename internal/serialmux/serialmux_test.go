package serialmux

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scanrig/internal/testutil"
)

func collect(t *testing.T, ch chan string, n int) []string {
	t.Helper()
	var out []string
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case r, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, r)
		case <-timeout:
			t.Fatalf("timed out after %d of %d readings", len(out), n)
		}
	}
	return out
}

func TestNewSerialMux_DefaultSentinel(t *testing.T) {
	t.Parallel()
	m := NewSerialMux(NewTestableSerialPort(), 0)
	assert.Equal(t, DefaultSentinel, m.sentinel)
}

func TestMonitor_FansOutReadings(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	port.AddReadData([]byte("100E 200E\r\n300E"))
	m := NewSerialMux(port, 'E')

	id1, ch1 := m.Subscribe()
	_, ch2 := m.Subscribe()

	err := m.Monitor(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"100", "200", "300"}, collect(t, ch1, 3))
	assert.Equal(t, []string{"100", "200", "300"}, collect(t, ch2, 3))

	stats := m.Stats()
	assert.Equal(t, uint64(3), stats.Readings)
	assert.Equal(t, uint64(0), stats.Dropped)
	assert.Equal(t, 2, stats.Subscribers)

	m.Unsubscribe(id1)
	_, ok := <-ch1
	assert.False(t, ok, "channel should be closed after Unsubscribe")
	assert.Equal(t, 1, m.Stats().Subscribers)
}

func TestMonitor_DropsWhenSubscriberFull(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	port.AddReadData([]byte(strings.Repeat("1E", SubscriberBuffer+5)))
	m := NewSerialMux(port, 'E')
	full, _ := m.Subscribe()

	require.NoError(t, m.Monitor(context.Background()))
	stats := m.Stats()
	assert.Equal(t, uint64(SubscriberBuffer+5), stats.Readings)
	assert.Equal(t, uint64(5), stats.Dropped)

	assert.Equal(t, uint64(5), m.Dropped(full))
	assert.Equal(t, uint64(0), m.Dropped("unknown"))

	m.Unsubscribe(full)
	assert.Equal(t, uint64(0), m.Dropped(full))
}

func TestMonitor_ReadError(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	port.AddReadData([]byte("1E"))
	boom := errors.New("wire fault")
	port.FailReads(boom)

	m := NewSerialMux(port, 'E')
	_, ch := m.Subscribe()
	err := m.Monitor(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"1"}, collect(t, ch, 1))
}

func TestMonitor_ContextCancel(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	port.BlockReads = true
	m := NewSerialMux(port, 'E')

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Monitor(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
	require.NoError(t, m.Close())
	assert.True(t, port.Closed)
}

func TestClose_ClosesSubscribers(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	m := NewSerialMux(port, 'E')
	_, ch := m.Subscribe()

	require.NoError(t, m.Close())
	_, ok := <-ch
	assert.False(t, ok)

	_, late := m.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribing after Close should yield a closed channel")
}

func TestMockSerialMux_StreamsReadings(t *testing.T) {
	t.Parallel()

	m := NewMockSerialMux([]string{"10", "20", "30"}, 'E', time.Millisecond)
	_, ch := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Monitor(ctx)

	assert.Equal(t, []string{"10", "20", "30"}, collect(t, ch, 3))
	require.NoError(t, m.Close())
}

func TestNewSerialMuxWith(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	var gotPath string
	var gotOpts PortOptions
	open := func(path string, opts PortOptions) (SerialPorter, error) {
		gotPath, gotOpts = path, opts
		return port, nil
	}

	m, err := newSerialMuxWith(open, "/dev/ttyACM0", PortOptions{BaudRate: 9600}, ';')
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", gotPath)
	assert.Equal(t, 9600, gotOpts.BaudRate)
	assert.Equal(t, byte(';'), m.sentinel)

	_, err = newSerialMuxWith(open, "", PortOptions{}, 'E')
	assert.Error(t, err)

	failing := func(string, PortOptions) (SerialPorter, error) { return nil, errors.New("no device") }
	_, err = newSerialMuxWith(failing, "/dev/null", PortOptions{}, 'E')
	assert.Error(t, err)
}

func TestAttachAdminRoutes_Readings(t *testing.T) {
	t.Parallel()

	port := NewTestableSerialPort()
	port.AddReadData([]byte("1E2E"))
	m := NewSerialMux(port, 'E')
	require.NoError(t, m.Monitor(context.Background()))

	mux := http.NewServeMux()
	m.AttachAdminRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalRequest(http.MethodGet, "/debug/readings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"readings":2,"dropped":0,"subscribers":0}`, rec.Body.String())
}

func TestAttachAdminRoutes_TailMethodNotAllowed(t *testing.T) {
	t.Parallel()

	m := NewSerialMux(NewTestableSerialPort(), 'E')
	mux := http.NewServeMux()
	m.AttachAdminRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, testutil.LocalRequest(http.MethodPost, "/debug/tail", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestAttachAdminRoutes_TailStreams(t *testing.T) {
	t.Parallel()

	m := NewSerialMux(NewTestableSerialPort(), 'E')
	mux := http.NewServeMux()
	m.AttachAdminRoutes(mux)

	ctx, cancel := context.WithCancel(context.Background())
	req := testutil.LocalRequest(http.MethodGet, "/debug/tail", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		mux.ServeHTTP(rec, req)
	}()

	// the handler subscribes before it blocks; wait for it then close
	require.Eventually(t, func() bool { return m.Stats().Subscribers == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), ": ping")
}
