package acquire

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/banshee-data/scanrig/internal/cloud"
	"github.com/banshee-data/scanrig/internal/serialmux"
)

var (
	// ErrReadTimeout is wrapped when no reading arrives within the read timeout.
	ErrReadTimeout = errors.New("timed out waiting for reading")
	// ErrStreamClosed is wrapped when the serial stream ends before the scan
	// is complete.
	ErrStreamClosed = errors.New("serial stream closed")
	// ErrDroppedReadings is wrapped when the mux discarded readings meant for
	// the collector, so later readings no longer line up with their cells.
	ErrDroppedReadings = errors.New("serial mux dropped readings")
)

// Collector reads one scan from a serial mux.
type Collector struct {
	mux    serialmux.SerialMuxInterface
	layout Layout
	sink   Sink

	// ReadTimeout bounds the wait for each reading. Zero waits forever, which
	// suits rigs that pause for an operator between rotations.
	ReadTimeout time.Duration
	// Progress, if set, is called after every recorded reading.
	Progress func(p, s int)
}

// NewCollector returns a Collector for layout. A nil sink discards readings.
func NewCollector(mux serialmux.SerialMuxInterface, layout Layout, sink Sink) *Collector {
	if sink == nil {
		sink = Discard
	}
	return &Collector{mux: mux, layout: layout, sink: sink}
}

// Collect runs the mux monitor and reads layout.Positions x layout.Steps
// readings into a RawGrid. Transport failures (timeout, closed stream, read
// error, dropped readings) are reported as *cloud.MalformedGridError naming
// the first cell that cannot be filled in order. Readings are not parsed here;
// a bad reading is caught by the converter. Cancelling ctx returns ctx.Err().
func (c *Collector) Collect(ctx context.Context) (*cloud.RawGrid, error) {
	if err := c.layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}

	id, readings := c.mux.Subscribe()
	defer c.mux.Unsubscribe(id)

	monCtx, stop := context.WithCancel(ctx)
	defer stop()
	st := &stream{readings: readings, monErr: make(chan error, 1)}
	go func() {
		st.monErr <- c.mux.Monitor(monCtx)
	}()

	grid := &cloud.RawGrid{Steps: c.layout.Steps, Positions: make([]cloud.Position, c.layout.Positions)}
	for p := range c.layout.Positions {
		axis := c.layout.Axis(p)
		grid.Positions[p] = cloud.Position{Axis: axis, Readings: make([]string, 0, c.layout.Steps)}
		if err := c.sink.BeginPosition(p, axis); err != nil {
			return nil, fmt.Errorf("failed to record position %d: %w", p, err)
		}
		log.Printf("acquire: position %d/%d at axis %.3f m", p+1, c.layout.Positions, axis)

		for s := range c.layout.Steps {
			// The mux only drops while the channel is full, so with nothing
			// dropped yet the next backlog or channel reading belongs to (p, s).
			if n := c.mux.Dropped(id); n > 0 {
				return nil, &cloud.MalformedGridError{
					Position: p, Step: s, Reason: "dropped reading",
					Err: fmt.Errorf("%w: %d", ErrDroppedReadings, n),
				}
			}
			raw, err := st.next(ctx, c.ReadTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, &cloud.MalformedGridError{Position: p, Step: s, Reason: "short read", Err: err}
			}
			st.drain()
			if err := c.sink.RecordReading(p, s, raw); err != nil {
				return nil, fmt.Errorf("failed to record reading %d/%d: %w", p, s, err)
			}
			grid.Positions[p].Readings = append(grid.Positions[p].Readings, raw)
			if c.Progress != nil {
				c.Progress(p, s)
			}
		}
	}
	return grid, nil
}

// stream tracks the subscription and the monitor goroutine feeding it.
type stream struct {
	readings <-chan string
	backlog  []string
	monErr   chan error
	ended    bool
	err      error
}

// drain moves every reading already waiting on the subscription into the
// backlog without blocking, freeing the mux channel before a slow sink call.
func (st *stream) drain() {
	for {
		select {
		case raw, ok := <-st.readings:
			if !ok {
				return
			}
			st.backlog = append(st.backlog, raw)
		default:
			return
		}
	}
}

// next waits up to timeout (forever if zero) for one reading. Once the monitor
// has stopped, readings it already queued are still delivered before the
// stream reports ErrStreamClosed.
func (st *stream) next(ctx context.Context, timeout time.Duration) (string, error) {
	if len(st.backlog) > 0 {
		raw := st.backlog[0]
		st.backlog = st.backlog[1:]
		return raw, nil
	}
	if st.ended {
		select {
		case raw, ok := <-st.readings:
			if ok {
				return raw, nil
			}
		default:
		}
		return "", st.err
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case raw, ok := <-st.readings:
		if !ok {
			st.ended, st.err = true, ErrStreamClosed
			return "", st.err
		}
		return raw, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-expired:
		return "", ErrReadTimeout
	case err := <-st.monErr:
		st.ended, st.err = true, ErrStreamClosed
		if err != nil {
			st.err = fmt.Errorf("%w: %w", ErrStreamClosed, err)
		}
		return st.next(ctx, timeout)
	}
}
