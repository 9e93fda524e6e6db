// Package serialmux provides an abstraction over a serial port with the ability
// for multiple clients to subscribe to the sentinel-terminated readings sent by
// a scanner.
package serialmux

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"tailscale.com/tsweb"

	"github.com/banshee-data/scanrig/internal/httputil"
)

// SubscriberBuffer is the channel depth given to each subscriber.
const SubscriberBuffer = 1024

// subscriber is one fan-out channel and the readings it missed because it
// was full.
type subscriber struct {
	ch      chan string
	dropped uint64
}

// SerialMux is a generic serial port multiplexer that allows multiple clients to
// subscribe to readings from a single serial port.
type SerialMux[T SerialPorter] struct {
	port         T
	sentinel     byte
	subscribers  map[string]*subscriber
	subscriberMu sync.Mutex
	closing      bool
	closingMu    sync.Mutex

	readings atomic.Uint64
	dropped  atomic.Uint64
}

// Stats reports reading counters of a SerialMux.
type Stats struct {
	Readings    uint64 `json:"readings"`
	Dropped     uint64 `json:"dropped"`
	Subscribers int    `json:"subscribers"`
}

// SerialMuxInterface defines the interface for the SerialMux type.
type SerialMuxInterface interface {
	// Subscribe creates a new channel for receiving readings from the serial
	// port. The channel ID is used to identify the unique channel when
	// unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// Dropped reports how many readings the subscriber with the given ID
	// missed because its channel was full. Unknown IDs report zero.
	Dropped(string) uint64
	// Monitor reads readings from the serial port and sends them to the
	// subscribed channels until ctx is done or the port is exhausted.
	Monitor(context.Context) error
	// Stats returns the reading counters.
	Stats() Stats
	// Close closes all subscribed channels and closes the serial port.
	Close() error

	// AttachAdminRoutes attaches admin debugging endpoints to the given HTTP
	// mux served at /debug/. These routes are accessible only over
	// localhost/via Tailscale and are not publicly accessible.
	AttachAdminRoutes(*http.ServeMux)
}

// NewSerialMux creates a SerialMux reading sentinel-terminated readings from
// port. A zero sentinel selects DefaultSentinel.
func NewSerialMux[T SerialPorter](port T, sentinel byte) *SerialMux[T] {
	if sentinel == 0 {
		sentinel = DefaultSentinel
	}
	return &SerialMux[T]{
		port:        port,
		sentinel:    sentinel,
		subscribers: make(map[string]*subscriber),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, SubscriberBuffer)

	s.closingMu.Lock()
	closing := s.closing
	s.closingMu.Unlock()
	if closing {
		close(ch)
		return id, ch
	}

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = &subscriber{ch: ch}
	return id, ch
}

// Unsubscribe removes a subscriber from the serial mux.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if sub, ok := s.subscribers[id]; ok {
		close(sub.ch)
		delete(s.subscribers, id)
	}
}

func (s *SerialMux[T]) Dropped(id string) uint64 {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if sub, ok := s.subscribers[id]; ok {
		return sub.dropped
	}
	return 0
}

func (s *SerialMux[T]) Stats() Stats {
	s.subscriberMu.Lock()
	n := len(s.subscribers)
	s.subscriberMu.Unlock()
	return Stats{
		Readings:    s.readings.Load(),
		Dropped:     s.dropped.Load(),
		Subscribers: n,
	}
}

// Monitor monitors the serial port for readings and sends them to subscribers.
// It returns nil when the port reaches EOF, ctx.Err() on cancellation, or the
// read error otherwise.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)
	scan.Split(ScanSentinel(s.sentinel))

	readingChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// The blocking scan.Scan runs in its own goroutine so the loop below can
	// observe cancellation. Closing the port unblocks it.
	go func() {
		defer close(readingChan)
		for scan.Scan() {
			select {
			case readingChan <- strings.TrimSpace(scan.Text()):
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case reading, ok := <-readingChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}
			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			s.readings.Add(1)
			s.subscriberMu.Lock()
			for id, sub := range s.subscribers {
				select {
				case sub.ch <- reading:
				default:
					// never block the read loop on a slow subscriber
					sub.dropped++
					s.dropped.Add(1)
					log.Printf("serialmux: subscriber %s is full, dropped reading %q", id, reading)
				}
			}
			s.subscriberMu.Unlock()
		}
	}
}

func (s *SerialMux[T]) Close() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, sub := range s.subscribers {
		close(sub.ch)
		delete(s.subscribers, id)
	}
	return s.port.Close()
}

func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("readings", "serial reading counters", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, s.Stats())
	})

	// Server-Sent Events stream of readings as they arrive from the scanner.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			httputil.InternalServerError(w, "streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := s.Subscribe()
		defer s.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case reading, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", reading); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
