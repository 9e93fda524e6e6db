package acquire

import "errors"

// Sink receives a scan incrementally as it is acquired.
type Sink interface {
	// BeginPosition is called before the first reading of position p.
	BeginPosition(p int, axis float64) error
	// RecordReading stores the raw reading of (p, s).
	RecordReading(p, s int, raw string) error
}

// MultiSink forwards to every sink in order, joining their errors.
type MultiSink []Sink

func (m MultiSink) BeginPosition(p int, axis float64) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.BeginPosition(p, axis))
	}
	return errors.Join(errs...)
}

func (m MultiSink) RecordReading(p, s int, raw string) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.RecordReading(p, s, raw))
	}
	return errors.Join(errs...)
}

// Discard is a Sink that stores nothing.
var Discard Sink = discard{}

type discard struct{}

func (discard) BeginPosition(int, float64) error     { return nil }
func (discard) RecordReading(int, int, string) error { return nil }
