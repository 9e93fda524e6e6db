// Package testutil provides shared test helpers and scan fixtures.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/scanrig/internal/cloud"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// LocalRequest creates a test request that appears to come from localhost,
// which tsweb debug handlers require.
func LocalRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

// ScenarioGrid is a two position, four step scan: 10 mm readings at x=0 and
// 20 mm readings at x=-0.2.
func ScenarioGrid() *cloud.RawGrid {
	return UniformGrid(2, 4, 0, -0.2, []string{"10", "20"})
}

// UniformGrid builds a grid whose position p reads readings[p % len(readings)]
// at every step.
func UniformGrid(positions, steps int, axisStart, axisStep float64, readings []string) *cloud.RawGrid {
	grid := &cloud.RawGrid{Steps: steps, Positions: make([]cloud.Position, positions)}
	for p := range grid.Positions {
		row := make([]string, steps)
		for s := range row {
			row[s] = readings[p%len(readings)]
		}
		grid.Positions[p] = cloud.Position{Axis: axisStart + axisStep*float64(p), Readings: row}
	}
	return grid
}
