package serialmux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptions_Normalize(t *testing.T) {
	t.Parallel()

	got, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}, got)

	got, err = PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: " even "}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "E"}, got)

	for _, bad := range []PortOptions{
		{DataBits: 9},
		{DataBits: 4},
		{StopBits: 3},
		{Parity: "mark"},
	} {
		_, err := bad.Normalize()
		assert.Error(t, err, "%+v", bad)
	}
}

func TestPortOptions_Equal(t *testing.T) {
	t.Parallel()

	assert.True(t, PortOptions{}.Equal(PortOptions{BaudRate: 115200, Parity: "none"}))
	assert.False(t, PortOptions{}.Equal(PortOptions{BaudRate: 9600}))
	assert.False(t, PortOptions{DataBits: 9}.Equal(PortOptions{DataBits: 9}))
}

func TestPortOptions_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "115200 8N1", PortOptions{}.String())
	assert.Contains(t, PortOptions{Parity: "x"}.String(), "invalid")
}

func TestPortOptions_SerialMode(t *testing.T) {
	t.Parallel()

	mode, err := PortOptions{Parity: "O", StopBits: 2}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 115200, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.OddParity, mode.Parity)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)

	mode, err = PortOptions{}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, serial.NoParity, mode.Parity)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)

	_, err = PortOptions{DataBits: 12}.SerialMode()
	assert.Error(t, err)
}

func TestParsePortOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    PortOptions
		wantErr bool
	}{
		{in: "115200 8N1", want: PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}},
		{in: "  9600   7e2 ", want: PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "E"}},
		{in: "57600 5O1", want: PortOptions{BaudRate: 57600, DataBits: 5, StopBits: 1, Parity: "O"}},
		{in: "115200", wantErr: true},
		{in: "fast 8N1", wantErr: true},
		{in: "-1 8N1", wantErr: true},
		{in: "115200 8N", wantErr: true},
		{in: "115200 0N1", wantErr: true},
		{in: "115200 9N1", wantErr: true},
		{in: "115200 8M1", wantErr: true},
		{in: "115200 8N3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePortOptions(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()), "String and ParsePortOptions round trip")
		})
	}
}

func mustParse(t *testing.T, s string) PortOptions {
	t.Helper()
	opts, err := ParsePortOptions(s)
	require.NoError(t, err)
	return opts
}
