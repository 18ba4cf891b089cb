//go:build linux

package serial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig_ValidateAcceptsEveryTableRate(t *testing.T) {
	for _, baud := range BaudRates {
		for size := 5; size <= 8; size++ {
			for _, parity := range []Parity{ParityNone, ParityOdd, ParityEven} {
				cfg := Config{BaudRate: baud, CharSize: size, Parity: parity}
				require.NoError(t, cfg.Validate(), "%d %d %v", baud, size, parity)
			}
		}
	}
}

func TestConfig_ValidateRejects(t *testing.T) {
	for _, cfg := range []Config{
		{BaudRate: 460800, CharSize: 8},
		{BaudRate: 9600, CharSize: 0},
		{BaudRate: 9600, CharSize: 8, Parity: 7},
	} {
		err := cfg.Validate()
		require.ErrorIs(t, err, ErrInvalidSettings)
	}
}

func TestParseParity(t *testing.T) {
	for in, want := range map[string]Parity{
		"none": ParityNone, "N": ParityNone,
		"odd": ParityOdd, "o": ParityOdd,
		"EVEN": ParityEven, "e": ParityEven,
	} {
		got, err := ParseParity(in)
		require.NoError(t, err)
		require.Equal(t, want, got, in)
	}

	_, err := ParseParity("mark")
	require.ErrorIs(t, err, ErrInvalidSettings)
}

func TestParity_String(t *testing.T) {
	require.Equal(t, "odd", ParityOdd.String())
	require.Equal(t, "Parity(9)", Parity(9).String())
}

func TestConfig_Logger(t *testing.T) {
	require.False(t, Config{}.logger().Core().Enabled(-1))
	require.True(t, Config{Debug: true}.logger().Core().Enabled(-1))
	require.Same(t, Config{Debug: true}.logger(), Config{Debug: true}.logger())
}
