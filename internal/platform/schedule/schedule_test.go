package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadSpecs(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name     string
		spec     string
		timezone string
		want     error
	}{
		{name: "empty", spec: "  ", want: ErrEmptySpec},
		{name: "garbage", spec: "every morning", want: ErrInvalidSpec},
		{name: "six fields", spec: "0 0 6 * * *", want: ErrInvalidSpec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.spec, tt.timezone, &logger)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := New("0 6 * * *", "Mars/Olympus", &logger)
	require.Error(t, err)
}

func TestNextHonorsTimezone(t *testing.T) {
	logger := zerolog.Nop()

	s, err := New("0 6 * * *", "Canada/Eastern", &logger)
	require.NoError(t, err)

	// 2026-01-20 12:00 UTC is 07:00 in Toronto, so the next 06:00 local is tomorrow.
	next := s.Next(time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC))

	assert.Equal(t, time.Date(2026, 1, 21, 11, 0, 0, 0, time.UTC), next.UTC())
}

func TestNormalizeTimezone(t *testing.T) {
	assert.Equal(t, "America/Toronto", NormalizeTimezone(" Canada/Eastern "))
	assert.Equal(t, "Europe/Paris", NormalizeTimezone("Europe/Paris"))

	loc, err := Location("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestRunStopsOnCancel(t *testing.T) {
	logger := zerolog.Nop()

	s, err := New("@every 1h", "", &logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.Run(ctx, func(context.Context) error { return nil })
	require.True(t, errors.Is(err, context.Canceled))
}
