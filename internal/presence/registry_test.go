package presence

import (
	"testing"
	"time"

	"github.com/eventconnect/eventconnect/internal/scheduler"
	"github.com/eventconnect/eventconnect/internal/types"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegistry_MountPollsAndUnmountStops(t *testing.T) {
	src := new(MockSource)
	src.On("GetTimerSnapshot", mock.Anything, "p1").Return(&types.TimerSnapshot{
		MaxTimeOutside: 10, CurrentTimeOutside: 5, TimerActive: true,
	}, nil)

	clock := clockwork.NewFakeClock()
	runner := scheduler.NewRunner(zerolog.Nop(), scheduler.WithClock(clock))
	reg := NewRegistry(src, runner, zerolog.Nop(), 10*time.Second, time.Second)

	timer, err := reg.Mount("p1")
	require.NoError(t, err)
	again, err := reg.Mount("p1")
	require.NoError(t, err)
	assert.Same(t, timer, again, "mount is idempotent")
	assert.Equal(t, 1, reg.Len())

	require.Eventually(t, func() bool { return timer.View().Visibility == Visible }, time.Second, 5*time.Millisecond)

	found, ok := reg.Lookup("p1")
	require.True(t, ok)
	assert.Same(t, timer, found)

	removed, err := reg.Unmount("p1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, reg.Len())

	calls := len(src.Calls)
	clock.Advance(time.Minute)
	assert.Equal(t, calls, len(src.Calls), "no polls after unmount")

	removed, err = reg.Unmount("p1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRegistry_Close(t *testing.T) {
	src := new(MockSource)
	src.On("GetTimerSnapshot", mock.Anything, mock.Anything).Return(nil, nil)

	runner := scheduler.NewRunner(zerolog.Nop(), scheduler.WithClock(clockwork.NewFakeClock()))
	reg := NewRegistry(src, runner, zerolog.Nop(), time.Second, time.Second)
	_, err := reg.Mount("p1")
	require.NoError(t, err)
	_, err = reg.Mount("p2")
	require.NoError(t, err)

	require.NoError(t, reg.Close())
	assert.Equal(t, 0, reg.Len())

	_, err = reg.Mount("p3")
	require.ErrorIs(t, err, ErrRegistryClosed)
}
