package scheduler

import (
	"testing"
	"time"

	"github.com/cuemby/warren/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestAtSchedulesAreAbsolute(t *testing.T) {
	now := types.Now()
	target := now.Add(types.TimeDurationFromDuration(5 * time.Second))
	s := At(target)

	require.InDelta(t, (5 * time.Second).Seconds(), s.ToDurationFrom(now).Seconds(), 0.01)
	require.Equal(t, target, s.ToTimestampFrom(now))
}

func TestEveryIsRelativeToNow(t *testing.T) {
	now := types.Now()
	s := Every(types.TimeDurationFromDuration(10 * time.Second))

	require.Equal(t, 10*time.Second, s.ToDurationFrom(now))
	require.Equal(t, now.Add(types.TimeDurationFromDuration(10*time.Second)), s.ToTimestampFrom(now))
}
