package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestActivity_StartedEnded(t *testing.T) {
	start := time.Date(2025, 6, 5, 19, 0, 0, 0, time.UTC)
	a := &Activity{StartTime: start, EndTime: start.Add(2 * time.Hour), ParticipantCount: 10, BookedCount: 8}

	require.False(t, a.Started(start.Add(-time.Second)))
	require.True(t, a.Started(start))
	require.False(t, a.Ended(start.Add(time.Hour)))
	require.True(t, a.Ended(start.Add(2*time.Hour)))
	require.Equal(t, 2, a.RemainingSeats())
}
