package timerange_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuswx/obsdb/timerange"
)

func TestNew(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("valid range", func(t *testing.T) {
		tr, err := timerange.New(start, end)
		require.NoError(t, err)
		assert.Equal(t, start, tr.Start)
		assert.Equal(t, end, tr.End)
	})

	t.Run("start equals end is valid", func(t *testing.T) {
		tr, err := timerange.New(start, start)
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), tr.Duration())
	})

	t.Run("start after end is rejected", func(t *testing.T) {
		_, err := timerange.New(end, start)
		assert.Error(t, err)
	})
}

func TestContains(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	tr, err := timerange.New(start, end)
	require.NoError(t, err)

	assert.True(t, tr.Contains(start))
	assert.True(t, tr.Contains(end))
	assert.True(t, tr.Contains(start.Add(time.Hour)))
	assert.False(t, tr.Contains(start.Add(-time.Second)))
	assert.False(t, tr.Contains(end.Add(time.Second)))
}

func TestString(t *testing.T) {
	start := time.Date(2023, 6, 15, 9, 30, 0, 0, time.UTC)
	end := time.Date(2023, 6, 15, 18, 0, 0, 0, time.UTC)
	tr, err := timerange.New(start, end)
	require.NoError(t, err)

	assert.Equal(t, "TimeRange [2023-06-15 0930 -> 2023-06-15 1800]", tr.String())
}
