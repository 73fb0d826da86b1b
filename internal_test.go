package obsdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuswx/obsdb/fetch"
	"github.com/nimbuswx/obsdb/store"
)

// This scenario matches scenario S1 of the spec: an empty cache backed
// by a stand-in upstream that reports 48 hourly readings, one per hour
// of two consecutive days, with t_f == hour of day. Both daily windows
// should report a max of 23.0.
func TestQueryMaxTFillsGapsFromUpstreamThenAnswersFromCache(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(synthesizeHourlyCSV(
			time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
			48,
		)))
	}))
	defer srv.Close()

	cache, err := store.Open()
	require.NoError(t, err)

	s := &Store{
		cache:   cache,
		fetcher: fetch.NewWithBase(srv.URL),
		apiKey:  "test-token",
	}
	defer s.Close()

	tr := TimeRange{
		Start: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC),
	}

	obs, err := s.QueryMaxT(context.Background(), "kden", tr, 0, 24)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC), obs[0].ValidTime)
	assert.InDelta(t, 23.0, obs[0].TemperatureF, 0.0001)
	assert.Equal(t, time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC), obs[1].ValidTime)
	assert.InDelta(t, 23.0, obs[1].TemperatureF, 0.0001)
}

// synthesizeHourlyCSV renders n consecutive hourly rows starting at
// start, with t_f set to the hour of day, in the upstream's own
// column-name convention.
func synthesizeHourlyCSV(start time.Time, n int) string {
	out := "# STATION: KDEN\nDate_Time,air_temp_set_1,precip_accum_one_hour_set_1\n"
	for i := 0; i < n; i++ {
		t := start.Add(time.Duration(i) * time.Hour)
		tF := strconv.FormatFloat(float64(t.Hour()), 'f', 1, 64)
		out += t.Format("2006-01-02T15:04:05Z") + "," + tF + ",0.00\n"
	}
	return out
}
