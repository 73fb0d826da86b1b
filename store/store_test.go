package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuswx/obsdb/store"
)

// openTestStore points $HOME at a temp dir so Open creates an isolated
// cache file per test.
func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	s, err := store.Open()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func f(v float64) *float64 { return &v }

func TestOpenCreatesCacheFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := store.Open()
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(home + "/.local/share/obsdb/wxobs.sqlite")
	assert.NoError(t, err)
}

func TestOpenFailsWithoutHome(t *testing.T) {
	t.Setenv("HOME", "")
	_, err := store.Open()
	assert.Error(t, err)
}

func TestInsertAndCountInRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		vt := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, tx.Insert(ctx, vt, "kxyz", f(50.0+float64(i)), f(0.0)))
	}
	require.NoError(t, tx.Commit())

	count, err := s.CountInRange(ctx, "kxyz", base.Unix(), base.Add(4*time.Hour).Unix())
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	count, err = s.CountInRange(ctx, "kxyz", base.Unix(), base.Add(2*time.Hour).Unix())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestInsertUpsertsOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	vt := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, vt, "kxyz", f(10), f(0)))
	require.NoError(t, tx.Commit())

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, vt, "kxyz", f(99), f(0.5)))
	require.NoError(t, tx.Commit())

	rows, err := s.ScanAsc(ctx, "kxyz", vt.Unix(), vt.Unix())
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	row := rows.Row()
	assert.InDelta(t, 99.0, *row.TF, 0.0001)
	assert.InDelta(t, 0.5, *row.PrecipIn1hr, 0.0001)
	assert.False(t, rows.Next())
	assert.NoError(t, rows.Err())
}

func TestRollbackDiscardsInserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	vt := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, vt, "kxyz", f(10), nil))
	require.NoError(t, tx.Rollback())

	count, err := s.CountInRange(ctx, "kxyz", vt.Unix(), vt.Unix())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestScanAscOrdersAscending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	for i := 4; i >= 0; i-- {
		vt := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, tx.Insert(ctx, vt, "kxyz", f(float64(i)), nil))
	}
	require.NoError(t, tx.Commit())

	rows, err := s.ScanAsc(ctx, "kxyz", base.Unix(), base.Add(4*time.Hour).Unix())
	require.NoError(t, err)
	defer rows.Close()

	var got []float64
	for rows.Next() {
		got = append(got, *rows.Row().TF)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, got)
}

func TestCloseWithoutSharedHomeIsIndependent(t *testing.T) {
	home1 := t.TempDir()
	home2 := t.TempDir()

	t.Setenv("HOME", home1)
	s1, err := store.Open()
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	t.Setenv("HOME", home2)
	s2, err := store.Open()
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}
