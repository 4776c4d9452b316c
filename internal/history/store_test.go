package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ironsheep/oil-level-monitor/internal/gauge"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func parsedReading(pct int, ts time.Time) *gauge.Reading {
	return &gauge.Reading{
		Percentage:      &pct,
		RawText:         fmt.Sprintf("Percentage: %d%%", pct),
		SourceImagePath: "/data/images/processed.jpg",
		Timestamp:       ts,
	}
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 11, 1, 8, 0, 0, 0, time.Local)

	for i, pct := range []int{42, 35, 24} {
		r := parsedReading(pct, base.Add(time.Duration(i)*24*time.Hour))
		require.NoError(t, s.Record(ctx, r, r.Classify(gauge.DefaultAlertThreshold)))
	}

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, 24, entries[0].Percentage)
	require.Equal(t, "warning", entries[0].Status)
	require.True(t, entries[0].Timestamp.Equal(base.Add(48*time.Hour)))
	require.Equal(t, "Percentage: 24%", entries[0].RawResult)
	require.Equal(t, "/data/images/processed.jpg", entries[0].ImagePath)

	require.Equal(t, 35, entries[1].Percentage)
	require.Equal(t, "ok", entries[1].Status)
}

func TestRecord_RejectsUnparsed(t *testing.T) {
	s := openTestStore(t)

	err := s.Record(context.Background(), &gauge.Reading{RawText: "no numeric data here"}, gauge.StatusUnknown)
	require.Error(t, err)

	entries, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stats, err := s.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Count)
	require.Nil(t, stats.Latest)

	base := time.Date(2025, 11, 1, 8, 0, 0, 0, time.Local)
	for i, pct := range []int{60, 18, 45} {
		require.NoError(t, s.Record(ctx, parsedReading(pct, base.Add(time.Duration(i)*time.Hour)), gauge.StatusOK))
	}

	stats, err = s.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Count)
	require.Equal(t, 18, stats.Min)
	require.Equal(t, 60, stats.Max)
	require.NotNil(t, stats.Latest)
	require.Equal(t, 45, stats.Latest.Percentage)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, parsedReading(50, time.Now()), gauge.StatusOK))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "history.db"))
	require.Error(t, err)
}
