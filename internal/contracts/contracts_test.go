package contracts

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:30 UTC on the 15th is still the 14th in New York
	at := time.Date(2024, 3, 15, 2, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), ReportDate(at, ny))
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), ReportDate(at, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), ReportDate(at, nil))
}

func TestRunStatsConcurrentRecording(t *testing.T) {
	stats := &RunStats{TotalUsers: 30, StartTime: time.Now()}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); stats.RecordSuccess() }()
		go func() { defer wg.Done(); stats.RecordSkip() }()
		go func() { defer wg.Done(); stats.RecordFailure("u", errors.New("boom"), time.Now()) }()
	}
	wg.Wait()

	snap := stats.Snapshot()
	assert.Equal(t, 10, snap.Successful)
	assert.Equal(t, 10, snap.Skipped)
	assert.Equal(t, 10, snap.Failed)
	assert.Len(t, snap.Errors, 10)
	assert.InDelta(t, 1.0/3.0, stats.ErrorRate(), 1e-9)
}

func TestRunStatsErrorRateEmpty(t *testing.T) {
	assert.Zero(t, (&RunStats{}).ErrorRate())
}

func TestRunStatsFinish(t *testing.T) {
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	stats := &RunStats{StartTime: start}
	stats.Finish(start.Add(90 * time.Second))
	assert.Equal(t, 90*time.Second, stats.Duration)
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"", Period1M, false},
		{"1w", Period1W, false},
		{"5y", Period5Y, false},
		{"2d", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPeriod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodSince(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 23, 0, 0, 0, 0, time.UTC), Period1W.Since(now))
}

func TestQuotePreviousClose(t *testing.T) {
	q := Quote{Price: 105, Change: 5}
	assert.Equal(t, 100.0, q.PreviousClose())
}
