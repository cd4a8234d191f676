package baseline

import (
	"context"
	"testing"

	"github.com/florasat/go-phenology/bloom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openMemory(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", ":memory:")
	require.Nil(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	history, err := s.PeakDays(ctx, "valencia", "citrus")
	require.Nil(t, err)
	assert.Empty(t, history)

	for year, doy := range map[int]int{2019: 179, 2020: 183, 2021: 181} {
		require.Nil(t, s.RecordPeak(ctx, "valencia", "citrus", year, doy))
	}
	require.Nil(t, s.RecordPeak(ctx, "valencia", "almond", 2021, 60))

	// recording the same season again replaces it
	require.Nil(t, s.RecordPeak(ctx, "valencia", "citrus", 2021, 175))

	history, err = s.PeakDays(ctx, "valencia", "citrus")
	require.Nil(t, err)
	assert.Equal(t, bloom.HistoricalBaseline{2019: 179, 2020: 183, 2021: 175}, history)

	history, err = s.PeakDays(ctx, "valencia", "almond")
	require.Nil(t, err)
	assert.Equal(t, bloom.HistoricalBaseline{2021: 60}, history)

	// migrating twice is harmless
	assert.Nil(t, s.Migrate(ctx))
}

func TestRecordPeakInvalid(t *testing.T) {
	s := openMemory(t)
	testData := map[string]struct {
		doy int
		err error
	}{
		"zero":       {doy: 0, err: ErrInvalidDayOfYear},
		"past leap":  {doy: 367, err: ErrInvalidDayOfYear},
		"first day":  {doy: 1},
		"leap day":   {doy: 366},
		"mid season": {doy: 169},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := s.RecordPeak(context.Background(), "r", "s", 2024, td.doy)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.Nil(t, err)
		})
	}
}

func TestNewSQLStoreDriver(t *testing.T) {
	_, err := NewSQLStore(nil, "mysql")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)

	s, err := NewSQLStore(nil, "postgres")
	require.Nil(t, err)
	assert.Equal(t,
		"SELECT year, peak_doy FROM historical_peaks WHERE region = $1 AND species = $2 ORDER BY year",
		s.rebind(selectPeaks),
	)

	s, err = NewSQLStore(nil, "sqlite")
	require.Nil(t, err)
	assert.Equal(t, selectPeaks, s.rebind(selectPeaks))
}
