package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydro-extremes/internal/extremes"
)

const fixture = `{
  "descriptions": [
    {"uniqueId": "q", "identifier": "Discharge", "locationIdentifier": "01014000", "utcOffset": -5},
    {"uniqueId": "dv", "identifier": "Discharge.Mean", "computationPeriodIdentifier": "Daily", "utcOffset": -5}
  ],
  "series": {
    "q": {
      "points": [
        {"time": "2024-03-13T23:00:00-05:00", "value": "1.0"},
        {"time": "2024-03-14T08:00:00-05:00", "value": "2.5"},
        {"time": "2024-03-16T08:00:00-05:00", "value": "3.0"}
      ],
      "qualifiers": [
        {"identifier": "ICE", "startTime": "2024-03-14T00:00:00-05:00", "endTime": "2024-03-14T12:00:00-05:00"},
        {"identifier": "OLD", "startTime": "2023-01-01T00:00:00Z", "endTime": "2023-02-01T00:00:00Z"}
      ]
    },
    "dv": {"points": [{"time": "2024-03-14", "value": "2.1"}]}
  },
  "locations": [{"identifier": "01014000", "name": "ST. JOHN RIVER BELOW FISH RIVER"}],
  "qualifierMetadata": [{"identifier": "ICE", "code": "i", "displayName": "Ice"}]
}`

func loadFixture(t *testing.T) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))
	f, err := LoadFile(path)
	require.NoError(t, err)
	return f
}

func TestFileSource(t *testing.T) {
	f := loadFixture(t)
	ctx := context.Background()
	est := extremes.FixedOffset(-5)
	start, end := extremes.Instantaneous(est).Bounds(time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	interval := Interval{Start: start, End: end}

	descs, err := f.Descriptions(ctx, []string{"q", "missing"})
	require.NoError(t, err)
	require.Len(t, descs, 1)

	data, err := f.Points(ctx, "q", interval, descs[0].Resolution())
	require.NoError(t, err)
	require.Len(t, data.Points, 1)
	assert.Equal(t, "2.5", data.Points[0].Value.String())
	require.Len(t, data.Qualifiers, 1)
	assert.Equal(t, "ICE", data.Qualifiers[0].Identifier)

	dv, err := f.Points(ctx, "dv", interval, extremes.Daily(est))
	require.NoError(t, err)
	require.Len(t, dv.Points, 1)
	assert.Equal(t, "2024-03-14", dv.Points[0].Date())

	none, err := f.Points(ctx, "unknown", interval, extremes.Daily(est))
	require.NoError(t, err)
	assert.Empty(t, none.Points)

	loc, err := f.Location(ctx, "01014000")
	require.NoError(t, err)
	assert.Equal(t, "ST. JOHN RIVER BELOW FISH RIVER", loc.Name)

	_, err = f.Location(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	meta, err := f.QualifierMetadata(ctx, []string{"ICE", "EST"})
	require.NoError(t, err)
	assert.Len(t, meta, 1)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)
}
