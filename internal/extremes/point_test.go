package extremes

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointJSON(t *testing.T) {
	est := FixedOffset(-5)

	t.Run("instantaneous keeps offset", func(t *testing.T) {
		p := Instantaneous(est).Point(time.Date(2024, 3, 14, 17, 15, 0, 0, time.UTC), decimal.RequireFromString("12.30"))

		data, err := json.Marshal(p)

		require.NoError(t, err)
		assert.JSONEq(t, `{"time":"2024-03-14T12:15:00-05:00","value":"12.3"}`, string(data))
	})

	t.Run("daily renders date in series offset", func(t *testing.T) {
		p := Daily(est).Point(time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC), decimal.RequireFromString("4"))

		data, err := json.Marshal(p)

		require.NoError(t, err)
		assert.JSONEq(t, `{"time":"2024-03-14","value":"4"}`, string(data))
	})

	t.Run("decode date and timestamp", func(t *testing.T) {
		var points []Point
		err := json.Unmarshal([]byte(`[{"time":"2024-03-14","value":"1.5"},{"time":"2024-03-14T12:15:00-05:00","value":2}]`), &points)

		require.NoError(t, err)
		require.Len(t, points, 2)
		assert.True(t, points[0].Daily)
		assert.Equal(t, "2024-03-14", points[0].Date())
		assert.False(t, points[1].Daily)
		assert.True(t, points[1].Value.Equal(decimal.NewFromInt(2)))
	})

	t.Run("decode rejects bad time", func(t *testing.T) {
		var p Point
		assert.Error(t, json.Unmarshal([]byte(`{"time":"yesterday","value":"1"}`), &p))
	})
}

func TestRelatedKeyJSON(t *testing.T) {
	data, err := json.Marshal(map[RelatedKey]int{RelatedPrimary: 1, RelatedUpchain: 2})

	require.NoError(t, err)
	assert.JSONEq(t, `{"relatedPrimary":1,"relatedUpchain":2}`, string(data))

	_, err = json.Marshal(map[RelatedKey]int{RelatedKey(9): 1})
	assert.Error(t, err)
}

func TestFixedOffset(t *testing.T) {
	assert.Equal(t, time.UTC, FixedOffset(0))

	loc := FixedOffset(-5)
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, -5*3600, offset)
	assert.Equal(t, "UTC-05:00", loc.String())

	assert.Equal(t, "UTC+05:30", FixedOffset(5.5).String())
}

func TestResolution(t *testing.T) {
	r := Instantaneous(nil)
	assert.False(t, r.IsDaily())
	assert.Equal(t, time.UTC, r.Location())

	d := Instantaneous(FixedOffset(-6)).AsDaily()
	assert.True(t, d.IsDaily())
	assert.Equal(t, "daily@UTC-06:00", d.String())
}

func TestResolutionNormalize(t *testing.T) {
	est := FixedOffset(-5)
	daily := Daily(est)

	dateOnly := Point{Time: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), Value: decimal.NewFromInt(1), Daily: true}
	got := daily.Normalize(dateOnly)
	assert.Equal(t, "2024-03-14", got.Date())
	assert.Equal(t, est, got.Time.Location())

	instant := NewPoint(time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC), decimal.NewFromInt(2))
	got = daily.Normalize(instant)
	assert.True(t, got.Daily)
	assert.Equal(t, "2024-03-14", got.Date())

	got = Instantaneous(est).Normalize(instant)
	assert.False(t, got.Daily)
	assert.True(t, got.Time.Equal(instant.Time))
}

func TestResolutionBounds(t *testing.T) {
	est := FixedOffset(-5)
	start, end := Instantaneous(est).Bounds(
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	)

	assert.Equal(t, time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC), start.UTC())
	assert.Equal(t, time.Date(2024, 4, 1, 4, 59, 59, 999999999, time.UTC), end.UTC())
}
