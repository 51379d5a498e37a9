package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydro-extremes/internal/extremes"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestPlatform(t *testing.T, handler http.HandlerFunc) *Platform {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPlatform(PlatformOptions{
		BaseURL:   srv.URL + "/",
		Token:     "secret",
		Timeout:   time.Second,
		UserAgent: "extremes-test",
	}, noopLogger())
}

func TestPlatformMissingBaseURL(t *testing.T) {
	p := NewPlatform(PlatformOptions{}, noopLogger())
	_, err := p.Descriptions(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestPlatformDescriptions(t *testing.T) {
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, descriptionsPath, r.URL.Path)
		assert.Equal(t, "a,b", r.URL.Query().Get("uniqueIds"))
		assert.Equal(t, "secret", r.Header.Get(tokenHeader))
		assert.Equal(t, "extremes-test", r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"timeSeriesDescriptions": []map[string]any{
				{"uniqueId": "a", "identifier": "Discharge.ft^3/s@01014000", "computationPeriodIdentifier": "Daily", "utcOffset": -5},
			},
		})
	})

	descs, err := p.Descriptions(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "a", descs[0].UniqueID)
	assert.True(t, descs[0].Resolution().IsDaily())
}

func TestPlatformDescriptionsEmpty(t *testing.T) {
	p := NewPlatform(PlatformOptions{}, noopLogger())
	descs, err := p.Descriptions(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, descs)
}

func TestPlatformPoints(t *testing.T) {
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/timeseries/abc/points"))
		assert.NotEmpty(t, r.URL.Query().Get("queryFrom"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"points": [
				{"timestamp": "2024-03-14T10:00:00.0000000-05:00", "value": {"display": "12.30"}},
				{"timestamp": "2024-03-14T10:15:00.0000000-05:00", "value": {"display": ""}},
				{"timestamp": "2024-03-14T10:30:00.0000000-05:00", "value": {"display": "12.31"}}
			],
			"qualifiers": [
				{"identifier": "ICE", "startTime": "2024-03-14T00:00:00Z", "endTime": "2024-03-15T00:00:00Z", "dateApplied": "2024-03-16T00:00:00Z"}
			]
		}`))
	})

	res := extremes.Instantaneous(extremes.FixedOffset(-5))
	data, err := p.Points(context.Background(), "abc", Interval{Start: time.Now().Add(-time.Hour), End: time.Now()}, res)

	require.NoError(t, err)
	require.Len(t, data.Points, 2)
	assert.Equal(t, "12.3", data.Points[0].Value.String())
	assert.Equal(t, "12.31", data.Points[1].Value.String())
	require.Len(t, data.Qualifiers, 1)
	assert.Equal(t, "ICE", data.Qualifiers[0].Identifier)
}

func TestPlatformPointsBadValue(t *testing.T) {
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"points":[{"timestamp":"2024-03-14T10:00:00Z","value":{"display":"n/a"}}]}`))
	})

	_, err := p.Points(context.Background(), "abc", Interval{}, extremes.Instantaneous(nil))
	assert.Error(t, err)
}

func TestPlatformHTTPError(t *testing.T) {
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"responseStatus": map[string]string{"message": "boom"}})
	})

	_, err := p.Points(context.Background(), "abc", Interval{}, extremes.Instantaneous(nil))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestPlatformLocationNotFound(t *testing.T) {
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := p.Location(context.Background(), "01014000")

	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPlatformQualifierMetadata(t *testing.T) {
	p := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"qualifiers": []QualifierMetadata{
				{Identifier: "ICE", Code: "i", DisplayName: "Ice affected"},
				{Identifier: "EST", Code: "e", DisplayName: "Estimated"},
			},
		})
	})

	meta, err := p.QualifierMetadata(context.Background(), []string{"ICE"})

	require.NoError(t, err)
	assert.Equal(t, map[string]QualifierMetadata{"ICE": {Identifier: "ICE", Code: "i", DisplayName: "Ice affected"}}, meta)
}
