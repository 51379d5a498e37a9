package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydro-extremes/internal/alerting"
	"hydro-extremes/internal/config"
	"hydro-extremes/internal/extremes"
	"hydro-extremes/internal/report"
)

const fixture = `{
  "descriptions": [
    {"uniqueId": "p1", "identifier": "Stage.Working", "parameter": "Stage", "unit": "ft", "locationIdentifier": "LOC1", "utcOffset": -6},
    {"uniqueId": "u1", "identifier": "Stage.Upstream", "parameter": "Stage", "unit": "ft", "locationIdentifier": "LOC0", "utcOffset": -6}
  ],
  "series": {
    "p1": {
      "points": [
        {"time": "2024-05-01T00:00:00-06:00", "value": "4.10"},
        {"time": "2024-05-01T06:00:00-06:00", "value": "5.75"},
        {"time": "2024-05-01T12:00:00-06:00", "value": "3.20"},
        {"time": "2024-05-01T18:00:00-06:00", "value": "4.90"}
      ],
      "qualifiers": [
        {"identifier": "EST", "startTime": "2024-05-01T05:00:00-06:00", "endTime": "2024-05-01T07:00:00-06:00"}
      ]
    },
    "u1": {
      "points": [
        {"time": "2024-05-01T06:00:00-06:00", "value": "7.5"},
        {"time": "2024-05-01T12:00:00-06:00", "value": "6.0"}
      ]
    }
  },
  "locations": [{"identifier": "LOC1", "name": "Mill Creek"}],
  "qualifierMetadata": [{"identifier": "EST", "code": "E", "displayName": "Estimated"}]
}`

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "series.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))

	cfg := &config.Config{
		Source:   config.SourceConfig{Kind: config.SourceFile, Path: path},
		Report:   config.ReportConfig{User: "analyst", Format: "json"},
		Export:   config.ExportConfig{MaxDataPoints: 100},
		Alerting: config.AlertingConfig{Channels: []string{"log"}},
	}
	out := &bytes.Buffer{}
	a := NewApp(cfg, zerolog.Nop())
	a.Stdout = out
	return a, out
}

func testParams() report.RequestParameters {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return report.RequestParameters{
		PrimaryTimeseriesIdentifier: "p1",
		UpchainTimeseriesIdentifier: "u1",
		StartDate:                   day,
		EndDate:                     day,
	}
}

func TestReportJSON(t *testing.T) {
	a, out := newTestApp(t)
	require.NoError(t, a.Report(context.Background(), ReportOptions{Params: testParams()}))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	meta := doc["reportMetadata"].(map[string]any)
	assert.Equal(t, "analyst", meta["requestingUser"])
	assert.Equal(t, "Mill Creek", meta["stationName"])
	assert.Equal(t, "Etc/GMT+6", meta["timezone"])

	primaryMax := doc["primary"].(map[string]any)["max"].(map[string]any)
	points := primaryMax["points"].([]any)
	require.Len(t, points, 1)
	assert.Equal(t, "2024-05-01T06:00:00-06:00", points[0].(map[string]any)["time"])
	assert.Contains(t, primaryMax, "relatedUpchain")
}

func TestReportTableToFile(t *testing.T) {
	a, out := newTestApp(t)
	path := filepath.Join(t.TempDir(), "nested", "report.txt")

	require.NoError(t, a.Report(context.Background(), ReportOptions{
		Params:  testParams(),
		User:    "override",
		Format:  "table",
		OutPath: path,
	}))
	assert.Zero(t, out.Len())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "Extremes: Mill Creek (LOC1)")
	assert.Contains(t, text, "Requested by: override")
	assert.Contains(t, text, "2024-05-01T06:00:00-06:00")
	assert.Contains(t, text, "relatedUpchain=7.5")
	assert.Contains(t, text, "Estimated")
}

func TestReportUnknownPrimary(t *testing.T) {
	a, _ := newTestApp(t)
	params := testParams()
	params.PrimaryTimeseriesIdentifier = "missing"
	err := a.Report(context.Background(), ReportOptions{Params: params})
	assert.ErrorIs(t, err, report.ErrPrimaryNotFound)
}

func TestExportCSVAndPNG(t *testing.T) {
	a, _ := newTestApp(t)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "extremes.csv")
	pngPath := filepath.Join(dir, "out", "series.png")

	require.NoError(t, a.Export(context.Background(), ExportOptions{
		Params:  testParams(),
		CSVPath: csvPath,
		PNGPath: pngPath,
	}))

	file, err := os.Open(csvPath)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	require.NotEmpty(t, records)
	assert.Equal(t, csvHeader, records[0])
	assert.Contains(t, records, []string{"primary", "Stage.Working", "min", "points", "2024-05-01T12:00:00-06:00", "3.2"})
	assert.Contains(t, records, []string{"primary", "Stage.Working", "max", "relatedUpchain", "2024-05-01T06:00:00-06:00", "7.5"})
	assert.Contains(t, records, []string{"upchain", "Stage.Upstream", "max", "relatedPrimary", "2024-05-01T06:00:00-06:00", "5.75"})

	info, err := os.Stat(pngPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestExportRequiresOutput(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, a.Export(context.Background(), ExportOptions{Params: testParams()}))
}

type failingCloser struct{ err error }

func (c failingCloser) Close() error { return c.err }

func TestCloseFile(t *testing.T) {
	diskFull := errors.New("disk full")

	t.Run("close error is reported after a clean write", func(t *testing.T) {
		var err error
		closeFile(failingCloser{err: diskFull}, &err)
		assert.ErrorIs(t, err, diskFull)
	})

	t.Run("write error wins over close error", func(t *testing.T) {
		renderErr := errors.New("render failed")
		err := renderErr
		closeFile(failingCloser{err: diskFull}, &err)
		assert.Equal(t, renderErr, err)
	})

	t.Run("clean close leaves nil", func(t *testing.T) {
		var err error
		closeFile(failingCloser{}, &err)
		assert.NoError(t, err)
	})
}

func TestDownsamplePoints(t *testing.T) {
	points := make([]extremes.Point, 10)
	for i := range points {
		points[i] = extremes.NewPoint(time.Unix(int64(i), 0), decimal.NewFromInt(int64(i)))
	}

	assert.Len(t, downsamplePoints(points, 0), 10)
	assert.Len(t, downsamplePoints(points, 20), 10)
	assert.Len(t, downsamplePoints(points, 1), 1)

	got := downsamplePoints(points, 4)
	require.Len(t, got, 4)
	assert.True(t, got[0].Value.Equal(decimal.NewFromInt(0)))
	assert.True(t, got[3].Value.Equal(decimal.NewFromInt(9)))
}

func TestOpenSourceValidation(t *testing.T) {
	a, _ := newTestApp(t)

	a.Config.Source.Kind = config.SourcePlatform
	_, _, err := a.openSource(context.Background())
	assert.ErrorContains(t, err, "platform.base_url")

	a.Config.Source.Kind = config.SourcePostgres
	_, _, err = a.openSource(context.Background())
	assert.ErrorContains(t, err, "database.dsn")
}

func TestNewNotifier(t *testing.T) {
	a, _ := newTestApp(t)
	n := a.newNotifier()
	require.NotNil(t, n)
	assert.Len(t, n.(alerting.Multi), 1)

	a.Config.Alerting.Channels = []string{"telegram"}
	assert.Nil(t, a.newNotifier())
}

func TestMetricsServer(t *testing.T) {
	a, _ := newTestApp(t)
	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(a.metricsServer(":0", reg).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
