package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"hydro-extremes/internal/extremes"
	"hydro-extremes/internal/report"
)

// Export writes a report's extremes as CSV and/or charts the series as PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	src, closeSource, err := a.openSource(ctx)
	if err != nil {
		return err
	}
	defer closeSource()

	builder := a.newBuilder(src, nil)
	inputs, err := builder.Retrieve(ctx, opts.Params)
	if err != nil {
		return err
	}
	r := builder.Assemble(inputs, a.Config.ResolveUser(opts.User))
	if err := builder.Enrich(ctx, r); err != nil {
		return err
	}

	if opts.CSVPath != "" {
		if err := writeExtremesCSV(opts.CSVPath, r); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Msg("extremes csv written")
	}

	if opts.PNGPath != "" {
		primary := downsamplePoints(inputs.Primary.Data.Points, opts.MaxPoints)
		var upchain []extremes.Point
		if inputs.Upchain != nil {
			upchain = downsamplePoints(inputs.Upchain.Data.Points, opts.MaxPoints)
		}
		a.Logger.Info().
			Int("total", len(inputs.Primary.Data.Points)).
			Int("exported", len(primary)).
			Msg("charting series")
		if err := writeSeriesPNG(opts.PNGPath, r, primary, upchain); err != nil {
			return err
		}
	}

	return nil
}

// downsamplePoints keeps max evenly spaced points, always including both ends.
func downsamplePoints(points []extremes.Point, max int) []extremes.Point {
	if max <= 0 || len(points) <= max {
		return points
	}
	if max == 1 {
		return points[:1]
	}

	result := make([]extremes.Point, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

var csvHeader = []string{"section", "label", "comparator", "role", "time", "value"}

func writeExtremesCSV(path string, r *report.Report) (err error) {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeFile(file, &err)

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, s := range r.Sections() {
		for _, cmp := range extremes.Comparators {
			if err := writeRows(writer, s, cmp, "points", s.Data.Extremes.Points(cmp)); err != nil {
				return err
			}
			for _, key := range []extremes.RelatedKey{extremes.RelatedPrimary, extremes.RelatedUpchain} {
				if err := writeRows(writer, s, cmp, key.String(), s.Data.RelatedPoints(key, cmp)); err != nil {
					return err
				}
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeRows(writer *csv.Writer, s report.Section, cmp extremes.Comparator, role string, points []extremes.Point) error {
	for _, p := range points {
		record := []string{s.Name, s.Label, cmp.String(), role, pointTime(p), p.Value.String()}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeSeriesPNG(path string, r *report.Report, primary, upchain []extremes.Point) (err error) {
	if len(primary) < 2 {
		return fmt.Errorf("at least two primary points are needed to chart; got %d", len(primary))
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	meta := r.Metadata
	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  fmt.Sprintf("%s %s", meta.Title, meta.StationName),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           axisName(meta.PrimaryParameter, meta.PrimaryUnit),
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			timeSeries(labelOr(meta.PrimaryLabel, "primary"), primary, chart.YAxisPrimary),
		},
	}
	if len(upchain) >= 2 {
		graph.YAxisSecondary = chart.YAxis{
			Name:           axisName(meta.UpchainParameter, meta.UpchainUnit),
			ValueFormatter: valueFormatter,
		}
		graph.Series = append(graph.Series, timeSeries(labelOr(meta.UpchainLabel, "upchain"), upchain, chart.YAxisSecondary))
	}
	if annotations := extremesAnnotations(r.Primary.Extremes); len(annotations.Annotations) > 0 {
		graph.Series = append(graph.Series, annotations)
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeFile(file, &err)

	return graph.Render(chart.PNG, file)
}

// closeFile closes c and reports its error through errp unless an earlier
// error is already being returned.
func closeFile(c io.Closer, errp *error) {
	if cerr := c.Close(); cerr != nil && *errp == nil {
		*errp = fmt.Errorf("close output: %w", cerr)
	}
}

func timeSeries(name string, points []extremes.Point, axis chart.YAxisType) chart.TimeSeries {
	ts := chart.TimeSeries{
		Name:    name,
		XValues: make([]time.Time, len(points)),
		YValues: make([]float64, len(points)),
		YAxis:   axis,
	}
	for i, p := range points {
		ts.XValues[i] = p.Time
		ts.YValues[i] = p.Value.InexactFloat64()
	}
	return ts
}

func extremesAnnotations(ext extremes.SeriesExtremes) chart.AnnotationSeries {
	series := chart.AnnotationSeries{Name: "Extremes"}
	for _, cmp := range extremes.Comparators {
		for _, p := range ext.Points(cmp) {
			series.Annotations = append(series.Annotations, chart.Value2{
				XValue: chart.TimeToFloat64(p.Time),
				YValue: p.Value.InexactFloat64(),
				Label:  fmt.Sprintf("%s %s", cmp, p.Value.String()),
			})
		}
	}
	return series
}

func axisName(parameter, unit string) string {
	if unit == "" {
		return parameter
	}
	return fmt.Sprintf("%s (%s)", parameter, unit)
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
