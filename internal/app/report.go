package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"hydro-extremes/internal/extremes"
	"hydro-extremes/internal/report"
)

// Report builds one extremes report and writes it as JSON or a table.
func (a *App) Report(ctx context.Context, opts ReportOptions) error {
	src, closeSource, err := a.openSource(ctx)
	if err != nil {
		return err
	}
	defer closeSource()

	user := a.Config.ResolveUser(opts.User)
	r, err := a.newBuilder(src, nil).Build(ctx, opts.Params, user)
	if err != nil {
		return err
	}

	out := a.Stdout
	if opts.OutPath != "" {
		if err := ensureDir(opts.OutPath); err != nil {
			return err
		}
		file, err := os.Create(opts.OutPath)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	format := opts.Format
	if format == "" {
		format = a.Config.Report.Format
	}
	return writeReport(out, r, format)
}

func writeReport(w io.Writer, r *report.Report, format string) error {
	switch strings.ToLower(format) {
	case "table":
		return writeReportTable(w, r)
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func writeReportTable(w io.Writer, r *report.Report) error {
	meta := r.Metadata
	fmt.Fprintf(w, "%s: %s (%s)\n", meta.Title, meta.StationName, meta.StationID)
	fmt.Fprintf(w, "Period: %s to %s, timezone %s\n",
		meta.RequestParameters.StartDate.Format("2006-01-02"),
		meta.RequestParameters.EndDate.Format("2006-01-02"),
		meta.Timezone)
	if meta.RequestingUser != "" {
		fmt.Fprintf(w, "Requested by: %s\n", meta.RequestingUser)
	}
	fmt.Fprintf(w, "Generated: %s\n\n", meta.GeneratedAt.UTC().Format(time.RFC3339))

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Section\tSeries\tExtreme\tTime\tValue\tRelated")

	for _, s := range r.Sections() {
		if s.Data.Extremes.Empty() {
			continue
		}
		for _, cmp := range extremes.Comparators {
			for _, p := range s.Data.Extremes.Points(cmp) {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
					s.Name,
					sanitizeInline(s.Label),
					cmp,
					pointTime(p),
					p.Value.String(),
					relatedValues(s.Data, cmp, p),
				)
			}
		}
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	qualifiers := make([]extremes.Qualifier, 0)
	for _, s := range r.Sections() {
		qualifiers = append(qualifiers, s.Data.Qualifiers...)
	}
	if len(qualifiers) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	writer = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Qualifier\tDescription\tStart\tEnd")
	for _, q := range qualifiers {
		display := ""
		if md, ok := meta.QualifierMetadata[q.Identifier]; ok {
			display = md.DisplayName
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			q.Identifier,
			sanitizeInline(display),
			q.StartTime.Format(time.RFC3339),
			q.EndTime.Format(time.RFC3339),
		)
	}
	return writer.Flush()
}

// relatedValues lists the related series values recorded at the same time as p.
func relatedValues(c report.CrossReferenced, cmp extremes.Comparator, p extremes.Point) string {
	parts := make([]string, 0)
	for _, key := range []extremes.RelatedKey{extremes.RelatedPrimary, extremes.RelatedUpchain} {
		for _, rp := range c.RelatedPoints(key, cmp) {
			if sameInstantOrDate(p, rp) {
				parts = append(parts, fmt.Sprintf("%s=%s", key, rp.Value.String()))
			}
		}
	}
	return strings.Join(parts, " ")
}

func sameInstantOrDate(a, b extremes.Point) bool {
	if a.Daily || b.Daily {
		return a.Date() == b.Date()
	}
	return a.Time.Equal(b.Time)
}

func pointTime(p extremes.Point) string {
	if p.Daily {
		return p.Date()
	}
	return p.Time.Format(time.RFC3339)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
