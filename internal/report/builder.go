package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"hydro-extremes/internal/extremes"
	"hydro-extremes/internal/observability"
	"hydro-extremes/internal/source"
)

// ErrPrimaryNotFound is returned by Retrieve when the primary series has no
// description upstream. It is a retrieval precondition: metadata cannot be
// built without that description. A described primary with no points still
// yields a report with empty extremes.
var ErrPrimaryNotFound = errors.New("primary time series not found")

// Options tune a Builder. Zero values are usable.
type Options struct {
	Clock   clockwork.Clock
	Metrics *observability.Metrics
}

// Builder assembles extremes reports from a source of series data.
type Builder struct {
	src     source.Source
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewBuilder constructs a report builder.
func NewBuilder(src source.Source, opts Options, logger zerolog.Logger) *Builder {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Builder{
		src:     src,
		clock:   clock,
		metrics: opts.Metrics,
		logger:  logger.With().Str("component", "report").Logger(),
	}
}

// Build retrieves, assembles and enriches one report.
func (b *Builder) Build(ctx context.Context, params RequestParameters, requestingUser string) (*Report, error) {
	started := b.clock.Now()

	inputs, err := b.Retrieve(ctx, params)
	if err != nil {
		b.recordFailure()
		return nil, err
	}

	report := b.Assemble(inputs, requestingUser)

	if err := b.Enrich(ctx, report); err != nil {
		b.recordFailure()
		return nil, err
	}

	elapsed := b.clock.Since(started)
	if b.metrics != nil {
		b.metrics.ReportsBuilt.Inc()
		b.metrics.BuildDuration.Observe(elapsed.Seconds())
	}
	b.logger.Info().
		Str("primary", params.PrimaryTimeseriesIdentifier).
		Str("user", requestingUser).
		Dur("elapsed", elapsed).
		Msg("report built")
	return report, nil
}

// Retrieve resolves descriptions and fetches every resolvable series. The
// three series are fetched concurrently; the first failure aborts the rest.
func (b *Builder) Retrieve(ctx context.Context, params RequestParameters) (*Inputs, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	descs, err := b.src.Descriptions(ctx, params.SeriesIdentifiers())
	if err != nil {
		return nil, fmt.Errorf("lookup time series descriptions: %w", err)
	}
	byID := make(map[string]source.Description, len(descs))
	for _, d := range descs {
		byID[d.UniqueID] = d
	}

	primaryDesc, ok := byID[params.PrimaryTimeseriesIdentifier]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrimaryNotFound, params.PrimaryTimeseriesIdentifier)
	}

	inputs := &Inputs{
		Params:  params,
		Primary: SeriesInput{Description: primaryDesc, Resolution: primaryDesc.Resolution()},
	}
	if desc, ok := b.resolve(byID, params.UpchainTimeseriesIdentifier, "upchain"); ok {
		inputs.Upchain = &SeriesInput{Description: desc, Resolution: desc.Resolution()}
	}
	if desc, ok := b.resolve(byID, params.DerivedTimeseriesIdentifier, "derived"); ok {
		inputs.Derived = &SeriesInput{Description: desc, Resolution: desc.Resolution().AsDaily()}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, in := range []*SeriesInput{&inputs.Primary, inputs.Upchain, inputs.Derived} {
		if in == nil {
			continue
		}
		in := in
		g.Go(func() error {
			return b.fetch(gctx, params, in)
		})
	}
	g.Go(func() error {
		loc, err := b.src.Location(gctx, primaryDesc.LocationIdentifier)
		if errors.Is(err, source.ErrNotFound) {
			b.logger.Warn().Str("location", primaryDesc.LocationIdentifier).Msg("station not found; name left blank")
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup location %s: %w", primaryDesc.LocationIdentifier, err)
		}
		inputs.Location = loc
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

func (b *Builder) resolve(byID map[string]source.Description, id, role string) (source.Description, bool) {
	if id == "" {
		return source.Description{}, false
	}
	desc, ok := byID[id]
	if !ok {
		b.logger.Warn().Str("series", id).Str("role", role).Msg("series description not found; section skipped")
	}
	return desc, ok
}

func (b *Builder) fetch(ctx context.Context, params RequestParameters, in *SeriesInput) error {
	data, err := b.src.Points(ctx, in.Description.UniqueID, params.Interval(in.Resolution), in.Resolution)
	if err != nil {
		return fmt.Errorf("retrieve points for %s: %w", in.Description.UniqueID, err)
	}
	in.Data = data
	return nil
}

// Assemble runs the series stages over retrieved inputs. It performs no I/O.
func (b *Builder) Assemble(in *Inputs, requestingUser string) *Report {
	primary := primaryStage(in.Primary)
	upchain := upchainStage(in.Upchain)
	derived := derivedStage(in.Derived)

	if in.Upchain != nil {
		relatedUpchain, relatedPrimary := crossReference(primary, upchain, in.Primary, *in.Upchain)
		primary.relate(extremes.RelatedUpchain, relatedUpchain)
		upchain.relate(extremes.RelatedPrimary, relatedPrimary)
	}

	report := &Report{
		Primary:  primary,
		Upchain:  upchain,
		Derived:  derived,
		Metadata: buildMetadata(in, requestingUser, b.clock.Now()),
	}

	for _, s := range report.Sections() {
		b.observe(s, in)
	}
	return report
}

// Enrich attaches qualifier metadata for every qualifier kept in the report.
func (b *Builder) Enrich(ctx context.Context, report *Report) error {
	ids := qualifierIdentifiers(report.Primary, report.Upchain, report.Derived)
	if len(ids) == 0 {
		return nil
	}
	lookup, err := b.src.QualifierMetadata(ctx, ids)
	if err != nil {
		return fmt.Errorf("lookup qualifier metadata: %w", err)
	}
	report.Metadata = withQualifierMetadata(report.Metadata, lookup)
	return nil
}

func (b *Builder) observe(s Section, in *Inputs) {
	var analyzed int
	switch s.Name {
	case "primary":
		analyzed = len(in.Primary.Data.Points)
	case "upchain":
		if in.Upchain != nil {
			analyzed = len(in.Upchain.Data.Points)
		}
	case "dv":
		if in.Derived != nil {
			analyzed = len(in.Derived.Data.Points)
		}
	}

	b.logger.Debug().
		Str("section", s.Name).
		Int("points", analyzed).
		Int("minima", len(s.Data.Extremes.Minima)).
		Int("maxima", len(s.Data.Extremes.Maxima)).
		Int("qualifiers", len(s.Data.Qualifiers)).
		Int("related", len(s.Data.Related)).
		Msg("section assembled")

	if b.metrics == nil {
		return
	}
	b.metrics.PointsAnalyzed.WithLabelValues(s.Name).Add(float64(analyzed))
	for _, cmp := range extremes.Comparators {
		b.metrics.ExtremePoints.WithLabelValues(s.Name, cmp.String()).Add(float64(len(s.Data.Extremes.Points(cmp))))
	}
}

func (b *Builder) recordFailure() {
	if b.metrics != nil {
		b.metrics.ReportFailures.Inc()
	}
}

