package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hydro-extremes/internal/extremes"
)

const (
	descriptionsPath = "/timeseries/descriptions"
	pointsPathFormat = "/timeseries/%s/points"
	locationPathFmt  = "/locations/%s"
	qualifiersPath   = "/qualifiers"
	tokenHeader      = "X-Api-Token"
)

// PlatformOptions parameterise the data platform client.
type PlatformOptions struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	UserAgent string
}

// Platform reads series data from the upstream time-series platform over HTTP.
type Platform struct {
	opts    PlatformOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewPlatform constructs a platform client.
func NewPlatform(opts PlatformOptions, logger zerolog.Logger) *Platform {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Platform{
		opts:    opts,
		logger:  logger.With().Str("component", "platform_source").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// Descriptions fetches the descriptions for the given unique ids.
func (p *Platform) Descriptions(ctx context.Context, uniqueIDs []string) ([]Description, error) {
	if len(uniqueIDs) == 0 {
		return []Description{}, nil
	}

	query := url.Values{}
	query.Set("uniqueIds", strings.Join(uniqueIDs, ","))

	var res struct {
		TimeSeriesDescriptions []Description `json:"timeSeriesDescriptions"`
	}
	if err := p.get(ctx, descriptionsPath, query, &res); err != nil {
		return nil, fmt.Errorf("fetch descriptions: %w", err)
	}
	return res.TimeSeriesDescriptions, nil
}

// Points fetches corrected points and qualifiers for one series.
func (p *Platform) Points(ctx context.Context, uniqueID string, interval Interval, res extremes.Resolution) (SeriesData, error) {
	query := url.Values{}
	query.Set("queryFrom", interval.Start.Format(time.RFC3339Nano))
	query.Set("queryTo", interval.End.Format(time.RFC3339Nano))

	var payload pointsResponse
	path := fmt.Sprintf(pointsPathFormat, url.PathEscape(uniqueID))
	if err := p.get(ctx, path, query, &payload); err != nil {
		return SeriesData{}, fmt.Errorf("fetch points for %s: %w", uniqueID, err)
	}

	data := SeriesData{
		Points:     make([]extremes.Point, 0, len(payload.Points)),
		Qualifiers: payload.Qualifiers,
	}
	gaps := 0
	for _, raw := range payload.Points {
		if raw.Value.Display == "" {
			gaps++
			continue
		}
		value, err := decimal.NewFromString(raw.Value.Display)
		if err != nil {
			return SeriesData{}, fmt.Errorf("parse value %q at %s: %w", raw.Value.Display, raw.Timestamp, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
		if err != nil {
			return SeriesData{}, fmt.Errorf("parse timestamp %q: %w", raw.Timestamp, err)
		}
		data.Points = append(data.Points, res.Point(ts, value))
	}
	if data.Qualifiers == nil {
		data.Qualifiers = []extremes.Qualifier{}
	}

	p.logger.Debug().Str("series", uniqueID).
		Int("points", len(data.Points)).
		Int("gaps", gaps).
		Int("qualifiers", len(data.Qualifiers)).
		Msg("points retrieved")
	return data, nil
}

// Location fetches station metadata.
func (p *Platform) Location(ctx context.Context, identifier string) (Location, error) {
	var loc Location
	if err := p.get(ctx, fmt.Sprintf(locationPathFmt, url.PathEscape(identifier)), nil, &loc); err != nil {
		return Location{}, fmt.Errorf("fetch location %s: %w", identifier, err)
	}
	return loc, nil
}

// QualifierMetadata fetches the qualifier catalogue and keeps the requested identifiers.
func (p *Platform) QualifierMetadata(ctx context.Context, identifiers []string) (map[string]QualifierMetadata, error) {
	result := make(map[string]QualifierMetadata, len(identifiers))
	if len(identifiers) == 0 {
		return result, nil
	}

	var res struct {
		Qualifiers []QualifierMetadata `json:"qualifiers"`
	}
	if err := p.get(ctx, qualifiersPath, nil, &res); err != nil {
		return nil, fmt.Errorf("fetch qualifier metadata: %w", err)
	}

	wanted := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		wanted[id] = struct{}{}
	}
	for _, q := range res.Qualifiers {
		if _, ok := wanted[q.Identifier]; ok {
			result[q.Identifier] = q
		}
	}
	return result, nil
}

func (p *Platform) get(ctx context.Context, path string, query url.Values, out any) error {
	if p.baseURL == "" {
		return errors.New("platform base url not configured")
	}

	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(p.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	if p.opts.Token != "" {
		req.Header.Set(tokenHeader, p.opts.Token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type pointsResponse struct {
	Points []struct {
		Timestamp string `json:"timestamp"`
		Value     struct {
			Display string `json:"display"`
		} `json:"value"`
	} `json:"points"`
	Qualifiers []extremes.Qualifier `json:"qualifiers"`
}

type errorResponse struct {
	ResponseStatus struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	} `json:"responseStatus"`
	Message string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.ResponseStatus.Message != "" {
			return fmt.Errorf("platform api error (%d): %s", status, apiErr.ResponseStatus.Message)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("platform api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.ResponseStatus.ErrorCode != "" {
			return fmt.Errorf("platform api error (%d): %s", status, apiErr.ResponseStatus.ErrorCode)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("platform api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("platform api error (%d)", status)
}

var _ Source = (*Platform)(nil)
