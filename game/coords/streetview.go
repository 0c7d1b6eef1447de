package coords

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/wricardo/geocard/game/geo"
)

const DefaultMetadataURL = "https://maps.googleapis.com/maps/api/streetview/metadata"

var (
	// ErrNoImagery means the candidate had no panorama nearby.
	ErrNoImagery = errors.New("no street view imagery")
	// ErrAlreadyPlayed means the panorama found was used earlier in the session.
	ErrAlreadyPlayed = errors.New("panorama already played")
)

type metadataResponse struct {
	Status   string `json:"status"`
	PanoID   string `json:"pano_id"`
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	ErrorMessage string `json:"error_message"`
}

// StreetViewSource checks a single sampled candidate against the Street View
// metadata API. Wrap it in a ResilientSource to retry.
type StreetViewSource struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
	Sampler *Sampler
}

func NewStreetViewSource(apiKey string, sampler *Sampler) *StreetViewSource {
	if sampler == nil {
		sampler = NewSampler()
	}
	return &StreetViewSource{
		APIKey:  apiKey,
		BaseURL: DefaultMetadataURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
		Sampler: sampler,
	}
}

// NextCoordinate samples one candidate and returns the snapped panorama
// location. Missing or repeated imagery is reported as a retryable error;
// rejected credentials and malformed requests are permanent.
func (s *StreetViewSource) NextCoordinate(ctx context.Context, sessionID string, exclude map[string]bool) (geo.Location, error) {
	candidate := s.Sampler.Sample()

	meta, err := s.lookup(ctx, candidate)
	if err != nil {
		return geo.Location{}, err
	}

	switch meta.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return geo.Location{}, fmt.Errorf("%w near %s", ErrNoImagery, candidate)
	case "REQUEST_DENIED", "INVALID_REQUEST":
		return geo.Location{}, backoff.Permanent(fmt.Errorf("street view metadata: %s: %s", meta.Status, meta.ErrorMessage))
	default:
		return geo.Location{}, fmt.Errorf("street view metadata: unexpected status %s", meta.Status)
	}

	if meta.PanoID == "" {
		return geo.Location{}, fmt.Errorf("%w near %s", ErrNoImagery, candidate)
	}
	if exclude[meta.PanoID] {
		return geo.Location{}, fmt.Errorf("%w: %s", ErrAlreadyPlayed, meta.PanoID)
	}

	loc := geo.Location{
		Coordinate: geo.Coordinate{Lat: meta.Location.Lat, Lng: meta.Location.Lng},
		Locator:    meta.PanoID,
	}
	if err := loc.Validate(); err != nil {
		return geo.Location{}, fmt.Errorf("street view metadata: %w", err)
	}
	return loc, nil
}

func (s *StreetViewSource) lookup(ctx context.Context, c geo.Coordinate) (*metadataResponse, error) {
	q := url.Values{}
	q.Set("location", strconv.FormatFloat(c.Lat, 'f', 6, 64)+","+strconv.FormatFloat(c.Lng, 'f', 6, 64))
	q.Set("key", s.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build metadata request: %w", err))
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("metadata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("metadata request: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("metadata request: status %d", resp.StatusCode))
	}

	var meta metadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}
