// internal/geolocation/provider.go

// Package geolocation acquires the device position once per session. The
// result feeds the dish-search flow when the user opts into searching around
// the current location; absence of a fix never blocks submission.
package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"dishscout/internal/common/http"
	"dishscout/internal/common/logger"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Reason classifies why no fix could be produced.
type Reason string

const (
	ReasonPermissionDenied    Reason = "PERMISSION_DENIED"
	ReasonPositionUnavailable Reason = "POSITION_UNAVAILABLE"
	ReasonTimeout             Reason = "TIMEOUT"
	ReasonUnsupported         Reason = "UNSUPPORTED"
)

// Result is the tagged outcome of one acquisition: either Coordinates is
// non-nil, or Reason says why not.
type Result struct {
	Coordinates *Coordinates
	Reason      Reason
}

// Source produces one position fix. highAccuracy asks the source for its
// best available precision; implementations must not serve cached fixes.
type Source interface {
	Locate(ctx context.Context, highAccuracy bool) (Coordinates, error)
}

// HTTPSource resolves the position from a lookup endpoint returning
// {"latitude": ..., "longitude": ...}.
type HTTPSource struct {
	url        string
	httpClient *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url:        url,
		httpClient: http.NewClient(timeout),
	}
}

func (s *HTTPSource) Locate(ctx context.Context, highAccuracy bool) (Coordinates, error) {
	url := s.url
	if highAccuracy {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "accuracy=high"
	}

	req, err := http.NewJSONRequest(ctx, nethttp.MethodGet, url, nil)
	if err != nil {
		return Coordinates{}, err
	}
	// A stale fix is worse than none.
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == nethttp.StatusUnauthorized || resp.StatusCode == nethttp.StatusForbidden {
		return Coordinates{}, &permissionError{status: resp.StatusCode}
	}
	if resp.StatusCode != nethttp.StatusOK {
		return Coordinates{}, fmt.Errorf("position lookup returned %d", resp.StatusCode)
	}

	var coords Coordinates
	if err := json.NewDecoder(resp.Body).Decode(&coords); err != nil {
		return Coordinates{}, fmt.Errorf("failed to decode position: %w", err)
	}
	return coords, nil
}

type permissionError struct {
	status int
}

func (e *permissionError) Error() string {
	return fmt.Sprintf("position lookup denied with status %d", e.status)
}

// Provider performs exactly one acquisition per session with a bounded wait
// and holds the outcome for the session lifetime. It is never retried.
type Provider struct {
	source       Source
	timeout      time.Duration
	highAccuracy bool
	logger       logger.Logger

	once sync.Once
	mu   sync.RWMutex
	res  *Result
}

func NewProvider(source Source, timeout time.Duration, highAccuracy bool, log logger.Logger) *Provider {
	return &Provider{
		source:       source,
		timeout:      timeout,
		highAccuracy: highAccuracy,
		logger:       log.WithFields(map[string]interface{}{"component": "geolocation"}),
	}
}

// Acquire runs the one-shot acquisition. Subsequent calls are no-ops; the
// first outcome stands for the whole session.
func (p *Provider) Acquire(ctx context.Context) {
	p.once.Do(func() {
		res := p.acquire(ctx)
		p.mu.Lock()
		p.res = &res
		p.mu.Unlock()
	})
}

func (p *Provider) acquire(ctx context.Context) Result {
	if p.source == nil {
		p.logger.Warn("no position source configured", nil)
		return Result{Reason: ReasonUnsupported}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	coords, err := p.source.Locate(ctx, p.highAccuracy)
	if err != nil {
		reason := classify(ctx, err)
		p.logger.WithError(err).Warn("position acquisition failed", map[string]interface{}{
			"reason": string(reason),
		})
		return Result{Reason: reason}
	}

	p.logger.Info("position acquired", map[string]interface{}{
		"latitude":  coords.Latitude,
		"longitude": coords.Longitude,
	})
	return Result{Coordinates: &coords}
}

func classify(ctx context.Context, err error) Reason {
	if ctx.Err() == context.DeadlineExceeded {
		return ReasonTimeout
	}
	if _, ok := err.(*permissionError); ok {
		return ReasonPermissionDenied
	}
	return ReasonPositionUnavailable
}

// Current returns the acquired coordinates, if any. It never blocks: callers
// read whatever is available at submission time.
func (p *Provider) Current() (Coordinates, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.res == nil || p.res.Coordinates == nil {
		return Coordinates{}, false
	}
	return *p.res.Coordinates, true
}

// Unavailable returns the failure reason when acquisition finished without a
// fix. The second return is false while acquisition has not finished or when
// a fix exists.
func (p *Provider) Unavailable() (Reason, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.res == nil || p.res.Coordinates != nil {
		return "", false
	}
	return p.res.Reason, true
}
