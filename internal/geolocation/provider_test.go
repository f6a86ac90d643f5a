// internal/geolocation/provider_test.go
package geolocation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dishscout/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcSource struct {
	calls  atomic.Int64
	locate func(ctx context.Context, highAccuracy bool) (Coordinates, error)
}

func (s *funcSource) Locate(ctx context.Context, highAccuracy bool) (Coordinates, error) {
	s.calls.Add(1)
	return s.locate(ctx, highAccuracy)
}

// ==========================
// ACQUISITION OUTCOME TESTS
// ==========================

func TestAcquireProducesFix(t *testing.T) {
	source := &funcSource{locate: func(ctx context.Context, highAccuracy bool) (Coordinates, error) {
		assert.True(t, highAccuracy)
		return Coordinates{Latitude: 52.52, Longitude: 13.405}, nil
	}}
	p := NewProvider(source, time.Second, true, logger.NewTestLogger(t))

	p.Acquire(context.Background())

	coords, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, 52.52, coords.Latitude)
	assert.Equal(t, 13.405, coords.Longitude)

	_, failed := p.Unavailable()
	assert.False(t, failed)
}

func TestAcquireClassifiesTimeout(t *testing.T) {
	source := &funcSource{locate: func(ctx context.Context, highAccuracy bool) (Coordinates, error) {
		<-ctx.Done()
		return Coordinates{}, ctx.Err()
	}}
	p := NewProvider(source, 10*time.Millisecond, false, logger.NewTestLogger(t))

	p.Acquire(context.Background())

	_, ok := p.Current()
	assert.False(t, ok)
	reason, failed := p.Unavailable()
	require.True(t, failed)
	assert.Equal(t, ReasonTimeout, reason)
}

func TestAcquireClassifiesPermissionDenied(t *testing.T) {
	source := &funcSource{locate: func(ctx context.Context, highAccuracy bool) (Coordinates, error) {
		return Coordinates{}, &permissionError{status: http.StatusForbidden}
	}}
	p := NewProvider(source, time.Second, false, logger.NewTestLogger(t))

	p.Acquire(context.Background())

	reason, failed := p.Unavailable()
	require.True(t, failed)
	assert.Equal(t, ReasonPermissionDenied, reason)
}

func TestAcquireClassifiesPositionUnavailable(t *testing.T) {
	source := &funcSource{locate: func(ctx context.Context, highAccuracy bool) (Coordinates, error) {
		return Coordinates{}, assert.AnError
	}}
	p := NewProvider(source, time.Second, false, logger.NewTestLogger(t))

	p.Acquire(context.Background())

	reason, failed := p.Unavailable()
	require.True(t, failed)
	assert.Equal(t, ReasonPositionUnavailable, reason)
}

func TestNilSourceReportsUnsupported(t *testing.T) {
	p := NewProvider(nil, time.Second, false, logger.NewTestLogger(t))

	p.Acquire(context.Background())

	reason, failed := p.Unavailable()
	require.True(t, failed)
	assert.Equal(t, ReasonUnsupported, reason)
}

// ==========================
// ONE-SHOT SEMANTICS TESTS
// ==========================

func TestAcquireRunsExactlyOnce(t *testing.T) {
	source := &funcSource{locate: func(ctx context.Context, highAccuracy bool) (Coordinates, error) {
		return Coordinates{}, assert.AnError
	}}
	p := NewProvider(source, time.Second, false, logger.NewTestLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Acquire(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), source.calls.Load(), "a failed acquisition is never retried")
}

func TestCurrentBeforeAcquireIsEmpty(t *testing.T) {
	p := NewProvider(&funcSource{}, time.Second, false, logger.NewNoOpLogger())

	_, ok := p.Current()
	assert.False(t, ok)
	_, failed := p.Unavailable()
	assert.False(t, failed, "no failure reason exists while acquisition has not finished")
}

// ==========================
// HTTP SOURCE TESTS
// ==========================

func TestHTTPSourceLocate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "high", r.URL.Query().Get("accuracy"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"latitude": 48.137, "longitude": 11.575}`))
	}))
	t.Cleanup(server.Close)

	source := NewHTTPSource(server.URL, time.Second)
	coords, err := source.Locate(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, 48.137, coords.Latitude)
	assert.Equal(t, 11.575, coords.Longitude)
}

func TestHTTPSourceDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	source := NewHTTPSource(server.URL, time.Second)
	_, err := source.Locate(context.Background(), false)

	require.Error(t, err)
	var permErr *permissionError
	assert.ErrorAs(t, err, &permErr)
}
