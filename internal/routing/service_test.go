package routing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockProvider is a mock directions provider for testing.
type mockProvider struct {
	response  *Directions
	err       error
	callCount atomic.Int32
	delay     time.Duration
}

func (m *mockProvider) GetDirections(_ context.Context, _ DirectionsRequest) (*Directions, error) {
	m.callCount.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockProvider) Name() string {
	return "mock"
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sampleDirections() *Directions {
	return &Directions{
		Route: Route{
			Polyline:                 "_p~iF~ps|U_ulLnnqC",
			DistanceMeters:           24140,
			DurationSeconds:          1500,
			HasTraffic:               true,
			DurationInTrafficSeconds: 2130,
		},
		Provider: "mock",
	}
}

func downtownToSantaMonica() DirectionsRequest {
	return DirectionsRequest{
		Origin:      At(34.0522, -118.2437),
		Destination: Address("Santa Monica Pier, CA"),
	}
}

func TestService_GetDirections_CacheHit(t *testing.T) {
	provider := &mockProvider{response: sampleDirections()}
	service := NewService(ServiceConfig{Provider: provider})

	for i := 0; i < 3; i++ {
		resp, err := service.GetDirections(context.Background(), downtownToSantaMonica())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Route.DistanceMeters != 24140 {
			t.Errorf("expected distance 24140, got %d", resp.Route.DistanceMeters)
		}
	}

	if provider.callCount.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount.Load())
	}
}

func TestService_GetDirections_AddressNormalization(t *testing.T) {
	provider := &mockProvider{response: sampleDirections()}
	service := NewService(ServiceConfig{Provider: provider})

	reqs := []DirectionsRequest{
		{Origin: Address("Union Station, Los Angeles"), Destination: Address("LAX")},
		{Origin: Address("  union station,   los angeles "), Destination: Address("lax")},
	}
	for _, req := range reqs {
		if _, err := service.GetDirections(context.Background(), req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if provider.callCount.Load() != 1 {
		t.Errorf("expected equivalent addresses to share a cache entry, got %d calls", provider.callCount.Load())
	}
}

func TestService_GetDirections_CacheExpiry(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)}
	provider := &mockProvider{response: sampleDirections()}
	service := NewService(ServiceConfig{Provider: provider, Clock: clock.Now})

	if _, err := service.GetDirections(context.Background(), downtownToSantaMonica()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(6 * time.Minute)
	if _, err := service.GetDirections(context.Background(), downtownToSantaMonica()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.callCount.Load() != 2 {
		t.Errorf("expected refetch after TTL, got %d calls", provider.callCount.Load())
	}
}

func TestService_GetDirections_StaleIfError(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)}
	provider := &mockProvider{response: sampleDirections()}
	service := NewService(ServiceConfig{Provider: provider, Clock: clock.Now})

	if _, err := service.GetDirections(context.Background(), downtownToSantaMonica()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	provider.err = &Error{Provider: "mock", Code: "HTTP_503", Message: "down", Err: ErrProviderUnavailable}
	clock.Advance(10 * time.Minute)

	resp, err := service.GetDirections(context.Background(), downtownToSantaMonica())
	if err != nil {
		t.Fatalf("expected stale data, got error: %v", err)
	}
	if resp.Route.DistanceMeters != 24140 {
		t.Errorf("unexpected stale response: %+v", resp.Route)
	}

	clock.Advance(10 * time.Minute)
	_, err = service.GetDirections(context.Background(), downtownToSantaMonica())
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable once stale window passed, got %v", err)
	}
}

func TestService_GetDirections_NotConfigured(t *testing.T) {
	service := NewService(ServiceConfig{})

	_, err := service.GetDirections(context.Background(), downtownToSantaMonica())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if service.Configured() {
		t.Error("expected Configured() to be false")
	}
}

func TestService_GetDirections_InvalidLocations(t *testing.T) {
	provider := &mockProvider{response: sampleDirections()}
	service := NewService(ServiceConfig{Provider: provider})

	tests := []struct {
		name string
		req  DirectionsRequest
		code string
	}{
		{"missing origin", DirectionsRequest{Destination: Address("LAX")}, "INVALID_ORIGIN"},
		{"blank destination", DirectionsRequest{Origin: Address("LAX"), Destination: Address("   ")}, "INVALID_DESTINATION"},
		{"latitude out of range", DirectionsRequest{Origin: At(91, 0), Destination: Address("LAX")}, "INVALID_ORIGIN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.GetDirections(context.Background(), tt.req)
			var routingErr *Error
			if !errors.As(err, &routingErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if routingErr.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, routingErr.Code)
			}
			if !errors.Is(err, ErrInvalidLocation) {
				t.Errorf("expected ErrInvalidLocation in chain")
			}
		})
	}

	if provider.callCount.Load() != 0 {
		t.Errorf("provider should not be called for invalid input")
	}
}

func TestService_GetDirections_ConcurrentRequestsShareFetch(t *testing.T) {
	provider := &mockProvider{response: sampleDirections(), delay: 20 * time.Millisecond}
	service := NewService(ServiceConfig{Provider: provider})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.GetDirections(context.Background(), downtownToSantaMonica()); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if provider.callCount.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount.Load())
	}
}

func TestService_InvalidateCache(t *testing.T) {
	provider := &mockProvider{response: sampleDirections()}
	service := NewService(ServiceConfig{Provider: provider})

	_, _ = service.GetDirections(context.Background(), downtownToSantaMonica())
	if stats := service.CacheStats(); stats.TotalEntries != 1 || stats.FreshEntries != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	service.InvalidateCache()
	if stats := service.CacheStats(); stats.TotalEntries != 0 {
		t.Errorf("expected empty cache, got %+v", stats)
	}
}

func TestRoute_Derived(t *testing.T) {
	r := sampleDirections().Route

	if got := r.DurationMinutes(); got != 25 {
		t.Errorf("expected 25 minutes, got %v", got)
	}
	if delay, ok := r.TrafficDelayMinutes(); !ok || delay != 10.5 {
		t.Errorf("expected 10.5 minute delay, got %v (%v)", delay, ok)
	}
	if miles := r.DistanceMiles(); miles < 14.99 || miles > 15.01 {
		t.Errorf("expected ~15 miles, got %v", miles)
	}

	r.HasTraffic = false
	if _, ok := r.TrafficDelayMinutes(); ok {
		t.Error("expected no delay without traffic data")
	}
}

func TestLocation_String(t *testing.T) {
	if got := At(34.0522, -118.2437).String(); got != "34.0522,-118.2437" {
		t.Errorf("unexpected coordinate string %q", got)
	}
	if got := Address("  LAX ").String(); got != "LAX" {
		t.Errorf("unexpected address string %q", got)
	}
}
