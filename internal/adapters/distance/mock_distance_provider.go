package distance

import (
	"context"
	"fmt"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/ports"
	"strings"
	"sync"
)

type MockRoute struct {
	Points []domain.Coordinates
	Meters float64
}

// MockDistanceProvider answers from a fixed table keyed by the ordered point list.
type MockDistanceProvider struct {
	mu    sync.Mutex
	m     map[string]float64
	calls int

	// Err, when set, is returned by every call.
	Err error
}

var _ ports.DistanceProvider = (*MockDistanceProvider)(nil)

func NewMockDistanceProvider(routes []MockRoute) *MockDistanceProvider {
	m := make(map[string]float64, len(routes))
	for _, r := range routes {
		m[mockKey(r.Points)] = r.Meters
	}
	return &MockDistanceProvider{m: m}
}

func (p *MockDistanceProvider) RouteDistance(ctx context.Context, points []domain.Coordinates) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.Err != nil {
		return 0, p.Err
	}

	meters, ok := p.m[mockKey(points)]
	if !ok {
		return 0, fmt.Errorf("missing route %s", mockKey(points))
	}
	return meters, nil
}

// Calls returns how many times RouteDistance was invoked.
func (p *MockDistanceProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func mockKey(points []domain.Coordinates) string {
	parts := make([]string, len(points))
	for i, pt := range points {
		parts[i] = pt.String()
	}
	return strings.Join(parts, ";")
}
