package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/platform/obs"
	"logistics-route-service/internal/ports"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GraphHopperProvider implements DistanceProvider against a GraphHopper-style
// routing endpoint (GET /route with repeated point parameters).
//
// The provider is safe for concurrent use.
type GraphHopperProvider struct {
	session     *http.Client
	baseURL     string
	apiKey      string
	profile     string
	maxAttempts int
	backoff     time.Duration
	// callTimeout bounds a whole RouteDistance call, retries included.
	callTimeout time.Duration
}

var _ ports.DistanceProvider = (*GraphHopperProvider)(nil)

type GraphHopperConfig struct {
	BaseURL string
	APIKey  string
	Profile string
	Timeout time.Duration
}

func NewGraphHopperProvider(cfg GraphHopperConfig) (*GraphHopperProvider, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("routing base url is empty")
	}
	if cfg.Profile == "" {
		cfg.Profile = "truck"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &GraphHopperProvider{
		session:     &http.Client{Timeout: cfg.Timeout},
		baseURL:     base,
		apiKey:      cfg.APIKey,
		profile:     cfg.Profile,
		maxAttempts: 3,
		backoff:     200 * time.Millisecond,
		callTimeout: cfg.Timeout,
	}, nil
}

// Profile returns the routing profile requests are made with.
func (g *GraphHopperProvider) Profile() string {
	return g.profile
}

type routeResponse struct {
	Paths []struct {
		Distance *float64 `json:"distance"`
	} `json:"paths"`
}

// Measure the route through all points in order, in meters.
func (g *GraphHopperProvider) RouteDistance(
	ctx context.Context,
	points []domain.Coordinates,
) (_ float64, err error) {
	defer obs.Time(ctx, "routing.RouteDistance")(&err)

	if len(points) < 2 {
		return 0, fmt.Errorf("route distance: need at least 2 points, got %d", len(points))
	}

	q := url.Values{}
	for _, p := range points {
		q.Add("point", p.String())
	}
	q.Set("profile", g.profile)
	q.Set("points_encoded", "false")
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}
	endpoint := g.baseURL + "/route?" + q.Encode()

	if g.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.callTimeout)
		defer cancel()
	}

	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return 0, fmt.Errorf("route distance request: %w", err)
	}
	defer resp.Body.Close()

	var out routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("route distance: decode response: %w", err)
	}
	if len(out.Paths) == 0 || out.Paths[0].Distance == nil {
		return 0, errors.New("route distance: response has no path distance")
	}

	return *out.Paths[0].Distance, nil
}
