package places

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/threshold-urban/threshold/internal/geo"
	"github.com/threshold-urban/threshold/internal/httputil"
	"github.com/threshold-urban/threshold/internal/metrics"
	"github.com/threshold-urban/threshold/internal/scoring"
)

const (
	DefaultBaseURL      = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	defaultSearchRadius = 10000 // meters
	maxSearchRadius     = 50000 // Google's hard limit
)

// amenityTypes maps our amenity keys to Google Places types.
var amenityTypes = map[string]string{
	"hospital": "hospital",
	"school":   "school",
	"bus":      "bus_station",
	"railway":  "train_station",
	"mall":     "shopping_mall",
	"airport":  "airport",
}

// Place is one nearby-search result.
type Place struct {
	Name       string
	Lat        float64
	Lng        float64
	Rating     float64
	PlaceID    string
	DistanceKm float64
}

// Client queries Google Places for amenity distances. Without a valid API key
// it runs in fallback mode and every lookup returns the fixed defaults; a
// request never fails because Places is unavailable.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client

	mu    sync.Mutex
	cache map[string][]Place
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		client:  httputil.NewClient(),
		cache:   make(map[string][]Place),
	}
}

// NewClientWithBaseURL is used by tests to point at a stub server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	c.client = httputil.NewClientWithTimeout(10 * time.Second)
	return c
}

// Ready reports whether an API key is configured.
func (c *Client) Ready() bool {
	return c.apiKey != ""
}

// AmenityDistances returns straight-line distances in km from a location to
// the closest amenity of each type. The six-key map is always fully
// populated: keys with no result or a failed lookup get their fixed default.
func (c *Client) AmenityDistances(ctx context.Context, lat, lng float64) map[string]float64 {
	distances := make(map[string]float64, len(amenityTypes))
	for key, googleType := range amenityTypes {
		nearby, err := c.FindNearby(ctx, lat, lng, googleType, defaultSearchRadius)
		if err != nil {
			log.Printf("places: %s lookup failed for %.4f,%.4f: %v", key, lat, lng, err)
		}
		if len(nearby) == 0 {
			distances[key] = scoring.DefaultDistances[key]
			continue
		}
		closest := nearby[0].DistanceKm
		for _, p := range nearby[1:] {
			if p.DistanceKm < closest {
				closest = p.DistanceKm
			}
		}
		distances[key] = round2(closest)
	}
	return distances
}

// FindNearby runs one nearby-search for a place type, sorted by straight-line
// distance. Results are cached per rounded coordinate, type and radius so
// parcels in the same neighborhood reuse lookups.
func (c *Client) FindNearby(ctx context.Context, lat, lng float64, placeType string, radiusM int) ([]Place, error) {
	if !c.Ready() {
		return nil, nil
	}
	if radiusM > maxSearchRadius {
		radiusM = maxSearchRadius
	}

	cacheKey := fmt.Sprintf("%.4f,%.4f,%s,%d", lat, lng, placeType, radiusM)
	c.mu.Lock()
	if cached, ok := c.cache[cacheKey]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("radius", fmt.Sprintf("%d", radiusM))
	params.Set("type", placeType)
	params.Set("key", c.apiKey)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	metrics.ExternalAPILatency.WithLabelValues("google_places").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExternalAPICallsTotal.WithLabelValues("google_places", "error").Inc()
		return nil, fmt.Errorf("places request: %w", err)
	}
	defer resp.Body.Close()

	metrics.ExternalAPICallsTotal.WithLabelValues("google_places", resp.Status).Inc()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places request: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	status := gjson.GetBytes(body, "status").String()
	if status != "OK" && status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("places API status %s: %s", status, gjson.GetBytes(body, "error_message").String())
	}

	var places []Place
	results := gjson.GetBytes(body, "results").Array()
	for i, result := range results {
		if i >= 10 { // closest 10 are plenty for a minimum-distance lookup
			break
		}
		p := Place{
			Name:    result.Get("name").String(),
			Lat:     result.Get("geometry.location.lat").Float(),
			Lng:     result.Get("geometry.location.lng").Float(),
			Rating:  result.Get("rating").Float(),
			PlaceID: result.Get("place_id").String(),
		}
		p.DistanceKm = geo.Haversine(lat, lng, p.Lat, p.Lng)
		places = append(places, p)
	}
	sort.Slice(places, func(i, j int) bool { return places[i].DistanceKm < places[j].DistanceKm })

	c.mu.Lock()
	c.cache[cacheKey] = places
	c.mu.Unlock()
	return places, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
