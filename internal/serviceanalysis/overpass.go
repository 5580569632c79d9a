package serviceanalysis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"

	"github.com/threshold-urban/threshold/internal/httputil"
	"github.com/threshold-urban/threshold/internal/metrics"
	"github.com/threshold-urban/threshold/internal/models"
)

// DefaultOverpassURL is the public Overpass API interpreter endpoint.
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// overpassQueries selects OSM features per service type. {{bbox}} is replaced
// with "south,west,north,east".
var overpassQueries = map[ServiceType]string{
	ServiceParks: `[out:json][timeout:25];
(
  way["leisure"="park"]({{bbox}});
  way["leisure"="playground"]({{bbox}});
  way["leisure"="recreation_ground"]({{bbox}});
  relation["leisure"="park"]({{bbox}});
);
out center;`,
	ServiceFood: `[out:json][timeout:25];
(
  node["shop"="supermarket"]({{bbox}});
  node["shop"="convenience"]({{bbox}});
  node["shop"="grocery"]({{bbox}});
  node["amenity"="marketplace"]({{bbox}});
  way["shop"="supermarket"]({{bbox}});
  way["shop"="convenience"]({{bbox}});
);
out center;`,
	ServiceHealthcare: `[out:json][timeout:25];
(
  node["amenity"="hospital"]({{bbox}});
  node["amenity"="clinic"]({{bbox}});
  node["amenity"="doctors"]({{bbox}});
  way["amenity"="hospital"]({{bbox}});
  way["amenity"="clinic"]({{bbox}});
);
out center;`,
	ServiceTransport: `[out:json][timeout:25];
(
  node["public_transport"="station"]({{bbox}});
  node["railway"="station"]({{bbox}});
  node["amenity"="bus_station"]({{bbox}});
  node["highway"="bus_stop"]({{bbox}});
  way["public_transport"="station"]({{bbox}});
);
out center;`,
}

// OverpassClient fetches service locations from OpenStreetMap.
type OverpassClient struct {
	baseURL string
	client  *http.Client
}

func NewOverpassClient() *OverpassClient {
	return NewOverpassClientWithBaseURL(DefaultOverpassURL)
}

func NewOverpassClientWithBaseURL(baseURL string) *OverpassClient {
	return &OverpassClient{
		baseURL: baseURL,
		client:  httputil.NewClient(),
	}
}

// Locations returns the [lat, lng] positions of all matching OSM features
// inside the bounds. Node elements report their own position; way and
// relation elements report their computed center.
func (c *OverpassClient) Locations(ctx context.Context, serviceType ServiceType, bounds models.Bounds) ([][2]float64, error) {
	query, ok := overpassQueries[serviceType]
	if !ok {
		return nil, fmt.Errorf("unknown service type %q", serviceType)
	}
	bbox := fmt.Sprintf("%f,%f,%f,%f", bounds.MinLat, bounds.MinLng, bounds.MaxLat, bounds.MaxLng)
	query = strings.ReplaceAll(query, "{{bbox}}", bbox)

	body, err := c.post(ctx, query)
	if err != nil {
		return nil, err
	}

	var locations [][2]float64
	gjson.GetBytes(body, "elements").ForEach(func(_, element gjson.Result) bool {
		var lat, lng gjson.Result
		switch element.Get("type").String() {
		case "node":
			lat, lng = element.Get("lat"), element.Get("lon")
		case "way", "relation":
			lat, lng = element.Get("center.lat"), element.Get("center.lon")
		default:
			return true
		}
		if lat.Exists() && lng.Exists() {
			locations = append(locations, [2]float64{lat.Float(), lng.Float()})
		}
		return true
	})
	return locations, nil
}

func (c *OverpassClient) post(ctx context.Context, query string) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(query))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "text/plain")

		started := time.Now()
		resp, err := c.client.Do(req)
		metrics.ExternalAPILatency.WithLabelValues("overpass").Observe(time.Since(started).Seconds())
		if err != nil {
			metrics.ExternalAPICallsTotal.WithLabelValues("overpass", "error").Inc()
			return err
		}
		defer resp.Body.Close()
		metrics.ExternalAPICallsTotal.WithLabelValues("overpass", fmt.Sprintf("%d", resp.StatusCode)).Inc()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("overpass returned %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("overpass returned %d", resp.StatusCode))
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return body, nil
}
