package aqi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/threshold-urban/threshold/internal/httputil"
	"github.com/threshold-urban/threshold/internal/metrics"
	"github.com/threshold-urban/threshold/internal/models"
)

const DefaultBaseURL = "https://air-quality-api.open-meteo.com/v1/air-quality"

// Client looks up air quality from Open-Meteo and computes EPA AQI values.
// A location with no coverage is a normal outcome (DataAvailable=false), not
// an error.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		client:  httputil.NewClient(),
	}
}

// NewClientWithBaseURL is used by tests to point at a stub server.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  httputil.NewClientWithTimeout(10 * time.Second),
	}
}

type openMeteoResponse struct {
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	Timezone  string      `json:"timezone"`
	Hourly    *hourlyData `json:"hourly"`
}

type hourlyData struct {
	Time            []string   `json:"time"`
	PM10            []*float64 `json:"pm10"`
	PM25            []*float64 `json:"pm2_5"`
	NitrogenDioxide []*float64 `json:"nitrogen_dioxide"`
	Ozone           []*float64 `json:"ozone"`
	SulphurDioxide  []*float64 `json:"sulphur_dioxide"`
	CarbonMonoxide  []*float64 `json:"carbon_monoxide"`
}

// Calculate computes the AQI for a location on a given date (YYYY-MM-DD).
// It fetches a 7-day hourly window ending on the date so the 8-hour rolling
// averages have history, then reports the last hour with data. External
// failures degrade to DataAvailable=false; only a malformed date is an error.
func (c *Client) Calculate(ctx context.Context, latitude, longitude float64, date string) (models.AQIResult, error) {
	target, err := time.Parse("2006-01-02", date)
	if err != nil {
		return models.AQIResult{}, fmt.Errorf("invalid date format: %w", err)
	}

	result := models.AQIResult{
		Latitude:  latitude,
		Longitude: longitude,
		Date:      date,
	}

	data, err := c.fetch(ctx, latitude, longitude, target.AddDate(0, 0, -7), target)
	if err != nil {
		log.Printf("aqi: fetch failed for %.4f,%.4f: %v", latitude, longitude, err)
		result.Message = "No air quality data available for this location"
		return result, nil
	}
	if data == nil || data.Hourly == nil || len(data.Hourly.Time) == 0 {
		result.Message = "No hourly data available for this location"
		return result, nil
	}

	result.Latitude = data.Latitude
	result.Longitude = data.Longitude
	result.Timezone = data.Timezone

	h := data.Hourly
	indices := computeIndices(
		toSeries(h.PM25, len(h.Time)),
		toSeries(h.PM10, len(h.Time)),
		toSeries(h.NitrogenDioxide, len(h.Time)),
		toSeries(h.Ozone, len(h.Time)),
		toSeries(h.SulphurDioxide, len(h.Time)),
		toSeries(h.CarbonMonoxide, len(h.Time)),
	)

	last := len(h.Time) - 1
	if math.IsNaN(indices.Overall[last]) {
		result.Message = "Unable to calculate AQI from available data"
		return result, nil
	}

	overall := math.Trunc(indices.Overall[last])
	result.DataAvailable = true
	result.AQI = &overall
	result.Pollutants = map[string]*float64{
		"pm2_5": valueAt(h.PM25, last),
		"pm10":  valueAt(h.PM10, last),
		"no2":   valueAt(h.NitrogenDioxide, last),
		"ozone": valueAt(h.Ozone, last),
		"so2":   valueAt(h.SulphurDioxide, last),
		"co":    valueAt(h.CarbonMonoxide, last),
	}
	result.SubIndices = map[string]*float64{
		"aqi_pm2_5": floatPtr(indices.PM25[last]),
		"aqi_pm10":  floatPtr(indices.PM10[last]),
		"aqi_no2":   floatPtr(indices.NO2[last]),
		"aqi_ozone": floatPtr(indices.O3[last]),
		"aqi_so2":   floatPtr(indices.SO2[last]),
		"aqi_co":    floatPtr(indices.CO[last]),
	}
	return result, nil
}

// fetch retrieves hourly pollutant data. A nil response with nil error means
// the location has no coverage (Open-Meteo answers 400/404 for those).
func (c *Client) fetch(ctx context.Context, latitude, longitude float64, start, end time.Time) (*openMeteoResponse, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", latitude))
	params.Set("longitude", fmt.Sprintf("%.4f", longitude))
	params.Set("start_date", start.Format("2006-01-02"))
	params.Set("end_date", end.Format("2006-01-02"))
	params.Set("hourly", "pm10,pm2_5,nitrogen_dioxide,ozone,sulphur_dioxide,carbon_monoxide")
	params.Set("timezone", "auto")
	requestURL := c.baseURL + "?" + params.Encode()

	var body []byte
	var noCoverage bool
	operation := func() error {
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.client.Do(req)
		metrics.ExternalAPILatency.WithLabelValues("open_meteo").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ExternalAPICallsTotal.WithLabelValues("open_meteo", "error").Inc()
			return fmt.Errorf("fetch air quality: %w", err)
		}
		defer resp.Body.Close()

		metrics.ExternalAPICallsTotal.WithLabelValues("open_meteo", resp.Status).Inc()

		// 400/404 mean the location is outside the dataset, not a failure.
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
			noCoverage = true
			return nil
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("open-meteo server error: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch air quality: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 1 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	if noCoverage {
		return nil, nil
	}

	var data openMeteoResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &data, nil
}

// valueAt indexes a pollutant series that may be shorter than the time axis.
func valueAt(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func toSeries(values []*float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < len(values) && values[i] != nil {
			out[i] = *values[i]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// floatPtr truncates toward zero, matching how reported AQI values are
// coerced to whole numbers.
func floatPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	truncated := math.Trunc(v)
	return &truncated
}
