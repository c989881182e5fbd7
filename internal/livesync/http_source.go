package livesync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"klinik/antrian/internal/models"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPSource reads GET {base}/display from the queue service.
type HTTPSource struct {
	endpoint string
	client   *http.Client
}

func NewHTTPSource(baseURL, departmentID string, timeout time.Duration) (*HTTPSource, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/display")
	if err != nil {
		return nil, fmt.Errorf("parse display url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("display url %q must be absolute", baseURL)
	}
	if departmentID != "" {
		query := u.Query()
		query.Set("department_id", departmentID)
		u.RawQuery = query.Encode()
	}
	return &HTTPSource{
		endpoint: u.String(),
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}, nil
}

func (s *HTTPSource) Fetch(ctx context.Context) (models.QueueDisplaySnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return models.QueueDisplaySnapshot{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return models.QueueDisplaySnapshot{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return models.QueueDisplaySnapshot{}, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}

	var snapshot models.QueueDisplaySnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return models.QueueDisplaySnapshot{}, fmt.Errorf("decode display snapshot: %w", err)
	}
	return snapshot, nil
}
