package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"silentwave/internal/models"
	"silentwave/internal/proxy"
)

// AlertSource yields the current alert for one poll.
type AlertSource interface {
	FetchAlert(ctx context.Context) (models.Alert, error)
}

// NewsSource yields the ticker items for one poll.
type NewsSource interface {
	FetchNews(ctx context.Context) ([]models.NewsItem, error)
}

// ProxySource reads straight from the in-process proxies.
type ProxySource struct {
	Alerts *proxy.AlertProxy
	News   *proxy.NewsProxy
}

func (s ProxySource) FetchAlert(ctx context.Context) (models.Alert, error) {
	return s.Alerts.Current(ctx), nil
}

func (s ProxySource) FetchNews(ctx context.Context) ([]models.NewsItem, error) {
	return s.News.Items(ctx), nil
}

// HTTPSource polls a remote SilentWave server.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) FetchAlert(ctx context.Context) (models.Alert, error) {
	var alert models.Alert
	if err := s.getJSON(ctx, "/api/alerts", &alert); err != nil {
		return models.Alert{}, err
	}
	return alert, nil
}

func (s *HTTPSource) FetchNews(ctx context.Context) ([]models.NewsItem, error) {
	var items []models.NewsItem
	if err := s.getJSON(ctx, "/api/news", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to create request for %s", path)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request to %s failed", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("network error: %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return errors.Wrapf(err, "failed to decode %s", path)
	}
	return nil
}
