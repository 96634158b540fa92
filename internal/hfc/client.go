// Package hfc fetches the active alert from the Home Front Command feed.
package hfc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"silentwave/internal/alerts"
	"silentwave/internal/models"
)

const (
	DefaultAlertsURL = "https://www.oref.org.il/WarningMessages/alert/alerts.json"
	DefaultTimeout   = 5 * time.Second

	maxBodySize = 1 << 20
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	URL      string
	ProxyURL string
	Timeout  time.Duration
}

// Client polls the HFC alerts endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient builds a client. An invalid proxy URL is an error.
func NewClient(opts Options) (*Client, error) {
	if opts.URL == "" {
		opts.URL = DefaultAlertsURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	proxy := http.ProxyFromEnvironment
	if opts.ProxyURL != "" {
		u, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid proxy url")
		}
		proxy = http.ProxyURL(u)
	}

	tr := &http.Transport{
		Proxy:               proxy,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &Client{
		url:        opts.URL,
		httpClient: &http.Client{Timeout: opts.Timeout, Transport: tr},
	}, nil
}

// rawAlert is the upstream payload.
type rawAlert struct {
	ID    string   `json:"id"`
	Cat   category `json:"cat"`
	Title string   `json:"title"`
	Data  []string `json:"data"`
	Desc  string   `json:"desc"`
}

// category accepts the category either as a JSON string or a number.
type category int

func (c *category) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.Wrapf(err, "invalid category %q", s)
	}
	*c = category(n)
	return nil
}

var categoryTypes = map[int]models.AlertType{
	1:   models.AlertMissiles,
	3:   models.AlertEarthQuake,
	4:   models.AlertRadiologicalEvent,
	5:   models.AlertTsunami,
	6:   models.AlertHostileAircraftIntrusion,
	7:   models.AlertHazardousMaterials,
	10:  models.AlertNewsFlash,
	13:  models.AlertTerroristInfiltration,
	101: models.AlertMissilesDrill,
	103: models.AlertEarthQuakeDrill,
	104: models.AlertRadiologicalEventDrill,
	105: models.AlertTsunamiDrill,
	106: models.AlertHostileAircraftIntrusionDrill,
	107: models.AlertHazardousMaterialsDrill,
	113: models.AlertTerroristInfiltrationDrill,
}

// TypeForCategory maps an HFC category number to an alert type.
func TypeForCategory(cat int) models.AlertType {
	if t, ok := categoryTypes[cat]; ok {
		return t
	}
	return models.AlertUnknown
}

// ActiveAlert returns the currently active alert, or a "none" alert when the
// feed is empty. The returned Timestamp is the fetch time.
func (c *Client) ActiveAlert(ctx context.Context) (models.Alert, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return models.Alert{}, errors.Wrap(err, "failed to create alerts request")
	}
	req.Header.Set("Referer", "https://www.oref.org.il/")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Alert{}, errors.Wrap(err, "alerts request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Alert{}, errors.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return models.Alert{}, errors.Wrap(err, "failed to read alerts response")
	}

	return ParseAlert(body, time.Now())
}

// ParseAlert decodes an alerts.json body. The body may start with a UTF-8 or
// UTF-16 byte order mark and may be blank when nothing is active.
func ParseAlert(body []byte, now time.Time) (models.Alert, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), body)
	if err != nil {
		return models.Alert{}, errors.Wrap(err, "failed to decode alerts body")
	}
	decoded = bytes.ReplaceAll(decoded, []byte{0}, nil)
	decoded = bytes.TrimSpace(decoded)

	if len(decoded) == 0 {
		return models.NoneAlert(now), nil
	}

	var raw rawAlert
	if err := json.Unmarshal(decoded, &raw); err != nil {
		return models.Alert{}, errors.Wrap(err, "failed to parse alerts response")
	}

	cities := alerts.NormalizeCities(raw.Data)
	if len(cities) == 0 {
		return models.NoneAlert(now), nil
	}

	return models.Alert{
		Type:         TypeForCategory(int(raw.Cat)),
		Cities:       cities,
		Instructions: strings.TrimSpace(raw.Desc),
		Title:        strings.TrimSpace(raw.Title),
		Timestamp:    now.UTC(),
	}, nil
}
