// Package proxy fronts the upstream alert and news providers with short-lived
// caches so that any number of pollers share a single upstream call.
package proxy

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"silentwave/internal/alerts"
	"silentwave/internal/logger"
	"silentwave/internal/metrics"
	"silentwave/internal/models"
)

const (
	DefaultAlertTTL = time.Second
	DefaultMockTTL  = time.Hour

	// upstreamTimeout bounds a shared upstream call, which outlives the
	// caller that started it.
	upstreamTimeout = 10 * time.Second

	keyCurrent = "current"
	keyMock    = "mock_alert"

	// MockInstructions is attached to every non-empty mock alert.
	MockInstructions = "היכנסו למבנה, נעלו את הדלתות וסגרו את החלונות"
)

// AlertUpstream returns the provider's currently active alert.
type AlertUpstream interface {
	ActiveAlert(ctx context.Context) (models.Alert, error)
}

// AlertProxy serves the current alert: a mock override if one is set, else the
// cached upstream answer, else a fresh upstream call. Upstream failures turn
// into a "none" alert.
type AlertProxy struct {
	upstream AlertUpstream
	cache    *ttlcache.Cache[string, models.Alert]
	group    singleflight.Group
	stopOnce sync.Once
	mockTTL  time.Duration
	metrics  *metrics.Metrics
	log      *logger.Entry
	now      func() time.Time

	mu         sync.Mutex
	issuedKey  string
	issuedTime time.Time
}

// NewAlertProxy creates a proxy; zero ttls use the defaults.
func NewAlertProxy(upstream AlertUpstream, ttl, mockTTL time.Duration, m *metrics.Metrics) *AlertProxy {
	if ttl <= 0 {
		ttl = DefaultAlertTTL
	}
	if mockTTL <= 0 {
		mockTTL = DefaultMockTTL
	}
	p := &AlertProxy{
		upstream: upstream,
		cache:    newCache[models.Alert](ttl),
		mockTTL:  mockTTL,
		metrics:  m,
		log:      logger.Component("alert_proxy"),
		now:      time.Now,
	}
	go p.cache.Start()
	return p
}

// Current returns the alert to serve. It never fails.
// Concurrent callers share one upstream call. A caller whose ctx is done stops
// waiting and gets "none"; the shared call keeps running for the others.
func (p *AlertProxy) Current(ctx context.Context) models.Alert {
	if item := p.cache.Get(keyMock); item != nil {
		if mock := item.Value(); mock.Type == models.AlertNone {
			p.cache.Delete(keyMock)
		} else {
			p.log.Debug("Returning mock alert")
			return mock
		}
	}

	if item := p.cache.Get(keyCurrent); item != nil {
		p.metrics.CacheLookup("alerts", "hit")
		return item.Value()
	}
	p.metrics.CacheLookup("alerts", "miss")

	ch := p.group.DoChan(keyCurrent, func() (interface{}, error) {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), upstreamTimeout)
		defer cancel()

		alert, err := p.upstream.ActiveAlert(uctx)
		if err != nil {
			return nil, err
		}
		alert = p.stampIssueTime(alert)
		p.cache.Set(keyCurrent, alert, ttlcache.DefaultTTL)
		return alert, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			p.metrics.Upstream("hfc", "error")
			p.log.WithError(res.Err).Error("Error fetching alert")
			return models.NoneAlert(p.now())
		}
		p.metrics.Upstream("hfc", "ok")
		return res.Val.(models.Alert)
	case <-ctx.Done():
		p.log.WithError(ctx.Err()).Debug("Caller left before the upstream answered")
		return models.NoneAlert(p.now())
	}
}

// stampIssueTime keeps the first-seen time of an ongoing alert so that repeated
// polls report the same issue time.
func (p *AlertProxy) stampIssueTime(a models.Alert) models.Alert {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := alerts.Key(a)
	if a.Type == models.AlertNone {
		p.issuedKey = ""
		return a
	}
	if key == p.issuedKey {
		a.Timestamp = p.issuedTime
		return a
	}
	p.issuedKey = key
	p.issuedTime = a.Timestamp
	return a
}

// SetMock installs a mock override; a "none" mock clears it instead.
// The cached upstream answer is dropped so the next poll sees the change.
func (p *AlertProxy) SetMock(a models.Alert) {
	if a.Type == models.AlertNone {
		p.ClearMock()
		return
	}
	p.cache.Set(keyMock, a, p.mockTTL)
	p.cache.Delete(keyCurrent)
	p.metrics.MockOverride()
	p.log.WithField("cities", strings.Join(a.Cities, ", ")).Info("Mock alert set")
}

// ClearMock removes the mock override.
func (p *AlertProxy) ClearMock() {
	p.cache.Delete(keyMock)
	p.cache.Delete(keyCurrent)
	p.log.Info("Mock alert cleared")
}

// Close stops the cache janitor. Safe to call twice.
func (p *AlertProxy) Close() {
	p.stopOnce.Do(p.cache.Stop)
}

// newCache builds a cache whose entries expire ttl after being set; reads do
// not extend them.
func newCache[V any](ttl time.Duration) *ttlcache.Cache[string, V] {
	return ttlcache.New[string, V](
		ttlcache.WithTTL[string, V](ttl),
		ttlcache.WithDisableTouchOnHit[string, V](),
	)
}

// NewMockAlert builds a test alert issued offset seconds before now.
func NewMockAlert(t models.AlertType, cities []string, offset time.Duration, now time.Time) models.Alert {
	a := models.Alert{
		Type:      t,
		Cities:    alerts.NormalizeCities(cities),
		Timestamp: now.Add(-offset).UTC(),
	}
	if t != models.AlertNone {
		a.Instructions = MockInstructions
	}
	return a
}
