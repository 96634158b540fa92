package proxy

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"silentwave/internal/logger"
	"silentwave/internal/metrics"
	"silentwave/internal/models"
)

const (
	DefaultNewsTTL = 30 * time.Second

	keyNews = "news"
)

// NewsUpstream loads up to limit items from a feed.
type NewsUpstream interface {
	FetchNews(ctx context.Context, url string, limit int) ([]models.NewsItem, error)
}

// NewsProxy caches the ticker feed. Failures yield an empty list.
type NewsProxy struct {
	upstream NewsUpstream
	url      string
	limit    int
	cache    *ttlcache.Cache[string, []models.NewsItem]
	group    singleflight.Group
	stopOnce sync.Once
	metrics  *metrics.Metrics
	log      *logger.Entry
}

func NewNewsProxy(upstream NewsUpstream, url string, limit int, ttl time.Duration, m *metrics.Metrics) *NewsProxy {
	if ttl <= 0 {
		ttl = DefaultNewsTTL
	}
	p := &NewsProxy{
		upstream: upstream,
		url:      url,
		limit:    limit,
		cache:    newCache[[]models.NewsItem](ttl),
		metrics:  m,
		log:      logger.Component("news_proxy").WithField("url", url),
	}
	go p.cache.Start()
	return p
}

// Items returns the cached feed, refreshing it when stale. Like
// AlertProxy.Current, a cancelled caller does not fail the shared fetch.
func (p *NewsProxy) Items(ctx context.Context) []models.NewsItem {
	if item := p.cache.Get(keyNews); item != nil {
		p.metrics.CacheLookup("news", "hit")
		return item.Value()
	}
	p.metrics.CacheLookup("news", "miss")

	ch := p.group.DoChan(keyNews, func() (interface{}, error) {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), upstreamTimeout)
		defer cancel()

		items, err := p.upstream.FetchNews(uctx, p.url, p.limit)
		if err != nil {
			return nil, err
		}
		p.cache.Set(keyNews, items, ttlcache.DefaultTTL)
		return items, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			p.metrics.Upstream("rss", "error")
			p.log.WithError(res.Err).Error("Error fetching RSS")
			return []models.NewsItem{}
		}
		p.metrics.Upstream("rss", "ok")
		items := res.Val.([]models.NewsItem)
		p.log.WithField("items_count", len(items)).Debug("News refreshed")
		return items
	case <-ctx.Done():
		return []models.NewsItem{}
	}
}

func (p *NewsProxy) Close() {
	p.stopOnce.Do(p.cache.Stop)
}
