// Package monitor runs the polling loops that feed the alert reducer.
package monitor

import (
	"context"
	"sync"
	"time"

	"silentwave/internal/events"
	"silentwave/internal/logger"
	"silentwave/internal/metrics"
	"silentwave/internal/models"
	"silentwave/internal/reducer"
)

const (
	DefaultAlertInterval = 1500 * time.Millisecond
	DefaultNewsInterval  = 30 * time.Second
	countdownInterval    = time.Second
)

// Config controls the polling cadence. Zero values use the defaults.
type Config struct {
	AlertInterval time.Duration
	NewsInterval  time.Duration
	TickInterval  time.Duration
}

// Monitor polls alerts and news on fixed intervals. Each loop waits for its
// own request to finish, so there is at most one request per resource in flight.
type Monitor struct {
	alerts  AlertSource
	news    NewsSource
	reducer *reducer.Reducer
	sink    events.Sink
	metrics *metrics.Metrics
	cfg     Config
	now     func() time.Time
	log     *logger.Entry
}

// New creates a monitor. news, sink and m may be nil.
func New(alerts AlertSource, news NewsSource, r *reducer.Reducer, sink events.Sink, m *metrics.Metrics, cfg Config) *Monitor {
	if cfg.AlertInterval <= 0 {
		cfg.AlertInterval = DefaultAlertInterval
	}
	if cfg.NewsInterval <= 0 {
		cfg.NewsInterval = DefaultNewsInterval
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = countdownInterval
	}
	return &Monitor{
		alerts:  alerts,
		news:    news,
		reducer: r,
		sink:    sink,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
		log: logger.Component("monitor").WithFields(logger.Fields{
			"alert_interval": cfg.AlertInterval.String(),
			"news_interval":  cfg.NewsInterval.String(),
		}),
	}
}

// Run polls immediately and then on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Info("Starting monitor")

	loops := []loop{
		{m.cfg.AlertInterval, m.PollAlerts},
		{m.cfg.TickInterval, m.tick},
	}
	if m.news != nil {
		loops = append(loops, loop{m.cfg.NewsInterval, m.PollNews})
	}

	var wg sync.WaitGroup
	for _, l := range loops {
		wg.Add(1)
		go func(interval time.Duration, fn func(context.Context)) {
			defer wg.Done()
			every(ctx, interval, fn)
		}(l.interval, l.fn)
	}

	wg.Wait()
	m.log.Info("Stopping monitor by context")
}

type loop struct {
	interval time.Duration
	fn       func(context.Context)
}

func every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// PollAlerts performs a single alert poll and feeds the reducer.
func (m *Monitor) PollAlerts(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	alert, err := m.alerts.FetchAlert(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.count("error")
		m.reducer.PollFailed(err)
		return
	}
	m.count("ok")

	if t := m.reducer.Apply(alert, m.now()); t != reducer.Unchanged {
		m.log.WithFields(logger.Fields{
			"type":       alert.Type,
			"cities":     alert.Cities,
			"transition": t.String(),
		}).Debug("Alert state changed")
	}
}

// PollNews publishes the latest headlines. A failed fetch publishes nothing,
// so subscribers keep showing the previous items.
func (m *Monitor) PollNews(ctx context.Context) {
	if m.news == nil || ctx.Err() != nil {
		return
	}
	items, err := m.news.FetchNews(ctx)
	if err != nil {
		m.log.WithError(err).Debug("News poll failed")
		return
	}
	if items == nil {
		items = []models.NewsItem{}
	}

	if m.sink != nil {
		m.sink.Publish(events.Event{Type: events.TypeNews, At: m.now(), Data: items})
	}
}

func (m *Monitor) tick(ctx context.Context) {
	m.reducer.Tick(m.now())
}

func (m *Monitor) count(result string) {
	if m.metrics != nil {
		m.metrics.AlertPolls.WithLabelValues(result).Inc()
	}
}
