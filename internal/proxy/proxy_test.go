package proxy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"silentwave/internal/metrics"
	"silentwave/internal/models"

	"github.com/stretchr/testify/require"
)

type fakeAlertUpstream struct {
	calls   atomic.Int32
	alert   models.Alert
	err     error
	release chan struct{}
	mu      sync.Mutex
}

func (f *fakeAlertUpstream) ActiveAlert(ctx context.Context) (models.Alert, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return models.Alert{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alert, f.err
}

func (f *fakeAlertUpstream) set(a models.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alert = a
}

func newTestAlertProxy(t *testing.T, up AlertUpstream) *AlertProxy {
	t.Helper()
	p := NewAlertProxy(up, time.Minute, time.Hour, metrics.New())
	t.Cleanup(p.Close)
	return p
}

func missiles(ts time.Time, cities ...string) models.Alert {
	return models.Alert{Type: models.AlertMissiles, Cities: cities, Timestamp: ts}
}

func TestAlertProxy_CachesUpstream(t *testing.T) {
	up := &fakeAlertUpstream{alert: missiles(time.Now(), "שדרות")}
	p := newTestAlertProxy(t, up)

	first := p.Current(context.Background())
	second := p.Current(context.Background())

	require.Equal(t, models.AlertMissiles, first.Type)
	require.Equal(t, first, second)
	require.EqualValues(t, 1, up.calls.Load())
}

func TestAlertProxy_CacheExpires(t *testing.T) {
	up := &fakeAlertUpstream{alert: missiles(time.Now(), "שדרות")}
	p := NewAlertProxy(up, 50*time.Millisecond, time.Hour, metrics.New())
	defer p.Close()

	p.Current(context.Background())
	p.Current(context.Background())
	require.EqualValues(t, 1, up.calls.Load())

	time.Sleep(80 * time.Millisecond)
	p.Current(context.Background())
	require.EqualValues(t, 2, up.calls.Load())
}

func TestAlertProxy_ConcurrentCallersShareUpstream(t *testing.T) {
	up := &fakeAlertUpstream{alert: missiles(time.Now(), "שדרות"), release: make(chan struct{})}
	p := newTestAlertProxy(t, up)

	var wg sync.WaitGroup
	results := make([]models.Alert, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Current(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return up.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(up.release)
	wg.Wait()

	require.EqualValues(t, 1, up.calls.Load())
	for _, r := range results {
		require.Equal(t, models.AlertMissiles, r.Type)
	}
}

func TestAlertProxy_CancelledCallerDoesNotFailSharedCall(t *testing.T) {
	up := &fakeAlertUpstream{alert: missiles(time.Now(), "שדרות"), release: make(chan struct{})}
	p := newTestAlertProxy(t, up)

	browserCtx, cancelBrowser := context.WithCancel(context.Background())
	browserDone := make(chan models.Alert, 1)
	go func() { browserDone <- p.Current(browserCtx) }()
	require.Eventually(t, func() bool { return up.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	monitorDone := make(chan models.Alert, 1)
	go func() { monitorDone <- p.Current(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	cancelBrowser()
	select {
	case a := <-browserDone:
		require.Equal(t, models.AlertNone, a.Type)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still waiting")
	}

	close(up.release)
	select {
	case a := <-monitorDone:
		require.Equal(t, models.AlertMissiles, a.Type)
	case <-time.After(time.Second):
		t.Fatal("shared call never finished")
	}
	require.EqualValues(t, 1, up.calls.Load())

	// the shared answer was cached for later callers
	require.Equal(t, models.AlertMissiles, p.Current(context.Background()).Type)
	require.EqualValues(t, 1, up.calls.Load())
}

func TestAlertProxy_NilMetrics(t *testing.T) {
	up := &fakeAlertUpstream{alert: missiles(time.Now(), "חיפה")}
	p := NewAlertProxy(up, time.Minute, time.Hour, nil)
	defer p.Close()

	require.NotPanics(t, func() {
		require.Equal(t, models.AlertMissiles, p.Current(context.Background()).Type)
		p.SetMock(NewMockAlert(models.AlertTsunami, []string{"חיפה"}, 0, time.Now()))
		require.Equal(t, models.AlertTsunami, p.Current(context.Background()).Type)
	})
	p.Close()
}

func TestAlertProxy_UpstreamErrorFallsBackToNone(t *testing.T) {
	up := &fakeAlertUpstream{err: errors.New("connection refused")}
	p := newTestAlertProxy(t, up)

	alert := p.Current(context.Background())
	require.Equal(t, models.AlertNone, alert.Type)
	require.Empty(t, alert.Cities)
	require.False(t, alert.Timestamp.IsZero())

	// failures are not cached
	p.Current(context.Background())
	require.EqualValues(t, 2, up.calls.Load())
}

func TestAlertProxy_MockOverride(t *testing.T) {
	up := &fakeAlertUpstream{alert: models.NoneAlert(time.Now())}
	p := newTestAlertProxy(t, up)

	require.Equal(t, models.AlertNone, p.Current(context.Background()).Type)

	mock := NewMockAlert(models.AlertTsunami, []string{"נהריה"}, 15*time.Second, time.Now())
	p.SetMock(mock)

	got := p.Current(context.Background())
	require.Equal(t, models.AlertTsunami, got.Type)
	require.Equal(t, []string{"נהריה"}, got.Cities)
	require.Equal(t, MockInstructions, got.Instructions)

	p.SetMock(NewMockAlert(models.AlertNone, nil, 0, time.Now()))
	require.Equal(t, models.AlertNone, p.Current(context.Background()).Type)
}

func TestAlertProxy_NoneMockInCacheIsDropped(t *testing.T) {
	up := &fakeAlertUpstream{alert: missiles(time.Now(), "עכו")}
	p := newTestAlertProxy(t, up)

	p.cache.Set(keyMock, models.NoneAlert(time.Now()), time.Hour)

	require.Equal(t, models.AlertMissiles, p.Current(context.Background()).Type)
	require.Nil(t, p.cache.Get(keyMock))
}

func TestAlertProxy_StableIssueTime(t *testing.T) {
	base := time.Date(2024, 4, 14, 1, 0, 0, 0, time.UTC)
	now := base
	up := &fakeAlertUpstream{alert: missiles(base, "אשקלון")}
	p := newTestAlertProxy(t, up)

	first := p.Current(context.Background())
	require.Equal(t, base, first.Timestamp)

	// expire the cached answer so the next call reaches upstream
	p.cache.Delete(keyCurrent)
	now = base.Add(2 * time.Minute)
	up.set(missiles(now, "אשקלון"))
	second := p.Current(context.Background())
	require.Equal(t, base, second.Timestamp)
	require.EqualValues(t, 2, up.calls.Load())

	p.cache.Delete(keyCurrent)
	now = base.Add(4 * time.Minute)
	up.set(missiles(now, "אשקלון", "אשדוד"))
	third := p.Current(context.Background())
	require.Equal(t, now, third.Timestamp)
}

func TestNewMockAlert(t *testing.T) {
	now := time.Date(2024, 4, 14, 1, 0, 0, 0, time.UTC)
	a := NewMockAlert(models.AlertMissiles, []string{" נתניה ", ""}, 15*time.Second, now)
	require.Equal(t, []string{"נתניה"}, a.Cities)
	require.Equal(t, now.Add(-15*time.Second), a.Timestamp)

	none := NewMockAlert(models.AlertNone, nil, 0, now)
	require.Empty(t, none.Instructions)
}

type fakeNewsUpstream struct {
	calls   atomic.Int32
	items   []models.NewsItem
	err     error
	release chan struct{}
}

func (f *fakeNewsUpstream) FetchNews(ctx context.Context, url string, limit int) ([]models.NewsItem, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

func TestNewsProxy(t *testing.T) {
	t.Run("caches items", func(t *testing.T) {
		up := &fakeNewsUpstream{items: []models.NewsItem{{Title: "a"}}}
		p := NewNewsProxy(up, "http://feed", 30, time.Minute, metrics.New())
		defer p.Close()

		require.Equal(t, up.items, p.Items(context.Background()))
		require.Equal(t, up.items, p.Items(context.Background()))
		require.EqualValues(t, 1, up.calls.Load())
	})

	t.Run("error yields empty list", func(t *testing.T) {
		up := &fakeNewsUpstream{err: errors.New("boom")}
		p := NewNewsProxy(up, "http://feed", 30, time.Minute, metrics.New())
		defer p.Close()

		items := p.Items(context.Background())
		require.NotNil(t, items)
		require.Empty(t, items)
	})

	t.Run("cancelled caller does not fail shared fetch", func(t *testing.T) {
		up := &fakeNewsUpstream{items: []models.NewsItem{{Title: "b"}}, release: make(chan struct{})}
		p := NewNewsProxy(up, "http://feed", 30, time.Minute, nil)
		defer p.Close()

		ctx, cancel := context.WithCancel(context.Background())
		first := make(chan []models.NewsItem, 1)
		go func() { first <- p.Items(ctx) }()
		require.Eventually(t, func() bool { return up.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

		second := make(chan []models.NewsItem, 1)
		go func() { second <- p.Items(context.Background()) }()
		time.Sleep(20 * time.Millisecond)

		cancel()
		require.Empty(t, <-first)
		close(up.release)
		require.Equal(t, up.items, <-second)
		require.EqualValues(t, 1, up.calls.Load())
	})
}
