package monitor_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"silentwave/internal/events"
	"silentwave/internal/metrics"
	"silentwave/internal/models"
	"silentwave/internal/monitor"
	"silentwave/internal/reducer"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAlertSource struct {
	mock.Mock
}

func (m *mockAlertSource) FetchAlert(ctx context.Context) (models.Alert, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Alert), args.Error(1)
}

type mockNewsSource struct {
	mock.Mock
}

func (m *mockNewsSource) FetchNews(ctx context.Context) ([]models.NewsItem, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]models.NewsItem)
	return items, args.Error(1)
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestMonitor_PollAlerts(t *testing.T) {
	src := &mockAlertSource{}
	src.On("FetchAlert", mock.Anything).Return(models.Alert{}, errors.New("Network error")).Once()
	src.On("FetchAlert", mock.Anything).Return(models.Alert{
		Type:      models.AlertMissiles,
		Cities:    []string{"אשדוד"},
		Timestamp: time.Now(),
	}, nil).Once()

	m := metrics.New()
	r := reducer.New(reducer.Options{})
	mon := monitor.New(src, nil, r, nil, m, monitor.Config{})

	mon.PollAlerts(context.Background())
	require.Equal(t, models.StatusDisconnected, r.Snapshot().ConnectionStatus)

	mon.PollAlerts(context.Background())
	s := r.Snapshot()
	require.Equal(t, models.StatusConnected, s.ConnectionStatus)
	require.True(t, s.IsAlarming)
	require.Len(t, r.Log(), 1)

	require.Equal(t, 1.0, testutil.ToFloat64(m.AlertPolls.WithLabelValues("error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AlertPolls.WithLabelValues("ok")))
	src.AssertExpectations(t)
}

func TestMonitor_PollNewsPublishesOnlyOnSuccess(t *testing.T) {
	items := []models.NewsItem{{Title: "כותרת", Link: "http://example.com/1"}}
	news := &mockNewsSource{}
	news.On("FetchNews", mock.Anything).Return(items, nil).Once()
	news.On("FetchNews", mock.Anything).Return(nil, errors.New("boom")).Once()

	sink := &recordingSink{}
	mon := monitor.New(&mockAlertSource{}, news, reducer.New(reducer.Options{}), sink, nil, monitor.Config{})

	mon.PollNews(context.Background())
	mon.PollNews(context.Background())

	require.Len(t, sink.events, 1)
	require.Equal(t, events.TypeNews, sink.events[0].Type)
	require.Equal(t, items, sink.events[0].Data)
	news.AssertExpectations(t)
}

func TestMonitor_Run(t *testing.T) {
	src := &mockAlertSource{}
	src.On("FetchAlert", mock.Anything).Return(models.NoneAlert(time.Now()), nil)
	news := &mockNewsSource{}
	news.On("FetchNews", mock.Anything).Return([]models.NewsItem{}, nil)

	r := reducer.New(reducer.Options{})
	mon := monitor.New(src, news, r, nil, nil, monitor.Config{
		AlertInterval: 10 * time.Millisecond,
		NewsInterval:  10 * time.Millisecond,
		TickInterval:  10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return r.Snapshot().ConnectionStatus == models.StatusConnected
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestHTTPSource(t *testing.T) {
	issued := time.Date(2024, 4, 14, 1, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/alerts":
			json.NewEncoder(w).Encode(models.Alert{Type: models.AlertTsunami, Cities: []string{"נהריה"}, Timestamp: issued})
		case "/api/news":
			json.NewEncoder(w).Encode([]models.NewsItem{{Title: "t"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	src := monitor.NewHTTPSource(server.URL+"/", time.Second)

	alert, err := src.FetchAlert(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.AlertTsunami, alert.Type)
	require.True(t, issued.Equal(alert.Timestamp))

	items, err := src.FetchNews(context.Background())
	require.NoError(t, err)
	require.Equal(t, []models.NewsItem{{Title: "t"}}, items)
}

func TestHTTPSource_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := monitor.NewHTTPSource(server.URL, time.Second).FetchAlert(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}
