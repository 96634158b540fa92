package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"silentwave/internal/events"
	"silentwave/internal/logger"
	"silentwave/internal/metrics"
	"silentwave/internal/models"
	"silentwave/internal/prefs"
	"silentwave/internal/proxy"
	"silentwave/internal/reducer"
)

// Deps хранит зависимости HTTP-обработчиков.
type Deps struct {
	Alerts  *proxy.AlertProxy
	News    *proxy.NewsProxy
	Reducer *reducer.Reducer
	Broker  *events.Broker
	Prefs   *prefs.Store
	Metrics *metrics.Metrics

	// EnableMock включает /api/mock-alert.
	EnableMock bool
	// StaticDir, если задан, раздаётся в корне как статика дашборда.
	StaticDir string
}

// Server хранит зависимости HTTP-обработчиков.
type Server struct {
	deps Deps
	log  *logger.Entry
	now  func() time.Time
}

// NewServer создаёт новый экземпляр Server.
func NewServer(deps Deps) *Server {
	return &Server{
		deps: deps,
		log:  logger.Component("server"),
		now:  time.Now,
	}
}

// Router собирает таблицу маршрутов.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(RequestIDMiddleware, LoggingMiddleware(s.deps.Metrics))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/alerts", s.GetAlerts).Methods(http.MethodGet)
	if s.deps.EnableMock {
		api.HandleFunc("/mock-alert", s.MockAlert).Methods(http.MethodGet)
	}
	api.HandleFunc("/news", s.GetNews).Methods(http.MethodGet)
	api.HandleFunc("/state", s.GetState).Methods(http.MethodGet)
	api.HandleFunc("/log", s.GetLog).Methods(http.MethodGet)
	api.HandleFunc("/cities", s.GetCities).Methods(http.MethodGet)
	api.HandleFunc("/cities", s.PutCities).Methods(http.MethodPut)
	api.HandleFunc("/audio/unlock", s.UnlockAudio).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.Stream).Methods(http.MethodGet)
	r.HandleFunc("/health", s.HealthCheck).Methods(http.MethodGet)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
	}
	if s.deps.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.deps.StaticDir)))
	}
	return r
}

// HealthCheck всегда отвечает 200 OK; проблемы с источником видны в /api/state.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// GetAlerts возвращает текущую тревогу. Ошибки источника прокси уже
// превратил в тревогу типа "none".
func (s *Server) GetAlerts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Alerts.Current(r.Context()))
}

type mockResponse struct {
	Success   bool         `json:"success"`
	MockAlert models.Alert `json:"mockAlert"`
}

// MockAlert ставит или снимает тестовую тревогу:
// /api/mock-alert?type=missiles&cities=a,b&offset=15 или ?type=none.
func (s *Server) MockAlert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t := models.ParseAlertType(strings.TrimSpace(q.Get("type")))

	var cities []string
	if v := q.Get("cities"); v != "" {
		cities = strings.Split(v, ",")
	}

	offset, err := strconv.ParseFloat(q.Get("offset"), 64)
	if err != nil || offset < 0 {
		offset = 0
	}

	a := proxy.NewMockAlert(t, cities, time.Duration(offset*float64(time.Second)), s.now())
	s.deps.Alerts.SetMock(a)

	s.writeJSON(w, http.StatusOK, mockResponse{Success: true, MockAlert: a})
}

// GetNews возвращает закэшированные заголовки, [] если лента недоступна.
func (s *Server) GetNews(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.News.Items(r.Context()))
}

func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Reducer.Snapshot())
}

func (s *Server) GetLog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Reducer.Log())
}

func (s *Server) GetCities(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, prefs.Preferences{SelectedCities: s.deps.Reducer.SelectedCities()})
}

// PutCities заменяет фильтр городов и сохраняет его.
func (s *Server) PutCities(w http.ResponseWriter, r *http.Request) {
	var p prefs.Preferences
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.deps.Reducer.SetSelectedCities(p.SelectedCities)
	saved := prefs.Preferences{SelectedCities: s.deps.Reducer.SelectedCities()}

	if s.deps.Prefs != nil {
		if err := s.deps.Prefs.Save(saved); err != nil {
			s.log.WithError(err).Error("Failed to save preferences")
			http.Error(w, "Failed to save preferences", http.StatusInternalServerError)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, saved)
}

// UnlockAudio фиксирует действие пользователя, разрешающее звук.
func (s *Server) UnlockAudio(w http.ResponseWriter, r *http.Request) {
	s.deps.Reducer.UnlockAudio()
	s.writeJSON(w, http.StatusOK, map[string]bool{"audioUnlocked": true})
}

// Stream переводит соединение на websocket и пересылает события.
// ?types=alert,clear сужает поток. Первое сообщение содержит текущее состояние.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	hello := &events.Event{
		Type: events.TypeStatus,
		At:   s.now().UTC(),
		Data: s.deps.Reducer.Snapshot(),
	}
	s.deps.Broker.ServeWS(w, r, events.ParseTypes(r.URL.Query().Get("types")), hello)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("Failed to encode response")
	}
}
