// Package reducer turns the stream of polled alerts into dashboard state:
// deduplication by alert key, severity, city filtering, the shelter countdown,
// the alert log and the matching sounds.
package reducer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"silentwave/internal/alerts"
	"silentwave/internal/audio"
	"silentwave/internal/events"
	"silentwave/internal/logger"
	"silentwave/internal/metrics"
	"silentwave/internal/models"
)

const (
	// MaxLogSize caps the alert log.
	MaxLogSize = 50

	// resyncThreshold is how far the local countdown may drift from the
	// recomputed value before it is corrected.
	resyncThreshold = 2
)

// Transition describes what a poll result did to the state.
type Transition int

const (
	Unchanged Transition = iota
	Triggered
	Resynced
	Cleared
	Ignored
)

func (t Transition) String() string {
	switch t {
	case Triggered:
		return "triggered"
	case Resynced:
		return "resynced"
	case Cleared:
		return "cleared"
	case Ignored:
		return "ignored"
	default:
		return "unchanged"
	}
}

// Options wires the reducer's collaborators. All fields are optional.
type Options struct {
	Player  audio.Player
	Sink    events.Sink
	Metrics *metrics.Metrics
	NewID   func() string
}

// Reducer holds the alert state of one dashboard. It is safe for concurrent use.
type Reducer struct {
	mu sync.Mutex

	gate    *audio.Gate
	sink    events.Sink
	metrics *metrics.Metrics
	newID   func() string
	log     *logger.Entry

	lastKey   string
	current   *models.Alert
	severity  models.Severity
	alarming  bool
	remaining *int
	status    models.ConnectionStatus
	lastPoll  *time.Time
	selected  []string
	entries   []models.AlertLogEntry
}

// New creates a reducer in the "connecting" state with no active alert.
func New(opts Options) *Reducer {
	player := opts.Player
	if player == nil {
		player = audio.Nop{}
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Reducer{
		gate:     audio.NewGate(player),
		sink:     opts.Sink,
		metrics:  opts.Metrics,
		newID:    newID,
		log:      logger.Component("reducer"),
		lastKey:  alerts.NoneKey,
		severity: models.SeverityNone,
		status:   models.StatusConnecting,
		entries:  []models.AlertLogEntry{},
	}
}

// Apply folds one successful poll result into the state.
func (r *Reducer) Apply(a models.Alert, now time.Time) Transition {
	r.mu.Lock()
	var effects []func()
	defer func() {
		r.mu.Unlock()
		for _, fn := range effects {
			fn()
		}
	}()

	if r.status != models.StatusConnected {
		r.status = models.StatusConnected
		effects = append(effects, r.statusEffects()...)
	}
	polled := now
	r.lastPoll = &polled

	if a.Type == "" || a.Type == models.AlertNone {
		if r.lastKey == alerts.NoneKey {
			return Unchanged
		}
		r.log.Info("Clearing alerts (server returned none)")
		effects = append(effects, r.clearLocked(now)...)
		return Cleared
	}

	if !alerts.Relevant(a, r.selected) {
		if r.lastKey != alerts.NoneKey && r.current != nil {
			r.log.Info("Alert no longer relevant for selected cities")
			effects = append(effects, r.clearLocked(now)...)
			return Cleared
		}
		return Ignored
	}

	key := alerts.Key(a)
	remaining := remainingShelterTime(a, now)

	if key == r.lastKey {
		if r.remaining == nil || abs(*r.remaining-remaining) > resyncThreshold {
			r.remaining = &remaining
			effects = append(effects, r.countdownEffects(now)...)
			return Resynced
		}
		return Unchanged
	}

	sev := alerts.Severity(a.Type)
	received := now.UTC()
	promoted := a
	promoted.Cities = append([]string(nil), a.Cities...)
	promoted.ReceivedAt = &received

	r.lastKey = key
	r.current = &promoted
	r.severity = sev
	r.alarming = true
	r.remaining = &remaining

	entry := models.AlertLogEntry{
		Alert:      promoted,
		ID:         r.newID(),
		ReceivedAt: received,
	}
	entry.Alert.ReceivedAt = nil
	r.entries = append([]models.AlertLogEntry{entry}, r.entries...)
	if len(r.entries) > MaxLogSize {
		r.entries = r.entries[:MaxLogSize]
	}

	r.log.WithFields(logger.Fields{
		"key":       key,
		"severity":  sev,
		"remaining": remaining,
	}).Info("New alert triggered")

	if r.metrics != nil {
		r.metrics.AlertsTriggered.WithLabelValues(string(sev)).Inc()
		r.metrics.Alarming.Set(1)
		r.metrics.ShelterRemaining.Set(float64(remaining))
	}

	snap := r.snapshotLocked()
	switch sev {
	case models.SeverityCritical:
		effects = append(effects, r.gate.StopSiren, r.gate.PlaySiren)
	case models.SeverityWarning:
		effects = append(effects, r.gate.PlayTone)
	}
	effects = append(effects, r.publish(events.TypeAlert, now, snap))
	return Triggered
}

// PollFailed marks the connection as lost. The alert state is kept and the
// next successful poll reconnects.
func (r *Reducer) PollFailed(err error) {
	r.mu.Lock()
	var effects []func()
	defer func() {
		r.mu.Unlock()
		for _, fn := range effects {
			fn()
		}
	}()

	r.log.WithError(err).Warn("Poll error")
	if r.status == models.StatusDisconnected {
		return
	}
	r.status = models.StatusDisconnected
	effects = r.statusEffects()
}

// Tick advances the shelter countdown by one second while an alert is active.
// It returns the remaining time, or nil when there is no countdown.
func (r *Reducer) Tick(now time.Time) *int {
	r.mu.Lock()
	var effects []func()
	defer func() {
		r.mu.Unlock()
		for _, fn := range effects {
			fn()
		}
	}()

	if !r.alarming || r.remaining == nil {
		return nil
	}
	left := *r.remaining
	if left > 0 {
		left--
		r.remaining = &left
		effects = r.countdownEffects(now)
	}
	return &left
}

// SetSelectedCities replaces the city filter. Empty means all cities.
// The filter applies from the next poll on.
func (r *Reducer) SetSelectedCities(cities []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = alerts.NormalizeCities(cities)
	r.log.WithField("cities", r.selected).Info("Setting selected cities")
}

// SelectedCities returns a copy of the city filter.
func (r *Reducer) SelectedCities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.selected...)
}

// UnlockAudio allows sounds to play from now on.
func (r *Reducer) UnlockAudio() {
	r.gate.Unlock()
	r.log.Info("Audio unlocked")
}

// Snapshot returns the current state.
func (r *Reducer) Snapshot() models.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Log returns the alert log, most recent first.
func (r *Reducer) Log() []models.AlertLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AlertLogEntry{}, r.entries...)
}

func (r *Reducer) snapshotLocked() models.State {
	s := models.State{
		Severity:         r.severity,
		IsAlarming:       r.alarming,
		ConnectionStatus: r.status,
		SelectedCities:   append([]string{}, r.selected...),
		AudioUnlocked:    r.gate.Unlocked(),
	}
	if r.current != nil {
		cur := *r.current
		cur.Cities = append([]string(nil), r.current.Cities...)
		s.CurrentAlert = &cur
		s.Label = alerts.Label(cur)
	} else {
		s.Label = alerts.Label(models.Alert{Type: models.AlertNone})
	}
	if r.remaining != nil {
		left := *r.remaining
		s.RemainingShelterTime = &left
	}
	if r.lastPoll != nil {
		t := *r.lastPoll
		s.LastPollTime = &t
	}
	return s
}

func (r *Reducer) clearLocked(now time.Time) []func() {
	r.lastKey = alerts.NoneKey
	r.current = nil
	r.alarming = false
	r.severity = models.SeverityNone
	r.remaining = nil

	if r.metrics != nil {
		r.metrics.AlertsCleared.Inc()
		r.metrics.Alarming.Set(0)
		r.metrics.ShelterRemaining.Set(0)
	}

	return []func(){r.gate.StopSiren, r.publish(events.TypeClear, now, r.snapshotLocked())}
}

func (r *Reducer) statusEffects() []func() {
	if r.metrics != nil {
		if r.status == models.StatusConnected {
			r.metrics.Connected.Set(1)
		} else {
			r.metrics.Connected.Set(0)
		}
	}
	now := time.Now()
	if r.lastPoll != nil {
		now = *r.lastPoll
	}
	return []func(){r.publish(events.TypeStatus, now, r.status)}
}

func (r *Reducer) countdownEffects(now time.Time) []func() {
	left := *r.remaining
	if r.metrics != nil {
		r.metrics.ShelterRemaining.Set(float64(left))
	}
	return []func(){r.publish(events.TypeCountdown, now, left)}
}

func (r *Reducer) publish(t events.Type, at time.Time, data interface{}) func() {
	sink := r.sink
	return func() {
		if sink == nil {
			return
		}
		sink.Publish(events.Event{Type: t, At: at, Data: data})
	}
}

// remainingShelterTime is the shelter time left for an alert at now, never
// below zero. A missing or future issue time counts as issued now.
func remainingShelterTime(a models.Alert, now time.Time) int {
	elapsed := 0
	if !a.Timestamp.IsZero() {
		if d := now.Sub(a.Timestamp); d > 0 {
			elapsed = int(d / time.Second)
		}
	}
	left := alerts.ShelterTime(a.Cities) - elapsed
	if left < 0 {
		return 0
	}
	return left
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
