// Package audio drives the alert sounds: a looping siren for critical alerts
// and a short tone for warnings. Playback is fire-and-forget.
package audio

import (
	"io"
	"sync"
	"time"

	"silentwave/internal/events"
)

// Player plays alert sounds. Implementations must not block.
type Player interface {
	PlaySiren()
	StopSiren()
	PlayTone()
}

// Nop discards every sound.
type Nop struct{}

func (Nop) PlaySiren() {}
func (Nop) StopSiren() {}
func (Nop) PlayTone()  {}

// Gate holds playback back until Unlock is called, the way browsers refuse
// to play audio before a user gesture. StopSiren always passes through.
type Gate struct {
	mu       sync.RWMutex
	next     Player
	unlocked bool
}

func NewGate(next Player) *Gate {
	return &Gate{next: next}
}

func (g *Gate) Unlock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unlocked = true
}

func (g *Gate) Unlocked() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.unlocked
}

func (g *Gate) PlaySiren() {
	if g.Unlocked() {
		g.next.PlaySiren()
	}
}

func (g *Gate) StopSiren() {
	g.next.StopSiren()
}

func (g *Gate) PlayTone() {
	if g.Unlocked() {
		g.next.PlayTone()
	}
}

// BroadcastPlayer turns sounds into events so that connected dashboards play
// them locally.
type BroadcastPlayer struct {
	sink events.Sink
	now  func() time.Time
}

func NewBroadcastPlayer(sink events.Sink) *BroadcastPlayer {
	return &BroadcastPlayer{sink: sink, now: time.Now}
}

func (p *BroadcastPlayer) PlaySiren() { p.publish(events.TypeSirenStart) }
func (p *BroadcastPlayer) StopSiren() { p.publish(events.TypeSirenStop) }
func (p *BroadcastPlayer) PlayTone()  { p.publish(events.TypeTone) }

func (p *BroadcastPlayer) publish(t events.Type) {
	if p.sink == nil {
		return
	}
	p.sink.Publish(events.Event{Type: t, At: p.now()})
}

const bell = "\a"

// BellPlayer rings the terminal bell. The siren rings every interval until
// stopped; starting a new siren stops the previous one first.
type BellPlayer struct {
	mu       sync.Mutex
	out      io.Writer
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewBellPlayer(out io.Writer, interval time.Duration) *BellPlayer {
	if interval <= 0 {
		interval = time.Second
	}
	return &BellPlayer{out: out, interval: interval}
}

func (p *BellPlayer) PlaySiren() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	p.stop, p.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.ring()
		for {
			select {
			case <-ticker.C:
				p.ring()
			case <-stop:
				return
			}
		}
	}()
}

func (p *BellPlayer) StopSiren() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *BellPlayer) stopLocked() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.stop, p.done = nil, nil
}

// Playing reports whether a siren loop is running.
func (p *BellPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func (p *BellPlayer) PlayTone() {
	p.ring()
}

func (p *BellPlayer) ring() {
	_, _ = io.WriteString(p.out, bell)
}
