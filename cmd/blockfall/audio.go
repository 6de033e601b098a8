package main

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/wricardo/blockfall/game/engine"
)

const sampleRate = beep.SampleRate(44100)

// tone is one note of a cue
type tone struct {
	freq     float64
	duration time.Duration
}

// cueFor returns the notes played for an engine event. Unknown events return
// nil.
func cueFor(ev engine.Event) []tone {
	switch ev.Type {
	case engine.EventMove:
		return []tone{{freq: 440, duration: 15 * time.Millisecond}}
	case engine.EventSoftDrop:
		return []tone{{freq: 300, duration: 15 * time.Millisecond}}
	case engine.EventSpawn:
		return []tone{{freq: 880, duration: 20 * time.Millisecond}}
	case engine.EventRotate:
		return []tone{{freq: 660, duration: 25 * time.Millisecond}}
	case engine.EventHardDrop:
		return []tone{{freq: 180, duration: 60 * time.Millisecond}}
	case engine.EventLock:
		return []tone{{freq: 240, duration: 35 * time.Millisecond}}
	case engine.EventLineClear:
		// One rising note per cleared row
		notes := make([]tone, 0, ev.Rows)
		for i := 0; i < ev.Rows; i++ {
			notes = append(notes, tone{freq: 523.25 * math.Pow(2, float64(i)/3), duration: 70 * time.Millisecond})
		}
		return notes
	case engine.EventGameOver:
		return []tone{
			{freq: 392, duration: 150 * time.Millisecond},
			{freq: 330, duration: 150 * time.Millisecond},
			{freq: 262, duration: 300 * time.Millisecond},
		}
	default:
		return nil
	}
}

// Sounds plays event cues through the speaker. A Sounds that failed to
// initialize, or was muted, ignores every event.
type Sounds struct {
	mu      sync.Mutex
	mixer   *beep.Mixer
	volume  float64
	enabled bool
}

// NewSounds creates a muted sound player
func NewSounds(volume float64) *Sounds {
	return &Sounds{mixer: &beep.Mixer{}, volume: volume}
}

// Initialize opens the speaker
func (s *Sounds) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	speaker.Play(s.mixer)
	s.enabled = true
	return nil
}

// HandleEvent implements engine.EventSink
func (s *Sounds) HandleEvent(ev engine.Event) {
	notes := cueFor(ev)
	if len(notes) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return
	}

	streamer, err := s.sequence(notes)
	if err != nil {
		return
	}
	speaker.Lock()
	s.mixer.Add(streamer)
	speaker.Unlock()
}

func (s *Sounds) sequence(notes []tone) (beep.Streamer, error) {
	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		sine, err := generators.SineTone(sampleRate, n.freq)
		if err != nil {
			return nil, err
		}
		parts = append(parts, beep.Take(sampleRate.N(n.duration), sine))
	}
	return withVolume(beep.Seq(parts...), s.volume), nil
}

// withVolume scales a streamer linearly; 0 is silent
func withVolume(st beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: st, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: st, Base: 2, Volume: math.Log2(vol), Silent: false}
}

// Close silences pending cues
func (s *Sounds) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return
	}
	speaker.Lock()
	s.mixer.Clear()
	speaker.Unlock()
	s.enabled = false
}
