package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(48000)

	clickDuration = 40 * time.Millisecond
	// minClickGap rate-limits clicks so a frame full of bounces is one sound
	minClickGap = 30 * time.Millisecond
)

// SoundManager plays bounce feedback through the system speaker.
// Every method is safe before Initialize or after a failed Initialize.
type SoundManager struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	volume      float64
	muted       bool
	initialized bool
	lastClick   time.Time
	played      uint64

	now func() time.Time
}

// NewSoundManager creates a new sound manager
func NewSoundManager(volume float64) *SoundManager {
	return &SoundManager{
		mixer:  &beep.Mixer{},
		volume: clampVolume(volume),
		now:    time.Now,
	}
}

// Initialize sets up the audio system
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	// Initialize speaker with sample rate and buffer size
	err := speaker.Init(sampleRate, sampleRate.N(time.Millisecond*100))
	if err != nil {
		return err
	}

	speaker.Play(sm.mixer)
	sm.initialized = true
	return nil
}

// Cleanup stops all sounds and closes the audio system
func (sm *SoundManager) Cleanup() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}

	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	sm.initialized = false
}

// PlayBounce queues a click whose pitch and loudness follow impact speed
// normalized to [0,1]. Returns true when a click was queued.
func (sm *SoundManager) PlayBounce(intensity float64) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized || sm.muted || sm.volume == 0 || intensity <= 0 {
		return false
	}
	now := sm.now()
	if now.Sub(sm.lastClick) < minClickGap {
		return false
	}
	sm.lastClick = now
	sm.played++

	intensity = math.Min(intensity, 1)
	gen := NewClickGenerator(sampleRate, 440+880*intensity, sm.volume*(0.3+0.7*intensity))
	streamer := beep.Take(sampleRate.N(clickDuration), gen)

	speaker.Lock()
	sm.mixer.Add(streamer)
	speaker.Unlock()
	return true
}

// ToggleMute flips mute, returns true if sound is now on
func (sm *SoundManager) ToggleMute() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.muted = !sm.muted
	return !sm.muted
}

// SetVolume updates master volume (0.0-1.0)
func (sm *SoundManager) SetVolume(v float64) {
	sm.mu.Lock()
	sm.volume = clampVolume(v)
	sm.mu.Unlock()
}

// Played returns the number of clicks queued since creation
func (sm *SoundManager) Played() uint64 {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.played
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClickGenerator generates a short decaying sine pluck
type ClickGenerator struct {
	sr   beep.SampleRate
	freq float64
	amp  float64
	pos  int
}

// NewClickGenerator creates a click at freq Hz with peak amplitude amp
func NewClickGenerator(sr beep.SampleRate, freq, amp float64) *ClickGenerator {
	return &ClickGenerator{sr: sr, freq: freq, amp: amp}
}

func (g *ClickGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		// Fast attack, exponential decay
		attack := math.Min(t/0.002, 1.0)
		envelope := attack * math.Exp(-t*60)
		sample := g.amp * 0.4 * envelope * math.Sin(2*math.Pi*g.freq*t)

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *ClickGenerator) Err() error {
	return nil
}
