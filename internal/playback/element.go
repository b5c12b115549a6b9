package playback

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/desertthunder/audx/internal/shared"
)

// Source is what the transport binds to.
type Source struct {
	URL      string
	ItemID   int     // 0 disables checkpointing and resume
	Duration float64 // seconds; 0 when unknown
}

// Element is a single playable media resource.
//
// Implementations must be safe for concurrent use: the checkpointer reads Position and Ended from its
// own goroutine.
type Element interface {
	Open(ctx context.Context, src Source) error
	Play() error
	Pause() error
	Position() float64
	SetPosition(seconds float64)
	Duration() float64
	Ended() bool
	SetVolume(v float64)
	SetRate(r float64)
	Close() error
}

// ClockElement is an [Element] whose playhead advances with a [Clock], scaled by the rate and capped
// at the source duration. It produces no sound; it stands in for a device-backed player and lets the
// transport, checkpointing, and resume logic run headless.
type ClockElement struct {
	mu       sync.Mutex
	clock    Clock
	client   *http.Client
	open     bool
	playing  bool
	duration float64
	base     float64
	anchor   time.Time
	rate     float64
	volume   float64
}

// NewClockElement creates a [ClockElement]. A nil client uses [http.DefaultClient] for probes.
func NewClockElement(clock Clock, client *http.Client) *ClockElement {
	if clock == nil {
		clock = SystemClock{}
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ClockElement{clock: clock, client: client, rate: 1, volume: 1}
}

// Open checks that the source is reachable. HTTP(S) sources get a HEAD request; anything else is
// treated as a local path (file:// allowed) and stat'ed.
func (e *ClockElement) Open(ctx context.Context, src Source) error {
	if src.URL == "" {
		return shared.ErrNoSource
	}
	if err := probe(ctx, e.client, src.URL); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = true
	e.playing = false
	e.duration = src.Duration
	e.base = 0
	e.anchor = e.clock.Now()
	return nil
}

func probe(ctx context.Context, client *http.Client, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMediaFailed, err)
	}

	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, raw, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrMediaFailed, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrMediaFailed, err)
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 && resp.StatusCode != http.StatusMethodNotAllowed {
			return fmt.Errorf("%w: status %d", shared.ErrMediaFailed, resp.StatusCode)
		}
		return nil
	case "file", "":
		path := raw
		if u.Scheme == "file" {
			path = u.Path
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrMediaFailed, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported scheme %q", shared.ErrMediaFailed, u.Scheme)
	}
}

func (e *ClockElement) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open {
		return shared.ErrNoSource
	}
	if !e.playing {
		e.anchor = e.clock.Now()
		e.playing = true
	}
	return nil
}

func (e *ClockElement) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open {
		return shared.ErrNoSource
	}
	e.base = e.positionLocked()
	e.playing = false
	return nil
}

func (e *ClockElement) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *ClockElement) positionLocked() float64 {
	pos := e.base
	if e.playing {
		pos += e.clock.Now().Sub(e.anchor).Seconds() * e.rate
	}
	return clampOffset(pos, e.duration)
}

func (e *ClockElement) SetPosition(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.base = clampOffset(seconds, e.duration)
	e.anchor = e.clock.Now()
}

func (e *ClockElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *ClockElement) Ended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open && e.duration > 0 && e.positionLocked() >= e.duration
}

func (e *ClockElement) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = clamp(v, 0, 1)
}

// Volume returns the last applied volume.
func (e *ClockElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// SetRate rebases the playhead so time already played keeps its old rate.
func (e *ClockElement) SetRate(r float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.base = e.positionLocked()
	e.anchor = e.clock.Now()
	e.rate = r
}

func (e *ClockElement) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = false
	e.playing = false
	return nil
}
