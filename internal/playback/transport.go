package playback

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/shared"
)

// DefaultCheckpointInterval is the cadence of offset writes while playing.
const DefaultCheckpointInterval = time.Second

// Options configures a [Transport]. Zero values select defaults.
type Options struct {
	NewElement         func() Element
	Positions          Positions
	Clock              Clock
	CheckpointInterval time.Duration
	Volume             float64
	Rate               float64
	Logger             *log.Logger
}

// Status is a point-in-time view of the transport.
type Status struct {
	State    State
	Source   Source
	Position float64
	Duration float64
	Volume   float64
	Rate     float64
}

// Transport controls the single bound audio [Element].
type Transport struct {
	mu         sync.Mutex
	newElement func() Element
	positions  Positions
	clock      Clock
	interval   time.Duration
	logger     *log.Logger

	state   State
	element Element
	source  Source
	volume  float64
	rate    float64
	loadSeq uint64
	cp      *checkpointer
	cpGen   uint64

	listeners map[int]func(Transition)
	nextID    int
}

// NewTransport creates an idle [Transport].
func NewTransport(opts Options) *Transport {
	t := &Transport{
		newElement: opts.NewElement,
		positions:  opts.Positions,
		clock:      opts.Clock,
		interval:   opts.CheckpointInterval,
		logger:     opts.Logger,
		volume:     1,
		rate:       1,
		listeners:  make(map[int]func(Transition)),
	}
	if t.clock == nil {
		t.clock = SystemClock{}
	}
	if t.newElement == nil {
		clock := t.clock
		t.newElement = func() Element { return NewClockElement(clock, http.DefaultClient) }
	}
	if t.interval <= 0 {
		t.interval = DefaultCheckpointInterval
	}
	if t.logger == nil {
		t.logger = shared.DiscardLogger()
	}
	if opts.Volume > 0 {
		t.volume = clamp(opts.Volume, 0, 1)
	}
	if ValidRate(opts.Rate) {
		t.rate = opts.Rate
	}
	return t
}

// Subscribe registers fn for state transitions and returns a function that removes it.
func (t *Transport) Subscribe(fn func(Transition)) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Load binds src, detaching whatever was bound before.
//
// When src.ItemID is set, a stored offset wins over resumeFrom. A malformed stored offset means no
// resume. The start is clamped into [0, duration]. A media error leaves the transport Idle.
func (t *Transport) Load(ctx context.Context, src Source, resumeFrom float64) error {
	t.mu.Lock()
	var changes []Transition
	changes = append(changes, t.detachLocked()...)
	changes = append(changes, t.setStateLocked(Loading)...)
	t.loadSeq++
	seq := t.loadSeq
	t.source = src
	t.mu.Unlock()
	t.emit(changes)

	el := t.newElement()
	openErr := el.Open(ctx, src)
	start := t.resumeOffset(src, resumeFrom)

	t.mu.Lock()
	if seq != t.loadSeq {
		t.mu.Unlock()
		el.Close()
		t.logger.Debug("load superseded", "url", src.URL)
		return nil
	}

	if openErr != nil {
		t.source = Source{}
		changes = t.setStateLocked(Idle)
		t.mu.Unlock()
		el.Close()
		t.emit(changes)
		t.logger.Warn("media failed to load", "url", src.URL, "error", openErr)
		return fmt.Errorf("failed to load %s: %w", src.URL, openErr)
	}

	duration := el.Duration()
	if duration <= 0 {
		duration = src.Duration
	}
	t.source.Duration = duration
	el.SetVolume(t.volume)
	el.SetRate(t.rate)
	el.SetPosition(clampOffset(start, duration))
	t.element = el
	changes = t.setStateLocked(Ready)
	t.mu.Unlock()
	t.emit(changes)

	t.logger.Info("loaded", "audio_id", src.ItemID, "start", start, "duration", duration)
	return nil
}

func (t *Transport) resumeOffset(src Source, hint float64) float64 {
	if src.ItemID <= 0 || t.positions == nil {
		return hint
	}

	stored, ok, err := t.positions.Load(src.ItemID)
	switch {
	case err != nil:
		t.logger.Debug("ignoring stored offset", "audio_id", src.ItemID, "error", err)
		return 0
	case ok:
		return stored
	default:
		return hint
	}
}

// TogglePlayPause switches between Playing and Paused. Ready and Ended start playing; an Ended
// source restarts from the beginning. It is a no-op when nothing is bound.
func (t *Transport) TogglePlayPause() error {
	t.mu.Lock()
	if !t.state.Bound() || t.element == nil {
		t.mu.Unlock()
		return nil
	}

	var changes []Transition
	var err error
	if t.state == Playing {
		t.stopCheckpointingLocked()
		if perr := t.element.Pause(); perr != nil {
			err = perr
			changes = t.detachLocked()
		} else {
			changes = t.setStateLocked(Paused)
		}
	} else {
		if t.state == Ended {
			t.element.SetPosition(0)
		}
		if perr := t.element.Play(); perr != nil {
			err = perr
			changes = t.detachLocked()
		} else {
			changes = t.setStateLocked(Playing)
			t.startCheckpointingLocked()
		}
	}
	t.mu.Unlock()
	t.emit(changes)

	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrMediaFailed, err)
	}
	return nil
}

// Seek moves the playhead to seconds, clamped into [0, duration]. Seeking an Ended source back
// before the end leaves it Paused.
func (t *Transport) Seek(seconds float64) {
	t.mu.Lock()
	if !t.state.Bound() || t.element == nil {
		t.mu.Unlock()
		return
	}

	target := clampOffset(seconds, t.source.Duration)
	t.element.SetPosition(target)

	var changes []Transition
	if t.state == Ended && (t.source.Duration <= 0 || target < t.source.Duration) {
		changes = t.setStateLocked(Paused)
	}
	t.mu.Unlock()
	t.emit(changes)
}

// SeekBy moves the playhead by delta seconds.
func (t *Transport) SeekBy(delta float64) {
	t.Seek(t.CurrentTime() + delta)
}

// SetVolume applies v, clamped into [0, 1], to the bound element. With nothing bound the volume is
// kept for the next [Transport.Load].
func (t *Transport) SetVolume(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = clamp(v, 0, 1)
	if !t.state.Bound() || t.element == nil {
		return
	}
	t.element.SetVolume(t.volume)
}

// SetPlaybackRate applies r, which must be one of [Rates].
func (t *Transport) SetPlaybackRate(r float64) error {
	if !ValidRate(r) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidRate, r)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Bound() || t.element == nil {
		return nil
	}
	t.rate = r
	t.element.SetRate(r)
	return nil
}

// Download returns the bound source URL unchanged, or "" when nothing is bound.
func (t *Transport) Download() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Bound() {
		return ""
	}
	return t.source.URL
}

// CurrentTime returns the playhead in seconds, or 0 when nothing is bound.
func (t *Transport) CurrentTime() float64 {
	return t.Status().Position
}

// Status returns the current state and playhead. A source that has played to its end is moved to Ended.
func (t *Transport) Status() Status {
	t.mu.Lock()
	var changes []Transition
	if t.state == Playing && t.element != nil && t.element.Ended() {
		changes = t.endLocked()
	}

	st := Status{State: t.state, Source: t.source, Volume: t.volume, Rate: t.rate}
	if t.element != nil && t.state.Bound() {
		st.Position = clampOffset(t.element.Position(), t.source.Duration)
		st.Duration = t.source.Duration
	}
	t.mu.Unlock()
	t.emit(changes)
	return st
}

// Unbind detaches the source, stopping checkpoints before returning.
func (t *Transport) Unbind() {
	t.mu.Lock()
	t.loadSeq++
	changes := t.detachLocked()
	t.mu.Unlock()
	t.emit(changes)
}

// ReportError records an asynchronous media failure: checkpoints stop and the transport goes Idle.
func (t *Transport) ReportError(err error) {
	t.mu.Lock()
	if !t.state.Bound() {
		t.mu.Unlock()
		return
	}
	t.logger.Warn("media error", "url", t.source.URL, "error", err)
	changes := t.detachLocked()
	t.mu.Unlock()
	t.emit(changes)
}

func (t *Transport) handleEnded(gen uint64) {
	t.mu.Lock()
	if gen != t.cpGen || t.state != Playing {
		t.mu.Unlock()
		return
	}
	changes := t.endLocked()
	t.mu.Unlock()
	t.emit(changes)
}

func (t *Transport) endLocked() []Transition {
	t.stopCheckpointingLocked()
	t.element.Pause()
	return t.setStateLocked(Ended)
}

// detachLocked stops checkpoints, closes the element, forgets the source, and moves to Idle.
func (t *Transport) detachLocked() []Transition {
	t.stopCheckpointingLocked()
	if t.element != nil {
		if err := t.element.Close(); err != nil {
			t.logger.Debug("close failed", "error", err)
		}
		t.element = nil
	}
	t.source = Source{}
	return t.setStateLocked(Idle)
}

func (t *Transport) startCheckpointingLocked() {
	t.stopCheckpointingLocked()
	t.cpGen++
	gen := t.cpGen
	t.cp = startCheckpointer(checkpointConfig{
		element:   t.element,
		itemID:    t.source.ItemID,
		positions: t.positions,
		clock:     t.clock,
		interval:  t.interval,
		onEnded:   func() { t.handleEnded(gen) },
		logger:    t.logger,
	})
}

// stopCheckpointingLocked is synchronous; the checkpoint goroutine never takes t.mu, so waiting here cannot deadlock.
func (t *Transport) stopCheckpointingLocked() {
	if t.cp == nil {
		return
	}
	t.cp.stop()
	t.cp = nil
	t.cpGen++
}

func (t *Transport) setStateLocked(next State) []Transition {
	if t.state == next {
		return nil
	}
	change := Transition{From: t.state, To: next}
	t.state = next
	return []Transition{change}
}

func (t *Transport) emit(changes []Transition) {
	if len(changes) == 0 {
		return
	}

	t.mu.Lock()
	fns := make([]func(Transition), 0, len(t.listeners))
	for id := 0; id < t.nextID; id++ {
		if fn, ok := t.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	t.mu.Unlock()

	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}
